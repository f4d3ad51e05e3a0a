// Package token implements the signed bearer token carried by the session
// cookie.
//
// Tokens are three dot-separated base64url segments (header.claims.signature)
// signed with HMAC-SHA256 over "header.claims". The claim set is fixed:
// subject user id, email, plan, issued-at and expires-at. Validity is fully
// stateless - a token is good until it expires or the signing secret changes.
//
// # Usage
//
//	codec, err := token.NewFromString(cfg.SigningSecret)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tok, err := codec.Sign(token.Claims{Subject: user.ID.String()}, 0)
//
//	claims, err := codec.Parse(tok)
//	switch {
//	case errors.Is(err, token.ErrExpiredToken):
//	    // sign in again
//	case errors.Is(err, token.ErrBadSignature), errors.Is(err, token.ErrMalformedToken):
//	    // reject
//	}
package token
