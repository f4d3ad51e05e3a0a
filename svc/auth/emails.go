package auth

import "fmt"

func verificationBody(baseURL, token string) string {
	link := fmt.Sprintf("%s/verify-email?token=%s", baseURL, token)
	return fmt.Sprintf(`<html><body>
<p>Welcome to Wav Social Scan!</p>
<p>Confirm your email address by clicking the link below. The link is valid for 24 hours.</p>
<p><a href="%s">Verify my email</a></p>
<p>If you did not create an account, you can safely ignore this message.</p>
</body></html>`, link)
}

func resetBody(baseURL, token string) string {
	link := fmt.Sprintf("%s/reset-password?token=%s", baseURL, token)
	return fmt.Sprintf(`<html><body>
<p>We received a request to reset your Wav Social Scan password.</p>
<p>Click the link below to choose a new password. The link is valid for one hour and can be used once.</p>
<p><a href="%s">Reset my password</a></p>
<p>If you did not request this, you can safely ignore this message.</p>
</body></html>`, link)
}
