package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

// Required fails when value is empty after trimming.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "is required"},
	}
}

// MinLen fails when value is shorter than n bytes.
func MinLen(field, value string, n int) Rule {
	return Rule{
		Check: func() bool { return len(value) >= n },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at least %d characters", n)},
	}
}

// MaxLen fails when value exceeds n bytes.
func MaxLen(field, value string, n int) Rule {
	return Rule{
		Check: func() bool { return len(value) <= n },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters", n)},
	}
}

// ValidEmail checks the address parses and has a dotted domain, which is the
// practical bar for web signup forms.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if strings.TrimSpace(value) == "" {
				return false
			}
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}
			parts := strings.Split(value, "@")
			return len(parts) == 2 && strings.Contains(parts[1], ".")
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address"},
	}
}

// ValidUsername enforces the normalized username shape: lowercase
// alphanumerics and underscores, 3-30 characters.
func ValidUsername(field, value string) Rule {
	return Rule{
		Check: func() bool { return usernameRegex.MatchString(value) },
		Error: ValidationError{Field: field, Message: "must be 3-30 lowercase letters, digits or underscores"},
	}
}

// InRange fails when value is outside [min, max].
func InRange(field string, value, min, max int) Rule {
	return Rule{
		Check: func() bool { return value >= min && value <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be between %d and %d", min, max)},
	}
}
