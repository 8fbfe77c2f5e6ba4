package http

import "strings"

const passwordSpecials = "@$!%*?&"

// checkPasswordPolicy enforces the registration password policy: at least 8
// characters, one lowercase, one uppercase, one digit, and one special from
// a restricted set, with no characters outside those classes. Returns a
// field-level message when the password is rejected.
func checkPasswordPolicy(password string) (string, bool) {
	if len(password) < 8 {
		return "Password must be at least 8 characters", false
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		default:
			return "Password contains an invalid character", false
		}
	}

	if !lower || !upper || !digit || !special {
		return "Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character (" + passwordSpecials + ")", false
	}
	return "", true
}
