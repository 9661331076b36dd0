package wsadmin

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLength = 12
	maxPasswordLength = 100
	passwordSpecials  = "@#$%^&+=-_!? "
)

// ValidPassword reports whether password is 12-100 characters long and has
// a digit, an upper-case letter, a lower-case letter and one of
// "@#$%^&+=-_!? " (space included).
func ValidPassword(password string) bool {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength || n > maxPasswordLength {
		return false
	}

	var digit, upper, lower, special bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
		if strings.ContainsRune(passwordSpecials, r) {
			special = true
		}
	}
	return digit && upper && lower && special
}
