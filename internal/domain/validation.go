package domain

import "unicode/utf8"

// Требования к учётке: username >= 3 символов, пароль >= 6.
const (
	MinUsernameLen = 3
	MinPasswordLen = 6
)

func ValidUsername(s string) bool {
	return utf8.RuneCountInString(s) >= MinUsernameLen
}

func ValidPassword(s string) bool {
	return utf8.RuneCountInString(s) >= MinPasswordLen
}
