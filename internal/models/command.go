package models

import "strings"

// Command identifies a registered bot command, e.g. "/greet".
type Command string

// Menu groups commands into a navigable button set, e.g. "/main".
type Menu string

// NoMenu marks commands excluded from top-level listings.
const NoMenu Menu = "/none"

const displayNameLimit = 14

func (c Command) String() string { return string(c) }

func (m Menu) String() string { return string(m) }

// DisplayName renders an identifier as a button label: the leading slash is
// dropped, underscores become spaces, only the first letter is upper case and
// labels longer than 14 characters are cut with an ellipsis.
func DisplayName(token string) string {
	name := strings.TrimPrefix(strings.TrimSpace(token), "/")
	name = strings.ReplaceAll(name, "_", " ")
	name = capitalize(name)
	return truncate(name, displayNameLimit)
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
