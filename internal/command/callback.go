package command

import (
	"errors"
	"regexp"
	"strings"
)

// Verb is the optional action prefix of callback data.
type Verb string

const (
	VerbNone    Verb = ""
	VerbAsk     Verb = "ask"
	VerbRespond Verb = "respond"
	VerbCancel  Verb = "cancel"
	VerbConfirm Verb = "confirm"
)

const argSeparator = ";"

// ErrMalformedCallback is returned for callback data outside the grammar
// ((ask|respond|cancel|confirm):)?/<token>(:<arg1>;<arg2>;...)?
var ErrMalformedCallback = errors.New("malformed callback data")

// tokenPattern is a command or menu identifier: a slash followed by Unicode
// letters, digits or underscores.
const tokenPattern = `/[\p{L}\p{N}_]+`

var (
	tokenRegexp     = regexp.MustCompile(`^` + tokenPattern + `$`)
	callbackPattern = regexp.MustCompile(`^(?:(ask|respond|cancel|confirm):)?(` + tokenPattern + `)(?::(.*))?$`)
)

// ValidToken reports whether s can travel as a callback token.
func ValidToken(s string) bool {
	return tokenRegexp.MatchString(s)
}

// Callback is the decoded form of a button's callback data.
type Callback struct {
	Verb  Verb
	Token string
	Args  []string
}

// ParseCallback decodes callback data. Arguments are split on ';'.
func ParseCallback(data string) (Callback, error) {
	match := callbackPattern.FindStringSubmatch(data)
	if match == nil {
		return Callback{}, ErrMalformedCallback
	}

	cb := Callback{Verb: Verb(match[1]), Token: match[2]}
	if match[3] != "" {
		cb.Args = strings.Split(match[3], argSeparator)
	}
	return cb, nil
}

// Encode renders the callback back to its wire form. Arguments must not
// contain ';'.
func (c Callback) Encode() string {
	var b strings.Builder
	if c.Verb != VerbNone {
		b.WriteString(string(c.Verb))
		b.WriteByte(':')
	}
	b.WriteString(c.Token)
	if len(c.Args) > 0 {
		b.WriteByte(':')
		b.WriteString(strings.Join(c.Args, argSeparator))
	}
	return b.String()
}
