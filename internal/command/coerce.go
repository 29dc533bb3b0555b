package command

import (
	"strconv"
	"strings"
)

// Coercer converts a raw argument string into its declared type.
type Coercer struct {
	TypeName string
	Convert  func(string) (any, error)
}

var (
	String = Coercer{TypeName: "str", Convert: func(s string) (any, error) { return s, nil }}

	Int = Coercer{TypeName: "int", Convert: func(s string) (any, error) {
		return strconv.Atoi(strings.TrimSpace(s))
	}}

	Float = Coercer{TypeName: "float", Convert: func(s string) (any, error) {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}}

	Bool = Coercer{TypeName: "bool", Convert: func(s string) (any, error) {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "y", "on":
			return true, nil
		case "no", "n", "off":
			return false, nil
		}
		return strconv.ParseBool(strings.TrimSpace(s))
	}}
)

// Args holds coerced arguments keyed by argument name.
type Args map[string]any

func (a Args) String(name string) string {
	v, _ := a[name].(string)
	return v
}

func (a Args) Int(name string) int {
	v, _ := a[name].(int)
	return v
}

func (a Args) Float(name string) float64 {
	v, _ := a[name].(float64)
	return v
}

func (a Args) Bool(name string) bool {
	v, _ := a[name].(bool)
	return v
}
