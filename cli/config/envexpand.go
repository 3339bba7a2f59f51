// Package config loads jxlframe.yaml.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} in input.
//
// ${VAR} expands to the variable's value or the empty string.
// ${VAR:-default} uses default when VAR is unset or empty.
// A bare $VAR is left alone so YAML values may contain dollar signs.
func ExpandEnv(input string) string {
	return expand(input, os.LookupEnv)
}

func expand(input string, lookup func(string) (string, bool)) string {
	matches := envVarPattern.FindAllStringSubmatchIndex(input, -1)
	if len(matches) == 0 {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	last := 0
	for _, m := range matches {
		b.WriteString(input[last:m[0]])
		name := input[m[2]:m[3]]
		value, ok := lookup(name)
		switch {
		case ok && value != "":
			b.WriteString(value)
		case m[4] >= 0:
			b.WriteString(input[m[4]:m[5]])
		}
		last = m[1]
	}
	b.WriteString(input[last:])
	return b.String()
}
