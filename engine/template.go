package engine

import "regexp"

var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z0-9_.]+)\}`)

// Substitute replaces ${name} placeholders with their values. Unknown
// names are left as written, and substituted text is never rescanned.
func Substitute(tmpl string, vars Variables) string {
	if len(vars) == 0 {
		return tmpl
	}
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[2 : len(m)-1]
		if v, ok := vars[name]; ok {
			return v.String()
		}
		return m
	})
}
