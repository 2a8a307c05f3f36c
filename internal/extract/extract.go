package extract

import "strings"

const (
	// bodyPrefix marks the single-line schema declaration. The right-hand
	// side must end with a statement terminator on the same line.
	bodyPrefix = "local body ="

	// handlerPrefix marks the start of the handler block, which runs to the
	// end of the file.
	handlerPrefix = "local handler ="
)

// Fragment is the raw textual result of scanning one module.
type Fragment struct {
	// BodyText is the schema expression: everything after the first '=' of
	// the body line, trimmed, with the trailing statement terminator removed.
	BodyText string

	// HasBody reports whether a body declaration was recognized. An absent
	// body means "skip validation" downstream, not an error.
	HasBody bool

	// HandlerLines holds every raw line from the handler declaration to end
	// of file. Empty when no handler declaration was recognized.
	HandlerLines []string
}

// Scan splits source into lines and extracts the body and handler fragments.
// Only the first body declaration is honored. Once the handler declaration is
// seen, every remaining line is captured verbatim; the scanner recognizes no
// further declarations, so a body-prefixed line inside the handler block is
// handler text, not a schema.
func Scan(source string) Fragment {
	var frag Fragment
	insideHandler := false

	for _, line := range strings.Split(source, "\n") {
		if insideHandler {
			frag.HandlerLines = append(frag.HandlerLines, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, handlerPrefix):
			insideHandler = true
			frag.HandlerLines = append(frag.HandlerLines, line)
		case strings.HasPrefix(trimmed, bodyPrefix) && !frag.HasBody:
			frag.BodyText = bodyExpression(trimmed)
			frag.HasBody = true
		}
	}

	return frag
}

// bodyExpression isolates the schema expression from a body declaration
// line: the text after the first '=', trimmed, minus the final character,
// which the convention assumes is the ';' terminator.
func bodyExpression(line string) string {
	_, rhs, ok := strings.Cut(line, "=")
	if !ok {
		return ""
	}
	rhs = strings.TrimSpace(rhs)
	if rhs == "" {
		return ""
	}
	return rhs[:len(rhs)-1]
}
