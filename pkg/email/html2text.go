package email

import (
	"strings"

	"github.com/k3a/html2text"
)

// ConvertHTMLToText produces the plain-text alternative of a delivery HTML
// body. Runs of blank lines collapse to one.
func ConvertHTMLToText(htmlContent string) (string, error) {
	if htmlContent == "" {
		return "", nil
	}

	text := html2text.HTML2TextWithOptions(htmlContent, html2text.WithUnixLineBreaks())

	lines := strings.Split(text, "\n")
	out := lines[:0]
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n")), nil
}
