package contact

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips markup from user input. Script and style bodies are
// dropped; runs of spaces collapse but line breaks survive.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style").Remove()

	lines := strings.Split(doc.Text(), "\n")
	out := lines[:0]
	for _, line := range lines {
		out = append(out, strings.Join(strings.Fields(line), " "))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
