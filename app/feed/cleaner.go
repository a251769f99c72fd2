package feed

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/width"
)

var hashtagRe = regexp.MustCompile(`#[^#]*#`)

type Cleaner struct{}

func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Run canonicalizes raw post text: strips embedded HTML, removes #...# topic
// markup, normalizes fullwidth ASCII forms and collapses whitespace.
func (c *Cleaner) Run(raw string) string {
	text := raw

	if strings.ContainsAny(text, "<>") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
		if err == nil {
			text = doc.Text()
		}
	}

	text = hashtagRe.ReplaceAllString(text, "")
	text = width.Narrow.String(text)

	return strings.Join(strings.Fields(text), " ")
}
