package edgar

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// StripHTML reduces a filing document to plain text for the signal
// scanner. Script, style, and table markup are dropped; EDGAR financial
// tables are numbers the scanner never matches on, and they dominate the
// byte count of a 10-K.
func StripHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", eris.Wrap(err, "edgar: parse html")
	}

	doc.Find("script, style, noscript, table").Remove()

	text := doc.Text()
	return strings.Join(strings.Fields(text), " "), nil
}
