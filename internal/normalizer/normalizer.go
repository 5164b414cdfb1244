// Package normalizer cleans individual report cells: it strips inline markup
// and splits "value(annotation)" strings into a magnitude and a note.
package normalizer

import (
	"strings"

	"GridSentinel/internal/model"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

// SplitValueAndNote separates "123(45%)" into ("123", "45").
// Without a "(" and a ")" the whole text is the value and the note is empty.
func SplitValueAndNote(text string) (value, note string) {
	value = text
	start := strings.Index(text, "(")
	end := strings.Index(text, ")")
	if start >= 0 && end >= 0 {
		if end > start {
			note = text[start+1 : end]
		}
		value = text[:start]
	}
	if strings.Contains(note, "%") {
		note = strings.ReplaceAll(note, "%", "")
	}
	return strings.TrimSpace(value), strings.TrimSpace(note)
}

// StripMarkup returns the visible text of an HTML fragment. Each text node is
// trimmed before the nodes are joined.
func StripMarkup(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF once the fragment is consumed.
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.WriteString(strings.TrimSpace(string(z.Text())))
		}
	}
}

// ParseMagnitude converts a value cell to an exact decimal. Text that does
// not start with a digit ("-", "N/A", "") is zero. Thousands separators are
// dropped; anything else that fails to parse is also zero.
func ParseMagnitude(text string) decimal.Decimal {
	text = strings.TrimSpace(text)
	if text == "" || text[0] < '0' || text[0] > '9' {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(text, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatMagnitude renders d with the scale it was parsed with, so "985.0"
// stays "985.0" instead of collapsing to "985".
func FormatMagnitude(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// Annotate normalizes a capacity or generation cell.
func Annotate(text string) model.AnnotatedValue {
	value, note := SplitValueAndNote(text)
	return model.AnnotatedValue{
		Magnitude:  ParseMagnitude(value),
		Annotation: note,
	}
}
