package money

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultSymbol is the won sign; prices in this shop are integer-denominated.
const DefaultSymbol = "₩"

// Format renders the amount rounded to whole units with the thousands
// grouping of the given locale, e.g. 1234567 -> "1,234,567" for ko or en.
func Format(a Amount, tag language.Tag) string {
	p := message.NewPrinter(tag)
	units := a.d.Round(0).BigInt()
	if units.IsInt64() {
		return p.Sprintf("%d", units.Int64())
	}
	return group(units.String(), separator(p))
}

// separator is the locale's thousands separator, taken from how it prints 1000.
func separator(p *message.Printer) string {
	s := []rune(p.Sprintf("%d", 1000))
	if len(s) <= 4 {
		return ""
	}
	return string(s[1 : len(s)-3])
}

// group inserts sep every three digits of a base-10 integer string.
func group(digits, sep string) string {
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(sep)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Label is Format prefixed with a currency symbol.
func Label(a Amount, tag language.Tag, symbol string) string {
	return symbol + Format(a, tag)
}

// Formatter binds a locale and symbol so callers do not thread them around.
type Formatter struct {
	Tag    language.Tag
	Symbol string
}

// NewFormatter parses a BCP 47 locale; an unparsable locale falls back to Korean.
func NewFormatter(locale, symbol string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Korean
	}
	if symbol == "" {
		symbol = DefaultSymbol
	}
	return Formatter{Tag: tag, Symbol: symbol}
}

func (f Formatter) Format(a Amount) string {
	return Format(a, f.Tag)
}

func (f Formatter) Label(a Amount) string {
	return Label(a, f.Tag, f.Symbol)
}
