package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnumRe   = regexp.MustCompile(`[^A-Z0-9 ]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// asciiFold maps typographic punctuation OCR engines commonly emit onto
// ASCII equivalents before the alphanumeric filter runs.
var asciiFold = strings.NewReplacer(
	"&", " AND ",
	"’", "'",
	"‘", "'",
	"–", "-",
	"—", "-",
)

// Normalize canonicalizes raw spine or catalog text for comparison:
// upper-case, accents stripped via NFKD decomposition, "&" spelled out,
// everything outside [A-Z0-9 ] removed, whitespace collapsed.
// Normalize is idempotent and never fails; empty input yields "".
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := norm.NFKD.String(strings.ToUpper(text))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	s = asciiFold.Replace(b.String())
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// Tokens splits normalized text on whitespace and drops single-character
// tokens, which carry no signal in spine OCR.
func Tokens(normalized string) []string {
	fields := strings.Fields(normalized)
	tokens := fields[:0]
	for _, t := range fields {
		if len(t) > 1 {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// confusionTable holds character pairs OCR engines routinely swap on
// narrow spine type. Order is fixed so variant generation is deterministic.
var confusionTable = []struct {
	from string
	to   []string
}{
	{"I", []string{"L", "1"}},
	{"L", []string{"I", "1"}},
	{"1", []string{"I", "L"}},
	{"0", []string{"O"}},
	{"O", []string{"0"}},
	{"5", []string{"S"}},
	{"S", []string{"5"}},
	{"8", []string{"B"}},
	{"B", []string{"8"}},
	{"6", []string{"G"}},
	{"G", []string{"6"}},
	{"Z", []string{"2"}},
	{"2", []string{"Z"}},
}

// ConfusionVariants generates alternate readings of text under the OCR
// confusion table. The input is always first; each variant substitutes all
// occurrences of a single confusable character. Substitutions are never
// combined across characters, which keeps the variant count linear.
func ConfusionVariants(text string) []string {
	variants := []string{text}
	seen := map[string]struct{}{text: {}}

	for _, c := range confusionTable {
		if !strings.Contains(text, c.from) {
			continue
		}
		for _, repl := range c.to {
			v := strings.ReplaceAll(text, c.from, repl)
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			variants = append(variants, v)
		}
	}

	return variants
}
