// Package denoise cleans raw spine OCR output before matching. Spine
// photographs yield stray call-number fragments, decorative glyphs, and
// broken tokens that drag every similarity strategy down.
package denoise

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/spinecat/spinecat/internal/models"
)

var (
	// noiseChars are glyphs OCR invents from spine decoration and shelf
	// edges. Kept conservative: hyphens, ampersands, and apostrophes are
	// meaningful in titles and survive.
	noiseCharsRe = regexp.MustCompile(`[|_~^<>{}[\]\\/#@*=+]`)

	// callNumberRe matches Library of Congress style call number
	// fragments (PS3553 .O4558, QA76.73) that appear under spine labels.
	callNumberRe = regexp.MustCompile(`\b[A-Z]{1,3}\d{1,4}(\.[A-Z]?\d*)?\b`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Denoise cleans a raw spine reading and reports which steps fired along
// with a rough confidence in the cleaned text.
func Denoise(raw string) models.DenoisedText {
	out := models.DenoisedText{OriginalText: raw}
	text := raw

	if cleaned := noiseCharsRe.ReplaceAllString(text, " "); cleaned != text {
		text = cleaned
		out.Steps = append(out.Steps, "strip_noise_chars")
	}

	if cleaned := callNumberRe.ReplaceAllString(text, " "); cleaned != text {
		text = cleaned
		out.Steps = append(out.Steps, "strip_call_numbers")
	}

	if cleaned := dropJunkTokens(text); cleaned != text {
		text = cleaned
		out.Steps = append(out.Steps, "drop_junk_tokens")
	}

	collapsed := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if collapsed != text {
		out.Steps = append(out.Steps, "collapse_whitespace")
	}
	text = collapsed

	out.DenoisedText = text
	out.Confidence = confidence(raw, text)
	return out
}

// dropJunkTokens removes tokens that carry no bibliographic signal:
// isolated punctuation and tokens that are mostly symbols.
func dropJunkTokens(text string) string {
	fields := strings.Fields(text)
	kept := make([]string, 0, len(fields))
	for _, tok := range fields {
		if isJunkToken(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

func isJunkToken(tok string) bool {
	var alnum, total int
	for _, r := range tok {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if alnum == 0 {
		return true
	}
	// Tokens like ".,;'-a" are OCR debris.
	return total >= 3 && float64(alnum)/float64(total) < 0.5
}

// confidence estimates how trustworthy the cleaned text is: the fraction
// of meaningful characters that survived cleaning. Empty output is zero.
func confidence(raw, cleaned string) float64 {
	if cleaned == "" {
		return 0
	}
	rawSignal := signalLen(raw)
	if rawSignal == 0 {
		return 0
	}
	c := float64(signalLen(cleaned)) / float64(rawSignal)
	if c > 1 {
		c = 1
	}
	return c
}

func signalLen(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
