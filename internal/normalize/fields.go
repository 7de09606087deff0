package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/omnidatabase/codex-cli/internal/model"
)

// cleanText collapses whitespace and lower-cases a value for scoring.
func cleanText(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

// ExtractFields projects a raw page into the normalized text buckets that
// keyword scoring operates on.
func ExtractFields(page *model.RawPage) model.Fields {
	lines := make([]string, 0, len(page.Sections))
	for _, s := range page.Sections {
		if s.Line != "" {
			lines = append(lines, s.Line)
		}
	}
	return model.Fields{
		Title:       cleanText(page.Title),
		Categories:  cleanText(strings.Join(page.Categories, " ")),
		LeadSummary: cleanText(page.Lead()),
		FullText:    cleanText(page.FullText),
		Sections:    cleanText(strings.Join(lines, " ")),
	}
}

// pageContext joins the raw (unnormalized) page text used for year extraction
// and timeline-era inference.
func pageContext(page *model.RawPage) string {
	return strings.Join([]string{
		page.Title,
		page.Lead(),
		page.FullText,
		strings.Join(page.Categories, " "),
	}, " ")
}

var yearRe = regexp.MustCompile(`\b(19\d{2}|20\d{2}|21\d{2}|22\d{2}|23\d{2})\b`)

// findYear returns the first plausible four-digit year in text, or 0.
func findYear(text string) int {
	m := yearRe.FindString(text)
	if m == "" {
		return 0
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return year
}

const maxSlugLen = 80

// Slugify derives a stable item id from a title: lower-cased, punctuation
// stripped, runs of whitespace and hyphens collapsed to single underscores,
// capped at 80 runes. An empty result yields "unknown".
func Slugify(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))

	var b strings.Builder
	b.Grow(len(value))
	lastSep := false
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastSep = false
		case unicode.IsSpace(r) || r == '-':
			if !lastSep && b.Len() > 0 {
				b.WriteRune('_')
			}
			lastSep = true
		}
	}
	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		return "unknown"
	}
	if runes := []rune(slug); len(runes) > maxSlugLen {
		slug = strings.Trim(string(runes[:maxSlugLen]), "_")
	}
	return slug
}

// loreFallbackLen caps the raw-text fallback when no sentence boundary is
// found in the source text.
const loreFallbackLen = 360

// firstSentences extracts up to maxSentences sentences from text, after
// collapsing whitespace. Sentence boundaries are a '.', '!' or '?' followed
// by whitespace. If no usable split is found, the first 360 runes are used.
func firstSentences(text string, maxSentences int) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes) && len(sentences) < maxSentences; i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			sentences = append(sentences, string(runes[start:i+1]))
			start = i + 2
		}
	}
	if len(sentences) < maxSentences && start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}

	out := strings.TrimSpace(strings.Join(sentences, " "))
	if out == "" {
		if len(runes) > loreFallbackLen {
			runes = runes[:loreFallbackLen]
		}
		return strings.TrimSpace(string(runes))
	}
	return out
}
