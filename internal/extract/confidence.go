package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reDate   = regexp.MustCompile(`(?:20\d{2}|令和\s*\d{1,2})\s*[年/.\-]\s*\d{1,2}\s*[月/.\-]\s*\d{1,2}`)
	reCurr   = regexp.MustCompile(`[¥￥円]|\bjpy\b`)
	reAmount = regexp.MustCompile(`\d{1,3}(?:,\d{3})+|\d+\s*円`)
)

// EstimateConfidence scores OCR text that came without a vendor confidence.
// Receipts and invoices nearly always carry a date, a currency marker and
// amounts; each adds to a low base score.
func EstimateConfidence(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.2
	if reDate.MatchString(lower) {
		score += 0.2
	}
	if reCurr.MatchString(lower) {
		score += 0.15
	}
	if reAmount.MatchString(lower) {
		score += 0.15
	}
	if utf8.RuneCountInString(text) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
