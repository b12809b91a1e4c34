package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// merchantTopLines is how many lines from the top of the first page are considered.
const merchantTopLines = 3

// expansionMaxRunes caps the length of a line returned by the containment fallback.
const expansionMaxRunes = 20

var (
	reDigitsOnly     = regexp.MustCompile(`^\d+$`)
	reDateTimeLike   = regexp.MustCompile(`^[\d\-\s:：]+$`)
	reLabelPrefix    = regexp.MustCompile(`(?i)^(時間|日付|tel|phone|fax|email|営業|住所|address|〒|zip)`)
	reFourDigits     = regexp.MustCompile(`[0-9]{4}`)
	reLongASCII      = regexp.MustCompile(`[a-zA-Z]{5,}`)
	reProsePunct     = regexp.MustCompile(`[，。、！？]`)
	reBoilerplate    = regexp.MustCompile(`(?i)^(url|http|www|店舗|領収書|レシート|receipt|ありがとう|thank|合計|total|税込|税抜)`)
	reUpperOnly      = regexp.MustCompile(`^[A-Z]{2,}$`)
	reRegistrationID = regexp.MustCompile(`^T[0-9]+|^n[0-9]+|^#`)
	reParkingTerms   = regexp.MustCompile(`出庫|入庫|駐車|時刻|分|料金|円|￥|税`)
	reManagementNo   = regexp.MustCompile(`登録|番号|精算|発券|No\.`)
)

// companyPatterns match a whole line that looks like a company or brand name.
var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(株式会社[^\s\d]{2,10})$`),
	regexp.MustCompile(`^([^\s\d]{2,10}株式会社)$`),
	regexp.MustCompile(`^(有限会社[^\s\d]{2,10})$`),
	regexp.MustCompile(`^([^\s\d]{2,10}有限会社)$`),
	regexp.MustCompile(`^([^\s]{2,8}(?:24|２４))$`),
}

// RecoverMerchantName looks for a fuller version of the vendor's merchant
// guess among the top lines of the first page. It never invents a name:
// when nothing convincing turns up the original is returned unchanged.
func RecoverMerchantName(lines []string, original string) string {
	original = strings.TrimSpace(original)
	if len(lines) > merchantTopLines {
		lines = lines[:merchantTopLines]
	}

	patterns := companyPatterns
	if original != "" {
		q := regexp.QuoteMeta(original)
		patterns = append(patterns[:len(patterns):len(patterns)],
			regexp.MustCompile(`^(`+q+`[^\s]{0,10})$`),
			regexp.MustCompile(`^([^\s]{0,10}`+q+`[^\s]{0,10})$`),
		)
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if rejectMerchantLine(line) {
			continue
		}
		for _, re := range patterns {
			m := re.FindStringSubmatch(line)
			if len(m) < 2 || m[1] == "" {
				continue
			}
			candidate := strings.TrimSpace(m[1])
			if IsValidCompanyName(candidate, original) {
				return candidate
			}
		}
	}

	if original != "" {
		origLen := utf8.RuneCountInString(original)
		for _, raw := range lines {
			line := strings.TrimSpace(raw)
			n := utf8.RuneCountInString(line)
			if strings.Contains(line, original) && n > origLen && n <= expansionMaxRunes && IsValidCompanyName(line, original) {
				return line
			}
		}
	}
	return original
}

func rejectMerchantLine(line string) bool {
	n := utf8.RuneCountInString(line)
	return line == "" ||
		n < 2 || n > 30 ||
		reDigitsOnly.MatchString(line) ||
		reDateTimeLike.MatchString(line) ||
		reLabelPrefix.MatchString(line) ||
		reFourDigits.MatchString(line) ||
		reLongASCII.MatchString(line) ||
		reProsePunct.MatchString(line)
}

// IsValidCompanyName rejects candidates that look like labels, codes, amounts
// or receipt boilerplate. When original is longer than two runes the candidate
// must also contain it.
func IsValidCompanyName(candidate, original string) bool {
	n := utf8.RuneCountInString(candidate)
	if candidate == "" || n < 2 || n > 30 {
		return false
	}
	for _, re := range []*regexp.Regexp{
		reLabelPrefix,
		reBoilerplate,
		reDateTimeLike,
		reFourDigits,
		reLongASCII,
		reProsePunct,
		reDigitsOnly,
		reUpperOnly,
		reRegistrationID,
		reParkingTerms,
		reManagementNo,
	} {
		if re.MatchString(candidate) {
			return false
		}
	}
	if original != "" && utf8.RuneCountInString(original) > 2 && !strings.Contains(candidate, original) {
		return false
	}
	return true
}
