package extract

import (
	"regexp"
	"strings"
)

// AdditionalFields are values mined from the layout text when the vendor
// model did not return them as fields.
type AdditionalFields struct {
	Subject           string
	DeliveryLocation  string
	PaymentTerms      string
	QuotationValidity string
	Address           string
	Phone             string
	Email             string
}

var (
	subjectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`件\s*名[：:]\s*([^\n\r]+)`),
	}
	deliveryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`納入場所[：:]\s*([^\n\r]+)`),
	}
	paymentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:お)?支払(?:条件)?[：:]\s*([^\n\r]+)`),
		regexp.MustCompile(`(\d+日締)`),
	}
	validityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`見積有効期限[：:]\s*([^\n\r]+)`),
		regexp.MustCompile(`(\d+ヶ月)`),
	}
	// A second group, when present, is the street address following a postal code.
	addressPatterns = []*regexp.Regexp{
		regexp.MustCompile(`住所[：:]\s*([^\n\r]+)`),
		regexp.MustCompile(`〒\s*(\d{3}-\d{4})\s*([^\n\r]+)`),
		regexp.MustCompile(`〒\s*(\d{7})\s*([^\n\r]+)`),
		regexp.MustCompile(`([^\n\r]*[都道府県][^\n\r]*[市区町村][^\n\r]*)`),
		regexp.MustCompile(`([^\n\r]*[区市町村][^\n\r]*[番地丁目][^\n\r]*)`),
		regexp.MustCompile(`([^\n\r]*[市区町村][^\n\r]*[0-9-]+[^\n\r]*)`),
		regexp.MustCompile(`([^\n\r]*[都道府県][^\n\r]*[0-9-]+[^\n\r]*)`),
	}
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:電話|TEL|Tel|tel)[：:\s]*([0-9-]+)`),
		regexp.MustCompile(`(?:携帯|mobile|Mobile)[：:\s]*([0-9-]+)`),
		regexp.MustCompile(`(?:FAX|Fax|fax)[：:\s]*([0-9-]+)`),
		regexp.MustCompile(`(\d{2,4}-\d{2,4}-\d{4})`),
		regexp.MustCompile(`(\d{10,11})`),
	}
	emailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
	}
)

// MineAdditionalFields scans layout content with the ordered pattern lists.
// Each field takes the first pattern that matches.
func MineAdditionalFields(content string) AdditionalFields {
	content = Normalize(content)
	if content == "" {
		return AdditionalFields{}
	}
	return AdditionalFields{
		Subject:           firstMatch(content, subjectPatterns),
		DeliveryLocation:  firstMatch(content, deliveryPatterns),
		PaymentTerms:      firstMatch(content, paymentPatterns),
		QuotationValidity: firstMatch(content, validityPatterns),
		Address:           firstAddress(content),
		Phone:             firstMatch(content, phonePatterns),
		Email:             firstMatch(content, emailPatterns),
	}
}

func firstMatch(content string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(content); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func firstAddress(content string) string {
	for _, re := range addressPatterns {
		m := re.FindStringSubmatch(content)
		if len(m) < 2 {
			continue
		}
		if len(m) > 2 && m[2] != "" {
			return strings.TrimSpace("〒" + m[1] + " " + m[2])
		}
		return strings.TrimSpace(m[1])
	}
	return ""
}
