package constants

import (
	"strings"
)

// DocumentType is the kind of document an analysis produced.
type DocumentType string

const (
	DocumentTypeInvoice DocumentType = "invoice"
	DocumentTypeReceipt DocumentType = "receipt"
	DocumentTypeUnknown DocumentType = "unknown"
)

var allDocumentTypes = []DocumentType{
	DocumentTypeInvoice,
	DocumentTypeReceipt,
	DocumentTypeUnknown,
}

func DocumentTypesAsStrings() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// CanonicalizeDocumentType maps a caller-supplied hint onto a DocumentType.
// The second return value is false when the hint is empty or unrecognised.
func CanonicalizeDocumentType(input string) (DocumentType, bool) {
	if input == "" {
		return DocumentTypeUnknown, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]DocumentType{
		"bill":     DocumentTypeInvoice,
		"請求書":      DocumentTypeInvoice,
		"quote":    DocumentTypeInvoice,
		"見積書":      DocumentTypeInvoice,
		"領収書":      DocumentTypeReceipt,
		"レシート":     DocumentTypeReceipt,
		"document": DocumentTypeUnknown,
		"layout":   DocumentTypeUnknown,
	}

	if dt, ok := synonyms[normalized]; ok {
		return dt, true
	}

	for _, dt := range allDocumentTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}

	return DocumentTypeUnknown, false
}

// Filename tokens used when no explicit hint is given. Matching is case-insensitive.
var (
	InvoiceNameTokens = []string{"invoice", "請求"}
	ReceiptNameTokens = []string{"receipt", "領収"}
)
