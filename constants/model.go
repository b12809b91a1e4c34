package constants

// Vendor document model identifiers.
const (
	ModelInvoice = "prebuilt-invoice"
	ModelReceipt = "prebuilt-receipt"
	ModelLayout  = "prebuilt-layout"
)

// DefaultLocale is sent with every analyze request.
const DefaultLocale = "ja-JP"

// LayoutConfidence is reported for generic layout analyses, which carry no document confidence.
const LayoutConfidence = 0.5

// MinConfidence is the default gate used by ValidateConfidence.
const MinConfidence = 0.8
