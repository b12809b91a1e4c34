package entity

import (
	"github.com/joseph-ayodele/docextract/constants"
)

// AnalysisResult is the normalized outcome of analyzing one file.
// Fields holds the vendor-derived key/value map; "items" inside it is the
// declared vendor item list as returned, while Items is the reconciled list.
type AnalysisResult struct {
	DocumentType constants.DocumentType `json:"documentType"`
	Confidence   float64                `json:"confidence"`
	Fields       map[string]any         `json:"fields"`
	Items        []LineItem             `json:"items"`
	Tables       []Table                `json:"tables,omitempty"`
	Pages        []Page                 `json:"pages,omitempty"`
	Raw          any                    `json:"rawResult,omitempty"`
}

// Field returns Fields[key] or nil.
func (r *AnalysisResult) Field(key string) any {
	if r == nil || r.Fields == nil {
		return nil
	}
	return r.Fields[key]
}

// StringField returns Fields[key] when it holds a non-empty string.
func (r *AnalysisResult) StringField(key string) string {
	if s, ok := r.Field(key).(string); ok {
		return s
	}
	return ""
}

// SetIfEmpty stores v under key only when the current value is absent or an empty string.
func (r *AnalysisResult) SetIfEmpty(key string, v string) {
	if v == "" {
		return
	}
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	if r.StringField(key) != "" {
		return
	}
	r.Fields[key] = v
}

// Parties is the vendor/customer split derived from honorific markers.
type Parties struct {
	VendorName    string `json:"vendorName"`
	VendorAddress string `json:"vendorAddress,omitempty"`
	VendorPhone   string `json:"vendorPhone,omitempty"`
	CustomerName  string `json:"customerName"`
	Subject       string `json:"subject,omitempty"`
}
