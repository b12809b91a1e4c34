package entity

import "math"

// LineItem is one priced row of an invoice or receipt.
type LineItem struct {
	ItemName    string  `json:"itemName"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Amount      float64 `json:"amount"`
	TaxRate     float64 `json:"taxRate"`
	TaxAmount   float64 `json:"taxAmount"`
	Remarks     string  `json:"remarks,omitempty"`
}

// ApplyTax sets TaxRate and, unless already set, derives TaxAmount from Amount.
func (li *LineItem) ApplyTax(rate float64) {
	li.TaxRate = rate
	if li.TaxAmount == 0 {
		li.TaxAmount = math.Round(li.Amount * rate / 100)
	}
}
