package extract

import (
	"regexp"
)

// Role says what a free-text pattern extracts.
type Role string

const (
	RoleProductName Role = "product_name"
	RoleQuantity    Role = "quantity"
	RoleUnitPrice   Role = "unit_price"
	RoleLineAmount  Role = "line_amount"
)

// Pattern is one entry of the declarative regex table. Patterns of the same
// role are tried in table order.
type Pattern struct {
	Role Role
	Re   *regexp.Regexp
}

// PatternTable is an ordered list of patterns.
type PatternTable []Pattern

// ByRole returns the regexps registered for role, in order.
func (t PatternTable) ByRole(role Role) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, p := range t {
		if p.Role == role {
			out = append(out, p.Re)
		}
	}
	return out
}

const countUnits = `(?:枚|個|本|台|セット|部|冊)`

// DefaultPatterns is the built-in table used when Config.Patterns is nil.
func DefaultPatterns() PatternTable {
	return PatternTable{
		// bracketed product name followed by its detail run
		{RoleProductName, regexp.MustCompile(`【([^】]+)】[^【]*(?:用紙[:：])?([^\n\r,，、。]+)`)},
		{RoleProductName, regexp.MustCompile(`商品名[:：\s]*([^\n\r,，、。]+)`)},
		{RoleProductName, regexp.MustCompile(`品名[:：\s]*([^\n\r,，、。]+)`)},
		{RoleProductName, regexp.MustCompile(`用紙[:：\s]*([^\n\r,，、。]+)`)},
		{RoleProductName, regexp.MustCompile(`印刷[^\n\r,，、。]*(?:窓|セロ|特白)[^\n\r,，、。]*`)},
		{RoleProductName, regexp.MustCompile(`【既製品印刷加工】[^【\n\r]*`)},

		{RoleQuantity, regexp.MustCompile(`(\d{1,3}(?:,\d{3})*)\s*` + countUnits)},

		{RoleUnitPrice, regexp.MustCompile(`単価[:：\s]*[¥￥]?\s*(\d+(?:\.\d+)?)`)},
		{RoleUnitPrice, regexp.MustCompile(`@\s*[¥￥]?\s*(\d+(?:\.\d+)?)`)},
		{RoleUnitPrice, regexp.MustCompile(`[¥￥]\s*(\d+(?:\.\d+)?)\s*[／/]\s*` + countUnits)},

		{RoleLineAmount, regexp.MustCompile(`([\d,]+)\s*円|[¥￥]\s*([\d,]+)|([\d,]+)\s*$`)},
	}
}

// Header tokens that mark a table or page line as a column heading.
var headerTokens = []string{"品名", "商品名", "品目", "項目", "数量", "単価", "金額", "備考", "内容"}

// Vendor field names probed for declared items and document totals.
var (
	itemNamePaths = Paths(
		"description", "name", "itemName", "productName",
		"Description", "Name", "ItemName", "ProductName",
	)
	itemQuantityPaths  = Paths("quantity", "Quantity", "qty", "Qty")
	itemUnitPricePaths = Paths("unitPrice", "UnitPrice", "price", "Price")
	itemAmountPaths    = Paths("amount", "Amount", "totalPrice", "TotalPrice", "total", "Total")

	documentTotalPaths = Paths(
		"InvoiceTotal", "totalAmount", "total", "Total", "TotalAmount", "Amount",
		"customFields.InvoiceTotal",
	)
	documentTaxPaths = Paths(
		"taxAmount", "tax", "Tax", "TotalTax", "totalTax",
		"customFields.Tax",
	)
)
