package analysis

import (
	"github.com/joseph-ayodele/docextract/internal/docintel"
)

// standardFields are mapped explicitly and kept out of customFields.
var standardFields = map[string]struct{}{
	"InvoiceId": {}, "InvoiceDate": {}, "DueDate": {}, "VendorName": {}, "VendorAddress": {},
	"CustomerName": {}, "CustomerAddress": {}, "TotalAmount": {}, "SubTotal": {}, "TotalTax": {},
	"Items": {}, "MerchantName": {}, "MerchantAddress": {}, "TransactionDate": {}, "Total": {},
	"Subtotal": {}, "Tax": {}, "Tip": {},
}

func invoiceFields(f map[string]*docintel.Field) map[string]any {
	m := map[string]any{}
	putText(m, "invoiceId", f["InvoiceId"])
	putText(m, "invoiceDate", f["InvoiceDate"])
	putText(m, "dueDate", f["DueDate"])
	putText(m, "vendorName", f["VendorName"])
	putText(m, "vendorAddress", f["VendorAddress"])
	putText(m, "vendorTaxId", f["VendorTaxId"])
	putText(m, "VendorAddressRecipient", f["VendorAddressRecipient"])
	putText(m, "RemittanceAddressRecipient", f["RemittanceAddressRecipient"])
	putText(m, "customerName", f["CustomerName"])
	putText(m, "customerAddress", f["CustomerAddress"])
	putText(m, "customerTaxId", f["CustomerTaxId"])
	putText(m, "purchaseOrder", f["PurchaseOrder"])
	putValue(m, "totalAmount", f["TotalAmount"], f["InvoiceTotal"])
	putValue(m, "subTotal", f["SubTotal"])
	putValue(m, "totalTax", f["TotalTax"])
	if v := f["InvoiceTotal"].ContentOrValue(); truthy(v) {
		m["InvoiceTotal"] = v
	}
	putValue(m, "amountDue", f["AmountDue"])
	putValue(m, "previousUnpaidBalance", f["PreviousUnpaidBalance"])
	putText(m, "billingAddress", f["BillingAddress"])
	putText(m, "shippingAddress", f["ShippingAddress"])
	putText(m, "paymentTerm", f["PaymentTerm"])
	putText(m, "subject", f["Subject"], f["件名"])
	putText(m, "deliveryLocation", f["DeliveryLocation"], f["納入場所"])
	putText(m, "paymentTerms", f["PaymentTerms"], f["お支払条件"], f["PaymentTerm"])
	putText(m, "quotationValidity", f["QuotationValidity"], f["見積有効期限"])
	m["customFields"] = customFields(f)
	m["items"] = declaredItems(f["Items"])
	return m
}

func receiptFields(f map[string]*docintel.Field, merchantName string) map[string]any {
	m := map[string]any{}
	if merchantName != "" {
		m["merchantName"] = merchantName
	}
	putText(m, "merchantAddress", f["MerchantAddress"])
	putText(m, "merchantPhoneNumber", f["MerchantPhoneNumber"])
	putText(m, "transactionDate", f["TransactionDate"])
	putText(m, "transactionTime", f["TransactionTime"])
	putValue(m, "total", f["Total"])
	putValue(m, "subtotal", f["Subtotal"])
	putValue(m, "tax", f["TotalTax"])
	putValue(m, "tip", f["Tip"])
	putText(m, "receiptNumber", f["ReceiptNumber"])
	putText(m, "cashier", f["Cashier"])
	putText(m, "paymentMethod", f["PaymentMethod"])
	m["customFields"] = customFields(f)
	m["items"] = declaredItems(f["Items"])
	return m
}

// customFields keeps every non-standard field as content, or value when
// there is no content. InvoiceTotal is always kept.
func customFields(f map[string]*docintel.Field) map[string]any {
	out := map[string]any{}
	for k, v := range f {
		if _, std := standardFields[k]; std {
			continue
		}
		if cv := v.ContentOrValue(); truthy(cv) {
			out[k] = cv
		}
	}
	if v := f["InvoiceTotal"].ContentOrValue(); truthy(v) {
		out["InvoiceTotal"] = v
	}
	return out
}

// declaredItems flattens the vendor's Items array into untyped entries,
// each a map of sub-field name to {"type","content","value","confidence"}.
func declaredItems(items *docintel.Field) []any {
	out := []any{}
	for _, el := range items.Array() {
		if obj := el.Object(); obj != nil {
			entry := make(map[string]any, len(obj))
			for k, sub := range obj {
				entry[k] = sub.Plain()
			}
			out = append(out, entry)
			continue
		}
		if el != nil && el.Content != "" {
			out = append(out, el.Plain())
		}
	}
	return out
}

func putText(m map[string]any, key string, candidates ...*docintel.Field) {
	for _, f := range candidates {
		if s := f.Text(); s != "" {
			m[key] = s
			return
		}
	}
}

func putValue(m map[string]any, key string, candidates ...*docintel.Field) {
	for _, f := range candidates {
		if f != nil && truthy(f.Value) {
			m[key] = f.Value
			return
		}
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	}
	return true
}

func paragraphs(r *docintel.AnalyzeResult) []any {
	out := make([]any, 0, len(r.Paragraphs))
	for _, p := range r.Paragraphs {
		m := map[string]any{"content": p.Content}
		if p.Role != "" {
			m["role"] = p.Role
		}
		out = append(out, m)
	}
	return out
}

func styles(r *docintel.AnalyzeResult) []any {
	out := make([]any, 0, len(r.Styles))
	for _, s := range r.Styles {
		out = append(out, map[string]any{"isHandwritten": s.IsHandwritten, "confidence": s.Confidence})
	}
	return out
}
