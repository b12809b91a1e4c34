package extract

import (
	"strings"

	"github.com/joseph-ayodele/docextract/internal/entity"
)

const (
	honorificCompany = "御中"
	unknownParty     = "不明"
	subjectLabel     = "件名"
)

var (
	vendorNamePaths   = Paths("vendorName", "VendorName")
	customerNamePaths = Paths("customerName", "CustomerName")
	recipientPaths    = Paths("VendorAddressRecipient")
	vendorPhonePaths  = Paths("vendorPhoneNumber", "vendorPhone")
	subjectPaths      = Paths("subject", "Subject")
)

// ResolveParties decides who issued the document and who received it.
// The 御中 honorific marks the addressee, so whichever name carries it is
// the customer regardless of which vendor field it arrived in.
func ResolveParties(fields map[string]any) entity.Parties {
	vendor := vendorNamePaths.String(fields)
	customer := customerNamePaths.String(fields)
	recipient := recipientPaths.String(fields)

	p := entity.Parties{
		VendorAddress: Paths("vendorAddress").String(fields),
		VendorPhone:   vendorPhonePaths.String(fields),
		Subject:       subjectPaths.String(fields),
	}
	switch {
	case strings.Contains(recipient, honorificCompany):
		p.CustomerName = recipient
		p.VendorName = firstNonEmpty(vendor, unknownParty)
	case strings.Contains(customer, honorificCompany):
		p.CustomerName = customer
		p.VendorName = firstNonEmpty(vendor, recipient, unknownParty)
	case strings.Contains(vendor, honorificCompany):
		p.CustomerName = vendor
		p.VendorName = firstNonEmpty(recipient, customer, unknownParty)
	default:
		p.VendorName = firstNonEmpty(vendor, recipient, unknownParty)
		p.CustomerName = firstNonEmpty(customer, unknownParty)
	}
	return p
}

// RepairSubject replaces a subject that was really picked up from the item
// table. When subject contains the first item's name, the line following a
// 件名 label on the pages is used instead. Otherwise subject is returned as is.
func RepairSubject(subject string, items []entity.LineItem, pages []entity.Page) string {
	if subject == "" || len(items) == 0 || items[0].ItemName == "" {
		return subject
	}
	if !strings.Contains(subject, items[0].ItemName) {
		return subject
	}
	for _, page := range pages {
		for i, line := range page.Lines {
			if !strings.Contains(line.Content, subjectLabel) || i+1 >= len(page.Lines) {
				continue
			}
			next := page.Lines[i+1].Content
			if next != "" && !strings.Contains(next, subjectLabel) {
				return strings.TrimSpace(next)
			}
		}
	}
	return subject
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
