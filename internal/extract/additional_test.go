package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/docextract/internal/entity"
)

func TestMineAdditionalFields(t *testing.T) {
	content := "御見積書\r\n" +
		"件名：会社案内パンフレット印刷\r\n" +
		"納入場所: 弊社倉庫\r\n" +
		"お支払条件：月末締め翌月末払い\r\n" +
		"見積有効期限：3ヶ月\r\n" +
		"〒810-0001 福岡県福岡市中央区天神1-1-1\r\n" +
		"TEL 092-123-4567\t FAX 092-123-4568\r\n" +
		"info@example.co.jp\r\n"

	got := MineAdditionalFields(content)
	assert.Equal(t, AdditionalFields{
		Subject:           "会社案内パンフレット印刷",
		DeliveryLocation:  "弊社倉庫",
		PaymentTerms:      "月末締め翌月末払い",
		QuotationValidity: "3ヶ月",
		Address:           "〒810-0001 福岡県福岡市中央区天神1-1-1",
		Phone:             "092-123-4567",
		Email:             "info@example.co.jp",
	}, got)
}

func TestMineAdditionalFields_Fallbacks(t *testing.T) {
	got := MineAdditionalFields("東京都港区芝公園4丁目\n20日締 翌月払い\n有効期間 1ヶ月\n0312345678")
	assert.Equal(t, "東京都港区芝公園4丁目", got.Address)
	assert.Equal(t, "20日締", got.PaymentTerms)
	assert.Equal(t, "1ヶ月", got.QuotationValidity)
	assert.Equal(t, "0312345678", got.Phone)
	assert.Empty(t, got.Subject)
	assert.Empty(t, got.Email)
}

func TestMineAdditionalFields_Empty(t *testing.T) {
	assert.Equal(t, AdditionalFields{}, MineAdditionalFields(""))
}

func TestNormalize(t *testing.T) {
	in := "a\t\tb   c\r\n\r\n\r\n\r\n-----\nd  "
	assert.Equal(t, "a b c\n\nd", Normalize(in))
}

func TestResolveParties(t *testing.T) {
	tests := []struct {
		name         string
		fields       map[string]any
		wantVendor   string
		wantCustomer string
	}{
		{
			name:         "recipient carries honorific",
			fields:       map[string]any{"vendorName": "山田印刷", "VendorAddressRecipient": "株式会社ABC 御中"},
			wantVendor:   "山田印刷",
			wantCustomer: "株式会社ABC 御中",
		},
		{
			name:         "customer carries honorific",
			fields:       map[string]any{"customerName": "ABC御中", "VendorAddressRecipient": "山田印刷"},
			wantVendor:   "山田印刷",
			wantCustomer: "ABC御中",
		},
		{
			name:         "vendor and customer swapped",
			fields:       map[string]any{"vendorName": "ABC御中", "customerName": "山田印刷"},
			wantVendor:   "山田印刷",
			wantCustomer: "ABC御中",
		},
		{
			name:         "no honorific",
			fields:       map[string]any{"vendorName": "山田印刷"},
			wantVendor:   "山田印刷",
			wantCustomer: "不明",
		},
		{
			name:         "nothing at all",
			fields:       map[string]any{},
			wantVendor:   "不明",
			wantCustomer: "不明",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ResolveParties(tt.fields)
			assert.Equal(t, tt.wantVendor, p.VendorName)
			assert.Equal(t, tt.wantCustomer, p.CustomerName)
		})
	}
}

func TestResolveParties_CarriesContactFields(t *testing.T) {
	p := ResolveParties(map[string]any{
		"vendorName":        "山田印刷",
		"vendorAddress":     "福岡市中央区",
		"vendorPhoneNumber": "092-000-0000",
		"subject":           "チラシ印刷",
	})
	assert.Equal(t, "福岡市中央区", p.VendorAddress)
	assert.Equal(t, "092-000-0000", p.VendorPhone)
	assert.Equal(t, "チラシ印刷", p.Subject)
}

func TestRepairSubject(t *testing.T) {
	items := []entity.LineItem{{ItemName: "A4チラシ"}}
	pages := []entity.Page{page("御見積書", "件名", "新店舗オープン販促物", "A4チラシ 30,000円")}

	assert.Equal(t, "新店舗オープン販促物", RepairSubject("A4チラシ 1000部", items, pages))
	assert.Equal(t, "販促物一式", RepairSubject("販促物一式", items, pages))
	assert.Equal(t, "", RepairSubject("", items, pages))
	assert.Equal(t, "A4チラシ", RepairSubject("A4チラシ", items, []entity.Page{page("件名")}))
}

func TestEstimateConfidence(t *testing.T) {
	assert.InDelta(t, 0.2, EstimateConfidence(""), 1e-9)
	assert.InDelta(t, 0.7, EstimateConfidence("2024年1月15日 合計 1,100円"), 1e-9)
}
