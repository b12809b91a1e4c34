package analysis

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/docintel"
	"github.com/joseph-ayodele/docextract/internal/entity"
)

func cell(r, c int, content string) docintel.Cell {
	return docintel.Cell{RowIndex: r, ColumnIndex: c, Content: content}
}

func lines(texts ...string) []docintel.Line {
	out := make([]docintel.Line, 0, len(texts))
	for _, t := range texts {
		out = append(out, docintel.Line{Content: t})
	}
	return out
}

func invoiceResults() map[string]*docintel.AnalyzeResult {
	layoutLines := []string{
		"御請求書",
		"件名",
		"A4チラシ印刷一式",
		"A4チラシ 10,000円",
		"〒810-0001 福岡県福岡市中央区天神1-1-1",
		"TEL 092-123-4567",
		"info@example.co.jp",
	}
	content := ""
	for i, l := range layoutLines {
		if i > 0 {
			content += "\n"
		}
		content += l
	}
	return map[string]*docintel.AnalyzeResult{
		constants.ModelInvoice: {
			ModelID: constants.ModelInvoice,
			Tables: []docintel.Table{{
				RowCount: 2, ColumnCount: 4,
				Cells: []docintel.Cell{
					cell(0, 0, "品目"), cell(0, 1, "数量"), cell(0, 2, "単価"), cell(0, 3, "金額"),
					cell(1, 0, "A4チラシ"), cell(1, 1, "2"), cell(1, 2, "5,000"), cell(1, 3, "10,000"),
				},
			}},
			Documents: []docintel.Document{{
				DocType:    "invoice",
				Confidence: 0.91,
				Fields: map[string]*docintel.Field{
					"VendorName":   {Content: "山田印刷"},
					"CustomerName": {Content: "株式会社ABC 御中"},
					"InvoiceTotal": {Content: "¥11,000", Value: 11000.0},
					"SubTotal":     {Content: "10,000", Value: 10000.0},
					"TotalTax":     {Content: "1,000", Value: 1000.0},
					"Subject":      {Content: "A4チラシ"},
					"StoreNote":    {Content: "特記事項なし"},
					"Items": {Value: []*docintel.Field{{Value: map[string]*docintel.Field{
						"Description": {Content: "A4チラシ", Value: "A4チラシ"},
						"Amount":      {Content: "10,000", Value: 10000.0},
					}}}},
				},
			}},
			Raw: map[string]any{"modelId": constants.ModelInvoice},
		},
		constants.ModelLayout: {
			ModelID: constants.ModelLayout,
			Content: content,
			Pages:   []docintel.Page{{PageNumber: 1, Lines: lines(layoutLines...)}},
		},
	}
}

func TestNew_RequiresConfiguration(t *testing.T) {
	_, err := New(nil, testConfig())
	assert.ErrorIs(t, err, common.ErrConfiguration)

	cfg := testConfig()
	cfg.Endpoint = ""
	_, err = New(&fakeAnalyzer{}, cfg)
	assert.ErrorIs(t, err, common.ErrConfiguration)

	cfg = testConfig()
	cfg.APIKey = "  "
	_, err = New(&fakeAnalyzer{}, cfg)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestConfigFrom(t *testing.T) {
	c := &common.Config{}
	c.Vendor.Endpoint = "https://x.test"
	c.Vendor.APIKey = "k"
	c.Retry.MaxAttempts = 4
	c.Batch.MaxConcurrent = 7
	c.Extract.AmountMin = 5000
	c.Extract.TaxRate = 8
	c.Extract.MinConfidence = 0.7

	cfg := ConfigFrom(c)
	assert.Equal(t, "https://x.test", cfg.Endpoint)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.Equal(t, 7, cfg.MaxConcurrent)
	assert.Equal(t, 5000.0, cfg.Extract.Thresholds.AmountMin)
	require.NotNil(t, cfg.Extract.Thresholds.TaxRate)
	assert.Equal(t, 8.0, *cfg.Extract.Thresholds.TaxRate)
	assert.Equal(t, 0.7, cfg.MinConfidence)
}

func TestDocumentKind(t *testing.T) {
	tests := []struct {
		file, hint string
		want       constants.DocumentType
	}{
		{"scan.pdf", "invoice", constants.DocumentTypeInvoice},
		{"scan.pdf", "receipt", constants.DocumentTypeReceipt},
		{"scan.pdf", "領収書", constants.DocumentTypeReceipt},
		{"Invoice_2024.PDF", "", constants.DocumentTypeInvoice},
		{"請求書_3月.pdf", "", constants.DocumentTypeInvoice},
		{"RECEIPT-01.jpg", "", constants.DocumentTypeReceipt},
		{"領収書.png", "", constants.DocumentTypeReceipt},
		{"invoice.pdf", "document", constants.DocumentTypeInvoice},
		{"scan.pdf", "", constants.DocumentTypeUnknown},
		{"scan.pdf", "nonsense", constants.DocumentTypeUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DocumentKind(tt.file, tt.hint), "%s/%s", tt.file, tt.hint)
	}
}

func TestAnalyze_DispatchesByKind(t *testing.T) {
	tests := []struct {
		file, hint string
		firstModel string
	}{
		{"a.pdf", "invoice", constants.ModelInvoice},
		{"a_receipt.jpg", "", constants.ModelReceipt},
		{"a.pdf", "", constants.ModelLayout},
	}
	for _, tt := range tests {
		t.Run(tt.file+"/"+tt.hint, func(t *testing.T) {
			fa := &fakeAnalyzer{fn: byModel(nil)}
			o, err := New(fa, testConfig())
			require.NoError(t, err)
			_, _ = o.Analyze(context.Background(), []byte("x"), tt.file, tt.hint)
			require.NotEmpty(t, fa.Calls())
			assert.Equal(t, tt.firstModel, fa.Calls()[0])
		})
	}
}

func TestAnalyzeInvoice(t *testing.T) {
	fa := &fakeAnalyzer{fn: byModel(invoiceResults())}
	m := NewMetrics(prometheus.NewRegistry())
	o, err := New(fa, testConfig(), WithMetrics(m))
	require.NoError(t, err)

	res, err := o.AnalyzeInvoice(context.Background(), []byte("pdf"), "請求書.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{constants.ModelInvoice, constants.ModelLayout}, fa.Calls())

	assert.Equal(t, constants.DocumentTypeInvoice, res.DocumentType)
	assert.InDelta(t, 0.91, res.Confidence, 1e-9)

	require.Len(t, res.Items, 1)
	item := res.Items[0]
	assert.Equal(t, "A4チラシ", item.ItemName)
	assert.Equal(t, 2.0, item.Quantity)
	assert.Equal(t, 5000.0, item.UnitPrice)
	assert.Equal(t, 10000.0, item.Amount)
	assert.Equal(t, 10.0, item.TaxRate)
	assert.Equal(t, 1000.0, item.TaxAmount)

	assert.Equal(t, "山田印刷", res.Fields["vendorName"])
	assert.Equal(t, 11000.0, res.Fields["totalAmount"])
	assert.Equal(t, "¥11,000", res.Fields["InvoiceTotal"])
	assert.Equal(t, 10000.0, res.Fields["subTotal"])
	assert.Equal(t, 1000.0, res.Fields["totalTax"])
	// the subject was the item name; the line after the 件名 label replaces it
	assert.Equal(t, "A4チラシ印刷一式", res.Fields["subject"])
	assert.Equal(t, "〒810-0001 福岡県福岡市中央区天神1-1-1", res.Fields["vendorAddress"])
	assert.Equal(t, "092-123-4567", res.Fields["vendorPhoneNumber"])
	assert.Equal(t, "info@example.co.jp", res.Fields["vendorEmail"])

	custom := res.Fields["customFields"].(map[string]any)
	assert.Equal(t, "特記事項なし", custom["StoreNote"])
	assert.Equal(t, "¥11,000", custom["InvoiceTotal"])
	assert.NotContains(t, custom, "VendorName")

	declared := res.Fields["items"].([]any)
	require.Len(t, declared, 1)
	desc := declared[0].(map[string]any)["Description"].(map[string]any)
	assert.Equal(t, "A4チラシ", desc["content"])

	parties := res.Fields["parties"].(entity.Parties)
	assert.Equal(t, "山田印刷", parties.VendorName)
	assert.Equal(t, "株式会社ABC 御中", parties.CustomerName)
	assert.Equal(t, "092-123-4567", parties.VendorPhone)
	assert.Equal(t, "A4チラシ印刷一式", parties.Subject)

	// layout pages are preferred
	require.Len(t, res.Pages, 1)
	assert.Equal(t, "御請求書", res.Pages[0].Lines[0].Content)
	assert.Equal(t, map[string]any{"modelId": constants.ModelInvoice}, res.Raw)

	// table items won, so the page stage never ran
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stages.WithLabelValues("tables")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.stages.WithLabelValues("pages")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("invoice", "OK")))
}

func TestAnalyzeInvoice_NoDocuments(t *testing.T) {
	fa := &fakeAnalyzer{fn: byModel(nil)}
	o, err := New(fa, testConfig())
	require.NoError(t, err)

	_, err = o.AnalyzeInvoice(context.Background(), []byte("pdf"), "invoice.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoData)
	assert.Contains(t, err.Error(), "No invoice data extracted")
	// no-data is not retried and the layout call is skipped
	assert.Equal(t, []string{constants.ModelInvoice}, fa.Calls())
}

func TestAnalyzeReceipt(t *testing.T) {
	layoutLines := []string{"株式会社サンプル商会", "〒100-0001 東京都千代田区千代田1-1", "TEL 03-1234-5678"}
	results := map[string]*docintel.AnalyzeResult{
		constants.ModelReceipt: {
			Pages: []docintel.Page{{PageNumber: 1, Lines: lines("株式会社サンプル商会", "A4コピー用紙 1,100円")}},
			Documents: []docintel.Document{{
				Confidence: 0.85,
				Fields: map[string]*docintel.Field{
					"MerchantName":    {Content: "サンプル商会"},
					"Total":           {Content: "¥1,100", Value: 1100.0},
					"TotalTax":        {Content: "¥100", Value: 100.0},
					"TransactionDate": {Content: "2024/01/15"},
				},
			}},
		},
		constants.ModelLayout: {
			Content:    "株式会社サンプル商会\n〒100-0001 東京都千代田区千代田1-1\nTEL 03-1234-5678",
			Pages:      []docintel.Page{{PageNumber: 1, Lines: lines(layoutLines...)}},
			Paragraphs: []docintel.Paragraph{{Role: "title", Content: "株式会社サンプル商会"}},
		},
	}
	fa := &fakeAnalyzer{fn: byModel(results)}
	o, err := New(fa, testConfig())
	require.NoError(t, err)

	res, err := o.AnalyzeReceipt(context.Background(), []byte("jpg"), "receipt.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{constants.ModelReceipt, constants.ModelLayout}, fa.Calls())
	assert.Equal(t, constants.DocumentTypeReceipt, res.DocumentType)

	assert.Equal(t, "株式会社サンプル商会", res.Fields["merchantName"])
	assert.Equal(t, 1100.0, res.Fields["total"])
	assert.Equal(t, 100.0, res.Fields["tax"])
	assert.Equal(t, "2024/01/15", res.Fields["transactionDate"])
	assert.Equal(t, "〒100-0001 東京都千代田区千代田1-1", res.Fields["merchantAddress"])
	assert.Equal(t, "03-1234-5678", res.Fields["merchantPhoneNumber"])

	layout := res.Fields["customFields"].(map[string]any)["layoutAnalysis"].(map[string]any)
	assert.Equal(t, layoutLines, layout["lines"])
	assert.Equal(t, []string{"株式会社サンプル商会"}, layout["paragraphs"])

	require.Len(t, res.Items, 1)
	assert.Equal(t, "A4コピー用紙", res.Items[0].ItemName)
	assert.Equal(t, 1100.0, res.Items[0].Amount)
	assert.Equal(t, 110.0, res.Items[0].TaxAmount)
}

func TestAnalyzeReceipt_NoDocuments(t *testing.T) {
	fa := &fakeAnalyzer{fn: byModel(nil)}
	o, err := New(fa, testConfig())
	require.NoError(t, err)

	_, err = o.AnalyzeReceipt(context.Background(), []byte("jpg"), "receipt.jpg")
	assert.ErrorIs(t, err, common.ErrNoData)
	assert.Contains(t, err.Error(), "No receipt data extracted")
}

func TestAnalyzeDocument(t *testing.T) {
	results := map[string]*docintel.AnalyzeResult{
		constants.ModelLayout: {
			Tables:     []docintel.Table{{RowCount: 1, ColumnCount: 1, Cells: []docintel.Cell{cell(0, 0, "x")}}},
			Paragraphs: []docintel.Paragraph{{Content: "本文"}},
			Styles:     []docintel.Style{{IsHandwritten: true, Confidence: 0.6}},
			Pages:      []docintel.Page{{PageNumber: 1, Lines: lines("本文")}},
		},
	}
	fa := &fakeAnalyzer{fn: byModel(results)}
	o, err := New(fa, testConfig())
	require.NoError(t, err)

	res, err := o.AnalyzeDocument(context.Background(), []byte("x"), "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{constants.ModelLayout}, fa.Calls())
	assert.Equal(t, constants.DocumentTypeUnknown, res.DocumentType)
	assert.Equal(t, 0.5, res.Confidence)
	assert.Len(t, res.Tables, 1)
	assert.Equal(t, res.Tables, res.Fields["tables"])
	assert.Equal(t, []any{map[string]any{"content": "本文"}}, res.Fields["paragraphs"])
	assert.Equal(t, []any{map[string]any{"isHandwritten": true, "confidence": 0.6}}, res.Fields["styles"])
	assert.Empty(t, res.Items)
}

func TestValidateConfidence(t *testing.T) {
	o, err := New(&fakeAnalyzer{}, testConfig())
	require.NoError(t, err)

	assert.True(t, o.ValidateConfidence(&entity.AnalysisResult{Confidence: 0.8}, 0))
	assert.False(t, o.ValidateConfidence(&entity.AnalysisResult{Confidence: 0.79}, 0))
	assert.True(t, o.ValidateConfidence(&entity.AnalysisResult{Confidence: 0.5}, 0.5))
	assert.False(t, ValidateConfidence(nil, 0.1))
}

func TestArchive(t *testing.T) {
	arch := &fakeArchiver{}
	o, err := New(&fakeAnalyzer{}, testConfig(), WithArchiver(arch))
	require.NoError(t, err)

	id := o.Archive(context.Background(), []byte("x"), "a.pdf", map[string]string{"type": "invoice"})
	assert.Equal(t, "archive-1", id)
	assert.Equal(t, []string{"a.pdf"}, arch.names)
	assert.Equal(t, "invoice", arch.tags[0]["type"])
}

func TestArchive_FailureIsSwallowed(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	o, err := New(&fakeAnalyzer{}, testConfig(), WithArchiver(&fakeArchiver{err: errBoom}), WithMetrics(m))
	require.NoError(t, err)

	assert.Equal(t, "", o.Archive(context.Background(), []byte("x"), "a.pdf", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.archiveFailures))

	none, err := New(&fakeAnalyzer{}, testConfig())
	require.NoError(t, err)
	assert.Equal(t, "", none.Archive(context.Background(), []byte("x"), "a.pdf", nil))
}
