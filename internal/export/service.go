package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
)

const (
	SheetItems = "Items"
	SheetFiles = "Files"
)

var (
	itemHeaders = []string{
		"File",
		"Type",
		"Merchant/Vendor",
		"Item",
		"Quantity",
		"Unit Price",
		"Amount",
		"Tax",
		"Remarks",
	}
	fileHeaders = []string{
		"File",
		"Status",
		"Confidence",
		"Items",
		"Error",
		"Code",
	}
)

// Service renders batch outcomes as an XLSX workbook.
type Service struct {
	minConfidence float64
	logger        *slog.Logger
}

// NewService returns a Service gating results at minConfidence
// (constants.MinConfidence when <= 0).
func NewService(minConfidence float64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if minConfidence <= 0 {
		minConfidence = constants.MinConfidence
	}
	return &Service{minConfidence: minConfidence, logger: logger}
}

// Status classifies one outcome. Errors win over the confidence gate, which
// wins over an empty item list.
func (s *Service) Status(oc entity.BatchOutcome) constants.OutcomeStatus {
	switch {
	case !oc.OK():
		return constants.OutcomeFailed
	case oc.Result.Confidence < s.minConfidence:
		return constants.OutcomeLowConf
	case len(oc.Result.Items) == 0:
		return constants.OutcomeNoItems
	}
	return constants.OutcomeOK
}

// ExportBatchXLSX returns a workbook with one row per line item on the Items
// sheet and one row per file on the Files sheet, both in outcome order.
func (s *Service) ExportBatchXLSX(ctx context.Context, outcomes []entity.BatchOutcome) ([]byte, error) {
	start := time.Now()
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetItems); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetFiles); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	writeRow(f, SheetItems, 1, toAny(itemHeaders))
	writeRow(f, SheetFiles, 1, toAny(fileHeaders))

	itemRow, fileRow := 2, 2
	for _, oc := range outcomes {
		status := s.Status(oc)
		confidence, items := 0.0, 0
		if oc.Result != nil {
			confidence = oc.Result.Confidence
			items = len(oc.Result.Items)
		}
		code := ""
		if oc.Err != nil {
			code = common.StatusCodeName(oc.Err)
		}
		writeRow(f, SheetFiles, fileRow, []any{
			oc.FileName,
			string(status),
			confidence,
			items,
			truncate(oc.ErrorMessage(), 200),
			code,
		})
		fileRow++

		if oc.Result == nil {
			continue
		}
		party := partyName(oc.Result)
		for _, it := range oc.Result.Items {
			writeRow(f, SheetItems, itemRow, []any{
				oc.FileName,
				string(oc.Result.DocumentType),
				party,
				it.ItemName,
				it.Quantity,
				it.UnitPrice,
				it.Amount,
				it.TaxAmount,
				truncate(it.Remarks, 140),
			})
			itemRow++
		}
	}

	_ = f.SetColWidth(SheetItems, "A", "A", 28) // file
	_ = f.SetColWidth(SheetItems, "C", "D", 28)
	_ = f.SetColWidth(SheetItems, "E", "H", 12)
	_ = f.SetColWidth(SheetItems, "I", "I", 48)
	_ = f.SetColWidth(SheetFiles, "A", "A", 28)
	_ = f.SetColWidth(SheetFiles, "E", "E", 60) // error

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"req_id", reqID,
		"files", fileRow-2,
		"items", itemRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// partyName is the counterparty shown next to each item: the vendor of an
// invoice or the merchant of a receipt.
func partyName(r *entity.AnalysisResult) string {
	if p, ok := r.Field("parties").(entity.Parties); ok && p.VendorName != "" {
		return p.VendorName
	}
	for _, key := range []string{"vendorName", "merchantName"} {
		if s := r.StringField(key); s != "" {
			return s
		}
	}
	return ""
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
