package analysis

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/archive"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/docintel"
	"github.com/joseph-ayodele/docextract/internal/entity"
	"github.com/joseph-ayodele/docextract/internal/extract"
)

// Analyzer runs one vendor model over a file.
type Analyzer interface {
	Analyze(ctx context.Context, modelID string, data []byte) (*docintel.AnalyzeResult, error)
}

// Config holds the orchestrator settings. Endpoint and APIKey are only
// checked for presence; the Analyzer owns the connection.
type Config struct {
	Endpoint      string
	APIKey        string
	Retry         common.RetryConfig
	MaxConcurrent int
	MinConfidence float64
	Extract       extract.Config
}

// ConfigFrom maps the application configuration onto orchestrator settings.
func ConfigFrom(c *common.Config) Config {
	return Config{
		Endpoint:      c.Vendor.Endpoint,
		APIKey:        c.Vendor.APIKey,
		Retry:         c.Retry,
		MaxConcurrent: c.Batch.MaxConcurrent,
		MinConfidence: c.Extract.MinConfidence,
		Extract: extract.Config{
			Thresholds: extract.Thresholds{
				AmountMin:         c.Extract.AmountMin,
				QuantityMax:       c.Extract.QuantityMax,
				PageLineAmountMin: c.Extract.PageLineAmountMin,
				TaxRate:           extract.Rate(c.Extract.TaxRate),
			},
		},
	}
}

// Orchestrator turns raw files into AnalysisResults: it picks the vendor
// models, retries transient failures and runs the extraction heuristics.
type Orchestrator struct {
	analyzer      Analyzer
	extractor     *extract.Extractor
	retry         common.RetryConfig
	maxConcurrent int
	minConfidence float64
	archiver      archive.Archiver
	metrics       *Metrics
	logger        *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithArchiver enables Archive. Without one, Archive is a no-op.
func WithArchiver(a archive.Archiver) Option {
	return func(o *Orchestrator) { o.archiver = a }
}

// WithMetrics records analyses, retries and extraction stages on m.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func New(analyzer Analyzer, cfg Config, opts ...Option) (*Orchestrator, error) {
	if analyzer == nil {
		return nil, common.NewConfigurationError("an analyzer is required", nil)
	}
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, common.NewConfigurationError("document analysis endpoint and API key are required", nil)
	}

	o := &Orchestrator{
		analyzer:      analyzer,
		retry:         cfg.Retry,
		maxConcurrent: cfg.MaxConcurrent,
		minConfidence: cfg.MinConfidence,
		logger:        slog.Default(),
	}
	if o.retry.MaxAttempts <= 0 {
		o.retry.MaxAttempts = 3
	}
	if o.retry.BaseDelay <= 0 {
		o.retry.BaseDelay = time.Second
	}
	if o.retry.MaxDelay <= 0 {
		o.retry.MaxDelay = 10 * time.Second
	}
	if o.maxConcurrent <= 0 {
		o.maxConcurrent = 5
	}
	if o.minConfidence <= 0 {
		o.minConfidence = constants.MinConfidence
	}

	for _, opt := range opts {
		opt(o)
	}

	ecfg := cfg.Extract
	if ecfg.Observer == nil && o.metrics != nil {
		ecfg.Observer = o.metrics
	}
	o.extractor = extract.NewExtractor(ecfg, o.logger)
	return o, nil
}

// DocumentKind decides which analysis a file gets. An invoice or receipt
// hint wins; otherwise the lower-cased file name is searched for tokens.
func DocumentKind(fileName, hint string) constants.DocumentType {
	if dt, ok := constants.CanonicalizeDocumentType(hint); ok && dt != constants.DocumentTypeUnknown {
		return dt
	}
	name := strings.ToLower(fileName)
	for _, tok := range constants.InvoiceNameTokens {
		if strings.Contains(name, tok) {
			return constants.DocumentTypeInvoice
		}
	}
	for _, tok := range constants.ReceiptNameTokens {
		if strings.Contains(name, tok) {
			return constants.DocumentTypeReceipt
		}
	}
	return constants.DocumentTypeUnknown
}

// Analyze dispatches to AnalyzeInvoice, AnalyzeReceipt or AnalyzeDocument.
func (o *Orchestrator) Analyze(ctx context.Context, data []byte, fileName, hint string) (*entity.AnalysisResult, error) {
	switch DocumentKind(fileName, hint) {
	case constants.DocumentTypeInvoice:
		return o.AnalyzeInvoice(ctx, data, fileName)
	case constants.DocumentTypeReceipt:
		return o.AnalyzeReceipt(ctx, data, fileName)
	default:
		return o.AnalyzeDocument(ctx, data, fileName)
	}
}

// AnalyzeInvoice runs the invoice model for fields and the layout model for
// pages and text, then reconciles items and mines the remaining fields.
func (o *Orchestrator) AnalyzeInvoice(ctx context.Context, data []byte, fileName string) (*entity.AnalysisResult, error) {
	return o.run(ctx, constants.DocumentTypeInvoice, fileName, data, o.analyzeInvoice)
}

// AnalyzeReceipt runs the receipt model for fields and the layout model for
// merchant name recovery.
func (o *Orchestrator) AnalyzeReceipt(ctx context.Context, data []byte, fileName string) (*entity.AnalysisResult, error) {
	return o.run(ctx, constants.DocumentTypeReceipt, fileName, data, o.analyzeReceipt)
}

// AnalyzeDocument runs the layout model only.
func (o *Orchestrator) AnalyzeDocument(ctx context.Context, data []byte, fileName string) (*entity.AnalysisResult, error) {
	return o.run(ctx, constants.DocumentTypeUnknown, fileName, data, o.analyzeDocument)
}

type analyzeFunc func(ctx context.Context, data []byte) (*entity.AnalysisResult, error)

func (o *Orchestrator) run(ctx context.Context, kind constants.DocumentType, fileName string, data []byte, fn analyzeFunc) (*entity.AnalysisResult, error) {
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
		ctx = common.WithRequestID(ctx, reqID)
	}
	ctx = common.WithFileName(ctx, fileName)
	start := time.Now()
	event := "analysis." + string(kind)
	if kind == constants.DocumentTypeUnknown {
		event = "analysis.document"
	}

	o.logger.Info(event+".start", "req_id", reqID, "file", fileName, "bytes", len(data))
	res, err := fn(ctx, data)
	elapsed := time.Since(start)
	if err != nil {
		o.metrics.observeAnalysis(string(kind), common.StatusCodeName(err), elapsed.Seconds())
		o.logger.Error(event+".failed", "req_id", reqID, "file", fileName, "error", err, "elapsed_ms", elapsed.Milliseconds())
		return nil, err
	}
	o.metrics.observeAnalysis(string(kind), common.StatusCodeName(nil), elapsed.Seconds())
	o.logger.Info(event+".done",
		"req_id", reqID,
		"file", fileName,
		"confidence", res.Confidence,
		"items", len(res.Items),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

func (o *Orchestrator) analyzeInvoice(ctx context.Context, data []byte) (*entity.AnalysisResult, error) {
	inv, err := o.call(ctx, constants.ModelInvoice, data)
	if err != nil {
		return nil, err
	}
	doc := inv.FirstDocument()
	if doc == nil {
		return nil, common.NewNoDataError("No invoice data extracted")
	}
	layout, err := o.call(ctx, constants.ModelLayout, data)
	if err != nil {
		return nil, err
	}

	pages := layout.EntityPages()
	if len(pages) == 0 {
		pages = inv.EntityPages()
	}
	result := &entity.AnalysisResult{
		DocumentType: constants.DocumentTypeInvoice,
		Confidence:   doc.Confidence,
		Fields:       invoiceFields(doc.Fields),
		Tables:       inv.EntityTables(),
		Pages:        pages,
		Raw:          rawOf(inv),
	}
	result.Items = o.extractor.Extract(result)

	mined := extract.MineAdditionalFields(firstNonEmpty(layout.Content, inv.Content))
	result.SetIfEmpty("subject", mined.Subject)
	result.SetIfEmpty("deliveryLocation", mined.DeliveryLocation)
	result.SetIfEmpty("paymentTerms", mined.PaymentTerms)
	result.SetIfEmpty("quotationValidity", mined.QuotationValidity)
	result.SetIfEmpty("vendorAddress", mined.Address)
	result.SetIfEmpty("vendorPhoneNumber", mined.Phone)
	result.SetIfEmpty("vendorEmail", mined.Email)

	if subject := result.StringField("subject"); subject != "" {
		result.Fields["subject"] = extract.RepairSubject(subject, result.Items, result.Pages)
	}
	result.Fields["parties"] = extract.ResolveParties(result.Fields)
	return result, nil
}

func (o *Orchestrator) analyzeReceipt(ctx context.Context, data []byte) (*entity.AnalysisResult, error) {
	rec, err := o.call(ctx, constants.ModelReceipt, data)
	if err != nil {
		return nil, err
	}
	doc := rec.FirstDocument()
	if doc == nil {
		return nil, common.NewNoDataError("No receipt data extracted")
	}
	layout, err := o.call(ctx, constants.ModelLayout, data)
	if err != nil {
		return nil, err
	}

	var lines []string
	if lp := layout.EntityPages(); len(lp) > 0 {
		lines = lp[0].Texts()
	}
	original := doc.Fields["MerchantName"].Text()
	merchant := extract.RecoverMerchantName(lines, original)
	if merchant != original {
		o.logger.Debug("analysis.receipt.merchant_recovered", "req_id", common.RequestIDFromContext(ctx), "original", original, "recovered", merchant)
	}

	fields := receiptFields(doc.Fields, merchant)
	custom := fields["customFields"].(map[string]any)
	custom["layoutAnalysis"] = map[string]any{
		"fullText":   layout.Content,
		"paragraphs": layout.ParagraphTexts(),
		"lines":      lines,
	}

	pages := rec.EntityPages()
	if len(pages) == 0 {
		pages = layout.EntityPages()
	}
	result := &entity.AnalysisResult{
		DocumentType: constants.DocumentTypeReceipt,
		Confidence:   doc.Confidence,
		Fields:       fields,
		Tables:       rec.EntityTables(),
		Pages:        pages,
		Raw:          rawOf(rec),
	}
	result.Items = o.extractor.Extract(result)

	mined := extract.MineAdditionalFields(layout.Content)
	result.SetIfEmpty("merchantAddress", mined.Address)
	result.SetIfEmpty("merchantPhoneNumber", mined.Phone)
	result.SetIfEmpty("merchantEmail", mined.Email)
	return result, nil
}

func (o *Orchestrator) analyzeDocument(ctx context.Context, data []byte) (*entity.AnalysisResult, error) {
	layout, err := o.call(ctx, constants.ModelLayout, data)
	if err != nil {
		return nil, err
	}
	tables := layout.EntityTables()
	return &entity.AnalysisResult{
		DocumentType: constants.DocumentTypeUnknown,
		Confidence:   constants.LayoutConfidence,
		Fields: map[string]any{
			"tables":     tables,
			"paragraphs": paragraphs(layout),
			"styles":     styles(layout),
		},
		Tables: tables,
		Pages:  layout.EntityPages(),
		Raw:    rawOf(layout),
	}, nil
}

// ValidateConfidence reports whether result meets threshold. A non-positive
// threshold uses the configured gate.
func (o *Orchestrator) ValidateConfidence(result *entity.AnalysisResult, threshold float64) bool {
	if threshold <= 0 {
		threshold = o.minConfidence
	}
	return ValidateConfidence(result, threshold)
}

// ValidateConfidence reports whether result.Confidence >= threshold.
func ValidateConfidence(result *entity.AnalysisResult, threshold float64) bool {
	return result != nil && result.Confidence >= threshold
}

// Archive stores the original through the configured archiver. Failures are
// logged and reported as "", never returned: archival must not change the
// outcome of an analysis.
func (o *Orchestrator) Archive(ctx context.Context, data []byte, name string, tags map[string]string) string {
	if o.archiver == nil {
		return ""
	}
	id, err := o.archiver.Store(ctx, name, data, archive.Metadata{UploadedAt: time.Now(), Tags: tags})
	if err != nil {
		o.metrics.incArchiveFailure()
		o.logger.Warn("analysis.archive.failed", "req_id", common.RequestIDFromContext(ctx), "file", name, "error", err)
		return ""
	}
	return id
}

func rawOf(r *docintel.AnalyzeResult) any {
	if r == nil || r.Raw == nil {
		return nil
	}
	return r.Raw
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
