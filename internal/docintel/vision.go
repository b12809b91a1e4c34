package docintel

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/extract"
)

// VisionAnalyzer is the legacy OCR backend. It only yields lines of text, so
// results carry one page, no tables, and for invoice/receipt models a single
// field-less document whose confidence is estimated from the text.
type VisionAnalyzer struct {
	client  computervision.BaseClient
	enhance bool
	logger  *slog.Logger
}

// NewVisionAnalyzer builds the legacy backend from vendor settings.
func NewVisionAnalyzer(cfg common.VendorConfig, logger *slog.Logger) (*VisionAnalyzer, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, common.NewConfigurationError("vision endpoint and API key are required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := computervision.New(cfg.Endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(cfg.APIKey)
	// retries are owned by the orchestrator
	client.RetryAttempts = 1
	return &VisionAnalyzer{
		client:  client,
		enhance: cfg.EnhanceImages,
		logger:  logger,
	}, nil
}

// Analyze runs printed-text OCR. modelID only decides whether a document is reported.
func (v *VisionAnalyzer) Analyze(ctx context.Context, modelID string, data []byte) (*AnalyzeResult, error) {
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	start := time.Now()

	if v.enhance {
		if ext := sniffImageExt(data); ext != "" {
			enhanced, err := EnhanceImage(data, ext)
			if err != nil {
				v.logger.Warn("vision.enhance.skipped", "req_id", reqID, "error", err)
			} else {
				data = enhanced
			}
		}
	}

	v.logger.Info("vision.ocr.request", "req_id", reqID, "model", modelID, "content_length", len(data))
	result, err := v.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(data)), computervision.OcrLanguages(computervision.OcrLanguagesJa))
	if err != nil {
		v.logger.Error("vision.ocr.error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, classify(err)
	}

	lines := ocrLines(result)
	content := strings.Join(lines, "\n")
	res := &AnalyzeResult{
		ModelID: modelID,
		Content: content,
		Pages:   []Page{{PageNumber: 1}},
	}
	for _, l := range lines {
		res.Pages[0].Lines = append(res.Pages[0].Lines, Line{Content: l})
	}
	if modelID == constants.ModelInvoice || modelID == constants.ModelReceipt {
		res.Documents = []Document{{
			DocType:    modelID,
			Confidence: extract.EstimateConfidence(content),
			Fields:     map[string]*Field{},
		}}
	}

	v.logger.Info("vision.ocr.response", "req_id", reqID, "lines", len(lines), "elapsed_ms", time.Since(start).Milliseconds())
	return res, nil
}

func ocrLines(result computervision.OcrResult) []string {
	if result.Regions == nil {
		return nil
	}
	var out []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, w := range *line.Words {
				if w.Text != nil && *w.Text != "" {
					words = append(words, *w.Text)
				}
			}
			if text := strings.Join(words, " "); text != "" {
				out = append(out, text)
			}
		}
	}
	return out
}

// sniffImageExt recognises the raster formats EnhanceImage can re-encode.
func sniffImageExt(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "jpg"
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return "tif"
	case bytes.HasPrefix(data, []byte("BM")):
		return "bmp"
	}
	return ""
}
