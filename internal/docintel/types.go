package docintel

import (
	"encoding/json"

	"github.com/joseph-ayodele/docextract/internal/entity"
)

// Operation statuses reported by the analyze poller.
const (
	StatusNotStarted = "notStarted"
	StatusRunning    = "running"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
)

// operation is the body returned by GET on an Operation-Location URL.
type operation struct {
	Status        string          `json:"status"`
	AnalyzeResult *AnalyzeResult  `json:"analyzeResult"`
	Error         *operationError `json:"error"`
}

type operationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AnalyzeResult is the part of a vendor analysis this module consumes.
type AnalyzeResult struct {
	APIVersion string      `json:"apiVersion"`
	ModelID    string      `json:"modelId"`
	Content    string      `json:"content"`
	Pages      []Page      `json:"pages"`
	Tables     []Table     `json:"tables"`
	Paragraphs []Paragraph `json:"paragraphs"`
	Styles     []Style     `json:"styles"`
	Documents  []Document  `json:"documents"`

	// Raw is the analyzeResult object decoded without a schema.
	Raw map[string]any `json:"-"`
}

type Page struct {
	PageNumber int    `json:"pageNumber"`
	Lines      []Line `json:"lines"`
}

type Line struct {
	Content string `json:"content"`
}

type Table struct {
	RowCount    int    `json:"rowCount"`
	ColumnCount int    `json:"columnCount"`
	Cells       []Cell `json:"cells"`
}

type Cell struct {
	Kind        string `json:"kind,omitempty"`
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

type Paragraph struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

type Style struct {
	IsHandwritten bool    `json:"isHandwritten"`
	Confidence    float64 `json:"confidence"`
}

type Document struct {
	DocType    string            `json:"docType"`
	Confidence float64           `json:"confidence"`
	Fields     map[string]*Field `json:"fields"`
}

// Field is a typed document field. The vendor's valueXxx variants are folded
// into Value: string, float64, map[string]*Field for objects, []*Field for
// arrays and map[string]any for addresses.
type Field struct {
	Type       string
	Content    string
	Confidence float64
	Value      any
}

type wireField struct {
	Type               string            `json:"type"`
	Content            string            `json:"content"`
	Confidence         float64           `json:"confidence"`
	ValueString        *string           `json:"valueString"`
	ValueNumber        *float64          `json:"valueNumber"`
	ValueInteger       *int64            `json:"valueInteger"`
	ValueDate          *string           `json:"valueDate"`
	ValueTime          *string           `json:"valueTime"`
	ValuePhoneNumber   *string           `json:"valuePhoneNumber"`
	ValueCountryRegion *string           `json:"valueCountryRegion"`
	ValueSelectionMark *string           `json:"valueSelectionMark"`
	ValueCurrency      *currencyValue    `json:"valueCurrency"`
	ValueAddress       map[string]any    `json:"valueAddress"`
	ValueObject        map[string]*Field `json:"valueObject"`
	ValueArray         []*Field          `json:"valueArray"`
}

type currencyValue struct {
	Amount         float64 `json:"amount"`
	CurrencySymbol string  `json:"currencySymbol"`
	CurrencyCode   string  `json:"currencyCode"`
}

func (f *Field) UnmarshalJSON(b []byte) error {
	var w wireField
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	f.Type, f.Content, f.Confidence = w.Type, w.Content, w.Confidence
	switch {
	case w.ValueString != nil:
		f.Value = *w.ValueString
	case w.ValueNumber != nil:
		f.Value = *w.ValueNumber
	case w.ValueInteger != nil:
		f.Value = float64(*w.ValueInteger)
	case w.ValueCurrency != nil:
		f.Value = w.ValueCurrency.Amount
	case w.ValueDate != nil:
		f.Value = *w.ValueDate
	case w.ValueTime != nil:
		f.Value = *w.ValueTime
	case w.ValuePhoneNumber != nil:
		f.Value = *w.ValuePhoneNumber
	case w.ValueCountryRegion != nil:
		f.Value = *w.ValueCountryRegion
	case w.ValueSelectionMark != nil:
		f.Value = *w.ValueSelectionMark
	case w.ValueAddress != nil:
		f.Value = w.ValueAddress
	case w.ValueObject != nil:
		f.Value = w.ValueObject
	case w.ValueArray != nil:
		f.Value = w.ValueArray
	}
	return nil
}

// Text returns the field content, "" for a nil field.
func (f *Field) Text() string {
	if f == nil {
		return ""
	}
	return f.Content
}

// Number returns a numeric Value, or 0.
func (f *Field) Number() float64 {
	if f == nil {
		return 0
	}
	n, _ := f.Value.(float64)
	return n
}

// Object returns the sub-fields of an object field.
func (f *Field) Object() map[string]*Field {
	if f == nil {
		return nil
	}
	m, _ := f.Value.(map[string]*Field)
	return m
}

// Array returns the elements of an array field.
func (f *Field) Array() []*Field {
	if f == nil {
		return nil
	}
	a, _ := f.Value.([]*Field)
	return a
}

// Plain converts the field into the untyped wrapper shape
// {"type", "content", "value", "confidence"} used in result field maps.
// Object and array values are converted recursively.
func (f *Field) Plain() map[string]any {
	if f == nil {
		return nil
	}
	out := map[string]any{
		"type":       f.Type,
		"content":    f.Content,
		"confidence": f.Confidence,
	}
	switch v := f.Value.(type) {
	case map[string]*Field:
		obj := make(map[string]any, len(v))
		for k, sub := range v {
			obj[k] = sub.Plain()
		}
		out["value"] = obj
	case []*Field:
		arr := make([]any, 0, len(v))
		for _, sub := range v {
			arr = append(arr, sub.Plain())
		}
		out["value"] = arr
	case nil:
	default:
		out["value"] = v
	}
	return out
}

// ContentOrValue mirrors the "content || value" reading used for custom fields.
func (f *Field) ContentOrValue() any {
	if f == nil {
		return nil
	}
	if f.Content != "" {
		return f.Content
	}
	return f.Value
}

// EntityTables converts vendor tables into the result model.
func (r *AnalyzeResult) EntityTables() []entity.Table {
	if r == nil || len(r.Tables) == 0 {
		return nil
	}
	out := make([]entity.Table, 0, len(r.Tables))
	for _, t := range r.Tables {
		et := entity.Table{RowCount: t.RowCount, ColumnCount: t.ColumnCount, Cells: make([]entity.Cell, 0, len(t.Cells))}
		for _, c := range t.Cells {
			et.Cells = append(et.Cells, entity.Cell{RowIndex: c.RowIndex, ColumnIndex: c.ColumnIndex, Content: c.Content, Kind: c.Kind})
		}
		out = append(out, et)
	}
	return out
}

// EntityPages converts vendor pages into the result model.
func (r *AnalyzeResult) EntityPages() []entity.Page {
	if r == nil || len(r.Pages) == 0 {
		return nil
	}
	out := make([]entity.Page, 0, len(r.Pages))
	for _, p := range r.Pages {
		ep := entity.Page{PageNumber: p.PageNumber, Lines: make([]entity.Line, 0, len(p.Lines))}
		for _, l := range p.Lines {
			ep.Lines = append(ep.Lines, entity.Line{Content: l.Content})
		}
		out = append(out, ep)
	}
	return out
}

// ParagraphTexts returns paragraph contents in order.
func (r *AnalyzeResult) ParagraphTexts() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Paragraphs))
	for _, p := range r.Paragraphs {
		out = append(out, p.Content)
	}
	return out
}

// FirstDocument returns the first analyzed document, or nil.
func (r *AnalyzeResult) FirstDocument() *Document {
	if r == nil || len(r.Documents) == 0 {
		return nil
	}
	return &r.Documents[0]
}
