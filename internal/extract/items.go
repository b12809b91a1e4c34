package extract

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/docextract/internal/entity"
)

// Thresholds are the magnitude buckets used to classify bare numbers.
// They are a documented heuristic, not a validated classifier.
type Thresholds struct {
	// AmountMin: table values at or above this are line amounts.
	AmountMin float64
	// QuantityMax: table values below this are quantities.
	QuantityMax float64
	// PageLineAmountMin: page-line amounts must exceed this.
	PageLineAmountMin float64
	// TaxRate in percent, applied to every emitted item. Nil means the
	// default; a zero rate marks tax-exempt documents.
	TaxRate *float64
}

// DefaultThresholds returns the stock values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AmountMin:         10000,
		QuantityMax:       100,
		PageLineAmountMin: 1000,
		TaxRate:           Rate(10),
	}
}

// Rate returns a pointer to a tax rate in percent.
func Rate(percent float64) *float64 { return &percent }

// Stage names one step of the extraction cascade.
type Stage string

const (
	StageTables   Stage = "tables"
	StagePages    Stage = "pages"
	StageDeclared Stage = "declared"
	StageFullText Stage = "fulltext"
)

// StageObserver is told about every stage invocation and how many items it produced.
type StageObserver interface {
	ObserveStage(stage Stage, items int)
}

// Config configures an Extractor. Zero thresholds and a nil TaxRate fall back
// to DefaultThresholds.
type Config struct {
	Thresholds Thresholds
	Patterns   PatternTable
	Observer   StageObserver
}

const (
	fallbackItemName   = "抽出商品"
	placeholderMarker  = "デフォルト"
	minProductNameRune = 5
)

var rePlaceholderName = regexp.MustCompile(`^商品\d+$`)

// Extractor reconciles line items out of an analysis result.
type Extractor struct {
	thresholds   Thresholds
	observer     StageObserver
	logger       *slog.Logger
	productNames []*regexp.Regexp
	quantities   []*regexp.Regexp
	unitPrices   []*regexp.Regexp
	lineAmount   *regexp.Regexp
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	th := cfg.Thresholds
	def := DefaultThresholds()
	if th.AmountMin <= 0 {
		th.AmountMin = def.AmountMin
	}
	if th.QuantityMax <= 0 {
		th.QuantityMax = def.QuantityMax
	}
	if th.PageLineAmountMin <= 0 {
		th.PageLineAmountMin = def.PageLineAmountMin
	}
	if th.TaxRate == nil || *th.TaxRate < 0 {
		th.TaxRate = def.TaxRate
	}

	patterns := cfg.Patterns
	if patterns == nil {
		patterns = DefaultPatterns()
	}
	e := &Extractor{
		thresholds:   th,
		observer:     cfg.Observer,
		logger:       logger,
		productNames: patterns.ByRole(RoleProductName),
		quantities:   patterns.ByRole(RoleQuantity),
		unitPrices:   patterns.ByRole(RoleUnitPrice),
	}
	if la := patterns.ByRole(RoleLineAmount); len(la) > 0 {
		e.lineAmount = la[0]
	}
	return e
}

// Thresholds returns the effective thresholds.
func (e *Extractor) Thresholds() Thresholds { return e.thresholds }

// Extract runs the cascade: tables, page lines, declared items, full text.
// The first stage with a usable result wins; when none is usable the first
// non-empty result is kept. Extract never fails; no items is a valid answer.
func (e *Extractor) Extract(result *entity.AnalysisResult) []entity.LineItem {
	if result == nil {
		return nil
	}
	stages := []struct {
		name   Stage
		run    func(*entity.AnalysisResult) []entity.LineItem
		usable func([]entity.LineItem) bool
	}{
		{StageTables, e.FromTables, Usable},
		{StagePages, e.FromPages, Usable},
		{StageDeclared, e.FromDeclared, usableDeclared},
		{StageFullText, e.FromFullText, Usable},
	}

	var chosen []entity.LineItem
	var chosenStage Stage
	for _, s := range stages {
		items := s.run(result)
		e.observe(s.name, len(items))
		if s.usable(items) {
			chosen, chosenStage = items, s.name
			break
		}
		if chosen == nil && len(items) > 0 {
			chosen, chosenStage = items, s.name
		}
	}

	for i := range chosen {
		chosen[i].ApplyTax(*e.thresholds.TaxRate)
	}
	e.logger.Debug("extract.items.done", "stage", string(chosenStage), "items", len(chosen))
	return chosen
}

func (e *Extractor) observe(stage Stage, n int) {
	e.logger.Debug("extract.items.stage", "stage", string(stage), "items", n)
	if e.observer != nil {
		e.observer.ObserveStage(stage, n)
	}
}

// FromTables reads priced rows out of every table, skipping each header row.
// Rows without any numeric cell become remarks on the last emitted item.
func (e *Extractor) FromTables(result *entity.AnalysisResult) []entity.LineItem {
	var items []entity.LineItem
	for _, table := range result.Tables {
		rows := table.Rows()
		var remarks []string
		for r := 1; r < len(rows); r++ {
			item, text, numeric := e.tableRow(rows[r])
			if !numeric {
				if text != "" {
					remarks = append(remarks, text)
				}
				continue
			}
			if item.ItemName == "" || isHeaderText(item.ItemName) || isDefaultName(item.ItemName) {
				continue
			}
			if item.Amount > 0 || item.UnitPrice > 0 {
				items = append(items, item)
			}
		}
		if len(remarks) > 0 && len(items) > 0 {
			last := &items[len(items)-1]
			last.Remarks = strings.TrimSpace(strings.Join(append([]string{last.Remarks}, remarks...), " "))
		}
	}
	return items
}

func (e *Extractor) tableRow(row []string) (entity.LineItem, string, bool) {
	var (
		name                   string
		qty, unitPrice, amount float64
		numeric                bool
		texts                  []string
	)
	for c, cell := range row {
		content := strings.TrimSpace(cell)
		if content == "" {
			continue
		}
		if c == 0 && !IsNumericOnly(content) {
			name = content
			texts = append(texts, content)
			continue
		}
		n := ParseNumber(content)
		if n <= 0 {
			texts = append(texts, content)
			continue
		}
		numeric = true
		switch {
		case n >= e.thresholds.AmountMin:
			if amount == 0 {
				amount = n
			} else if unitPrice == 0 {
				unitPrice = n
			}
		case n < e.thresholds.QuantityMax:
			qty = n
		default:
			if unitPrice == 0 {
				unitPrice = n
			}
		}
	}
	if !numeric {
		return entity.LineItem{}, strings.Join(texts, " "), false
	}
	if qty <= 0 {
		qty = 1
	}
	item := entity.LineItem{
		ItemName:    name,
		Description: name,
		Quantity:    qty,
		UnitPrice:   unitPrice,
		Amount:      amount,
	}
	crossDerive(&item, round2)
	return item, "", true
}

// FromPages scans page lines for a priced line: text followed by an amount.
func (e *Extractor) FromPages(result *entity.AnalysisResult) []entity.LineItem {
	if e.lineAmount == nil {
		return nil
	}
	var items []entity.LineItem
	for _, page := range result.Pages {
		for i, line := range page.Lines {
			content := line.Content
			m := e.lineAmount.FindStringSubmatchIndex(content)
			if m == nil {
				continue
			}
			amount := ParseNumber(firstGroup(content, m))
			if amount <= e.thresholds.PageLineAmountMin {
				continue
			}

			name := ""
			if before := strings.TrimSpace(content[:m[0]]); before != "" && !IsNumericOnly(before) {
				name = before
			}
			if name == "" && i > 0 {
				prev := strings.TrimSpace(page.Lines[i-1].Content)
				if prev != "" && !IsNumericOnly(prev) && !isHeaderText(prev) {
					name = prev
				}
			}
			if name == "" {
				continue
			}
			items = append(items, entity.LineItem{
				ItemName:    name,
				Description: name,
				Quantity:    1,
				UnitPrice:   amount,
				Amount:      amount,
			})
		}
	}
	return items
}

// firstGroup returns the first non-empty capture group of a submatch index slice.
func firstGroup(s string, m []int) string {
	for g := 1; 2*g+1 < len(m); g++ {
		if m[2*g] >= 0 && m[2*g+1] > m[2*g] {
			return s[m[2*g]:m[2*g+1]]
		}
	}
	return ""
}

// FromDeclared converts the vendor's own item list, probing several key spellings.
func (e *Extractor) FromDeclared(result *entity.AnalysisResult) []entity.LineItem {
	entries := toSlice(result.Field("items"))
	if len(entries) == 0 {
		return nil
	}
	items := make([]entity.LineItem, 0, len(entries))
	for i, entry := range entries {
		name := itemNamePaths.String(entry)
		if name == "" {
			name = fmt.Sprintf("商品%d", i+1)
		}
		qty := itemQuantityPaths.Number(entry)
		if qty <= 0 {
			qty = 1
		}
		item := entity.LineItem{
			ItemName:    name,
			Description: name,
			Quantity:    qty,
			UnitPrice:   itemUnitPricePaths.Number(entry),
			Amount:      itemAmountPaths.Number(entry),
		}
		crossDerive(&item, math.Round)
		items = append(items, item)
	}
	return items
}

// FromFullText mines the harvested text of the whole result for a single item.
func (e *Extractor) FromFullText(result *entity.AnalysisResult) []entity.LineItem {
	corpus := HarvestText([]any{result.Fields, result.Raw})

	best, bestLen := "", 0
	for _, re := range e.productNames {
		for _, m := range re.FindAllString(corpus, -1) {
			cleaned := strings.TrimSpace(strings.NewReplacer("【", "", "】", "").Replace(m))
			n := utf8.RuneCountInString(cleaned)
			if n > bestLen && n > minProductNameRune {
				best, bestLen = cleaned, n
			}
		}
	}

	qty := 1.0
	for _, re := range e.quantities {
		if m := re.FindStringSubmatch(corpus); len(m) > 1 {
			if n := ParseNumber(m[1]); n > 0 {
				qty = n
			}
			break
		}
	}

	unitPrice := 0.0
	for _, re := range e.unitPrices {
		if m := re.FindStringSubmatch(corpus); len(m) > 1 {
			unitPrice, _ = strconv.ParseFloat(m[1], 64)
			break
		}
	}

	if best == "" && qty <= 1 && unitPrice <= 0 {
		return nil
	}

	amount := math.Max(documentTotalPaths.Number(result.Fields)-documentTaxPaths.Number(result.Fields), 0)
	if unitPrice > 0 {
		amount = unitPrice * qty
	} else if amount > 0 {
		unitPrice = round2(amount / qty)
	}

	name := best
	if name == "" {
		name = fallbackItemName
	}
	return []entity.LineItem{{
		ItemName:    name,
		Description: best,
		Quantity:    qty,
		UnitPrice:   unitPrice,
		Amount:      amount,
	}}
}

// crossDerive fills whichever of Amount / UnitPrice is missing from the other.
func crossDerive(item *entity.LineItem, round func(float64) float64) {
	if item.Quantity <= 0 {
		return
	}
	switch {
	case item.Amount == 0 && item.UnitPrice > 0:
		item.Amount = item.UnitPrice * item.Quantity
	case item.UnitPrice == 0 && item.Amount > 0:
		item.UnitPrice = round(item.Amount / item.Quantity)
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Usable reports whether items is non-empty and carries at least one name
// that is not a synthesized placeholder. Short names such as "弁当" count.
func Usable(items []entity.LineItem) bool {
	return anyItem(items, func(name string) bool { return !isDefaultName(name) })
}

// usableDeclared is the stricter check for the vendor's own item list, where
// very short names are usually OCR fragments.
func usableDeclared(items []entity.LineItem) bool {
	return anyItem(items, func(name string) bool { return !IsPlaceholder(name) })
}

func anyItem(items []entity.LineItem, ok func(string) bool) bool {
	for _, it := range items {
		if ok(it.ItemName) {
			return true
		}
	}
	return false
}

// IsPlaceholder reports whether name is a synthesized or too-short item name.
func IsPlaceholder(name string) bool {
	return isDefaultName(name) || utf8.RuneCountInString(name) < 3
}

func isDefaultName(name string) bool {
	return rePlaceholderName.MatchString(name) ||
		strings.Contains(name, placeholderMarker) ||
		name == fallbackItemName
}

func isHeaderText(s string) bool {
	for _, h := range headerTokens {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}

func toSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []map[string]any:
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out
	}
	return nil
}
