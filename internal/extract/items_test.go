package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docextract/internal/entity"
)

type countingObserver struct {
	calls map[Stage]int
}

func (o *countingObserver) ObserveStage(stage Stage, _ int) {
	if o.calls == nil {
		o.calls = map[Stage]int{}
	}
	o.calls[stage]++
}

func table(rows ...[]string) entity.Table {
	var t entity.Table
	for r, row := range rows {
		for c, content := range row {
			t.Cells = append(t.Cells, entity.Cell{RowIndex: r, ColumnIndex: c, Content: content})
		}
	}
	t.RowCount = len(rows)
	if len(rows) > 0 {
		t.ColumnCount = len(rows[0])
	}
	return t
}

func page(lines ...string) entity.Page {
	p := entity.Page{PageNumber: 1}
	for _, l := range lines {
		p.Lines = append(p.Lines, entity.Line{Content: l})
	}
	return p
}

func TestFromTables_HeaderAndDataRow(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{Tables: []entity.Table{
		table([]string{"品目", "数量", "単価", "金額"}, []string{"商品A", "2", "500", "1000"}),
	}}

	items := e.FromTables(result)
	require.Len(t, items, 1)
	assert.Equal(t, "商品A", items[0].ItemName)
	assert.Equal(t, 2.0, items[0].Quantity)
	assert.Equal(t, 500.0, items[0].UnitPrice)
	assert.Equal(t, 1000.0, items[0].Amount)
}

func TestFromTables_TextRowBecomesRemarks(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{Tables: []entity.Table{
		table(
			[]string{"品名", "数量", "単価", "金額"},
			[]string{"名刺印刷", "2", "3,000", "60,000"},
			[]string{"納期は別途ご相談", "", "", ""},
			[]string{"両面カラー", "", "", ""},
		),
	}}

	items := e.FromTables(result)
	require.Len(t, items, 1)
	assert.Equal(t, "名刺印刷", items[0].ItemName)
	assert.Equal(t, 60000.0, items[0].Amount)
	assert.Equal(t, 3000.0, items[0].UnitPrice)
	assert.Equal(t, "納期は別途ご相談 両面カラー", items[0].Remarks)
}

func TestFromTables_UnitSuffixedQuantity(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{Tables: []entity.Table{
		table([]string{"品目", "数量", "単価", "金額"}, []string{"商品A", "2個", "500", "1,000"}),
	}}

	items := e.FromTables(result)
	require.Len(t, items, 1)
	assert.Equal(t, 2.0, items[0].Quantity)
	assert.Equal(t, 500.0, items[0].UnitPrice)
	assert.Equal(t, 1000.0, items[0].Amount)
}

func TestFromTables_Derivation(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{Tables: []entity.Table{
		table(
			[]string{"品名", "数量", "単価", "金額"},
			[]string{"コピー用紙", "3", "", "15,000"},
			[]string{"トナー", "4", "2,500", ""},
			[]string{"小計", "", "", ""},
		),
	}}

	items := e.FromTables(result)
	require.Len(t, items, 2)

	assert.Equal(t, 15000.0, items[0].Amount)
	assert.InDelta(t, 15000.0/3, items[0].UnitPrice, 0.01)

	assert.Equal(t, 2500.0, items[1].UnitPrice)
	assert.InDelta(t, 2500.0*4, items[1].Amount, 1e-9)
	assert.Equal(t, "小計", items[1].Remarks)
}

func TestFromTables_SkipsHeaderLikeAndPlaceholderNames(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{Tables: []entity.Table{
		table(
			[]string{"", "", ""},
			[]string{"金額合計", "1", "20,000"},
			[]string{"商品1", "1", "20,000"},
			[]string{"1,000", "2", "500"},
		),
	}}
	assert.Empty(t, e.FromTables(result))
}

func TestFromTables_ThresholdsOverridable(t *testing.T) {
	row := []string{"ボールペン", "200", "12,000"}
	result := &entity.AnalysisResult{Tables: []entity.Table{table([]string{"品名", "数量", "金額"}, row)}}

	def := NewExtractor(Config{}, nil).FromTables(result)
	require.Len(t, def, 1)
	// 200 is not below the default quantity bucket, so it lands in unit price
	assert.Equal(t, 1.0, def[0].Quantity)
	assert.Equal(t, 200.0, def[0].UnitPrice)
	assert.Equal(t, 12000.0, def[0].Amount)

	tuned := NewExtractor(Config{Thresholds: Thresholds{QuantityMax: 1000}}, nil).FromTables(result)
	require.Len(t, tuned, 1)
	assert.Equal(t, 200.0, tuned[0].Quantity)
	assert.Equal(t, 60.0, tuned[0].UnitPrice)
	assert.Equal(t, 12000.0, tuned[0].Amount)
}

func TestFromPages(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{Pages: []entity.Page{
		page(
			"御見積書",
			"A4チラシ印刷 12,000円",
			"デザイン費",
			"¥8,800",
			"No. 3",
			"送料 500円",
		),
	}}

	items := e.FromPages(result)
	require.Len(t, items, 2)
	assert.Equal(t, entity.LineItem{ItemName: "A4チラシ印刷", Description: "A4チラシ印刷", Quantity: 1, UnitPrice: 12000, Amount: 12000}, items[0])
	assert.Equal(t, "デザイン費", items[1].ItemName)
	assert.Equal(t, 8800.0, items[1].Amount)
}

func TestFromPages_PreviousLineHeaderRejected(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{Pages: []entity.Page{page("金額", "15,000")}}
	assert.Empty(t, e.FromPages(result))
}

func TestFromDeclared(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{Fields: map[string]any{
		"items": []any{
			map[string]any{
				"Description": map[string]any{"content": "名刺 100枚"},
				"Quantity":    map[string]any{"value": 3.0},
				"Amount":      map[string]any{"value": 10000.0},
			},
			map[string]any{
				"name":  "封筒",
				"qty":   "2",
				"price": "1,500",
			},
		},
	}}

	items := e.FromDeclared(result)
	require.Len(t, items, 2)
	assert.Equal(t, "名刺 100枚", items[0].ItemName)
	assert.Equal(t, 3.0, items[0].Quantity)
	assert.Equal(t, 10000.0, items[0].Amount)
	assert.Equal(t, 3333.0, items[0].UnitPrice)

	assert.Equal(t, "封筒", items[1].ItemName)
	assert.Equal(t, 2.0, items[1].Quantity)
	assert.Equal(t, 1500.0, items[1].UnitPrice)
	assert.Equal(t, 3000.0, items[1].Amount)
}

func TestFromDeclared_PlaceholderNames(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{Fields: map[string]any{
		"items": []any{map[string]any{"amount": 500.0}},
	}}
	items := e.FromDeclared(result)
	require.Len(t, items, 1)
	assert.Equal(t, "商品1", items[0].ItemName)
	assert.False(t, Usable(items))
}

func TestFromFullText(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{
		Fields: map[string]any{
			"items":       []any{map[string]any{"amount": 0.0}},
			"totalAmount": 11000.0,
			"totalTax":    1000.0,
			"note":        "商品名:長3封筒窓付き。",
		},
		Raw: map[string]any{
			"content": "数量 1,000枚 単価:¥11",
		},
	}

	items := e.FromFullText(result)
	require.Len(t, items, 1)
	assert.Equal(t, "商品名:長3封筒窓付き", items[0].ItemName)
	assert.Equal(t, 1000.0, items[0].Quantity)
	assert.Equal(t, 11.0, items[0].UnitPrice)
	assert.Equal(t, 11000.0, items[0].Amount)
}

func TestFromFullText_BracketedName(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{Raw: map[string]any{
		"content": "【名入れ封筒】長3 窓付き、【送料】",
	}}

	items := e.FromFullText(result)
	require.Len(t, items, 1)
	assert.Equal(t, "名入れ封筒長3 窓付き、送料", items[0].ItemName)
	assert.Equal(t, "名入れ封筒長3 窓付き、送料", items[0].Description)
	assert.Equal(t, 1.0, items[0].Quantity)
	assert.Equal(t, 0.0, items[0].Amount)
}

func TestFromFullText_SubtotalFallback(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{
		Fields: map[string]any{
			"totalAmount": 22000.0,
			"customFields": map[string]any{
				"Tax": "2,000",
			},
			"note": "商品名:オリジナル紙袋",
		},
	}

	items := e.FromFullText(result)
	require.Len(t, items, 1)
	assert.Equal(t, "商品名:オリジナル紙袋", items[0].ItemName)
	assert.Equal(t, 1.0, items[0].Quantity)
	assert.Equal(t, 20000.0, items[0].Amount)
	assert.Equal(t, 20000.0, items[0].UnitPrice)
}

func TestFromFullText_NothingFound(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{Fields: map[string]any{"totalAmount": 5000.0}}
	assert.Empty(t, e.FromFullText(result))
}

func TestExtract_TableWinsPagesNeverInvoked(t *testing.T) {
	obs := &countingObserver{}
	e := NewExtractor(Config{Observer: obs}, nil)
	result := &entity.AnalysisResult{
		Tables: []entity.Table{
			table([]string{"品目", "数量", "単価", "金額"}, []string{"商品A", "2", "500", "1000"}),
		},
		Pages: []entity.Page{page("A4チラシ印刷 12,000円")},
	}

	items := e.Extract(result)
	require.Len(t, items, 1)
	assert.Equal(t, "商品A", items[0].ItemName)
	assert.Equal(t, 1, obs.calls[StageTables])
	assert.Equal(t, 0, obs.calls[StagePages])
	assert.Equal(t, 0, obs.calls[StageDeclared])
	assert.Equal(t, 0, obs.calls[StageFullText])
}

func TestExtract_ShortTableNamesStillWin(t *testing.T) {
	obs := &countingObserver{}
	e := NewExtractor(Config{Observer: obs}, nil)
	result := &entity.AnalysisResult{
		Tables: []entity.Table{
			table(
				[]string{"品名", "数量", "単価", "金額"},
				[]string{"弁当", "2", "600", "1,200"},
				[]string{"お茶", "2", "150", "300"},
			),
		},
		Pages: []entity.Page{page("領収書", "お支払い金額 ¥1,650")},
	}

	items := e.Extract(result)
	require.Len(t, items, 2)
	assert.Equal(t, "弁当", items[0].ItemName)
	assert.Equal(t, 1200.0, items[0].Amount)
	assert.Equal(t, "お茶", items[1].ItemName)
	assert.Equal(t, 300.0, items[1].Amount)
	assert.Equal(t, 1, obs.calls[StageTables])
	assert.Equal(t, 0, obs.calls[StagePages])
}

func TestExtract_FallsThroughToPages(t *testing.T) {
	obs := &countingObserver{}
	e := NewExtractor(Config{Observer: obs}, nil)
	result := &entity.AnalysisResult{Pages: []entity.Page{page("A4チラシ印刷 12,000円")}}

	items := e.Extract(result)
	require.Len(t, items, 1)
	assert.Equal(t, 1, obs.calls[StageTables])
	assert.Equal(t, 1, obs.calls[StagePages])
	assert.Equal(t, 0, obs.calls[StageDeclared])
}

func TestExtract_PlaceholderDeclaredItemsDoNotStopCascade(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{
		Fields: map[string]any{
			"items": []any{map[string]any{"amount": 500.0}},
			"memo":  "品名:オリジナル紙袋 20枚",
		},
	}

	items := e.Extract(result)
	require.Len(t, items, 1)
	assert.Equal(t, "品名:オリジナル紙袋 20枚", items[0].ItemName)
	assert.Equal(t, 20.0, items[0].Quantity)
}

func TestExtract_KeepsFirstNonEmptyWhenNothingUsable(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	result := &entity.AnalysisResult{
		Fields: map[string]any{"items": []any{map[string]any{"amount": 500.0}}},
	}
	items := e.Extract(result)
	require.Len(t, items, 1)
	assert.Equal(t, "商品1", items[0].ItemName)
	assert.Equal(t, 10.0, items[0].TaxRate)
	assert.Equal(t, 50.0, items[0].TaxAmount)
}

func TestExtract_AppliesTax(t *testing.T) {
	e := NewExtractor(Config{Thresholds: Thresholds{TaxRate: Rate(8)}}, nil)
	result := &entity.AnalysisResult{Tables: []entity.Table{
		table([]string{"品目", "数量", "単価", "金額"}, []string{"お弁当セット", "5", "1,000", "5,000"}),
	}}
	items := e.Extract(result)
	require.Len(t, items, 1)
	assert.Equal(t, 8.0, items[0].TaxRate)
	assert.Equal(t, 400.0, items[0].TaxAmount)
}

func TestUsable(t *testing.T) {
	assert.False(t, Usable(nil))
	assert.False(t, Usable([]entity.LineItem{{ItemName: "商品1"}, {ItemName: "デフォルト商品"}}))
	assert.True(t, Usable([]entity.LineItem{{ItemName: "商品1"}, {ItemName: "弁当"}}))

	assert.False(t, usableDeclared([]entity.LineItem{{ItemName: "弁当"}}))
	assert.True(t, usableDeclared([]entity.LineItem{{ItemName: "お弁当セット"}}))
}

func TestExtract_TaxExempt(t *testing.T) {
	e := NewExtractor(Config{Thresholds: Thresholds{TaxRate: Rate(0)}}, nil)
	result := &entity.AnalysisResult{Tables: []entity.Table{
		table([]string{"品目", "数量", "単価", "金額"}, []string{"お弁当セット", "5", "1,000", "5,000"}),
	}}
	items := e.Extract(result)
	require.Len(t, items, 1)
	assert.Equal(t, 0.0, items[0].TaxRate)
	assert.Equal(t, 0.0, items[0].TaxAmount)
}

func TestIsPlaceholder(t *testing.T) {
	assert.True(t, IsPlaceholder("商品12"))
	assert.True(t, IsPlaceholder("デフォルト商品"))
	assert.True(t, IsPlaceholder("抽出商品"))
	assert.True(t, IsPlaceholder("鉛筆"))
	assert.False(t, IsPlaceholder("商品A"))
	assert.False(t, IsPlaceholder("コピー用紙"))
}

func TestExtract_NilResult(t *testing.T) {
	assert.Nil(t, NewExtractor(Config{}, nil).Extract(nil))
}
