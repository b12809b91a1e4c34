package entity

// Cell is one table cell as reported by the analysis service.
type Cell struct {
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
	Kind        string `json:"kind,omitempty"`
}

// Table is a flat list of cells; rows are rebuilt by grouping on RowIndex.
type Table struct {
	RowCount    int    `json:"rowCount"`
	ColumnCount int    `json:"columnCount"`
	Cells       []Cell `json:"cells"`
}

// Rows groups cells by RowIndex and places each at its ColumnIndex.
// Missing cells are left as empty strings.
func (t Table) Rows() [][]string {
	maxRow, maxCol := -1, -1
	for _, c := range t.Cells {
		if c.RowIndex > maxRow {
			maxRow = c.RowIndex
		}
		if c.ColumnIndex > maxCol {
			maxCol = c.ColumnIndex
		}
	}
	if maxRow < 0 {
		return nil
	}
	rows := make([][]string, maxRow+1)
	for i := range rows {
		rows[i] = make([]string, maxCol+1)
	}
	for _, c := range t.Cells {
		if c.RowIndex < 0 || c.ColumnIndex < 0 {
			continue
		}
		rows[c.RowIndex][c.ColumnIndex] = c.Content
	}
	return rows
}

// Line is one visual text line.
type Line struct {
	Content string `json:"content"`
}

// Page is an ordered sequence of lines, top to bottom.
type Page struct {
	PageNumber int    `json:"pageNumber"`
	Lines      []Line `json:"lines"`
}

// Texts returns the content of every line.
func (p Page) Texts() []string {
	out := make([]string, 0, len(p.Lines))
	for _, l := range p.Lines {
		out = append(out, l.Content)
	}
	return out
}
