package letter

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "Letter"

// ExcelRenderer lays a Letter out on a single worksheet
type ExcelRenderer struct {
	logger *zap.Logger
}

// NewExcelRenderer creates a new renderer
func NewExcelRenderer(logger *zap.Logger) *ExcelRenderer {
	return &ExcelRenderer{logger: logger}
}

// Render returns the workbook bytes
func (r *ExcelRenderer) Render(l *Letter) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	for col, width := range map[string]float64{"A": 14, "B": 44, "C": 20, "D": 28} {
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// header
	r.setCell(f, "A1", l.Office, styles.bold)
	r.setCell(f, "D1", l.Division, styles.boldRight)
	r.setCell(f, "D2", l.Site, styles.right)
	r.setCell(f, "D3", l.Date, styles.right)

	r.setCell(f, "A5", l.Addressee, 0)
	r.mergeRow(f, 6, l.Subject, styles.boldWrap)
	r.mergeRow(f, 7, l.Body, styles.wrap)
	_ = f.SetRowHeight(sheetName, 7, 60)

	// item table
	r.mergeRow(f, 9, l.TableTitle, styles.boldCenter)
	headers := []string{"No.of items", "Model Number & Serial No.", "MAKE", "Name of the Person Carrying"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 10)
		r.setCell(f, cell, h, styles.tableHeader)
	}

	row := 11
	for _, item := range l.Rows {
		values := []interface{}{"", item.Description, item.Make, item.Carrier}
		if item.Quantity > 0 {
			values[0] = item.Quantity
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			r.setCell(f, cell, v, styles.tableCell)
		}
		row++
	}

	row++
	r.setCell(f, fmt.Sprintf("A%d", row), l.Note, styles.bold)

	// footer, one column per signatory
	row += 3
	for i, sig := range l.Signatures {
		if i > 3 {
			r.logger.Warn("Dropping signatory beyond worksheet width", zap.String("title", sig.Title))
			break
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		mark := sig.Mark
		if sig.ApproverContact != "" {
			mark = fmt.Sprintf("%s %s", sig.Mark, sig.ApproverContact)
		}
		r.setCell(f, fmt.Sprintf("%s%d", col, row), mark, styles.center)
		r.setCell(f, fmt.Sprintf("%s%d", col, row+1), sig.Title, styles.boldCenter)
	}

	buf := new(bytes.Buffer)
	if _, err := f.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// setCell sets a value and optional style, logging rather than failing
func (r *ExcelRenderer) setCell(f *excelize.File, cell string, value interface{}, style int) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		r.logger.Warn("Failed to set cell value", zap.String("cell", cell), zap.Error(err))
		return
	}
	if style != 0 {
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			r.logger.Warn("Failed to set cell style", zap.String("cell", cell), zap.Error(err))
		}
	}
}

func (r *ExcelRenderer) mergeRow(f *excelize.File, row int, value string, style int) {
	start, end := fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row)
	if err := f.MergeCell(sheetName, start, end); err != nil {
		r.logger.Warn("Failed to merge cells", zap.String("range", start+":"+end), zap.Error(err))
	}
	r.setCell(f, start, value, style)
}

type styleDef struct {
	dst   *int
	style *excelize.Style
}

type letterStyles struct {
	bold, boldRight, right, center, boldCenter, wrap, boldWrap, tableHeader, tableCell int
}

func newStyles(f *excelize.File) (*letterStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	bold := &excelize.Font{Bold: true, Family: "Times New Roman"}
	plain := &excelize.Font{Family: "Times New Roman"}

	s := &letterStyles{}
	defs := []styleDef{
		{&s.bold, &excelize.Style{Font: bold}},
		{&s.boldRight, &excelize.Style{Font: bold, Alignment: &excelize.Alignment{Horizontal: "right"}}},
		{&s.right, &excelize.Style{Font: plain, Alignment: &excelize.Alignment{Horizontal: "right"}}},
		{&s.center, &excelize.Style{Font: plain, Alignment: &excelize.Alignment{Horizontal: "center"}}},
		{&s.boldCenter, &excelize.Style{Font: bold, Alignment: &excelize.Alignment{Horizontal: "center"}}},
		{&s.wrap, &excelize.Style{Font: plain, Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}}},
		{&s.boldWrap, &excelize.Style{Font: bold, Alignment: &excelize.Alignment{WrapText: true}}},
		{&s.tableHeader, &excelize.Style{Font: bold, Border: border, Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true}}},
		{&s.tableCell, &excelize.Style{Font: plain, Border: border, Alignment: &excelize.Alignment{Vertical: "center", WrapText: true}}},
	}

	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return nil, fmt.Errorf("failed to create style: %w", err)
		}
		*d.dst = id
	}
	return s, nil
}
