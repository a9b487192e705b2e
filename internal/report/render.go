package report

import (
	"bytes"
	"encoding/csv"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	headerColor = "366092"

	// excel sheet names are limited to 31 characters
	maxSheetName = 31
)

func renderCSV(doc *document) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)

	for i, s := range doc.Sections {
		if i > 0 {
			if err := w.Write([]string{}); err != nil {
				return nil, err
			}
		}

		if err := w.Write([]string{s.Title}); err != nil {
			return nil, err
		}

		if err := w.Write(s.Header); err != nil {
			return nil, err
		}

		if err := w.WriteAll(s.Rows); err != nil {
			return nil, err
		}
	}

	w.Flush()

	return buf.Bytes(), w.Error()
}

func renderXLSX(doc *document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
	})
	if err != nil {
		return nil, errors.Wrap(err, "header style")
	}

	for i, s := range doc.Sections {
		name := s.Title
		if len(name) > maxSheetName {
			name = name[:maxSheetName]
		}

		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}

		if err := writeSheet(f, name, s, headerStyle); err != nil {
			return nil, errors.Wrap(err, "sheet "+name)
		}
	}

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, s section, headerStyle int) error {
	header := make([]interface{}, len(s.Header))
	for i, h := range s.Header {
		header[i] = h
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	lastHeader, err := excelize.CoordinatesToCellName(len(s.Header), 1)
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return err
	}

	for r, row := range s.Rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = v
		}

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}

		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(s.Header))
	if err != nil {
		return err
	}

	return f.SetColWidth(sheet, "A", lastCol, 22)
}

func renderPDF(doc *document) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(doc.Title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generated: "+doc.Generated.Format("2006-01-02 15:04:05"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	for _, s := range doc.Sections {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 8, tr(s.Title), "", 1, "L", false, 0, "")

		colWidth := usable / float64(len(s.Header))

		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(0x36, 0x60, 0x92)
		pdf.SetTextColor(255, 255, 255)

		for _, h := range s.Header {
			pdf.CellFormat(colWidth, 7, tr(h), "1", 0, "C", true, 0, "")
		}

		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 7)
		pdf.SetTextColor(0, 0, 0)

		if len(s.Rows) == 0 {
			pdf.CellFormat(usable, 6, "No data", "1", 1, "C", false, 0, "")
		}

		for _, row := range s.Rows {
			for _, v := range row {
				pdf.CellFormat(colWidth, 6, fit(pdf, tr(v), colWidth-2), "1", 0, "L", false, 0, "")
			}

			pdf.Ln(-1)
		}

		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// fit truncates s to the cell width.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}

	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}

	return s + "..."
}
