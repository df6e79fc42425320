package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// render turns a dataset into a downloadable file in the requested
// format. The filename carries the export date.
func render(ds *dataset, format string) (*File, error) {
	date := time.Now().Format("2006-01-02")

	switch format {
	case FormatCSV:
		data, err := csvBytes(ds)
		if err != nil {
			return nil, err
		}
		return &File{
			Name:        fmt.Sprintf("%s-%s.csv", ds.title, date),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatExcel:
		data, err := excelBytes(ds)
		if err != nil {
			return nil, err
		}
		return &File{
			Name:        fmt.Sprintf("%s-%s.xlsx", ds.title, date),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	case FormatPDF:
		data, err := pdfBytes(ds)
		if err != nil {
			return nil, err
		}
		return &File{
			Name:        fmt.Sprintf("%s-%s.pdf", ds.title, date),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	case FormatJSON:
		data, err := jsonBytes(ds)
		if err != nil {
			return nil, err
		}
		return &File{
			Name:        fmt.Sprintf("%s-%s.json", ds.title, date),
			ContentType: "application/json",
			Data:        data,
		}, nil
	}

	return nil, fmt.Errorf("unsupported export format: %s", format)
}

func csvBytes(ds *dataset) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(ds.headers); err != nil {
		return nil, err
	}
	for _, row := range ds.rows {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func excelBytes(ds *dataset) ([]byte, error) {
	file := excelize.NewFile()
	defer func() {
		if err := file.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close excel file")
		}
	}()

	sheet := file.GetSheetName(0)

	header := make([]interface{}, len(ds.headers))
	for i, h := range ds.headers {
		header[i] = h
	}
	if err := file.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, row := range ds.rows {
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := file.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func pdfBytes(ds *dataset) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 10, ds.title)
	pdf.Ln(12)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(ds.headers))

	pdf.SetFont("Arial", "B", 7)
	for _, h := range ds.headers {
		pdf.CellFormat(colWidth, 6, truncate(h, 18), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	for _, row := range ds.rows {
		for _, v := range row {
			pdf.CellFormat(colWidth, 6, truncate(v, 18), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func jsonBytes(ds *dataset) ([]byte, error) {
	objects := make([]map[string]string, 0, len(ds.rows))
	for _, row := range ds.rows {
		obj := make(map[string]string, len(ds.headers))
		for i, h := range ds.headers {
			if i < len(row) {
				obj[h] = row[i]
			}
		}
		objects = append(objects, obj)
	}
	return json.MarshalIndent(objects, "", "  ")
}

// truncate shortens a cell value to max characters without splitting a
// multi-byte character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
