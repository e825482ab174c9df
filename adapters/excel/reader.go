package excel

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kpijoin/adapters/datareadiness/coercer"
	"kpijoin/domain/table"
	"kpijoin/internal/errors"

	"github.com/xuri/excelize/v2"
)

// FileType is a recognised upload encoding
type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
)

// DetectFileType classifies a file by its extension only
func DetectFileType(filename string) (FileType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FileTypeCSV, nil
	case ".xlsx":
		return FileTypeXLSX, nil
	default:
		return "", errors.UnsupportedFormat(filename)
	}
}

// DataReader handles reading Excel and CSV files into tables
type DataReader struct {
	filename string
	fileType FileType
	coercer  *coercer.TypeCoercer
}

// NewDataReader creates a reader for the given file name
func NewDataReader(filename string) (*DataReader, error) {
	fileType, err := DetectFileType(filename)
	if err != nil {
		return nil, err
	}
	return &DataReader{
		filename: filename,
		fileType: fileType,
		coercer:  coercer.NewTypeCoercer(coercer.DefaultCoercionConfig()),
	}, nil
}

// ReadTable parses an uploaded file whose encoding is chosen by its name
func ReadTable(filename string, src io.Reader) (*table.Table, error) {
	reader, err := NewDataReader(filename)
	if err != nil {
		return nil, err
	}
	return reader.Read(src)
}

// FileType returns the detected encoding
func (r *DataReader) FileType() FileType { return r.fileType }

// ReadFile opens the reader's file name from disk and parses it
func (r *DataReader) ReadFile() (*table.Table, error) {
	file, err := os.Open(r.filename)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrapf(err, "Could not open %s", filepath.Base(r.filename)))
	}
	defer file.Close()
	return r.Read(file)
}

// Read parses src according to the reader's file type
func (r *DataReader) Read(src io.Reader) (*table.Table, error) {
	start := time.Now()

	var rows [][]string
	var dateColumns map[int]bool
	var err error
	switch r.fileType {
	case FileTypeCSV:
		rows, err = r.readCSVRows(src)
	case FileTypeXLSX:
		rows, dateColumns, err = r.readExcelRows(src)
	default:
		return nil, errors.UnsupportedFormat(r.filename)
	}
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrapf(err, "Could not read %s", filepath.Base(r.filename)))
	}

	t, err := r.buildTable(rows, dateColumns)
	if err != nil {
		return nil, err
	}

	log.Printf("[DataReader] %s file %s processed in %.2fms (%d columns, %d rows)",
		strings.ToUpper(string(r.fileType)), filepath.Base(r.filename),
		float64(time.Since(start).Nanoseconds())/1e6, t.Width(), t.Len())
	return t, nil
}

// readCSVRows reads every CSV record; records may be shorter than the header
func (r *DataReader) readCSVRows(src io.Reader) ([][]string, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// readExcelRows reads the first worksheet using Excel's native cell types.
// Numbers come back unformatted, date-styled cells as ISO text and booleans
// as TRUE/FALSE. The returned set names the columns whose body cells are all
// dates.
func (r *DataReader) readExcelRows(src io.Reader) ([][]string, map[int]bool, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	typer := newCellTyper(f, sheet)
	filled := make(map[int]int)
	dated := make(map[int]int)
	for i := 1; i < len(rows); i++ {
		for j, raw := range rows[i] {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			text, isDate := typer.normalize(j, i, raw)
			rows[i][j] = text
			filled[j]++
			if isDate {
				dated[j]++
			}
		}
	}

	dateColumns := make(map[int]bool)
	for j, n := range dated {
		if n == filled[j] {
			dateColumns[j] = true
		}
	}
	return rows, dateColumns, nil
}

// buildTable turns raw rows (header first) into a typed table. Columns listed
// in dateColumns hold ISO date text and become timestamp columns.
func (r *DataReader) buildTable(rows [][]string, dateColumns map[int]bool) (*table.Table, error) {
	rows = dropBlankRows(rows)
	if len(rows) == 0 {
		return nil, errors.InvalidInput(fmt.Sprintf("No columns to parse from %s", filepath.Base(r.filename)))
	}

	headers := normalizeHeaders(rows[0])
	body := rows[1:]

	raw := make([][]string, len(headers))
	for j := range raw {
		raw[j] = make([]string, len(body))
	}
	for i, row := range body {
		if len(row) > len(headers) {
			return nil, errors.InvalidInput(fmt.Sprintf("Error tokenizing %s: expected %d fields in line %d, saw %d",
				filepath.Base(r.filename), len(headers), i+2, len(row)))
		}
		for j, cell := range row {
			raw[j][i] = cell
		}
	}

	columns := make([]*table.Column, len(headers))
	for j, name := range headers {
		values := r.coercer.CoerceColumn(raw[j])
		if dateColumns[j] {
			values = toTimestamps(values)
		}
		columns[j] = table.NewColumn(name, values)
	}
	return table.New(columns...)
}

func toTimestamps(values []table.Value) []table.Value {
	out := make([]table.Value, len(values))
	for i, v := range values {
		if v.Type != table.ValueTypeString {
			out[i] = v
			continue
		}
		ts, ok := coercer.ParseTimestamp(v.Str)
		if !ok {
			return values
		}
		out[i] = table.Timestamp(ts)
	}
	return out
}

// normalizeHeaders trims names, names blank headers after their position and
// disambiguates duplicates as name, name.1, name.2, ...
func normalizeHeaders(row []string) []string {
	headers := make([]string, len(row))
	seen := make(map[string]int, len(row))
	taken := make(map[string]bool, len(row))
	for i, h := range row {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		taken[h] = true
		headers[i] = h
	}
	for i, h := range headers {
		n, dup := seen[h]
		seen[h] = n + 1
		if !dup {
			continue
		}
		candidate := fmt.Sprintf("%s.%d", h, n)
		for taken[candidate] {
			n++
			candidate = fmt.Sprintf("%s.%d", h, n)
		}
		seen[h] = n + 1
		taken[candidate] = true
		headers[i] = candidate
	}
	return headers
}

func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0:0]
	for _, row := range rows {
		blank := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out
}

// WriteCSV writes a table as CSV with a header row
func WriteCSV(w io.Writer, t *table.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns()); err != nil {
		return err
	}
	record := make([]string, t.Width())
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i) {
			record[j] = v.Text()
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// EncodeCSV renders a table to CSV bytes
func EncodeCSV(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
