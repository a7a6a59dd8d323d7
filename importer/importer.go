// Package importer loads applicants from CSV exports of the registry. Rows
// that cannot be parsed or are rejected by the registry are collected and can
// be written to a failed-records file for correction.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nonsonwune/applicant_registry/registry"
)

// DefaultFailedDir receives failed-records files when Config.FailedDir is empty.
const DefaultFailedDir = "failed_imports"

// Error codes carried by ImportError.
const (
	CodeEmptyFile     = "EMPTY_FILE"
	CodeMalformed     = "MALFORMED_CSV"
	CodeMissingColumn = "MISSING_COLUMN"
	CodeInvalidValue  = "INVALID_VALUE"
	CodeRejected      = "REJECTED"
)

// ImportError describes a failed file or row. Row is the 1-based line in the
// source file, 0 for file-level errors.
type ImportError struct {
	Code    string
	Row     int
	Message string
	Err     error
}

func (e *ImportError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] row %d: %s", e.Code, e.Row, e.Message)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Adder receives the parsed applicants.
type Adder interface {
	Add(ctx context.Context, in registry.ApplicantInput) (int64, error)
}

// Config holds the configuration for data import
type Config struct {
	RequiredColumns []string
	ColumnMappings  []ColumnMapping
	FailedDir       string
	// DefaultRegion is used for rows naming a city without a region.
	DefaultRegion string
	// Comma is the field separator; zero detects ',' or ';' from the header.
	Comma rune
	// ValidateOnly parses every row without adding anything.
	ValidateOnly bool
}

// Result summarizes one import.
type Result struct {
	Total    int
	Imported int
	IDs      []int64
	Errors   []*ImportError

	Headers    []string
	FailedRows [][]string
}

// Failed is the number of rows that were not imported.
func (r *Result) Failed() int { return len(r.Errors) }

// Importer parses CSV files into registry inputs.
type Importer struct {
	target Adder
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// New returns an importer writing into target. Empty config fields take the
// defaults of the registry export.
func New(target Adder, config Config, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.RequiredColumns == nil {
		config.RequiredColumns = DefaultRequiredColumns
	}
	if config.ColumnMappings == nil {
		config.ColumnMappings = DefaultColumnMappings()
	}
	if config.FailedDir == "" {
		config.FailedDir = DefaultFailedDir
	}
	return &Importer{target: target, config: config, logger: logger, now: time.Now}
}

// ImportFile opens path and imports it.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import reads a CSV with a header line. File-level problems return an
// *ImportError; row problems are collected in the result.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = im.config.Comma
	if reader.Comma == 0 {
		reader.Comma = detectComma(data)
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ImportError{Code: CodeEmptyFile, Message: "file has no header line"}
	}
	if err != nil {
		return nil, &ImportError{Code: CodeMalformed, Message: err.Error(), Err: err}
	}

	columns := resolveColumns(headers, im.config.ColumnMappings)
	if err := im.validateHeaders(headers, columns); err != nil {
		return nil, err
	}

	res := &Result{Headers: headers}
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var line int
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}
			res.Total++
			res.fail(record, &ImportError{Code: CodeMalformed, Row: line, Message: err.Error(), Err: err})
			continue
		}
		if blank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		res.Total++

		in, ierr := im.transformRecord(record, columns, line)
		if ierr != nil {
			res.fail(record, ierr)
			continue
		}
		if im.config.ValidateOnly {
			res.Imported++
			continue
		}
		id, err := im.target.Add(ctx, in)
		if err != nil {
			res.fail(record, &ImportError{Code: CodeRejected, Row: line, Message: err.Error(), Err: err})
			continue
		}
		res.Imported++
		res.IDs = append(res.IDs, id)
	}

	im.logger.Info("import finished",
		"total", res.Total,
		"imported", res.Imported,
		"failed", res.Failed(),
		"validate_only", im.config.ValidateOnly,
	)
	for i, e := range res.Errors {
		if i == 10 {
			break
		}
		im.logger.Warn("import row failed", "row", e.Row, "code", e.Code, "error", e.Message)
	}
	return res, nil
}

func (res *Result) fail(record []string, err *ImportError) {
	res.Errors = append(res.Errors, err)
	res.FailedRows = append(res.FailedRows, record)
}

func (im *Importer) validateHeaders(headers []string, columns map[string]int) error {
	var missing []string
	for _, required := range im.config.RequiredColumns {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return &ImportError{
			Code:    CodeMissingColumn,
			Message: fmt.Sprintf("missing required columns: %s (found %s)", strings.Join(missing, ", "), strings.Join(headers, ", ")),
		}
	}
	return nil
}

func (im *Importer) transformRecord(record []string, columns map[string]int, line int) (registry.ApplicantInput, *ImportError) {
	var in registry.ApplicantInput
	for _, m := range im.config.ColumnMappings {
		i, ok := columns[m.SourceColumn]
		if !ok || i >= len(record) {
			continue
		}
		if err := m.TransformFunc(record[i], &in); err != nil {
			return in, &ImportError{
				Code:    CodeInvalidValue,
				Row:     line,
				Message: fmt.Sprintf("column %q: %v", m.SourceColumn, err),
				Err:     err,
			}
		}
	}
	if in.Region == "" && in.City != "" {
		in.Region = im.config.DefaultRegion
	}
	return in, nil
}

// SaveFailedRecords writes the failed rows of res with an extra Error column
// and returns the file path. Nothing is written when no row failed.
func (im *Importer) SaveFailedRecords(res *Result) (string, error) {
	if res == nil || len(res.Errors) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(im.config.FailedDir, 0o755); err != nil {
		return "", fmt.Errorf("create failed records directory: %w", err)
	}
	path := filepath.Join(im.config.FailedDir,
		fmt.Sprintf("failed_records_%s.csv", im.now().Format("20060102_150405")))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create failed records file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := append(append([]string(nil), res.Headers...), "Error")
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write failed records header: %w", err)
	}
	for i, record := range res.FailedRows {
		row := append(append([]string(nil), record...), res.Errors[i].Error())
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write failed record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush failed records: %w", err)
	}
	im.logger.Info("failed records saved", "path", path, "rows", len(res.FailedRows))
	return path, nil
}

func detectComma(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
