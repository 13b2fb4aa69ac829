package trades

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSource reads trades from a CSV file with a header row.
type CSVSource struct {
	Path     string
	Location *time.Location
}

func NewCSVSource(path string, loc *time.Location) *CSVSource {
	return &CSVSource{Path: strings.TrimSpace(path), Location: loc}
}

func (s *CSVSource) Describe() string {
	return filepath.Base(s.Path)
}

func (s *CSVSource) Load(ctx context.Context) ([]TradeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Source: s.Describe(), Err: err}
	}
	if s.Path == "" {
		return nil, &LoadError{Err: ErrSourceMissing}
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Source: s.Path, Err: ErrSourceMissing}
		}
		return nil, &LoadError{Source: s.Path, Err: err}
	}
	return decodeCSV(s.Describe(), data, s.Location)
}

func decodeCSV(name string, data []byte, loc *time.Location) ([]TradeRecord, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if err := checkHeader(name, data); err != nil {
		return nil, err
	}
	var rows []rawRow
	if err := gocsv.Unmarshal(bytes.NewReader(data), &rows); err != nil {
		return nil, &LoadError{Source: name, Err: err}
	}
	out := make([]TradeRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := row.toRecord(name, i+1, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// checkHeader fails on the first required column absent from the header row.
func checkHeader(name string, data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return &LoadError{Source: name, Err: err}
	}
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}
	for _, col := range Columns {
		if !present[col] {
			return &LoadError{Source: name, Column: col, Err: ErrMissingColumn}
		}
	}
	return nil
}
