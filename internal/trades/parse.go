package trades

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// zoned layouts carry their own offset; naive layouts are read in the source location.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05 -0700 MST",
	}
	naiveLayouts = []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04",
		"2006-01-02T15:04",
		"2006-01-02",
	}
)

// ParseTimestamp parses an entry_time cell. A timestamp with an offset keeps
// it, so its calendar date is the one written in the data; naive values are
// read in loc. A nil loc means UTC.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrBadTimestamp)
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, raw)
}

// rawRow is one source row before typing. The csv tags drive gocsv decoding.
type rawRow struct {
	EntryTime       string `csv:"entry_time"`
	Symbol          string `csv:"symbol"`
	EntryType       string `csv:"entry_type"`
	EntryPrice      string `csv:"entry_price"`
	ExitPrice       string `csv:"exit_price"`
	ConfidenceScore string `csv:"confidence_score"`
	ModelDecision   string `csv:"model_decision"`
}

func (r rawRow) toRecord(source string, row int, loc *time.Location) (TradeRecord, error) {
	fail := func(col string, err error) (TradeRecord, error) {
		return TradeRecord{}, &LoadError{Source: source, Row: row, Column: col, Err: err}
	}
	entryTime, err := ParseTimestamp(r.EntryTime, loc)
	if err != nil {
		return fail(ColEntryTime, err)
	}
	entry, err := parsePrice(r.EntryPrice)
	if err != nil {
		return fail(ColEntryPrice, err)
	}
	exit, err := parsePrice(r.ExitPrice)
	if err != nil {
		return fail(ColExitPrice, err)
	}
	conf, err := strconv.ParseFloat(strings.TrimSpace(r.ConfidenceScore), 64)
	if err != nil {
		return fail(ColConfidence, fmt.Errorf("%w: %q", ErrBadNumber, r.ConfidenceScore))
	}
	decision, err := ParseDecision(r.ModelDecision)
	if err != nil {
		return fail(ColModelDecision, err)
	}
	return TradeRecord{
		EntryTime:       entryTime,
		Symbol:          strings.TrimSpace(r.Symbol),
		EntryType:       strings.TrimSpace(r.EntryType),
		EntryPrice:      entry,
		ExitPrice:       exit,
		ConfidenceScore: conf,
		ModelDecision:   decision,
	}, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrBadNumber, raw)
	}
	return d, nil
}
