package trades

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceMissing = errors.New("source not found")
	ErrMissingColumn = errors.New("missing required column")
	ErrBadTimestamp  = errors.New("unparseable timestamp")
	ErrBadDecision   = errors.New("model_decision must be 0 or 1")
	ErrBadNumber     = errors.New("invalid number")
)

// LoadError reports why a batch could not be loaded. Row is the 1-based data
// row (header excluded) and is zero for source-level failures.
type LoadError struct {
	Source string
	Row    int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("load trades")
	if e.Source != "" {
		b.WriteString(" from ")
		b.WriteString(e.Source)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, ": row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, " column %s", e.Column)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err carries a *LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
