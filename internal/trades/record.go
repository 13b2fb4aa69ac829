package trades

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Decision is the model's verdict on a trade signal.
type Decision int

const (
	DecisionRejected Decision = 0
	DecisionAccepted Decision = 1
)

func (d Decision) String() string {
	switch d {
	case DecisionAccepted:
		return "accepted"
	case DecisionRejected:
		return "rejected"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

func (d Decision) Rejected() bool { return d == DecisionRejected }

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDecision accepts the integer-like 0/1 encodings a CSV export may carry
// ("0", "1", "0.0", "1.0"). Anything else is rejected instead of being coerced.
func ParseDecision(raw string) (Decision, error) {
	s := strings.TrimSpace(raw)
	switch s {
	case "0":
		return DecisionRejected, nil
	case "1":
		return DecisionAccepted, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadDecision, raw)
	}
	switch f {
	case 0:
		return DecisionRejected, nil
	case 1:
		return DecisionAccepted, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadDecision, raw)
}

// TradeRecord is one executed trade as it appears in the source.
type TradeRecord struct {
	EntryTime       time.Time       `json:"entry_time"`
	Symbol          string          `json:"symbol"`
	EntryType       string          `json:"entry_type"`
	EntryPrice      decimal.Decimal `json:"entry_price"`
	ExitPrice       decimal.Decimal `json:"exit_price"`
	ConfidenceScore float64         `json:"confidence_score"`
	ModelDecision   Decision        `json:"model_decision"`
}

// Columns required in every source, in canonical order.
var Columns = []string{
	ColEntryTime,
	ColSymbol,
	ColEntryType,
	ColEntryPrice,
	ColExitPrice,
	ColConfidence,
	ColModelDecision,
}

const (
	ColEntryTime     = "entry_time"
	ColSymbol        = "symbol"
	ColEntryType     = "entry_type"
	ColEntryPrice    = "entry_price"
	ColExitPrice     = "exit_price"
	ColConfidence    = "confidence_score"
	ColModelDecision = "model_decision"
)
