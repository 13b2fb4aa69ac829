package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Set is a selection of allowed values. A nil Set allows everything; a
// non-nil empty Set allows nothing.
type Set map[string]struct{}

// NewSet always returns a non-nil Set, even for no values.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s Set) Allows(v string) bool {
	if s == nil {
		return true
	}
	_, ok := s[v]
	return ok
}

// Values returns the members sorted; nil for a nil Set.
func (s Set) Values() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Criteria selects trades. All active clauses must hold. From and To are
// calendar dates compared against the entry time's own date, inclusive; a
// zero value leaves that end open.
type Criteria struct {
	Symbols      Set
	EntryTypes   Set
	From         time.Time
	To           time.Time
	OnlyWinners  bool
	OnlyRejected bool
}

func (c Criteria) Match(t Trade) bool {
	if !c.Symbols.Allows(t.Symbol) || !c.EntryTypes.Allows(t.EntryType) {
		return false
	}
	day := dayKey(t.EntryTime)
	if !c.From.IsZero() && day < dayKey(c.From) {
		return false
	}
	if !c.To.IsZero() && day > dayKey(c.To) {
		return false
	}
	if c.OnlyWinners && !t.Profitable {
		return false
	}
	if c.OnlyRejected && !t.ModelDecision.Rejected() {
		return false
	}
	return true
}

// Summary holds the headline statistics of a filtered set.
type Summary struct {
	TradeCount     int             `json:"trade_count"`
	Winners        int             `json:"winners"`
	WinRate        Mean            `json:"win_rate"`
	TotalPnL       decimal.Decimal `json:"total_pnl"`
	MeanConfidence Mean            `json:"mean_confidence"`
}

// Filter returns the trades matching c in their input order, and the summary
// of that subset. Derived fields are carried through untouched.
func Filter(all []Trade, c Criteria) ([]Trade, Summary) {
	out := make([]Trade, 0, len(all))
	for _, t := range all {
		if c.Match(t) {
			out = append(out, t)
		}
	}
	return out, Summarize(out)
}

func Summarize(ts []Trade) Summary {
	s := Summary{TradeCount: len(ts), TotalPnL: decimal.Zero}
	var confSum float64
	for _, t := range ts {
		if t.Profitable {
			s.Winners++
		}
		s.TotalPnL = s.TotalPnL.Add(t.PnLValue)
		confSum += t.ConfidenceScore
	}
	s.WinRate = MeanOf(float64(s.Winners), s.TradeCount)
	s.MeanConfidence = MeanOf(confSum, s.TradeCount)
	return s
}

func dayKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
