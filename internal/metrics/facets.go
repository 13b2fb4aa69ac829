package metrics

import (
	"sort"
	"time"
)

// Facets describes the values observed in a batch, for populating filter
// controls.
type Facets struct {
	Symbols    []string  `json:"symbols"`
	EntryTypes []string  `json:"entry_types"`
	MinDate    time.Time `json:"min_date"`
	MaxDate    time.Time `json:"max_date"`
}

// FacetsOf lists distinct symbols and entry types in first-seen order and the
// first and last calendar dates as written in the data (midnight in each entry
// time's own location).
func FacetsOf(ts []Trade) Facets {
	f := Facets{Symbols: []string{}, EntryTypes: []string{}}
	seenSym := make(map[string]bool)
	seenType := make(map[string]bool)
	var minT, maxT time.Time
	for i, t := range ts {
		day := dayKey(t.EntryTime)
		if !seenSym[t.Symbol] {
			seenSym[t.Symbol] = true
			f.Symbols = append(f.Symbols, t.Symbol)
		}
		if !seenType[t.EntryType] {
			seenType[t.EntryType] = true
			f.EntryTypes = append(f.EntryTypes, t.EntryType)
		}
		if i == 0 || day < dayKey(minT) {
			minT = t.EntryTime
		}
		if i == 0 || day > dayKey(maxT) {
			maxT = t.EntryTime
		}
	}
	if len(ts) > 0 {
		f.MinDate = startOfDay(minT)
		f.MaxDate = startOfDay(maxT)
	}
	return f
}

// DefaultCriteria selects every symbol and type over the full date range.
func DefaultCriteria(f Facets) Criteria {
	return Criteria{
		Symbols:    NewSet(f.Symbols...),
		EntryTypes: NewSet(f.EntryTypes...),
		From:       f.MinDate,
		To:         f.MaxDate,
	}
}

// SortForDisplay returns a copy ordered by entry time, newest first. Ties keep
// load order. The input is not modified.
func SortForDisplay(ts []Trade) []Trade {
	out := make([]Trade, len(ts))
	copy(out, ts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	return out
}

// OutcomeGroup counts profitable and unprofitable trades in one category.
type OutcomeGroup struct {
	Key          string `json:"key"`
	Profitable   int    `json:"profitable"`
	Unprofitable int    `json:"unprofitable"`
}

func BySymbol(t Trade) string    { return t.Symbol }
func ByEntryType(t Trade) string { return t.EntryType }

// GroupByOutcome buckets trades by key, categories in first-seen order.
func GroupByOutcome(ts []Trade, key func(Trade) string) []OutcomeGroup {
	groups := []OutcomeGroup{}
	index := make(map[string]int)
	for _, t := range ts {
		k := key(t)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, OutcomeGroup{Key: k})
		}
		if t.Profitable {
			groups[i].Profitable++
		} else {
			groups[i].Unprofitable++
		}
	}
	return groups
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
