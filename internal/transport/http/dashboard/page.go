package dashboardhttp

import (
	"fmt"
	"html/template"
	"net/http"

	"tradelens/internal/metrics"
	"tradelens/internal/store"

	"github.com/gin-gonic/gin"
)

const entryTimeLayout = "2006-01-02 15:04:05"

type option struct {
	Value    string
	Selected bool
}

type statsView struct {
	Count          int
	WinRate        string
	TotalPnL       string
	MeanConfidence string
}

type rowView struct {
	EntryTime     string
	Symbol        string
	EntryType     string
	EntryPrice    string
	ExitPrice     string
	PnL           string
	PnLCumulative string
	Confidence    string
	Decision      string
	Profitable    bool
}

type chartLink struct {
	Title  string
	URL    template.URL
	PNGURL template.URL
}

type pageView struct {
	Error        string
	Snapshot     snapshotView
	Symbols      []option
	EntryTypes   []option
	From         string
	To           string
	MinDate      string
	MaxDate      string
	OnlyWinners  bool
	OnlyRejected bool
	Stats        statsView
	Rows         []rowView
	Charts       []chartLink
	PNGEnabled   bool
}

func (r *Router) handleDashboard(c *gin.Context) {
	crit, err := criteriaFromQuery(c.Request.URL.Query(), r.loc)
	if err != nil {
		c.HTML(http.StatusBadRequest, "dashboard.html", pageView{Error: err.Error()})
		return
	}
	snap, err := r.trades.Snapshot(c.Request.Context())
	if err != nil {
		c.HTML(statusForLoadError(err), "dashboard.html", pageView{Error: err.Error()})
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", r.buildPage(snap, crit))
}

func (r *Router) buildPage(snap *store.Snapshot, crit metrics.Criteria) pageView {
	filtered, summary := metrics.Filter(snap.Trades, crit)
	view := pageView{
		Snapshot:     viewSnapshot(snap),
		Symbols:      options(snap.Facets.Symbols, crit.Symbols),
		EntryTypes:   options(snap.Facets.EntryTypes, crit.EntryTypes),
		From:         formatDate(crit.From),
		To:           formatDate(crit.To),
		MinDate:      formatDate(snap.Facets.MinDate),
		MaxDate:      formatDate(snap.Facets.MaxDate),
		OnlyWinners:  crit.OnlyWinners,
		OnlyRejected: crit.OnlyRejected,
		Stats:        viewStats(summary),
		Charts:       chartLinks(encodeCriteria(crit, snap.Facets).Encode()),
		PNGEnabled:   r.pngEnabled,
	}
	if view.From == "" {
		view.From = view.MinDate
	}
	if view.To == "" {
		view.To = view.MaxDate
	}
	for _, t := range metrics.SortForDisplay(filtered) {
		view.Rows = append(view.Rows, rowView{
			EntryTime:     t.EntryTime.Format(entryTimeLayout),
			Symbol:        t.Symbol,
			EntryType:     t.EntryType,
			EntryPrice:    t.EntryPrice.String(),
			ExitPrice:     t.ExitPrice.String(),
			PnL:           t.PnLValue.String(),
			PnLCumulative: t.PnLCumulative.String(),
			Confidence:    fmt.Sprintf("%.2f", t.ConfidenceScore),
			Decision:      t.ModelDecision.String(),
			Profitable:    t.Profitable,
		})
	}
	return view
}

var chartTitles = []struct{ name, title string }{
	{ChartCumulative, "Cumulative PnL over time"},
	{ChartByType, "Trade type distribution"},
	{ChartBySymbol, "Symbol distribution"},
}

// chartLinks builds iframe URLs. The query is produced by url.Values.Encode
// so it is safe to mark as a URL.
func chartLinks(query string) []chartLink {
	out := make([]chartLink, 0, len(chartTitles))
	for _, ch := range chartTitles {
		out = append(out, chartLink{
			Title:  ch.title,
			URL:    template.URL("/charts/" + ch.name + "?" + query),
			PNGURL: template.URL("/charts/" + ch.name + "/png?" + query),
		})
	}
	return out
}

// options marks every facet value allowed by sel; a nil selection selects all.
func options(values []string, sel metrics.Set) []option {
	out := make([]option, len(values))
	for i, v := range values {
		out[i] = option{Value: v, Selected: sel.Allows(v)}
	}
	return out
}

func viewStats(s metrics.Summary) statsView {
	winRate := "n/a"
	if v, ok := s.WinRate.Value(); ok {
		winRate = fmt.Sprintf("%.2f%%", v*100)
	}
	return statsView{
		Count:          s.TradeCount,
		WinRate:        winRate,
		TotalPnL:       s.TotalPnL.StringFixed(2),
		MeanConfidence: s.MeanConfidence.Text("%.1f"),
	}
}
