package dashboardhttp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tradelens/internal/logger"
	"tradelens/internal/metrics"
	"tradelens/internal/store"
	"tradelens/internal/trades"
	"tradelens/internal/visual"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Chart names served under /charts/:name.
const (
	ChartCumulative = "cumulative"
	ChartByType     = "by-type"
	ChartBySymbol   = "by-symbol"
)

// Router 挂载看板页面与 /api 接口。
type Router struct {
	trades     SnapshotProvider
	charts     visual.Options
	pngEnabled bool
	pngTimeout time.Duration
	loc        *time.Location
	schema     *jsonschema.Schema
}

func NewRouter(cfg ServerConfig) (*Router, error) {
	if cfg.Trades == nil {
		return nil, errors.New("dashboard router requires a trade snapshot provider")
	}
	schema, err := compileQuerySchema()
	if err != nil {
		return nil, fmt.Errorf("compile query schema failed: %w", err)
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Router{
		trades:     cfg.Trades,
		charts:     cfg.Charts,
		pngEnabled: cfg.PNGEnabled,
		pngTimeout: cfg.PNGTimeout,
		loc:        loc,
		schema:     schema,
	}, nil
}

// Register 将所有路由挂载到 engine。
func (r *Router) Register(router *gin.Engine) {
	router.GET("/", r.handleDashboard)
	router.GET("/charts/:name", r.handleChart)
	router.GET("/charts/:name/png", r.handleChartPNG)

	api := router.Group("/api")
	api.GET("/trades", r.handleTrades)
	api.POST("/trades/query", r.handleTradesQuery)
	api.GET("/facets", r.handleFacets)
	api.GET("/report", r.handleReport)
	api.POST("/reload", r.handleReload)
}

// snapshot loads the current batch, answering 503 with the load error when
// the source cannot be read.
func (r *Router) snapshot(c *gin.Context) (*store.Snapshot, bool) {
	snap, err := r.trades.Snapshot(c.Request.Context())
	if err != nil {
		logger.Errorf("[api] trade snapshot unavailable ip=%s err=%v", c.ClientIP(), err)
		c.JSON(statusForLoadError(err), gin.H{"error": err.Error()})
		return nil, false
	}
	return snap, true
}

func statusForLoadError(err error) int {
	if trades.IsLoadError(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

type snapshotView struct {
	ID       string    `json:"id" yaml:"id"`
	Version  int64     `json:"version" yaml:"version"`
	LoadedAt time.Time `json:"loaded_at" yaml:"loaded_at"`
	Source   string    `json:"source" yaml:"source"`
	Total    int       `json:"total_trades" yaml:"total_trades"`
}

func viewSnapshot(s *store.Snapshot) snapshotView {
	return snapshotView{ID: s.ID, Version: s.Version, LoadedAt: s.LoadedAt, Source: s.Source, Total: len(s.Trades)}
}

func (r *Router) handleTrades(c *gin.Context) {
	crit, err := criteriaFromQuery(c.Request.URL.Query(), r.loc)
	if err != nil {
		badRequest(c, err)
		return
	}
	r.respondTrades(c, crit)
}

func (r *Router) handleTradesQuery(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}
	crit, err := decodeQuery(raw, r.schema, r.loc)
	if err != nil {
		badRequest(c, err)
		return
	}
	r.respondTrades(c, crit)
}

func (r *Router) respondTrades(c *gin.Context, crit metrics.Criteria) {
	snap, ok := r.snapshot(c)
	if !ok {
		return
	}
	filtered, summary := metrics.Filter(snap.Trades, crit)
	c.JSON(http.StatusOK, gin.H{
		"trades":   filtered,
		"summary":  summary,
		"snapshot": viewSnapshot(snap),
	})
}

type facetsView struct {
	Symbols    []string `json:"symbols" yaml:"symbols"`
	EntryTypes []string `json:"entry_types" yaml:"entry_types"`
	MinDate    string   `json:"min_date,omitempty" yaml:"min_date,omitempty"`
	MaxDate    string   `json:"max_date,omitempty" yaml:"max_date,omitempty"`
}

func viewFacets(f metrics.Facets) facetsView {
	return facetsView{
		Symbols:    f.Symbols,
		EntryTypes: f.EntryTypes,
		MinDate:    formatDate(f.MinDate),
		MaxDate:    formatDate(f.MaxDate),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func (r *Router) handleFacets(c *gin.Context) {
	snap, ok := r.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewFacets(snap.Facets))
}

type criteriaView struct {
	Symbols      []string `json:"symbols" yaml:"symbols"`
	EntryTypes   []string `json:"entry_types" yaml:"entry_types"`
	From         string   `json:"from,omitempty" yaml:"from,omitempty"`
	To           string   `json:"to,omitempty" yaml:"to,omitempty"`
	OnlyWinners  bool     `json:"only_winners" yaml:"only_winners"`
	OnlyRejected bool     `json:"only_rejected" yaml:"only_rejected"`
}

type summaryView struct {
	TradeCount     int      `json:"trade_count" yaml:"trade_count"`
	Winners        int      `json:"winners" yaml:"winners"`
	WinRate        *float64 `json:"win_rate" yaml:"win_rate"`
	TotalPnL       string   `json:"total_pnl" yaml:"total_pnl"`
	MeanConfidence *float64 `json:"mean_confidence" yaml:"mean_confidence"`
}

// reportView 是 /api/report 的导出结构，YAML 与 JSON 共用。
type reportView struct {
	Snapshot    snapshotView           `json:"snapshot" yaml:"snapshot"`
	Criteria    criteriaView           `json:"criteria" yaml:"criteria"`
	Summary     summaryView            `json:"summary" yaml:"summary"`
	Facets      facetsView             `json:"facets" yaml:"facets"`
	ByEntryType []metrics.OutcomeGroup `json:"by_entry_type" yaml:"by_entry_type"`
	BySymbol    []metrics.OutcomeGroup `json:"by_symbol" yaml:"by_symbol"`
}

func buildReport(snap *store.Snapshot, crit metrics.Criteria) reportView {
	filtered, summary := metrics.Filter(snap.Trades, crit)
	return reportView{
		Snapshot: viewSnapshot(snap),
		Criteria: criteriaView{
			Symbols:      crit.Symbols.Values(),
			EntryTypes:   crit.EntryTypes.Values(),
			From:         formatDate(crit.From),
			To:           formatDate(crit.To),
			OnlyWinners:  crit.OnlyWinners,
			OnlyRejected: crit.OnlyRejected,
		},
		Summary: summaryView{
			TradeCount:     summary.TradeCount,
			Winners:        summary.Winners,
			WinRate:        summary.WinRate.Ptr(),
			TotalPnL:       summary.TotalPnL.String(),
			MeanConfidence: summary.MeanConfidence.Ptr(),
		},
		Facets:      viewFacets(snap.Facets),
		ByEntryType: metrics.GroupByOutcome(filtered, metrics.ByEntryType),
		BySymbol:    metrics.GroupByOutcome(filtered, metrics.BySymbol),
	}
}

func (r *Router) handleReport(c *gin.Context) {
	crit, err := criteriaFromQuery(c.Request.URL.Query(), r.loc)
	if err != nil {
		badRequest(c, err)
		return
	}
	snap, ok := r.snapshot(c)
	if !ok {
		return
	}
	report := buildReport(snap, crit)
	switch strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "yaml"))) {
	case "json":
		c.JSON(http.StatusOK, report)
	case "yaml", "yml":
		out, err := yaml.Marshal(report)
		if err != nil {
			logger.Errorf("[api] report yaml encode failed err=%v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", out)
	default:
		badRequest(c, paramError("format", c.Query("format"), "must be yaml or json"))
	}
}

func (r *Router) handleReload(c *gin.Context) {
	snap, err := r.trades.Reload(c.Request.Context())
	if err != nil {
		logger.Errorf("[api] reload failed ip=%s err=%v", c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] reload ip=%s version=%d trades=%d", c.ClientIP(), snap.Version, len(snap.Trades))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "snapshot": viewSnapshot(snap)})
}

// buildChart returns nil for an unknown name.
func (r *Router) buildChart(name string, filtered []metrics.Trade) components.Charter {
	switch name {
	case ChartCumulative:
		return visual.CumulativeChart(filtered, r.charts)
	case ChartByType:
		return visual.OutcomeHistogram("Trades by entry type", metrics.GroupByOutcome(filtered, metrics.ByEntryType), r.charts)
	case ChartBySymbol:
		return visual.OutcomeHistogram("Trades by symbol", metrics.GroupByOutcome(filtered, metrics.BySymbol), r.charts)
	default:
		return nil
	}
}

// chartHTML renders the named chart for the request's criteria. It writes the
// error response itself and returns ok=false on failure.
func (r *Router) chartHTML(c *gin.Context) ([]byte, bool) {
	name := c.Param("name")
	crit, err := criteriaFromQuery(c.Request.URL.Query(), r.loc)
	if err != nil {
		badRequest(c, err)
		return nil, false
	}
	snap, ok := r.snapshot(c)
	if !ok {
		return nil, false
	}
	filtered, _ := metrics.Filter(snap.Trades, crit)
	chart := r.buildChart(name, filtered)
	if chart == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown chart %q", name)})
		return nil, false
	}
	html, err := visual.RenderPage(chart)
	if err != nil {
		logger.Errorf("[api] render chart %s failed err=%v", name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return html, true
}

func (r *Router) handleChart(c *gin.Context) {
	html, ok := r.chartHTML(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (r *Router) handleChartPNG(c *gin.Context) {
	if !r.pngEnabled {
		c.JSON(http.StatusNotFound, gin.H{"error": "png export disabled"})
		return
	}
	html, ok := r.chartHTML(c)
	if !ok {
		return
	}
	png, err := visual.RenderPNG(c.Request.Context(), html, r.charts.Width, r.charts.Height, r.pngTimeout)
	if err != nil {
		logger.Errorf("[api] chart png %s failed ip=%s err=%v", c.Param("name"), c.ClientIP(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", c.Param("name")+".png"))
	c.Data(http.StatusOK, "image/png", png)
}
