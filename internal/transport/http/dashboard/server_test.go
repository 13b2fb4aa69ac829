package dashboardhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tradelens/internal/metrics"
	"tradelens/internal/store"
	"tradelens/internal/trades"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeTrades struct {
	snap      *store.Snapshot
	err       error
	reloadErr error
	reloads   int
}

func (f *fakeTrades) Snapshot(context.Context) (*store.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func (f *fakeTrades) Reload(context.Context) (*store.Snapshot, error) {
	f.reloads++
	if f.reloadErr != nil {
		return nil, f.reloadErr
	}
	f.snap.Version++
	return f.snap, nil
}

func record(day int, sym, typ string, entry, exit int64, conf float64, d trades.Decision) trades.TradeRecord {
	return trades.TradeRecord{
		EntryTime:       time.Date(2024, 3, day, 9+day, 0, 0, 0, time.UTC),
		Symbol:          sym,
		EntryType:       typ,
		EntryPrice:      decimal.NewFromInt(entry),
		ExitPrice:       decimal.NewFromInt(exit),
		ConfidenceScore: conf,
		ModelDecision:   d,
	}
}

func newFake() *fakeTrades {
	derived := metrics.Derive([]trades.TradeRecord{
		record(1, "AAPL", "breakout", 100, 110, 0.8, trades.DecisionAccepted),
		record(2, "AAPL", "breakout", 50, 40, 0.6, trades.DecisionRejected),
		record(3, "MSFT", "reversal", 200, 205, 0.9, trades.DecisionAccepted),
	})
	return &fakeTrades{snap: &store.Snapshot{
		ID:       "snap-1",
		Version:  1,
		LoadedAt: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Source:   "executed_trades.csv",
		Trades:   derived,
		Facets:   metrics.FacetsOf(derived),
	}}
}

func newTestServer(t *testing.T, provider SnapshotProvider) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{Addr: ":0", Trades: provider})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

type tradesResponse struct {
	Trades []struct {
		Symbol        string `json:"symbol"`
		PnLCumulative string `json:"pnl_cumulative"`
		Profitable    bool   `json:"profitable"`
		ModelDecision string `json:"model_decision"`
	} `json:"trades"`
	Summary struct {
		TradeCount     int      `json:"trade_count"`
		Winners        int      `json:"winners"`
		WinRate        *float64 `json:"win_rate"`
		TotalPnL       string   `json:"total_pnl"`
		MeanConfidence *float64 `json:"mean_confidence"`
	} `json:"summary"`
	Snapshot struct {
		ID      string `json:"id"`
		Version int64  `json:"version"`
		Total   int    `json:"total_trades"`
	} `json:"snapshot"`
}

func decodeTrades(t *testing.T, rec *httptest.ResponseRecorder) tradesResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out tradesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNewServer_RequiresProvider(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(t, newFake()), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPITrades(t *testing.T) {
	srv := newTestServer(t, newFake())

	t.Run("no params returns the whole batch", func(t *testing.T) {
		out := decodeTrades(t, do(t, srv, http.MethodGet, "/api/trades", ""))
		require.Len(t, out.Trades, 3)
		assert.Equal(t, 3, out.Summary.TradeCount)
		assert.Equal(t, 2, out.Summary.Winners)
		assert.Equal(t, "5", out.Summary.TotalPnL)
		assert.Equal(t, "snap-1", out.Snapshot.ID)
		assert.Equal(t, 3, out.Snapshot.Total)
	})

	t.Run("symbol and winners", func(t *testing.T) {
		out := decodeTrades(t, do(t, srv, http.MethodGet, "/api/trades?symbol=AAPL&type=breakout&type=reversal&from=2024-03-01&to=2024-03-03&winners=1", ""))
		require.Len(t, out.Trades, 1)
		assert.Equal(t, "AAPL", out.Trades[0].Symbol)
		assert.Equal(t, "10", out.Trades[0].PnLCumulative)
		require.NotNil(t, out.Summary.WinRate)
		assert.Equal(t, 1.0, *out.Summary.WinRate)
	})

	t.Run("rejected keeps cumulative from full batch", func(t *testing.T) {
		out := decodeTrades(t, do(t, srv, http.MethodGet, "/api/trades?rejected=true", ""))
		require.Len(t, out.Trades, 1)
		assert.Equal(t, "0", out.Trades[0].PnLCumulative)
		assert.Equal(t, "rejected", out.Trades[0].ModelDecision)
	})

	t.Run("form marker with no symbols matches nothing", func(t *testing.T) {
		out := decodeTrades(t, do(t, srv, http.MethodGet, "/api/trades?filtered=1&type=breakout", ""))
		assert.Empty(t, out.Trades)
		assert.Equal(t, 0, out.Summary.TradeCount)
		assert.Nil(t, out.Summary.WinRate)
		assert.Nil(t, out.Summary.MeanConfidence)
		assert.Equal(t, "0", out.Summary.TotalPnL)
	})

	for _, target := range []string{
		"/api/trades?from=03/01/2024",
		"/api/trades?to=2024-13-01",
		"/api/trades?winners=maybe",
	} {
		t.Run("bad param "+target, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, target, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "bad request parameter")
		})
	}
}

func TestAPITradesQuery(t *testing.T) {
	srv := newTestServer(t, newFake())

	out := decodeTrades(t, do(t, srv, http.MethodPost, "/api/trades/query", `{"symbols":["MSFT"],"from":"2024-03-01"}`))
	require.Len(t, out.Trades, 1)
	assert.Equal(t, "MSFT", out.Trades[0].Symbol)

	out = decodeTrades(t, do(t, srv, http.MethodPost, "/api/trades/query", `{"symbols":null,"only_winners":true,"only_rejected":true}`))
	assert.Empty(t, out.Trades)

	out = decodeTrades(t, do(t, srv, http.MethodPost, "/api/trades/query", `{"entry_types":[]}`))
	assert.Empty(t, out.Trades)
	assert.Nil(t, out.Summary.WinRate)

	out = decodeTrades(t, do(t, srv, http.MethodPost, "/api/trades/query", ""))
	assert.Len(t, out.Trades, 3)

	for name, body := range map[string]string{
		"invalid json":       `{"symbols":[`,
		"not an object":      `["AAPL"]`,
		"unknown field":      `{"symbol":"AAPL"}`,
		"wrong type":         `{"only_winners":"yes"}`,
		"bad date shape":     `{"from":"2024/03/01"}`,
		"impossible date":    `{"to":"2024-02-30"}`,
		"non string symbols": `{"symbols":[1,2]}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/trades/query", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestAPIFacets(t *testing.T) {
	rec := do(t, newTestServer(t, newFake()), http.MethodGet, "/api/facets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"symbols": ["AAPL", "MSFT"],
		"entry_types": ["breakout", "reversal"],
		"min_date": "2024-03-01",
		"max_date": "2024-03-03"
	}`, rec.Body.String())
}

func TestAPIReport(t *testing.T) {
	srv := newTestServer(t, newFake())

	rec := do(t, srv, http.MethodGet, "/api/report?symbol=AAPL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "yaml")
	var report struct {
		Criteria struct {
			Symbols []string `yaml:"symbols"`
		} `yaml:"criteria"`
		Summary struct {
			TradeCount int      `yaml:"trade_count"`
			WinRate    *float64 `yaml:"win_rate"`
			TotalPnL   string   `yaml:"total_pnl"`
		} `yaml:"summary"`
		BySymbol []struct {
			Key          string `yaml:"key"`
			Profitable   int    `yaml:"profitable"`
			Unprofitable int    `yaml:"unprofitable"`
		} `yaml:"by_symbol"`
	}
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, []string{"AAPL"}, report.Criteria.Symbols)
	assert.Equal(t, 2, report.Summary.TradeCount)
	assert.Equal(t, "0", report.Summary.TotalPnL)
	require.NotNil(t, report.Summary.WinRate)
	assert.Equal(t, 0.5, *report.Summary.WinRate)
	require.Len(t, report.BySymbol, 1)
	assert.Equal(t, 1, report.BySymbol[0].Profitable)
	assert.Equal(t, 1, report.BySymbol[0].Unprofitable)

	rec = do(t, srv, http.MethodGet, "/api/report?format=json&filtered=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var asJSON map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &asJSON))
	summary := asJSON["summary"].(map[string]any)
	assert.Nil(t, summary["win_rate"])
	assert.Equal(t, float64(0), summary["trade_count"])
	for _, key := range []string{"by_entry_type", "by_symbol"} {
		groups, ok := asJSON[key].([]any)
		require.True(t, ok, "%s should be a list, got %v", key, asJSON[key])
		assert.Empty(t, groups)
	}

	rec = do(t, srv, http.MethodGet, "/api/report?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoadErrorIsServiceUnavailable(t *testing.T) {
	loadErr := &trades.LoadError{Source: "executed_trades.csv", Column: trades.ColEntryTime, Err: trades.ErrMissingColumn}
	srv := newTestServer(t, &fakeTrades{err: loadErr})

	for _, target := range []string{"/api/trades", "/api/facets", "/api/report", "/charts/cumulative"} {
		rec := do(t, srv, http.MethodGet, target, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "missing required column", target)
	}

	rec := do(t, srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "executed_trades.csv")
}

func TestAPIReload(t *testing.T) {
	fake := newFake()
	srv := newTestServer(t, fake)

	rec := do(t, srv, http.MethodPost, "/api/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":2`)
	assert.Equal(t, 1, fake.reloads)

	fake.reloadErr = &trades.LoadError{Source: "executed_trades.csv", Err: trades.ErrSourceMissing}
	rec = do(t, srv, http.MethodPost, "/api/reload", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "executed_trades.csv")
}

func TestCharts(t *testing.T) {
	srv := newTestServer(t, newFake())

	for _, name := range []string{ChartCumulative, ChartByType, ChartBySymbol} {
		rec := do(t, srv, http.MethodGet, "/charts/"+name+"?symbol=AAPL", "")
		assert.Equal(t, http.StatusOK, rec.Code, name)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html", name)
	}
	rec := do(t, srv, http.MethodGet, "/charts/cumulative", "")
	assert.Contains(t, rec.Body.String(), "Cumulative PnL")

	rec = do(t, srv, http.MethodGet, "/charts/pie", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/charts/cumulative?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/charts/cumulative/png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "png export disabled")
}

func TestDashboardPage(t *testing.T) {
	srv := newTestServer(t, newFake())

	rec := do(t, srv, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "66.67%")
	assert.Contains(t, body, "5.00")
	assert.Contains(t, body, ">0.8<")
	assert.Contains(t, body, `value="2024-03-01"`)
	assert.Contains(t, body, `<option value="MSFT" selected>`)
	// newest first
	assert.Less(t, strings.Index(body, "2024-03-03 12:00:00"), strings.Index(body, "2024-03-01 10:00:00"))
	assert.Contains(t, body, "/charts/by-symbol?filtered=1")

	rec = do(t, srv, http.MethodGet, "/?filtered=1&type=breakout&winners=on&rejected=on", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "No trades match the current filters.")
	assert.Contains(t, body, "n/a")
	assert.Contains(t, body, `<option value="AAPL">`)

	rec = do(t, srv, http.MethodGet, "/?to=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCriteriaRoundTrip(t *testing.T) {
	f := newFake().snap.Facets
	crit := metrics.Criteria{
		Symbols:     metrics.NewSet("MSFT"),
		From:        time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		OnlyWinners: true,
	}
	back, err := criteriaFromQuery(encodeCriteria(crit, f), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, back.Symbols.Values())
	assert.Equal(t, []string{"breakout", "reversal"}, back.EntryTypes.Values())
	assert.True(t, back.From.Equal(crit.From))
	assert.True(t, back.To.IsZero())
	assert.True(t, back.OnlyWinners)
	assert.False(t, back.OnlyRejected)

	empty, err := criteriaFromQuery(encodeCriteria(metrics.Criteria{Symbols: metrics.NewSet()}, f), time.UTC)
	require.NoError(t, err)
	assert.NotNil(t, empty.Symbols)
	assert.Empty(t, empty.Symbols.Values())
}
