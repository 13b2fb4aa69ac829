package visual

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"time"

	"tradelens/internal/metrics"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	talib "github.com/markcheno/go-talib"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorWin           = "#34d399"
	colorLoss          = "#f87171"
	colorCumulative    = "#3b82f6"
	colorSMA           = "#fbbf24"

	defaultWidthPx  = 1200
	defaultHeightPx = 420

	// echarts reads this form as wall-clock time, so the written date is shown
	timeValueLayout = "2006-01-02 15:04:05"

	LabelProfitable   = "profitable"
	LabelUnprofitable = "not profitable"
)

// Options 控制图表外观，取自 charts 配置段。
type Options struct {
	Theme     string
	Width     int
	Height    int
	SMAPeriod int
}

func (o Options) normalize() Options {
	if o.Theme == "" {
		o.Theme = types.ThemeWesteros
	}
	if o.Width <= 0 {
		o.Width = defaultWidthPx
	}
	if o.Height <= 0 {
		o.Height = defaultHeightPx
	}
	return o
}

func (o Options) init() opts.Initialization {
	o = o.normalize()
	return opts.Initialization{
		Theme:           o.Theme,
		Width:           fmt.Sprintf("%dpx", o.Width),
		Height:          fmt.Sprintf("%dpx", o.Height),
		BackgroundColor: colorBackground,
	}
}

// CumulativeChart plots the running PnL of ts on a time axis. Points are placed
// by entry time and joined in load order. The values come from the full batch,
// so a filtered view shows gaps rather than a re-based curve.
func CumulativeChart(ts []metrics.Trade, o Options) *charts.Line {
	o = o.normalize()
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(o.init()),
		charts.WithTitleOpts(opts.Title{
			Title:         "Cumulative PnL",
			Subtitle:      fmt.Sprintf("%d trades", len(ts)),
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "time",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	if len(ts) > 1 {
		line.SetGlobalOptions(charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}))
	}

	stamps := make([]string, len(ts))
	values := make([]float64, len(ts))
	for i, t := range ts {
		stamps[i] = t.EntryTime.Format(timeValueLayout)
		values[i] = t.PnLCumulative.InexactFloat64()
	}
	line.AddSeries("Cumulative PnL", timeSeries(stamps, values),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorCumulative, Width: 2}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorCumulative}),
	)
	if sma := smaSeries(values, o.SMAPeriod); sma != nil {
		line.AddSeries(fmt.Sprintf("SMA %d", o.SMAPeriod), timeSeries(stamps, sma),
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: colorSMA, Width: 1}),
		)
	}
	return line
}

// smaSeries returns nil when the overlay is disabled or there are too few
// points; leading values without a full window are NaN.
func smaSeries(values []float64, period int) []float64 {
	if period <= 1 || len(values) < period {
		return nil
	}
	out := talib.Sma(values, period)
	for i := 0; i < period-1 && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

// OutcomeHistogram draws one group of bars per category: profitable next to
// not profitable.
func OutcomeHistogram(title string, groups []metrics.OutcomeGroup, o Options) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.init()),
		charts.WithTitleOpts(opts.Title{Title: title, Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextSecondary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "count",
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	keys := make([]string, len(groups))
	wins := make([]opts.BarData, len(groups))
	losses := make([]opts.BarData, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
		wins[i] = opts.BarData{Value: g.Profitable}
		losses[i] = opts.BarData{Value: g.Unprofitable}
	}
	bar.SetXAxis(keys)
	bar.AddSeries(LabelProfitable, wins, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorWin}))
	bar.AddSeries(LabelUnprofitable, losses, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorLoss}))
	return bar
}

// Render writes a standalone HTML page holding the given charts.
func Render(w io.Writer, items ...components.Charter) error {
	if len(items) == 0 {
		return fmt.Errorf("no charts to render")
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(items...)
	return page.Render(w)
}

// RenderPage is Render into a byte slice.
func RenderPage(items ...components.Charter) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, items...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// timeSeries pairs each value with its timestamp; NaN values (no full SMA
// window yet) are left out.
func timeSeries(stamps []string, values []float64) []opts.LineData {
	out := make([]opts.LineData, 0, len(values))
	for i, v := range values {
		if i >= len(stamps) || math.IsNaN(v) {
			continue
		}
		out = append(out, opts.LineData{Value: []interface{}{stamps[i], round(v, 4)}})
	}
	return out
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

// RenderPNG screenshots html in headless Chrome.
func RenderPNG(ctx context.Context, html []byte, width, height int, timeout time.Duration) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if width <= 0 {
		width = defaultWidthPx
	}
	if height <= 0 {
		height = defaultHeightPx
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, timeout)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// echarts animates in; wait for it to settle
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, fmt.Errorf("render chart png failed: %w", err)
	}
	return screenshot, nil
}
