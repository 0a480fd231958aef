package charts

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/diary"
)

const (
	width  = 1024
	height = 512

	barWidth   = 40
	barSpacing = 20
	minWidth   = 400
)

var (
	lineColor    = drawing.ColorFromHex("1f77b4")
	eveningColor = drawing.ColorFromHex("ff7f0e")
	rangeColor   = drawing.ColorFromHex("2ca02c")
)

// Renderer draws the diary charts. Range bounds are drawn as dashed guides.
type Renderer struct {
	rangeLow  float64
	rangeHigh float64
}

// NewRenderer creates a Renderer for the target range (low, high).
func NewRenderer(rangeLow, rangeHigh float64) *Renderer {
	return &Renderer{rangeLow: rangeLow, rangeHigh: rangeHigh}
}

// Daily plots every reading on a time axis.
func (r *Renderer) Daily(name string, rows []database.Measurement) ([]byte, error) {
	points := Readings(rows)
	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.At
		ys[i] = p.Value
	}
	return r.timeChart(fmt.Sprintf("%s: glucose", name), "mmol/L", series{name: "glucose", xs: xs, ys: ys, color: lineColor})
}

// Nadir plots the daily minimum.
func (r *Renderer) Nadir(name string, rows []database.Measurement) ([]byte, error) {
	return r.timeChart(fmt.Sprintf("%s: daily nadir", name), "mmol/L", daySeries("nadir", Nadirs(rows), lineColor))
}

// MorningEvening renders the morning and the evening curves as two images.
func (r *Renderer) MorningEvening(name string, rows []database.Measurement) (morning, evening []byte, err error) {
	am, pm := MorningEvening(rows)
	morning, err = r.timeChart(fmt.Sprintf("%s: %s", name, diary.TagMorning.Label()), "mmol/L", daySeries("morning", am, lineColor))
	if err != nil {
		return nil, nil, err
	}
	evening, err = r.timeChart(fmt.Sprintf("%s: %s", name, diary.TagEvening.Label()), "mmol/L", daySeries("evening", pm, eveningColor))
	if err != nil {
		return nil, nil, err
	}
	return morning, evening, nil
}

// RangePercent draws one bar per date with the rolling seven-day share of readings in range.
func (r *Renderer) RangePercent(name string, rows []database.Measurement) ([]byte, error) {
	percents := RangePercents(rows, r.rangeLow, r.rangeHigh)
	if len(percents) == 0 {
		return nil, ErrNotEnoughData
	}

	bars := make([]chart.Value, 0, len(percents))
	for _, p := range percents {
		bars = append(bars, chart.Value{Value: p.Value, Label: p.Date[5:]})
	}

	w := len(bars)*(barWidth+barSpacing) + 2*barSpacing
	if w < minWidth {
		w = minWidth
	}

	graph := chart.BarChart{
		Title:      fmt.Sprintf("%s: %% in %g-%g over 7 days", name, r.rangeLow, r.rangeHigh),
		Width:      w,
		Height:     height,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render range chart: %w", err)
	}
	return buf.Bytes(), nil
}

type series struct {
	name  string
	xs    []time.Time
	ys    []float64
	color drawing.Color
}

func daySeries(name string, values []DayValue, color drawing.Color) series {
	s := series{name: name, color: color}
	for _, v := range values {
		at, err := time.ParseInLocation(diary.DateLayout, v.Date, time.Local)
		if err != nil {
			continue
		}
		s.xs = append(s.xs, at)
		s.ys = append(s.ys, v.Value)
	}
	return s
}

func (r *Renderer) timeChart(title, unit string, s series) ([]byte, error) {
	if !spansTime(s.xs) {
		return nil, ErrNotEnoughData
	}

	first, last := s.xs[0], s.xs[len(s.xs)-1]
	guide := func(label string, v float64) chart.TimeSeries {
		return chart.TimeSeries{
			Name:    label,
			XValues: []time.Time{first, last},
			YValues: []float64{v, v},
			Style: chart.Style{
				StrokeColor:     rangeColor,
				StrokeWidth:     1,
				StrokeDashArray: []float64{5, 5},
			},
		}
	}

	graph := chart.Chart{
		Title:  title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:  unit,
			Range: &chart.ContinuousRange{Min: 0, Max: yMax(s.ys, r.rangeHigh)},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    s.name,
				XValues: s.xs,
				YValues: s.ys,
				Style: chart.Style{
					StrokeColor: s.color,
					StrokeWidth: 2,
					DotColor:    s.color,
					DotWidth:    3,
				},
			},
			guide("low", r.rangeLow),
			guide("high", r.rangeHigh),
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render %s chart: %w", s.name, err)
	}
	return buf.Bytes(), nil
}

// spansTime reports whether xs holds at least two distinct instants.
func spansTime(xs []time.Time) bool {
	for _, x := range xs[min(1, len(xs)):] {
		if !x.Equal(xs[0]) {
			return true
		}
	}
	return false
}

func yMax(ys []float64, floor float64) float64 {
	top := floor
	for _, y := range ys {
		top = max(top, y)
	}
	return top + 2
}
