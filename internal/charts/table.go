package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	tableColumns     = 4
	tableCellWidth   = 150
	tableRowHeight   = 30
	tableTitleHeight = 44
	tablePadding     = 16
	tableFontSize    = 12
	tableTitleSize   = 16
)

var (
	headerFill = drawing.ColorFromHex("e7f0fa")
	gridColor  = drawing.ColorFromHex("adb5bd")
)

// Table renders days as a grid under title. columns labels the date and the
// earliest, middle and latest reading.
func (r *Renderer) Table(title string, columns []string, days []DaySummary) ([]byte, error) {
	if len(days) == 0 {
		return nil, ErrNotEnoughData
	}
	if len(columns) != tableColumns {
		return nil, fmt.Errorf("table needs %d column labels, got %d", tableColumns, len(columns))
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("failed to load table font: %w", err)
	}

	w := tableColumns*tableCellWidth + 2*tablePadding
	h := tableTitleHeight + (len(days)+1)*tableRowHeight + 2*tablePadding
	rr, err := chart.PNG(w, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create table canvas: %w", err)
	}
	rr.SetDPI(chart.DefaultDPI)

	chart.Draw.Box(rr, chart.NewBox(0, 0, w, h), chart.Style{FillColor: drawing.ColorWhite, StrokeColor: drawing.ColorWhite, StrokeWidth: 1})

	text := chart.Style{
		Font:                font,
		FontSize:            tableFontSize,
		FontColor:           drawing.ColorBlack,
		TextHorizontalAlign: chart.TextHorizontalAlignCenter,
		TextVerticalAlign:   chart.TextVerticalAlignMiddle,
	}
	heading := text
	heading.FontSize = tableTitleSize
	chart.Draw.TextWithin(rr, title, chart.NewBox(tablePadding, tablePadding, w-tablePadding, tablePadding+tableTitleHeight), heading)

	rows := make([][]string, 0, len(days)+1)
	rows = append(rows, columns)
	for _, d := range days {
		rows = append(rows, []string{d.Date, fmt.Sprintf("%.1f", d.Earliest), fmt.Sprintf("%.1f", d.Middle), fmt.Sprintf("%.1f", d.Latest)})
	}

	top := tablePadding + tableTitleHeight
	for i, cells := range rows {
		fill := drawing.ColorWhite
		if i == 0 {
			fill = headerFill
		}
		for j, cell := range cells {
			box := chart.NewBox(
				top+i*tableRowHeight,
				tablePadding+j*tableCellWidth,
				tablePadding+(j+1)*tableCellWidth,
				top+(i+1)*tableRowHeight,
			)
			chart.Draw.Box(rr, box, chart.Style{FillColor: fill, StrokeColor: gridColor, StrokeWidth: 1})
			chart.Draw.TextWithin(rr, cell, box, text)
		}
	}

	var buf bytes.Buffer
	if err := rr.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode table: %w", err)
	}
	return buf.Bytes(), nil
}

// Pages splits days into consecutive runs of at most perPage entries.
func Pages(days []DaySummary, perPage int) [][]DaySummary {
	if perPage <= 0 {
		perPage = len(days)
	}
	var pages [][]DaySummary
	for start := 0; start < len(days); start += perPage {
		pages = append(pages, days[start:min(start+perPage, len(days))])
	}
	return pages
}
