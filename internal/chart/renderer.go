package chart

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/rstenmark/fiscaldata/internal/auction"
)

const (
	chartWidth  = 12 * vg.Inch
	chartHeight = 7 * vg.Inch
)

// Render draws one step line per term on shared axes and returns the chart as
// a PNG. Terms are drawn in ascending maturity order so colours and legend
// order are stable across runs.
func Render(seriesByTerm map[auction.Term][]auction.Record, since string) ([]byte, error) {
	p := plot.New()

	p.Title.Text = fmt.Sprintf("Treasury Bill Discounted Rate by Term Length since %s", since)
	p.X.Label.Text = "Issue Date"
	p.Y.Label.Text = "Price per $100"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	p.Add(plotter.NewGrid())

	drawn := 0
	for _, term := range auction.Terms() {
		records, ok := seriesByTerm[term]
		if !ok || len(records) == 0 {
			continue
		}

		points := make(plotter.XYs, len(records))
		for i, record := range records {
			points[i].X = float64(record.IssueDate.Unix())
			points[i].Y = record.PricePer100
		}

		line, err := plotter.NewLine(points)
		if err != nil {
			return nil, fmt.Errorf("chart: line for term %s: %w", term, err)
		}
		line.StepStyle = plotter.PreStep
		line.Color = plotutil.Color(drawn)

		p.Add(line)
		p.Legend.Add(term.String(), line)
		drawn++
	}

	p.Legend.Top = true

	writer, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("chart: render: %w", err)
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("chart: encode: %w", err)
	}

	return buf.Bytes(), nil
}
