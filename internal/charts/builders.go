package charts

import (
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
)

// buildBar draws one stacked bar per legend group.
func buildBar(spec Spec) (renderable, error) {
	if len(spec.Groups) == 0 {
		return nil, fmt.Errorf("bar chart %q has no data", spec.Title)
	}
	bars := make([]chart.StackedBar, 0, len(spec.Groups))
	for _, g := range spec.Groups {
		values := make([]chart.Value, 0, len(g.Values))
		for i, v := range g.Values {
			values = append(values, chart.Value{Label: label(spec.Labels, i), Value: v})
		}
		bars = append(bars, chart.StackedBar{Name: g.Name, Values: values})
	}
	return &chart.StackedBarChart{
		Title:      spec.Title,
		Width:      spec.Width,
		Height:     spec.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Bars:       bars,
	}, nil
}

// buildLine draws one series per legend group across the labels. When every
// group carries a single value the legends become the x axis instead, drawn
// as one series.
func buildLine(spec Spec) (renderable, error) {
	if len(spec.Groups) == 0 {
		return nil, fmt.Errorf("line chart %q has no data", spec.Title)
	}

	n := 0
	for _, g := range spec.Groups {
		if len(g.Values) > n {
			n = len(g.Values)
		}
	}
	if n == 0 {
		return nil, fmt.Errorf("line chart %q has no data", spec.Title)
	}

	var series []chart.Series
	var ticks []chart.Tick
	if n == 1 {
		xs := make([]float64, 0, len(spec.Groups))
		ys := make([]float64, 0, len(spec.Groups))
		for i, g := range spec.Groups {
			if len(g.Values) == 0 {
				continue
			}
			xs = append(xs, float64(i))
			ys = append(ys, g.Values[0])
			ticks = append(ticks, chart.Tick{Value: float64(i), Label: g.Name})
		}
		series = []chart.Series{chart.ContinuousSeries{Name: label(spec.Labels, 0), XValues: xs, YValues: ys}}
	} else {
		for _, g := range spec.Groups {
			xs := make([]float64, len(g.Values))
			for i := range g.Values {
				xs[i] = float64(i)
			}
			series = append(series, chart.ContinuousSeries{Name: g.Name, XValues: xs, YValues: g.Values})
		}
		for i := 0; i < n; i++ {
			ticks = append(ticks, chart.Tick{Value: float64(i), Label: label(spec.Labels, i)})
		}
	}

	// a single point still needs an x range
	if len(ticks) == 1 {
		v := ticks[0].Value
		ticks = []chart.Tick{{Value: v - 1}, ticks[0], {Value: v + 1}}
	}

	graph := &chart.Chart{
		Title:      spec.Title,
		Width:      spec.Width,
		Height:     spec.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20}},
		XAxis:      chart.XAxis{Ticks: ticks},
		YAxis:      chart.YAxis{Range: flatRange(spec.Groups)},
		Series:     series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(graph)}
	return graph, nil
}

// flatRange pads the y axis when every value is equal; nil lets the chart
// derive the range.
func flatRange(groups []Group) chart.Range {
	first := true
	var lo, hi float64
	for _, g := range groups {
		for _, v := range g.Values {
			if first {
				lo, hi, first = v, v, false
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if first || lo != hi {
		return nil
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

// buildPie draws the first group, one slice per label.
func buildPie(spec Spec) (renderable, error) {
	if len(spec.Groups) == 0 || len(spec.Groups[0].Values) == 0 {
		return nil, fmt.Errorf("pie chart %q has no data", spec.Title)
	}
	values := make([]chart.Value, 0, len(spec.Groups[0].Values))
	for i, v := range spec.Groups[0].Values {
		values = append(values, chart.Value{Label: label(spec.Labels, i), Value: v})
	}
	return &chart.PieChart{
		Title:  spec.Title,
		Width:  spec.Width,
		Height: spec.Height,
		Values: values,
	}, nil
}

func label(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return fmt.Sprint(i + 1)
}
