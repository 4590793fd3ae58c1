package query

import (
	"fmt"
	"time"

	"github.com/spf13/cast"

	"infinite-experiment/plp/internal/charts"
	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/mis"
)

// Pair is one column of a row_single display.
type Pair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Failure is a query problem presentable to the end user.
type Failure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the shaped output of a db section.
type Result struct {
	Display Display      `json:"display"`
	Fields  []Pair       `json:"fields,omitempty"`
	Table   *Table       `json:"table,omitempty"`
	Chart   *charts.Spec `json:"chart,omitempty"`
	Image   string       `json:"image,omitempty"`
	Failure *Failure     `json:"failure,omitempty"`
}

// Shape turns a row set into the given display. Chart displays produce a
// chart spec; the image is drawn by the engine.
func Shape(display Display, title string, res *mis.Result) (*Result, error) {
	out := &Result{Display: display}
	switch display {
	case RowSingle:
		out.Fields = []Pair{}
		if len(res.Rows) > 0 {
			for _, col := range res.Columns {
				out.Fields = append(out.Fields, Pair{Name: col, Value: formatValue(res.Rows[0][col])})
			}
		}
	case RowMultiple:
		t := &Table{Headers: res.Columns, Rows: make([][]string, 0, len(res.Rows))}
		for _, row := range res.Rows {
			cells := make([]string, 0, len(res.Columns))
			for _, col := range res.Columns {
				cells = append(cells, formatValue(row[col]))
			}
			t.Rows = append(t.Rows, cells)
		}
		out.Table = t
	case ChartBar, ChartLine:
		spec, err := groupedSpec(display, title, res)
		if err != nil {
			return nil, err
		}
		out.Chart = spec
	case ChartPie:
		spec, err := pieSpec(title, res)
		if err != nil {
			return nil, err
		}
		out.Chart = spec
	default:
		return nil, common.ConfigError(constants.ErrCodeUnknownDisplay, "unknown display %q", display)
	}
	return out, nil
}

// groupedSpec uses the first column as legend and the rest as series values.
// Rows sharing a legend are summed.
func groupedSpec(display Display, title string, res *mis.Result) (*charts.Spec, error) {
	spec := &charts.Spec{Type: charts.Bar, Title: title}
	if display == ChartLine {
		spec.Type = charts.Line
	}
	if len(res.Columns) < 2 {
		return spec, nil
	}
	spec.Labels = res.Columns[1:]

	index := make(map[string]int)
	for _, row := range res.Rows {
		legend := formatValue(row[res.Columns[0]])
		values, err := numbers(row, res.Columns[1:])
		if err != nil {
			return nil, err
		}
		i, seen := index[legend]
		if !seen {
			index[legend] = len(spec.Groups)
			spec.Groups = append(spec.Groups, charts.Group{Name: legend, Values: values})
			continue
		}
		for j, v := range values {
			spec.Groups[i].Values[j] += v
		}
	}
	return spec, nil
}

// pieSpec makes each column of the first row a slice.
func pieSpec(title string, res *mis.Result) (*charts.Spec, error) {
	spec := &charts.Spec{Type: charts.Pie, Title: title, Labels: res.Columns}
	if len(res.Rows) == 0 {
		return spec, nil
	}
	values, err := numbers(res.Rows[0], res.Columns)
	if err != nil {
		return nil, err
	}
	spec.Groups = []charts.Group{{Name: title, Values: values}}
	return spec, nil
}

func numbers(row mis.Row, cols []string) ([]float64, error) {
	out := make([]float64, 0, len(cols))
	for _, col := range cols {
		v := row[col]
		if v == nil || v == "" {
			out = append(out, 0)
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, &common.AppError{
				Kind:    common.KindConnection,
				Code:    constants.ErrCodeNotNumeric,
				Message: fmt.Sprintf("column %s holds %v, which is not a number", col, v),
				Err:     err,
			}
		}
		out = append(out, f)
	}
	return out, nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
