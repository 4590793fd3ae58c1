// Package query runs the query behind a db section and shapes its rows for display.
package query

import (
	"strings"

	"github.com/spf13/cast"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
)

type QueryType string

const (
	Internal QueryType = "internal"
	External QueryType = "external"
)

// Display is how a result set is presented.
type Display string

const (
	RowSingle   Display = "row_single"
	RowMultiple Display = "row_multiple"
	ChartBar    Display = "chart_bar"
	ChartLine   Display = "chart_line"
	ChartPie    Display = "chart_pie"
)

// Setting names read from a db section.
const (
	SettingQueryType       = "query_type"
	SettingQuery           = "query"
	SettingDisplay         = "display"
	SettingMISConnectionID = "mis_connection_id"
	SettingChartTitle      = "chart_title"
)

// Settings is the validated query configuration of one db section.
type Settings struct {
	QueryType       QueryType
	Query           string
	Display         Display
	MISConnectionID int64
	ChartTitle      string
}

// IsChart reports whether the display renders an image.
func (d Display) IsChart() bool {
	return d == ChartBar || d == ChartLine || d == ChartPie
}

// ParseSettings validates section settings. sectionConnID is the connection
// linked on the section record, used when the settings carry none.
func ParseSettings(settings map[string]string, sectionConnID *int64) (Settings, error) {
	for _, name := range []string{SettingQueryType, SettingQuery, SettingDisplay} {
		if strings.TrimSpace(settings[name]) == "" {
			return Settings{}, common.ConfigError(constants.ErrCodeMissingSetting, "db section is missing the %s setting", name)
		}
	}

	s := Settings{
		QueryType:  QueryType(settings[SettingQueryType]),
		Query:      settings[SettingQuery],
		Display:    Display(settings[SettingDisplay]),
		ChartTitle: settings[SettingChartTitle],
	}

	switch s.QueryType {
	case Internal, External:
	default:
		return Settings{}, common.ConfigError(constants.ErrCodeUnknownQueryType, "unknown query type %q", s.QueryType)
	}

	switch s.Display {
	case RowSingle, RowMultiple, ChartBar, ChartLine, ChartPie:
	default:
		return Settings{}, common.ConfigError(constants.ErrCodeUnknownDisplay, "unknown display %q", s.Display)
	}

	if s.QueryType == External {
		if v := settings[SettingMISConnectionID]; v != "" {
			id, err := cast.ToInt64E(v)
			if err != nil {
				return Settings{}, common.ConfigError(constants.ErrCodeConfigMalformed, "invalid mis_connection_id %q", v)
			}
			s.MISConnectionID = id
		} else if sectionConnID != nil {
			s.MISConnectionID = *sectionConnID
		}
		if s.MISConnectionID == 0 {
			return Settings{}, common.ConfigError(constants.ErrCodeMissingSetting, "external db section is missing the %s setting", SettingMISConnectionID)
		}
	}
	return s, nil
}
