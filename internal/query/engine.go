package query

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"infinite-experiment/plp/internal/charts"
	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/logging"
	"infinite-experiment/plp/internal/metrics"
	"infinite-experiment/plp/internal/mis"
	models "infinite-experiment/plp/internal/models/gorm"
)

// ConnectionOpener resolves a stored external connection to a live one,
// failing when it is missing, disabled or unreachable.
type ConnectionOpener interface {
	Open(ctx context.Context, id int64) (*mis.Connection, error)
}

type ChartGenerator interface {
	Generate(ctx context.Context, spec charts.Spec) (string, error)
}

// Engine dispatches db-section queries to the platform database or an
// external connection.
type Engine struct {
	platform *sqlx.DB
	opener   ConnectionOpener
	charts   ChartGenerator
	timeout  time.Duration
	metrics  *metrics.MetricsRegistry
}

func NewEngine(platform *sqlx.DB, opener ConnectionOpener, gen ChartGenerator, reg *metrics.MetricsRegistry) *Engine {
	return &Engine{
		platform: platform,
		opener:   opener,
		charts:   gen,
		timeout:  30 * time.Second,
		metrics:  reg,
	}
}

// Execute substitutes the subject's placeholders and runs the query.
func (e *Engine) Execute(ctx context.Context, s Settings, subject *models.User) (*mis.Result, error) {
	sql, params := Substitute(s.Query, subject)
	limit := 0
	if s.Display == RowSingle || s.Display == ChartPie {
		limit = 1
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	var (
		res *mis.Result
		err error
	)
	switch s.QueryType {
	case Internal:
		res, err = mis.Query(ctx, e.platform, sql, params, limit)
	case External:
		res, err = e.external(ctx, s.MISConnectionID, sql, params, limit)
	default:
		return nil, common.ConfigError(constants.ErrCodeUnknownQueryType, "unknown query type %q", s.QueryType)
	}

	outcome := "ok"
	if err != nil {
		outcome = common.CodeOf(err)
	}
	if e.metrics != nil {
		e.metrics.QueriesTotal.WithLabelValues(string(s.QueryType), outcome).Inc()
		e.metrics.QueryDuration.WithLabelValues(string(s.QueryType)).Observe(time.Since(start).Seconds())
	}
	logging.Debug("Ran section query",
		"query_type", s.QueryType,
		"connection_id", s.MISConnectionID,
		"params", len(params),
		"outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, err
}

func (e *Engine) external(ctx context.Context, connID int64, sql string, params []any, limit int) (*mis.Result, error) {
	conn, err := e.opener.Open(ctx, connID)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.QuerySQL(ctx, sql, params, limit)
}

// Run executes and shapes a db section. Connection and data problems come
// back as a Failure on the result; configuration mistakes are returned as errors.
func (e *Engine) Run(ctx context.Context, s Settings, subject *models.User) (*Result, error) {
	rows, err := e.Execute(ctx, s, subject)
	if err != nil {
		return failed(s, err)
	}

	out, err := Shape(s.Display, s.ChartTitle, rows)
	if err != nil {
		return failed(s, err)
	}
	if out.Chart == nil || len(out.Chart.Groups) == 0 {
		return out, nil
	}

	img, err := e.charts.Generate(ctx, *out.Chart)
	if err != nil {
		if common.IsKind(err, common.KindConfig) {
			return nil, err
		}
		logging.Warn("Chart rendering failed", "display", s.Display, "error", err.Error())
		out.Failure = &Failure{Code: constants.ErrCodeChartFailed, Message: constants.GetErrorMessage(constants.ErrCodeChartFailed)}
		return out, nil
	}
	out.Image = img
	return out, nil
}

func failed(s Settings, err error) (*Result, error) {
	var ae *common.AppError
	if !errors.As(err, &ae) || ae.Kind != common.KindConnection {
		return nil, err
	}
	logging.Warn("Section query failed",
		"query_type", s.QueryType,
		"connection_id", s.MISConnectionID,
		"code", ae.Code,
		"error", err.Error(),
	)
	return &Result{Display: s.Display, Failure: &Failure{Code: ae.Code, Message: constants.GetErrorMessage(ae.Code)}}, nil
}
