// Package charts renders db-section result sets as PNG images.
package charts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"golang.org/x/sync/singleflight"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/logging"
	"infinite-experiment/plp/internal/metrics"
)

// Type selects the chart builder.
type Type string

const (
	Bar  Type = "bar"
	Line Type = "line"
	Pie  Type = "pie"
)

// Group is one legend entry with a value per label.
type Group struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Spec describes one chart. Labels name the value positions: the x axis of
// bar and line charts, the slices of a pie.
type Spec struct {
	Type   Type     `json:"type"`
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Groups []Group  `json:"groups"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
}

type builder func(spec Spec) (renderable, error)

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

var builders = map[Type]builder{
	Bar:  buildBar,
	Line: buildLine,
	Pie:  buildPie,
}

// Generator renders charts and caches the encoded images by spec.
type Generator struct {
	cache   common.CacheInterface
	ttl     time.Duration
	width   int
	height  int
	group   singleflight.Group
	metrics *metrics.MetricsRegistry
}

func NewGenerator(cache common.CacheInterface, ttl time.Duration, width, height int, reg *metrics.MetricsRegistry) *Generator {
	return &Generator{cache: cache, ttl: ttl, width: width, height: height, metrics: reg}
}

// Generate returns the chart as a base64 encoded PNG.
func (g *Generator) Generate(ctx context.Context, spec Spec) (string, error) {
	build, ok := builders[spec.Type]
	if !ok {
		return "", common.ConfigError(constants.ErrCodeUnknownChartType, "unknown chart type %q", spec.Type)
	}
	if spec.Width == 0 {
		spec.Width = g.width
	}
	if spec.Height == 0 {
		spec.Height = g.height
	}

	key, err := cacheKey(spec)
	if err != nil {
		return "", err
	}
	if g.cache != nil {
		if v, ok := g.cache.Get(key); ok {
			if s, ok := v.(string); ok {
				g.count(true)
				return s, nil
			}
		}
		g.count(false)
	}

	v, err, _ := g.group.Do(key, func() (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := build(spec)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := c.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("failed to render %s chart: %w", spec.Type, err)
		}
		encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
		if g.cache != nil {
			g.cache.Set(key, encoded, g.ttl)
		}
		if g.metrics != nil {
			g.metrics.ChartsRenderedTotal.WithLabelValues(string(spec.Type)).Inc()
		}
		logging.Debug("Rendered chart", "type", spec.Type, "groups", len(spec.Groups), "bytes", buf.Len())
		return encoded, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (g *Generator) count(hit bool) {
	if g.metrics == nil {
		return
	}
	if hit {
		g.metrics.CacheHitsTotal.WithLabelValues(string(constants.CachePrefixChart)).Inc()
		return
	}
	g.metrics.CacheMissesTotal.WithLabelValues(string(constants.CachePrefixChart)).Inc()
}

func cacheKey(spec Spec) (string, error) {
	b, err := json.Marshal(spec)
	if err != nil {
		return "", fmt.Errorf("failed to encode chart spec: %w", err)
	}
	sum := sha256.Sum256(b)
	return string(constants.CachePrefixChart) + hex.EncodeToString(sum[:]), nil
}
