package api

import (
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"

	"infinite-experiment/plp/internal/charts"
	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/config"
	"infinite-experiment/plp/internal/db/repositories"
	"infinite-experiment/plp/internal/fields"
	"infinite-experiment/plp/internal/host"
	"infinite-experiment/plp/internal/metrics"
	"infinite-experiment/plp/internal/plan"
	"infinite-experiment/plp/internal/query"
	"infinite-experiment/plp/internal/services"
)

type Repositories struct {
	Plans    *repositories.PlanRepository
	Settings *repositories.SettingRepository
	MIS      *repositories.MISConnectionRepo
}

type Services struct {
	Plan    *services.PlanService
	Plugins *services.PluginAdminService
	MIS     *services.MISConnectionService
}

// Dependencies is everything the handlers and middleware need.
type Dependencies struct {
	Repo     *Repositories
	Services *Services

	Users    host.Users
	Caps     host.Capabilities
	Renderer host.Renderer
	Metrics  *metrics.MetricsRegistry

	// Platform is pinged by the health check; nil skips the check.
	Platform *sqlx.DB
	UpSince  time.Time
}

// InitDependencies wires repositories, the query engine, the chart generator
// and the services over the platform databases.
func InitDependencies(cfg *config.Config, gdb *gorm.DB, platform *sqlx.DB, files host.FileStore, cache common.CacheInterface, reg *metrics.MetricsRegistry) (*Dependencies, error) {
	repos := &Repositories{
		Plans:    repositories.NewPlanRepository(gdb),
		Settings: repositories.NewSettingRepository(gdb),
		MIS:      repositories.NewMISConnectionRepo(gdb),
	}

	directory := host.NewSQLDirectory(platform)
	caps := host.NewGormCapabilities(gdb)

	misSvc := services.NewMISConnectionService(repos.MIS, nil, reg)
	chartGen := charts.NewGenerator(cache, cfg.Charts.CacheTTL, cfg.Charts.Width, cfg.Charts.Height, reg)
	engine := query.NewEngine(platform, misSvc, chartGen, reg)
	store := plan.NewStore(gdb, fields.Deps{Courses: directory, Files: files}, engine, reg)

	return &Dependencies{
		Repo: repos,
		Services: &Services{
			Plan:    services.NewPlanService(store, directory, caps),
			Plugins: services.NewPluginAdminService(repos.Plans, repos.Settings),
			MIS:     misSvc,
		},
		Users:    directory,
		Caps:     caps,
		Renderer: host.NewTemplateRenderer(),
		Metrics:  reg,
		Platform: platform,
		UpSince:  time.Now(),
	}, nil
}
