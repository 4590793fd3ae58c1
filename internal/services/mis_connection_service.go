package services

import (
	"context"
	"strings"

	"infinite-experiment/plp/internal/common"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/db/repositories"
	"infinite-experiment/plp/internal/logging"
	"infinite-experiment/plp/internal/metrics"
	"infinite-experiment/plp/internal/mis"
	models "infinite-experiment/plp/internal/models/gorm"
)

// ConnectFunc opens a live external connection; mis.Connect in production.
type ConnectFunc func(ctx context.Context, driver, host, user, pass, database string) (*mis.Connection, error)

// MISConnectionService manages stored external database connections and
// opens them for db sections.
type MISConnectionService struct {
	repo    *repositories.MISConnectionRepo
	connect ConnectFunc
	metrics *metrics.MetricsRegistry
}

func NewMISConnectionService(repo *repositories.MISConnectionRepo, connect ConnectFunc, reg *metrics.MetricsRegistry) *MISConnectionService {
	if connect == nil {
		connect = mis.Connect
	}
	return &MISConnectionService{repo: repo, connect: connect, metrics: reg}
}

type SaveMISConnectionRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Driver   string `json:"driver" validate:"required,oneof=mariadb mysql pgsql sqlsrv oci"`
	Host     string `json:"host" validate:"required,notblank"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database" validate:"required,notblank"`
	Enabled  bool   `json:"enabled"`
}

// MISConnectionResponse never carries the password.
type MISConnectionResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Username string `json:"username"`
	Database string `json:"database"`
	Enabled  bool   `json:"enabled"`
}

func toMISConnectionResponse(c *models.MISConnection) MISConnectionResponse {
	return MISConnectionResponse{
		ID:       c.ID,
		Name:     c.Name,
		Driver:   c.Driver,
		Host:     c.Host,
		Username: c.Username,
		Database: c.Database,
		Enabled:  c.Enabled,
	}
}

func (s *MISConnectionService) List(ctx context.Context) ([]MISConnectionResponse, error) {
	conns, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MISConnectionResponse, 0, len(conns))
	for i := range conns {
		out = append(out, toMISConnectionResponse(&conns[i]))
	}
	return out, nil
}

// Create validates and stores a new connection. Field problems come back as
// common.FieldErrors.
func (s *MISConnectionService) Create(ctx context.Context, req *SaveMISConnectionRequest) (*MISConnectionResponse, error) {
	if errs := common.ValidateStruct(req); errs != nil {
		return nil, errs
	}

	existing, err := s.repo.GetByName(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, common.FieldErrors{"name": "a connection with this name already exists"}
	}

	conn := &models.MISConnection{
		Name:     strings.TrimSpace(req.Name),
		Driver:   req.Driver,
		Host:     req.Host,
		Username: req.Username,
		Password: req.Password,
		Database: req.Database,
		Enabled:  req.Enabled,
	}
	if err := s.repo.Save(ctx, conn); err != nil {
		return nil, err
	}

	logging.Info("External connection created", "connection_id", conn.ID, "name", conn.Name, "driver", conn.Driver)
	resp := toMISConnectionResponse(conn)
	return &resp, nil
}

func (s *MISConnectionService) get(ctx context.Context, id int64) (*models.MISConnection, error) {
	conn, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, common.ConnectionError(constants.ErrCodeConnectionNotFound, nil)
	}
	return conn, nil
}

// SetEnabled writes the enabled flag. Setting the current value again is a no-op.
func (s *MISConnectionService) SetEnabled(ctx context.Context, id int64, enabled bool) (*MISConnectionResponse, error) {
	conn, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conn.Enabled != enabled {
		if err := s.repo.SetEnabled(ctx, id, enabled); err != nil {
			return nil, err
		}
		conn.Enabled = enabled
		logging.Info("External connection toggled", "connection_id", id, "enabled", enabled)
	}
	resp := toMISConnectionResponse(conn)
	return &resp, nil
}

// Toggle flips the enabled flag and leaves every other column alone.
func (s *MISConnectionService) Toggle(ctx context.Context, id int64) (*MISConnectionResponse, error) {
	conn, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.SetEnabled(ctx, id, !conn.Enabled)
}

func (s *MISConnectionService) Delete(ctx context.Context, id int64) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Open connects to a stored connection. It fails with CONNECTION_NOT_FOUND,
// CONNECTION_DISABLED, UNKNOWN_DRIVER or CONNECTION_UNREACHABLE.
func (s *MISConnectionService) Open(ctx context.Context, id int64) (*mis.Connection, error) {
	cfg, err := s.get(ctx, id)
	if err != nil {
		s.countFailure(err)
		return nil, err
	}
	if !cfg.Enabled {
		err := common.ConnectionError(constants.ErrCodeConnectionDisabled, nil)
		s.countFailure(err)
		return nil, err
	}

	conn, err := s.connect(ctx, cfg.Driver, cfg.Host, cfg.Username, cfg.Password, cfg.Database)
	if err != nil {
		s.countFailure(err)
		logging.Warn("External connection failed", "connection_id", id, "driver", cfg.Driver, "error", err)
		return nil, err
	}
	return conn, nil
}

// Test opens and closes a connection regardless of its enabled flag.
func (s *MISConnectionService) Test(ctx context.Context, id int64) error {
	cfg, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	conn, err := s.connect(ctx, cfg.Driver, cfg.Host, cfg.Username, cfg.Password, cfg.Database)
	if err != nil {
		s.countFailure(err)
		return err
	}
	return conn.Close()
}

func (s *MISConnectionService) countFailure(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ConnectFailures.WithLabelValues(common.CodeOf(err)).Inc()
}
