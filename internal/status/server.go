package status

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"warpdrive-trainer/internal/device"
	"warpdrive-trainer/internal/trainer"
)

// Source is the trainer state the API reads.
type Source interface {
	RunID() string
	Status() trainer.Progress
	History() *trainer.History
}

// Server exposes read-only run state over HTTP.
type Server struct {
	src    Source
	device device.Info
}

// NewServer returns a server reading from src.
func NewServer(src Source, info device.Info) *Server {
	return &Server{src: src, device: info}
}

// Register mounts the routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/status", s.handleStatus)
	e.GET("/v1/history", s.handleHistory)
	e.GET("/v1/device", s.handleDevice)
}

// Handler builds an echo instance with the routes and default middleware.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.Use(middleware.Recover())
	s.Register(e)
	return e
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	sc := echo.StartConfig{
		Address: addr,
		BeforeServeFunc: func(srv *http.Server) error {
			srv.ReadHeaderTimeout = 10 * time.Second
			return nil
		},
	}
	return sc.Start(ctx, s.Handler())
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleStatus(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, s.src.Status())
}

func (s *Server) handleDevice(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, s.device)
}

type phaseHistory struct {
	RunID  string         `json:"run_id"`
	Phase  trainer.Phase  `json:"phase"`
	Losses []trainer.Loss `json:"losses"`
}

func (s *Server) handleHistory(c *echo.Context) error {
	report := s.src.History().Report(s.src.RunID())
	phase := trainer.Phase(c.QueryParam("phase"))
	var losses []trainer.Loss
	switch phase {
	case "":
		return writeJSON(c, http.StatusOK, report)
	case trainer.PhaseTraining:
		losses = report.Train
	case trainer.PhaseValidation:
		losses = report.Valid
	case trainer.PhaseTest:
		losses = report.Test
	default:
		return writeJSON(c, http.StatusBadRequest, map[string]string{
			"error": "phase must be one of training, validation, test",
		})
	}
	return writeJSON(c, http.StatusOK, phaseHistory{RunID: report.RunID, Phase: phase, Losses: losses})
}

func writeJSON(c *echo.Context, code int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Blob(code, echo.MIMEApplicationJSON, data)
}
