// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the job controls over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/walteh/mediamirror/pkg/batch"
	"gitlab.com/tozd/go/errors"
)

const shutdownTimeout = 10 * time.Second

// Controller is the job control surface served over HTTP.
type Controller interface {
	Start(ctx context.Context) (string, error)
	Progress(ctx context.Context) (batch.Progress, error)
	Cancel(ctx context.Context) error
}

var _ Controller = (*batch.Processor)(nil)

// 🌐 Server routes HTTP requests to a Controller.
type Server struct {
	echo    *echo.Echo
	ctrl    Controller
	version string
}

// 🏭 New builds the echo instance. Requests carry logger on their context.
func New(ctrl Controller, version string, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(withLogger(logger))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := zerolog.Ctx(c.Request().Context()).Info()
			if v.Error != nil {
				ev = zerolog.Ctx(c.Request().Context()).Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())

	s := &Server{echo: e, ctrl: ctrl, version: version}

	api := e.Group("/api/v1")
	api.POST("/start", s.start)
	api.GET("/progress", s.progress)
	api.POST("/cancel", s.cancel)
	e.GET("/health", s.health)

	return s
}

func withLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context())))
			return next(c)
		}
	}
}

// ServeHTTP lets the server be mounted or tested like any http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// 🚀 Run listens on addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.echo.Start(addr)
	}()

	zerolog.Ctx(ctx).Info().Str("addr", addr).Msg("serving job controls")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return errors.Errorf("shutting down http server: %w", err)
	}
	return nil
}

type startResponse struct {
	OK    bool   `json:"ok"`
	JobID string `json:"job_id"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) start(c echo.Context) error {
	jobID, err := s.ctrl.Start(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, startResponse{OK: true, JobID: jobID})
}

func (s *Server) progress(c echo.Context) error {
	prog, err := s.ctrl.Progress(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, prog)
}

func (s *Server) cancel(c echo.Context) error {
	if err := s.ctrl.Cancel(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, okResponse{OK: true})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}
