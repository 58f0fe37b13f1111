// Copyright 2025 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server is the seqflow HTTP daemon: it accepts batch submissions,
// executes them asynchronously and exposes run status, results and metrics.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/seqflow/pipeline/builder"
	"github.com/pingcap/seqflow/pipeline/invoker"
	"github.com/pingcap/seqflow/pipeline/scheduler"
	"github.com/pingcap/seqflow/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Server runs batches submitted over HTTP.
type Server struct {
	cfg      *config.Config
	sched    *scheduler.Scheduler
	buildOpt builder.Options
	registry *registry
	promReg  *prometheus.Registry

	startedAt time.Time
}

// New wires a server from configuration. The invoker is injected so tests
// and alternative tool runners stay out of the core.
func New(cfg *config.Config, inv invoker.Invoker) (*Server, error) {
	inv = invoker.WithRetry(inv, invoker.RetryOptionsFromConfig(cfg.Retry))
	sched, err := scheduler.New(cfg.Scheduler, inv)
	if err != nil {
		return nil, errors.Trace(err)
	}
	buildOpt, err := builder.OptionsFromConfig(cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}

	promReg := prometheus.NewRegistry()
	scheduler.InitMetrics(promReg)

	return &Server{
		cfg:      cfg,
		sched:    sched,
		buildOpt: buildOpt,
		registry: newRegistry(),
		promReg:  promReg,
	}, nil
}

// Run serves the API until the context is canceled, then shuts down
// gracefully. In-flight batch executions are canceled through their own
// run contexts.
func (s *Server) Run(ctx context.Context) error {
	s.startedAt = time.Now()
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.newRouter(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Trace(err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; serveErr != http.ErrServerClosed {
		err = multierr.Append(err, serveErr)
	}
	return errors.Trace(err)
}

// newRouter builds the API routes.
func (s *Server) newRouter() *gin.Engine {
	// discard gin default log output
	gin.DefaultWriter = io.Discard
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(logMiddleware())
	router.Use(errorHandleMiddleware())
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(
		promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", s.serverStatus)
		v1.POST("/log", s.setLogLevel)

		batches := v1.Group("/batches")
		{
			batches.POST("", s.submitBatch)
			batches.GET("", s.listRuns)
			batches.GET("/:run_id", s.getRun)
			batches.POST("/:run_id/cancel", s.cancelRun)
		}
	}
	return router
}
