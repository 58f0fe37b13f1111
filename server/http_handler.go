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

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pingcap/log"
	"github.com/pingcap/seqflow/pipeline/builder"
	"github.com/pingcap/seqflow/pipeline/model"
	"github.com/pingcap/seqflow/pkg/logutil"
	"github.com/pingcap/seqflow/pkg/version"
	"go.uber.org/zap"
)

// submitBatch accepts a batch document, builds its task graph and starts
// executing it in the background.
func (s *Server) submitBatch(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		_ = c.Error(err)
		return
	}
	batch, err := model.DecodeBatch(body)
	if err != nil {
		_ = c.Error(err)
		return
	}
	graph, err := builder.Build(batch, s.buildOpt)
	if err != nil {
		_ = c.Error(err)
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := s.registry.create(graph, cancel)
	go func() {
		defer cancel()
		res, execErr := s.sched.Execute(runCtx, graph)
		run.finish(res, execErr)
		log.Info("batch run finished",
			zap.String("run-id", run.ID),
			zap.Int("failed-tasks", len(res.FailedTasks)))
	}()

	log.Info("batch submitted",
		zap.String("run-id", run.ID),
		zap.Int("samples", len(batch.Samples)),
		zap.Int("tasks", graph.Len()))
	c.IndentedJSON(http.StatusAccepted, gin.H{"run_id": run.ID})
}

func (s *Server) listRuns(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.registry.list())
}

func (s *Server) getRun(c *gin.Context) {
	run, err := s.registry.get(c.Param("run_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.IndentedJSON(http.StatusOK, run.Info())
}

func (s *Server) cancelRun(c *gin.Context) {
	run, err := s.registry.get(c.Param("run_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	run.cancel()
	c.IndentedJSON(http.StatusAccepted, gin.H{"run_id": run.ID})
}

// serverStatus reports process level information.
func (s *Server) serverStatus(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{
		"version":  version.ReleaseVersion,
		"git_hash": version.GitHash,
		"uptime":   time.Since(s.startedAt).String(),
		"runs":     len(s.registry.list()),
	})
}

// setLogLevel changes the log level at runtime.
func (s *Server) setLogLevel(c *gin.Context) {
	var req struct {
		Level string `json:"log_level"`
	}
	if err := c.BindJSON(&req); err != nil {
		// BindJSON has already written the status
		return
	}
	if err := logutil.SetLogLevel(req.Level); err != nil {
		_ = c.Error(err)
		return
	}
	log.Warn("log level changed", zap.String("level", req.Level))
	c.IndentedJSON(http.StatusOK, gin.H{})
}
