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
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/seqflow/pipeline/model"
	cerror "github.com/pingcap/seqflow/pkg/errors"
)

// RunState is the lifecycle state of one submitted batch.
type RunState string

// Run states.
const (
	StateRunning  RunState = "running"
	StateFinished RunState = "finished"
	StateCanceled RunState = "canceled"
)

// Run tracks one batch submission. While the batch executes the task graph
// is consulted live; once it terminates the statuses are snapshotted and
// the graph is discarded, per the one-graph-per-submission lifecycle.
type Run struct {
	ID        string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`

	cancel context.CancelFunc

	mu         sync.RWMutex
	state      RunState
	finishedAt time.Time
	graph      *model.TaskGraph
	tasks      map[string]string
	result     *model.ResultSet
	errMsg     string
}

// RunInfo is the externally visible view of a run.
type RunInfo struct {
	ID         string            `json:"run_id"`
	State      RunState          `json:"state"`
	CreatedAt  time.Time         `json:"created_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Tasks      map[string]string `json:"tasks"`
	Result     *model.ResultSet  `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Info snapshots the run for API responses.
func (r *Run) Info() *RunInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info := &RunInfo{
		ID:        r.ID,
		State:     r.state,
		CreatedAt: r.CreatedAt,
		Result:    r.result,
		Error:     r.errMsg,
	}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		info.FinishedAt = &t
	}
	if r.graph != nil {
		info.Tasks = make(map[string]string, r.graph.Len())
		for _, n := range r.graph.Nodes() {
			info.Tasks[string(n.ID)] = n.Status().String()
		}
	} else {
		info.Tasks = r.tasks
	}
	return info
}

// finish records the terminal outcome and drops the graph.
func (r *Run) finish(res *model.ResultSet, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks = make(map[string]string, r.graph.Len())
	for _, n := range r.graph.Nodes() {
		r.tasks[string(n.ID)] = n.Status().String()
	}
	r.graph = nil
	r.result = res
	r.finishedAt = time.Now()
	r.state = StateFinished
	if err != nil {
		r.errMsg = err.Error()
		if cerror.ErrExecutionCanceled.Equal(err) {
			r.state = StateCanceled
		}
	}
}

type registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

func newRegistry() *registry {
	return &registry{runs: make(map[string]*Run)}
}

func (rg *registry) create(graph *model.TaskGraph, cancel context.CancelFunc) *Run {
	run := &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		cancel:    cancel,
		state:     StateRunning,
		graph:     graph,
	}
	rg.mu.Lock()
	defer rg.mu.Unlock()
	rg.runs[run.ID] = run
	return run
}

func (rg *registry) get(id string) (*Run, error) {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	run, ok := rg.runs[id]
	if !ok {
		return nil, cerror.ErrRunNotFound.GenWithStackByArgs(id)
	}
	return run, nil
}

func (rg *registry) list() []*RunInfo {
	rg.mu.RLock()
	defer rg.mu.RUnlock()
	infos := make([]*RunInfo, 0, len(rg.runs))
	for _, run := range rg.runs {
		infos = append(infos, run.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}
