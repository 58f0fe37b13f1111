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

// Package scheduler runs a task graph to completion: a dispatcher feeds a
// pool of workers from a ready queue, dependents become ready when all of
// their dependencies succeeded, and a failure fails the whole downstream
// branch without touching sibling samples.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/seqflow/pipeline/aggregator"
	"github.com/pingcap/seqflow/pipeline/invoker"
	"github.com/pingcap/seqflow/pipeline/model"
	"github.com/pingcap/seqflow/pkg/config"
	cerror "github.com/pingcap/seqflow/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Scheduler executes task graphs. It is safe for concurrent use; every
// Execute call owns its run state, the Scheduler itself only carries the
// configured limits and the invoker.
type Scheduler struct {
	workerCount int
	cpuQuota    int
	memQuota    int64
	inv         invoker.Invoker
}

// New creates a Scheduler from explicit configuration. All limits are
// passed in here, the scheduler reads no ambient state.
func New(cfg *config.SchedulerConfig, inv invoker.Invoker) (*Scheduler, error) {
	if cfg.WorkerCount <= 0 {
		return nil, cerror.ErrInvalidConfig.GenWithStackByArgs("worker-count must be positive")
	}
	memQuota, err := cfg.MemoryQuotaBytes()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Scheduler{
		workerCount: cfg.WorkerCount,
		cpuQuota:    cfg.CPUQuota,
		memQuota:    memQuota,
		inv:         inv,
	}, nil
}

// run is the state of one Execute call. The mutex guards the ready queue,
// the dependency counters and the in-flight resource accounting; statuses
// and outputs are written through the owning node only.
type run struct {
	sched *Scheduler
	graph *model.TaskGraph

	mu          sync.Mutex
	cond        *sync.Cond
	ready       []*model.TaskNode
	waitDeps    map[model.TaskID]int
	remaining   int
	inflight    int
	inflightCPU int
	inflightMem int64

	workCh chan *model.TaskNode
}

// Execute runs the graph until every node is terminal. Task failures never
// surface as an error: they are reported through the result set's failure
// list and the affected branch alone is failed. A non-nil error means the
// execution as a whole did not finish, e.g. it was canceled.
func (s *Scheduler) Execute(ctx context.Context, g *model.TaskGraph) (*model.ResultSet, error) {
	r := &run{
		sched:     s,
		graph:     g,
		waitDeps:  make(map[model.TaskID]int, g.Len()),
		remaining: g.Len(),
		workCh:    make(chan *model.TaskNode),
	}
	r.cond = sync.NewCond(&r.mu)
	for _, n := range g.Nodes() {
		r.waitDeps[n.ID] = len(n.DependsOn)
		if len(n.DependsOn) == 0 {
			if err := n.SetStatus(model.StatusReady); err != nil {
				return nil, errors.Trace(err)
			}
			r.ready = append(r.ready, n)
		}
	}

	start := time.Now()
	log.Info("batch execution started",
		zap.Int("tasks", g.Len()),
		zap.Int("samples", g.SampleCount()),
		zap.Int("workers", s.workerCount))

	errg, gctx := errgroup.WithContext(ctx)
	// wake the dispatcher when the context dies, it may be in cond.Wait
	wakerDone := make(chan struct{})
	var wakerWg sync.WaitGroup
	wakerWg.Add(1)
	go func() {
		defer wakerWg.Done()
		select {
		case <-gctx.Done():
		case <-wakerDone:
		}
		r.cond.Broadcast()
	}()

	errg.Go(func() error { return r.dispatch(gctx) })
	for i := 0; i < s.workerCount; i++ {
		errg.Go(func() error { return r.work(gctx) })
	}
	err := errg.Wait()
	close(wakerDone)
	wakerWg.Wait()

	canceled := 0
	for _, n := range g.Nodes() {
		if n.Cancel(cerror.ErrExecutionCanceled.FastGenByArgs()) {
			canceled++
		}
	}
	res := aggregator.Collect(g)

	log.Info("batch execution finished",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("failed", len(res.FailedTasks)),
		zap.Int("canceled", canceled))

	if err != nil {
		if errors.Cause(err) == context.Canceled {
			return res, cerror.ErrExecutionCanceled.Wrap(err).GenWithStackByArgs()
		}
		return res, errors.Trace(err)
	}
	return res, nil
}

// dispatch moves ready tasks to the workers, bounded by the resource
// quotas. An oversized task that could never fit dispatches alone, when
// nothing else is in flight, so it cannot starve.
func (r *run) dispatch(ctx context.Context) error {
	for {
		r.mu.Lock()
		var next *model.TaskNode
		for {
			if ctx.Err() != nil {
				r.mu.Unlock()
				return errors.Trace(ctx.Err())
			}
			if r.remaining == 0 {
				r.mu.Unlock()
				close(r.workCh)
				return nil
			}
			if next = r.pickLocked(); next != nil {
				break
			}
			r.cond.Wait()
		}
		r.inflight++
		r.inflightCPU += next.Resources.CPU
		r.inflightMem += next.Resources.Memory
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		case r.workCh <- next:
		}
	}
}

// pickLocked returns the first ready task that fits the remaining quota,
// removing it from the queue. r.mu must be held.
func (r *run) pickLocked() *model.TaskNode {
	for i, n := range r.ready {
		if r.fitsLocked(n) {
			r.ready = append(r.ready[:i], r.ready[i+1:]...)
			return n
		}
	}
	return nil
}

func (r *run) fitsLocked(n *model.TaskNode) bool {
	if r.inflight == 0 {
		return true
	}
	if q := r.sched.cpuQuota; q > 0 && r.inflightCPU+n.Resources.CPU > q {
		return false
	}
	if q := r.sched.memQuota; q > 0 && r.inflightMem+n.Resources.Memory > q {
		return false
	}
	return true
}

func (r *run) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return errors.Trace(ctx.Err())
		case n, ok := <-r.workCh:
			if !ok {
				return nil
			}
			if err := r.runTask(ctx, n); err != nil {
				return errors.Trace(err)
			}
		}
	}
}

// runTask is the only suspension point: it blocks in the invoker. A non-nil
// return is an internal fault or cancellation, never a task failure.
func (r *run) runTask(ctx context.Context, n *model.TaskNode) error {
	if err := n.SetStatus(model.StatusRunning); err != nil {
		return errors.Trace(err)
	}
	runningTasksGauge.Inc()
	start := time.Now()
	outputs, invErr := r.sched.inv.Invoke(ctx, n, r.upstreamOutputs(n))
	runningTasksGauge.Dec()
	taskDurationHistogram.WithLabelValues(n.Kind.String()).
		Observe(time.Since(start).Seconds())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight--
	r.inflightCPU -= n.Resources.CPU
	r.inflightMem -= n.Resources.Memory
	defer r.cond.Broadcast()

	if invErr != nil {
		if ctx.Err() != nil {
			// the run is being canceled, leave the node to the final sweep
			return errors.Trace(ctx.Err())
		}
		log.Warn("task failed",
			zap.String("task", string(n.ID)),
			zap.String("kind", n.Kind.String()),
			zap.Error(invErr))
		taskCounter.WithLabelValues(n.Kind.String(), "failed").Inc()
		if err := n.Fail(cerror.WrapError(cerror.ErrTaskFailed, invErr, n.ID)); err != nil {
			return errors.Trace(err)
		}
		r.remaining--
		return r.failBranchLocked(n)
	}

	if err := n.Succeed(outputs); err != nil {
		return errors.Trace(err)
	}
	taskCounter.WithLabelValues(n.Kind.String(), "succeeded").Inc()
	r.remaining--
	for _, depID := range r.graph.Dependents(n.ID) {
		r.waitDeps[depID]--
		if r.waitDeps[depID] > 0 {
			continue
		}
		dep := r.graph.Node(depID)
		if dep.Status() != model.StatusPending {
			continue
		}
		if err := dep.SetStatus(model.StatusReady); err != nil {
			return errors.Trace(err)
		}
		r.ready = append(r.ready, dep)
	}
	return nil
}

// failBranchLocked marks every transitive dependent of n as Failed without
// running it. Dependents of a failing node are always still Pending: a node
// only leaves Pending once all of its dependencies succeeded.
func (r *run) failBranchLocked(n *model.TaskNode) error {
	queue := append([]model.TaskID(nil), r.graph.Dependents(n.ID)...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		dep := r.graph.Node(id)
		if dep.Status().IsTerminal() {
			continue
		}
		err := dep.Fail(cerror.ErrDependencyFailed.FastGenByArgs(id, n.ID))
		if err != nil {
			return errors.Trace(err)
		}
		taskCounter.WithLabelValues(dep.Kind.String(), "failed").Inc()
		r.remaining--
		queue = append(queue, r.graph.Dependents(id)...)
	}
	return nil
}

// upstreamOutputs gathers the dependency outputs per slot, in DependsOn
// order. All dependencies have succeeded by the time a node runs.
func (r *run) upstreamOutputs(n *model.TaskNode) model.UpstreamOutputs {
	if len(n.DependsOn) == 0 {
		return nil
	}
	up := make(model.UpstreamOutputs)
	for _, id := range n.DependsOn {
		for slot, a := range r.graph.Node(id).Outputs() {
			up[slot] = append(up[slot], a)
		}
	}
	return up
}
