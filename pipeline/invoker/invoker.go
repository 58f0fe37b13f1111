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

// Package invoker is the boundary between the graph executor and the
// external tools that do the actual work. The scheduler depends only on
// the Invoker contract, never on what a command does.
package invoker

import (
	"context"

	"github.com/pingcap/seqflow/pipeline/model"
)

// Invoker runs one task's external operation. Upstream carries the outputs
// of the task's dependencies in dependency order. Invoke must honor ctx
// cancellation; it is the only suspension point of the executor.
type Invoker interface {
	Invoke(ctx context.Context, task *model.TaskNode, upstream model.UpstreamOutputs) (map[string]model.Artifact, error)
}

// Func adapts a function to the Invoker interface.
type Func func(ctx context.Context, task *model.TaskNode, upstream model.UpstreamOutputs) (map[string]model.Artifact, error)

// Invoke implements Invoker.
func (f Func) Invoke(ctx context.Context, task *model.TaskNode, upstream model.UpstreamOutputs) (map[string]model.Artifact, error) {
	return f(ctx, task, upstream)
}
