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

package model

import (
	"sync"

	cerror "github.com/pingcap/seqflow/pkg/errors"
)

// TaskID identifies one task node within a graph. IDs are deterministic
// functions of the batch position, so rebuilding a graph from identical
// input yields identical IDs.
type TaskID string

// TaskKind is the kind of external operation a task node runs.
type TaskKind int

// Task kinds.
const (
	KindConvert TaskKind = iota
	KindMerge
	KindValidate
)

// String implements fmt.Stringer.
func (k TaskKind) String() string {
	switch k {
	case KindConvert:
		return "convert"
	case KindMerge:
		return "merge"
	case KindValidate:
		return "validate"
	}
	return "unknown"
}

// TaskStatus is the lifecycle state of a task node.
type TaskStatus int32

// Task statuses. Succeeded, Failed and Canceled are terminal.
const (
	StatusPending TaskStatus = iota
	StatusReady
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusCanceled
)

// String implements fmt.Stringer.
func (s TaskStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	}
	return "unknown"
}

// IsTerminal reports whether the status is final.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// Artifact is a reference to a produced file, opaque to the executor.
type Artifact string

// Output slot names.
const (
	SlotBAM    = "bam"
	SlotBAI    = "bai"
	SlotReport = "report"
)

// Input keys shared by all task kinds.
const (
	InputR1Files    = "r1_files"
	InputR2Files    = "r2_files"
	InputSampleName = "sample_name"
	InputLibrary    = "library_name"
	InputCenter     = "sequencing_center"
	InputDatasetID  = "dataset_id"
	InputFlowcell   = "flowcell_name"
)

// ResourceSpec declares the resources one task invocation needs.
type ResourceSpec struct {
	CPU    int    `json:"cpu"`
	Memory int64  `json:"memory"`
	Image  string `json:"image"`
}

// UpstreamOutputs carries the outputs of a node's dependencies at invocation
// time, keyed by output slot, ordered by the node's DependsOn order.
type UpstreamOutputs map[string][]Artifact

// TaskNode is one unit of work in a task graph. The graph builder creates
// all nodes and owns the structural fields; the scheduler mutates only the
// status and, exactly once on success, the outputs.
type TaskNode struct {
	ID            TaskID
	Kind          TaskKind
	SampleIndex   int
	FlowcellIndex int
	DependsOn     []TaskID
	Inputs        map[string]string
	Resources     ResourceSpec

	mu      sync.RWMutex
	status  TaskStatus
	outputs map[string]Artifact
	cause   error
}

// Status returns the current status of the node.
func (n *TaskNode) Status() TaskStatus {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// Cause returns the error that terminated the node, nil unless the node is
// Failed or Canceled.
func (n *TaskNode) Cause() error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.cause
}

// Outputs returns the artifacts produced by the node. It is nil until the
// node has Succeeded and must not be mutated by callers.
func (n *TaskNode) Outputs() map[string]Artifact {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.outputs
}

// Output returns one output slot, empty if unset.
func (n *TaskNode) Output(slot string) (Artifact, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	a, ok := n.outputs[slot]
	return a, ok
}

func legalTransition(from, to TaskStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusReady || to == StatusFailed || to == StatusCanceled
	case StatusReady:
		return to == StatusRunning || to == StatusFailed || to == StatusCanceled
	case StatusRunning:
		return to == StatusSucceeded || to == StatusFailed || to == StatusCanceled
	}
	return false
}

// SetStatus transitions the node to a new status. Succeeding must go through
// Succeed so outputs are recorded atomically with the transition.
func (n *TaskNode) SetStatus(to TaskStatus) error {
	if to == StatusSucceeded {
		return n.Succeed(nil)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !legalTransition(n.status, to) {
		return cerror.ErrInvalidTaskTransition.GenWithStackByArgs(
			n.ID, n.status.String(), to.String())
	}
	n.status = to
	return nil
}

// Succeed transitions a Running node to Succeeded and records its outputs.
// The outputs are write-once: unset before success, never mutated after.
func (n *TaskNode) Succeed(outputs map[string]Artifact) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !legalTransition(n.status, StatusSucceeded) {
		return cerror.ErrInvalidTaskTransition.GenWithStackByArgs(
			n.ID, n.status.String(), StatusSucceeded.String())
	}
	if n.outputs != nil {
		return cerror.ErrOutputsAlreadySet.GenWithStackByArgs(n.ID)
	}
	n.status = StatusSucceeded
	n.outputs = outputs
	return nil
}

// Fail transitions the node to Failed and records the cause. Pending and
// Ready nodes can fail too, when a dependency failed.
func (n *TaskNode) Fail(cause error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !legalTransition(n.status, StatusFailed) {
		return cerror.ErrInvalidTaskTransition.GenWithStackByArgs(
			n.ID, n.status.String(), StatusFailed.String())
	}
	n.status = StatusFailed
	n.cause = cause
	return nil
}

// Cancel transitions a non-terminal node to Canceled. Canceling an already
// terminal node is a no-op returning false.
func (n *TaskNode) Cancel(cause error) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status.IsTerminal() {
		return false
	}
	n.status = StatusCanceled
	n.cause = cause
	return true
}

// TaskGraph is the materialized DAG of one batch submission. The node set
// and edges are immutable after construction; only node statuses and
// outputs change during execution.
type TaskGraph struct {
	nodes       []*TaskNode
	byID        map[TaskID]*TaskNode
	dependents  map[TaskID][]TaskID
	sampleCount int
}

// NewTaskGraph assembles a graph from nodes. Nodes keep their given order,
// which is the deterministic build order.
func NewTaskGraph(nodes []*TaskNode, sampleCount int) (*TaskGraph, error) {
	g := &TaskGraph{
		nodes:       nodes,
		byID:        make(map[TaskID]*TaskNode, len(nodes)),
		dependents:  make(map[TaskID][]TaskID),
		sampleCount: sampleCount,
	}
	for _, n := range nodes {
		if _, ok := g.byID[n.ID]; ok {
			return nil, cerror.ErrDuplicateTaskID.GenWithStackByArgs(n.ID)
		}
		g.byID[n.ID] = n
	}
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if _, ok := g.byID[dep]; !ok {
				return nil, cerror.ErrUnknownDependency.GenWithStackByArgs(n.ID, dep)
			}
			g.dependents[dep] = append(g.dependents[dep], n.ID)
		}
	}
	return g, nil
}

// Node returns the node with the given id, nil if absent.
func (g *TaskGraph) Node(id TaskID) *TaskNode {
	return g.byID[id]
}

// Nodes returns all nodes in build order. The returned slice must not be
// mutated.
func (g *TaskGraph) Nodes() []*TaskNode {
	return g.nodes
}

// Dependents returns the ids of the nodes that directly depend on id.
func (g *TaskGraph) Dependents(id TaskID) []TaskID {
	return g.dependents[id]
}

// Len returns the number of nodes.
func (g *TaskGraph) Len() int {
	return len(g.nodes)
}

// SampleCount returns the number of samples of the originating batch.
func (g *TaskGraph) SampleCount() int {
	return g.sampleCount
}
