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

package aggregator

import (
	"testing"

	"github.com/pingcap/errors"
	"github.com/pingcap/seqflow/pipeline/model"
	"github.com/stretchr/testify/require"
)

func mustRun(t *testing.T, n *model.TaskNode) {
	t.Helper()
	require.NoError(t, n.SetStatus(model.StatusReady))
	require.NoError(t, n.SetStatus(model.StatusRunning))
}

func succeed(t *testing.T, n *model.TaskNode, outputs map[string]model.Artifact) {
	t.Helper()
	mustRun(t, n)
	require.NoError(t, n.Succeed(outputs))
}

// twoSampleGraph builds a terminalizable graph with one flowcell per sample.
func twoSampleGraph(t *testing.T) *model.TaskGraph {
	t.Helper()
	nodes := []*model.TaskNode{
		{ID: "convert-0-0", Kind: model.KindConvert, SampleIndex: 0},
		{ID: "merge-0", Kind: model.KindMerge, SampleIndex: 0, DependsOn: []model.TaskID{"convert-0-0"}},
		{ID: "validate-0", Kind: model.KindValidate, SampleIndex: 0, DependsOn: []model.TaskID{"merge-0"}},
		{ID: "convert-1-0", Kind: model.KindConvert, SampleIndex: 1},
		{ID: "merge-1", Kind: model.KindMerge, SampleIndex: 1, DependsOn: []model.TaskID{"convert-1-0"}},
		{ID: "validate-1", Kind: model.KindValidate, SampleIndex: 1, DependsOn: []model.TaskID{"merge-1"}},
	}
	g, err := model.NewTaskGraph(nodes, 2)
	require.NoError(t, err)
	return g
}

func TestCollectOrdersBySampleIndex(t *testing.T) {
	t.Parallel()

	g := twoSampleGraph(t)
	// complete sample 1 before sample 0, results must still line up by index
	succeed(t, g.Node("convert-1-0"), map[string]model.Artifact{model.SlotBAM: "fc3.unmapped.bam"})
	succeed(t, g.Node("merge-1"), map[string]model.Artifact{model.SlotBAM: "s1.bam", model.SlotBAI: "s1.bai"})
	succeed(t, g.Node("validate-1"), map[string]model.Artifact{model.SlotReport: "s1.txt"})
	succeed(t, g.Node("convert-0-0"), map[string]model.Artifact{model.SlotBAM: "fc1.unmapped.bam"})
	succeed(t, g.Node("merge-0"), map[string]model.Artifact{model.SlotBAM: "s0.bam", model.SlotBAI: "s0.bai"})
	succeed(t, g.Node("validate-0"), map[string]model.Artifact{model.SlotReport: "s0.txt"})

	res := Collect(g)
	require.True(t, res.Complete())
	require.Len(t, res.MergedArtifacts, 2)
	require.Equal(t, model.Artifact("s0.bam"), *res.MergedArtifacts[0])
	require.Equal(t, model.Artifact("s1.bam"), *res.MergedArtifacts[1])
	require.Equal(t, model.Artifact("s0.bai"), *res.MergedIndexes[0])
	require.Equal(t, model.Artifact("s1.txt"), *res.ValidationReports[1])
}

func TestCollectMarksFailedBranchAbsent(t *testing.T) {
	t.Parallel()

	g := twoSampleGraph(t)
	cause := errors.New("conversion crashed")
	mustRun(t, g.Node("convert-0-0"))
	require.NoError(t, g.Node("convert-0-0").Fail(cause))
	require.NoError(t, g.Node("merge-0").Fail(cause))
	require.NoError(t, g.Node("validate-0").Fail(cause))

	succeed(t, g.Node("convert-1-0"), map[string]model.Artifact{model.SlotBAM: "fc3.bam"})
	succeed(t, g.Node("merge-1"), map[string]model.Artifact{model.SlotBAM: "s1.bam", model.SlotBAI: "s1.bai"})
	succeed(t, g.Node("validate-1"), map[string]model.Artifact{model.SlotReport: "s1.txt"})

	res := Collect(g)
	require.False(t, res.Complete())
	require.Nil(t, res.MergedArtifacts[0])
	require.Nil(t, res.MergedIndexes[0])
	require.Nil(t, res.ValidationReports[0])
	require.NotNil(t, res.MergedArtifacts[1])
	require.Equal(t,
		[]model.TaskID{"convert-0-0", "merge-0", "validate-0"},
		res.FailedTasks)
}

func TestCollectRecordsCanceledTasks(t *testing.T) {
	t.Parallel()

	g := twoSampleGraph(t)
	succeed(t, g.Node("convert-0-0"), map[string]model.Artifact{model.SlotBAM: "fc1.bam"})
	for _, id := range []model.TaskID{"merge-0", "validate-0", "convert-1-0", "merge-1", "validate-1"} {
		require.True(t, g.Node(id).Cancel(errors.New("stopped")))
	}

	res := Collect(g)
	require.Len(t, res.CanceledTasks, 5)
	require.Empty(t, res.FailedTasks)
	require.Nil(t, res.MergedArtifacts[0])
}
