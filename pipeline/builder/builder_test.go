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

package builder

import (
	"testing"

	"github.com/pingcap/seqflow/pipeline/model"
	"github.com/pingcap/seqflow/pkg/config"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		Convert:  model.ResourceSpec{CPU: 1, Memory: 7 << 30, Image: "gatk"},
		Merge:    model.ResourceSpec{CPU: 1, Memory: 4 << 30, Image: "gatk"},
		Validate: model.ResourceSpec{CPU: 1, Memory: 7 << 30, Image: "gatk"},
	}
}

func testBatch() *model.Batch {
	return &model.Batch{Samples: []model.Sample{
		{
			DatasetID: "ds1", Name: "NA12878", Library: "lib1", Center: "BI",
			Flowcells: []model.Flowcell{
				{Name: "fc1", R1Files: []string{"a_1.fq"}, R2Files: []string{"a_2.fq"}},
				{Name: "fc2", R1Files: []string{"b_1.fq"}, R2Files: []string{"b_2.fq"}},
			},
		},
		{
			DatasetID: "ds1", Name: "NA12891", Library: "lib2", Center: "BI",
			Flowcells: []model.Flowcell{
				{Name: "fc3", R1Files: []string{"c_1.fq"}, R2Files: []string{"c_2.fq"}},
			},
		},
	}}
}

func TestBuildNodeCounts(t *testing.T) {
	t.Parallel()

	g, err := Build(testBatch(), testOptions())
	require.NoError(t, err)
	// one convert per flowcell, one merge and one validate per sample
	require.Equal(t, 3+2+2, g.Len())

	counts := make(map[model.TaskKind]int)
	for _, n := range g.Nodes() {
		counts[n.Kind]++
	}
	require.Equal(t, 3, counts[model.KindConvert])
	require.Equal(t, 2, counts[model.KindMerge])
	require.Equal(t, 2, counts[model.KindValidate])
	require.Equal(t, 2, g.SampleCount())
}

func TestBuildEdges(t *testing.T) {
	t.Parallel()

	g, err := Build(testBatch(), testOptions())
	require.NoError(t, err)

	merge0 := g.Node("merge-0")
	require.NotNil(t, merge0)
	require.Equal(t, []model.TaskID{"convert-0-0", "convert-0-1"}, merge0.DependsOn)

	validate0 := g.Node("validate-0")
	require.Equal(t, []model.TaskID{"merge-0"}, validate0.DependsOn)

	merge1 := g.Node("merge-1")
	require.Equal(t, []model.TaskID{"convert-1-0"}, merge1.DependsOn)

	// no cross-sample edges: sample 1 nodes never appear among sample 0 dependents
	for _, id := range []model.TaskID{"convert-0-0", "convert-0-1", "merge-0", "validate-0"} {
		for _, dep := range g.Dependents(id) {
			require.Equal(t, 0, g.Node(dep).SampleIndex)
		}
	}
}

func TestBuildConvertInputs(t *testing.T) {
	t.Parallel()

	g, err := Build(testBatch(), testOptions())
	require.NoError(t, err)

	n := g.Node("convert-0-1")
	require.Equal(t, "b_1.fq", n.Inputs[model.InputR1Files])
	require.Equal(t, "b_2.fq", n.Inputs[model.InputR2Files])
	require.Equal(t, "fc2", n.Inputs[model.InputFlowcell])
	require.Equal(t, "NA12878", n.Inputs[model.InputSampleName])
	require.Equal(t, "lib1", n.Inputs[model.InputLibrary])
	require.Equal(t, "BI", n.Inputs[model.InputCenter])
	require.Equal(t, 1, n.FlowcellIndex)
	require.Equal(t, model.ResourceSpec{CPU: 1, Memory: 7 << 30, Image: "gatk"}, n.Resources)
}

func TestBuildDeterministic(t *testing.T) {
	t.Parallel()

	g1, err := Build(testBatch(), testOptions())
	require.NoError(t, err)
	g2, err := Build(testBatch(), testOptions())
	require.NoError(t, err)

	require.Equal(t, g1.Len(), g2.Len())
	for i, n1 := range g1.Nodes() {
		n2 := g2.Nodes()[i]
		require.Equal(t, n1.ID, n2.ID)
		require.Equal(t, n1.Kind, n2.Kind)
		require.Equal(t, n1.DependsOn, n2.DependsOn)
		require.Equal(t, n1.Inputs, n2.Inputs)
	}
}

func TestBuildRejectsEmptyFlowcells(t *testing.T) {
	t.Parallel()

	b := testBatch()
	b.Samples[1].Flowcells = nil
	_, err := Build(b, testOptions())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no flowcells")
}

func TestBuildRejectsPairedMismatch(t *testing.T) {
	t.Parallel()

	b := testBatch()
	b.Samples[0].Flowcells[0].R2Files = append(b.Samples[0].Flowcells[0].R2Files, "extra.fq")
	_, err := Build(b, testOptions())
	require.Error(t, err)
	require.Contains(t, err.Error(), "R2 files")
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.GetDefaultConfig()
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	require.Equal(t, int64(7<<30), opts.Convert.Memory)
	require.Equal(t, int64(4<<30), opts.Merge.Memory)
	require.Equal(t, cfg.Validate.Image, opts.Validate.Image)
}
