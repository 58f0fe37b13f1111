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

package invoker

import (
	"testing"

	"github.com/pingcap/seqflow/pipeline/model"
	"github.com/stretchr/testify/require"
)

func convertTask() *model.TaskNode {
	return &model.TaskNode{
		ID:   "convert-0-0",
		Kind: model.KindConvert,
		Inputs: map[string]string{
			model.InputR1Files:    "a_1.fq.gz",
			model.InputR2Files:    "a_2.fq.gz",
			model.InputFlowcell:   "H06HDADXX130110.1",
			model.InputSampleName: "NA12878",
			model.InputLibrary:    "Solexa-272222",
			model.InputCenter:     "BI",
		},
		Resources: model.ResourceSpec{CPU: 1, Memory: 7 << 30, Image: "broadinstitute/gatk:4.5.0.0"},
	}
}

func TestBuildArgsConvert(t *testing.T) {
	t.Parallel()

	d := &DockerInvoker{DataDir: "/srv/seqflow"}
	args, outputs, err := d.buildArgs(convertTask(), nil)
	require.NoError(t, err)

	require.Equal(t, []string{
		"run", "--rm",
		"--cpus", "1",
		"--memory", "7516192768b",
		"-v", "/srv/seqflow:/data",
		"broadinstitute/gatk:4.5.0.0",
	}, args[:9])
	require.Contains(t, args, "FastqToSam")
	require.Contains(t, args, "--FASTQ2")
	require.Contains(t, args, "a_2.fq.gz")
	require.Equal(t,
		model.Artifact("/data/NA12878.H06HDADXX130110.1.unmapped.bam"),
		outputs[model.SlotBAM])
}

func TestBuildArgsMerge(t *testing.T) {
	t.Parallel()

	task := &model.TaskNode{
		ID:        "merge-0",
		Kind:      model.KindMerge,
		Inputs:    map[string]string{model.InputSampleName: "NA12878"},
		Resources: model.ResourceSpec{CPU: 1, Memory: 4 << 30, Image: "gatk"},
	}
	upstream := model.UpstreamOutputs{
		model.SlotBAM: {"/data/fc1.bam", "/data/fc2.bam"},
	}

	d := &DockerInvoker{DataDir: "/srv/seqflow"}
	args, outputs, err := d.buildArgs(task, upstream)
	require.NoError(t, err)
	require.Contains(t, args, "MergeSamFiles")
	// both upstream bams appear as inputs, in dependency order
	i1, i2 := indexOf(t, args, "/data/fc1.bam"), indexOf(t, args, "/data/fc2.bam")
	require.Less(t, i1, i2)
	require.Equal(t, model.Artifact("/data/NA12878.unmapped.bam"), outputs[model.SlotBAM])
	require.Equal(t, model.Artifact("/data/NA12878.unmapped.bai"), outputs[model.SlotBAI])
}

func TestBuildArgsValidate(t *testing.T) {
	t.Parallel()

	task := &model.TaskNode{
		ID:        "validate-0",
		Kind:      model.KindValidate,
		Inputs:    map[string]string{model.InputSampleName: "NA12878"},
		Resources: model.ResourceSpec{CPU: 1, Memory: 7 << 30, Image: "gatk"},
	}
	upstream := model.UpstreamOutputs{
		model.SlotBAM: {"/data/NA12878.unmapped.bam"},
	}

	d := &DockerInvoker{DataDir: "/srv/seqflow"}
	args, outputs, err := d.buildArgs(task, upstream)
	require.NoError(t, err)
	require.Contains(t, args, "ValidateSamFile")
	require.Contains(t, args, "SUMMARY")
	require.Equal(t, model.Artifact("/data/NA12878.validation.txt"), outputs[model.SlotReport])
}

func TestBuildArgsRequiresUpstream(t *testing.T) {
	t.Parallel()

	d := &DockerInvoker{DataDir: "/srv/seqflow"}
	for _, kind := range []model.TaskKind{model.KindMerge, model.KindValidate} {
		task := &model.TaskNode{
			ID:     "x",
			Kind:   kind,
			Inputs: map[string]string{model.InputSampleName: "s"},
		}
		_, _, err := d.buildArgs(task, nil)
		require.Error(t, err)
	}
}

func indexOf(t *testing.T, args []string, want string) int {
	t.Helper()
	for i, a := range args {
		if a == want {
			return i
		}
	}
	t.Fatalf("%q not found in %v", want, args)
	return -1
}
