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
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path"
	"strconv"
	"strings"

	"github.com/pingcap/log"
	"github.com/pingcap/seqflow/pipeline/model"
	cerror "github.com/pingcap/seqflow/pkg/errors"
	"go.uber.org/zap"
)

const containerDataDir = "/data"

// DockerInvoker is the reference collaborator: it delegates each task kind
// to a GATK command line inside a docker container, with the task's
// declared cpu and memory applied as container limits. Input and output
// artifacts live under DataDir, mounted into the container.
type DockerInvoker struct {
	// Binary is the container CLI, "docker" if empty.
	Binary string
	// DataDir is the host directory holding input files and receiving
	// produced artifacts.
	DataDir string
}

// Invoke implements Invoker.
func (d *DockerInvoker) Invoke(
	ctx context.Context, task *model.TaskNode, upstream model.UpstreamOutputs,
) (map[string]model.Artifact, error) {
	args, outputs, err := d.buildArgs(task, upstream)
	if err != nil {
		return nil, err
	}
	binary := d.Binary
	if binary == "" {
		binary = "docker"
	}

	log.Info("invoking external tool",
		zap.String("task", string(task.ID)),
		zap.String("kind", task.Kind.String()),
		zap.String("image", task.Resources.Image))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, cerror.ErrInvokerExited.GenWithStackByArgs(
			fmt.Sprintf("%s: %s", err, lastLine(stderr.String())))
	}
	return outputs, nil
}

// buildArgs maps a task to its docker command line and the artifact
// references the command produces.
func (d *DockerInvoker) buildArgs(
	task *model.TaskNode, upstream model.UpstreamOutputs,
) (args []string, outputs map[string]model.Artifact, err error) {
	args = []string{
		"run", "--rm",
		"--cpus", strconv.Itoa(task.Resources.CPU),
		"--memory", fmt.Sprintf("%db", task.Resources.Memory),
		"-v", d.DataDir + ":" + containerDataDir,
		task.Resources.Image,
	}
	sample := task.Inputs[model.InputSampleName]

	switch task.Kind {
	case model.KindConvert:
		out := path.Join(containerDataDir,
			fmt.Sprintf("%s.%s.unmapped.bam", sample, task.Inputs[model.InputFlowcell]))
		args = append(args, "gatk", "FastqToSam",
			"--FASTQ", task.Inputs[model.InputR1Files],
			"--FASTQ2", task.Inputs[model.InputR2Files],
			"--OUTPUT", out,
			"--READ_GROUP_NAME", task.Inputs[model.InputFlowcell],
			"--SAMPLE_NAME", sample,
			"--LIBRARY_NAME", task.Inputs[model.InputLibrary],
			"--SEQUENCING_CENTER", task.Inputs[model.InputCenter],
			"--PLATFORM", "illumina",
		)
		outputs = map[string]model.Artifact{model.SlotBAM: model.Artifact(out)}

	case model.KindMerge:
		bams := upstream[model.SlotBAM]
		if len(bams) == 0 {
			return nil, nil, cerror.ErrMissingOutput.GenWithStackByArgs(task.ID, model.SlotBAM)
		}
		out := path.Join(containerDataDir, sample+".unmapped.bam")
		args = append(args, "gatk", "MergeSamFiles")
		for _, bam := range bams {
			args = append(args, "--INPUT", string(bam))
		}
		args = append(args,
			"--OUTPUT", out,
			"--SORT_ORDER", "unsorted",
			"--CREATE_INDEX", "true",
		)
		outputs = map[string]model.Artifact{
			model.SlotBAM: model.Artifact(out),
			model.SlotBAI: model.Artifact(strings.TrimSuffix(out, ".bam") + ".bai"),
		}

	case model.KindValidate:
		bams := upstream[model.SlotBAM]
		if len(bams) == 0 {
			return nil, nil, cerror.ErrMissingOutput.GenWithStackByArgs(task.ID, model.SlotBAM)
		}
		out := path.Join(containerDataDir, sample+".validation.txt")
		args = append(args, "gatk", "ValidateSamFile",
			"--INPUT", string(bams[0]),
			"--OUTPUT", out,
			"--MODE", "SUMMARY",
		)
		outputs = map[string]model.Artifact{model.SlotReport: model.Artifact(out)}

	default:
		return nil, nil, cerror.ErrInvokerExited.GenWithStackByArgs(
			"unknown task kind " + task.Kind.String())
	}
	return args, outputs, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
