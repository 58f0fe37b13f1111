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

// Package builder expands a batch into a materialized task graph: one
// convert node per flowcell, one merge node per sample depending on all of
// that sample's convert nodes, one validate node per sample depending on
// the merge node. Samples share no edges; they are independent sub-graphs.
package builder

import (
	"fmt"
	"strings"

	"github.com/pingcap/errors"
	"github.com/pingcap/seqflow/pipeline/model"
	"github.com/pingcap/seqflow/pkg/config"
)

// Options carries the per-kind resource declarations stamped onto the
// created nodes.
type Options struct {
	Convert  model.ResourceSpec
	Merge    model.ResourceSpec
	Validate model.ResourceSpec
}

// OptionsFromConfig resolves the configured resource declarations into
// builder options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	var opts Options
	for _, item := range []struct {
		rc   *config.TaskResourceConfig
		spec *model.ResourceSpec
	}{
		{cfg.Convert, &opts.Convert},
		{cfg.Merge, &opts.Merge},
		{cfg.Validate, &opts.Validate},
	} {
		mem, err := item.rc.MemoryBytes()
		if err != nil {
			return Options{}, errors.Trace(err)
		}
		*item.spec = model.ResourceSpec{
			CPU:    item.rc.CPU,
			Memory: mem,
			Image:  item.rc.Image,
		}
	}
	return opts, nil
}

// Build is a pure function from a batch to its task graph. It performs no
// I/O and fails only on structurally invalid input. Building twice from
// identical input produces structurally identical graphs.
func Build(batch *model.Batch, opts Options) (*model.TaskGraph, error) {
	if err := batch.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	nodes := make([]*model.TaskNode, 0, batch.FlowcellCount()+2*len(batch.Samples))
	for i, sample := range batch.Samples {
		convertIDs := make([]model.TaskID, 0, len(sample.Flowcells))
		for j, fc := range sample.Flowcells {
			id := model.TaskID(fmt.Sprintf("convert-%d-%d", i, j))
			convertIDs = append(convertIDs, id)
			nodes = append(nodes, &model.TaskNode{
				ID:            id,
				Kind:          model.KindConvert,
				SampleIndex:   i,
				FlowcellIndex: j,
				Inputs: map[string]string{
					model.InputR1Files:    strings.Join(fc.R1Files, ","),
					model.InputR2Files:    strings.Join(fc.R2Files, ","),
					model.InputFlowcell:   fc.Name,
					model.InputSampleName: sample.Name,
					model.InputLibrary:    sample.Library,
					model.InputCenter:     sample.Center,
					model.InputDatasetID:  sample.DatasetID,
				},
				Resources: opts.Convert,
			})
		}

		mergeID := model.TaskID(fmt.Sprintf("merge-%d", i))
		nodes = append(nodes, &model.TaskNode{
			ID:          mergeID,
			Kind:        model.KindMerge,
			SampleIndex: i,
			DependsOn:   convertIDs,
			Inputs: map[string]string{
				model.InputSampleName: sample.Name,
				model.InputDatasetID:  sample.DatasetID,
			},
			Resources: opts.Merge,
		})
		nodes = append(nodes, &model.TaskNode{
			ID:          model.TaskID(fmt.Sprintf("validate-%d", i)),
			Kind:        model.KindValidate,
			SampleIndex: i,
			DependsOn:   []model.TaskID{mergeID},
			Inputs: map[string]string{
				model.InputSampleName: sample.Name,
				model.InputDatasetID:  sample.DatasetID,
			},
			Resources: opts.Validate,
		})
	}

	return model.NewTaskGraph(nodes, len(batch.Samples))
}
