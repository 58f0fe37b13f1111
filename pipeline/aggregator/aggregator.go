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

// Package aggregator reduces a terminal task graph into the batch-ordered
// result arrays. Results are indexed by the submitted sample order, never
// by completion order.
package aggregator

import (
	"github.com/pingcap/seqflow/pipeline/model"
)

// Collect walks a graph whose nodes have all reached a terminal status and
// assembles the result set. Samples whose branch failed or was canceled
// keep nil markers at their index. Failed and canceled task ids are listed
// in graph build order, so the output is deterministic.
func Collect(g *model.TaskGraph) *model.ResultSet {
	res := model.NewResultSet(g.SampleCount())
	for _, n := range g.Nodes() {
		switch n.Status() {
		case model.StatusFailed:
			res.FailedTasks = append(res.FailedTasks, n.ID)
		case model.StatusCanceled:
			res.CanceledTasks = append(res.CanceledTasks, n.ID)
		case model.StatusSucceeded:
			switch n.Kind {
			case model.KindMerge:
				if a, ok := n.Output(model.SlotBAM); ok {
					res.MergedArtifacts[n.SampleIndex] = &a
				}
				if a, ok := n.Output(model.SlotBAI); ok {
					res.MergedIndexes[n.SampleIndex] = &a
				}
			case model.KindValidate:
				if a, ok := n.Output(model.SlotReport); ok {
					res.ValidationReports[n.SampleIndex] = &a
				}
			}
		}
	}
	return res
}
