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

// ResultSet is the final output of one batch execution. Every slice is
// index-aligned with the submitted sample order; a nil element marks a
// sample whose branch failed or was canceled.
type ResultSet struct {
	MergedArtifacts   []*Artifact `json:"mergedArtifacts"`
	MergedIndexes     []*Artifact `json:"mergedIndexes"`
	ValidationReports []*Artifact `json:"validationReports"`

	FailedTasks   []TaskID `json:"failedTasks,omitempty"`
	CanceledTasks []TaskID `json:"canceledTasks,omitempty"`
}

// NewResultSet returns an empty result set sized for sampleCount samples.
func NewResultSet(sampleCount int) *ResultSet {
	return &ResultSet{
		MergedArtifacts:   make([]*Artifact, sampleCount),
		MergedIndexes:     make([]*Artifact, sampleCount),
		ValidationReports: make([]*Artifact, sampleCount),
	}
}

// Complete reports whether every sample's branch produced its outputs.
func (r *ResultSet) Complete() bool {
	return len(r.FailedTasks) == 0 && len(r.CanceledTasks) == 0
}
