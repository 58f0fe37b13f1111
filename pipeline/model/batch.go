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
	"encoding/json"

	cerror "github.com/pingcap/seqflow/pkg/errors"
	"go.uber.org/multierr"
)

// Flowcell is one sequencing run of a sample. R1Files and R2Files are
// positionally paired and must have equal length.
type Flowcell struct {
	Name    string   `json:"flowcellName"`
	R1Files []string `json:"r1Files"`
	R2Files []string `json:"r2Files"`
}

// Sample is one batch entry: a biological specimen whose sequencing data
// may span multiple flowcells. The (Name, DatasetID) pair identifies a
// sample within a batch.
type Sample struct {
	DatasetID string     `json:"datasetId"`
	Name      string     `json:"sampleName"`
	Library   string     `json:"libraryName"`
	Center    string     `json:"sequencingCenter"`
	Flowcells []Flowcell `json:"flowcells"`
}

// Batch is one submission. It is immutable after a successful Validate.
type Batch struct {
	Samples []Sample `json:"samples"`
}

// DecodeBatch parses and validates a batch submission document.
func DecodeBatch(data []byte) (*Batch, error) {
	b := new(Batch)
	if err := json.Unmarshal(data, b); err != nil {
		return nil, cerror.WrapError(cerror.ErrInvalidBatch, err, "malformed JSON")
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Validate checks the structural invariants of the batch. All violations
// are collected so a submitter sees every problem at once.
func (b *Batch) Validate() error {
	var errs error
	if len(b.Samples) == 0 {
		errs = multierr.Append(errs,
			cerror.ErrInvalidBatch.FastGenByArgs("batch has no samples"))
	}
	seen := make(map[[2]string]struct{}, len(b.Samples))
	for _, s := range b.Samples {
		key := [2]string{s.Name, s.DatasetID}
		if _, ok := seen[key]; ok {
			errs = multierr.Append(errs,
				cerror.ErrDuplicateSample.FastGenByArgs(s.Name, s.DatasetID))
		}
		seen[key] = struct{}{}

		if len(s.Flowcells) == 0 {
			errs = multierr.Append(errs,
				cerror.ErrEmptyFlowcells.FastGenByArgs(s.Name))
			continue
		}
		for _, fc := range s.Flowcells {
			if len(fc.R1Files) == 0 {
				errs = multierr.Append(errs, cerror.ErrInvalidBatch.FastGenByArgs(
					"flowcell "+fc.Name+" of sample "+s.Name+" has no input files"))
				continue
			}
			if len(fc.R1Files) != len(fc.R2Files) {
				errs = multierr.Append(errs, cerror.ErrPairedFileMismatch.FastGenByArgs(
					fc.Name, s.Name, len(fc.R1Files), len(fc.R2Files)))
			}
		}
	}
	if errs != nil {
		return cerror.WrapError(cerror.ErrInvalidBatch, errs, errs.Error())
	}
	return nil
}

// FlowcellCount returns the total number of flowcells across all samples.
func (b *Batch) FlowcellCount() int {
	n := 0
	for _, s := range b.Samples {
		n += len(s.Flowcells)
	}
	return n
}
