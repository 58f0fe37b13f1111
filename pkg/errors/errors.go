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

package errors

import (
	"github.com/pingcap/errors"
)

// all seqflow errors
var (
	// batch validation errors, raised before any task is dispatched
	ErrInvalidBatch = errors.Normalize(
		"invalid batch: %s",
		errors.RFCCodeText("SEQ:ErrInvalidBatch"),
	)
	ErrEmptyFlowcells = errors.Normalize(
		"sample %s has no flowcells",
		errors.RFCCodeText("SEQ:ErrEmptyFlowcells"),
	)
	ErrPairedFileMismatch = errors.Normalize(
		"flowcell %s of sample %s has %d R1 files but %d R2 files",
		errors.RFCCodeText("SEQ:ErrPairedFileMismatch"),
	)
	ErrDuplicateSample = errors.Normalize(
		"duplicate sample identity (%s, %s)",
		errors.RFCCodeText("SEQ:ErrDuplicateSample"),
	)

	// task graph errors
	ErrDuplicateTaskID = errors.Normalize(
		"duplicate task id: %s",
		errors.RFCCodeText("SEQ:ErrDuplicateTaskID"),
	)
	ErrUnknownDependency = errors.Normalize(
		"task %s depends on unknown task %s",
		errors.RFCCodeText("SEQ:ErrUnknownDependency"),
	)
	ErrInvalidTaskTransition = errors.Normalize(
		"invalid status transition of task %s: %s -> %s",
		errors.RFCCodeText("SEQ:ErrInvalidTaskTransition"),
	)
	ErrOutputsAlreadySet = errors.Normalize(
		"outputs of task %s are already set",
		errors.RFCCodeText("SEQ:ErrOutputsAlreadySet"),
	)
	ErrMissingOutput = errors.Normalize(
		"task %s did not produce required output slot %s",
		errors.RFCCodeText("SEQ:ErrMissingOutput"),
	)

	// scheduler errors
	ErrTaskFailed = errors.Normalize(
		"task %s failed",
		errors.RFCCodeText("SEQ:ErrTaskFailed"),
	)
	ErrDependencyFailed = errors.Normalize(
		"task %s not run because dependency %s failed",
		errors.RFCCodeText("SEQ:ErrDependencyFailed"),
	)
	ErrExecutionCanceled = errors.Normalize(
		"batch execution canceled",
		errors.RFCCodeText("SEQ:ErrExecutionCanceled"),
	)

	// config errors
	ErrInvalidConfig = errors.Normalize(
		"invalid configuration: %s",
		errors.RFCCodeText("SEQ:ErrInvalidConfig"),
	)
	ErrDecodeConfigFile = errors.Normalize(
		"decode config file failed",
		errors.RFCCodeText("SEQ:ErrDecodeConfigFile"),
	)

	// server errors
	ErrRunNotFound = errors.Normalize(
		"batch run not found: %s",
		errors.RFCCodeText("SEQ:ErrRunNotFound"),
	)
	ErrRunNotDone = errors.Normalize(
		"batch run is still in progress: %s",
		errors.RFCCodeText("SEQ:ErrRunNotDone"),
	)

	// invoker errors
	ErrInvokerExited = errors.Normalize(
		"external tool exited abnormally: %s",
		errors.RFCCodeText("SEQ:ErrInvokerExited"),
	)
)
