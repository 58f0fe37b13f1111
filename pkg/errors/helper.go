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

// WrapError wraps an error into the given RFC-coded error, returns nil if
// the wrapped error is nil.
func WrapError(rfcError *errors.Error, err error, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return rfcError.Wrap(err).GenWithStackByArgs(args...)
}

// IsConfigurationError reports whether err belongs to the batch validation
// error class, i.e. it was (or would be) raised before any task ran.
func IsConfigurationError(err error) bool {
	return ErrInvalidBatch.Equal(err) ||
		ErrEmptyFlowcells.Equal(err) ||
		ErrPairedFileMismatch.Equal(err) ||
		ErrDuplicateSample.Equal(err)
}
