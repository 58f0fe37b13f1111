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
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/seqflow/pipeline/model"
	"github.com/pingcap/seqflow/pkg/config"
	cerror "github.com/pingcap/seqflow/pkg/errors"
	"go.uber.org/zap"
)

// RetryOptions bounds the retry wrapper. MaxTries counts the first attempt,
// so MaxTries = 1 disables retrying entirely.
type RetryOptions struct {
	MaxTries    int64
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// RetryOptionsFromConfig resolves the configured retry policy.
func RetryOptionsFromConfig(rc *config.RetryConfig) RetryOptions {
	return RetryOptions{
		MaxTries:    rc.MaxTries,
		BackoffBase: time.Duration(rc.BackoffBaseMs) * time.Millisecond,
		BackoffMax:  time.Duration(rc.BackoffMaxMs) * time.Millisecond,
	}
}

// WithRetry wraps an invoker with bounded exponential backoff. Retrying is
// a policy layered on top of the collaborator: the graph scheduler itself
// never retries, a task whose final attempt fails is terminal.
func WithRetry(inner Invoker, opts RetryOptions) Invoker {
	if opts.MaxTries <= 1 {
		return inner
	}
	return &retryInvoker{inner: inner, opts: opts}
}

type retryInvoker struct {
	inner Invoker
	opts  RetryOptions
}

func (r *retryInvoker) Invoke(
	ctx context.Context, task *model.TaskNode, upstream model.UpstreamOutputs,
) (map[string]model.Artifact, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.opts.BackoffBase
	expo.MaxInterval = r.opts.BackoffMax
	bo := backoff.WithContext(
		backoff.WithMaxRetries(expo, uint64(r.opts.MaxTries-1)), ctx)

	var outputs map[string]model.Artifact
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		o, err := r.inner.Invoke(ctx, task, upstream)
		if err != nil {
			if errors.Cause(err) == context.Canceled ||
				cerror.IsConfigurationError(err) {
				return backoff.Permanent(err)
			}
			log.Warn("task attempt failed, will retry",
				zap.String("task", string(task.ID)),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		outputs = o
		return nil
	}, bo)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return outputs, nil
}
