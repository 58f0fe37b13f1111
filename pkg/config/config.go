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

package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/docker/go-units"
	"github.com/pingcap/errors"
	cerror "github.com/pingcap/seqflow/pkg/errors"
	"github.com/pingcap/seqflow/pkg/logutil"
)

const (
	defaultAddr        = "127.0.0.1:8600"
	defaultWorkerCount = 4
	defaultGatkImage   = "broadinstitute/gatk:4.5.0.0"
)

// SchedulerConfig configures the batch scheduler.
type SchedulerConfig struct {
	// WorkerCount is the number of concurrently running tasks.
	WorkerCount int `toml:"worker-count" json:"worker-count"`
	// CPUQuota caps the aggregate declared CPU of in-flight tasks,
	// 0 means unlimited.
	CPUQuota int `toml:"cpu-quota" json:"cpu-quota"`
	// MemoryQuota caps the aggregate declared memory of in-flight tasks,
	// e.g. "32GiB". Empty means unlimited.
	MemoryQuota string `toml:"memory-quota" json:"memory-quota"`
}

// MemoryQuotaBytes returns the parsed memory quota, 0 means unlimited.
func (c *SchedulerConfig) MemoryQuotaBytes() (int64, error) {
	if c.MemoryQuota == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(c.MemoryQuota)
	if err != nil {
		return 0, cerror.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("memory-quota %q: %s", c.MemoryQuota, err))
	}
	return n, nil
}

// RetryConfig configures the bounded-retry wrapper around task invocation.
// The scheduler itself never retries; with MaxTries = 1 a failed task is
// terminal, which is the default.
type RetryConfig struct {
	MaxTries      int64 `toml:"max-tries" json:"max-tries"`
	BackoffBaseMs int64 `toml:"backoff-base-ms" json:"backoff-base-ms"`
	BackoffMaxMs  int64 `toml:"backoff-max-ms" json:"backoff-max-ms"`
}

// TaskResourceConfig declares the resources of one task kind.
type TaskResourceConfig struct {
	CPU    int    `toml:"cpu" json:"cpu"`
	Memory string `toml:"memory" json:"memory"`
	Image  string `toml:"image" json:"image"`
}

// MemoryBytes returns the parsed declared memory of the task kind.
func (c *TaskResourceConfig) MemoryBytes() (int64, error) {
	n, err := units.RAMInBytes(c.Memory)
	if err != nil {
		return 0, cerror.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("task memory %q: %s", c.Memory, err))
	}
	return n, nil
}

// Config is the full configuration of a seqflow process.
type Config struct {
	// Addr is the listening address of the HTTP server.
	Addr string `toml:"addr" json:"addr"`

	Log       logutil.Config      `toml:"log" json:"log"`
	Scheduler *SchedulerConfig    `toml:"scheduler" json:"scheduler"`
	Retry     *RetryConfig        `toml:"retry" json:"retry"`
	Convert   *TaskResourceConfig `toml:"convert" json:"convert"`
	Merge     *TaskResourceConfig `toml:"merge" json:"merge"`
	Validate  *TaskResourceConfig `toml:"validate" json:"validate"`
}

// GetDefaultConfig returns the default configuration. The per-kind resource
// declarations mirror the upstream pipeline's task runtime attributes.
func GetDefaultConfig() *Config {
	return &Config{
		Addr: defaultAddr,
		Log:  logutil.Config{Level: "info"},
		Scheduler: &SchedulerConfig{
			WorkerCount: defaultWorkerCount,
		},
		Retry: &RetryConfig{
			MaxTries:      1,
			BackoffBaseMs: 100,
			BackoffMaxMs:  10000,
		},
		Convert:  &TaskResourceConfig{CPU: 1, Memory: "7GiB", Image: defaultGatkImage},
		Merge:    &TaskResourceConfig{CPU: 1, Memory: "4GiB", Image: defaultGatkImage},
		Validate: &TaskResourceConfig{CPU: 1, Memory: "7GiB", Image: defaultGatkImage},
	}
}

// ValidateAndAdjust verifies the configuration and fills unset sections with
// defaults.
func (c *Config) ValidateAndAdjust() error {
	defaults := GetDefaultConfig()
	if c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Scheduler == nil {
		c.Scheduler = defaults.Scheduler
	}
	if c.Retry == nil {
		c.Retry = defaults.Retry
	}
	if c.Convert == nil {
		c.Convert = defaults.Convert
	}
	if c.Merge == nil {
		c.Merge = defaults.Merge
	}
	if c.Validate == nil {
		c.Validate = defaults.Validate
	}

	if c.Scheduler.WorkerCount <= 0 {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("worker-count must be positive")
	}
	if c.Scheduler.CPUQuota < 0 {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("cpu-quota must not be negative")
	}
	if _, err := c.Scheduler.MemoryQuotaBytes(); err != nil {
		return errors.Trace(err)
	}
	if c.Retry.MaxTries <= 0 {
		return cerror.ErrInvalidConfig.GenWithStackByArgs("max-tries must be positive")
	}
	for kind, rc := range map[string]*TaskResourceConfig{
		"convert": c.Convert, "merge": c.Merge, "validate": c.Validate,
	} {
		if rc.CPU <= 0 {
			return cerror.ErrInvalidConfig.GenWithStackByArgs(
				fmt.Sprintf("%s cpu must be positive", kind))
		}
		if rc.Image == "" {
			return cerror.ErrInvalidConfig.GenWithStackByArgs(
				fmt.Sprintf("%s image must not be empty", kind))
		}
		if _, err := rc.MemoryBytes(); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// LoadFile reads a toml configuration file and validates it.
func LoadFile(path string) (*Config, error) {
	cfg := GetDefaultConfig()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, cerror.WrapError(cerror.ErrDecodeConfigFile, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, cerror.ErrInvalidConfig.GenWithStackByArgs(
			fmt.Sprintf("unknown configuration options: %v", undecoded))
	}
	if err := cfg.ValidateAndAdjust(); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}
