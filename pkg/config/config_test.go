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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	require.NoError(t, cfg.ValidateAndAdjust())
	require.Equal(t, defaultWorkerCount, cfg.Scheduler.WorkerCount)
}

func TestValidateAndAdjustFillsDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	require.NoError(t, cfg.ValidateAndAdjust())
	require.Equal(t, defaultAddr, cfg.Addr)
	require.NotNil(t, cfg.Scheduler)
	require.NotNil(t, cfg.Convert)
	require.Equal(t, defaultGatkImage, cfg.Convert.Image)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	cfg.Scheduler.WorkerCount = 0
	require.Error(t, cfg.ValidateAndAdjust())

	cfg = GetDefaultConfig()
	cfg.Scheduler.MemoryQuota = "lots"
	require.Error(t, cfg.ValidateAndAdjust())

	cfg = GetDefaultConfig()
	cfg.Merge.Memory = "4 giraffes"
	require.Error(t, cfg.ValidateAndAdjust())

	cfg = GetDefaultConfig()
	cfg.Validate.Image = ""
	require.Error(t, cfg.ValidateAndAdjust())
}

func TestMemoryParsing(t *testing.T) {
	t.Parallel()

	sc := &SchedulerConfig{MemoryQuota: "1GiB"}
	n, err := sc.MemoryQuotaBytes()
	require.NoError(t, err)
	require.Equal(t, int64(1<<30), n)

	sc = &SchedulerConfig{}
	n, err = sc.MemoryQuotaBytes()
	require.NoError(t, err)
	require.Equal(t, int64(0), n)

	rc := &TaskResourceConfig{Memory: "512MiB"}
	n, err = rc.MemoryBytes()
	require.NoError(t, err)
	require.Equal(t, int64(512<<20), n)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "seqflow.toml")
	content := `
addr = "0.0.0.0:9000"

[log]
level = "debug"

[scheduler]
worker-count = 8
memory-quota = "32GiB"

[convert]
cpu = 2
memory = "8GiB"
image = "broadinstitute/gatk:4.5.0.0"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.Addr)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 8, cfg.Scheduler.WorkerCount)
	require.Equal(t, 2, cfg.Convert.CPU)
	// sections absent from the file keep defaults
	require.Equal(t, 1, cfg.Merge.CPU)
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "seqflow.toml")
	require.NoError(t, os.WriteFile(path, []byte("no-such-option = true\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown configuration options")
}
