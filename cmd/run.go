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

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/pingcap/errors"
	"github.com/pingcap/seqflow/pipeline/builder"
	"github.com/pingcap/seqflow/pipeline/invoker"
	"github.com/pingcap/seqflow/pipeline/model"
	"github.com/pingcap/seqflow/pipeline/scheduler"
	"github.com/pingcap/seqflow/pkg/config"
	"github.com/pingcap/seqflow/pkg/logutil"
	"github.com/pingcap/seqflow/pkg/version"
	"github.com/spf13/cobra"
)

// runOptions defines flags for the `run` command.
type runOptions struct {
	batchFilePath  string
	configFilePath string
	outputFilePath string
	dataDir        string
	logLevel       string
	logFile        string
	parallelism    int
}

func newRunCommand() *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Execute one batch and write its results",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run()
		},
	}
	o.addFlags(cmd)
	return cmd
}

func (o *runOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.batchFilePath, "batch", "", "Path of the batch submission JSON file")
	cmd.Flags().StringVar(&o.configFilePath, "config", "", "Path of the configuration file")
	cmd.Flags().StringVar(&o.outputFilePath, "output", "", "Path of the result JSON file, stdout if empty")
	cmd.Flags().StringVar(&o.dataDir, "data-dir", ".", "Host directory holding input files and receiving artifacts")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&o.logFile, "log-file", "", "log file path")
	cmd.Flags().IntVar(&o.parallelism, "max-parallelism", 0, "Override the configured worker count")
	_ = cmd.MarkFlagRequired("batch")
}

func (o *runOptions) loadConfig() (*config.Config, error) {
	cfg := config.GetDefaultConfig()
	if o.configFilePath != "" {
		var err error
		cfg, err = config.LoadFile(o.configFilePath)
		if err != nil {
			return nil, errors.Trace(err)
		}
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	if o.parallelism > 0 {
		cfg.Scheduler.WorkerCount = o.parallelism
	}
	if err := cfg.ValidateAndAdjust(); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}

func (o *runOptions) run() error {
	cfg, err := o.loadConfig()
	if err != nil {
		return errors.Trace(err)
	}
	if err := logutil.InitLogger(&cfg.Log); err != nil {
		return errors.Trace(err)
	}
	version.LogVersionInfo()

	data, err := os.ReadFile(o.batchFilePath)
	if err != nil {
		return errors.Trace(err)
	}
	batch, err := model.DecodeBatch(data)
	if err != nil {
		return errors.Trace(err)
	}
	buildOpt, err := builder.OptionsFromConfig(cfg)
	if err != nil {
		return errors.Trace(err)
	}
	graph, err := builder.Build(batch, buildOpt)
	if err != nil {
		return errors.Trace(err)
	}

	inv := invoker.WithRetry(
		&invoker.DockerInvoker{DataDir: o.dataDir},
		invoker.RetryOptionsFromConfig(cfg.Retry))
	sched, err := scheduler.New(cfg.Scheduler, inv)
	if err != nil {
		return errors.Trace(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	res, err := sched.Execute(ctx, graph)
	if err != nil {
		return errors.Trace(err)
	}

	if err := o.writeResult(res); err != nil {
		return errors.Trace(err)
	}

	if !res.Complete() {
		color.Red("batch finished with %d failed tasks", len(res.FailedTasks))
		return errors.Errorf("%d tasks failed", len(res.FailedTasks))
	}
	color.Green("batch finished, %d samples merged and validated", graph.SampleCount())
	return nil
}

func (o *runOptions) writeResult(res *model.ResultSet) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.Trace(err)
	}
	if o.outputFilePath == "" {
		fmt.Println(string(data))
		return nil
	}
	return errors.Trace(os.WriteFile(o.outputFilePath, data, 0o644))
}
