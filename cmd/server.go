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
	"os/signal"
	"syscall"

	"github.com/pingcap/errors"
	"github.com/pingcap/seqflow/pipeline/invoker"
	"github.com/pingcap/seqflow/pkg/config"
	"github.com/pingcap/seqflow/pkg/logutil"
	"github.com/pingcap/seqflow/pkg/version"
	"github.com/pingcap/seqflow/server"
	"github.com/spf13/cobra"
)

// serverOptions defines flags for the `server` command.
type serverOptions struct {
	addr           string
	configFilePath string
	dataDir        string
	logLevel       string
	logFile        string
}

func newServerCommand() *cobra.Command {
	o := &serverOptions{}
	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Start the seqflow HTTP server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run()
		},
	}
	o.addFlags(cmd)
	return cmd
}

func (o *serverOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.addr, "addr", "", "Set the listening address")
	cmd.Flags().StringVar(&o.configFilePath, "config", "", "Path of the configuration file")
	cmd.Flags().StringVar(&o.dataDir, "data-dir", ".", "Host directory holding input files and receiving artifacts")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&o.logFile, "log-file", "", "log file path")
}

func (o *serverOptions) run() error {
	cfg := config.GetDefaultConfig()
	if o.configFilePath != "" {
		var err error
		cfg, err = config.LoadFile(o.configFilePath)
		if err != nil {
			return errors.Trace(err)
		}
	}
	if o.addr != "" {
		cfg.Addr = o.addr
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	if err := cfg.ValidateAndAdjust(); err != nil {
		return errors.Trace(err)
	}

	if err := logutil.InitLogger(&cfg.Log); err != nil {
		return errors.Trace(err)
	}
	version.LogVersionInfo()

	srv, err := server.New(cfg, &invoker.DockerInvoker{DataDir: o.dataDir})
	if err != nil {
		return errors.Trace(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return errors.Trace(srv.Run(ctx))
}
