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
	"os"

	"github.com/spf13/cobra"
)

// NewCmd creates the root command of seqflow.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seqflow",
		Short: "seqflow is a batch executor for sequencing pipelines",
		Long: "seqflow expands a batch of samples into a task graph " +
			"(per-flowcell conversion, per-sample merge and validation), " +
			"runs it with bounded parallelism and collects the results " +
			"in submission order.",
	}
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newServerCommand())
	return cmd
}

// Run runs the root command and exits on error.
func Run() {
	if err := NewCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
