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

package logutil

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap/zapcore"
)

// Config defines the logging configuration of a seqflow process.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" json:"level"`
	// File is the path of the log file, empty means stderr.
	File string `toml:"file" json:"file"`
}

// InitLogger initializes the global logger. It must be called before any
// other log output is produced.
func InitLogger(cfg *Config) error {
	pcfg := &log.Config{
		Level: cfg.Level,
		File: log.FileLogConfig{
			Filename: cfg.File,
		},
	}
	lg, props, err := log.InitLogger(pcfg)
	if err != nil {
		return errors.Trace(err)
	}
	log.ReplaceGlobals(lg, props)
	return nil
}

// SetLogLevel changes the log level of the global logger at runtime.
func SetLogLevel(level string) error {
	var lv zapcore.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		return errors.Trace(err)
	}
	log.SetLevel(lv)
	return nil
}
