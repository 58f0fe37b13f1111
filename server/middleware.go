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

package server

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	cerror "github.com/pingcap/seqflow/pkg/errors"
	"go.uber.org/zap"
)

// HTTPError is the error body of API responses.
type HTTPError struct {
	Error string `json:"error_msg"`
	Code  string `json:"error_code"`
}

// NewHTTPError wraps an error for the response body.
func NewHTTPError(err error) HTTPError {
	e := HTTPError{Error: err.Error()}
	var rfcErr *errors.Error
	if stderrors.As(err, &rfcErr) {
		e.Code = string(rfcErr.RFCCode())
	}
	return e
}

func isBadRequestError(err error) bool {
	return cerror.IsConfigurationError(err)
}

func logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		var stdErr error
		if last := c.Errors.Last(); last != nil {
			stdErr = last.Err
		}
		log.Info("api request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Error(stdErr),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

func errorHandleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		// handlers return immediately after the first error
		lastError := c.Errors.Last()
		if lastError == nil {
			return
		}
		err := lastError.Err
		switch {
		case isBadRequestError(err):
			c.IndentedJSON(http.StatusBadRequest, NewHTTPError(err))
		case cerror.ErrRunNotFound.Equal(err):
			c.IndentedJSON(http.StatusNotFound, NewHTTPError(err))
		default:
			c.IndentedJSON(http.StatusInternalServerError, NewHTTPError(err))
		}
		c.Abort()
	}
}
