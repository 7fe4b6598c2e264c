// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

// Package log provides a minimal leveled logging facade. Log lines carry the
// context tags attached via logtags and arguments are formatted with redact
// so that unsafe values can be scrubbed from collected logs.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

// Severity labels a log line.
type Severity byte

const (
	// SeverityInfo is used for informational messages.
	SeverityInfo Severity = 'I'
	// SeverityWarning is used for situations which may impair normal operation.
	SeverityWarning Severity = 'W'
	// SeverityError is used for errors that do not abort the process.
	SeverityError Severity = 'E'
)

var logging struct {
	mu sync.Mutex
	w  io.Writer

	// vLevel is the verbosity threshold for V and VEventf; accessed
	// atomically.
	vLevel int32
}

func init() {
	logging.w = os.Stderr
}

// SetVerbosity sets the verbosity threshold for V and VEventf and returns the
// previous value.
func SetVerbosity(level int32) int32 {
	return atomic.SwapInt32(&logging.vLevel, level)
}

// V returns true if the verbosity is at or above the requested level. Use to
// gate expensive log message construction.
func V(level int32) bool {
	return atomic.LoadInt32(&logging.vLevel) >= level
}

// Infof logs an informational message, formatting arguments with redact.
func Infof(ctx context.Context, format string, args ...interface{}) {
	output(ctx, SeverityInfo, format, args...)
}

// Warningf logs a warning message.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, SeverityWarning, format, args...)
}

// Errorf logs an error message.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, SeverityError, format, args...)
}

// VEventf logs an informational message if the verbosity is at or above the
// given level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if !V(level) {
		return
	}
	output(ctx, SeverityInfo, format, args...)
}

func output(ctx context.Context, sev Severity, format string, args ...interface{}) {
	msg := redact.Sprintf(format, args...).StripMarkers()
	var tags string
	if b := logtags.FromContext(ctx); b != nil {
		tags = " [" + b.String() + "]"
	}
	line := fmt.Sprintf("%c%s%s %s\n",
		sev, time.Now().UTC().Format("060102 15:04:05.000000"), tags, msg)
	logging.mu.Lock()
	defer logging.mu.Unlock()
	fmt.Fprint(logging.w, line)
}
