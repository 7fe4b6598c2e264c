// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package log

import (
	"bytes"
	"io"
	"strings"
)

// tShim is the part of testing.TB used by TestLogScope. It avoids importing
// testing into non-test code.
type tShim interface {
	Name() string
	Logf(format string, args ...interface{})
	Failed() bool
}

// TestLogScope captures log output produced during a test. Output is buffered
// and replayed through t.Logf when the scope closes and the test has failed;
// output from passing tests is discarded.
type TestLogScope struct {
	buf  bytes.Buffer
	prev io.Writer
}

// Scope redirects log output to a buffer for the duration of a test.
//
//	defer log.Scope(t).Close(t)
func Scope(t tShim) *TestLogScope {
	s := &TestLogScope{}
	logging.mu.Lock()
	defer logging.mu.Unlock()
	s.prev = logging.w
	logging.w = &s.buf
	return s
}

// Close restores the previous log sink and replays captured output if the
// test failed.
func (s *TestLogScope) Close(t tShim) {
	logging.mu.Lock()
	logging.w = s.prev
	logging.mu.Unlock()
	if t.Failed() && s.buf.Len() > 0 {
		t.Logf("log output for %s:\n%s", t.Name(), strings.TrimRight(s.buf.String(), "\n"))
	}
}
