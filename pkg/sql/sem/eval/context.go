// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

// Package eval provides the session context and the constant evaluation of
// scalar expressions used by the statistics estimators.
package eval

// SessionData contains session-scoped toggles that influence estimation.
// Defaults produce the stock estimation behavior; the toggles exist so that a
// misbehaving estimate can be disabled per session without a rebuild.
type SessionData struct {
	// OptimizerUseScalarExprStats enables deriving statistics for arithmetic,
	// cast and coalesce scalar expressions instead of treating them as
	// unknown.
	OptimizerUseScalarExprStats bool

	// OptimizerUseExprInequalityStats enables estimating column-to-column
	// inequality comparisons via the dual-range overlap formula. When off,
	// those predicates estimate as unknown.
	OptimizerUseExprInequalityStats bool
}

// MakeSessionData returns a SessionData with all toggles at their defaults.
func MakeSessionData() SessionData {
	return SessionData{
		OptimizerUseScalarExprStats:     true,
		OptimizerUseExprInequalityStats: true,
	}
}

// Context holds the session state needed for expression evaluation during
// planning. It is not safe for concurrent use.
type Context struct {
	sessionData *SessionData
}

// MakeContext creates a Context over the given session data.
func MakeContext(sd *SessionData) Context {
	return Context{sessionData: sd}
}

// MakeTestingEvalContext returns a Context with default session settings.
func MakeTestingEvalContext() Context {
	sd := MakeSessionData()
	return MakeContext(&sd)
}

// SessionData returns the session settings.
func (ec *Context) SessionData() *SessionData {
	return ec.sessionData
}
