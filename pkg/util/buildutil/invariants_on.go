// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

//go:build invariants || race
// +build invariants race

package buildutil

// Invariants is enabled when built with the invariants or race build tags.
// It enables expensive invariant checks that are too slow for production
// builds.
const Invariants = true
