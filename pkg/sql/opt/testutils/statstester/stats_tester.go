// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

// Package statstester provides a datadriven harness for the filter
// statistics estimators. A test file defines an input row set with its
// column statistics, then runs predicates against it and checks the
// estimated output statistics.
package statstester

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/quarrydb/quarry/pkg/sql/opt/props"
	"github.com/quarrydb/quarry/pkg/sql/opt/stats"
	"github.com/quarrydb/quarry/pkg/sql/sem/eval"
)

// Tester holds the state shared by the commands of one datadriven file: the
// column metadata, the input statistics and the session settings.
type Tester struct {
	evalCtx eval.Context
	md      *opt.Metadata
	stats   props.Statistics
}

// New returns a Tester with no columns defined and unknown input statistics.
func New() *Tester {
	return &Tester{
		evalCtx: eval.MakeTestingEvalContext(),
		md:      &opt.Metadata{},
		stats:   props.Unknown(),
	}
}

// RunCommand implements the datadriven commands:
//
//	define [rows=N|unknown]
//	<name> <type> [distinct=..] [nulls=..] [low=..] [high=..] [avgsize=..]
//	...
//
// defines the input row set; each statistic defaults to unknown. The
// response echoes the resulting statistics.
//
//	estimate [format=table] [apply]
//	<predicate>
//
// estimates the filter and responds with the resulting statistics; "apply"
// additionally makes the result the input of subsequent estimates.
//
//	set [scalar-expr-stats=on|off] [inequality-stats=on|off]
//
// flips the session settings gating the derived-expression estimators.
func (tt *Tester) RunCommand(t *testing.T, d *datadriven.TestData) string {
	switch d.Cmd {
	case "define":
		return tt.define(t, d)
	case "estimate":
		return tt.estimate(t, d)
	case "set":
		return tt.set(t, d)
	default:
		d.Fatalf(t, "unsupported command: %s", d.Cmd)
		return ""
	}
}

func (tt *Tester) define(t *testing.T, d *datadriven.TestData) string {
	tt.md = &opt.Metadata{}
	bld := props.MakeStatsBuilder()
	for _, arg := range d.CmdArgs {
		switch arg.Key {
		case "rows":
			bld.SetRowCount(tt.parseStat(t, d, arg.Vals[0]))
		default:
			d.Fatalf(t, "unsupported argument: %s", arg.Key)
		}
	}
	for _, line := range strings.Split(d.Input, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			d.Fatalf(t, "expected \"<name> <type> [stats...]\", found %q", line)
		}
		typ, err := parseType(fields[1])
		if err != nil {
			d.Fatalf(t, "%v", err)
		}
		col := tt.md.AddColumn(fields[0], typ)
		cs := props.UnknownColumnStatistic()
		for _, field := range fields[2:] {
			key, val, found := strings.Cut(field, "=")
			if !found {
				d.Fatalf(t, "expected key=value, found %q", field)
			}
			stat := tt.parseStat(t, d, val)
			switch key {
			case "distinct":
				cs.DistinctCount = stat
			case "nulls":
				cs.NullsFraction = stat
			case "low":
				cs.Low = stat
			case "high":
				cs.High = stat
			case "avgsize":
				cs.AvgSize = stat
			default:
				d.Fatalf(t, "unsupported column statistic: %s", key)
			}
		}
		bld.AddColumnStat(col, cs)
	}
	tt.stats = bld.Build()
	return tt.stats.String()
}

func (tt *Tester) estimate(t *testing.T, d *datadriven.TestData) string {
	formatTable := false
	apply := false
	for _, arg := range d.CmdArgs {
		switch arg.Key {
		case "format":
			if arg.Vals[0] != "table" {
				d.Fatalf(t, "unsupported format: %s", arg.Vals[0])
			}
			formatTable = true
		case "apply":
			apply = true
		default:
			d.Fatalf(t, "unsupported argument: %s", arg.Key)
		}
	}
	pred, err := ParsePredicate(tt.md, strings.TrimSpace(d.Input))
	if err != nil {
		d.Fatalf(t, "%v", err)
	}
	res := stats.FilterStats(context.Background(), &tt.evalCtx, tt.md, pred, &tt.stats)
	if apply {
		tt.stats = res
	}
	if formatTable {
		return res.FormatTable(tt.md)
	}
	return res.String()
}

func (tt *Tester) set(t *testing.T, d *datadriven.TestData) string {
	sd := tt.evalCtx.SessionData()
	for _, arg := range d.CmdArgs {
		var val bool
		switch arg.Vals[0] {
		case "on":
			val = true
		case "off":
			val = false
		default:
			d.Fatalf(t, "expected on or off, found %q", arg.Vals[0])
		}
		switch arg.Key {
		case "scalar-expr-stats":
			sd.OptimizerUseScalarExprStats = val
		case "inequality-stats":
			sd.OptimizerUseExprInequalityStats = val
		default:
			d.Fatalf(t, "unsupported setting: %s", arg.Key)
		}
	}
	return ""
}

func (tt *Tester) parseStat(t *testing.T, d *datadriven.TestData, val string) props.Stat {
	if val == "unknown" {
		return props.UnknownStat()
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		d.Fatalf(t, "invalid statistic value %q: %v", val, err)
	}
	return props.StatFromFloat(f)
}
