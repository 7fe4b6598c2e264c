// Copyright 2024 The Quarry Authors.
//
// Use of this software is governed by the Apache License, Version 2.0,
// included in the file LICENSE.

package stats

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
	"github.com/quarrydb/quarry/pkg/sql/opt"
	"github.com/quarrydb/quarry/pkg/sql/opt/props"
	"github.com/quarrydb/quarry/pkg/sql/sem/eval"
	"github.com/quarrydb/quarry/pkg/sql/sem/tree"
	"github.com/quarrydb/quarry/pkg/util/log"
)

// unknownFilterSelectivity is the penalty applied when a conjunction
// contains predicates that cannot be estimated. It is applied once per
// conjunction, however many conjuncts are unknown.
var unknownFilterSelectivity = props.MakeSelectivity(0.9)

// FilterStats estimates the statistics of the rows of input that satisfy the
// given filter predicate. The result is normalized; an inestimable predicate
// yields the unknown estimate rather than an error.
func FilterStats(
	ctx context.Context,
	evalCtx *eval.Context,
	md *opt.Metadata,
	filter opt.ScalarExpr,
	input *props.Statistics,
) props.Statistics {
	log.VEventf(ctx, 2, "estimating filter %s over input %s", filter, input.RowCount)
	if input.RowCount.Known() && input.RowCount.V() == 0 {
		// Nothing survives a filter over no rows.
		return normalizeStats(md, *input)
	}
	var e estimator
	e.init(ctx, evalCtx, md)
	return e.estimateFilter(filter, input)
}

type estimator struct {
	ctx     context.Context
	evalCtx *eval.Context
	md      *opt.Metadata
}

func (e *estimator) init(ctx context.Context, evalCtx *eval.Context, md *opt.Metadata) {
	// This initialization pattern ensures that fields are not unwittingly
	// reused. Field reuse must be explicit.
	*e = estimator{
		ctx:     ctx,
		evalCtx: evalCtx,
		md:      md,
	}
}

func (e *estimator) estimateFilter(filter opt.ScalarExpr, input *props.Statistics) props.Statistics {
	switch t := filter.(type) {
	case *opt.ConstExpr:
		return e.estimateConst(t, input)

	case *opt.NotExpr:
		return e.estimateNot(t, input)

	case *opt.AndExpr:
		return e.estimateAnd(t.Terms, input)

	case *opt.OrExpr:
		return e.estimateOr(t.Terms, input)

	case *opt.IsNotNullExpr:
		return e.estimateNullCheck(t.Input, true /* notNull */, input)

	case *opt.IsNullExpr:
		return e.estimateNullCheck(t.Input, false /* notNull */, input)

	case *opt.BetweenExpr:
		return e.estimateBetween(t, input)

	case *opt.InExpr:
		return e.estimateIn(t, input)

	case *opt.ComparisonExpr:
		return e.estimateComparison(t, input)

	case *opt.FunctionExpr:
		if t.Name == opt.DynamicFilterFunction {
			// Dynamic filters are planned as no-ops for estimation purposes.
			return normalizeStats(e.md, *input)
		}
		return props.Unknown()
	}
	return props.Unknown()
}

func (e *estimator) estimateConst(t *opt.ConstExpr, input *props.Statistics) props.Statistics {
	if b, ok := t.Value.(*tree.DBool); ok {
		if bool(*b) {
			return normalizeStats(e.md, *input)
		}
		return zeroStats(e.md, input)
	}
	if t.Value == tree.DNull {
		// A NULL predicate filters every row.
		return zeroStats(e.md, input)
	}
	return props.Unknown()
}

func (e *estimator) estimateNot(t *opt.NotExpr, input *props.Statistics) props.Statistics {
	if isNull, ok := t.Input.(*opt.IsNullExpr); ok {
		return e.estimateNullCheck(isNull.Input, true /* notNull */, input)
	}
	inner := e.estimateFilter(t.Input, input)
	if inner.RowCount.Unknown() {
		return props.Unknown()
	}
	// NOT p keeps exactly the rows p rejects. This over-counts when p rejects
	// rows by evaluating to NULL, which is the accepted bias of the
	// complement rule.
	return subtractSubsetStats(e.md, input, &inner)
}

// estimateAnd estimates a conjunction by conditioning each conjunct on the
// estimate of the conjuncts before it. When some conjunct cannot be
// estimated against the running estimate, the conjunction falls back to the
// most selective individually-estimable conjunct scaled by
// unknownFilterSelectivity.
func (e *estimator) estimateAnd(terms []opt.ScalarExpr, input *props.Statistics) props.Statistics {
	running := normalizeStats(e.md, *input)
	sequential := true
	for _, term := range terms {
		next := e.estimateFilter(term, &running)
		if next.RowCount.Unknown() {
			sequential = false
			break
		}
		running = next
	}
	if sequential {
		return running
	}

	// Fallback: estimate every conjunct independently against the original
	// input and keep the smallest known result. Ties keep the earliest
	// conjunct, making the estimate independent of map iteration order.
	best := props.Unknown()
	for _, term := range terms {
		est := e.estimateFilter(term, input)
		if est.RowCount.Unknown() {
			continue
		}
		if best.RowCount.Unknown() || est.RowCount.V() < best.RowCount.V() {
			best = est
		}
	}
	if best.RowCount.Unknown() {
		return props.Unknown()
	}
	bld := props.MakeStatsBuilderFrom(&best)
	bld.SetRowCount(props.MakeStat(best.RowCount.V() * unknownFilterSelectivity.AsFloat()))
	return normalizeStats(e.md, bld.Build())
}

// estimateOr estimates a disjunction by inclusion-exclusion: the running
// estimate grows by each new term and shrinks by the term's overlap with the
// rows already counted, capped at the input.
func (e *estimator) estimateOr(terms []opt.ScalarExpr, input *props.Statistics) props.Statistics {
	running := e.estimateFilter(terms[0], input)
	if running.RowCount.Unknown() {
		return props.Unknown()
	}
	for _, term := range terms[1:] {
		current := e.estimateFilter(term, input)
		if current.RowCount.Unknown() {
			return props.Unknown()
		}
		overlap := e.estimateFilter(term, &running)
		if overlap.RowCount.Unknown() {
			return props.Unknown()
		}
		sum := addStatsAndSumDistinctValues(e.md, &running, &current)
		diff := subtractSubsetStats(e.md, &sum, &overlap)
		running = capStats(e.md, &diff, input)
	}
	return running
}

func (e *estimator) estimateNullCheck(
	inner opt.ScalarExpr, notNull bool, input *props.Statistics,
) props.Statistics {
	cs := e.colStatScalar(inner, input)
	if input.RowCount.Unknown() || cs.NullsFraction.Unknown() {
		return props.Unknown()
	}
	fraction := cs.NullsFraction.V()
	if notNull {
		fraction = 1 - fraction
	}
	bld := props.MakeStatsBuilderFrom(input)
	bld.SetRowCount(props.MakeStat(input.RowCount.V() * fraction))
	if v, ok := inner.(*opt.VariableExpr); ok {
		if notNull {
			res := cs
			res.NullsFraction = props.MakeStat(0)
			bld.AddColumnStat(v.Col, res)
		} else {
			bld.AddColumnStat(v.Col, props.ColumnStatistic{
				NullsFraction: props.MakeStat(1),
				DistinctCount: props.MakeStat(0),
				AvgSize:       cs.AvgSize,
			})
		}
	}
	return normalizeStats(e.md, bld.Build())
}

// estimateBetween decomposes "x BETWEEN lo AND hi" into a conjunction of the
// two bound comparisons. Only bare columns compared against single-valued
// endpoints are estimable; the decomposition orders the bound that tightens
// an unbounded side of the column first so the conjunction conditions on it.
func (e *estimator) estimateBetween(t *opt.BetweenExpr, input *props.Statistics) props.Statistics {
	v, ok := t.Input.(*opt.VariableExpr)
	if !ok {
		return props.Unknown()
	}
	lower := e.colStatScalar(t.Lower, input)
	upper := e.colStatScalar(t.Upper, input)
	if !lower.IsSingleValue() || !upper.IsSingleValue() {
		return props.Unknown()
	}
	ge := &opt.ComparisonExpr{CompareOp: opt.GeOp, Left: v, Right: t.Lower}
	le := &opt.ComparisonExpr{CompareOp: opt.LeOp, Left: v, Right: t.Upper}
	cs := input.ColumnStatisticOrUnknown(v.Col)
	terms := []opt.ScalarExpr{ge, le}
	if cs.Low.Known() && !math.IsInf(cs.Low.V(), -1) {
		terms = []opt.ScalarExpr{le, ge}
	}
	return e.estimateAnd(terms, input)
}

// estimateIn estimates "x IN (a, b, ...)" as the disjoint union of the
// per-element equalities, capped at the probe's non-null rows.
func (e *estimator) estimateIn(t *opt.InExpr, input *props.Statistics) props.Statistics {
	if len(t.List) == 0 {
		return zeroStats(e.md, input)
	}
	var combined props.Statistics
	for i, elem := range t.List {
		eq := &opt.ComparisonExpr{CompareOp: opt.EqOp, Left: t.Input, Right: elem}
		est := e.estimateComparison(eq, input)
		if est.RowCount.Unknown() {
			return props.Unknown()
		}
		if i == 0 {
			combined = est
			continue
		}
		combined = addStatsAndSumDistinctValues(e.md, &combined, &est)
		if combined.RowCount.Unknown() {
			return props.Unknown()
		}
	}

	// Summing the element estimates double-counts the statistics of columns
	// unrelated to the probe; capping against the input repairs them.
	capped := capStats(e.md, &combined, input)
	if capped.RowCount.Unknown() {
		return props.Unknown()
	}
	probe := e.colStatScalar(t.Input, input)
	if input.RowCount.Known() && probe.NullsFraction.Known() {
		nonNull := input.RowCount.V() * (1 - probe.NullsFraction.V())
		if capped.RowCount.V() > nonNull {
			bld := props.MakeStatsBuilderFrom(&capped)
			bld.SetRowCount(props.MakeStat(nonNull))
			capped = normalizeStats(e.md, bld.Build())
		}
	}
	return capped
}

func (e *estimator) estimateComparison(
	t *opt.ComparisonExpr, input *props.Statistics,
) props.Statistics {
	if t.CompareOp >= opt.NumComparisonOperators {
		panic(errors.AssertionFailedf("invalid comparison operator %d", redact.Safe(int(t.CompareOp))))
	}
	left, right, op := t.Left, t.Right, t.CompareOp

	// A column compared against itself filters exactly its NULLs: every
	// comparison operator evaluates to NULL on NULL operands.
	if lv, ok := left.(*opt.VariableExpr); ok {
		if rv, ok := right.(*opt.VariableExpr); ok && lv.Col == rv.Col {
			return e.estimateNullCheck(left, true /* notNull */, input)
		}
	}

	// Keep the side carrying column statistics on the left.
	if swapComparisonSides(e.evalCtx, left, right) {
		left, right = right, left
		op = opt.CommuteComparison(op)
	}

	leftCol := opt.ColumnID(0)
	if v, ok := left.(*opt.VariableExpr); ok {
		leftCol = v.Col
	}
	leftStat := e.colStatScalar(left, input)

	if d, ok := eval.Expr(e.evalCtx, right); ok {
		if d == tree.DNull {
			return zeroStats(e.md, input)
		}
		value := props.UnknownStat()
		if f, ok := statsValue(d); ok {
			value = props.MakeStat(f)
		}
		return EstimateComparisonToValue(e.md, input, leftStat, leftCol, value, op)
	}

	rightCol := opt.ColumnID(0)
	if v, ok := right.(*opt.VariableExpr); ok {
		rightCol = v.Col
	}
	rightStat := e.colStatScalar(right, input)
	if rightStat.IsSingleValue() {
		// A single-valued expression estimates like the literal it holds.
		return EstimateComparisonToValue(e.md, input, leftStat, leftCol, rightStat.Low, op)
	}
	return EstimateComparisonToColumn(
		e.md, e.evalCtx, input, leftStat, leftCol, rightStat, rightCol, op)
}

// swapComparisonSides reports whether a comparison should be flipped so that
// the non-constant (preferably bare column) side sits on the left.
func swapComparisonSides(evalCtx *eval.Context, left, right opt.ScalarExpr) bool {
	_, leftFolds := eval.Expr(evalCtx, left)
	_, rightFolds := eval.Expr(evalCtx, right)
	if leftFolds && !rightFolds {
		return true
	}
	if leftFolds || rightFolds {
		return false
	}
	_, leftIsVar := left.(*opt.VariableExpr)
	_, rightIsVar := right.(*opt.VariableExpr)
	return !leftIsVar && rightIsVar
}
