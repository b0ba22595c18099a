package scorer

import (
	"context"

	"shadowscan/internal/config"
	"shadowscan/internal/extractor"
)

// ComputeCognitiveLoad is §4.5's weighted-feature sum plus React-specific
// adjustments, clamped to [0, 100]. It re-parses unit.Source to resolve
// the reactive-effect-dependency adjustment, which needs an AST lookup
// for reassignment the extractor's feature walk doesn't retain.
func ComputeCognitiveLoad(ctx context.Context, unit extractor.Unit, cfg config.CognitiveLoadConfig) (float64, error) {
	raw := cfg.WeightNesting*normalize(unit.NestingDepth, cfg.CapNesting) +
		cfg.WeightBranch*normalize(unit.BranchCount, cfg.CapBranch) +
		cfg.WeightBoolean*normalize(unit.BooleanComplexity, cfg.CapBoolean) +
		cfg.WeightCallback*normalize(unit.CallbackDepth, cfg.CapCallback) +
		cfg.WeightAmbiguity*(unit.IdentifierAmbiguity*100) +
		cfg.WeightContext*float64(unit.ContextSwitches) +
		cfg.WeightException*exceptionScore(unit.ExceptionIrregularity) +
		cfg.WeightSideEffect*normalize(unit.RenderSideEffects, cfg.CapSideEffect)

	unstable, err := dependencyUnstable(ctx, unit)
	if err != nil {
		return 0, err
	}
	if unstable {
		raw += cfg.ReactiveDependencyPenalty
	}
	if everyEffectStable(unit) {
		raw += cfg.CleanupBonus
	}
	if unit.RenderSideEffects > 0 {
		raw += cfg.RenderSideEffectPenalty
	}

	return clamp(raw, 0, 100), nil
}

// normalize scales value into [0, 100] against limit, per §4.5's
// min(value, cap) / cap · 100 feature formula.
func normalize(value, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	if value > limit {
		value = limit
	}
	return float64(value) / float64(limit) * 100
}

func exceptionScore(irregular bool) float64 {
	if irregular {
		return 100
	}
	return 0
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
