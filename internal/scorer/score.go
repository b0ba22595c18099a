package scorer

import (
	"context"

	"shadowscan/internal/config"
	"shadowscan/internal/evidence"
	"shadowscan/internal/extractor"
)

// ScoreUnit computes unit's complete UnitScores record. evidenceAbsent
// marks the §9 Open Question (a) boundary case: the version-control
// boundary failed and ev was degraded to zero rather than genuinely
// observed as zero.
func ScoreUnit(ctx context.Context, unit extractor.Unit, ev evidence.Evidence, evidenceAbsent bool, cogCfg config.CognitiveLoadConfig, shadowCfg config.ShadowConfig) (UnitScores, error) {
	load, err := ComputeCognitiveLoad(ctx, unit, cogCfg)
	if err != nil {
		return UnitScores{}, err
	}

	reviewEvidence := float64(ev.ReviewEvidenceScore)
	shadow := IsShadow(load, reviewEvidence, shadowCfg)
	fragility := Fragility(load, evidenceAbsent)

	return UnitScores{
		UnitID:         unit.ID,
		CognitiveLoad:  load,
		ReviewEvidence: reviewEvidence,
		Shadow:         shadow,
		Fragility:      fragility,
	}, nil
}

// IsShadow is §4.5's shadow predicate: high cognitive load paired with
// low review evidence.
func IsShadow(cognitiveLoad, reviewEvidence float64, cfg config.ShadowConfig) bool {
	return reviewEvidence < float64(cfg.ReviewEvidenceMax) && cognitiveLoad > float64(cfg.CognitiveLoadThreshold)
}

// Fragility resolves §9 Open Question (a): fragility equals cognitive
// load, except when Evidence is absent (the history boundary could not
// be read at all), in which case it is cognitive_load + 10, capped at 100.
func Fragility(cognitiveLoad float64, evidenceAbsent bool) float64 {
	if evidenceAbsent {
		return clamp(cognitiveLoad+10, 0, 100)
	}
	return cognitiveLoad
}
