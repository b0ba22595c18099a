package scorer

// ComputeRunway estimates §4.5's Refactoring Runway in months.
//
// K ("shadow-units created in the last 30 days") and H ("shadow-units
// whose most recent scan showed shadow=true but now show false") both
// require a prior scan to compare against. Absent per-Unit creation
// timestamps, this Engine approximates K against the nearest available
// baseline — the previous completed scan's shadow set — rather than a
// strict 30-day window: K is the current shadow set minus that
// baseline, H is the baseline minus the current shadow set. When no
// prior scan exists at all, runway is "insufficient data" per spec.md's
// explicit first-scan boundary case.
func ComputeRunway(currentShadowUnitIDs []string, priorShadowUnitIDs map[string]bool, priorScanExists bool) Runway {
	if !priorScanExists {
		return Runway{InsufficientData: true}
	}

	current := make(map[string]bool, len(currentShadowUnitIDs))
	for _, id := range currentShadowUnitIDs {
		current[id] = true
	}

	k := 0
	for id := range current {
		if !priorShadowUnitIDs[id] {
			k++
		}
	}
	h := 0
	for id := range priorShadowUnitIDs {
		if !current[id] {
			h++
		}
	}

	denominator := k - h
	if denominator < 1 {
		denominator = 1
	}
	return Runway{Months: float64(len(currentShadowUnitIDs)) / float64(denominator)}
}
