package scorer

// ComputeAggregates folds a scan's UnitScores into §4.5's aggregate
// figures. clusterOf maps a Unit id to its redundancy-cluster id; a
// Unit absent from clusterOf counts as its own singleton cluster.
func ComputeAggregates(scores []UnitScores, clusterOf map[string]string) Aggregates {
	agg := Aggregates{TotalUnits: len(scores)}
	if len(scores) == 0 {
		return agg
	}

	var loadSum float64
	clusters := make(map[string]bool, len(scores))
	for _, s := range scores {
		if s.Shadow {
			agg.ShadowUnits++
		}
		loadSum += s.CognitiveLoad

		clusterID, ok := clusterOf[s.UnitID]
		if !ok || clusterID == "" {
			clusterID = "singleton:" + s.UnitID
		}
		clusters[clusterID] = true
	}

	agg.ShadowLogicDensity = float64(agg.ShadowUnits) / float64(agg.TotalUnits)
	agg.AverageCognitiveLoad = loadSum / float64(agg.TotalUnits)
	agg.RedundancyScore = 1 - float64(len(clusters))/float64(agg.TotalUnits)
	return agg
}
