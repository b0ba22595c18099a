package similarity

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"sort"
	"strings"

	"shadowscan/internal/config"
	"shadowscan/internal/extractor"
)

type candidate struct {
	unit      extractor.Unit
	shingles  map[string]bool
	signature Signature
}

// FindClusters groups units whose normalized-token similarity meets or
// exceeds the kind-dependent threshold into connected components (§4.6).
//
// changedUnitIDs restricts the candidate universe for an incremental
// scan to pairs touching a changed Unit, paired only against Units in
// the same directory subtree; pass nil for a full scan, which compares
// every pair.
func FindClusters(units []extractor.Unit, changedUnitIDs map[string]bool, cfg config.SimilarityConfig) []Cluster {
	if len(units) < 2 {
		return nil
	}

	candidates := make([]candidate, 0, len(units))
	for _, u := range units {
		shingleSet := Shingles(Tokenize(u.Source), cfg.ShingleSize)
		candidates = append(candidates, candidate{
			unit:      u,
			shingles:  shingleSet,
			signature: Signatures(shingleSet, cfg.MinHashPermutations),
		})
	}

	n := len(candidates)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(x, y int) {
		px, py := find(x), find(y)
		if px != py {
			parent[px] = py
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !isCandidatePair(candidates[i].unit, candidates[j].unit, changedUnitIDs) {
				continue
			}
			threshold := cfg.ThresholdNonComponent
			if candidates[i].unit.Kind == extractor.KindComponent && candidates[j].unit.Kind == extractor.KindComponent {
				threshold = cfg.ThresholdComponent
			}

			if EstimateJaccard(candidates[i].signature, candidates[j].signature) < threshold {
				continue
			}
			if Jaccard(candidates[i].shingles, candidates[j].shingles) >= threshold {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := find(i)
		groups[root] = append(groups[root], i)
	}

	var clusters []Cluster
	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		clusters = append(clusters, buildCluster(candidates, members))
	}

	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].MemberIDs[0] < clusters[j].MemberIDs[0]
	})
	return clusters
}

// MergeWithPrior implements §4.6's incremental-scan clustering
// contract: Units outside the changed set keep the cluster membership
// computed by a prior scan, while clusters touching a changed Unit are
// entirely superseded by fresh results from FindClusters. deletedUnitIDs
// drops members of a prior cluster whose file disappeared from the
// changed set's deletions. A full scan (changedUnitIDs == nil) has no
// prior to merge and returns fresh unchanged.
func MergeWithPrior(fresh []Cluster, prior []Cluster, changedUnitIDs map[string]bool, deletedUnitIDs map[string]bool) []Cluster {
	if changedUnitIDs == nil {
		return fresh
	}

	superseded := make(map[string]bool)
	for _, c := range fresh {
		for _, id := range c.MemberIDs {
			superseded[id] = true
		}
	}

	merged := append([]Cluster(nil), fresh...)
	for _, c := range prior {
		if clusterTouchesAny(c, changedUnitIDs) || clusterTouchesAny(c, superseded) {
			continue
		}
		members := survivingMembers(c.MemberIDs, deletedUnitIDs)
		if len(members) < 2 {
			continue
		}
		merged = append(merged, Cluster{ID: c.ID, MemberIDs: members, Suggestion: c.Suggestion})
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].MemberIDs[0] < merged[j].MemberIDs[0]
	})
	return merged
}

func clusterTouchesAny(c Cluster, ids map[string]bool) bool {
	for _, id := range c.MemberIDs {
		if ids[id] {
			return true
		}
	}
	return false
}

// survivingMembers drops ids present in deleted, keeping every other
// member unconditionally — the merge has no extracted Unit to check
// existence against for Units outside the changed set.
func survivingMembers(memberIDs []string, deleted map[string]bool) []string {
	var out []string
	for _, id := range memberIDs {
		if !deleted[id] {
			out = append(out, id)
		}
	}
	return out
}

// isCandidatePair reports whether (a, b) should be compared at all.
// For a full scan (changedUnitIDs == nil) every pair is a candidate.
// For an incremental scan, at least one member must be changed, and
// both must live in the same directory subtree.
func isCandidatePair(a, b extractor.Unit, changedUnitIDs map[string]bool) bool {
	if changedUnitIDs == nil {
		return true
	}
	if !changedUnitIDs[a.ID] && !changedUnitIDs[b.ID] {
		return false
	}
	return sameSubtree(a.FilePath, b.FilePath)
}

func sameSubtree(a, b string) bool {
	dirA, dirB := filepath.Dir(a), filepath.Dir(b)
	return dirA == dirB || strings.HasPrefix(dirA, dirB+"/") || strings.HasPrefix(dirB, dirA+"/")
}

func buildCluster(candidates []candidate, memberIdx []int) Cluster {
	members := make([]extractor.Unit, len(memberIdx))
	for i, idx := range memberIdx {
		members[i] = candidates[idx].unit
	}

	names := make([]string, len(members))
	memberIDs := make([]string, len(members))
	for i, m := range members {
		names[i] = m.FilePath + "#" + m.Name
		memberIDs[i] = m.ID
	}
	sort.Strings(names)
	sort.Strings(memberIDs)

	return Cluster{
		ID:         clusterID(names),
		MemberIDs:  memberIDs,
		Suggestion: suggestName(members),
	}
}

// clusterID is sha256(sorted joined names)[:8] hex-encoded, per §4.6.
func clusterID(sortedNames []string) string {
	sum := sha256.Sum256([]byte(strings.Join(sortedNames, "|")))
	return hex.EncodeToString(sum[:])[:8]
}

// suggestName is the longest common prefix of member symbol names,
// normalized to lower-camel and prefixed with "shared" (§4.6).
func suggestName(members []extractor.Unit) string {
	if len(members) == 0 {
		return "sharedLogic"
	}
	prefix := members[0].Name
	for _, m := range members[1:] {
		prefix = commonPrefix(prefix, m.Name)
	}
	if len(prefix) <= 3 {
		return "sharedLogic"
	}
	return "shared" + strings.ToUpper(prefix[:1]) + prefix[1:]
}

func commonPrefix(a, b string) string {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return a[:i]
}
