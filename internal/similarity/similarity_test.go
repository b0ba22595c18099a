package similarity

import (
	"testing"

	"shadowscan/internal/config"
	"shadowscan/internal/extractor"
)

func TestTokenize_NormalizesLiteralsAndIdentifiers(t *testing.T) {
	tokens := Tokenize([]byte(`const x = "hello"; let count = 42;`))
	want := []string{"const", "_VAR", "=", "_STR", ";", "let", "_VAR", "=", "_NUM", ";"}
	if len(tokens) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("tokens[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}
}

func TestTokenize_PreservesKeywordsAndReactiveVocabulary(t *testing.T) {
	tokens := Tokenize([]byte(`useEffect(() => {}, [])`))
	found := false
	for _, tok := range tokens {
		if tok == "useEffect" {
			found = true
		}
	}
	if !found {
		t.Error("useEffect should be preserved verbatim, not normalized to _VAR")
	}
}

func TestShingles_ShortStreamCollapsesToOne(t *testing.T) {
	set := Shingles([]string{"a", "b"}, 4)
	if len(set) != 1 {
		t.Fatalf("len(set) = %d, want 1 for a stream shorter than the shingle size", len(set))
	}
}

func TestJaccard_IdenticalSetsAreOne(t *testing.T) {
	a := Shingles(Tokenize([]byte(`function f(x) { return x + 1; }`)), 4)
	if got := Jaccard(a, a); got != 1.0 {
		t.Errorf("Jaccard(a, a) = %v, want 1.0", got)
	}
}

func TestJaccard_DisjointSetsAreZero(t *testing.T) {
	a := Shingles([]string{"a", "b", "c", "d"}, 4)
	b := Shingles([]string{"w", "x", "y", "z"}, 4)
	if got := Jaccard(a, b); got != 0.0 {
		t.Errorf("Jaccard(a, b) = %v, want 0.0", got)
	}
}

func TestEstimateJaccard_ApproximatesExactForSimilarSets(t *testing.T) {
	a := Shingles(Tokenize([]byte(`function f(x) { if (x) { return x + 1; } return 0; }`)), 4)
	b := Shingles(Tokenize([]byte(`function g(y) { if (y) { return y + 1; } return 0; }`)), 4)

	exact := Jaccard(a, b)
	sigA := Signatures(a, 128)
	sigB := Signatures(b, 128)
	estimate := EstimateJaccard(sigA, sigB)

	if diff := exact - estimate; diff > 0.25 || diff < -0.25 {
		t.Errorf("estimate %v too far from exact %v", estimate, exact)
	}
}

func TestSignatures_Deterministic(t *testing.T) {
	set := Shingles(Tokenize([]byte(`function f(x) { return x; }`)), 4)
	sigA := Signatures(set, 128)
	sigB := Signatures(set, 128)
	for i := range sigA {
		if sigA[i] != sigB[i] {
			t.Fatalf("Signatures() not reproducible at index %d: %d != %d", i, sigA[i], sigB[i])
		}
	}
}

func unit(id, name, filePath string, kind extractor.Kind, source string) extractor.Unit {
	return extractor.Unit{ID: id, Name: name, FilePath: filePath, Kind: kind, Source: []byte(source)}
}

func TestFindClusters_GroupsNearDuplicates(t *testing.T) {
	units := []extractor.Unit{
		unit("a", "formatDate", "src/a.ts", extractor.KindFunction, `function formatDate(d) { return d.toISOString().slice(0, 10); }`),
		unit("b", "formatDay", "src/b.ts", extractor.KindFunction, `function formatDay(d) { return d.toISOString().slice(0, 10); }`),
		unit("c", "sum", "src/c.ts", extractor.KindFunction, `function sum(a, b) { return a + b; }`),
	}
	cfg := config.DefaultConfig().Similarity
	clusters := FindClusters(units, nil, cfg)

	if len(clusters) != 1 {
		t.Fatalf("len(clusters) = %d, want 1", len(clusters))
	}
	if len(clusters[0].MemberIDs) != 2 {
		t.Fatalf("len(MemberIDs) = %d, want 2", len(clusters[0].MemberIDs))
	}
}

func TestFindClusters_ComponentsNeedHigherSimilarity(t *testing.T) {
	// Two components that share boilerplate but diverge enough to sit
	// between the non-component and component thresholds.
	units := []extractor.Unit{
		unit("a", "UserCard", "src/UserCard.tsx", extractor.KindComponent, `function UserCard(props) { return <div className="card"><h2>{props.name}</h2><p>{props.email}</p></div>; }`),
		unit("b", "TeamCard", "src/TeamCard.tsx", extractor.KindComponent, `function TeamCard(props) { return <section className="panel"><h3>{props.title}</h3></section>; }`),
	}
	cfg := config.DefaultConfig().Similarity
	clusters := FindClusters(units, nil, cfg)
	if len(clusters) != 0 {
		t.Errorf("expected no cluster: divergent components should not meet the higher component threshold, got %d", len(clusters))
	}
}

func TestFindClusters_IncrementalRestrictsCandidateUniverse(t *testing.T) {
	units := []extractor.Unit{
		unit("a", "formatDate", "src/a.ts", extractor.KindFunction, `function formatDate(d) { return d.toISOString().slice(0, 10); }`),
		unit("b", "formatDay", "other/b.ts", extractor.KindFunction, `function formatDay(d) { return d.toISOString().slice(0, 10); }`),
	}
	cfg := config.DefaultConfig().Similarity

	changed := map[string]bool{"a": true}
	clusters := FindClusters(units, changed, cfg)
	if len(clusters) != 0 {
		t.Errorf("expected no cluster across different directory subtrees, got %d", len(clusters))
	}
}

func TestFindClusters_FewerThanTwoUnits(t *testing.T) {
	cfg := config.DefaultConfig().Similarity
	if got := FindClusters(nil, nil, cfg); got != nil {
		t.Errorf("FindClusters(nil) = %v, want nil", got)
	}
	one := []extractor.Unit{unit("a", "f", "src/a.ts", extractor.KindFunction, "function f() {}")}
	if got := FindClusters(one, nil, cfg); got != nil {
		t.Errorf("FindClusters(one unit) = %v, want nil", got)
	}
}

func TestMergeWithPrior_FullScanReturnsFreshUnchanged(t *testing.T) {
	fresh := []Cluster{{ID: "c1", MemberIDs: []string{"a", "b"}, Suggestion: "sharedFoo"}}
	merged := MergeWithPrior(fresh, []Cluster{{ID: "stale", MemberIDs: []string{"x", "y"}}}, nil, nil)
	if len(merged) != 1 || merged[0].ID != "c1" {
		t.Errorf("MergeWithPrior(full scan) = %v, want fresh unchanged", merged)
	}
}

func TestMergeWithPrior_KeepsUntouchedPriorClusters(t *testing.T) {
	prior := []Cluster{{ID: "p1", MemberIDs: []string{"x", "y"}, Suggestion: "sharedBar"}}
	changed := map[string]bool{"a": true}
	merged := MergeWithPrior(nil, prior, changed, nil)
	if len(merged) != 1 || merged[0].ID != "p1" {
		t.Errorf("MergeWithPrior() = %v, want the untouched prior cluster reused", merged)
	}
}

func TestMergeWithPrior_DropsPriorClusterTouchingChangedUnit(t *testing.T) {
	prior := []Cluster{{ID: "p1", MemberIDs: []string{"a", "y"}, Suggestion: "sharedBar"}}
	changed := map[string]bool{"a": true}
	merged := MergeWithPrior(nil, prior, changed, nil)
	if len(merged) != 0 {
		t.Errorf("MergeWithPrior() = %v, want the prior cluster touching a changed Unit dropped", merged)
	}
}

func TestMergeWithPrior_DropsPriorClusterOverlappingFreshResult(t *testing.T) {
	fresh := []Cluster{{ID: "c1", MemberIDs: []string{"a", "b"}, Suggestion: "sharedFoo"}}
	prior := []Cluster{{ID: "p1", MemberIDs: []string{"b", "z"}, Suggestion: "sharedBar"}}
	changed := map[string]bool{"a": true}
	merged := MergeWithPrior(fresh, prior, changed, nil)
	if len(merged) != 1 || merged[0].ID != "c1" {
		t.Errorf("MergeWithPrior() = %v, want only the fresh cluster (prior overlaps a now-superseded member)", merged)
	}
}

func TestMergeWithPrior_PrunesDeletedMembers(t *testing.T) {
	prior := []Cluster{{ID: "p1", MemberIDs: []string{"x", "y", "z"}, Suggestion: "sharedBar"}}
	changed := map[string]bool{"a": true}
	deleted := map[string]bool{"z": true}
	merged := MergeWithPrior(nil, prior, changed, deleted)
	if len(merged) != 1 || len(merged[0].MemberIDs) != 2 {
		t.Errorf("MergeWithPrior() = %v, want the deleted member pruned but the cluster kept (still >= 2 members)", merged)
	}
}
