package extractor

import (
	"context"
	"testing"

	"shadowscan/internal/fel"
)

func extractOne(t *testing.T, source string, lang fel.Language) Unit {
	t.Helper()
	units, warnings, err := New().ExtractFile(context.Background(), "src/Example.tsx", []byte(source), lang)
	if err != nil {
		t.Fatalf("ExtractFile() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(units) != 1 {
		t.Fatalf("len(units) = %d, want 1", len(units))
	}
	return units[0]
}

func TestExtractFile_ComponentClassification(t *testing.T) {
	src := `
function UserCard(props) {
	return <div>{props.name}</div>;
}
`
	unit := extractOne(t, src, fel.LangTSX)
	if unit.Kind != KindComponent {
		t.Errorf("Kind = %q, want %q", unit.Kind, KindComponent)
	}
	if unit.Name != "UserCard" {
		t.Errorf("Name = %q, want UserCard", unit.Name)
	}
}

func TestExtractFile_HookClassification(t *testing.T) {
	src := `
function useCounter() {
	let count = 0;
	return count;
}
`
	unit := extractOne(t, src, fel.LangTS)
	if unit.Kind != KindHook {
		t.Errorf("Kind = %q, want %q", unit.Kind, KindHook)
	}
}

func TestExtractFile_HookWinsAmbiguity(t *testing.T) {
	// Named like a hook but returns markup — hook classification wins.
	src := `
function useProfile(props) {
	return <div>{props.id}</div>;
}
`
	unit := extractOne(t, src, fel.LangTSX)
	if unit.Kind != KindHook {
		t.Errorf("Kind = %q, want %q (hook wins ambiguity)", unit.Kind, KindHook)
	}
}

func TestExtractFile_PlainFunctionRequiresThreeLOC(t *testing.T) {
	short := `
function add(a, b) {
	return a + b; }
`
	units, _, err := New().ExtractFile(context.Background(), "src/math.ts", []byte(short), fel.LangTS)
	if err != nil {
		t.Fatalf("ExtractFile() error = %v", err)
	}
	if len(units) != 0 {
		t.Fatalf("len(units) = %d, want 0 (function spans only 2 LOC)", len(units))
	}
}

func TestExtractFile_NestingAndBranchCount(t *testing.T) {
	src := `
function resolve(input) {
	if (input) {
		for (const x of input) {
			if (x > 0) {
				return x;
			}
		}
	}
	return null;
}
`
	unit := extractOne(t, src, fel.LangTS)
	if unit.NestingDepth < 3 {
		t.Errorf("NestingDepth = %d, want >= 3", unit.NestingDepth)
	}
	if unit.BranchCount < 2 {
		t.Errorf("BranchCount = %d, want >= 2", unit.BranchCount)
	}
	if unit.EarlyReturnCount != 1 {
		t.Errorf("EarlyReturnCount = %d, want 1 (the nested `return x` is early; the tail `return null` is not)", unit.EarlyReturnCount)
	}
}

func TestExtractFile_ReactiveEffectWithCleanup(t *testing.T) {
	src := `
function useSubscription(channel) {
	useEffect(() => {
		const handle = subscribe(channel);
		return () => {
			handle.close();
		};
	}, [channel]);
	return channel;
}
`
	unit := extractOne(t, src, fel.LangTS)
	if len(unit.ReactiveEffects) != 1 {
		t.Fatalf("len(ReactiveEffects) = %d, want 1", len(unit.ReactiveEffects))
	}
	effect := unit.ReactiveEffects[0]
	if effect.HookName != "useEffect" {
		t.Errorf("HookName = %q, want useEffect", effect.HookName)
	}
	if len(effect.Dependencies) != 1 || effect.Dependencies[0] != "channel" {
		t.Errorf("Dependencies = %v, want [channel]", effect.Dependencies)
	}
	if !effect.HasCleanup {
		t.Error("HasCleanup should be true")
	}
	if !unit.HasCleanup {
		t.Error("Unit.HasCleanup should be true")
	}
}

func TestExtractFile_RenderSideEffectsOutsideEffect(t *testing.T) {
	src := `
function Dashboard(props) {
	fetch("/api/data");
	useEffect(() => {
		fetch("/api/inside-effect");
	}, []);
	return <div>{props.title}</div>;
}
`
	unit := extractOne(t, src, fel.LangTSX)
	if unit.Kind != KindComponent {
		t.Fatalf("Kind = %q, want component", unit.Kind)
	}
	if unit.RenderSideEffects != 1 {
		t.Errorf("RenderSideEffects = %d, want 1 (only the call outside useEffect)", unit.RenderSideEffects)
	}
}

func TestExtractFile_RenderSideEffectsIgnoredOutsideComponent(t *testing.T) {
	src := `
function loadConfig() {
	fetch("/api/config");
	return true;
}
`
	unit := extractOne(t, src, fel.LangTS)
	if unit.Kind != KindFunction {
		t.Fatalf("Kind = %q, want function", unit.Kind)
	}
	if unit.RenderSideEffects != 0 {
		t.Errorf("RenderSideEffects = %d, want 0 (only counted for components)", unit.RenderSideEffects)
	}
}

func TestExtractFile_ParseWarningOnMalformedRegion(t *testing.T) {
	src := `
function valid() {
	return 1 + 1;
}

function broken( {{{
`
	units, _, err := New().ExtractFile(context.Background(), "src/broken.ts", []byte(src), fel.LangTS)
	if err != nil {
		t.Fatalf("ExtractFile() error = %v (parser must tolerate invalid input, not fail the scan)", err)
	}
	found := false
	for _, u := range units {
		if u.Name == "valid" {
			found = true
		}
	}
	if !found {
		t.Error("the well-formed function before the malformed region should still be extracted")
	}
}

func TestDomainPrefix(t *testing.T) {
	tests := map[string]string{
		"userProfile": "user",
		"apiClient":   "api",
		"plain":       "plain",
	}
	for input, want := range tests {
		if got := domainPrefix(input); got != want {
			t.Errorf("domainPrefix(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestExtractFile_ClassMethodsPromoted(t *testing.T) {
	src := `
class UserRepository {
	findById(id) {
		if (!id) {
			return null;
		}
		return this.records.get(id);
	}

	save(record) {
		this.records.set(record.id, record);
	}
}
`
	units, warnings, err := New().ExtractFile(context.Background(), "src/UserRepository.ts", []byte(src), fel.LangTS)
	if err != nil {
		t.Fatalf("ExtractFile() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(units) != 2 {
		t.Fatalf("len(units) = %d, want 2 (both class methods promoted)", len(units))
	}

	byName := make(map[string]Unit, len(units))
	for _, u := range units {
		byName[u.Name] = u
	}
	find, ok := byName["findById"]
	if !ok {
		t.Fatal("expected a Unit named findById")
	}
	if find.EarlyReturnCount != 1 {
		t.Errorf("findById.EarlyReturnCount = %d, want 1", find.EarlyReturnCount)
	}
	if _, ok := byName["save"]; !ok {
		t.Error("expected a Unit named save")
	}
}

func TestComputeEarlyReturnCount_SkipsNestedFunctionBoundary(t *testing.T) {
	src := `
function useSubscription(channel) {
	useEffect(() => {
		const handle = subscribe(channel);
		return () => {
			handle.close();
		};
	}, [channel]);
	return null;
}
`
	unit := extractOne(t, src, fel.LangTS)
	if unit.EarlyReturnCount != 0 {
		t.Errorf("EarlyReturnCount = %d, want 0 (the nested arrow's return belongs to that arrow, and the outer return is the tail)", unit.EarlyReturnCount)
	}
}

func TestIsHookName(t *testing.T) {
	tests := map[string]bool{
		"useEffect":  true,
		"useState":   true,
		"user":       false,
		"use":        false,
		"useless":    false,
		"utilHelper": false,
	}
	for name, want := range tests {
		if got := isHookName(name); got != want {
			t.Errorf("isHookName(%q) = %v, want %v", name, got, want)
		}
	}
}
