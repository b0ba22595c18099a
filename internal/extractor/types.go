// Package extractor promotes tree-sitter function nodes to Units and
// walks each Unit's subtree once per feature, per the Engine's §4.2
// extraction rules.
package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Kind is a Unit's structural classification.
type Kind string

const (
	KindComponent Kind = "component"
	KindHook      Kind = "hook"
	KindFunction  Kind = "function"
)

// ReactiveEffect records one useEffect/useLayoutEffect/useInsertionEffect
// call found inside a Unit: its declared dependency names and whether
// its callback returns a teardown function.
type ReactiveEffect struct {
	HookName     string   `json:"hookName"`
	Dependencies []string `json:"dependencies"`
	HasCleanup   bool     `json:"hasCleanup"`
}

// Unit is one analyzable code region: a component, hook, or function.
type Unit struct {
	ID       string `json:"id"`
	FilePath string `json:"filePath"`
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`

	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	LOC       int    `json:"loc"`
	StartByte uint32 `json:"startByte"`
	EndByte   uint32 `json:"endByte"`

	NestingDepth         int              `json:"nestingDepth"`
	BranchCount          int              `json:"branchCount"`
	BooleanComplexity    int              `json:"booleanComplexity"`
	EarlyReturnCount     int              `json:"earlyReturnCount"`
	TryCatchCount        int              `json:"tryCatchCount"`
	ExceptionIrregularity bool            `json:"exceptionIrregularity"`
	CallbackDepth        int              `json:"callbackDepth"`
	IdentifierAmbiguity  float64          `json:"identifierAmbiguity"`
	ContextSwitches      int              `json:"contextSwitches"`
	ReactiveEffects      []ReactiveEffect `json:"reactiveEffects"`
	HasCleanup           bool             `json:"hasCleanup"`
	RenderSideEffects    int              `json:"renderSideEffects"`

	// Source is the literal byte span of the Unit, kept for similarity
	// shingling and evidence.SpanHash — never serialized into reports.
	Source []byte `json:"-"`
}

// reactiveEffectNames is §4.2's fixed reactive-effect vocabulary.
var reactiveEffectNames = map[string]bool{
	"useEffect":          true,
	"useLayoutEffect":    true,
	"useInsertionEffect": true,
}

// sideEffectCallees is §4.2's fixed network/storage vocabulary.
var sideEffectCallees = map[string]bool{
	"fetch":          true,
	"localStorage":   true,
	"sessionStorage": true,
	"axios":          true,
}

// ambiguousIdentifiers backs the scorer's identifier-ambiguity feature
// (§4.5); the vocabulary is the scorer's literal {data, tmp, result,
// foo, x, y} plus the close synonyms the source implementation also
// treated as ambiguous.
var ambiguousIdentifiers = map[string]bool{
	"data": true, "tmp": true, "temp": true, "result": true, "res": true,
	"ret": true, "val": true, "value": true, "item": true, "items": true,
	"obj": true, "arr": true, "list": true, "info": true, "response": true,
	"output": true, "input": true, "x": true, "y": true, "z": true,
	"a": true, "b": true, "foo": true, "bar": true, "baz": true,
	"cb": true, "fn": true, "func": true, "handler": true,
}

func makeID(filePath, name string, startLine, endLine int) string {
	raw := fmt.Sprintf("%s:%s:%d:%d", filePath, name, startLine, endLine)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}
