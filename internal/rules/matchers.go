package rules

import (
	"fmt"
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"shadowscan/internal/config"
	"shadowscan/internal/extractor"
	"shadowscan/internal/fel"
)

// matchContext bundles the inputs a checker needs: the Unit's computed
// features plus a fresh AST scoped to that Unit's own source span.
type matchContext struct {
	unit       extractor.Unit
	root       *sitter.Node
	source     []byte
	thresholds config.RuleThresholds
}

type checker func(ctx matchContext) (bool, string)

var checkers = map[string]checker{
	"REACT-001": checkRenderSideEffect,
	"REACT-002": checkReactiveEffectDeps,
	"REACT-003": checkSetterInLoop,
	"REACT-004": checkDerivedState,
	"REACT-005": checkPropDrilling,
	"TS-001":    checkAnyTypeAbuse,
	"TS-002":    checkAPIWithoutTryCatch,
	"TS-003":    checkEmptyCatch,
	"TS-004":    checkUnguardedPropertyChain,
	"CX-001":    checkBooleanOverload,
	"CX-002":    checkDeepNesting,
	"CX-003":    checkInlineHandler,
	// CX-004 (duplicate logic) is cross-cutting: evaluated separately
	// once similarity clustering assigns cluster membership.
	// CX-005 (magic-string repetition) is file-scoped: see EvaluateFile.
	"CX-006": checkCommentOverNaming,
}

func checkRenderSideEffect(ctx matchContext) (bool, string) {
	if ctx.unit.Kind == extractor.KindComponent && ctx.unit.RenderSideEffects > 0 {
		return true, fmt.Sprintf("%d network/storage call(s) in the render body", ctx.unit.RenderSideEffects)
	}
	return false, ""
}

func checkReactiveEffectDeps(ctx matchContext) (bool, string) {
	for _, effect := range ctx.unit.ReactiveEffects {
		if len(effect.Dependencies) == 0 {
			return true, fmt.Sprintf("%s has an empty dependency list", effect.HookName)
		}
	}
	return false, ""
}

var loopNodeTypes = []string{"for_statement", "for_in_statement", "while_statement", "do_statement"}

func checkSetterInLoop(ctx matchContext) (bool, string) {
	containers := fel.FindNodes(ctx.root, loopNodeTypes)
	containers = append(containers, iterationCallbackBodies(ctx.root, ctx.source)...)

	for _, container := range containers {
		for _, call := range fel.FindNodes(container, []string{"call_expression"}) {
			if name := calleeIdentifier(call, ctx.source); isSetterName(name) {
				return true, fmt.Sprintf("%s called inside a loop", name)
			}
		}
	}
	return false, ""
}

// iterationCallbackBodies returns the callback function bodies of
// .forEach(...)/.map(...) calls, which behave like loops for this rule.
func iterationCallbackBodies(root *sitter.Node, source []byte) []*sitter.Node {
	var bodies []*sitter.Node
	for _, call := range fel.FindNodes(root, []string{"call_expression"}) {
		fn := call.ChildByFieldName("function")
		if fn == nil || fn.Type() != "member_expression" {
			continue
		}
		prop := fn.ChildByFieldName("property")
		if prop == nil {
			continue
		}
		switch fel.NodeText(prop, source) {
		case "forEach", "map":
			args := call.ChildByFieldName("arguments")
			if args != nil {
				bodies = append(bodies, args)
			}
		}
	}
	return bodies
}

func calleeIdentifier(call *sitter.Node, source []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" {
		return ""
	}
	return fel.NodeText(fn, source)
}

func isSetterName(name string) bool {
	if !strings.HasPrefix(name, "set") || len(name) < 4 {
		return false
	}
	return unicode.IsUpper(rune(name[3]))
}

func checkDerivedState(ctx matchContext) (bool, string) {
	for _, call := range fel.FindNodes(ctx.root, []string{"call_expression"}) {
		fn := call.ChildByFieldName("function")
		if fn == nil || fel.NodeText(fn, ctx.source) != "useState" {
			continue
		}
		args := call.ChildByFieldName("arguments")
		if args == nil {
			continue
		}
		for i := 0; i < int(args.ChildCount()); i++ {
			arg := args.Child(i)
			if arg == nil || arg.Type() != "member_expression" {
				continue
			}
			object := arg.ChildByFieldName("object")
			if object != nil && fel.NodeText(object, ctx.source) == "props" {
				return true, "useState initialized from a prop"
			}
		}
	}
	return false, ""
}

func checkPropDrilling(ctx matchContext) (bool, string) {
	count := len(fel.FindNodes(ctx.root, []string{"spread_element"}))
	if count >= ctx.thresholds.PropSpreadMin {
		return true, fmt.Sprintf("%d prop-spread expressions detected", count)
	}
	return false, ""
}

func checkAnyTypeAbuse(ctx matchContext) (bool, string) {
	count := 0
	for _, n := range fel.FindNodes(ctx.root, []string{"predefined_type"}) {
		if fel.NodeText(n, ctx.source) == "any" {
			count++
		}
	}
	if count > ctx.thresholds.AnyTypeMaxCount {
		return true, fmt.Sprintf("%d uses of 'any'", count)
	}
	return false, ""
}

var apiCallCallees = map[string]bool{"fetch": true, "axios": true}
var apiMemberMethods = map[string]bool{"get": true, "post": true, "put": true, "delete": true}

func checkAPIWithoutTryCatch(ctx matchContext) (bool, string) {
	hasAPI := false
	for _, call := range fel.FindNodes(ctx.root, []string{"call_expression"}) {
		fn := call.ChildByFieldName("function")
		if fn == nil {
			continue
		}
		if fn.Type() == "identifier" && apiCallCallees[fel.NodeText(fn, ctx.source)] {
			hasAPI = true
			break
		}
		if fn.Type() == "member_expression" {
			prop := fn.ChildByFieldName("property")
			if prop != nil && apiMemberMethods[fel.NodeText(prop, ctx.source)] {
				hasAPI = true
				break
			}
		}
	}
	if hasAPI && ctx.unit.TryCatchCount == 0 {
		return true, "network call present without a surrounding try/catch"
	}
	return false, ""
}

func checkEmptyCatch(ctx matchContext) (bool, string) {
	for _, handler := range fel.FindNodes(ctx.root, []string{"catch_clause"}) {
		body := handler.ChildByFieldName("body")
		if body == nil || body.NamedChildCount() == 0 {
			return true, "empty catch block"
		}
		if isConsoleLogOnly(body, ctx.source) {
			return true, "catch block only logs to the console"
		}
	}
	return false, ""
}

func isConsoleLogOnly(body *sitter.Node, source []byte) bool {
	var stmts []*sitter.Node
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child != nil && child.Type() == "expression_statement" {
			stmts = append(stmts, child)
		}
	}
	if len(stmts) != 1 {
		return false
	}
	calls := fel.FindNodes(stmts[0], []string{"call_expression"})
	if len(calls) != 1 {
		return false
	}
	fn := calls[0].ChildByFieldName("function")
	return fn != nil && fel.NodeText(fn, source) == "console.log"
}

func checkUnguardedPropertyChain(ctx matchContext) (bool, string) {
	if len(fel.FindNodes(ctx.root, []string{"optional_chain_expression"})) > 0 {
		return false, ""
	}
	maxDepth := 0
	for _, n := range fel.FindNodes(ctx.root, []string{"member_expression"}) {
		if d := memberChainDepth(n); d > maxDepth {
			maxDepth = d
		}
	}
	if maxDepth >= ctx.thresholds.PropertyChainMinDepth {
		return true, fmt.Sprintf("property chain %d levels deep without optional chaining", maxDepth)
	}
	return false, ""
}

func memberChainDepth(node *sitter.Node) int {
	depth := 1
	object := node.ChildByFieldName("object")
	for object != nil && object.Type() == "member_expression" {
		depth++
		object = object.ChildByFieldName("object")
	}
	return depth
}

func checkBooleanOverload(ctx matchContext) (bool, string) {
	if ctx.unit.BooleanComplexity >= ctx.thresholds.BooleanOverloadMin {
		return true, fmt.Sprintf("%d boolean operators (>= %d)", ctx.unit.BooleanComplexity, ctx.thresholds.BooleanOverloadMin)
	}
	return false, ""
}

func checkDeepNesting(ctx matchContext) (bool, string) {
	if ctx.unit.NestingDepth >= ctx.thresholds.DeepNestingMin {
		return true, fmt.Sprintf("nesting depth %d (>= %d)", ctx.unit.NestingDepth, ctx.thresholds.DeepNestingMin)
	}
	return false, ""
}

func checkInlineHandler(ctx matchContext) (bool, string) {
	if ctx.unit.Kind != extractor.KindComponent {
		return false, ""
	}
	count := 0
	for _, attr := range fel.FindNodes(ctx.root, []string{"jsx_attribute"}) {
		if len(fel.FindNodes(attr, []string{"arrow_function"})) > 0 {
			count++
		}
	}
	if count >= ctx.thresholds.InlineHandlerMin {
		return true, fmt.Sprintf("%d inline JSX handlers", count)
	}
	return false, ""
}

func checkCommentOverNaming(ctx matchContext) (bool, string) {
	comments := len(fel.FindNodes(ctx.root, []string{"comment"}))
	codeLines := ctx.unit.LOC - comments
	if codeLines < 1 {
		codeLines = 1
	}
	ratio := float64(comments) / float64(codeLines)
	if ratio > ctx.thresholds.CommentRatioMin && ctx.unit.IdentifierAmbiguity > ctx.thresholds.AmbiguityMin {
		return true, fmt.Sprintf("comment ratio %.0f%% with %.0f%% ambiguous identifiers", ratio*100, ctx.unit.IdentifierAmbiguity*100)
	}
	return false, ""
}
