package extractor

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"shadowscan/internal/fel"
)

var nestingTypeSet = toSet(fel.NestingNodeTypes())
var decisionTypeSet = toSet(fel.DecisionNodeTypes())
var functionTypeSet = toSet(fel.FunctionNodeTypes())

func toSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// computeNestingDepth returns the maximum block-nesting depth reached
// anywhere inside node, per §4.2's nesting-depth feature.
func computeNestingDepth(node *sitter.Node) int {
	return nestingDepth(node, 0)
}

func nestingDepth(node *sitter.Node, depth int) int {
	max := depth
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		childDepth := depth
		if nestingTypeSet[child.Type()] {
			childDepth = depth + 1
		}
		if d := nestingDepth(child, childDepth); d > max {
			max = d
		}
	}
	return max
}

// isBranchBooleanOperator reports the wider branch-counting operator
// set (&&, ||, ??), distinct from boolean-complexity's narrower &&/||.
func isBranchBooleanOperator(node *sitter.Node, source []byte) bool {
	if node == nil || node.Type() != "binary_expression" {
		return false
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		switch fel.NodeText(node.Child(i), source) {
		case "&&", "||", "??":
			return true
		}
	}
	return false
}

// computeBranchCount counts every conditional or loop branch, including
// ternaries, switch cases, and short-circuit/coalescing operators.
func computeBranchCount(node *sitter.Node, source []byte) int {
	count := 0
	fel.Walk(node, func(n *sitter.Node) bool {
		if !decisionTypeSet[n.Type()] {
			return true
		}
		if n.Type() == "binary_expression" {
			if isBranchBooleanOperator(n, source) {
				count++
			}
		} else {
			count++
		}
		return true
	})
	return count
}

// computeBooleanComplexity counts && / || operators anywhere in node.
func computeBooleanComplexity(node *sitter.Node, source []byte) int {
	count := 0
	fel.Walk(node, func(n *sitter.Node) bool {
		if fel.IsBooleanOperator(n, source) {
			count++
		}
		return true
	})
	return count
}

// computeEarlyReturnCount counts every return_statement anywhere in
// node's body that is not the body's tail statement (§4.2), including
// returns nested inside if/for/switch/try blocks. Returns inside a
// nested function literal belong to that literal, not this Unit, so
// the walk does not descend past a nested function boundary.
func computeEarlyReturnCount(node *sitter.Node) int {
	body := node.ChildByFieldName("body")
	if body == nil || body.Type() != "statement_block" {
		return 0
	}

	tailStart, tailIsReturn := tailStatementStart(body)

	count := 0
	fel.Walk(body, func(n *sitter.Node) bool {
		if n != body && functionTypeSet[n.Type()] {
			return false
		}
		if n.Type() == "return_statement" && !(tailIsReturn && n.StartByte() == tailStart) {
			count++
		}
		return true
	})
	return count
}

// tailStatementStart returns the start byte of body's final direct
// statement and whether that statement is itself a return_statement.
func tailStatementStart(body *sitter.Node) (uint32, bool) {
	for i := int(body.ChildCount()) - 1; i >= 0; i-- {
		child := body.Child(i)
		if child == nil || child.Type() == "{" || child.Type() == "}" {
			continue
		}
		return child.StartByte(), child.Type() == "return_statement"
	}
	return 0, false
}

// computeTryCatchCount counts try blocks anywhere in node.
func computeTryCatchCount(node *sitter.Node) int {
	count := 0
	fel.Walk(node, func(n *sitter.Node) bool {
		if n.Type() == "try_statement" {
			count++
		}
		return true
	})
	return count
}

// computeExceptionIrregularity reports whether any try block in node
// lacks a catch clause, or has a catch clause with an empty handler
// body — §4.5's exception-irregularity signal.
func computeExceptionIrregularity(node *sitter.Node) bool {
	irregular := false
	fel.Walk(node, func(n *sitter.Node) bool {
		if n.Type() != "try_statement" {
			return true
		}
		handler := n.ChildByFieldName("handler")
		if handler == nil {
			irregular = true
			return true
		}
		catchBody := handler.ChildByFieldName("body")
		if catchBody == nil || catchBody.ChildCount() == 0 {
			irregular = true
		}
		return true
	})
	return irregular
}

// computeCallbackDepth returns the maximum nesting depth of function
// literals strictly inside node (the Unit's own literal doesn't count).
func computeCallbackDepth(node *sitter.Node) int {
	max := 0
	for i := 0; i < int(node.ChildCount()); i++ {
		if d := callbackDepth(node.Child(i), 0); d > max {
			max = d
		}
	}
	return max
}

func callbackDepth(node *sitter.Node, depth int) int {
	if node == nil {
		return depth
	}
	childDepth := depth
	if node.Type() == "arrow_function" || node.Type() == "function_expression" {
		childDepth = depth + 1
	}
	max := childDepth
	for i := 0; i < int(node.ChildCount()); i++ {
		if d := callbackDepth(node.Child(i), childDepth); d > max {
			max = d
		}
	}
	return max
}

// computeIdentifierAmbiguity returns the fraction of identifiers in
// node whose lowercased text falls in the ambiguous-name vocabulary.
func computeIdentifierAmbiguity(node *sitter.Node, source []byte) float64 {
	total, ambiguous := 0, 0
	fel.Walk(node, func(n *sitter.Node) bool {
		if n.Type() != "identifier" {
			return true
		}
		total++
		if ambiguousIdentifiers[strings.ToLower(fel.NodeText(n, source))] {
			ambiguous++
		}
		return true
	})
	if total == 0 {
		return 0
	}
	return float64(ambiguous) / float64(total)
}

// computeContextSwitches implements §9 Open Question (b)'s deterministic
// reading of "distinct domain-object prefixes": identifiers occurring
// ≥2 times in the Unit are trimmed to their prefix up to the first
// lowercase-to-uppercase boundary, and the distinct-prefix count is
// returned.
func computeContextSwitches(node *sitter.Node, source []byte) int {
	counts := make(map[string]int)
	fel.Walk(node, func(n *sitter.Node) bool {
		if n.Type() == "identifier" {
			counts[fel.NodeText(n, source)]++
		}
		return true
	})

	prefixes := make(map[string]bool)
	for name, count := range counts {
		if count < 2 {
			continue
		}
		prefixes[domainPrefix(name)] = true
	}
	return len(prefixes)
}

func domainPrefix(name string) string {
	runes := []rune(name)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && unicode.IsLower(runes[i-1]) {
			return string(runes[:i])
		}
	}
	return name
}

func calleeName(call *sitter.Node, source []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return fel.NodeText(fn, source)
	case "member_expression":
		object := fn.ChildByFieldName("object")
		return fel.NodeText(object, source)
	}
	return ""
}

// extractReactiveEffects finds every reactive-effect call in node and
// returns its dependency list and cleanup status.
func extractReactiveEffects(node *sitter.Node, source []byte) []ReactiveEffect {
	var effects []ReactiveEffect
	calls := fel.FindNodes(node, []string{"call_expression"})
	for _, call := range calls {
		name := calleeName(call, source)
		if !reactiveEffectNames[name] {
			continue
		}
		args := call.ChildByFieldName("arguments")
		if args == nil {
			continue
		}
		var callback, depsArray *sitter.Node
		argIdx := 0
		for i := 0; i < int(args.ChildCount()); i++ {
			child := args.Child(i)
			if child == nil || !isArgumentNode(child) {
				continue
			}
			switch argIdx {
			case 0:
				callback = child
			case 1:
				depsArray = child
			}
			argIdx++
		}

		effects = append(effects, ReactiveEffect{
			HookName:     name,
			Dependencies: dependencyNames(depsArray, source),
			HasCleanup:   hasCleanupReturn(callback),
		})
	}
	return effects
}

func isArgumentNode(n *sitter.Node) bool {
	switch n.Type() {
	case ",", "(", ")":
		return false
	default:
		return true
	}
}

func dependencyNames(arrayNode *sitter.Node, source []byte) []string {
	if arrayNode == nil || arrayNode.Type() != "array" {
		return nil
	}
	var names []string
	for i := 0; i < int(arrayNode.ChildCount()); i++ {
		child := arrayNode.Child(i)
		if child != nil && child.Type() == "identifier" {
			names = append(names, fel.NodeText(child, source))
		}
	}
	return names
}

func hasCleanupReturn(callback *sitter.Node) bool {
	if callback == nil {
		return false
	}
	switch callback.Type() {
	case "arrow_function":
		body := callback.ChildByFieldName("body")
		if body == nil {
			return false
		}
		if body.Type() == "arrow_function" || body.Type() == "function_expression" {
			return true
		}
		return bodyReturnsFunction(body)
	case "function_expression":
		return bodyReturnsFunction(callback.ChildByFieldName("body"))
	}
	return false
}

func bodyReturnsFunction(body *sitter.Node) bool {
	if body == nil {
		return false
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		if child == nil || child.Type() != "return_statement" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			grandchild := child.Child(j)
			if grandchild == nil {
				continue
			}
			if grandchild.Type() == "arrow_function" || grandchild.Type() == "function_expression" {
				return true
			}
		}
	}
	return false
}

// computeRenderSideEffects counts network/storage calls lexically
// outside any reactive-effect callback, only meaningful for components.
func computeRenderSideEffects(node *sitter.Node, source []byte, kind Kind) int {
	if kind != KindComponent {
		return 0
	}

	excluded := reactiveEffectCallbackRanges(node, source)

	count := 0
	calls := fel.FindNodes(node, []string{"call_expression"})
	for _, call := range calls {
		if withinAny(call, excluded) {
			continue
		}
		if sideEffectCallees[calleeName(call, source)] {
			count++
		}
	}
	return count
}

func reactiveEffectCallbackRanges(node *sitter.Node, source []byte) [][2]uint32 {
	var ranges [][2]uint32
	calls := fel.FindNodes(node, []string{"call_expression"})
	for _, call := range calls {
		if !reactiveEffectNames[calleeName(call, source)] {
			continue
		}
		args := call.ChildByFieldName("arguments")
		if args == nil {
			continue
		}
		for i := 0; i < int(args.ChildCount()); i++ {
			child := args.Child(i)
			if child != nil && (child.Type() == "arrow_function" || child.Type() == "function_expression") {
				ranges = append(ranges, [2]uint32{child.StartByte(), child.EndByte()})
				break
			}
		}
	}
	return ranges
}

func withinAny(node *sitter.Node, ranges [][2]uint32) bool {
	for _, r := range ranges {
		if node.StartByte() >= r[0] && node.EndByte() <= r[1] {
			return true
		}
	}
	return false
}
