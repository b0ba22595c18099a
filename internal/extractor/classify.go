package extractor

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"shadowscan/internal/fel"
)

var markupNodeTypes = []string{
	"jsx_element",
	"jsx_self_closing_element",
	"jsx_fragment",
}

// isHookName reports the literal-prefix rule of §4.2's Hook clause:
// "use" followed immediately by an uppercase letter.
func isHookName(name string) bool {
	if !strings.HasPrefix(name, "use") || len(name) < 4 {
		return false
	}
	return unicode.IsUpper(rune(name[3]))
}

// isComponentName reports §4.2's Component naming rule: the name
// begins with an uppercase letter.
func isComponentName(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper(rune(name[0]))
}

// hasMarkupReturn reports whether node's subtree contains any embedded
// markup element, the structural half of the Component rule.
func hasMarkupReturn(node *sitter.Node, source []byte) bool {
	return len(fel.FindNodes(node, markupNodeTypes)) > 0
}

// countLOC counts non-blank, non-comment-only lines in node's span.
func countLOC(node *sitter.Node, source []byte) int {
	text := fel.NodeText(node, source)
	lines := strings.Split(text, "\n")
	count := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*") {
			continue
		}
		count++
	}
	return count
}

// classifyUnit applies §4.2's three promotion rules plus the hook-wins
// ambiguity resolution, returning ok=false when node should not become
// a Unit (rule 3's ≥3-LOC floor not met, and rules 1/2 don't apply).
func classifyUnit(name string, node *sitter.Node, source []byte) (Kind, bool) {
	if isHookName(name) {
		return KindHook, true
	}
	if isComponentName(name) && hasMarkupReturn(node, source) {
		return KindComponent, true
	}
	if countLOC(node, source) >= 3 {
		return KindFunction, true
	}
	return "", false
}

// getFunctionNodeAndName walks a top-level declaration looking for a
// promotable function literal and its bound name. Only top-level forms
// are considered — nested functions are never promoted (§4.2).
func getFunctionNodeAndName(node *sitter.Node, source []byte) (*sitter.Node, string) {
	switch node.Type() {
	case "function_declaration", "generator_function_declaration":
		nameNode := node.ChildByFieldName("name")
		if nameNode != nil {
			return node, fel.NodeText(nameNode, source)
		}
	case "export_statement":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			if fn, name := getFunctionNodeAndName(child, source); fn != nil {
				return fn, name
			}
		}
	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child == nil || child.Type() != "variable_declarator" {
				continue
			}
			nameNode := child.ChildByFieldName("name")
			valueNode := child.ChildByFieldName("value")
			if nameNode == nil || valueNode == nil {
				continue
			}
			switch valueNode.Type() {
			case "arrow_function", "function_expression":
				return valueNode, fel.NodeText(nameNode, source)
			}
		}
	}
	return nil, ""
}

// classDeclarationNode unwraps an export_statement to find a wrapped
// class_declaration, returning nil if node is not a class (exported or
// otherwise). Classes are not function literals themselves, but §4.2
// promotes each method inside one.
func classDeclarationNode(node *sitter.Node) *sitter.Node {
	if node.Type() == "class_declaration" {
		return node
	}
	if node.Type() == "export_statement" {
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child != nil && child.Type() == "class_declaration" {
				return child
			}
		}
	}
	return nil
}

// classMethods returns every method_definition in class's body, per
// §4.2's "top-level function, method, or named arrow assignment"
// Function Unit rule.
func classMethods(class *sitter.Node) []*sitter.Node {
	body := class.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var methods []*sitter.Node
	for i := 0; i < int(body.ChildCount()); i++ {
		if child := body.Child(i); child != nil && child.Type() == "method_definition" {
			methods = append(methods, child)
		}
	}
	return methods
}

// methodName reads a method_definition's bound name.
func methodName(method *sitter.Node, source []byte) string {
	nameNode := method.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return fel.NodeText(nameNode, source)
}
