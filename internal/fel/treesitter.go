package fel

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Parser wraps tree-sitter for the three FEL grammars. Not safe for
// concurrent use — callers hold one Parser per worker goroutine.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a tree-sitter parser bound to no grammar yet; the
// grammar is selected per call in Parse.
func NewParser() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

// Tree holds a parsed file's root node alongside the tree that owns its
// memory; sitter.Node values are only valid while Tree is reachable.
type Tree struct {
	Root   *sitter.Node
	source *sitter.Tree
}

// Close releases the tree-sitter tree's native resources.
func (t *Tree) Close() {
	if t.source != nil {
		t.source.Close()
	}
}

// Parse parses source as lang and returns the resulting Tree.
func (p *Parser) Parse(ctx context.Context, source []byte, lang Language) (*Tree, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}

	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	return &Tree{Root: tree.RootNode(), source: tree}, nil
}

func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangJS:
		return javascript.GetLanguage(), nil
	case LangTS:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// FunctionNodeTypes are the syntactic forms a Unit (component, hook, or
// plain function) can take, per §4.2's extraction rule.
func FunctionNodeTypes() []string {
	return []string{
		"function_declaration",
		"function_expression",
		"arrow_function",
		"method_definition",
		"generator_function_declaration",
	}
}

// DecisionNodeTypes returns the node types that contribute to branch
// count (§4.2's structural features / §4.5's branch-count feature).
func DecisionNodeTypes() []string {
	return []string{
		"if_statement",
		"for_statement",
		"for_in_statement",
		"while_statement",
		"do_statement",
		"switch_case",
		"catch_clause",
		"ternary_expression",
		"binary_expression", // filtered to && / || / ?? by the extractor's branch counter
		"optional_chain_expression",
	}
}

// NestingNodeTypes returns node types that increase nesting depth.
func NestingNodeTypes() []string {
	return []string{
		"if_statement",
		"for_statement",
		"for_in_statement",
		"while_statement",
		"do_statement",
		"switch_statement",
		"try_statement",
		"arrow_function",
		"function_expression",
	}
}

// IsBooleanOperator reports whether a binary_expression node's operator
// is && or ||. The extractor's branch count uses a wider set that also
// includes ??.
func IsBooleanOperator(node *sitter.Node, source []byte) bool {
	if node == nil || node.Type() != "binary_expression" {
		return false
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch NodeText(child, source) {
		case "&&", "||":
			return true
		}
	}
	return false
}

// NodeText returns the source slice spanned by node.
func NodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// FindNodes returns every descendant of root (root itself included)
// whose type is in types, in pre-order.
func FindNodes(root *sitter.Node, types []string) []*sitter.Node {
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	var result []*sitter.Node
	Walk(root, func(node *sitter.Node) bool {
		if typeSet[node.Type()] {
			result = append(result, node)
		}
		return true
	})
	return result
}

// Walk visits root and every descendant in pre-order, calling visit on
// each. Descending into a node's children stops when visit returns false.
func Walk(root *sitter.Node, visit func(*sitter.Node) bool) {
	if root == nil {
		return
	}
	if !visit(root) {
		return
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		Walk(root.Child(i), visit)
	}
}
