package extractor

import (
	"context"
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"shadowscan/internal/fel"
)

// Warning describes a malformed region skipped during extraction.
type Warning struct {
	FilePath string
	Message  string
}

// Extractor promotes top-level function literals in a parsed file to
// Units and walks each Unit's subtree once per §4.2 feature.
type Extractor struct {
	parser *fel.Parser
}

// New returns an Extractor with its own tree-sitter parser instance.
// Extractors are not safe for concurrent use.
func New() *Extractor {
	return &Extractor{parser: fel.NewParser()}
}

// ExtractFile parses source and returns every promoted Unit plus any
// parse warnings for malformed regions. The parser never fails outright
// — syntactically invalid input yields a partial tree (§4.2).
func (e *Extractor) ExtractFile(ctx context.Context, filePath string, source []byte, lang fel.Language) ([]Unit, []Warning, error) {
	tree, err := e.parser.Parse(ctx, source, lang)
	if err != nil {
		return nil, nil, err
	}
	defer tree.Close()

	var units []Unit
	var warnings []Warning

	root := tree.Root
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		if child.Type() == "ERROR" {
			warnings = append(warnings, Warning{
				FilePath: filePath,
				Message:  "malformed region skipped at line " + strconv.Itoa(int(child.StartPoint().Row)+1),
			})
			continue
		}

		if class := classDeclarationNode(child); class != nil {
			for _, method := range classMethods(class) {
				name := methodName(method, source)
				if name == "" {
					continue
				}
				kind, ok := classifyUnit(name, method, source)
				if !ok {
					continue
				}
				units = append(units, buildUnit(filePath, name, kind, method, source))
			}
			continue
		}

		fnNode, name := getFunctionNodeAndName(child, source)
		if fnNode == nil || name == "" {
			continue
		}

		kind, ok := classifyUnit(name, fnNode, source)
		if !ok {
			continue
		}

		units = append(units, buildUnit(filePath, name, kind, fnNode, source))
	}

	return units, warnings, nil
}

func buildUnit(filePath, name string, kind Kind, node *sitter.Node, source []byte) Unit {
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1
	span := source[node.StartByte():node.EndByte()]

	effects := extractReactiveEffects(node, source)
	hasCleanup := false
	for _, effect := range effects {
		if effect.HasCleanup {
			hasCleanup = true
			break
		}
	}

	return Unit{
		ID:                    makeID(filePath, name, startLine, endLine),
		FilePath:              filePath,
		Name:                  name,
		Kind:                  kind,
		StartLine:             startLine,
		EndLine:               endLine,
		StartByte:             node.StartByte(),
		EndByte:               node.EndByte(),
		LOC:                   countLOC(node, source),
		NestingDepth:          computeNestingDepth(node),
		BranchCount:           computeBranchCount(node, source),
		BooleanComplexity:     computeBooleanComplexity(node, source),
		EarlyReturnCount:      computeEarlyReturnCount(node),
		TryCatchCount:         computeTryCatchCount(node),
		ExceptionIrregularity: computeExceptionIrregularity(node),
		CallbackDepth:         computeCallbackDepth(node),
		IdentifierAmbiguity:   computeIdentifierAmbiguity(node, source),
		ContextSwitches:       computeContextSwitches(node, source),
		ReactiveEffects:       effects,
		HasCleanup:            hasCleanup,
		RenderSideEffects:     computeRenderSideEffects(node, source, kind),
		Source:                append([]byte(nil), span...),
	}
}
