package scorer

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"shadowscan/internal/extractor"
	"shadowscan/internal/fel"
)

var assignmentNodeTypes = []string{"assignment_expression", "update_expression"}

// dependencyUnstable reports whether unit has a reactive effect whose
// dependency list is empty, or whose dependency list names an
// identifier that is reassigned somewhere else in the Unit's body —
// the §4.5 cognitive-load adjustment's "missing or reassigned" test.
func dependencyUnstable(ctx context.Context, unit extractor.Unit) (bool, error) {
	if len(unit.ReactiveEffects) == 0 {
		return false, nil
	}

	for _, effect := range unit.ReactiveEffects {
		if len(effect.Dependencies) == 0 {
			return true, nil
		}
	}

	reassigned, err := reassignedIdentifiers(ctx, unit.Source, unit.FilePath)
	if err != nil {
		return false, err
	}
	for _, effect := range unit.ReactiveEffects {
		for _, dep := range effect.Dependencies {
			if reassigned[dep] {
				return true, nil
			}
		}
	}
	return false, nil
}

// everyEffectStable reports whether every reactive effect in unit has a
// cleanup function and a non-empty dependency list, the §4.5 cleanup
// bonus's "every reactive-effect has cleanup and stable deps" test.
func everyEffectStable(unit extractor.Unit) bool {
	if len(unit.ReactiveEffects) == 0 {
		return false
	}
	for _, effect := range unit.ReactiveEffects {
		if !effect.HasCleanup || len(effect.Dependencies) == 0 {
			return false
		}
	}
	return true
}

func reassignedIdentifiers(ctx context.Context, source []byte, filePath string) (map[string]bool, error) {
	lang := languageForScoring(filePath)
	parser := fel.NewParser()
	tree, err := parser.Parse(ctx, source, lang)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	names := make(map[string]bool)
	for _, node := range fel.FindNodes(tree.Root, assignmentNodeTypes) {
		target := assignmentTarget(node)
		if target != nil && target.Type() == "identifier" {
			names[fel.NodeText(target, source)] = true
		}
	}
	return names, nil
}

func assignmentTarget(node *sitter.Node) *sitter.Node {
	if node.Type() == "update_expression" {
		return node.ChildByFieldName("argument")
	}
	return node.ChildByFieldName("left")
}

func languageForScoring(filePath string) fel.Language {
	for i := len(filePath) - 1; i >= 0; i-- {
		if filePath[i] == '.' {
			if lang, ok := fel.LanguageFromExtension(filePath[i:]); ok {
				return lang
			}
			break
		}
	}
	return fel.LangTS
}
