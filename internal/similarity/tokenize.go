// Package similarity normalizes Unit source into token shingles,
// estimates pairwise resemblance with MinHash, and clusters Units that
// exceed the kind-dependent similarity threshold (§4.6).
package similarity

import "regexp"

// tokenPattern matches, in priority order: quoted strings (any of the
// three FEL string delimiters), numeric literals, identifiers, and
// single punctuation/operator characters.
var tokenPattern = regexp.MustCompile(
	`"[^"]*"|'[^']*'|` + "`[^`]*`" +
		`|\b\d+\.?\d*\b` +
		`|\b[a-zA-Z_$][a-zA-Z0-9_$]*\b` +
		`|[{}()\[\];,.:?!<>=+\-*/&|^~%@]`,
)

// keywordAllowlist is preserved verbatim rather than collapsed to
// _VAR: FEL reserved words, common built-ins, and the reactive-effect
// vocabulary (§4.6) — identical tokens across Units with these words
// in the same positions are a genuine similarity signal, not noise.
var keywordAllowlist = buildKeywordAllowlist()

func buildKeywordAllowlist() map[string]bool {
	words := []string{
		"const", "let", "var", "function", "return", "if", "else",
		"for", "while", "do", "switch", "case", "break", "continue",
		"try", "catch", "finally", "throw", "new", "delete", "typeof",
		"instanceof", "in", "of", "class", "extends", "super", "this",
		"import", "export", "default", "from", "async", "await", "yield",
		"true", "false", "null", "undefined", "void",
		// common built-ins
		"console", "log", "error", "warn", "Object", "Array", "Promise",
		"Map", "Set", "JSON", "Math", "String", "Number", "Boolean",
		// reactive-effect vocabulary
		"useEffect", "useLayoutEffect", "useInsertionEffect", "useState",
		"useMemo", "useCallback", "useRef", "useContext",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// Tokenize normalizes source into §4.6's token stream: comments and
// whitespace are implicitly stripped by only matching meaningful
// tokens, string literals become _STR, numeric literals become _NUM,
// and identifiers outside the keyword allowlist become _VAR.
func Tokenize(source []byte) []string {
	matches := tokenPattern.FindAll(source, -1)
	tokens := make([]string, 0, len(matches))
	for _, raw := range matches {
		tokens = append(tokens, normalizeToken(string(raw)))
	}
	return tokens
}

func normalizeToken(tok string) string {
	if len(tok) == 0 {
		return tok
	}
	switch tok[0] {
	case '"', '\'', '`':
		return "_STR"
	}
	if tok[0] >= '0' && tok[0] <= '9' {
		return "_NUM"
	}
	if keywordAllowlist[tok] {
		return tok
	}
	if len(tok) == 1 && !isAlpha(tok[0]) {
		return tok
	}
	return "_VAR"
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
