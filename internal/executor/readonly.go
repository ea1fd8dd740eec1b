package executor

import (
	"strings"
	"unicode"
)

// readKeywords are the only statement-leading tokens accepted from
// ad-hoc callers.
var readKeywords = map[string]struct{}{
	"select":    {},
	"with":      {},
	"describe":  {},
	"show":      {},
	"explain":   {},
	"summarize": {},
}

// writeKeywords cause outright rejection anywhere in an ad-hoc
// statement, at any capitalization or nesting depth. The dataset view
// is read-only for the lifetime of the process; there is no
// transaction or rollback concept here.
var writeKeywords = map[string]struct{}{
	"insert": {}, "update": {}, "delete": {}, "merge": {},
	"create": {}, "drop": {}, "alter": {}, "truncate": {},
	"attach": {}, "detach": {}, "copy": {}, "export": {}, "import": {},
	"install": {}, "load": {}, "call": {}, "pragma": {}, "set": {},
	"grant": {}, "revoke": {}, "vacuum": {}, "checkpoint": {},
}

// CheckReadOnly enforces the allow-list for ad-hoc statements before
// they reach the engine.
func CheckReadOnly(sqlText string) error {
	tokens := tokenize(sqlText)
	if len(tokens) == 0 {
		return &UnsafeQueryError{Keyword: ""}
	}
	if _, ok := readKeywords[tokens[0]]; !ok {
		return &UnsafeQueryError{Keyword: tokens[0]}
	}
	for _, token := range tokens[1:] {
		if _, ok := writeKeywords[token]; ok {
			return &UnsafeQueryError{Keyword: token}
		}
	}
	return nil
}

// tokenize lowercases and splits a statement into word tokens. String
// literals are not special-cased on purpose: a write keyword smuggled
// inside a literal still trips the gate, which errs on the side of
// refusal.
func tokenize(sqlText string) []string {
	var tokens []string
	var word strings.Builder
	for _, r := range sqlText {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			word.WriteRune(unicode.ToLower(r))
			continue
		}
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	if word.Len() > 0 {
		tokens = append(tokens, word.String())
	}
	return tokens
}
