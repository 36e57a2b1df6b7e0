// Package clones detects duplicated code by fingerprinting raw token streams.
//
// The pipeline is tokenize → k-gram rolling hash → winnowing selection →
// fingerprint grouping → range merge. Winnowing retains the minimum hash in
// each window of w consecutive k-gram hashes (rightmost on ties), which
// guarantees any duplicate span of at least k+w-1 tokens shares a retained
// fingerprint between its copies.
package clones

import (
	"unicode"
)

// Token is one lexical unit of a source file with its 1-based line.
type Token struct {
	Text string
	Line int
}

// multiOps are the multi-character operators recognized as single tokens, so
// `!=` never fingerprints identically to `! =`. Longest match wins.
var multiOps = []string{
	"<<=", ">>=", "...", "===", "!==", "**=", "//=",
	"==", "!=", "<=", ">=", "&&", "||", "->", "=>", "::", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<", ">>", "**", "??",
}

// Tokenize splits source text into a language-agnostic token stream, dropping
// whitespace and comments. Identifiers, numbers, string literals and
// operators each become one token.
func Tokenize(content []byte) []Token {
	src := []rune(string(content))
	var tokens []Token
	line := 1

	i := 0
	for i < len(src) {
		c := src[i]

		switch {
		case c == '\n':
			line++
			i++
		case unicode.IsSpace(c):
			i++

		// line comments
		case c == '/' && i+1 < len(src) && src[i+1] == '/',
			c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}

		// block comment
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			i += 2
			for i < len(src) {
				if src[i] == '\n' {
					line++
				}
				if src[i] == '*' && i+1 < len(src) && src[i+1] == '/' {
					i += 2
					break
				}
				i++
			}

		// string literals become one token including quotes
		case c == '"' || c == '\'' || c == '`':
			start, startLine := i, line
			quote := c
			i++
			for i < len(src) {
				if src[i] == '\\' && i+1 < len(src) {
					i += 2
					continue
				}
				if src[i] == '\n' {
					line++
				}
				if src[i] == quote {
					i++
					break
				}
				i++
			}
			tokens = append(tokens, Token{Text: string(src[start:i]), Line: startLine})

		case unicode.IsLetter(c) || c == '_':
			start := i
			for i < len(src) && (unicode.IsLetter(src[i]) || unicode.IsDigit(src[i]) || src[i] == '_') {
				i++
			}
			tokens = append(tokens, Token{Text: string(src[start:i]), Line: line})

		case unicode.IsDigit(c):
			start := i
			for i < len(src) && (unicode.IsDigit(src[i]) || unicode.IsLetter(src[i]) || src[i] == '.' || src[i] == '_') {
				i++
			}
			tokens = append(tokens, Token{Text: string(src[start:i]), Line: line})

		default:
			if op, n := matchOperator(src[i:]); n > 0 {
				tokens = append(tokens, Token{Text: op, Line: line})
				i += n
			} else {
				tokens = append(tokens, Token{Text: string(c), Line: line})
				i++
			}
		}
	}

	return tokens
}

func matchOperator(src []rune) (string, int) {
	for _, op := range multiOps {
		if len(src) < len(op) {
			continue
		}
		match := true
		for j, r := range op {
			if src[j] != r {
				match = false
				break
			}
		}
		if match {
			return op, len(op)
		}
	}
	return "", 0
}
