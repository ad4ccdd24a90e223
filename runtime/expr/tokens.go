package expr

import "fmt"

// TokenType represents lexical tokens of the expression language
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENTIFIER // Score, MyObject, MathematicalTools::abs
	NUMBER     // 1, 0.5, .5
	STRING     // "text"

	// Punctuation
	DOT     // .
	COMMA   // ,
	LPAREN  // (
	RPAREN  // )
	LSQUARE // [
	RSQUARE // ]

	// Arithmetic operators
	PLUS     // +
	MINUS    // -
	MULTIPLY // *
	DIVIDE   // /
)

var tokenNames = map[TokenType]string{
	EOF:        "EOF",
	ILLEGAL:    "ILLEGAL",
	IDENTIFIER: "IDENTIFIER",
	NUMBER:     "NUMBER",
	STRING:     "STRING",
	DOT:        "DOT",
	COMMA:      "COMMA",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	LSQUARE:    "LSQUARE",
	RSQUARE:    "RSQUARE",
	PLUS:       "PLUS",
	MINUS:      "MINUS",
	MULTIPLY:   "MULTIPLY",
	DIVIDE:     "DIVIDE",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a lexical token with its byte offset in the input.
// For STRING tokens Text holds the unescaped content.
type Token struct {
	Type     TokenType
	Text     string
	Position int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Type, t.Text, t.Position)
}
