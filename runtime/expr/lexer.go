package expr

import (
	"log/slog"
	"os"
	"strings"
)

// ASCII character lookup tables for fast classification
var (
	isWhitespace     [128]bool
	isDigit          [128]bool
	isIdentStart     [128]bool
	isIdentPart      [128]bool
	singleCharTokens [128]TokenType
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isWhitespace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f'
		isDigit[i] = '0' <= ch && ch <= '9'
		isIdentStart[i] = ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch == '_'
		isIdentPart[i] = isIdentStart[i] || isDigit[i]
		singleCharTokens[i] = ILLEGAL
	}

	singleCharTokens['.'] = DOT
	singleCharTokens[','] = COMMA
	singleCharTokens['('] = LPAREN
	singleCharTokens[')'] = RPAREN
	singleCharTokens['['] = LSQUARE
	singleCharTokens[']'] = RSQUARE
	singleCharTokens['+'] = PLUS
	singleCharTokens['-'] = MINUS
	singleCharTokens['*'] = MULTIPLY
	singleCharTokens['/'] = DIVIDE
}

// debugLogger is enabled with SHEETC_DEBUG_EXPR.
var debugLogger = newDebugLogger()

func newDebugLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("SHEETC_DEBUG_EXPR") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// Lexer splits an expression into tokens. Expressions are single-line and
// ASCII outside string literals, so the lexer works on bytes.
type Lexer struct {
	input    string
	position int // offset of ch
	readPos  int // offset after ch
	ch       byte
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	l.position = l.readPos
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEnd() bool { return l.position >= len(l.input) }

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() && l.ch < 128 && isWhitespace[l.ch] {
		l.readChar()
	}
}

// Tokenize returns every token up to and including EOF.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens
		}
	}
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	start := l.position

	if l.atEnd() {
		return Token{Type: EOF, Position: start}
	}

	switch {
	case l.ch == '"':
		return l.lexString(start)
	case l.ch < 128 && isDigit[l.ch], l.ch == '.' && l.peekChar() < 128 && isDigit[l.peekChar()]:
		return l.lexNumber(start)
	case l.ch < 128 && isIdentStart[l.ch]:
		return l.lexIdentifier(start)
	}

	if l.ch < 128 && singleCharTokens[l.ch] != ILLEGAL {
		tok := Token{Type: singleCharTokens[l.ch], Text: string(l.ch), Position: start}
		l.readChar()
		return tok
	}

	debugLogger.Debug("illegal character", "char", string(l.ch), "pos", start)
	tok := Token{Type: ILLEGAL, Text: string(l.ch), Position: start}
	l.readChar()
	return tok
}

// lexIdentifier reads a name. "::" joins namespaced names such as
// "MathematicalTools::abs" or "Platformer::IsFalling".
func (l *Lexer) lexIdentifier(start int) Token {
	for !l.atEnd() {
		switch {
		case l.ch < 128 && isIdentPart[l.ch]:
			l.readChar()
		case l.ch == ':' && l.peekChar() == ':':
			l.readChar()
			l.readChar()
		default:
			return Token{Type: IDENTIFIER, Text: l.input[start:l.position], Position: start}
		}
	}
	return Token{Type: IDENTIFIER, Text: l.input[start:l.position], Position: start}
}

func (l *Lexer) lexNumber(start int) Token {
	seenDot := false
	for !l.atEnd() {
		if l.ch < 128 && isDigit[l.ch] {
			l.readChar()
			continue
		}
		if l.ch == '.' && !seenDot {
			seenDot = true
			l.readChar()
			continue
		}
		break
	}
	return Token{Type: NUMBER, Text: l.input[start:l.position], Position: start}
}

// lexString reads a double-quoted literal. Recognized escapes are \" \\ \n
// and \t; any other backslash is kept as is. An unterminated literal is
// ILLEGAL.
func (l *Lexer) lexString(start int) Token {
	var b strings.Builder
	l.readChar() // opening quote
	for {
		if l.atEnd() {
			return Token{Type: ILLEGAL, Text: l.input[start:], Position: start}
		}
		switch l.ch {
		case '"':
			l.readChar()
			return Token{Type: STRING, Text: b.String(), Position: start}
		case '\\':
			next := l.peekChar()
			switch next {
			case '"', '\\':
				b.WriteByte(next)
				l.readChar()
			case 'n':
				b.WriteByte('\n')
				l.readChar()
			case 't':
				b.WriteByte('\t')
				l.readChar()
			default:
				b.WriteByte('\\')
			}
		default:
			b.WriteByte(l.ch)
		}
		l.readChar()
	}
}
