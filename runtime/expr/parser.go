package expr

import (
	"fmt"
	"strings"

	"github.com/opal-lang/sheetc/core/variable"
)

// ParseError reports malformed expression text.
type ParseError struct {
	Input    string
	Position int
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed expression %q at offset %d: %s", e.Input, e.Position, e.Message)
}

// MaxDepth bounds the nesting of parentheses, brackets, calls and unary
// operators in one expression.
const MaxDepth = 1000

type parser struct {
	input  string
	tokens []Token
	pos    int
	depth  int
	err    *ParseError
}

// Parse parses an expression. Blank input is the empty string literal, which
// reads as 0 in number context. On error the returned node is a *Bad covering
// the whole input, so callers can still evaluate it.
func Parse(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return &StringLit{}, nil
	}

	p := &parser{input: input, tokens: NewLexer(input).Tokenize()}
	n := p.parseExpression()
	if p.err == nil && p.peek().Type != EOF {
		p.fail(p.peek(), "unexpected %s", describe(p.peek()))
	}
	if p.err != nil {
		debugLogger.Debug("parse failed", "input", input, "error", p.err.Message)
		return &Bad{Text: input}, p.err
	}
	return n, nil
}

// ParseVariable parses a parameter naming a variable, such as
// Player.Stats["hp"] or MyVariable[MyObject.Index].
func ParseVariable(input string) (*VarRef, error) {
	n, err := Parse(input)
	if err != nil {
		return nil, err
	}
	ref, ok := n.(*VarRef)
	if !ok {
		return nil, &ParseError{Input: input, Position: n.Pos(), Message: "expected a variable name"}
	}
	return ref, nil
}

func (p *parser) peek() Token { return p.tokens[p.pos] }

func (p *parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+offset]
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

// fail records the first error only.
func (p *parser) fail(at Token, format string, args ...any) {
	if p.err != nil {
		return
	}
	p.err = &ParseError{Input: p.input, Position: at.Position, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(tt TokenType) (Token, bool) {
	tok := p.peek()
	if tok.Type != tt {
		p.fail(tok, "expected %s, got %s", tt, describe(tok))
		return tok, false
	}
	return p.next(), true
}

// expression := term (("+" | "-") term)*
func (p *parser) parseExpression() Node {
	left := p.parseTerm()
	for p.err == nil && (p.peek().Type == PLUS || p.peek().Type == MINUS) {
		op := p.next()
		right := p.parseTerm()
		left = &Binary{Op: op.Type, Left: left, Right: right, Position: op.Position}
	}
	return left
}

// term := unary (("*" | "/") unary)*
func (p *parser) parseTerm() Node {
	left := p.parseUnary()
	for p.err == nil && (p.peek().Type == MULTIPLY || p.peek().Type == DIVIDE) {
		op := p.next()
		right := p.parseUnary()
		left = &Binary{Op: op.Type, Left: left, Right: right, Position: op.Position}
	}
	return left
}

// unary := ("-" | "+") unary | primary
func (p *parser) parseUnary() Node {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxDepth {
		tok := p.peek()
		p.fail(tok, "expression nested deeper than %d levels", MaxDepth)
		return &Bad{Text: tok.Text, Position: tok.Position}
	}
	if tok := p.peek(); tok.Type == MINUS || tok.Type == PLUS {
		p.next()
		operand := p.parseUnary()
		if tok.Type == PLUS {
			return operand
		}
		return &Unary{Op: MINUS, Operand: operand, Position: tok.Position}
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() Node {
	tok := p.peek()
	switch tok.Type {
	case NUMBER:
		p.next()
		return &NumberLit{Value: variable.ParseNumber(tok.Text), Text: tok.Text, Position: tok.Position}
	case STRING:
		p.next()
		return &StringLit{Value: tok.Text, Position: tok.Position}
	case LPAREN:
		p.next()
		n := p.parseExpression()
		p.expect(RPAREN)
		return n
	case IDENTIFIER:
		return p.parseIdentifier()
	}
	p.fail(tok, "unexpected %s", describe(tok))
	p.next()
	return &Bad{Text: tok.Text, Position: tok.Position}
}

// parseIdentifier handles Name(args), Object.Name(args) and variable
// references with accessors.
func (p *parser) parseIdentifier() Node {
	name := p.next()

	if p.peek().Type == LPAREN {
		return p.parseCall("", name)
	}
	if p.peek().Type == DOT && p.peekAt(1).Type == IDENTIFIER && p.peekAt(2).Type == LPAREN {
		p.next()
		fn := p.next()
		call := p.parseCall(name.Text, fn)
		call.Position = name.Position
		return call
	}

	ref := &VarRef{Name: name.Text, Position: name.Position}
	for p.err == nil {
		switch p.peek().Type {
		case DOT:
			p.next()
			child, ok := p.expect(IDENTIFIER)
			if !ok {
				return ref
			}
			ref.Accessors = append(ref.Accessors, Accessor{Child: child.Text})
		case LSQUARE:
			p.next()
			index := p.parseExpression()
			p.expect(RSQUARE)
			ref.Accessors = append(ref.Accessors, Accessor{Index: index})
		default:
			return ref
		}
	}
	return ref
}

func (p *parser) parseCall(object string, name Token) *Call {
	call := &Call{Object: object, Name: name.Text, Position: name.Position}
	p.expect(LPAREN)
	if p.peek().Type == RPAREN {
		p.next()
		return call
	}
	for p.err == nil {
		call.Args = append(call.Args, p.parseExpression())
		if p.peek().Type == COMMA {
			p.next()
			continue
		}
		p.expect(RPAREN)
		break
	}
	return call
}

func describe(tok Token) string {
	if tok.Type == EOF {
		return "end of expression"
	}
	return fmt.Sprintf("%s %q", tok.Type, tok.Text)
}
