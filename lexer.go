package main

import "strings"

// Lexer turns MXVM IR source text into a flat token stream (spec.md §4.A).
// Structurally grounded on the teacher's lexer: a byte cursor with
// line/column tracking and a dispatch-by-leading-character NextToken.
type Lexer struct {
	file string
	src  []byte
	pos  int
	line int
	col  int
}

// NewLexer creates a Lexer over src, attributing diagnostics to file.
func NewLexer(file string, src []byte) *Lexer {
	return &Lexer{file: file, src: src, pos: 0, line: 1, col: 1}
}

func (l *Lexer) loc() SourceLocation {
	return SourceLocation{File: l.file, Line: l.line, Column: l.col}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	c := l.peek()
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Tokenize lexes the entire source and returns the flat token sequence,
// terminated by a single EOF token, or the first lex error encountered.
func (l *Lexer) Tokenize() ([]Token, *MXVMError) {
	var toks []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokenEOF {
			return toks, nil
		}
	}
}

// NextToken produces the next token, skipping non-newline whitespace.
func (l *Lexer) NextToken() (Token, *MXVMError) {
	for {
		c := l.peek()
		if c == 0 {
			return Token{Kind: TokenEOF, Line: l.line, Col: l.col}, nil
		}
		if c == '\n' {
			loc := l.loc()
			l.advance()
			return Token{Kind: TokenNewline, Lexeme: "\n", Line: loc.Line, Col: loc.Column}, nil
		}
		if c == ' ' || c == '\t' || c == '\r' {
			l.advance()
			continue
		}
		if c == '/' && l.peekAt(1) == '/' {
			return l.lexComment(), nil
		}
		if c == '"' {
			return l.lexString()
		}
		if isDigit(c) || (c == '-' && isDigit(l.peekAt(1))) || (c == '+' && isDigit(l.peekAt(1))) {
			return l.lexNumber()
		}
		if isIdentStart(c) {
			return l.lexIdent(), nil
		}
		switch c {
		case '{', '}', ',', '=', ':', '(', ')':
			loc := l.loc()
			l.advance()
			return Token{Kind: TokenSym, Lexeme: string(c), Line: loc.Line, Col: loc.Column}, nil
		}
		loc := l.loc()
		l.advance()
		return Token{}, errLex(loc, "unknown character %q", c)
	}
}

func (l *Lexer) lexComment() Token {
	loc := l.loc()
	start := l.pos
	for l.peek() != '\n' && l.peek() != 0 {
		l.advance()
	}
	return Token{Kind: TokenComment, Lexeme: string(l.src[start:l.pos]), Line: loc.Line, Col: loc.Column}
}

// lexIdent reads an identifier. A '.' followed by an identifier start
// continues it, so a qualified label reference such as "util.helper" is a
// single token.
func (l *Lexer) lexIdent() Token {
	loc := l.loc()
	start := l.pos
	for isIdentPart(l.peek()) || (l.peek() == '.' && isIdentStart(l.peekAt(1))) {
		l.advance()
	}
	return Token{Kind: TokenID, Lexeme: string(l.src[start:l.pos]), Line: loc.Line, Col: loc.Column}
}

func (l *Lexer) lexNumber() (Token, *MXVMError) {
	loc := l.loc()
	start := l.pos
	if l.peek() == '-' || l.peek() == '+' {
		l.advance()
	}
	sawDigit := false
	for isDigit(l.peek()) {
		l.advance()
		sawDigit = true
	}
	isFloat := false
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if !sawDigit {
		return Token{}, errLex(loc, "invalid number literal")
	}
	if isIdentStart(l.peek()) {
		return Token{}, errLex(loc, "invalid number literal")
	}
	kind := TokenNum
	if isFloat {
		kind = TokenFloatNum
	}
	return Token{Kind: kind, Lexeme: string(l.src[start:l.pos]), Line: loc.Line, Col: loc.Column}, nil
}

func (l *Lexer) lexString() (Token, *MXVMError) {
	loc := l.loc()
	l.advance() // opening quote
	var sb strings.Builder
	for {
		c := l.peek()
		if c == 0 || c == '\n' {
			return Token{}, errLex(loc, "unterminated string literal")
		}
		if c == '"' {
			l.advance()
			break
		}
		if c == '\\' {
			l.advance()
			esc := l.peek()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				return Token{}, errLex(l.loc(), "invalid escape sequence \\%c", esc)
			}
			l.advance()
			continue
		}
		sb.WriteByte(c)
		l.advance()
	}
	return Token{Kind: TokenStr, Lexeme: sb.String(), Line: loc.Line, Col: loc.Column}, nil
}
