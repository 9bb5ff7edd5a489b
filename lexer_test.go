package main

import "testing"

func TestLexerTokenKinds(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []TokenKind
	}{
		{"ident and sym", "mov x, 5\n", []TokenKind{TokenID, TokenID, TokenSym, TokenNum, TokenNewline, TokenEOF}},
		{"float", "1.5", []TokenKind{TokenFloatNum, TokenEOF}},
		{"negative int", "-12", []TokenKind{TokenNum, TokenEOF}},
		{"string", `"hi\n"`, []TokenKind{TokenStr, TokenEOF}},
		{"comment", "// hello\n", []TokenKind{TokenComment, TokenNewline, TokenEOF}},
		{"braces", "{}(),:=", []TokenKind{TokenSym, TokenSym, TokenSym, TokenSym, TokenSym, TokenSym, TokenSym, TokenEOF}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			toks, err := NewLexer("t", []byte(tc.src)).Tokenize()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(toks) != len(tc.want) {
				t.Fatalf("got %d tokens, want %d: %v", len(toks), len(tc.want), toks)
			}
			for i, k := range tc.want {
				if toks[i].Kind != k {
					t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, k)
				}
			}
		})
	}
}

func TestLexerStringEscapes(t *testing.T) {
	toks, err := NewLexer("t", []byte(`"a\tb\"c"`)).Tokenize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Lexeme != "a\tb\"c" {
		t.Errorf("got %q", toks[0].Lexeme)
	}
}

func TestLexerErrors(t *testing.T) {
	cases := []string{
		`"unterminated`,
		"1.2.3x",
		"#",
	}
	for _, src := range cases {
		if _, err := NewLexer("t", []byte(src)).Tokenize(); err == nil {
			t.Errorf("expected lex error for %q", src)
		}
	}
}
