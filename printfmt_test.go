package main

import "testing"

func TestFormatSpecifiers(t *testing.T) {
	got := formatSpecifiers("count=%ld avg=%lf name=%s c=%c literal %%")
	want := "dfsc"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderFormat(t *testing.T) {
	args := []*Operand{
		{Kind: OperandImmInt, IntValue: 42},
		{Kind: OperandImmFloat, FloatValue: 1.5},
		{Kind: OperandImmStr, Text: "hi"},
	}
	out, err := renderFormat("n=%ld f=%lf s=%s\n", args, SourceLocation{})
	if err != nil {
		t.Fatalf("renderFormat: %v", err)
	}
	want := "n=42 f=1.500000 s=hi\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestRenderFormatArityMismatch(t *testing.T) {
	_, err := renderFormat("%ld %ld", []*Operand{{Kind: OperandImmInt, IntValue: 1}}, SourceLocation{})
	if err == nil || err.Kind != KindFormatMismatch {
		t.Fatalf("got %v, want FormatMismatch", err)
	}
}

func TestRenderFormatCategoryMismatch(t *testing.T) {
	_, err := renderFormat("%ld", []*Operand{{Kind: OperandImmStr, Text: "oops"}}, SourceLocation{})
	if err == nil || err.Kind != KindFormatMismatch {
		t.Fatalf("got %v, want FormatMismatch", err)
	}
}

func TestParseIntLoose(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"42", 42, true},
		{"  -7abc", -7, true},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := parseIntLoose(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("parseIntLoose(%q) = (%d, %v), want (%d, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseFloatLoose(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"3.14xyz", 3.14, true},
		{"-2", -2, true},
		{"nope", 0, false},
	}
	for _, c := range cases {
		got, ok := parseFloatLoose(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("parseFloatLoose(%q) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}
