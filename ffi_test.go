package main

import "testing"

// FFIBridge's actual dlopen/dlsym path needs a real shared library, which
// this environment doesn't provide (TestInterpExternCall in interp_test.go
// exercises that failure path end to end). These tests cover the
// library-independent pieces: the descriptor cache key and the int/float
// argument split invoke relies on to stay within the 8-int/8-float limit.

func TestSignatureKey(t *testing.T) {
	args := []*Operand{
		{Kind: OperandImmInt, IntValue: 1},
		{Kind: OperandImmFloat, FloatValue: 2.5},
		{Kind: OperandImmInt, IntValue: 3},
	}
	if got := signatureKey(args); got != "ifi" {
		t.Errorf("got %q, want %q", got, "ifi")
	}
}

func TestSignatureKeyDistinguishesVariableCategories(t *testing.T) {
	intVar := &Operand{Kind: OperandVarRef, Var: &Variable{Type: TypeInteger}}
	floatVar := &Operand{Kind: OperandVarRef, Var: &Variable{Type: TypeFloat}}
	if got := signatureKey([]*Operand{intVar, floatVar}); got != "if" {
		t.Errorf("got %q, want %q", got, "if")
	}
}

func TestVmIntAndFloatOf(t *testing.T) {
	iv := &Operand{Kind: OperandImmInt, IntValue: 7}
	if got := vmIntOf(iv); got != 7 {
		t.Errorf("vmIntOf = %d, want 7", got)
	}
	fv := &Operand{Kind: OperandImmFloat, FloatValue: 2.25}
	if got := vmFloatOf(fv); got != 2.25 {
		t.Errorf("vmFloatOf = %v, want 2.25", got)
	}
}

func TestFFIBridgeCloseAllIsSafeWhenEmpty(t *testing.T) {
	b := NewFFIBridge()
	b.CloseAll() // must not panic with no handles open
}
