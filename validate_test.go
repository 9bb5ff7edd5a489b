package main

import "testing"

func TestValidatorResolvesVarRefs(t *testing.T) {
	root := buildRun(t, `
program Resolve {
	section data {
		int a = 1
		int b = 2
	}
	section code {
		add a, b
	}
}
`)
	in := root.Instructions[0]
	if in.Op1.Kind != OperandVarRef || in.Op1.Var != root.Vars["a"] {
		t.Errorf("Op1 not resolved to variable a: %+v", in.Op1)
	}
	if in.Op2.Kind != OperandVarRef || in.Op2.Var != root.Vars["b"] {
		t.Errorf("Op2 not resolved to variable b: %+v", in.Op2)
	}
}

func TestValidatorResolvesLabelRefs(t *testing.T) {
	root := buildRun(t, `
program Resolve {
	section code {
		jmp there
	there:
		ret
	}
}
`)
	in := root.Instructions[0]
	if in.Op1.Kind != OperandLabelRef {
		t.Fatalf("Op1 kind = %v, want LABEL_REF", in.Op1.Kind)
	}
	if in.Op1.ResolvedIndex != 1 {
		t.Errorf("ResolvedIndex = %d, want 1", in.Op1.ResolvedIndex)
	}
	if in.Op1.LabelOwner != root {
		t.Errorf("LabelOwner = %v, want root", in.Op1.LabelOwner)
	}
}

func TestValidatorUndefinedVariable(t *testing.T) {
	lk := NewLinker(SearchPaths{ModulePath: ".", ObjectPath: ".", IncludePath: defaultIncludePath})
	root, err := lk.LoadSource("t.mxvm", []byte(`
program Bad {
	section code {
		exit missing
	}
}
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	verr := NewValidator(20).Validate(root)
	if verr == nil || verr.Kind != KindUndefinedVariable {
		t.Fatalf("got %v, want UndefinedVariable", verr)
	}
}

func TestValidatorTypeMismatchOnArithmetic(t *testing.T) {
	lk := NewLinker(SearchPaths{ModulePath: ".", ObjectPath: ".", IncludePath: defaultIncludePath})
	root, err := lk.LoadSource("t.mxvm", []byte(`
program Bad {
	section data {
		int a = 1
		float f = 1.5
	}
	section code {
		add a, f
	}
}
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	verr := NewValidator(20).Validate(root)
	if verr == nil || verr.Kind != KindTypeMismatch {
		t.Fatalf("got %v, want TypeMismatch", verr)
	}
}

func TestValidatorLoadRequiresPointerOperand(t *testing.T) {
	lk := NewLinker(SearchPaths{ModulePath: ".", ObjectPath: ".", IncludePath: defaultIncludePath})
	root, err := lk.LoadSource("t.mxvm", []byte(`
program Bad {
	section data {
		int a = 0
		int notptr = 0
	}
	section code {
		load a, notptr
	}
}
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	verr := NewValidator(20).Validate(root)
	if verr == nil || verr.Kind != KindTypeMismatch {
		t.Fatalf("got %v, want TypeMismatch", verr)
	}
}

func TestValidatorRejectsWriteToConstVariable(t *testing.T) {
	lk := NewLinker(SearchPaths{ModulePath: ".", ObjectPath: ".", IncludePath: defaultIncludePath})
	root, err := lk.LoadSource("t.mxvm", []byte(`
program Bad {
	section data {
		const int limit = 10
		int x = 1
	}
	section code {
		add limit, x
	}
}
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	verr := NewValidator(20).Validate(root)
	if verr == nil || verr.Kind != KindTypeMismatch {
		t.Fatalf("got %v, want TypeMismatch (write to const)", verr)
	}
}

func TestValidatorAllowsReadingConstVariable(t *testing.T) {
	root := buildRun(t, `
program Good {
	section data {
		const int limit = 10
		int x = 1
	}
	section code {
		add x, limit
	}
}
`)
	if !root.Vars["limit"].IsConst {
		t.Fatal("expected 'limit' to be marked const")
	}
}

func TestValidatorArityMismatch(t *testing.T) {
	lk := NewLinker(SearchPaths{ModulePath: ".", ObjectPath: ".", IncludePath: defaultIncludePath})
	_, err := lk.LoadSource("t.mxvm", []byte(`
program Bad {
	section code {
		add a, b, c
	}
}
`))
	if err == nil || err.Kind != KindOperandArityMismatch {
		t.Fatalf("got %v, want OperandArityMismatch", err)
	}
}
