package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInterpArithmetic(t *testing.T) {
	root := buildRun(t, `
program Arith {
	section data {
		int a = 2
		int b = 3
		string fmt = "%ld\n"
	}
	section code {
		add a, b
		print fmt, a
		exit a
	}
}
`)
	vm := NewVM(root)
	code, out := runCapturingStdout(t, vm)
	if code != 5 {
		t.Errorf("exit code = %d, want 5", code)
	}
	if out != "5\n" {
		t.Errorf("stdout = %q, want %q", out, "5\n")
	}
}

func TestInterpLoop(t *testing.T) {
	root := buildRun(t, `
program Loop {
	section data {
		int i = 1
		int n = 5
		int one = 1
		string fmt = "%ld\n"
	}
	section code {
	loop:
		cmp i, n
		jg done
		print fmt, i
		add i, one
		jmp loop
	done:
		exit i
	}
}
`)
	vm := NewVM(root)
	code, out := runCapturingStdout(t, vm)
	if out != "1\n2\n3\n4\n5\n" {
		t.Errorf("stdout = %q, want 1..5", out)
	}
	if code != 6 {
		t.Errorf("exit code = %d, want 6", code)
	}
}

func TestInterpDivideByZero(t *testing.T) {
	root := buildRun(t, `
program DivZero {
	section data {
		int a = 10
		int z = 0
	}
	section code {
		div a, z
		exit a
	}
}
`)
	vm := NewVM(root)
	_, err := vm.Run()
	if err == nil {
		t.Fatal("expected a divide-by-zero error")
	}
	if err.Kind != KindDivideByZero {
		t.Errorf("kind = %v, want DivideByZero", err.Kind)
	}
	if got := reportAndExitCode(err); got != 3 {
		t.Errorf("exit code = %d, want 3", got)
	}
}

func TestInterpStringTruncationSetsZeroFlag(t *testing.T) {
	root := buildRun(t, `
program Trunc {
	section data {
		string buf = "abc"
		string big = "abcdefgh"
		int zero = 0
	}
	section code {
		mov buf, big
		exit zero
	}
}
`)
	vm := NewVM(root)
	code, err := vm.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !vm.zeroFlag {
		t.Error("expected zeroFlag set after truncating mov")
	}
	if got := string(root.Vars["buf"].StrValue); got != "abc" {
		t.Errorf("buf = %q, want %q", got, "abc")
	}
}

func TestInterpUnresolvedLabelIsLinkError(t *testing.T) {
	lk := NewLinker(SearchPaths{ModulePath: ".", ObjectPath: ".", IncludePath: defaultIncludePath})
	root, err := lk.LoadSource("bad.mxvm", []byte(`
program Bad {
	section code {
		jmp nowhere
	}
}
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	verr := NewValidator(20).Validate(root)
	if verr == nil {
		t.Fatal("expected an undefined-label error")
	}
	if verr.Kind != KindUndefinedLabel {
		t.Errorf("kind = %v, want UndefinedLabel", verr.Kind)
	}
	if got := reportAndExitCode(verr); got != 2 {
		t.Errorf("exit code = %d, want 2", got)
	}
}

// TestInterpExternCall exercises invoke's module-resolution and FFI call
// path end to end. There is no real shared library available in this
// environment, so libio.so is a placeholder file rather than a valid ELF
// image: dlopen is expected to fail, and the test only asserts that the
// failure surfaces as a runtime error mapped to exit code 3, not that
// rand_number actually returns a value in [0,9] (spec.md §8's concrete
// scenario requires a real native library to assert that).
func TestInterpExternCall(t *testing.T) {
	dir := t.TempDir()
	descriptor := "module io\nfunction rand_number\n"
	if err := os.WriteFile(filepath.Join(dir, "io.mxvm"), []byte(descriptor), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "libio.so"), []byte("not a real shared object"), 0o644); err != nil {
		t.Fatalf("write stub library: %v", err)
	}

	lk := NewLinker(SearchPaths{ModulePath: dir, ObjectPath: dir, IncludePath: dir})
	root, err := lk.LoadSource("calls_io.mxvm", []byte(`
program CallsIO {
	section module {
		io
	}
	section data {
		int result = 0
	}
	section code {
		invoke rand_number, result
		exit result
	}
}
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if verr := NewValidator(20).Validate(root); verr != nil {
		t.Fatalf("validate: %v", verr)
	}

	vm := NewVM(root)
	_, runErr := vm.Run()
	if runErr == nil {
		t.Fatal("expected the dlopen of a non-library file to fail")
	}
	if got := reportAndExitCode(runErr); got != 3 {
		t.Errorf("exit code = %d, want 3", got)
	}
}
