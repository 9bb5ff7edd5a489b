package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmitIsDeterministic(t *testing.T) {
	root := buildRun(t, `
program P {
	section data {
		int a = 1
		int b = 2
		string fmt = "%ld\n"
	}
	section code {
	start:
		add a, b
		print fmt, a
		jmp start
	}
}
`)
	em := NewEmitter(TargetX86_64Linux)
	first, err := em.Emit(root)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	second, err := em.Emit(root)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if first != second {
		t.Error("Emit produced different output across two runs over the same Program")
	}
}

func TestEmitSectionShape(t *testing.T) {
	root := buildRun(t, `
program P {
	section data {
		int a = 1
	}
	section code {
		ret
	}
}
`)
	out, err := NewEmitter(TargetX86_64Linux).Emit(root)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if !containsInOrder(out, "\t.text\n", "\t.globl main\n", "\t.data\n") {
		t.Errorf("output missing expected section ordering:\n%s", out)
	}
}

func containsInOrder(s string, parts ...string) bool {
	pos := 0
	for _, p := range parts {
		idx := strings.Index(s[pos:], p)
		if idx < 0 {
			return false
		}
		pos += idx + len(p)
	}
	return true
}

func TestEmitArithmeticLowering(t *testing.T) {
	root := buildRun(t, `
program P {
	section data {
		int a = 1
		int b = 2
	}
	section code {
		add a, b
	}
}
`)
	out, err := NewEmitter(TargetX86_64Linux).Emit(root)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if !strings.Contains(out, "addq") {
		t.Errorf("expected an addq instruction in output:\n%s", out)
	}
}

func TestEmitGlobalsExportedObjectLabels(t *testing.T) {
	dir := t.TempDir()
	writeUnit(t, dir, "util", `
object util {
	section code {
	helper:
		ret
	}
}
`)
	lk := NewLinker(SearchPaths{ModulePath: dir, ObjectPath: dir, IncludePath: dir})
	root, err := lk.LoadSource("main.mxvm", []byte(`
program Main {
	section object {
		util
	}
	section code {
		call util.helper
		ret
	}
}
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if verr := NewValidator(20).Validate(root); verr != nil {
		t.Fatalf("validate: %v", verr)
	}
	out, mxErr := NewEmitter(TargetX86_64Linux).Emit(root)
	if mxErr != nil {
		t.Fatalf("emit: %v", mxErr)
	}
	if !strings.Contains(out, "\t.globl util_helper\n") {
		t.Errorf("expected a .globl for the exported object label 'util.helper':\n%s", out)
	}
	if !strings.Contains(out, "util_helper:\n") {
		t.Errorf("expected the util_helper label definition:\n%s", out)
	}
}

func TestEmitExternDeclaresInvokeTargets(t *testing.T) {
	dir := t.TempDir()
	descriptor := "module io\nfunction rand_number\n"
	if err := os.WriteFile(filepath.Join(dir, "io.mxvm"), []byte(descriptor), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "libio.so"), []byte("placeholder"), 0o644); err != nil {
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
	out, mxErr := NewEmitter(TargetX86_64Linux).Emit(root)
	if mxErr != nil {
		t.Fatalf("emit: %v", mxErr)
	}
	if !strings.Contains(out, "\t.extern rand_number\n") {
		t.Errorf("expected a .extern declaration for the invoke target 'rand_number':\n%s", out)
	}
}

func TestEmitLoadCharAvoidsRIPRelativeIndexing(t *testing.T) {
	root := buildRun(t, `
program P {
	section data {
		string s = "abc"
		int idx = 1
	}
	section code {
		load_char idx, s
	}
}
`)
	out, err := NewEmitter(TargetX86_64Linux).Emit(root)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if !strings.Contains(out, "leaq var_s(%rip), %rcx\n") {
		t.Errorf("expected load_char to materialize the string base via leaq:\n%s", out)
	}
	if strings.Contains(out, "(%rip),%rax)") || strings.Contains(out, "(var_s(%rip),%rax)") {
		t.Errorf("load_char must not index a RIP-relative operand directly:\n%s", out)
	}
}

func TestEmitJumpLowering(t *testing.T) {
	root := buildRun(t, `
program P {
	section code {
	start:
		jmp start
	}
}
`)
	out, err := NewEmitter(TargetX86_64Linux).Emit(root)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if !strings.Contains(out, "jmp start\n") {
		t.Errorf("expected 'jmp start' in output:\n%s", out)
	}
	if !strings.Contains(out, "start:\n") {
		t.Errorf("expected a 'start:' label in output:\n%s", out)
	}
}
