package main

import (
	"reflect"

	"github.com/ebitengine/purego"
)

// ffiResult is the value an invoke call returns, read per spec.md §4.G as
// either an i64 or an f64 depending on the destination variable's type.
type ffiResult struct {
	I int64
	F float64
}

// ffiDescriptor is a call descriptor built on the first invoke of a
// (library, symbol, signature) combination and reused on every later invoke
// of it. It is not built at link time.
type ffiDescriptor struct {
	fn reflect.Value // callable, built via purego.RegisterFunc
}

// FFIBridge dlopens libraries on demand and caches resolved call
// descriptors, grounded on purego's dlopen/RegisterFunc bridge — the only
// pure-Go path to calling arbitrary C ABI functions without cgo.
type FFIBridge struct {
	handles     map[string]uintptr
	descriptors map[string]*ffiDescriptor
}

// NewFFIBridge creates an empty bridge; libraries are opened lazily on
// first invoke.
func NewFFIBridge() *FFIBridge {
	return &FFIBridge{
		handles:     make(map[string]uintptr),
		descriptors: make(map[string]*ffiDescriptor),
	}
}

// CloseAll releases every dlopen'd handle. Called once when the VM exits so
// no library handle outlives the process (spec.md §4.G: "must not leak
// library handles").
func (b *FFIBridge) CloseAll() {
	for path, h := range b.handles {
		purego.Dlclose(h)
		delete(b.handles, path)
	}
}

func (b *FFIBridge) libHandle(path string, loc SourceLocation) (uintptr, *MXVMError) {
	if h, ok := b.handles[path]; ok {
		return h, nil
	}
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, errLibraryNotFound(path, loc)
	}
	b.handles[path] = h
	return h, nil
}

// Call invokes mod's named function with args (already resolved VAR_REF
// operands), building and caching a typed descriptor the first time this
// (library, symbol, argument categories, return category) combination is
// seen (spec.md §4.G: up to 8 int and 8 float arguments).
func (b *FFIBridge) Call(mod *Module, name string, args []*Operand, retFloat bool, loc SourceLocation) (ffiResult, *MXVMError) {
	h, err := b.libHandle(mod.LibPath, loc)
	if err != nil {
		return ffiResult{}, err
	}

	retTag := "i"
	if retFloat {
		retTag = "f"
	}
	key := mod.LibPath + "::" + name + "::" + signatureKey(args) + "::" + retTag
	desc, ok := b.descriptors[key]
	if !ok {
		sym, sErr := purego.Dlsym(h, name)
		if sErr != nil {
			return ffiResult{}, errSymbolNotFound(name, mod.LibPath, loc)
		}
		desc = buildDescriptor(sym, args, retFloat)
		b.descriptors[key] = desc
	}

	in := make([]reflect.Value, len(args))
	intCount, floatCount := 0, 0
	for i, a := range args {
		if effectiveCategory(a) == "float" {
			in[i] = reflect.ValueOf(vmFloatOf(a))
			floatCount++
		} else {
			in[i] = reflect.ValueOf(vmIntOf(a))
			intCount++
		}
	}
	if intCount > 8 || floatCount > 8 {
		return ffiResult{}, newErr(KindOperandArityMismatch, CategoryRuntime, loc, "invoke: at most 8 int and 8 float arguments allowed")
	}

	out := desc.fn.Call(in)
	var res ffiResult
	if len(out) == 1 {
		switch v := out[0].Interface().(type) {
		case int64:
			res.I = v
		case float64:
			res.F = v
		case uintptr:
			res.I = int64(v)
		}
	}
	return res, nil
}

func vmIntOf(op *Operand) int64 {
	v, _ := argInt(op, SourceLocation{})
	return v
}

func vmFloatOf(op *Operand) float64 {
	v, _ := argFloat(op, SourceLocation{})
	return v
}

func signatureKey(args []*Operand) string {
	s := make([]byte, len(args))
	for i, a := range args {
		if effectiveCategory(a) == "float" {
			s[i] = 'f'
		} else {
			s[i] = 'i'
		}
	}
	return string(s)
}

// buildDescriptor constructs a reflect func type matching args' categories,
// registers it against sym via purego.RegisterFunc, and returns a callable
// reflect.Value. The return type defaults to int64; callers reinterpret the
// result per the destination variable's declared type.
func buildDescriptor(sym uintptr, args []*Operand, retFloat bool) *ffiDescriptor {
	in := make([]reflect.Type, len(args))
	for i, a := range args {
		if effectiveCategory(a) == "float" {
			in[i] = reflect.TypeOf(float64(0))
		} else {
			in[i] = reflect.TypeOf(int64(0))
		}
	}
	retType := reflect.TypeOf(int64(0))
	if retFloat {
		retType = reflect.TypeOf(float64(0))
	}
	out := []reflect.Type{retType}
	fnType := reflect.FuncOf(in, out, false)
	fnPtr := reflect.New(fnType)
	purego.RegisterFunc(fnPtr.Interface(), sym)
	return &ffiDescriptor{fn: fnPtr.Elem()}
}
