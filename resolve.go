package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xyproto/env/v2"
)

// defaultIncludePath is the fallback module search directory (spec.md §6.4).
const defaultIncludePath = "/usr/local/include/mxvm/modules"

// SearchPaths holds the directories consulted when resolving object and
// module names to files, grounded on original_source/include/mxvm/parser.hpp's
// module_path/object_path/include_path fields and adapted from the teacher's
// ResolveImport priority-ordered search (import_resolver.go).
type SearchPaths struct {
	ModulePath  string
	ObjectPath  string
	IncludePath string
}

// NewSearchPathsFromEnv builds SearchPaths from MXVM_MODULE_PATH,
// MXVM_OBJECT_PATH, and MXVM_INCLUDE_PATH, defaulting module_path and
// object_path to "." and include_path to defaultIncludePath, exactly as the
// original implementation does.
func NewSearchPathsFromEnv() SearchPaths {
	return SearchPaths{
		ModulePath:  env.Str("MXVM_MODULE_PATH", "."),
		ObjectPath:  env.Str("MXVM_OBJECT_PATH", "."),
		IncludePath: env.Str("MXVM_INCLUDE_PATH", defaultIncludePath),
	}
}

// ResolveObject finds the `<name>.mxvm` descriptor for an imported object
// unit, searching object_path then include_path (spec.md §6.4).
func (sp SearchPaths) ResolveObject(name string) (string, *MXVMError) {
	for _, dir := range []string{sp.ObjectPath, sp.IncludePath} {
		candidate := filepath.Join(dir, name+".mxvm")
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", newErr(KindIOError, CategoryLink, SourceLocation{}, "object %q not found in object_path=%q or include_path=%q", name, sp.ObjectPath, sp.IncludePath)
}

// ResolveModule finds a module's `<name>.mxvm` descriptor and the
// accompanying `lib<name>.so`, searching module_path then include_path.
func (sp SearchPaths) ResolveModule(name string) (descriptorPath, libPath string, mxErr *MXVMError) {
	for _, dir := range []string{sp.ModulePath, sp.IncludePath} {
		desc := filepath.Join(dir, name+".mxvm")
		lib := filepath.Join(dir, "lib"+name+".so")
		if fileExists(desc) && fileExists(lib) {
			return desc, lib, nil
		}
	}
	return "", "", newErr(KindLibraryNotFound, CategoryLink, SourceLocation{}, "module %q not found in module_path=%q or include_path=%q", name, sp.ModulePath, sp.IncludePath)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// canonicalPath returns an absolute, symlink-resolved form of path for use
// as a load-cycle memoization key (spec.md §4.B: "cycles must be broken by
// remembering units already loaded by canonical path").
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("canonicalize %q: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
