package main

import (
	"bufio"
	"os"
	"strings"
)

// Linker walks a root Program's object and module sections recursively,
// loading each referenced unit from the filesystem, merging exported
// object labels into the root's label table, and building Module
// descriptors (spec.md §4.D). Grounded on the teacher's import_resolver.go
// for the overall "resolve, load, recurse" shape, simplified to MXVM's
// narrower unit model (no git/pkg-config/version resolution).
type Linker struct {
	paths    SearchPaths
	objCache map[string]*Program // canonical path -> loaded object
	loading  map[string]bool     // canonical paths currently being loaded (cycle guard)
}

// NewLinker creates a Linker that resolves objects and modules via paths.
func NewLinker(paths SearchPaths) *Linker {
	return &Linker{
		paths:    paths,
		objCache: make(map[string]*Program),
		loading:  make(map[string]bool),
	}
}

// LoadFile parses the root unit at path and recursively links everything
// it imports, returning the fully linked root Program.
func (lk *Linker) LoadFile(path string) (*Program, *MXVMError) {
	root, err := lk.parseUnitFile(path)
	if err != nil {
		return nil, err
	}
	if err := lk.resolveChildren(root); err != nil {
		return nil, err
	}
	return root, nil
}

// LoadSource parses in-memory root unit text (attributed to file for
// diagnostics) and links it, resolving any objects/modules it imports from
// the filesystem via lk.paths. Used by tests that construct IR inline.
func (lk *Linker) LoadSource(file string, src []byte) (*Program, *MXVMError) {
	p, err := NewParser(file, src)
	if err != nil {
		return nil, err
	}
	unit, err := p.ParseUnit()
	if err != nil {
		return nil, err
	}
	root, err := buildProgram(unit, file)
	if err != nil {
		return nil, err
	}
	if err := lk.resolveChildren(root); err != nil {
		return nil, err
	}
	return root, nil
}

func (lk *Linker) parseUnitFile(path string) (*Program, *MXVMError) {
	src, ioErr := os.ReadFile(path)
	if ioErr != nil {
		return nil, errIO(SourceLocation{File: path}, "cannot read %q: %v", path, ioErr)
	}
	p, err := NewParser(path, src)
	if err != nil {
		return nil, err
	}
	unit, err := p.ParseUnit()
	if err != nil {
		return nil, err
	}
	return buildProgram(unit, path)
}

// resolveChildren replaces each name-only stub in prog.Objects/prog.Modules
// with the fully loaded unit, recursing into every loaded object in turn.
func (lk *Linker) resolveChildren(prog *Program) *MXVMError {
	resolvedObjects := make([]*Program, 0, len(prog.Objects))
	for _, stub := range prog.Objects {
		child, err := lk.loadObjectByName(stub.Name)
		if err != nil {
			return err
		}
		if child != nil {
			resolvedObjects = append(resolvedObjects, child)
		}
	}
	prog.Objects = resolvedObjects

	resolvedModules := make([]*Module, 0, len(prog.Modules))
	for _, stub := range prog.Modules {
		mod, err := lk.loadModuleByName(stub.Name)
		if err != nil {
			return err
		}
		resolvedModules = append(resolvedModules, mod)
	}
	prog.Modules = resolvedModules

	lk.mergeExportedLabels(prog)
	return nil
}

// loadObjectByName resolves name to a `.mxvm` file, loads and caches it by
// canonical path, and recurses into its own imports. A name already on the
// loading stack (an import cycle) is a silent no-op, per spec.md §4.B.
func (lk *Linker) loadObjectByName(name string) (*Program, *MXVMError) {
	path, err := lk.paths.ResolveObject(name)
	if err != nil {
		return nil, err
	}
	canon, cErr := canonicalPath(path)
	if cErr != nil {
		return nil, errIO(SourceLocation{File: path}, "%v", cErr)
	}
	if cached, ok := lk.objCache[canon]; ok {
		return cached, nil
	}
	if lk.loading[canon] {
		return nil, nil // cycle: silent no-op
	}
	lk.loading[canon] = true
	prog, err := lk.parseUnitFile(path)
	if err != nil {
		delete(lk.loading, canon)
		return nil, err
	}
	lk.objCache[canon] = prog
	if err := lk.resolveChildren(prog); err != nil {
		delete(lk.loading, canon)
		return nil, err
	}
	delete(lk.loading, canon)
	return prog, nil
}

// loadModuleByName resolves a module's descriptor and shared library and
// parses the descriptor's exported function list.
func (lk *Linker) loadModuleByName(name string) (*Module, *MXVMError) {
	descPath, libPath, err := lk.paths.ResolveModule(name)
	if err != nil {
		return nil, err
	}
	funcs, err := parseModuleDescriptor(descPath, name)
	if err != nil {
		return nil, err
	}
	return &Module{ID: name, Name: name, LibPath: libPath, Functions: funcs}, nil
}

// parseModuleDescriptor reads a module's `<name>.mxvm` descriptor, a flat
// list of exported function names (one `function NAME` per line, blank
// lines and `//` comments ignored). This is a smaller grammar than the
// program/object unit grammar, grounded on
// original_source/include/mxvm/parser.hpp's ModuleParser, which scans its
// own descriptor format distinct from the main unit grammar.
func parseModuleDescriptor(path, moduleName string) ([]ExternalFunction, *MXVMError) {
	f, ioErr := os.Open(path)
	if ioErr != nil {
		return nil, errIO(SourceLocation{File: path}, "cannot read module descriptor %q: %v", path, ioErr)
	}
	defer f.Close()

	var funcs []ExternalFunction
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "//") {
			continue
		}
		text = strings.TrimSuffix(text, ",")
		fields := strings.Fields(text)
		name := fields[0]
		if name == "function" && len(fields) > 1 {
			name = fields[1]
		} else if name == "module" || name == "{" || name == "}" {
			continue
		}
		funcs = append(funcs, ExternalFunction{Name: name, ContainingModule: moduleName, IsModule: true})
	}
	return funcs, nil
}

// mergeExportedLabels appends every label reachable through prog's directly
// imported objects into prog's own label table: under its qualified name
// "<object>.<label>" always, and under the bare name when no other
// imported object already claims it (spec.md §4.D: "objects export all of
// their labels; the IR has no separate visibility marker"). Because each
// object's own Labels map was already merged with its own imports by the
// time it finished loading (resolveChildren runs this same step on every
// unit it loads), a single non-recursive pass over prog.Objects propagates
// the whole transitive closure. A bare name claimed by two or more
// directly-imported objects is recorded as ambiguous instead of merged.
func (lk *Linker) mergeExportedLabels(prog *Program) {
	claimedBy := make(map[string]string)
	for _, obj := range prog.Objects {
		for label, info := range obj.Labels {
			qualified := obj.Name + "." + label
			prog.Labels[qualified] = &LabelInfo{Address: info.Address, Exported: true, Owner: info.Owner}

			if owner, taken := claimedBy[label]; taken {
				if owner != obj.Name {
					prog.AmbiguousLabels[label] = true
					delete(prog.Labels, label)
				}
				continue
			}
			claimedBy[label] = obj.Name
			if !prog.AmbiguousLabels[label] {
				prog.Labels[label] = &LabelInfo{Address: info.Address, Exported: true, Owner: info.Owner}
			}
		}
	}
}
