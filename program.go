package main

// OperandKind tags how an operand's text should be interpreted (spec.md §3).
type OperandKind int

const (
	OperandImmInt OperandKind = iota
	OperandImmFloat
	OperandImmStr
	OperandVarRef
	OperandLabelRef
	OperandExternRef
)

func (k OperandKind) String() string {
	switch k {
	case OperandImmInt:
		return "IMMEDIATE_INT"
	case OperandImmFloat:
		return "IMMEDIATE_FLOAT"
	case OperandImmStr:
		return "IMMEDIATE_STR"
	case OperandVarRef:
		return "VAR_REF"
	case OperandLabelRef:
		return "LABEL_REF"
	case OperandExternRef:
		return "EXTERN_REF"
	default:
		return "?"
	}
}

// Operand is a validated operand: text plus its resolved index, filled in by
// the Validator (spec.md §3). For LABEL_REF, ResolvedIndex is the target
// instruction address; for VAR_REF it is the slot in the owning Program's
// variable table.
type Operand struct {
	Text          string
	Kind          OperandKind
	ResolvedIndex uint64
	HasResolved   bool

	IntValue   int64
	FloatValue float64

	// Var is the resolved variable for VAR_REF/EXTERN_REF operands.
	Var *Variable
	// LabelOwner is the Program whose instruction array ResolvedIndex
	// indexes into, for LABEL_REF operands (jmp/call may target a label
	// exported by an imported object, whose instructions live in a
	// different Program than the jump instruction itself).
	LabelOwner *Program
	// ExternFunc is the resolved function for an invoke symbol operand.
	ExternFunc *ExternalFunction
	ExternMod  *Module
}

// Instruction is one decoded, validated instruction (spec.md §3).
type Instruction struct {
	Op         Opcode
	Op1        *Operand
	Op2        *Operand
	Op3        *Operand
	Extra      []*Operand
	SourceLine int

	// Owner is the Program whose data section this instruction's VAR_REF
	// operands resolve against (spec.md §3: "every VAR_REF names a key of
	// vars of the containing program"). Set when the instruction is built.
	Owner *Program
}

// allOperands returns every non-nil operand slot in order, used by the
// validator and by code that must visit every VAR_REF/LABEL_REF.
func (in *Instruction) allOperands() []*Operand {
	var ops []*Operand
	if in.Op1 != nil {
		ops = append(ops, in.Op1)
	}
	if in.Op2 != nil {
		ops = append(ops, in.Op2)
	}
	if in.Op3 != nil {
		ops = append(ops, in.Op3)
	}
	ops = append(ops, in.Extra...)
	return ops
}

// LabelInfo records an instruction address and whether it is visible to
// importing units (spec.md §3, §4.D).
type LabelInfo struct {
	Address  uint64
	Exported bool
	// Owner is the Program whose Instructions slice Address indexes into.
	Owner *Program
}

// ExternalFunction describes one function a module descriptor makes
// available, grounded on original_source/include/mxvm/parser.hpp's
// ExternalFunction{name, mod, module} triple.
type ExternalFunction struct {
	Name            string
	ContainingModule string
	IsModule        bool
}

// Module is the metadata of a dynamic library from which named functions
// may be invoked (spec.md §3).
type Module struct {
	ID        string
	Name      string
	LibPath   string
	Functions []ExternalFunction
}

// ExternRef records one cross-unit symbol the linker must resolve
// (spec.md §4.D): a VAR_REF whose variable has type EXTERN, or an invoke
// target naming a module function.
type ExternRef struct {
	SourceName string
	SymbolName string
	IsModule   bool
}

// Program is a linked or linkable translation unit (spec.md §3). The root
// Program produced by the linker owns the full image; nested Programs in
// Objects and Modules in Modules are children reached through the label
// names (qualified, and bare where unambiguous) that the linker merges into
// the importer's label table, per the "shared-nothing child programs"
// design (spec.md Design Notes, §9).
type Program struct {
	Name         string
	IsObject     bool
	Instructions []*Instruction
	Labels       map[string]*LabelInfo
	Vars         map[string]*Variable
	VarOrder     []string // stable iteration order, required by the emitter (spec.md §4.F.5)
	Objects      []*Program
	Modules      []*Module
	Externs      []ExternRef

	// AmbiguousLabels holds bare label names that were exported by two or
	// more imported objects; a reference to one of these names is an
	// AmbiguousSymbol error rather than UndefinedLabel (spec.md §4.D).
	AmbiguousLabels map[string]bool

	// SourceFile is the file this unit was parsed from, for diagnostics.
	SourceFile string
}

// NewProgram creates an empty Program shell for name.
func NewProgram(name string, isObject bool, sourceFile string) *Program {
	return &Program{
		Name:            name,
		IsObject:        isObject,
		Labels:          make(map[string]*LabelInfo),
		Vars:            make(map[string]*Variable),
		AmbiguousLabels: make(map[string]bool),
		SourceFile:      sourceFile,
	}
}

func (p *Program) declareVar(v *Variable) {
	if _, exists := p.Vars[v.Name]; !exists {
		p.VarOrder = append(p.VarOrder, v.Name)
	}
	p.Vars[v.Name] = v
}

func (p *Program) declareLabel(name string, addr uint64, exported bool) {
	p.Labels[name] = &LabelInfo{Address: addr, Exported: exported, Owner: p}
}
