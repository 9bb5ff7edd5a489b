package main

import (
	"fmt"
	"sort"
	"strings"
)

// Emitter lowers a validated Program into one x86_64 AT&T-syntax assembly
// text file for System V Linux (spec.md §4.F). Grounded on the teacher's
// code-generation passes in spirit only: the teacher emits raw ELF/Mach-O
// machine code directly, MXVM instead emits assembly text handed to an
// external assembler, per spec.md's explicit "single assembly TEXT file,
// not raw machine code" requirement.
type Emitter struct {
	cc  CallingConvention
	csm *CallSiteManager
}

// NewEmitter creates an Emitter targeting target (only x86_64_linux is
// supported; SPEC_FULL.md names no other backend).
func NewEmitter(target Target) *Emitter {
	cc := GetCallingConvention(target)
	return &Emitter{cc: cc, csm: NewCallSiteManager(cc)}
}

// Emit renders root (and every object it transitively loaded) into one
// assembly source text. Output is fully determined by root's VarOrder and
// Instructions order, so re-emitting the same linked Program always
// produces byte-identical text (spec.md §4.F.5).
func (em *Emitter) Emit(root *Program) (string, *MXVMError) {
	var out strings.Builder

	units := em.collectUnits(root)

	out.WriteString("\t.text\n")
	out.WriteString("\t.globl main\n")
	for _, sym := range em.exportedLabelSymbols(units) {
		fmt.Fprintf(&out, "\t.globl %s\n", sym)
	}
	for _, sym := range em.externCallSymbols(units) {
		fmt.Fprintf(&out, "\t.extern %s\n", sym)
	}

	for _, u := range units {
		if err := em.emitCode(&out, u); err != nil {
			return "", err
		}
	}

	out.WriteString("\n\t.data\n")
	for _, u := range units {
		em.emitData(&out, u)
	}
	return out.String(), nil
}

// collectUnits returns root followed by every object it imports, in the
// stable declaration order recorded by the linker, so output is
// deterministic across runs.
func (em *Emitter) collectUnits(root *Program) []*Program {
	var units []*Program
	seen := make(map[*Program]bool)
	var walk func(p *Program)
	walk = func(p *Program) {
		if seen[p] {
			return
		}
		seen[p] = true
		units = append(units, p)
		for _, o := range p.Objects {
			walk(o)
		}
	}
	walk(root)
	return units
}

// exportedLabelSymbols returns the .globl symbol for every label owned by
// an object unit (spec.md §4.D: "objects export all of their labels"),
// sorted for deterministic output (spec.md §4.F.5).
func (em *Emitter) exportedLabelSymbols(units []*Program) []string {
	var syms []string
	for _, p := range units {
		if !p.IsObject {
			continue
		}
		for name, info := range p.Labels {
			if info.Owner == p {
				syms = append(syms, em.labelSymbol(p, name))
			}
		}
	}
	sort.Strings(syms)
	return syms
}

// externCallSymbols returns the sanitized symbol for every invoke target
// across all units, declared so an external assembler/linker can resolve
// the `call sym@PLT` lowering in emitInvoke (spec.md §4.F.4).
func (em *Emitter) externCallSymbols(units []*Program) []string {
	seen := make(map[string]bool)
	var syms []string
	for _, p := range units {
		for _, in := range p.Instructions {
			if in.Op != OpInvoke || in.Op1 == nil {
				continue
			}
			sym := sanitizeSymbol(in.Op1.Text)
			if !seen[sym] {
				seen[sym] = true
				syms = append(syms, sym)
			}
		}
	}
	sort.Strings(syms)
	return syms
}

// labelSymbol returns the global assembly symbol for a label owned by
// owner: bare for root labels, "<object>_<label>" for an imported object's,
// avoiding symbol collisions across units sharing one text segment. A
// qualified reference ("<object>.<label>") is reduced to its label part
// first, so it yields the same symbol as the label's definition.
func (em *Emitter) labelSymbol(owner *Program, name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if !owner.IsObject {
		return sanitizeSymbol(name)
	}
	return sanitizeSymbol(owner.Name + "_" + name)
}

func (em *Emitter) varSymbol(owner *Program, name string) string {
	prefix := ""
	if owner.IsObject {
		prefix = owner.Name + "_"
	}
	return "var_" + sanitizeSymbol(prefix+name)
}

func sanitizeSymbol(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func (em *Emitter) emitData(out *strings.Builder, p *Program) {
	for _, name := range p.VarOrder {
		v := p.Vars[name]
		sym := em.varSymbol(p, name)
		switch v.Type {
		case TypeInteger, TypePointer:
			fmt.Fprintf(out, "%s:\n\t.quad %d\n", sym, v.IntValue)
		case TypeByte:
			fmt.Fprintf(out, "%s:\n\t.byte %d\n", sym, v.IntValue&0xff)
		case TypeFloat:
			fmt.Fprintf(out, "%s:\n\t.double %g\n", sym, v.FloatValue)
		case TypeString:
			if v.HasBuffer {
				fmt.Fprintf(out, "%s:\n\t.zero %d\n", sym, v.BufferSize)
			} else {
				fmt.Fprintf(out, "%s:\n\t.asciz %q\n", sym, string(v.StrValue))
			}
		case TypeArray:
			fmt.Fprintf(out, "%s:\n\t.zero %d\n", sym, v.BufferSize)
		case TypeExtern:
			fmt.Fprintf(out, "\t.extern %s\n", sanitizeSymbol(name))
		}
	}
}

func (em *Emitter) emitCode(out *strings.Builder, p *Program) *MXVMError {
	labelAt := make(map[uint64][]string)
	for name, info := range p.Labels {
		if info.Owner == p {
			labelAt[info.Address] = append(labelAt[info.Address], name)
		}
	}
	for _, names := range labelAt {
		sort.Strings(names)
	}
	for i, in := range p.Instructions {
		for _, name := range labelAt[uint64(i)] {
			fmt.Fprintf(out, "%s:\n", em.labelSymbol(p, name))
		}
		if err := em.emitInstr(out, in); err != nil {
			return err
		}
	}
	return nil
}

func (em *Emitter) operandRef(op *Operand, owner *Program) string {
	if op == nil {
		return ""
	}
	switch op.Kind {
	case OperandImmInt:
		return fmt.Sprintf("$%d", op.IntValue)
	case OperandImmFloat:
		return fmt.Sprintf("$%g", op.FloatValue)
	case OperandVarRef, OperandExternRef:
		if op.Var == nil {
			// invoke's symbol operand names a module function, not a variable.
			return sanitizeSymbol(op.Text)
		}
		return em.varSymbol(owner, op.Var.Name) + "(%rip)"
	default:
		return op.Text
	}
}

func (em *Emitter) emitInstr(out *strings.Builder, in *Instruction) *MXVMError {
	owner := in.Owner
	dst := em.operandRef(in.Op1, owner)
	src := em.operandRef(in.Op2, owner)
	isFloat := in.Op1 != nil && in.Op1.Var != nil && in.Op1.Var.Type == TypeFloat

	switch in.Op {
	case OpMov:
		if isFloat {
			fmt.Fprintf(out, "\tmovsd %s, %%xmm0\n\tmovsd %%xmm0, %s\n", src, dst)
		} else {
			fmt.Fprintf(out, "\tmovq %s, %%rax\n\tmovq %%rax, %s\n", src, dst)
		}
	case OpLoad:
		fmt.Fprintf(out, "\tmovq %s, %%rax\n\tmovq (%%rax), %%rbx\n\tmovq %%rbx, %s\n", src, dst)
	case OpStore:
		fmt.Fprintf(out, "\tmovq %s, %%rax\n\tmovq %s, %%rbx\n\tmovq %%rbx, (%%rax)\n", src, dst)
	case OpAdd, OpSub, OpMul, OpDiv:
		em.emitArith(out, in, dst, src, isFloat)
	case OpAnd:
		fmt.Fprintf(out, "\tmovq %s, %%rax\n\tandq %s, %%rax\n\tmovq %%rax, %s\n", dst, src, dst)
	case OpOr:
		fmt.Fprintf(out, "\tmovq %s, %%rax\n\torq %s, %%rax\n\tmovq %%rax, %s\n", dst, src, dst)
	case OpXor:
		fmt.Fprintf(out, "\tmovq %s, %%rax\n\txorq %s, %%rax\n\tmovq %%rax, %s\n", dst, src, dst)
	case OpNot:
		fmt.Fprintf(out, "\tmovq %s, %%rax\n\tnotq %%rax\n\tmovq %%rax, %s\n", dst, dst)
	case OpCmp:
		if isFloat {
			fmt.Fprintf(out, "\tmovsd %s, %%xmm0\n\tucomisd %s, %%xmm0\n", dst, src)
		} else {
			fmt.Fprintf(out, "\tmovq %s, %%rax\n\tcmpq %s, %%rax\n", dst, src)
		}
	case OpJmp:
		fmt.Fprintf(out, "\tjmp %s\n", em.labelSymbol(in.Op1.LabelOwner, in.Op1.Text))
	case OpJe, OpJz:
		fmt.Fprintf(out, "\tje %s\n", em.labelSymbol(in.Op1.LabelOwner, in.Op1.Text))
	case OpJne, OpJnz:
		fmt.Fprintf(out, "\tjne %s\n", em.labelSymbol(in.Op1.LabelOwner, in.Op1.Text))
	case OpJl:
		fmt.Fprintf(out, "\tjl %s\n", em.labelSymbol(in.Op1.LabelOwner, in.Op1.Text))
	case OpJle:
		fmt.Fprintf(out, "\tjle %s\n", em.labelSymbol(in.Op1.LabelOwner, in.Op1.Text))
	case OpJg:
		fmt.Fprintf(out, "\tjg %s\n", em.labelSymbol(in.Op1.LabelOwner, in.Op1.Text))
	case OpJge:
		fmt.Fprintf(out, "\tjge %s\n", em.labelSymbol(in.Op1.LabelOwner, in.Op1.Text))
	case OpJa:
		fmt.Fprintf(out, "\tja %s\n", em.labelSymbol(in.Op1.LabelOwner, in.Op1.Text))
	case OpJb:
		fmt.Fprintf(out, "\tjb %s\n", em.labelSymbol(in.Op1.LabelOwner, in.Op1.Text))
	case OpCall:
		fmt.Fprintf(out, "\tcall %s\n", em.labelSymbol(in.Op1.LabelOwner, in.Op1.Text))
	case OpRet:
		out.WriteString("\tret\n")
	case OpInvoke:
		em.emitInvoke(out, in)
	case OpPrint:
		fmt.Fprintf(out, "\tleaq %s, %%rdi\n\tcall mxvm_print@PLT\n", dst)
	case OpGetline:
		fmt.Fprintf(out, "\tleaq %s, %%rdi\n\tcall mxvm_getline@PLT\n", dst)
	case OpToInt:
		fmt.Fprintf(out, "\tleaq %s, %%rdi\n\tcall mxvm_to_int@PLT\n\tmovq %%rax, %s\n", src, dst)
	case OpToFloat:
		fmt.Fprintf(out, "\tleaq %s, %%rdi\n\tcall mxvm_to_float@PLT\n\tmovsd %%xmm0, %s\n", src, dst)
	case OpLoadChar:
		// src is a RIP-relative symbol; GAS rejects an index register on a
		// RIP-relative operand, so the base address is materialized into a
		// scratch register first and indexed off that instead.
		fmt.Fprintf(out, "\tmovq %s, %%rax\n\tleaq %s, %%rcx\n\tmovzbq (%%rcx,%%rax), %%rbx\n\tmovq %%rbx, %s\n", dst, src, dst)
	case OpExit:
		fmt.Fprintf(out, "\tmovq %s, %%rdi\n\tmovq $60, %%rax\n\tsyscall\n", dst)
	default:
		return errInternal("emitter: unhandled opcode %s", in.Op)
	}
	return nil
}

func (em *Emitter) emitArith(out *strings.Builder, in *Instruction, dst, src string, isFloat bool) {
	if isFloat {
		op := map[Opcode]string{OpAdd: "addsd", OpSub: "subsd", OpMul: "mulsd", OpDiv: "divsd"}[in.Op]
		fmt.Fprintf(out, "\tmovsd %s, %%xmm0\n\t%s %s, %%xmm0\n\tmovsd %%xmm0, %s\n", dst, op, src, dst)
		return
	}
	switch in.Op {
	case OpAdd:
		fmt.Fprintf(out, "\tmovq %s, %%rax\n\taddq %s, %%rax\n\tmovq %%rax, %s\n", dst, src, dst)
	case OpSub:
		fmt.Fprintf(out, "\tmovq %s, %%rax\n\tsubq %s, %%rax\n\tmovq %%rax, %s\n", dst, src, dst)
	case OpMul:
		fmt.Fprintf(out, "\tmovq %s, %%rax\n\timulq %s\n\tmovq %%rax, %s\n", dst, src, dst)
	case OpDiv:
		fmt.Fprintf(out, "\tmovq %s, %%rax\n\tcqto\n\tidivq %s\n\tmovq %%rax, %s\n", dst, src, dst)
	}
}

func (em *Emitter) emitInvoke(out *strings.Builder, in *Instruction) {
	var intArgs, floatArgs []string
	for _, a := range in.Extra {
		ref := em.operandRef(a, in.Owner)
		if effectiveCategory(a) == "float" {
			floatArgs = append(floatArgs, ref)
		} else {
			intArgs = append(intArgs, ref)
		}
	}
	for _, line := range em.csm.ArgLines(intArgs, floatArgs) {
		out.WriteString(line + "\n")
	}
	out.WriteString(em.csm.CallLine(sanitizeSymbol(in.Op1.Text)) + "\n")
	if in.Op2 != nil && in.Op2.Var != nil {
		dst := em.varSymbol(in.Owner, in.Op2.Var.Name)
		if in.Op2.Var.Type == TypeFloat {
			fmt.Fprintf(out, "\tmovsd %%xmm0, %s(%%rip)\n", dst)
		} else {
			fmt.Fprintf(out, "\tmovq %%rax, %s(%%rip)\n", dst)
		}
	}
}
