package main

import "fmt"

// Validator resolves every identifier operand to a concrete VAR_REF,
// LABEL_REF, or EXTERN_REF and checks static type/arity constraints
// (spec.md §4.C). It walks the whole linked tree (root plus every loaded
// object), since each unit's own instructions must resolve against its own
// Vars/Labels/Modules.
type Validator struct {
	ec *ErrorCollector
}

// NewValidator creates a Validator that collects up to maxErrors problems.
func NewValidator(maxErrors int) *Validator {
	return &Validator{ec: NewErrorCollector(maxErrors)}
}

// Validate walks root and every transitively loaded object, resolving
// operands and checking types. Returns the first fatal error encountered,
// or nil if the image is well-formed.
func (v *Validator) Validate(root *Program) *MXVMError {
	seen := make(map[*Program]bool)
	var walk func(p *Program) *MXVMError
	walk = func(p *Program) *MXVMError {
		if seen[p] {
			return nil
		}
		seen[p] = true
		for _, instr := range p.Instructions {
			if err := v.validateInstruction(instr); err != nil {
				v.ec.Add(err)
				if v.ec.ShouldStop() {
					return v.ec.First()
				}
				continue
			}
			if err := v.checkResolvedInvariant(instr); err != nil {
				v.ec.Add(err)
				if v.ec.ShouldStop() {
					return v.ec.First()
				}
				continue
			}
			if err := v.checkConstWrite(instr); err != nil {
				v.ec.Add(err)
				if v.ec.ShouldStop() {
					return v.ec.First()
				}
			}
		}
		for _, obj := range p.Objects {
			if err := walk(obj); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return err
	}
	if v.ec.HasErrors() {
		return v.ec.First()
	}
	return nil
}

func locOf(in *Instruction) SourceLocation {
	file := ""
	if in.Owner != nil {
		file = in.Owner.SourceFile
	}
	return SourceLocation{File: file, Line: in.SourceLine}
}

// resolveVar resolves a bare identifier operand against owner's variable
// table, recording an extern reference if the variable's type is EXTERN.
func (v *Validator) resolveVar(op *Operand, owner *Program, loc SourceLocation) *MXVMError {
	if op == nil || op.Kind != OperandVarRef {
		return nil
	}
	vv, ok := owner.Vars[op.Text]
	if !ok {
		return errUndefinedVariable(op.Text, loc)
	}
	op.Var = vv
	for i, name := range owner.VarOrder {
		if name == op.Text {
			op.ResolvedIndex = uint64(i)
			op.HasResolved = true
			break
		}
	}
	if vv.Type == TypeExtern {
		op.Kind = OperandExternRef
		owner.Externs = append(owner.Externs, ExternRef{SourceName: owner.Name, SymbolName: op.Text, IsModule: false})
	}
	return nil
}

// resolveLabel resolves a jump/call target against owner's label table,
// honoring the AmbiguousSymbol case from spec.md §4.D.
func (v *Validator) resolveLabel(op *Operand, owner *Program, loc SourceLocation) *MXVMError {
	if op == nil {
		return nil
	}
	if owner.AmbiguousLabels[op.Text] {
		return errAmbiguousSymbol(op.Text, loc)
	}
	info, ok := owner.Labels[op.Text]
	if !ok {
		return errUndefinedLabel(op.Text, loc)
	}
	op.Kind = OperandLabelRef
	op.ResolvedIndex = info.Address
	op.LabelOwner = info.Owner
	op.HasResolved = true
	return nil
}

// resolveInvokeSymbol resolves invoke's first operand against owner's
// imported modules (spec.md §4.G): the call's target function, not a
// variable.
func (v *Validator) resolveInvokeSymbol(op *Operand, owner *Program, loc SourceLocation) *MXVMError {
	for _, mod := range owner.Modules {
		for i := range mod.Functions {
			if mod.Functions[i].Name == op.Text {
				op.Kind = OperandExternRef
				op.ExternFunc = &mod.Functions[i]
				op.ExternMod = mod
				owner.Externs = append(owner.Externs, ExternRef{SourceName: mod.Name, SymbolName: op.Text, IsModule: true})
				return nil
			}
		}
	}
	return newErr(KindSymbolNotFound, CategorySemantic, loc, "symbol '%s' not found in any imported module", op.Text)
}

// checkResolvedInvariant asserts that every label-reference operand
// validateInstruction touched was actually marked resolved; a mismatch
// here is a validator bug, not a program error, so it reports internally.
func (v *Validator) checkResolvedInvariant(in *Instruction) *MXVMError {
	for _, op := range in.allOperands() {
		if op.Kind == OperandLabelRef && !op.HasResolved {
			return errInternal("label operand %q resolved without HasResolved set", op.Text)
		}
	}
	return nil
}

// writesOp1 reports whether op stores its result back into its first
// operand — the set of mutating opcodes checkConstWrite must police.
func writesOp1(op Opcode) bool {
	switch op {
	case OpMov, OpLoad, OpAdd, OpSub, OpMul, OpDiv, OpAnd, OpOr, OpXor, OpNot, OpToInt, OpToFloat, OpLoadChar:
		return true
	default:
		return false
	}
}

// checkConstWrite rejects a mutating instruction whose destination is a
// const-declared variable (spec.md §3's is_const field).
func (v *Validator) checkConstWrite(in *Instruction) *MXVMError {
	if !writesOp1(in.Op) || in.Op1 == nil || in.Op1.Var == nil || !in.Op1.Var.IsConst {
		return nil
	}
	return errTypeMismatch(fmt.Sprintf("%s (write to const variable '%s')", in.Op, in.Op1.Var.Name), locOf(in))
}

func numericCategory(t VarType) string {
	switch t {
	case TypeInteger, TypeByte, TypePointer:
		return "int"
	case TypeFloat:
		return "float"
	default:
		return ""
	}
}

// effectiveCategory returns the numeric category ("int"/"float"/"") an
// operand contributes once resolved.
func effectiveCategory(op *Operand) string {
	switch op.Kind {
	case OperandImmInt:
		return "int"
	case OperandImmFloat:
		return "float"
	case OperandVarRef, OperandExternRef:
		if op.Var != nil {
			return numericCategory(op.Var.Type)
		}
	}
	return ""
}

func (v *Validator) validateInstruction(in *Instruction) *MXVMError {
	loc := locOf(in)
	owner := in.Owner

	switch in.Op {
	case OpJmp, OpJe, OpJne, OpJl, OpJle, OpJg, OpJge, OpJz, OpJnz, OpJa, OpJb, OpCall:
		return v.resolveLabel(in.Op1, owner, loc)

	case OpInvoke:
		if err := v.resolveInvokeSymbol(in.Op1, owner, loc); err != nil {
			return err
		}
		if in.Op2 != nil {
			if err := v.resolveVar(in.Op2, owner, loc); err != nil {
				return err
			}
		}
		for _, a := range in.Extra {
			if err := v.resolveVar(a, owner, loc); err != nil {
				return err
			}
		}
		return nil

	case OpRet:
		return nil

	case OpPrint:
		if err := v.resolveVar(in.Op1, owner, loc); err != nil {
			return err
		}
		if in.Op1.Kind == OperandVarRef && in.Op1.Var.Type != TypeString {
			return errTypeMismatch("print (format argument must be string)", loc)
		}
		for _, a := range in.Extra {
			if err := v.resolveVar(a, owner, loc); err != nil {
				return err
			}
		}
		return nil

	case OpExit:
		return v.resolveVar(in.Op1, owner, loc)

	case OpGetline:
		if err := v.resolveVar(in.Op1, owner, loc); err != nil {
			return err
		}
		if in.Op1.Var != nil && in.Op1.Var.Type != TypeString {
			return errTypeMismatch("getline", loc)
		}
		return nil

	case OpNot:
		return v.resolveVar(in.Op1, owner, loc)

	case OpLoad:
		if err := v.resolveVar(in.Op1, owner, loc); err != nil {
			return err
		}
		if err := v.resolveVar(in.Op2, owner, loc); err != nil {
			return err
		}
		if in.Op2.Var != nil && in.Op2.Var.Type != TypePointer {
			return errTypeMismatch("load (address operand must be ptr)", loc)
		}
		return nil

	case OpStore:
		if err := v.resolveVar(in.Op1, owner, loc); err != nil {
			return err
		}
		if err := v.resolveVar(in.Op2, owner, loc); err != nil {
			return err
		}
		if in.Op2.Var != nil && in.Op2.Var.Type != TypePointer {
			return errTypeMismatch("store (address operand must be ptr)", loc)
		}
		return nil

	case OpToInt, OpToFloat, OpLoadChar:
		if err := v.resolveVar(in.Op1, owner, loc); err != nil {
			return err
		}
		return v.resolveVar(in.Op2, owner, loc)

	case OpMov:
		if err := v.resolveVar(in.Op1, owner, loc); err != nil {
			return err
		}
		return v.resolveVar(in.Op2, owner, loc)

	case OpAnd, OpOr, OpXor:
		if err := v.resolveVar(in.Op1, owner, loc); err != nil {
			return err
		}
		if err := v.resolveVar(in.Op2, owner, loc); err != nil {
			return err
		}
		if in.Op1.Var != nil && numericCategory(in.Op1.Var.Type) != "int" {
			return errTypeMismatch(in.Op.String(), loc)
		}
		return nil

	case OpAdd, OpSub, OpMul, OpDiv:
		if err := v.resolveVar(in.Op1, owner, loc); err != nil {
			return err
		}
		if err := v.resolveVar(in.Op2, owner, loc); err != nil {
			return err
		}
		dstCat := effectiveCategory(in.Op1)
		srcCat := effectiveCategory(in.Op2)
		if dstCat == "" || srcCat == "" || dstCat != srcCat {
			return errTypeMismatch(in.Op.String(), loc)
		}
		return nil

	case OpCmp:
		if err := v.resolveVar(in.Op1, owner, loc); err != nil {
			return err
		}
		if err := v.resolveVar(in.Op2, owner, loc); err != nil {
			return err
		}
		aCat := effectiveCategory(in.Op1)
		bCat := effectiveCategory(in.Op2)
		if aCat == "" || bCat == "" || aCat != bCat {
			return errTypeMismatch("cmp", loc)
		}
		return nil
	}
	return errInternal("unvalidated opcode %s", in.Op)
}
