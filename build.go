package main

import "strconv"

// buildProgram lowers a parsed UnitNode into a Program: variables are
// instantiated, instructions are transcribed with their Opcode resolved,
// and labels are recorded at their instruction address. Operand kinds
// (VAR_REF vs LABEL_REF vs EXTERN_REF) and cross-references are resolved
// afterwards by the Validator (spec.md §4.C) — this pass only establishes
// the shape described in spec.md §3.
func buildProgram(unit *UnitNode, sourceFile string) (*Program, *MXVMError) {
	prog := NewProgram(unit.Name, unit.IsObject, sourceFile)

	for _, sec := range unit.Sections {
		switch sec.Kind {
		case SectionData:
			for _, d := range sec.Decls {
				v, err := buildVariable(d)
				if err != nil {
					return nil, err
				}
				if _, exists := prog.Vars[v.Name]; exists {
					return nil, errParse(d.Loc, "duplicate variable declaration %q", v.Name)
				}
				prog.declareVar(v)
			}
		case SectionCode:
			if err := buildCode(prog, sec); err != nil {
				return nil, err
			}
		case SectionModule:
			for _, name := range sec.Names {
				prog.Modules = append(prog.Modules, &Module{Name: name})
			}
		case SectionObject:
			for _, name := range sec.Names {
				prog.Objects = append(prog.Objects, &Program{Name: name})
			}
		}
	}
	return prog, nil
}

func buildVariable(d *VarDeclNode) (*Variable, *MXVMError) {
	vt, ok := parseVarType(d.TypeName)
	if !ok {
		return nil, errParse(d.Loc, "unknown type %q", d.TypeName)
	}
	v := &Variable{Name: d.Name, Type: vt, IsConst: d.IsConst}

	if vt == TypeArray {
		elemType, ok := parseVarType(d.ElemType)
		if !ok {
			return nil, errParse(d.Loc, "unknown array element type %q", d.ElemType)
		}
		v.ElemType = elemType
		v.Count = d.Count
		v.HasBuffer = true
		v.BufferSize = d.Count * elemSize(elemType)
		v.Buffer = make([]byte, v.BufferSize)
		return v, nil
	}

	if vt == TypeString {
		// Fixed-size string buffers are declared by giving an initial
		// literal; buffer_size is the literal's byte length plus one byte
		// for the trailing NUL (spec.md §3:
		// "for ARRAY/STRING with buffer, buffer.len() == buffer_size").
		if d.HasInit && d.Literal.Kind == LiteralString {
			v.HasBuffer = true
			v.BufferSize = uint64(len(d.Literal.Text)) + 1
			v.writeString(d.Literal.Text)
		}
		return v, nil
	}

	if !d.HasInit {
		return v, nil
	}

	switch vt {
	case TypeInteger, TypeByte, TypePointer:
		n, err := strconv.ParseInt(d.Literal.Text, 10, 64)
		if err != nil {
			return nil, errParse(d.Loc, "invalid integer literal %q", d.Literal.Text)
		}
		v.IntValue = n
	case TypeFloat:
		f, err := strconv.ParseFloat(d.Literal.Text, 64)
		if err != nil {
			return nil, errParse(d.Loc, "invalid float literal %q", d.Literal.Text)
		}
		v.FloatValue = f
	}
	return v, nil
}

func elemSize(t VarType) uint64 {
	switch t {
	case TypeByte:
		return 1
	case TypeInteger, TypeFloat, TypePointer:
		return 8
	default:
		return 8
	}
}

func buildCode(prog *Program, sec *SectionNode) *MXVMError {
	for _, stmt := range sec.Stmts {
		switch n := stmt.(type) {
		case *CommentNode:
			// preserved only in the AST; not retained on Program
		case *LabelNode:
			if _, exists := prog.Labels[n.Name]; exists {
				return errParse(n.Loc, "duplicate label %q", n.Name)
			}
			prog.declareLabel(n.Name, uint64(len(prog.Instructions)), false)
		case *InstructionNode:
			instr, err := buildInstruction(n)
			if err != nil {
				return err
			}
			instr.Owner = prog
			prog.Instructions = append(prog.Instructions, instr)
		}
	}
	return nil
}

func buildInstruction(n *InstructionNode) (*Instruction, *MXVMError) {
	op, ok := lookupOpcode(n.Mnemonic)
	if !ok {
		return nil, errParse(n.Loc, "unknown opcode %q", n.Mnemonic)
	}
	if err := checkArity(op, len(n.Operands), n.Loc); err != nil {
		return nil, err
	}
	in := &Instruction{Op: op, SourceLine: n.Loc.Line}
	operands := make([]*Operand, len(n.Operands))
	for i, on := range n.Operands {
		operands[i] = buildOperand(on)
	}

	// invoke's shape is "symbol [, dest] [, arg]*" (spec.md §4.G): the
	// variable-arity argument list always lands in Extra, never in Op3,
	// so the interpreter and validator can treat Extra uniformly as "the
	// call's arguments" regardless of whether a destination is present.
	if op == OpInvoke {
		if len(operands) > 0 {
			in.Op1 = operands[0]
		}
		if len(operands) > 1 {
			in.Op2 = operands[1]
		}
		if len(operands) > 2 {
			in.Extra = operands[2:]
		}
		return in, nil
	}

	// print's shape is "format [, arg]*": the format occupies Op1, every
	// remaining operand is a format argument and always lands in Extra.
	if op == OpPrint {
		if len(operands) > 0 {
			in.Op1 = operands[0]
		}
		if len(operands) > 1 {
			in.Extra = operands[1:]
		}
		return in, nil
	}

	if len(operands) > 0 {
		in.Op1 = operands[0]
	}
	if len(operands) > 1 {
		in.Op2 = operands[1]
	}
	if len(operands) > 2 {
		in.Op3 = operands[2]
	}
	if len(operands) > 3 {
		in.Extra = operands[3:]
	}
	return in, nil
}

func buildOperand(n *OperandNode) *Operand {
	o := &Operand{Text: n.Text, Kind: n.Kind}
	switch n.Kind {
	case OperandImmInt:
		v, _ := strconv.ParseInt(n.Text, 10, 64)
		o.IntValue = v
	case OperandImmFloat:
		v, _ := strconv.ParseFloat(n.Text, 64)
		o.FloatValue = v
	}
	return o
}
