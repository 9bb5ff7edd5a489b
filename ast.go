package main

import (
	"fmt"
	"strings"
)

// Node is implemented by every AST node (grounded on the teacher's Node
// interface and the visitor-style toString() methods in the original
// project's src/ast.cpp).
type Node interface {
	String() string
}

// UnitNode is the root of a parsed translation unit: either
// `program NAME { ... }` or `object NAME { ... }` (spec.md §4.B grammar).
type UnitNode struct {
	IsObject bool
	Name     string
	Sections []*SectionNode
	Loc      SourceLocation
}

func (u *UnitNode) String() string {
	kind := "Program"
	if u.IsObject {
		kind = "Object"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s {\n", kind, u.Name)
	for _, s := range u.Sections {
		sb.WriteString(s.String())
	}
	sb.WriteString("}\n")
	return sb.String()
}

// SectionKind identifies one of the four section kinds a unit may contain.
type SectionKind int

const (
	SectionData SectionKind = iota
	SectionCode
	SectionModule
	SectionObject
)

func (k SectionKind) String() string {
	switch k {
	case SectionData:
		return "data"
	case SectionCode:
		return "code"
	case SectionModule:
		return "module"
	case SectionObject:
		return "object"
	default:
		return "?"
	}
}

// SectionNode is `section KIND { ... }`.
type SectionNode struct {
	Kind  SectionKind
	Decls []*VarDeclNode  // only meaningful for SectionData
	Stmts []Node          // only meaningful for SectionCode: *LabelNode, *InstructionNode, *CommentNode
	Names []string        // only meaningful for SectionModule/SectionObject
	Loc   SourceLocation
}

func (s *SectionNode) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Section %s {\n", s.Kind)
	for _, d := range s.Decls {
		sb.WriteString("  " + d.String() + "\n")
	}
	for _, n := range s.Names {
		sb.WriteString("  " + n + "\n")
	}
	for _, st := range s.Stmts {
		sb.WriteString("  " + st.String() + "\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}

// VarDeclNode is `const? type name (= literal)?` inside a data section.
type VarDeclNode struct {
	TypeName string
	Name     string
	HasInit  bool
	Literal  *LiteralNode
	// For "array", ElemType and Count carry the element type/count.
	ElemType string
	Count    uint64
	IsConst  bool
	Loc      SourceLocation
}

func (d *VarDeclNode) String() string {
	prefix := ""
	if d.IsConst {
		prefix = "const "
	}
	if d.HasInit {
		return fmt.Sprintf("%s%s %s = %s", prefix, d.TypeName, d.Name, d.Literal.String())
	}
	return fmt.Sprintf("%s%s %s", prefix, d.TypeName, d.Name)
}

// LiteralKind distinguishes the literal kinds an operand/initializer may take.
type LiteralKind int

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralString
	LiteralIdent
)

// LiteralNode is a constant value written directly in source.
type LiteralNode struct {
	Kind LiteralKind
	Text string
}

func (l *LiteralNode) String() string { return l.Text }

// LabelNode is `name:` inside a code section.
type LabelNode struct {
	Name string
	Loc  SourceLocation
}

func (l *LabelNode) String() string { return fmt.Sprintf("Label: %s", l.Name) }

// CommentNode preserves a `//` comment verbatim.
type CommentNode struct {
	Text string
	Loc  SourceLocation
}

func (c *CommentNode) String() string { return c.Text }

// OperandNode is one comma-separated operand of an instruction.
type OperandNode struct {
	Kind OperandKind
	Text string
	Loc  SourceLocation
}

func (o *OperandNode) String() string { return o.Text }

// InstructionNode is `OPCODE operand (, operand)*` inside a code section.
type InstructionNode struct {
	Mnemonic string
	Operands []*OperandNode
	Loc      SourceLocation
}

func (i *InstructionNode) String() string {
	parts := make([]string, len(i.Operands))
	for idx, o := range i.Operands {
		parts[idx] = o.String()
	}
	return fmt.Sprintf("%s %s", i.Mnemonic, strings.Join(parts, ", "))
}
