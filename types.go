package main

import "fmt"

// VarType is the tagged type of an MXVM variable (spec.md §3).
type VarType int

const (
	TypeUnknown VarType = iota
	TypeInteger
	TypeFloat
	TypeString
	TypePointer
	TypeByte
	TypeArray
	TypeExtern
)

func (t VarType) String() string {
	switch t {
	case TypeInteger:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypePointer:
		return "ptr"
	case TypeByte:
		return "byte"
	case TypeArray:
		return "array"
	case TypeExtern:
		return "extern"
	default:
		return "unknown"
	}
}

// parseVarType maps a declaration keyword (spec.md §6.1) to a VarType.
func parseVarType(keyword string) (VarType, bool) {
	switch keyword {
	case "int":
		return TypeInteger, true
	case "float":
		return TypeFloat, true
	case "string":
		return TypeString, true
	case "ptr":
		return TypePointer, true
	case "byte":
		return TypeByte, true
	case "array":
		return TypeArray, true
	case "extern":
		return TypeExtern, true
	default:
		return TypeUnknown, false
	}
}

// isNumeric reports whether a VarType participates in arithmetic/compare as
// a numeric category (spec.md §4.E: "INT or FLOAT, both operands same
// category").
func (t VarType) isNumeric() bool {
	return t == TypeInteger || t == TypeFloat || t == TypeByte
}

// Variable is a single slot in a Program's variable table (spec.md §3).
// Exactly the fields consistent with Type are meaningful; the rest stay
// zero-valued, mirroring the union-like Variable described in the spec.
type Variable struct {
	Name       string
	Type       VarType
	IntValue   int64
	FloatValue float64
	StrValue   []byte

	HasBuffer  bool
	Buffer     []byte
	BufferSize uint64

	ElemType  VarType
	Count     uint64

	IsConst bool

	// PointsTo and PointsOffset give POINTER variables a concrete referent
	// for load/store (spec.md §4.E names load/store as pointer
	// dereferences but leaves the memory model unspecified). mov into a
	// POINTER variable from an ARRAY/STRING variable takes its address by
	// setting PointsTo; arithmetic on a pointer (add/sub with an INT)
	// advances PointsOffset, the element index into PointsTo's buffer.
	PointsTo     *Variable
	PointsOffset uint64
}

func (v *Variable) String() string {
	switch v.Type {
	case TypeInteger:
		return fmt.Sprintf("%d", v.IntValue)
	case TypeFloat:
		return fmt.Sprintf("%g", v.FloatValue)
	case TypeByte:
		return fmt.Sprintf("%d", v.IntValue&0xff)
	case TypeString:
		return string(v.StrValue)
	case TypePointer:
		return fmt.Sprintf("0x%x", uint64(v.IntValue))
	default:
		return ""
	}
}

// writeString stores s into the variable, truncating to BufferSize-1 with a
// trailing NUL if the variable owns a fixed-size buffer (spec.md §4.E: "mov
// into a fixed-size string buffer truncates with a trailing NUL and sets
// ZF=1 if truncation occurred"). Returns true if truncation occurred.
func (v *Variable) writeString(s string) bool {
	b := []byte(s)
	if !v.HasBuffer || v.BufferSize == 0 {
		v.StrValue = b
		return false
	}
	truncated := false
	max := int(v.BufferSize) - 1
	if max < 0 {
		max = 0
	}
	if len(b) > max {
		b = b[:max]
		truncated = true
	}
	out := make([]byte, v.BufferSize)
	copy(out, b)
	v.StrValue = out[:len(b)]
	v.Buffer = out
	return truncated
}
