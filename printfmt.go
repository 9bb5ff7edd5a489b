package main

import (
	"fmt"
	"strings"
)

// formatSpecifiers scans a literal format string for the four conversions
// print supports (spec.md §4.E/§6.2: "%ld %lf %s %c"), in order, ignoring
// any other text. "%%" is a literal percent and contributes no specifier.
func formatSpecifiers(format string) []byte {
	var specs []byte
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i+1 >= len(format) {
			continue
		}
		switch {
		case strings.HasPrefix(format[i:], "%ld"):
			specs = append(specs, 'd')
			i += 2
		case strings.HasPrefix(format[i:], "%lf"):
			specs = append(specs, 'f')
			i += 2
		case strings.HasPrefix(format[i:], "%s"):
			specs = append(specs, 's')
			i += 1
		case strings.HasPrefix(format[i:], "%c"):
			specs = append(specs, 'c')
			i += 1
		case format[i+1] == '%':
			i += 1
		}
	}
	return specs
}

// renderFormat expands a literal format string against resolved argument
// operands, raising FormatMismatch when the argument count or an argument's
// runtime category doesn't fit its specifier (spec.md §7).
func renderFormat(format string, args []*Operand, loc SourceLocation) (string, *MXVMError) {
	specs := formatSpecifiers(format)
	if len(specs) != len(args) {
		return "", errFormatMismatch(loc, "format expects %d argument(s), got %d", len(specs), len(args))
	}

	var out strings.Builder
	argi := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			out.WriteByte(c)
			continue
		}
		switch {
		case strings.HasPrefix(format[i:], "%ld"):
			v, err := argInt(args[argi], loc)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&out, "%d", v)
			argi++
			i += 2
		case strings.HasPrefix(format[i:], "%lf"):
			v, err := argFloat(args[argi], loc)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&out, "%f", v)
			argi++
			i += 2
		case strings.HasPrefix(format[i:], "%s"):
			v, err := argString(args[argi], loc)
			if err != nil {
				return "", err
			}
			out.WriteString(v)
			argi++
			i += 1
		case strings.HasPrefix(format[i:], "%c"):
			v, err := argInt(args[argi], loc)
			if err != nil {
				return "", err
			}
			out.WriteByte(byte(v))
			argi++
			i += 1
		case format[i+1] == '%':
			out.WriteByte('%')
			i += 1
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), nil
}

func argInt(op *Operand, loc SourceLocation) (int64, *MXVMError) {
	switch op.Kind {
	case OperandImmInt:
		return op.IntValue, nil
	case OperandVarRef, OperandExternRef:
		if op.Var != nil && op.Var.Type.isNumeric() {
			if op.Var.Type == TypeFloat {
				return int64(op.Var.FloatValue), nil
			}
			return op.Var.IntValue, nil
		}
	}
	return 0, errFormatMismatch(loc, "expected integer argument for %%ld/%%c")
}

func argFloat(op *Operand, loc SourceLocation) (float64, *MXVMError) {
	switch op.Kind {
	case OperandImmFloat:
		return op.FloatValue, nil
	case OperandImmInt:
		return float64(op.IntValue), nil
	case OperandVarRef, OperandExternRef:
		if op.Var != nil && op.Var.Type.isNumeric() {
			if op.Var.Type == TypeFloat {
				return op.Var.FloatValue, nil
			}
			return float64(op.Var.IntValue), nil
		}
	}
	return 0, errFormatMismatch(loc, "expected float argument for %%lf")
}

func argString(op *Operand, loc SourceLocation) (string, *MXVMError) {
	switch op.Kind {
	case OperandImmStr:
		return op.Text, nil
	case OperandVarRef, OperandExternRef:
		if op.Var != nil && op.Var.Type == TypeString {
			return string(op.Var.StrValue), nil
		}
	}
	return "", errFormatMismatch(loc, "expected string argument for %%s")
}
