package main

import (
	"fmt"
	"strings"
)

// ErrorLevel indicates the severity of a diagnostic.
type ErrorLevel int

const (
	LevelWarning ErrorLevel = iota
	LevelError
	LevelFatal
)

func (l ErrorLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// ErrorCategory classifies where in the pipeline an error originated.
type ErrorCategory int

const (
	CategorySyntax ErrorCategory = iota
	CategorySemantic
	CategoryLink
	CategoryRuntime
	CategoryInternal
)

func (c ErrorCategory) String() string {
	switch c {
	case CategorySyntax:
		return "syntax"
	case CategorySemantic:
		return "semantic"
	case CategoryLink:
		return "link"
	case CategoryRuntime:
		return "runtime"
	case CategoryInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// ErrorKind names one of the diagnostic kinds from spec.md §7.
type ErrorKind int

const (
	KindLexError ErrorKind = iota
	KindParseError
	KindUndefinedLabel
	KindUndefinedVariable
	KindAmbiguousSymbol
	KindOperandArityMismatch
	KindTypeMismatch
	KindFormatMismatch
	KindDivideByZero
	KindLibraryNotFound
	KindSymbolNotFound
	KindIOError
	KindInternalError
)

func (k ErrorKind) String() string {
	switch k {
	case KindLexError:
		return "LexError"
	case KindParseError:
		return "ParseError"
	case KindUndefinedLabel:
		return "UndefinedLabel"
	case KindUndefinedVariable:
		return "UndefinedVariable"
	case KindAmbiguousSymbol:
		return "AmbiguousSymbol"
	case KindOperandArityMismatch:
		return "OperandArityMismatch"
	case KindTypeMismatch:
		return "TypeMismatch"
	case KindFormatMismatch:
		return "FormatMismatch"
	case KindDivideByZero:
		return "DivideByZero"
	case KindLibraryNotFound:
		return "LibraryNotFound"
	case KindSymbolNotFound:
		return "SymbolNotFound"
	case KindIOError:
		return "IOError"
	case KindInternalError:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// SourceLocation is a position in an MXVM translation unit.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

func (loc SourceLocation) String() string {
	if loc.File == "" {
		if loc.Line == 0 {
			return "<unknown>"
		}
		return fmt.Sprintf("%d:%d", loc.Line, loc.Column)
	}
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Column)
}

// MXVMError is a single diagnostic.
type MXVMError struct {
	Level    ErrorLevel
	Category ErrorCategory
	Kind     ErrorKind
	Message  string
	Location SourceLocation
}

func (e *MXVMError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Message)
}

func newErr(kind ErrorKind, cat ErrorCategory, loc SourceLocation, format string, args ...any) *MXVMError {
	return &MXVMError{
		Level:    LevelError,
		Category: cat,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	}
}

func errLex(loc SourceLocation, format string, args ...any) *MXVMError {
	return newErr(KindLexError, CategorySyntax, loc, format, args...)
}

func errParse(loc SourceLocation, format string, args ...any) *MXVMError {
	return newErr(KindParseError, CategorySyntax, loc, format, args...)
}

func errUndefinedLabel(name string, loc SourceLocation) *MXVMError {
	return newErr(KindUndefinedLabel, CategorySemantic, loc, "undefined label '%s'", name)
}

func errUndefinedVariable(name string, loc SourceLocation) *MXVMError {
	return newErr(KindUndefinedVariable, CategorySemantic, loc, "undefined variable '%s'", name)
}

func errAmbiguousSymbol(name string, loc SourceLocation) *MXVMError {
	return newErr(KindAmbiguousSymbol, CategoryLink, loc, "ambiguous symbol '%s'", name)
}

func errArity(op string, want, got int, loc SourceLocation) *MXVMError {
	return newErr(KindOperandArityMismatch, CategorySemantic, loc, "%s expects %d operand(s), got %d", op, want, got)
}

func errTypeMismatch(op string, loc SourceLocation) *MXVMError {
	return newErr(KindTypeMismatch, CategorySemantic, loc, "type mismatch in %s", op)
}

func errFormatMismatch(loc SourceLocation, format string, args ...any) *MXVMError {
	return newErr(KindFormatMismatch, CategoryRuntime, loc, format, args...)
}

func errDivideByZero(loc SourceLocation) *MXVMError {
	return newErr(KindDivideByZero, CategoryRuntime, loc, "division by zero")
}

func errLibraryNotFound(path string, loc SourceLocation) *MXVMError {
	return newErr(KindLibraryNotFound, CategoryRuntime, loc, "library not found: %s", path)
}

func errSymbolNotFound(name, lib string, loc SourceLocation) *MXVMError {
	return newErr(KindSymbolNotFound, CategoryRuntime, loc, "symbol '%s' not found in %s", name, lib)
}

func errIO(loc SourceLocation, format string, args ...any) *MXVMError {
	return newErr(KindIOError, CategoryRuntime, loc, format, args...)
}

func errInternal(format string, args ...any) *MXVMError {
	return newErr(KindInternalError, CategoryInternal, SourceLocation{}, format, args...)
}

// ErrorCollector accumulates diagnostics across a compilation pipeline stage.
// Grounded on the teacher's ErrorCollector; lex, parse, validate, and link
// stages in MXVM are fatal-on-first, but the validator may collect several
// problems before stopping (spec.md §7).
type ErrorCollector struct {
	errors    []*MXVMError
	warnings  []*MXVMError
	maxErrors int
}

// NewErrorCollector creates a collector that stops after maxErrors errors.
func NewErrorCollector(maxErrors int) *ErrorCollector {
	if maxErrors <= 0 {
		maxErrors = 20
	}
	return &ErrorCollector{maxErrors: maxErrors}
}

func (ec *ErrorCollector) Add(err *MXVMError) {
	if err.Level == LevelWarning {
		ec.warnings = append(ec.warnings, err)
		return
	}
	ec.errors = append(ec.errors, err)
}

func (ec *ErrorCollector) HasErrors() bool { return len(ec.errors) > 0 }

func (ec *ErrorCollector) ShouldStop() bool { return len(ec.errors) >= ec.maxErrors }

func (ec *ErrorCollector) First() *MXVMError {
	if len(ec.errors) == 0 {
		return nil
	}
	return ec.errors[0]
}

// Report renders every collected error, one per line, for the CLI's
// diagnostic output (spec.md §7: "a single diagnostic line with location").
func (ec *ErrorCollector) Report() string {
	var sb strings.Builder
	for _, e := range ec.errors {
		sb.WriteString(e.Error())
		sb.WriteString("\n")
	}
	for _, w := range ec.warnings {
		sb.WriteString(w.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}
