package main

import "fmt"

// CallingConvention exposes the argument/return register assignment the
// emitter needs to lower an invoke (spec.md §4.F/§4.G). Trimmed from the
// teacher's multi-ABI interface (Microsoft x64, ARM64 AAPCS, RISC-V) down to
// the one target SPEC_FULL.md names: System V AMD64 Linux.
type CallingConvention interface {
	IntegerArgReg(index int) string
	FloatArgReg(index int) string
	IntegerReturnReg() string
	FloatReturnReg() string
	StackAlignment() int
}

// SystemVAMD64 implements the System V AMD64 ABI (Linux): the only ABI
// x86_64_linux emission uses.
type SystemVAMD64 struct{}

var sysVIntArgRegs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
var sysVFloatArgRegs = []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"}

func (cc *SystemVAMD64) IntegerArgReg(index int) string {
	if index < len(sysVIntArgRegs) {
		return sysVIntArgRegs[index]
	}
	return ""
}

func (cc *SystemVAMD64) FloatArgReg(index int) string {
	if index < len(sysVFloatArgRegs) {
		return sysVFloatArgRegs[index]
	}
	return ""
}

func (cc *SystemVAMD64) IntegerReturnReg() string { return "rax" }
func (cc *SystemVAMD64) FloatReturnReg() string   { return "xmm0" }
func (cc *SystemVAMD64) StackAlignment() int      { return 16 }

// GetCallingConvention returns the calling convention for target. MXVM
// emits only x86_64_linux, so this always resolves to SystemVAMD64.
func GetCallingConvention(target Target) CallingConvention {
	return &SystemVAMD64{}
}

// CallSiteManager lowers one invoke into the text-assembly instruction
// sequence that loads arguments into their ABI registers and calls the
// target symbol (spec.md §4.F.3: "invoke lowers to the calling convention's
// argument-register sequence plus a call instruction"). Adapted from the
// teacher's CallSiteManager, which did the equivalent register bookkeeping
// for a raw-byte emitter; here it emits assembly text lines instead of
// machine bytes.
type CallSiteManager struct {
	cc CallingConvention
}

// NewCallSiteManager creates a manager for the given calling convention.
func NewCallSiteManager(cc CallingConvention) *CallSiteManager {
	return &CallSiteManager{cc: cc}
}

// ArgLines returns one "mov"/"movsd" assembly line per argument, loading
// intArgs then floatArgs into their ABI registers in order.
func (csm *CallSiteManager) ArgLines(intArgs, floatArgs []string) []string {
	var lines []string
	for i, src := range intArgs {
		reg := csm.cc.IntegerArgReg(i)
		lines = append(lines, fmt.Sprintf("\tmovq %s, %%%s", src, reg))
	}
	for i, src := range floatArgs {
		reg := csm.cc.FloatArgReg(i)
		lines = append(lines, fmt.Sprintf("\tmovsd %s, %%%s", src, reg))
	}
	return lines
}

// CallLine returns the call instruction targeting symbol.
func (csm *CallSiteManager) CallLine(symbol string) string {
	return fmt.Sprintf("\tcall %s@PLT", symbol)
}
