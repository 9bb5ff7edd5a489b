package main

import (
	"golang.org/x/sys/unix"
)

// callFrame is one return address on the VM's call stack (spec.md §3: "call
// pushes (owner, pc+1)").
type callFrame struct {
	prog *Program
	pc   int
}

// VM executes a linked, validated Program tree directly (spec.md §4.E).
// Grounded on the teacher's fetch-dispatch interpreter loop shape, adapted
// to MXVM's cross-unit Owner-pointer addressing instead of a single flat
// instruction array.
type VM struct {
	root    *Program
	cur     *Program
	pc      int
	running bool

	zeroFlag    bool
	lessFlag    bool
	greaterFlag bool
	aboveFlag   bool
	belowFlag   bool

	callStack []callFrame
	exitCode  int

	// outFD/inFD are the file descriptors print/getline talk to directly
	// (spec.md §5: I/O unbuffered across instruction boundaries). Default
	// to the process's stdout/stdin; tests substitute a pipe.
	outFD int
	inFD  int

	ffi *FFIBridge
}

// NewVM creates a VM positioned at root's "main" label (or instruction 0 if
// there is none), per spec.md §4.E.
func NewVM(root *Program) *VM {
	return newVM(root, 1, 0)
}

// newVMWithFDs creates a VM that reads/writes the given descriptors instead
// of the process's stdin/stdout, for tests that need to capture print
// output or feed getline input.
func newVMWithFDs(root *Program, outFD, inFD int) *VM {
	return newVM(root, outFD, inFD)
}

func newVM(root *Program, outFD, inFD int) *VM {
	vm := &VM{root: root, cur: root, running: true, ffi: NewFFIBridge(), outFD: outFD, inFD: inFD}
	if info, ok := root.Labels["main"]; ok {
		vm.cur = info.Owner
		vm.pc = int(info.Address)
	}
	return vm
}

// Run executes until exit, a ret with an empty call stack, or running off
// the end of the program, returning the process's exit code and the first
// runtime error encountered, if any.
func (vm *VM) Run() (int, *MXVMError) {
	defer vm.ffi.CloseAll()
	for vm.running {
		if vm.pc < 0 || vm.pc >= len(vm.cur.Instructions) {
			vm.running = false
			break
		}
		in := vm.cur.Instructions[vm.pc]
		next, err := vm.exec(in)
		if err != nil {
			return 1, err
		}
		if vm.running {
			vm.pc = next
		}
	}
	return vm.exitCode, nil
}

func (vm *VM) readInt(op *Operand) int64 {
	v, _ := argInt(op, SourceLocation{})
	return v
}

func (vm *VM) readFloat(op *Operand) float64 {
	v, _ := argFloat(op, SourceLocation{})
	return v
}

// exec runs one instruction and returns the next pc within vm.cur (callers
// must re-check vm.cur after a jump/call switches the active unit).
func (vm *VM) exec(in *Instruction) (int, *MXVMError) {
	loc := locOf(in)
	fallthroughPC := vm.pc + 1

	switch in.Op {
	case OpMov:
		return fallthroughPC, vm.execMov(in, loc)

	case OpLoad:
		dst, addr := in.Op1.Var, in.Op2.Var
		if addr.PointsTo == nil {
			return 0, errInternal("load: nil pointer at %s", loc)
		}
		iv, fv := arrayElemGet(addr.PointsTo, addr.PointsOffset)
		if dst.Type == TypeFloat {
			dst.FloatValue = fv
		} else {
			dst.IntValue = iv
		}
		return fallthroughPC, nil

	case OpStore:
		src, addr := in.Op1.Var, in.Op2.Var
		if addr.PointsTo == nil {
			return 0, errInternal("store: nil pointer at %s", loc)
		}
		var iv int64
		var fv float64
		if src.Type == TypeFloat {
			fv = src.FloatValue
		} else {
			iv = src.IntValue
		}
		arrayElemSet(addr.PointsTo, addr.PointsOffset, iv, fv)
		return fallthroughPC, nil

	case OpAdd, OpSub, OpMul, OpDiv:
		if err := vm.execArith(in, loc); err != nil {
			return 0, err
		}
		return fallthroughPC, nil

	case OpAnd, OpOr, OpXor:
		vm.execBitwise(in)
		return fallthroughPC, nil

	case OpNot:
		dst := in.Op1.Var
		dst.IntValue = ^dst.IntValue
		return fallthroughPC, nil

	case OpCmp:
		vm.execCmp(in)
		return fallthroughPC, nil

	case OpJmp:
		vm.jumpTo(in.Op1)
		return vm.pc, nil
	case OpJe:
		return vm.condJump(in, vm.zeroFlag), nil
	case OpJne:
		return vm.condJump(in, !vm.zeroFlag), nil
	case OpJl:
		return vm.condJump(in, vm.lessFlag), nil
	case OpJle:
		return vm.condJump(in, vm.lessFlag || vm.zeroFlag), nil
	case OpJg:
		return vm.condJump(in, vm.greaterFlag), nil
	case OpJge:
		return vm.condJump(in, vm.greaterFlag || vm.zeroFlag), nil
	case OpJz:
		return vm.condJump(in, vm.zeroFlag), nil
	case OpJnz:
		return vm.condJump(in, !vm.zeroFlag), nil
	case OpJa:
		return vm.condJump(in, vm.aboveFlag), nil
	case OpJb:
		return vm.condJump(in, vm.belowFlag), nil

	case OpCall:
		vm.callStack = append(vm.callStack, callFrame{prog: vm.cur, pc: fallthroughPC})
		vm.jumpTo(in.Op1)
		return vm.pc, nil

	case OpRet:
		if len(vm.callStack) == 0 {
			vm.running = false
			return 0, nil
		}
		top := vm.callStack[len(vm.callStack)-1]
		vm.callStack = vm.callStack[:len(vm.callStack)-1]
		vm.cur = top.prog
		return top.pc, nil

	case OpInvoke:
		if err := vm.execInvoke(in, loc); err != nil {
			return 0, err
		}
		return fallthroughPC, nil

	case OpPrint:
		if err := vm.execPrint(in, loc); err != nil {
			return 0, err
		}
		return fallthroughPC, nil

	case OpGetline:
		vm.execGetline(in)
		return fallthroughPC, nil

	case OpToInt:
		dst, src := in.Op1.Var, in.Op2.Var
		n, ok := parseIntLoose(string(src.StrValue))
		vm.zeroFlag = !ok
		dst.IntValue = n
		return fallthroughPC, nil

	case OpToFloat:
		dst, src := in.Op1.Var, in.Op2.Var
		f, ok := parseFloatLoose(string(src.StrValue))
		vm.zeroFlag = !ok
		dst.FloatValue = f
		return fallthroughPC, nil

	case OpLoadChar:
		dst, src := in.Op1.Var, in.Op2.Var
		idx := uint64(dst.IntValue)
		if idx < uint64(len(src.StrValue)) {
			dst.IntValue = int64(src.StrValue[idx])
		} else {
			dst.IntValue = 0
		}
		return fallthroughPC, nil

	case OpExit:
		code := int(vm.readInt(in.Op1))
		if code < 0 {
			code = 0
		}
		if code > 255 {
			code = 255
		}
		vm.exitCode = code
		vm.running = false
		return 0, nil
	}
	return 0, errInternal("unexecuted opcode %s", in.Op)
}

func (vm *VM) jumpTo(op *Operand) {
	vm.cur = op.LabelOwner
	vm.pc = int(op.ResolvedIndex)
}

func (vm *VM) condJump(in *Instruction, taken bool) int {
	if taken {
		vm.jumpTo(in.Op1)
		return vm.pc
	}
	return vm.pc + 1
}

func (vm *VM) execMov(in *Instruction, loc SourceLocation) *MXVMError {
	dst := in.Op1.Var
	src := in.Op2
	switch dst.Type {
	case TypeString:
		s, err := argString(src, loc)
		if err != nil {
			return err
		}
		vm.zeroFlag = dst.writeString(s)
	case TypePointer:
		if src.Kind == OperandVarRef && src.Var != nil && (src.Var.Type == TypeArray || src.Var.Type == TypeString) {
			dst.PointsTo = src.Var
			dst.PointsOffset = 0
		} else {
			dst.IntValue = vm.readInt(src)
		}
	case TypeFloat:
		dst.FloatValue = vm.readFloat(src)
	default:
		dst.IntValue = vm.readInt(src)
	}
	return nil
}

func (vm *VM) execArith(in *Instruction, loc SourceLocation) *MXVMError {
	dst := in.Op1.Var
	if dst.Type == TypeFloat {
		a, b := dst.FloatValue, vm.readFloat(in.Op2)
		var r float64
		switch in.Op {
		case OpAdd:
			r = a + b
		case OpSub:
			r = a - b
		case OpMul:
			r = a * b
		case OpDiv:
			if b == 0 {
				return errDivideByZero(loc)
			}
			r = a / b
		}
		dst.FloatValue = r
		vm.zeroFlag = r == 0
		vm.lessFlag = r < 0
		vm.greaterFlag = r > 0
		return nil
	}
	a, b := dst.IntValue, vm.readInt(in.Op2)
	var r int64
	switch in.Op {
	case OpAdd:
		r = a + b
	case OpSub:
		r = a - b
	case OpMul:
		r = a * b
	case OpDiv:
		if b == 0 {
			return errDivideByZero(loc)
		}
		r = a / b
	}
	dst.IntValue = r
	if dst.Type == TypePointer && dst.PointsTo != nil {
		switch in.Op {
		case OpAdd:
			dst.PointsOffset += uint64(b)
		case OpSub:
			dst.PointsOffset -= uint64(b)
		}
	}
	vm.zeroFlag = r == 0
	vm.lessFlag = r < 0
	vm.greaterFlag = r > 0
	return nil
}

func (vm *VM) execBitwise(in *Instruction) {
	dst := in.Op1.Var
	a, b := dst.IntValue, vm.readInt(in.Op2)
	var r int64
	switch in.Op {
	case OpAnd:
		r = a & b
	case OpOr:
		r = a | b
	case OpXor:
		r = a ^ b
	}
	dst.IntValue = r
	vm.zeroFlag = r == 0
}

// execCmp sets less/greater/zero from a signed op1-op2 comparison, and
// separately sets above/below from reinterpreting both operands as unsigned
// 64-bit (spec.md §9: ja/jb consult this unsigned reading of the last cmp,
// resolving the original ambiguity over signedness).
func (vm *VM) execCmp(in *Instruction) {
	if in.Op1.Var != nil && in.Op1.Var.Type == TypeFloat {
		a, b := vm.readFloat(in.Op1), vm.readFloat(in.Op2)
		vm.zeroFlag = a == b
		vm.lessFlag = a < b
		vm.greaterFlag = a > b
		vm.aboveFlag = vm.greaterFlag
		vm.belowFlag = vm.lessFlag
		return
	}
	a, b := vm.readInt(in.Op1), vm.readInt(in.Op2)
	vm.zeroFlag = a == b
	vm.lessFlag = a < b
	vm.greaterFlag = a > b
	ua, ub := uint64(a), uint64(b)
	vm.aboveFlag = ua > ub
	vm.belowFlag = ua < ub
}

func (vm *VM) execInvoke(in *Instruction, loc SourceLocation) *MXVMError {
	fn, mod := in.Op1.ExternFunc, in.Op1.ExternMod
	args := in.Extra
	retFloat := in.Op2 != nil && in.Op2.Var != nil && in.Op2.Var.Type == TypeFloat
	ret, err := vm.ffi.Call(mod, fn.Name, args, retFloat, loc)
	if err != nil {
		return err
	}
	if in.Op2 != nil && in.Op2.Var != nil {
		dst := in.Op2.Var
		if dst.Type == TypeFloat {
			dst.FloatValue = ret.F
		} else {
			dst.IntValue = ret.I
		}
	}
	return nil
}

func (vm *VM) execPrint(in *Instruction, loc SourceLocation) *MXVMError {
	format, err := argString(in.Op1, loc)
	if err != nil {
		return err
	}
	s, err := renderFormat(format, in.Extra, loc)
	if err != nil {
		return err
	}
	unix.Write(vm.outFD, []byte(s))
	return nil
}

func (vm *VM) execGetline(in *Instruction) {
	dst := in.Op1.Var
	var line []byte
	buf := make([]byte, 1)
	for {
		n, err := unix.Read(vm.inFD, buf)
		if n <= 0 || err != nil {
			break
		}
		if buf[0] == '\n' {
			break
		}
		line = append(line, buf[0])
	}
	vm.zeroFlag = dst.writeString(string(line))
}

func arrayElemGet(arr *Variable, idx uint64) (int64, float64) {
	size := elemSize(arr.ElemType)
	off := idx * size
	if off+size > uint64(len(arr.Buffer)) {
		return 0, 0
	}
	switch arr.ElemType {
	case TypeFloat:
		return 0, bytesToFloat64(arr.Buffer[off : off+8])
	case TypeByte:
		return int64(arr.Buffer[off]), 0
	default:
		return bytesToInt64(arr.Buffer[off : off+8]), 0
	}
}

func arrayElemSet(arr *Variable, idx uint64, iv int64, fv float64) {
	size := elemSize(arr.ElemType)
	off := idx * size
	if off+size > uint64(len(arr.Buffer)) {
		return
	}
	switch arr.ElemType {
	case TypeFloat:
		putFloat64(arr.Buffer[off:off+8], fv)
	case TypeByte:
		arr.Buffer[off] = byte(iv)
	default:
		putInt64(arr.Buffer[off:off+8], iv)
	}
}
