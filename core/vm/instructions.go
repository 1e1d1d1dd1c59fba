package vm

// pureOps dispatches a byte opcode to its Machine-local implementation.
// A nil entry means the opcode is external (or unassigned) and must be
// trapped up to the Runtime — see Machine.Step.
var pureOps [256]func(m *Machine) ExitReason

func init() {
	pureOps[STOP] = opStop
	pureOps[ADD] = opAdd
	pureOps[MUL] = opMul
	pureOps[SUB] = opSub
	pureOps[DIV] = opDiv
	pureOps[SDIV] = opSdiv
	pureOps[MOD] = opMod
	pureOps[SMOD] = opSmod
	pureOps[ADDMOD] = opAddmod
	pureOps[MULMOD] = opMulmod
	pureOps[EXP] = opExp
	pureOps[SIGNEXTEND] = opSignExtend

	pureOps[LT] = opLt
	pureOps[GT] = opGt
	pureOps[SLT] = opSlt
	pureOps[SGT] = opSgt
	pureOps[EQ] = opEq
	pureOps[ISZERO] = opIszero
	pureOps[AND] = opAnd
	pureOps[OR] = opOr
	pureOps[XOR] = opXor
	pureOps[NOT] = opNot
	pureOps[BYTE] = opByte
	pureOps[SHL] = opShl
	pureOps[SHR] = opShr
	pureOps[SAR] = opSar

	pureOps[CALLDATALOAD] = opCallDataLoad
	pureOps[CALLDATASIZE] = opCallDataSize
	pureOps[CALLDATACOPY] = opCallDataCopy
	pureOps[CODESIZE] = opCodeSize
	pureOps[CODECOPY] = opCodeCopy

	pureOps[POP] = opPop
	pureOps[MLOAD] = opMload
	pureOps[MSTORE] = opMstore
	pureOps[MSTORE8] = opMstore8

	pureOps[JUMP] = opJump
	pureOps[JUMPI] = opJumpi
	pureOps[PC] = opPc
	pureOps[MSIZE] = opMsize
	pureOps[JUMPDEST] = opJumpdest

	pureOps[PUSH0] = opPush0
	for n := 1; n <= 32; n++ {
		pureOps[byte(PUSH1)+byte(n-1)] = makePush(n)
	}
	for n := 1; n <= 16; n++ {
		pureOps[byte(DUP1)+byte(n-1)] = makeDup(n)
		pureOps[byte(SWAP1)+byte(n-1)] = makeSwap(n)
	}

	pureOps[RETURN] = opReturn
	pureOps[REVERT] = opRevert
	pureOps[INVALID] = opInvalid
}

// advance moves the pc forward by delta and returns "keep running".
func advance(m *Machine, delta uint64) ExitReason {
	m.position += delta
	return nil
}

func opStop(m *Machine) ExitReason {
	return ExitStopped
}

func opInvalid(m *Machine) ExitReason {
	return ErrDesignatedInvalid
}

// binaryOp pops two words (a=top, b=second), computes f(a,b) in place in
// a, and pushes a. This matches the pop-in-written-order / push-result
// convention of spec.md §4.3 for every two-operand pure opcode.
func binaryOp(m *Machine, f func(z, a, b *Word) *Word) ExitReason {
	vals, err := m.stack.popped(2)
	if err != noError {
		return err
	}
	a, b := vals[0], vals[1]
	f(a, a, b)
	if err := m.stack.Push(a); err != noError {
		return err
	}
	return advance(m, 1)
}

func opAdd(m *Machine) ExitReason { return binaryOp(m, (*Word).Add) }
func opMul(m *Machine) ExitReason { return binaryOp(m, (*Word).Mul) }
func opSub(m *Machine) ExitReason { return binaryOp(m, (*Word).Sub) }
func opDiv(m *Machine) ExitReason { return binaryOp(m, (*Word).Div) }
func opSdiv(m *Machine) ExitReason { return binaryOp(m, (*Word).SDiv) }
func opMod(m *Machine) ExitReason { return binaryOp(m, (*Word).Mod) }
func opSmod(m *Machine) ExitReason { return binaryOp(m, (*Word).SMod) }
func opAnd(m *Machine) ExitReason { return binaryOp(m, (*Word).And) }
func opOr(m *Machine) ExitReason  { return binaryOp(m, (*Word).Or) }
func opXor(m *Machine) ExitReason { return binaryOp(m, (*Word).Xor) }

func opAddmod(m *Machine) ExitReason {
	vals, err := m.stack.popped(3)
	if err != noError {
		return err
	}
	a, b, n := vals[0], vals[1], vals[2]
	if n.IsZero() {
		a.Clear()
	} else {
		a.AddMod(a, b, n)
	}
	if err := m.stack.Push(a); err != noError {
		return err
	}
	return advance(m, 1)
}

func opMulmod(m *Machine) ExitReason {
	vals, err := m.stack.popped(3)
	if err != noError {
		return err
	}
	a, b, n := vals[0], vals[1], vals[2]
	if n.IsZero() {
		a.Clear()
	} else {
		a.MulMod(a, b, n)
	}
	if err := m.stack.Push(a); err != noError {
		return err
	}
	return advance(m, 1)
}

func opExp(m *Machine) ExitReason {
	vals, err := m.stack.popped(2)
	if err != noError {
		return err
	}
	base, exponent := vals[0], vals[1]
	exponent.Exp(base, exponent)
	if err := m.stack.Push(exponent); err != noError {
		return err
	}
	return advance(m, 1)
}

func opSignExtend(m *Machine) ExitReason {
	vals, err := m.stack.popped(2)
	if err != noError {
		return err
	}
	k, x := vals[0], vals[1]
	if k.LtUint64(32) {
		x.ExtendSign(x, k)
	}
	if err := m.stack.Push(x); err != noError {
		return err
	}
	return advance(m, 1)
}

func opLt(m *Machine) ExitReason {
	return compareOp(m, func(a, b *Word) bool { return a.Lt(b) })
}
func opGt(m *Machine) ExitReason {
	return compareOp(m, func(a, b *Word) bool { return a.Gt(b) })
}
func opSlt(m *Machine) ExitReason {
	return compareOp(m, func(a, b *Word) bool { return a.Slt(b) })
}
func opSgt(m *Machine) ExitReason {
	return compareOp(m, func(a, b *Word) bool { return a.Sgt(b) })
}
func opEq(m *Machine) ExitReason {
	return compareOp(m, func(a, b *Word) bool { return a.Eq(b) })
}

func compareOp(m *Machine, f func(a, b *Word) bool) ExitReason {
	vals, err := m.stack.popped(2)
	if err != noError {
		return err
	}
	a, b := vals[0], vals[1]
	result := NewWord()
	if f(a, b) {
		result.SetOne()
	}
	if err := m.stack.Push(result); err != noError {
		return err
	}
	return advance(m, 1)
}

func opIszero(m *Machine) ExitReason {
	a, err := m.stack.Pop()
	if err != noError {
		return err
	}
	result := NewWord()
	if a.IsZero() {
		result.SetOne()
	}
	if err := m.stack.Push(result); err != noError {
		return err
	}
	return advance(m, 1)
}

func opNot(m *Machine) ExitReason {
	a, err := m.stack.Pop()
	if err != noError {
		return err
	}
	a.Not(a)
	if err := m.stack.Push(a); err != noError {
		return err
	}
	return advance(m, 1)
}

// opByte implements BYTE(i, x): 0 if i>=32, else byte i of x (0 = most
// significant byte, matching the big-endian byte view of the word).
func opByte(m *Machine) ExitReason {
	vals, err := m.stack.popped(2)
	if err != noError {
		return err
	}
	i, x := vals[0], vals[1]
	x.Byte(i)
	if err := m.stack.Push(x); err != noError {
		return err
	}
	return advance(m, 1)
}

func opShl(m *Machine) ExitReason {
	vals, err := m.stack.popped(2)
	if err != noError {
		return err
	}
	shift, value := vals[0], vals[1]
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	if err := m.stack.Push(value); err != noError {
		return err
	}
	return advance(m, 1)
}

func opShr(m *Machine) ExitReason {
	vals, err := m.stack.popped(2)
	if err != noError {
		return err
	}
	shift, value := vals[0], vals[1]
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	if err := m.stack.Push(value); err != noError {
		return err
	}
	return advance(m, 1)
}

func opSar(m *Machine) ExitReason {
	vals, err := m.stack.popped(2)
	if err != noError {
		return err
	}
	shift, value := vals[0], vals[1]
	if shift.LtUint64(256) {
		value.SRsh(value, uint(shift.Uint64()))
	} else if value.Sign() >= 0 {
		value.Clear()
	} else {
		value.SetAllOne()
	}
	if err := m.stack.Push(value); err != noError {
		return err
	}
	return advance(m, 1)
}

func opCallDataLoad(m *Machine) ExitReason {
	i, err := m.stack.Pop()
	if err != noError {
		return err
	}
	var window [32]byte
	if i.IsUint64() {
		idx := i.Uint64()
		for j := 0; j < 32; j++ {
			p := idx + uint64(j)
			if p < uint64(len(m.data)) {
				window[j] = m.data[p]
			}
		}
	}
	result := NewWord().SetBytes32(window[:])
	if err := m.stack.Push(result); err != noError {
		return err
	}
	return advance(m, 1)
}

func opCallDataSize(m *Machine) ExitReason {
	if err := m.stack.Push(WordFromUint64(uint64(len(m.data)))); err != noError {
		return err
	}
	return advance(m, 1)
}

func opCallDataCopy(m *Machine) ExitReason {
	return copyToMemory(m, m.data)
}

func opCodeSize(m *Machine) ExitReason {
	if err := m.stack.Push(WordFromUint64(uint64(len(m.code)))); err != noError {
		return err
	}
	return advance(m, 1)
}

func opCodeCopy(m *Machine) ExitReason {
	return copyToMemory(m, m.code)
}

// copyToMemory implements the dst/src/len memory-expand-then-copy pattern
// shared by CALLDATACOPY and CODECOPY (src is always zero-padded past its
// own length — the lenient bound, as opposed to RETURNDATACOPY's strict
// one, which lives in runtime.go next to RETURNDATASIZE).
func copyToMemory(m *Machine, src []byte) ExitReason {
	vals, err := m.stack.popped(3)
	if err != noError {
		return err
	}
	dst, srcOff, length := vals[0], vals[1], vals[2]
	if !length.IsUint64() || !dst.IsUint64() {
		return FatalNotSupported
	}
	l := length.Uint64()
	if reason := m.memory.resizeOffset(dst.Uint64(), l); reason != nil {
		return reason
	}
	if l == 0 {
		return advance(m, 1)
	}
	so := uint64(0)
	if srcOff.IsUint64() {
		so = srcOff.Uint64()
	} else {
		so = uint64(len(src)) // guaranteed past end -> all zero
	}
	m.memory.copyLarge(dst.Uint64(), so, l, src)
	return advance(m, 1)
}

func opPop(m *Machine) ExitReason {
	if _, err := m.stack.Pop(); err != noError {
		return err
	}
	return advance(m, 1)
}

func opMload(m *Machine) ExitReason {
	off, err := m.stack.Pop()
	if err != noError {
		return err
	}
	if !off.IsUint64() {
		return FatalNotSupported
	}
	if reason := m.memory.resizeOffset(off.Uint64(), 32); reason != nil {
		return reason
	}
	data := m.memory.get(off.Uint64(), 32)
	if err := m.stack.Push(NewWord().SetBytes32(data)); err != noError {
		return err
	}
	return advance(m, 1)
}

func opMstore(m *Machine) ExitReason {
	vals, err := m.stack.popped(2)
	if err != noError {
		return err
	}
	off, val := vals[0], vals[1]
	if !off.IsUint64() {
		return FatalNotSupported
	}
	if reason := m.memory.resizeOffset(off.Uint64(), 32); reason != nil {
		return reason
	}
	b := val.Bytes32()
	m.memory.set(off.Uint64(), b[:], 32)
	return advance(m, 1)
}

func opMstore8(m *Machine) ExitReason {
	vals, err := m.stack.popped(2)
	if err != noError {
		return err
	}
	off, val := vals[0], vals[1]
	if !off.IsUint64() {
		return FatalNotSupported
	}
	if reason := m.memory.resizeOffset(off.Uint64(), 1); reason != nil {
		return reason
	}
	m.memory.set(off.Uint64(), []byte{byte(val.Uint64())}, 1)
	return advance(m, 1)
}

func opJump(m *Machine) ExitReason {
	dest, err := m.stack.Pop()
	if err != noError {
		return err
	}
	return m.jumpTo(dest)
}

func opJumpi(m *Machine) ExitReason {
	vals, err := m.stack.popped(2)
	if err != noError {
		return err
	}
	dest, cond := vals[0], vals[1]
	if cond.IsZero() {
		return advance(m, 1)
	}
	return m.jumpTo(dest)
}

func opPc(m *Machine) ExitReason {
	if err := m.stack.Push(WordFromUint64(m.position)); err != noError {
		return err
	}
	return advance(m, 1)
}

func opMsize(m *Machine) ExitReason {
	if err := m.stack.Push(WordFromUint64(m.memory.Len())); err != noError {
		return err
	}
	return advance(m, 1)
}

func opJumpdest(m *Machine) ExitReason {
	return advance(m, 1)
}

// opPush0 pushes the zero word (EIP-3855); unlike PUSHn it reads no
// immediate data.
func opPush0(m *Machine) ExitReason {
	if err := m.stack.Push(NewWord()); err != noError {
		return err
	}
	return advance(m, 1)
}

// makePush returns the PUSHn handler for n in [1,32]: reads n bytes after
// the opcode, zero-padding on the right if code runs out, and advances
// the pc by 1+n.
func makePush(n int) func(m *Machine) ExitReason {
	return func(m *Machine) ExitReason {
		var buf [32]byte
		start := m.position + 1
		for i := 0; i < n; i++ {
			p := start + uint64(i)
			if p < uint64(len(m.code)) {
				buf[32-n+i] = m.code[p]
			}
		}
		if err := m.stack.Push(NewWord().SetBytes32(buf[:])); err != noError {
			return err
		}
		return advance(m, uint64(1+n))
	}
}

// makeDup returns the DUPn handler: duplicate the item at depth n-1.
func makeDup(n int) func(m *Machine) ExitReason {
	return func(m *Machine) ExitReason {
		v, err := m.stack.Peek(n - 1)
		if err != noError {
			return err
		}
		if err := m.stack.Push(new(Word).Set(v)); err != noError {
			return err
		}
		return advance(m, 1)
	}
}

// makeSwap returns the SWAPn handler: swap the top with the item at depth n.
func makeSwap(n int) func(m *Machine) ExitReason {
	return func(m *Machine) ExitReason {
		top, err := m.stack.Peek(0)
		if err != noError {
			return err
		}
		other, err := m.stack.Peek(n)
		if err != noError {
			return err
		}
		m.stack.Set(0, other)
		m.stack.Set(n, top)
		return advance(m, 1)
	}
}

func opReturn(m *Machine) ExitReason {
	return finishWithRange(m, ExitReturned)
}

func opRevert(m *Machine) ExitReason {
	return finishWithRange(m, ExitReverted)
}

func finishWithRange(m *Machine, reason ExitReason) ExitReason {
	vals, err := m.stack.popped(2)
	if err != noError {
		return err
	}
	off, length := vals[0], vals[1]
	if !off.IsUint64() || !length.IsUint64() {
		return FatalNotSupported
	}
	if r := m.memory.resizeOffset(off.Uint64(), length.Uint64()); r != nil {
		return r
	}
	m.returnStart = off.Uint64()
	m.returnEnd = off.Uint64() + length.Uint64()
	return reason
}
