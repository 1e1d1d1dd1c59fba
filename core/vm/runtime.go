package vm

import (
	"github.com/loriopatrick/evm/core/types"
	"github.com/loriopatrick/evm/crypto"
)

// Runtime is the outer tier: a Machine plus the identity tuple it runs
// under and the RETURNDATA side channel left by its most recent nested
// call. One Runtime exists per frame; CALL/CREATE push a new Runtime
// rather than executing inline (see Driver).
type Runtime struct {
	machine  *Machine
	context  Context
	isStatic bool

	returnData []byte

	// pendingRetOff/pendingRetLen remember the CALL opcode's return-data
	// window across a suspend, since ResumeCall runs long after opCall's
	// own stack frame is gone.
	pendingRetOff uint64
	pendingRetLen uint64
}

// NewRuntime constructs a Runtime over fresh code and call-data.
func NewRuntime(code, data []byte, ctx Context, isStatic bool, memLimit uint64) *Runtime {
	ctx.IsStatic = isStatic
	return &Runtime{
		machine:  NewMachine(code, data, memLimit),
		context:  ctx,
		isStatic: isStatic,
	}
}

// Machine returns the underlying inner interpreter.
func (r *Runtime) Machine() *Machine { return r.machine }

// Context returns the frame's identity tuple.
func (r *Runtime) Context() Context { return r.context }

// IsStatic reports whether this frame runs under a STATICCALL ancestor,
// forbidding SSTORE/LOG/CREATE/SELFDESTRUCT and value-bearing CALL.
func (r *Runtime) IsStatic() bool { return r.isStatic }

// ReturnData is the output of the most recently completed nested call,
// readable via RETURNDATASIZE/RETURNDATACOPY until the next nested call.
func (r *Runtime) ReturnData() []byte { return r.returnData }

// Step advances the frame by exactly one opcode. Three outcomes:
//   - exit != nil: the frame has terminated (exit also equals
//     r.Machine().ExitReason() from this point on).
//   - create != nil or call != nil: the frame suspended on a CREATE/CALL
//     family opcode; the driver must run the nested frame and deliver the
//     outcome via ResumeCreate/ResumeCall before stepping this Runtime again.
//   - all nil: the opcode completed synchronously; keep stepping.
func (r *Runtime) Step(h Handler) (exit ExitReason, create *CreateInterrupt, call *CallInterrupt) {
	m := r.machine
	if m.Exited() {
		return m.ExitReason(), nil, nil
	}
	op, ok := m.PeekOp()
	if !ok {
		_, _, exit = m.Step()
		return exit, nil, nil
	}
	if verr := h.PreValidate(r.context, op, m.stack); verr != noError {
		m.exit(verr)
		return m.ExitReason(), nil, nil
	}
	_, trapped, exit := m.Step()
	if !trapped {
		return exit, nil, nil
	}
	create, call = r.dispatchExternal(h, op)
	return m.ExitReason(), create, call
}

// dispatchExternal services one external opcode. On everything but
// CREATE/CALL family it fully resolves the opcode (pushing a result and
// advancing pc, or exiting the frame) before returning. CREATE/CALL may
// instead return a non-nil interrupt, leaving pc unmoved until Resume*.
func (r *Runtime) dispatchExternal(h Handler, op OpCode) (*CreateInterrupt, *CallInterrupt) {
	m := r.machine
	switch op {
	case KECCAK256:
		r.opSha3(m)
	case ADDRESS:
		r.pushAddress(m, r.context.Address)
	case BALANCE:
		r.queryAddressWord(m, h.Balance)
	case ORIGIN:
		r.pushAddress(m, h.Origin())
	case CALLER:
		r.pushAddress(m, r.context.Caller)
	case CALLVALUE:
		r.pushWordAdvance(m, new(Word).Set(r.context.ApparentValue))
	case GASPRICE:
		r.pushWordAdvance(m, h.GasPrice())
	case EXTCODESIZE:
		r.queryAddressUint64(m, h.CodeSize)
	case EXTCODECOPY:
		r.opExtCodeCopy(m, h)
	case RETURNDATASIZE:
		r.pushWordAdvance(m, WordFromUint64(uint64(len(r.returnData))))
	case RETURNDATACOPY:
		r.opReturnDataCopy(m)
	case EXTCODEHASH:
		r.queryAddressHash(m, h.CodeHash)
	case BLOCKHASH:
		r.opBlockHash(m, h)
	case COINBASE:
		r.pushAddress(m, h.BlockCoinbase())
	case TIMESTAMP:
		r.pushWordAdvance(m, WordFromUint64(h.BlockTimestamp()))
	case NUMBER:
		r.pushWordAdvance(m, WordFromUint64(h.BlockNumber()))
	case PREVRANDAO:
		r.pushWordAdvance(m, h.BlockDifficulty())
	case GASLIMIT:
		r.pushWordAdvance(m, WordFromUint64(h.BlockGasLimit()))
	case CHAINID:
		r.pushWordAdvance(m, h.ChainID())
	case SELFBALANCE:
		r.pushWordAdvance(m, h.Balance(r.context.Address))
	case GAS:
		r.pushWordAdvance(m, WordFromUint64(h.GasLeft()))
	case SLOAD:
		r.opSload(m, h)
	case SSTORE:
		r.opSstore(m, h)
	case LOG0, LOG1, LOG2, LOG3, LOG4:
		r.opLog(m, h, int(op-LOG0))
	case SELFDESTRUCT:
		r.opSelfDestruct(m, h)
	case CREATE, CREATE2:
		return r.opCreate(m, h, op == CREATE2), nil
	case CALL, CALLCODE, DELEGATECALL, STATICCALL:
		return nil, r.opCall(m, h, op)
	default:
		if reason := h.Other(byte(op), m); reason != nil {
			m.exit(reason)
		}
	}
	return nil, nil
}

func (r *Runtime) pushWordAdvance(m *Machine, w *Word) {
	if err := m.stack.Push(w); err != noError {
		m.exit(err)
		return
	}
	m.position++
}

func (r *Runtime) pushAddress(m *Machine, addr types.Address) {
	r.pushWordAdvance(m, AddressToWord(addr))
}

// queryAddressWord pops an address, calls f on it, and pushes the result.
func (r *Runtime) queryAddressWord(m *Machine, f func(addr types.Address) *Word) {
	a, err := m.stack.Pop()
	if err != noError {
		m.exit(err)
		return
	}
	r.pushWordAdvance(m, f(WordToAddress(a)))
}

func (r *Runtime) queryAddressUint64(m *Machine, f func(addr types.Address) uint64) {
	a, err := m.stack.Pop()
	if err != noError {
		m.exit(err)
		return
	}
	r.pushWordAdvance(m, WordFromUint64(f(WordToAddress(a))))
}

func (r *Runtime) queryAddressHash(m *Machine, f func(addr types.Address) types.Hash) {
	a, err := m.stack.Pop()
	if err != noError {
		m.exit(err)
		return
	}
	r.pushWordAdvance(m, WordFromHash(f(WordToAddress(a))))
}

func (r *Runtime) opSha3(m *Machine) {
	vals, err := m.stack.popped(2)
	if err != noError {
		m.exit(err)
		return
	}
	offset, length := vals[0], vals[1]
	if !offset.IsUint64() || !length.IsUint64() {
		m.exit(FatalNotSupported)
		return
	}
	if reason := m.memory.resizeOffset(offset.Uint64(), length.Uint64()); reason != nil {
		m.exit(reason)
		return
	}
	data := m.memory.get(offset.Uint64(), length.Uint64())
	r.pushWordAdvance(m, NewWord().SetBytes(crypto.Keccak256(data)))
}

func (r *Runtime) opExtCodeCopy(m *Machine, h Handler) {
	vals, err := m.stack.popped(4)
	if err != noError {
		m.exit(err)
		return
	}
	addr, dst, srcOff, length := vals[0], vals[1], vals[2], vals[3]
	if !dst.IsUint64() || !length.IsUint64() {
		m.exit(FatalNotSupported)
		return
	}
	l := length.Uint64()
	if reason := m.memory.resizeOffset(dst.Uint64(), l); reason != nil {
		m.exit(reason)
		return
	}
	if l == 0 {
		m.position++
		return
	}
	code := h.Code(WordToAddress(addr))
	so := uint64(len(code))
	if srcOff.IsUint64() {
		so = srcOff.Uint64()
	}
	m.memory.copyLarge(dst.Uint64(), so, l, code)
	m.position++
}

// opReturnDataCopy enforces the strict bound spec.md draws between it and
// CODECOPY/CALLDATACOPY: reading past the end of the last call's return
// data is an OutOfOffset error, not a zero-padded read.
func (r *Runtime) opReturnDataCopy(m *Machine) {
	vals, err := m.stack.popped(3)
	if err != noError {
		m.exit(err)
		return
	}
	dst, srcOff, length := vals[0], vals[1], vals[2]
	if !dst.IsUint64() || !srcOff.IsUint64() || !length.IsUint64() {
		m.exit(FatalNotSupported)
		return
	}
	so, l := srcOff.Uint64(), length.Uint64()
	end := so + l
	if end < so || end > uint64(len(r.returnData)) {
		m.exit(ErrOutOfOffset)
		return
	}
	if reason := m.memory.resizeOffset(dst.Uint64(), l); reason != nil {
		m.exit(reason)
		return
	}
	m.memory.copyLarge(dst.Uint64(), so, l, r.returnData)
	m.position++
}

func (r *Runtime) opBlockHash(m *Machine, h Handler) {
	n, err := m.stack.Pop()
	if err != noError {
		m.exit(err)
		return
	}
	if !n.IsUint64() {
		r.pushWordAdvance(m, NewWord())
		return
	}
	r.pushWordAdvance(m, WordFromHash(h.BlockHash(n.Uint64())))
}

func (r *Runtime) opSload(m *Machine, h Handler) {
	index, err := m.stack.Pop()
	if err != noError {
		m.exit(err)
		return
	}
	r.pushWordAdvance(m, WordFromHash(h.Storage(r.context.Address, WordToHash(index))))
}

func (r *Runtime) opSstore(m *Machine, h Handler) {
	vals, err := m.stack.popped(2)
	if err != noError {
		m.exit(err)
		return
	}
	index, value := vals[0], vals[1]
	if serr := h.SetStorage(r.context.Address, WordToHash(index), WordToHash(value)); serr != noError {
		m.exit(serr)
		return
	}
	m.position++
}

func (r *Runtime) opLog(m *Machine, h Handler, topicCount int) {
	vals, err := m.stack.popped(2 + topicCount)
	if err != noError {
		m.exit(err)
		return
	}
	offset, length := vals[0], vals[1]
	if !offset.IsUint64() || !length.IsUint64() {
		m.exit(FatalNotSupported)
		return
	}
	if reason := m.memory.resizeOffset(offset.Uint64(), length.Uint64()); reason != nil {
		m.exit(reason)
		return
	}
	data := m.memory.get(offset.Uint64(), length.Uint64())
	topics := make([]types.Hash, topicCount)
	for i := 0; i < topicCount; i++ {
		topics[i] = WordToHash(vals[2+i])
	}
	if lerr := h.Log(r.context.Address, topics, data); lerr != noError {
		m.exit(lerr)
		return
	}
	m.position++
}

func (r *Runtime) opSelfDestruct(m *Machine, h Handler) {
	target, err := m.stack.Pop()
	if err != noError {
		m.exit(err)
		return
	}
	if derr := h.MarkDelete(r.context.Address, WordToAddress(target)); derr != noError {
		m.exit(derr)
		return
	}
	m.exit(ExitSuicided)
}

func (r *Runtime) opCreate(m *Machine, h Handler, isCreate2 bool) *CreateInterrupt {
	n := 3
	if isCreate2 {
		n = 4
	}
	vals, err := m.stack.popped(n)
	if err != noError {
		m.exit(err)
		return nil
	}
	value, offset, length := vals[0], vals[1], vals[2]
	if !offset.IsUint64() || !length.IsUint64() {
		m.exit(FatalNotSupported)
		return nil
	}
	if reason := m.memory.resizeOffset(offset.Uint64(), length.Uint64()); reason != nil {
		m.exit(reason)
		return nil
	}
	initCode := m.memory.get(offset.Uint64(), length.Uint64())
	scheme := CreateScheme{}
	if isCreate2 {
		scheme.IsCreate2 = true
		scheme.Salt = WordToHash(vals[3])
	}
	capture := h.Create(r.context.Address, scheme, value, initCode, h.GasLeft())
	if capture.Interrupt != nil {
		return capture.Interrupt
	}
	r.finishCreate(*capture.Result)
	return nil
}

// finishCreate applies a resolved CREATE outcome: pushes the new address
// on success (zero on failure), records return data (empty on success,
// the revert/error output otherwise), and advances past the opcode.
// Shared by the synchronous path in opCreate and the suspended path
// driven by ResumeCreate.
func (r *Runtime) finishCreate(res CreateResult) {
	m := r.machine
	if IsFatal(res.Exit) {
		m.exit(res.Exit)
		return
	}
	if IsSucceed(res.Exit) {
		if err := m.stack.Push(AddressToWord(res.Address)); err != noError {
			m.exit(err)
			return
		}
		r.returnData = nil
	} else {
		if err := m.stack.Push(NewWord()); err != noError {
			m.exit(err)
			return
		}
		r.returnData = res.Output
	}
	m.position++
}

// ResumeCreate delivers a host-resolved CREATE outcome to a frame
// suspended by opCreate's interrupt, finishing the opcode.
func (r *Runtime) ResumeCreate(h Handler, fb CreateFeedback) {
	h.CreateFeedback(fb)
	r.finishCreate(fb.Result)
}

func (r *Runtime) opCall(m *Machine, h Handler, op OpCode) *CallInterrupt {
	hasValue := op == CALL || op == CALLCODE
	n := 6
	if hasValue {
		n = 7
	}
	vals, err := m.stack.popped(n)
	if err != noError {
		m.exit(err)
		return nil
	}
	gasWord, addrWord := vals[0], vals[1]
	idx := 2
	value := NewWord()
	if hasValue {
		value = vals[2]
		idx = 3
	} else if op == DELEGATECALL {
		value = new(Word).Set(r.context.ApparentValue)
	}
	argsOff, argsLen, retOff, retLen := vals[idx], vals[idx+1], vals[idx+2], vals[idx+3]
	if !argsOff.IsUint64() || !argsLen.IsUint64() || !retOff.IsUint64() || !retLen.IsUint64() {
		m.exit(FatalNotSupported)
		return nil
	}
	if reason := m.memory.resizeOffset(argsOff.Uint64(), argsLen.Uint64()); reason != nil {
		m.exit(reason)
		return nil
	}
	if reason := m.memory.resizeOffset(retOff.Uint64(), retLen.Uint64()); reason != nil {
		m.exit(reason)
		return nil
	}
	input := m.memory.get(argsOff.Uint64(), argsLen.Uint64())
	target := WordToAddress(addrWord)

	var ctx Context
	var transfer *Transfer
	switch op {
	case CALL:
		ctx = Context{Address: target, Caller: r.context.Address, ApparentValue: value}
		if !value.IsZero() {
			transfer = &Transfer{Source: r.context.Address, Target: target, Value: value}
		}
	case CALLCODE:
		ctx = Context{Address: r.context.Address, Caller: r.context.Address, ApparentValue: value}
		if !value.IsZero() {
			transfer = &Transfer{Source: r.context.Address, Target: r.context.Address, Value: value}
		}
	case DELEGATECALL:
		ctx = r.context
		ctx.ApparentValue = new(Word).Set(r.context.ApparentValue)
	case STATICCALL:
		ctx = Context{Address: target, Caller: r.context.Address, ApparentValue: NewWord()}
	}

	isStatic := r.isStatic || op == STATICCALL
	gasCap := uint64(1<<64 - 1)
	if gasWord.IsUint64() {
		gasCap = gasWord.Uint64()
	}

	r.pendingRetOff = retOff.Uint64()
	r.pendingRetLen = retLen.Uint64()

	capture := h.Call(target, transfer, input, gasCap, isStatic, ctx)
	if capture.Interrupt != nil {
		return capture.Interrupt
	}
	r.finishCall(*capture.Result)
	return nil
}

// finishCall applies a resolved CALL outcome: pushes 1/0 success, records
// RETURNDATA, copies at most pendingRetLen bytes of output into the
// caller's requested return window, and advances past the opcode.
func (r *Runtime) finishCall(res CallResult) {
	m := r.machine
	if IsFatal(res.Exit) {
		m.exit(res.Exit)
		return
	}
	success := NewWord()
	if IsSucceed(res.Exit) {
		success.SetOne()
	}
	if err := m.stack.Push(success); err != noError {
		m.exit(err)
		return
	}
	r.returnData = res.Output
	if r.pendingRetLen > 0 {
		copyLen := r.pendingRetLen
		if uint64(len(res.Output)) < copyLen {
			copyLen = uint64(len(res.Output))
		}
		if copyLen > 0 {
			m.memory.set(r.pendingRetOff, res.Output[:copyLen], copyLen)
		}
	}
	m.position++
}

// ResumeCall delivers a host-resolved CALL outcome to a frame suspended by
// opCall's interrupt, finishing the opcode.
func (r *Runtime) ResumeCall(h Handler, fb CallFeedback) {
	h.CallFeedback(fb)
	r.finishCall(fb.Result)
}
