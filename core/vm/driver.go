package vm

import "github.com/loriopatrick/evm/log"

// maxCallDepth bounds the nested CALL/CREATE chain a Driver will service,
// matching the conventional EVM call-depth limit. Past this depth every
// further CALL/CREATE resolves as ErrCallTooDeep instead of recursing.
const maxCallDepth = 1024

// Driver is the convenience entry point that turns a Runtime's CALL/CREATE
// interrupts into ordinary recursive execution: every nested frame is a
// fresh Machine/Runtime pair run by reentering Driver.Run, linked to its
// parent only through the interrupt it produced and the feedback it is
// given back. Nothing here is required by the interrupt/resume contract
// itself — a host that wants to execute nested frames elsewhere (a
// different goroutine, a different process) can call Runtime.Step
// directly and skip Driver entirely.
type Driver struct {
	depth int
	log   *log.Logger
}

// NewDriver returns a Driver ready to run a top-level frame at depth 0.
func NewDriver() *Driver {
	return &Driver{log: log.Default().Module("vm")}
}

// Depth reports how many nested CALL/CREATE frames are currently on the
// Go call stack beneath the frame Run was first invoked with.
func (d *Driver) Depth() int { return d.depth }

// Run steps r until it exits, transparently running any CALL/CREATE it
// traps on as a nested frame and feeding the result back before
// continuing. It returns r's own exit reason.
func (d *Driver) Run(h Handler, r *Runtime) ExitReason {
	for {
		exit, create, call := r.Step(h)
		switch {
		case create != nil:
			d.serviceCreate(h, r, create)
		case call != nil:
			d.serviceCall(h, r, call)
		case exit != nil:
			return exit
		}
	}
}

func (d *Driver) serviceCreate(h Handler, parent *Runtime, it *CreateInterrupt) {
	if d.depth >= maxCallDepth {
		d.log.Debug("create too deep", "depth", d.depth, "address", it.Address.Hex())
		parent.ResumeCreate(h, CreateFeedback{Result: CreateResult{Exit: ErrCallTooDeep}})
		return
	}
	nested := NewRuntime(it.InitCode, nil,
		Context{Address: it.Address, Caller: it.Caller, ApparentValue: it.Value},
		parent.isStatic, 0)

	d.log.Debug("enter create frame", "depth", d.depth+1, "address", it.Address.Hex(), "caller", it.Caller.Hex())
	d.depth++
	exit := d.Run(h, nested)
	d.depth--
	d.log.Debug("exit create frame", "depth", d.depth+1, "exit", exit.String())

	res := CreateResult{Exit: exit, Output: nested.Machine().ReturnValue()}
	if IsSucceed(exit) {
		res.Address = it.Address
	}
	parent.ResumeCreate(h, CreateFeedback{Result: res})
}

func (d *Driver) serviceCall(h Handler, parent *Runtime, it *CallInterrupt) {
	if d.depth >= maxCallDepth {
		d.log.Debug("call too deep", "depth", d.depth, "address", it.CodeAddress.Hex())
		parent.ResumeCall(h, CallFeedback{Result: CallResult{Exit: ErrCallTooDeep}})
		return
	}
	code := h.Code(it.CodeAddress)
	nested := NewRuntime(code, it.Input, it.Context, it.IsStatic, 0)

	d.log.Debug("enter call frame", "depth", d.depth+1, "address", it.Context.Address.Hex(), "code", it.CodeAddress.Hex())
	d.depth++
	exit := d.Run(h, nested)
	d.depth--
	d.log.Debug("exit call frame", "depth", d.depth+1, "exit", exit.String())

	res := CallResult{Exit: exit, Output: nested.Machine().ReturnValue()}
	parent.ResumeCall(h, CallFeedback{Result: res})
}
