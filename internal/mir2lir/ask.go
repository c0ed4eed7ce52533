package mir2lir

import (
	"oxitortoise/internal/lir"
	"oxitortoise/internal/mir"
)

// compileAskAll compiles Ask(AllTurtles|AllPatches, body) into a
// host-assisted structured loop: a host call advances an engine-side
// cursor over the agentset and reports whether another agent remains;
// the function's own locals are shared with the body statements as-is
// (internal/astmir builds an ask-block's statements with the enclosing
// procedure's funcBuilder, so KGetLocal/KSetLocal inside body already
// reference the right frame slots — no separate closure function or
// indirect call is needed here).
//
// The step host call alone carries no argument identifying which ask
// construct is iterating (internal/hostsim is single-threaded and the
// two kinds of ask never interleave), so a "begin" host call precedes
// the loop to push a fresh iterator onto the host's per-kind stack; step
// always operates on that stack's top, and pops it once exhausted. Since
// an inner ask's block/loop runs to completion entirely within one
// outer-loop body execution, this is a valid stack discipline even when
// asks nest.
//
//	host_call "<kind>-begin"         ; pushes a fresh iterator
//	block
//	  loop
//	    host_call "<kind>-step"      ; pushes 1 if another agent was
//	                                  ; advanced to, else 0 (and pops
//	                                  ; the iterator in that case)
//	    not
//	    br_if 1                      ; no more agents: exit
//	    <body>
//	    br 0
//	  end
//	end
func (e *emitter) compileAskAll(n *mir.Node) error {
	beginName, stepName := "ask-all-turtles-begin", "ask-all-turtles-step"
	if n.Kind == mir.KAskAllPatches {
		beginName, stepName = "ask-all-patches-begin", "ask-all-patches-step"
	}
	return e.askLoop(beginName, stepName, n.Body)
}

// compileAskAgentset handles an ask whose recipient survived peephole
// unspecialized (e.g. a let-bound agentset: the recipient is a
// GetLocal, not an agentset literal). The agent class still pins down
// at compile time — type inference gave the recipient an
// agentset-of-T type — so the loop shape is the same as the
// specialized variants'; only the allocation-elision optimization is
// lost. The recipient is still evaluated (and its value dropped) so an
// impure recipient keeps its effects.
func (e *emitter) compileAskAgentset(id mir.NodeID, n *mir.Node) error {
	recipient := e.p.Node(n.Args[0])
	ty := recipient.OutputType
	if ty.Kind != mir.AgentsetOf || ty.Elem == nil {
		return &EmitError{Node: id, ConcreteType: ty.String(), Message: "ask recipient is not a pinned agentset type"}
	}

	yields, err := e.node(n.Args[0])
	if err != nil {
		return err
	}
	if yields {
		e.emit(lir.Instr{Op: lir.OpDrop})
	}

	switch ty.Elem.Kind {
	case mir.TurtleTy:
		return e.askLoop("ask-all-turtles-begin", "ask-all-turtles-step", n.Body)
	case mir.PatchTy:
		return e.askLoop("ask-all-patches-begin", "ask-all-patches-step", n.Body)
	}
	return &EmitError{Node: id, ConcreteType: ty.String(), Message: "ask over this agent class is not supported"}
}

// askLoop emits the begin/step iteration shape shared by every ask
// variant and by create-turtles bodies.
func (e *emitter) askLoop(beginName, stepName string, body []mir.Statement) error {
	e.emit(lir.Instr{Op: lir.OpHostCall, HostCallName: beginName, HostCallArgs: 0, HostCallYields: false})
	e.emit(lir.Instr{Op: lir.OpBlock})
	e.emit(lir.Instr{Op: lir.OpLoop})
	e.emit(lir.Instr{Op: lir.OpHostCall, HostCallName: stepName, HostCallArgs: 0, HostCallYields: true})
	e.emit(lir.Instr{Op: lir.OpBoolOp, Operator: "not"})
	e.emit(lir.Instr{Op: lir.OpBrIf, BrDepth: 1})
	if err := e.block(body); err != nil {
		return err
	}
	e.emit(lir.Instr{Op: lir.OpBr, BrDepth: 0})
	e.emit(lir.Instr{Op: lir.OpEnd})
	e.emit(lir.Instr{Op: lir.OpEnd})
	return nil
}

// compileCreateTurtles lowers CreateTurtles(breed, count, xcor, ycor,
// body) into a host call that performs the actual creation (it alone
// knows breed registration and random color/heading assignment),
// followed by the same step-loop shape as compileAskAll over just the
// newly created turtles, skipped entirely when body is empty (the
// common "create-turtles n [ ]" case).
func (e *emitter) compileCreateTurtles(n *mir.Node) error {
	for _, a := range n.Args {
		if _, err := e.node(a); err != nil {
			return err
		}
	}
	e.emit(lir.Instr{Op: lir.OpHostCall, HostCallName: hostName(n), HostCallArgs: len(n.Args), HostCallYields: false})

	if len(n.Body) == 0 {
		return nil
	}

	// The begin call pushes an iterator over the batch the create call
	// just made, same discipline as compileAskAll's begin/step pair —
	// emitted only when a body exists, so a body-less create never
	// leaves an unconsumed iterator on the host's stack.
	return e.askLoop("create-turtles-begin", "create-turtles-step", n.Body)
}
