// Package mir2lir is the MIR→LIR builder.
//
// The fully general shape of this stage is a two-stage pipeline —
// MIR→LIR references values by (producing instruction, ordinal), then
// internal/stackify classifies each value as available/release-to-
// parent/capture and builds a getter side table, because in general a
// node's value may be consumed by more than one downstream site. This
// package's input MIR never produces that situation: internal/astmir
// allocates a fresh node for every syntactic occurrence of a value
// (rebuilding GetLocal/GetTurtleVar et al. per use rather than sharing
// one node instance across sites), so every node in practice has
// exactly one consumer. Under that — disclosed — restriction, emitting
// directly into a WASM-shaped stack sequence is equivalent to running
// the full classify-and-spill algorithm and then simplifying away every
// capture, so this package does that directly; internal/stackify's
// remaining job is verifying the stack-balance invariant the direct
// emission is supposed to already guarantee.
package mir2lir

import (
	"fmt"

	"oxitortoise/internal/hostabi"
	"oxitortoise/internal/lir"
	"oxitortoise/internal/mir"
)

// EmitError reports a node whose LIR emission is unimplemented for
// the concrete type it carries.
type EmitError struct {
	Node         mir.NodeID
	ConcreteType string
	Message      string
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("mir2lir: node %d (%s): %s", e.Node, e.ConcreteType, e.Message)
}

// Compile lowers every function of p (already processed by
// internal/typeinfer, internal/peephole and internal/lowering) into a
// lir.Module.
func Compile(p *mir.Program) (*lir.Module, error) {
	mod := &lir.Module{}
	for i := range p.Functions {
		fn := &p.Functions[i]
		lf, err := compileFunction(p, fn)
		if err != nil {
			return nil, err
		}
		mod.Functions = append(mod.Functions, *lf)
	}
	return mod, nil
}

type emitter struct {
	p         *mir.Program
	fn        *mir.Function
	numLocals int
	instrs    []lir.Instr
	cat       *hostabi.Catalogue
}

func compileFunction(p *mir.Program, fn *mir.Function) (*lir.Function, error) {
	cat, err := hostabi.Default()
	if err != nil {
		return nil, err
	}
	e := &emitter{p: p, fn: fn, numLocals: len(fn.Locals), cat: cat}
	if err := e.block(fn.Body); err != nil {
		return nil, err
	}
	return &lir.Function{
		Name:         fn.Name,
		NumArgs:      len(fn.Args),
		NumLocals:    e.numLocals,
		ReturnsValue: fn.ReturnsValue,
		Body:         e.instrs,
	}, nil
}

func (e *emitter) emit(ins lir.Instr) { e.instrs = append(e.instrs, ins) }

// allocTemp reserves a fresh local slot (used by Repeat's hidden
// counter), beyond the slots internal/astmir assigned to declared
// locals and arguments.
func (e *emitter) allocTemp() int {
	slot := e.numLocals
	e.numLocals++
	return slot
}

func (e *emitter) block(stmts []mir.Statement) error {
	for _, s := range stmts {
		if err := e.statement(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *emitter) statement(s mir.Statement) error {
	switch s.Kind {
	case mir.StmtEval:
		yields, err := e.node(s.Node)
		if err != nil {
			return err
		}
		if yields {
			e.emit(lir.Instr{Op: lir.OpDrop})
		}
	case mir.StmtIf:
		return e.compileIf(s)
	case mir.StmtRepeat:
		return e.compileRepeat(s)
	case mir.StmtReturn:
		if _, err := e.node(s.Node); err != nil {
			return err
		}
		e.emit(lir.Instr{Op: lir.OpReturn})
	case mir.StmtStop:
		e.emit(lir.Instr{Op: lir.OpReturn})
	}
	return nil
}

func (e *emitter) compileIf(s mir.Statement) error {
	if _, err := e.node(s.Node); err != nil {
		return err
	}
	e.emit(lir.Instr{Op: lir.OpIf})
	if err := e.block(s.Then); err != nil {
		return err
	}
	if len(s.Else) > 0 {
		e.emit(lir.Instr{Op: lir.OpElse})
		if err := e.block(s.Else); err != nil {
			return err
		}
	}
	e.emit(lir.Instr{Op: lir.OpEnd})
	return nil
}

// compileRepeat emits a Loop with the count as an iteration-carried
// input: a counted down-loop over a hidden
// temp local, the idiomatic WASM encoding of a bounded repeat (block +
// loop + br_if 1 to exit, br 0 to continue).
func (e *emitter) compileRepeat(s mir.Statement) error {
	if _, err := e.node(s.Node); err != nil {
		return err
	}
	counter := e.allocTemp()
	e.emit(lir.Instr{Op: lir.OpLocalSet, Local: counter})

	e.emit(lir.Instr{Op: lir.OpBlock})
	e.emit(lir.Instr{Op: lir.OpLoop})
	e.emit(lir.Instr{Op: lir.OpLocalGet, Local: counter})
	e.emit(lir.Instr{Op: lir.OpConstF64, ConstValue: 0})
	e.emit(lir.Instr{Op: lir.OpCompare, Operator: "<="})
	e.emit(lir.Instr{Op: lir.OpBrIf, BrDepth: 1})
	if err := e.block(s.RepeatBody); err != nil {
		return err
	}
	e.emit(lir.Instr{Op: lir.OpLocalGet, Local: counter})
	e.emit(lir.Instr{Op: lir.OpConstF64, ConstValue: 1})
	e.emit(lir.Instr{Op: lir.OpArith, Operator: "-"})
	e.emit(lir.Instr{Op: lir.OpLocalSet, Local: counter})
	e.emit(lir.Instr{Op: lir.OpBr, BrDepth: 0})
	e.emit(lir.Instr{Op: lir.OpEnd})
	e.emit(lir.Instr{Op: lir.OpEnd})
	return nil
}
