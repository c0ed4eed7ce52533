package mir2lir

import (
	"fmt"

	"oxitortoise/internal/lir"
	"oxitortoise/internal/mir"
)

var arithOps = map[string]bool{"+": true, "-": true, "*": true, "/": true}
var compareOps = map[string]bool{"<": true, ">": true, "<=": true, ">=": true, "=": true}

// hostName composes a node's host-import name with its field/variable
// name, when it carries one (internal/lowering sets HostCallName to a
// category — "turtle-field", "global-get", "diffuse-8" — and leaves the
// original name in Imm.Str).
func hostName(n *mir.Node) string {
	if n.Imm.Str == "" {
		return n.HostCallName
	}
	return n.HostCallName + ":" + n.Imm.Str
}

// node compiles id, leaving its result (if any) on the stack, and
// reports whether it left a value (false for Unit-typed nodes, which a
// statement-level caller must not try to drop).
func (e *emitter) node(id mir.NodeID) (bool, error) {
	n := e.p.Node(id)
	yields := n.OutputType.Kind != mir.Unit

	switch n.Kind {
	case mir.KNumberLit:
		e.emit(lir.Instr{Op: lir.OpConstF64, ConstValue: n.Imm.Float})
	case mir.KBoolLit:
		v := 0.0
		if n.Imm.Bool {
			v = 1.0
		}
		e.emit(lir.Instr{Op: lir.OpConstF64, ConstValue: v})
	case mir.KStringLit, mir.KNobodyLit:
		// Strings/nobody are compile-time keys already consumed by
		// internal/astmir and internal/lowering (var names, breed
		// names); no string value is ever pushed or compared at
		// runtime in this design, so a placeholder 0 is pushed to keep
		// stack shape consistent for any statement that evaluates one
		// for effect.
		e.emit(lir.Instr{Op: lir.OpConstF64, ConstValue: 0})
	case mir.KAllTurtlesLit, mir.KAllPatchesLit:
		// An agentset literal's identity is fully erased at compile
		// time — the ask that consumes it dispatches on its inferred
		// type, never on a runtime value — but the node can still be
		// evaluated for its value when let-bound to a local. The
		// placeholder keeps the stack shape consistent for that case.
		e.emit(lir.Instr{Op: lir.OpConstF64, ConstValue: 0})
	case mir.KConst:
		e.emit(lir.Instr{Op: lir.OpConstF64, ConstValue: float64(n.Imm.Int)})
	case mir.KGetLocal:
		e.emit(lir.Instr{Op: lir.OpLocalGet, Local: int(n.Imm.Int)})
	case mir.KSetLocal:
		if _, err := e.node(n.Args[0]); err != nil {
			return false, err
		}
		e.emit(lir.Instr{Op: lir.OpLocalSet, Local: int(n.Imm.Int)})
	case mir.KMemLoad:
		// The DeriveElement/DeriveField chain in n.Args is not walked:
		// see the package doc comment and internal/lowering's doc
		// comment for the disclosed field-access simplification.
		e.emit(lir.Instr{Op: lir.OpHostCall, HostCallName: hostName(n), HostCallArgs: 0, HostCallYields: yields})
	case mir.KMemStore:
		if _, err := e.node(n.Args[len(n.Args)-1]); err != nil {
			return false, err
		}
		e.emit(lir.Instr{Op: lir.OpHostCall, HostCallName: hostName(n), HostCallArgs: 1, HostCallYields: yields})
	case mir.KHostCall:
		argCount := 0
		for _, a := range n.Args {
			if _, err := e.node(a); err != nil {
				return false, err
			}
			argCount += e.nodeValueCount(a)
		}
		e.emit(lir.Instr{Op: lir.OpHostCall, HostCallName: hostName(n), HostCallArgs: argCount, HostCallYields: yields})
	case mir.KMakePoint:
		// A point is never boxed as its own runtime value (internal/
		// value has no Point Variant — see DESIGN.md): it is just its
		// two already-computed coordinates left on the stack, so this
		// emits no instruction of its own. Consequently a KMakePoint
		// node (or any node whose nodeValueCount is 2) may only appear
		// as a call argument, never as a bare top-level statement —
		// statement() has no way to drop two values for one node.
		if _, err := e.node(n.Args[0]); err != nil {
			return false, err
		}
		if _, err := e.node(n.Args[1]); err != nil {
			return false, err
		}
	case mir.KBinOp:
		if err := e.compileBinOp(n); err != nil {
			return false, err
		}
	case mir.KUnOp:
		if _, err := e.node(n.Args[0]); err != nil {
			return false, err
		}
		e.emit(lir.Instr{Op: lir.OpBoolOp, Operator: n.Imm.Str})
	case mir.KUserProcCall:
		for _, a := range n.Args {
			if _, err := e.node(a); err != nil {
				return false, err
			}
		}
		callee, err := e.p.FunctionByName(n.Imm.Str)
		if err != nil {
			return false, &EmitError{Node: id, ConcreteType: "KUserProcCall", Message: err.Error()}
		}
		yields = callee.ReturnsValue
		e.emit(lir.Instr{Op: lir.OpCall, CalleeName: n.Imm.Str, CallArgs: len(n.Args), CallYields: yields})
	case mir.KAskAllTurtles, mir.KAskAllPatches:
		if err := e.compileAskAll(n); err != nil {
			return false, err
		}
		yields = false
	case mir.KAskAgentset:
		if err := e.compileAskAgentset(id, n); err != nil {
			return false, err
		}
		yields = false
	case mir.KCreateTurtles:
		if err := e.compileCreateTurtles(n); err != nil {
			return false, err
		}
		yields = false
	default:
		return false, &EmitError{Node: id, ConcreteType: kindName(n.Kind), Message: "no write_lir_execution for this node kind"}
	}
	return yields, nil
}

func (e *emitter) compileBinOp(n *mir.Node) error {
	if _, err := e.node(n.Args[0]); err != nil {
		return err
	}
	if _, err := e.node(n.Args[1]); err != nil {
		return err
	}
	switch {
	case arithOps[n.Imm.Str]:
		e.emit(lir.Instr{Op: lir.OpArith, Operator: n.Imm.Str})
	case compareOps[n.Imm.Str]:
		e.emit(lir.Instr{Op: lir.OpCompare, Operator: n.Imm.Str})
	default:
		e.emit(lir.Instr{Op: lir.OpBoolOp, Operator: n.Imm.Str})
	}
	return nil
}

func kindName(k mir.NodeKind) string {
	return fmt.Sprintf("NodeKind(%d)", k)
}

// nodeValueCount reports how many stack values compiling id actually
// leaves behind. Almost every node leaves 0 or 1 (the common case
// node()'s own bool return already tracks), but a handful of
// point-valued host calls — get-position-of-self, offset-distance-by-
// heading, and the synthetic KMakePoint node peephole's distance-xy
// decomposition builds — push two f64s (x, y) rather than one, since
// internal/value's boxed Any has no Point variant to hold them as a
// single value. A generic KHostCall's argument-count accounting must
// use this instead of a flat 1-per-arg count whenever such a node
// appears as an argument.
func (e *emitter) nodeValueCount(id mir.NodeID) int {
	n := e.p.Node(id)
	if n.Kind == mir.KMakePoint {
		return 2
	}
	if n.Kind == mir.KHostCall {
		if entry, ok := e.cat.Lookup(hostName(n)); ok {
			return len(entry.Results)
		}
	}
	if n.OutputType.Kind != mir.Unit {
		return 1
	}
	return 0
}
