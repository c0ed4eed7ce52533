// Package stackify is the scheduling stage's verification step: given
// an LIR instruction sequence, confirm it is a valid WebAssembly-shaped
// schedule (operands available on the stack at each consumer, balanced
// block/loop/if nesting, no value left stranded past a function's end).
//
// The fully general form of this stage is a tree algorithm classifying
// each instruction's output as available/release-to-parent/capture and
// recording getters for captured values — the general register
// allocator a compiler needs when one value can have multiple
// consumers. internal/mir2lir's package doc comment explains why this
// MIR never produces that situation (every node has exactly one
// consumer by construction), so there is nothing to classify or spill:
// Verify's job reduces to confirming the stack-balance invariant the
// direct-emission scheme in internal/mir2lir is supposed to already
// guarantee, catching a mis-emission rather than performing allocation.
package stackify

import (
	"fmt"

	"oxitortoise/internal/lir"
)

// Error reports a stack-balance violation at a specific instruction
// index within a function.
type Error struct {
	Function string
	Index    int
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("stackify: %s[%d]: %s", e.Function, e.Index, e.Message)
}

// frame records one open Block/Loop/If and the stack depth at which it
// was entered, which an Else restores for its second branch.
type frame struct {
	op        lir.Op
	depthOnEntry int
}

// Verify walks every function in mod and confirms the stack never goes
// negative, every Block/Loop/If is matched by an End (or Else then
// End), a Unit-returning function ends with an empty stack, and a
// value-returning one has at least one value on the stack at every
// OpReturn and at its end.
func Verify(mod *lir.Module) error {
	for _, fn := range mod.Functions {
		if err := verifyFunction(&fn); err != nil {
			return err
		}
	}
	return nil
}

func verifyFunction(fn *lir.Function) error {
	depth := 0
	var frames []frame

	for i, ins := range fn.Body {
		switch ins.Op {
		case lir.OpConstF64, lir.OpLocalGet:
			depth++
		case lir.OpLocalSet, lir.OpDrop:
			depth--
		case lir.OpLocalTee:
			// net zero: pops then pushes the same value
		case lir.OpHostCall:
			depth -= ins.HostCallArgs
			if depth < 0 {
				return &Error{Function: fn.Name, Index: i, Message: "host call consumes more values than are on the stack"}
			}
			if ins.HostCallYields {
				depth++
			}
		case lir.OpCall:
			depth -= ins.CallArgs
			if depth < 0 {
				return &Error{Function: fn.Name, Index: i, Message: "call consumes more values than are on the stack"}
			}
			if ins.CallYields {
				depth++
			}
		case lir.OpArith, lir.OpCompare, lir.OpBoolOp:
			want := 2
			if ins.Operator == "not" {
				want = 1
			}
			depth -= want
			if depth < 0 {
				return &Error{Function: fn.Name, Index: i, Message: "operator consumes more values than are on the stack"}
			}
			depth++
		case lir.OpBlock, lir.OpLoop:
			frames = append(frames, frame{op: ins.Op, depthOnEntry: depth})
		case lir.OpIf:
			depth-- // condition
			if depth < 0 {
				return &Error{Function: fn.Name, Index: i, Message: "if with no condition on the stack"}
			}
			frames = append(frames, frame{op: ins.Op, depthOnEntry: depth})
		case lir.OpElse:
			if len(frames) == 0 || frames[len(frames)-1].op != lir.OpIf {
				return &Error{Function: fn.Name, Index: i, Message: "else without a matching if"}
			}
			depth = frames[len(frames)-1].depthOnEntry
		case lir.OpEnd:
			if len(frames) == 0 {
				return &Error{Function: fn.Name, Index: i, Message: "end without a matching block/loop/if"}
			}
			frames = frames[:len(frames)-1]
		case lir.OpBr, lir.OpBrIf:
			if ins.BrDepth >= len(frames)+1 {
				return &Error{Function: fn.Name, Index: i, Message: "branch depth exceeds enclosing structure nesting"}
			}
			if ins.Op == lir.OpBrIf {
				depth--
				if depth < 0 {
					return &Error{Function: fn.Name, Index: i, Message: "br_if with no condition on the stack"}
				}
			}
		case lir.OpReturn:
			if fn.ReturnsValue && depth < 1 {
				return &Error{Function: fn.Name, Index: i, Message: "return with no value on the stack for a value-returning function"}
			}
		}
	}

	if len(frames) != 0 {
		return &Error{Function: fn.Name, Index: len(fn.Body), Message: "unclosed block/loop/if at function end"}
	}
	if fn.ReturnsValue && depth < 1 {
		return &Error{Function: fn.Name, Index: len(fn.Body), Message: "function falls off the end without leaving a return value"}
	}
	if !fn.ReturnsValue && depth != 0 {
		return &Error{Function: fn.Name, Index: len(fn.Body), Message: "values left on the stack at the end of a Unit-returning function"}
	}
	return nil
}
