package stackify

import (
	"testing"

	"oxitortoise/internal/lir"
)

func mod(fn lir.Function) *lir.Module {
	return &lir.Module{Functions: []lir.Function{fn}}
}

func TestBalancedFunctionVerifies(t *testing.T) {
	err := Verify(mod(lir.Function{
		Name: "go",
		Body: []lir.Instr{
			{Op: lir.OpConstF64, ConstValue: 1},
			{Op: lir.OpConstF64, ConstValue: 2},
			{Op: lir.OpArith, Operator: "+"},
			{Op: lir.OpDrop},
		},
	}))
	if err != nil {
		t.Fatalf("balanced body rejected: %v", err)
	}
}

func TestOperandUnderflowRejected(t *testing.T) {
	err := Verify(mod(lir.Function{
		Name: "go",
		Body: []lir.Instr{
			{Op: lir.OpConstF64, ConstValue: 1},
			{Op: lir.OpArith, Operator: "+"},
		},
	}))
	if err == nil {
		t.Fatal("expected an underflow error")
	}
}

func TestUnclosedBlockRejected(t *testing.T) {
	err := Verify(mod(lir.Function{
		Name: "go",
		Body: []lir.Instr{{Op: lir.OpBlock}},
	}))
	if err == nil {
		t.Fatal("expected an unclosed-block error")
	}
}

func TestElseWithoutIfRejected(t *testing.T) {
	err := Verify(mod(lir.Function{
		Name: "go",
		Body: []lir.Instr{
			{Op: lir.OpBlock},
			{Op: lir.OpElse},
			{Op: lir.OpEnd},
		},
	}))
	if err == nil {
		t.Fatal("expected an else-without-if error")
	}
}

func TestBranchDepthBeyondNestingRejected(t *testing.T) {
	err := Verify(mod(lir.Function{
		Name: "go",
		Body: []lir.Instr{
			{Op: lir.OpBlock},
			{Op: lir.OpBr, BrDepth: 5},
			{Op: lir.OpEnd},
		},
	}))
	if err == nil {
		t.Fatal("expected a branch-depth error")
	}
}

func TestValueReturningFunctionMustLeaveAValue(t *testing.T) {
	err := Verify(mod(lir.Function{
		Name:         "pick",
		ReturnsValue: true,
		Body:         []lir.Instr{},
	}))
	if err == nil {
		t.Fatal("expected a missing-return-value error")
	}

	err = Verify(mod(lir.Function{
		Name:         "pick",
		ReturnsValue: true,
		Body: []lir.Instr{
			{Op: lir.OpConstF64, ConstValue: 42},
			{Op: lir.OpReturn},
		},
	}))
	if err != nil {
		t.Fatalf("value-returning function rejected: %v", err)
	}
}

func TestHostCallArityChecked(t *testing.T) {
	err := Verify(mod(lir.Function{
		Name: "go",
		Body: []lir.Instr{
			{Op: lir.OpHostCall, HostCallName: "advance-tick", HostCallArgs: 1},
		},
	}))
	if err == nil {
		t.Fatal("expected an error for a host call with missing operands")
	}
}
