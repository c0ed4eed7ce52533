// Package typeinfer implements the iterative fixed-point
// abstract-type inference pass.
package typeinfer

import (
	"fmt"

	"oxitortoise/internal/mir"
)

// TypeError is the build failure Infer returns, carrying the offending
// node and/or local name. Infer raises it for a call to a procedure the
// program does not define; it does not check that every binding ends
// up pinned to a concrete type.
type TypeError struct {
	Node    mir.NodeID
	Local   string
	Message string
}

func (e *TypeError) Error() string {
	if e.Local != "" {
		return fmt.Sprintf("typeinfer: local %q: %s", e.Local, e.Message)
	}
	return fmt.Sprintf("typeinfer: node %d: %s", e.Node, e.Message)
}

// varBindings tracks the three user-declared variable namespaces.
type varBindings struct {
	globals map[string]mir.AbstractTy
	turtle  map[string]mir.AbstractTy
	patch   map[string]mir.AbstractTy
}

func newVarBindings(p *mir.Program) *varBindings {
	vb := &varBindings{
		globals: make(map[string]mir.AbstractTy),
		turtle:  make(map[string]mir.AbstractTy),
		patch:   make(map[string]mir.AbstractTy),
	}
	for _, n := range p.GlobalNames {
		vb.globals[n] = mir.AbstractTy{Kind: mir.Bottom}
	}
	for _, n := range p.TurtleVarNames {
		vb.turtle[n] = mir.AbstractTy{Kind: mir.Bottom}
	}
	for _, n := range p.PatchVarNames {
		vb.patch[n] = mir.AbstractTy{Kind: mir.Bottom}
	}
	// Built-in turtle/patch fields start pre-pinned: the row schema
	// already fixes their representation (internal/world/turtle.go,
	// patch.go), so inference only has to validate, never invent, a
	// type for them.
	for name, kind := range map[string]mir.AbstractKind{
		"xcor": mir.Number, "ycor": mir.Number, "heading": mir.HeadingTy,
		"color": mir.ColorTy, "size": mir.Number, "who": mir.Number, "breed": mir.Number,
	} {
		vb.turtle[name] = mir.AbstractTy{Kind: kind}
	}
	for name, kind := range map[string]mir.AbstractKind{
		"pxcor": mir.Number, "pycor": mir.Number, "pcolor": mir.ColorTy,
	} {
		vb.patch[name] = mir.AbstractTy{Kind: kind}
	}
	return vb
}

// Infer runs passes to a fixed point. It mutates every node's
// OutputType and every
// Function.Locals[i].Type/ReturnType in place.
func Infer(p *mir.Program) error {
	vb := newVarBindings(p)

	for {
		changed := false
		for fnIdx := range p.Functions {
			fn := &p.Functions[fnIdx]
			c, err := inferPass(p, fn, vb)
			if err != nil {
				return err
			}
			changed = changed || c
		}
		if !changed {
			break
		}
	}
	return nil
}

type pass struct {
	p    *mir.Program
	fn   *mir.Function
	vb   *varBindings
	memo map[mir.NodeID]mir.AbstractTy

	localProposals  map[mir.LocalID]mir.AbstractTy
	returnProposal  mir.AbstractTy
	globalProposals map[string]mir.AbstractTy
	turtleProposals map[string]mir.AbstractTy
	patchProposals  map[string]mir.AbstractTy
}

func inferPass(p *mir.Program, fn *mir.Function, vb *varBindings) (bool, error) {
	ps := &pass{
		p: p, fn: fn, vb: vb, memo: make(map[mir.NodeID]mir.AbstractTy),
		localProposals:  make(map[mir.LocalID]mir.AbstractTy),
		globalProposals: make(map[string]mir.AbstractTy),
		turtleProposals: make(map[string]mir.AbstractTy),
		patchProposals:  make(map[string]mir.AbstractTy),
	}
	if err := ps.walkBlock(fn.Body); err != nil {
		return false, err
	}

	changed := false

	for id, proposed := range ps.localProposals {
		cur := fn.Locals[id].Type
		joined := mir.Join(cur, proposed)
		if joined.Kind != cur.Kind {
			fn.Locals[id].Type = joined
			changed = true
		}
	}
	if ps.returnProposal.Kind != mir.Bottom {
		joined := mir.Join(fn.ReturnType, ps.returnProposal)
		if joined.Kind != fn.ReturnType.Kind {
			fn.ReturnType = joined
			changed = true
		}
	}
	changed = mergeInto(vb.globals, ps.globalProposals) || changed
	changed = mergeInto(vb.turtle, ps.turtleProposals) || changed
	changed = mergeInto(vb.patch, ps.patchProposals) || changed

	return changed, nil
}

func mergeInto(bindings map[string]mir.AbstractTy, proposals map[string]mir.AbstractTy) bool {
	changed := false
	for name, proposed := range proposals {
		cur := bindings[name]
		joined := mir.Join(cur, proposed)
		if joined.Kind != cur.Kind {
			bindings[name] = joined
			changed = true
		}
	}
	return changed
}

func (ps *pass) walkBlock(body []mir.Statement) error {
	for _, s := range body {
		switch s.Kind {
		case mir.StmtEval:
			if _, err := ps.typeOf(s.Node); err != nil {
				return err
			}
		case mir.StmtIf:
			if _, err := ps.typeOf(s.Node); err != nil {
				return err
			}
			if err := ps.walkBlock(s.Then); err != nil {
				return err
			}
			if err := ps.walkBlock(s.Else); err != nil {
				return err
			}
		case mir.StmtRepeat:
			if _, err := ps.typeOf(s.Node); err != nil {
				return err
			}
			if err := ps.walkBlock(s.RepeatBody); err != nil {
				return err
			}
		case mir.StmtReturn:
			t, err := ps.typeOf(s.Node)
			if err != nil {
				return err
			}
			ps.returnProposal = mir.Join(ps.returnProposal, t)
		case mir.StmtStop:
		}
	}
	return nil
}

// typeOf computes (and caches, for this pass) node id's abstract type,
// recording proposals along the way for every Set* it encounters.
func (ps *pass) typeOf(id mir.NodeID) (mir.AbstractTy, error) {
	if t, ok := ps.memo[id]; ok {
		return t, nil
	}
	n := ps.p.Node(id)

	// Type every dependency first, regardless of whether this node kind's own
	// type computation consults it directly — e.g. Ask's recipient
	// agentset still needs its Set*/Return proposals collected.
	for _, dep := range n.Args {
		if _, err := ps.typeOf(dep); err != nil {
			return mir.AbstractTy{}, err
		}
	}

	argType := func(i int) (mir.AbstractTy, error) {
		if i >= len(n.Args) {
			return mir.AbstractTy{Kind: mir.Bottom}, nil
		}
		return ps.typeOf(n.Args[i])
	}

	var t mir.AbstractTy
	switch n.Kind {
	case mir.KNumberLit:
		t = mir.AbstractTy{Kind: mir.Number}
	case mir.KBoolLit:
		t = mir.AbstractTy{Kind: mir.Bool}
	case mir.KStringLit, mir.KNobodyLit:
		t = mir.AbstractTy{Kind: mir.Bottom}
	case mir.KGetLocal:
		t = ps.fn.Locals[n.Imm.Int].Type
	case mir.KSetLocal:
		v, err := argType(0)
		if err != nil {
			return t, err
		}
		ps.localProposals[mir.LocalID(n.Imm.Int)] = mir.Join(ps.localProposals[mir.LocalID(n.Imm.Int)], v)
		t = mir.AbstractTy{Kind: mir.Unit}
	case mir.KGetGlobal:
		t = ps.vb.globals[n.Imm.Str]
	case mir.KSetGlobal:
		v, err := argType(0)
		if err != nil {
			return t, err
		}
		ps.globalProposals[n.Imm.Str] = mir.Join(ps.globalProposals[n.Imm.Str], v)
		t = mir.AbstractTy{Kind: mir.Unit}
	case mir.KGetTurtleVar:
		t = ps.vb.turtle[n.Imm.Str]
	case mir.KSetTurtleVar:
		v, err := argType(0)
		if err != nil {
			return t, err
		}
		ps.turtleProposals[n.Imm.Str] = mir.Join(ps.turtleProposals[n.Imm.Str], v)
		t = mir.AbstractTy{Kind: mir.Unit}
	case mir.KGetPatchVar:
		t = ps.vb.patch[n.Imm.Str]
	case mir.KSetPatchVar:
		v, err := argType(0)
		if err != nil {
			return t, err
		}
		ps.patchProposals[n.Imm.Str] = mir.Join(ps.patchProposals[n.Imm.Str], v)
		t = mir.AbstractTy{Kind: mir.Unit}
	case mir.KAllTurtlesLit:
		t = mir.PrimAgentset(mir.TurtleTy)
	case mir.KAllPatchesLit:
		t = mir.PrimAgentset(mir.PatchTy)
	case mir.KAskAgentset, mir.KAskAllTurtles, mir.KAskAllPatches,
		mir.KClearAll, mir.KResetTicks, mir.KAdvanceTick, mir.KDie,
		mir.KFd, mir.KDiffuse, mir.KCreateTurtles, mir.KMemStore, mir.KHostCall:
		t = mir.AbstractTy{Kind: mir.Unit}
	case mir.KGetTick:
		t = mir.AbstractTy{Kind: mir.Number}
	case mir.KScaleColor:
		t = mir.AbstractTy{Kind: mir.ColorTy}
	case mir.KRandomInt:
		t = mir.AbstractTy{Kind: mir.Number}
	case mir.KOneOfList:
		t = mir.AbstractTy{Kind: mir.Bottom}
	case mir.KDistanceXY, mir.KEuclideanDistanceNoWrap:
		t = mir.AbstractTy{Kind: mir.Number}
	case mir.KGetPositionOf, mir.KMakePoint, mir.KOffsetDistanceByHeading:
		t = mir.AbstractTy{Kind: mir.PointTy}
	case mir.KPatchAt:
		t = mir.AbstractTy{Kind: mir.PatchTy}
	case mir.KBinOp:
		switch n.Imm.Str {
		case "+", "-", "*", "/":
			t = mir.AbstractTy{Kind: mir.Number}
		default:
			t = mir.AbstractTy{Kind: mir.Bool}
		}
	case mir.KUnOp:
		t = mir.AbstractTy{Kind: mir.Bool}
	case mir.KUserProcCall:
		callee, err := ps.p.FunctionByName(n.Imm.Str)
		if err != nil {
			return t, &TypeError{Node: id, Message: err.Error()}
		}
		t = callee.ReturnType
	case mir.KConst:
		t = mir.AbstractTy{Kind: mir.Number}
	case mir.KMemLoad, mir.KDeriveField, mir.KDeriveElement, mir.KArithPrim:
		t = mir.AbstractTy{Kind: mir.Number}
	default:
		t = mir.AbstractTy{Kind: mir.Bottom}
	}

	// Body statements (Ask/CreateTurtles closures) type-check in the
	// same pass so their own Set*/Return proposals are collected too.
	if len(n.Body) > 0 {
		if err := ps.walkBlock(n.Body); err != nil {
			return t, err
		}
	}

	n.OutputType = t
	ps.memo[id] = t
	return t, nil
}
