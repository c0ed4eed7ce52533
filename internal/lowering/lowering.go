// Package lowering recursively expands high-level MIR nodes into the
// primitive set (MemLoad, MemStore, DeriveField, DeriveElement,
// arithmetic, host-call) that does not expand further.
//
// Field access gets the full treatment: GetTurtleVar/SetTurtleVar and
// GetPatchVar/SetPatchVar expand into genuine DeriveElement/
// DeriveField/MemLoad/MemStore nodes addressed with real schema
// offsets (internal/world's TurtleSchemaShape/PatchSchemaShape). The
// native embedder, however, does not expose the Go-side row buffer as
// WASM linear memory, so the MemLoad/MemStore nodes this pass produces
// also carry a HostCallName annotation that internal/hostsim uses to
// service the access through a host call keyed by field name rather
// than a raw address. The IR shape is fully addressed; the execution
// path that realizes it dispatches by name.
package lowering

import (
	"fmt"

	"oxitortoise/internal/mir"
	"oxitortoise/internal/rowbuf"
	"oxitortoise/internal/world"
)

// flatHostCalls maps a node kind with no nested body directly to the
// host-function name it lowers to; host-call is itself one of the
// non-expanding primitives, so this is a terminal rewrite.
var flatHostCalls = map[mir.NodeKind]string{
	mir.KClearAll:                "clear-all",
	mir.KResetTicks:              "reset-ticks",
	mir.KAdvanceTick:             "advance-tick",
	mir.KGetTick:                 "get-tick",
	mir.KDie:                     "die",
	mir.KFd:                      "forward",
	mir.KDiffuse:                 "diffuse-8",
	mir.KScaleColor:              "scale-color",
	mir.KRandomInt:               "random-int",
	mir.KOneOfList:               "one-of-list",
	mir.KGetPositionOf:           "get-position-of-self",
	mir.KEuclideanDistanceNoWrap: "distance-euclidean-no-wrap",
	mir.KOffsetDistanceByHeading: "offset-distance-by-heading",
	mir.KPatchAt:                 "patch-at",
}

// controlHostCalls maps node kinds that carry a nested Body closure
// (ask/create-turtles) to the host function that drives the iteration.
// Their Kind is left unchanged — mir2lir recognizes them structurally,
// by Kind, since a generic KHostCall node has no slot for an attached
// closure in this design — but their HostCallName is stamped for
// internal/hostabi catalogue lookup.
var controlHostCalls = map[mir.NodeKind]string{
	mir.KAskAllTurtles: "ask-all-turtles",
	mir.KAskAllPatches: "ask-all-patches",
	mir.KAskAgentset:   "ask-agentset",
	mir.KCreateTurtles: "create-turtles",
}

// Error is lowering's build-failure report, naming the offending node.
type Error struct {
	Node    mir.NodeID
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("lowering: node %d: %s", e.Node, e.Message)
}

// Lower rewrites p's functions in place, expanding every node reachable
// from a function body exactly once.
func Lower(p *mir.Program) error {
	l := &lowerer{
		p:            p,
		turtleSchema: world.TurtleSchemaShape(),
		patchSchema:  world.PatchSchemaShape(p.PatchVarNames),
		visited:      make(map[mir.NodeID]bool),
	}
	for i := range p.Functions {
		fn := &p.Functions[i]
		if err := l.block(fn.Body); err != nil {
			return err
		}
	}
	return nil
}

type lowerer struct {
	p            *mir.Program
	turtleSchema rowbuf.Schema
	patchSchema  rowbuf.Schema
	visited      map[mir.NodeID]bool
}

func (l *lowerer) block(body []mir.Statement) error {
	for i := range body {
		s := &body[i]
		if s.Node != mir.InvalidNode {
			if err := l.node(s.Node); err != nil {
				return err
			}
		}
		if err := l.block(s.Then); err != nil {
			return err
		}
		if err := l.block(s.Else); err != nil {
			return err
		}
		if err := l.block(s.RepeatBody); err != nil {
			return err
		}
	}
	return nil
}

// node expands id's node if it is one of the kinds this pass knows how
// to lower, then recurses into its (possibly newly created)
// dependencies and any attached closure body. Each node is visited at
// most once: a rewrite's replacement dependencies are themselves
// already-primitive (MemLoad/DeriveField/KConst/KHostCall), so they
// never need re-expansion, but id itself must not be processed twice if
// it is reachable via more than one path (e.g. a let-bound local used
// twice).
func (l *lowerer) node(id mir.NodeID) error {
	if l.visited[id] {
		return nil
	}
	l.visited[id] = true

	n := l.p.Node(id)
	kind := n.Kind

	switch kind {
	case mir.KGetTurtleVar:
		if err := l.expandGetField(id, l.turtleSchema, "current-turtle-index", "turtle-row-base", "turtle-field"); err != nil {
			return err
		}
	case mir.KSetTurtleVar:
		// Stores get their own host-hint prefix: a WASM import is
		// identified by its (module, field) name pair plus its type,
		// and a load (no params, one result) and a store (one param,
		// no result) of the same field cannot share one import entry.
		if err := l.expandSetField(id, l.turtleSchema, "current-turtle-index", "turtle-row-base", "turtle-field-set"); err != nil {
			return err
		}
	case mir.KGetPatchVar:
		if err := l.expandGetField(id, l.patchSchema, "current-patch-index", "patch-row-base", "patch-field"); err != nil {
			return err
		}
	case mir.KSetPatchVar:
		if err := l.expandSetField(id, l.patchSchema, "current-patch-index", "patch-row-base", "patch-field-set"); err != nil {
			return err
		}
	case mir.KGetGlobal:
		n.Kind = mir.KHostCall
		n.HostCallName = "global-get"
	case mir.KSetGlobal:
		n.Kind = mir.KHostCall
		n.HostCallName = "global-set"
	default:
		if name, ok := flatHostCalls[kind]; ok {
			n.Kind = mir.KHostCall
			n.HostCallName = name
		} else if name, ok := controlHostCalls[kind]; ok {
			n.HostCallName = name
		}
	}

	// Re-fetch: any expand* call above may have grown p.Nodes and
	// invalidated n's backing array.
	n = l.p.Node(id)
	for _, dep := range n.Args {
		if err := l.node(dep); err != nil {
			return err
		}
	}
	for _, stmt := range n.Body {
		if err := l.block([]mir.Statement{stmt}); err != nil {
			return err
		}
	}
	return nil
}

// expandGetField rewrites a GetTurtleVar/GetPatchVar node in place into
// DeriveElement(base, index, stride) -> DeriveField(elem, offset) ->
// MemLoad(fieldPtr). base and index come from host calls since only
// the running engine knows the current agent's row; offset and stride
// are compile-time constants, computed here from the real schema so
// the IR's arithmetic is accurate even though hostHint is what
// internal/hostsim actually dispatches on.
func (l *lowerer) expandGetField(id mir.NodeID, schema rowbuf.Schema, indexHostCall, baseHostCall, hostHint string) error {
	_, offset, _, err := schema.FieldDescAndOffset(l.p.Node(id).Imm.Str)
	if err != nil {
		return &Error{Node: id, Message: err.Error()}
	}

	baseID := l.p.AddNode(mir.Node{Kind: mir.KHostCall, HostCallName: baseHostCall, OutputType: mir.AbstractTy{Kind: mir.Number}})
	idxID := l.p.AddNode(mir.Node{Kind: mir.KHostCall, HostCallName: indexHostCall, OutputType: mir.AbstractTy{Kind: mir.Number}})
	strideID := l.p.AddNode(mir.Node{Kind: mir.KConst, Imm: mir.ImmValue{Int: int64(schema.Stride)}, OutputType: mir.AbstractTy{Kind: mir.Number}})
	elemID := l.p.AddNode(mir.Node{Kind: mir.KDeriveElement, Args: []mir.NodeID{baseID, idxID, strideID}, OutputType: mir.AbstractTy{Kind: mir.Number}})
	offsetID := l.p.AddNode(mir.Node{Kind: mir.KConst, Imm: mir.ImmValue{Int: int64(offset)}, OutputType: mir.AbstractTy{Kind: mir.Number}})
	fieldPtrID := l.p.AddNode(mir.Node{Kind: mir.KDeriveField, Args: []mir.NodeID{elemID, offsetID}, OutputType: mir.AbstractTy{Kind: mir.Number}})

	n := l.p.Node(id)
	outTy := n.OutputType
	n.Kind = mir.KMemLoad
	n.Args = []mir.NodeID{fieldPtrID}
	n.HostCallName = hostHint
	n.OutputType = outTy
	return nil
}

// expandSetField is expandGetField's dual: the stored value (the
// node's sole existing Arg) is carried through unchanged as MemStore's
// second operand.
func (l *lowerer) expandSetField(id mir.NodeID, schema rowbuf.Schema, indexHostCall, baseHostCall, hostHint string) error {
	n := l.p.Node(id)
	_, offset, _, err := schema.FieldDescAndOffset(n.Imm.Str)
	if err != nil {
		return &Error{Node: id, Message: err.Error()}
	}
	value := n.Args[0]

	baseID := l.p.AddNode(mir.Node{Kind: mir.KHostCall, HostCallName: baseHostCall, OutputType: mir.AbstractTy{Kind: mir.Number}})
	idxID := l.p.AddNode(mir.Node{Kind: mir.KHostCall, HostCallName: indexHostCall, OutputType: mir.AbstractTy{Kind: mir.Number}})
	strideID := l.p.AddNode(mir.Node{Kind: mir.KConst, Imm: mir.ImmValue{Int: int64(schema.Stride)}, OutputType: mir.AbstractTy{Kind: mir.Number}})
	elemID := l.p.AddNode(mir.Node{Kind: mir.KDeriveElement, Args: []mir.NodeID{baseID, idxID, strideID}, OutputType: mir.AbstractTy{Kind: mir.Number}})
	offsetID := l.p.AddNode(mir.Node{Kind: mir.KConst, Imm: mir.ImmValue{Int: int64(offset)}, OutputType: mir.AbstractTy{Kind: mir.Number}})
	fieldPtrID := l.p.AddNode(mir.Node{Kind: mir.KDeriveField, Args: []mir.NodeID{elemID, offsetID}, OutputType: mir.AbstractTy{Kind: mir.Number}})

	n = l.p.Node(id)
	n.Kind = mir.KMemStore
	n.Args = []mir.NodeID{fieldPtrID, value}
	n.HostCallName = hostHint
	n.OutputType = mir.AbstractTy{Kind: mir.Unit}
	return nil
}
