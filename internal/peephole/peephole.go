// Package peephole applies type-directed rewrites to MIR:
// ask-recipients specialization and the distancexy decomposition.
package peephole

import "oxitortoise/internal/mir"

// rewrite is a staged mutation. Each entry closes over everything it needs to
// perform its swap once the full visit of a function has completed.
type rewrite func(p *mir.Program)

// Run visits every function's node graph once, queues every applicable
// rewrite, then applies them all.
func Run(p *mir.Program) {
	var pending []rewrite
	for i := range p.Functions {
		fn := &p.Functions[i]
		collect(p, fn.Body, &pending)
	}
	for _, r := range pending {
		r(p)
	}
}

func collect(p *mir.Program, body []mir.Statement, pending *[]rewrite) {
	for _, s := range body {
		if s.Node != mir.InvalidNode {
			collectNode(p, s.Node, pending)
		}
		collect(p, s.Then, pending)
		collect(p, s.Else, pending)
		collect(p, s.RepeatBody, pending)
	}
}

func collectNode(p *mir.Program, id mir.NodeID, pending *[]rewrite) {
	n := p.Node(id)
	for _, dep := range n.Args {
		collectNode(p, dep, pending)
	}
	for _, stmt := range n.Body {
		collect(p, []mir.Statement{stmt}, pending)
	}

	switch n.Kind {
	case mir.KAskAgentset:
		if len(n.Args) == 1 {
			recipient := p.Node(n.Args[0])
			switch recipient.Kind {
			case mir.KAllTurtlesLit:
				*pending = append(*pending, askSpecialization(id, mir.KAskAllTurtles))
			case mir.KAllPatchesLit:
				*pending = append(*pending, askSpecialization(id, mir.KAskAllPatches))
			}
		}
	case mir.KDistanceXY:
		*pending = append(*pending, distanceXYDecomposition(id))
	}
}

// askSpecialization rewrites Ask(AllTurtles|AllPatches, body) into
// the specialized node carrying the agent class directly, eliminating
// the agentset allocation at runtime. The old recipient-literal node
// is left in the arena but marked dead; code emission ignores it.
func askSpecialization(askID mir.NodeID, newKind mir.NodeKind) rewrite {
	return func(p *mir.Program) {
		n := p.Node(askID)
		deadRecipient := n.Args[0]
		n.Kind = newKind
		n.Args = nil
		p.MarkDead(deadRecipient)
	}
}

// distanceXYDecomposition replaces distancexy with
// get-position-of(agent) + make-point(x,y) +
// euclidean-distance-no-wrap(a,b) so subsequent passes can evaluate
// parts independently. This is the placeholder-swap idiom applied a
// layer up from lowering: the original DistanceXY
// node's identity (its NodeID) is preserved — any statement or node
// that already depends on it keeps working — but its Kind/Args are
// overwritten in place to become the EuclideanDistanceNoWrap call.
func distanceXYDecomposition(id mir.NodeID) rewrite {
	return func(p *mir.Program) {
		n := p.Node(id)
		if n.Kind != mir.KDistanceXY {
			return // already rewritten via a shared dependency
		}
		x, y := n.Args[0], n.Args[1]
		posOfSelf := p.AddNode(mir.Node{Kind: mir.KGetPositionOf, OutputType: mir.AbstractTy{Kind: mir.PointTy}})
		point := p.AddNode(mir.Node{Kind: mir.KMakePoint, Args: []mir.NodeID{x, y}, OutputType: mir.AbstractTy{Kind: mir.PointTy}})
		// Re-fetch: AddNode may have grown p.Nodes and invalidated n.
		n = p.Node(id)
		n.Kind = mir.KEuclideanDistanceNoWrap
		n.Args = []mir.NodeID{posOfSelf, point}
		n.OutputType = mir.AbstractTy{Kind: mir.Number}
	}
}
