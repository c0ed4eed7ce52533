package mir

// Visitor is the hook set driven by VisitMIRFunction. Visitors should be
// order-tolerant: VisitMIRFunction walks statement order, then within
// each statement walks dependencies depth-first, matching the
// "impure nodes execute in dependency-depth-first order".
type Visitor interface {
	VisitStatement(p *Program, fn *Function, s *Statement)
	VisitNode(p *Program, fn *Function, id NodeID)
}

// VisitMIRFunction walks fn's body in statement order and, for each
// node reached, its dependencies depth-first.
//
// Visitors never mutate p from inside VisitNode/VisitStatement
// directly: callers that need to rewrite the program stage the rewrite
// into a pending queue and apply it after VisitMIRFunction returns
// (see internal/peephole's driver), which keeps the walk's view of the
// arena stable while rewrites are being decided.
func VisitMIRFunction(v Visitor, p *Program, fnID FunctionID) {
	fn := p.Function(fnID)
	visitBlock(v, p, fn, fn.Body)
}

func visitBlock(v Visitor, p *Program, fn *Function, body []Statement) {
	for i := range body {
		s := &body[i]
		switch s.Kind {
		case StmtEval, StmtReturn:
			if s.Node != InvalidNode {
				visitNodeDeps(v, p, fn, s.Node)
			}
		case StmtIf:
			visitNodeDeps(v, p, fn, s.Node)
			visitBlock(v, p, fn, s.Then)
			visitBlock(v, p, fn, s.Else)
		case StmtRepeat:
			visitNodeDeps(v, p, fn, s.Node)
			visitBlock(v, p, fn, s.RepeatBody)
		case StmtStop:
			// no operand node
		}
		v.VisitStatement(p, fn, s)
	}
}

func visitNodeDeps(v Visitor, p *Program, fn *Function, id NodeID) {
	n := p.Node(id)
	for _, dep := range n.Args {
		visitNodeDeps(v, p, fn, dep)
	}
	for _, stmt := range n.Body {
		visitBlock(v, p, fn, []Statement{stmt})
	}
	v.VisitNode(p, fn, id)
}
