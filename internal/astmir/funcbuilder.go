package astmir

import (
	"oxitortoise/internal/mir"
)

// funcBuilder walks one procedure's statement tree, threading the
// local-name scope.
type funcBuilder struct {
	b      *builder
	fn     *mir.Function
	locals map[string]mir.LocalID
	scopes []varScope
}

func (fb *funcBuilder) buildBlock(stmts []RawNode) ([]mir.Statement, error) {
	out := make([]mir.Statement, 0, len(stmts))
	for _, s := range stmts {
		built, err := fb.buildStatement(s)
		if err != nil {
			return nil, err
		}
		out = append(out, built...)
	}
	return out, nil
}

// buildStatement returns zero or more mir.Statement (zero for a
// let-binding folded purely into the locals map with no side effect —
// never happens here since every let-binding assigns — kept as a slice
// return for symmetry with buildBlock).
func (fb *funcBuilder) buildStatement(s RawNode) ([]mir.Statement, error) {
	switch s.Tag {
	case "let-binding":
		if s.Node == nil {
			return nil, buildErr("let-binding", "missing bound node")
		}
		valID, err := fb.buildValue(*s.Node)
		if err != nil {
			return nil, err
		}
		localID := fb.fn.AddLocal(s.Name, mir.AbstractTy{Kind: mir.Bottom})
		fb.locals[s.Name] = localID
		setID := fb.b.prog.AddNode(mir.Node{
			Kind: mir.KSetLocal,
			Args: []mir.NodeID{valID},
			Imm:  mir.ImmValue{Int: int64(localID)},
		})
		return []mir.Statement{{Kind: mir.StmtEval, Node: setID}}, nil

	case "command-app":
		return fb.buildCommand(s)

	case "command-block":
		return fb.buildBlock(s.Statements)

	default:
		// A bare reporter used for effect (rare, but legal: any Node may
		// appear where a statement is expected if the builder treats it
		// as an evaluate-for-effect).
		id, err := fb.buildValue(s)
		if err != nil {
			return nil, err
		}
		return []mir.Statement{{Kind: mir.StmtEval, Node: id}}, nil
	}
}

func (fb *funcBuilder) buildCommand(s RawNode) ([]mir.Statement, error) {
	switch s.Name {
	case "clear-all":
		return fb.oneEval(mir.Node{Kind: mir.KClearAll})
	case "reset-ticks":
		return fb.oneEval(mir.Node{Kind: mir.KResetTicks})
	case "advance-tick":
		amt, err := fb.argOrConst(s, 0, 1)
		if err != nil {
			return nil, err
		}
		return fb.oneEval(mir.Node{Kind: mir.KAdvanceTick, Args: []mir.NodeID{amt}})
	case "die":
		return fb.oneEval(mir.Node{Kind: mir.KDie})
	case "fd":
		if len(s.Args) != 1 {
			return nil, buildErr("fd", "expected 1 argument, got %d", len(s.Args))
		}
		dist, err := fb.buildValue(s.Args[0])
		if err != nil {
			return nil, err
		}
		return fb.oneEval(mir.Node{Kind: mir.KFd, Args: []mir.NodeID{dist}})
	case "diffuse":
		if len(s.Args) != 2 || s.Args[0].Tag != "string" {
			return nil, buildErr("diffuse", "expected (string varName, amount)")
		}
		amt, err := fb.buildValue(s.Args[1])
		if err != nil {
			return nil, err
		}
		return fb.oneEval(mir.Node{Kind: mir.KDiffuse, Imm: mir.ImmValue{Str: s.Args[0].String}, Args: []mir.NodeID{amt}})
	case "create-turtles":
		if len(s.Args) != 4 || s.Args[1].Tag != "string" {
			return nil, buildErr("create-turtles", "expected (count, string breed, xcor, ycor)")
		}
		count, err := fb.buildValue(s.Args[0])
		if err != nil {
			return nil, err
		}
		xcor, err := fb.buildValue(s.Args[2])
		if err != nil {
			return nil, err
		}
		ycor, err := fb.buildValue(s.Args[3])
		if err != nil {
			return nil, err
		}
		var body []mir.Statement
		if s.Block != nil {
			body, err = fb.buildBlock(s.Block.Statements)
			if err != nil {
				return nil, err
			}
		}
		id := fb.b.prog.AddNode(mir.Node{
			Kind: mir.KCreateTurtles,
			Imm:  mir.ImmValue{Str: s.Args[1].String},
			Args: []mir.NodeID{count, xcor, ycor},
			Body: body,
		})
		return []mir.Statement{{Kind: mir.StmtEval, Node: id}}, nil
	case "ask":
		if len(s.Args) != 1 || s.Block == nil {
			return nil, buildErr("ask", "expected one recipient argument and a block")
		}
		recipient, err := fb.buildValue(s.Args[0])
		if err != nil {
			return nil, err
		}
		body, err := fb.buildBlock(s.Block.Statements)
		if err != nil {
			return nil, err
		}
		id := fb.b.prog.AddNode(mir.Node{Kind: mir.KAskAgentset, Args: []mir.NodeID{recipient}, Body: body})
		return []mir.Statement{{Kind: mir.StmtEval, Node: id}}, nil
	case "set":
		if len(s.Args) != 2 || s.Args[0].Tag != "string" {
			return nil, buildErr("set", "expected (string varName, value)")
		}
		valID, err := fb.buildValue(s.Args[1])
		if err != nil {
			return nil, err
		}
		setKind, err := fb.setKindFor(s.Args[0].String)
		if err != nil {
			return nil, err
		}
		id := fb.b.prog.AddNode(mir.Node{Kind: setKind, Imm: mir.ImmValue{Str: s.Args[0].String}, Args: []mir.NodeID{valID}})
		return []mir.Statement{{Kind: mir.StmtEval, Node: id}}, nil
	case "report":
		if len(s.Args) != 1 {
			return nil, buildErr("report", "expected 1 argument")
		}
		valID, err := fb.buildValue(s.Args[0])
		if err != nil {
			return nil, err
		}
		return []mir.Statement{{Kind: mir.StmtReturn, Node: valID}}, nil
	case "stop":
		return []mir.Statement{{Kind: mir.StmtStop, Node: mir.InvalidNode}}, nil
	case "if":
		if len(s.Args) != 1 || s.Block == nil {
			return nil, buildErr("if", "expected a condition argument and a block")
		}
		cond, err := fb.buildValue(s.Args[0])
		if err != nil {
			return nil, err
		}
		then, err := fb.buildBlock(s.Block.Statements)
		if err != nil {
			return nil, err
		}
		return []mir.Statement{{Kind: mir.StmtIf, Node: cond, Then: then}}, nil
	case "repeat":
		if len(s.Args) != 1 || s.Block == nil {
			return nil, buildErr("repeat", "expected a count argument and a block")
		}
		count, err := fb.buildValue(s.Args[0])
		if err != nil {
			return nil, err
		}
		rbody, err := fb.buildBlock(s.Block.Statements)
		if err != nil {
			return nil, err
		}
		return []mir.Statement{{Kind: mir.StmtRepeat, Node: count, RepeatBody: rbody}}, nil
	default:
		return nil, buildErr(s.Name, "unknown command primitive")
	}
}

func (fb *funcBuilder) oneEval(n mir.Node) ([]mir.Statement, error) {
	id := fb.b.prog.AddNode(n)
	return []mir.Statement{{Kind: mir.StmtEval, Node: id}}, nil
}

// argOrConst returns Args[i] if present, otherwise a literal constant
// node (advance-tick defaults its amount to 1, matching NetLogo's bare
// "tick" command).
func (fb *funcBuilder) argOrConst(s RawNode, i int, fallback float64) (mir.NodeID, error) {
	if i < len(s.Args) {
		return fb.buildValue(s.Args[i])
	}
	return fb.b.prog.AddNode(mir.Node{Kind: mir.KNumberLit, Imm: mir.ImmValue{Float: fallback}, IsPure: true}), nil
}

func (fb *funcBuilder) setKindFor(name string) (mir.NodeKind, error) {
	for _, scope := range fb.scopes {
		switch scope {
		case scopeTurtleBuiltin:
			if turtleBuiltinVars[name] {
				return mir.KSetTurtleVar, nil
			}
		case scopeTurtleVar:
			if contains(fb.b.prog.TurtleVarNames, name) {
				return mir.KSetTurtleVar, nil
			}
		case scopePatchBuiltin:
			if patchBuiltinVars[name] {
				return mir.KSetPatchVar, nil
			}
		case scopePatchVar:
			if contains(fb.b.prog.PatchVarNames, name) {
				return mir.KSetPatchVar, nil
			}
		case scopeGlobal:
			if contains(fb.b.prog.GlobalNames, name) {
				return mir.KSetGlobal, nil
			}
		}
	}
	return 0, buildErr("set", "undefined variable %q", name)
}

func (fb *funcBuilder) getKindFor(name string) (mir.NodeKind, error) {
	for _, scope := range fb.scopes {
		switch scope {
		case scopeTurtleBuiltin:
			if turtleBuiltinVars[name] {
				return mir.KGetTurtleVar, nil
			}
		case scopeTurtleVar:
			if contains(fb.b.prog.TurtleVarNames, name) {
				return mir.KGetTurtleVar, nil
			}
		case scopePatchBuiltin:
			if patchBuiltinVars[name] {
				return mir.KGetPatchVar, nil
			}
		case scopePatchVar:
			if contains(fb.b.prog.PatchVarNames, name) {
				return mir.KGetPatchVar, nil
			}
		case scopeGlobal:
			if contains(fb.b.prog.GlobalNames, name) {
				return mir.KGetGlobal, nil
			}
		}
	}
	return 0, buildErr("get", "undefined variable %q", name)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

var binOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true,
	"<": true, ">": true, "<=": true, ">=": true, "=": true,
	"and": true, "or": true,
}

// buildValue builds a value-producing node and
// returns its id.
func (fb *funcBuilder) buildValue(n RawNode) (mir.NodeID, error) {
	switch n.Tag {
	case "number":
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KNumberLit, Imm: mir.ImmValue{Float: n.Number}, IsPure: true}), nil
	case "string":
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KStringLit, Imm: mir.ImmValue{Str: n.String}, IsPure: true}), nil
	case "nobody":
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KNobodyLit, IsPure: true}), nil
	case "let-ref":
		id, ok := fb.locals[n.Name]
		if !ok {
			return 0, buildErr("let-ref", "undefined local %q", n.Name)
		}
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KGetLocal, Imm: mir.ImmValue{Int: int64(id)}, IsPure: true}), nil
	case "procedure-arg-ref":
		id, ok := fb.locals[n.Name]
		if !ok {
			return 0, buildErr("procedure-arg-ref", "undefined argument %q", n.Name)
		}
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KGetLocal, Imm: mir.ImmValue{Int: int64(id)}, IsPure: true}), nil
	case "reporter-block":
		if n.Node == nil {
			return 0, buildErr("reporter-block", "missing wrapped node")
		}
		return fb.buildValue(*n.Node)
	case "reporter-proc-call":
		args := make([]mir.NodeID, 0, len(n.Args))
		for _, a := range n.Args {
			id, err := fb.buildValue(a)
			if err != nil {
				return 0, err
			}
			args = append(args, id)
		}
		if _, err := fb.b.prog.FunctionByName(n.Name); err != nil {
			return 0, buildErr("reporter-proc-call", "call to undefined procedure %q", n.Name)
		}
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KUserProcCall, Imm: mir.ImmValue{Str: n.Name}, Args: args}), nil
	case "reporter-call":
		return fb.buildReporterCall(n)
	case "list":
		// Runtime lists are not modeled end to end; an opaque literal
		// keeps them decodable rather than left unhandled.
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KNobodyLit}), nil
	default:
		return 0, buildErr(n.Tag, "unrecognized node tag")
	}
}

func (fb *funcBuilder) buildReporterCall(n RawNode) (mir.NodeID, error) {
	if binOps[n.Name] {
		if len(n.Args) != 2 {
			return 0, buildErr(n.Name, "expected 2 arguments")
		}
		lhs, err := fb.buildValue(n.Args[0])
		if err != nil {
			return 0, err
		}
		rhs, err := fb.buildValue(n.Args[1])
		if err != nil {
			return 0, err
		}
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KBinOp, Imm: mir.ImmValue{Str: n.Name}, Args: []mir.NodeID{lhs, rhs}, IsPure: true}), nil
	}
	switch n.Name {
	case "not":
		if len(n.Args) != 1 {
			return 0, buildErr("not", "expected 1 argument")
		}
		operand, err := fb.buildValue(n.Args[0])
		if err != nil {
			return 0, err
		}
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KUnOp, Imm: mir.ImmValue{Str: "not"}, Args: []mir.NodeID{operand}, IsPure: true}), nil
	case "tick":
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KGetTick, IsPure: true}), nil
	case "random":
		if len(n.Args) != 1 {
			return 0, buildErr("random", "expected 1 argument")
		}
		bound, err := fb.buildValue(n.Args[0])
		if err != nil {
			return 0, err
		}
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KRandomInt, Args: []mir.NodeID{bound}}), nil
	case "one-of":
		if len(n.Args) != 1 {
			return 0, buildErr("one-of", "expected 1 argument")
		}
		list, err := fb.buildValue(n.Args[0])
		if err != nil {
			return 0, err
		}
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KOneOfList, Args: []mir.NodeID{list}}), nil
	case "scale-color":
		if len(n.Args) != 4 {
			return 0, buildErr("scale-color", "expected (color, num, r1, r2)")
		}
		ids := make([]mir.NodeID, 4)
		for i, a := range n.Args {
			id, err := fb.buildValue(a)
			if err != nil {
				return 0, err
			}
			ids[i] = id
		}
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KScaleColor, Args: ids, IsPure: true}), nil
	case "distancexy":
		if len(n.Args) != 2 {
			return 0, buildErr("distancexy", "expected (x, y)")
		}
		x, err := fb.buildValue(n.Args[0])
		if err != nil {
			return 0, err
		}
		y, err := fb.buildValue(n.Args[1])
		if err != nil {
			return 0, err
		}
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KDistanceXY, Args: []mir.NodeID{x, y}}), nil
	case "all-turtles":
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KAllTurtlesLit, IsPure: true}), nil
	case "all-patches":
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KAllPatchesLit, IsPure: true}), nil
	case "patch-at":
		if len(n.Args) != 2 {
			return 0, buildErr("patch-at", "expected (x, y)")
		}
		x, err := fb.buildValue(n.Args[0])
		if err != nil {
			return 0, err
		}
		y, err := fb.buildValue(n.Args[1])
		if err != nil {
			return 0, err
		}
		return fb.b.prog.AddNode(mir.Node{Kind: mir.KPatchAt, Args: []mir.NodeID{x, y}}), nil
	default:
		kind, err := fb.getKindFor(n.Name)
		if err != nil {
			return 0, err
		}
		return fb.b.prog.AddNode(mir.Node{Kind: kind, Imm: mir.ImmValue{Str: n.Name}, IsPure: true}), nil
	}
}
