package mir

import (
	"fmt"
	"strings"
)

// DumpDOT renders a function's node graph as Graphviz DOT for
// debugging, wired to the CLI's dump-dot command. Dependency edges
// only; statement-order edges are implicit in the node labels'
// indices.
func DumpDOT(p *Program, fnID FunctionID) string {
	fn := p.Function(fnID)
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", dotIdent(fn.Name))
	fmt.Fprintf(&b, "  label=%q;\n", fn.Name)

	seen := make(map[NodeID]bool)
	var walk func(id NodeID)
	walk = func(id NodeID) {
		if seen[id] {
			return
		}
		seen[id] = true
		n := p.Node(id)
		style := ""
		if n.dead {
			style = ",style=dashed,color=gray"
		}
		fmt.Fprintf(&b, "  n%d [label=%q%s];\n", id, nodeLabel(*n), style)
		for _, dep := range n.Args {
			fmt.Fprintf(&b, "  n%d -> n%d;\n", id, dep)
			walk(dep)
		}
	}

	emitStmts := func(stmts []Statement) {
		for _, s := range stmts {
			if s.Node != InvalidNode {
				walk(s.Node)
			}
		}
	}
	emitStmts(fn.Body)

	fmt.Fprintln(&b, "}")
	return b.String()
}

func nodeLabel(n Node) string {
	return fmt.Sprintf("%s %s", kindName(n.Kind), n.OutputType.String())
}

func dotIdent(s string) string {
	if s == "" {
		return "fn"
	}
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return '_'
		}
		return r
	}, s)
}

var kindNames = map[NodeKind]string{
	KNumberLit: "NumberLit", KBoolLit: "BoolLit", KStringLit: "StringLit",
	KNobodyLit: "NobodyLit", KGetLocal: "GetLocal", KSetLocal: "SetLocal",
	KGetGlobal: "GetGlobal", KSetGlobal: "SetGlobal",
	KGetTurtleVar: "GetTurtleVar", KSetTurtleVar: "SetTurtleVar",
	KGetPatchVar: "GetPatchVar", KSetPatchVar: "SetPatchVar",
	KAllTurtlesLit: "AllTurtlesLit", KAllPatchesLit: "AllPatchesLit",
	KAskAgentset: "AskAgentset", KAskAllTurtles: "AskAllTurtles", KAskAllPatches: "AskAllPatches",
	KClearAll: "ClearAll", KResetTicks: "ResetTicks", KAdvanceTick: "AdvanceTick", KGetTick: "GetTick",
	KCreateTurtles: "CreateTurtles", KFd: "Fd", KDiffuse: "Diffuse", KDie: "Die",
	KScaleColor: "ScaleColor", KRandomInt: "RandomInt", KOneOfList: "OneOfList",
	KDistanceXY: "DistanceXY", KGetPositionOf: "GetPositionOf", KMakePoint: "MakePoint",
	KEuclideanDistanceNoWrap: "EuclideanDistanceNoWrap", KOffsetDistanceByHeading: "OffsetDistanceByHeading",
	KPatchAt: "PatchAt", KBinOp: "BinOp", KUnOp: "UnOp", KUserProcCall: "UserProcCall",
	KConst: "Const", KMemLoad: "MemLoad", KMemStore: "MemStore", KDeriveField: "DeriveField",
	KDeriveElement: "DeriveElement", KArithPrim: "ArithPrim", KHostCall: "HostCall",
}

func kindName(k NodeKind) string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", k)
}
