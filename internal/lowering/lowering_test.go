package lowering

import (
	"strings"
	"testing"

	"oxitortoise/internal/astmir"
	"oxitortoise/internal/mir"
	"oxitortoise/internal/peephole"
	"oxitortoise/internal/typeinfer"
	"oxitortoise/internal/world"
)

func lowered(t *testing.T, src string) *mir.Program {
	t.Helper()
	raw, err := astmir.DecodeProgram(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeProgram failed: %v", err)
	}
	prog, err := astmir.Build(raw)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := typeinfer.Infer(prog); err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	peephole.Run(prog)
	if err := Lower(prog); err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	return prog
}

func TestTurtleVarExpandsToAddressedMemLoad(t *testing.T) {
	prog := lowered(t, `{
	  "metaVars": {"globals": ["gx"], "turtleVars": [], "patchVars": [], "linkVars": []},
	  "procedures": [
	    {"name": "observe", "args": [], "returnType": "unit", "agentClass": "?T??", "statements": [
	      {"tag": "command-app", "name": "set", "args": [
	        {"tag": "string", "string": "gx"},
	        {"tag": "reporter-call", "name": "xcor"}
	      ]}
	    ]}
	  ]
	}`)

	fn, _ := prog.FunctionByName("observe")
	set := prog.Node(fn.Body[0].Node)
	load := prog.Node(set.Args[0])

	if load.Kind != mir.KMemLoad {
		t.Fatalf("xcor read should lower to MemLoad, got kind %d", load.Kind)
	}
	if load.HostCallName != "turtle-field" {
		t.Fatalf("expected host hint turtle-field, got %q", load.HostCallName)
	}

	// MemLoad(DeriveField(DeriveElement(base, index, stride), offset))
	// with the offset and stride taken from the real schema.
	field := prog.Node(load.Args[0])
	if field.Kind != mir.KDeriveField {
		t.Fatalf("expected DeriveField pointer, got kind %d", field.Kind)
	}
	elem := prog.Node(field.Args[0])
	if elem.Kind != mir.KDeriveElement {
		t.Fatalf("expected DeriveElement pointer, got kind %d", elem.Kind)
	}

	schema := world.TurtleSchemaShape()
	_, wantOffset, _, err := schema.FieldDescAndOffset("xcor")
	if err != nil {
		t.Fatalf("FieldDescAndOffset failed: %v", err)
	}
	if got := prog.Node(field.Args[1]).Imm.Int; got != int64(wantOffset) {
		t.Fatalf("field offset expected %d, got %d", wantOffset, got)
	}
	if got := prog.Node(elem.Args[2]).Imm.Int; got != int64(schema.Stride) {
		t.Fatalf("row stride expected %d, got %d", schema.Stride, got)
	}
}

func TestSetTurtleVarUsesStoreHint(t *testing.T) {
	prog := lowered(t, `{
	  "metaVars": {"globals": [], "turtleVars": [], "patchVars": [], "linkVars": []},
	  "procedures": [
	    {"name": "turn", "args": [], "returnType": "unit", "agentClass": "?T??", "statements": [
	      {"tag": "command-app", "name": "set", "args": [
	        {"tag": "string", "string": "heading"},
	        {"tag": "number", "number": 90}
	      ]}
	    ]}
	  ]
	}`)

	fn, _ := prog.FunctionByName("turn")
	store := prog.Node(fn.Body[0].Node)
	if store.Kind != mir.KMemStore {
		t.Fatalf("heading write should lower to MemStore, got kind %d", store.Kind)
	}
	if store.HostCallName != "turtle-field-set" {
		t.Fatalf("a store must carry its own host hint, got %q", store.HostCallName)
	}
	if len(store.Args) != 2 {
		t.Fatalf("MemStore expects (pointer, value), got %d operands", len(store.Args))
	}
}

func TestCommandsLowerToFlatHostCalls(t *testing.T) {
	prog := lowered(t, `{
	  "metaVars": {"globals": [], "turtleVars": [], "patchVars": [], "linkVars": []},
	  "procedures": [
	    {"name": "go", "args": [], "returnType": "unit", "agentClass": "O---", "statements": [
	      {"tag": "command-app", "name": "clear-all"},
	      {"tag": "command-app", "name": "reset-ticks"},
	      {"tag": "command-app", "name": "advance-tick"}
	    ]}
	  ]
	}`)

	fn, _ := prog.FunctionByName("go")
	want := []string{"clear-all", "reset-ticks", "advance-tick"}
	for i, name := range want {
		n := prog.Node(fn.Body[i].Node)
		if n.Kind != mir.KHostCall || n.HostCallName != name {
			t.Fatalf("statement %d expected host call %q, got kind %d name %q", i, name, n.Kind, n.HostCallName)
		}
	}
}

// A lowered graph contains only the primitive kinds of spec invariant
// 6; running Lower again must be a fixed point.
func TestLoweringTerminatesAtPrimitives(t *testing.T) {
	prog := lowered(t, `{
	  "metaVars": {"globals": [], "turtleVars": [], "patchVars": ["chemical"], "linkVars": []},
	  "procedures": [
	    {"name": "go", "args": [], "returnType": "unit", "agentClass": "??P?", "statements": [
	      {"tag": "command-app", "name": "set", "args": [
	        {"tag": "string", "string": "chemical"},
	        {"tag": "reporter-call", "name": "chemical"}
	      ]},
	      {"tag": "command-app", "name": "diffuse", "args": [
	        {"tag": "string", "string": "chemical"},
	        {"tag": "number", "number": 0.5}
	      ]}
	    ]}
	  ]
	}`)

	before := len(prog.Nodes)
	if err := Lower(prog); err != nil {
		t.Fatalf("second Lower failed: %v", err)
	}
	if len(prog.Nodes) != before {
		t.Fatalf("lowering an already-primitive graph must not expand: %d -> %d nodes", before, len(prog.Nodes))
	}

	primitive := map[mir.NodeKind]bool{
		mir.KNumberLit: true, mir.KBoolLit: true, mir.KStringLit: true,
		mir.KNobodyLit: true, mir.KGetLocal: true, mir.KSetLocal: true,
		mir.KConst: true, mir.KMemLoad: true, mir.KMemStore: true,
		mir.KDeriveField: true, mir.KDeriveElement: true,
		mir.KArithPrim: true, mir.KHostCall: true, mir.KBinOp: true,
		mir.KUnOp: true, mir.KUserProcCall: true, mir.KMakePoint: true,
		mir.KAskAllTurtles: true, mir.KAskAllPatches: true, mir.KCreateTurtles: true,
	}
	for id := range prog.Nodes {
		if prog.IsDead(mir.NodeID(id)) {
			continue
		}
		if !primitive[prog.Nodes[id].Kind] {
			t.Fatalf("node %d has non-primitive kind %d after lowering", id, prog.Nodes[id].Kind)
		}
	}
}

func TestDiffuseCarriesVariableName(t *testing.T) {
	prog := lowered(t, `{
	  "metaVars": {"globals": [], "turtleVars": [], "patchVars": ["chemical"], "linkVars": []},
	  "procedures": [
	    {"name": "go", "args": [], "returnType": "unit", "agentClass": "O---", "statements": [
	      {"tag": "command-app", "name": "diffuse", "args": [
	        {"tag": "string", "string": "chemical"},
	        {"tag": "number", "number": 0.5}
	      ]}
	    ]}
	  ]
	}`)

	fn, _ := prog.FunctionByName("go")
	n := prog.Node(fn.Body[0].Node)
	if n.HostCallName != "diffuse-8" || n.Imm.Str != "chemical" {
		t.Fatalf("diffuse should keep its variable name for the composed host name, got %q/%q", n.HostCallName, n.Imm.Str)
	}
}
