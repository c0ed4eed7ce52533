package engine

import (
	"math"
	"strings"
	"testing"

	"oxitortoise/internal/lir"
	"oxitortoise/internal/mir"
	"oxitortoise/internal/world"
)

// The six end-to-end scenarios below are driven through the whole
// pipeline: JSON AST in, compiled module installed into the native
// embedder, entry point invoked, world state observed.

const emptyModel = `{
  "metaVars": {"globals": [], "turtleVars": [], "patchVars": [], "linkVars": []},
  "procedures": [
    {"name": "go", "args": [], "returnType": "unit", "agentClass": "O---", "statements": []}
  ]
}`

func TestScenarioEmptyModel(t *testing.T) {
	model, err := CompileBytes([]byte(emptyModel))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if len(model.Wasm.HostImports) != 0 {
		t.Fatalf("empty model must import no host functions, got %v", model.Wasm.HostImports)
	}

	eng, err := New(model, Options{})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	if _, ok := eng.Entries["go"]; !ok {
		t.Fatal("expected an entry point named go")
	}

	if _, err := eng.RunStep("go"); err != nil {
		t.Fatalf("RunStep failed: %v", err)
	}
	if !eng.World.Tick.IsCleared() {
		t.Fatal("empty go must not touch the tick")
	}
	if eng.World.Turtles.Count() != 0 {
		t.Fatal("empty go must not create turtles")
	}
}

const clearResetModel = `{
  "metaVars": {"globals": [], "turtleVars": [], "patchVars": [], "linkVars": []},
  "procedures": [
    {"name": "go", "args": [], "returnType": "unit", "agentClass": "O---", "statements": [
      {"tag": "command-app", "name": "clear-all"},
      {"tag": "command-app", "name": "reset-ticks"}
    ]}
  ]
}`

func TestScenarioClearAllResetTicks(t *testing.T) {
	model, err := CompileBytes([]byte(clearResetModel))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	// Exactly one clear-all then one reset-ticks in the emitted code.
	var hostCalls []string
	for _, ins := range model.LIR.Functions[0].Body {
		if ins.Op == lir.OpHostCall {
			hostCalls = append(hostCalls, ins.HostCallName)
		}
	}
	if len(hostCalls) != 2 || hostCalls[0] != "clear-all" || hostCalls[1] != "reset-ticks" {
		t.Fatalf("expected [clear-all reset-ticks], got %v", hostCalls)
	}

	eng, err := New(model, Options{})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	if !eng.World.Tick.IsCleared() {
		t.Fatal("tick must start cleared (NaN)")
	}
	if _, err := eng.RunStep("go"); err != nil {
		t.Fatalf("RunStep failed: %v", err)
	}
	if got := eng.World.Tick.Value(); got != 0 {
		t.Fatalf("tick expected 0 after reset-ticks, got %v", got)
	}
}

const createAndTickModel = `{
  "metaVars": {"globals": [], "turtleVars": [], "patchVars": [], "linkVars": []},
  "procedures": [
    {"name": "go", "args": [], "returnType": "unit", "agentClass": "O---", "statements": [
      {"tag": "command-app", "name": "reset-ticks"},
      {"tag": "command-app", "name": "create-turtles", "args": [
        {"tag": "number", "number": 3},
        {"tag": "string", "string": "TURTLES"},
        {"tag": "number", "number": 0},
        {"tag": "number", "number": 0}
      ]},
      {"tag": "command-app", "name": "advance-tick"}
    ]}
  ]
}`

func TestScenarioCreateTurtlesAndTick(t *testing.T) {
	model, err := CompileBytes([]byte(createAndTickModel))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	eng, err := New(model, Options{Seed: 7})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}

	if _, err := eng.RunStep("go"); err != nil {
		t.Fatalf("RunStep failed: %v", err)
	}
	if got := eng.World.Turtles.Count(); got != 3 {
		t.Fatalf("expected 3 turtles, got %d", got)
	}
	if got := eng.World.Tick.Value(); got != 1 {
		t.Fatalf("expected tick 1, got %v", got)
	}
	if got := eng.World.Dirty.ReservedTurtles(); got < 3 {
		t.Fatalf("dirty aggregator must cover the new turtles, reserved %d", got)
	}

	// Deterministic RNG: the same seed reproduces the same turtles.
	eng2, err := New(model, Options{Seed: 7})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	if _, err := eng2.RunStep("go"); err != nil {
		t.Fatalf("RunStep failed: %v", err)
	}
	for _, id := range eng.World.Turtles.AllTurtleIDs() {
		id2 := world.TurtleID{Breed: id.Breed, Who: id.Who, Index: id.Index}
		if eng.World.Turtles.Heading(id) != eng2.World.Turtles.Heading(id2) {
			t.Fatal("same seed must reproduce the same headings")
		}
	}
}

const askForwardModel = `{
  "metaVars": {"globals": [], "turtleVars": [], "patchVars": [], "linkVars": []},
  "procedures": [
    {"name": "go", "args": [], "returnType": "unit", "agentClass": "O---", "statements": [
      {"tag": "command-app", "name": "create-turtles", "args": [
        {"tag": "number", "number": 2},
        {"tag": "string", "string": "TURTLES"},
        {"tag": "number", "number": 0},
        {"tag": "number", "number": 0}
      ]},
      {"tag": "command-app", "name": "ask",
       "args": [{"tag": "reporter-call", "name": "all-turtles"}],
       "block": {"tag": "command-block", "statements": [
         {"tag": "command-app", "name": "fd", "args": [{"tag": "number", "number": 1}]}
       ]}}
    ]}
  ]
}`

func TestScenarioAskAllTurtlesForward(t *testing.T) {
	model, err := CompileBytes([]byte(askForwardModel))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	// The peephole pass must have specialized Ask(agentset literal)
	// into the agent-class-carrying variant, and no agentset value may
	// survive into the emitted code.
	foundSpecialized := false
	for id := range model.Program.Nodes {
		n := model.Program.Node(mir.NodeID(id))
		if n.Kind == mir.KAskAllTurtles {
			foundSpecialized = true
		}
		if !model.Program.IsDead(mir.NodeID(id)) && n.Kind == mir.KAskAgentset {
			t.Fatal("generic ask-agentset node survived peephole")
		}
	}
	if !foundSpecialized {
		t.Fatal("expected a specialized ask-all-turtles node")
	}
	for _, imp := range model.Wasm.HostImports {
		if strings.HasPrefix(imp, "ask-agentset") {
			t.Fatal("emitted module must not allocate or iterate a generic agentset")
		}
	}

	eng, err := New(model, Options{Seed: 3})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	if _, err := eng.RunStep("go"); err != nil {
		t.Fatalf("RunStep failed: %v", err)
	}

	ids := eng.World.Turtles.AllTurtleIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 turtles, got %d", len(ids))
	}
	for _, id := range ids {
		p := eng.World.Turtles.Position(id)
		h := eng.World.Turtles.Heading(id)
		want := world.Point{X: h.Dx(), Y: h.Dy()}
		if math.Abs(p.X-want.X) > 1e-9 || math.Abs(p.Y-want.Y) > 1e-9 {
			t.Fatalf("turtle %d expected to move along its heading to %v, got %v", id.Who, want, p)
		}
	}
}

const diffuseModel = `{
  "metaVars": {"globals": [], "turtleVars": [], "patchVars": ["chemical"], "linkVars": []},
  "procedures": [
    {"name": "go", "args": [], "returnType": "unit", "agentClass": "O---", "statements": [
      {"tag": "command-app", "name": "diffuse", "args": [
        {"tag": "string", "string": "chemical"},
        {"tag": "number", "number": 0.5}
      ]}
    ]}
  ]
}`

func TestScenarioDiffuse(t *testing.T) {
	model, err := CompileBytes([]byte(diffuseModel))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	eng, err := New(model, Options{})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}

	src, ok := eng.World.Patches.IndexOf(world.PointInt{X: 0, Y: 0})
	if !ok {
		t.Fatal("source patch not found")
	}
	if err := eng.World.Patches.SetFieldValue(src, "chemical", 1.0); err != nil {
		t.Fatalf("SetFieldValue failed: %v", err)
	}

	if _, err := eng.RunStep("go"); err != nil {
		t.Fatalf("RunStep failed: %v", err)
	}

	held, err := eng.World.Patches.FieldValue(src, "chemical")
	if err != nil {
		t.Fatalf("FieldValue failed: %v", err)
	}
	if math.Abs(held-0.5) > 1e-9 {
		t.Fatalf("source patch expected to hold 0.5, got %v", held)
	}
	var rest float64
	for row := 0; row < eng.World.Patches.Rows.RowCount; row++ {
		if row == src {
			continue
		}
		v, err := eng.World.Patches.FieldValue(row, "chemical")
		if err != nil {
			t.Fatalf("FieldValue failed: %v", err)
		}
		rest += v
	}
	if math.Abs(rest-0.5) > 1e-9 {
		t.Fatalf("neighbors expected to hold 0.5 total, got %v", rest)
	}
}

const scaleColorModel = `{
  "metaVars": {"globals": [], "turtleVars": [], "patchVars": [], "linkVars": []},
  "procedures": [
    {"name": "midred", "args": [], "returnType": "wildcard", "agentClass": "O---", "statements": [
      {"tag": "command-app", "name": "report", "args": [
        {"tag": "reporter-call", "name": "scale-color", "args": [
          {"tag": "number", "number": 15},
          {"tag": "number", "number": 5},
          {"tag": "number", "number": 0},
          {"tag": "number", "number": 10}
        ]}
      ]}
    ]}
  ]
}`

func TestScenarioScaleColorReporter(t *testing.T) {
	model, err := CompileBytes([]byte(scaleColorModel))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	eng, err := New(model, Options{})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}

	got, err := eng.RunStep("midred")
	if err != nil {
		t.Fatalf("RunStep failed: %v", err)
	}
	// Midway through red's range: darkest shade (10) plus half the
	// 10-unit band.
	if math.Abs(got-15) > 1e-9 {
		t.Fatalf("scale-color midway through red expected 15, got %v", got)
	}
}

func TestRunStepUnknownEntry(t *testing.T) {
	model, err := CompileBytes([]byte(emptyModel))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	eng, err := New(model, Options{})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	if _, err := eng.RunStep("setup"); err == nil {
		t.Fatal("expected an error for an unknown entry point")
	}
}

func TestCompileRejectsUnknownPrimitive(t *testing.T) {
	bad := `{
	  "metaVars": {"globals": [], "turtleVars": [], "patchVars": [], "linkVars": []},
	  "procedures": [
	    {"name": "go", "args": [], "returnType": "unit", "agentClass": "O---", "statements": [
	      {"tag": "command-app", "name": "frobnicate"}
	    ]}
	  ]
	}`
	if _, err := CompileBytes([]byte(bad)); err == nil {
		t.Fatal("expected a build failure for an unknown primitive")
	}
}

const letBoundAskModel = `{
  "metaVars": {"globals": [], "turtleVars": [], "patchVars": [], "linkVars": []},
  "procedures": [
    {"name": "go", "args": [], "returnType": "unit", "agentClass": "O---", "statements": [
      {"tag": "command-app", "name": "create-turtles", "args": [
        {"tag": "number", "number": 2},
        {"tag": "string", "string": "TURTLES"},
        {"tag": "number", "number": 0},
        {"tag": "number", "number": 0}
      ]},
      {"tag": "let-binding", "name": "crowd", "node": {"tag": "reporter-call", "name": "all-turtles"}},
      {"tag": "command-app", "name": "ask",
       "args": [{"tag": "let-ref", "name": "crowd"}],
       "block": {"tag": "command-block", "statements": [
         {"tag": "command-app", "name": "fd", "args": [{"tag": "number", "number": 1}]}
       ]}}
    ]}
  ]
}`

// The recipient here is a let-bound local, so peephole's literal
// specialization cannot fire; the generic ask must compile and run all
// the same, driven by the recipient's inferred agentset type.
func TestScenarioLetBoundAgentsetAsk(t *testing.T) {
	model, err := CompileBytes([]byte(letBoundAskModel))
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	for _, imp := range model.Wasm.HostImports {
		if strings.HasPrefix(imp, "ask-agentset") {
			t.Fatal("generic agentset iteration leaked into the emitted module")
		}
	}

	eng, err := New(model, Options{Seed: 11})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	if _, err := eng.RunStep("go"); err != nil {
		t.Fatalf("RunStep failed: %v", err)
	}

	ids := eng.World.Turtles.AllTurtleIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 turtles, got %d", len(ids))
	}
	for _, id := range ids {
		p := eng.World.Turtles.Position(id)
		h := eng.World.Turtles.Heading(id)
		want := world.Point{X: h.Dx(), Y: h.Dy()}
		if math.Abs(p.X-want.X) > 1e-9 || math.Abs(p.Y-want.Y) > 1e-9 {
			t.Fatalf("turtle %d expected to move along its heading to %v, got %v", id.Who, want, p)
		}
	}
}
