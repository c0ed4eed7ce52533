package hostsim

import (
	"math"
	"testing"

	"oxitortoise/internal/world"
)

// dispatch is exercised directly here, without a wasmer instance: it is
// the entire behavioral surface of the host ABI, and the wasmer closure
// wrapping it is pure type plumbing covered by the engine-level tests.

func testEmbedder(patchVars []string) *Embedder {
	w := world.New(world.Config{
		PatchVars: patchVars,
		Topology:  world.Topology{MinX: -2, MinY: -2, Width: 5, Height: 5, WrapX: true, WrapY: true},
	})
	return &Embedder{World: w}
}

func call(t *testing.T, e *Embedder, name string, in ...float64) []float64 {
	t.Helper()
	out, err := e.dispatch(name, in)
	if err != nil {
		t.Fatalf("dispatch(%s) failed: %v", name, err)
	}
	return out
}

func TestClearAllAndTickLifecycle(t *testing.T) {
	e := testEmbedder(nil)

	if !e.World.Tick.IsCleared() {
		t.Fatal("fresh world must start with a cleared tick")
	}
	call(t, e, "reset-ticks")
	call(t, e, "advance-tick", 1)
	if got := call(t, e, "get-tick")[0]; got != 1 {
		t.Fatalf("expected tick 1, got %v", got)
	}

	call(t, e, "clear-all")
	if !e.World.Tick.IsCleared() {
		t.Fatal("clear-all must clear the tick")
	}

	// Advancing a cleared tick is a runtime error: it panics out of the
	// world layer, and the wasmer closure boundary converts it to a
	// trap. At this level the panic itself is the contract.
	defer func() {
		if recover() == nil {
			t.Fatal("advancing a cleared tick must abort the step")
		}
	}()
	_, _ = e.dispatch("advance-tick", []float64{1})
}

func TestCreateTurtlesAndBatchIteration(t *testing.T) {
	e := testEmbedder(nil)

	call(t, e, "create-turtles:TURTLES", 3, 0, 0)
	if got := e.World.Turtles.Count(); got != 3 {
		t.Fatalf("expected 3 turtles, got %d", got)
	}
	if got := e.World.Dirty.ReservedTurtles(); got < 3 {
		t.Fatalf("dirty aggregator not resized before use: reserved %d", got)
	}

	call(t, e, "create-turtles-begin")
	seen := 0
	for call(t, e, "create-turtles-step")[0] == 1 {
		seen++
		cur, err := e.currentTurtle()
		if err != nil {
			t.Fatalf("no current turtle mid-iteration: %v", err)
		}
		if cur.Index != seen-1 {
			t.Fatalf("creation-order iteration expected index %d, got %d", seen-1, cur.Index)
		}
	}
	if seen != 3 {
		t.Fatalf("expected 3 iteration steps, got %d", seen)
	}
	if _, err := e.currentTurtle(); err == nil {
		t.Fatal("current turtle must be popped once the cursor is exhausted")
	}
}

func TestAskAllTurtlesForwardMovesEveryTurtle(t *testing.T) {
	e := testEmbedder(nil)
	call(t, e, "create-turtles:TURTLES", 2, 0, 0)

	before := make(map[uint32]world.Point)
	for _, id := range e.World.Turtles.AllTurtleIDs() {
		before[id.Who] = e.World.Turtles.Position(id)
	}

	call(t, e, "ask-all-turtles-begin")
	for call(t, e, "ask-all-turtles-step")[0] == 1 {
		call(t, e, "forward", 1)
	}

	for _, id := range e.World.Turtles.AllTurtleIDs() {
		p := e.World.Turtles.Position(id)
		h := e.World.Turtles.Heading(id)
		want := world.Point{X: before[id.Who].X + h.Dx(), Y: before[id.Who].Y + h.Dy()}
		if math.Abs(p.X-want.X) > 1e-9 || math.Abs(p.Y-want.Y) > 1e-9 {
			t.Fatalf("turtle %d expected at %v, got %v", id.Who, want, p)
		}
	}
}

func TestAskAllPatchesVisitsEachPatchOnce(t *testing.T) {
	e := testEmbedder(nil)

	visited := make(map[int]int)
	call(t, e, "ask-all-patches-begin")
	for call(t, e, "ask-all-patches-step")[0] == 1 {
		row, err := e.currentPatch()
		if err != nil {
			t.Fatalf("no current patch mid-iteration: %v", err)
		}
		visited[row]++
	}
	if len(visited) != e.World.Patches.Rows.RowCount {
		t.Fatalf("expected %d distinct patches, visited %d", e.World.Patches.Rows.RowCount, len(visited))
	}
	for row, n := range visited {
		if n != 1 {
			t.Fatalf("patch %d visited %d times", row, n)
		}
	}
}

func TestDiffuseMatchesScenarioNumbers(t *testing.T) {
	e := testEmbedder([]string{"chemical"})
	w := e.World

	src, ok := w.Patches.IndexOf(world.PointInt{X: 0, Y: 0})
	if !ok {
		t.Fatal("source patch not found")
	}
	if err := w.Patches.SetFieldValue(src, "chemical", 1.0); err != nil {
		t.Fatalf("SetFieldValue failed: %v", err)
	}

	call(t, e, "diffuse-8:chemical", 0.5)

	got, err := w.Patches.FieldValue(src, "chemical")
	if err != nil {
		t.Fatalf("FieldValue failed: %v", err)
	}
	if math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("source patch expected 0.5, got %v", got)
	}

	var neighborSum float64
	for row := 0; row < w.Patches.Rows.RowCount; row++ {
		if row == src {
			continue
		}
		v, err := w.Patches.FieldValue(row, "chemical")
		if err != nil {
			t.Fatalf("FieldValue failed: %v", err)
		}
		neighborSum += v
	}
	if math.Abs(neighborSum-0.5) > 1e-9 {
		t.Fatalf("neighbors expected to hold 0.5 total, got %v", neighborSum)
	}
}

func TestFieldAccessAndGlobals(t *testing.T) {
	e := &Embedder{World: world.New(world.Config{
		Globals:  []string{"population"},
		Topology: world.Topology{MinX: -2, MinY: -2, Width: 5, Height: 5, WrapX: true, WrapY: true},
	})}

	call(t, e, "global-set:population", 42)
	if got := call(t, e, "global-get:population")[0]; got != 42 {
		t.Fatalf("expected population 42, got %v", got)
	}

	call(t, e, "create-turtles:TURTLES", 1, 1.5, -0.5)
	call(t, e, "create-turtles-begin")
	call(t, e, "create-turtles-step")

	if got := call(t, e, "turtle-field:xcor")[0]; got != 1.5 {
		t.Fatalf("expected xcor 1.5, got %v", got)
	}
	call(t, e, "turtle-field-set:heading", 90)
	if got := call(t, e, "turtle-field:heading")[0]; got != 90 {
		t.Fatalf("expected heading 90, got %v", got)
	}

	pos := call(t, e, "get-position-of-self")
	if pos[0] != 1.5 || pos[1] != -0.5 {
		t.Fatalf("get-position-of-self expected (1.5, -0.5), got %v", pos)
	}
}

func TestScaleColorAndDistanceHostCalls(t *testing.T) {
	e := testEmbedder(nil)

	if got := call(t, e, "scale-color", float64(world.Red), 5, 0, 10)[0]; got != 15 {
		t.Fatalf("scale-color red midway expected 15, got %v", got)
	}
	if got := call(t, e, "distance-euclidean-no-wrap", 0, 0, 3, 4)[0]; got != 5 {
		t.Fatalf("distance expected 5, got %v", got)
	}

	out := call(t, e, "offset-distance-by-heading", 0, 0, 90, 1)
	if math.Abs(out[0]-1) > 1e-9 || math.Abs(out[1]) > 1e-9 {
		t.Fatalf("heading-90 offset expected (1, 0), got %v", out)
	}
}

func TestTurtleContextRequiredOutsideAsk(t *testing.T) {
	e := testEmbedder(nil)
	if _, err := e.dispatch("forward", []float64{1}); err == nil {
		t.Fatal("forward with no executing turtle must fail")
	}
	if _, err := e.dispatch("turtle-field:xcor", nil); err == nil {
		t.Fatal("turtle-field with no executing turtle must fail")
	}
}
