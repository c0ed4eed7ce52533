package world

import (
	"math"
	"testing"
)

func testTopology() Topology {
	return Topology{MinX: -5, MinY: -5, Width: 11, Height: 11, WrapX: true, WrapY: true}
}

func TestClearAllTransitionsTickFromNaNToZero(t *testing.T) {
	w := New(Config{Topology: testTopology()})
	if !w.Tick.IsCleared() {
		t.Fatal("expected a freshly created world's tick to start cleared")
	}
	w.ClearAll()
	w.Tick.Reset()
	if w.Tick.IsCleared() || w.Tick.Value() != 0 {
		t.Fatalf("expected tick == 0 after clear-all + reset-ticks, got %v", w.Tick.Value())
	}
}

func TestCreateThreeTurtlesAndTick(t *testing.T) {
	w := New(Config{Topology: testTopology()})
	ids, err := w.Turtles.CreateTurtles(3, BreedNameTurtles, 0, 0, w.NextInt())
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 || w.Turtles.Count() != 3 {
		t.Fatalf("expected 3 turtles, got %d", w.Turtles.Count())
	}
	w.Tick.Reset()
	w.Tick.Advance(1)
	if w.Tick.Value() != 1 {
		t.Fatalf("expected tick == 1, got %v", w.Tick.Value())
	}
}

func TestAskAllTurtlesMoveForward(t *testing.T) {
	w := New(Config{Topology: testTopology()})
	ids, err := w.Turtles.CreateTurtles(2, BreedNameTurtles, 0, 0, w.NextInt())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		w.Turtles.SetHeading(id, 0) // due north
	}
	visited := 0
	w.AskAllTurtles(func(id TurtleID) {
		visited++
		h := w.Turtles.Heading(id)
		p := w.Turtles.Position(id)
		dx, dy := h.DxDy()
		w.Turtles.SetPosition(id, Point{X: p.X + dx, Y: p.Y + dy})
	})
	if visited != 2 {
		t.Fatalf("expected ask to visit 2 turtles, got %d", visited)
	}
	for _, id := range ids {
		p := w.Turtles.Position(id)
		if math.Abs(p.X-0) > 1e-9 || math.Abs(p.Y-1) > 1e-9 {
			t.Fatalf("expected turtle to move to (0,1) heading north, got %+v", p)
		}
	}
}

func TestDiffusePatchVariable(t *testing.T) {
	w := New(Config{Topology: testTopology(), PatchVars: []string{"chemical"}})
	col, err := w.Patches.VarIndex("chemical")
	if err != nil {
		t.Fatal(err)
	}
	sourceRow, ok := w.Patches.IndexOf(PointInt{X: 0, Y: 0})
	if !ok {
		t.Fatal("expected (0,0) to be a valid patch")
	}
	w.Patches.SetVar(sourceRow, col, 1.0)

	w.Patches.Diffuse8(col, 0.5)

	if got := w.Patches.GetVar(sourceRow, col); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected source patch to retain 0.5, got %v", got)
	}

	total := 0.0
	for _, nb := range w.Patches.neighbors8(sourceRow) {
		total += w.Patches.GetVar(nb, col)
	}
	if math.Abs(total-0.5) > 1e-9 {
		t.Fatalf("expected neighbours to hold 0.5 total, got %v", total)
	}
}

func TestScaleColorMidpoint(t *testing.T) {
	got := ScaleColor(Red, 5, 0, 10)
	want := Red.ToDarkestShade() + Color(shadeRange/2)
	if math.Abs(float64(got-want)) > 1e-9 {
		t.Fatalf("ScaleColor midpoint = %v, want %v", got, want)
	}
}

func TestEmptyModelHasNoObservableEffect(t *testing.T) {
	w := New(Config{Topology: testTopology()})
	before := w.Turtles.Count()
	// An empty "go" body touches nothing.
	if w.Turtles.Count() != before {
		t.Fatal("unreachable: count changed with no operations")
	}
}
