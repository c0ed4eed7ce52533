package world

import (
	"math"

	"oxitortoise/internal/reflect"
	"oxitortoise/internal/rng"
	"oxitortoise/internal/rowbuf"
)

// Globals is the single-row store for a model's observer-owned
// variables, plus a side map for non-zeroable slots. It's
// just a rowbuf.Buffer with exactly one row; the type exists to make
// that invariant explicit at call sites.
type Globals struct {
	Rows *rowbuf.Buffer
}

// NewGlobals allocates a one-row buffer with one Float column per name
// in names (the model's metaVars.globals).
func NewGlobals(names []string) *Globals {
	cols := make([]rowbuf.Column, len(names))
	for i, n := range names {
		cols[i] = rowbuf.Column{Name: n, Type: reflect.Float}
	}
	return &Globals{Rows: rowbuf.New(rowbuf.NewSchema(cols), 1)}
}

func (g *Globals) Get(name string) (float64, error) {
	_, _, col, err := g.Rows.Schema.FieldDescAndOffset(name)
	if err != nil {
		return 0, err
	}
	return getF(g.Rows, 0, col), nil
}

func (g *Globals) Set(name string, v float64) error {
	_, _, col, err := g.Rows.Schema.FieldDescAndOffset(name)
	if err != nil {
		return err
	}
	setF(g.Rows, 0, col, v)
	return nil
}

// Tick is the model's step counter: a float64, or NaN to mean
// "cleared". Advance/Reset/Clear are its only mutators.
type Tick struct {
	value float64
}

func NewTick() Tick { return Tick{value: math.NaN()} }

func (t Tick) IsCleared() bool { return math.IsNaN(t.value) }
func (t Tick) Value() float64  { return t.value }

func (t *Tick) Clear()  { t.value = math.NaN() }
func (t *Tick) Reset()  { t.value = 0 }
func (t *Tick) Advance(by float64) {
	if t.IsCleared() {
		panic("world: advance-tick on a cleared tick counter")
	}
	t.value += by
}

// ShapeKey content-addresses a shape by its owning breed and name,
// mirroring the turtle row buffer's generational-key idiom.
type ShapeKey struct {
	Breed string
	Name  string
}

// World ties together the whole runtime data model plus the RNG the
// compiled code consults through the host.
type World struct {
	Globals  *Globals
	Turtles  *TurtleManager
	Patches  *Patches
	Topology Topology
	Tick     Tick
	Shapes   map[ShapeKey]string
	RNG      *rng.MersenneTwister
	Dirty    *DirtyAggregator
}

// Config is the set of model-declared names needed to size a World:
// globals, turtle/patch/link-owned variables, breeds, and the topology.
// Mirrors the AST's metaVars object.
type Config struct {
	Globals        []string
	TurtleVars     []string // reserved for a future dynamic turtle-var schema
	PatchVars      []string
	LinkVars       []string // reserved; links are not yet modeled end-to-end
	Topology       Topology
	AdditionalBreeds []Breed
}

func New(cfg Config) *World {
	return &World{
		Globals:  NewGlobals(cfg.Globals),
		Turtles:  NewTurtleManager(cfg.AdditionalBreeds),
		Patches:  NewPatches(cfg.Topology, cfg.PatchVars),
		Topology: cfg.Topology,
		Tick:     NewTick(),
		Shapes:   make(map[ShapeKey]string),
		RNG:      rng.New(0),
		Dirty:    NewDirtyAggregator(cfg.Topology.PatchCount()),
	}
}

// CreateTurtles creates count turtles of breedName at (xcor, ycor) and
// resizes the dirty aggregator to cover the new row indices before any
// mark can touch them.
func (w *World) CreateTurtles(count int, breedName string, xcor, ycor float64) ([]TurtleID, error) {
	ids, err := w.Turtles.CreateTurtles(count, breedName, xcor, ycor, w.NextInt())
	if err != nil {
		return nil, err
	}
	w.Dirty.ReserveTurtles(w.Turtles.Rows.RowCount)
	for _, id := range ids {
		w.Dirty.MarkTurtle(id.Index)
	}
	return ids, nil
}

// ClearAll implements the clear-all host function: it resets patch
// variables, removes every turtle, clears the tick, and drops any
// pending dirty marks.
func (w *World) ClearAll() {
	w.Patches.ClearPatchVariables()
	w.Turtles.ClearTurtles()
	w.Tick.Clear()
	w.Dirty.Flush()
}

// NextInt exposes the RNG's next_int contract as a plain function value,
// the shape every world helper that needs randomness (CreateTurtles,
// ShuffledOwned, color/heading randomization) expects.
func (w *World) NextInt() func(int64) int64 {
	return w.RNG.NextInt
}

// AskAllTurtles drives body once per currently-live turtle, in the
// host's shuffled order.
func (w *World) AskAllTurtles(body func(TurtleID)) {
	ids := w.Turtles.AllTurtleIDs()
	iter := NewShuffledOwned(ids, w.NextInt())
	for {
		id, ok := iter.Next()
		if !ok {
			return
		}
		if w.Turtles.IsAlive(id) {
			body(id)
		}
	}
}

// AskAllPatches drives body once per patch, in the host's shuffled
// order.
func (w *World) AskAllPatches(body func(row int)) {
	rows := make([]int, w.Patches.Rows.RowCount)
	for i := range rows {
		rows[i] = i
	}
	iter := NewShuffledOwned(rows, w.NextInt())
	for {
		row, ok := iter.Next()
		if !ok {
			return
		}
		body(row)
	}
}

// OneOf draws a single uniformly random element from items, backing
// the one-of-list host function.
func OneOf[T any](items []T, nextInt func(int64) int64) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[nextInt(int64(len(items)))], true
}
