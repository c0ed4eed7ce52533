package hostsim

import (
	"fmt"
	"math"

	"oxitortoise/internal/world"
)

// turtleCursor abstracts the two turtle-iteration orders compiled code
// drives through begin/step host calls: the shuffled whole-agentset
// order of ask-all-turtles, and the creation order of a create-turtles
// body.
type turtleCursor interface {
	next() (world.TurtleID, bool)
}

type shuffledTurtles struct{ iter *world.ShuffledOwned[world.TurtleID] }

func (c *shuffledTurtles) next() (world.TurtleID, bool) { return c.iter.Next() }

type batchTurtles struct {
	ids []world.TurtleID
	pos int
}

func (c *batchTurtles) next() (world.TurtleID, bool) {
	if c.pos >= len(c.ids) {
		return world.TurtleID{}, false
	}
	id := c.ids[c.pos]
	c.pos++
	return id, true
}

// dispatch services one host call against the world. It is the single
// point every wasmer closure funnels through, keyed by the import's
// composed name; the execution-context bookkeeping (cursor stacks,
// current agents) lives on the Embedder, the serialization point of
// the one simulation thread.
func (e *Embedder) dispatch(name string, in []float64) ([]float64, error) {
	w := e.World
	base, suffix := splitHostName(name)

	switch base {
	case "clear-all":
		w.ClearAll()
		return nil, nil
	case "reset-ticks":
		w.Tick.Reset()
		return nil, nil
	case "advance-tick":
		w.Tick.Advance(in[0])
		return nil, nil
	case "get-tick":
		return []float64{w.Tick.Value()}, nil

	case "die":
		cur, err := e.currentTurtle()
		if err != nil {
			return nil, err
		}
		w.Turtles.Die(cur)
		w.Dirty.MarkTurtle(cur.Index)
		return nil, nil
	case "forward":
		cur, err := e.currentTurtle()
		if err != nil {
			return nil, err
		}
		p := w.Turtles.Position(cur)
		h := w.Turtles.Heading(cur)
		if np, ok := w.Topology.OffsetDistanceByHeading(p, h, in[0]); ok {
			w.Turtles.SetPosition(cur, np)
			w.Dirty.MarkTurtle(cur.Index)
		}
		return nil, nil

	case "diffuse-8":
		col, err := w.Patches.VarIndex(suffix)
		if err != nil {
			return nil, err
		}
		w.Patches.Diffuse8(col, in[0])
		for row := 0; row < w.Patches.Rows.RowCount; row++ {
			w.Dirty.MarkPatch(row)
		}
		return nil, nil

	case "scale-color":
		c := world.ScaleColor(world.Color(in[0]), in[1], in[2], in[3])
		return []float64{float64(c)}, nil
	case "random-int":
		return []float64{float64(w.RNG.NextInt(int64(in[0])))}, nil
	case "one-of-list":
		// Runtime list values are not modeled end-to-end (see
		// internal/astmir's "list" handling); reaching this at run time
		// is a model error, reported as a trap like any other runtime
		// failure.
		return nil, fmt.Errorf("one-of: runtime list values are not modeled")

	case "get-position-of-self":
		cur, err := e.currentTurtle()
		if err != nil {
			return nil, err
		}
		p := w.Turtles.Position(cur)
		return []float64{p.X, p.Y}, nil
	case "distance-euclidean-no-wrap":
		d := world.EuclideanDistanceNoWrap(world.Point{X: in[0], Y: in[1]}, world.Point{X: in[2], Y: in[3]})
		return []float64{d}, nil
	case "offset-distance-by-heading":
		np, ok := w.Topology.OffsetDistanceByHeading(world.Point{X: in[0], Y: in[1]}, world.Heading(in[2]), in[3])
		if !ok {
			return []float64{math.NaN(), math.NaN()}, nil
		}
		return []float64{np.X, np.Y}, nil
	case "patch-at":
		idx, ok := w.Patches.IndexOf(world.PointInt{X: int(in[0]), Y: int(in[1])})
		if !ok {
			return []float64{-1}, nil
		}
		return []float64{float64(idx)}, nil

	case "global-get":
		v, err := w.Globals.Get(suffix)
		if err != nil {
			return nil, err
		}
		return []float64{v}, nil
	case "global-set":
		return nil, w.Globals.Set(suffix, in[0])

	case "turtle-field":
		cur, err := e.currentTurtle()
		if err != nil {
			return nil, err
		}
		v, err := w.Turtles.FieldValue(cur, suffix)
		if err != nil {
			return nil, err
		}
		return []float64{v}, nil
	case "turtle-field-set":
		cur, err := e.currentTurtle()
		if err != nil {
			return nil, err
		}
		if err := w.Turtles.SetFieldValue(cur, suffix, in[0]); err != nil {
			return nil, err
		}
		w.Dirty.MarkTurtle(cur.Index)
		return nil, nil
	case "patch-field":
		row, err := e.currentPatch()
		if err != nil {
			return nil, err
		}
		v, err := w.Patches.FieldValue(row, suffix)
		if err != nil {
			return nil, err
		}
		return []float64{v}, nil
	case "patch-field-set":
		row, err := e.currentPatch()
		if err != nil {
			return nil, err
		}
		if err := w.Patches.SetFieldValue(row, suffix, in[0]); err != nil {
			return nil, err
		}
		w.Dirty.MarkPatch(row)
		return nil, nil

	case "current-turtle-index":
		cur, err := e.currentTurtle()
		if err != nil {
			return nil, err
		}
		return []float64{float64(cur.Index)}, nil
	case "current-patch-index":
		row, err := e.currentPatch()
		if err != nil {
			return nil, err
		}
		return []float64{float64(row)}, nil
	case "turtle-row-base", "patch-row-base":
		// Compiled code re-fetches the base on every access because
		// create-turtles may move the buffer; this
		// embedder services field access by name, so the base is a
		// stand-in zero.
		return []float64{0}, nil

	case "ask-all-turtles-begin":
		ids := w.Turtles.AllTurtleIDs()
		e.turtleCursors = append(e.turtleCursors, &shuffledTurtles{iter: world.NewShuffledOwned(ids, w.NextInt())})
		e.curTurtles = append(e.curTurtles, world.TurtleID{Index: -1})
		return nil, nil
	case "ask-all-turtles-step", "create-turtles-step":
		return e.stepTurtleCursor()
	case "create-turtles-begin":
		e.turtleCursors = append(e.turtleCursors, &batchTurtles{ids: e.lastCreated})
		e.curTurtles = append(e.curTurtles, world.TurtleID{Index: -1})
		return nil, nil

	case "ask-all-patches-begin":
		rows := make([]int, w.Patches.Rows.RowCount)
		for i := range rows {
			rows[i] = i
		}
		e.patchCursors = append(e.patchCursors, world.NewShuffledOwned(rows, w.NextInt()))
		e.curPatches = append(e.curPatches, -1)
		return nil, nil
	case "ask-all-patches-step":
		cursor := e.patchCursors[len(e.patchCursors)-1]
		row, ok := cursor.Next()
		if !ok {
			e.patchCursors = e.patchCursors[:len(e.patchCursors)-1]
			e.curPatches = e.curPatches[:len(e.curPatches)-1]
			return []float64{0}, nil
		}
		e.curPatches[len(e.curPatches)-1] = row
		return []float64{1}, nil

	case "create-turtles":
		breed := suffix
		if breed == "" {
			breed = world.BreedNameTurtles
		}
		ids, err := w.CreateTurtles(int(in[0]), breed, in[1], in[2])
		if err != nil {
			return nil, err
		}
		e.lastCreated = ids
		return nil, nil
	}

	return nil, fmt.Errorf("unknown host function %q", name)
}

// stepTurtleCursor advances the innermost turtle cursor, skipping
// turtles that died mid-iteration, making the advanced-to turtle
// current. Exhaustion pops both the cursor and its current-turtle slot.
func (e *Embedder) stepTurtleCursor() ([]float64, error) {
	cursor := e.turtleCursors[len(e.turtleCursors)-1]
	for {
		id, ok := cursor.next()
		if !ok {
			e.turtleCursors = e.turtleCursors[:len(e.turtleCursors)-1]
			e.curTurtles = e.curTurtles[:len(e.curTurtles)-1]
			return []float64{0}, nil
		}
		if !e.World.Turtles.IsAlive(id) {
			continue
		}
		e.curTurtles[len(e.curTurtles)-1] = id
		return []float64{1}, nil
	}
}
