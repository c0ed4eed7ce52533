package world

import (
	"fmt"

	"oxitortoise/internal/reflect"
	"oxitortoise/internal/rowbuf"
)

// TurtleID is a turtle's generational key. Index is the row
// the turtle currently occupies; Who is the turtle's stable identity,
// assigned once at creation and never reused, so a stale TurtleID whose
// Who no longer matches the row at Index is detectably dead rather than
// silently aliasing a different turtle.
type TurtleID struct {
	Breed uint32
	Who   uint32
	Index int
}

// Breed groups turtles under a name with a default shape and a set of
// breed-owned variable names.
type Breed struct {
	Name          string
	SingularName  string
	VariableNames []string
	DefaultShape  string
}

const (
	BreedNameTurtles = "TURTLES"
	breedIndexTurtle = 0
)

// TurtleSchemaShape returns the turtle row schema without allocating any
// rows, for internal/lowering's field-offset computation.
func TurtleSchemaShape() rowbuf.Schema { return turtleSchema }

var turtleSchema = rowbuf.NewSchema([]rowbuf.Column{
	{Name: "breed", Type: reflect.Int32},
	{Name: "who", Type: reflect.Int32},
	{Name: "xcor", Type: reflect.Float},
	{Name: "ycor", Type: reflect.Float},
	{Name: "heading", Type: reflect.Float},
	{Name: "color", Type: reflect.Float},
	{Name: "size", Type: reflect.Float},
	{Name: "labelColor", Type: reflect.Float},
	{Name: "hidden?", Type: reflect.Bool},
	{Name: "dead", Type: reflect.Bool},
})

// TurtleManager owns turtle creation, breed bookkeeping, and the
// turtle row buffer.
type TurtleManager struct {
	Rows   *rowbuf.Buffer
	breeds map[string]*Breed
	// breedOrder keeps breed-name -> index assignment stable and dense,
	// since the row schema stores a breed as a plain int32 index rather
	// than a string.
	breedOrder []string
	nextWho    uint32
	liveCount  int
}

// NewTurtleManager creates a manager with the built-in "turtles" breed
// plus any additional breeds declared by the model.
func NewTurtleManager(additional []Breed) *TurtleManager {
	tm := &TurtleManager{
		Rows:   rowbuf.New(turtleSchema, 0),
		breeds: make(map[string]*Breed),
	}
	tm.registerBreed(Breed{Name: BreedNameTurtles, SingularName: "turtle", DefaultShape: "default"})
	for _, b := range additional {
		tm.registerBreed(b)
	}
	return tm
}

func (tm *TurtleManager) registerBreed(b Breed) {
	cp := b
	tm.breeds[b.Name] = &cp
	tm.breedOrder = append(tm.breedOrder, b.Name)
}

func (tm *TurtleManager) breedIndex(name string) (uint32, error) {
	for i, n := range tm.breedOrder {
		if n == name {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("world: unknown breed %q", name)
}

// Count is the number of live turtles.
func (tm *TurtleManager) Count() int { return tm.liveCount }

// CreateTurtles creates count new turtles of the given breed at
// (xcor, ycor), assigning each a random color then a random heading
// via nextInt. Growing the row buffer here is exactly the
// reserve-turtles moment: any previously-cached row pointer into Rows
// is invalidated by this call.
func (tm *TurtleManager) CreateTurtles(count int, breedName string, xcor, ycor float64, nextInt func(int64) int64) ([]TurtleID, error) {
	breedIdx, err := tm.breedIndex(breedName)
	if err != nil {
		return nil, err
	}

	base := tm.Rows.RowCount
	tm.Rows.Reserve(base + count)

	ids := make([]TurtleID, 0, count)
	for i := 0; i < count; i++ {
		row := base + i
		who := tm.nextWho
		tm.nextWho++

		color := RandomColor(nextInt)
		heading := RandomHeading(nextInt)

		setF(tm.Rows, row, 2, xcor)
		setF(tm.Rows, row, 3, ycor)
		setF(tm.Rows, row, 4, float64(heading))
		setF(tm.Rows, row, 5, float64(color))
		setF(tm.Rows, row, 6, 1.0) // size
		setF(tm.Rows, row, 7, float64(color))
		setI(tm.Rows, row, 0, int32(breedIdx))
		setI(tm.Rows, row, 1, int32(who))

		ids = append(ids, TurtleID{Breed: breedIdx, Who: who, Index: row})
		tm.liveCount++
	}
	return ids, nil
}

// IsAlive reports whether id still refers to a live turtle at its row
// (the generation check: a stale index whose who no
// longer matches is not this turtle anymore).
func (tm *TurtleManager) IsAlive(id TurtleID) bool {
	if id.Index < 0 || id.Index >= tm.Rows.RowCount {
		return false
	}
	who := getI(tm.Rows, id.Index, 1)
	dead := getB(tm.Rows, id.Index, 9)
	return !dead && uint32(who) == id.Who
}

// AllTurtleIDs returns the IDs of every currently live turtle, in row
// order. Used by the Ask(AllTurtles) specialization to build the
// slice a ShuffledOwned iterator consumes.
func (tm *TurtleManager) AllTurtleIDs() []TurtleID {
	ids := make([]TurtleID, 0, tm.liveCount)
	for row := 0; row < tm.Rows.RowCount; row++ {
		if getB(tm.Rows, row, 9) {
			continue
		}
		who := getI(tm.Rows, row, 1)
		breed := getI(tm.Rows, row, 0)
		ids = append(ids, TurtleID{Breed: uint32(breed), Who: uint32(who), Index: row})
	}
	return ids
}

// Die marks a turtle's row dead. Its row index may later be reused by a
// new turtle with a different Who, which is exactly why TurtleID carries
// both.
func (tm *TurtleManager) Die(id TurtleID) {
	if !tm.IsAlive(id) {
		return
	}
	setB(tm.Rows, id.Index, 9, true)
	tm.liveCount--
}

// Position/Heading/Color are read/write accessors used by compiled
// code's lowered field accesses in the native test embedder (internal/
// hostsim) and by the host functions.
func (tm *TurtleManager) Position(id TurtleID) Point {
	return Point{X: getF(tm.Rows, id.Index, 2), Y: getF(tm.Rows, id.Index, 3)}
}

func (tm *TurtleManager) SetPosition(id TurtleID, p Point) {
	setF(tm.Rows, id.Index, 2, p.X)
	setF(tm.Rows, id.Index, 3, p.Y)
}

func (tm *TurtleManager) Heading(id TurtleID) Heading {
	return Heading(getF(tm.Rows, id.Index, 4))
}

func (tm *TurtleManager) SetHeading(id TurtleID, h Heading) {
	setF(tm.Rows, id.Index, 4, float64(h))
}

func (tm *TurtleManager) Color(id TurtleID) Color {
	return Color(getF(tm.Rows, id.Index, 5))
}

func (tm *TurtleManager) SetColor(id TurtleID, c Color) {
	setF(tm.Rows, id.Index, 5, float64(c))
}

// FieldValue/SetFieldValue give internal/hostsim a name-indexed accessor
// over every column of the turtle schema (xcor, ycor, heading, color,
// size, who, breed, hidden?), dispatching on the column's declared
// reflect.TypeInfo rather than hardcoding per-field logic, so a future
// schema addition needs no change here. Every value crosses the host-
// call boundary as a float64, matching how a bool already round-trips as 0.0/
// 1.0 everywhere else in this pipeline (e.g. KBoolLit).
func (tm *TurtleManager) FieldValue(id TurtleID, name string) (float64, error) {
	ty, _, col, err := tm.Rows.Schema.FieldDescAndOffset(name)
	if err != nil {
		return 0, err
	}
	switch ty {
	case reflect.Bool:
		if getB(tm.Rows, id.Index, col) {
			return 1, nil
		}
		return 0, nil
	case reflect.Int32:
		return float64(getI(tm.Rows, id.Index, col)), nil
	default:
		return getF(tm.Rows, id.Index, col), nil
	}
}

func (tm *TurtleManager) SetFieldValue(id TurtleID, name string, v float64) error {
	ty, _, col, err := tm.Rows.Schema.FieldDescAndOffset(name)
	if err != nil {
		return err
	}
	switch ty {
	case reflect.Bool:
		setB(tm.Rows, id.Index, col, v != 0)
	case reflect.Int32:
		setI(tm.Rows, id.Index, col, int32(v))
	default:
		setF(tm.Rows, id.Index, col, v)
	}
	return nil
}

// ClearTurtles removes every turtle, resetting who-numbering. Part of
// clear-all.
func (tm *TurtleManager) ClearTurtles() {
	tm.Rows = rowbuf.New(turtleSchema, 0)
	tm.nextWho = 0
	tm.liveCount = 0
}
