package rowbuf

import (
	"fmt"

	"oxitortoise/internal/reflect"
	"oxitortoise/internal/value"
)

// sideKey identifies one non-zeroable cell by (row, column).
type sideKey struct {
	Row, Col int
}

// Buffer is a growable, row-major store of a fixed Schema. Fields whose
// type is zeroable live directly in Data; fields that are not zeroable
// (their default isn't the all-zero pattern) live in the side map
// instead, initialized lazily on first write.
//
// Invariant: len(Data) == RowCount * Schema.Stride.
type Buffer struct {
	Schema   Schema
	Data     []byte
	RowCount int
	side     map[sideKey]value.Any
}

// New allocates a buffer with capacity rows, all zero-initialized.
func New(schema Schema, capacity int) *Buffer {
	return &Buffer{
		Schema:   schema,
		Data:     make([]byte, capacity*schema.Stride),
		RowCount: capacity,
		side:     make(map[sideKey]value.Any),
	}
}

// Reserve grows the buffer to hold at least n rows, zero-extending the
// new rows. The base pointer may move: any Go slice
// returned by Row/RowBytes before a Reserve call must be re-fetched
// afterward. Reserve(0) (or any n <= RowCount) is a no-op that leaves
// existing row bytes untouched.
func (b *Buffer) Reserve(n int) {
	if n <= b.RowCount {
		return
	}
	grown := make([]byte, n*b.Schema.Stride)
	copy(grown, b.Data)
	b.Data = grown
	b.RowCount = n
}

// RowBytes returns the raw bytes for row i. The returned slice aliases
// Buffer.Data and is invalidated by any subsequent Reserve.
func (b *Buffer) RowBytes(i int) []byte {
	b.checkRow(i)
	start := i * b.Schema.Stride
	return b.Data[start : start+b.Schema.Stride]
}

func (b *Buffer) checkRow(i int) {
	if i < 0 || i >= b.RowCount {
		panic(fmt.Sprintf("rowbuf: row index %d out of bounds (have %d rows)", i, b.RowCount))
	}
}

// Stride is exposed so compiled code's address arithmetic
// (DeriveElement / MemLoad in internal/lir) can be modeled as
// base + row*stride + field_offset.
func (b *Buffer) Stride() int { return b.Schema.Stride }

// GetAny reads column col of row as a value.Any, going through the side
// table when the column's type is not zeroable. Only columns whose type
// has exactly one MemSlot are directly addressable this way (a Float,
// Bool, Int32, Color, Heading, PatchID, or Any field) — a composite
// multi-slot type (Point, TurtleID, LinkID) has no single Any
// representation and must be read field-by-field by its owner.
func (b *Buffer) GetAny(row, col int) (value.Any, error) {
	c, err := b.column(col)
	if err != nil {
		return value.Any{}, err
	}
	if !c.Type.IsZeroable {
		key := sideKey{row, col}
		if v, ok := b.side[key]; ok {
			return v, nil
		}
		return value.Zero, nil
	}
	slot, err := singleMemSlot(c)
	if err != nil {
		return value.Any{}, err
	}
	return readPrimitive(b.RowBytes(row)[c.Offset+slot.Offset:], slot.Prim, c.Type == reflect.Bool)
}

// SetAny writes col of row. Non-zeroable columns are routed to the side
// table instead of being written into Data.
func (b *Buffer) SetAny(row, col int, v value.Any) error {
	b.checkRow(row)
	c, err := b.column(col)
	if err != nil {
		return err
	}
	if !c.Type.IsZeroable {
		b.side[sideKey{row, col}] = v
		return nil
	}
	slot, err := singleMemSlot(c)
	if err != nil {
		return err
	}
	return writePrimitive(b.RowBytes(row)[c.Offset+slot.Offset:], slot.Prim, c.Type == reflect.Bool, v)
}

func singleMemSlot(c Column) (reflect.MemSlot, error) {
	if len(c.Type.MemRepr) != 1 {
		return reflect.MemSlot{}, fmt.Errorf("rowbuf: column %q's type %q is not a single-slot scalar", c.Name, c.Type.Name)
	}
	return c.Type.MemRepr[0], nil
}

func (b *Buffer) column(col int) (Column, error) {
	if col < 0 || col >= len(b.Schema.Columns) {
		return Column{}, fmt.Errorf("rowbuf: column index %d out of range", col)
	}
	return b.Schema.Columns[col], nil
}
