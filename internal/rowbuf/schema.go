// Package rowbuf implements row-buffer storage: a growable block of
// memory laid out as N rows of a fixed schema, with a side-table
// fallback for non-zeroable fields.
package rowbuf

import (
	"fmt"

	"oxitortoise/internal/reflect"
)

// Column is one field of a schema: its reflection descriptor and byte
// offset within a row.
type Column struct {
	Name   string
	Type   *reflect.TypeInfo
	Offset int
}

// Schema is an ordered sequence of columns with a fixed row stride.
type Schema struct {
	Columns []Column
	Stride  int
}

// NewSchema lays out columns back-to-back, rounding each offset up to the
// column's own alignment (simple, non-optimal packing — matches the
// row layout's fixed-schema contract without claiming to minimize
// padding).
func NewSchema(cols []Column) Schema {
	offset := 0
	laidOut := make([]Column, len(cols))
	for i, c := range cols {
		align := c.Type.Align
		if align <= 0 {
			align = 1
		}
		if rem := offset % align; rem != 0 {
			offset += align - rem
		}
		c.Offset = offset
		laidOut[i] = c
		offset += c.Type.Size
	}
	return Schema{Columns: laidOut, Stride: offset}
}

// FieldDescAndOffset finds the column named name, returning its
// descriptor, byte offset, and column index; the lowering pass uses it
// to compute field addresses.
func (s Schema) FieldDescAndOffset(name string) (*reflect.TypeInfo, int, int, error) {
	for i, c := range s.Columns {
		if c.Name == name {
			return c.Type, c.Offset, i, nil
		}
	}
	return nil, 0, 0, fmt.Errorf("rowbuf: schema has no field %q", name)
}
