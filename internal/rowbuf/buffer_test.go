package rowbuf

import (
	"testing"

	"oxitortoise/internal/reflect"
	"oxitortoise/internal/value"
)

func testSchema() Schema {
	return NewSchema([]Column{
		{Name: "xcor", Type: reflect.Float},
		{Name: "ycor", Type: reflect.Float},
		{Name: "breed", Type: reflect.TurtleID}, // not zeroable -> side table
	})
}

func TestReserveZeroPreservesBytes(t *testing.T) {
	buf := New(testSchema(), 4)
	if err := buf.SetAny(1, 0, value.MustPack(value.FloatVariant(42))); err != nil {
		t.Fatal(err)
	}
	before := append([]byte(nil), buf.RowBytes(1)...)
	buf.Reserve(0)
	after := buf.RowBytes(1)
	if string(before) != string(after) {
		t.Fatalf("Reserve(0) changed row bytes: %v != %v", before, after)
	}
}

func TestGrowKeepsExistingRows(t *testing.T) {
	buf := New(testSchema(), 2)
	want := value.MustPack(value.FloatVariant(7))
	if err := buf.SetAny(1, 1, want); err != nil {
		t.Fatal(err)
	}
	buf.Reserve(10)
	if buf.RowCount != 10 {
		t.Fatalf("expected 10 rows, got %d", buf.RowCount)
	}
	got, err := buf.GetAny(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	gv, _ := value.Unpack(got)
	if gv.Float != 7 {
		t.Fatalf("row data lost after growth: %+v", gv)
	}
}

func TestSideTableForNonZeroableColumn(t *testing.T) {
	buf := New(testSchema(), 1)
	v, err := buf.GetAny(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	uv, _ := value.Unpack(v)
	if uv.Kind != value.KindFloat || uv.Float != 0 {
		t.Fatalf("expected default zero for unset side-table cell, got %+v", uv)
	}
}
