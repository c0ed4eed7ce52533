package world

import (
	"oxitortoise/internal/rowbuf"
	"oxitortoise/internal/value"
)

// getF/setF/getI/setI/getB/setB wrap rowbuf.Buffer's Any-typed accessors
// for the fixed-schema columns internal/world defines directly (as
// opposed to the dynamic per-model schemas the AST-to-MIR builder
// constructs for turtle/patch-owned variables). Panics surface
// programmer error (a bad column index or a Pack failure on a non-NaN
// float) rather than being threaded through every call site.
func getF(b *rowbuf.Buffer, row, col int) float64 {
	a, err := b.GetAny(row, col)
	if err != nil {
		panic(err)
	}
	v, err := value.Unpack(a)
	if err != nil {
		panic(err)
	}
	return v.Float
}

func setF(b *rowbuf.Buffer, row, col int, f float64) {
	if err := b.SetAny(row, col, value.MustPack(value.FloatVariant(f))); err != nil {
		panic(err)
	}
}

func getI(b *rowbuf.Buffer, row, col int) int32 {
	return int32(getF(b, row, col))
}

func setI(b *rowbuf.Buffer, row, col int, v int32) {
	setF(b, row, col, float64(v))
}

func getB(b *rowbuf.Buffer, row, col int) bool {
	a, err := b.GetAny(row, col)
	if err != nil {
		panic(err)
	}
	v, err := value.Unpack(a)
	if err != nil {
		panic(err)
	}
	return v.Bool
}

func setB(b *rowbuf.Buffer, row, col int, v bool) {
	if err := b.SetAny(row, col, value.MustPack(value.BoolVariant(v))); err != nil {
		panic(err)
	}
}
