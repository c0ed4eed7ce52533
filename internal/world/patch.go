package world

import (
	"oxitortoise/internal/reflect"
	"oxitortoise/internal/rowbuf"
)

// Patches is the fixed-size grid of patches, sized once by
// the topology at world creation. Patch IDs are dense row indices
// (reflect.PatchID), not generational — patches are never created or
// destroyed, only cleared.
type Patches struct {
	Topology Topology
	Rows     *rowbuf.Buffer
	// customOffset is the column index of the first model-declared patch
	// variable (metaVars.patchVars), after the three built-ins.
	customOffset int
	customNames  []string
}

const (
	patchColPColor = 2
)

// PatchSchemaShape returns the patch row schema for a model declaring
// customVars, without allocating any rows. internal/lowering calls this
// to compute field offsets independent of any live
// World instance.
func PatchSchemaShape(customVars []string) rowbuf.Schema {
	cols := []rowbuf.Column{
		{Name: "pxcor", Type: reflect.Float},
		{Name: "pycor", Type: reflect.Float},
		{Name: "pcolor", Type: reflect.Float},
	}
	for _, name := range customVars {
		cols = append(cols, rowbuf.Column{Name: name, Type: reflect.Float})
	}
	return rowbuf.NewSchema(cols)
}

// NewPatches builds the patch grid for topology, with one extra Float
// column per name in customVars (the model's declared patch-owned
// variables, e.g. a "chemical" field a model diffuses).
func NewPatches(topo Topology, customVars []string) *Patches {
	schema := PatchSchemaShape(customVars)

	count := topo.PatchCount()
	buf := rowbuf.New(schema, count)
	p := &Patches{Topology: topo, Rows: buf, customOffset: 3, customNames: customVars}

	for row := 0; row < count; row++ {
		x := topo.MinX + row%topo.Width
		y := topo.MinY + row/topo.Width
		setF(buf, row, 0, float64(x))
		setF(buf, row, 1, float64(y))
	}
	return p
}

// IndexOf converts a patch coordinate into its row index.
func (p *Patches) IndexOf(point PointInt) (int, bool) {
	return p.Topology.PatchIndexAt(point)
}

// VarIndex resolves a custom patch variable name to its column index.
func (p *Patches) VarIndex(name string) (int, error) {
	_, _, col, err := p.Rows.Schema.FieldDescAndOffset(name)
	return col, err
}

func (p *Patches) GetVar(row, col int) float64     { return getF(p.Rows, row, col) }
func (p *Patches) SetVar(row, col int, v float64)  { setF(p.Rows, row, col, v) }

// FieldValue/SetFieldValue resolve a patch field by name (pxcor, pycor,
// pcolor, or any model-declared custom variable) in one step, for
// internal/hostsim's "patch-field:<name>" host call.
func (p *Patches) FieldValue(row int, name string) (float64, error) {
	col, err := p.VarIndex(name)
	if err != nil {
		return 0, err
	}
	return p.GetVar(row, col), nil
}

func (p *Patches) SetFieldValue(row int, name string, v float64) error {
	col, err := p.VarIndex(name)
	if err != nil {
		return err
	}
	p.SetVar(row, col, v)
	return nil
}

func (p *Patches) Color(row int) Color     { return Color(getF(p.Rows, row, patchColPColor)) }
func (p *Patches) SetColor(row int, c Color) { setF(p.Rows, row, patchColPColor, float64(c)) }

// ClearPatchVariables resets pcolor to black and every custom variable
// to zero, per clear-all, without reallocating the grid
// (patches are never created/destroyed).
func (p *Patches) ClearPatchVariables() {
	for row := 0; row < p.Rows.RowCount; row++ {
		p.SetColor(row, Black)
		for col := p.customOffset; col < len(p.Rows.Schema.Columns); col++ {
			p.SetVar(row, col, 0)
		}
	}
}

// neighbors8 returns the row indices of up to 8 neighboring patches
// around row, honoring the topology's wrap flags. Missing neighbors (at
// a non-wrapping edge) are simply absent from the result.
func (p *Patches) neighbors8(row int) []int {
	x := p.Topology.MinX + row%p.Topology.Width
	y := p.Topology.MinY + row/p.Topology.Width

	var out []int
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if idx, ok := p.Topology.PatchIndexAt(PointInt{X: x + dx, Y: y + dy}); ok {
				out = append(out, idx)
			}
		}
	}
	return out
}

// Diffuse8 spreads fraction of each patch's col value evenly across its
// (up to 8) neighbors, leaving any undistributed share — at a
// non-wrapping edge — on the source patch. The formula is NetLogo's
// documented diffuse semantics: each patch gives away value*fraction
// split 8 ways,
// and any share a missing neighbor would have received stays put.
func (p *Patches) Diffuse8(col int, fraction float64) {
	n := p.Rows.RowCount
	current := make([]float64, n)
	for row := 0; row < n; row++ {
		current[row] = p.GetVar(row, col)
	}

	give := make([]float64, n)
	neighborSets := make([][]int, n)
	for row := 0; row < n; row++ {
		neighborSets[row] = p.neighbors8(row)
		give[row] = current[row] * fraction / 8.0
	}

	next := make([]float64, n)
	for row := 0; row < n; row++ {
		next[row] = current[row] - give[row]*float64(len(neighborSets[row]))
	}
	for row := 0; row < n; row++ {
		for _, nb := range neighborSets[row] {
			next[nb] += give[row]
		}
	}

	for row := 0; row < n; row++ {
		p.SetVar(row, col, next[row])
	}
}
