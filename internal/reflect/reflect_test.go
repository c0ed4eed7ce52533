package reflect

import "testing"

func TestDescriptorIdentityIsStable(t *testing.T) {
	a, ok := Lookup("Float")
	if !ok {
		t.Fatal("Float must be registered")
	}
	b, ok := Lookup("Float")
	if !ok {
		t.Fatal("Float must be registered")
	}
	if !Same(a, b) || !Same(a, Float) {
		t.Fatal("every lookup of a type must yield the same descriptor pointer")
	}
	if Same(Float, Color) {
		t.Fatal("distinct types must have distinct descriptor pointers")
	}
}

func TestRegisterPanicsOnDuplicateName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("registering a duplicate name must panic")
		}
	}()
	Register(TypeInfo{Name: "Float", Layout: Layout{Size: 8, Align: 8}})
}

// A type held both in registers and in row storage must describe the
// same primitive sequence in both shapes.
func TestWellKnownShapesAreConsistent(t *testing.T) {
	for _, ti := range []*TypeInfo{Float, Bool, Color, Heading, Point, TurtleID, PatchID, LinkID} {
		if !ConsistentShapes(ti) {
			t.Fatalf("%s: LIR shape and memory shape disagree", ti.Name)
		}
		if len(ti.MemRepr) > 0 {
			last := ti.MemRepr[len(ti.MemRepr)-1]
			if last.Offset+last.Prim.Size() > ti.Size {
				t.Fatalf("%s: memory shape overruns the declared layout", ti.Name)
			}
		}
	}
}
