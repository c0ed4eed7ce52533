package reflect

// Well-known descriptors for the primitive concrete types every
// backend of the compiler needs to know about.
var (
	Float = Register(TypeInfo{
		Name:       "Float",
		Layout:     Layout{Size: 8, Align: 8},
		IsZeroable: true,
		LIRRepr:    []LIRPrimitive{LIRF64},
		MemRepr:    []MemSlot{{Offset: 0, Prim: MemF64}},
	})
	Bool = Register(TypeInfo{
		Name:       "Bool",
		Layout:     Layout{Size: 4, Align: 4},
		IsZeroable: true,
		LIRRepr:    []LIRPrimitive{LIRI32},
		MemRepr:    []MemSlot{{Offset: 0, Prim: MemI32}},
	})
	Color = Register(TypeInfo{
		Name:       "Color",
		Layout:     Layout{Size: 8, Align: 8},
		IsZeroable: true,
		LIRRepr:    []LIRPrimitive{LIRF64},
		MemRepr:    []MemSlot{{Offset: 0, Prim: MemF64}},
	})
	Heading = Register(TypeInfo{
		Name:       "Heading",
		Layout:     Layout{Size: 8, Align: 8},
		IsZeroable: true,
		LIRRepr:    []LIRPrimitive{LIRF64},
		MemRepr:    []MemSlot{{Offset: 0, Prim: MemF64}},
	})
	Point = Register(TypeInfo{
		Name:       "Point",
		Layout:     Layout{Size: 16, Align: 8},
		IsZeroable: true,
		LIRRepr:    []LIRPrimitive{LIRF64, LIRF64},
		MemRepr:    []MemSlot{{Offset: 0, Prim: MemF64}, {Offset: 8, Prim: MemF64}},
	})
	TurtleID = Register(TypeInfo{
		Name:       "TurtleId",
		Layout:     Layout{Size: 8, Align: 4},
		IsZeroable: false, // 0 is a valid dense index; "no turtle" is NOT all-zero
		LIRRepr:    []LIRPrimitive{LIRI32, LIRI32},
		MemRepr:    []MemSlot{{Offset: 0, Prim: MemI32}, {Offset: 4, Prim: MemI32}},
	})
	PatchID = Register(TypeInfo{
		Name:       "PatchId",
		Layout:     Layout{Size: 4, Align: 4},
		IsZeroable: true,
		LIRRepr:    []LIRPrimitive{LIRI32},
		MemRepr:    []MemSlot{{Offset: 0, Prim: MemI32}},
	})
	LinkID = Register(TypeInfo{
		Name:       "LinkId",
		Layout:     Layout{Size: 12, Align: 4},
		IsZeroable: false,
		LIRRepr:    []LIRPrimitive{LIRI32, LIRI32, LIRI32},
		MemRepr:    []MemSlot{{Offset: 0, Prim: MemI32}, {Offset: 4, Prim: MemI32}, {Offset: 8, Prim: MemI32}},
	})
	Int32 = Register(TypeInfo{
		Name:       "Int32",
		Layout:     Layout{Size: 4, Align: 4},
		IsZeroable: true,
		LIRRepr:    []LIRPrimitive{LIRI32},
		MemRepr:    []MemSlot{{Offset: 0, Prim: MemI32}},
	})
	Unit = Register(TypeInfo{
		Name:       "Unit",
		Layout:     Layout{Size: 0, Align: 1},
		IsZeroable: true,
		LIRRepr:    nil,
		MemRepr:    nil,
	})
	// Any is the NaN-boxed polymorphic scalar (internal/value.Any). Its
	// own package cannot import reflect AND be imported back by reflect
	// without a cycle, so the descriptor lives here and value.Any simply
	// claims it via value.AnyType() returning this pointer.
	AnyValue = Register(TypeInfo{
		Name:       "Any",
		Layout:     Layout{Size: 8, Align: 8},
		IsZeroable: true,
		LIRRepr:    []LIRPrimitive{LIRF64},
		MemRepr:    []MemSlot{{Offset: 0, Prim: MemF64}},
	})
)
