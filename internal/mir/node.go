package mir

// NodeKind enumerates the unit of value computation. The set below covers every
// primitive the language surface exercises, plus the post-peephole
// and post-lowering primitives.
type NodeKind uint16

const (
	// Literals and references.
	KNumberLit NodeKind = iota
	KBoolLit
	KStringLit
	KNobodyLit
	KGetLocal
	KSetLocal
	KGetGlobal
	KSetGlobal
	KGetTurtleVar
	KSetTurtleVar
	KGetPatchVar
	KSetPatchVar

	// Agentset / agent-class references, pre-peephole.
	KAllTurtlesLit
	KAllPatchesLit
	KAskAgentset // generic: recipient is some agentset-valued node

	// Peephole-specialized.
	KAskAllTurtles
	KAskAllPatches

	// Commands.
	KClearAll
	KResetTicks
	KAdvanceTick
	KGetTick
	KCreateTurtles
	KFd // forward
	KDiffuse
	KDie

	// Reporters / host calls with a result.
	KScaleColor
	KRandomInt
	KOneOfList
	KDistanceXY // pre-peephole sugar
	KGetPositionOf
	KMakePoint
	KEuclideanDistanceNoWrap
	KOffsetDistanceByHeading
	KPatchAt

	// Arithmetic / logic.
	KBinOp
	KUnOp

	// User procedures.
	KUserProcCall

	// Post-lowering primitives.
	KConst
	KMemLoad
	KMemStore
	KDeriveField
	KDeriveElement
	KArithPrim
	KHostCall
)

// BinOp/UnOp operator tags, carried in Node.Imm.Str for simplicity
// (e.g. "+", "-", "*", "/", "<", "and").
type Op = string

// ImmValue holds whichever immediate a NodeKind needs; only the field
// matching the node's kind is meaningful.
type ImmValue struct {
	Float float64
	Str   string
	Int   int64
	Bool  bool
}

// Node is a flat tagged struct rather than a Go interface: the
// "Placeholder swap during lowering" wants a node rewritable in place
// (swap with a sentinel, read elsewhere, then overwrite), which an
// arena of structs supports directly — a slice of interface values
// would require re-boxing on every rewrite and loses identity-by-index.
type Node struct {
	Kind NodeKind
	Args []NodeID // ordered dependency list
	Imm  ImmValue

	// Body holds nested statement blocks for control-bearing nodes
	// (KAskAgentset/KAskAllTurtles/KAskAllPatches/KCreateTurtles bodies).
	Body []Statement

	IsPure     bool
	OutputType AbstractTy

	// HostCallName names the host function a node compiles to. Lowering
	// sets it on KHostCall nodes, on the KMemLoad/KMemStore nodes of
	// turtle and patch field accesses, and on ask and create-turtles
	// nodes.
	HostCallName string

	// dead marks a node left in the arena but unreachable from any
	// statement. Peephole rewrites that replace a node in place leave
	// its old Args/Kind behind as dead rather than compacting the arena.
	dead bool
}

// StmtKind tags a Statement.
type StmtKind uint8

const (
	StmtEval StmtKind = iota
	StmtIf
	StmtRepeat
	StmtReturn
	StmtStop
)

// Statement is one entry of a function body's ordered block.
type Statement struct {
	Kind StmtKind

	// StmtEval / StmtIf(cond) / StmtRepeat(count) / StmtReturn(value).
	Node NodeID

	// StmtIf only.
	Then []Statement
	Else []Statement

	// StmtRepeat only.
	RepeatBody []Statement
}
