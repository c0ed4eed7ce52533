// Package astmir consumes the JSON AST and builds MIR
// functions, locals and globals.
package astmir

// RawNode is the tagged-object shape of the AST's Node grammar:
// "command-app (named command + args), reporter-call (named reporter +
// args), reporter-proc-call (user reporter by name), command-block
// (list of statements), reporter-block (one node), let-binding (name +
// node), let-ref (name), procedure-arg-ref (name), number, string,
// list, nobody."
//
// Two fields extend that grammar for concerns left to the "parsed
// elsewhere": Block carries the nested command-block a control command
// (ask/create-turtles) attaches to itself (command-app's Args are
// value-producing operands only), and the variable-name convention for
// "set"/turtle-var/patch-var/global access is: a bare reporter-call or
// the first Arg of a "set" command-app names the variable, resolved in
// the order agentClassVarScope (builder.go) gives for the procedure's
// agent class (turtle procedures: turtle built-ins, declared turtle
// vars, then globals; patch procedures: patch built-ins, declared patch
// vars, then globals; any other class: globals only).
type RawNode struct {
	Tag string `json:"tag"`

	Name string `json:"name,omitempty"`

	Args  []RawNode `json:"args,omitempty"`
	Block *RawNode  `json:"block,omitempty"`

	Statements []RawNode `json:"statements,omitempty"` // command-block
	Node       *RawNode  `json:"node,omitempty"`        // reporter-block / let-binding's bound value

	Number float64   `json:"number,omitempty"`
	String string    `json:"string,omitempty"`
	Items  []RawNode `json:"list,omitempty"`
}

// RawMetaVars mirrors the AST's metaVars object.
type RawMetaVars struct {
	Globals    []string `json:"globals"`
	TurtleVars []string `json:"turtleVars"`
	PatchVars  []string `json:"patchVars"`
	LinkVars   []string `json:"linkVars"`
}

// RawProcedure mirrors one entry of the AST's procedures array.
type RawProcedure struct {
	Name       string    `json:"name"`
	Args       []string  `json:"args"`
	ReturnType string    `json:"returnType"` // "unit" | "wildcard"
	AgentClass string    `json:"agentClass"` // "O???" | "?T??" | "??P?" | "???L"
	Statements []RawNode `json:"statements"`
}

// RawProgram is the top-level AST object.
type RawProgram struct {
	MetaVars   RawMetaVars    `json:"metaVars"`
	Procedures []RawProcedure `json:"procedures"`
}
