package astmir

import (
	"encoding/json"
	"fmt"
	"io"

	"oxitortoise/internal/mir"
)

// BuildError reports a rejected AST — invalid JSON, unknown primitive
// name, arity mismatch, undefined variable reference — with a message
// carrying the offending node.
type BuildError struct {
	Node    string
	Message string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("astmir: %s: %s", e.Node, e.Message)
}

func buildErr(tag, format string, args ...interface{}) *BuildError {
	return &BuildError{Node: tag, Message: fmt.Sprintf(format, args...)}
}

// DecodeProgram parses the JSON AST from r.
func DecodeProgram(r io.Reader) (*RawProgram, error) {
	var raw RawProgram
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, &BuildError{Node: "<root>", Message: err.Error()}
	}
	return &raw, nil
}

// agentClassVarScope says which variable namespace is searched first
// inside a procedure with the given agent class, narrowing the
// "resolved by priority order" convention documented on RawNode.
func agentClassVarScope(ac mir.AgentClass) []varScope {
	switch ac {
	case mir.AgentTurtle:
		return []varScope{scopeTurtleBuiltin, scopeTurtleVar, scopeGlobal}
	case mir.AgentPatch:
		return []varScope{scopePatchBuiltin, scopePatchVar, scopeGlobal}
	default:
		return []varScope{scopeGlobal}
	}
}

type varScope int

const (
	scopeTurtleBuiltin varScope = iota
	scopeTurtleVar
	scopePatchBuiltin
	scopePatchVar
	scopeGlobal
)

var turtleBuiltinVars = map[string]bool{
	"xcor": true, "ycor": true, "heading": true, "color": true,
	"size": true, "who": true, "breed": true, "hidden?": true,
}

var patchBuiltinVars = map[string]bool{
	"pxcor": true, "pycor": true, "pcolor": true,
}

func parseAgentClass(tag string) (mir.AgentClass, error) {
	if len(tag) != 4 {
		return 0, fmt.Errorf("agentClass tag must be 4 characters, got %q", tag)
	}
	switch {
	case tag[0] == 'O':
		return mir.AgentObserver, nil
	case tag[1] == 'T':
		return mir.AgentTurtle, nil
	case tag[2] == 'P':
		return mir.AgentPatch, nil
	case tag[3] == 'L':
		return mir.AgentLink, nil
	default:
		return 0, fmt.Errorf("agentClass tag %q names no agent class", tag)
	}
}

// builder threads the in-progress Program plus the per-function local
// scope while walking one procedure's statement tree.
type builder struct {
	prog *mir.Program
}

// Build constructs a mir.Program from raw: one MIR function per
// procedure, with forward references across procedures resolved on a
// second pass.
func Build(raw *RawProgram) (*mir.Program, error) {
	p := mir.NewProgram()
	p.GlobalNames = raw.MetaVars.Globals
	p.TurtleVarNames = raw.MetaVars.TurtleVars
	p.PatchVarNames = raw.MetaVars.PatchVars
	p.LinkVarNames = raw.MetaVars.LinkVars

	b := &builder{prog: p}

	// First pass: register every procedure's signature so forward
	// UserProcCall references resolve regardless of declaration order.
	for _, proc := range raw.Procedures {
		ac, err := parseAgentClass(proc.AgentClass)
		if err != nil {
			return nil, buildErr(proc.Name, "%v", err)
		}
		fn := mir.Function{
			Name:         proc.Name,
			AgentClass:   ac,
			ReturnsValue: proc.ReturnType == "wildcard",
		}
		for _, argName := range proc.Args {
			fn.AddLocal(argName, mir.AbstractTy{Kind: mir.Bottom})
			fn.Args = append(fn.Args, mir.LocalID(len(fn.Locals)-1))
		}
		p.AddFunction(fn)
	}

	// Second pass: build bodies now that every name resolves.
	for i, proc := range raw.Procedures {
		fnID := mir.FunctionID(i)
		fn := p.Function(fnID)
		locals := make(map[string]mir.LocalID, len(fn.Locals))
		for idx, l := range fn.Locals {
			locals[l.Name] = mir.LocalID(idx)
		}
		scopes := agentClassVarScope(fn.AgentClass)
		fb := &funcBuilder{b: b, fn: fn, locals: locals, scopes: scopes}
		body, err := fb.buildBlock(proc.Statements)
		if err != nil {
			return nil, err
		}
		fn.Body = body
	}

	return p, nil
}
