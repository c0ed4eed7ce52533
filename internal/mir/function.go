package mir

import "oxitortoise/internal/reflect"

// AgentClass is the procedure's agent-class prefix ("O???" /
// "?T??" / "??P?" / "???L" style tags, simplified to an enum here since
// the AST builder already parses the tag string).
type AgentClass uint8

const (
	AgentObserver AgentClass = iota
	AgentTurtle
	AgentPatch
	AgentLink
)

// Local is one typed stack slot owned by a Function.
type Local struct {
	Name string
	Type AbstractTy
	// Concrete is set once lowering has chosen a representation; until
	// then only the abstract layer is pinned.
	Concrete *reflect.TypeInfo
}

// Function owns a signature, a local list, and a statement block.
type Function struct {
	ID           FunctionID
	Name         string
	Args         []LocalID // indices into Locals
	Locals       []Local
	AgentClass   AgentClass
	ReturnsValue bool
	ReturnType   AbstractTy
	Body         []Statement
}

func (f *Function) AddLocal(name string, ty AbstractTy) LocalID {
	id := LocalID(len(f.Locals))
	f.Locals = append(f.Locals, Local{Name: name, Type: ty})
	return id
}
