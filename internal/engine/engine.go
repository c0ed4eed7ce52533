// Package engine drives the whole compilation pipeline end to end —
// AST → MIR → type inference → peephole → lowering → MIR→LIR →
// stackification → WASM emission → installation — and owns the single
// step boundary the embedder calls simulation steps through.
package engine

import (
	"bytes"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"oxitortoise/internal/astmir"
	"oxitortoise/internal/hostabi"
	"oxitortoise/internal/hostsim"
	"oxitortoise/internal/install"
	"oxitortoise/internal/lir"
	"oxitortoise/internal/lowering"
	"oxitortoise/internal/mir"
	"oxitortoise/internal/mir2lir"
	"oxitortoise/internal/peephole"
	"oxitortoise/internal/rng"
	"oxitortoise/internal/stackify"
	"oxitortoise/internal/typeinfer"
	"oxitortoise/internal/wasmgen"
	"oxitortoise/internal/world"
)

// Model is one fully compiled model: every intermediate product is kept
// so callers (the CLI's dump-dot, the debug server, tests) can inspect
// any stage.
type Model struct {
	Raw     *astmir.RawProgram
	Program *mir.Program
	LIR     *lir.Module
	Wasm    *wasmgen.Module
}

// Compile runs the full compile-time pipeline on the JSON AST read
// from r. Every error it returns is one of the stages' typed build
// failures (astmir.BuildError, typeinfer.TypeError, lowering.Error,
// mir2lir.EmitError, stackify.Error, wasmgen.Error).
func Compile(r io.Reader) (*Model, error) {
	raw, err := astmir.DecodeProgram(r)
	if err != nil {
		return nil, err
	}
	return CompileAST(raw)
}

// CompileBytes is Compile over an in-memory AST document.
func CompileBytes(src []byte) (*Model, error) {
	return Compile(bytes.NewReader(src))
}

// CompileAST compiles an already-decoded AST.
func CompileAST(raw *astmir.RawProgram) (*Model, error) {
	prog, err := astmir.Build(raw)
	if err != nil {
		return nil, err
	}
	if err := typeinfer.Infer(prog); err != nil {
		return nil, err
	}
	peephole.Run(prog)
	if err := lowering.Lower(prog); err != nil {
		return nil, err
	}

	lirMod, err := mir2lir.Compile(prog)
	if err != nil {
		return nil, err
	}
	if err := stackify.Verify(lirMod); err != nil {
		return nil, err
	}

	cat, err := hostabi.Default()
	if err != nil {
		return nil, err
	}
	wasmMod, err := wasmgen.Emit(lirMod, cat)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"procedures": len(lirMod.Functions),
		"bytes":      len(wasmMod.Bytes),
	}).Debug("engine: model compiled")

	return &Model{Raw: raw, Program: prog, LIR: lirMod, Wasm: wasmMod}, nil
}

// Engine is one running simulation: a world sized by the model's
// metaVars, the native embedder holding the installed code, and the
// entry points the installer reserved.
type Engine struct {
	World    *world.World
	Embedder *hostsim.Embedder
	Entries  map[string]install.EntryPoint
}

// Options configures world construction.
type Options struct {
	Topology world.Topology
	Seed     int64
}

// DefaultTopology is the classic NetLogo 33x33 wrapping world.
var DefaultTopology = world.Topology{MinX: -16, MinY: -16, Width: 33, Height: 33, WrapX: true, WrapY: true}

// New builds a world from the model's metaVars, stands up the native
// embedder, and installs the compiled module through the process-wide
// installer. The installer is (re)initialized onto this engine's
// embedder; any previously installed model is torn down first.
func New(m *Model, opts Options) (*Engine, error) {
	topo := opts.Topology
	if topo.Width == 0 || topo.Height == 0 {
		topo = DefaultTopology
	}

	w := world.New(world.Config{
		Globals:    m.Raw.MetaVars.Globals,
		TurtleVars: m.Raw.MetaVars.TurtleVars,
		PatchVars:  m.Raw.MetaVars.PatchVars,
		LinkVars:   m.Raw.MetaVars.LinkVars,
		Topology:   topo,
	})
	w.RNG = rng.New(uint32(opts.Seed))

	emb, err := hostsim.New(w)
	if err != nil {
		return nil, err
	}

	install.Teardown()
	if err := install.Init(emb); err != nil {
		return nil, err
	}
	entries, err := install.Install(m.Wasm)
	if err != nil {
		return nil, err
	}

	return &Engine{World: w, Embedder: emb, Entries: entries}, nil
}

// RunStep invokes the named entry point as one atomic simulation
// step: a runtime failure in compiled code or a host function aborts
// the whole step and surfaces here; there is no partial-update
// recovery.
func (e *Engine) RunStep(name string) (result float64, err error) {
	if _, ok := e.Entries[name]; !ok {
		return 0, fmt.Errorf("engine: no entry point %q", name)
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = 0, fmt.Errorf("engine: step %q aborted: %v", name, r)
		}
	}()
	return e.Embedder.CallEntry(name)
}
