// Package hostsim is the native test embedder: it instantiates the
// bytes internal/wasmgen produces with wasmer-go, supplies the
// main_module memory / indirect function table / stack pointer every
// emitted module imports, and registers one wasmer host closure per
// host import that mutates an internal/world.World. It is the concrete
// realization of the `instantiate_module(ptr,len) -> bool` embedder
// import on native targets.
package hostsim

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/wasmerio/wasmer-go/wasmer"

	"oxitortoise/internal/wasmgen"
	"oxitortoise/internal/world"
)

const (
	scaffoldMemPages   = 2
	scaffoldTableSlots = 1024
	scaffoldStackPtr   = 65536
)

// Embedder owns the wasmer store, the shared scaffold resources,
// every instantiated module, and the execution context compiled code
// calls back into — the serialization point of the one logical
// simulation thread.
type Embedder struct {
	World *world.World

	engine *wasmer.Engine
	store  *wasmer.Store

	mem   *wasmer.Memory
	table *wasmer.Table
	sp    *wasmer.Global

	instances []*wasmer.Instance

	tableNext uint32

	// Ask/create iteration state. An inner ask always runs to
	// completion within one outer-loop body, so LIFO cursors are
	// sufficient.
	turtleCursors []turtleCursor
	curTurtles    []world.TurtleID
	patchCursors  []*world.ShuffledOwned[int]
	curPatches    []int
	lastCreated   []world.TurtleID
}

// New builds an embedder around w: one wasmer engine/store plus the
// scaffold instance whose exports become every later module's
// main_module imports.
func New(w *world.World) (*Embedder, error) {
	e := &Embedder{World: w}
	e.engine = wasmer.NewEngine()
	e.store = wasmer.NewStore(e.engine)

	scaffold, err := wasmer.NewModule(e.store, wasmgen.ScaffoldModule(scaffoldMemPages, scaffoldTableSlots, scaffoldStackPtr))
	if err != nil {
		return nil, fmt.Errorf("hostsim: scaffold module rejected: %w", err)
	}
	inst, err := wasmer.NewInstance(scaffold, wasmer.NewImportObject())
	if err != nil {
		return nil, fmt.Errorf("hostsim: scaffold instantiation: %w", err)
	}
	if e.mem, err = inst.Exports.GetMemory("memory"); err != nil {
		return nil, fmt.Errorf("hostsim: scaffold memory: %w", err)
	}
	if e.table, err = inst.Exports.GetTable("__indirect_function_table"); err != nil {
		return nil, fmt.Errorf("hostsim: scaffold table: %w", err)
	}
	if e.sp, err = inst.Exports.GetGlobal("__stack_pointer"); err != nil {
		return nil, fmt.Errorf("hostsim: scaffold stack pointer: %w", err)
	}
	return e, nil
}

// InstantiateModule implements install.Host: it compiles bytes,
// resolves every "host"-module import to a Go closure over the world,
// wires the scaffold's memory/table/stack through as the main_module
// imports, and keeps the instance so its exports stay callable.
func (e *Embedder) InstantiateModule(bytes []byte) error {
	mod, err := wasmer.NewModule(e.store, bytes)
	if err != nil {
		return fmt.Errorf("hostsim: module rejected: %w", err)
	}

	imports := wasmer.NewImportObject()
	imports.Register("main_module", map[string]wasmer.IntoExtern{
		"memory":                    e.mem,
		"__indirect_function_table": e.table,
		"__stack_pointer":           e.sp,
	})

	hostNS := make(map[string]wasmer.IntoExtern)
	for _, imp := range mod.Imports() {
		if imp.Module() != "host" {
			continue
		}
		ft := imp.Type().IntoFunctionType()
		if ft == nil {
			return fmt.Errorf("hostsim: host import %q is not a function", imp.Name())
		}
		hostNS[imp.Name()] = e.hostFunction(imp.Name(), ft)
	}
	if len(hostNS) > 0 {
		imports.Register("host", hostNS)
	}

	inst, err := wasmer.NewInstance(mod, imports)
	if err != nil {
		return fmt.Errorf("hostsim: instantiation: %w", err)
	}
	e.instances = append(e.instances, inst)
	logrus.WithFields(logrus.Fields{"host_imports": len(hostNS), "bytes": len(bytes)}).Debug("hostsim: module installed")
	return nil
}

// GrowFunctionTable implements install.Host against the scaffold
// table's fixed capacity: slots are handed out from a monotonically
// increasing counter and growth fails once the scaffold is exhausted.
func (e *Embedder) GrowFunctionTable(n int) (uint32, bool) {
	if e.tableNext+uint32(n) > scaffoldTableSlots {
		return 0, false
	}
	first := e.tableNext
	e.tableNext += uint32(n)
	return first, true
}

// CallEntry invokes an installed entry point by export name, newest
// instance first (a re-installed model shadows its predecessor). The
// returned value is the f64 result for reporter entry points and 0 for
// unit ones.
func (e *Embedder) CallEntry(name string) (float64, error) {
	for i := len(e.instances) - 1; i >= 0; i-- {
		fn, err := e.instances[i].Exports.GetFunction(name)
		if err != nil {
			continue
		}
		out, err := fn()
		if err != nil {
			return 0, err
		}
		if f, ok := out.(float64); ok {
			return f, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("hostsim: no installed module exports %q", name)
}

// hostFunction wraps dispatch in a wasmer closure with the import's own
// declared type, converting between wasmer values and float64 at the
// boundary (i32-typed slots cross as their float64 value; WASM has no
// bool, so bool results cross as i32 0/1). A Go panic inside a host
// function must not unwind through the wasmer frame, so it is converted
// to a trap error here; the step boundary (internal/engine.RunStep)
// reports it.
func (e *Embedder) hostFunction(name string, ft *wasmer.FunctionType) *wasmer.Function {
	params := ft.Params()
	results := ft.Results()
	return wasmer.NewFunction(e.store, ft, func(args []wasmer.Value) (vals []wasmer.Value, err error) {
		defer func() {
			if r := recover(); r != nil {
				vals, err = nil, fmt.Errorf("host %s: %v", name, r)
			}
		}()

		in := make([]float64, len(args))
		for i, a := range args {
			if params[i].Kind() == wasmer.I32 {
				in[i] = float64(a.I32())
			} else {
				in[i] = a.F64()
			}
		}

		out, err := e.dispatch(name, in)
		if err != nil {
			return nil, err
		}
		if len(out) != len(results) {
			return nil, fmt.Errorf("host %s: returned %d values, import declares %d", name, len(out), len(results))
		}
		vals = make([]wasmer.Value, len(out))
		for i, v := range out {
			if results[i].Kind() == wasmer.I32 {
				vals[i] = wasmer.NewI32(int32(v))
			} else {
				vals[i] = wasmer.NewF64(v)
			}
		}
		return vals, nil
	})
}

// splitHostName separates a composed import name ("turtle-field:xcor")
// into its dispatch base and field suffix.
func splitHostName(name string) (base, suffix string) {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

var errNoCurrentTurtle = errors.New("no turtle is executing here")
var errNoCurrentPatch = errors.New("no patch is executing here")

func (e *Embedder) currentTurtle() (world.TurtleID, error) {
	if len(e.curTurtles) == 0 {
		return world.TurtleID{}, errNoCurrentTurtle
	}
	return e.curTurtles[len(e.curTurtles)-1], nil
}

func (e *Embedder) currentPatch() (int, error) {
	if len(e.curPatches) == 0 {
		return 0, errNoCurrentPatch
	}
	return e.curPatches[len(e.curPatches)-1], nil
}
