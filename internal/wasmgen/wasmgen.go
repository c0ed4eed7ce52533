// Package wasmgen encodes a stackified internal/lir.Module into real
// WebAssembly module bytes, built directly against the WASM
// binary-format grammar, with internal/hostabi's catalogue supplying
// the import section's shapes.
//
// The indirect-table slot allocator does not live here: its actual job
// — handing out stable call targets for entry points and closures —
// belongs to installation, so it lives in internal/install (which owns
// the live table); wasmgen's job ends at producing valid,
// self-contained module bytes that import the table rather than define
// one.
//
// Every value this pipeline manipulates is a NaN-boxed float64
// scalar, so every WASM local, parameter, and
// result wasmgen declares is f64, with one disclosed exception: values
// the internal/hostabi catalogue states as i32/bool (table slots, row
// indices, loop-continuation flags) are encoded as WASM i32, which is
// also what internal/lir.OpCompare/OpBoolOp/OpBrIf already require
// (WASM's own float-comparison instructions consume f64 operands and
// produce i32, and br_if/if conditions must be i32) — so no numeric
// conversion instructions are ever inserted; the LIR's choice of
// opcode already matches the WASM type it produces.
package wasmgen

import (
	"fmt"
	"math"
	"sort"

	"oxitortoise/internal/hostabi"
	"oxitortoise/internal/lir"
)

// Error reports a LIR shape wasmgen cannot encode.
type Error struct {
	Function string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("wasmgen: %s: %s", e.Function, e.Message)
}

// Module is the assembled output: the raw WASM bytes plus the index
// bookkeeping internal/install needs to resolve an entry point's
// function index into the module's own export, and to know which
// catalogue entries this module imports (internal/hostsim resolves the
// imports it must supply against this list).
type Module struct {
	Bytes       []byte
	HostImports []string
	Exports     map[string]uint32 // function name -> its exported func index
}

// Emit encodes mod into a full WASM module, importing memory, the
// indirect function table, the stack pointer global, and every distinct
// host-call name this module's instructions actually reference, and
// exporting every function by name.
//
// A catalogue entry whose params/results don't depend on which field it
// targets (turtle-field, patch-field, global-get, global-set,
// diffuse-8, create-turtles) is parameterized at compile time by a
// composed "category:field" name (internal/lowering's convention) —
// but that suffix is never pushed as a runtime stack value, so two
// distinct fields sharing one generic import would be indistinguishable
// to the host at the call site. Importing one WASM function per
// distinct composed name instead (field = the full "turtle-field:xcor"
// string, not just "turtle-field") resolves this the way WASM imports
// are meant to: the (module, field) string pair, not a runtime
// argument, identifies the import. internal/hostsim registers exactly
// the composed names a module's Module.HostImports lists.
func Emit(mod *lir.Module, cat *hostabi.Catalogue) (*Module, error) {
	names := usedHostNames(mod)
	entries := make([]hostabi.Entry, len(names))
	hostIndex := make(map[string]uint32, len(names))
	for i, n := range names {
		e, ok := cat.Lookup(n)
		if !ok {
			return nil, &Error{Message: fmt.Sprintf("no catalogue entry for host call %q", n)}
		}
		entries[i] = e
		hostIndex[n] = uint32(i)
	}

	funcIndex := make(map[string]uint32, len(mod.Functions))
	for i, fn := range mod.Functions {
		funcIndex[fn.Name] = uint32(len(entries) + i)
	}

	var types []byte
	typeCount := 0
	addType := func(params []byte, results []byte) uint32 {
		idx := uint32(typeCount)
		typeCount++
		body := []byte{0x60}
		body = append(body, vector(len(params), params)...)
		body = append(body, vector(len(results), results)...)
		types = append(types, body...)
		return idx
	}

	hostTypeIdx := make([]uint32, len(entries))
	for i, e := range entries {
		var params, results []byte
		for _, p := range e.Params {
			params = append(params, hostValType(p))
		}
		for _, r := range e.Results {
			results = append(results, hostValType(r))
		}
		hostTypeIdx[i] = addType(params, results)
	}

	fnTypeIdx := make([]uint32, len(mod.Functions))
	for i, fn := range mod.Functions {
		params := make([]byte, fn.NumArgs)
		for j := range params {
			params[j] = valtypeF64
		}
		var results []byte
		if fn.ReturnsValue {
			results = []byte{valtypeF64}
		}
		fnTypeIdx[i] = addType(params, results)
	}

	var imports []byte
	importCount := 0
	addImport := func(module, field string, desc []byte) {
		b := namedBytes(module)
		b = append(b, namedBytes(field)...)
		b = append(b, desc...)
		imports = append(imports, b...)
		importCount++
	}
	addImport("main_module", "memory", append([]byte{externkindMemory, limitsMinOnly}, appendULEB128(nil, 1)...))
	addImport("main_module", "__indirect_function_table", append([]byte{externkindTable, elemtypeFuncref, limitsMinOnly}, appendULEB128(nil, 0)...))
	addImport("main_module", "__stack_pointer", []byte{externkindGlobal, valtypeI32, mutVar})
	for i, n := range names {
		desc := append([]byte{externkindFunc}, appendULEB128(nil, uint64(hostTypeIdx[i]))...)
		addImport("host", n, desc)
	}

	var functionSec []byte
	for _, idx := range fnTypeIdx {
		functionSec = appendULEB128(functionSec, uint64(idx))
	}

	exports := make(map[string]uint32, len(mod.Functions))
	var exportSec []byte
	exportCount := 0
	for _, fn := range mod.Functions {
		idx := funcIndex[fn.Name]
		exports[fn.Name] = idx
		b := namedBytes(fn.Name)
		b = append(b, externkindFunc)
		b = appendULEB128(b, uint64(idx))
		exportSec = append(exportSec, b...)
		exportCount++
	}

	var codeSec []byte
	for _, fn := range mod.Functions {
		body, err := encodeFunctionBody(&fn, hostIndex, funcIndex)
		if err != nil {
			return nil, err
		}
		codeSec = append(codeSec, appendULEB128(nil, uint64(len(body)))...)
		codeSec = append(codeSec, body...)
	}

	out := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(sectionType, vector(typeCount, types))...)
	out = append(out, section(sectionImport, vector(importCount, imports))...)
	out = append(out, section(sectionFunction, vector(len(fnTypeIdx), functionSec))...)
	out = append(out, section(sectionExport, vector(exportCount, exportSec))...)
	out = append(out, section(sectionCode, vector(len(mod.Functions), codeSec))...)

	return &Module{Bytes: out, HostImports: names, Exports: exports}, nil
}

// encodeFunctionBody emits one code-section entry: the local
// declarations (every extra slot beyond the function's own parameters,
// grouped in a single f64 run since every local is f64-typed) followed
// by the instruction stream.
func encodeFunctionBody(fn *lir.Function, hostIndex, funcIndex map[string]uint32) ([]byte, error) {
	var body []byte
	extraLocals := fn.NumLocals - fn.NumArgs
	if extraLocals > 0 {
		body = appendULEB128(body, 1)
		body = appendULEB128(body, uint64(extraLocals))
		body = append(body, valtypeF64)
	} else {
		body = appendULEB128(body, 0)
	}

	for _, ins := range fn.Body {
		b, err := encodeInstr(fn.Name, ins, hostIndex, funcIndex)
		if err != nil {
			return nil, err
		}
		body = append(body, b...)
	}
	body = append(body, opEnd)
	return body, nil
}

func encodeInstr(fnName string, ins lir.Instr, hostIndex, funcIndex map[string]uint32) ([]byte, error) {
	switch ins.Op {
	case lir.OpConstF64:
		b := []byte{opF64Const}
		return append(b, f64Bytes(ins.ConstValue)...), nil
	case lir.OpLocalGet:
		return append([]byte{opLocalGet}, appendULEB128(nil, uint64(ins.Local))...), nil
	case lir.OpLocalSet:
		return append([]byte{opLocalSet}, appendULEB128(nil, uint64(ins.Local))...), nil
	case lir.OpLocalTee:
		return append([]byte{opLocalTee}, appendULEB128(nil, uint64(ins.Local))...), nil
	case lir.OpHostCall:
		idx, ok := hostIndex[ins.HostCallName]
		if !ok {
			return nil, &Error{Function: fnName, Message: fmt.Sprintf("no catalogue entry for host call %q", ins.HostCallName)}
		}
		return append([]byte{opCall}, appendULEB128(nil, uint64(idx))...), nil
	case lir.OpCall:
		idx, ok := funcIndex[ins.CalleeName]
		if !ok {
			return nil, &Error{Function: fnName, Message: fmt.Sprintf("call to unknown function %q", ins.CalleeName)}
		}
		return append([]byte{opCall}, appendULEB128(nil, uint64(idx))...), nil
	case lir.OpArith:
		return []byte{arithOpcode(ins.Operator)}, nil
	case lir.OpCompare:
		return []byte{compareOpcode(ins.Operator)}, nil
	case lir.OpBoolOp:
		return boolOpcode(ins.Operator), nil
	case lir.OpBlock:
		return []byte{opBlock, blocktypeEmpty}, nil
	case lir.OpLoop:
		return []byte{opLoop, blocktypeEmpty}, nil
	case lir.OpIf:
		return []byte{opIf, blocktypeEmpty}, nil
	case lir.OpElse:
		return []byte{opElse}, nil
	case lir.OpEnd:
		return []byte{opEnd}, nil
	case lir.OpBr:
		return append([]byte{opBr}, appendULEB128(nil, uint64(ins.BrDepth))...), nil
	case lir.OpBrIf:
		return append([]byte{opBrIf}, appendULEB128(nil, uint64(ins.BrDepth))...), nil
	case lir.OpReturn:
		return []byte{opReturn}, nil
	case lir.OpDrop:
		return []byte{opDrop}, nil
	}
	return nil, &Error{Function: fnName, Message: fmt.Sprintf("unknown lir.Op %d", ins.Op)}
}

// usedHostNames collects every distinct HostCallName an OpHostCall
// instruction in mod actually references, sorted for a deterministic
// import-section layout.
func usedHostNames(mod *lir.Module) []string {
	seen := make(map[string]bool)
	for _, fn := range mod.Functions {
		for _, ins := range fn.Body {
			if ins.Op == lir.OpHostCall {
				seen[ins.HostCallName] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func f64Bytes(v float64) []byte {
	bits := math.Float64bits(v)
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(bits >> (8 * i))
	}
	return out
}

func arithOpcode(op string) byte {
	switch op {
	case "+":
		return opF64Add
	case "-":
		return opF64Sub
	case "*":
		return opF64Mul
	case "/":
		return opF64Div
	}
	return opUnreachable
}

func compareOpcode(op string) byte {
	switch op {
	case "=":
		return opF64Eq
	case "<":
		return opF64Lt
	case ">":
		return opF64Gt
	case "<=":
		return opF64Le
	case ">=":
		return opF64Ge
	}
	return opUnreachable
}

func boolOpcode(op string) []byte {
	switch op {
	case "not":
		return []byte{opI32Eqz}
	case "and":
		return []byte{opI32And}
	case "or":
		return []byte{opI32Or}
	}
	return []byte{opUnreachable}
}
