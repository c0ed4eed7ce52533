package wasmgen

// ScaffoldModule emits the tiny provider module the native embedder
// (internal/hostsim) instantiates before any compiled module: it
// defines — and exports under the names every emitted module
// imports — the linear memory, the indirect function table, and the
// mutable stack-pointer global. The embedder then passes those exports
// through verbatim as the "main_module" imports of every installed
// module, giving all of them one shared memory/table/stack exactly the
// way a real browser-side host instance would.
func ScaffoldModule(memPages, tableSlots, stackPointer uint32) []byte {
	tableSec := vector(1, append([]byte{elemtypeFuncref, limitsMinOnly}, appendULEB128(nil, uint64(tableSlots))...))
	memSec := vector(1, append([]byte{limitsMinOnly}, appendULEB128(nil, uint64(memPages))...))

	globalBody := []byte{valtypeI32, mutVar, opI32Const}
	globalBody = appendSLEB128(globalBody, int64(stackPointer))
	globalBody = append(globalBody, opEnd)
	globalSec := vector(1, globalBody)

	var exports []byte
	addExport := func(name string, kind byte, index uint32) {
		exports = append(exports, namedBytes(name)...)
		exports = append(exports, kind)
		exports = appendULEB128(exports, uint64(index))
	}
	addExport("memory", externkindMemory, 0)
	addExport("__indirect_function_table", externkindTable, 0)
	addExport("__stack_pointer", externkindGlobal, 0)
	exportSec := vector(3, exports)

	out := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(sectionTable, tableSec)...)
	out = append(out, section(sectionMemory, memSec)...)
	out = append(out, section(sectionGlobal, globalSec)...)
	out = append(out, section(sectionExport, exportSec)...)
	return out
}
