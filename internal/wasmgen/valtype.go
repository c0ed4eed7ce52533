package wasmgen

import "oxitortoise/internal/hostabi"

// WASM value-type and section-id bytes this encoder needs. Subset of
// the full binary format grammar — only what this encoder actually
// emits.
const (
	valtypeI32 byte = 0x7F
	valtypeF64 byte = 0x7C

	blocktypeEmpty byte = 0x40

	sectionType     byte = 1
	sectionImport   byte = 2
	sectionFunction byte = 3
	sectionTable    byte = 4
	sectionMemory   byte = 5
	sectionGlobal   byte = 6
	sectionExport   byte = 7
	sectionCode     byte = 10

	externkindFunc   byte = 0x00
	externkindTable  byte = 0x01
	externkindMemory byte = 0x02
	externkindGlobal byte = 0x03

	elemtypeFuncref byte = 0x70

	limitsMinOnly byte = 0x00

	mutConst byte = 0x00
	mutVar   byte = 0x01
)

const (
	opUnreachable byte = 0x00
	opBlock       byte = 0x02
	opLoop        byte = 0x03
	opIf          byte = 0x04
	opElse        byte = 0x05
	opEnd         byte = 0x0B
	opBr          byte = 0x0C
	opBrIf        byte = 0x0D
	opReturn      byte = 0x0F
	opCall        byte = 0x10
	opDrop        byte = 0x1A
	opLocalGet    byte = 0x20
	opLocalSet    byte = 0x21
	opLocalTee    byte = 0x22
	opI32Const    byte = 0x41
	opF64Const    byte = 0x44
	opI32Eqz      byte = 0x45
	opF64Eq       byte = 0x61
	opF64Ne       byte = 0x62
	opF64Lt       byte = 0x63
	opF64Gt       byte = 0x64
	opF64Le       byte = 0x65
	opF64Ge       byte = 0x66
	opI32And      byte = 0x71
	opI32Or       byte = 0x72
	opF64Add      byte = 0xA0
	opF64Sub      byte = 0xA1
	opF64Mul      byte = 0xA2
	opF64Div      byte = 0xA3
)

// hostValType maps internal/hostabi's manifest-level value types onto
// the two WASM value types this pipeline ever uses: every boxed scalar
// is f64, and everything the host ABI
// states as i32 or bool — table slots, row indices, loop-continuation
// flags — is WASM i32 (WASM has no boolean type).
func hostValType(t hostabi.ValueType) byte {
	switch t {
	case hostabi.TypeI32, hostabi.TypeBool:
		return valtypeI32
	default:
		return valtypeF64
	}
}
