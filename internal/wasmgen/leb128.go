package wasmgen

// LEB128 encoders for the WebAssembly binary format (the module header,
// every section's length prefix, and every instruction immediate use
// this encoding). No pack dependency emits raw WASM bytes, so this is a
// from-scratch, standard-library-only component (see DESIGN.md).

func appendULEB128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			return buf
		}
	}
}

func appendSLEB128(buf []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7F)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// vector prepends a ULEB128 count to the concatenation of encode(item)
// for each item, the "vec(B)" production WASM's binary grammar uses for
// every section body.
func vector(count int, body []byte) []byte {
	out := appendULEB128(nil, uint64(count))
	return append(out, body...)
}

func namedBytes(name string) []byte {
	out := appendULEB128(nil, uint64(len(name)))
	return append(out, []byte(name)...)
}

// section wraps body in a WASM section: one id byte, a ULEB128 byte
// length, then body itself.
func section(id byte, body []byte) []byte {
	out := []byte{id}
	out = appendULEB128(out, uint64(len(body)))
	return append(out, body...)
}
