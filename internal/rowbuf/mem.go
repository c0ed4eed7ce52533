package rowbuf

import (
	"encoding/binary"
	"fmt"
	"math"

	"oxitortoise/internal/reflect"
	"oxitortoise/internal/value"
)

// readPrimitive/writePrimitive move a value.Any into and out of a single
// MemSlot's native byte width. Any itself is always an 8-byte NaN-boxed
// float64 in Go memory, but the row buffer stores each field at its own
// type's narrower native width (e.g. a 4-byte MemI32 column), so these
// convert between the two rather than assuming every field is an 8-byte
// Any slot — reading/writing the wrong width would corrupt whatever
// field sits immediately after it in the row.
//
// isBool distinguishes reflect.Bool (semantically a bool variant) from
// every other MemI32 column (semantically a float variant, e.g.
// reflect.Int32 or reflect.PatchID) — both share the same 4-byte wire
// width, so the width alone can't tell them apart.
func readPrimitive(b []byte, prim reflect.MemPrimitive, isBool bool) (value.Any, error) {
	switch prim {
	case reflect.MemF64:
		return value.FromRawBits(binary.LittleEndian.Uint64(b[:8])), nil
	case reflect.MemF32:
		bits := binary.LittleEndian.Uint32(b[:4])
		return value.MustPack(value.FloatVariant(float64(math.Float32frombits(bits)))), nil
	case reflect.MemI32:
		bits := binary.LittleEndian.Uint32(b[:4])
		if isBool {
			return value.MustPack(value.BoolVariant(bits != 0)), nil
		}
		return value.MustPack(value.FloatVariant(float64(int32(bits)))), nil
	case reflect.MemI64:
		bits := binary.LittleEndian.Uint64(b[:8])
		return value.MustPack(value.FloatVariant(float64(int64(bits)))), nil
	default:
		return value.Any{}, fmt.Errorf("rowbuf: unknown memory primitive %v", prim)
	}
}

func writePrimitive(b []byte, prim reflect.MemPrimitive, isBool bool, v value.Any) error {
	if prim == reflect.MemF64 {
		binary.LittleEndian.PutUint64(b[:8], v.RawBits())
		return nil
	}

	unpacked, err := value.Unpack(v)
	if err != nil {
		return err
	}

	if isBool {
		if unpacked.Kind != value.KindBool {
			return fmt.Errorf("rowbuf: expected a bool variant, got kind %d", unpacked.Kind)
		}
		var bits uint32
		if unpacked.Bool {
			bits = 1
		}
		binary.LittleEndian.PutUint32(b[:4], bits)
		return nil
	}

	if unpacked.Kind != value.KindFloat {
		return fmt.Errorf("rowbuf: cannot store variant kind %d in a narrow memory slot", unpacked.Kind)
	}

	switch prim {
	case reflect.MemF32:
		binary.LittleEndian.PutUint32(b[:4], math.Float32bits(float32(unpacked.Float)))
	case reflect.MemI32:
		binary.LittleEndian.PutUint32(b[:4], uint32(int32(unpacked.Float)))
	case reflect.MemI64:
		binary.LittleEndian.PutUint64(b[:8], uint64(int64(unpacked.Float)))
	default:
		return fmt.Errorf("rowbuf: unknown memory primitive %v", prim)
	}
	return nil
}
