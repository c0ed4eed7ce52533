// Package value implements the compiler's NaN-boxed polymorphic
// scalar value.
//
// An Any is a single float64. Any non-NaN bit pattern is a plain numeric
// float. A quiet-NaN bit pattern reuses the low 51 significand bits: the
// top 3 of those bits are a tag (bits 48-50), the bottom 48 are the
// payload. No signalling NaN is ever produced or accepted.
package value

import (
	"fmt"
	"math"

	"oxitortoise/internal/reflect"
)

// Tag identifies which variant a NaN-boxed Any's payload holds.
type Tag uint8

const (
	TagSpecial Tag = 0b001 // false=0, true=1; open question (a): no other sentinels yet
	TagTurtle  Tag = 0b100
	TagPatch   Tag = 0b101
	TagLink    Tag = 0b110
	TagBoxed   Tag = 0b111
)

const nanBase uint64 = 0x7FF8000000000000
const payloadMask uint64 = 0xFFFFFFFFFFFF // low 48 bits
const tagShift = 48

// Any is the 8-byte polymorphic value box.
type Any struct{ bits uint64 }

// Zero is the Any representing the numeric value 0.0. The all-zero bit
// pattern is non-NaN +0.0, so this is also Any{}'s zero value.
var Zero = Any{}

var False = Any{bits: nanBase | uint64(TagSpecial)<<tagShift}
var True = Any{bits: nanBase | uint64(TagSpecial)<<tagShift | 1}

// Kind enumerates the unpacked variants.
type Kind uint8

const (
	KindFloat Kind = iota
	KindBool
	KindNobody
	KindTurtle
	KindPatch
	KindLink
	KindBoxed
)

// Variant is the unpacked, type-safe view of an Any produced by Unpack.
type Variant struct {
	Kind   Kind
	Float  float64
	Bool   bool
	Turtle TurtleRef
	Patch  PatchRef
	Link   LinkRef
	Boxed  *Boxed
}

// TurtleRef/PatchRef/LinkRef are the packable agent reference payloads.
// Their concrete shapes mirror TurtleId/PatchId/LinkId in internal/world,
// but value must not import world (world imports value), so these are
// plain integer payloads that world.TurtleID etc. convert to/from.
type TurtleRef struct{ Breed, Who uint32 }
type PatchRef struct{ Index uint32 }
type LinkRef struct{ A, B, BreedSeq uint32 }

func FloatVariant(f float64) Variant  { return Variant{Kind: KindFloat, Float: f} }
func BoolVariant(b bool) Variant      { return Variant{Kind: KindBool, Bool: b} }
func NobodyVariant() Variant          { return Variant{Kind: KindNobody} }
func TurtleVariant(t TurtleRef) Variant { return Variant{Kind: KindTurtle, Turtle: t} }
func PatchVariant(p PatchRef) Variant  { return Variant{Kind: KindPatch, Patch: p} }
func LinkVariant(l LinkRef) Variant   { return Variant{Kind: KindLink, Link: l} }
func BoxedVariant(b *Boxed) Variant   { return Variant{Kind: KindBoxed, Boxed: b} }

// Pack converts a Variant into its NaN-boxed Any. Packing a NaN float is
// rejected.
func Pack(v Variant) (Any, error) {
	switch v.Kind {
	case KindFloat:
		if math.IsNaN(v.Float) {
			return Any{}, fmt.Errorf("value: cannot pack NaN as a float variant")
		}
		return Any{bits: math.Float64bits(v.Float)}, nil
	case KindBool:
		if v.Bool {
			return True, nil
		}
		return False, nil
	case KindNobody:
		return Any{}, fmt.Errorf("value: nobody packing not yet implemented")
	case KindTurtle:
		payload := uint64(v.Turtle.Breed)<<24 | uint64(v.Turtle.Who)
		return packTagged(TagTurtle, payload)
	case KindPatch:
		return packTagged(TagPatch, uint64(v.Patch.Index))
	case KindLink:
		payload := uint64(v.Link.A)<<32 | uint64(v.Link.B)<<8 | uint64(v.Link.BreedSeq&0xFF)
		return packTagged(TagLink, payload)
	case KindBoxed:
		if v.Boxed == nil {
			return Any{}, fmt.Errorf("value: cannot pack a nil Boxed")
		}
		return packTagged(TagBoxed, v.Boxed.handle())
	default:
		return Any{}, fmt.Errorf("value: unknown variant kind %d", v.Kind)
	}
}

// MustPack panics instead of returning an error; used at call sites that
// construct a Variant themselves and know it is packable (e.g. constant
// folding of a literal number that is statically known non-NaN).
func MustPack(v Variant) Any {
	a, err := Pack(v)
	if err != nil {
		panic(err)
	}
	return a
}

func packTagged(tag Tag, payload uint64) (Any, error) {
	if payload&^payloadMask != 0 {
		return Any{}, fmt.Errorf("value: payload %#x does not fit in 48 bits", payload)
	}
	return Any{bits: nanBase | uint64(tag)<<tagShift | payload}, nil
}

// Unpack decodes an Any into its type-safe Variant. Every 3-bit tag is
// either handled or yields a defined error — Unpack never panics on an
// unrecognized tag or special payload, it returns a zero Variant with
// an accompanying error to signal "could not decode".
func Unpack(a Any) (Variant, error) {
	f := math.Float64frombits(a.bits)
	if !math.IsNaN(f) {
		return FloatVariant(f), nil
	}
	tag := Tag((a.bits >> tagShift) & 0b111)
	payload := a.bits & payloadMask
	switch tag {
	case TagSpecial:
		switch payload {
		case 0:
			return BoolVariant(false), nil
		case 1:
			return BoolVariant(true), nil
		default:
			return Variant{}, fmt.Errorf("value: unrecognized special payload %#x", payload)
		}
	case TagTurtle:
		return TurtleVariant(TurtleRef{Breed: uint32(payload >> 24), Who: uint32(payload & 0xFFFFFF)}), nil
	case TagPatch:
		return PatchVariant(PatchRef{Index: uint32(payload)}), nil
	case TagLink:
		return LinkVariant(LinkRef{
			A:        uint32(payload >> 32),
			B:        uint32((payload >> 8) & 0xFFFFFF),
			BreedSeq: uint32(payload & 0xFF),
		}), nil
	case TagBoxed:
		b, err := boxedFromHandle(payload)
		if err != nil {
			return Variant{}, err
		}
		return BoxedVariant(b), nil
	default:
		return Variant{}, fmt.Errorf("value: unrecognized tag %03b", tag)
	}
}

// And/Or require both sides be boolean; any other combination errors.
func And(a, b Any) (bool, error) { return boolOp(a, b, func(x, y bool) bool { return x && y }) }
func Or(a, b Any) (bool, error)  { return boolOp(a, b, func(x, y bool) bool { return x || y }) }

func boolOp(a, b Any, op func(x, y bool) bool) (bool, error) {
	va, err := Unpack(a)
	if err != nil {
		return false, err
	}
	vb, err := Unpack(b)
	if err != nil {
		return false, err
	}
	if va.Kind != KindBool || vb.Kind != KindBool {
		return false, fmt.Errorf("value: and/or require boolean operands, got %d and %d", va.Kind, vb.Kind)
	}
	return op(va.Bool, vb.Bool), nil
}

// Drop releases any heap-held variant's resources. Non-boxed variants are
// no-ops.
func Drop(a Any) {
	v, err := Unpack(a)
	if err != nil || v.Kind != KindBoxed {
		return
	}
	v.Boxed.drop()
}

// RawBits exposes the raw NaN-boxed bit pattern, for code that stores an
// Any verbatim into row-buffer memory.
func (a Any) RawBits() uint64 { return a.bits }

// FromRawBits reconstructs an Any from bits previously obtained via
// RawBits (e.g. read back out of row-buffer memory).
func FromRawBits(bits uint64) Any { return Any{bits: bits} }

// AnyType exposes the reflect descriptor for Any itself, so row buffers
// and LIR shapes can refer to "a field that holds a boxed Any" uniformly
// with every other concrete type.
func AnyType() *reflect.TypeInfo { return reflect.AnyValue }
