package cramberry

import "github.com/blockberries/cramberrywire/internal/wire"

// WireType indicates how a value is encoded on the wire.
// Re-exported from internal/wire for public use; restricted to the four
// wire types Protocol Buffers itself defines.
type WireType = wire.WireType

// Wire type constants, re-exported from internal/wire.
const (
	WireVarint  = wire.WireVarint
	WireFixed64 = wire.WireFixed64
	WireBytes   = wire.WireBytes
	WireFixed32 = wire.WireFixed32
)

// Limits bounds resource use while encoding. A zero value for any field
// means that dimension is unbounded.
type Limits struct {
	// MaxMessageSize is the maximum total encoded size in bytes.
	MaxMessageSize int64

	// MaxDepth is the maximum Fork nesting depth.
	MaxDepth int

	// MaxStringLength is the maximum byte length of a single WriteString
	// or WriteUTF16 payload.
	MaxStringLength int

	// MaxBytesLength is the maximum byte length of a single WriteBytes payload.
	MaxBytesLength int
}

// DefaultLimits are generous limits suitable for trusted callers.
var DefaultLimits = Limits{
	MaxMessageSize:  64 * 1024 * 1024,  // 64 MB
	MaxDepth:        100,
	MaxStringLength: 10 * 1024 * 1024,  // 10 MB
	MaxBytesLength:  100 * 1024 * 1024, // 100 MB
}

// SecureLimits are conservative limits appropriate for untrusted input.
var SecureLimits = Limits{
	MaxMessageSize:  1 * 1024 * 1024, // 1 MB
	MaxDepth:        32,
	MaxStringLength: 1 * 1024 * 1024,  // 1 MB
	MaxBytesLength:  10 * 1024 * 1024, // 10 MB
}

// NoLimits disables all resource limits. Use only with trusted input.
var NoLimits = Limits{}

// Options configures Writer behavior.
type Options struct {
	// Limits bounds resource use.
	Limits Limits

	// ValidateUTF8 rejects WriteString payloads that are not valid UTF-8.
	ValidateUTF8 bool

	// CanonicalizeFloats collapses -0.0 to +0.0 and every NaN bit pattern to
	// a single canonical quiet NaN before emission. When false (the
	// default), floats round-trip bitwise, including negative zero and NaN
	// payloads.
	CanonicalizeFloats bool
}

// DefaultOptions are the default Writer options: bit-exact floats, UTF-8
// validated strings, generous limits.
var DefaultOptions = Options{
	Limits:       DefaultLimits,
	ValidateUTF8: true,
}

// SecureOptions apply SecureLimits for untrusted input.
var SecureOptions = Options{
	Limits:       SecureLimits,
	ValidateUTF8: true,
}

// FastOptions prioritize performance: no UTF-8 validation, no limits.
var FastOptions = Options{
	Limits:       NoLimits,
	ValidateUTF8: false,
}

// Size constants for primitive types.
const (
	// BoolSize is the encoded size of a bool.
	BoolSize = 1

	// Fixed32Size is the encoded size of a fixed 32-bit value.
	Fixed32Size = 4

	// Fixed64Size is the encoded size of a fixed 64-bit value.
	Fixed64Size = 8

	// Float32Size is the encoded size of a float32.
	Float32Size = 4

	// Float64Size is the encoded size of a float64.
	Float64Size = 8

	// MaxVarintLen64 is the maximum encoded size of a 64-bit varint.
	MaxVarintLen64 = wire.MaxVarintLen64

	// MaxTagSize is the maximum encoded size of a field tag.
	MaxTagSize = MaxVarintLen64
)
