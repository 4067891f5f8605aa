package cramberry

import (
	"fmt"

	"github.com/blockberries/cramberrywire/internal/wire"
)

// defaultOpCapacity is the initial op-vector capacity for a freshly
// constructed Writer, sized for a typical small message.
const defaultOpCapacity = 16

// op is a single already-encoded chunk queued for emission. Because every
// value cramberrywire writes (varints, fixed-width words, UTF-8 bytes) is
// fully determined at the moment it's written, an op never needs to be
// revisited once queued — only Ldelim's splice moves ops around, and it
// moves them whole.
type op []byte

// frame records the op-vector and running-length position at the moment
// Fork was called, so Reset/Ldelim can unwind back to exactly that point.
type frame struct {
	opsStart    int
	lengthStart int
}

// Writer builds a Protocol-Buffers-compatible wire-format message. Writes
// don't touch a final buffer; each call appends an op to a growable queue
// and advances a running byte-length total. Finish allocates one buffer of
// exactly the right size and copies every queued op into it.
//
// A Writer is not safe for concurrent use. The zero value is not ready to
// use; construct one with NewWriter or GetWriter.
type Writer struct {
	ops       []op
	length    int
	frames    []frame
	depth     int
	opts      Options
	err       error
	lastField int
}

// NewWriter creates a new Writer with default options.
func NewWriter() *Writer {
	return newWriter(defaultOpCapacity)
}

// NewWriterWithOptions creates a new Writer with the given options.
func NewWriterWithOptions(opts Options) *Writer {
	w := newWriter(defaultOpCapacity)
	w.opts = opts
	return w
}

func newWriter(opCapacity int) *Writer {
	return &Writer{
		ops:  make([]op, 0, opCapacity),
		opts: DefaultOptions,
	}
}

// Options returns the writer's current options.
func (w *Writer) Options() Options {
	return w.opts
}

// SetOptions updates the writer's options.
func (w *Writer) SetOptions(opts Options) {
	w.opts = opts
}

// Len returns the number of bytes that Finish would currently emit.
func (w *Writer) Len() int {
	return w.length
}

// Err returns the first sticky error recorded during writing, if any.
// A sticky error does not stop subsequent Write calls from being accepted;
// it only guarantees Finish will report the failure.
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) setErr(err error) {
	if w.err == nil {
		w.err = err
	}
}

// fieldContext names the field a write error should be attributed to: the
// number of the most recent WriteTag (or Ldelim field tag), or "unknown"
// before any tag has been written.
func (w *Writer) fieldContext() string {
	if w.lastField <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("field %d", w.lastField)
}

// push appends an op, by reference, and advances the running length.
// Per the writer's reference-capture contract, callers must not mutate b
// after passing it here.
func (w *Writer) push(b []byte) {
	w.ops = append(w.ops, op(b))
	w.length += len(b)
	if w.opts.Limits.MaxMessageSize > 0 && int64(w.length) > w.opts.Limits.MaxMessageSize {
		w.setErr(ErrMaxMessageSize)
	}
}

// resetAll discards every queued op, open frame, and sticky error,
// returning the writer to its just-constructed state.
func (w *Writer) resetAll() {
	w.ops = w.ops[:0]
	w.frames = w.frames[:0]
	w.length = 0
	w.depth = 0
	w.err = nil
	w.lastField = 0
}

// Reset discards the current frame: if a Fork is open, it pops that fork's
// snapshot and abandons everything queued since the matching Fork call; if
// no Fork is open, it fully resets the writer for reuse.
func (w *Writer) Reset() *Writer {
	if n := len(w.frames); n > 0 {
		f := w.frames[n-1]
		w.frames = w.frames[:n-1]
		w.ops = w.ops[:f.opsStart]
		w.length = f.lengthStart
		if w.depth > 0 {
			w.depth--
		}
		return w
	}
	w.resetAll()
	return w
}

// Fork begins a nested length-delimited frame. Every Fork must be matched
// by exactly one Ldelim (to commit the frame as a length-prefixed
// sub-message) or Reset (to abandon it).
func (w *Writer) Fork() *Writer {
	if w.opts.Limits.MaxDepth > 0 && w.depth >= w.opts.Limits.MaxDepth {
		w.setErr(NewFieldEncodeError("Writer", w.fieldContext(),
			fmt.Sprintf("fork depth %d exceeds maximum %d", w.depth+1, w.opts.Limits.MaxDepth),
			ErrMaxDepthExceeded))
	}
	w.frames = append(w.frames, frame{opsStart: len(w.ops), lengthStart: w.length})
	w.depth++
	return w
}

// Ldelim closes the most recently opened Fork frame, prefixing its queued
// ops with a varint length and, if fieldID is given, a field tag with wire
// type Bytes. Calling Ldelim with no open frame sets ErrUnbalancedFork as
// the writer's sticky error rather than panicking.
func (w *Writer) Ldelim(fieldID ...int) *Writer {
	n := len(w.frames)
	if n == 0 {
		w.setErr(ErrUnbalancedFork)
		return w
	}
	f := w.frames[n-1]
	w.frames = w.frames[:n-1]
	if w.depth > 0 {
		w.depth--
	}

	inner := append([]op(nil), w.ops[f.opsStart:]...)
	innerLen := w.length - f.lengthStart
	w.ops = w.ops[:f.opsStart]
	w.length = f.lengthStart

	if len(fieldID) > 0 {
		field := fieldID[0]
		if field <= 0 {
			w.setErr(NewFieldEncodeError("Writer", fmt.Sprintf("field %d", field),
				"Ldelim field number must be positive", ErrInvalidFieldNumber))
			return w
		}
		w.lastField = field
		w.push(wire.AppendTag(nil, field, wire.WireBytes))
	}
	w.push(wire.AppendUvarint(nil, uint64(innerLen)))

	w.ops = append(w.ops, inner...)
	w.length += innerLen
	return w
}

// Finish allocates a buffer of exactly Len() bytes, copies every queued op
// into it in order, and resets the writer for reuse. The returned error is
// non-nil only if a sticky error (an exceeded limit, an invalid field
// number, invalid UTF-8, a malformed 64-bit string, or an unbalanced
// Fork/Ldelim) was recorded; the returned bytes are always
// fully formed for whatever was successfully queued.
func (w *Writer) Finish() ([]byte, error) {
	if len(w.frames) > 0 {
		w.setErr(ErrUnbalancedFork)
	}
	err := w.err

	buf := make([]byte, w.length)
	pos := 0
	for _, o := range w.ops {
		pos += copy(buf[pos:], o)
	}

	w.resetAll()
	return buf, err
}

// WriteTag writes a field tag: (fieldNum << 3) | wireType.
func (w *Writer) WriteTag(fieldNum int, wireType WireType) *Writer {
	if fieldNum <= 0 {
		w.setErr(NewFieldEncodeError("Writer", fmt.Sprintf("field %d", fieldNum),
			"field number must be positive", ErrInvalidFieldNumber))
		return w
	}
	w.lastField = fieldNum
	w.push(wire.AppendTag(nil, fieldNum, wireType))
	return w
}

// WriteBool writes a boolean as a single-byte varint.
func (w *Writer) WriteBool(v bool) *Writer {
	if v {
		w.push([]byte{1})
	} else {
		w.push([]byte{0})
	}
	return w
}

// WriteUint32 writes an unsigned 32-bit integer as a varint.
func (w *Writer) WriteUint32(v uint32) *Writer {
	w.push(wire.AppendUvarint(nil, uint64(v)))
	return w
}

// WriteInt32 writes a signed 32-bit integer as a varint. Negative values
// are sign-extended to 64 bits before encoding, per the Protocol Buffers
// int32 wire format, and so always take the full 10-byte varint form.
func (w *Writer) WriteInt32(v int32) *Writer {
	lb := wire.LongBitsFromInt64(int64(v))
	w.push(wire.AppendUvarintLongBits(nil, lb))
	return w
}

// WriteSint32 writes a signed 32-bit integer using ZigZag encoding, so
// small-magnitude negative values stay small on the wire.
func (w *Writer) WriteSint32(v int32) *Writer {
	zz := uint32(v<<1) ^ uint32(v>>31)
	w.push(wire.AppendUvarint(nil, uint64(zz)))
	return w
}

// WriteUint64 writes an unsigned 64-bit integer as a varint.
func (w *Writer) WriteUint64(v uint64) *Writer {
	w.push(wire.AppendUvarintLongBits(nil, wire.LongBitsFromUint64(v)))
	return w
}

// WriteInt64 writes a signed 64-bit integer as a varint.
func (w *Writer) WriteInt64(v int64) *Writer {
	w.push(wire.AppendUvarintLongBits(nil, wire.LongBitsFromInt64(v)))
	return w
}

// WriteSint64 writes a signed 64-bit integer using ZigZag encoding.
func (w *Writer) WriteSint64(v int64) *Writer {
	lb := wire.LongBitsFromInt64(v).ZigZag()
	w.push(wire.AppendUvarintLongBits(nil, lb))
	return w
}

// WriteInt64FromString writes a signed 64-bit integer given as a base-10
// string, for values arriving from a text or JSON boundary where the
// original 64-bit precision may not survive a float64 round-trip. The
// string may carry a leading '-'. A malformed string sets ErrInvalidLongInput
// as the writer's sticky error and writes nothing.
func (w *Writer) WriteInt64FromString(s string) *Writer {
	lb, err := wire.LongBitsFromString(s)
	if err != nil {
		w.setErr(NewFieldEncodeError("Writer", w.fieldContext(),
			fmt.Sprintf("%q is not a valid 64-bit integer", s), err))
		return w
	}
	w.push(wire.AppendUvarintLongBits(nil, lb))
	return w
}

// WriteUint64FromString writes an unsigned 64-bit integer given as a
// base-10 string, with the same text-boundary motivation as
// WriteInt64FromString. A leading '-' or any other malformed input sets
// ErrInvalidLongInput as the writer's sticky error and writes nothing.
func (w *Writer) WriteUint64FromString(s string) *Writer {
	if len(s) > 0 && s[0] == '-' {
		w.setErr(NewFieldEncodeError("Writer", w.fieldContext(),
			fmt.Sprintf("%q is negative, want an unsigned 64-bit integer", s), wire.ErrInvalidLongInput))
		return w
	}
	lb, err := wire.LongBitsFromString(s)
	if err != nil {
		w.setErr(NewFieldEncodeError("Writer", w.fieldContext(),
			fmt.Sprintf("%q is not a valid 64-bit integer", s), err))
		return w
	}
	w.push(wire.AppendUvarintLongBits(nil, lb))
	return w
}

// WriteFixed32 writes a fixed-width unsigned 32-bit value, little-endian.
func (w *Writer) WriteFixed32(v uint32) *Writer {
	w.push(wire.AppendFixed32(nil, v))
	return w
}

// WriteSfixed32 writes a fixed-width signed 32-bit value, little-endian.
func (w *Writer) WriteSfixed32(v int32) *Writer {
	w.push(wire.AppendFixed32(nil, uint32(v)))
	return w
}

// WriteFixed64 writes a fixed-width unsigned 64-bit value, little-endian.
func (w *Writer) WriteFixed64(v uint64) *Writer {
	w.push(wire.AppendFixed64(nil, v))
	return w
}

// WriteSfixed64 writes a fixed-width signed 64-bit value, little-endian.
func (w *Writer) WriteSfixed64(v int64) *Writer {
	w.push(wire.AppendFixed64(nil, uint64(v)))
	return w
}

// WriteFloat32 writes a float32, little-endian. By default the bit pattern
// round-trips exactly, including -0.0 and any NaN payload; set
// Options.CanonicalizeFloats to collapse -0.0 to +0.0 and every NaN to one
// canonical quiet NaN instead.
func (w *Writer) WriteFloat32(v float32) *Writer {
	if w.opts.CanonicalizeFloats {
		w.push(wire.AppendCanonicalFloat32(nil, v))
	} else {
		w.push(wire.AppendFloat32(nil, v))
	}
	return w
}

// WriteFloat64 writes a float64, little-endian, with the same
// canonicalization behavior as WriteFloat32.
func (w *Writer) WriteFloat64(v float64) *Writer {
	if w.opts.CanonicalizeFloats {
		w.push(wire.AppendCanonicalFloat64(nil, v))
	} else {
		w.push(wire.AppendFloat64(nil, v))
	}
	return w
}

// WriteBytes writes a length-prefixed byte slice. The slice is held by
// reference, not copied; callers must not mutate it before Finish.
func (w *Writer) WriteBytes(b []byte) *Writer {
	if w.opts.Limits.MaxBytesLength > 0 && len(b) > w.opts.Limits.MaxBytesLength {
		w.setErr(NewFieldEncodeError("Writer", w.fieldContext(),
			fmt.Sprintf("bytes length %d exceeds maximum %d", len(b), w.opts.Limits.MaxBytesLength),
			ErrMaxBytesLength))
		return w
	}
	w.push(wire.AppendUvarint(nil, uint64(len(b))))
	w.push(b)
	return w
}

// WriteString writes a length-prefixed string. Go strings are already
// UTF-8 byte sequences, so this takes the direct-copy fast path: len(s) is
// the UTF-8 byte length and the bytes are emitted unchanged, with no
// UTF-16 code-unit conversion. When Options.ValidateUTF8 is set (as in
// DefaultOptions), s is first scanned and rejected if it is not valid UTF-8.
func (w *Writer) WriteString(s string) *Writer {
	if w.opts.Limits.MaxStringLength > 0 && len(s) > w.opts.Limits.MaxStringLength {
		w.setErr(NewFieldEncodeError("Writer", w.fieldContext(),
			fmt.Sprintf("string length %d exceeds maximum %d", len(s), w.opts.Limits.MaxStringLength),
			ErrMaxStringLength))
		return w
	}
	if w.opts.ValidateUTF8 && !isValidUTF8(s) {
		w.setErr(NewFieldEncodeError("Writer", w.fieldContext(),
			"string is not valid UTF-8", ErrInvalidUTF8))
		return w
	}
	w.push(wire.AppendUvarint(nil, uint64(len(s))))
	w.push([]byte(s))
	return w
}

// WriteUTF16 writes a length-prefixed string given as UTF-16 code units,
// re-encoding them to UTF-8 before emission. This exists for boundaries
// that hand Go a string as UTF-16 rather than as a native Go string: JSON
// \uXXXX escapes, Windows API text, and data from a JS/WASM peer. An
// unpaired surrogate is emitted as a 3-byte sequence rather than rejected,
// matching the tolerant behavior such peers expect.
func (w *Writer) WriteUTF16(units []uint16) *Writer {
	data := utf16ToUTF8(units)
	if w.opts.Limits.MaxStringLength > 0 && len(data) > w.opts.Limits.MaxStringLength {
		w.setErr(NewFieldEncodeError("Writer", w.fieldContext(),
			fmt.Sprintf("string length %d exceeds maximum %d", len(data), w.opts.Limits.MaxStringLength),
			ErrMaxStringLength))
		return w
	}
	w.push(wire.AppendUvarint(nil, uint64(len(data))))
	w.push(data)
	return w
}

// utf16ToUTF8 re-encodes UTF-16 code units to UTF-8 bytes, combining
// surrogate pairs into a single 4-byte sequence and passing an unpaired
// surrogate through as a 3-byte sequence.
func utf16ToUTF8(units []uint16) []byte {
	buf := make([]byte, 0, len(units)*3)
	for i := 0; i < len(units); i++ {
		cu := units[i]
		switch {
		case cu < 0x80:
			buf = append(buf, byte(cu))
		case cu < 0x800:
			buf = append(buf, byte(0xC0|(cu>>6)), byte(0x80|(cu&0x3F)))
		case cu >= 0xD800 && cu <= 0xDBFF && i+1 < len(units) && units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF:
			lo := units[i+1]
			cp := 0x10000 + (uint32(cu)-0xD800)<<10 + (uint32(lo) - 0xDC00)
			buf = append(buf,
				byte(0xF0|(cp>>18)),
				byte(0x80|((cp>>12)&0x3F)),
				byte(0x80|((cp>>6)&0x3F)),
				byte(0x80|(cp&0x3F)),
			)
			i++
		default:
			buf = append(buf, byte(0xE0|(cu>>12)), byte(0x80|((cu>>6)&0x3F)), byte(0x80|(cu&0x3F)))
		}
	}
	return buf
}

// isValidUTF8 reports whether s is well-formed UTF-8, rejecting overlong
// encodings, out-of-range code points, and encoded surrogate halves.
func isValidUTF8(s string) bool {
	for i := 0; i < len(s); {
		if s[i] < 0x80 {
			i++
			continue
		}
		size := utf8SequenceSize(s[i])
		if size == 0 || i+size > len(s) {
			return false
		}
		for j := 1; j < size; j++ {
			if s[i+j]&0xC0 != 0x80 {
				return false
			}
		}
		var codepoint uint32
		switch size {
		case 2:
			codepoint = uint32(s[i]&0x1F)<<6 | uint32(s[i+1]&0x3F)
			if codepoint < 0x80 {
				return false
			}
		case 3:
			codepoint = uint32(s[i]&0x0F)<<12 | uint32(s[i+1]&0x3F)<<6 | uint32(s[i+2]&0x3F)
			if codepoint < 0x800 || (codepoint >= 0xD800 && codepoint <= 0xDFFF) {
				return false
			}
		case 4:
			codepoint = uint32(s[i]&0x07)<<18 | uint32(s[i+1]&0x3F)<<12 | uint32(s[i+2]&0x3F)<<6 | uint32(s[i+3]&0x3F)
			if codepoint < 0x10000 || codepoint > 0x10FFFF {
				return false
			}
		}
		i += size
	}
	return true
}

// utf8SequenceSize returns the byte length of the UTF-8 sequence starting
// with leading byte b, or 0 if b cannot lead a sequence.
func utf8SequenceSize(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	case b < 0xF8:
		return 4
	default:
		return 0
	}
}
