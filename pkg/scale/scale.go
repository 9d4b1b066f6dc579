// Package scale exposes the SCALE primitives Substrate nodes speak on top of
// go-subkey's parity codec: fixed width integers, compact integers, length
// prefixed byte strings and options. Decoding is bounds checked against the
// input and compact integers must be canonical.
package scale

import (
	"bytes"
	"math/big"

	"github.com/pkg/errors"
	subscale "github.com/vedhavyas/go-subkey/v2/scale"
)
var (
	ErrUnexpectedEOF   = errors.New("scale: unexpected end of input")
	ErrInvalidCompact  = errors.New("scale: invalid compact encoding")
	ErrInvalidBool     = errors.New("scale: invalid bool")
	ErrInvalidOption   = errors.New("scale: invalid option tag")
	ErrTrailingBytes   = errors.New("scale: trailing bytes after decode")
	ErrValueOutOfRange = errors.New("scale: value out of range")
)

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Encoder accumulates SCALE encoded values.
type Encoder struct {
	buf *bytes.Buffer
	enc *subscale.Encoder
}

func NewEncoder() *Encoder {
	buf := new(bytes.Buffer)
	return &Encoder{buf: buf, enc: subscale.NewEncoder(buf)}
}

func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

func (e *Encoder) Len() int {
	return e.buf.Len()
}

// put writes a fixed width value; writes to a bytes.Buffer cannot fail.
func (e *Encoder) put(v interface{}) *Encoder {
	_ = e.enc.Encode(v)
	return e
}

// Raw appends bytes without a length prefix.
func (e *Encoder) Raw(b []byte) *Encoder {
	if len(b) > 0 {
		_ = e.enc.Write(b)
	}
	return e
}

func (e *Encoder) U8(v uint8) *Encoder {
	_ = e.enc.PushByte(v)
	return e
}

func (e *Encoder) Bool(v bool) *Encoder {
	return e.put(v)
}

func (e *Encoder) U16(v uint16) *Encoder {
	return e.put(v)
}

func (e *Encoder) U32(v uint32) *Encoder {
	return e.put(v)
}

func (e *Encoder) U64(v uint64) *Encoder {
	return e.put(v)
}

// U128 writes a 16 byte little-endian unsigned integer.
func (e *Encoder) U128(v *big.Int) error {
	return e.UintN(v, 16)
}

// UintN writes v as an n byte little-endian unsigned integer.
func (e *Encoder) UintN(v *big.Int, n int) error {
	if v.Sign() < 0 || v.BitLen() > n*8 {
		return errors.Wrapf(ErrValueOutOfRange, "%s does not fit in %d bytes", v.String(), n)
	}
	e.Raw(reverse(v.FillBytes(make([]byte, n))))
	return nil
}

// IntN writes v as an n byte little-endian two's complement integer.
func (e *Encoder) IntN(v *big.Int, n int) error {
	bits := uint(n * 8)
	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), bits-1))
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits-1), big.NewInt(1))
	if v.Cmp(min) < 0 || v.Cmp(max) > 0 {
		return errors.Wrapf(ErrValueOutOfRange, "%s does not fit in i%d", v.String(), bits)
	}
	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		u.Add(u, new(big.Int).Lsh(big.NewInt(1), bits))
	}
	return e.UintN(u, n)
}

// Compact writes a compact encoded unsigned integer.
func (e *Encoder) Compact(v uint64) *Encoder {
	_ = e.CompactBig(new(big.Int).SetUint64(v))
	return e
}

func (e *Encoder) CompactBig(v *big.Int) error {
	if v.Sign() < 0 {
		return errors.Wrapf(ErrValueOutOfRange, "negative compact %s", v.String())
	}
	if (v.BitLen()+7)/8 > 67 {
		return errors.Wrapf(ErrValueOutOfRange, "compact %s too large", v.String())
	}
	if err := e.enc.EncodeUintCompact(*v); err != nil {
		return errors.Wrap(ErrValueOutOfRange, err.Error())
	}
	return nil
}

// ByteSlice writes a compact length prefix followed by b.
func (e *Encoder) ByteSlice(b []byte) *Encoder {
	return e.Compact(uint64(len(b))).Raw(b)
}

func (e *Encoder) String(s string) *Encoder {
	return e.put(s)
}

// OptionNone writes the None tag.
func (e *Encoder) OptionNone() *Encoder {
	return e.U8(0)
}

// OptionSome writes the Some tag; the caller encodes the payload next.
func (e *Encoder) OptionSome() *Encoder {
	return e.U8(1)
}

// compactSize is the canonical encoded length of v.
func compactSize(v *big.Int) int {
	e := NewEncoder()
	_ = e.CompactBig(v)
	return e.Len()
}

// Decoder reads SCALE values from a byte slice.
type Decoder struct {
	size   int
	reader *bytes.Reader
	dec    *subscale.Decoder
}

func NewDecoder(data []byte) *Decoder {
	reader := bytes.NewReader(data)
	return &Decoder{size: len(data), reader: reader, dec: subscale.NewDecoder(reader)}
}

// Remaining returns the number of bytes not yet consumed.
func (d *Decoder) Remaining() int {
	return d.reader.Len()
}

func (d *Decoder) Offset() int {
	return d.size - d.reader.Len()
}

// Finish fails when input bytes remain, mirroring decode_all semantics.
func (d *Decoder) Finish() error {
	if d.Remaining() != 0 {
		return errors.Wrapf(ErrTrailingBytes, "%d bytes left", d.Remaining())
	}
	return nil
}

func (d *Decoder) need(n int) error {
	if n < 0 || d.Remaining() < n {
		return errors.Wrapf(ErrUnexpectedEOF, "need %d bytes at offset %d, have %d", n, d.Offset(), d.Remaining())
	}
	return nil
}

func (d *Decoder) Read(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if n == 0 {
		return b, nil
	}
	if err := d.dec.Read(b); err != nil {
		return nil, errors.Wrap(ErrUnexpectedEOF, err.Error())
	}
	return b, nil
}

// fixed decodes a fixed width value of size n into target.
func (d *Decoder) fixed(n int, target interface{}) error {
	if err := d.need(n); err != nil {
		return err
	}
	if err := d.dec.Decode(target); err != nil {
		return errors.Wrap(ErrUnexpectedEOF, err.Error())
	}
	return nil
}

func (d *Decoder) U8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	b, err := d.dec.ReadOneByte()
	if err != nil {
		return 0, errors.Wrap(ErrUnexpectedEOF, err.Error())
	}
	return b, nil
}

func (d *Decoder) Bool() (bool, error) {
	b, err := d.U8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.Wrapf(ErrInvalidBool, "byte 0x%02x", b)
	}
}

func (d *Decoder) U16() (uint16, error) {
	var v uint16
	err := d.fixed(2, &v)
	return v, err
}

func (d *Decoder) U32() (uint32, error) {
	var v uint32
	err := d.fixed(4, &v)
	return v, err
}

func (d *Decoder) U64() (uint64, error) {
	var v uint64
	err := d.fixed(8, &v)
	return v, err
}

func (d *Decoder) U128() (*big.Int, error) {
	return d.UintN(16)
}

// UintN reads an n byte little-endian unsigned integer.
func (d *Decoder) UintN(n int) (*big.Int, error) {
	b, err := d.Read(n)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(reverse(b)), nil
}

// IntN reads an n byte little-endian two's complement integer.
func (d *Decoder) IntN(n int) (*big.Int, error) {
	u, err := d.UintN(n)
	if err != nil {
		return nil, err
	}
	bits := uint(n * 8)
	if u.Bit(int(bits-1)) == 1 {
		u.Sub(u, new(big.Int).Lsh(big.NewInt(1), bits))
	}
	return u, nil
}

// compactWidth is the encoded length announced by the first byte of a
// compact integer.
func compactWidth(first byte) int {
	switch first & 0b11 {
	case 0b00:
		return 1
	case 0b01:
		return 2
	case 0b10:
		return 4
	default:
		return int(first>>2) + 5
	}
}

// CompactBig reads a compact encoded unsigned integer of any size.
func (d *Decoder) CompactBig() (*big.Int, error) {
	if err := d.need(1); err != nil {
		return nil, err
	}
	first, _ := d.reader.ReadByte()
	_ = d.reader.UnreadByte()
	width := compactWidth(first)
	if err := d.need(width); err != nil {
		return nil, err
	}
	v, err := d.dec.DecodeUintCompact()
	if err != nil {
		return nil, errors.Wrap(ErrInvalidCompact, err.Error())
	}
	if compactSize(v) != width {
		return nil, errors.Wrapf(ErrInvalidCompact, "non canonical %d byte encoding of %s", width, v.String())
	}
	return v, nil
}

// Compact reads a compact integer that must fit in 64 bits.
func (d *Decoder) Compact() (uint64, error) {
	v, err := d.CompactBig()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, errors.Wrapf(ErrValueOutOfRange, "compact %s exceeds u64", v.String())
	}
	return v.Uint64(), nil
}

// CompactLen reads a compact length and checks it against the remaining input.
func (d *Decoder) CompactLen() (int, error) {
	n, err := d.Compact()
	if err != nil {
		return 0, err
	}
	if n > uint64(d.Remaining()) {
		return 0, errors.Wrapf(ErrUnexpectedEOF, "length %d exceeds remaining %d bytes", n, d.Remaining())
	}
	return int(n), nil
}

// ByteSlice reads a compact length prefixed byte string.
func (d *Decoder) ByteSlice() ([]byte, error) {
	n, err := d.CompactLen()
	if err != nil {
		return nil, err
	}
	return d.Read(n)
}

func (d *Decoder) String() (string, error) {
	b, err := d.ByteSlice()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// OptionTag reads an option discriminant and reports whether a value follows.
func (d *Decoder) OptionTag() (bool, error) {
	b, err := d.U8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, errors.Wrapf(ErrInvalidOption, "tag 0x%02x", b)
	}
}

// Strings reads a Vec<String>.
func (d *Decoder) Strings() ([]string, error) {
	n, err := d.Compact()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0)
	for i := uint64(0); i < n; i++ {
		s, err := d.String()
		if err != nil {
			return nil, errors.Wrapf(err, "string %d", i)
		}
		out = append(out, s)
	}
	return out, nil
}

// MaxU128 returns a copy of 2^128-1.
func MaxU128() *big.Int {
	return new(big.Int).Set(maxU128)
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}
