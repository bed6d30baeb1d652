package binario

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxBytesLength limits the length prefix accepted by ReadBytes, so that a
// corrupt prefix does not turn into a huge allocation.
const MaxBytesLength = 16 * 1024 * 1024

var ErrTooLong = errors.New("binario: length prefix too large")

type Reader struct {
	byteOrder binary.ByteOrder
	reader    io.Reader
	buf       [8]byte
}

func NewReader(reader io.Reader, byteOrder binary.ByteOrder) *Reader {
	return &Reader{
		reader:    reader,
		byteOrder: byteOrder,
	}
}

func (r *Reader) read(n int) ([]byte, error) {
	bs := r.buf[:n]
	if _, err := io.ReadFull(r.reader, bs); err != nil {
		return nil, err
	}

	return bs, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	bs, err := r.read(1)
	if err != nil {
		return 0, err
	}

	return bs[0], nil
}

func (r *Reader) ReadUint16() (uint16, error) {
	bs, err := r.read(2)
	if err != nil {
		return 0, err
	}

	return r.byteOrder.Uint16(bs), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	bs, err := r.read(4)
	if err != nil {
		return 0, err
	}

	return r.byteOrder.Uint32(bs), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	bs, err := r.read(8)
	if err != nil {
		return 0, err
	}

	return r.byteOrder.Uint64(bs), nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	length, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}

	if length > MaxBytesLength {
		return nil, fmt.Errorf("%w: %d", ErrTooLong, length)
	}

	bs := make([]byte, length)
	if _, err := io.ReadFull(r.reader, bs); err != nil {
		return nil, err
	}

	return bs, nil
}

func (r *Reader) ReadString() (string, error) {
	bs, err := r.ReadBytes()
	return string(bs), err
}
