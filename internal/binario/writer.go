package binario

import (
	"encoding/binary"
	"io"
)

type Writer struct {
	writer    io.Writer
	byteOrder binary.ByteOrder
	buf       [8]byte
}

func NewWriter(writer io.Writer, byteOrder binary.ByteOrder) *Writer {
	return &Writer{
		writer:    writer,
		byteOrder: byteOrder,
	}
}

func (w *Writer) WriteUint8(value uint8) error {
	w.buf[0] = value
	_, err := w.writer.Write(w.buf[:1])

	return err
}

func (w *Writer) WriteUint16(value uint16) error {
	w.byteOrder.PutUint16(w.buf[:2], value)
	_, err := w.writer.Write(w.buf[:2])

	return err
}

func (w *Writer) WriteUint32(value uint32) error {
	w.byteOrder.PutUint32(w.buf[:4], value)
	_, err := w.writer.Write(w.buf[:4])

	return err
}

func (w *Writer) WriteUint64(value uint64) error {
	w.byteOrder.PutUint64(w.buf[:8], value)
	_, err := w.writer.Write(w.buf[:8])

	return err
}

// WriteBytes writes the value prefixed with its uint32 length.
func (w *Writer) WriteBytes(value []byte) error {
	if err := w.WriteUint32(uint32(len(value))); err != nil {
		return err
	}

	_, err := w.writer.Write(value)

	return err
}

func (w *Writer) WriteString(value string) error {
	return w.WriteBytes([]byte(value))
}
