package stores

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

var errFieldTooLong = errors.New("record field too long")

func writeField(buf *bytes.Buffer, value []byte) error {
	if len(value) > 65535 {
		return errFieldTooLong
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(value))); err != nil {
		return err
	}
	buf.Write(value)
	return nil
}

func readField(reader *bytes.Reader) ([]byte, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readString(reader *bytes.Reader) (string, error) {
	b, err := readField(reader)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
