package repo

import (
	"bytes"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"
)

const (
	jsonExt = ".json"
	lz4Ext  = ".json.lz4"
)

// encode returns the bytes written for a checkpoint, lz4 framed when compress
func encode(raw []byte, compress bool) ([]byte, error) {
	if !compress {
		return raw, nil
	}
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode reverses encode based on the file name
func decode(name string, data []byte) ([]byte, error) {
	if !strings.HasSuffix(name, lz4Ext) {
		return data, nil
	}
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}
