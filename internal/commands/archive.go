package commands

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/hjson/hjson-go/v4"
	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// encodeArchive renders an export as indented JSON, zstd-compressed when compress is set.
func encodeArchive(values map[string]json.RawMessage, compress bool) ([]byte, error) {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')
	if !compress {
		return data, nil
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// decodeArchive reads an export written by encodeArchive or edited by hand.
// Compressed input is detected by its frame magic. The text may be JSON or HJSON.
func decodeArchive(data []byte) (map[string]json.RawMessage, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		if data, err = dec.DecodeAll(data, nil); err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
	}

	var parsed map[string]any
	if err := hjson.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	values := make(map[string]json.RawMessage, len(parsed))
	for key, v := range parsed {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		values[key] = raw
	}
	return values, nil
}
