package storage

import (
	"bytes"
	"encoding/json"

	"github.com/arthur-debert/pipestore/record"
)

// JSONCodec stores collections as JSON objects.
type JSONCodec struct {
	// Pretty indents the output for humans.
	Pretty bool
}

// Name implements Codec.
func (c JSONCodec) Name() string {
	return FormatJSON
}

// Encode implements Codec.
func (c JSONCodec) Encode(docs *record.Map) ([]byte, error) {
	if docs == nil {
		docs = record.New()
	}
	if c.Pretty {
		return json.MarshalIndent(docs, "", "  ")
	}
	return json.Marshal(docs)
}

// Decode implements Codec.
func (c JSONCodec) Decode(data []byte) (*record.Map, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return record.New(), nil
	}
	v, err := record.DecodeJSON(data)
	if err != nil {
		return nil, err
	}
	return checkDocuments(v)
}
