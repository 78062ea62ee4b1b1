// Package storage turns document maps into bytes and back.
//
// A collection file always holds a single map from record identifier to
// record. Codecs keep the order of that map, and of every nested record,
// so a collection reads back in the order it was written.
package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/pipestore/record"
)

// Supported on-disk formats.
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatMsgpack = "msgpack"
)

// Codec serializes a whole document map.
type Codec interface {
	// Name returns the format name, e.g. "json".
	Name() string

	// Encode serializes docs. An empty map must encode as an empty
	// object, never as null or an empty list.
	Encode(docs *record.Map) ([]byte, error)

	// Decode parses data into a document map. Empty input decodes to an
	// empty map.
	Decode(data []byte) (*record.Map, error)
}

// NewCodec returns the codec for a format name. pretty only affects
// formats that have a compact form.
func NewCodec(format string, pretty bool) (Codec, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return JSONCodec{Pretty: pretty}, nil
	case FormatYAML, "yml":
		return YAMLCodec{}, nil
	case FormatMsgpack, "messagepack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported storage format %q", format)
	}
}

// FormatForPath guesses the format from a file name, ignoring a trailing
// compression suffix. Unknown extensions are treated as JSON.
func FormatForPath(path string) string {
	path = strings.TrimSuffix(path, CompressedSuffix)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".msgpack", ".mpk":
		return FormatMsgpack
	default:
		return FormatJSON
	}
}

// checkDocuments verifies that every entry of a decoded map is a record.
func checkDocuments(v any) (*record.Map, error) {
	docs, ok := v.(*record.Map)
	if !ok {
		if seq, isSeq := v.([]any); isSeq && len(seq) == 0 {
			return record.New(), nil
		}
		return nil, fmt.Errorf("expected a map of records, got %T", v)
	}
	var bad string
	docs.Range(func(key string, value any) bool {
		if _, ok := value.(*record.Map); !ok {
			bad = key
			return false
		}
		return true
	})
	if bad != "" {
		return nil, fmt.Errorf("entry %q is not a record", bad)
	}
	return docs, nil
}
