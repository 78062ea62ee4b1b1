package storage

import (
	"bytes"
	"fmt"

	"github.com/arthur-debert/pipestore/record"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// MsgpackCodec stores collections as MessagePack maps. Maps are written
// and read entry by entry so key order is kept.
type MsgpackCodec struct{}

// Name implements Codec.
func (MsgpackCodec) Name() string {
	return FormatMsgpack
}

// Encode implements Codec.
func (MsgpackCodec) Encode(docs *record.Map) ([]byte, error) {
	if docs == nil {
		docs = record.New()
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := writeMsgpack(enc, docs); err != nil {
		return nil, fmt.Errorf("failed to encode msgpack: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode implements Codec.
func (MsgpackCodec) Decode(data []byte) (*record.Map, error) {
	if len(data) == 0 {
		return record.New(), nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	v, err := readMsgpack(dec)
	if err != nil {
		return nil, err
	}
	return checkDocuments(v)
}

func writeMsgpack(enc *msgpack.Encoder, v any) error {
	switch t := v.(type) {
	case *record.Map:
		if err := enc.EncodeMapLen(t.Len()); err != nil {
			return err
		}
		var err error
		t.Range(func(k string, val any) bool {
			if err = enc.EncodeString(k); err != nil {
				return false
			}
			err = writeMsgpack(enc, val)
			return err == nil
		})
		return err
	case []any:
		if err := enc.EncodeArrayLen(len(t)); err != nil {
			return err
		}
		for _, e := range t {
			if err := writeMsgpack(enc, e); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return enc.EncodeNil()
	case bool:
		return enc.EncodeBool(t)
	case int64:
		return enc.EncodeInt(t)
	case float64:
		return enc.EncodeFloat64(t)
	case string:
		return enc.EncodeString(t)
	default:
		return enc.Encode(t)
	}
}

func readMsgpack(dec *msgpack.Decoder) (any, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}
	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, err
		}
		m := record.New()
		for i := 0; i < n; i++ {
			key, err := dec.DecodeString()
			if err != nil {
				return nil, err
			}
			val, err := readMsgpack(dec)
			if err != nil {
				return nil, err
			}
			m.Set(key, val)
		}
		return m, nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		seq := make([]any, 0, n)
		for i := 0; i < n; i++ {
			val, err := readMsgpack(dec)
			if err != nil {
				return nil, err
			}
			seq = append(seq, val)
		}
		return seq, nil
	default:
		v, err := dec.DecodeInterfaceLoose()
		if err != nil {
			return nil, err
		}
		return record.Normalize(v), nil
	}
}
