package serializer

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/bKV/rpc/common"
	"github.com/golang/snappy"
)

// --------------------------------------------------------------------------
// JSON
// --------------------------------------------------------------------------

// NewJSONSerializer creates a new serializer using json encoding.
// Message types are written as strings, values as base64.
func NewJSONSerializer() IRPCSerializer {
	return jsonSerializerImpl{}
}

type jsonSerializerImpl struct{}

func (jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	*msg = common.Message{}
	return json.Unmarshal(b, msg)
}

// --------------------------------------------------------------------------
// GOB
// --------------------------------------------------------------------------

// NewGOBSerializer creates a new serializer using Go's gob format.
// Every message carries its own type information, which makes it the largest format.
func NewGOBSerializer() IRPCSerializer {
	return gobSerializerImpl{}
}

type gobSerializerImpl struct{}

func (gobSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	*msg = common.Message{}
	return gob.NewDecoder(bytes.NewReader(b)).Decode(msg)
}

// --------------------------------------------------------------------------
// Snappy
// --------------------------------------------------------------------------

// NewSnappySerializer wraps inner and snappy-compresses its output.
// Useful for large document values such as serialized note collections.
func NewSnappySerializer(inner IRPCSerializer) IRPCSerializer {
	return snappySerializerImpl{inner: inner}
}

type snappySerializerImpl struct {
	inner IRPCSerializer
}

func (s snappySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	data, err := s.inner.Serialize(msg)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, data), nil
}

func (s snappySerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	data, err := snappy.Decode(nil, b)
	if err != nil {
		return fmt.Errorf("failed to decompress message: %w", err)
	}
	return s.inner.Deserialize(data, msg)
}
