package serializer

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/bKV/rpc/common"
)

// IRPCSerializer is the interface for all Message Serializers
type IRPCSerializer interface {
	// Serialize serializes a Message into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into a Message
	// It takes a byte array and a pointer to a Message as parameters
	// It returns an error if any
	Deserialize(b []byte, msg *common.Message) error
}

// FromName returns the serializer called name (binary, json or gob).
// A "+snappy" suffix wraps it with snappy compression, e.g. "binary+snappy".
func FromName(name string) (IRPCSerializer, error) {
	base, compressed := strings.CutSuffix(strings.ToLower(strings.TrimSpace(name)), "+snappy")

	var s IRPCSerializer
	switch base {
	case "binary", "":
		s = NewBinarySerializer()
	case "json":
		s = NewJSONSerializer()
	case "gob":
		s = NewGOBSerializer()
	default:
		return nil, fmt.Errorf("unknown serializer %q, must be one of binary, json, gob", name)
	}

	if compressed {
		s = NewSnappySerializer(s)
	}
	return s, nil
}
