package serializer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ValentinKolb/bKV/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format.
// Only present fields are written, which keeps small requests small.
//
// Format:
//
//	1 byte   message type
//	1 byte   flags (which of the following fields are present)
//	         key   : uvarint length + bytes
//	         value : uvarint length + bytes
//	         ok    : no payload, the flag is the value
//	         count : uvarint
//	         err   : uvarint length + bytes
//	         meta  : uvarint length + bytes
func NewBinarySerializer() IRPCSerializer {
	return binarySerializerImpl{}
}

type binarySerializerImpl struct{}

// Bit flags to indicate which optional fields are present
const (
	hasKey   byte = 1 << 0
	hasValue byte = 1 << 1
	hasOk    byte = 1 << 2
	hasCount byte = 1 << 3
	hasErr   byte = 1 << 4
	hasMeta  byte = 1 << 5
)

var errShort = errors.New("data too short")

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var flags byte
	buf := make([]byte, 2, sizeHint(msg))
	buf[0] = byte(msg.MsgType)

	if msg.Key != "" {
		flags |= hasKey
		buf = appendBytes(buf, []byte(msg.Key))
	}
	// a nil value (not found) and an empty value (found, empty) are kept apart
	if msg.Value != nil {
		flags |= hasValue
		buf = appendBytes(buf, msg.Value)
	}
	if msg.Ok {
		flags |= hasOk
	}
	if msg.Count > 0 {
		flags |= hasCount
		buf = binary.AppendUvarint(buf, msg.Count)
	}
	if msg.Err != "" {
		flags |= hasErr
		buf = appendBytes(buf, []byte(msg.Err))
	}
	if msg.Meta != nil {
		flags |= hasMeta
		buf = appendBytes(buf, msg.Meta)
	}

	buf[1] = flags
	return buf, nil
}

func (binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < 2 {
		return fmt.Errorf("message header: %w", errShort)
	}
	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := data[1]
	r := reader{data: data, pos: 2}

	if flags&hasKey != 0 {
		key, err := r.bytes("key")
		if err != nil {
			return err
		}
		msg.Key = string(key)
	}
	if flags&hasValue != 0 {
		value, err := r.bytes("value")
		if err != nil {
			return err
		}
		msg.Value = value
	}
	msg.Ok = flags&hasOk != 0
	if flags&hasCount != 0 {
		count, err := r.uvarint("count")
		if err != nil {
			return err
		}
		msg.Count = count
	}
	if flags&hasErr != 0 {
		e, err := r.bytes("err")
		if err != nil {
			return err
		}
		msg.Err = string(e)
	}
	if flags&hasMeta != 0 {
		meta, err := r.bytes("meta")
		if err != nil {
			return err
		}
		msg.Meta = meta
	}

	if r.pos != len(data) {
		return fmt.Errorf("%d trailing bytes after message", len(data)-r.pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func sizeHint(msg common.Message) int {
	const lenPrefix = binary.MaxVarintLen32
	size := 2
	size += lenPrefix + len(msg.Key)
	size += lenPrefix + len(msg.Value)
	size += binary.MaxVarintLen64
	size += lenPrefix + len(msg.Err)
	size += lenPrefix + len(msg.Meta)
	return size
}

func appendBytes(buf, b []byte) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) uvarint(field string) (uint64, error) {
	v, n := binary.Uvarint(r.data[r.pos:])
	if n <= 0 {
		return 0, fmt.Errorf("%s: %w", field, errShort)
	}
	r.pos += n
	return v, nil
}

// bytes reads a length-prefixed field and returns a copy of it
func (r *reader) bytes(field string) ([]byte, error) {
	n, err := r.uvarint(field + " length")
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.data)-r.pos) {
		return nil, fmt.Errorf("%s: %w", field, errShort)
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}
