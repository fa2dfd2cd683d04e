package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/bKV/lib/db"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Key   string `json:"key,omitempty"`   // Used for: GetItem, SetItem, RemoveItem
	Value []byte `json:"value,omitempty"` // Used for: SetItem (request), GetItem (response)

	// Response only fields
	Ok    bool   `json:"ok,omitempty"`    // Used for: GetItem responses
	Count uint64 `json:"count,omitempty"` // Used for: Flush and Pending responses
	Err   string `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Used for: Flush (failed keys) and Info (database info) responses, JSON encoded
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewGetItemRequest creates a new GetItem request
func NewGetItemRequest(key string) *Message {
	return &Message{
		MsgType: MsgTGetItem,
		Key:     key,
	}
}

// NewGetItemResponse creates a new GetItem response
func NewGetItemResponse(value []byte, ok bool) *Message {
	return &Message{
		MsgType: MsgTGetItem,
		Ok:      ok,
		Value:   value,
	}
}

// NewSetItemRequest creates a new SetItem request
func NewSetItemRequest(key string, value []byte) *Message {
	return &Message{
		MsgType: MsgTSetItem,
		Key:     key,
		Value:   value,
	}
}

// NewSetItemResponse creates a new SetItem response
func NewSetItemResponse() *Message {
	return &Message{
		MsgType: MsgTSetItem,
	}
}

// NewRemoveItemRequest creates a new RemoveItem request
func NewRemoveItemRequest(key string) *Message {
	return &Message{
		MsgType: MsgTRemoveItem,
		Key:     key,
	}
}

// NewRemoveItemResponse creates a new RemoveItem response
func NewRemoveItemResponse() *Message {
	return &Message{
		MsgType: MsgTRemoveItem,
	}
}

// NewFlushRequest creates a new Flush request
func NewFlushRequest() *Message {
	return &Message{
		MsgType: MsgTFlush,
	}
}

// NewFlushResponse creates a new Flush response.
// count is the number of written keys, failed the keys whose write failed.
func NewFlushResponse(count int, failed []string) *Message {
	msg := &Message{
		MsgType: MsgTFlush,
		Count:   uint64(count),
	}
	if len(failed) > 0 {
		msg.Meta, _ = json.Marshal(failed)
		msg.Err = fmt.Sprintf("%d of %d writes failed", len(failed), count)
	}
	return msg
}

// FailedKeys decodes the failed keys of a Flush response
func (m *Message) FailedKeys() ([]string, error) {
	if len(m.Meta) == 0 {
		return nil, nil
	}
	var keys []string
	if err := json.Unmarshal(m.Meta, &keys); err != nil {
		return nil, fmt.Errorf("failed to decode failed keys: %w", err)
	}
	return keys, nil
}

// NewPendingRequest creates a new Pending request
func NewPendingRequest() *Message {
	return &Message{
		MsgType: MsgTPending,
	}
}

// NewPendingResponse creates a new Pending response
func NewPendingResponse(count int) *Message {
	return &Message{
		MsgType: MsgTPending,
		Count:   uint64(count),
	}
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{
		MsgType: MsgTInfo,
	}
}

// ShardInfo is the payload of an Info response
type ShardInfo struct {
	Pending int             `json:"pending"`
	DB      db.DatabaseInfo `json:"db"`
}

// NewInfoResponse creates a new Info response, info is JSON encoded into Meta
func NewInfoResponse(info ShardInfo) *Message {
	msg := &Message{
		MsgType: MsgTInfo,
	}
	meta, err := json.Marshal(info)
	if err != nil {
		msg.Err = err.Error()
		return msg
	}
	msg.Meta = meta
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTGetItem:
		return "getItem"
	case MsgTSetItem:
		return "setItem"
	case MsgTRemoveItem:
		return "removeItem"
	case MsgTFlush:
		return "flush"
	case MsgTPending:
		return "pending"
	case MsgTInfo:
		return "info"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "getItem":
		*t = MsgTGetItem
	case "setItem":
		*t = MsgTSetItem
	case "removeItem":
		*t = MsgTRemoveItem
	case "flush":
		*t = MsgTFlush
	case "pending":
		*t = MsgTPending
	case "info":
		*t = MsgTInfo
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTGetItem    // Get a value by key
	MsgTSetItem    // Set a value
	MsgTRemoveItem // Remove a key

	// IFlusher operations

	MsgTFlush   // Write all pending values
	MsgTPending // Count pending values

	// Diagnostics

	MsgTInfo // Info about the database of a shard
)
