package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spidermesh/frontier/internal/request"
)

// ErrNotSerializable reports that a request cannot be encoded for disk
// storage, typically because its Meta carries in-process values such as
// callbacks or channels. This is a recoverable, per-request condition:
// the scheduler reroutes such requests to the memory queue.
var ErrNotSerializable = errors.New("request is not serializable")

// Codec encodes requests to bytes for disk persistence and back.
type Codec interface {
	// Encode serializes req. Failures wrap ErrNotSerializable.
	Encode(req *request.Request) ([]byte, error)

	// Decode reconstructs a request from bytes produced by Encode.
	Decode(data []byte) (*request.Request, error)
}

// JSONCodec encodes requests as JSON documents.
//
// Design decision: JSON over a binary encoding because queue files in a
// job directory double as a debugging surface. Operators inspect them
// with standard tools when a paused crawl misbehaves, and the per-record
// size overhead is irrelevant next to the page payloads a crawl moves.
type JSONCodec struct{}

// Encode serializes req to JSON. Any marshalling failure is reported as
// ErrNotSerializable, since for requests the only causes are
// unrepresentable Meta values.
func (JSONCodec) Encode(req *request.Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}
	return data, nil
}

// Decode reconstructs a request from its JSON form. Requests decoded
// from disk always have a non-nil Meta bag.
func (JSONCodec) Decode(data []byte) (*request.Request, error) {
	var req request.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode queued request: %w", err)
	}
	if req.Meta == nil {
		req.Meta = request.NewMeta()
	}
	return &req, nil
}

// Serializable adapts a ByteQueue into a request-level Queue by running
// every element through a Codec.
type Serializable struct {
	bytes ByteQueue
	codec Codec
}

// NewSerializable wraps bytes with codec.
func NewSerializable(bytes ByteQueue, codec Codec) *Serializable {
	return &Serializable{
		bytes: bytes,
		codec: codec,
	}
}

// Push encodes req and appends it to the underlying byte queue.
// Returns an error wrapping ErrNotSerializable if encoding fails; the
// underlying queue is not touched in that case.
func (s *Serializable) Push(req *request.Request) error {
	data, err := s.codec.Encode(req)
	if err != nil {
		return err
	}
	return s.bytes.Push(data)
}

// Pop decodes and returns the next request, or (nil, nil) when empty.
func (s *Serializable) Pop() (*request.Request, error) {
	data, err := s.bytes.Pop()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	return s.codec.Decode(data)
}

// Len returns the number of stored requests.
func (s *Serializable) Len() int {
	return s.bytes.Len()
}

// Close closes the underlying byte queue.
func (s *Serializable) Close() error {
	return s.bytes.Close()
}
