package wire

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/keaganluttrell/cape/internal/digest"
)

// Write-phase chunk caps (spec §4.3): the header+message phase and the
// content phase are fragmented independently.
const (
	headerChunk  = 2048
	contentChunk = 1016
)

// FileContent is a read artifact attached to GET/LIST responses.
type FileContent struct {
	Digest digest.Digest
	Bytes  []byte
}

// Response is the assembled reply to one request (spec §3, §6.3).
type Response struct {
	Code      Code
	SessionID uint32
	Message   string
	Content   *FileContent
}

// NewResponse builds a response carrying the canonical message for code.
func NewResponse(code Code, sessionID uint32) *Response {
	return &Response{Code: code, SessionID: sessionID, Message: code.Message()}
}

func p16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func p32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

func p64(b []byte, v uint64) []byte {
	tmp := htonll(v)
	return append(b, tmp[:]...)
}

// header returns the header+message phase buffer and the content phase
// buffer (nil if no content), split per the two independent write phases.
func (r *Response) marshal() (header, content []byte, err error) {
	msg := []byte(r.Message)
	if len(msg) > 255 {
		return nil, nil, errors.New("wire: response message exceeds 255 bytes")
	}

	var contentLen uint64
	if r.Content != nil {
		contentLen = uint64(digest.Size + len(r.Content.Bytes))
	}
	payloadLen := uint64(1+len(msg)) + contentLen

	header = make([]byte, 0, 15+len(msg))
	header = append(header, byte(r.Code))
	header = append(header, 0) // reserved
	header = p32(header, r.SessionID)
	header = p64(header, payloadLen)
	header = append(header, byte(len(msg)))
	header = append(header, msg...)

	if r.Content != nil {
		content = make([]byte, 0, contentLen)
		content = append(content, r.Content.Digest.Bytes()...)
		content = append(content, r.Content.Bytes...)
	}
	return header, content, nil
}

// Bytes returns the full serialized response as one contiguous buffer,
// useful for tests that round-trip a response without a live socket.
func (r *Response) Bytes() ([]byte, error) {
	header, content, err := r.marshal()
	if err != nil {
		return nil, err
	}
	return append(header, content...), nil
}

// writeChunked writes buf to w in pieces of at most maxChunk bytes,
// continuing after a short write until the full buffer has been sent
// (spec §4.3).
func writeChunked(w io.Writer, buf []byte, maxChunk int) error {
	for len(buf) > 0 {
		n := len(buf)
		if n > maxChunk {
			n = maxChunk
		}
		written, err := w.Write(buf[:n])
		if err != nil {
			return err
		}
		buf = buf[written:]
	}
	return nil
}

// WriteTo serializes and writes the response to w in the two write phases
// spec §4.3 mandates. A write error aborts silently: the caller (the
// connection worker) simply closes the socket without retrying.
func (r *Response) WriteTo(w io.Writer) error {
	header, content, err := r.marshal()
	if err != nil {
		return err
	}
	if err := writeChunked(w, header, headerChunk); err != nil {
		return err
	}
	if content != nil {
		if err := writeChunked(w, content, contentChunk); err != nil {
			return err
		}
	}
	return nil
}
