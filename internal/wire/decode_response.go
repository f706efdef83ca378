package wire

import (
	"errors"

	"github.com/keaganluttrell/cape/internal/digest"
)

// ParseResponse decodes a full response buffer produced by Response.Bytes.
// It exists mainly so tests can assert the serialize/parse round trip (spec
// §8 property 5); the server itself never parses its own responses.
func ParseResponse(buf []byte) (*Response, error) {
	if len(buf) < 15 {
		return nil, errors.New("wire: response buffer too short")
	}
	r := &Response{Code: Code(buf[0])}
	r.SessionID = g32(buf[2:6])
	payloadLen := g64(buf[6:14])
	msgLen := int(buf[14])
	if len(buf) < 15+msgLen {
		return nil, errors.New("wire: response buffer truncated in message")
	}
	r.Message = string(buf[15 : 15+msgLen])

	rest := buf[15+msgLen:]
	contentLen := payloadLen - uint64(1+msgLen)
	if contentLen > 0 {
		if uint64(len(rest)) < contentLen {
			return nil, errors.New("wire: response buffer truncated in content")
		}
		if contentLen < digest.Size {
			return nil, errors.New("wire: content shorter than digest size")
		}
		d, err := digest.FromBytes(rest[:digest.Size])
		if err != nil {
			return nil, err
		}
		r.Content = &FileContent{Digest: d, Bytes: append([]byte(nil), rest[digest.Size:contentLen]...)}
	}
	return r, nil
}
