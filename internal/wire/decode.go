package wire

import (
	"encoding/binary"
	"errors"
	"io"
	"net"

	"github.com/keaganluttrell/cape/internal/digest"
)

// FrameError wraps a transport-level failure encountered while reading a
// request frame, carrying the Code the worker should report back to the
// client (spec §4.3's short-read classification).
type FrameError struct {
	Code Code
	Err  error
}

func (e *FrameError) Error() string { return e.Err.Error() }
func (e *FrameError) Unwrap() error { return e.Err }

// readExact performs a fixed-byte-count read: it blocks until exactly n
// bytes have been read into a scratch buffer, which is only handed back to
// the caller on full completion (spec §4.3: "request the exact number of
// bytes... and only on full completion copy into the destination").
func readExact(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, classifyReadErr(err)
	}
	return buf, nil
}

// classifyReadErr maps a raw I/O error to the response code the parser must
// surface: a read-deadline timeout is a session error, EOF (including a
// partial frame cut short by a hangup) is a closed socket, anything else is
// a generic failure.
func classifyReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &FrameError{Code: CodeSockClosed, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &FrameError{Code: CodeSessionError, Err: err}
	}
	return &FrameError{Code: CodeFailure, Err: err}
}

func g16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
func g32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func g64(b []byte) uint64 { return ntohll(b) }

// ReadRequest reads and decodes a single request frame from r. The caller is
// responsible for the per-connection read deadline (spec §4.5); a timeout
// surfaces here as a *FrameError with Code CodeSessionError.
func ReadRequest(r io.Reader) (*Request, error) {
	head, err := readExact(r, 12)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Opcode:    Opcode(head[0]),
		UserFlag:  head[1],
		SessionID: g32(head[8:12]),
	}
	usernameLen := int(g16(head[4:6]))
	passwordLen := int(g16(head[6:8]))

	username, err := readExact(r, usernameLen)
	if err != nil {
		return nil, err
	}
	req.Username = string(username)

	password, err := readExact(r, passwordLen)
	if err != nil {
		return nil, err
	}
	req.Password = string(password)

	plBuf, err := readExact(r, 8)
	if err != nil {
		return nil, err
	}
	req.PayloadLen = g64(plBuf)

	payload, err := readPayload(r, req.Opcode, req.PayloadLen)
	if err != nil {
		return nil, err
	}
	req.Payload = payload
	return req, nil
}

func readPayload(r io.Reader, op Opcode, payloadLen uint64) (Payload, error) {
	switch op {
	case OpLocal:
		return NonePayload{}, nil

	case OpUser:
		return readUserPayload(r, payloadLen)

	default:
		return readStdPayload(r, payloadLen)
	}
}

func readUserPayload(r io.Reader, payloadLen uint64) (Payload, error) {
	fixed, err := readExact(r, 4) // subflag(1) + permission(1) + inner_username_len(2)
	if err != nil {
		return nil, err
	}
	subflag := UserSubflag(fixed[0])
	perm := Permission(fixed[1])
	usernameLen := int(g16(fixed[2:4]))

	username, err := readExact(r, usernameLen)
	if err != nil {
		return nil, err
	}

	up := UserPayload{Subflag: subflag, Permission: perm, Username: string(username)}

	consumed := uint64(4 + usernameLen)
	if payloadLen > consumed {
		plBuf, err := readExact(r, 2)
		if err != nil {
			return nil, err
		}
		passwordLen := int(g16(plBuf))
		password, err := readExact(r, passwordLen)
		if err != nil {
			return nil, err
		}
		up.HasPassword = true
		up.Password = string(password)
	}

	return up, nil
}

func readStdPayload(r io.Reader, payloadLen uint64) (Payload, error) {
	plBuf, err := readExact(r, 2)
	if err != nil {
		return nil, err
	}
	pathLen := int(g16(plBuf))

	path, err := readExact(r, pathLen)
	if err != nil {
		return nil, err
	}

	sp := StdPayload{Path: string(path)}

	remaining := payloadLen - uint64(2+pathLen)
	if remaining >= digest.Size {
		hashBuf, err := readExact(r, digest.Size)
		if err != nil {
			return nil, err
		}
		hash, err := digest.FromBytes(hashBuf)
		if err != nil {
			return nil, &FrameError{Code: CodeFailure, Err: err}
		}

		fileLen := int(remaining) - digest.Size
		file, err := readExact(r, fileLen)
		if err != nil {
			return nil, err
		}

		sp.HasFile = true
		sp.Hash = hash
		sp.File = file
	}

	return sp, nil
}
