package wire

import "errors"

// Bytes serializes req into a single client-sent frame. This is primarily
// used by tests and by the reference client fixtures exercising the codec's
// round-trip property (spec §8 property 6); the server itself only ever
// decodes requests, it never encodes them.
func (req *Request) Bytes() ([]byte, error) {
	if len(req.Username) < 3 || len(req.Username) > 20 {
		return nil, errors.New("wire: username length out of range")
	}
	if len(req.Password) < 6 || len(req.Password) > 32 {
		return nil, errors.New("wire: password length out of range")
	}

	payload, err := marshalPayload(req.Opcode, req.Payload)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 20+len(req.Username)+len(req.Password)+len(payload))
	buf = append(buf, byte(req.Opcode), req.UserFlag, 0, 0)
	buf = p16(buf, uint16(len(req.Username)))
	buf = p16(buf, uint16(len(req.Password)))
	buf = p32(buf, req.SessionID)
	buf = append(buf, req.Username...)
	buf = append(buf, req.Password...)
	buf = p64(buf, uint64(len(payload)))
	buf = append(buf, payload...)
	return buf, nil
}

func marshalPayload(op Opcode, p Payload) ([]byte, error) {
	switch op {
	case OpLocal:
		return nil, nil

	case OpUser:
		up, ok := p.(UserPayload)
		if !ok {
			return nil, errors.New("wire: USER_OPERATION requires a UserPayload")
		}
		b := []byte{byte(up.Subflag), byte(up.Permission)}
		b = p16(b, uint16(len(up.Username)))
		b = append(b, up.Username...)
		if up.HasPassword {
			b = p16(b, uint16(len(up.Password)))
			b = append(b, up.Password...)
		}
		return b, nil

	default:
		sp, ok := p.(StdPayload)
		if !ok {
			return nil, errors.New("wire: this opcode requires a StdPayload")
		}
		b := p16(nil, uint16(len(sp.Path)))
		b = append(b, sp.Path...)
		if sp.HasFile {
			b = append(b, sp.Hash.Bytes()...)
			b = append(b, sp.File...)
		}
		return b, nil
	}
}
