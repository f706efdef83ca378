package wire

import "github.com/keaganluttrell/cape/internal/digest"

// Request is the decoded form of one client frame (spec §3, §6.1).
type Request struct {
	Opcode     Opcode
	UserFlag   uint8
	Username   string // outer auth username
	Password   string // outer auth password
	SessionID  uint32
	PayloadLen uint64
	Payload    Payload
}

// Payload is the tagged union of the three payload shapes a request can
// carry. Only one concrete type is ever populated for a given Request,
// enforced by the interface boundary rather than a shared struct with
// unused fields (spec §9's "payload sum type" note).
type Payload interface {
	payload()
}

// NonePayload is carried by LOCAL_OPERATION, which has no payload.
type NonePayload struct{}

func (NonePayload) payload() {}

// StdPayload is carried by every file operation opcode.
type StdPayload struct {
	Path string

	// HasFile is true when the client attached a hash + byte stream
	// (PUT_REMOTE_FILE). Absent for read-only operations.
	HasFile bool
	Hash    digest.Digest
	File    []byte
}

func (StdPayload) payload() {}

// UserPayload is carried by USER_OPERATION.
type UserPayload struct {
	Subflag    UserSubflag
	Permission Permission
	Username   string

	// HasPassword is true only when Subflag == UserCreate.
	HasPassword bool
	Password    string
}

func (UserPayload) payload() {}
