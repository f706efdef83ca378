package wire

import (
	"bytes"
	"testing"

	"github.com/keaganluttrell/cape/internal/digest"
)

func TestRequestRoundTrip_Std(t *testing.T) {
	req := &Request{
		Opcode:    OpGetFile,
		Username:  "admin",
		Password:  "password",
		SessionID: 42,
		Payload:   StdPayload{Path: "a.txt"},
	}
	buf, err := req.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	got, err := ReadRequest(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if got.Opcode != req.Opcode || got.Username != req.Username || got.Password != req.Password || got.SessionID != req.SessionID {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, req)
	}
	sp, ok := got.Payload.(StdPayload)
	if !ok || sp.Path != "a.txt" || sp.HasFile {
		t.Fatalf("payload mismatch: %+v", got.Payload)
	}
}

func TestRequestRoundTrip_StdWithFile(t *testing.T) {
	file := []byte("hello")
	req := &Request{
		Opcode:   OpPutFile,
		Username: "bob",
		Password: "secretpw",
		Payload: StdPayload{
			Path:    "a.txt",
			HasFile: true,
			Hash:    digest.Sum(file),
			File:    file,
		},
	}
	buf, err := req.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := ReadRequest(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	sp, ok := got.Payload.(StdPayload)
	if !ok || !sp.HasFile {
		t.Fatalf("expected file payload, got %+v", got.Payload)
	}
	if !bytes.Equal(sp.File, file) {
		t.Fatalf("file bytes mismatch: got %q want %q", sp.File, file)
	}
	if !sp.Hash.Equal(digest.Sum(file)) {
		t.Fatal("hash mismatch")
	}
}

func TestRequestRoundTrip_UserCreate(t *testing.T) {
	req := &Request{
		Opcode:   OpUser,
		Username: "admin",
		Password: "password",
		Payload: UserPayload{
			Subflag:     UserCreate,
			Permission:  PermRead,
			Username:    "alice",
			HasPassword: true,
			Password:    "hunter2",
		},
	}
	buf, err := req.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := ReadRequest(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	up, ok := got.Payload.(UserPayload)
	if !ok {
		t.Fatalf("expected UserPayload, got %T", got.Payload)
	}
	if up.Subflag != UserCreate || up.Permission != PermRead || up.Username != "alice" || !up.HasPassword || up.Password != "hunter2" {
		t.Fatalf("user payload mismatch: %+v", up)
	}
}

func TestRequestRoundTrip_UserDeleteNoPassword(t *testing.T) {
	req := &Request{
		Opcode:   OpUser,
		Username: "admin",
		Password: "password",
		Payload: UserPayload{
			Subflag:  UserDelete,
			Username: "alice",
		},
	}
	buf, err := req.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := ReadRequest(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	up := got.Payload.(UserPayload)
	if up.HasPassword {
		t.Fatal("expected no password on a DELETE sub-payload")
	}
}

func TestRequestRoundTrip_Local(t *testing.T) {
	req := &Request{
		Opcode:   OpLocal,
		Username: "admin",
		Password: "password",
		Payload:  NonePayload{},
	}
	buf, err := req.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := ReadRequest(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if _, ok := got.Payload.(NonePayload); !ok {
		t.Fatalf("expected NonePayload, got %T", got.Payload)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	content := []byte("directory listing")
	resp := NewResponse(CodeSuccess, 7)
	resp.Content = &FileContent{Digest: digest.Sum(content), Bytes: content}

	buf, err := resp.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := ParseResponse(buf)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got.Code != CodeSuccess || got.SessionID != 7 || got.Message != CodeSuccess.Message() {
		t.Fatalf("response mismatch: %+v", got)
	}
	if got.Content == nil || !bytes.Equal(got.Content.Bytes, content) {
		t.Fatalf("content mismatch: %+v", got.Content)
	}
}

func TestResponseRoundTrip_NoContent(t *testing.T) {
	resp := NewResponse(CodePermissionErr, 0)
	buf, err := resp.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	got, err := ParseResponse(buf)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got.Content != nil {
		t.Fatalf("expected no content, got %+v", got.Content)
	}
	if got.Message != "User has insufficient permissions to perform this action" {
		t.Fatalf("unexpected message: %q", got.Message)
	}
}

func TestResponseWriteTo(t *testing.T) {
	resp := NewResponse(CodeSuccess, 1)
	var buf bytes.Buffer
	if err := resp.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	got, err := ParseResponse(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if got.Code != CodeSuccess {
		t.Fatalf("code mismatch: %v", got.Code)
	}
}
