// Package dispatch implements the per-request routing table: authenticate
// the outer credentials, enforce the action's required permission, invoke
// the file or user operation, and assemble a typed response (spec §4.4).
// Grounded on vfs/vfs.go's Session.handle big switch over req.Type, with the
// inline auth/permission checks factored the same way and rError's role
// played here by errorResponse.
package dispatch

import (
	"errors"

	"github.com/keaganluttrell/cape/internal/credentials"
	"github.com/keaganluttrell/cape/internal/sandbox"
	"github.com/keaganluttrell/cape/internal/wire"
)

// Dispatch authenticates req's outer credentials, enforces the
// action-specific permission rule, performs the operation, and returns the
// response to write back to the client. It never returns an error itself:
// every failure path is represented as a response code (spec §6.3).
func Dispatch(store *credentials.Store, fsys *sandbox.Sandbox, req *wire.Request) *wire.Response {
	result, acct := store.Authenticate(req.Username, req.Password)
	if result != credentials.AuthSuccess {
		return errorResponse(wire.CodeUserAuth, req.SessionID)
	}

	switch req.Opcode {
	case wire.OpLocal:
		return wire.NewResponse(wire.CodeSuccess, req.SessionID)

	case wire.OpUser:
		return dispatchUser(store, acct, req)

	case wire.OpDeleteFile:
		return dispatchDelete(fsys, acct, req)

	case wire.OpMkdir:
		return dispatchMkdir(fsys, acct, req)

	case wire.OpPutFile:
		return dispatchPut(fsys, acct, req)

	case wire.OpListDir:
		return dispatchList(fsys, req)

	case wire.OpGetFile:
		return dispatchGet(fsys, req)

	default:
		return errorResponse(wire.CodeFailure, req.SessionID)
	}
}

func errorResponse(code wire.Code, sessionID uint32) *wire.Response {
	return wire.NewResponse(code, sessionID)
}

func dispatchUser(store *credentials.Store, caller *credentials.UserAccount, req *wire.Request) *wire.Response {
	up, ok := req.Payload.(wire.UserPayload)
	if !ok {
		return errorResponse(wire.CodeFailure, req.SessionID)
	}

	switch up.Subflag {
	case wire.UserCreate:
		if caller.Permission < up.Permission {
			return errorResponse(wire.CodePermissionErr, req.SessionID)
		}
		if !up.HasPassword {
			return errorResponse(wire.CodeCredRuleErr, req.SessionID)
		}
		switch store.CreateUser(up.Username, up.Password, up.Permission) {
		case credentials.MutateSuccess:
			return wire.NewResponse(wire.CodeSuccess, req.SessionID)
		case credentials.MutateCredRuleError:
			return errorResponse(wire.CodeCredRuleErr, req.SessionID)
		case credentials.MutateUserExists:
			return errorResponse(wire.CodeUserExists, req.SessionID)
		default:
			return errorResponse(wire.CodeIOError, req.SessionID)
		}

	case wire.UserDelete:
		if caller.Permission != wire.PermAdmin {
			return errorResponse(wire.CodePermissionErr, req.SessionID)
		}
		switch store.RemoveUser(up.Username) {
		case credentials.MutateSuccess:
			return wire.NewResponse(wire.CodeSuccess, req.SessionID)
		case credentials.MutateUserNoExist:
			return errorResponse(wire.CodeUserNoExist, req.SessionID)
		default:
			return errorResponse(wire.CodeIOError, req.SessionID)
		}

	default:
		return errorResponse(wire.CodeFailure, req.SessionID)
	}
}

func stdPayload(req *wire.Request) (wire.StdPayload, bool) {
	sp, ok := req.Payload.(wire.StdPayload)
	return sp, ok
}

func dispatchDelete(fsys *sandbox.Sandbox, caller *credentials.UserAccount, req *wire.Request) *wire.Response {
	if caller.Permission < wire.PermReadWrite {
		return errorResponse(wire.CodePermissionErr, req.SessionID)
	}
	sp, ok := stdPayload(req)
	if !ok {
		return errorResponse(wire.CodeFailure, req.SessionID)
	}

	vp, err := fsys.ResolveExisting(sp.Path)
	if err != nil {
		return errorResponse(wire.CodeResolveError, req.SessionID)
	}
	if err := fsys.Delete(vp); err != nil {
		switch {
		case errors.Is(err, sandbox.ErrDirNotEmpty):
			return errorResponse(wire.CodeDirNotEmpty, req.SessionID)
		default:
			return errorResponse(wire.CodeIOError, req.SessionID)
		}
	}
	return wire.NewResponse(wire.CodeSuccess, req.SessionID)
}

func dispatchMkdir(fsys *sandbox.Sandbox, caller *credentials.UserAccount, req *wire.Request) *wire.Response {
	if caller.Permission < wire.PermReadWrite {
		return errorResponse(wire.CodePermissionErr, req.SessionID)
	}
	sp, ok := stdPayload(req)
	if !ok {
		return errorResponse(wire.CodeFailure, req.SessionID)
	}

	vp, err := fsys.ResolvePotential(sp.Path)
	if err != nil {
		return errorResponse(wire.CodeResolveError, req.SessionID)
	}
	if err := fsys.Mkdir(vp); err != nil {
		switch {
		case errors.Is(err, sandbox.ErrDirExists):
			return errorResponse(wire.CodeDirExists, req.SessionID)
		default:
			return errorResponse(wire.CodeIOError, req.SessionID)
		}
	}
	return wire.NewResponse(wire.CodeSuccess, req.SessionID)
}

func dispatchPut(fsys *sandbox.Sandbox, caller *credentials.UserAccount, req *wire.Request) *wire.Response {
	if caller.Permission < wire.PermReadWrite {
		return errorResponse(wire.CodePermissionErr, req.SessionID)
	}
	sp, ok := stdPayload(req)
	if !ok || !sp.HasFile {
		return errorResponse(wire.CodeFailure, req.SessionID)
	}

	vp, err := fsys.ResolvePotential(sp.Path)
	if err != nil {
		return errorResponse(wire.CodeResolveError, req.SessionID)
	}
	if err := fsys.WriteAllExclusive(vp, sp.File); err != nil {
		switch {
		case errors.Is(err, sandbox.ErrFileExists):
			return errorResponse(wire.CodeFileExists, req.SessionID)
		default:
			return errorResponse(wire.CodeIOError, req.SessionID)
		}
	}
	return wire.NewResponse(wire.CodeSuccess, req.SessionID)
}

func dispatchList(fsys *sandbox.Sandbox, req *wire.Request) *wire.Response {
	sp, ok := stdPayload(req)
	if !ok {
		return errorResponse(wire.CodeFailure, req.SessionID)
	}

	vp, err := fsys.ResolveExisting(sp.Path)
	if err != nil {
		return errorResponse(wire.CodeResolveError, req.SessionID)
	}
	digest, buf, err := fsys.ListDir(vp)
	if err != nil {
		switch {
		case errors.Is(err, sandbox.ErrNotDir):
			return errorResponse(wire.CodePathNotDir, req.SessionID)
		default:
			return errorResponse(wire.CodeIOError, req.SessionID)
		}
	}

	resp := wire.NewResponse(wire.CodeSuccess, req.SessionID)
	resp.Content = &wire.FileContent{Digest: *digest, Bytes: buf}
	return resp
}

func dispatchGet(fsys *sandbox.Sandbox, req *wire.Request) *wire.Response {
	sp, ok := stdPayload(req)
	if !ok {
		return errorResponse(wire.CodeFailure, req.SessionID)
	}

	vp, err := fsys.ResolveExisting(sp.Path)
	if err != nil {
		return errorResponse(wire.CodeResolveError, req.SessionID)
	}
	digest, buf, err := fsys.ReadAll(vp)
	if err != nil {
		switch {
		case errors.Is(err, sandbox.ErrNotFile):
			return errorResponse(wire.CodePathNotFile, req.SessionID)
		default:
			return errorResponse(wire.CodeIOError, req.SessionID)
		}
	}

	resp := wire.NewResponse(wire.CodeSuccess, req.SessionID)
	resp.Content = &wire.FileContent{Digest: *digest, Bytes: buf}
	return resp
}
