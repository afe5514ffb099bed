package http

import (
	"net/http"
	"strings"
)

// Identity arrives pre-authenticated from the upstream gateway. The api
// trusts these headers and never issues or verifies tokens itself.
const (
	userIDHeader   = "X-User-ID"
	userRoleHeader = "X-User-Role"
	roleStaff      = "staff"
)

type principal struct {
	userID string
	staff  bool
}

func principalFrom(r *http.Request) principal {
	return principal{
		userID: strings.TrimSpace(r.Header.Get(userIDHeader)),
		staff:  strings.EqualFold(strings.TrimSpace(r.Header.Get(userRoleHeader)), roleStaff),
	}
}

// requireUser rejects requests that carry no user identity.
func requireUser(w http.ResponseWriter, r *http.Request) (principal, bool) {
	p := principalFrom(r)
	if p.userID == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing "+userIDHeader+" header")
		return principal{}, false
	}
	return p, true
}

// requireStaff additionally rejects non-staff principals.
func requireStaff(w http.ResponseWriter, r *http.Request) (principal, bool) {
	p, ok := requireUser(w, r)
	if !ok {
		return principal{}, false
	}
	if !p.staff {
		writeError(w, http.StatusForbidden, codeForbidden, "staff role required")
		return principal{}, false
	}
	return p, true
}
