// Package httpapi holds the shared HTTP surface: the error envelope,
// JSON helpers, and cross-cutting middleware used by both the
// institutional server and the local node's HTTP API.
package httpapi

import (
	"encoding/json"
	"net/http"
)

// ErrorEnvelope is the uniform error body every endpoint returns, spec
// §7: "clients get a machine-readable code plus a short message" —
// never a raw internal error string.
type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes named explicitly in spec §6's HTTP API surface.
const (
	CodeAuthFailed           = "AUTH_FAILED"
	CodeAccountSuspended     = "ACCOUNT_SUSPENDED"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeForbidden            = "FORBIDDEN"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeShareNotFound        = "SHARE_NOT_FOUND"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
	CodeInternal             = "INTERNAL"

	// Share access-decision denial codes, spec §4.5/§7: one per
	// share.DeniedReason, surfaced to the caller instead of a generic
	// FORBIDDEN so a client can distinguish why access was refused.
	CodeShareExpired             = "SHARE_EXPIRED"
	CodeDownloadLimitReached     = "DOWNLOAD_LIMIT_REACHED"
	CodeWrongInstitution         = "WRONG_INSTITUTION"
	CodePhiPublicShare           = "PHI_PUBLIC_SHARE"
	CodeNotInTeam                = "NOT_IN_TEAM"
	CodeNotInUserList            = "NOT_IN_USER_LIST"
)

// DeniedReasonCode maps a share.DeniedReason value to its HTTP error
// code. Takes the reason as a string so callers needn't import
// internal/share just for this mapping.
func DeniedReasonCode(reason string) string {
	switch reason {
	case "expired":
		return CodeShareExpired
	case "download_limit_reached":
		return CodeDownloadLimitReached
	case "wrong_institution":
		return CodeWrongInstitution
	case "phi_public_share", "phi_cross_institution":
		return CodePhiPublicShare
	case "not_in_team":
		return CodeNotInTeam
	case "not_in_user_list":
		return CodeNotInUserList
	default:
		return CodeForbidden
	}
}

// WriteError writes status and an ErrorEnvelope{code, message} body.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorEnvelope{Code: code, Message: message})
}

// WriteJSON writes status and v marshaled as the JSON response body.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes the request body into v, returning a descriptive
// error suitable for wrapping in a 400 INVALID_INPUT response.
func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
