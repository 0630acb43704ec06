// Package broker implements the sync broker of spec §4.9: a WebSocket
// endpoint that registers presence and brokers peer-to-peer share
// retrieval. Structurally it keeps the teacher's coordinator/worker
// shape — a per-connection goroutine that reads a typed message,
// dispatches it against a registry, and replies — generalized from a
// gRPC action/event protocol to a WebSocket request/response one.
package broker

import "github.com/sdraeger/ddalab-core/internal/share"

// MessageType discriminates the inbound message set of spec §4.9.
type MessageType string

const (
	MessageRegisterUser MessageType = "register_user"
	MessageHeartbeat    MessageType = "heartbeat"
	MessageDisconnect   MessageType = "disconnect"
	MessagePublishShare MessageType = "publish_share"
	MessageRequestShare MessageType = "request_share"
	MessageRevokeShare  MessageType = "revoke_share"
)

// ResponseType discriminates the outbound message set of spec §4.9.
type ResponseType string

const (
	ResponseAck       ResponseType = "ack"
	ResponseError     ResponseType = "error"
	ResponseShareInfo ResponseType = "share_info"
)

// Broker-local error codes, reusing the institutional server's
// vocabulary (internal/httpapi) where the failure has an HTTP
// equivalent, since both surfaces describe the same domain errors.
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeAtCapacity     = "AT_CAPACITY"
	ErrCodeNotRegistered  = "NOT_REGISTERED"
	ErrCodeShareNotFound  = "SHARE_NOT_FOUND"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeInternal       = "INTERNAL"

	// Share access-decision denial codes, one per share.DeniedReason,
	// mirroring internal/httpapi.DeniedReasonCode for the broker's own
	// error vocabulary.
	ErrCodeShareExpired         = "SHARE_EXPIRED"
	ErrCodeDownloadLimitReached = "DOWNLOAD_LIMIT_REACHED"
	ErrCodeWrongInstitution     = "WRONG_INSTITUTION"
	ErrCodePhiPublicShare       = "PHI_PUBLIC_SHARE"
	ErrCodeNotInTeam            = "NOT_IN_TEAM"
	ErrCodeNotInUserList        = "NOT_IN_USER_LIST"
)

// deniedReasonCode maps a share.DeniedReason to its broker error code.
func deniedReasonCode(reason share.DeniedReason) string {
	switch reason {
	case share.DeniedExpired:
		return ErrCodeShareExpired
	case share.DeniedDownloadLimitReached:
		return ErrCodeDownloadLimitReached
	case share.DeniedWrongInstitution:
		return ErrCodeWrongInstitution
	case share.DeniedPhiPublicShare, share.DeniedPhiCrossInstitution:
		return ErrCodePhiPublicShare
	case share.DeniedNotInTeam:
		return ErrCodeNotInTeam
	case share.DeniedNotInUserList:
		return ErrCodeNotInUserList
	default:
		return ErrCodeForbidden
	}
}

// sharePayload is the wire shape of a share published or described
// over the broker connection. share.AccessPolicy and share.ShareMetadata
// carry no json tags of their own (they are in-memory domain types), so
// this mirrors the DTO pattern used at the institutional server's HTTP
// boundary (internal/server's accessPolicyRequest).
type sharePayload struct {
	Token          string               `json:"token"`
	OwnerUserID    string               `json:"owner_user_id,omitempty"`
	ContentType    share.ContentType    `json:"content_type,omitempty"`
	ContentID      string               `json:"content_id,omitempty"`
	Classification share.DataClassification `json:"classification,omitempty"`
	AccessPolicy   *accessPolicyPayload `json:"access_policy,omitempty"`
	DownloadURL    string               `json:"download_url,omitempty"`
}

type accessPolicyPayload struct {
	Type          string   `json:"type"`
	TeamID        string   `json:"team_id,omitempty"`
	UserIDs       []string `json:"user_ids,omitempty"`
	InstitutionID string   `json:"institution_id,omitempty"`
	Permissions   []string `json:"permissions,omitempty"`
	ExpiresAt     string   `json:"expires_at,omitempty"`
	MaxDownloads  *uint32  `json:"max_downloads,omitempty"`
}

// inboundMessage is the single envelope every broker message decodes
// into; only the fields relevant to Type are populated by the sender.
type inboundMessage struct {
	Type      MessageType   `json:"type"`
	UserID    string        `json:"user_id,omitempty"`
	SessionID string        `json:"session_id,omitempty"`
	Endpoint  string        `json:"endpoint,omitempty"`
	Token     string        `json:"token,omitempty"`
	Share     *sharePayload `json:"share,omitempty"`
}

// outboundMessage is the single envelope every broker response encodes
// from.
type outboundMessage struct {
	Type    ResponseType  `json:"type"`
	Code    string        `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
	Share   *sharePayload `json:"share,omitempty"`
}

func ackMessage() outboundMessage {
	return outboundMessage{Type: ResponseAck}
}

func errorMessage(code, message string) outboundMessage {
	return outboundMessage{Type: ResponseError, Code: code, Message: message}
}

func shareInfoMessage(p sharePayload) outboundMessage {
	return outboundMessage{Type: ResponseShareInfo, Share: &p}
}
