package broker

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sdraeger/ddalab-core/internal/presence"
	"github.com/sdraeger/ddalab-core/internal/share"
)

// readDeadline bounds how long a connection may sit idle without
// sending a Heartbeat before the broker drops it; generalizes spec
// §5's heartbeat stale threshold (default 300s) to the transport level
// so a half-open socket does not pin a presence-registry slot forever.
const readDeadline = 300 * time.Second

// Broker upgrades HTTP connections to WebSocket and dispatches the
// typed message set of spec §4.9 against a presence registry and a
// share store.
type Broker struct {
	presence  *presence.Registry
	shares    share.Store
	directory share.Directory
	log       *zap.Logger
	upgrader  websocket.Upgrader
}

// New creates a Broker. allowedOrigins mirrors the institutional
// server's CORS_ORIGINS configuration; an empty list disables the
// origin check (same-origin and non-browser clients only).
func New(reg *presence.Registry, shares share.Store, directory share.Directory, log *zap.Logger, allowedOrigins []string) *Broker {
	b := &Broker{presence: reg, shares: shares, directory: directory, log: log}
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(originSet) == 0 {
				return true
			}
			return originSet[r.Header.Get("Origin")]
		},
	}
	return b
}

// ServeHTTP implements http.Handler, upgrading the request and running
// the connection's read-dispatch-write loop until the socket closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Debug("broker: upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var registeredUserID string
	defer func() {
		if registeredUserID != "" {
			b.presence.Disconnect(registeredUserID)
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.log.Debug("broker: connection closed unexpectedly", zap.Error(err))
			}
			return
		}

		resp := b.dispatch(r.Context(), &registeredUserID, msg)
		if err := conn.WriteJSON(resp); err != nil {
			b.log.Debug("broker: write failed", zap.Error(err))
			return
		}
	}
}

// dispatch routes one decoded message to its handler. registeredUserID
// is the connection's own presence identity, set by handleRegisterUser
// and read back by ServeHTTP's deferred cleanup on close — mirroring
// the teacher's per-connection id tracked across a Coordinator's or
// Worker's lifetime.
func (b *Broker) dispatch(ctx context.Context, registeredUserID *string, msg inboundMessage) outboundMessage {
	switch msg.Type {
	case MessageRegisterUser:
		return b.handleRegisterUser(registeredUserID, msg)
	case MessageHeartbeat:
		return b.handleHeartbeat(msg)
	case MessageDisconnect:
		return b.handleDisconnect(registeredUserID, msg)
	case MessagePublishShare:
		return b.handlePublishShare(ctx, msg)
	case MessageRequestShare:
		return b.handleRequestShare(ctx, msg)
	case MessageRevokeShare:
		return b.handleRevokeShare(ctx, msg)
	default:
		return errorMessage(ErrCodeInvalidMessage, "unrecognized message type")
	}
}

func (b *Broker) handleRegisterUser(registeredUserID *string, msg inboundMessage) outboundMessage {
	if msg.UserID == "" {
		return errorMessage(ErrCodeInvalidMessage, "user_id is required")
	}
	result := b.presence.Register(msg.UserID, msg.SessionID, msg.Endpoint)
	if result == presence.RegistrationAtCapacity {
		return errorMessage(ErrCodeAtCapacity, "broker is at its connection capacity")
	}
	*registeredUserID = msg.UserID
	return ackMessage()
}

func (b *Broker) handleHeartbeat(msg inboundMessage) outboundMessage {
	if !b.presence.Heartbeat(msg.UserID) {
		return errorMessage(ErrCodeNotRegistered, "user is not registered")
	}
	return ackMessage()
}

func (b *Broker) handleDisconnect(registeredUserID *string, msg inboundMessage) outboundMessage {
	b.presence.Disconnect(msg.UserID)
	if *registeredUserID == msg.UserID {
		*registeredUserID = ""
	}
	return ackMessage()
}

func (b *Broker) handlePublishShare(ctx context.Context, msg inboundMessage) outboundMessage {
	if msg.Share == nil || msg.Share.Token == "" {
		return errorMessage(ErrCodeInvalidMessage, "share is required")
	}
	meta := share.ShareMetadata{
		Token:          msg.Share.Token,
		OwnerUserID:    msg.UserID,
		ContentType:    msg.Share.ContentType,
		ContentID:      msg.Share.ContentID,
		Classification: msg.Share.Classification,
		AccessPolicy:   msg.Share.AccessPolicy.toDomain(),
	}
	if err := b.shares.Publish(ctx, msg.UserID, meta); err != nil {
		if err == share.ErrForbidden {
			return errorMessage(ErrCodeForbidden, "share token is owned by another user")
		}
		return errorMessage(ErrCodeInternal, "failed to publish share")
	}
	return ackMessage()
}

// handleRequestShare resolves a share token combined with live
// presence, spec §4.9: if the owner is online, download_url points at
// their advertised endpoint; otherwise it is left empty and the caller
// must retry later. Access is gated by share.CheckAccess (spec §4.5)
// before any share data or download URL is returned.
func (b *Broker) handleRequestShare(ctx context.Context, msg inboundMessage) outboundMessage {
	if msg.Token == "" {
		return errorMessage(ErrCodeInvalidMessage, "token is required")
	}
	meta, err := b.shares.Get(ctx, msg.Token)
	if err != nil {
		return errorMessage(ErrCodeShareNotFound, "share not found")
	}

	result, err := share.Resolve(ctx, b.directory, time.Now(), msg.UserID, meta)
	if err != nil {
		return errorMessage(ErrCodeInternal, "failed to evaluate share access")
	}
	if !result.Granted {
		return errorMessage(deniedReasonCode(result.Reason), "access denied: "+string(result.Reason))
	}

	downloadURL := ""
	if conn, online := b.presence.GetConnection(meta.OwnerUserID); online {
		downloadURL = conn.Endpoint
	}

	return shareInfoMessage(sharePayload{
		Token:          meta.Token,
		OwnerUserID:    meta.OwnerUserID,
		ContentType:    meta.ContentType,
		ContentID:      meta.ContentID,
		Classification: meta.Classification,
		DownloadURL:    downloadURL,
	})
}

func (b *Broker) handleRevokeShare(ctx context.Context, msg inboundMessage) outboundMessage {
	if msg.Token == "" {
		return errorMessage(ErrCodeInvalidMessage, "token is required")
	}
	err := b.shares.Revoke(ctx, msg.UserID, msg.Token)
	switch err {
	case nil:
		return ackMessage()
	case share.ErrNotFound:
		return errorMessage(ErrCodeShareNotFound, "share not found")
	case share.ErrForbidden:
		return errorMessage(ErrCodeForbidden, "not the share owner")
	default:
		return errorMessage(ErrCodeInternal, "failed to revoke share")
	}
}

func (p *accessPolicyPayload) toDomain() share.AccessPolicy {
	if p == nil {
		return share.AccessPolicy{}
	}
	perms := make([]share.Permission, len(p.Permissions))
	for i, v := range p.Permissions {
		perms[i] = share.Permission(v)
	}
	expires, _ := time.Parse(time.RFC3339, p.ExpiresAt)
	return share.AccessPolicy{
		Type:          share.PolicyType(p.Type),
		TeamID:        p.TeamID,
		UserIDs:       p.UserIDs,
		InstitutionID: p.InstitutionID,
		Permissions:   perms,
		ExpiresAt:     expires,
		MaxDownloads:  p.MaxDownloads,
	}
}
