package broker

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sdraeger/ddalab-core/internal/presence"
	"github.com/sdraeger/ddalab-core/internal/share"
)

var farFuture = time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeDirectory is a share.Directory stand-in for tests: every caller
// belongs to institution and teams fixed at construction, letting
// individual tests model same- or cross-institution requesters.
type fakeDirectory struct {
	institution string
	teams       []string
	hipaaMode   bool
}

func (d fakeDirectory) InstitutionOf(ctx context.Context, userID string) (string, error) {
	return d.institution, nil
}

func (d fakeDirectory) TeamsOf(ctx context.Context, userID string) ([]string, error) {
	return d.teams, nil
}

func (d fakeDirectory) InstitutionConfig(ctx context.Context, institutionID string) (share.InstitutionConfig, error) {
	return share.InstitutionConfig{ID: institutionID, HIPAAMode: d.hipaaMode}, nil
}

func newTestBroker(capacity int) *Broker {
	return New(presence.NewRegistry(capacity), share.NewMemStore(), fakeDirectory{}, zap.NewNop(), nil)
}

func newTestBrokerWithDirectory(capacity int, dir share.Directory) *Broker {
	return New(presence.NewRegistry(capacity), share.NewMemStore(), dir, zap.NewNop(), nil)
}

func TestHandleRegisterUserOk(t *testing.T) {
	b := newTestBroker(10)
	var registered string
	resp := b.handleRegisterUser(&registered, inboundMessage{UserID: "user-1", Endpoint: "ws://node-1:9000"})
	if resp.Type != ResponseAck {
		t.Fatalf("got %+v, want Ack", resp)
	}
	if registered != "user-1" {
		t.Fatalf("expected registeredUserID to be set, got %q", registered)
	}
	if !b.presence.IsOnline("user-1") {
		t.Fatalf("expected user-1 to be online in the registry")
	}
}

func TestHandleRegisterUserMissingUserID(t *testing.T) {
	b := newTestBroker(10)
	var registered string
	resp := b.handleRegisterUser(&registered, inboundMessage{})
	if resp.Type != ResponseError || resp.Code != ErrCodeInvalidMessage {
		t.Fatalf("got %+v, want INVALID_MESSAGE error", resp)
	}
}

func TestHandleRegisterUserAtCapacity(t *testing.T) {
	b := newTestBroker(1)
	var a, c string
	if resp := b.handleRegisterUser(&a, inboundMessage{UserID: "user-a"}); resp.Type != ResponseAck {
		t.Fatalf("first register should succeed, got %+v", resp)
	}
	resp := b.handleRegisterUser(&c, inboundMessage{UserID: "user-b"})
	if resp.Type != ResponseError || resp.Code != ErrCodeAtCapacity {
		t.Fatalf("got %+v, want AT_CAPACITY error", resp)
	}
}

func TestHandleHeartbeatUnregistered(t *testing.T) {
	b := newTestBroker(10)
	resp := b.handleHeartbeat(inboundMessage{UserID: "ghost"})
	if resp.Type != ResponseError || resp.Code != ErrCodeNotRegistered {
		t.Fatalf("got %+v, want NOT_REGISTERED error", resp)
	}
}

func TestHandleHeartbeatOk(t *testing.T) {
	b := newTestBroker(10)
	var registered string
	b.handleRegisterUser(&registered, inboundMessage{UserID: "user-1"})
	resp := b.handleHeartbeat(inboundMessage{UserID: "user-1"})
	if resp.Type != ResponseAck {
		t.Fatalf("got %+v, want Ack", resp)
	}
}

func TestHandleDisconnectClearsRegistration(t *testing.T) {
	b := newTestBroker(10)
	var registered string
	b.handleRegisterUser(&registered, inboundMessage{UserID: "user-1"})
	resp := b.handleDisconnect(&registered, inboundMessage{UserID: "user-1"})
	if resp.Type != ResponseAck {
		t.Fatalf("got %+v, want Ack", resp)
	}
	if registered != "" {
		t.Fatalf("expected registeredUserID to be cleared, got %q", registered)
	}
	if b.presence.IsOnline("user-1") {
		t.Fatalf("expected user-1 to be removed from the registry")
	}
}

func TestPublishThenRequestShareOwnerOnline(t *testing.T) {
	b := newTestBroker(10)
	ctx := context.Background()
	var owner string
	b.handleRegisterUser(&owner, inboundMessage{UserID: "owner-1", Endpoint: "ws://owner-1:9000/share"})

	publishResp := b.handlePublishShare(ctx, inboundMessage{
		UserID: "owner-1",
		Share: &sharePayload{
			Token:          "tok-1",
			ContentType:    share.ContentDDAResult,
			ContentID:      "analysis-1",
			Classification: share.ClassificationUnclassified,
			AccessPolicy: &accessPolicyPayload{
				Type:        string(share.PolicyPublic),
				Permissions: []string{"view"},
				ExpiresAt:   "2099-01-01T00:00:00Z",
			},
		},
	})
	if publishResp.Type != ResponseAck {
		t.Fatalf("publish: got %+v, want Ack", publishResp)
	}

	reqResp := b.handleRequestShare(ctx, inboundMessage{Token: "tok-1"})
	if reqResp.Type != ResponseShareInfo {
		t.Fatalf("got %+v, want ShareInfo", reqResp)
	}
	if reqResp.Share == nil || reqResp.Share.DownloadURL != "ws://owner-1:9000/share" {
		t.Fatalf("expected download_url to reflect owner's advertised endpoint, got %+v", reqResp.Share)
	}
}

func TestRequestShareOwnerOffline(t *testing.T) {
	b := newTestBroker(10)
	ctx := context.Background()

	b.shares.Publish(ctx, "owner-1", share.ShareMetadata{
		Token:       "tok-2",
		ContentType: share.ContentDDAResult,
		ContentID:   "analysis-2",
		AccessPolicy: share.AccessPolicy{
			Type:        share.PolicyPublic,
			Permissions: []share.Permission{share.PermissionView},
			ExpiresAt:   farFuture,
		},
	})

	resp := b.handleRequestShare(ctx, inboundMessage{Token: "tok-2"})
	if resp.Type != ResponseShareInfo {
		t.Fatalf("got %+v, want ShareInfo", resp)
	}
	if resp.Share.DownloadURL != "" {
		t.Fatalf("expected empty download_url when owner is offline, got %q", resp.Share.DownloadURL)
	}
}

func TestRequestShareDeniedWrongInstitution(t *testing.T) {
	b := newTestBrokerWithDirectory(10, fakeDirectory{institution: "inst-requester"})
	ctx := context.Background()

	b.shares.Publish(ctx, "owner-1", share.ShareMetadata{
		Token:       "tok-5",
		ContentType: share.ContentDDAResult,
		ContentID:   "analysis-5",
		AccessPolicy: share.AccessPolicy{
			Type:          share.PolicyInstitution,
			InstitutionID: "inst-owner",
			Permissions:   []share.Permission{share.PermissionView},
			ExpiresAt:     farFuture,
		},
	})

	resp := b.handleRequestShare(ctx, inboundMessage{UserID: "requester-1", Token: "tok-5"})
	if resp.Type != ResponseError || resp.Code != ErrCodeWrongInstitution {
		t.Fatalf("got %+v, want WRONG_INSTITUTION error", resp)
	}
}

func TestRequestShareNotFound(t *testing.T) {
	b := newTestBroker(10)
	resp := b.handleRequestShare(context.Background(), inboundMessage{Token: "missing"})
	if resp.Type != ResponseError || resp.Code != ErrCodeShareNotFound {
		t.Fatalf("got %+v, want SHARE_NOT_FOUND error", resp)
	}
}

func TestHandleRevokeShareForbidden(t *testing.T) {
	b := newTestBroker(10)
	ctx := context.Background()
	b.shares.Publish(ctx, "owner-1", share.ShareMetadata{
		Token: "tok-3",
		AccessPolicy: share.AccessPolicy{Type: share.PolicyPublic, Permissions: []share.Permission{share.PermissionView}},
	})

	resp := b.handleRevokeShare(ctx, inboundMessage{UserID: "someone-else", Token: "tok-3"})
	if resp.Type != ResponseError || resp.Code != ErrCodeForbidden {
		t.Fatalf("got %+v, want FORBIDDEN error", resp)
	}
}

func TestHandleRevokeShareOk(t *testing.T) {
	b := newTestBroker(10)
	ctx := context.Background()
	b.shares.Publish(ctx, "owner-1", share.ShareMetadata{
		Token: "tok-4",
		AccessPolicy: share.AccessPolicy{Type: share.PolicyPublic, Permissions: []share.Permission{share.PermissionView}},
	})

	resp := b.handleRevokeShare(ctx, inboundMessage{UserID: "owner-1", Token: "tok-4"})
	if resp.Type != ResponseAck {
		t.Fatalf("got %+v, want Ack", resp)
	}
	if _, err := b.shares.Get(ctx, "tok-4"); err != share.ErrNotFound {
		t.Fatalf("expected revoked share to be unreachable via Get, got err=%v", err)
	}
}

func TestDispatchUnrecognizedType(t *testing.T) {
	b := newTestBroker(10)
	var registered string
	resp := b.dispatch(context.Background(), &registered, inboundMessage{Type: "bogus"})
	if resp.Type != ResponseError || resp.Code != ErrCodeInvalidMessage {
		t.Fatalf("got %+v, want INVALID_MESSAGE error", resp)
	}
}
