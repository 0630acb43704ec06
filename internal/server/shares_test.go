package server

import (
	"testing"
	"time"

	"github.com/sdraeger/ddalab-core/internal/share"
)

func TestAccessPolicyRequestToDomain(t *testing.T) {
	maxDownloads := uint32(3)
	expires := time.Now().Add(24 * time.Hour)
	req := accessPolicyRequest{
		Type:         "team",
		TeamID:       "team-1",
		Permissions:  []string{"view", "download"},
		ExpiresAt:    expires,
		MaxDownloads: &maxDownloads,
	}

	got := req.toDomain()
	if got.Type != share.PolicyTeam || got.TeamID != "team-1" {
		t.Fatalf("got %+v", got)
	}
	if len(got.Permissions) != 2 || got.Permissions[0] != share.PermissionView {
		t.Fatalf("permissions mismatch: %+v", got.Permissions)
	}
	if got.MaxDownloads == nil || *got.MaxDownloads != maxDownloads {
		t.Fatalf("max downloads mismatch: %+v", got.MaxDownloads)
	}
}
