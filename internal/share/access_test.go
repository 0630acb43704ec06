package share

import "testing"
import "time"

func publicPolicy(institutionID string) AccessPolicy {
	return AccessPolicy{
		Type:          PolicyPublic,
		InstitutionID: institutionID,
		Permissions:   []Permission{PermissionView, PermissionDownload},
		ExpiresAt:     time.Now().Add(30 * 24 * time.Hour),
	}
}

func defaultInstitution() InstitutionConfig {
	return InstitutionConfig{ID: "inst-1", Name: "Test Institution", HIPAAMode: true, DefaultShareExpiryDays: 30}
}

func TestCheckAccessSameInstitutionPublicGranted(t *testing.T) {
	result := CheckAccess(time.Now(), "user-1", "inst-1", nil, publicPolicy("inst-1"), ClassificationUnclassified, defaultInstitution(), 0)
	if !result.Granted {
		t.Fatalf("expected grant, got denial %v", result.Reason)
	}
}

func TestCheckAccessWrongInstitutionDenied(t *testing.T) {
	result := CheckAccess(time.Now(), "user-1", "inst-2", nil, publicPolicy("inst-1"), ClassificationUnclassified, defaultInstitution(), 0)
	if result.Granted || result.Reason != DeniedWrongInstitution {
		t.Fatalf("got %+v, want WrongInstitution denial", result)
	}
}

func TestCheckAccessExpiredDenied(t *testing.T) {
	policy := publicPolicy("inst-1")
	policy.ExpiresAt = time.Now().Add(-24 * time.Hour)
	result := CheckAccess(time.Now(), "user-1", "inst-1", nil, policy, ClassificationUnclassified, defaultInstitution(), 0)
	if result.Granted || result.Reason != DeniedExpired {
		t.Fatalf("got %+v, want Expired denial", result)
	}
}

func TestCheckAccessExpiredTakesPriorityOverWrongInstitution(t *testing.T) {
	policy := publicPolicy("inst-1")
	policy.ExpiresAt = time.Now().Add(-24 * time.Hour)
	result := CheckAccess(time.Now(), "user-1", "inst-2", nil, policy, ClassificationUnclassified, defaultInstitution(), 0)
	if result.Reason != DeniedExpired {
		t.Fatalf("expiration must be checked before institution, got %v", result.Reason)
	}
}

func TestCheckAccessPHICannotBePublic(t *testing.T) {
	result := CheckAccess(time.Now(), "user-1", "inst-1", nil, publicPolicy("inst-1"), ClassificationPHI, defaultInstitution(), 0)
	if result.Granted || result.Reason != DeniedPhiPublicShare {
		t.Fatalf("got %+v, want PhiPublicShare denial", result)
	}
}

func TestCheckAccessPHIAllowedWhenHIPAADisabled(t *testing.T) {
	inst := defaultInstitution()
	inst.HIPAAMode = false
	result := CheckAccess(time.Now(), "user-1", "inst-1", nil, publicPolicy("inst-1"), ClassificationPHI, inst, 0)
	if !result.Granted {
		t.Fatalf("expected grant with HIPAA mode off, got denial %v", result.Reason)
	}
}

func TestCheckAccessDownloadLimitReached(t *testing.T) {
	policy := publicPolicy("inst-1")
	max := uint32(3)
	policy.MaxDownloads = &max
	result := CheckAccess(time.Now(), "user-1", "inst-1", nil, policy, ClassificationUnclassified, defaultInstitution(), 3)
	if result.Granted || result.Reason != DeniedDownloadLimitReached {
		t.Fatalf("got %+v, want DownloadLimitReached denial", result)
	}
}

func TestCheckAccessTeamPolicy(t *testing.T) {
	policy := publicPolicy("inst-1")
	policy.Type = PolicyTeam
	policy.TeamID = "team-a"

	denied := CheckAccess(time.Now(), "user-1", "inst-1", []string{"team-b"}, policy, ClassificationUnclassified, defaultInstitution(), 0)
	if denied.Granted || denied.Reason != DeniedNotInTeam {
		t.Fatalf("got %+v, want NotInTeam denial", denied)
	}

	granted := CheckAccess(time.Now(), "user-1", "inst-1", []string{"team-a"}, policy, ClassificationUnclassified, defaultInstitution(), 0)
	if !granted.Granted {
		t.Fatalf("expected grant for matching team, got %v", granted.Reason)
	}
}

func TestCheckAccessUsersPolicy(t *testing.T) {
	policy := publicPolicy("inst-1")
	policy.Type = PolicyUsers
	policy.UserIDs = []string{"user-2"}

	denied := CheckAccess(time.Now(), "user-1", "inst-1", nil, policy, ClassificationUnclassified, defaultInstitution(), 0)
	if denied.Granted || denied.Reason != DeniedNotInUserList {
		t.Fatalf("got %+v, want NotInUserList denial", denied)
	}

	granted := CheckAccess(time.Now(), "user-2", "inst-1", nil, policy, ClassificationUnclassified, defaultInstitution(), 0)
	if !granted.Granted {
		t.Fatalf("expected grant for listed user, got %v", granted.Reason)
	}
}

func TestHasPermission(t *testing.T) {
	result := CheckAccess(time.Now(), "user-1", "inst-1", nil, publicPolicy("inst-1"), ClassificationUnclassified, defaultInstitution(), 0)
	if !HasPermission(result, PermissionDownload) {
		t.Fatalf("expected Download permission to be present")
	}
	if HasPermission(result, PermissionReshare) {
		t.Fatalf("did not expect Reshare permission")
	}
}
