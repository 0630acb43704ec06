package share

import (
	"context"
	"time"
)

// Directory resolves the caller facts CheckAccess needs beyond what a
// ShareMetadata record carries: the requester's own institution and
// team memberships, and the institution-level HIPAA/federation config
// for a given institution id. Implementations sit behind
// internal/storage/postgres.Directory in production.
type Directory interface {
	InstitutionOf(ctx context.Context, userID string) (string, error)
	TeamsOf(ctx context.Context, userID string) ([]string, error)
	InstitutionConfig(ctx context.Context, institutionID string) (InstitutionConfig, error)
}

// CheckAccess evaluates spec §4.5's access decision algorithm, first
// denial wins:
//
//  1. Expired
//  2. Download limit reached
//  3. Wrong institution
//  4. HIPAA mode + PHI + Public policy
//  5. Policy-specific membership check
//  6. Grant
//
// Ported directly from access_control.rs's check_access, including its
// evaluation order.
func CheckAccess(
	now time.Time,
	requesterUserID string,
	requesterInstitutionID string,
	requesterTeamIDs []string,
	policy AccessPolicy,
	classification DataClassification,
	inst InstitutionConfig,
	downloadCount uint32,
) CheckResult {
	if policy.IsExpired(now) {
		return CheckResult{Reason: DeniedExpired}
	}

	if policy.MaxDownloads != nil && downloadCount >= *policy.MaxDownloads {
		return CheckResult{Reason: DeniedDownloadLimitReached}
	}

	sameInstitution := requesterInstitutionID == policy.InstitutionID
	if !sameInstitution {
		// Cross-institution access requires federation, out of scope
		// for this phase regardless of classification.
		return CheckResult{Reason: DeniedWrongInstitution}
	}

	if inst.HIPAAMode && classification == ClassificationPHI && policy.Type == PolicyPublic {
		return CheckResult{Reason: DeniedPhiPublicShare}
	}

	var allowed bool
	switch policy.Type {
	case PolicyPublic, PolicyInstitution:
		allowed = true
	case PolicyTeam:
		allowed = containsString(requesterTeamIDs, policy.TeamID)
	case PolicyUsers:
		allowed = containsString(policy.UserIDs, requesterUserID)
	}

	if !allowed {
		switch policy.Type {
		case PolicyTeam:
			return CheckResult{Reason: DeniedNotInTeam}
		case PolicyUsers:
			return CheckResult{Reason: DeniedNotInUserList}
		default:
			return CheckResult{Reason: DeniedWrongInstitution}
		}
	}

	return CheckResult{Granted: true, Permissions: policy.Permissions}
}

// Resolve fans out to dir to gather the requester's institution and
// team memberships plus the share's institution config, then evaluates
// CheckAccess. requesterUserID may be empty for an unauthenticated
// caller, in which case institution/team membership resolve to their
// zero values (denying anything but an unscoped public share).
func Resolve(ctx context.Context, dir Directory, now time.Time, requesterUserID string, meta ShareMetadata) (CheckResult, error) {
	var requesterInstitutionID string
	var requesterTeamIDs []string
	if requesterUserID != "" {
		var err error
		requesterInstitutionID, err = dir.InstitutionOf(ctx, requesterUserID)
		if err != nil {
			return CheckResult{}, err
		}
		requesterTeamIDs, err = dir.TeamsOf(ctx, requesterUserID)
		if err != nil {
			return CheckResult{}, err
		}
	}

	inst, err := dir.InstitutionConfig(ctx, meta.AccessPolicy.InstitutionID)
	if err != nil {
		return CheckResult{}, err
	}

	return CheckAccess(now, requesterUserID, requesterInstitutionID, requesterTeamIDs, meta.AccessPolicy, meta.Classification, inst, meta.DownloadCount), nil
}

// HasPermission reports whether a granted result includes p.
func HasPermission(result CheckResult, p Permission) bool {
	if !result.Granted {
		return false
	}
	for _, got := range result.Permissions {
		if got == p {
			return true
		}
	}
	return false
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
