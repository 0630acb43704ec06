// Package share implements the share store and access-control model
// of spec §4.5: content-addressed, TTL-expiring shares with an
// ordered, HIPAA-aware access decision algorithm.
package share

import "time"

// Permission is a capability granted by a share's access policy.
type Permission string

const (
	PermissionView    Permission = "view"
	PermissionDownload Permission = "download"
	PermissionReshare Permission = "reshare"
)

// DataClassification labels the sensitivity of a share's content.
type DataClassification string

const (
	ClassificationPHI          DataClassification = "phi"
	ClassificationDeIdentified DataClassification = "de_identified"
	ClassificationSynthetic    DataClassification = "synthetic"
	ClassificationUnclassified DataClassification = "unclassified"
)

// ContentType is what a share points at.
type ContentType string

const (
	ContentDDAResult ContentType = "dda_result"
	ContentAnnotation ContentType = "annotation"
	ContentWorkflow   ContentType = "workflow"
)

// PolicyType discriminates the closed set of access policy shapes.
type PolicyType string

const (
	PolicyPublic      PolicyType = "public"
	PolicyTeam        PolicyType = "team"
	PolicyUsers       PolicyType = "users"
	PolicyInstitution PolicyType = "institution"
)

// AccessPolicy is a closed-variant policy: exactly one of TeamID or
// UserIDs is meaningful, selected by Type, mirroring the original
// Rust's tagged `AccessPolicyType` enum.
type AccessPolicy struct {
	Type          PolicyType
	TeamID        string   // meaningful when Type == PolicyTeam
	UserIDs       []string // meaningful when Type == PolicyUsers
	InstitutionID string
	Permissions   []Permission
	ExpiresAt     time.Time
	MaxDownloads  *uint32
}

// IsExpired reports whether the policy's expiry has passed.
func (p AccessPolicy) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// ShareMetadata is the persisted record behind one share token.
type ShareMetadata struct {
	Token          string
	OwnerUserID    string
	ContentType    ContentType
	ContentID      string
	Title          string
	Description    *string
	CreatedAt      time.Time
	AccessPolicy   AccessPolicy
	Classification DataClassification
	DownloadCount  uint32
	LastAccessedAt *time.Time
	RevokedAt      *time.Time
}

// InstitutionConfig is institution-level policy, spec §13 supplement.
type InstitutionConfig struct {
	ID                     string
	Name                   string
	HIPAAMode              bool
	DefaultShareExpiryDays uint32
	AllowFederation        bool
	FederatedInstitutions  []string
}

// DeniedReason enumerates why check_access refused a request, in the
// exact order spec §4.5's algorithm evaluates them. PhiCrossInstitution
// is retained from the original enum as modeled-but-unreachable state:
// the wrong-institution check (step 3) always short-circuits before a
// PHI/cross-institution combination could be distinguished from a
// plain wrong-institution denial — see DESIGN.md.
type DeniedReason string

const (
	DeniedExpired              DeniedReason = "expired"
	DeniedDownloadLimitReached DeniedReason = "download_limit_reached"
	DeniedWrongInstitution     DeniedReason = "wrong_institution"
	DeniedPhiPublicShare       DeniedReason = "phi_public_share"
	DeniedPhiCrossInstitution  DeniedReason = "phi_cross_institution"
	DeniedNotInTeam            DeniedReason = "not_in_team"
	DeniedNotInUserList        DeniedReason = "not_in_user_list"
)

// CheckResult is the outcome of an access decision.
type CheckResult struct {
	Granted     bool
	Permissions []Permission
	Reason      DeniedReason
}
