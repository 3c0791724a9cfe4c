package store

import "time"

// UserRole is the role a user carries at the account level.
type UserRole string

const (
	UserRoleOwner  UserRole = "owner"
	UserRoleMember UserRole = "member"
)

// placeholderPasswordHash is stored for users provisioned through an external
// identity provider. Password auth is never used for them; the column is a
// compatibility artifact of the schema.
const placeholderPasswordHash = "external"

// User represents a user record in the provisioning store.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// SubscriptionStatus mirrors the billing provider's subscription lifecycle.
// The store does not validate transitions; the billing webhook collaborator
// only calls in with statuses it has already parsed.
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
)

// Team represents a team record. Billing identifiers are unique when present.
type Team struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	StripeCustomerID     string    `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string    `json:"stripe_subscription_id,omitempty"`
	StripeProductID      string    `json:"stripe_product_id,omitempty"`
	PlanName             string    `json:"plan_name,omitempty"`
	SubscriptionStatus   string    `json:"subscription_status,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TeamMember links a user to a team.
type TeamMember struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	TeamID   int64     `json:"team_id"`
	Role     UserRole  `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// MemberInfo is a membership row joined with the member's display columns.
type MemberInfo struct {
	TeamMember
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TeamWithMembers is a team plus its current member list.
type TeamWithMembers struct {
	Team
	Members []MemberInfo `json:"members"`
}

// ActivityType enumerates the recorded user actions.
type ActivityType string

const (
	ActivitySignUp           ActivityType = "SIGN_UP"
	ActivitySignIn           ActivityType = "SIGN_IN"
	ActivitySignOut          ActivityType = "SIGN_OUT"
	ActivityUpdateAccount    ActivityType = "UPDATE_ACCOUNT"
	ActivityDeleteAccount    ActivityType = "DELETE_ACCOUNT"
	ActivityCreateTeam       ActivityType = "CREATE_TEAM"
	ActivityInviteMember     ActivityType = "INVITE_TEAM_MEMBER"
	ActivityRemoveMember     ActivityType = "REMOVE_TEAM_MEMBER"
	ActivityAcceptInvitation ActivityType = "ACCEPT_INVITATION"
)

// ActivityLog is a single recorded action.
type ActivityLog struct {
	ID        int64        `json:"id"`
	TeamID    int64        `json:"team_id"`
	UserID    *int64       `json:"user_id,omitempty"`
	Action    ActivityType `json:"action"`
	Timestamp time.Time    `json:"timestamp"`
	IPAddress string       `json:"ip_address,omitempty"`
}

// ActivityEntry is an activity row joined with the acting user's name.
// UserName may be empty when the user record carries no name; callers fall
// back to another identifier.
type ActivityEntry struct {
	ID        int64        `json:"id"`
	Action    ActivityType `json:"action"`
	Timestamp time.Time    `json:"timestamp"`
	IPAddress string       `json:"ip_address,omitempty"`
	UserName  string       `json:"user_name,omitempty"`
}

// InvitationStatus is the lifecycle state of a team invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRevoked  InvitationStatus = "revoked"
)

// Invitation represents a pending or resolved team invitation.
type Invitation struct {
	ID        int64            `json:"id"`
	TeamID    int64            `json:"team_id"`
	Email     string           `json:"email"`
	Role      UserRole         `json:"role"`
	InvitedBy int64            `json:"invited_by"`
	InvitedAt time.Time        `json:"invited_at"`
	Status    InvitationStatus `json:"status"`
}

// Project groups usage events under a team.
type Project struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"team_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// APIKey is a team-scoped API key. Only the SHA-256 hash of the key material
// is ever stored.
type APIKey struct {
	ID         int64      `json:"id"`
	TeamID     int64      `json:"team_id"`
	Name       string     `json:"name,omitempty"`
	KeyHash    string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// UsageEvent is an append-only metering record.
type UsageEvent struct {
	ID         int64     `json:"id"`
	TeamID     int64     `json:"team_id"`
	ProjectID  *int64    `json:"project_id,omitempty"`
	EventKey   string    `json:"event_key"`
	Quantity   int64     `json:"quantity"`
	Properties string    `json:"properties,omitempty"` // JSON object
	CreatedAt  time.Time `json:"created_at"`
}

// Plan is a billable plan known to the entitlement store.
type Plan struct {
	ID              int64     `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	StripeProductID string    `json:"stripe_product_id,omitempty"`
	StripePriceID   string    `json:"stripe_price_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Feature is a gated capability.
type Feature struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// PlanFeature maps a feature onto a plan with an optional monthly limit.
type PlanFeature struct {
	PlanID       int64  `json:"plan_id"`
	FeatureID    int64  `json:"feature_id"`
	Included     bool   `json:"included"`
	LimitMonthly *int64 `json:"limit_monthly,omitempty"`
}

// Entitlement is the resolved plan/feature pairing for a lookup.
type Entitlement struct {
	PlanCode     string `json:"plan_code"`
	FeatureCode  string `json:"feature_code"`
	Included     bool   `json:"included"`
	LimitMonthly *int64 `json:"limit_monthly,omitempty"`
}

// WebhookEndpoint is an outbound delivery target owned by a team.
type WebhookEndpoint struct {
	ID        int64     `json:"id"`
	TeamID    int64     `json:"team_id"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// WebhookDelivery is an append-only delivery attempt record.
type WebhookDelivery struct {
	ID             int64     `json:"id"`
	EndpointID     int64     `json:"endpoint_id"`
	Event          string    `json:"event"`
	Status         string    `json:"status"`
	ResponseStatus *int64    `json:"response_status,omitempty"`
	Payload        string    `json:"payload,omitempty"` // JSON object
	DeliveredAt    time.Time `json:"delivered_at"`
}
