package skills

import "context"

// Membership links a user to an organization
type Membership struct {
	OrganizationID OrganizationID `json:"organizationId" mapstructure:"organization_id"`
	Role           string         `json:"role" mapstructure:"role"`
}

// User is the caller identity as known by the membership oracle
type User struct {
	ID          UserID       `json:"id" mapstructure:"id"`
	Email       string       `json:"email" mapstructure:"email"`
	Memberships []Membership `json:"memberships" mapstructure:"memberships"`
}

// Organization owns spaces
type Organization struct {
	ID   OrganizationID `json:"id" mapstructure:"id"`
	Name string         `json:"name" mapstructure:"name"`
	Slug string         `json:"slug" mapstructure:"slug"`
}

// Space is an organizational sub-scope that owns skills
type Space struct {
	ID             SpaceID        `json:"id" mapstructure:"id"`
	Name           string         `json:"name" mapstructure:"name"`
	Slug           string         `json:"slug" mapstructure:"slug"`
	OrganizationID OrganizationID `json:"organizationId" mapstructure:"organization_id"`
}

// IsMemberOf reports whether the user holds a membership in the organization
func (u User) IsMemberOf(orgID OrganizationID) bool {
	for _, m := range u.Memberships {
		if m.OrganizationID == orgID {
			return true
		}
	}
	return false
}

// MembershipOracle resolves users and organizations.
// Unknown ids yield a nil result and a nil error.
type MembershipOracle interface {
	GetUserByID(ctx context.Context, id UserID) (*User, error)
	GetOrganizationByID(ctx context.Context, id OrganizationID) (*Organization, error)
}

// SpaceOracle resolves spaces. Unknown ids yield a nil result and a nil error.
type SpaceOracle interface {
	GetSpaceByID(ctx context.Context, id SpaceID) (*Space, error)
}
