// Package directory resolves users, organizations and spaces from the
// "directory" section of the configuration file. It backs the membership
// and space lookups the skill use cases authorize against.
package directory

import (
	"context"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// ConfigKey is the viper key holding the directory
const ConfigKey = "directory"

// Config is the on-disk shape of the directory
type Config struct {
	Organizations []skilltypes.Organization `mapstructure:"organizations"`
	Users         []skilltypes.User         `mapstructure:"users"`
	Spaces        []skilltypes.Space        `mapstructure:"spaces"`
}

// Directory is an in-memory membership and space oracle
type Directory struct {
	users  map[skilltypes.UserID]skilltypes.User
	orgs   map[skilltypes.OrganizationID]skilltypes.Organization
	spaces map[skilltypes.SpaceID]skilltypes.Space
}

var (
	_ skilltypes.MembershipOracle = (*Directory)(nil)
	_ skilltypes.SpaceOracle      = (*Directory)(nil)
)

// New indexes cfg, rejecting duplicate ids and references to unknown organizations
func New(cfg Config) (*Directory, error) {
	d := &Directory{
		users:  make(map[skilltypes.UserID]skilltypes.User, len(cfg.Users)),
		orgs:   make(map[skilltypes.OrganizationID]skilltypes.Organization, len(cfg.Organizations)),
		spaces: make(map[skilltypes.SpaceID]skilltypes.Space, len(cfg.Spaces)),
	}

	for _, o := range cfg.Organizations {
		if o.ID == "" {
			return nil, errors.New("organization without id")
		}
		if _, dup := d.orgs[o.ID]; dup {
			return nil, errors.Errorf("duplicate organization %s", o.ID)
		}
		d.orgs[o.ID] = o
	}

	for _, s := range cfg.Spaces {
		if s.ID == "" {
			return nil, errors.New("space without id")
		}
		if _, dup := d.spaces[s.ID]; dup {
			return nil, errors.Errorf("duplicate space %s", s.ID)
		}
		if _, ok := d.orgs[s.OrganizationID]; !ok {
			return nil, errors.Errorf("space %s references unknown organization %s", s.ID, s.OrganizationID)
		}
		d.spaces[s.ID] = s
	}

	for _, u := range cfg.Users {
		if u.ID == "" {
			return nil, errors.New("user without id")
		}
		if _, dup := d.users[u.ID]; dup {
			return nil, errors.Errorf("duplicate user %s", u.ID)
		}
		for _, m := range u.Memberships {
			if _, ok := d.orgs[m.OrganizationID]; !ok {
				return nil, errors.Errorf("user %s is a member of unknown organization %s", u.ID, m.OrganizationID)
			}
		}
		d.users[u.ID] = u
	}

	return d, nil
}

// Decode builds a Directory from a raw config value such as the map viper
// returns for the directory section. Unknown keys are rejected.
func Decode(raw any) (*Directory, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create directory decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "invalid directory configuration")
	}
	return New(cfg)
}

// FromViper loads the directory section of the active configuration
func FromViper(v *viper.Viper) (*Directory, error) {
	return Decode(v.Get(ConfigKey))
}

// GetUserByID returns the user or nil when unknown
func (d *Directory) GetUserByID(_ context.Context, id skilltypes.UserID) (*skilltypes.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetOrganizationByID returns the organization or nil when unknown
func (d *Directory) GetOrganizationByID(_ context.Context, id skilltypes.OrganizationID) (*skilltypes.Organization, error) {
	o, ok := d.orgs[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

// GetSpaceByID returns the space or nil when unknown
func (d *Directory) GetSpaceByID(_ context.Context, id skilltypes.SpaceID) (*skilltypes.Space, error) {
	s, ok := d.spaces[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Spaces returns every space of an organization
func (d *Directory) Spaces(orgID skilltypes.OrganizationID) []skilltypes.Space {
	var out []skilltypes.Space
	for _, s := range d.spaces {
		if s.OrganizationID == orgID {
			out = append(out, s)
		}
	}
	return out
}
