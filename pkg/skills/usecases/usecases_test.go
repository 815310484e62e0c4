package usecases

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillvault/pkg/skills/events"
	"github.com/jingkaihe/skillvault/pkg/skills/sqlite"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

type mockMembers struct {
	mock.Mock
}

func (m *mockMembers) GetUserByID(ctx context.Context, id skilltypes.UserID) (*skilltypes.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*skilltypes.User)
	return user, args.Error(1)
}

func (m *mockMembers) GetOrganizationByID(ctx context.Context, id skilltypes.OrganizationID) (*skilltypes.Organization, error) {
	args := m.Called(ctx, id)
	org, _ := args.Get(0).(*skilltypes.Organization)
	return org, args.Error(1)
}

type mockSpaces struct {
	mock.Mock
}

func (m *mockSpaces) GetSpaceByID(ctx context.Context, id skilltypes.SpaceID) (*skilltypes.Space, error) {
	args := m.Called(ctx, id)
	space, _ := args.Get(0).(*skilltypes.Space)
	return space, args.Error(1)
}

type failingSink struct{}

func (failingSink) Emit(context.Context, skilltypes.Event) error {
	return context.DeadlineExceeded
}

const (
	testUserID  skilltypes.UserID         = "user-123456789"
	testOrgID   skilltypes.OrganizationID = "org-1"
	testSpaceID skilltypes.SpaceID        = "space-1"
	otherSpace  skilltypes.SpaceID        = "space-2"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store   *sqlite.Store
	members *mockMembers
	spaces  *mockSpaces
	sink    *events.Recorder
	actor   skilltypes.Actor
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(context.Background(), filepath.Join(t.TempDir(), "skills.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// newTestEnv wires a real store with oracles that know one member user, one
// organization and two spaces of that organization
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	members := &mockMembers{}
	members.On("GetUserByID", mock.Anything, testUserID).Return(&skilltypes.User{
		ID:          testUserID,
		Email:       "dev@example.com",
		Memberships: []skilltypes.Membership{{OrganizationID: testOrgID, Role: "member"}},
	}, nil).Maybe()
	members.On("GetOrganizationByID", mock.Anything, testOrgID).Return(&skilltypes.Organization{
		ID: testOrgID, Name: "Acme", Slug: "acme",
	}, nil).Maybe()

	spaces := &mockSpaces{}
	for _, id := range []skilltypes.SpaceID{testSpaceID, otherSpace} {
		spaces.On("GetSpaceByID", mock.Anything, id).Return(&skilltypes.Space{
			ID: id, Name: string(id), Slug: string(id), OrganizationID: testOrgID,
		}, nil).Maybe()
	}

	return &testEnv{
		store:   newTestStore(t),
		members: members,
		spaces:  spaces,
		sink:    &events.Recorder{},
		actor:   skilltypes.Actor{UserID: testUserID, OrganizationID: testOrgID, SpaceID: testSpaceID},
	}
}

func (e *testEnv) service() *Service {
	return NewService(e.store, e.members, e.spaces, e.sink, WithClock(func() time.Time { return testNow }))
}

func (e *testEnv) inSpace(id skilltypes.SpaceID) skilltypes.Actor {
	a := e.actor
	a.SpaceID = id
	return a
}

func skillMarkdown(name, description, body string) string {
	return "---\nname: " + name + "\ndescription: " + description + "\n---\n\n" + body + "\n"
}

func bundle(skillMD string, extra ...skilltypes.SkillFileInput) []skilltypes.SkillFileInput {
	files := []skilltypes.SkillFileInput{{Path: skilltypes.SkillFileName, Content: skillMD, Permissions: "rw-r--r--"}}
	return append(files, extra...)
}

func scriptFile(content string) skilltypes.SkillFileInput {
	return skilltypes.SkillFileInput{Path: "scripts/run.sh", Content: content, Permissions: "rwxr-xr-x"}
}
