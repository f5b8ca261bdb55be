package navigation

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hardhatapps/gatekeeper/pkg/types"
)

func newTestService() *Service {
	return NewService(zap.NewNop().Sugar())
}

func TestDefaultScreenFor(t *testing.T) {
	tests := []struct {
		role types.Role
		want types.ScreenID
	}{
		{types.RoleDeveloper, types.ScreenDeveloperDashboard},
		{types.RoleSuperAdmin, types.ScreenSuperAdminDashboard},
		{types.RoleCompanyAdmin, types.ScreenGlobalDashboard},
		{types.RoleProjectManager, types.ScreenGlobalDashboard},
		{types.RoleSiteOperative, types.ScreenGlobalDashboard},
		{types.Role("made_up_role"), types.ScreenGlobalDashboard},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultScreenFor(tt.role))
		})
	}
}

func TestCreateSession_RoutesOnceByRole(t *testing.T) {
	svc := newTestService()

	snap := svc.CreateSession(types.Identity{UserID: "u1", CompanyID: "c1", Role: types.RoleDeveloper}, nil)

	require.Equal(t, 1, snap.Depth)
	assert.Equal(t, types.ScreenDeveloperDashboard, snap.Current.Screen)

	// the session is already routed; fetching state again must not reseed it
	moved, err := svc.NavigateTo(snap.SessionID, types.ScreenInvoices, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 2, moved.Depth)

	again, err := svc.Current(snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Depth)
	assert.Equal(t, types.ScreenInvoices, again.Current.Screen)
}

func TestSessionRoute_OnlyFiresFromRestoringState(t *testing.T) {
	s := &Session{
		ID:       "s1",
		Identity: types.Identity{UserID: "u1", Role: types.RoleSuperAdmin},
		state:    StateSessionRestoring,
	}
	s.route()
	require.Equal(t, StateRouted, s.state)
	s.stack.NavigateTo(types.ScreenTenders, nil, nil)

	// a second route call must not reset the stack
	s.route()
	assert.Equal(t, 2, s.stack.Depth())
}

func TestSessions_AreIndependent(t *testing.T) {
	svc := newTestService()
	id := types.Identity{UserID: "u1", CompanyID: "c1", Role: types.RoleProjectManager}

	tab1 := svc.CreateSession(id, knownProjects)
	tab2 := svc.CreateSession(id, knownProjects)
	require.NotEqual(t, tab1.SessionID, tab2.SessionID)

	_, err := svc.SelectProject(tab1.SessionID, "p-1")
	require.NoError(t, err)

	snap2, err := svc.Current(tab2.SessionID)
	require.NoError(t, err)
	assert.Equal(t, types.ScreenGlobalDashboard, snap2.Current.Screen)
}

func TestService_UnknownSession(t *testing.T) {
	svc := newTestService()

	_, err := svc.GoBack("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Current("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_DropSession(t *testing.T) {
	svc := newTestService()
	snap := svc.CreateSession(types.Identity{UserID: "u1", Role: types.RoleSupervisor}, nil)

	svc.DropSession(snap.SessionID)
	_, err := svc.Current(snap.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// dropping twice is fine
	svc.DropSession(snap.SessionID)
}

func TestService_DeepLinkUsesSessionProjects(t *testing.T) {
	svc := newTestService()
	snap := svc.CreateSession(types.Identity{UserID: "u1", Role: types.RoleSupervisor}, knownProjects)

	resolved, err := svc.DeepLink(snap.SessionID, lo.ToPtr("p-1"), types.ScreenRFIs, types.ScreenParams{"rfi_id": "9"})
	require.NoError(t, err)
	require.Equal(t, 2, resolved.Depth)
	assert.Equal(t, types.ScreenProjectHome, resolved.Frames[0].Screen)
	assert.Equal(t, types.ScreenRFIs, resolved.Current.Screen)

	// back from the deep link target lands on the project home
	back, err := svc.GoBack(snap.SessionID)
	require.NoError(t, err)
	assert.Equal(t, types.ScreenProjectHome, back.Current.Screen)
}

func TestService_NavigateToWithUnknownProjectBindsNothing(t *testing.T) {
	svc := newTestService()
	snap := svc.CreateSession(types.Identity{UserID: "u1", Role: types.RoleSupervisor}, knownProjects)

	moved, err := svc.NavigateTo(snap.SessionID, types.ScreenDayworkSheets, nil, lo.ToPtr("p-404"))
	require.NoError(t, err)
	assert.Nil(t, moved.Current.Project)
}
