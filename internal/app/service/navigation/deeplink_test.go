package navigation

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardhatapps/gatekeeper/pkg/types"
)

var knownProjects = []types.ProjectRef{
	{ID: "p-1", Name: "Canal Quarter", Location: "Manchester"},
	{ID: "p-2", Name: "Dockside Phase 2", Location: "Liverpool"},
}

func TestResolveDeepLink(t *testing.T) {
	tests := []struct {
		name       string
		projectID  *string
		wantDepth  int
		wantScreen types.ScreenID
		wantProj   string
		unchanged  bool
	}{
		{
			name:       "known project replaces stack with two frames",
			projectID:  lo.ToPtr("p-2"),
			wantDepth:  2,
			wantScreen: types.ScreenRFIs,
			wantProj:   "p-2",
		},
		{
			name:      "unknown project is a silent no-op",
			projectID: lo.ToPtr("p-404"),
			unchanged: true,
		},
		{
			name:       "nil project degrades to plain push",
			projectID:  nil,
			wantDepth:  4,
			wantScreen: types.ScreenRFIs,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStack(Frame{Screen: types.ScreenGlobalDashboard})
			s.NavigateTo(types.ScreenInvoices, types.ScreenParams{"x": 1}, nil)
			s.NavigateTo(types.ScreenTenders, nil, nil)
			before := s.Frames()

			ResolveDeepLink(s, tt.projectID, types.ScreenRFIs, types.ScreenParams{"rfi_id": "7"}, knownProjects)

			if tt.unchanged {
				require.Equal(t, before, s.Frames())
				return
			}

			require.Equal(t, tt.wantDepth, s.Depth())
			assert.Equal(t, tt.wantScreen, s.Current().Screen)
			assert.Equal(t, types.ScreenParams{"rfi_id": "7"}, s.Current().Params)

			if tt.wantProj != "" {
				frames := s.Frames()
				assert.Equal(t, types.ScreenProjectHome, frames[0].Screen)
				require.NotNil(t, frames[0].Project)
				assert.Equal(t, tt.wantProj, frames[0].Project.ID)
				require.NotNil(t, s.Current().Project)
				assert.Equal(t, tt.wantProj, s.Current().Project.ID)
			}
		})
	}
}

func TestResolveDeepLink_NilProjectMatchesNavigateTo(t *testing.T) {
	viaDeepLink := NewStack(Frame{Screen: types.ScreenGlobalDashboard})
	viaNavigate := NewStack(Frame{Screen: types.ScreenGlobalDashboard})

	ResolveDeepLink(viaDeepLink, nil, types.ScreenPunchList, types.ScreenParams{"item": "3"}, knownProjects)
	viaNavigate.NavigateTo(types.ScreenPunchList, types.ScreenParams{"item": "3"}, nil)

	assert.Equal(t, viaNavigate.Frames(), viaDeepLink.Frames())
}
