package navigation

import (
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

// ResolveDeepLink rewrites the stack for a deep link (for example, from a
// "new RFI on Project X" notification). Project context is established first
// so that going back lands on that project's home, not on an unrelated prior
// screen.
//
// With a project id the stack is replaced with exactly two frames:
// project-home, then the target screen, both bound to the project. A project
// id absent from the known list is a silent no-op. Without a project id this
// degrades to a plain push.
func ResolveDeepLink(s *Stack, projectID *string, screen types.ScreenID, params types.ScreenParams, known []types.ProjectRef) {
	if projectID == nil {
		s.NavigateTo(screen, params, nil)
		return
	}

	for i := range known {
		if known[i].ID == *projectID {
			project := known[i]
			s.set([]Frame{
				projectHome(&project),
				{Screen: screen, Params: params, Project: &project},
			}, ModeReplace)
			return
		}
	}
	// unknown project: leave the stack untouched
}
