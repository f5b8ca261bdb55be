package navigation

import (
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

// Frame is one entry in a navigation stack: the screen to render, its
// parameter bag, and the project context it is bound to, if any.
type Frame struct {
	Screen  types.ScreenID     `json:"screen"`
	Params  types.ScreenParams `json:"params"`
	Project *types.ProjectRef  `json:"project,omitempty"`
}

// SetMode controls whether set preserves or discards existing history.
type SetMode int

const (
	ModePush SetMode = iota
	ModeReplace
)

// Stack is an ordered list of frames; the last element is the current one.
// Once seeded it never becomes empty: GoBack on a single frame is a no-op.
// Stack is not safe for concurrent use; Session serializes access.
type Stack struct {
	frames []Frame
}

// NewStack returns a stack seeded with a single frame.
func NewStack(initial Frame) *Stack {
	return &Stack{frames: []Frame{initial}}
}

// set is the single mutation primitive. Every named operation is a thin
// caller choosing frames and mode.
func (s *Stack) set(frames []Frame, mode SetMode) {
	if len(frames) == 0 {
		return
	}
	switch mode {
	case ModePush:
		s.frames = append(s.frames, frames...)
	case ModeReplace:
		s.frames = append(s.frames[:0:0], frames...)
	}
}

// NavigateTo appends a new frame. The screen id is not validated here; the
// rendering layer falls back to a placeholder for unknown screens.
func (s *Stack) NavigateTo(screen types.ScreenID, params types.ScreenParams, project *types.ProjectRef) {
	s.set([]Frame{{Screen: screen, Params: params, Project: project}}, ModePush)
}

// NavigateToModule replaces the whole stack with a single frame, discarding
// back-history. Used for top-level module switches.
func (s *Stack) NavigateToModule(screen types.ScreenID, params types.ScreenParams) {
	s.set([]Frame{{Screen: screen, Params: params}}, ModeReplace)
}

// GoBack removes the current frame unless it is the only one.
func (s *Stack) GoBack() {
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// GoHome resets navigation. With a bound project the result is exactly two
// frames: the original first frame, then that project's home. Without one the
// stack resets to a single global-dashboard frame.
func (s *Stack) GoHome(current *types.ProjectRef) {
	if current != nil {
		first := s.frames[0]
		s.set([]Frame{first, projectHome(current)}, ModeReplace)
		return
	}
	s.set([]Frame{{Screen: types.ScreenGlobalDashboard, Params: types.ScreenParams{}}}, ModeReplace)
}

// SelectProject replaces the stack with a single project-home frame bound to
// the given project.
func (s *Stack) SelectProject(project *types.ProjectRef) {
	s.set([]Frame{projectHome(project)}, ModeReplace)
}

// Current returns the frame on top of the stack.
func (s *Stack) Current() Frame {
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of frames.
func (s *Stack) Depth() int {
	return len(s.frames)
}

// Frames returns a copy of the stack, oldest first.
func (s *Stack) Frames() []Frame {
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

func projectHome(project *types.ProjectRef) Frame {
	return Frame{Screen: types.ScreenProjectHome, Params: types.ScreenParams{}, Project: project}
}
