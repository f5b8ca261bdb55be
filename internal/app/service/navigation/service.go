package navigation

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hardhatapps/gatekeeper/pkg/tool"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

// SessionState is the explicit lifecycle of a navigation session. Initial
// routing fires exactly once, on the transition into StateRouted, so
// re-entrant calls can never reset an already-routed session.
type SessionState int

const (
	StateUnauthenticated SessionState = iota
	StateSessionRestoring
	StateRouted
)

var ErrSessionNotFound = fmt.Errorf("session not found")

// Session holds one client's navigation state. Two sessions for the same
// user are fully independent (the two-browser-tabs behavior); there is no
// cross-session synchronization.
type Session struct {
	ID       string
	Identity types.Identity

	mu       sync.Mutex
	state    SessionState
	projects []types.ProjectRef
	stack    *Stack
}

// route performs the one-shot initial routing. Idempotent: only the
// transition out of StateSessionRestoring seeds the stack.
func (s *Session) route() {
	if s.state != StateSessionRestoring {
		return
	}
	s.stack = NewStack(Frame{
		Screen: DefaultScreenFor(s.Identity.Role),
		Params: types.ScreenParams{},
	})
	s.state = StateRouted
}

// Snapshot is the view of a session handed to the rendering layer.
type Snapshot struct {
	SessionID string  `json:"session_id"`
	Current   Frame   `json:"current"`
	Depth     int     `json:"depth"`
	Frames    []Frame `json:"frames"`
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID: s.ID,
		Current:   s.stack.Current(),
		Depth:     s.stack.Depth(),
		Frames:    s.stack.Frames(),
	}
}

// Projects returns the project summaries loaded at session start.
func (s *Session) Projects() []types.ProjectRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ProjectRef, len(s.projects))
	copy(out, s.projects)
	return out
}

func (s *Session) projectByID(id string) *types.ProjectRef {
	for i := range s.projects {
		if s.projects[i].ID == id {
			p := s.projects[i]
			return &p
		}
	}
	return nil
}

// Service owns the in-memory session registry. State is deliberately not
// persisted: a restart loses all navigation history and clients re-derive a
// default frame from the user's role.
type Service struct {
	log *zap.SugaredLogger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewService(log *zap.SugaredLogger) *Service {
	return &Service{log: log, sessions: make(map[string]*Session)}
}

// CreateSession registers a session for an authenticated user along with the
// already-fetched project summaries, then routes it to the role's landing
// screen. The navigation core never fetches project data itself.
func (svc *Service) CreateSession(identity types.Identity, projects []types.ProjectRef) Snapshot {
	s := &Session{
		ID:       tool.GenerateUUIDV7(),
		Identity: identity,
		state:    StateSessionRestoring,
		projects: append([]types.ProjectRef(nil), projects...),
	}
	s.route()

	svc.mu.Lock()
	svc.sessions[s.ID] = s
	svc.mu.Unlock()

	svc.log.Infow("session created", "session_id", s.ID, "user_id", identity.UserID, "role", identity.Role)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// DropSession removes a session. Dropping an unknown id is a no-op.
func (svc *Service) DropSession(id string) {
	svc.mu.Lock()
	delete(svc.sessions, id)
	svc.mu.Unlock()
}

func (svc *Service) session(id string) (*Session, error) {
	svc.mu.RLock()
	s, ok := svc.sessions[id]
	svc.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Current returns the session's current navigation snapshot.
func (svc *Service) Current(sessionID string) (Snapshot, error) {
	s, err := svc.session(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(), nil
}

// NavigateTo pushes a frame. An unknown projectID binds no project rather
// than failing; an unknown screen is accepted as-is.
func (svc *Service) NavigateTo(sessionID string, screen types.ScreenID, params types.ScreenParams, projectID *string) (Snapshot, error) {
	s, err := svc.session(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var project *types.ProjectRef
	if projectID != nil {
		project = s.projectByID(*projectID)
	}
	s.stack.NavigateTo(screen, params, project)
	return s.snapshotLocked(), nil
}

// NavigateToModule replaces the stack with a single frame.
func (svc *Service) NavigateToModule(sessionID string, screen types.ScreenID, params types.ScreenParams) (Snapshot, error) {
	s, err := svc.session(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack.NavigateToModule(screen, params)
	return s.snapshotLocked(), nil
}

// GoBack pops the current frame; on a single-frame stack it is a no-op.
func (svc *Service) GoBack(sessionID string) (Snapshot, error) {
	s, err := svc.session(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stack.GoBack()
	return s.snapshotLocked(), nil
}

// GoHome resets navigation, keeping project context when one is bound.
func (svc *Service) GoHome(sessionID string, currentProjectID *string) (Snapshot, error) {
	s, err := svc.session(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var project *types.ProjectRef
	if currentProjectID != nil {
		project = s.projectByID(*currentProjectID)
	}
	s.stack.GoHome(project)
	return s.snapshotLocked(), nil
}

// SelectProject replaces the stack with the project's home frame. An unknown
// project id leaves the stack untouched.
func (svc *Service) SelectProject(sessionID, projectID string) (Snapshot, error) {
	s, err := svc.session(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if project := s.projectByID(projectID); project != nil {
		s.stack.SelectProject(project)
	}
	return s.snapshotLocked(), nil
}

// DeepLink establishes project context before showing the target screen.
func (svc *Service) DeepLink(sessionID string, projectID *string, screen types.ScreenID, params types.ScreenParams) (Snapshot, error) {
	s, err := svc.session(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ResolveDeepLink(s.stack, projectID, screen, params, s.projects)
	return s.snapshotLocked(), nil
}
