package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/agentgate/core"
	"github.com/hupe1980/agentgate/engine"
	"github.com/hupe1980/agentgate/logging"
	"github.com/hupe1980/agentgate/registry"
)

// Options holds overrides passed to NewService().
type Options struct {
	Logger logging.Logger
}

// Service performs session operations through registry handles. Stateless;
// safe for concurrent use.
type Service struct {
	registry *registry.Registry
	logger   logging.Logger
}

// NewService constructs a session Service.
func NewService(reg *registry.Registry, optFns ...func(o *Options)) *Service {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Service{registry: reg, logger: opts.Logger}
}

// List is one page of a session listing.
type List struct {
	Sessions      []*core.Session `json:"sessions"`
	NextPageToken string          `json:"next_page_token,omitempty"`
	TotalCount    int             `json:"total_count"`
}

// UserList is the distinct-user view over an agent's sessions.
type UserList struct {
	UserIDs       []string `json:"user_ids"`
	Count         int      `json:"count"`
	NextPageToken string   `json:"next_page_token,omitempty"`
}

// Stats summarizes one session.
type Stats struct {
	SessionID   string    `json:"session_id"`
	UserID      string    `json:"user_id"`
	EventCount  int       `json:"event_count"`
	StateSize   int       `json:"state_size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AgeSeconds  float64   `json:"age_seconds"`
	IdleSeconds float64   `json:"idle_seconds"`
}

// Create creates a backend session for userID. The backend assigns the
// session id (a caller-supplied id is advisory only; the response carries the
// authoritative one). Initial state, when given, lands through the
// state-update merge path so the event log stays the sole mutation channel.
func (s *Service) Create(ctx context.Context, agentID, userID string, initialState map[string]any) (*core.Session, error) {
	h, err := s.registry.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	sess, err := h.Client.CreateSession(ctx, agentID, userID, nil)
	if err != nil {
		return nil, core.EngineError(fmt.Sprintf("failed to create session: %s", err), err)
	}
	s.logger.Info("created session", "session_id", sess.ID, "user_id", userID, "agent_id", agentID)

	if len(initialState) > 0 {
		return s.UpdateState(ctx, agentID, sess.ID, userID, initialState, false)
	}
	return sess, nil
}

// Get fetches one session. When userID is non-empty, ownership is verified.
func (s *Service) Get(ctx context.Context, agentID, sessionID, userID string) (*core.Session, error) {
	h, err := s.registry.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	sess, err := h.Client.GetSession(ctx, agentID, sessionID)
	if err != nil {
		if engine.IsNotFound(err) {
			return nil, core.SessionNotFoundError(sessionID)
		}
		return nil, core.EngineError(fmt.Sprintf("failed to get session: %s", err), err)
	}
	if userID != "" && sess.UserID != "" && sess.UserID != userID {
		return nil, fmt.Errorf("user %q does not own session %q", userID, sessionID)
	}
	return sess, nil
}

// ListSessions lists sessions with page-token pagination. The page token and
// any caller-supplied filter expression are forwarded to the backend
// unmodified; a user filter, when requested, is AND-joined in front of it.
func (s *Service) ListSessions(ctx context.Context, agentID, userID string, pageSize int, pageToken, filterExpr, orderBy string) (*List, error) {
	h, err := s.registry.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}

	var clauses []string
	if userID != "" {
		clauses = append(clauses, fmt.Sprintf("user_id=%s", userID))
	}
	if filterExpr != "" {
		clauses = append(clauses, filterExpr)
	}

	page, err := h.Client.ListSessions(ctx, agentID, engine.ListSessionsOptions{
		PageSize:  pageSize,
		PageToken: pageToken,
		Filter:    strings.Join(clauses, " AND "),
		OrderBy:   orderBy,
	})
	if err != nil {
		return nil, core.EngineError(fmt.Sprintf("failed to list sessions: %s", err), err)
	}
	sessions := page.Sessions
	if sessions == nil {
		sessions = []*core.Session{}
	}
	return &List{
		Sessions:      sessions,
		NextPageToken: page.NextPageToken,
		TotalCount:    len(sessions),
	}, nil
}

// UpdateState encodes a state mutation as one synthesized system event.
//
// With replace=false the caller's delta is appended as-is. With replace=true
// the current state is fetched first and every existing key is mapped to nil
// in a clear delta, with the caller's delta merged on top, so keys not
// re-specified are removed while re-specified keys keep the caller's value.
// The backend append is the sole atomic boundary: the whole delta lands in
// one event or not at all. The updated session is re-fetched and returned.
func (s *Service) UpdateState(ctx context.Context, agentID, sessionID, userID string, delta map[string]any, replace bool) (*core.Session, error) {
	h, err := s.registry.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}

	effective := delta
	if replace {
		current, err := s.Get(ctx, agentID, sessionID, userID)
		if err != nil {
			return nil, err
		}
		merged := make(map[string]any, len(current.State)+len(delta))
		for k := range current.State {
			merged[k] = nil
		}
		for k, v := range delta {
			merged[k] = v
		}
		effective = merged
	}

	ev := core.NewStateUpdateEvent(effective)
	if err := h.Client.AppendEvent(ctx, agentID, sessionID, ev); err != nil {
		if engine.IsNotFound(err) {
			return nil, core.SessionNotFoundError(sessionID)
		}
		return nil, core.InvalidStateUpdateError(err)
	}
	s.logger.Info("updated session state", "session_id", sessionID, "keys", len(effective), "replace", replace)

	return s.Get(ctx, agentID, sessionID, userID)
}

// Delete deletes one session, verifying ownership first when userID is given.
func (s *Service) Delete(ctx context.Context, agentID, sessionID, userID string) error {
	h, err := s.registry.Get(ctx, agentID)
	if err != nil {
		return err
	}
	if userID != "" {
		if _, err := s.Get(ctx, agentID, sessionID, userID); err != nil {
			return err
		}
	}
	if err := h.Client.DeleteSession(ctx, agentID, sessionID); err != nil {
		if engine.IsNotFound(err) {
			return core.SessionNotFoundError(sessionID)
		}
		return core.EngineError(fmt.Sprintf("failed to delete session: %s", err), err)
	}
	s.logger.Info("deleted session", "session_id", sessionID, "agent_id", agentID)
	return nil
}

// ListUsers returns the distinct user ids across an agent's sessions, sorted.
func (s *Service) ListUsers(ctx context.Context, agentID string, pageSize int, pageToken string) (*UserList, error) {
	list, err := s.ListSessions(ctx, agentID, "", pageSize, pageToken, "", "")
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, sess := range list.Sessions {
		if sess.UserID != "" {
			seen[sess.UserID] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &UserList{UserIDs: ids, Count: len(ids), NextPageToken: list.NextPageToken}, nil
}

// Stats summarizes one session's size and activity.
func (s *Service) Stats(ctx context.Context, agentID, sessionID string) (*Stats, error) {
	sess, err := s.Get(ctx, agentID, sessionID, "")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Stats{
		SessionID:   sessionID,
		UserID:      sess.UserID,
		EventCount:  sess.EventCount,
		StateSize:   len(sess.State),
		CreatedAt:   sess.CreatedAt,
		UpdatedAt:   sess.UpdatedAt,
		AgeSeconds:  now.Sub(sess.CreatedAt).Seconds(),
		IdleSeconds: now.Sub(sess.UpdatedAt).Seconds(),
	}, nil
}
