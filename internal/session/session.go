package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PeakHour/internal/model"
)

// State is the conversation step a user is in.
type State string

const (
	StateIdle          State = "idle"
	StateChoosingAsset State = "choosing_asset"
	StateAwaitingCount State = "awaiting_count"
)

// ErrUnexpectedStep is returned when an input does not fit the user's current state.
var ErrUnexpectedStep = errors.New("unexpected conversation step")

// Session is the pending conversation of one user.
type Session struct {
	UserID    int64      `json:"user_id"`
	State     State      `json:"state"`
	Mode      model.Mode `json:"mode,omitempty"`
	Asset     string     `json:"asset,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Idle returns the empty session of userID.
func Idle(userID int64) Session {
	return Session{UserID: userID, State: StateIdle}
}

// ChooseMode starts a new conversation for mode, discarding any pending fields.
func (s Session) ChooseMode(mode model.Mode) Session {
	return Session{UserID: s.UserID, State: StateChoosingAsset, Mode: mode}
}

// SelectAsset records the chosen asset. The mode must have been chosen first.
func (s Session) SelectAsset(asset string) (Session, error) {
	if s.State != StateChoosingAsset && s.State != StateAwaitingCount {
		return s, fmt.Errorf("select asset in state %s: %w", s.State, ErrUnexpectedStep)
	}
	s.State = StateAwaitingCount
	s.Asset = asset
	return s, nil
}

// Store keeps sessions keyed by user id.
type Store interface {
	// Get returns the user's session, or an idle one when none exists.
	Get(ctx context.Context, userID int64) (Session, error)
	Put(ctx context.Context, s Session) error
	Clear(ctx context.Context, userID int64) error
	// Evict drops sessions not updated since before. It returns how many were removed.
	Evict(ctx context.Context, before time.Time) (int, error)
}
