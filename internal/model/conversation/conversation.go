package conversation

import (
	"time"

	"github.com/ovc-dev/ovc/backend/internal/model/catalog"
)

// State enumerates the dialogue states a session can occupy.
type State string

const (
	// StateIdle is the initial state and the reset target after every
	// completed or abandoned transaction.
	StateIdle State = "idle"
	// StateMeetingRequested covers both meeting sub-phases; which one is
	// active depends on whether Slots.SelectedStaff is set.
	StateMeetingRequested State = "meeting_requested"
	// StateConfirmProduct awaits a yes/no on the fuzzy-matched product.
	StateConfirmProduct State = "confirm_product"
	// StateRequestQuantity awaits the order quantity.
	StateRequestQuantity State = "request_quantity"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one utterance or reply inside a session's history.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Slots holds the information collected so far for the active transaction.
type Slots struct {
	Product       string
	SelectedStaff *catalog.StaffMember
}

// Session is the per-conversation state owned by the session store and
// mutated only by the dialogue engine while the session's turn lock is held.
type Session struct {
	ID        string
	State     State
	Slots     Slots
	History   []Turn
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New returns an idle session.
func New(id string) *Session {
	now := time.Now()
	return &Session{ID: id, State: StateIdle, CreatedAt: now, UpdatedAt: now}
}

// Reset returns the session to idle and clears all slots. History is kept:
// it seeds free-form generation across transactions.
func (s *Session) Reset() {
	s.State = StateIdle
	s.Slots = Slots{}
	s.UpdatedAt = time.Now()
}

// Append records a turn at the end of the history.
func (s *Session) Append(role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content, CreatedAt: time.Now()})
	s.UpdatedAt = time.Now()
}
