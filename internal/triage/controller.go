package triage

import (
	"errors"
	"sync"

	"github.com/Sole248k/CloudShield/internal/models"
)

// Mode is the state of the single live triage session.
type Mode string

const (
	ModeClosed  Mode = "closed"
	ModeViewing Mode = "viewing"
	ModeActing  Mode = "acting_on_anomaly"
)

// ActionKind names a remediation choice for a flagged anomaly.
type ActionKind string

const (
	ActionFlagInvestigate   ActionKind = "flag_investigate"
	ActionMarkBenign        ActionKind = "mark_benign"
	ActionEscalate          ActionKind = "escalate"
	ActionMarkFalsePositive ActionKind = "mark_false_positive"
)

// Confirmation copy shown after an action is chosen. Choosing an action is
// advisory: it acknowledges the operator's decision, nothing else. In a
// full deployment the choice would also dispatch to a ticketing or
// alerting integration.
var actionFeedback = map[ActionKind]string{
	ActionFlagInvestigate:   "Email sent to DevOps for review.",
	ActionMarkBenign:        "Marked as benign in system.",
	ActionEscalate:          "Alert escalated to Security Operations Center.",
	ActionMarkFalsePositive: "Log marked as False Positive.",
}

var (
	// ErrNotActing rejects anomaly-only operations outside the action modal.
	ErrNotActing = errors.New("no anomaly action session open")
	// ErrUnknownAction rejects action kinds outside the fixed set.
	ErrUnknownAction = errors.New("unknown triage action")
)

// Session is a consistent snapshot of the triage state for the view layer.
// Feedback is never populated while the session is closed.
type Session struct {
	Mode            Mode              `json:"mode"`
	RecordIndex     int               `json:"record_index"`
	Record          *models.LogRecord `json:"record,omitempty"`
	DetailsExpanded bool              `json:"details_expanded"`
	Feedback        string            `json:"feedback,omitempty"`
}

// Controller is the per-record inspection state machine. One live session
// at a time: opening a record tears down whatever was open before.
type Controller struct {
	mu              sync.Mutex
	mode            Mode
	recordIndex     int
	record          *models.LogRecord
	detailsExpanded bool
	feedback        string
}

// NewController starts in the closed state.
func NewController() *Controller {
	return &Controller{mode: ModeClosed, recordIndex: -1}
}

// OpenRecord starts a session for the record: a flagged anomaly opens the
// action modal, everything else opens read-only viewing. Prior feedback
// and detail expansion are always discarded.
func (c *Controller) OpenRecord(index int, record models.LogRecord) Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = ModeViewing
	if record.IsAnomaly() {
		c.mode = ModeActing
	}
	c.recordIndex = index
	c.record = &record
	c.detailsExpanded = false
	c.feedback = ""
	return c.snapshotLocked()
}

// ChooseAction records the operator's remediation choice. Valid only while
// the action modal is open; the modal stays open so a different action can
// still be chosen.
func (c *Controller) ChooseAction(kind ActionKind) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeActing {
		return c.snapshotLocked(), ErrNotActing
	}
	feedback, ok := actionFeedback[kind]
	if !ok {
		return c.snapshotLocked(), ErrUnknownAction
	}
	c.feedback = feedback
	return c.snapshotLocked(), nil
}

// ToggleDetails flips the detail panel in the action modal. Viewing mode
// always shows details, so the call is a no-op there.
func (c *Controller) ToggleDetails() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeActing {
		c.detailsExpanded = !c.detailsExpanded
	}
	return c.snapshotLocked()
}

// DismissFeedback clears the confirmation message without closing the modal.
func (c *Controller) DismissFeedback() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.feedback = ""
	return c.snapshotLocked()
}

// Close tears the session down from any state.
func (c *Controller) Close() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = ModeClosed
	c.recordIndex = -1
	c.record = nil
	c.detailsExpanded = false
	c.feedback = ""
	return c.snapshotLocked()
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Session {
	session := Session{
		Mode:        c.mode,
		RecordIndex: c.recordIndex,
		// Viewing mode has no collapsed state: details are always shown.
		DetailsExpanded: c.detailsExpanded || c.mode == ModeViewing,
		Feedback:        c.feedback,
	}
	if c.record != nil {
		rec := *c.record
		session.Record = &rec
	}
	if c.mode == ModeClosed {
		session.DetailsExpanded = false
		session.Feedback = ""
	}
	return session
}
