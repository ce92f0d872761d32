package triage

import (
	"errors"
	"testing"

	"github.com/Sole248k/CloudShield/internal/models"
)

func recordWithPrediction(p int) models.LogRecord {
	var rec models.LogRecord
	rec.Set(models.FieldPrediction, p)
	rec.Set(models.FieldAnomalyScore, -0.12)
	return rec
}

func TestOpenRecordRouting(t *testing.T) {
	ctrl := NewController()

	session := ctrl.OpenRecord(0, recordWithPrediction(0))
	if session.Mode != ModeViewing {
		t.Fatalf("normal record must open viewing mode, got %s", session.Mode)
	}
	if !session.DetailsExpanded {
		t.Fatalf("viewing mode always shows details")
	}

	session = ctrl.OpenRecord(1, recordWithPrediction(1))
	if session.Mode != ModeActing {
		t.Fatalf("anomaly must open action mode, got %s", session.Mode)
	}
	if session.DetailsExpanded {
		t.Fatalf("action modal opens with details collapsed")
	}
	if session.RecordIndex != 1 || session.Record == nil {
		t.Fatalf("selected record not carried: %+v", session)
	}
}

func TestChooseActionKeepsModalOpen(t *testing.T) {
	ctrl := NewController()
	ctrl.OpenRecord(3, recordWithPrediction(1))

	session, err := ctrl.ChooseAction(ActionEscalate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Mode != ModeActing {
		t.Fatalf("choosing an action must not transition, got %s", session.Mode)
	}
	if session.Feedback != "Alert escalated to Security Operations Center." {
		t.Fatalf("unexpected feedback: %q", session.Feedback)
	}

	// A different action can still be chosen.
	session, err = ctrl.ChooseAction(ActionMarkBenign)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Feedback != "Marked as benign in system." {
		t.Fatalf("feedback not replaced: %q", session.Feedback)
	}
}

func TestChooseActionRejectedOutsideActing(t *testing.T) {
	ctrl := NewController()

	if _, err := ctrl.ChooseAction(ActionEscalate); !errors.Is(err, ErrNotActing) {
		t.Fatalf("expected ErrNotActing while closed, got %v", err)
	}

	ctrl.OpenRecord(0, recordWithPrediction(0))
	if _, err := ctrl.ChooseAction(ActionEscalate); !errors.Is(err, ErrNotActing) {
		t.Fatalf("expected ErrNotActing while viewing, got %v", err)
	}
}

func TestChooseActionUnknownKind(t *testing.T) {
	ctrl := NewController()
	ctrl.OpenRecord(0, recordWithPrediction(1))

	if _, err := ctrl.ChooseAction(ActionKind("purge")); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestToggleDetails(t *testing.T) {
	ctrl := NewController()
	ctrl.OpenRecord(0, recordWithPrediction(1))

	if session := ctrl.ToggleDetails(); !session.DetailsExpanded {
		t.Fatalf("expected details expanded after toggle")
	}
	if session := ctrl.ToggleDetails(); session.DetailsExpanded {
		t.Fatalf("expected details collapsed after second toggle")
	}

	ctrl.OpenRecord(1, recordWithPrediction(0))
	if session := ctrl.ToggleDetails(); !session.DetailsExpanded {
		t.Fatalf("toggle must be a no-op in viewing mode")
	}
}

func TestDismissFeedback(t *testing.T) {
	ctrl := NewController()
	ctrl.OpenRecord(0, recordWithPrediction(1))
	if _, err := ctrl.ChooseAction(ActionFlagInvestigate); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session := ctrl.DismissFeedback()
	if session.Feedback != "" {
		t.Fatalf("feedback not cleared: %q", session.Feedback)
	}
	if session.Mode != ModeActing {
		t.Fatalf("dismissing feedback must not close the modal, got %s", session.Mode)
	}
}

func TestCloseThenReopenResetsEverything(t *testing.T) {
	ctrl := NewController()

	ctrl.OpenRecord(0, recordWithPrediction(1))
	ctrl.ToggleDetails()
	if _, err := ctrl.ChooseAction(ActionMarkFalsePositive); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session := ctrl.Close()
	if session.Mode != ModeClosed || session.Record != nil || session.Feedback != "" || session.DetailsExpanded {
		t.Fatalf("close must reset the session: %+v", session)
	}

	session = ctrl.OpenRecord(1, recordWithPrediction(0))
	if session.Mode != ModeViewing {
		t.Fatalf("expected viewing mode, got %s", session.Mode)
	}
	if session.Feedback != "" {
		t.Fatalf("stale feedback leaked into new session: %q", session.Feedback)
	}
}

func TestOpenRecordReplacesLiveSession(t *testing.T) {
	ctrl := NewController()

	ctrl.OpenRecord(0, recordWithPrediction(1))
	if _, err := ctrl.ChooseAction(ActionEscalate); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session := ctrl.OpenRecord(5, recordWithPrediction(1))
	if session.Feedback != "" || session.DetailsExpanded {
		t.Fatalf("opening a record must discard prior transient state: %+v", session)
	}
	if session.RecordIndex != 5 {
		t.Fatalf("expected record index 5, got %d", session.RecordIndex)
	}
}
