// Package workflow holds the status machines of requêtes and dossiers.
//
// A machine validates that a status string belongs to the entity's set and
// that moving from the current status to the requested one follows the
// transition graph. Side effects (audit entry, notification) are applied by
// the service layer from the Change a machine returns.
package workflow

import (
	"fmt"

	"github.com/lalith-99/unionline/internal/apperr"
	"github.com/lalith-99/unionline/internal/models"
)

// Machine is a status set plus its allowed moves.
type Machine[S ~string] struct {
	kind models.EntityKind
	next map[S][]S
}

// Change is the outcome of planning a status update.
type Change[S ~string] struct {
	From    S
	To      S
	Changed bool
}

// Valid reports whether raw names a status of this machine.
func (m Machine[S]) Valid(raw string) bool {
	_, ok := m.next[S(raw)]
	return ok
}

// Parse validates raw and converts it.
func (m Machine[S]) Parse(raw string) (S, error) {
	if raw == "" {
		return "", apperr.Invalid("status", "required")
	}
	if !m.Valid(raw) {
		return "", apperr.Invalid("status", fmt.Sprintf("unknown %s status %q", m.kind, raw))
	}
	return S(raw), nil
}

// CheckTransition accepts staying put and any edge of the graph.
func (m Machine[S]) CheckTransition(from, to S) error {
	if from == to {
		return nil
	}
	for _, s := range m.next[from] {
		if s == to {
			return nil
		}
	}
	return apperr.Invalid("status", fmt.Sprintf("%s cannot move from %q to %q", m.kind, from, to))
}

// Plan validates raw against the set and, unless force is set, against the
// graph. Forced moves (dedicated actions such as transmit-to-bureau) still
// require a known target status.
func (m Machine[S]) Plan(from S, raw string, force bool) (Change[S], error) {
	to, err := m.Parse(raw)
	if err != nil {
		return Change[S]{}, err
	}
	if !force {
		if err := m.CheckTransition(from, to); err != nil {
			return Change[S]{}, err
		}
	}
	return Change[S]{From: from, To: to, Changed: from != to}, nil
}

// RequeteMachine: new → info_needed|processing → hr_escalated|hr_pending →
// resolved → closed, with shortcuts to resolved/closed from any open state
// and a reopen edge from resolved back to processing. closed is terminal.
var RequeteMachine = Machine[models.RequeteStatus]{
	kind: models.KindRequete,
	next: map[models.RequeteStatus][]models.RequeteStatus{
		models.RequeteNew: {
			models.RequeteInfoNeeded, models.RequeteProcessing,
			models.RequeteResolved, models.RequeteClosed,
		},
		models.RequeteInfoNeeded: {
			models.RequeteProcessing, models.RequeteResolved, models.RequeteClosed,
		},
		models.RequeteProcessing: {
			models.RequeteInfoNeeded, models.RequeteHREscalated, models.RequeteHRPending,
			models.RequeteResolved, models.RequeteClosed,
		},
		models.RequeteHREscalated: {
			models.RequeteHRPending, models.RequeteProcessing,
			models.RequeteResolved, models.RequeteClosed,
		},
		models.RequeteHRPending: {
			models.RequeteHREscalated, models.RequeteProcessing,
			models.RequeteResolved, models.RequeteClosed,
		},
		models.RequeteResolved: {
			models.RequeteProcessing, models.RequeteClosed,
		},
		models.RequeteClosed: nil,
	},
}

// DossierMachine: open → in_instruction → awaiting_meeting →
// transmitted_to_bureau → closed → archived. Instruction and meeting may
// alternate, any active state may close, and archived is terminal.
var DossierMachine = Machine[models.DossierStatus]{
	kind: models.KindDossier,
	next: map[models.DossierStatus][]models.DossierStatus{
		models.DossierOpen: {
			models.DossierInInstruction, models.DossierClosed,
		},
		models.DossierInInstruction: {
			models.DossierAwaitingMeeting, models.DossierTransmittedToBureau, models.DossierClosed,
		},
		models.DossierAwaitingMeeting: {
			models.DossierInInstruction, models.DossierTransmittedToBureau, models.DossierClosed,
		},
		models.DossierTransmittedToBureau: {
			models.DossierInInstruction, models.DossierClosed,
		},
		models.DossierClosed: {
			models.DossierArchived, models.DossierInInstruction,
		},
		models.DossierArchived: nil,
	},
}
