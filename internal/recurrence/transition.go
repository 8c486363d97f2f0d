package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Action es la transición solicitada sobre una ocurrencia.
type Action string

const (
	ActionComplete Action = "complete"
	ActionSkip     Action = "skip"
	ActionModify   Action = "modify"
)

// TransitionInput agrupa el payload opcional de una transición.
// Reason aplica a Skip; Quantity/PayloadRef aplican a Modify (cero/vacío = no tocar).
type TransitionInput struct {
	Reason     string
	Quantity   float64
	PayloadRef string
}

// Transition aplica la máquina de estados de una ocurrencia:
//
//	scheduled -> completed | skipped | modified
//
// Los tres destinos son terminales: intentar otra transición sobre ellos
// devuelve ErrInvalidTransition y no muta nada. La persistencia es
// responsabilidad del caller; acá solo se devuelve el registro actualizado.
func Transition(occ Occurrence, action Action, in TransitionInput, now time.Time) (Occurrence, error) {
	if occ.Status.Terminal() {
		return occ, fmt.Errorf("%w: la ocurrencia ya está %s", ErrInvalidTransition, occ.Status)
	}
	if occ.Status != StatusScheduled {
		return occ, fmt.Errorf("%w: estado desconocido %q", ErrInvalidTransition, occ.Status)
	}

	switch action {
	case ActionComplete:
		ts := now
		occ.Status = StatusCompleted
		occ.CompletedAt = &ts
		return occ, nil

	case ActionSkip:
		occ.Status = StatusSkipped
		occ.SkipReason = strings.TrimSpace(in.Reason)
		return occ, nil

	case ActionModify:
		if in.Quantity < 0 {
			return occ, fmt.Errorf("%w: quantity no puede ser negativa", ErrInvalidTransition)
		}
		if in.Quantity > 0 {
			occ.Quantity = in.Quantity
		}
		if ref := strings.TrimSpace(in.PayloadRef); ref != "" {
			occ.PayloadRef = ref
		}
		occ.Status = StatusModified
		return occ, nil

	default:
		return occ, fmt.Errorf("%w: acción desconocida %q", ErrInvalidTransition, action)
	}
}
