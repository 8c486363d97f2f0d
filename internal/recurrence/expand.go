package recurrence

import (
	"sort"
	"strings"
	"time"
)

// SkippedRule reporta una regla descartada completa, con motivo.
// Una regla malformada nunca bloquea la expansión de las demás.
type SkippedRule struct {
	RuleID string
	Reason string
}

// SkippedCandidate reporta un candidato individual excluido por validación.
type SkippedCandidate struct {
	RuleID     string
	TimeOfDay  string
	PayloadRef string
	Reason     string
}

// Result es la salida de Expand: candidatos válidos más el detalle de lo que
// quedó afuera. DuplicatesSuppressed no es un error, solo un contador útil
// para logging/métricas del caller.
type Result struct {
	Candidates           []Occurrence
	SkippedRules         []SkippedRule
	SkippedCandidates    []SkippedCandidate
	DuplicatesSuppressed int
}

// Expand materializa las reglas para una única fecha calendario.
//
// Es una función pura: mismos inputs, misma salida, en el mismo orden.
// No asigna IDs (eso rompería el determinismo); quien persiste decide el ID.
// Deduplica contra `existing` por la tupla (ruleID, date, timeOfDay, payloadRef),
// así que re-ejecutarla con su propia salida como existing devuelve vacío.
// Callers que quieran un rango invocan una vez por fecha.
func Expand(rules []Rule, targetDate time.Time, existing []Occurrence) Result {
	res := Result{Candidates: make([]Occurrence, 0)}

	seen := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		seen[o.Key()] = struct{}{}
	}

	for _, r := range rules {
		if !r.Active {
			continue // inactiva: no genera, pero tampoco es un error
		}
		if err := r.Validate(); err != nil {
			res.SkippedRules = append(res.SkippedRules, SkippedRule{
				RuleID: r.ID,
				Reason: err.Error(),
			})
			continue
		}
		if !r.appliesOn(targetDate) {
			continue
		}

		for _, e := range r.Entries {
			cand := Occurrence{
				RuleID:     r.ID,
				SubjectID:  r.SubjectID,
				Date:       targetDate,
				TimeOfDay:  e.TimeOfDay,
				Label:      e.Label,
				PayloadRef: e.PayloadRef,
				Quantity:   e.Quantity,
				Status:     StatusScheduled,
			}

			if _, dup := seen[cand.Key()]; dup {
				res.DuplicatesSuppressed++
				continue
			}

			// Validación por candidato: se excluye con motivo, no se pierde en silencio.
			if strings.TrimSpace(cand.PayloadRef) == "" {
				res.SkippedCandidates = append(res.SkippedCandidates, SkippedCandidate{
					RuleID:    r.ID,
					TimeOfDay: e.TimeOfDay,
					Reason:    "payload_ref vacío",
				})
				continue
			}
			if cand.Quantity <= 0 {
				res.SkippedCandidates = append(res.SkippedCandidates, SkippedCandidate{
					RuleID:     r.ID,
					TimeOfDay:  e.TimeOfDay,
					PayloadRef: e.PayloadRef,
					Reason:     "quantity debe ser > 0",
				})
				continue
			}

			seen[cand.Key()] = struct{}{} // también dedup dentro del mismo batch
			res.Candidates = append(res.Candidates, cand)
		}
	}

	// Orden ascendente por hora; empates conservan orden de regla y de entrada
	// (sort estable sobre el orden de generación).
	sort.SliceStable(res.Candidates, func(i, j int) bool {
		return res.Candidates[i].TimeOfDay < res.Candidates[j].TimeOfDay
	})

	return res
}
