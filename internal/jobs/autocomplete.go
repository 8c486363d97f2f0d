// Package jobs agrupa los procesos de fondo del servicio.
package jobs

import (
	"context"
	"time"

	"druma-petcare/internal/domain/feeding"
	"druma-petcare/internal/platform/logger"

	"github.com/jonboulle/clockwork"
)

// AutoComplete completa comidas programadas cuya hora ya pasó hace más de
// Delay. Corre en un ticker y se apaga cancelando el contexto.
type AutoComplete struct {
	feeding  *feeding.Service
	clock    clockwork.Clock
	log      logger.Logger
	delay    time.Duration
	interval time.Duration
}

func NewAutoComplete(feedingSvc *feeding.Service, clock clockwork.Clock, log logger.Logger, delay, interval time.Duration) *AutoComplete {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AutoComplete{
		feeding:  feedingSvc,
		clock:    clock,
		log:      log,
		delay:    delay,
		interval: interval,
	}
}

// Run bloquea hasta que el contexto se cancele. Cada tick completa lo
// vencido; un error de una pasada se loguea y no detiene el job.
func (j *AutoComplete) Run(ctx context.Context) {
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	j.log.Info("job de auto-completado iniciado", map[string]any{
		"delay":    j.delay.String(),
		"interval": j.interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			j.log.Info("job de auto-completado detenido", nil)
			return
		case <-ticker.Chan():
			j.tick(ctx)
		}
	}
}

func (j *AutoComplete) tick(ctx context.Context) {
	cutoff := j.clock.Now().Add(-j.delay)
	if _, err := j.feeding.CompleteOverdue(ctx, cutoff); err != nil {
		j.log.Error("pasada de auto-completado falló", map[string]any{"error": err.Error()})
	}
}
