package cron

import (
	"context"
	"fmt"

	"github.com/soledrop/soledrop-backend/internal/catalog"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

type recounter interface {
	Recount(ctx context.Context) (*catalog.RecountResult, error)
}

// NewRecountJob rebuilds the denormalised catalog counters from the rows.
// Counters drift only through bugs or manual SQL, so any correction is logged
// as a warning.
func NewRecountJob(svc recounter, logg *logger.Logger) (Job, error) {
	if svc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &recountJob{svc: svc, logg: logg}, nil
}

type recountJob struct {
	svc  recounter
	logg *logger.Logger
}

func (j *recountJob) Name() string { return "counter-recount" }

func (j *recountJob) Run(ctx context.Context) error {
	result, err := j.svc.Recount(ctx)
	if err != nil {
		return fmt.Errorf("recount: %w", err)
	}
	fields := map[string]any{"rows_fixed": result.Total}
	for name, n := range result.Fixed {
		fields["fixed_"+name] = n
	}
	logCtx := j.logg.WithFields(ctx, fields)
	if result.Total > 0 {
		j.logg.Warn(logCtx, "catalog counters had drifted and were corrected")
		return nil
	}
	j.logg.Info(logCtx, "catalog counters consistent")
	return nil
}
