// Package columns decides which cell index of a parsed deposit row holds the
// date, the amount and the payer name.
//
// The resolver always has an answer: a static default layout covers the
// common export format, and an optional inference collaborator may propose a
// different layout once per run. The collaborator is untrusted: its
// candidate is used only after structural validation, and any failure falls
// back to the default silently.
package columns

import (
	"context"

	"remittance-reconciliation-service/internal/models"
	"remittance-reconciliation-service/pkg/logger"
)

// SampleSize is the maximum number of rows offered to the inference
// collaborator.
const SampleSize = 5

// minSampleCells filters out rows too narrow to carry all three roles.
const minSampleCells = 3

// Inferrer is the capability interface for the external column-inference
// service. Implementations must be safe to call once per run.
type Inferrer interface {
	InferColumns(ctx context.Context, sample [][]string) (models.ColumnMap, error)
}

// Resolver produces the ColumnMap for a run.
type Resolver struct {
	inferrer Inferrer
	logger   logger.Logger
}

// NewResolver creates a Resolver. A nil inferrer disables inference and the
// default layout is always used.
func NewResolver(inferrer Inferrer) *Resolver {
	return &Resolver{
		inferrer: inferrer,
		logger:   logger.GetGlobalLogger().WithComponent("column_resolver"),
	}
}

// Resolve returns the column layout for the given rows. Called at most once
// per run, never per row.
func (r *Resolver) Resolve(ctx context.Context, rows [][]string) models.ColumnMap {
	fallback := models.DefaultColumnMap()

	if r.inferrer == nil {
		return fallback
	}

	sample := SampleRows(rows)
	if len(sample) == 0 {
		r.logger.Debug("no usable sample rows, using default column map")
		return fallback
	}

	candidate, err := r.inferrer.InferColumns(ctx, sample)
	if err != nil {
		r.logger.WithError(err).Warn("column inference failed, using default column map")
		return fallback
	}

	if err := candidate.Validate(); err != nil {
		r.logger.WithError(err).Warn("inferred column map is structurally invalid, using default")
		return fallback
	}

	if !fitsSample(candidate, sample) {
		r.logger.WithFields(logger.Fields{
			"candidate": candidate,
		}).Warn("inferred column map exceeds sampled row width, using default")
		return fallback
	}

	r.logger.WithField("column_map", candidate).Info("using inferred column map")
	return candidate
}

// SampleRows returns the rows among the first SampleSize that are wide
// enough to be informative for inference. Narrow rows inside the window
// shrink the sample rather than extend the scan.
func SampleRows(rows [][]string) [][]string {
	window := rows
	if len(window) > SampleSize {
		window = window[:SampleSize]
	}

	var sample [][]string
	for _, row := range window {
		if len(row) < minSampleCells {
			continue
		}
		sample = append(sample, row)
	}
	return sample
}

// fitsSample reports whether every sampled row carries all mapped cells.
func fitsSample(m models.ColumnMap, sample [][]string) bool {
	for _, row := range sample {
		if !m.FitsRow(len(row)) {
			return false
		}
	}
	return true
}
