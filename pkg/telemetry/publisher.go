// Package telemetry broadcasts phase completions to external listeners
// via PostgreSQL NOTIFY, so a dashboard or log shipper can observe a
// run's progress in real time without polling the manifest store. It
// never feeds a notification back into pipeline computation.
package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/policypipeline/pkg/contract"
)

// RunChannel returns the NOTIFY channel name for a given run_id.
func RunChannel(runID string) string {
	return "policyeval_run_" + runID
}

// phaseEvent is the NOTIFY payload shape for one completed phase.
type phaseEvent struct {
	RunID      string `json:"run_id"`
	PhaseIndex int    `json:"phase_index"`
	PhaseName  string `json:"phase_name"`
	Succeeded  bool   `json:"succeeded"`
	DurationMS int64  `json:"duration_ms"`
}

// terminalEvent is the NOTIFY payload marking the end of a run's phase
// stream, so a listener knows no further phaseEvents are coming without
// having to infer it from the manifest's phase count.
type terminalEvent struct {
	RunID         string `json:"run_id"`
	Terminal      bool   `json:"terminal"`
	OverallStatus string `json:"overall_status"`
}

// Publisher broadcasts PhaseRecord completions via pg_notify.
type Publisher struct {
	db *sql.DB
}

// NewPublisher wraps db, typically the *sql.DB from manifeststore.Client.DB().
func NewPublisher(db *sql.DB) *Publisher {
	return &Publisher{db: db}
}

// PublishPhase broadcasts rec to the run's channel.
func (p *Publisher) PublishPhase(ctx context.Context, runID string, rec contract.PhaseRecord) error {
	payload, err := json.Marshal(phaseEvent{
		RunID:      runID,
		PhaseIndex: rec.PhaseIndex,
		PhaseName:  rec.PhaseName,
		Succeeded:  rec.Succeeded(),
		DurationMS: rec.DurationMS,
	})
	if err != nil {
		return fmt.Errorf("telemetry: marshal phase event: %w", err)
	}

	_, err = p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", RunChannel(runID), string(payload))
	if err != nil {
		return fmt.Errorf("telemetry: pg_notify failed: %w", err)
	}
	return nil
}

// PublishManifest broadcasts every phase in manifest, in order, plus a
// final terminal marker on the run's channel.
func (p *Publisher) PublishManifest(ctx context.Context, manifest *contract.Manifest) error {
	for _, rec := range manifest.Phases {
		if err := p.PublishPhase(ctx, manifest.RunID, rec); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(terminalEvent{
		RunID:         manifest.RunID,
		Terminal:      true,
		OverallStatus: string(manifest.OverallStatus),
	})
	if err != nil {
		return fmt.Errorf("telemetry: marshal terminal event: %w", err)
	}

	_, err = p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", RunChannel(manifest.RunID), string(payload))
	if err != nil {
		return fmt.Errorf("telemetry: pg_notify terminal marker failed: %w", err)
	}
	return nil
}
