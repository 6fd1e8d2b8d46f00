// models/report.go
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItemStatus classifies the outcome of processing one pipeline item (a file,
// a dataset, a fact) so a run can be summarised without grepping logs.
type ItemStatus string

const (
	ItemSuccess ItemStatus = "success"
	ItemSkipped ItemStatus = "skipped"
	ItemFailed  ItemStatus = "failed"
)

// ItemResult records the outcome for a single item within a stage.
type ItemResult struct {
	Name   string
	Status ItemStatus
	Rows   int
	Reason string
}

// RunReport aggregates per-item results for one stage of a pipeline run.
type RunReport struct {
	RunID      string
	Stage      string
	StartedAt  time.Time
	FinishedAt time.Time
	Items      []ItemResult
}

func NewRunReport(stage string) *RunReport {
	return &RunReport{
		RunID:     uuid.NewString(),
		Stage:     stage,
		StartedAt: time.Now().UTC(),
	}
}

func (r *RunReport) Success(name string, rows int) {
	r.Items = append(r.Items, ItemResult{Name: name, Status: ItemSuccess, Rows: rows})
}

func (r *RunReport) Skip(name, reason string) {
	r.Items = append(r.Items, ItemResult{Name: name, Status: ItemSkipped, Reason: reason})
}

func (r *RunReport) Fail(name string, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	r.Items = append(r.Items, ItemResult{Name: name, Status: ItemFailed, Reason: reason})
}

func (r *RunReport) Finish() {
	r.FinishedAt = time.Now().UTC()
}

// Counts returns the number of successful, skipped, and failed items.
func (r *RunReport) Counts() (ok, skipped, failed int) {
	for _, item := range r.Items {
		switch item.Status {
		case ItemSuccess:
			ok++
		case ItemSkipped:
			skipped++
		case ItemFailed:
			failed++
		}
	}
	return
}

// Summary renders a one-line end-of-run summary for the stage.
func (r *RunReport) Summary() string {
	ok, skipped, failed := r.Counts()
	rows := 0
	for _, item := range r.Items {
		rows += item.Rows
	}
	return fmt.Sprintf("stage=%s run=%s ok=%d skipped=%d failed=%d rows=%d",
		r.Stage, r.RunID, ok, skipped, failed, rows)
}
