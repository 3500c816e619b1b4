package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/chronicle/pkg/prompts"
	"github.com/jwebster45206/chronicle/pkg/state"
)

// Summary scheduling thresholds.
const (
	SummaryInitialEntries = 10
	SummaryNewEntries     = 5
	SummaryMinInterval    = 15 * time.Minute
)

type summaryJob struct {
	cancel context.CancelFunc
}

// shouldSummarize decides whether a memory summary is due after a turn.
func (e *Engine) shouldSummarize(gs *state.GameState, historyLen int, force bool) bool {
	if force {
		return true
	}
	if gs.MemorySummary == nil {
		return historyLen >= SummaryInitialEntries
	}
	if historyLen-gs.LastSummarizedHistoryLength < SummaryNewEntries {
		return false
	}
	return e.now().Sub(gs.SummaryUpdatedAt) > SummaryMinInterval
}

// scheduleSummary regenerates the memory summary in the background from a
// snapshot of the session. A newer job for the same session cancels the
// older one. The result is written to the memory record only.
func (e *Engine) scheduleSummary(sess *state.Session, pcName string) {
	if e.oracle == nil {
		return
	}
	id := sess.ID
	history := make([]state.HistoryEntry, len(sess.History))
	copy(history, sess.History)
	var previous *string
	if sess.GameState.MemorySummary != nil {
		p := *sess.GameState.MemorySummary
		previous = &p
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.oracleTimeout)
	job := &summaryJob{cancel: cancel}

	e.summaryMu.Lock()
	if prev, ok := e.summaryJobs[id]; ok {
		prev.cancel()
	}
	e.summaryJobs[id] = job
	e.summaryMu.Unlock()

	e.summaryWG.Add(1)
	go func() {
		defer e.summaryWG.Done()
		defer e.finishSummary(id, job)

		if err := e.summarize(ctx, id, previous, history, pcName); err != nil {
			e.logger.Warn("memory summary failed", "session_id", id, "error", err)
		}
	}()
}

func (e *Engine) summarize(ctx context.Context, id uuid.UUID, previous *string, history []state.HistoryEntry, pcName string) error {
	ctx, span := e.tracer.Start(ctx, "memory.summarize")
	defer span.End()

	text, err := e.oracle.Summarize(ctx, prompts.SummarySystemPrompt, prompts.SummaryPrompt(previous, history, pcName))
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	mem := &state.Memory{
		Summary:                     text,
		LastSummarizedHistoryLength: len(history),
		UpdatedAt:                   e.now().UTC(),
	}
	if err := e.store.SaveMemory(ctx, id, mem); err != nil {
		recordSpanError(span, err)
		return err
	}
	e.logger.Debug("memory summary saved", "session_id", id, "history_len", len(history))
	return nil
}

func (e *Engine) finishSummary(id uuid.UUID, job *summaryJob) {
	job.cancel()
	e.summaryMu.Lock()
	defer e.summaryMu.Unlock()
	if e.summaryJobs[id] == job {
		delete(e.summaryJobs, id)
	}
}

func (e *Engine) cancelSummary(id uuid.UUID) {
	e.summaryMu.Lock()
	defer e.summaryMu.Unlock()
	if job, ok := e.summaryJobs[id]; ok {
		job.cancel()
		delete(e.summaryJobs, id)
	}
}

// CancelSummaries stops every pending summary job.
func (e *Engine) CancelSummaries() {
	e.summaryMu.Lock()
	defer e.summaryMu.Unlock()
	for id, job := range e.summaryJobs {
		job.cancel()
		delete(e.summaryJobs, id)
	}
}
