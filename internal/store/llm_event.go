package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const llmEventsTable = "llm_request_events"

// eventRepo implements EventRepo backed by the sequence counter.
type eventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	q, args := builder().Insert(llmEventsTable).
		Columns("sequence", "provider", "model", "purpose", "input_tokens", "output_tokens",
			"latency_ms", "success", "error_message", "created_at").
		Values(seqNum, data.Provider, data.Model, data.Purpose, data.InputTokens, data.OutputTokens,
			data.LatencyMs, data.Success, data.ErrorMessage, time.Now().UnixMilli()).
		Query()
	if err := r.drv.Exec(ctx, q, args, nil); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

func (r *eventRepo) RecentLLMRequests(ctx context.Context, limit int) ([]LLMRequestEvent, error) {
	sel := builder().Select("sequence", "provider", "model", "purpose", "input_tokens", "output_tokens",
		"latency_ms", "success", "error_message", "created_at").
		From(builder().Table(llmEventsTable)).
		OrderBy(entsql.Desc("sequence"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	q, args := sel.Query()

	var out []LLMRequestEvent
	err := queryRows(ctx, r.drv, q, args, func(rows *entsql.Rows) error {
		var (
			ev        LLMRequestEvent
			createdAt int64
		)
		if err := rows.Scan(&ev.Sequence, &ev.Provider, &ev.Model, &ev.Purpose, &ev.InputTokens,
			&ev.OutputTokens, &ev.LatencyMs, &ev.Success, &ev.ErrorMessage, &createdAt); err != nil {
			return err
		}
		ev.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, ev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query LLM request events: %w", err)
	}
	return out, nil
}
