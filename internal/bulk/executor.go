// Package bulk drives multi-target operations through an active connection
// with deliberate, randomized pacing.
package bulk

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wafleet/wafleet/internal/bus"
	"github.com/wafleet/wafleet/internal/config"
	"github.com/wafleet/wafleet/internal/fault"
	"github.com/wafleet/wafleet/internal/store"
	"github.com/wafleet/wafleet/internal/transport"
	"go.uber.org/zap"
)

// errNoLastMessage is the per-item failure recorded when a clear/archive
// target has no usable last-message pointer.
var errNoLastMessage = errors.New("no valid last message info")

// HandleSource yields the transport handle for a connected session. The
// lifecycle manager implements it.
type HandleSource interface {
	ConnectedHandle(sessionID string) (transport.Handle, error)
}

// Result is the per-target outcome of a bulk run, in input order.
type Result struct {
	Target    string
	Success   bool
	MessageID string
	Error     string
}

// Outcome aggregates a bulk run. Success is true iff at least one target
// succeeded.
type Outcome struct {
	RunID   string
	Success bool
	Results []Result
}

// Executor runs bulk operations sequentially, never in parallel, to keep the
// traffic shape human.
type Executor struct {
	conns  HandleSource
	db     *store.DB
	cfg    config.BulkConfig
	bus    *bus.Bus
	logger *zap.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// NewExecutor creates a bulk executor.
func NewExecutor(conns HandleSource, db *store.DB, cfg config.BulkConfig, b *bus.Bus, logger *zap.Logger) *Executor {
	return &Executor{
		conns:  conns,
		db:     db,
		cfg:    cfg,
		bus:    b,
		logger: logger,
		sleep:  time.Sleep,
	}
}

// Send delivers the same text to every target, one at a time.
func (ex *Executor) Send(ctx context.Context, sessionID string, targets []string, text string) (*Outcome, error) {
	return ex.run(ctx, sessionID, "send", targets, func(ctx context.Context, h transport.Handle, target string) (string, error) {
		if !strings.Contains(target, "@") {
			return "", fault.Validation("malformed target %q", target)
		}
		msgID, err := h.SendText(ctx, target, text)
		if err != nil {
			return "", fault.Transport("send", err)
		}
		return msgID, nil
	})
}

// Clear deletes each target chat's content locally and archives it. The
// chat-modify calls reference the stored last-message pointer; a target
// without one is recorded as failed with no transport call at all.
func (ex *Executor) Clear(ctx context.Context, sessionID string, targets []string) (*Outcome, error) {
	return ex.run(ctx, sessionID, "clear", targets, func(ctx context.Context, h transport.Handle, target string) (string, error) {
		if !strings.HasSuffix(target, "@g.us") {
			return "", fault.Validation("malformed group target %q", target)
		}
		chat, err := ex.db.GetChat(sessionID, target)
		if err != nil {
			return "", err
		}
		if chat == nil {
			return "", errNoLastMessage
		}
		ref := transport.MessageRef{
			ID:        chat.LastMsgID,
			Sender:    chat.LastMsgSender,
			FromMe:    chat.LastMsgFromMe,
			Timestamp: chat.LastMsgAt,
		}
		if !ref.Valid() {
			return "", errNoLastMessage
		}

		if err := h.DeleteMessageForMe(ctx, target, ref); err != nil {
			return "", fault.Transport("delete", err)
		}
		// Brief gap between the paired calls, same burst-shape concern as
		// the inter-target delay.
		ex.sleep(randDur(300, 800))
		if err := h.Archive(ctx, target, true, ref); err != nil {
			return "", fault.Transport("archive", err)
		}
		return "", nil
	})
}

// run is the shared sequential loop: per-target action, per-item result
// capture, randomized pacing, durable result record.
func (ex *Executor) run(ctx context.Context, sessionID, kind string, targets []string, action func(context.Context, transport.Handle, string) (string, error)) (*Outcome, error) {
	h, err := ex.conns.ConnectedHandle(sessionID)
	if err != nil {
		return nil, err
	}

	out := &Outcome{RunID: uuid.NewString(), Results: make([]Result, 0, len(targets))}
	for i, target := range targets {
		if ctx.Err() != nil {
			out.Results = append(out.Results, Result{Target: target, Error: ctx.Err().Error()})
			continue
		}
		if i > 0 {
			ex.pace(i)
		}

		msgID, err := action(ctx, h, target)
		if err != nil {
			// Failures never abort the batch.
			ex.logger.Warn("bulk target failed",
				zap.String("session", sessionID), zap.String("kind", kind),
				zap.String("target", target), zap.Error(err))
			out.Results = append(out.Results, Result{Target: target, Error: err.Error()})
			continue
		}
		out.Results = append(out.Results, Result{Target: target, Success: true, MessageID: msgID})
		out.Success = true
	}

	ex.record(sessionID, kind, out)
	ex.bus.Emit("bulk.completed", sessionID, map[string]any{
		"run_id":  out.RunID,
		"kind":    kind,
		"total":   len(out.Results),
		"success": out.Success,
	})
	return out, nil
}

// pace sleeps the randomized inter-target delay, stretching to the long
// pause after every batch of targets.
func (ex *Executor) pace(processed int) {
	if ex.cfg.BatchSize > 0 && processed%ex.cfg.BatchSize == 0 {
		ex.sleep(randDur(ex.cfg.BatchPauseMinMS, ex.cfg.BatchPauseMaxMS))
		return
	}
	ex.sleep(randDur(ex.cfg.MinDelayMS, ex.cfg.MaxDelayMS))
}

// record persists the run and its items. Failure is logged, not surfaced;
// the caller still gets the in-memory outcome.
func (ex *Executor) record(sessionID, kind string, out *Outcome) {
	succeeded := 0
	items := make([]store.BulkItem, len(out.Results))
	for i, r := range out.Results {
		if r.Success {
			succeeded++
		}
		items[i] = store.BulkItem{
			Position:  i,
			Target:    r.Target,
			Success:   r.Success,
			MessageID: r.MessageID,
			Error:     r.Error,
		}
	}
	run := &store.BulkRun{
		ID:        out.RunID,
		SessionID: sessionID,
		Kind:      kind,
		Total:     len(out.Results),
		Succeeded: succeeded,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := ex.db.InsertBulkRun(run, items); err != nil {
		ex.logger.Warn("failed to record bulk run",
			zap.String("session", sessionID), zap.String("run", out.RunID), zap.Error(err))
	}
}

func randDur(minMS, maxMS int) time.Duration {
	if maxMS <= minMS {
		return time.Duration(minMS) * time.Millisecond
	}
	return time.Duration(minMS+rand.IntN(maxMS-minMS+1)) * time.Millisecond
}
