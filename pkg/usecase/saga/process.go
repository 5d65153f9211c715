package saga

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/oracle"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
)

// ItemState is the terminal state of an item after processing
type ItemState string

const (
	// ItemSkipped means the source identifier was already absorbed
	ItemSkipped  ItemState = "skipped"
	ItemIgnored  ItemState = "ignored"
	ItemAppended ItemState = "appended"
	ItemCreated  ItemState = "created"
)

const maxIDAttempts = 16

// Outcome records what happened to one item. Err is set when handling was
// degraded; for appended and created items it is the persistence failure, and
// the in-memory state still holds the mutation.
type Outcome struct {
	SourceID string
	Title    string
	State    ItemState
	SagaID   model.SagaID
	Reason   string
	Err      error
}

// Result summarizes one batch
type Result struct {
	Date     string
	Outcomes []*Outcome
	Skipped  int
	Ignored  int
	Appended int
	Created  int
	// Failed counts outcomes carrying an error
	Failed int
}

func (r *Result) add(o *Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.State {
	case ItemSkipped:
		r.Skipped++
	case ItemIgnored:
		r.Ignored++
	case ItemAppended:
		r.Appended++
	case ItemCreated:
		r.Created++
	}
	if o.Err != nil {
		r.Failed++
	}
}

// Run loads the current saga set and processes briefing against it
func (u *UseCase) Run(ctx context.Context, briefing *model.Briefing) (*Result, *State, error) {
	state, err := u.LoadState(ctx)
	if err != nil {
		return nil, nil, err
	}
	logging.From(ctx).Info("saga state loaded",
		"sagas", len(state.Sagas),
		"active", len(state.Active),
		"indexed", state.Index.Len())

	result, err := u.Process(ctx, state, briefing)
	if err != nil {
		return nil, nil, err
	}
	return result, state, nil
}

// Process classifies each item of briefing in order and applies the decisions
// to state. Items are handled one at a time; a failure on one item never stops
// the batch.
func (u *UseCase) Process(ctx context.Context, state *State, briefing *model.Briefing) (*Result, error) {
	if state == nil {
		return nil, goerr.New("state is required")
	}
	if briefing == nil {
		return nil, goerr.New("briefing is required")
	}
	if u.oracle == nil {
		return nil, goerr.New("oracle is not configured")
	}

	logger := logging.From(ctx)
	result := &Result{Date: briefing.Date}

	for _, item := range briefing.Items {
		if item == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, goerr.Wrap(err, "batch interrupted", goerr.V("processed", len(result.Outcomes)))
		}

		outcome := u.processItem(ctx, state, item, briefing.Date)
		result.add(outcome)

		attrs := []any{
			"source_id", outcome.SourceID,
			"state", outcome.State,
		}
		if outcome.SagaID != "" {
			attrs = append(attrs, "saga_id", outcome.SagaID)
		}
		if outcome.Reason != "" {
			attrs = append(attrs, "reason", outcome.Reason)
		}
		if outcome.Err != nil {
			logger.Warn("item processed with error", append(attrs, "error", outcome.Err)...)
		} else {
			logger.Info("item processed", attrs...)
		}
	}

	logger.Info("batch processed",
		"date", result.Date,
		"skipped", result.Skipped,
		"ignored", result.Ignored,
		"appended", result.Appended,
		"created", result.Created,
		"failed", result.Failed)

	return result, nil
}

func (u *UseCase) processItem(ctx context.Context, state *State, item *model.Item, batchDate string) *Outcome {
	outcome := &Outcome{SourceID: item.SourceID, Title: item.Title}

	if item.SourceID == "" {
		outcome.State = ItemIgnored
		outcome.Reason = "item has no source id"
		return outcome
	}

	if state.Index.Contains(item.SourceID) {
		outcome.State = ItemSkipped
		return outcome
	}

	if u.filter != nil {
		ignore, reason, err := u.filter.Ignore(ctx, item)
		if err != nil {
			logging.From(ctx).Warn("ingest filter failed, routing item anyway", "source_id", item.SourceID, "error", err)
		} else if ignore {
			outcome.State = ItemIgnored
			outcome.Reason = "filtered: " + reason
			return outcome
		}
	}

	date := item.Date
	if date == "" {
		date = batchDate
	}

	decision, err := u.oracle.Route(ctx, item, state.Active)
	if err != nil {
		outcome.State = ItemIgnored
		outcome.Reason = "route unavailable"
		outcome.Err = err
		return outcome
	}

	switch d := decision.(type) {
	case oracle.Ignore:
		outcome.State = ItemIgnored
		outcome.Reason = d.Reason

	case oracle.Append:
		target := state.active(d.SagaID)
		if target == nil {
			logging.From(ctx).Warn("route referenced unknown saga, creating a new one",
				"source_id", item.SourceID, "saga_id", d.SagaID)
			outcome.Reason = "unknown saga id: " + string(d.SagaID)
			u.create(ctx, state, item, date, outcome)
			break
		}
		outcome.Reason = d.Reason
		u.appendTo(ctx, state, target, item, date, outcome)

	case oracle.Create:
		outcome.Reason = d.Reason
		u.create(ctx, state, item, date, outcome)

	default:
		outcome.State = ItemIgnored
		outcome.Reason = "unsupported decision"
	}

	return outcome
}

func (u *UseCase) appendTo(ctx context.Context, state *State, target *model.Saga, item *model.Item, date string, outcome *Outcome) {
	ev := u.buildEvent(ctx, item, date, model.CausalTagUpdate, nil)
	if err := target.Append(ev); err != nil {
		outcome.State = ItemIgnored
		outcome.Reason = "event rejected"
		outcome.Err = err
		return
	}

	state.Index.Add(item.SourceID)
	outcome.State = ItemAppended
	outcome.SagaID = target.ID

	if err := u.repo.PutSaga(ctx, target); err != nil {
		outcome.Err = goerr.Wrap(err, "failed to persist saga", goerr.V("saga_id", target.ID))
	}
}

func (u *UseCase) create(ctx context.Context, state *State, item *model.Item, date string, outcome *Outcome) {
	meta, err := u.oracle.NewSagaMetadata(ctx, item)
	if err != nil {
		outcome.State = ItemIgnored
		outcome.Reason = "saga metadata unavailable"
		outcome.Err = err
		return
	}
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		outcome.State = ItemIgnored
		outcome.Reason = "saga metadata has no title"
		return
	}

	id, err := u.uniqueID(state)
	if err != nil {
		outcome.State = ItemIgnored
		outcome.Reason = "no saga id available"
		outcome.Err = err
		return
	}

	ev := u.buildEvent(ctx, item, date, model.CausalTagInception, meta)
	saga := &model.Saga{
		ID:             id,
		Title:          title,
		Category:       meta.Category,
		Status:         model.SagaStatusActive,
		ContextSummary: meta.ContextSummary,
		LastUpdated:    date,
	}
	if saga.Category == "" {
		saga.Category = model.CategoryGeneral
	}
	if err := saga.Append(ev); err != nil {
		outcome.State = ItemIgnored
		outcome.Reason = "event rejected"
		outcome.Err = err
		return
	}

	state.add(saga)
	state.Index.Add(item.SourceID)
	outcome.State = ItemCreated
	outcome.SagaID = saga.ID

	if err := u.repo.PutSaga(ctx, saga); err != nil {
		outcome.Err = goerr.Wrap(err, "failed to persist saga", goerr.V("saga_id", saga.ID))
	}
}

// buildEvent asks the oracle for an event summary and falls back to a local
// summary when no answer is available. def is the causal tag used when the
// oracle answered without a known tag. On the create path meta supplies the
// causal tag and importance of the fallback event.
func (u *UseCase) buildEvent(ctx context.Context, item *model.Item, date string, def model.CausalTag, meta *oracle.SagaMetadata) *model.Event {
	ev := &model.Event{
		Date:     date,
		Title:    item.Title,
		SourceID: item.SourceID,
	}

	sum, err := u.oracle.SummarizeEvent(ctx, item)
	if err != nil {
		logging.From(ctx).Warn("event summary unavailable, using fallback", "source_id", item.SourceID, "error", err)
		ev.Summary = model.Truncate(item.Content, model.FallbackSummaryMaxRunes)
		ev.CausalTag = model.CausalTagFallback
		ev.Importance = model.ImportanceFallback
		if meta != nil {
			if meta.CausalTag != "" {
				ev.CausalTag = meta.CausalTag
			}
			if meta.Importance.Valid() {
				ev.Importance = meta.Importance
			}
		}
		return ev
	}

	ev.Summary = strings.TrimSpace(sum.Summary)
	if ev.Summary == "" {
		ev.Summary = model.Truncate(item.Content, model.FallbackSummaryMaxRunes)
	}
	ev.CausalTag = sum.CausalTag
	if ev.CausalTag == "" {
		ev.CausalTag = def
	}
	ev.Importance = sum.Importance
	if !ev.Importance.Valid() {
		ev.Importance = model.ImportanceDefault
	}
	return ev
}

func (u *UseCase) uniqueID(state *State) (model.SagaID, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := u.newID()
		if _, exists := state.Sagas[id]; !exists && id != "" {
			return id, nil
		}
	}
	return "", goerr.New("failed to generate a unique saga id", goerr.V("attempts", maxIDAttempts))
}
