package oracle

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
)

//go:embed prompt/route.md
var routePromptRaw string

//go:embed prompt/saga.md
var sagaPromptRaw string

//go:embed prompt/event.md
var eventPromptRaw string

var (
	routePromptTmpl = template.Must(template.New("route").Parse(routePromptRaw))
	sagaPromptTmpl  = template.Must(template.New("saga").Parse(sagaPromptRaw))
	eventPromptTmpl = template.Must(template.New("event").Parse(eventPromptRaw))
)

func renderPrompt(tmpl *template.Template, data map[string]any) (string, error) {
	vocab := map[string]any{
		"Categories":      model.Categories,
		"CausalTags":      model.CausalTags,
		"ImportanceMin":   int(model.ImportanceMin),
		"ImportanceMax":   int(model.ImportanceMax),
		"SummaryMaxRunes": model.SummaryMaxRunes,
	}
	for k, v := range data {
		vocab[k] = v
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vocab); err != nil {
		return "", goerr.Wrap(err, "failed to execute prompt template", goerr.V("template", tmpl.Name()))
	}
	return buf.String(), nil
}

type sagaContext struct {
	ID      model.SagaID `json:"id"`
	Title   string       `json:"title"`
	Summary string       `json:"summary"`
}

func subject(item *model.Item, limit int) string {
	return fmt.Sprintf("Title: %s\nContent: %s", item.Title, model.Truncate(item.Content, limit))
}

// Route decides whether item continues one of the active sagas, starts a new
// one, or is noise.
func (c *Client) Route(ctx context.Context, item *model.Item, active []*model.Saga) (Decision, error) {
	system, err := renderPrompt(routePromptTmpl, map[string]any{"HasSagas": len(active) > 0})
	if err != nil {
		return nil, err
	}

	sagas := make([]sagaContext, 0, len(active))
	for _, s := range active {
		sagas = append(sagas, sagaContext{ID: s.ID, Title: s.Title, Summary: s.ContextSummary})
	}
	sagaJSON, err := json.Marshal(sagas)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal saga context")
	}

	user := "Active sagas:\n" + string(sagaJSON) + "\n\nToday's item:\n" + subject(item, routeSubjectRunes)

	obj, err := c.call(ctx, "route", system, user, routeSchema)
	if err != nil {
		return nil, err
	}

	reason := text(obj["reason"])
	switch action := strings.ToLower(text(obj["action"])); action {
	case actionAppend:
		return Append{SagaID: model.SagaID(text(obj["saga_id"])), Reason: reason}, nil
	case actionCreate:
		return Create{Reason: reason}, nil
	case actionIgnore:
		return Ignore{Reason: reason}, nil
	default:
		logging.From(ctx).Warn("unknown route action, ignoring item", "action", action, "source_id", item.SourceID)
		return Ignore{Reason: "unknown action: " + action}, nil
	}
}

// NewSagaMetadata asks for the metadata of a new saga started by item. An empty
// Title is returned as is; the caller decides what to do with it.
func (c *Client) NewSagaMetadata(ctx context.Context, item *model.Item) (*SagaMetadata, error) {
	system, err := renderPrompt(sagaPromptTmpl, nil)
	if err != nil {
		return nil, err
	}

	obj, err := c.call(ctx, "new_saga", system, subject(item, detailSubjectRunes), sagaSchema)
	if err != nil {
		return nil, err
	}

	importance, _ := model.CoerceImportance(obj["importance"], model.ImportanceDefault)
	return &SagaMetadata{
		Title:          text(obj["title"]),
		Category:       model.ParseCategory(text(obj["category"])),
		ContextSummary: text(obj["context_summary"]),
		CausalTag:      model.ParseCausalTag(text(obj["causal_tag"]), model.CausalTagInception),
		Importance:     importance,
	}, nil
}

// SummarizeEvent condenses item into an event description. Summary is bounded
// to model.SummaryMaxRunes and may be empty.
func (c *Client) SummarizeEvent(ctx context.Context, item *model.Item) (*EventSummary, error) {
	system, err := renderPrompt(eventPromptTmpl, nil)
	if err != nil {
		return nil, err
	}

	obj, err := c.call(ctx, "summarize", system, model.Truncate(item.Content, detailSubjectRunes), eventSchema)
	if err != nil {
		return nil, err
	}

	importance, exact := model.CoerceImportance(obj["importance"], model.ImportanceDefault)
	if !exact {
		logging.From(ctx).Debug("importance coerced", "raw", obj["importance"], "importance", importance)
	}

	return &EventSummary{
		Summary:    model.Truncate(text(obj["summary"]), model.SummaryMaxRunes),
		CausalTag:  model.ParseCausalTag(text(obj["causal_tag"]), ""),
		Importance: importance,
	}, nil
}

// text renders a loosely typed JSON value as a trimmed string
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64, bool:
		return fmt.Sprint(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
