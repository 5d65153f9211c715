package policy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/model"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
)

// Query is evaluated for every unseen item. The result object may carry
// `ignore` (bool) and `reason` (string).
const Query = "data.ingest"

// Policy is an ingest filter written in Rego. A Policy without modules keeps
// every item.
type Policy struct {
	query *rego.PreparedEvalQuery
	files []string
}

type printHook struct {
	ctx context.Context
}

func (h *printHook) Print(pctx print.Context, message string) error {
	attrs := []any{"message", message}
	if pctx.Location != nil {
		attrs = append(attrs, "location", pctx.Location.String())
	}
	logging.From(h.ctx).Debug("rego print", attrs...)
	return nil
}

// Load reads every *.rego file in dir. An empty dir argument or a directory
// without policy files yields a Policy that keeps every item.
func Load(ctx context.Context, dir string) (*Policy, error) {
	if dir == "" {
		return &Policy{}, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files", goerr.V("dir", dir))
	}
	if len(files) == 0 {
		logging.From(ctx).Warn("no policy file found", "dir", dir)
		return &Policy{}, nil
	}

	modules := make(map[string]string, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		modules[file] = string(data)
	}

	p, err := New(ctx, modules)
	if err != nil {
		return nil, err
	}
	p.files = files
	return p, nil
}

// New compiles Rego modules keyed by file name
func New(ctx context.Context, modules map[string]string) (*Policy, error) {
	if len(modules) == 0 {
		return &Policy{}, nil
	}

	options := []func(*rego.Rego){
		rego.Query(Query),
		rego.EnablePrintStatements(true),
	}
	for name, src := range modules {
		options = append(options, rego.Module(name, src))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare ingest policy", goerr.V("query", Query))
	}

	return &Policy{query: &prepared}, nil
}

// Files returns the loaded policy file paths
func (p *Policy) Files() []string {
	return p.files
}

// Ignore evaluates the policy for item and reports whether the item should be
// dropped before routing.
func (p *Policy) Ignore(ctx context.Context, item *model.Item) (bool, string, error) {
	if p == nil || p.query == nil {
		return false, "", nil
	}

	input := map[string]any{
		"title":      item.Title,
		"url":        item.SourceID,
		"content":    item.Content,
		"date":       item.Date,
		"type":       string(item.Type),
		"parent_url": item.ParentID,
	}

	rs, err := p.query.Eval(ctx, rego.EvalInput(input), rego.EvalPrintHook(&printHook{ctx: ctx}))
	if err != nil {
		return false, "", goerr.Wrap(err, "failed to evaluate ingest policy", goerr.V("source_id", item.SourceID))
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, "", nil
	}

	data, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return false, "", goerr.New("ingest policy result is not an object", goerr.V("source_id", item.SourceID))
	}

	ignore, _ := data["ignore"].(bool)
	reason, _ := data["reason"].(string)
	return ignore, reason, nil
}
