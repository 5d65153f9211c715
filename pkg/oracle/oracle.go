package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/adapter"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
)

// ErrNoAnswer is returned when every attempt of an oracle call failed
var ErrNoAnswer = goerr.New("no answer from oracle")

var errMalformed = errors.New("malformed oracle response")

const (
	DefaultMaxAttempts = 2
	DefaultRetryDelay  = 2 * time.Second
	DefaultTimeout     = 90 * time.Second
	DefaultTemperature = 0.1

	routeSubjectRunes  = 500
	detailSubjectRunes = 800
)

// Client asks a language model to classify and summarize items. All returned
// values are already normalized to the model vocabularies.
type Client struct {
	llm         adapter.LLM
	maxAttempts int
	retryDelay  time.Duration
	timeout     time.Duration
	temperature float32
}

type Option func(*Client)

// WithMaxAttempts sets the total number of attempts per call, including the first one
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

// WithTimeout bounds each attempt
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithTemperature(t float32) Option {
	return func(c *Client) {
		c.temperature = t
	}
}

func New(llm adapter.LLM, opts ...Option) *Client {
	c := &Client{
		llm:         llm,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		timeout:     DefaultTimeout,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call sends the request up to maxAttempts times and returns the first response
// that decodes to a JSON object.
func (c *Client) call(ctx context.Context, name, system, user string, schema *jsonschema.Schema) (map[string]any, error) {
	logger := logging.From(ctx).With("op", name)
	req := &adapter.JSONRequest{
		Name:        name,
		System:      system,
		User:        user,
		Schema:      schema,
		Temperature: c.temperature,
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 && c.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, goerr.Wrap(ErrNoAnswer, "context closed while waiting for retry",
					goerr.V("op", name), goerr.V("cause", ctx.Err().Error()))
			case <-time.After(c.retryDelay):
			}
		}

		started := time.Now()
		logger.Debug("oracle request", "attempt", attempt)
		obj, err := c.attempt(ctx, req)
		if err == nil {
			logger.Debug("oracle response", "attempt", attempt, "elapsed", time.Since(started))
			return obj, nil
		}

		lastErr = err
		logger.Warn("oracle attempt failed", "attempt", attempt, "elapsed", time.Since(started), "error", err)
	}

	return nil, goerr.Wrap(ErrNoAnswer, "all oracle attempts failed",
		goerr.V("op", name),
		goerr.V("attempts", c.maxAttempts),
		goerr.V("last_error", lastErr.Error()))
}

func (c *Client) attempt(ctx context.Context, req *adapter.JSONRequest) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.llm.GenerateJSON(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "oracle transport failed")
	}

	return decodeObject(ctx, text)
}

// decodeObject extracts exactly one JSON object from the response text. A
// top-level array is reduced to its first object element. Bracketed values that
// hold no object, such as a "[1]" in leading prose, are passed over.
func decodeObject(ctx context.Context, text string) (map[string]any, error) {
	candidates := jsonCandidates(text)
	if len(candidates) == 0 {
		candidates = []string{cleanJSONResponse(text)}
	}

	var lastErr error
	for _, candidate := range candidates {
		obj, err := objectOf(ctx, candidate)
		if err == nil {
			return obj, nil
		}
		if lastErr == nil {
			lastErr = goerr.Wrap(err, "malformed oracle response", goerr.V("response", text))
		}
	}
	return nil, lastErr
}

func objectOf(ctx context.Context, candidate string) (map[string]any, error) {
	var value any
	if err := json.Unmarshal([]byte(candidate), &value); err != nil {
		return nil, goerr.Wrap(errMalformed, "response is not JSON", goerr.V("parse_error", err.Error()))
	}

	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case []any:
		for _, elem := range v {
			if obj, ok := elem.(map[string]any); ok {
				logging.From(ctx).Warn("oracle answered with an array, using the first object", "length", len(v))
				return obj, nil
			}
		}
		return nil, goerr.Wrap(errMalformed, "array response has no object")
	default:
		return nil, goerr.Wrap(errMalformed, "response is not a JSON object")
	}
}
