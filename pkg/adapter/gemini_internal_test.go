package adapter

import (
	"context"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	resp   *genai.GenerateContentResponse
	err    error
	config *genai.GenerateContentConfig
	text   string
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.text = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content}},
	}
}

func TestGenerateJSONRequestShape(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(`{"action":`, `"ignore"}`)}
	text, err := generateJSON(context.Background(), gen, &JSONRequest{
		Name:        "route",
		System:      "classify",
		User:        "news title",
		Schema:      &jsonschema.Schema{Type: "object"},
		Temperature: 0.1,
	})
	gt.NoError(t, err)
	gt.Equal(t, text, `{"action":"ignore"}`)

	gt.Equal(t, gen.text, "news title")
	gt.Equal(t, gen.config.ResponseMIMEType, "application/json")
	gt.Equal(t, gen.config.ResponseSchema.Type, genai.TypeObject)
	gt.Equal(t, *gen.config.Temperature, float32(0.1))
	gt.Equal(t, gen.config.SystemInstruction.Parts[0].Text, "classify")
}

func TestGenerateJSONEmptyResponse(t *testing.T) {
	ctx := context.Background()

	_, err := generateJSON(ctx, &fakeGenerator{resp: &genai.GenerateContentResponse{}}, &JSONRequest{Name: "x"})
	gt.Error(t, err)

	_, err = generateJSON(ctx, &fakeGenerator{resp: textResponse("")}, &JSONRequest{Name: "x"})
	gt.Error(t, err)

	_, err = generateJSON(ctx, &fakeGenerator{err: goerr.New("unavailable")}, &JSONRequest{Name: "x"})
	gt.Error(t, err)
}
