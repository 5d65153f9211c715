package oracle

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
)

func TestCleanJSONResponse(t *testing.T) {
	testCases := map[string]struct {
		input  string
		expect string
	}{
		"plain":            {input: `{"a": 1}`, expect: `{"a": 1}`},
		"fenced with tag":  {input: "```json\n{\"a\": 1}\n```", expect: `{"a": 1}`},
		"fenced no tag":    {input: "```\n{\"a\": 1}\n```", expect: `{"a": 1}`},
		"fenced one line":  {input: "```{\"a\": 1}```", expect: `{"a": 1}`},
		"unterminated":     {input: "```json\n{\"a\": 1}", expect: `{"a": 1}`},
		"leading prose":    {input: `Here you go: {"a": 1}`, expect: `{"a": 1}`},
		"trailing prose":   {input: `{"a": {"b": 2}} and that's it {}`, expect: `{"a": {"b": 2}}`},
		"brace in string":  {input: `{"a": "x}y"} tail`, expect: `{"a": "x}y"}`},
		"escaped quote":    {input: `{"a": "say \"}\""} tail`, expect: `{"a": "say \"}\""}`},
		"array":            {input: `result: [{"a": 1}] done`, expect: `[{"a": 1}]`},
		"no json":          {input: "  nothing here  ", expect: "nothing here"},
		"unbalanced stays": {input: `{"a": 1`, expect: `{"a": 1`},
		"fence in string":  {input: "```json\n{\"reason\": \"a ``` b\"}\n```", expect: `{"reason": "a ` + "```" + ` b"}`},
		"prose then fence": {input: "Sure:\n```json\n{\"a\": 1}\n```\nbye", expect: `{"a": 1}`},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			gt.Equal(t, cleanJSONResponse(tc.input), tc.expect)
		})
	}
}

func TestDecodeObject(t *testing.T) {
	ctx := context.Background()

	obj, err := decodeObject(ctx, "```json\n[\"x\", {\"action\": \"ignore\"}]\n```")
	gt.NoError(t, err)
	gt.Equal(t, obj["action"], any("ignore"))

	_, err = decodeObject(ctx, `"just a string"`)
	gt.Error(t, err)

	_, err = decodeObject(ctx, `[]`)
	gt.Error(t, err)

	_, err = decodeObject(ctx, `{broken`)
	gt.Error(t, err)

	obj, err = decodeObject(ctx, `Answer [1]: {"action": "create"}`)
	gt.NoError(t, err)
	gt.Equal(t, obj["action"], any("create"))

	obj, err = decodeObject(ctx, "```json\n{\"action\": \"ignore\", \"reason\": \"a ``` b\"}\n```")
	gt.NoError(t, err)
	gt.Equal(t, obj["reason"], any("a ``` b"))

	_, err = decodeObject(ctx, `see [1] and [2]`)
	gt.Error(t, err)
}
