package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	testCases := []struct {
		name         string
		source       string
		expectedBody string
		hasBody      bool
		handlerLines []string
	}{
		{
			name: "body and handler",
			source: "local body = schema.object({ email = schema.string() });\n" +
				"\n" +
				"local handler = function(ctx)\n" +
				"  return ctx.body\n" +
				"end\n",
			expectedBody: "schema.object({ email = schema.string() })",
			hasBody:      true,
			handlerLines: []string{
				"local handler = function(ctx)",
				"  return ctx.body",
				"end",
				"",
			},
		},
		{
			name:         "handler only",
			source:       "local handler = function() return \"pong\" end",
			hasBody:      false,
			handlerLines: []string{"local handler = function() return \"pong\" end"},
		},
		{
			name:         "body only",
			source:       "local body = schema.string();\n",
			expectedBody: "schema.string()",
			hasBody:      true,
			handlerLines: nil,
		},
		{
			name:         "empty module",
			source:       "",
			hasBody:      false,
			handlerLines: nil,
		},
		{
			name: "only first body declaration wins",
			source: "local body = schema.string();\n" +
				"local body = schema.number();\n",
			expectedBody: "schema.string()",
			hasBody:      true,
			handlerLines: nil,
		},
		{
			name: "indented declarations are still recognized",
			source: "  local body = schema.bool();\n" +
				"\tlocal handler = function() end\n",
			expectedBody: "schema.bool()",
			hasBody:      true,
			handlerLines: []string{"\tlocal handler = function() end", ""},
		},
		{
			name: "body-prefixed line inside handler block is handler text",
			source: "local handler = function(ctx)\n" +
				"  local body = ctx.rawBody;\n" +
				"  return body\n" +
				"end",
			hasBody: false,
			handlerLines: []string{
				"local handler = function(ctx)",
				"  local body = ctx.rawBody;",
				"  return body",
				"end",
			},
		},
		{
			name: "blank lines inside handler block are kept verbatim",
			source: "local handler = function()\n" +
				"\n" +
				"  return 1\n" +
				"end",
			hasBody: false,
			handlerLines: []string{
				"local handler = function()",
				"",
				"  return 1",
				"end",
			},
		},
		{
			name:         "unrelated declarations are ignored",
			source:       "local greeting = \"hi\";\nlocal count = 3;\n",
			hasBody:      false,
			handlerLines: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			frag := Scan(tc.source)

			assert.Equal(t, tc.hasBody, frag.HasBody)
			assert.Equal(t, tc.expectedBody, frag.BodyText)
			assert.Equal(t, tc.handlerLines, frag.HandlerLines)
		})
	}
}

func TestScanIsIdempotent(t *testing.T) {
	source := "local body = schema.object({ id = schema.number() });\n" +
		"local handler = function(ctx)\n" +
		"  return ctx.body.id\n" +
		"end\n"

	first := Scan(source)
	second := Scan(source)

	require.Equal(t, first, second)
}
