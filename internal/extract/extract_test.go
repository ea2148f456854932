package extract

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dataset-cli/internal/model"
	"github.com/sells-group/dataset-cli/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}
}

func laptopRequest(t *testing.T) *model.ExtractionRequest {
	t.Helper()
	req, err := model.NewExtractionRequest("laptop", []model.FieldSpec{
		{Name: "Name", Type: model.TypeString},
		{Name: "Price", Type: model.TypeNumber},
		{Name: "Brand", Type: model.TypeCategorical, Categories: []string{"Dell", "HP"}},
		{Name: "InStock", Type: model.TypeBoolean},
	}, 4)
	require.NoError(t, err)
	return req
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	req := laptopRequest(t)
	chunk := strings.Repeat("a", 3500)
	p := BuildPrompt(req.Fields, chunk, "laptop", 0)

	assert.Contains(t, p, `relevant to the query: "laptop"`)
	assert.Contains(t, p, "- Name (string)")
	assert.Contains(t, p, "- Price (number)")
	assert.Contains(t, p, "- Brand (categorical: Dell, HP)")
	assert.Contains(t, p, "remove symbols like $, %)")
	assert.Contains(t, p, `use "N/A" if not found`)
	assert.Contains(t, p, strings.Repeat("a", 3000))
	assert.NotContains(t, p, strings.Repeat("a", 3001))
	assert.Contains(t, p, `"Brand": "Dell"`)
	assert.Contains(t, p, `"Price": 42.99`)
}

func TestBuildPrompt_TruncatesByRune(t *testing.T) {
	t.Parallel()

	fields := []model.FieldSpec{{Name: "Notes", Type: model.TypeString, Description: "free text"}}
	p := BuildPrompt(fields, strings.Repeat("é", 10), "q", 4)
	assert.Contains(t, p, "éééé\n")
	assert.NotContains(t, p, "ééééé")
	assert.Contains(t, p, "- Notes (string): free text")
}

func TestLocateJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"fenced json", "Here you go:\n```json\n[{\"a\":1}]\n```\nThanks", `[{"a":1}]`},
		{"fenced plain", "```\n[{\"a\":2}]```", `[{"a":2}]`},
		{"bare array in prose", `Sure! [ {"a":3}, {"a":4} ] hope this helps`, `[ {"a":3}, {"a":4} ]`},
		{"raw", `  {"a":5}  `, `{"a":5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, LocateJSON(tt.in))
		})
	}
}

func TestParseResponse(t *testing.T) {
	t.Parallel()

	req := laptopRequest(t)
	text := "```json\n" + `[
		{"Name": "XPS 13", "Price": "$999.99", "Brand": "Dell", "InStock": "yes", "Extra": "dropped"},
		{"name": "Envy", "Price": "N/A", "Brand": "HP"},
		"not an object"
	]` + "\n```"

	records, err := ParseResponse(text, req.Fields)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, model.Record{
		"Name":    model.StringValue("XPS 13"),
		"Price":   model.NumberValue(999.99),
		"Brand":   model.StringValue("Dell"),
		"InStock": model.BoolValue(true),
	}, records[0])

	assert.Equal(t, model.StringValue("Envy"), records[1]["Name"])
	assert.Equal(t, model.NumberValue(0), records[1]["Price"])
	assert.Equal(t, model.BoolValue(false), records[1]["InStock"])
}

func TestParseResponse_Unparsable(t *testing.T) {
	t.Parallel()

	req := laptopRequest(t)
	_, err := ParseResponse("I could not find anything useful.", req.Fields)
	assert.Error(t, err)

	_, err = ParseResponse(`{"Name": "single object"}`, req.Fields)
	assert.Error(t, err)
}

func TestExtractor_Unavailable(t *testing.T) {
	t.Parallel()

	e := New(nil, Options{Model: "m"})
	assert.False(t, e.Available())

	_, err := e.ExtractFromChunk(context.Background(), "chunk", laptopRequest(t))
	assert.True(t, errors.Is(err, model.ErrModelUnavailable))
}

func TestExtractor_ExtractFromChunk(t *testing.T) {
	t.Parallel()

	req := laptopRequest(t)
	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(r anthropic.MessageRequest) bool {
		return r.Model == "claude-test" &&
			r.System == SystemPrompt &&
			r.MaxTokens == 512 &&
			r.Temperature != nil && *r.Temperature == 0 &&
			len(r.Messages) == 1 &&
			strings.Contains(r.Messages[0].Content, "Dell XPS on sale")
	})).Return(textResponse(`[{"Name":"XPS","Price":999,"Brand":"Dell","InStock":true}]`), nil)

	e := New(client, Options{Model: "claude-test", MaxTokens: 512, Timeout: time.Second})
	records, err := e.ExtractFromChunk(context.Background(), "Dell XPS on sale", req)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.NumberValue(999), records[0]["Price"])
	client.AssertExpectations(t)
}

func TestExtractor_ChunkFailuresYieldNothing(t *testing.T) {
	t.Parallel()

	req := laptopRequest(t)

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, eris.New("boom"))
		records, err := New(client, Options{}).ExtractFromChunk(context.Background(), "x", req)
		assert.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("prose reply", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("No laptops here."), nil)
		records, err := New(client, Options{}).ExtractFromChunk(context.Background(), "x", req)
		assert.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestExtractor_AuthErrorIsModelUnavailable(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer ts.Close()

	client := anthropic.NewClient("bad-key", anthropic.WithBaseURL(ts.URL))
	_, err := New(client, Options{Model: "claude-test"}).ExtractFromChunk(context.Background(), "x", laptopRequest(t))
	assert.True(t, errors.Is(err, model.ErrModelUnavailable))
}

func TestExtractor_CanceledContext(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(client, Options{}).ExtractFromChunk(ctx, "x", laptopRequest(t))
	assert.True(t, errors.Is(err, context.Canceled))
}
