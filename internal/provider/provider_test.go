package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"invoice-extractor/internal/config"
	"invoice-extractor/internal/gemini"
	"invoice-extractor/internal/invoice"
)

var testQuery = invoice.Query{
	Instruction: invoice.DefaultInstruction,
	Image:       invoice.Image{MimeType: "image/jpg", Data: []byte{0xff, 0xd8, 0xff}},
	Question:    "What is the total?",
}

func fakeServer(t *testing.T, status int, body string, inspect func(r *http.Request, body []byte)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		raw, _ := io.ReadAll(r.Body)
		if inspect != nil {
			inspect(r, raw)
		}
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newGeminiAsker(srv *httptest.Server) *Gemini {
	return NewGemini(gemini.New(gemini.Options{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()}))
}

func TestGemini_Ask(t *testing.T) {
	srv, hits := fakeServer(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"Total: $42.00"}]}}]}`,
		func(r *http.Request, body []byte) {
			parts := gjson.GetBytes(body, "contents.0.parts").Array()
			require.Len(t, parts, 3)
			assert.Equal(t, invoice.DefaultInstruction, parts[0].Get("text").String())
			assert.Equal(t, "image/jpeg", parts[1].Get("inlineData.mimeType").String())
			assert.Equal(t, "What is the total?", parts[2].Get("text").String())
		})

	text, err := newGeminiAsker(srv).Ask(context.Background(), testQuery)
	require.NoError(t, err)
	assert.Equal(t, "Total: $42.00", text)
	assert.EqualValues(t, 1, hits.Load())
}

func TestGemini_ErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   invoice.ErrorKind
	}{
		{"auth", http.StatusUnauthorized, `{"error":{"code":401,"message":"no key","status":"UNAUTHENTICATED"}}`, invoice.KindAuth},
		{"invalid key", http.StatusBadRequest, `{"error":{"code":400,"status":"INVALID_ARGUMENT","details":[{"reason":"API_KEY_INVALID"}]}}`, invoice.KindAuth},
		{"status", http.StatusInternalServerError, `{"error":{"code":500,"message":"boom"}}`, invoice.KindStatus},
		{"malformed", http.StatusOK, `not json`, invoice.KindMalformed},
		{"empty", http.StatusOK, `{"candidates":[]}`, invoice.KindEmpty},
		{"blocked", http.StatusOK, `{"promptFeedback":{"blockReason":"OTHER"}}`, invoice.KindBlocked},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, hits := fakeServer(t, tc.status, tc.body, nil)

			_, err := newGeminiAsker(srv).Ask(context.Background(), testQuery)
			se, ok := invoice.AsServiceError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tc.kind, se.Kind)
			assert.Equal(t, "gemini", se.Provider)
			assert.EqualValues(t, 1, hits.Load())
		})
	}
}

func TestGemini_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	asker := NewGemini(gemini.New(gemini.Options{APIKey: "k", BaseURL: srv.URL, HTTPClient: http.DefaultClient}))
	_, err := asker.Ask(context.Background(), testQuery)

	se, ok := invoice.AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, invoice.KindUnreachable, se.Kind)
}

func TestOpenAI_Ask(t *testing.T) {
	srv, hits := fakeServer(t, http.StatusOK,
		`{"id":"resp_1","object":"response","created_at":1,"status":"completed","model":"gpt-4o",
		  "output":[{"type":"message","id":"msg_1","role":"assistant","status":"completed",
		    "content":[{"type":"output_text","text":"Total: $42.00","annotations":[]}]}]}`,
		func(r *http.Request, body []byte) {
			assert.Equal(t, "/responses", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
			content := gjson.GetBytes(body, "input.0.content").Array()
			require.Len(t, content, 3)
			assert.Equal(t, invoice.DefaultInstruction, content[0].Get("text").String())
			assert.Equal(t, "data:image/jpeg;base64,/9j/", content[1].Get("image_url").String())
			assert.Equal(t, "What is the total?", content[2].Get("text").String())
		})

	asker := NewOpenAI(OpenAIOptions{APIKey: "sk-test", BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	text, err := asker.Ask(context.Background(), testQuery)

	require.NoError(t, err)
	assert.Equal(t, "Total: $42.00", text)
	assert.EqualValues(t, 1, hits.Load())
}

func TestOpenAI_NoRetryOnServerError(t *testing.T) {
	srv, hits := fakeServer(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, nil)

	asker := NewOpenAI(OpenAIOptions{APIKey: "sk-test", BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	_, err := asker.Ask(context.Background(), testQuery)

	se, ok := invoice.AsServiceError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, invoice.KindStatus, se.Kind)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.EqualValues(t, 1, hits.Load())
}

func TestAnthropic_Ask(t *testing.T) {
	srv, hits := fakeServer(t, http.StatusOK,
		`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
		  "content":[{"type":"text","text":"Total: "},{"type":"text","text":"$42.00"}],
		  "stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`,
		func(r *http.Request, body []byte) {
			assert.Equal(t, "/v1/messages", r.URL.Path)
			assert.Equal(t, "ant-test", r.Header.Get("X-Api-Key"))
			blocks := gjson.GetBytes(body, "messages.0.content").Array()
			require.Len(t, blocks, 3)
			assert.Equal(t, "image/jpeg", blocks[1].Get("source.media_type").String())
			assert.Equal(t, "What is the total?", blocks[2].Get("text").String())
		})

	asker := NewAnthropic(AnthropicOptions{APIKey: "ant-test", BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	text, err := asker.Ask(context.Background(), testQuery)

	require.NoError(t, err)
	assert.Equal(t, "Total: $42.00", text)
	assert.EqualValues(t, 1, hits.Load())
}

func TestAnthropic_AuthError(t *testing.T) {
	srv, hits := fakeServer(t, http.StatusUnauthorized,
		`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, nil)

	asker := NewAnthropic(AnthropicOptions{APIKey: "bad", BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	_, err := asker.Ask(context.Background(), testQuery)

	se, ok := invoice.AsServiceError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, invoice.KindAuth, se.Kind)
	assert.EqualValues(t, 1, hits.Load())
}

func TestNew_SelectsProvider(t *testing.T) {
	for provider, want := range map[string]any{
		config.ProviderGemini:    &Gemini{},
		config.ProviderOpenAI:    &OpenAI{},
		config.ProviderAnthropic: &Anthropic{},
	} {
		asker, err := New(config.Config{Provider: provider}, http.DefaultClient, nil)
		require.NoError(t, err)
		assert.IsType(t, want, asker)
	}

	_, err := New(config.Config{Provider: "llama"}, http.DefaultClient, nil)
	assert.Error(t, err)
}
