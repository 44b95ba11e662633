package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tale-weaver-api/internal/config"
	"tale-weaver-api/internal/domain/story"
	"tale-weaver-api/pkg/errors"
)

func newTestClient(serverURL string) *Client {
	return NewClient(&config.GeminiConfig{
		APIKey:  "test-key",
		BaseURL: serverURL,
		Model:   "gemini-1.5-flash-latest",
		Timeout: 5 * time.Second,
	})
}

func TestGenerateContentRequestShape(t *testing.T) {
	var gotPath, gotKey, gotContentType string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"a story"}]}}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	out, err := client.GenerateContent(context.Background(), story.Prompt{Text: "write me a story"})
	require.NoError(t, err)

	assert.Equal(t, "/gemini-1.5-flash-latest:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "a story", out.Text)

	contents := gotBody["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, "write me a story", parts[0].(map[string]any)["text"])
}

func TestGenerateContentMultimodalRequest(t *testing.T) {
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"a story"}]}}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	prompt := story.Prompt{
		Text: "describe the image",
		Image: &story.InlineImage{
			MimeType: "image/jpeg",
			Data:     "QUJDRA==",
		},
	}
	_, err := client.GenerateContent(context.Background(), prompt)
	require.NoError(t, err)

	parts := gotBody["contents"].([]any)[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	inline := parts[1].(map[string]any)["inline_data"].(map[string]any)
	assert.Equal(t, "image/jpeg", inline["mime_type"])
	assert.Equal(t, "QUJDRA==", inline["data"])
}

func TestGenerateContentParsesUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"a story"}]}}],"usageMetadata":{"totalTokenCount":123}}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).GenerateContent(context.Background(), story.Prompt{Text: "p"})
	require.NoError(t, err)
	assert.Equal(t, 123, out.TotalTokens)
	assert.Equal(t, "gemini-1.5-flash-latest", out.Model)
}

func TestGenerateContentMissingUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"a story"}]}}]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).GenerateContent(context.Background(), story.Prompt{Text: "p"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.TotalTokens)
}

func TestGenerateContentUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateContent(context.Background(), story.Prompt{Text: "p"})
	require.Error(t, err)

	appErr := errors.AsAppError(err)
	assert.Equal(t, errors.CodeUpstreamError, appErr.Code)
	assert.Equal(t, "Resource has been exhausted", appErr.Message)
}

func TestGenerateContentUpstreamErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GenerateContent(context.Background(), story.Prompt{Text: "p"})
	require.Error(t, err)
	appErr := errors.AsAppError(err)
	assert.Equal(t, errors.CodeUpstreamError, appErr.Code)
	assert.Equal(t, "failed to generate story", appErr.Message)
}

func TestGenerateContentMalformedResponses(t *testing.T) {
	bodies := []string{
		`{"candidates":[]}`,
		`{"candidates":[{"content":{"parts":[]}}]}`,
		`{"candidates":[{"content":{"parts":[{"text":""}]}}]}`,
		`not even json`,
	}
	for _, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		_, err := newTestClient(srv.URL).GenerateContent(context.Background(), story.Prompt{Text: "p"})
		srv.Close()

		require.Error(t, err, "body %q", body)
		appErr := errors.AsAppError(err)
		assert.Equal(t, errors.CodeMalformedResponse, appErr.Code, "body %q", body)
	}
}

func TestGenerateContentErrorHidesCredential(t *testing.T) {
	// 指向已关闭的服务器触发传输错误
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).GenerateContent(context.Background(), story.Prompt{Text: "p"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "test-key")
}

func TestGenerateContentCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 先读完请求体，HTTP/1 服务器才能察觉客户端断开并取消请求上下文
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newTestClient(srv.URL).GenerateContent(ctx, story.Prompt{Text: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, err.Error(), "test-key")
}
