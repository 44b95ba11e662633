package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appstory "tale-weaver-api/internal/application/story"
	"tale-weaver-api/internal/domain/story"
	"tale-weaver-api/internal/infrastructure/gemini"
	"tale-weaver-api/internal/interfaces/http/middleware"
)

type stubClient struct {
	calls int
	text  string
}

func (s *stubClient) GenerateContent(ctx context.Context, prompt story.Prompt) (*gemini.Output, error) {
	s.calls++
	return &gemini.Output{Text: s.text, Model: s.Model()}, nil
}

func (s *stubClient) Model() string {
	return "stub-model"
}

func newTestRouter(t *testing.T, client appstory.GenerationClient, limit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := appstory.NewRegistry(func(id string) *appstory.Session {
		return &appstory.Session{
			ID:      id,
			Limiter: appstory.NewSlidingWindowLimiter(limit, time.Minute),
			Cache:   appstory.NewMemoryCache(0),
		}
	})
	h := NewStoryHandler(appstory.NewService(client), registry)

	engine := gin.New()
	engine.Use(middleware.SessionID())
	engine.POST("/v1/stories", h.GenerateStory)
	engine.GET("/v1/stories/options", h.Options)
	return engine
}

func validBody() string {
	return `{
		"genre": "horror",
		"plot": "A diary writes itself in an empty room",
		"perspective": "first-person",
		"characters": "Mara",
		"setting": "an abandoned lighthouse",
		"format": "narrative"
	}`
}

func doGenerate(engine *gin.Engine, body string, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/stories", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(middleware.SessionIDHeader, sessionID)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestGenerateStorySuccess(t *testing.T) {
	client := &stubClient{text: "**Mara** walked in.\nShe paused."}
	engine := newTestRouter(t, client, 5)

	w := doGenerate(engine, validBody(), "s1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Story  string `json:"story"`
			Cached bool   `json:"cached"`
			Meta   struct {
				Model string `json:"model"`
			} `json:"meta"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Mara walked in. She paused.", resp.Data.Story)
	assert.False(t, resp.Data.Cached)
	assert.Equal(t, "stub-model", resp.Data.Meta.Model)
	assert.Equal(t, "4", w.Header().Get(RateLimitRemainingHeader))
}

func TestGenerateStoryCachedOnRepeat(t *testing.T) {
	client := &stubClient{text: "a story"}
	engine := newTestRouter(t, client, 5)

	require.Equal(t, http.StatusOK, doGenerate(engine, validBody(), "s1").Code)

	w := doGenerate(engine, validBody(), "s1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Cached bool `json:"cached"`
			Meta   struct {
				Model string `json:"model"`
			} `json:"meta"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Cached)
	assert.Equal(t, "cache", resp.Data.Meta.Model)
	assert.Equal(t, 1, client.calls)
}

func TestGenerateStoryRateLimited(t *testing.T) {
	client := &stubClient{text: "a story"}
	engine := newTestRouter(t, client, 1)

	require.Equal(t, http.StatusOK, doGenerate(engine, validBody(), "s1").Code)

	w := doGenerate(engine, validBody(), "s1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get(RateLimitRemainingHeader))

	var resp struct {
		Error struct {
			ErrorCode string `json:"error_code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "4001", resp.Error.ErrorCode)
}

func TestGenerateStorySessionsIsolated(t *testing.T) {
	client := &stubClient{text: "a story"}
	engine := newTestRouter(t, client, 1)

	require.Equal(t, http.StatusOK, doGenerate(engine, validBody(), "s1").Code)
	require.Equal(t, http.StatusTooManyRequests, doGenerate(engine, validBody(), "s1").Code)

	// 另一会话有独立配额
	assert.Equal(t, http.StatusOK, doGenerate(engine, validBody(), "s2").Code)
}

func TestGenerateStoryBadRequest(t *testing.T) {
	client := &stubClient{text: "a story"}
	engine := newTestRouter(t, client, 5)

	// 非法 JSON
	assert.Equal(t, http.StatusBadRequest, doGenerate(engine, "{not json", "s1").Code)

	// 缺少必填字段
	assert.Equal(t, http.StatusBadRequest, doGenerate(engine, `{"plot":"something long enough"}`, "s1").Code)

	// 非法 format 取值
	body := strings.Replace(validBody(), `"narrative"`, `"poem"`, 1)
	assert.Equal(t, http.StatusBadRequest, doGenerate(engine, body, "s1").Code)

	// 剧情过短
	body = strings.Replace(validBody(), "A diary writes itself in an empty room", "short", 1)
	assert.Equal(t, http.StatusBadRequest, doGenerate(engine, body, "s1").Code)

	assert.Equal(t, 0, client.calls)
}

func TestGenerateStoryImageModeSkipsPlotCheck(t *testing.T) {
	client := &stubClient{text: "a story"}
	engine := newTestRouter(t, client, 5)

	body := `{
		"genre": "fantasy",
		"perspective": "third-person",
		"format": "narrative",
		"image_base64": "data:image/png;base64,QUJDRA=="
	}`
	assert.Equal(t, http.StatusOK, doGenerate(engine, body, "s1").Code)
}

func TestStoryOptions(t *testing.T) {
	client := &stubClient{text: "a story"}
	engine := newTestRouter(t, client, 5)

	req := httptest.NewRequest(http.MethodGet, "/v1/stories/options", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Genres  []string `json:"genres"`
			Formats []string `json:"formats"`
			Lengths []string `json:"lengths"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Data.Genres, "horror")
	assert.Equal(t, []string{"narrative", "dialogue"}, resp.Data.Formats)
	assert.Equal(t, []string{"short", "medium", "long"}, resp.Data.Lengths)
}
