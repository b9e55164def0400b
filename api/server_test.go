package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"twine-codec/compiler"
	"twine-codec/formats"
	"twine-codec/story"
)

const sampleTwee = `:: StoryTitle
API Story

:: StoryData
{"ifid": "0B4C1D3E-8A9F-4E21-9A5B-6C7D8E9F0A1B", "format": "Harlowe", "format-version": "3.3.8", "start": "Start"}

:: Start [intro]
Hello
`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	logger := zaptest.NewLogger(t)

	reg := formats.NewRegistry(logger)
	reg.Register(&formats.Format{
		Name:        "Harlowe",
		Version:     "3.3.8",
		Description: "test",
		Source:      "<title>{{STORY_NAME}}</title>{{STORY_DATA}}",
	})

	app := story.AppInfo{Name: "Twine Codec", Version: "9.9.9"}
	c, err := compiler.NewCompiler(compiler.Config{
		Formats: reg,
		AppInfo: app,
		WorkDir: filepath.Join(dir, "out"),
		Logger:  logger,
	})
	require.NoError(t, err)

	s := NewServer(ServerConfig{
		Compiler: c,
		Formats:  reg,
		App:      app,
		StoryOptions: story.Options{
			NewID:              story.SequentialIDs("api"),
			StoryFormat:        "Harlowe",
			StoryFormatVersion: "3.3.8",
		},
		WatchDebounce: 20 * time.Millisecond,
		EnableCORS:    true,
		Logger:        logger,
	})
	return s, dir
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func storyJSON(t *testing.T, s story.Story) string {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	return string(data)
}

func sample() story.Story {
	return story.Story{
		ID:           "s1",
		Name:         "Sample",
		IFID:         "ABC",
		StartPassage: "p1",
		Zoom:         1,
		Passages: []story.Passage{
			{ID: "p1", Story: "s1", Name: "Start", Text: "Go", Width: 100, Height: 100},
		},
	}
}

func TestHealthAndVersion(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "9.9.9", decodeJSON(t, w)["version"])

	w = do(t, s, http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Twine Codec", decodeJSON(t, w)["name"])
}

func TestFormatsOmitSource(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/formats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Harlowe"`)
	assert.NotContains(t, w.Body.String(), "STORY_DATA")
}

func TestTweeDecodeEncode(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/twee/decode", sampleTwee)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Story    story.Story     `json:"story"`
		Warnings []story.Warning `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "API Story", res.Story.Name)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Story.Passages, 1)
	assert.Equal(t, []string{"intro"}, res.Story.Passages[0].Tags)

	w = do(t, s, http.MethodPost, "/api/twee/encode", storyJSON(t, res.Story))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, w.Body.String(), ":: Start [intro]")

	w = do(t, s, http.MethodPost, "/api/twee/decode", ":: [broken\n")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHTMLEncodeDecode(t *testing.T) {
	s, _ := newTestServer(t)

	w := do(t, s, http.MethodPost, "/api/html/encode", storyJSON(t, sample()))
	require.Equal(t, http.StatusOK, w.Code)
	html := w.Body.String()
	assert.True(t, strings.HasPrefix(html, `<tw-storydata name="Sample" startnode="1" creator="Twine Codec" creator-version="9.9.9"`))

	w = do(t, s, http.MethodPost, "/api/html/decode", html)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, float64(1), body["count"])

	noStart := sample()
	noStart.StartPassage = ""
	w = do(t, s, http.MethodPost, "/api/html/encode", storyJSON(t, noStart))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, http.MethodPost, "/api/html/encode?start_optional=true", storyJSON(t, noStart))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `startnode=""`)

	w = do(t, s, http.MethodPost, "/api/html/encode?start_optional=maybe", storyJSON(t, noStart))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/html/encode", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArchiveEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	data, err := json.Marshal([]story.Story{sample(), sample()})
	require.NoError(t, err)

	w := do(t, s, http.MethodPost, "/api/archive", string(data))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, strings.Count(w.Body.String(), "<tw-storydata"))
}

func TestPublishEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	body, err := json.Marshal(PublishRequest{Story: &story.Story{
		ID: "s1", Name: "Pub <1>", StartPassage: "p1",
		Passages: []story.Passage{{ID: "p1", Name: "Start"}},
	}})
	require.NoError(t, err)

	w := do(t, s, http.MethodPost, "/api/publish", string(body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "<title>Pub &lt;1&gt;</title><tw-storydata"))
	assert.Contains(t, w.Body.String(), `format="Harlowe" format-version="3.3.8"`)

	body, err = json.Marshal(PublishRequest{Story: &story.Story{Name: "x"}, Format: "Snowman"})
	require.NoError(t, err)
	w = do(t, s, http.MethodPost, "/api/publish", string(body))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/api/publish", `{"format":"Harlowe"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompileEndpoint(t *testing.T) {
	s, dir := newTestServer(t)
	src := filepath.Join(dir, "story.twee")
	require.NoError(t, os.WriteFile(src, []byte(sampleTwee), 0644))

	w := do(t, s, http.MethodPost, "/api/story/compile", `{"file_path":"`+filepath.ToSlash(src)+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "API Story", body["story_name"])

	w = do(t, s, http.MethodPost, "/api/story/compile", `{"file_path":"`+filepath.ToSlash(src)+`","start_node":"Ghost"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, false, decodeJSON(t, w)["success"])

	w = do(t, s, http.MethodPost, "/api/story/compile", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWatcherEndpoints(t *testing.T) {
	s, dir := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/watch/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeJSON(t, w)["running"])

	w = do(t, s, http.MethodPost, "/api/watch/stop", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, s, http.MethodPost, "/api/watch/start", `{"paths":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/watch/start", `{"paths":["`+filepath.ToSlash(dir)+`"],"auto_compile":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodPost, "/api/watch/start", `{"paths":["`+filepath.ToSlash(dir)+`"]}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, s, http.MethodGet, "/api/watch/status", "")
	assert.Equal(t, true, decodeJSON(t, w)["running"])

	w = do(t, s, http.MethodPost, "/api/watch/stop", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebSocketReceivesWatcherEvents(t *testing.T) {
	s, dir := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)

	// Attende che il client sia registrato prima di generare eventi
	require.Eventually(t, func() bool {
		s.wsMutex.Lock()
		defer s.wsMutex.Unlock()
		return len(s.wsClients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(ts.URL+"/api/watch/start", "application/json",
		bytes.NewBufferString(`{"paths":["`+filepath.ToSlash(dir)+`"],"auto_compile":true}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "live.twee"), []byte(sampleTwee), 0644))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["type"] == "compile_success" {
			assert.Equal(t, "live.twee", msg["path"])
			break
		}
	}

	s.shutdownWatcher()
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		s.wsMutex.Lock()
		defer s.wsMutex.Unlock()
		return len(s.wsClients) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
