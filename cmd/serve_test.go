package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearcheck/verify-cli/internal/config"
	"github.com/clearcheck/verify-cli/internal/model"
	"github.com/clearcheck/verify-cli/internal/store"
	anthropicpkg "github.com/clearcheck/verify-cli/pkg/anthropic"
)

type fakeClient struct {
	responses []string
	calls     int
	chunks    []string
}

func (c *fakeClient) CreateMessage(context.Context, anthropicpkg.MessageRequest) (*anthropicpkg.MessageResponse, error) {
	text := ""
	if c.calls < len(c.responses) {
		text = c.responses[c.calls]
	}
	c.calls++
	return &anthropicpkg.MessageResponse{
		Content: []anthropicpkg.ContentBlock{{Type: "text", Text: text}},
	}, nil
}

func (c *fakeClient) StreamMessage(context.Context, anthropicpkg.MessageRequest) (anthropicpkg.MessageStream, error) {
	return &fakeStream{chunks: c.chunks}, nil
}

type fakeStream struct {
	chunks []string
	idx    int
}

func (s *fakeStream) Next() bool {
	if s.idx >= len(s.chunks) {
		return false
	}
	s.idx++
	return true
}

func (s *fakeStream) Text() string { return s.chunks[s.idx-1] }
func (s *fakeStream) Err() error   { return nil }
func (s *fakeStream) Close() error { return nil }

type noFrames struct{}

func (noFrames) ExtractFrames(context.Context, model.MediaBlob, int) ([]model.MediaBlob, error) {
	return nil, nil
}

func newTestServer(t *testing.T, client *fakeClient) (*httptest.Server, store.Store) {
	t.Helper()
	cfg = &config.Config{
		Anthropic: config.AnthropicConfig{
			AnalysisModel:  "claude-haiku-4-5-20251001",
			SynthesisModel: "claude-sonnet-4-5-20250929",
			MaxTokens:      1024,
		},
		Pipeline: config.PipelineConfig{StageCooldownMillis: 1, TrustScoreThreshold: 40, FetchTimeoutSecs: 1},
		Server:   config.ServerConfig{AllowedOrigins: []string{"*"}},
	}

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"), "test")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	srv := httptest.NewServer(newRouter(st, client, noFrames{}))
	t.Cleanup(srv.Close)
	return srv, st
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServeHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeClient{})

	var body map[string]string
	status := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestServeAnalyzeText(t *testing.T) {
	client := &fakeClient{
		responses: []string{
			`{"summary":"s","sentiment":"neutral"}`,
			`{"dominant_emotion":"calm","manipulation_level":"low"}`,
		},
		chunks: []string{"Report ", "body."},
	}
	srv, st := newTestServer(t, client)

	resp, err := http.Post(srv.URL+"/api/analyze", "application/json",
		strings.NewReader(`{"text":"A bold claim."}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		RunID   string              `json:"run_id"`
		Report  string              `json:"report"`
		State   model.PipelineState `json:"state"`
		Warning string              `json:"warning"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.RunID)
	assert.Equal(t, "Report body.", body.Report)
	assert.Equal(t, model.StageCompleted, body.State[model.StageFinalSynthesis].Status)

	items, err := st.ListHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, body.RunID, items[0].ID)
}

func TestServeAnalyzeRejectsEmptyBody(t *testing.T) {
	srv, _ := newTestServer(t, &fakeClient{})

	resp, err := http.Post(srv.URL+"/api/analyze", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeHistoryEndpoints(t *testing.T) {
	srv, st := newTestServer(t, &fakeClient{})
	ctx := context.Background()

	require.NoError(t, st.AppendHistory(ctx, model.HistoryItem{
		ID:            "run-1",
		Input:         "text submission",
		Report:        "r",
		PipelineState: model.NewPipelineState(),
		CreatedAt:     time.Now().UTC(),
	}))

	var items []model.HistoryItem
	status := getJSON(t, srv.URL+"/api/history", &items)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, items, 1)

	var item model.HistoryItem
	status = getJSON(t, srv.URL+"/api/history/run-1", &item)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "run-1", item.ID)

	status = getJSON(t, srv.URL+"/api/history/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/history", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	items = nil
	getJSON(t, srv.URL+"/api/history", &items)
	assert.Empty(t, items)
}

func TestServeMemoryEndpoints(t *testing.T) {
	srv, st := newTestServer(t, &fakeClient{})
	ctx := context.Background()

	status := getJSON(t, srv.URL+"/api/memory/clean.example", nil)
	assert.Equal(t, http.StatusNotFound, status)

	require.NoError(t, st.UpsertRecord(ctx, model.MisinformationRecord{
		Domain: "fake.example", URL: "https://fake.example", TrustScore: 10, FlaggedAt: time.Now().UTC(),
	}))

	var rec model.MisinformationRecord
	status = getJSON(t, srv.URL+"/api/memory/fake.example", &rec)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 10, rec.TrustScore)

	var recs []model.MisinformationRecord
	status = getJSON(t, srv.URL+"/api/memory", &recs)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, recs, 1)
}
