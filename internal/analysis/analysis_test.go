package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-job-scraper-go/internal/models"
	"ai-job-scraper-go/pkg/httpclient"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Len(t, req.Messages, 2)

		w.WriteHeader(status)
		resp := map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestAnalyzeStripsFences(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "```json\n{\"seniority\":\"senior\",\"remote\":true}\n```")
	defer srv.Close()

	a := NewChatAnalyzer(httpclient.NewHttpClient(DefaultTimeout), srv.URL, "sk-test", "test-model")
	out, err := a.Analyze(context.Background(), models.JobRecord{Title: "ML Engineer", Company: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "senior", out["seniority"])
	assert.Equal(t, true, out["remote"])
}

func TestAnalyzeStatusError(t *testing.T) {
	srv := chatServer(t, http.StatusTooManyRequests, "")
	defer srv.Close()

	a := NewChatAnalyzer(nil, srv.URL, "sk-test", "test-model")
	_, err := a.Analyze(context.Background(), models.JobRecord{Title: "ML Engineer"})
	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestAnalyzeRejectsNonJSON(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "Sure! This role looks senior.")
	defer srv.Close()

	a := NewChatAnalyzer(nil, srv.URL, "sk-test", "test-model")
	_, err := a.Analyze(context.Background(), models.JobRecord{Title: "ML Engineer"})
	assert.Error(t, err)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(` {"a":1} `))
}

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(ctx context.Context, rec models.JobRecord) (map[string]any, error) {
	if rec.Title == "bad" {
		return nil, errors.New("boom")
	}
	return map[string]any{"title": rec.Title}, nil
}

func TestEnrichKeepsFailedRecords(t *testing.T) {
	records := []models.JobRecord{{Title: "good"}, {Title: "bad"}}
	n := Enrich(context.Background(), stubAnalyzer{}, records, nil)

	assert.Equal(t, 1, n)
	assert.Equal(t, "good", records[0].AIAnalysis["title"])
	assert.Nil(t, records[1].AIAnalysis)
}
