package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"ai-job-scraper-go/internal/models"
	"ai-job-scraper-go/pkg/httpclient"
)

const (
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"
	DefaultModel    = "gpt-4o-mini"
	DefaultTimeout  = 30 * time.Second

	// maxDescription bounds the prompt size per posting.
	maxDescription = 4000
)

// Analyzer enriches one record with structured observations.
type Analyzer interface {
	Analyze(ctx context.Context, rec models.JobRecord) (map[string]any, error)
}

// ChatAnalyzer talks to an OpenAI-compatible chat completions endpoint.
type ChatAnalyzer struct {
	client   *httpclient.HttpClient
	endpoint string
	apiKey   string
	model    string
}

var _ Analyzer = (*ChatAnalyzer)(nil)

func NewChatAnalyzer(client *httpclient.HttpClient, endpoint, apiKey, model string) *ChatAnalyzer {
	if client == nil {
		client = httpclient.NewHttpClient(DefaultTimeout)
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if model == "" {
		model = DefaultModel
	}
	return &ChatAnalyzer{client: client, endpoint: endpoint, apiKey: apiKey, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const systemPrompt = `You review AI job postings. Reply with a single JSON object with the keys
"seniority" (string), "skills" (array of strings), "remote" (boolean) and "summary" (string, one sentence).`

func userPrompt(rec models.JobRecord) string {
	desc := rec.Description
	if len(desc) > maxDescription {
		desc = desc[:maxDescription]
	}
	return fmt.Sprintf("Title: %s\nCompany: %s\nLocation: %s\nSalary: %s\n\n%s",
		rec.Title, rec.Company, rec.Location, rec.SalaryText, desc)
}

// Analyze sends the posting to the model and decodes its JSON reply.
func (c *ChatAnalyzer) Analyze(ctx context.Context, rec models.JobRecord) (map[string]any, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(rec)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	resp, err := c.client.Post(ctx, c.endpoint, "application/json", bytes.NewReader(body), map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &httpclient.StatusError{Method: http.MethodPost, URL: c.endpoint, StatusCode: resp.StatusCode, Body: string(data)}
	}

	var chat chatResponse
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("chat API error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(stripFences(chat.Choices[0].Message.Content)), &out); err != nil {
		return nil, fmt.Errorf("decode analysis object: %w", err)
	}
	return out, nil
}

// stripFences removes a surrounding ```json ... ``` block.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}

// Enrich runs the analyzer over every record in place. Failures are logged
// and leave the record without analysis.
func Enrich(ctx context.Context, a Analyzer, records []models.JobRecord, logger *log.Logger) int {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	analyzed := 0
	for i := range records {
		if ctx.Err() != nil {
			break
		}
		result, err := a.Analyze(ctx, records[i])
		if err != nil {
			logger.Printf("analysis failed for %q at %q: %v", records[i].Title, records[i].Company, err)
			continue
		}
		records[i].AIAnalysis = result
		analyzed++
	}
	return analyzed
}
