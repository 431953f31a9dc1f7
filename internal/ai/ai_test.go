package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelaba/job-parser/internal/domain"
)

type chatRequest struct {
	Model          string `json:"model"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"messages"`
}

type fakeProvider struct {
	*httptest.Server

	mu       sync.Mutex
	requests []chatRequest
	auth     string
}

// newFakeProvider answers every chat completion with content, or with an
// OpenAI-style error body when status is not 200.
func newFakeProvider(t *testing.T, status int, content string) *fakeProvider {
	t.Helper()
	f := &fakeProvider{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.requests = append(f.requests, req)
		f.auth = r.Header.Get("Authorization")
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": content, "type": "invalid_request_error"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1760600000,
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 10, "total_tokens": 20},
		})
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestClient(f *fakeProvider) *Client {
	return New(Config{
		BaseURL:      f.URL + "/openai/v1",
		ExtractModel: "extract-model",
		CompareModel: "compare-model",
	}, domain.StaticSettings{ProviderAPIKey: "gsk_test"}, f.Client())
}

func TestExtract(t *testing.T) {
	f := newFakeProvider(t, http.StatusOK,
		`{"jobTitle":"Backend Engineer","country":"Ireland","company":"Stripe","description":"- Go\n- Postgres"}`)

	got, err := newTestClient(f).Extract(context.Background(), "We are hiring a backend engineer in Dublin...")
	require.NoError(t, err)
	assert.Equal(t, domain.JobFields{
		Title:       "Backend Engineer",
		Country:     "Ireland",
		Company:     "Stripe",
		Description: "- Go\n- Postgres",
	}, got)

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, "extract-model", req.Model)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Equal(t, "Bearer gsk_test", f.auth)
}

func TestExtractStripsCodeFence(t *testing.T) {
	f := newFakeProvider(t, http.StatusOK, "```json\n{\"jobTitle\":\"SRE\"}\n```")

	got, err := newTestClient(f).Extract(context.Background(), "posting")
	require.NoError(t, err)
	assert.Equal(t, "SRE", got.Title)
}

func TestExtractMalformedJSON(t *testing.T) {
	f := newFakeProvider(t, http.StatusOK, "Sure! Here is the job: Backend Engineer")

	_, err := newTestClient(f).Extract(context.Background(), "posting")
	var perr *domain.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestExtractProviderError(t *testing.T) {
	f := newFakeProvider(t, http.StatusUnauthorized, "Invalid API Key")

	_, err := newTestClient(f).Extract(context.Background(), "posting")
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "Invalid API Key")
}

func TestExtractNetworkError(t *testing.T) {
	f := newFakeProvider(t, http.StatusOK, "{}")
	c := newTestClient(f)
	f.Close()

	_, err := c.Extract(context.Background(), "posting")
	var nerr *domain.NetworkError
	assert.ErrorAs(t, err, &nerr)
}

func TestMissingProviderKey(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"}, domain.StaticSettings{}, nil)

	_, err := c.Extract(context.Background(), "posting")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCompare(t *testing.T) {
	f := newFakeProvider(t, http.StatusOK,
		`{"matchScore":"72","missingSkills":["Kubernetes"],"experienceGap":[],"recommendations":["Mention Terraform"]}`)

	got, err := newTestClient(f).Compare(context.Background(), "Go developer, 5 years", "Needs Go and Kubernetes")
	require.NoError(t, err)
	assert.Equal(t, domain.Comparison{
		MatchScore:      72,
		MissingSkills:   []string{"Kubernetes"},
		ExperienceGap:   []string{},
		Recommendations: []string{"Mention Terraform"},
	}, got)

	require.Len(t, f.requests, 1)
	assert.Equal(t, "compare-model", f.requests[0].Model)
	assert.Len(t, f.requests[0].Messages, 3)
}

func TestScoreUnmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{`85`, 85},
		{`"64"`, 64},
		{`"90%"`, 90},
		{`72.6`, 73},
		{`140`, 100},
		{`-3`, 0},
	}
	for _, tt := range tests {
		var s score
		require.NoError(t, json.Unmarshal([]byte(tt.in), &s), tt.in)
		assert.Equal(t, tt.want, int(s), tt.in)
	}

	var s score
	assert.Error(t, json.Unmarshal([]byte(`"high"`), &s))
}

func TestCleanJSONBlock(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSONBlock("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSONBlock("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSONBlock(`  {"a":1}  `))
}

func TestCompareRejectsWrongShape(t *testing.T) {
	f := newFakeProvider(t, http.StatusOK, `{"missingSkills":"Kubernetes"}`)

	_, err := newTestClient(f).Compare(context.Background(), "resume", "posting")
	var perr *domain.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "matchScore")
	assert.Contains(t, perr.Message, "missingSkills")
}

func TestValidateJSON(t *testing.T) {
	assert.NoError(t, validateJSON(extractLoader, `{"jobTitle":"SRE","country":null}`))

	var perr *domain.ParseError
	assert.ErrorAs(t, validateJSON(extractLoader, `["SRE"]`), &perr)
	assert.ErrorAs(t, validateJSON(extractLoader, `{"jobTitle":`), &perr)
	assert.ErrorAs(t, validateJSON(compareLoader, `{"matchScore":true}`), &perr)
}
