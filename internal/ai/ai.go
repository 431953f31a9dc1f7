// Package ai turns job posting text into structured fields, and scores a
// resume against a posting, through an OpenAI-compatible chat endpoint.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/abelaba/job-parser/internal/domain"
)

type Config struct {
	BaseURL      string
	ExtractModel string
	CompareModel string
}

// Client calls the provider with the API key from settings, read per call.
type Client struct {
	cfg        Config
	settings   domain.SettingsSource
	httpClient *http.Client
}

func New(cfg Config, settings domain.SettingsSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{cfg: cfg, settings: settings, httpClient: httpClient}
}

// Extract asks the extraction model for the title, country, company and a
// qualifications summary of a posting.
func (c *Client) Extract(ctx context.Context, text string) (domain.JobFields, error) {
	content, err := c.chat(ctx, c.cfg.ExtractModel,
		llms.TextParts(llms.ChatMessageTypeSystem, extractPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, text),
	)
	if err != nil {
		return domain.JobFields{}, err
	}

	content = cleanJSONBlock(content)
	if err := validateJSON(extractLoader, content); err != nil {
		return domain.JobFields{}, err
	}
	var f domain.JobFields
	if err := json.Unmarshal([]byte(content), &f); err != nil {
		return domain.JobFields{}, &domain.ParseError{Message: "extraction response is not a JSON object", Cause: err}
	}
	return f, nil
}

// Compare scores resume against posting.
func (c *Client) Compare(ctx context.Context, resume, posting string) (domain.Comparison, error) {
	content, err := c.chat(ctx, c.cfg.CompareModel,
		llms.TextParts(llms.ChatMessageTypeSystem, comparePrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, "Resume:\n"+resume),
		llms.TextParts(llms.ChatMessageTypeHuman, "Job posting:\n"+posting),
	)
	if err != nil {
		return domain.Comparison{}, err
	}

	content = cleanJSONBlock(content)
	if err := validateJSON(compareLoader, content); err != nil {
		return domain.Comparison{}, err
	}
	var raw struct {
		MatchScore      score    `json:"matchScore"`
		MissingSkills   []string `json:"missingSkills"`
		ExperienceGap   []string `json:"experienceGap"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return domain.Comparison{}, &domain.ParseError{Message: "comparison response is not a JSON object", Cause: err}
	}
	return domain.Comparison{
		MatchScore:      int(raw.MatchScore),
		MissingSkills:   nonNil(raw.MissingSkills),
		ExperienceGap:   nonNil(raw.ExperienceGap),
		Recommendations: nonNil(raw.Recommendations),
	}, nil
}

func (c *Client) chat(ctx context.Context, model string, msgs ...llms.MessageContent) (string, error) {
	st, err := c.settings.Settings(ctx)
	if err != nil {
		return "", err
	}
	if st.ProviderAPIKey == "" {
		return "", &domain.ValidationError{Field: "provider API key", Message: "not set"}
	}

	rec := &recordingTransport{next: c.httpClient.Transport}
	hc := *c.httpClient
	hc.Transport = rec

	llm, err := openai.New(
		openai.WithToken(st.ProviderAPIKey),
		openai.WithBaseURL(c.cfg.BaseURL),
		openai.WithModel(model),
		openai.WithHTTPClient(&hc),
	)
	if err != nil {
		return "", &domain.ProviderError{Message: err.Error(), Cause: err}
	}

	resp, err := llm.GenerateContent(ctx, msgs, llms.WithJSONMode())
	if err != nil {
		if terr := rec.failure(); terr != nil {
			return "", &domain.NetworkError{Endpoint: c.cfg.BaseURL, Cause: terr}
		}
		return "", &domain.ProviderError{Message: providerMessage(err), Cause: err}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", &domain.ParseError{Message: "empty response from provider"}
	}
	return resp.Choices[0].Content, nil
}

// recordingTransport remembers a transport failure so it can be told apart
// from an error the provider answered with.
type recordingTransport struct {
	next http.RoundTripper

	mu  sync.Mutex
	err error
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(req)
	if err != nil {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
	}
	return resp, err
}

func (t *recordingTransport) failure() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

var statusPrefix = regexp.MustCompile(`status code: \d+: `)

// providerMessage keeps the provider's own error text when the client
// library prefixed it with the HTTP status.
func providerMessage(err error) string {
	msg := err.Error()
	if loc := statusPrefix.FindStringIndex(msg); loc != nil {
		return msg[loc[1]:]
	}
	return msg
}

// cleanJSONBlock removes markdown code fences around a JSON answer.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// score is a match percentage sent as a JSON number or a numeric string,
// clamped to 0..100.
type score int

func (s *score) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("matchScore: %w", err)
		}
		str = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(str), "%"))
		v, err = strconv.ParseFloat(str, 64)
		if err != nil {
			return fmt.Errorf("matchScore: %w", err)
		}
	}
	if math.IsNaN(v) {
		return errors.New("matchScore: not a number")
	}
	*s = score(math.Round(math.Max(0, math.Min(100, v))))
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
