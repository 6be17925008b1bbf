package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/ratelimit"
)

// AuthorProfile is the generated author description.
type AuthorProfile struct {
	Info  string `json:"author_info"`
	Works string `json:"author_works"`
}

// LLMClient talks to an OpenAI-compatible chat completions endpoint.
type LLMClient struct {
	http    *httpClient
	baseURL string
	apiKey  string
	model   string
}

func NewLLMClient(baseURL, apiKey, model string, limiter *ratelimit.KeyedRateLimiter) *LLMClient {
	return &LLMClient{
		http:    newHTTPClient("llm", 60*time.Second, limiter),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *LLMClient) chat(ctx context.Context, msgs []chatMessage, jsonMode bool) (string, error) {
	reqBody := chatRequest{Model: c.model, Messages: msgs, Temperature: 0.3}
	if jsonMode {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	body, err := c.http.do(req)
	if err != nil {
		return "", err
	}
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// AuthorProfile asks the model for a short author biography and notable works.
func (c *LLMClient) AuthorProfile(ctx context.Context, book *entities.Book, summary *Summary) (*AuthorProfile, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Book: %q\nAuthor: %q\n", book.Title, book.Author)
	if summary != nil && summary.Markdown != "" {
		fmt.Fprintf(&prompt, "Encyclopedia summary:\n%s\n", summary.Markdown)
	}
	prompt.WriteString(`Reply with a JSON object with two string fields: "author_info", a biography of the author in at most 5 sentences, and "author_works", the author's notable works as a comma separated list.`)

	content, err := c.chat(ctx, []chatMessage{
		{Role: "system", Content: "You are a librarian writing short, factual author notes for a book club."},
		{Role: "user", Content: prompt.String()},
	}, true)
	if err != nil {
		return nil, err
	}

	var profile AuthorProfile
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &profile); err != nil {
		return nil, fmt.Errorf("llm: decode author profile: %w", err)
	}
	if strings.TrimSpace(profile.Info) == "" {
		return nil, fmt.Errorf("llm: author profile has no author_info")
	}
	return &profile, nil
}

// NarrationScript asks the model for a short spoken introduction to the book.
func (c *LLMClient) NarrationScript(ctx context.Context, book *entities.Book, summary *Summary) (string, error) {
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Write a spoken introduction of about 120 words to the book %q by %s for a book club podcast.", book.Title, book.Author)
	if book.AuthorInfo != "" {
		fmt.Fprintf(&prompt, "\nAbout the author: %s", book.AuthorInfo)
	}
	if summary != nil && summary.Markdown != "" {
		fmt.Fprintf(&prompt, "\nBackground: %s", summary.Markdown)
	}
	prompt.WriteString("\nPlain text only.")

	return c.chat(ctx, []chatMessage{{Role: "user", Content: prompt.String()}}, false)
}

// stripCodeFence removes a ```json fence some models wrap around JSON output.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
