package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mrlokans/bookclub/internal/ratelimit"
)

// maxSpeechInput is the longest text the speech endpoint accepts.
const maxSpeechInput = 4096

// SpeechClient calls an OpenAI-compatible /audio/speech endpoint.
type SpeechClient struct {
	http    *httpClient
	baseURL string
	apiKey  string
	model   string
	voice   string
}

func NewSpeechClient(baseURL, apiKey, model, voice string, limiter *ratelimit.KeyedRateLimiter) *SpeechClient {
	return &SpeechClient{
		http:    newHTTPClient("tts", 120*time.Second, limiter),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		voice:   voice,
	}
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize returns mp3 audio for text.
func (c *SpeechClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("tts: empty input")
	}
	if runes := []rune(text); len(runes) > maxSpeechInput {
		text = string(runes[:maxSpeechInput])
	}

	payload, err := json.Marshal(speechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          c.voice,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("tts: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tts: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	audio, err := c.http.do(req)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts: empty audio")
	}
	return audio, nil
}
