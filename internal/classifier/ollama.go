package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/carzh/robot-color-picker/internal/color"
	"github.com/carzh/robot-color-picker/internal/config"
)

// Ollama asks a generate endpoint to pick one of the candidates. The picked
// label scores 1 and every other label 0. All candidates go into a single
// prompt, so a Score call costs one request.
type Ollama struct {
	endpoint string
	model    string
	client   *http.Client
	logger   *zap.Logger
}

// NewOllama creates an Ollama classifier.
func NewOllama(cfg config.OllamaConfig, logger *zap.Logger) *Ollama {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ollama{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		client:   &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		logger:   logger,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Score implements resolver.Classifier.
func (o *Ollama) Score(ctx context.Context, command string, candidates []color.Color) ([]float64, error) {
	body, err := json.Marshal(generateRequest{
		Model:  o.model,
		Prompt: choicePrompt(command, candidates),
		Stream: false,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generate endpoint returned %s", resp.Status)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode generate response: %w", err)
	}

	scores := make([]float64, len(candidates))
	pick := pickChoice(parsed.Response, candidates)
	if pick < 0 {
		o.logger.Warn("model answer names no candidate",
			zap.String("command", command),
			zap.String("answer", parsed.Response),
		)
		return scores, nil
	}
	scores[pick] = 1
	return scores, nil
}

func choicePrompt(command string, candidates []color.Color) string {
	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = c.String()
	}
	return fmt.Sprintf(`Which color is this request about?
Request: "%s"
Choices: %s
Answer with exactly one word from the choices and nothing else.`,
		strings.TrimSpace(command), strings.Join(labels, ", "))
}

// pickChoice returns the index of the candidate mentioned first in the
// answer, or -1.
func pickChoice(answer string, candidates []color.Color) int {
	words := strings.Fields(normalize(answer))
	for _, w := range words {
		for i, c := range candidates {
			if w == c.String() {
				return i
			}
		}
	}
	return -1
}
