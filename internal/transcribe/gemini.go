package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"

	"captionforge/internal/logger"
	"captionforge/internal/transcript"
)

const geminiPrompt = `Transcribe the attached audio clip.

Return ONLY a JSON array, no prose and no code fences. Each element must be
an object with keys "start", "end" and "text", where start and end are
seconds (decimal) relative to the beginning of this clip and text is the
spoken phrase. Keep phrases short (one sentence or less).`

type geminiBackend struct {
	mu         sync.Mutex
	apiKeys    []string
	currentKey int
	model      string
	logger     logger.Logger
}

// NewGeminiBackend creates a Backend that sends each window's audio to the
// Gemini API, rotating through the supplied API keys on quota errors.
func NewGeminiBackend(apiKeys []string, model string, log logger.Logger) Backend {
	return &geminiBackend{
		apiKeys: apiKeys,
		model:   model,
		logger:  log,
	}
}

func (b *geminiBackend) TranscribeWindow(ctx context.Context, audioPath string) ([]transcript.Segment, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read window audio: %w", err)
	}

	attempts := len(b.apiKeys)
	if attempts == 0 {
		return nil, fmt.Errorf("no Gemini API keys configured")
	}

	var lastErr error
	for range attempts {
		key := b.pickKey()

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			b.rotateKey()
			continue
		}

		contents := []*genai.Content{
			genai.NewContentFromParts([]*genai.Part{
				genai.NewPartFromText(geminiPrompt),
				genai.NewPartFromBytes(data, "audio/wav"),
			}, genai.RoleUser),
		}

		result, err := client.Models.GenerateContent(ctx, b.model, contents, nil)
		if err != nil {
			errMsg := err.Error()
			if strings.Contains(errMsg, "429") || strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "RESOURCE_EXHAUSTED") {
				b.logger.Warn(ctx, "Gemini key rate limited, rotating...")
				b.rotateKey()
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("generate content: %w", err)
		}

		text := responseText(result)
		if text == "" {
			return nil, fmt.Errorf("empty response from Gemini")
		}
		return parseGeminiSegments(text)
	}

	return nil, fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (b *geminiBackend) pickKey() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.apiKeys[b.currentKey]
}

func (b *geminiBackend) rotateKey() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.currentKey = (b.currentKey + 1) % len(b.apiKeys)
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text
}

func parseGeminiSegments(text string) ([]transcript.Segment, error) {
	// Models occasionally wrap the payload in fences despite instructions.
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var segments []transcript.Segment
	if err := json.Unmarshal([]byte(text), &segments); err != nil {
		return nil, fmt.Errorf("parse Gemini response: %w", err)
	}
	return segments, nil
}
