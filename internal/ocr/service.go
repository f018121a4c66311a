package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spinecat/spinecat/internal/gemini"
	"github.com/spinecat/spinecat/internal/models"
	"github.com/spinecat/spinecat/internal/ollama"
	"github.com/spinecat/spinecat/internal/openai"
	"github.com/spinecat/spinecat/internal/providers"
)

// Service extracts per-spine text from bookshelf images using LLM vision
// capabilities, which handle rotated and stacked spine type far better
// than traditional OCR.
type Service struct{}

// NewService creates a new OCR service
func NewService() *Service {
	return &Service{}
}

// ExtractSpines reads a shelf image and returns one SpineText per book
// spine the vision model can distinguish, in left-to-right order.
func (s *Service) ExtractSpines(ctx context.Context, imagePath, provider, model string) ([]models.SpineText, error) {
	if provider == "" {
		provider = os.Getenv("SPINECAT_PROVIDER")
		if provider == "" {
			provider = "ollama"
		}
	}
	if model == "" {
		model = s.defaultModel(provider)
	}

	p, err := s.provider(provider)
	if err != nil {
		return nil, err
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image for OCR: %w", err)
	}

	raw, err := p.ExtractText(ctx, providers.Config{
		Model:       model,
		Temperature: 0.0,
		Prompt:      spinePrompt,
		Images:      []string{base64.StdEncoding.EncodeToString(imageData)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to extract spine text: %w", err)
	}

	spines := ParseSpineLines(raw)
	slog.Info("Extracted spine text", "provider", provider, "model", model, "spines", len(spines))
	return spines, nil
}

func (s *Service) provider(name string) (providers.Provider, error) {
	switch name {
	case "ollama":
		return ollama.New(), nil
	case "openai":
		return openai.New(), nil
	case "gemini":
		return gemini.New(), nil
	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s", name)
	}
}

func (s *Service) defaultModel(provider string) string {
	switch provider {
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o"
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return "gemini-1.5-flash"
	case "ollama":
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "mistral-small3.2:24b"
	default:
		return ""
	}
}

// ParseSpineLines converts raw model output into SpineText values, one per
// non-empty line, dropping list markers and filler the model sometimes
// prepends despite the prompt.
func ParseSpineLines(raw string) []models.SpineText {
	var spines []models.SpineText
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "here is") || strings.HasPrefix(lower, "here are") {
			continue
		}
		spines = append(spines, models.SpineText{
			SpineID: fmt.Sprintf("spine_%d", len(spines)+1),
			Text:    line,
		})
	}
	return spines
}

const spinePrompt = `You are reading the spines of books on a shelf photograph.

Your task is to transcribe the text printed on each visible book spine.

INSTRUCTIONS:
1. Scan the shelf from left to right
2. Output exactly one line per book spine
3. On each line, write the spine text as printed: title, author, publisher, in the order they appear
4. Preserve capitalization and spelling exactly, even when it looks wrong
5. If a spine is partly illegible, transcribe what you can read
6. Skip spines with no readable text
7. Do not add any interpretation, commentary, or explanations

OUTPUT FORMAT:
Provide ONLY the spine lines. Do not number them. Do not include phrases
like "Here is the text:".

Example output:
THE HUNGER GAMES SUZANNE COLLINS SCHOLASTIC
A Brief History of Time STEPHEN HAWKING
MOBY DICK Melville`
