package theme

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/hpungsan/mnemo/internal/alphabet"
	"github.com/hpungsan/mnemo/internal/keywords"
)

const themePrompt = `다음 주제와 관련된 한국어 명사를 %d개 생성하세요: %q

규칙:
- 각 단어는 2~4음절의 한글 명사입니다.
- 각 단어는 자음으로 시작하는 음절을 최소 하나 포함합니다.
- 중복 없이 흔하고 기억하기 쉬운 단어를 고르세요.
- JSON 문자열 배열만 응답하세요. 설명이나 마크다운 없이.`

// Generator produces raw model output for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenaiGenerator calls the Gemini API through google.golang.org/genai.
type GenaiGenerator struct {
	client *genai.Client
	model  string
}

// NewGenaiGenerator creates a Gemini API client for model.
func NewGenaiGenerator(ctx context.Context, apiKey, model string) (*GenaiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenaiGenerator{client: client, model: model}, nil
}

// Generate implements Generator.
func (g *GenaiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.7)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty gemini response")
	}
	return text, nil
}

// GeminiPool asks a language model for theme words. Results are cached per
// theme and requests are rate limited.
type GeminiPool struct {
	gen     Generator
	limiter *rate.Limiter
	count   int

	mu    sync.Mutex
	cache map[string][]string
}

// DefaultGeminiWords is the number of words requested per theme.
const DefaultGeminiWords = 24

// NewGeminiPool wraps gen. rpm <= 0 disables rate limiting.
func NewGeminiPool(gen Generator, rpm int) *GeminiPool {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60), 1)
	}
	return &GeminiPool{
		gen:     gen,
		limiter: limiter,
		count:   DefaultGeminiWords,
		cache:   make(map[string][]string),
	}
}

// WordsForTheme implements Pool.
func (p *GeminiPool) WordsForTheme(ctx context.Context, theme string) ([]string, error) {
	key := keywords.Normalize(theme)
	if key == "" {
		return nil, nil
	}

	p.mu.Lock()
	cached, ok := p.cache[key]
	p.mu.Unlock()
	if ok {
		return append([]string(nil), cached...), nil
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("theme rate limit: %w", err)
	}

	text, err := p.gen.Generate(ctx, fmt.Sprintf(themePrompt, p.count, theme))
	if err != nil {
		return nil, err
	}
	words, err := parseWords(text)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[key] = words
	p.mu.Unlock()
	return append([]string(nil), words...), nil
}

// parseWords decodes a JSON string array, keeping words that yield digits.
func parseWords(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var raw []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("parse theme words: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, w := range keywords.Clean(raw) {
		if alphabet.Digits(w) != "" {
			out = append(out, w)
		}
	}
	return out, nil
}
