package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"papum-backend/logger"
	"papum-backend/models"

	"github.com/redis/go-redis/v9"
	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

const (
	MaxTipLength = 200

	OnboardingTip   = "Adicione algumas despesas para receber uma análise inteligente sobre a economia da casa."
	EmptyAnswerTip  = "Continue gerenciando suas contas com sabedoria!"
	UnavailableTip  = "Mantenha o foco na organização financeira da casa!"
	tipCachePrefix  = "papum:tip:"
	generateTimeout = 20 * time.Second
)

var errEmptyAnswer = errors.New("model returned no text")

// TextGenerator produces free text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini generateContent endpoint.
type GeminiGenerator struct {
	svc   *generativelanguage.Service
	model string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	svc, err := generativelanguage.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &GeminiGenerator{svc: svc, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.svc.Models.GenerateContent("models/"+g.model, &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: prompt}},
		}},
		GenerationConfig: &generativelanguage.GenerationConfig{
			Temperature: 0.7,
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
		break
	}
	return sb.String(), nil
}

// Advisor produces a short spending tip from a category summary. It never
// fails: problems turn into a static fallback.
type Advisor struct {
	gen   TextGenerator
	cache *redis.Client
	ttl   time.Duration
	log   *slog.Logger
}

// NewAdvisor accepts a nil generator (always fall back) and a nil cache.
func NewAdvisor(gen TextGenerator, cache *redis.Client, ttl time.Duration) *Advisor {
	return &Advisor{gen: gen, cache: cache, ttl: ttl, log: logger.Component("advisor")}
}

// Tip returns the tip and whether it is a fallback.
func (a *Advisor) Tip(ctx context.Context, categories []models.CategoryTotal) (string, bool) {
	if len(categories) == 0 {
		return OnboardingTip, true
	}

	summary := SummarizeCategories(categories)
	key := tipCachePrefix + hashSummary(summary)

	if a.cache != nil {
		if cached, err := a.cache.Get(ctx, key).Result(); err == nil && cached != "" {
			return cached, false
		} else if err != nil && !errors.Is(err, redis.Nil) {
			a.log.Warn("Tip cache read failed", "error", err)
		}
	}

	if a.gen == nil {
		return UnavailableTip, true
	}

	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	text, err := a.gen.Generate(genCtx, BuildTipPrompt(summary))
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = errEmptyAnswer
	}
	if err != nil {
		a.log.Warn("❌ Tip generation failed, using fallback", "error", err)
		if errors.Is(err, errEmptyAnswer) {
			return EmptyAnswerTip, true
		}
		return UnavailableTip, true
	}

	tip := truncateRunes(text, MaxTipLength)
	if a.cache != nil {
		if err := a.cache.Set(ctx, key, tip, a.ttl).Err(); err != nil {
			a.log.Warn("Tip cache write failed", "error", err)
		}
	}
	return tip, false
}

// SummarizeCategories renders "Category: R$ 0.00" pairs joined by commas.
func SummarizeCategories(categories []models.CategoryTotal) string {
	parts := make([]string, 0, len(categories))
	for _, c := range categories {
		parts = append(parts, fmt.Sprintf("%s: R$ %s", c.Category, c.Total.StringFixed(2)))
	}
	return strings.Join(parts, ", ")
}

func BuildTipPrompt(summary string) string {
	return fmt.Sprintf("Você é um consultor financeiro doméstico. Analise estes gastos mensais de uma casa dividida entre amigos: %s. "+
		"Dê uma dica curta (máximo %d caracteres) em português brasileiro sobre como economizar ou gerenciar melhor esses tipos de gastos específicos.",
		summary, MaxTipLength)
}

func hashSummary(summary string) string {
	sum := sha256.Sum256([]byte(summary))
	return hex.EncodeToString(sum[:])
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max-1])) + "…"
}
