// Package enrich adds an optional AI-generated deal narrative and strategy
// suggestion to an analysis. The enrichment path is never a hard dependency:
// every failure mode falls back to a deterministic narrative.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/resilience"
)

// Narrative is the enrichment output attached alongside an analysis.
type Narrative struct {
	Summary           string `json:"summary"`
	SuggestedStrategy string `json:"suggested_strategy,omitempty"`
	// Generated is false when the deterministic fallback was used.
	Generated bool `json:"generated"`
}

// Narrator produces a deal narrative for an analyzed property.
type Narrator interface {
	Narrate(ctx context.Context, p model.PropertyRecord, a *model.AnalysisResult) Narrative
}

const systemPrompt = `You are summarizing a real-estate acquisition analysis for an investor.
Given the property and computed figures, write a 2-3 sentence plain-English summary and
optionally suggest the single best exit strategy from: wholesale, flip, brrrr, rental, sub_to, wrap, jv.

Respond with ONLY valid JSON, no other text:
{"summary": "...", "suggested_strategy": "..."}`

type narrativeResponse struct {
	Summary           string `json:"summary"`
	SuggestedStrategy string `json:"suggested_strategy"`
}

// Client calls the Anthropic API behind a rate limiter and circuit breaker.
type Client struct {
	api       messageAPI
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	breaker   *resilience.Breaker
}

// messageAPI is the slice of the SDK the narrator uses, for test injection.
type messageAPI interface {
	newMessage(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error)
}

type sdkAPI struct {
	client sdk.Client
}

func (s *sdkAPI) newMessage(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error) {
	return s.client.Messages.New(ctx, params)
}

// NewClient creates an enrichment client from config.
func NewClient(cfg config.EnrichConfig) *Client {
	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 20
	}
	breaker := resilience.NewBreaker(
		cfg.BreakerThreshold,
		time.Duration(cfg.BreakerCooldownS)*time.Second,
		func(from, to resilience.State) {
			zap.L().Warn("enrich: circuit state change",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	)
	return &Client{
		api:       &sdkAPI{client: sdk.NewClient(option.WithAPIKey(cfg.APIKey))},
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		limiter:   rate.NewLimiter(rate.Limit(rpm/60), 1),
		breaker:   breaker,
	}
}

// Narrate generates a narrative for the analysis. Rate-limit waits respect
// ctx; breaker rejections and API failures degrade to the fallback.
func (c *Client) Narrate(ctx context.Context, p model.PropertyRecord, a *model.AnalysisResult) Narrative {
	if err := c.limiter.Wait(ctx); err != nil {
		return Fallback(p, a)
	}

	resp, err := resilience.Do(ctx, c.breaker, func(ctx context.Context) (*narrativeResponse, error) {
		return c.generate(ctx, p, a)
	})
	if err != nil {
		zap.L().Warn("enrich: narrative generation failed, using fallback",
			zap.String("property_id", p.ID),
			zap.Error(err),
		)
		return Fallback(p, a)
	}

	n := Narrative{
		Summary:           strings.TrimSpace(resp.Summary),
		SuggestedStrategy: normalizeStrategy(resp.SuggestedStrategy),
		Generated:         true,
	}
	if n.Summary == "" {
		return Fallback(p, a)
	}
	return n
}

func (c *Client) generate(ctx context.Context, p model.PropertyRecord, a *model.AnalysisResult) (*narrativeResponse, error) {
	payload, err := json.Marshal(map[string]any{
		"address":        p.Address,
		"asking_price":   p.AskingPrice,
		"arv":            a.Valuation.ARV,
		"repairs":        a.Valuation.RepairEstimate,
		"equity_percent": a.Scores.EquityPercent,
		"deal_score":     a.Scores.DealScore,
		"classification": a.Classification.Tier,
		"recommended":    a.MAO.Recommended,
		"strategy":       a.MAO.RecommendedStrategy,
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: marshal payload")
	}

	msg, err := c.api.newMessage(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(string(payload))),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: create message")
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, eris.New("enrich: empty response")
	}

	return parseNarrative(text)
}

// parseNarrative extracts the JSON object from the response text, tolerating
// surrounding prose.
func parseNarrative(text string) (*narrativeResponse, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, eris.New("enrich: no JSON object in response")
	}
	var resp narrativeResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, eris.Wrap(err, "enrich: parse response")
	}
	return &resp, nil
}

// normalizeStrategy keeps only suggestions that name a catalog strategy.
func normalizeStrategy(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, key := range model.StrategyCatalog {
		if s == string(key) {
			return s
		}
	}
	return ""
}

// Fallback builds the deterministic narrative used whenever enrichment is
// disabled, rejected or failing.
func Fallback(p model.PropertyRecord, a *model.AnalysisResult) Narrative {
	return Narrative{
		Summary: fmt.Sprintf(
			"%s classified %s: ARV $%.0f against asking $%.0f with $%.0f estimated repairs; recommended offer $%.0f via %s.",
			p.Address,
			a.Classification.Tier,
			a.Valuation.ARV,
			p.AskingPrice,
			a.Valuation.RepairEstimate,
			a.MAO.Recommended,
			a.MAO.RecommendedStrategy,
		),
	}
}
