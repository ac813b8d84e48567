// Package llm rewrites decision messages with an OpenAI-compatible chat model.
package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"golang.org/x/time/rate"

	"github.com/gangu/backend/internal/domain"
)

const (
	defaultModel         = "gpt-4o-mini"
	defaultTimeout       = 30 * time.Second
	defaultRatePerMinute = 30
	maxRetries           = 2
	temperature          = 0.2
)

const systemPrompt = `You explain grocery purchase decisions to elderly shoppers in India.
Rewrite the draft message in simple, warm, short sentences. Never invent prices,
platforms, delivery times or ratings: use only the facts given. Keep amounts in rupees.
Reply with a JSON object with the keys simple_message, why_this_option and what_user_gets.`

// Config configures the narrator
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	Timeout       time.Duration
	RatePerMinute int
}

// Narrator implements domain.Narrator on top of a chat completion API
type Narrator struct {
	client      openai.Client
	model       string
	timeout     time.Duration
	rateLimiter *rate.Limiter
	format      openai.ChatCompletionNewParamsResponseFormatUnion
}

// NewNarrator creates a narrator. An empty API key means narration is off.
func NewNarrator(cfg Config) (*Narrator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.ErrLLMDisabled
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(maxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = defaultRatePerMinute
	}

	return &Narrator{
		client:      openai.NewClient(opts...),
		model:       model,
		timeout:     timeout,
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		format:      narrativeFormat(),
	}, nil
}

// narrativeFormat builds the strict JSON schema response format for domain.Narrative
func narrativeFormat() openai.ChatCompletionNewParamsResponseFormatUnion {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        "decision_narrative",
				Description: openai.String("Plain-language explanation of a purchase decision"),
				Schema:      reflector.Reflect(&domain.Narrative{}),
				Strict:      openai.Bool(true),
			},
		},
	}
}

// Narrate asks the model to rewrite the decision's template message
func (n *Narrator) Narrate(ctx context.Context, decision *domain.Decision, result *domain.ComparisonResult) (*domain.Narrative, error) {
	if decision == nil {
		return nil, fmt.Errorf("%w: nil decision", domain.ErrInvalidRequest)
	}

	if err := n.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	completion, err := n.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(decision, result)),
		},
		Model:          shared.ChatModel(n.model),
		ResponseFormat: n.format,
		Temperature:    openai.Float(temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLLMFailure, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in reply", domain.ErrLLMFailure)
	}

	var narrative domain.Narrative
	if err := ParseModelJSON(completion.Choices[0].Message.Content, &narrative); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLLMFailure, err)
	}
	if strings.TrimSpace(narrative.SimpleMessage) == "" {
		return nil, fmt.Errorf("%w: reply has no simple_message", domain.ErrLLMFailure)
	}

	log.Printf("[LLM] Narrated %s decision in %v", decision.Type, time.Since(start))
	return &narrative, nil
}

// buildPrompt lists the facts the model may use, plus the template draft
func buildPrompt(decision *domain.Decision, result *domain.ComparisonResult) string {
	var b strings.Builder

	if result != nil {
		fmt.Fprintf(&b, "Requested item: %s", result.Request.Item)
		if result.Request.Quantity != "" {
			fmt.Fprintf(&b, " (%s)", result.Request.Quantity)
		}
		fmt.Fprintf(&b, "\nUrgency: %s\n", result.Request.Urgency)
	}

	fmt.Fprintf(&b, "Decision: %s (confidence %s, risk %s)\n", decision.Type, decision.Confidence, decision.Risk)
	if s := decision.Selected; s != nil {
		fmt.Fprintf(&b, "Chosen: %s on %s for ₹%.2f (%s), delivery %s, rated %.1f by %d shoppers\n",
			s.OriginalName, s.Platform, s.Price, s.UnitPriceLabel, s.DeliveryLabel, s.Rating, s.ReviewsCount)
	}
	for _, f := range decision.Fallbacks {
		fmt.Fprintf(&b, "Alternative: %s on %s for ₹%.2f, delivery %s\n", f.OriginalName, f.Platform, f.Price, f.DeliveryLabel)
	}
	if decision.Reasoning.PrimaryReason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", decision.Reasoning.PrimaryReason)
	}
	for _, r := range decision.Reasoning.RisksIdentified {
		fmt.Fprintf(&b, "Risk: %s\n", r)
	}
	if decision.NextAction.ConfirmationMessage != "" {
		fmt.Fprintf(&b, "Question for the user: %s\n", decision.NextAction.ConfirmationMessage)
	}

	fmt.Fprintf(&b, "\nDraft:\n%s\n%s\n%s\n",
		decision.Explanation.SimpleMessage, decision.Explanation.WhyThisOption, decision.Explanation.WhatUserGets)
	return b.String()
}
