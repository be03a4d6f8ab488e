// Package generator implements the Response Generator (spec §4.8):
// mode-specific prompt assembly, a streaming token callback with a
// real-time artifact scrub, governance application on the assembled
// response, and a tiered claim-extraction fallback.
package generator

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/kitchencore/reasoner/pkg/governance"
	"github.com/kitchencore/reasoner/pkg/llm"
)

// PromptInputs bundles everything prompt assembly needs.
type PromptInputs struct {
	Mode              governance.Mode
	UserMessage       string
	NumericConfidenceBlock string // present only if Mode == NUMERIC_ANALYSIS
	VerifiedIntelligenceBlock string // present only if compound data resolved
	PhaseContextBlock string // present only if phase results exist
	Persona           string // mode-specific base persona
	ModeConstraints   string
}

// AssemblePrompt builds the ordered block chain: persona, constraints,
// (numeric) confidence block, (compound) verified-intelligence block,
// (phase) context block, then the user message.
func AssemblePrompt(in PromptInputs) []llm.Message {
	var system strings.Builder
	system.WriteString(in.Persona)
	if in.ModeConstraints != "" {
		system.WriteString("\n\n")
		system.WriteString(in.ModeConstraints)
	}
	if in.Mode == governance.ModeNumericAnalysis && in.NumericConfidenceBlock != "" {
		system.WriteString("\n\n")
		system.WriteString(in.NumericConfidenceBlock)
	}
	if in.VerifiedIntelligenceBlock != "" {
		system.WriteString("\n\n")
		system.WriteString(in.VerifiedIntelligenceBlock)
	}
	if in.PhaseContextBlock != "" {
		system.WriteString("\n\n")
		system.WriteString(in.PhaseContextBlock)
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system.String()},
		{Role: llm.RoleUser, Content: in.UserMessage},
	}
}

var artifactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<thinking>.*?</thinking>`),
	regexp.MustCompile(`(?i)\b(Thought|Action|Observation)\s*:`),
	regexp.MustCompile(`(?i)^(System|Assistant)\s*:\s*`),
}

// ScrubToken drops recognized artifacts (thinking markers, ReAct labels,
// system-prompt echo fragments) from one streamed token before it's
// enqueued onto the stream orchestrator.
func ScrubToken(token string) string {
	out := token
	for _, p := range artifactPatterns {
		out = p.ReplaceAllString(out, "")
	}
	return out
}

// TokenSink receives scrubbed, generation-ordered tokens -- typically the
// stream orchestrator's Token method.
type TokenSink func(ctx context.Context, text string)

// StreamAndScrub drains chunks from client.Stream, scrubbing and
// forwarding non-thinking content to sink, and returns the full
// assembled (unscrubbed-governance, post-artifact-scrub) text once
// complete.
func StreamAndScrub(ctx context.Context, client llm.ChatClient, req llm.Request, sink TokenSink) (string, error) {
	chunks, errs := client.Stream(ctx, req)
	var full strings.Builder

	for chunk := range chunks {
		if chunk.IsThinking {
			continue
		}
		clean := ScrubToken(chunk.Content)
		if clean == "" {
			continue
		}
		full.WriteString(clean)
		if sink != nil {
			sink(ctx, clean)
		}
	}
	if err := <-errs; err != nil {
		return full.String(), err
	}
	return full.String(), nil
}

// GovernedResponse applies mode-aware nutrition governance to the fully
// assembled response (spec §4.8 governance subsection).
func GovernedResponse(fullText string, mode governance.Mode) string {
	return governance.Apply(fullText, mode)
}

var mechanisticMarkers = []string{"because", "due to", "activates", "inhibits", "mechanism", "receptor", "cid:"}

// UsesMechanisticLanguage reports whether the narrative asserts a
// mechanism, the trigger for the claim-extraction fallback's
// invalid-validation-status rule.
func UsesMechanisticLanguage(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range mechanisticMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

var claimRegexPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([A-Za-z][A-Za-z\s]{2,40})\s+(activates|inhibits|binds to|triggers)\s+([A-Za-z][A-Za-z0-9\s-]{2,40})`),
}

// ExtractedClaim is a medium-confidence claim recovered by the regex tier.
type ExtractedClaim struct {
	Subject    string
	Mechanism  string
	Object     string
	Confidence float64
}

// RegexExtractClaims is the first claim-extraction fallback tier: cheap
// pattern matching over the assembled response.
func RegexExtractClaims(text string) []ExtractedClaim {
	var claims []ExtractedClaim
	for _, p := range claimRegexPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			claims = append(claims, ExtractedClaim{
				Subject:    strings.TrimSpace(m[1]),
				Mechanism:  strings.ToLower(strings.TrimSpace(m[2])),
				Object:     strings.TrimSpace(m[3]),
				Confidence: 0.5,
			})
		}
	}
	return claims
}

// LLMExtractor is the bounded second-tier extractor; it must respect the
// 25s timeout itself or have it imposed by the caller via context.
type LLMExtractor interface {
	ExtractClaims(ctx context.Context, text string) ([]ExtractedClaim, error)
}

const llmExtractionTimeout = 25 * time.Second

// ExtractClaimsFallback runs the tiered recovery: regex first, and only
// if that yields nothing, a time-bounded LLM extraction. If both yield
// nothing and the narrative uses mechanistic language, it reports that
// condition through its mechanisticButEmpty result; it records nothing
// on a trace itself.
func ExtractClaimsFallback(ctx context.Context, text string, extractor LLMExtractor) (claims []ExtractedClaim, mechanisticButEmpty bool, err error) {
	claims = RegexExtractClaims(text)
	if len(claims) > 0 {
		return claims, false, nil
	}

	if extractor != nil {
		boundedCtx, cancel := context.WithTimeout(ctx, llmExtractionTimeout)
		defer cancel()
		claims, err = extractor.ExtractClaims(boundedCtx, text)
		if err != nil {
			claims = nil // timeout or failure: extraction yields nothing
		}
	}

	if len(claims) == 0 && UsesMechanisticLanguage(text) {
		return nil, true, nil
	}
	return claims, false, nil
}
