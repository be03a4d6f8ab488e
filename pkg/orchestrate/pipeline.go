// Package orchestrate wires the per-request pipeline (policy -> mode ->
// memory -> phase -> retrieval -> scheduler -> generator -> trace ->
// stream) into a single entry point the HTTP layer calls per chat
// request.
package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kitchencore/reasoner/pkg/agent"
	"github.com/kitchencore/reasoner/pkg/compounds"
	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/kitchencore/reasoner/pkg/generator"
	"github.com/kitchencore/reasoner/pkg/governance"
	"github.com/kitchencore/reasoner/pkg/llm"
	"github.com/kitchencore/reasoner/pkg/memory"
	"github.com/kitchencore/reasoner/pkg/mode"
	"github.com/kitchencore/reasoner/pkg/phase"
	"github.com/kitchencore/reasoner/pkg/policy"
	"github.com/kitchencore/reasoner/pkg/resourcemon"
	"github.com/kitchencore/reasoner/pkg/retrieval"
	"github.com/kitchencore/reasoner/pkg/scheduler"
	"github.com/kitchencore/reasoner/pkg/session"
	"github.com/kitchencore/reasoner/pkg/stream"
	"github.com/kitchencore/reasoner/pkg/trace"
)

// PolicyIdentity is the registry/ontology/policy version triple the
// trace must be locked to before any claim is resolved (spec §4.10).
type PolicyIdentity struct {
	RegistryVersion string
	RegistryHash    string
	OntologyVersion string
	PolicyID        string
	PolicyVersion   string
	PolicyHash      string
}

// Pipeline bundles every dependency one request's orchestration needs.
type Pipeline struct {
	Config    config.Config
	Monitor   *resourcemon.Monitor
	Sessions  session.Store
	Extractor memory.Extractor
	Claims    generator.LLMExtractor
	Fetcher   retrieval.Fetcher
	Compounds *compounds.Client
	Client    llm.ChatClient
	Identity  PolicyIdentity
	Log       *slog.Logger
}

// Request is one incoming chat turn.
type Request struct {
	SessionID   string
	UserID      string
	Message     string
	ExplicitMode policy.Profile
	CurrentIngredients []string
}

// Run executes the full pipeline for one request, emitting every event
// onto out as it becomes available, and returns once the stream's
// terminal done event has been sent.
func (p *Pipeline) Run(ctx context.Context, req Request, out *stream.Orchestrator) {
	out.Run(ctx, func(ctx context.Context) error {
		return p.execute(ctx, req, out)
	})
}

func (p *Pipeline) execute(ctx context.Context, req Request, out *stream.Orchestrator) error {
	log := p.logger().With("session_id", req.SessionID, "user_id", req.UserID)

	// 1. Resolve session ownership, lazy creation, and idle decay.
	now := time.Now()
	sess, err := session.Resolve(ctx, p.Sessions, req.SessionID, req.UserID, p.Config.Session.IdleDecayAfter, now)
	if err != nil {
		return err
	}
	if err := session.RecordFirstTitle(ctx, p.Sessions, sess, req.Message); err != nil {
		return err
	}
	if err := p.Sessions.AppendMessage(ctx, session.Message{SessionID: sess.ID, Role: session.RoleUser, Content: req.Message, CreatedAt: now}); err != nil {
		return err
	}

	// 2. Sample resource pressure and decide the execution policy.
	out.Status(ctx, "resolving policy")
	resStatus, err := p.Monitor.Status(ctx)
	if err != nil {
		return err
	}
	execPolicy := policy.Decide(policy.Input{
		Message:      req.Message,
		ExplicitMode: req.ExplicitMode,
		Resource:     resStatus,
		Degraded:     p.Monitor.Degraded(),
		Pressure:     p.Monitor.PressureClassOf(resStatus.SwapMB),
	}, p.Config.Policy, p.Config.Vocabulary)
	if execPolicy.DowngradeReason != "" {
		log.Info("policy downgraded", "profile", execPolicy.Profile, "reason", execPolicy.DowngradeReason)
	}

	// 3. Classify conversational mode (sticky across turns).
	prevMode := mode.State(sess.ResponseMode)
	modeResult := mode.Classify(mode.Input{Message: req.Message, Previous: prevMode}, p.Config.Vocabulary, log)
	sess.ResponseMode = session.ResponseMode(modeResult.State)

	// 4. Load remembered preferences, update them, decay stale ones.
	prefs, err := p.Sessions.GetPreferences(ctx, req.UserID)
	if err != nil {
		return err
	}
	memPrefs := toMemoryPreferences(prefs)
	if p.Extractor != nil {
		memPrefs, err = memory.Update(ctx, memPrefs, req.Message, p.Config.Vocabulary, p.Extractor, now)
		if err != nil {
			log.Warn("preference extraction failed", "error", err)
		}
	}
	memPrefs = memory.Decay(memPrefs, now, p.Config.Session.PreferenceIdleDays, p.Config.Session.PreferenceDecayDelta)
	if err := p.Sessions.UpsertPreferences(ctx, fromMemoryPreferences(req.UserID, memPrefs)); err != nil {
		return err
	}

	// 5. Select reasoning phases for this turn.
	phasePrefs := phase.Preferences{SkillLevel: memPrefs[memory.Skill].Value, HasEquipment: memPrefs[memory.Equipment].Value != ""}
	selectedPhases := phase.Select(phase.Input{
		Message:          req.Message,
		PreviousMode:     prevMode,
		IntentConfidence: 1.0,
		Preferences:      phasePrefs,
	}, p.Config.Vocabulary)

	// 6. Route and fetch retrieved context.
	indexes := retrieval.Route(req.Message, p.Config.Vocabulary, log)
	retrieved := map[string][]string{}
	if p.Fetcher != nil {
		for _, idx := range indexes {
			snippets, err := p.Fetcher.Fetch(ctx, idx, req.Message)
			if err != nil {
				log.Warn("retrieval fetch failed", "index", idx, "error", err)
				continue
			}
			retrieved[idx] = snippets
		}
	}

	// 7. Build and run the agent DAG under the decided policy.
	out.Status(ctx, "running agents")
	ac := agent.Context{
		Message:      req.Message,
		Mode:         string(modeResult.State),
		Phases:       phaseNames(selectedPhases),
		RetrievedCtx: retrieved,
		Preferences:  prefsToStrings(memPrefs),
		Client:       p.Client,
	}
	results, err := runAgents(ctx, ac, execPolicy)
	if err != nil {
		return err
	}

	// 8. Resolve ingredient compounds, if the user message or the
	// request's current ingredients name any.
	tr := trace.New(runID())
	tr.LockVersions(p.Identity.RegistryVersion, p.Identity.RegistryHash, p.Identity.OntologyVersion)
	tr.SetPolicy(trace.PolicyMeta{ID: p.Identity.PolicyID, Version: p.Identity.PolicyVersion, Hash: p.Identity.PolicyHash, Reason: execPolicy.DowngradeReason})
	for name, r := range results {
		status := string(agent.StatusError)
		if r.Cancelled {
			status = string(agent.StatusSkipped)
		} else if ar, ok := r.Value.(agent.Result); ok {
			status = string(ar.Status)
		}
		tr.AddInvocation(trace.AgentInvocation{Name: name, Status: status})
	}

	if p.Compounds != nil {
		names := compounds.ExtractIngredientNames(nil, nil, req.Message, req.CurrentIngredients)
		if len(names) > 0 {
			resolution, err := p.Compounds.ResolveIngredients(ctx, names)
			if err != nil {
				log.Warn("compound resolution failed", "error", err)
			} else {
				out.NutritionReport(ctx, resolution)
				tr.SetPubchemEnforcement(compoundRefs(resolution), resolution.Confidence, resolution.ProofHash)
			}
		}
	}

	// 9. Assemble and stream the final response, governed and scrubbed.
	out.Status(ctx, "generating response")
	govMode := governanceModeFor(modeResult.State)
	prompt := generator.AssemblePrompt(generator.PromptInputs{
		Mode:              govMode,
		UserMessage:       req.Message,
		Persona:           "You are a precise culinary reasoning assistant.",
		PhaseContextBlock: phaseContextBlock(selectedPhases, results),
	})
	req2 := llm.Request{SessionID: sess.ID, Messages: prompt}
	fullText, err := generator.StreamAndScrub(ctx, p.Client, req2, func(ctx context.Context, text string) {
		out.Token(ctx, text)
	})
	if err != nil {
		return err
	}
	governed := generator.GovernedResponse(fullText, govMode)

	// 10. Recover claims. A narrative that asserts a mechanism but yields
	// no extractable claims is logged as a warning; the trace has no
	// validation-status field, so the condition is not recorded there.
	claims, mechanisticButEmpty, err := generator.ExtractClaimsFallback(ctx, governed, p.Claims)
	if err != nil {
		log.Warn("claim extraction failed", "error", err)
	}
	if len(claims) > 0 {
		tr.AddClaims(toTraceClaims(claims, tr.RunID), nil)
	}
	if mechanisticButEmpty {
		log.Warn("mechanistic narrative produced no extractable claims")
	}

	dict, err := tr.ToDict()
	if err != nil {
		return err
	}
	out.ExecutionTrace(ctx, dict)

	if err := p.Sessions.AppendMessage(ctx, session.Message{SessionID: sess.ID, Role: session.RoleAssistant, Content: governed, CreatedAt: time.Now()}); err != nil {
		return err
	}
	return p.Sessions.UpsertSession(ctx, sess)
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

func runID() string { return uuid.NewString() }

func phaseNames(phases []phase.Phase) []string {
	out := make([]string, len(phases))
	for i, ph := range phases {
		out[i] = string(ph)
	}
	return out
}

func textOf(results map[string]scheduler.Result, name string) string {
	r, ok := results[name]
	if !ok {
		return ""
	}
	ar, ok := r.Value.(agent.Result)
	if !ok {
		return ""
	}
	return ar.Text
}

// phaseContextBlock folds each selected phase's corresponding agent
// output (sensory_model for MODEL, explanation for DIAGNOSE/PREDICT,
// recipe for RECOMMEND) into the generator's phase-context block,
// dropping any phase whose agent produced nothing validated.
func phaseContextBlock(phases []phase.Phase, results map[string]scheduler.Result) string {
	if len(phases) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range phases {
		text := textOf(results, agentForPhase(p))
		if text == "" || !phase.ValidateContent(p, text) {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s\n", p, text)
	}
	return b.String()
}

func agentForPhase(p phase.Phase) string {
	switch p {
	case phase.Model:
		return "sensory_model"
	case phase.Diagnose, phase.Predict:
		return "explanation"
	default:
		return "recipe"
	}
}

func governanceModeFor(s mode.State) governance.Mode {
	switch s {
	case mode.Procedural:
		return governance.ModeProcedural
	case mode.NumericAnalysis:
		return governance.ModeNumericAnalysis
	default:
		return governance.ModeOther
	}
}

func compoundRefs(res compounds.Resolution) []trace.CompoundRef {
	out := make([]trace.CompoundRef, len(res.Resolved))
	for i, c := range res.Resolved {
		out[i] = trace.CompoundRef{Name: c.Name, ID: c.ID}
	}
	return out
}

func toTraceClaims(claims []generator.ExtractedClaim, runID string) []trace.Claim {
	out := make([]trace.Claim, len(claims))
	for i, c := range claims {
		out[i] = trace.Claim{
			Status:          "review",
			MechanismType:   c.Mechanism,
			ImportanceScore: c.Confidence,
			RunID:           runID,
			Pipeline:        fmt.Sprintf("%s %s %s", c.Subject, c.Mechanism, c.Object),
		}
	}
	return out
}
