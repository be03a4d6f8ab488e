// Package trace implements the append-only, request-scoped Execution
// Trace (spec §4.10): agent invocations, deduplicated claims with
// recomputed coverage metrics, and a layered serialization that refuses
// to emit without a locked policy.
package trace

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/kitchencore/reasoner/pkg/apperr"
)

// Decision is the normalized claim decision (mapped from whatever status
// string a node produced).
type Decision string

const (
	DecisionAllow  Decision = "ALLOW"
	DecisionDeny   Decision = "DENY"
	DecisionReview Decision = "REVIEW"
)

// EffectDirection classifies one piece of evidence.
type EffectDirection string

const (
	EffectSupportive   EffectDirection = "supportive"
	EffectContradictory EffectDirection = "contradictory"
	EffectNeutral      EffectDirection = "neutral"
)

// Evidence is one cited piece of support (or contradiction) for a claim.
type Evidence struct {
	Description     string
	EffectDirection EffectDirection
}

// Claim is the normalized, stable-shaped claim record (spec's
// "one sum type for Claim with a stable set of fields" redesign note).
type Claim struct {
	ID              string
	Status          string
	Decision        Decision
	MechanismType   string
	Evidence        []Evidence
	ImportanceScore float64
	RunID           string
	Pipeline        string

	// BaseConfidence, Verified and Drivers feed the response-level
	// confidence model (see ClaimUncertainty/computeUncertainty below).
	// BaseConfidence defaults to 1.0 when left unset.
	BaseConfidence float64
	Verified       bool
	Drivers        []string
}

func decisionFromStatus(status string) Decision {
	switch status {
	case "allow", "ALLOW":
		return DecisionAllow
	case "deny", "DENY":
		return DecisionDeny
	default:
		return DecisionReview
	}
}

// AgentInvocation records one agent's execution for the system audit layer.
type AgentInvocation struct {
	Name      string
	Status    string
	StartedAt time.Time
	FinishedAt time.Time
}

// CompoundRef mirrors a resolved compound for the scientific layer's
// compound list.
type CompoundRef struct {
	Name string
	ID   string
}

// CoverageMetrics are recomputed on every claim mutation.
type CoverageMetrics struct {
	MOACoverage       float64
	EvidenceCoverage  float64
	ContradictionRatio float64
}

// PolicyMeta is the policy_layer content; to_dict fails without it.
type PolicyMeta struct {
	ID      string
	Version string
	Hash    string
	Reason  string
}

// PubchemProof is present at the root iff pubchem was used.
type PubchemProof struct {
	Confidence float64
	ProofHash  string
}

// claimPenalties is the named uncertainty-driver vocabulary: each driver
// subtracts a fixed amount from a claim's base confidence. Weights mirror
// a verification pipeline where an unresolved or substituted ingredient
// costs more confidence than a stale cache hit.
var claimPenalties = map[string]float64{
	"ingredient_substitution": 0.15,
	"portion_ambiguity":       0.10,
	"preparation_variance":    0.05,
	"stale_data":              0.05,
	"incomplete_resolution":   0.20,
	"unverified_source":       0.30,
}

// ClaimUncertainty is one claim's confidence after applying every active
// named driver.
type ClaimUncertainty struct {
	ClaimID         string
	BaseConfidence  float64
	Penalties       map[string]float64
	FinalConfidence float64
	WeakestDriver   string
}

// UncertaintyModel is the response-level confidence aggregate: a
// weighted-minimum (worst-case) over every claim rather than an average,
// so one weakly-supported claim can't be diluted by several strong ones.
type UncertaintyModel struct {
	ResponseConfidence float64
	Claims             []ClaimUncertainty
	VarianceDrivers    map[string]float64
	WeakestLinkID      string
	Explanation        string
}

// computeUncertainty scores every claim, then aggregates to a response
// confidence equal to the weakest claim's final confidence, explaining
// which named driver constrained it. globalDrivers apply to every claim
// (e.g. a stale retrieval index affecting the whole response); an
// unverified claim always picks up unverified_source on top.
func computeUncertainty(claims []Claim, globalDrivers []string) UncertaintyModel {
	if len(claims) == 0 {
		return UncertaintyModel{ResponseConfidence: 1.0, Explanation: "No claims to analyze."}
	}

	overall := map[string]float64{}
	breakdown := make([]ClaimUncertainty, len(claims))

	for i, c := range claims {
		active := map[string]bool{}
		for _, d := range globalDrivers {
			active[d] = true
		}
		for _, d := range c.Drivers {
			active[d] = true
		}
		if !c.Verified {
			active["unverified_source"] = true
		}

		applied := make(map[string]float64, len(active))
		var total float64
		for d := range active {
			p := claimPenalties[d]
			applied[d] = p
			total += p
			if p > overall[d] {
				overall[d] = p
			}
		}

		final := c.BaseConfidence - total
		if final < 0 {
			final = 0
		}

		breakdown[i] = ClaimUncertainty{
			ClaimID:         c.ID,
			BaseConfidence:  c.BaseConfidence,
			Penalties:       applied,
			FinalConfidence: math.Round(final*100) / 100,
			WeakestDriver:   weakestDriver(applied),
		}
	}

	weakest := breakdown[0]
	for _, b := range breakdown[1:] {
		if b.FinalConfidence < weakest.FinalConfidence {
			weakest = b
		}
	}

	return UncertaintyModel{
		ResponseConfidence: weakest.FinalConfidence,
		Claims:             breakdown,
		VarianceDrivers:    overall,
		WeakestLinkID:      weakest.ClaimID,
		Explanation:        explainUncertainty(overall, weakest),
	}
}

func weakestDriver(applied map[string]float64) string {
	var name string
	worst := -1.0
	for d, p := range applied {
		if p > worst {
			worst = p
			name = d
		}
	}
	return name
}

func explainUncertainty(drivers map[string]float64, weakest ClaimUncertainty) string {
	if len(drivers) == 0 && weakest.FinalConfidence >= 0.9 {
		return "High confidence based on direct hard evidence."
	}
	reason := "is only supported by qualitative evidence"
	if weakest.WeakestDriver != "" {
		reason = "is affected by " + strings.ReplaceAll(weakest.WeakestDriver, "_", " ")
	}
	return fmt.Sprintf("Overall confidence is limited to %.0f%% because claim %s %s.",
		weakest.FinalConfidence*100, weakest.ClaimID, reason)
}

const schemaVersion = "1"

// Trace is the append-only execution trace for one request.
type Trace struct {
	RunID string

	versionLock     bool
	registryVersion string
	registryHash    string
	ontologyVersion string

	invocations []AgentInvocation
	claims      []Claim
	varianceDrivers map[string]float64
	globalDrivers   []string
	compounds   []CompoundRef
	pubchem     *PubchemProof

	policy *PolicyMeta
	causality map[string]float64

	metrics     CoverageMetrics
	confidence  UncertaintyModel
}

// New creates an empty trace scoped to runID.
func New(runID string) *Trace {
	return &Trace{
		RunID:           runID,
		varianceDrivers: map[string]float64{},
		causality:       map[string]float64{},
		confidence:      computeUncertainty(nil, nil),
	}
}

// LockVersions must be called before any claim resolution; it records
// the registry/ontology identity this trace was produced against.
func (t *Trace) LockVersions(registryVersion, registryHash, ontologyVersion string) {
	t.registryVersion = registryVersion
	t.registryHash = registryHash
	t.ontologyVersion = ontologyVersion
	t.versionLock = true
}

// VersionsLocked reports whether LockVersions has been called.
func (t *Trace) VersionsLocked() bool { return t.versionLock }

// SetPolicy records the policy identity this trace was governed by. It
// must be called before ToDict, which treats an unset policy id/version
// as a hard invariant violation.
func (t *Trace) SetPolicy(meta PolicyMeta) {
	t.policy = &meta
}

// SetCausalityMetric records one tier-3 causality metric by key.
func (t *Trace) SetCausalityMetric(key string, value float64) {
	t.causality[key] = value
}

// SetGlobalUncertaintyDrivers records process-wide confidence drivers
// (e.g. a stale retrieval index) that apply to every claim's confidence
// calculation, in addition to whatever drivers the claim itself carries.
func (t *Trace) SetGlobalUncertaintyDrivers(drivers []string) {
	t.globalDrivers = drivers
}

// AddInvocation always appends -- invocations are never deduplicated or
// reordered.
func (t *Trace) AddInvocation(inv AgentInvocation) {
	t.invocations = append(t.invocations, inv)
}

// AddClaims normalizes, dedups by id, appends, folds variance drivers by
// key-wise maximum, re-sorts by importance descending, and recomputes
// coverage metrics (spec §4.10).
func (t *Trace) AddClaims(newClaims []Claim, varianceDrivers map[string]float64) {
	existing := make(map[string]bool, len(t.claims))
	for _, c := range t.claims {
		existing[c.ID] = true
	}

	for _, c := range newClaims {
		normalized := normalizeClaim(c, t.RunID)
		if existing[normalized.ID] {
			continue
		}
		existing[normalized.ID] = true
		t.claims = append(t.claims, normalized)
	}

	for key, v := range varianceDrivers {
		if cur, ok := t.varianceDrivers[key]; !ok || v > cur {
			t.varianceDrivers[key] = v
		}
	}

	sort.SliceStable(t.claims, func(i, j int) bool {
		return t.claims[i].ImportanceScore > t.claims[j].ImportanceScore
	})

	t.recomputeCoverage()
	t.confidence = computeUncertainty(t.claims, t.globalDrivers)
}

func normalizeClaim(c Claim, runID string) Claim {
	if c.ID == "" {
		c.ID = syntheticClaimID(c)
	}
	if c.Decision == "" {
		c.Decision = decisionFromStatus(c.Status)
	}
	if c.RunID == "" {
		c.RunID = runID
	}
	if c.Pipeline == "" {
		c.Pipeline = "reasoner"
	}
	if c.BaseConfidence == 0 {
		c.BaseConfidence = 1.0
	}
	return c
}

func syntheticClaimID(c Claim) string {
	return c.MechanismType + ":" + c.Status + ":" + time.Now().UTC().Format("150405.000000000")
}

func (t *Trace) recomputeCoverage() {
	if len(t.claims) == 0 {
		t.metrics = CoverageMetrics{}
		return
	}

	var moaEligible int
	var evidenceNonEmpty int
	var totalEvidence int
	var contradictory int

	for _, c := range t.claims {
		if c.Decision == DecisionAllow && c.MechanismType != "heuristic" {
			moaEligible++
		}
		if len(c.Evidence) > 0 {
			evidenceNonEmpty++
		}
		for _, e := range c.Evidence {
			totalEvidence++
			if e.EffectDirection == EffectContradictory {
				contradictory++
			}
		}
	}

	metrics := CoverageMetrics{
		MOACoverage:      float64(moaEligible) / float64(len(t.claims)),
		EvidenceCoverage: float64(evidenceNonEmpty) / float64(len(t.claims)),
	}
	if totalEvidence > 0 {
		metrics.ContradictionRatio = float64(contradictory) / float64(totalEvidence)
	}
	t.metrics = metrics
}

// SetPubchemEnforcement fills the compound trace list from resolved
// compounds and records the pubchem proof block.
func (t *Trace) SetPubchemEnforcement(compounds []CompoundRef, confidence float64, proofHash string) {
	t.compounds = compounds
	t.pubchem = &PubchemProof{Confidence: confidence, ProofHash: proofHash}
}

// Dict is the to_dict-equivalent layered serialization.
type Dict struct {
	SchemaVersion string         `json:"schema_version"`
	ScientificLayer ScientificLayer `json:"scientific_layer"`
	PolicyLayer   PolicyMeta     `json:"policy_layer"`
	CausalityLayer map[string]float64 `json:"causality_layer"`
	SystemAudit   []AgentInvocation `json:"system_audit"`
	PubchemProof  *PubchemProof  `json:"pubchem_proof,omitempty"`
	// ConfidenceLayer is the weakest-link confidence aggregate: the
	// response-level bound spec §4.10's own coverage metrics don't
	// capture on their own (those describe claim shape, not how much a
	// reader should trust the weakest claim among them).
	ConfidenceLayer UncertaintyModel `json:"confidence_layer"`
}

// ScientificLayer bundles claims, compounds, metrics, and registry identity.
type ScientificLayer struct {
	Claims          []Claim          `json:"claims"`
	Compounds       []CompoundRef    `json:"compounds"`
	Metrics         CoverageMetrics  `json:"metrics"`
	RegistryVersion string           `json:"registry_version"`
	RegistryHash    string           `json:"registry_hash"`
	OntologyVersion string           `json:"ontology_version"`
}

// ToDict serializes the trace. It fails hard if policy id or version is
// unset, per spec §4.10's invariant.
func (t *Trace) ToDict() (Dict, error) {
	if t.policy == nil || t.policy.ID == "" || t.policy.Version == "" {
		return Dict{}, apperr.New(apperr.Integrity, "execution trace policy id/version must be set before serialization")
	}

	return Dict{
		SchemaVersion: schemaVersion,
		ScientificLayer: ScientificLayer{
			Claims:          t.claims,
			Compounds:       t.compounds,
			Metrics:         t.metrics,
			RegistryVersion: t.registryVersion,
			RegistryHash:    t.registryHash,
			OntologyVersion: t.ontologyVersion,
		},
		PolicyLayer:     *t.policy,
		CausalityLayer:  t.causality,
		SystemAudit:     t.invocations,
		PubchemProof:    t.pubchem,
		ConfidenceLayer: t.confidence,
	}, nil
}
