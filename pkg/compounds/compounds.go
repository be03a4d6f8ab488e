// Package compounds implements the external compound-lookup client
// (spec §4.9): a two-call resolve (search by name, then properties by
// id), rate-limited and retried, producing a confidence score and a
// stable proof hash over what was actually resolved.
package compounds

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/kitchencore/reasoner/pkg/apperr"
	"github.com/kitchencore/reasoner/pkg/config"
	"golang.org/x/time/rate"
)

// Compound is one resolved ingredient.
type Compound struct {
	Name       string
	ID         string
	Properties map[string]any
}

// Resolution is the result of resolving a batch of ingredient names.
type Resolution struct {
	Resolved         []Compound
	Unresolved       []string
	TotalDurationMS  int64
	Confidence       float64
	ProofHash        string
}

// Lookup is the minimal HTTP surface the client calls against; in
// production it's backed by a real PubChem-style REST endpoint, in tests
// by a fake.
type Lookup interface {
	SearchByName(ctx context.Context, name string) (id string, found bool, err error)
	PropertiesByID(ctx context.Context, id string) (map[string]any, error)
}

// Client resolves ingredient names to compound properties.
type Client struct {
	lookup  Lookup
	limiter *rate.Limiter
	timeout time.Duration
	retries int
}

// New builds a Client from CompoundsConfig and a Lookup implementation.
func New(cfg config.CompoundsConfig, lookup Lookup) *Client {
	return &Client{
		lookup:  lookup,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		timeout: cfg.RequestTimeout,
		retries: cfg.MaxRetries,
	}
}

// ResolveIngredients performs the two-call resolve for every name,
// rate-limited and retried, and returns the aggregated Resolution.
func (c *Client) ResolveIngredients(ctx context.Context, names []string) (Resolution, error) {
	start := time.Now()
	var resolved []Compound
	var unresolved []string

	for _, name := range names {
		compound, found, err := c.resolveOne(ctx, name)
		if err != nil {
			return Resolution{}, err
		}
		if found {
			resolved = append(resolved, compound)
		} else {
			unresolved = append(unresolved, name)
		}
	}

	res := Resolution{
		Resolved:        resolved,
		Unresolved:      unresolved,
		TotalDurationMS: time.Since(start).Milliseconds(),
		Confidence:      confidenceOf(resolved, unresolved),
		ProofHash:       proofHash(resolved),
	}
	return res, nil
}

func (c *Client) resolveOne(ctx context.Context, name string) (Compound, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Compound{}, false, apperr.Wrap(apperr.Upstream, "rate limiter wait", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var id string
	var found bool
	err := c.withRetry(reqCtx, func() error {
		var searchErr error
		id, found, searchErr = c.lookup.SearchByName(reqCtx, name)
		return searchErr
	})
	if err != nil {
		return Compound{}, false, err
	}
	if !found {
		return Compound{}, false, nil
	}

	var props map[string]any
	err = c.withRetry(reqCtx, func() error {
		var propErr error
		props, propErr = c.lookup.PropertiesByID(reqCtx, id)
		return propErr
	})
	if err != nil {
		return Compound{}, false, err
	}

	return Compound{Name: name, ID: id, Properties: props}, true, nil
}

func (c *Client) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.retries)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isRateLimited(err) {
			return apperr.Wrap(apperr.RateLimited, "compound lookup rate limited", err)
		}
		if !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func isRateLimited(err error) bool {
	type statusCoder interface{ StatusCode() int }
	sc, ok := err.(statusCoder)
	return ok && sc.StatusCode() == http.StatusTooManyRequests
}

func isTransient(err error) bool {
	return apperr.KindOf(err) == apperr.Upstream || apperr.KindOf(err) == ""
}

func confidenceOf(resolved []Compound, unresolved []string) float64 {
	total := len(resolved) + len(unresolved)
	if total == 0 {
		return 0
	}
	return float64(len(resolved)) / float64(total)
}

// proofHash is the first 12 hex chars of sha256 over sorted "name:id"
// pairs (spec §4.9).
func proofHash(resolved []Compound) string {
	pairs := make([]string, 0, len(resolved))
	for _, c := range resolved {
		pairs = append(pairs, fmt.Sprintf("%s:%s", c.Name, c.ID))
	}
	sort.Strings(pairs)

	h := sha256.New()
	for _, p := range pairs {
		h.Write([]byte(p))
	}
	sum := hex.EncodeToString(h.Sum(nil))
	return sum[:12]
}

// MarshalJSON lets Resolution serialize cleanly into the trace's
// compound list without exposing internal field ordering quirks.
func (r Resolution) MarshalJSON() ([]byte, error) {
	type alias Resolution
	return json.Marshal(alias(r))
}
