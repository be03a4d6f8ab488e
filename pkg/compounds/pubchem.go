package compounds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kitchencore/reasoner/pkg/apperr"
)

// propertyFields is the property CSV requested on the second call.
const propertyFields = "MolecularFormula,MolecularWeight,IUPACName"

// httpStatusError carries a response status code so the retry policy can
// distinguish rate limiting from other transient failures.
type httpStatusError struct {
	status int
	msg    string
}

func (e *httpStatusError) Error() string   { return e.msg }
func (e *httpStatusError) StatusCode() int { return e.status }

// PubchemLookup implements Lookup against a PubChem-style REST endpoint
// (spec §6): a name-to-CID search followed by a property fetch by CID.
type PubchemLookup struct {
	baseURL    string
	httpClient *http.Client
}

// NewPubchemLookup builds a Lookup over baseURL using httpClient. Pass
// nil to use http.DefaultClient; the caller's Client already applies its
// own per-request timeout via context, so this does not set one itself.
func NewPubchemLookup(baseURL string, httpClient *http.Client) *PubchemLookup {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &PubchemLookup{baseURL: baseURL, httpClient: httpClient}
}

type cidResponse struct {
	IdentifierList struct {
		CID []int64 `json:"CID"`
	} `json:"IdentifierList"`
}

// SearchByName resolves an ingredient name to a compound id (its CID).
func (l *PubchemLookup) SearchByName(ctx context.Context, name string) (string, bool, error) {
	reqURL := fmt.Sprintf("%s/compound/name/%s/cids/JSON", l.baseURL, url.PathEscape(name))

	var parsed cidResponse
	status, err := l.getJSON(ctx, reqURL, &parsed)
	if err != nil {
		return "", false, err
	}
	if status == http.StatusNotFound {
		return "", false, nil
	}
	if len(parsed.IdentifierList.CID) == 0 {
		return "", false, nil
	}
	return strconv.FormatInt(parsed.IdentifierList.CID[0], 10), true, nil
}

type propertyResponse struct {
	PropertyTable struct {
		Properties []map[string]any `json:"Properties"`
	} `json:"PropertyTable"`
}

// PropertiesByID fetches the configured property set for a compound id.
func (l *PubchemLookup) PropertiesByID(ctx context.Context, id string) (map[string]any, error) {
	reqURL := fmt.Sprintf("%s/compound/cid/%s/property/%s/JSON", l.baseURL, url.PathEscape(id), propertyFields)

	var parsed propertyResponse
	_, err := l.getJSON(ctx, reqURL, &parsed)
	if err != nil {
		return nil, err
	}
	if len(parsed.PropertyTable.Properties) == 0 {
		return nil, apperr.New(apperr.NotFound, "no properties returned for compound id "+id)
	}
	return parsed.PropertyTable.Properties[0], nil
}

// getJSON issues a GET and decodes a JSON body, returning the raw status
// code alongside so callers can treat 404 as "not found" rather than an
// error.
func (l *PubchemLookup) getJSON(ctx context.Context, reqURL string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, apperr.Wrap(apperr.InvalidInput, "building compound lookup request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return 0, apperr.Wrap(apperr.Upstream, "calling compound lookup endpoint", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return resp.StatusCode, &httpStatusError{status: resp.StatusCode, msg: "compound lookup endpoint rate limited the request"}
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, &httpStatusError{status: resp.StatusCode, msg: fmt.Sprintf("compound lookup endpoint returned HTTP %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, apperr.Wrap(apperr.Integrity, "decoding compound lookup response", err)
	}
	return resp.StatusCode, nil
}
