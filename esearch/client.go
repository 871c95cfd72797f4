// Package esearch resolves free-text terms to GEO series accessions using the
// NCBI E-utilities ESearch endpoint against the GEO DataSets (gds) database.
package esearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/carbocation/geoquery"
	"golang.org/x/net/context/ctxhttp"
)

const (
	DefaultBaseURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	DefaultDatabase = "gds"
	DefaultRetMax   = 1000

	// Restricts gds hits to series records
	seriesFilter = " AND gse[ETYP]"
)

type Client struct {
	BaseURL  string
	Database string
	RetMax   int

	// SeriesOnly appends an entry type filter so that only series records are
	// returned by the service.
	SeriesOnly bool

	Policy Policy

	HTTPClient *http.Client
}

// NewClient returns a client for the public endpoint. A zero timeout leaves
// the transport's defaults in charge.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		BaseURL:    DefaultBaseURL,
		Database:   DefaultDatabase,
		RetMax:     DefaultRetMax,
		Policy:     Permissive,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// QueryURL builds the search URL for term.
func (c *Client) QueryURL(term string) string {
	if c.SeriesOnly {
		term += seriesFilter
	}

	v := url.Values{}
	v.Set("db", c.Database)
	v.Set("term", term)
	v.Set("retmode", "json")
	v.Set("retmax", strconv.Itoa(c.RetMax))

	return c.BaseURL + "?" + v.Encode()
}

type searchResponse struct {
	Result *struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// Resolve runs one search and converts the returned UIDs to accessions
// according to the client's Policy.
func (c *Client) Resolve(ctx context.Context, term string) (geoquery.AccessionList, error) {
	uids, err := c.Search(ctx, term)
	if err != nil {
		return nil, err
	}

	return ToAccessions(uids, c.Policy), nil
}

// Search returns the raw UIDs for term, in the order the service lists them.
func (c *Client) Search(ctx context.Context, term string) ([]string, error) {
	resp, err := ctxhttp.Get(ctx, c.HTTPClient, c.QueryURL(term))
	if err != nil {
		return nil, &TransportError{Term: term, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Term: term, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Term: term, Err: err}
	}

	return ParseIDList(body)
}

// ParseIDList extracts esearchresult.idlist from an ESearch JSON body.
func ParseIDList(body []byte) ([]string, error) {
	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if parsed.Result == nil || parsed.Result.IDList == nil {
		return nil, fmt.Errorf("%w: no esearchresult.idlist", ErrMalformedResponse)
	}

	return parsed.Result.IDList, nil
}
