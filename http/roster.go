package http

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/fwojciec/hansard"
)

// DefaultRosterURL is the parliamentary handbook's individuals endpoint.
const DefaultRosterURL = "https://handbookapi.aph.gov.au/api/individuals"

// DefaultRosterPageSize is the number of speakers requested per page.
const DefaultRosterPageSize = 500

// Ensure RosterClient implements hansard.RosterSource at compile time.
var _ hansard.RosterSource = (*RosterClient)(nil)

// RosterClient reads the speaker roster from an OData-style REST feed.
type RosterClient struct {
	client   *Client
	baseURL  string
	pageSize int
}

// NewRosterClient creates a RosterClient for the feed at baseURL.
func NewRosterClient(client *Client, baseURL string, pageSize int) *RosterClient {
	if pageSize <= 0 {
		pageSize = DefaultRosterPageSize
	}
	return &RosterClient{client: client, baseURL: baseURL, pageSize: pageSize}
}

type rosterPage struct {
	Count int            `json:"@odata.count"`
	Value []rosterMember `json:"value"`
}

type rosterMember struct {
	PHID        string `json:"PHID"`
	DisplayName string `json:"DisplayName"`
	Gender      string `json:"Gender"`
	State       string `json:"State"`
	Electorate  string `json:"Electorate"`
	Party       string `json:"Party"`
	DateOfBirth string `json:"DateOfBirth"`
}

// FetchSpeakers reads every page of the feed. IDs are lowercased and members
// without an ID are dropped.
func (c *RosterClient) FetchSpeakers(ctx context.Context) ([]*hansard.Speaker, error) {
	speakers := []*hansard.Speaker{}
	seen := make(map[string]struct{})

	for skip := 0; ; skip += c.pageSize {
		page, err := c.fetchPage(ctx, skip)
		if err != nil {
			return nil, err
		}

		for _, m := range page.Value {
			id := strings.ToLower(strings.TrimSpace(m.PHID))
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			speakers = append(speakers, &hansard.Speaker{
				ID:          id,
				DisplayName: m.DisplayName,
				Gender:      m.Gender,
				State:       m.State,
				Electorate:  m.Electorate,
				Party:       m.Party,
				DateOfBirth: m.DateOfBirth,
			})
		}

		if len(page.Value) == 0 || skip+len(page.Value) >= page.Count {
			break
		}
	}
	return speakers, nil
}

func (c *RosterClient) fetchPage(ctx context.Context, skip int) (*rosterPage, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, hansard.Errorf(hansard.EINVALID, "invalid roster URL %q: %v", c.baseURL, err)
	}
	q := u.Query()
	q.Set("$orderby", "FamilyName,GivenName")
	q.Set("$skip", strconv.Itoa(skip))
	q.Set("$top", strconv.Itoa(c.pageSize))
	q.Set("$count", "true")
	q.Set("$select", "PHID,DisplayName,Gender,State,Electorate,Party,DateOfBirth")
	u.RawQuery = q.Encode()

	body, err := c.client.Get(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var page rosterPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, hansard.Errorf(hansard.EPARSE, "decoding roster page at %d: %v", skip, err)
	}
	return &page, nil
}
