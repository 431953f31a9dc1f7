package notion

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	gnt "github.com/dstotijn/go-notion"

	"github.com/abelaba/job-parser/internal/domain"
)

// Client is the job database. Credentials and the database id are taken
// from the settings source on every call.
type Client struct {
	settings   domain.SettingsSource
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

// WithClock replaces time.Now for the applied-date stamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(settings domain.SettingsSource, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	c := &Client{
		settings:   settings,
		httpClient: httpClient,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// session is a go-notion client bound to one settings snapshot.
type session struct {
	api        *gnt.Client
	databaseID string
}

func (c *Client) session(ctx context.Context) (session, error) {
	st, err := c.settings.Settings(ctx)
	if err != nil {
		return session{}, err
	}
	if st.DatabaseAPIKey == "" {
		return session{}, &domain.ValidationError{Field: "database API key", Message: "not set"}
	}
	dbID := strings.ReplaceAll(strings.TrimSpace(st.DatabaseID), "-", "")
	if dbID == "" {
		return session{}, &domain.ValidationError{Field: "database id", Message: "not set"}
	}

	hc := c.httpClient
	if st.BaseURL != "" {
		hc, err = withBaseURL(hc, st.BaseURL)
		if err != nil {
			return session{}, err
		}
	}

	return session{
		api:        gnt.NewClient(st.DatabaseAPIKey, gnt.WithHTTPClient(hc)),
		databaseID: dbID,
	}, nil
}

// Ping just tries a tiny QueryDatabase to see if the DB is reachable.
func (c *Client) Ping(ctx context.Context) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	_, err = s.api.QueryDatabase(ctx, s.databaseID, &gnt.DatabaseQuery{
		PageSize: 1,
	})
	return storeError(opLookup, err)
}

// SearchDatabases lists the databases shared with the integration, so a user
// can find the id to put in the settings.
func (c *Client) SearchDatabases(ctx context.Context) ([]gnt.Database, error) {
	s, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Search(ctx, &gnt.SearchOpts{
		Filter: &gnt.SearchFilter{
			Property: "object",
			Value:    "database",
		},
		PageSize: 20,
	})
	if err != nil {
		return nil, storeError(opLookup, err)
	}

	var dbs []gnt.Database
	for _, obj := range resp.Results {
		if db, ok := obj.(gnt.Database); ok {
			dbs = append(dbs, db)
		}
	}

	return dbs, nil
}

const (
	opLookup = "lookup"
	opInsert = "insert"
	opUpdate = "update"
)

// storeError classifies a go-notion failure. The message is Notion's own
// text when the API sent one, and the underlying error text otherwise. A
// response that fails to decode lands here too, after the write went through.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return err
	}

	var apiErr *gnt.APIError
	switch {
	case errors.As(err, &apiErr):
		return classify(op, apiErr.Message, err)
	case isTransport(err):
		err = &domain.NetworkError{Endpoint: "notion", Cause: err}
	}
	return classify(op, err.Error(), err)
}

func classify(op, msg string, err error) error {
	switch op {
	case opInsert:
		return domain.NewPersistError(msg, err)
	case opUpdate:
		return domain.NewUpdateError(msg, err)
	default:
		return domain.NewLookupError(msg, err)
	}
}

func isTransport(err error) bool {
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr)
}

// baseURLTransport sends every request to another host, for running against
// a Notion-compatible backend instead of api.notion.com.
type baseURLTransport struct {
	base *url.URL
	next http.RoundTripper
}

func (t *baseURLTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = t.base.Scheme
	r.URL.Host = t.base.Host
	r.URL.Path = strings.TrimRight(t.base.Path, "/") + r.URL.Path
	r.Host = t.base.Host
	return t.next.RoundTrip(r)
}

func withBaseURL(hc *http.Client, raw string) (*http.Client, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &domain.ValidationError{Field: "base URL", Message: "must be an absolute URL"}
	}
	next := hc.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	cp := *hc
	cp.Transport = &baseURLTransport{base: u, next: next}
	return &cp, nil
}
