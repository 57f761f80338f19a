package google

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-authist"
	"github.com/goliatone/go-authist/social"
)

const (
	defaultBaseURL = "https://people.googleapis.com"
	providerName   = "google"
)

// Config holds Google People API configuration.
type Config struct {
	BaseURL string
	// PersonFields are requested from people/me. emailAddresses is always
	// included.
	PersonFields []string
	// PhoneRegion is the default region used to normalize phone numbers.
	PhoneRegion string

	HTTPClient *http.Client
}

// DefaultPersonFields returns the fields requested when none are configured.
func DefaultPersonFields() []string {
	return []string{"names", "emailAddresses", "phoneNumbers", "photos"}
}

// Fetcher implements authist.ProfileFetcher for Google access tokens.
type Fetcher struct {
	config     Config
	httpClient *http.Client
}

// New creates a new Google profile fetcher.
func New(cfg Config) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if len(cfg.PersonFields) == 0 {
		cfg.PersonFields = DefaultPersonFields()
	}

	client := cfg.HTTPClient
	if client == nil {
		client = social.DefaultHTTPClient()
	}

	return &Fetcher{
		config:     cfg,
		httpClient: client,
	}
}

// Name implements authist.ProfileFetcher.
func (f *Fetcher) Name() string {
	return providerName
}

// FetchProfile implements authist.ProfileFetcher.
func (f *Fetcher) FetchProfile(ctx context.Context, token string) (*authist.Profile, error) {
	params := url.Values{
		"personFields": {social.FieldList(f.config.PersonFields, "emailAddresses")},
	}
	endpoint := strings.TrimRight(f.config.BaseURL, "/") + "/v1/people/me?" + params.Encode()

	var person googlePerson
	client := social.BearerClient(ctx, f.httpClient, token)
	if err := social.GetJSON(ctx, client, providerName, "people_me", endpoint, &person); err != nil {
		return nil, err
	}

	return mapProfile(&person, f.config.PhoneRegion), nil
}
