package outbound

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/carlmjohnson/requests"
	"go.uber.org/zap"
)

// AuthToken is the OAuth credential set used for authenticated Salesforce
// calls. The client rotates it in place when a call runs into an expired
// access token, so callers must compare it against their last persisted
// snapshot after any authenticated call.
type AuthToken struct {
	AccessToken  string
	RefreshToken string
	InstanceURL  string
	IssuedAt     int64
	ID           string
	Signature    string
	Scope        string
}

// ConnectionOptions configures the Salesforce REST client for one tenant.
type ConnectionOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	APIVersion   string
	Environment  string
	// LoginURL overrides the environment derived OAuth endpoint, used in tests.
	LoginURL string
}

// FieldDescribe is one field descriptor from an object schema describe.
type FieldDescribe struct {
	Name         string      `json:"name"`
	Label        string      `json:"label"`
	Type         string      `json:"type"`
	Nillable     bool        `json:"nillable"`
	Custom       bool        `json:"custom"`
	DefaultValue interface{} `json:"defaultValue"`
}

// HasDefault reports whether the field carries a default value.
func (f FieldDescribe) HasDefault() bool {
	return f.DefaultValue != nil
}

// ObjectDescribe is the schema describe of a Salesforce object. It is treated
// as read-only once fetched.
type ObjectDescribe struct {
	Name   string          `json:"name"`
	Custom bool            `json:"custom"`
	Fields []FieldDescribe `json:"fields"`
}

// FieldNames returns the set of field API names.
func (d ObjectDescribe) FieldNames() map[string]bool {
	result := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		result[f.Name] = true
	}
	return result
}

// RequiredCustomFields returns the names of fields that must be populated on
// insert: non-nillable custom fields without a default value, in describe
// order.
func (d ObjectDescribe) RequiredCustomFields() []string {
	var result []string
	for _, f := range d.Fields {
		if !f.Nillable && !f.HasDefault() && f.Custom {
			result = append(result, f.Name)
		}
	}
	return result
}

// SalesforceError is one remote error entry returned by the REST API.
type SalesforceError struct {
	Message    string `json:"message"`
	StatusCode string `json:"statusCode"`
	ErrorCode  string `json:"errorCode"`
}

func (e SalesforceError) Error() string {
	code := e.StatusCode
	if code == "" {
		code = e.ErrorCode
	}
	return fmt.Sprintf("%s (Code: %s)", e.Message, code)
}

// SalesforceErrors is the remote error list of a failed call.
type SalesforceErrors []SalesforceError

func (e SalesforceErrors) Error() string {
	return e.Reason()
}

// Reason renders the error list as a single reason string.
func (e SalesforceErrors) Reason() string {
	if len(e) == 0 {
		return "Unknown reason."
	}
	parts := make([]string, len(e))
	for i, err := range e {
		parts[i] = err.Error()
	}
	return strings.Join(parts, " ")
}

// InsertResult is the outcome of a platform event insert.
type InsertResult struct {
	ID      string           `json:"id"`
	Success bool             `json:"success"`
	Errors  SalesforceErrors `json:"errors"`
}

// MetadataObject is one entry of the remote metadata listing.
type MetadataObject struct {
	FullName string `json:"fullName"`
	Label    string `json:"label"`
	Custom   bool   `json:"custom"`
}

// tokenResponse is the OAuth token endpoint response. Salesforce serializes
// issued_at as a string of epoch milliseconds.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	InstanceURL  string `json:"instance_url"`
	IssuedAt     string `json:"issued_at"`
	ID           string `json:"id"`
	Signature    string `json:"signature"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

func (r tokenResponse) asAuthToken() *AuthToken {
	issuedAt, _ := strconv.ParseInt(r.IssuedAt, 10, 64)
	return &AuthToken{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		InstanceURL:  r.InstanceURL,
		IssuedAt:     issuedAt,
		ID:           r.ID,
		Signature:    r.Signature,
		Scope:        r.Scope,
	}
}

// ServiceClient talks to the Salesforce REST and OAuth APIs for one tenant.
type ServiceClient struct {
	Options ConnectionOptions
	Logger  *zap.Logger
}

// NewServiceClient returns a client for the given connection options.
func NewServiceClient(options ConnectionOptions, logger *zap.Logger) *ServiceClient {
	if options.APIVersion == "" {
		options.APIVersion = DefaultAPIVersion
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceClient{Options: options, Logger: logger}
}

func (c *ServiceClient) loginURL() string {
	if c.Options.LoginURL != "" {
		return c.Options.LoginURL
	}
	if c.Options.Environment == "production" {
		return "https://login.salesforce.com"
	}
	return "https://test.salesforce.com"
}

func (c *ServiceClient) apiBuilder(oauth *AuthToken) *requests.Builder {
	return requests.
		URL(oauth.InstanceURL).
		Client(&http.Client{Timeout: HTTPRequestTimeout}).
		Bearer(oauth.AccessToken)
}

// withAuthRetry runs call and, when it fails with an unauthorized response,
// refreshes the access token in place and runs it once more. call must build
// its request from oauth on every invocation so the retry picks up the
// rotated token.
func (c *ServiceClient) withAuthRetry(ctx context.Context, oauth *AuthToken, call func() error) error {
	err := call()
	if err == nil || !requests.HasStatusErr(err, http.StatusUnauthorized) {
		return err
	}
	if rerr := c.RefreshAccessToken(ctx, oauth); rerr != nil {
		return fmt.Errorf("token refresh after unauthorized response failed: %w", rerr)
	}
	return call()
}

// DescribeObject fetches the schema describe for the given object type.
func (c *ServiceClient) DescribeObject(ctx context.Context, oauth *AuthToken, objectType string) (ObjectDescribe, error) {
	var result ObjectDescribe
	err := c.withAuthRetry(ctx, oauth, func() error {
		return c.apiBuilder(oauth).
			Pathf("/services/data/v%s/sobjects/%s/describe", c.Options.APIVersion, objectType).
			ToJSON(&result).
			Fetch(ctx)
	})
	if err != nil {
		return ObjectDescribe{}, fmt.Errorf("describe of '%s' failed: %w", objectType, err)
	}
	return result, nil
}

// ListObjects fetches the metadata listing of all objects visible to the
// integration user.
func (c *ServiceClient) ListObjects(ctx context.Context, oauth *AuthToken) ([]MetadataObject, error) {
	listing := struct {
		SObjects []struct {
			Name   string `json:"name"`
			Label  string `json:"label"`
			Custom bool   `json:"custom"`
		} `json:"sobjects"`
	}{}
	err := c.withAuthRetry(ctx, oauth, func() error {
		return c.apiBuilder(oauth).
			Pathf("/services/data/v%s/sobjects", c.Options.APIVersion).
			ToJSON(&listing).
			Fetch(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("metadata listing failed: %w", err)
	}
	result := make([]MetadataObject, len(listing.SObjects))
	for i, o := range listing.SObjects {
		result[i] = MetadataObject{FullName: o.Name, Label: o.Label, Custom: o.Custom}
	}
	return result, nil
}

// InsertPlatformEvent inserts one platform event record. A transport or
// authorization failure is returned as an error; a rejection by the remote
// API is returned as an unsuccessful InsertResult carrying the remote error
// list.
func (c *ServiceClient) InsertPlatformEvent(ctx context.Context, oauth *AuthToken, sObject string, data []byte) (InsertResult, error) {
	var result InsertResult
	var remoteErrs SalesforceErrors
	err := c.withAuthRetry(ctx, oauth, func() error {
		remoteErrs = nil
		return c.apiBuilder(oauth).
			Pathf("/services/data/v%s/sobjects/%s", c.Options.APIVersion, sObject).
			ContentType("application/json").
			BodyBytes(data).
			ToJSON(&result).
			ErrorJSON(&remoteErrs).
			Fetch(ctx)
	})
	if err != nil {
		if len(remoteErrs) > 0 {
			return InsertResult{Success: false, Errors: remoteErrs}, nil
		}
		return InsertResult{}, fmt.Errorf("insert into '%s' failed: %w", sObject, err)
	}
	return result, nil
}

// RefreshAccessToken exchanges the refresh token for a new access token and
// rotates oauth in place.
func (c *ServiceClient) RefreshAccessToken(ctx context.Context, oauth *AuthToken) error {
	var resp tokenResponse
	err := requests.
		URL(c.loginURL()).
		Client(&http.Client{Timeout: HTTPRequestTimeout}).
		Path("/services/oauth2/token").
		BodyForm(url.Values{
			"grant_type":    {"refresh_token"},
			"client_id":     {c.Options.ClientID},
			"client_secret": {c.Options.ClientSecret},
			"refresh_token": {oauth.RefreshToken},
		}).
		ToJSON(&resp).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("refresh token exchange failed: %w", err)
	}
	rotated := resp.asAuthToken()
	oauth.AccessToken = rotated.AccessToken
	if rotated.RefreshToken != "" {
		oauth.RefreshToken = rotated.RefreshToken
	}
	if rotated.InstanceURL != "" {
		oauth.InstanceURL = rotated.InstanceURL
	}
	oauth.IssuedAt = rotated.IssuedAt
	if rotated.ID != "" {
		oauth.ID = rotated.ID
	}
	if rotated.Signature != "" {
		oauth.Signature = rotated.Signature
	}
	if rotated.Scope != "" {
		oauth.Scope = rotated.Scope
	}
	c.Logger.Debug("access token rotated",
		zap.String("component", "service-client"),
		zap.String("instance_url", oauth.InstanceURL))
	return nil
}

// AuthorizeURL composes the OAuth authorization endpoint the user is
// redirected to.
func (c *ServiceClient) AuthorizeURL(state string) string {
	q := url.Values{
		"response_type": {"code"},
		"client_id":     {c.Options.ClientID},
		"redirect_uri":  {c.Options.RedirectURL},
		"state":         {state},
	}
	return fmt.Sprintf("%s/services/oauth2/authorize?%s", c.loginURL(), q.Encode())
}

// TokenFromCode exchanges an OAuth authorization code for a full credential
// set.
func (c *ServiceClient) TokenFromCode(ctx context.Context, code string) (*AuthToken, error) {
	var resp tokenResponse
	err := requests.
		URL(c.loginURL()).
		Client(&http.Client{Timeout: HTTPRequestTimeout}).
		Path("/services/oauth2/token").
		BodyForm(url.Values{
			"grant_type":    {"authorization_code"},
			"client_id":     {c.Options.ClientID},
			"client_secret": {c.Options.ClientSecret},
			"redirect_uri":  {c.Options.RedirectURL},
			"code":          {code},
		}).
		ToJSON(&resp).
		Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("authorization code exchange failed: %w", err)
	}
	return resp.asAuthToken(), nil
}
