package outbound

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"
	"go.uber.org/zap"
)

// CredentialsUpdate is the partial tenant settings write performed after a
// token rotation or an authorization code exchange. The auth id, signature
// and scope fields are only written by the code exchange path.
type CredentialsUpdate struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
	InstanceURL  string `json:"sfdc_instance_url"`
	IssuedAt     int64  `json:"issued_at"`
	AuthID       string `json:"sfdc_auth_id,omitempty"`
	Signature    string `json:"sfdc_signature,omitempty"`
	Scope        string `json:"sfdc_scope,omitempty"`
}

// HullAPI is the surface of the Hull platform the pipeline talks to:
// per-record outcome logs, tenant settings persistence and the status
// endpoint. Outcome logging is fire and forget; delivery failures must not
// abort a run.
type HullAPI interface {
	LogUserSkip(ctx context.Context, user User, reason string)
	LogEventSuccess(ctx context.Context, user User, id string, event PlatformEventWrapper)
	LogEventError(ctx context.Context, user User, reason string)
	LogEventSkip(ctx context.Context, user User, reason string)
	UpdateCredentials(ctx context.Context, update CredentialsUpdate) error
	PutStatus(ctx context.Context, status ConnectorStatus) error
}

// HullClient is the HTTP client for the Hull platform API.
type HullClient struct {
	Organization string
	AppID        string
	AppSecret    string
	Logger       *zap.Logger
	// BaseURL overrides the organization derived endpoint, used in tests.
	BaseURL string
}

// NewHullClient returns a client for the given organization and app
// credentials.
func NewHullClient(organization, appID, appSecret string, logger *zap.Logger) *HullClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HullClient{
		Organization: organization,
		AppID:        appID,
		AppSecret:    appSecret,
		Logger:       logger,
	}
}

func (h *HullClient) baseURL() string {
	if h.BaseURL != "" {
		return h.BaseURL
	}
	return fmt.Sprintf("https://%s", h.Organization)
}

func (h *HullClient) apiBuilder() *requests.Builder {
	return requests.
		URL(h.baseURL()).
		Client(&http.Client{Timeout: HTTPRequestTimeout}).
		Header("Hull-App-Id", h.AppID).
		Header("Hull-Access-Token", h.AppSecret)
}

// logEntry is one per-record outcome log line shipped to the platform. The
// user identity travels as claims so the platform can attribute the entry.
type logEntry struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	User    map[string]string      `json:"user"`
	Data    map[string]interface{} `json:"data"`
}

func userClaims(user User) map[string]string {
	claims := make(map[string]string)
	if email, ok := user.Email(); ok {
		claims["email"] = email
	}
	if externalID, ok := user.ExternalID(); ok {
		claims["external_id"] = externalID
	}
	if id, ok := user.StringForPath("id"); ok {
		claims["id"] = id
	}
	return claims
}

func (h *HullClient) postLog(ctx context.Context, entry logEntry) {
	err := h.apiBuilder().
		Path("/api/v1/logs").
		BodyJSON(&entry).
		Fetch(ctx)
	if err != nil {
		h.Logger.Warn("failed to deliver outcome log",
			zap.String("component", "hull-client"),
			zap.String("message", entry.Message),
			zap.Error(err))
	}
}

// LogUserSkip records an outgoing.user.skip outcome.
func (h *HullClient) LogUserSkip(ctx context.Context, user User, reason string) {
	h.postLog(ctx, logEntry{
		Level:   "info",
		Message: "outgoing.user.skip",
		User:    userClaims(user),
		Data:    map[string]interface{}{"reason": reason},
	})
}

// LogEventSuccess records an outgoing.event.success outcome with the remote
// assigned record id and the dispatched payload.
func (h *HullClient) LogEventSuccess(ctx context.Context, user User, id string, event PlatformEventWrapper) {
	h.postLog(ctx, logEntry{
		Level:   "info",
		Message: "outgoing.event.success",
		User:    userClaims(user),
		Data: map[string]interface{}{
			"id":      id,
			"sObject": event.SObject,
			"data":    json.RawMessage(event.Data),
		},
	})
}

// LogEventError records an outgoing.event.error outcome.
func (h *HullClient) LogEventError(ctx context.Context, user User, reason string) {
	h.postLog(ctx, logEntry{
		Level:   "error",
		Message: "outgoing.event.error",
		User:    userClaims(user),
		Data:    map[string]interface{}{"reason": reason},
	})
}

// LogEventSkip records an outgoing.event.skip outcome.
func (h *HullClient) LogEventSkip(ctx context.Context, user User, reason string) {
	h.postLog(ctx, logEntry{
		Level:   "info",
		Message: "outgoing.event.skip",
		User:    userClaims(user),
		Data:    map[string]interface{}{"reason": reason},
	})
}

// UpdateCredentials persists a rotated credential set into the tenant's
// private settings. The write is last-write-wins and idempotent; persisting
// the same token set twice is harmless.
func (h *HullClient) UpdateCredentials(ctx context.Context, update CredentialsUpdate) error {
	body := struct {
		PrivateSettings CredentialsUpdate `json:"private_settings"`
	}{PrivateSettings: update}
	err := h.apiBuilder().
		Path("/api/v1/app").
		Put().
		BodyJSON(&body).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("settings update failed: %w", err)
	}
	return nil
}

// PutStatus reports the composed connector status to the platform.
func (h *HullClient) PutStatus(ctx context.Context, status ConnectorStatus) error {
	err := h.apiBuilder().
		Pathf("/api/v1/%s/status", h.AppID).
		Put().
		BodyJSON(&status).
		Fetch(ctx)
	if err != nil {
		return fmt.Errorf("status update failed: %w", err)
	}
	return nil
}
