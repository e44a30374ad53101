package outbound

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ServiceAPI is the surface of the Salesforce client the coordinator uses.
// Every authenticated call may rotate the passed AuthToken in place.
type ServiceAPI interface {
	DescribeObject(ctx context.Context, oauth *AuthToken, objectType string) (ObjectDescribe, error)
	InsertPlatformEvent(ctx context.Context, oauth *AuthToken, sObject string, data []byte) (InsertResult, error)
	ListObjects(ctx context.Context, oauth *AuthToken) ([]MetadataObject, error)
	AuthorizeURL(state string) string
	TokenFromCode(ctx context.Context, code string) (*AuthToken, error)
}

// MetadataOption is one selectable entry of a metadata listing, shaped for
// the settings UI.
type MetadataOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// MetadataTypePlatformEvents is the only recognized listMetadata type
// discriminator. Platform event objects carry the "__e" suffix.
const MetadataTypePlatformEvents = "platformevents"

const platformEventSuffix = "__e"

// SyncAgentParams collects the collaborators of a SyncAgent. All of them are
// resolved once per run instead of being looked up dynamically.
type SyncAgentParams struct {
	Settings       TenantSettings
	AppID          string
	CorrelationKey string
	Service        ServiceAPI
	Hull           HullAPI
	Cache          *APICache
	Logger         *zap.Logger
}

// SyncAgent orchestrates one outbound pipeline run: filtering, cached schema
// lookups, mapping, dispatch and credential rotation persistence.
type SyncAgent struct {
	settings       TenantSettings
	appID          string
	correlationKey string
	service        ServiceAPI
	hull           HullAPI
	cache          *APICache
	filter         *FilterUtil
	mapper         *MappingUtil
	logger         *zap.Logger

	// guards the compare-and-persist of rotated credentials.
	persistMu     sync.Mutex
	lastPersisted string
}

// NewSyncAgent returns an agent wired with the given collaborators.
func NewSyncAgent(params SyncAgentParams) *SyncAgent {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := params.Cache
	if cache == nil {
		cache = NewAPICache()
	}
	return &SyncAgent{
		settings:       params.Settings,
		appID:          params.AppID,
		correlationKey: params.CorrelationKey,
		service:        params.Service,
		hull:           params.Hull,
		cache:          cache,
		filter:         NewFilterUtil(params.Settings),
		mapper:         NewMappingUtil(params.Settings),
		logger:         logger,
	}
}

func (a *SyncAgent) logFields(code string) []zap.Field {
	return []zap.Field{
		zap.String("code", code),
		zap.String("component", "sync-agent"),
		zap.String("app_id", a.appID),
		zap.String("correlation_key", a.correlationKey),
	}
}

// persistIfRotated compares the live access token against the last persisted
// value and, on mismatch, writes the rotated credential set back to the
// tenant settings before any further remote call is made.
func (a *SyncAgent) persistIfRotated(ctx context.Context, oauth *AuthToken) error {
	a.persistMu.Lock()
	defer a.persistMu.Unlock()
	if oauth.AccessToken == a.lastPersisted {
		return nil
	}
	err := a.hull.UpdateCredentials(ctx, CredentialsUpdate{
		RefreshToken: oauth.RefreshToken,
		AccessToken:  oauth.AccessToken,
		InstanceURL:  oauth.InstanceURL,
		IssuedAt:     oauth.IssuedAt,
	})
	if err != nil {
		return err
	}
	a.lastPersisted = oauth.AccessToken
	return nil
}

// SendUserMessages processes one batch of user update messages. Failures are
// logged and converted into per-record outcomes rather than propagated; the
// method never panics out of a run.
//
// Batch mode (a replay of more than one logical operation) is explicitly
// unsupported and refused.
func (a *SyncAgent) SendUserMessages(ctx context.Context, messages []UserUpdateMessage, isBatch bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("unhandled failure while sending user messages",
				append(a.logFields(logCodeErrUnhandled), zap.Any("panic", r))...)
		}
	}()

	a.logger.Debug("processing user messages", a.logFields(logCodeSendStart)...)

	if isBatch {
		a.logger.Warn("batch mode is not supported for outgoing user messages",
			a.logFields(logCodeSendBatchUnsupported)...)
		return
	}

	if !a.DetermineAuthStatus().Authorized() {
		a.logger.Debug("connector is not fully configured, skipping run",
			a.logFields(logCodeSendInvalidConfig)...)
		return
	}

	filtered := a.filter.FilterUserMessages(messages)
	for _, envelope := range filtered.Skips {
		a.hull.LogUserSkip(ctx, envelope.Message.User, envelope.Reason())
	}

	if len(filtered.Inserts) == 0 {
		a.logger.Info("no user messages qualified for synchronization",
			a.logFields(logCodeSendNoop)...)
		return
	}

	oauth := a.settings.AuthSnapshot()
	a.persistMu.Lock()
	a.lastPersisted = oauth.AccessToken
	a.persistMu.Unlock()

	whitelisted := a.settings.WhitelistedEvents()

	var finalEnvelopes []OutgoingEnvelope
	for _, envelope := range filtered.Inserts {
		for _, event := range envelope.Message.Events {
			if !containsString(whitelisted, event.Event) {
				continue
			}
			mapping, ok := a.settings.MappingForEvent(event.Event)
			if !ok {
				a.logger.Debug(fmt.Sprintf("No valid mapping found for Hull event '%s'. Skipping processing.", event.Event),
					a.logFields(logCodeSendNoValidMapping)...)
				continue
			}

			describe, err := CachedFetch(a.cache, DescribeCacheKey(a.appID, mapping.Service), DescribeCacheTTL, func() (ObjectDescribe, error) {
				return a.service.DescribeObject(ctx, oauth, mapping.Service)
			})
			if err != nil {
				a.logger.Error(fmt.Sprintf("Failed to obtain the fields meta data for sObject '%s' via Salesforce API.", mapping.Service),
					append(a.logFields(logCodeErrDescribeFailed), zap.Error(err))...)
				continue
			}

			finalEnvelopes = append(finalEnvelopes, a.mapper.MapUserEvent(envelope, event, mapping.Service, describe))
		}
	}

	if err := a.persistIfRotated(ctx, oauth); err != nil {
		a.logger.Error("failed to persist rotated credentials, aborting run",
			append(a.logFields(logCodeErrPersistFailed), zap.Error(err))...)
		return
	}

	// Dispatch is sequential: every insert may rotate the token the next
	// insert depends on.
	for _, envelope := range finalEnvelopes {
		if envelope.Operation != OperationInsert {
			a.logger.Debug(fmt.Sprintf("Cannot send Hull event to Salesforce: %s.", envelope.Reason()),
				a.logFields(logCodeSendSkipFinal)...)
			a.hull.LogEventSkip(ctx, envelope.Message.User, envelope.Reason())
			continue
		}

		result, err := a.service.InsertPlatformEvent(ctx, oauth, envelope.Event.SObject, envelope.Event.Data)
		switch {
		case err != nil:
			a.logger.Error("platform event insert failed",
				append(a.logFields(logCodeErrInsertFailed),
					zap.String("sobject", envelope.Event.SObject),
					zap.Error(err))...)
			a.hull.LogEventError(ctx, envelope.Message.User, err.Error())
		case result.Success:
			a.hull.LogEventSuccess(ctx, envelope.Message.User, result.ID, *envelope.Event)
		default:
			a.logger.Error("platform event insert rejected",
				append(a.logFields(logCodeErrInsertFailed),
					zap.String("sobject", envelope.Event.SObject),
					zap.String("reason", result.Errors.Reason()))...)
			a.hull.LogEventError(ctx, envelope.Message.User, result.Errors.Reason())
		}

		if err := a.persistIfRotated(ctx, oauth); err != nil {
			a.logger.Error("failed to persist rotated credentials, aborting run",
				append(a.logFields(logCodeErrPersistFailed), zap.Error(err))...)
			return
		}
	}

	a.logger.Debug("finished processing user messages", a.logFields(logCodeSendSuccess)...)
}

// DetermineAuthStatus derives the authentication state from the stored
// settings without touching the remote API.
func (a *SyncAgent) DetermineAuthStatus() AuthStatus {
	s := a.settings
	if s.AccessToken == "" || s.ClientID == "" || s.ClientSecret == "" ||
		s.RefreshToken == "" || s.InstanceURL == "" {
		return AuthStatus{StatusCode: 401, Message: "Connector is not authorized."}
	}
	return AuthStatus{
		StatusCode: 200,
		Message:    fmt.Sprintf("Connected to instance '%s'.", s.InstanceURL),
	}
}

// DetermineConnectorStatus composes the connector health from the stored
// settings and reports it to the platform. Evaluation failures downgrade the
// result to an error status instead of propagating.
func (a *SyncAgent) DetermineConnectorStatus(ctx context.Context) ConnectorStatus {
	a.logger.Debug("determining connector status", a.logFields(logCodeStatusStart)...)

	result := ConnectorStatus{Status: StatusOK, Messages: []string{}}

	s := a.settings
	if s.ClientID == "" || s.ClientSecret == "" {
		result.Status = StatusSetupRequired
		result.Messages = append(result.Messages, MessageSetupRequiredConnectedApp())
	} else if s.AccessToken == "" || s.RefreshToken == "" || s.InstanceURL == "" {
		result.Status = StatusSetupRequired
		result.Messages = append(result.Messages, MessageSetupRequiredInitialAuth())
	}

	if err := a.hull.PutStatus(ctx, result); err != nil {
		a.logger.Error("failed to report connector status",
			append(a.logFields(logCodeErrStatusPut), zap.Error(err))...)
		result.Status = StatusError
		message := err.Error()
		if message == "" {
			message = ErrorUnhandledGeneric
		}
		result.Messages = append(result.Messages, message)
		return result
	}

	a.logger.Debug("reported connector status", a.logFields(logCodeStatusSuccess)...)
	return result
}

// GetOAuthURL returns the authorization endpoint the user is redirected to.
func (a *SyncAgent) GetOAuthURL(state string) string {
	return a.service.AuthorizeURL(state)
}

// TokenFromCode exchanges an OAuth authorization code and persists the full
// credential set. Failures are returned to the caller so a broken auth
// exchange is never mistaken for success.
func (a *SyncAgent) TokenFromCode(ctx context.Context, code string) error {
	a.logger.Debug("exchanging authorization code", a.logFields(logCodeAuthCodeStart)...)

	token, err := a.service.TokenFromCode(ctx, code)
	if err != nil {
		a.logger.Error("authorization code exchange failed",
			append(a.logFields(logCodeErrAuthCode), zap.Error(err))...)
		return err
	}

	err = a.hull.UpdateCredentials(ctx, CredentialsUpdate{
		RefreshToken: token.RefreshToken,
		AccessToken:  token.AccessToken,
		InstanceURL:  token.InstanceURL,
		IssuedAt:     token.IssuedAt,
		AuthID:       token.ID,
		Signature:    token.Signature,
		Scope:        token.Scope,
	})
	if err != nil {
		a.logger.Error("failed to persist exchanged credentials",
			append(a.logFields(logCodeErrAuthCode), zap.Error(err))...)
		return err
	}

	a.logger.Debug("authorization code exchange complete", a.logFields(logCodeAuthCodeSuccess)...)
	return nil
}

// ListMetadata returns the metadata listing filtered by the given type
// discriminator. Only platform event objects are recognized; any other type
// yields an empty result. The listing is cached and rotated credentials are
// persisted before the result is returned.
func (a *SyncAgent) ListMetadata(ctx context.Context, metaType string) ([]MetadataOption, error) {
	a.logger.Debug("listing metadata", a.logFields(logCodeMetaStart)...)

	oauth := a.settings.AuthSnapshot()
	a.persistMu.Lock()
	a.lastPersisted = oauth.AccessToken
	a.persistMu.Unlock()

	listing, err := CachedFetch(a.cache, MetadataCacheKey(a.appID), MetadataCacheTTL, func() ([]MetadataObject, error) {
		return a.service.ListObjects(ctx, oauth)
	})

	if perr := a.persistIfRotated(ctx, oauth); perr != nil {
		a.logger.Error("failed to persist rotated credentials",
			append(a.logFields(logCodeErrPersistFailed), zap.Error(perr))...)
	}

	if err != nil {
		a.logger.Error("failed to retrieve the metadata listing",
			append(a.logFields(logCodeErrMetaRetrieve), zap.Error(err))...)
		return nil, err
	}

	result := []MetadataOption{}
	if metaType == MetadataTypePlatformEvents {
		for _, m := range listing {
			if strings.HasSuffix(m.FullName, platformEventSuffix) {
				result = append(result, MetadataOption{Value: m.FullName, Label: m.FullName})
			}
		}
	}

	a.logger.Debug("finished listing metadata", a.logFields(logCodeMetaSuccess)...)
	return result, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
