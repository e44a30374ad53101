package outbound

import (
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/config"
)

// SegmentAll is the sentinel segment id meaning "synchronize all segments".
const SegmentAll = "ALL"

// DefaultAPIVersion is used when a tenant has not pinned an API version.
const DefaultAPIVersion = "49.0"

// EventMapping links a Hull event name to the Salesforce platform event
// object it should be inserted into. Mappings with either side unset are
// ignored by the whitelist.
type EventMapping struct {
	Hull    string `json:"hull" yaml:"hull"`
	Service string `json:"service" yaml:"service"`
}

// AttributeMapping maps an additional user attribute onto a platform event
// field. Hull is a gjson path into the user attribute document (modifiers
// allowed, see modifiers.go), Service is the underscore delimited field key
// qualified through the tenant's naming convention.
type AttributeMapping struct {
	Hull    string `json:"hull" yaml:"hull"`
	Service string `json:"service" yaml:"service"`
}

// TenantSettings is the per tenant configuration read from the Hull
// private settings at the start of a pipeline run. The pipeline never deletes
// it; only the credential persistence path writes it back.
type TenantSettings struct {
	Environment  string `json:"sfdc_environment" yaml:"sfdc_environment"`
	APIVersion   string `json:"sfdc_api_version" yaml:"sfdc_api_version"`
	ClientID     string `json:"sfdc_client_id" yaml:"sfdc_client_id"`
	ClientSecret string `json:"sfdc_client_secret" yaml:"sfdc_client_secret"`

	EventMappings        []EventMapping     `json:"event_mappings" yaml:"event_mappings"`
	AttributeMappings    []AttributeMapping `json:"user_attribute_mappings" yaml:"user_attribute_mappings"`
	SynchronizedSegments []string           `json:"user_synchronized_segments" yaml:"user_synchronized_segments"`
	FilterOnlyExisting   bool               `json:"user_filter_only_existing" yaml:"user_filter_only_existing"`
	NamingConvention     string             `json:"naming_convention" yaml:"naming_convention"`

	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
	AccessToken  string `json:"access_token" yaml:"access_token"`
	InstanceURL  string `json:"sfdc_instance_url" yaml:"sfdc_instance_url"`
	IssuedAt     int64  `json:"issued_at" yaml:"issued_at"`
	AuthID       string `json:"sfdc_auth_id" yaml:"sfdc_auth_id"`
	Signature    string `json:"sfdc_signature" yaml:"sfdc_signature"`
	Scope        string `json:"sfdc_scope" yaml:"sfdc_scope"`
}

// ParseTenantSettings decodes the private settings JSON served by the Hull
// platform.
func ParseTenantSettings(b []byte) (TenantSettings, error) {
	var result TenantSettings
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("failed to parse tenant settings %w", err)
	}
	return result, nil
}

// WhitelistedEvents returns the unique Hull event names from mappings with
// both sides set, in mapping order.
func (s TenantSettings) WhitelistedEvents() []string {
	var result []string
	seen := make(map[string]bool)
	for _, m := range s.EventMappings {
		if m.Hull == "" || m.Service == "" {
			continue
		}
		if seen[m.Hull] {
			continue
		}
		seen[m.Hull] = true
		result = append(result, m.Hull)
	}
	return result
}

// MappingForEvent returns the first complete mapping for the given Hull
// event name.
func (s TenantSettings) MappingForEvent(event string) (EventMapping, bool) {
	for _, m := range s.EventMappings {
		if m.Hull == event && m.Service != "" {
			return m, true
		}
	}
	return EventMapping{}, false
}

// Namer returns the field namer for the tenant's naming convention.
func (s TenantSettings) Namer() FieldNamer {
	return NewFieldNamer(s.NamingConvention)
}

// ResolvedAPIVersion returns the configured API version or the default.
func (s TenantSettings) ResolvedAPIVersion() string {
	if s.APIVersion == "" {
		return DefaultAPIVersion
	}
	return s.APIVersion
}

// AuthSnapshot returns an in-memory snapshot of the OAuth credential set for
// one pipeline run. Remote calls may rotate it in place; the coordinator
// compares it against the last persisted value after each such call.
func (s TenantSettings) AuthSnapshot() *AuthToken {
	return &AuthToken{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		InstanceURL:  s.InstanceURL,
		IssuedAt:     s.IssuedAt,
		ID:           s.AuthID,
		Signature:    s.Signature,
		Scope:        s.Scope,
	}
}

// ConnectorConfig is the connector level bootstrap configuration, as opposed
// to the per tenant settings owned by the Hull platform.
type ConnectorConfig struct {
	Hull struct {
		Organization string
		AppID        string
		AppSecret    string
	}
	Salesforce struct {
		RedirectURL string
	}
	Logging struct {
		Level string
	}
}

// LoadConnectorConfig reads the connector configuration from the given YAML
// sources, later sources overriding earlier ones.
func LoadConnectorConfig(sources ...io.Reader) (ConnectorConfig, error) {
	var result ConnectorConfig
	var options []config.YAMLOption
	for _, s := range sources {
		options = append(options, config.Source(s))
	}
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, fmt.Errorf("failed to read yaml config %w", err)
	}
	readError := func(key string, cause error) error {
		return fmt.Errorf("failed to read '%s' from yaml config %w", key, cause)
	}
	key := "hull"
	if err = yaml.Get(key).Populate(&result.Hull); err != nil {
		return result, readError(key, err)
	}
	key = "salesforce"
	if err = yaml.Get(key).Populate(&result.Salesforce); err != nil {
		return result, readError(key, err)
	}
	key = "logging"
	if yaml.Get(key).HasValue() {
		if err = yaml.Get(key).Populate(&result.Logging); err != nil {
			return result, readError(key, err)
		}
	}
	if result.Logging.Level == "" {
		result.Logging.Level = "info"
	}
	return result, nil
}
