package outbound

import "strings"

// customFieldSuffix is appended as its own underscore delimited segment, so a
// key like "event_name" qualifies to "Event_Name__c".
const customFieldSuffix = "_c"

// eventNameKey is the well known key whose qualified field carries the Hull
// event name on every platform event.
const eventNameKey = "event_name"

// Built-in keys resolved from the user or account rather than from event
// properties.
const (
	builtinUserEmailKey      = "user_email"
	builtinUserExternalIDKey = "user_external_id"
	builtinContactIDKey      = "contact_id"
	builtinLeadIDKey         = "lead_id"
	builtinAccountIDKey      = "account_id"
)

// FieldNamer turns an underscore delimited property key into the qualified
// API name of the corresponding Salesforce custom field. The same namer must
// be used for schema presence checks and for naming the outbound field, since
// a mismatch silently drops the value.
type FieldNamer interface {
	FieldName(key string) string
}

// Supported naming conventions.
const (
	NamingConventionTitleCase = "titlecase"
	NamingConventionLowercase = "lowercase"
)

// NewFieldNamer returns the namer for a tenant's configured convention,
// defaulting to title case.
func NewFieldNamer(convention string) FieldNamer {
	if convention == NamingConventionLowercase {
		return lowercaseNamer{}
	}
	return titleCaseNamer{}
}

// titleCaseNamer capitalizes the first letter of each underscore delimited
// segment, leaving the remainder of the segment untouched, so "page_URL"
// becomes "Page_URL__c".
type titleCaseNamer struct{}

func (titleCaseNamer) FieldName(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	parts = append(parts, customFieldSuffix)
	return strings.Join(parts, "_")
}

// lowercaseNamer lowercases every segment, so "page_URL" becomes
// "page_url__c".
type lowercaseNamer struct{}

func (lowercaseNamer) FieldName(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	parts = append(parts, customFieldSuffix)
	return strings.Join(parts, "_")
}
