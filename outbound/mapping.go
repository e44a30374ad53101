package outbound

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MappingUtil builds outbound platform event payloads from user events,
// enforcing required field presence against the fetched schema.
type MappingUtil struct {
	Settings TenantSettings

	namer FieldNamer
}

// NewMappingUtil returns a mapper for the given tenant settings. The naming
// convention strategy is resolved once here, not per field.
func NewMappingUtil(settings TenantSettings) *MappingUtil {
	return &MappingUtil{Settings: settings, namer: settings.Namer()}
}

// EventNameField returns the qualified name of the mandatory event name
// field under the tenant's convention.
func (m *MappingUtil) EventNameField() string {
	return m.namer.FieldName(eventNameKey)
}

// MapUserEvent specializes a filtered envelope for one qualifying event into
// an envelope carrying the outbound payload for sObject. The input envelope
// is not modified; its notes are carried over and accumulate.
//
// The payload is returned intact even when the envelope is marked skip, so
// skipped records stay diagnosable.
func (m *MappingUtil) MapUserEvent(envelope OutgoingEnvelope, event UserEvent, sObject string, describe ObjectDescribe) OutgoingEnvelope {
	result := OutgoingEnvelope{
		Message:   envelope.Message,
		Operation: OperationInsert,
		Notes:     append([]string(nil), envelope.Notes...),
		Event:     &PlatformEventWrapper{SObject: sObject, Data: []byte(`{}`)},
	}

	schemaFields := describe.FieldNames()

	eventNameField := m.EventNameField()
	if !schemaFields[eventNameField] {
		result.Operation = OperationSkip
		result.AppendNote(SkipNoteMissingEventName(sObject, eventNameField))
		return result
	}
	m.setField(result.Event, eventNameField, event.Event)

	m.mapBuiltins(&result, schemaFields)

	// Custom event properties, each key qualified under the same convention
	// used for the schema check. An unknown qualified name drops the value
	// silently rather than erroring.
	for key, value := range event.Properties {
		fieldName := m.namer.FieldName(key)
		if schemaFields[fieldName] {
			m.setField(result.Event, fieldName, value)
		}
	}

	m.mapAttributes(&result, schemaFields)

	var missing []string
	for _, required := range describe.RequiredCustomFields() {
		if !gjson.GetBytes(result.Event.Data, required).Exists() {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		result.Operation = OperationSkip
		result.AppendNote(SkipNoteMissingRequiredFields(sObject, missing))
	}

	return result
}

// mapBuiltins populates the built-in identity fields when the schema carries
// them and the source value is present.
func (m *MappingUtil) mapBuiltins(envelope *OutgoingEnvelope, schemaFields map[string]bool) {
	user := envelope.Message.User
	account := envelope.Message.Account

	builtins := []struct {
		key    string
		lookup func() (string, bool)
	}{
		{builtinUserEmailKey, user.Email},
		{builtinUserExternalIDKey, user.ExternalID},
		{builtinContactIDKey, user.SalesforceContactID},
		{builtinLeadIDKey, user.SalesforceLeadID},
		{builtinAccountIDKey, account.SalesforceID},
	}

	for _, b := range builtins {
		fieldName := m.namer.FieldName(b.key)
		if !schemaFields[fieldName] {
			continue
		}
		if value, ok := b.lookup(); ok {
			m.setField(envelope.Event, fieldName, value)
		}
	}
}

// mapAttributes resolves the tenant's additional attribute mappings against
// the user attribute document. Paths are gjson paths and may use the
// modifiers registered in modifiers.go.
func (m *MappingUtil) mapAttributes(envelope *OutgoingEnvelope, schemaFields map[string]bool) {
	for _, am := range m.Settings.AttributeMappings {
		if am.Hull == "" || am.Service == "" {
			continue
		}
		fieldName := m.namer.FieldName(am.Service)
		if !schemaFields[fieldName] {
			continue
		}
		if value, ok := envelope.Message.User.ValueForPath(am.Hull); ok {
			m.setField(envelope.Event, fieldName, value)
		}
	}
}

func (m *MappingUtil) setField(event *PlatformEventWrapper, fieldName string, value interface{}) {
	if data, err := sjson.SetBytes(event.Data, fieldName, value); err == nil {
		event.Data = data
	}
}
