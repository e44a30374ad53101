package outbound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func describeWithFields(names ...string) ObjectDescribe {
	d := ObjectDescribe{Name: "Page_View__e", Custom: true}
	for _, n := range names {
		d.Fields = append(d.Fields, FieldDescribe{Name: n, Nillable: true, Custom: true})
	}
	return d
}

func insertEnvelope(user string, account string) OutgoingEnvelope {
	return OutgoingEnvelope{
		Message: UserUpdateMessage{
			User:    UserFromJSON(user),
			Account: AccountFromJSON(account),
		},
		Operation: OperationInsert,
	}
}

func TestMapUserEvent_MissingEventNameField(t *testing.T) {
	m := NewMappingUtil(TenantSettings{})
	envelope := insertEnvelope(`{"id":"u1"}`, `{}`)
	event := UserEvent{Event: "viewed_page"}

	// The remote schema has no field matching the event name convention.
	result := m.MapUserEvent(envelope, event, "Page_View", describeWithFields("Some_Other__c"))

	assert.Equal(t, OperationSkip, result.Operation)
	require.Len(t, result.Notes, 1)
	assert.Contains(t, result.Notes[0], "Event_Name__c")
	assert.Contains(t, result.Notes[0], "'Page_View'")
	// No further field population happened.
	assert.Equal(t, `{}`, string(result.Event.Data))
}

func TestMapUserEvent_PopulatesEventNameAndBuiltins(t *testing.T) {
	m := NewMappingUtil(TenantSettings{})
	envelope := insertEnvelope(
		`{"id":"u1","email":"jo@example.com","external_id":"ext-1","traits_salesforce_contact/id":"0031"}`,
		`{"salesforce/id":"0011"}`,
	)
	event := UserEvent{Event: "viewed_page"}
	describe := describeWithFields(
		"Event_Name__c", "User_Email__c", "User_External_Id__c",
		"Contact_Id__c", "Lead_Id__c", "Account_Id__c",
	)

	result := m.MapUserEvent(envelope, event, "Page_View__e", describe)

	assert.Equal(t, OperationInsert, result.Operation)
	data := result.Event.Data
	assert.Equal(t, "viewed_page", gjson.GetBytes(data, "Event_Name__c").String())
	assert.Equal(t, "jo@example.com", gjson.GetBytes(data, "User_Email__c").String())
	assert.Equal(t, "ext-1", gjson.GetBytes(data, "User_External_Id__c").String())
	assert.Equal(t, "0031", gjson.GetBytes(data, "Contact_Id__c").String())
	assert.Equal(t, "0011", gjson.GetBytes(data, "Account_Id__c").String())
	// The user has no lead id, so the field stays unset even though the
	// schema carries it.
	assert.False(t, gjson.GetBytes(data, "Lead_Id__c").Exists())
}

func TestMapUserEvent_CustomProperties(t *testing.T) {
	m := NewMappingUtil(TenantSettings{})
	envelope := insertEnvelope(`{"id":"u1"}`, `{}`)
	event := UserEvent{
		Event: "viewed_page",
		Properties: map[string]interface{}{
			"page_title": "Pricing",
			"duration":   42.5,
			"unmapped":   "dropped",
		},
	}
	describe := describeWithFields("Event_Name__c", "Page_Title__c", "Duration__c")

	result := m.MapUserEvent(envelope, event, "Page_View__e", describe)

	data := result.Event.Data
	assert.Equal(t, "Pricing", gjson.GetBytes(data, "Page_Title__c").String())
	assert.Equal(t, 42.5, gjson.GetBytes(data, "Duration__c").Float())
	// A property whose qualified name is not in the schema is dropped
	// silently.
	assert.False(t, gjson.GetBytes(data, "Unmapped__c").Exists())
	assert.Equal(t, OperationInsert, result.Operation)
}

func TestMapUserEvent_LowercaseConvention(t *testing.T) {
	m := NewMappingUtil(TenantSettings{NamingConvention: NamingConventionLowercase})
	envelope := insertEnvelope(`{"id":"u1","email":"jo@example.com"}`, `{}`)
	event := UserEvent{
		Event:      "viewed_page",
		Properties: map[string]interface{}{"page_title": "Pricing"},
	}
	describe := describeWithFields("event_name__c", "user_email__c", "page_title__c")

	result := m.MapUserEvent(envelope, event, "page_view__e", describe)

	data := result.Event.Data
	assert.Equal(t, "viewed_page", gjson.GetBytes(data, "event_name__c").String())
	assert.Equal(t, "jo@example.com", gjson.GetBytes(data, "user_email__c").String())
	assert.Equal(t, "Pricing", gjson.GetBytes(data, "page_title__c").String())
}

func TestMapUserEvent_MissingRequiredFields(t *testing.T) {
	m := NewMappingUtil(TenantSettings{})
	envelope := insertEnvelope(`{"id":"u1"}`, `{}`)
	event := UserEvent{Event: "viewed_page"}

	describe := describeWithFields("Event_Name__c")
	describe.Fields = append(describe.Fields, FieldDescribe{
		Name:     "Foo__c",
		Nillable: false,
		Custom:   true,
	})

	result := m.MapUserEvent(envelope, event, "Page_View__e", describe)

	assert.Equal(t, OperationSkip, result.Operation)
	require.Len(t, result.Notes, 1)
	assert.Contains(t, result.Notes[0], "Foo__c")
	// The payload is kept intact for diagnostics.
	assert.Equal(t, "viewed_page", gjson.GetBytes(result.Event.Data, "Event_Name__c").String())
}

func TestMapUserEvent_RequiredFieldSet(t *testing.T) {
	// Only fields that are non-nillable, without default and custom count
	// as required.
	describe := ObjectDescribe{Fields: []FieldDescribe{
		{Name: "Required__c", Nillable: false, Custom: true},
		{Name: "Nillable__c", Nillable: true, Custom: true},
		{Name: "Defaulted__c", Nillable: false, Custom: true, DefaultValue: "x"},
		{Name: "Standard", Nillable: false, Custom: false},
	}}
	assert.Equal(t, []string{"Required__c"}, describe.RequiredCustomFields())

	m := NewMappingUtil(TenantSettings{})
	envelope := insertEnvelope(`{"id":"u1"}`, `{}`)
	event := UserEvent{
		Event:      "viewed_page",
		Properties: map[string]interface{}{"required": "value"},
	}
	describe.Fields = append(describe.Fields, FieldDescribe{Name: "Event_Name__c", Nillable: true, Custom: true})

	result := m.MapUserEvent(envelope, event, "Page_View__e", describe)
	assert.Equal(t, OperationInsert, result.Operation, "populated required field must not skip")
}

func TestMapUserEvent_NotesAccumulate(t *testing.T) {
	m := NewMappingUtil(TenantSettings{})
	envelope := insertEnvelope(`{"id":"u1"}`, `{}`)
	envelope.Notes = []string{"earlier note."}
	event := UserEvent{Event: "viewed_page"}

	result := m.MapUserEvent(envelope, event, "Page_View", describeWithFields("Other__c"))

	require.Len(t, result.Notes, 2)
	assert.Equal(t, "earlier note.", result.Notes[0])
	// The input envelope is untouched.
	assert.Len(t, envelope.Notes, 1)
}

func TestMapUserEvent_AttributeMappings(t *testing.T) {
	settings := TenantSettings{
		AttributeMappings: []AttributeMapping{
			{Hull: "traits_company", Service: "company"},
			{Hull: "traits_missing", Service: "missing"},
		},
	}
	m := NewMappingUtil(settings)
	envelope := insertEnvelope(`{"id":"u1","traits_company":"Acme"}`, `{}`)
	event := UserEvent{Event: "viewed_page"}
	describe := describeWithFields("Event_Name__c", "Company__c", "Missing__c")

	result := m.MapUserEvent(envelope, event, "Page_View__e", describe)

	assert.Equal(t, "Acme", gjson.GetBytes(result.Event.Data, "Company__c").String())
	assert.False(t, gjson.GetBytes(result.Event.Data, "Missing__c").Exists())
}
