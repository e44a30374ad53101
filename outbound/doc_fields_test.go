package outbound

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMappingDocumentation(t *testing.T) {
	settings := TenantSettings{
		EventMappings: []EventMapping{
			{Hull: "viewed_page", Service: "Page_View__e"},
			{Hull: "signed_up", Service: ""},
		},
		AttributeMappings: []AttributeMapping{
			{Hull: "traits_plan", Service: "plan"},
		},
	}

	doc := GenerateMappingDocumentation(settings)

	// One event name row, five builtins, one attribute.
	require.Len(t, doc.Rows, 7)

	assert.Equal(t, FieldDocRow{
		HullEvent: "viewed_page",
		SObject:   "Page_View__e",
		FieldName: "Event_Name__c",
		Label:     "Event Name",
		Kind:      "event name",
		Source:    "event",
	}, doc.Rows[0])

	var builtinFields []string
	for _, row := range doc.Rows[1:6] {
		assert.Equal(t, "builtin", row.Kind)
		builtinFields = append(builtinFields, row.FieldName)
	}
	assert.Contains(t, builtinFields, "User_Email__c")
	assert.Contains(t, builtinFields, "Account_Id__c")

	last := doc.Rows[6]
	assert.Equal(t, "attribute", last.Kind)
	assert.Equal(t, "Plan__c", last.FieldName)
	assert.Equal(t, "user.traits_plan", last.Source)
}

func TestGenerateMappingDocumentation_LowercaseConvention(t *testing.T) {
	settings := TenantSettings{
		NamingConvention: NamingConventionLowercase,
		EventMappings: []EventMapping{
			{Hull: "viewed_page", Service: "Page_View__e"},
		},
	}

	doc := GenerateMappingDocumentation(settings)
	assert.Equal(t, "event_name__c", doc.Rows[0].FieldName)
}

func TestMappingDocumentationCSV(t *testing.T) {
	settings := TenantSettings{
		EventMappings: []EventMapping{
			{Hull: "viewed_page", Service: "Page_View__e"},
		},
	}

	out, err := GenerateMappingDocumentation(settings).CSV()
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "Hull Event,Salesforce Object,Field Name,Label,Kind,Source", lines[0])
	assert.Equal(t, "viewed_page,Page_View__e,Event_Name__c,Event Name,event name,event", lines[1])
}
