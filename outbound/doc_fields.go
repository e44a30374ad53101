package outbound

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
)

// FieldDocRow documents one outbound field of the tenant's configuration.
type FieldDocRow struct {
	HullEvent string // Hull event name, empty for fields shared by all events
	SObject   string // target platform event object, empty for shared fields
	FieldName string // qualified Salesforce API name
	Label     string // human readable label
	Kind      string // "event name", "builtin", "attribute"
	Source    string // where the value comes from
}

// MappingDocumentation is the rendered field mapping documentation for a
// tenant, used by the settings UI.
type MappingDocumentation struct {
	Rows []FieldDocRow
}

// GenerateMappingDocumentation builds the documentation rows from the tenant
// settings: the mandatory event name field per mapped event, the built-in
// identity fields, and the configured attribute mappings.
func GenerateMappingDocumentation(settings TenantSettings) MappingDocumentation {
	namer := settings.Namer()
	doc := MappingDocumentation{Rows: []FieldDocRow{}}

	for _, m := range settings.EventMappings {
		if m.Hull == "" || m.Service == "" {
			continue
		}
		doc.Rows = append(doc.Rows, FieldDocRow{
			HullEvent: m.Hull,
			SObject:   m.Service,
			FieldName: namer.FieldName(eventNameKey),
			Label:     labelForKey(eventNameKey),
			Kind:      "event name",
			Source:    "event",
		})
	}

	builtins := []struct {
		key    string
		source string
	}{
		{builtinUserEmailKey, "user.email"},
		{builtinUserExternalIDKey, "user.external_id"},
		{builtinContactIDKey, "user.traits_salesforce_contact/id"},
		{builtinLeadIDKey, "user.traits_salesforce_lead/id"},
		{builtinAccountIDKey, "account.salesforce/id"},
	}
	for _, b := range builtins {
		doc.Rows = append(doc.Rows, FieldDocRow{
			FieldName: namer.FieldName(b.key),
			Label:     labelForKey(b.key),
			Kind:      "builtin",
			Source:    b.source,
		})
	}

	for _, am := range settings.AttributeMappings {
		if am.Hull == "" || am.Service == "" {
			continue
		}
		doc.Rows = append(doc.Rows, FieldDocRow{
			FieldName: namer.FieldName(am.Service),
			Label:     labelForKey(am.Service),
			Kind:      "attribute",
			Source:    fmt.Sprintf("user.%s", am.Hull),
		})
	}

	// Deterministic output: event name rows first (by event), then builtin,
	// then attribute rows, alphabetically within each group.
	kindOrder := map[string]int{"event name": 0, "builtin": 1, "attribute": 2}
	sort.SliceStable(doc.Rows, func(i, j int) bool {
		if kindOrder[doc.Rows[i].Kind] != kindOrder[doc.Rows[j].Kind] {
			return kindOrder[doc.Rows[i].Kind] < kindOrder[doc.Rows[j].Kind]
		}
		if doc.Rows[i].HullEvent != doc.Rows[j].HullEvent {
			return doc.Rows[i].HullEvent < doc.Rows[j].HullEvent
		}
		return doc.Rows[i].FieldName < doc.Rows[j].FieldName
	})

	return doc
}

// CSV renders the documentation as CSV with a header row.
func (d MappingDocumentation) CSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Hull Event", "Salesforce Object", "Field Name", "Label", "Kind", "Source"}); err != nil {
		return "", err
	}
	for _, row := range d.Rows {
		if err := w.Write([]string{row.HullEvent, row.SObject, row.FieldName, row.Label, row.Kind, row.Source}); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// labelForKey turns an underscore delimited key into a display label, e.g.
// "user_external_id" becomes "User External Id".
func labelForKey(key string) string {
	var label string
	for _, s := range strings.Split(key, "_") {
		if s == "" {
			continue
		}
		if label != "" {
			label = label + " " + strcase.ToCamel(s)
		} else {
			label = strcase.ToCamel(s)
		}
	}
	return label
}
