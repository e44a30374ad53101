package outbound

import (
	"fmt"
	"strings"
)

// Validation codes attached to skip notes and setup messages so support can
// trace a reported reason back to the rule that produced it.
const (
	codeSkipNotInAnySegment      = "VAL-10-001"
	codeSkipNoWhitelistedEvents  = "VAL-10-002"
	codeSkipNotExistingInService = "VAL-10-003"
	codeSkipMissingEventName     = "VAL-11-001"
	codeSkipMissingRequired      = "VAL-11-002"
	codeSetupRequiredApp         = "VAL-01-001"
	codeSetupRequiredAuth        = "VAL-01-002"
)

// SkipNoteNotInAnySegment explains a segment filter skip for the given object
// type ("user" or "account").
func SkipNoteNotInAnySegment(objectType string) string {
	return fmt.Sprintf("Hull %s won't be synchronized since it is not matching any of the filtered segments. [Code: %s]", objectType, codeSkipNotInAnySegment)
}

// SkipNoteNoWhitelistedEvents explains an event whitelist skip.
func SkipNoteNoWhitelistedEvents() string {
	return fmt.Sprintf("None of the whitelisted events occurred, no data will be sent to Salesforce. [Code: %s]", codeSkipNoWhitelistedEvents)
}

// SkipNoteNotExistingInSalesforce explains a skip of a user who is not yet
// linked to a Salesforce lead or contact.
func SkipNoteNotExistingInSalesforce() string {
	return fmt.Sprintf("The user has not been already synchronized as a lead or contact, no data will be sent to Salesforce. [Code: %s]", codeSkipNotExistingInService)
}

// SkipNoteMissingEventName explains a skip caused by the target object not
// having the mandatory event name field.
func SkipNoteMissingEventName(sObject string, fieldName string) string {
	return fmt.Sprintf("The Salesforce Object '%s' doesn't have a field configured with the API name '%s' which is mandatory. (Code: %s)", sObject, fieldName, codeSkipMissingEventName)
}

// SkipNoteMissingRequiredFields explains a skip caused by required custom
// fields without defaults that the mapping could not populate.
func SkipNoteMissingRequiredFields(sObject string, missing []string) string {
	return fmt.Sprintf("Converting the Hull event to the Salesforce Object '%s' left the following required fields with no defaults without a value: %s. Cannot send the Hull event to Salesforce. (Code: %s)", sObject, strings.Join(missing, ", "), codeSkipMissingRequired)
}

// MessageSetupRequiredConnectedApp is reported when the OAuth connected app
// credentials are missing from the settings.
func MessageSetupRequiredConnectedApp() string {
	return fmt.Sprintf("You haven't configured the 'Salesforce OAuth Client ID' and/or 'Salesforce OAuth Client Secret' in the Settings. See the documentation for details. (Code: %s)", codeSetupRequiredApp)
}

// MessageSetupRequiredInitialAuth is reported when the connector has not yet
// been authorized against a Salesforce instance.
func MessageSetupRequiredInitialAuth() string {
	return fmt.Sprintf("You haven't authorized the Connector with your Salesforce Instance. Use the Connect button in the Settings section 'Connection'. (Code: %s)", codeSetupRequiredAuth)
}

// ErrorUnhandledGeneric is the user facing fallback for unhandled failures.
const ErrorUnhandledGeneric = "An unhandled error occurred and our engineering team has been notified."
