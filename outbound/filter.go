package outbound

// FilterUtil classifies inbound user update messages as inserts or skips
// according to the tenant settings. Classification is pure; emitting skip
// observability is the caller's job.
type FilterUtil struct {
	Settings TenantSettings
}

// NewFilterUtil returns a filter for the given tenant settings.
func NewFilterUtil(settings TenantSettings) *FilterUtil {
	return &FilterUtil{Settings: settings}
}

// FilterUserMessages partitions the batch into inserts and skips. Checks are
// evaluated in order and the first failing check wins:
// segment membership, event whitelist, then (if configured) the
// existing-in-Salesforce requirement.
func (f *FilterUtil) FilterUserMessages(messages []UserUpdateMessage) FilteredEnvelopes {
	var result FilteredEnvelopes

	whitelisted := f.Settings.WhitelistedEvents()

	for _, msg := range messages {
		switch {
		case !isInAnySegment(msg.Segments, f.Settings.SynchronizedSegments):
			result.Skips = append(result.Skips, OutgoingEnvelope{
				Message:   msg,
				Operation: OperationSkip,
				Notes:     []string{SkipNoteNotInAnySegment("user")},
			})
		case !hasAnyWhitelistedEvents(msg.Events, whitelisted):
			result.Skips = append(result.Skips, OutgoingEnvelope{
				Message:   msg,
				Operation: OperationSkip,
				Notes:     []string{SkipNoteNoWhitelistedEvents()},
			})
		case f.Settings.FilterOnlyExisting && !isExistingInSalesforce(msg.User):
			result.Skips = append(result.Skips, OutgoingEnvelope{
				Message:   msg,
				Operation: OperationSkip,
				Notes:     []string{SkipNoteNotExistingInSalesforce()},
			})
		default:
			result.Inserts = append(result.Inserts, OutgoingEnvelope{
				Message:   msg,
				Operation: OperationInsert,
			})
		}
	}

	return result
}

func isInAnySegment(actual []Segment, whitelisted []string) bool {
	for _, id := range whitelisted {
		if id == SegmentAll {
			return true
		}
	}
	for _, s := range actual {
		for _, id := range whitelisted {
			if s.ID == id {
				return true
			}
		}
	}
	return false
}

func hasAnyWhitelistedEvents(events []UserEvent, whitelisted []string) bool {
	for _, evt := range events {
		for _, name := range whitelisted {
			if evt.Event == name {
				return true
			}
		}
	}
	return false
}

func isExistingInSalesforce(user User) bool {
	if _, ok := user.SalesforceContactID(); ok {
		return true
	}
	_, ok := user.SalesforceLeadID()
	return ok
}
