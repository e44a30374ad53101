package outbound

import "strings"

// Operation is the outcome decision for one unit of outbound work.
type Operation string

const (
	OperationInsert Operation = "insert"
	OperationSkip   Operation = "skip"
)

// PlatformEventWrapper is the outbound record payload for one platform event,
// built as a JSON document so field presence can be checked with gjson.
type PlatformEventWrapper struct {
	SObject string `json:"sObject"`
	Data    []byte `json:"data"`
}

// OutgoingEnvelope carries one unit of outbound work: the source message, the
// chosen operation, the diagnostic notes explaining any skip, and (after the
// mapping stage) the target payload.
//
// Notes accumulate and are never cleared. An envelope whose operation is skip
// carries at least one note.
type OutgoingEnvelope struct {
	Message   UserUpdateMessage
	Operation Operation
	Notes     []string
	Event     *PlatformEventWrapper
}

// AppendNote records a human readable reason on the envelope.
func (e *OutgoingEnvelope) AppendNote(note string) {
	e.Notes = append(e.Notes, note)
}

// Reason joins the accumulated notes into a single reason string.
func (e OutgoingEnvelope) Reason() string {
	if len(e.Notes) == 0 {
		return "Unknown reason"
	}
	return strings.TrimSpace(strings.Join(e.Notes, " "))
}

// FilteredEnvelopes is the result of the filter stage, partitioning a batch
// of inbound messages into inserts and skips.
type FilteredEnvelopes struct {
	Inserts []OutgoingEnvelope
	Skips   []OutgoingEnvelope
}
