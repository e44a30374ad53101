package outbound

import (
	"github.com/tidwall/gjson"
)

// Source wraps a parsed attribute document and provides path based lookups.
// Hull stores user and account attributes as a flat JSON object whose keys
// may contain slashes (e.g. "traits_salesforce_contact/id").
type Source struct {
	data gjson.Result
}

// SourceFromJSON parses the given JSON document into a Source.
func SourceFromJSON(json string) Source {
	return Source{data: gjson.Parse(json)}
}

// StringForPath returns the string value at path and whether it is present
// and non-null.
func (s Source) StringForPath(path string) (string, bool) {
	result := s.data.Get(path)
	return result.String(), result.Exists() && (result.Value() != nil)
}

// ValueForPath returns the raw value at path and whether it is present
// and non-null. Paths may use gjson modifiers (see modifiers.go).
func (s Source) ValueForPath(path string) (interface{}, bool) {
	result := s.data.Get(path)
	return result.Value(), result.Exists() && (result.Value() != nil)
}

// Raw returns the underlying JSON document.
func (s Source) Raw() string {
	return s.data.Raw
}

func (s *Source) UnmarshalJSON(b []byte) error {
	s.data = gjson.ParseBytes(b)
	return nil
}

func (s Source) MarshalJSON() ([]byte, error) {
	if s.data.Raw == "" {
		return []byte("null"), nil
	}
	return []byte(s.data.Raw), nil
}

// User is the Hull user attribute document of an update message.
type User struct {
	Source
}

// UserFromJSON parses the given JSON document into a User.
func UserFromJSON(json string) User {
	return User{Source: SourceFromJSON(json)}
}

func (u User) Email() (string, bool) {
	return u.StringForPath("email")
}

func (u User) ExternalID() (string, bool) {
	return u.StringForPath("external_id")
}

// SalesforceContactID returns the linked Salesforce contact id, if the user
// has already been synchronized as a contact.
func (u User) SalesforceContactID() (string, bool) {
	return u.StringForPath("traits_salesforce_contact/id")
}

// SalesforceLeadID returns the linked Salesforce lead id, if the user has
// already been synchronized as a lead.
func (u User) SalesforceLeadID() (string, bool) {
	return u.StringForPath("traits_salesforce_lead/id")
}

// Account is the Hull account attribute document of an update message.
type Account struct {
	Source
}

// AccountFromJSON parses the given JSON document into an Account.
func AccountFromJSON(json string) Account {
	return Account{Source: SourceFromJSON(json)}
}

// SalesforceID returns the linked Salesforce account id, if any.
func (a Account) SalesforceID() (string, bool) {
	return a.StringForPath("salesforce/id")
}

// Segment is a Hull segment the user is a member of.
type Segment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserEvent is a single behavioral event on a user update message.
type UserEvent struct {
	Event      string                 `json:"event"`
	Properties map[string]interface{} `json:"properties"`
}

// UserUpdateMessage is one user update notification from the Hull platform.
// It is immutable within a pipeline run.
type UserUpdateMessage struct {
	User     User        `json:"user"`
	Account  Account     `json:"account"`
	Segments []Segment   `json:"segments"`
	Events   []UserEvent `json:"events"`
}
