package outbound

// StatusValue is the three valued connector health state.
type StatusValue string

const (
	StatusOK            StatusValue = "ok"
	StatusSetupRequired StatusValue = "setupRequired"
	StatusError         StatusValue = "error"
)

// ConnectorStatus is the composed connector health reported to the Hull
// platform.
type ConnectorStatus struct {
	Status   StatusValue `json:"status"`
	Messages []string    `json:"messages"`
}

// AuthStatus is the authentication state of the connector.
type AuthStatus struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// Authorized reports whether the connector can make authenticated calls.
func (s AuthStatus) Authorized() bool {
	return s.StatusCode == 200
}
