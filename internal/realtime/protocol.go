package realtime

// ScopeCommand is the client->server control frame on a WebSocket
// connection: subscribe to or unsubscribe from one scope.
type ScopeCommand struct {
	Action string `json:"action"`
	Scope  string `json:"scope"`
}

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)
