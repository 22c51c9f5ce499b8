package service

// Flow event types pushed to a user's websocket connections
const (
	EventFlowProgress     = "flow_progress"
	EventFlowSubmitting   = "flow_submitting"
	EventFlowCompleted    = "flow_completed"
	EventFlowSubmitFailed = "flow_submit_failed"
	EventWalletUpdated    = "wallet_updated"
)

// Broadcaster interface for WebSocket broadcasting (avoids import cycle)
type Broadcaster interface {
	BroadcastToUser(userID string, msgType string, payload interface{})
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToUser(string, string, interface{}) {}
