// Package relay serves the dashboard: a websocket endpoint that pushes
// snapshots and forwarded feed traffic to connected clients, plus a
// small JSON API for polling, status, and manual refresh.
package relay

import (
	"github.com/washdeck/backend/internal/dataset"
	"github.com/washdeck/backend/internal/feed"
	"github.com/washdeck/backend/internal/model"
)

type MessageType string

const (
	// MsgSnapshot carries a full data snapshot. Sent once on connect
	// and again on every reload or periodic push.
	MsgSnapshot MessageType = "snapshot"

	// MsgFeedStatus announces the upstream feed connection state.
	MsgFeedStatus MessageType = "feed_status"

	// Upstream update messages (task_update, crew_update, ...) are
	// forwarded to clients in their original envelope, so their type
	// strings share this namespace.
)

type WSMessage struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload"`
}

// FeedStatusPayload tells clients whether live updates are flowing or
// they are on snapshots alone.
type FeedStatusPayload struct {
	Mode  string     `json:"mode"` // "live" or "polling"
	State feed.State `json:"state"`
}

// StatusResponse is the /api/status body.
type StatusResponse struct {
	Feed     FeedStatusPayload                  `json:"feed"`
	States   map[model.Kind]dataset.State       `json:"states"`
	Datasets map[model.Kind]model.DatasetStatus `json:"datasets"`
	Clients  int                                `json:"clients"`
}
