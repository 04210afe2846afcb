package chat

import "encoding/json"

// Client->server frame types (spec.md §4.1).
const (
	FrameHello       = "hello"
	FrameStatus      = "status"
	FrameMessage     = "message"
	FrameGetUserConf = "getuserconf"
	FrameSetUserConf = "setuserconf"
	FramePayPal      = "paypal"
)

// Server->client frame types.
const (
	FrameChat       = "chat"
	FrameServerMsg  = "servermsg"
	FrameDelete     = "delete"
	FrameJoin       = "join"
	FramePart       = "part"
	FrameAuthLevel  = "authlevel"
	FrameAccepted   = "accepted"
)

// Status values (spec.md §6).
const (
	StatusUnauthenticated = "unauthenticated"
	StatusAuthenticated   = "authenticated"
	StatusBanned          = "banned"
	StatusRename          = "rename"
	StatusNameExists      = "nameexists"
	StatusNameTimeout     = "nametimeout"
	StatusNameInvalid     = "nameinvalid"
	StatusSetUserConf     = "setuserconf"
	StatusNameLength      = "namelength"
)

// InboundFrame is the JSON shape of every client->server frame.
type InboundFrame struct {
	Type  string          `json:"type"`
	Token string          `json:"token"`
	Auth  string          `json:"auth"`
	Data  json.RawMessage `json:"data"`
}

// OutboundFrame is the JSON shape of every server->client frame.
type OutboundFrame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// unmarshalData decodes an inbound frame's type-specific data object
// into dst.
func unmarshalData(data json.RawMessage, dst any) error {
	return json.Unmarshal(data, dst)
}

func encodeFrame(frameType string, data any) []byte {
	b, err := json.Marshal(OutboundFrame{Type: frameType, Data: data})
	if err != nil {
		// data is always one of this package's own payload structs;
		// a marshal failure here means a programming error, not a
		// runtime condition callers can recover from.
		panic("chat: failed to encode frame: " + err.Error())
	}
	return b
}

// StatusPayload is the data object of a status frame.
type StatusPayload struct {
	Status string `json:"status"`
}

// ChatPayload is the data object of a chat frame. AuthorLevel and Auth
// deliberately carry the same integer — this duplication is a wire
// contract, preserved from the original protocol, not an accident.
type ChatPayload struct {
	ID          int64  `json:"id"`
	Time        int64  `json:"time"`
	Author      string `json:"author"`
	AuthorID    int64  `json:"author_id"`
	AuthorColor string `json:"author_color"`
	AuthorLevel int    `json:"author_level"`
	Message     string `json:"message"`
	Auth        int    `json:"auth"`
	DonateValue string `json:"donate_value"`
}

// ServerMsgPayload is the data object of a servermsg frame.
type ServerMsgPayload struct {
	Message string `json:"message"`
}

// DeletePayload is the data object of a delete frame.
type DeletePayload struct {
	Messages []int64 `json:"messages"`
}

// JoinPayload / PartPayload describe registry edges.
type JoinPayload struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
}

type PartPayload struct {
	UserID int64 `json:"user_id"`
}

// AuthLevelPayload notifies a client of its resolved auth level.
type AuthLevelPayload struct {
	AuthLevel int `json:"auth_level"`
}

// AcceptedPayload echoes a sent message back to its author.
type AcceptedPayload struct {
	Message string `json:"message"`
}

// GetUserConfPayload / SetUserConfPayload carry user-config fields.
type GetUserConfPayload struct {
	DisplayName string `json:"display_name"`
	DisplayColor string `json:"display_color"`
}

type SetUserConfPayload struct {
	DisplayName  string `json:"display_name,omitempty"`
	DisplayColor string `json:"display_color,omitempty"`
}

// PayPalPayload is the client-submitted donation payload.
type PayPalPayload struct {
	OrderID string `json:"order_id"`
	Message string `json:"message"`
}
