package gateway

import (
	"encoding/json"
	"strings"
	"time"

	"PShare/tools/decode"
	"PShare/tools/errs"
)

// Event names on the wire.
const (
	EventSendFile     = "send_file"
	EventNotification = "notification"
)

// NotificationType tags the payload of a notification frame.
type NotificationType string

const (
	NotifyFileSent     NotificationType = "file_sent"
	NotifyFileReceived NotificationType = "file_received"
	NotifyError        NotificationType = "error"
)

var errEmptyEvent = errs.New("frame has no event name")

// Frame is one JSON text frame: {"event": "...", "data": {...}}.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SendFileRequest is the payload of send_file. The sender is never taken from here.
type SendFileRequest struct {
	FileID     string `json:"fileId"`
	ReceiverID string `json:"receiverId"`
}

func (r SendFileRequest) Validate() error {
	if strings.TrimSpace(r.FileID) == "" || strings.TrimSpace(r.ReceiverID) == "" {
		return errs.ErrInvalidRequest.WrapMsg("fileId and receiverId are required")
	}
	return nil
}

// Notification is the payload of every outbound notification frame.
type Notification struct {
	Type       NotificationType `json:"type"`
	Message    string           `json:"message"`
	FileID     string           `json:"fileId,omitempty"`
	FileName   string           `json:"fileName,omitempty"`
	SenderID   string           `json:"senderId,omitempty"`
	ReceiverID string           `json:"receiverId,omitempty"`
	Timestamp  string           `json:"timestamp,omitempty"`
}

func errorNotification(msg string) Notification {
	return Notification{Type: NotifyError, Message: msg}
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

// ParseFrame decodes a raw text frame. Only the envelope is checked here;
// the payload is decoded by the handler registered for the event.
func ParseFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, errs.WrapMsg(err, "unmarshal frame failed")
	}
	if f.Event == "" {
		return Frame{}, errEmptyEvent
	}
	return f, nil
}

// EncodeFrame builds the wire bytes for event with payload v.
func EncodeFrame(event string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errs.WrapMsg(err, "marshal payload failed", "event", event)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// DecodeSendFile reads the send_file payload. Wrong field types are rejected;
// unknown fields are ignored.
func DecodeSendFile(f Frame) (SendFileRequest, error) {
	if len(f.Data) == 0 {
		return SendFileRequest{}, errs.ErrInvalidRequest.WrapMsg("send_file without data")
	}
	req, err := decode.Raw[SendFileRequest](f.Data)
	if err != nil {
		return SendFileRequest{}, errs.ErrInvalidRequest.WrapMsg(err.Error())
	}
	return *req, req.Validate()
}
