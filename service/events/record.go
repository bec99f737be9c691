package events

import "time"

// Outcome is how a transfer request ended.
type Outcome string

const (
	OutcomeDelivered       Outcome = "delivered"
	OutcomeReceiverOffline Outcome = "receiver_offline"
	OutcomeFileNotFound    Outcome = "file_not_found"
	OutcomeInvalidRequest  Outcome = "invalid_request"
	OutcomeFailed          Outcome = "failed"
)

// TransferRecord is one entry of the transfer journal.
type TransferRecord struct {
	ID         string    `json:"id"`
	Outcome    Outcome   `json:"outcome"`
	FileID     string    `json:"fileId"`
	FileName   string    `json:"fileName,omitempty"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Node       int64     `json:"node"`
	At         time.Time `json:"at"`
}
