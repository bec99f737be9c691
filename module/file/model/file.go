package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// File is the metadata of one uploaded blob addressed from Sender to Receiver.
type File struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Filename     string             `bson:"filename" json:"filename"`         // stored name on disk
	OriginalName string             `bson:"originalname" json:"originalname"` // name chosen by the uploader
	Sender       string             `bson:"sender" json:"sender"`
	Receiver     string             `bson:"receiver" json:"receiver"`
	Size         int64              `bson:"size" json:"size"`
	ContentType  string             `bson:"contentType,omitempty" json:"contentType,omitempty"`
	Downloads    int64              `bson:"downloads" json:"downloads"`
	UploadedAt   time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

func (f *File) GetTableName() string {
	return "files"
}

// IsParticipant reports whether userID sent or received the file.
func (f *File) IsParticipant(userID string) bool {
	return userID != "" && (f.Sender == userID || f.Receiver == userID)
}
