package model

import "time"

// Session status
const (
	SessionActive    = "active"
	SessionLoggedOut = "logged_out"
)

// UserSession is the audit record of one login.
type UserSession struct {
	SessionID  string     `bson:"session_id" json:"session_id"`
	UserID     string     `bson:"user_id" json:"user_id"`
	IP         string     `bson:"ip" json:"ip"`
	UserAgent  string     `bson:"user_agent,omitempty" json:"user_agent"`
	LoginTime  time.Time  `bson:"login_time" json:"login_time"`
	ExpireAt   time.Time  `bson:"expire_at" json:"expire_at"` // TTL index
	LogoutTime *time.Time `bson:"logout_time,omitempty" json:"logout_time"`
	Status     string     `bson:"status" json:"status"`
}

func (s *UserSession) GetTableName() string {
	return "user_sessions"
}
