package models

import "time"

// RaidPinData is the announcement content associated 1:1 with a raid
type RaidPinData struct {
	ID          int64
	RaidID      int64
	Title       string
	Km          int
	Description string
}

// PinSendLog is one append-only delivery record. Rows from the same send
// run share a BatchID.
type PinSendLog struct {
	ID       int64
	BatchID  string
	AdminID  int64
	TargetID int64
	RaidID   *int64
	PinText  string
	SentAt   time.Time
}

// PinBatch is an aggregated journal view of one send run
type PinBatch struct {
	BatchID    string
	AdminID    int64
	AdminName  string
	PinText    string
	SentAt     time.Time
	Recipients int
}
