package domain

import "time"

// Bookmark is a user's "interested in" reference to a shared record.
// It is independent of ownership: at most one per (UserID, RecordID), and a
// user never holds a bookmark on a record they own.
type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	RecordID  string    `json:"recordId"`
	CreatedAt time.Time `json:"createdAt"`
}

// BookmarkWithRecord is a bookmark resolved against the record store.
// Record is nil when the record has been deleted since.
type BookmarkWithRecord struct {
	Bookmark
	Record *Record `json:"record,omitempty"`
}
