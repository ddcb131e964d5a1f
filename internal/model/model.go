// Package model defines the domain types used across the application.
package model

import "time"

// Admin is the identity registered as super admin by the first /start.
type Admin struct {
	UserID    int64
	Username  string
	CreatedAt time.Time
}

// PendingRequest is an /addadmin request waiting for the super admin.
// Usernames are stored without the leading "@".
type PendingRequest struct {
	ID                int64
	ChatID            int64
	RequestedUsername string
	RequesterUsername string
	CreatedAt         time.Time
}

// ContentKind tells how a post payload is delivered.
type ContentKind string

// Supported content kinds.
const (
	ContentText  ContentKind = "text"
	ContentPhoto ContentKind = "photo"
)

// Content is the payload captured during the /newpost dialogue.
type Content struct {
	Kind        ContentKind
	Text        string
	PhotoFileID string
	Caption     string
}

// Post is a scheduled delivery of Content to a chat.
// Day is set if and only if Recurring is true.
type Post struct {
	ID        int64
	ChatID    int64
	Hour      int
	Minute    int
	Day       *time.Weekday
	Content   Content
	Recurring bool
	CreatedAt time.Time
}

