package content

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("content not found")

type Content struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// WithOwner is the admin-facing listing row; regular responses never
// include owner information.
type WithOwner struct {
	Content
	OwnerEmail string `json:"owner_email"`
}

type CreateContentRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}
