package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// CommentMaxLength is the maximum length of a comment, in runes.
const CommentMaxLength = 150

// Comment represents a user's comment on a loop. Comments are soft-deleted
// so the per-day comment quota still counts them after deletion.
type Comment struct {
	ID      int    `json:"id"`
	UserID  int    `json:"user_id" gorm:"notNull;index"`
	User    *User  `json:"user,omitempty"`
	LoopID  int    `json:"loop_id" gorm:"notNull;index"`
	Content string `json:"content"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"`
}

// CommentService is a set of methods to manipulate and work with the Comment
// model. Create and Delete run authorization, validation and quota checks
// before anything is committed.
type CommentService interface {
	ByLoopID(loopID int) ([]Comment, error)
	Create(ctx context.Context, actor *User, comment *Comment) error
	Delete(ctx context.Context, actor *User, loopID, commentID int) error
}
