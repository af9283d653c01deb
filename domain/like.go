package domain

import (
	"context"
	"time"
)

// Like represents "user U likes loop L". The liked state IS the existence
// of this row, there is no separate boolean anywhere. The composite unique
// index makes the insert the compare-and-swap of the like toggle: two
// concurrent likes can never both create the edge. Likes are hard-deleted,
// a soft delete would keep blocking the unique index on re-like.
type Like struct {
	ID     int `json:"id"`
	UserID int `json:"user_id" gorm:"notNull;uniqueIndex:idx_likes_user_loop"`
	LoopID int `json:"loop_id" gorm:"notNull;uniqueIndex:idx_likes_user_loop"`

	CreatedAt time.Time `json:"created_at"`
}

// LikeService toggles likes. Like and Unlike adjust the loop's denormalized
// like counter by exactly one in the same transaction that creates or
// destroys the edge; misuse (like while liked, unlike while unliked) is
// rejected without any side effect.
type LikeService interface {
	Like(ctx context.Context, actor *User, loopID int) (*Like, error)
	Unlike(ctx context.Context, actor *User, loopID int) error
}
