package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	// TitleMaxLength is the maximum length of a loop title.
	TitleMaxLength = 255
	// DescriptionMaxLength is the maximum length of a loop description.
	DescriptionMaxLength = 300
	// MoodMaxLength is the maximum length of a loop mood.
	MoodMaxLength = 50
	// RatingMax is the upper bound of a loop rating, ratings go from 0 to 10.
	RatingMax = 10
)

// AudioURLAllowList holds the url prefixes a loop's audio may be hosted on.
// Anything else is rejected at creation time.
var AudioURLAllowList = []string{
	"https://www.youtube.com/",
	"https://youtu.be/",
	"https://soundcloud.com/",
}

// Loop represents a published audio loop. LikeCount and CommentCount are
// denormalized counters kept in step with the likes and comments tables
// inside the same transaction that touches them.
type Loop struct {
	ID          int    `json:"id"`
	UserID      int    `json:"user_id" gorm:"notNull;index"`
	User        *User  `json:"user,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Genre       string `json:"genre" gorm:"index"`
	Rating      int    `json:"rating"`
	Mood        string `json:"mood"`
	AudioURL    string `json:"audio_url"`

	// IPAddress records the network origin the loop was created from.
	// It only exists to enforce the per-origin daily cap.
	IPAddress string `json:"-" gorm:"index"`

	LikeCount    int `json:"likes"`
	CommentCount int `json:"comments"`

	// LikedByViewer reports whether the requesting user likes this loop.
	// It's filled per request and never stored.
	LikedByViewer bool `json:"is_liked_by_current_user" gorm:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"`
}

// LoopUpdate holds a partial loop update. Nil fields are left untouched.
type LoopUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Genre       *string `json:"genre"`
	Rating      *int    `json:"rating"`
	Mood        *string `json:"mood"`
	AudioURL    *string `json:"audio_url"`
}

// LoopService is a set of methods to manipulate and work with the Loop model.
// Create, Update and Delete are the single entry points for mutations: they
// run authorization, quota and validation before anything is committed.
type LoopService interface {
	ByID(id int, viewer *User) (*Loop, error)
	All(viewer *User) ([]Loop, error)
	ByGenre(genre string, viewer *User) ([]Loop, error)
	ByUserID(userID int, viewer *User) ([]Loop, error)
	Search(term string, viewer *User) ([]Loop, error)
	Create(ctx context.Context, actor *User, loop *Loop) error
	Update(ctx context.Context, actor *User, id int, upd *LoopUpdate) (*Loop, error)
	Delete(ctx context.Context, actor *User, id int) error
	ReconcileCounters(ctx context.Context) error
}
