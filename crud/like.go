package crud

import (
	"context"

	"gorm.io/gorm"

	"loopLife/domain"
	"loopLife/errs"
	"loopLife/guard"
)

// LikeService manages Likes. A like is a two-state toggle per (user, loop):
// liking creates the edge and bumps the loop's counter by one, unliking
// destroys it and drops the counter by one, and any other transition is
// rejected without side effects. The edge insert runs against the composite
// unique index, so a duplicate like loses the race at the database instead
// of double-counting. It implements the domain.LikeService interface.
type LikeService struct {
	likeValidator
}

// likeValidator runs validations on incoming Like data.
// On success, it passes the data on to likeGorm.
// Otherwise, it returns the error of the validation that has failed.
type likeValidator struct {
	likeGorm
}

// likeGorm runs CRUD operations on the database using incoming Like data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type likeGorm struct {
	db *gorm.DB
}

// NewLikeService returns an instance of LikeService.
func NewLikeService(db *gorm.DB) *LikeService {
	return &LikeService{
		likeValidator{
			likeGorm{
				db: db,
			},
		},
	}
}

// Ensure the LikeService struct properly implements the domain.LikeService
// interface. If it does not, then this expression becomes invalid and won't compile.
var _ domain.LikeService = &LikeService{}

// Like creates the like edge for (actor, loop). The actor must be
// authenticated and the loop must exist. Liking an already liked loop
// returns a conflict and moves nothing.
func (lv *likeValidator) Like(ctx context.Context, actor *domain.User, loopID int) (*domain.Like, error) {
	if err := guard.RequireAuth(actor, guard.ActionLike); err != nil {
		return nil, err
	}
	like := &domain.Like{
		UserID: actor.ID,
		LoopID: loopID,
	}
	if err := lv.likeGorm.Create(ctx, like); err != nil {
		return nil, err
	}
	return like, nil
}

// Unlike destroys the like edge for (actor, loop). The actor must be
// authenticated and the loop must exist. Unliking a loop without an
// existing edge returns a conflict and moves nothing.
func (lv *likeValidator) Unlike(ctx context.Context, actor *domain.User, loopID int) error {
	if err := guard.RequireAuth(actor, guard.ActionLike); err != nil {
		return err
	}
	return lv.likeGorm.Delete(ctx, actor.ID, loopID)
}

// Create inserts the edge and increments the loop's like counter as one
// atomic unit. The existence check is the insert itself: if another request
// created the edge first, the unique index rejects this one and the whole
// transaction rolls back, counter included.
func (lg *likeGorm) Create(ctx context.Context, like *domain.Like) error {
	return lg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loop domain.Loop
		if err := tx.First(&loop, "id = ?", like.LoopID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.Errorf(errs.ENOTFOUND, "The loop you are trying to like does not exist.")
			}
			return err
		}
		if err := tx.Create(like).Error; err != nil {
			if err == gorm.ErrDuplicatedKey {
				return errs.Errorf(errs.ECONFLICT, "You already like this loop.")
			}
			return err
		}
		return tx.Model(&domain.Loop{}).
			Where("id = ?", like.LoopID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
}

// Delete removes the edge and decrements the loop's like counter as one
// atomic unit. A zero row count on the delete means there was no edge, so
// nothing else may move either.
func (lg *likeGorm) Delete(ctx context.Context, userID, loopID int) error {
	return lg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loop domain.Loop
		if err := tx.First(&loop, "id = ?", loopID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.Errorf(errs.ENOTFOUND, "The loop you are trying to unlike does not exist.")
			}
			return err
		}
		res := tx.Where("user_id = ? AND loop_id = ?", userID, loopID).Delete(&domain.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.Errorf(errs.ECONFLICT, "You cannot unlike a loop you have not liked.")
		}
		// The counter never goes below zero, even if it drifted.
		return tx.Model(&domain.Loop{}).
			Where("id = ? AND like_count > 0", loopID).
			UpdateColumn("like_count", gorm.Expr("like_count - 1")).Error
	})
}
