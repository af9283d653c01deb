package crud

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"loopLife/domain"
	"loopLife/errs"
	"loopLife/guard"
)

// CommentService manages Comments. Creation runs the full admission
// sequence: authentication, loop existence, payload validation and the
// per-(user, loop) daily cap, all before anything is written. It implements
// the domain.CommentService interface.
type CommentService struct {
	commentValidator
}

// commentValidator runs validations on incoming Comment data.
// On success, it passes the data on to commentGorm.
// Otherwise, it returns the error of the validation that has failed.
type commentValidator struct {
	commentGorm
}

// commentGorm runs CRUD operations on the database using incoming Comment
// data. It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type commentGorm struct {
	db *gorm.DB
}

// NewCommentService returns an instance of CommentService.
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{
		commentValidator{
			commentGorm{
				db: db,
			},
		},
	}
}

// Ensure the CommentService struct properly implements the
// domain.CommentService interface. If it does not, then this expression
// becomes invalid and won't compile.
var _ domain.CommentService = &CommentService{}

// Create runs the admission sequence for a new comment and commits it
// together with the loop's comment counter bump.
func (cv *commentValidator) Create(ctx context.Context, actor *domain.User, comment *domain.Comment) error {
	if err := guard.RequireAuth(actor, guard.ActionComment); err != nil {
		return err
	}
	comment.UserID = actor.ID
	err := runCommentValFns(comment,
		cv.contentMinLength,
		cv.contentMaxLength)
	if err != nil {
		return err
	}
	return cv.commentGorm.Create(ctx, comment)
}

// Delete soft-deletes the comment with the given id on the given loop.
// The actor must be the author or an admin.
func (cv *commentValidator) Delete(ctx context.Context, actor *domain.User, loopID, commentID int) error {
	comment, err := cv.commentGorm.byID(loopID, commentID)
	if err != nil {
		return err
	}
	if err := guard.Authorize(actor, comment.UserID, guard.ActionDelete); err != nil {
		return err
	}
	return cv.commentGorm.Delete(ctx, comment)
}

// runCommentValFns runs any number of functions of type commentValFn on the
// passed in Comment object. If none of them returns an error, it returns
// nil. Otherwise, it returns the respective error.
func runCommentValFns(comment *domain.Comment, fns ...commentValFn) error {
	for _, fn := range fns {
		if err := fn(comment); err != nil {
			return err
		}
	}
	return nil
}

// A commentValFn is any function that takes in a pointer to a domain.Comment
// object and returns an error.
type commentValFn func(comment *domain.Comment) error

// contentMaxLength makes sure that the content does not exceed the maximum
// comment length.
func (cv *commentValidator) contentMaxLength(comment *domain.Comment) error {
	if utf8.RuneCountInString(comment.Content) > domain.CommentMaxLength {
		return errs.Errorf(errs.EINVALID, "The comment max length is %d characters.", domain.CommentMaxLength)
	}
	return nil
}

// contentMinLength makes sure that the content is not empty.
func (cv *commentValidator) contentMinLength(comment *domain.Comment) error {
	if strings.TrimSpace(comment.Content) == "" {
		return errs.Errorf(errs.EINVALID, "The comment must not be empty.")
	}
	return nil
}

// ByLoopID retrieves all comments on a loop, newest first, along with each
// comment's author.
func (cg *commentGorm) ByLoopID(loopID int) ([]domain.Comment, error) {
	var comments []domain.Comment
	err := cg.db.
		Where("loop_id = ?", loopID).
		Preload("User").
		Order("created_at desc").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	for i := range comments {
		comments[i].User.StripPrivate()
	}
	return comments, nil
}

// byID retrieves a single comment scoped to its loop.
func (cg *commentGorm) byID(loopID, commentID int) (*domain.Comment, error) {
	var comment domain.Comment
	err := cg.db.First(&comment, "id = ? AND loop_id = ?", commentID, loopID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.Errorf(errs.ENOTFOUND, "The comment does not exist.")
		}
		return nil, err
	}
	return &comment, nil
}

// Create checks the per-(user, loop) cap and stores the comment, both inside
// one transaction under an advisory lock, then bumps the loop's comment
// counter. The loop existence check doubles as the 404 for comments on
// deleted loops.
func (cg *commentGorm) Create(ctx context.Context, comment *domain.Comment) error {
	return cg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loop domain.Loop
		if err := tx.First(&loop, "id = ?", comment.LoopID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errs.Errorf(errs.ENOTFOUND, "The loop you are trying to comment on does not exist.")
			}
			return err
		}
		if err := guard.LockActor(tx, guard.CommentActorKey(comment.UserID, comment.LoopID)); err != nil {
			return err
		}
		if err := guard.CheckCommentQuota(tx, comment.UserID, comment.LoopID, time.Now()); err != nil {
			return err
		}
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Loop{}).
			Where("id = ?", comment.LoopID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
}

// Delete soft-deletes the comment and drops the loop's comment counter as
// one atomic unit.
func (cg *commentGorm) Delete(ctx context.Context, comment *domain.Comment) error {
	return cg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.Comment{}, comment.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.Errorf(errs.ENOTFOUND, "The comment does not exist.")
		}
		return tx.Model(&domain.Loop{}).
			Where("id = ? AND comment_count > 0", comment.LoopID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
}
