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

// LoopService manages Loops. Its mutating methods are the single control
// point for loop writes: authorization, quota and validation all run before
// anything is committed, and a failure at any stage leaves the database
// untouched. It implements the domain.LoopService interface.
type LoopService struct {
	loopValidator
}

// loopValidator runs validations on incoming Loop data.
// On success, it passes the data on to loopGorm.
// Otherwise, it returns the error of the validation that has failed.
type loopValidator struct {
	loopGorm
}

// loopGorm runs CRUD operations on the database using incoming Loop data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type loopGorm struct {
	db *gorm.DB
}

// NewLoopService returns an instance of LoopService.
func NewLoopService(db *gorm.DB) *LoopService {
	return &LoopService{
		loopValidator{
			loopGorm{
				db: db,
			},
		},
	}
}

// Ensure the LoopService struct properly implements the domain.LoopService
// interface. If it does not, then this expression becomes invalid and won't compile.
var _ domain.LoopService = &LoopService{}

// Create runs the full admission sequence for a new loop: the actor must be
// authenticated, the payload must be valid, and both daily caps (per user
// and per origin) must have room. Quota check and insert happen in one
// transaction under an advisory lock, so concurrent requests near the cap
// can never jointly exceed it.
func (lv *loopValidator) Create(ctx context.Context, actor *domain.User, loop *domain.Loop) error {
	if actor != nil {
		loop.UserID = actor.ID
	}
	if err := guard.Authorize(actor, loop.UserID, guard.ActionCreate); err != nil {
		return err
	}
	err := runLoopValFns(loop,
		lv.userIDValid,
		lv.originDefault,
		lv.titleRequired,
		lv.titleMaxLength,
		lv.genreRequired,
		lv.ratingInRange,
		lv.descriptionMaxLength,
		lv.moodMaxLength,
		lv.audioURLAllowed)
	if err != nil {
		return err
	}
	return lv.loopGorm.Create(ctx, loop)
}

// Update applies a partial update to the loop with the given id. Only fields
// present in upd are modified. The actor must be the owner or an admin.
func (lv *loopValidator) Update(ctx context.Context, actor *domain.User, id int, upd *domain.LoopUpdate) (*domain.Loop, error) {
	loop, err := lv.loopGorm.rawByID(id)
	if err != nil {
		return nil, err
	}
	if err := guard.Authorize(actor, loop.UserID, guard.ActionUpdate); err != nil {
		return nil, err
	}

	if upd.Title != nil {
		loop.Title = *upd.Title
	}
	if upd.Description != nil {
		loop.Description = *upd.Description
	}
	if upd.Genre != nil {
		loop.Genre = *upd.Genre
	}
	if upd.Rating != nil {
		loop.Rating = *upd.Rating
	}
	if upd.Mood != nil {
		loop.Mood = *upd.Mood
	}
	if upd.AudioURL != nil {
		loop.AudioURL = *upd.AudioURL
	}

	err = runLoopValFns(loop,
		lv.titleRequired,
		lv.titleMaxLength,
		lv.genreRequired,
		lv.ratingInRange,
		lv.descriptionMaxLength,
		lv.moodMaxLength,
		lv.audioURLAllowed)
	if err != nil {
		return nil, err
	}
	if err := lv.loopGorm.Save(ctx, loop); err != nil {
		return nil, err
	}
	return loop, nil
}

// Delete soft-deletes the loop with the given id. The actor must be the
// owner or an admin.
func (lv *loopValidator) Delete(ctx context.Context, actor *domain.User, id int) error {
	loop, err := lv.loopGorm.rawByID(id)
	if err != nil {
		return err
	}
	if err := guard.Authorize(actor, loop.UserID, guard.ActionDelete); err != nil {
		return err
	}
	return lv.loopGorm.Delete(ctx, id)
}

// runLoopValFns runs any number of functions of type loopValFn on the passed
// in Loop object. If none of them returns an error, it returns nil.
// Otherwise, it returns the respective error.
func runLoopValFns(loop *domain.Loop, fns ...loopValFn) error {
	for _, fn := range fns {
		if err := fn(loop); err != nil {
			return err
		}
	}
	return nil
}

// A loopValFn is any function that takes in a pointer to a domain.Loop object
// and returns an error.
type loopValFn func(loop *domain.Loop) error

// audioURLAllowed makes sure the audio url points at one of the allow-listed
// providers.
func (lv *loopValidator) audioURLAllowed(loop *domain.Loop) error {
	for _, prefix := range domain.AudioURLAllowList {
		if strings.HasPrefix(loop.AudioURL, prefix) {
			return nil
		}
	}
	return errs.Errorf(errs.EINVALID, "Only youtube and soundcloud links are allowed.")
}

// descriptionMaxLength makes sure that the description does not exceed the
// maximum length.
func (lv *loopValidator) descriptionMaxLength(loop *domain.Loop) error {
	if utf8.RuneCountInString(loop.Description) > domain.DescriptionMaxLength {
		return errs.Errorf(errs.EINVALID, "The description max length is %d characters.", domain.DescriptionMaxLength)
	}
	return nil
}

// genreRequired makes sure that the genre is not empty.
func (lv *loopValidator) genreRequired(loop *domain.Loop) error {
	if strings.TrimSpace(loop.Genre) == "" {
		return errs.Errorf(errs.EINVALID, "The genre is required.")
	}
	return nil
}

// moodMaxLength makes sure that the mood does not exceed the maximum length.
func (lv *loopValidator) moodMaxLength(loop *domain.Loop) error {
	if utf8.RuneCountInString(loop.Mood) > domain.MoodMaxLength {
		return errs.Errorf(errs.EINVALID, "The mood max length is %d characters.", domain.MoodMaxLength)
	}
	return nil
}

// originDefault makes sure the origin is never empty, proxies occasionally
// strip the forwarding headers.
func (lv *loopValidator) originDefault(loop *domain.Loop) error {
	if loop.IPAddress == "" {
		loop.IPAddress = "unknown"
	}
	return nil
}

// ratingInRange makes sure the rating is between 0 and 10.
func (lv *loopValidator) ratingInRange(loop *domain.Loop) error {
	if loop.Rating < 0 || loop.Rating > domain.RatingMax {
		return errs.Errorf(errs.EINVALID, "Ratings go from 0 to %d.", domain.RatingMax)
	}
	return nil
}

// titleMaxLength makes sure that the title does not exceed the maximum length.
func (lv *loopValidator) titleMaxLength(loop *domain.Loop) error {
	if utf8.RuneCountInString(loop.Title) > domain.TitleMaxLength {
		return errs.Errorf(errs.EINVALID, "The title max length is %d characters.", domain.TitleMaxLength)
	}
	return nil
}

// titleRequired makes sure that the title is not empty.
func (lv *loopValidator) titleRequired(loop *domain.Loop) error {
	if strings.TrimSpace(loop.Title) == "" {
		return errs.Errorf(errs.EINVALID, "The title is required.")
	}
	return nil
}

// userIDValid ensures that the userId is not empty.
func (lv *loopValidator) userIDValid(loop *domain.Loop) error {
	if loop.UserID <= 0 {
		return errs.Errorf(errs.EINTERNAL, "user id is required")
	}
	return nil
}

// ByID retrieves a single Loop by ID, along with its author and the
// viewer's like state.
func (lg *loopGorm) ByID(id int, viewer *domain.User) (*domain.Loop, error) {
	var loop domain.Loop
	err := lg.db.Preload("User").First(&loop, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.Errorf(errs.ENOTFOUND, "The loop does not exist.")
		}
		return nil, err
	}
	if err := lg.attachViewerLikes(viewer, &loop); err != nil {
		return nil, err
	}
	loop.User.StripPrivate()
	return &loop, nil
}

// All retrieves the loop feed, newest first.
func (lg *loopGorm) All(viewer *domain.User) ([]domain.Loop, error) {
	var loops []domain.Loop
	err := lg.db.Preload("User").Order("created_at desc").Find(&loops).Error
	if err != nil {
		return nil, err
	}
	if err := lg.attachViewerLikesSlice(viewer, loops); err != nil {
		return nil, err
	}
	stripAuthors(loops)
	return loops, nil
}

// ByGenre retrieves all loops of a genre, newest first.
func (lg *loopGorm) ByGenre(genre string, viewer *domain.User) ([]domain.Loop, error) {
	var loops []domain.Loop
	err := lg.db.
		Where("LOWER(genre) = ?", strings.ToLower(genre)).
		Preload("User").
		Order("created_at desc").
		Find(&loops).Error
	if err != nil {
		return nil, err
	}
	if err := lg.attachViewerLikesSlice(viewer, loops); err != nil {
		return nil, err
	}
	stripAuthors(loops)
	return loops, nil
}

// ByUserID retrieves all loops published by a user, newest first.
func (lg *loopGorm) ByUserID(userID int, viewer *domain.User) ([]domain.Loop, error) {
	var loops []domain.Loop
	err := lg.db.
		Where("user_id = ?", userID).
		Preload("User").
		Order("created_at desc").
		Find(&loops).Error
	if err != nil {
		return nil, err
	}
	if err := lg.attachViewerLikesSlice(viewer, loops); err != nil {
		return nil, err
	}
	stripAuthors(loops)
	return loops, nil
}

// Search retrieves loops whose title, genre or mood contains the term.
func (lg *loopGorm) Search(term string, viewer *domain.User) ([]domain.Loop, error) {
	var loops []domain.Loop
	pattern := "%" + strings.ToLower(term) + "%"
	err := lg.db.
		Where("LOWER(title) LIKE ? OR LOWER(genre) LIKE ? OR LOWER(mood) LIKE ?", pattern, pattern, pattern).
		Preload("User").
		Order("created_at desc").
		Find(&loops).Error
	if err != nil {
		return nil, err
	}
	if err := lg.attachViewerLikesSlice(viewer, loops); err != nil {
		return nil, err
	}
	stripAuthors(loops)
	return loops, nil
}

// rawByID retrieves a single Loop by ID without any preloading. Used
// internally where only ownership and fields matter.
func (lg *loopGorm) rawByID(id int) (*domain.Loop, error) {
	var loop domain.Loop
	err := lg.db.First(&loop, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errs.Errorf(errs.ENOTFOUND, "The loop does not exist.")
		}
		return nil, err
	}
	return &loop, nil
}

// Create checks the daily caps and stores the loop, both inside one
// transaction. The advisory locks serialize concurrent creations by the
// same user or from the same origin for the duration of the transaction.
func (lg *loopGorm) Create(ctx context.Context, loop *domain.Loop) error {
	return lg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := guard.LockActor(tx, guard.LoopActorKey(loop.UserID)); err != nil {
			return err
		}
		if err := guard.LockActor(tx, guard.OriginActorKey(loop.IPAddress)); err != nil {
			return err
		}
		if err := guard.CheckLoopQuota(tx, loop.UserID, loop.IPAddress, time.Now()); err != nil {
			return err
		}
		return tx.Create(loop).Error
	})
}

// Save saves the Loop object over its existing database record. The
// denormalized counters are omitted: they only ever move with the like and
// comment transactions, and the loaded values here may already be stale.
func (lg *loopGorm) Save(ctx context.Context, loop *domain.Loop) error {
	return lg.db.WithContext(ctx).
		Omit("like_count", "comment_count", "created_at").
		Save(loop).Error
}

// Delete soft-deletes the loop record with the given id.
func (lg *loopGorm) Delete(ctx context.Context, id int) error {
	return lg.db.WithContext(ctx).Delete(&domain.Loop{}, id).Error
}

// ReconcileCounters recomputes the denormalized like and comment counters
// from the edge tables. The counters are maintained transactionally, this
// only repairs drift introduced outside the application.
func (lg *loopGorm) ReconcileCounters(ctx context.Context) error {
	return lg.db.WithContext(ctx).Exec(`
		UPDATE loops SET
			like_count = (SELECT COUNT(*) FROM likes WHERE likes.loop_id = loops.id),
			comment_count = (SELECT COUNT(*) FROM comments WHERE comments.loop_id = loops.id AND comments.deleted_at IS NULL)
	`).Error
}

// stripAuthors reduces the preloaded authors of a slice of loops to their
// public profile.
func stripAuthors(loops []domain.Loop) {
	for i := range loops {
		loops[i].User.StripPrivate()
	}
}

// attachViewerLikes fills LikedByViewer on a single loop.
func (lg *loopGorm) attachViewerLikes(viewer *domain.User, loop *domain.Loop) error {
	if viewer == nil {
		return nil
	}
	var count int64
	err := lg.db.Model(&domain.Like{}).
		Where("user_id = ? AND loop_id = ?", viewer.ID, loop.ID).
		Count(&count).Error
	if err != nil {
		return err
	}
	loop.LikedByViewer = count > 0
	return nil
}

// attachViewerLikesSlice fills LikedByViewer on a slice of loops with a
// single query.
func (lg *loopGorm) attachViewerLikesSlice(viewer *domain.User, loops []domain.Loop) error {
	if viewer == nil || len(loops) == 0 {
		return nil
	}
	ids := make([]int, 0, len(loops))
	for _, loop := range loops {
		ids = append(ids, loop.ID)
	}
	var likes []domain.Like
	err := lg.db.
		Where("user_id = ? AND loop_id IN ?", viewer.ID, ids).
		Find(&likes).Error
	if err != nil {
		return err
	}
	liked := make(map[int]bool, len(likes))
	for _, like := range likes {
		liked[like.LoopID] = true
	}
	for i := range loops {
		loops[i].LikedByViewer = liked[loops[i].ID]
	}
	return nil
}
