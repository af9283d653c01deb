package guard

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"loopLife/domain"
	"loopLife/errs"
)

// Daily action caps. A day is a UTC calendar day: counts are computed as
// "rows created since UTC midnight", never stored as decrementing buckets,
// so there is nothing to reset when the day rolls over.
const (
	// DailyLoopsPerUser caps loop creation per authenticated user.
	DailyLoopsPerUser = 5
	// DailyLoopsPerOrigin caps loop creation per network origin,
	// independently of the user cap. Both must hold for admission.
	DailyLoopsPerOrigin = 5
	// DailyCommentsPerLoop caps comments per user on one specific loop.
	// The cap is scoped per target loop, not global.
	DailyCommentsPerLoop = 5
)

// StartOfDay returns the UTC midnight preceding t.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LockActor takes a transaction-scoped advisory lock on the given actor key.
// It serializes concurrent count-then-insert sequences for the same actor so
// two requests near the cap boundary cannot both be admitted. The lock is
// released when the transaction ends. On SQLite there is nothing to do, its
// single-writer model already serializes the writes.
func LockActor(tx *gorm.DB, key string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

// CheckLoopQuota admits or rejects a loop creation for the given user and
// origin. It must run inside the transaction that creates the loop, after
// LockActor, so the count it sees cannot be outdated by a concurrent insert.
// Soft-deleted loops still count: deleting and recreating must not stretch
// the cap.
func CheckLoopQuota(tx *gorm.DB, userID int, origin string, now time.Time) error {
	since := StartOfDay(now)

	var byUser int64
	err := tx.Unscoped().Model(&domain.Loop{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&byUser).Error
	if err != nil {
		return err
	}
	if byUser >= DailyLoopsPerUser {
		return errs.Errorf(errs.EQUOTA, "You have reached the daily limit of %d loops per account.", DailyLoopsPerUser)
	}

	var byOrigin int64
	err = tx.Unscoped().Model(&domain.Loop{}).
		Where("ip_address = ? AND created_at >= ?", origin, since).
		Count(&byOrigin).Error
	if err != nil {
		return err
	}
	if byOrigin >= DailyLoopsPerOrigin {
		return errs.Errorf(errs.EQUOTA, "The daily limit of %d loops from this address has been reached.", DailyLoopsPerOrigin)
	}
	return nil
}

// CheckCommentQuota admits or rejects a comment by the given user on the
// given loop. Same discipline as CheckLoopQuota: run inside the creating
// transaction, after LockActor.
func CheckCommentQuota(tx *gorm.DB, userID, loopID int, now time.Time) error {
	var count int64
	err := tx.Unscoped().Model(&domain.Comment{}).
		Where("user_id = ? AND loop_id = ? AND created_at >= ?", userID, loopID, StartOfDay(now)).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count >= DailyCommentsPerLoop {
		return errs.Errorf(errs.EQUOTA, "You can only post %d comments per day on this loop.", DailyCommentsPerLoop)
	}
	return nil
}

// CommentActorKey is the advisory lock key for the per-(user, loop) comment
// quota.
func CommentActorKey(userID, loopID int) string {
	return fmt.Sprintf("comment:%d:%d", userID, loopID)
}

// LoopActorKey is the advisory lock key for the per-user loop creation
// quota. The per-origin count needs its own OriginActorKey lock, two
// different users posting from one address don't share a user key.
func LoopActorKey(userID int) string {
	return fmt.Sprintf("loop:%d", userID)
}

// OriginActorKey is the advisory lock key for the per-origin loop creation
// quota.
func OriginActorKey(origin string) string {
	return "origin:" + origin
}
