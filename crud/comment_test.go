package crud

import (
	"strings"
	"testing"

	"loopLife/domain"
	"loopLife/errs"
	"loopLife/guard"
)

func TestCommentCreateValidation(t *testing.T) {
	db := testDB(t)
	cs := NewCommentService(db)
	user := testUser(t, db, "alice", domain.RoleUser)
	loop := testLoop(t, db, user, "first")

	tests := []struct {
		name     string
		content  string
		wantCode string
	}{
		{"empty", "", errs.EINVALID},
		{"whitespace only", "   \n\t", errs.EINVALID},
		{"too long", strings.Repeat("x", domain.CommentMaxLength+1), errs.EINVALID},
		{"at the limit", strings.Repeat("x", domain.CommentMaxLength), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comment := &domain.Comment{LoopID: loop.ID, Content: tt.content}
			err := cs.Create(ctx, user, comment)
			if got := errs.ErrorCode(err); got != tt.wantCode {
				t.Errorf("got %v, want code %q", err, tt.wantCode)
			}
		})
	}
}

func TestCommentCreateRequiresAuthentication(t *testing.T) {
	db := testDB(t)
	cs := NewCommentService(db)
	user := testUser(t, db, "alice", domain.RoleUser)
	loop := testLoop(t, db, user, "first")

	comment := &domain.Comment{LoopID: loop.ID, Content: "hi"}
	if err := cs.Create(ctx, nil, comment); errs.ErrorCode(err) != errs.EUNAUTHENTICATED {
		t.Fatalf("anonymous comment: got %v, want unauthenticated", err)
	}
}

func TestCommentCreateRequiresExistingLoop(t *testing.T) {
	db := testDB(t)
	cs := NewCommentService(db)
	user := testUser(t, db, "alice", domain.RoleUser)

	comment := &domain.Comment{LoopID: 404, Content: "hi"}
	if err := cs.Create(ctx, user, comment); errs.ErrorCode(err) != errs.ENOTFOUND {
		t.Fatalf("comment on missing loop: got %v, want not found", err)
	}
}

func TestCommentCreateBumpsCounter(t *testing.T) {
	db := testDB(t)
	cs := NewCommentService(db)
	user := testUser(t, db, "alice", domain.RoleUser)
	loop := testLoop(t, db, user, "first")

	for i := 0; i < 3; i++ {
		comment := &domain.Comment{LoopID: loop.ID, Content: "hi"}
		if err := cs.Create(ctx, user, comment); err != nil {
			t.Fatalf("comment %d failed: %v", i+1, err)
		}
	}
	if got := loopByID(t, db, loop.ID).CommentCount; got != 3 {
		t.Errorf("comment counter = %d, want 3", got)
	}
}

func TestCommentDailyQuotaPerLoop(t *testing.T) {
	db := testDB(t)
	cs := NewCommentService(db)
	user := testUser(t, db, "alice", domain.RoleUser)
	other := testUser(t, db, "bob", domain.RoleUser)
	loop := testLoop(t, db, user, "first")
	second := testLoop(t, db, user, "second")

	for i := 0; i < guard.DailyCommentsPerLoop; i++ {
		comment := &domain.Comment{LoopID: loop.ID, Content: "hi"}
		if err := cs.Create(ctx, user, comment); err != nil {
			t.Fatalf("comment %d rejected: %v", i+1, err)
		}
	}

	over := &domain.Comment{LoopID: loop.ID, Content: "one too many"}
	if err := cs.Create(ctx, user, over); errs.ErrorCode(err) != errs.EQUOTA {
		t.Fatalf("6th comment: got %v, want quota rejection", err)
	}

	// The cap is scoped to the (user, loop) pair.
	elsewhere := &domain.Comment{LoopID: second.ID, Content: "different loop"}
	if err := cs.Create(ctx, user, elsewhere); err != nil {
		t.Errorf("comment on another loop rejected: %v", err)
	}
	someoneElse := &domain.Comment{LoopID: loop.ID, Content: "different user"}
	if err := cs.Create(ctx, other, someoneElse); err != nil {
		t.Errorf("comment by another user rejected: %v", err)
	}
}

func TestCommentDeleteDoesNotFreeQuota(t *testing.T) {
	db := testDB(t)
	cs := NewCommentService(db)
	user := testUser(t, db, "alice", domain.RoleUser)
	loop := testLoop(t, db, user, "first")

	var last *domain.Comment
	for i := 0; i < guard.DailyCommentsPerLoop; i++ {
		last = &domain.Comment{LoopID: loop.ID, Content: "hi"}
		if err := cs.Create(ctx, user, last); err != nil {
			t.Fatalf("comment %d rejected: %v", i+1, err)
		}
	}
	if err := cs.Delete(ctx, user, loop.ID, last.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	over := &domain.Comment{LoopID: loop.ID, Content: "after delete"}
	if err := cs.Create(ctx, user, over); errs.ErrorCode(err) != errs.EQUOTA {
		t.Fatalf("after delete: got %v, want quota rejection", err)
	}
}

func TestCommentDeleteOwnership(t *testing.T) {
	db := testDB(t)
	cs := NewCommentService(db)
	author := testUser(t, db, "alice", domain.RoleUser)
	stranger := testUser(t, db, "bob", domain.RoleUser)
	admin := testUser(t, db, "carol", domain.RoleAdmin)
	loop := testLoop(t, db, author, "first")

	mine := &domain.Comment{LoopID: loop.ID, Content: "mine"}
	theirs := &domain.Comment{LoopID: loop.ID, Content: "theirs"}
	if err := cs.Create(ctx, author, mine); err != nil {
		t.Fatalf("seeding comment: %v", err)
	}
	if err := cs.Create(ctx, author, theirs); err != nil {
		t.Fatalf("seeding comment: %v", err)
	}

	if err := cs.Delete(ctx, nil, loop.ID, mine.ID); errs.ErrorCode(err) != errs.EUNAUTHENTICATED {
		t.Errorf("anonymous delete: got %v, want unauthenticated", err)
	}
	if err := cs.Delete(ctx, stranger, loop.ID, mine.ID); errs.ErrorCode(err) != errs.EUNAUTHORIZED {
		t.Errorf("stranger delete: got %v, want unauthorized", err)
	}
	if err := cs.Delete(ctx, author, loop.ID, mine.ID); err != nil {
		t.Errorf("author delete failed: %v", err)
	}
	if err := cs.Delete(ctx, admin, loop.ID, theirs.ID); err != nil {
		t.Errorf("admin delete failed: %v", err)
	}
	if got := loopByID(t, db, loop.ID).CommentCount; got != 0 {
		t.Errorf("comment counter = %d, want 0", got)
	}
}

func TestCommentDeleteScopedToLoop(t *testing.T) {
	db := testDB(t)
	cs := NewCommentService(db)
	user := testUser(t, db, "alice", domain.RoleUser)
	loop := testLoop(t, db, user, "first")
	other := testLoop(t, db, user, "second")

	comment := &domain.Comment{LoopID: loop.ID, Content: "hi"}
	if err := cs.Create(ctx, user, comment); err != nil {
		t.Fatalf("seeding comment: %v", err)
	}

	// The comment id under the wrong loop is a miss, not a cross delete.
	err := cs.Delete(ctx, user, other.ID, comment.ID)
	if errs.ErrorCode(err) != errs.ENOTFOUND {
		t.Fatalf("wrong loop: got %v, want not found", err)
	}
	if got := loopByID(t, db, loop.ID).CommentCount; got != 1 {
		t.Errorf("comment counter = %d, want 1", got)
	}
}

func TestCommentsByLoopNewestFirst(t *testing.T) {
	db := testDB(t)
	cs := NewCommentService(db)
	user := testUser(t, db, "alice", domain.RoleUser)
	loop := testLoop(t, db, user, "first")

	for _, content := range []string{"one", "two", "three"} {
		comment := &domain.Comment{LoopID: loop.ID, Content: content}
		if err := cs.Create(ctx, user, comment); err != nil {
			t.Fatalf("seeding comment %s: %v", content, err)
		}
	}

	comments, err := cs.ByLoopID(loop.ID)
	if err != nil {
		t.Fatalf("ByLoopID failed: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("got %d comments, want 3", len(comments))
	}
	for _, comment := range comments {
		if comment.User == nil {
			t.Errorf("comment %d: author not loaded", comment.ID)
			continue
		}
		// Embedded authors only carry their public profile.
		if comment.User.Email != "" {
			t.Errorf("comment %d: author email leaked", comment.ID)
		}
	}
}
