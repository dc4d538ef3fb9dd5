package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/livepaste/livepaste/internal/common"
	"github.com/livepaste/livepaste/internal/server/models"
)

func expectGetChange(mock sqlmock.Sqlmock, roomID, changeID, changesetID, pathHash, status string) {
	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+changes\s+c\s+JOIN\s+changesets\s+cs`).
		WithArgs(roomID, changeID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "changeset_id", "file_path_hash", "file_path_encrypted",
			"old_content_encrypted", "new_content_encrypted", "diff_encrypted", "status",
		}).AddRow(changeID, changesetID, pathHash, "PG", nil, "NEW", nil, status))
}

func expectApplyChange(mock sqlmock.Sqlmock, roomID, pathHash string, fileVersion, roomVersion int64) {
	newContent := "NEW"
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+files\b.*ON\s+CONFLICT\s*\(room_id,\s*path_hash\)`).
		WithArgs(roomID, pathHash, "PG", &newContent, true, int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "room_id", "path_hash", "path_encrypted", "content_encrypted",
			"is_syncable", "size_bytes", "version", "snapshot_seq", "created_at", "updated_at",
		}).AddRow("f-g1", roomID, pathHash, "PG", newContent, true, int64(0), fileVersion, int64(0), testTime, testTime))
	expectRoomBump(mock, roomID, roomVersion)
}

func expectMarkPartialIfPending(mock sqlmock.Sqlmock, changesetID string, moved bool) {
	var affected int64
	if moved {
		affected = 1
	}
	mock.ExpectExec(`(?s)UPDATE\s+changesets\s+SET\s+status\s*=\s*\$2,\s*resolved_at\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$1\s+AND\s+status\s*=\s*\$4`).
		WithArgs(changesetID, models.ChangesetPartial, sqlmock.AnyArg(), models.ChangesetPending).
		WillReturnResult(sqlmock.NewResult(0, affected))
}

func TestResolveChange_FirstAcceptMarksParentPartial(t *testing.T) {
	rm, mock := newManagerWithMock(t)
	svc := NewChangesetService(rm)

	mock.ExpectBegin()
	expectRoomLock(mock, "RM000001", 3, 0)
	expectGetChange(mock, "RM000001", "c1", "cs-1", "g1", "pending")
	expectApplyChange(mock, "RM000001", "g1", 2, 4)
	mock.ExpectExec(`UPDATE\s+changes\s+SET\s+status`).
		WithArgs("c1", models.ChangeAccepted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// the sibling c2 is still pending, yet the parent leaves pending now
	expectMarkPartialIfPending(mock, "cs-1", true)
	mock.ExpectCommit()

	ch, err := svc.ResolveChange(context.Background(), "RM000001", "c1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Status != models.ChangeAccepted {
		t.Fatalf("expected accepted, got %s", ch.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveChange_LaterSiblingKeepsOriginalResolvedAt(t *testing.T) {
	rm, mock := newManagerWithMock(t)
	svc := NewChangesetService(rm)

	mock.ExpectBegin()
	expectRoomLock(mock, "RM000001", 4, 0)
	expectGetChange(mock, "RM000001", "c2", "cs-1", "g2", "pending")
	expectRoomBump(mock, "RM000001", 5)
	mock.ExpectExec(`UPDATE\s+changes\s+SET\s+status`).
		WithArgs("c2", models.ChangeRejected).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// parent is already partial, so the conditional update touches no row
	expectMarkPartialIfPending(mock, "cs-1", false)
	mock.ExpectCommit()

	ch, err := svc.ResolveChange(context.Background(), "RM000001", "c2", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.Status != models.ChangeRejected {
		t.Fatalf("expected rejected, got %s", ch.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func expectGetChangeset(mock sqlmock.Sqlmock, roomID, changesetID string, childStatuses map[string]string) {
	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+changesets\s+WHERE\s+room_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2`).
		WithArgs(roomID, changesetID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "room_id", "author_encrypted", "message_encrypted", "status", "created_at", "resolved_at",
		}).AddRow(changesetID, roomID, "AUTH", "MSG", "pending", testTime, nil))

	rows := sqlmock.NewRows([]string{
		"id", "changeset_id", "file_path_hash", "file_path_encrypted",
		"old_content_encrypted", "new_content_encrypted", "diff_encrypted", "status",
	})
	for id, status := range childStatuses {
		rows.AddRow(id, changesetID, "g-"+id, "PG", nil, "NEW", nil, status)
	}
	mock.ExpectQuery(`(?s)SELECT\s+.*FROM\s+changes\s+WHERE\s+changeset_id\s*=\s*\$1`).
		WithArgs(changesetID).
		WillReturnRows(rows)
}

func TestResolve_RejectFlipsAllPendingChildren(t *testing.T) {
	rm, mock := newManagerWithMock(t)
	svc := NewChangesetService(rm)

	mock.ExpectBegin()
	expectRoomLock(mock, "RM000001", 3, 0)
	expectGetChangeset(mock, "RM000001", "cs-1", map[string]string{"c1": "pending"})
	mock.ExpectExec(`UPDATE\s+changes\s+SET\s+status`).
		WithArgs("c1", models.ChangeRejected).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRoomBump(mock, "RM000001", 4)
	mock.ExpectExec(`UPDATE\s+changesets\s+SET\s+status\s*=\s*\$2,\s*resolved_at\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("cs-1", models.ChangesetRejected, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cs, err := svc.Resolve(context.Background(), "RM000001", "cs-1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs.Status != models.ChangesetRejected || cs.ResolvedAt == nil {
		t.Fatalf("unexpected changeset: %+v", cs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolve_RefusesIndividuallyResolvedChildren(t *testing.T) {
	rm, mock := newManagerWithMock(t)
	svc := NewChangesetService(rm)

	// parent still reads pending, but c1 was already decided on its own:
	// wholesale resolution must refuse rather than overwrite the verdict.
	mock.ExpectBegin()
	expectRoomLock(mock, "RM000001", 3, 0)
	expectGetChangeset(mock, "RM000001", "cs-1", map[string]string{"c1": "accepted", "c2": "pending"})
	mock.ExpectRollback()

	_, err := svc.Resolve(context.Background(), "RM000001", "cs-1", false)
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestResolveChange_AlreadyResolved(t *testing.T) {
	rm, mock := newManagerWithMock(t)
	svc := NewChangesetService(rm)

	mock.ExpectBegin()
	expectRoomLock(mock, "RM000001", 4, 0)
	expectGetChange(mock, "RM000001", "c1", "cs-1", "g1", "accepted")
	mock.ExpectRollback()

	_, err := svc.ResolveChange(context.Background(), "RM000001", "c1", true)
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreate_RequiresChanges(t *testing.T) {
	rm, _ := newManagerWithMock(t)
	svc := NewChangesetService(rm)

	_, err := svc.Create(context.Background(), "RM000001", "AUTH", "MSG", nil)
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
