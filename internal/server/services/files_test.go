package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/livepaste/livepaste/internal/common"
)

func errNoRowsForTest() error { return sql.ErrNoRows }

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestFileUpsert_BumpsRoomVersionInSameTransaction(t *testing.T) {
	rm, mock := newManagerWithMock(t)
	svc := NewFileService(rm)
	content := "C1"

	mock.ExpectBegin()
	expectRoomEnsure(mock, "RM000001")
	expectRoomLock(mock, "RM000001", 0, 0)
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+files\b.*ON\s+CONFLICT\s*\(room_id,\s*path_hash\)`).
		WithArgs("RM000001", "aa", "P1", &content, true, int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "room_id", "path_hash", "path_encrypted", "content_encrypted",
			"is_syncable", "size_bytes", "version", "snapshot_seq", "created_at", "updated_at",
		}).AddRow("f-1", "RM000001", "aa", "P1", content, true, int64(0), int64(1), int64(0), testTime, testTime))
	expectRoomBump(mock, "RM000001", 1)
	mock.ExpectCommit()

	file, roomVersion, err := svc.Upsert(context.Background(), "RM000001", FileUpsertInput{
		PathHash: "aa", PathEncrypted: "P1", ContentEncrypted: &content, IsSyncable: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if file.Version != 1 || roomVersion != 1 {
		t.Fatalf("expected file version 1 and room version 1, got %d/%d", file.Version, roomVersion)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFileUpsert_ValidationRejectsSyncableWithoutContent(t *testing.T) {
	rm, _ := newManagerWithMock(t)
	svc := NewFileService(rm)

	_, _, err := svc.Upsert(context.Background(), "RM000001", FileUpsertInput{
		PathHash: "aa", PathEncrypted: "P1", IsSyncable: true,
	})
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFileDelete_WritesTombstoneStampedWithNewVersion(t *testing.T) {
	rm, mock := newManagerWithMock(t)
	svc := NewFileService(rm)
	content := "C2"

	mock.ExpectBegin()
	expectRoomLock(mock, "RM000001", 2, 0)
	mock.ExpectQuery(`SELECT\s+.*FROM\s+files\s+WHERE\s+room_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2`).
		WithArgs("RM000001", "f-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "room_id", "path_hash", "path_encrypted", "content_encrypted",
			"is_syncable", "size_bytes", "version", "snapshot_seq", "created_at", "updated_at",
		}).AddRow("f-1", "RM000001", "aa", "P1", content, true, int64(0), int64(2), int64(0), testTime, testTime))
	mock.ExpectExec(`DELETE\s+FROM\s+files\s+WHERE\s+room_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2`).
		WithArgs("RM000001", "f-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRoomBump(mock, "RM000001", 3)
	mock.ExpectExec(`INSERT\s+INTO\s+deleted_files`).
		WithArgs("RM000001", "aa", int64(3)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	version, err := svc.Delete(context.Background(), "RM000001", "f-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 3 {
		t.Fatalf("expected version 3, got %d", version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFileDelete_UnknownFileRollsBack(t *testing.T) {
	rm, mock := newManagerWithMock(t)
	svc := NewFileService(rm)

	mock.ExpectBegin()
	expectRoomLock(mock, "RM000001", 2, 0)
	mock.ExpectQuery(`SELECT\s+.*FROM\s+files\s+WHERE\s+room_id\s*=\s*\$1\s+AND\s+id\s*=\s*\$2`).
		WithArgs("RM000001", "nope").
		WillReturnError(errNoRowsForTest())
	mock.ExpectRollback()

	_, err := svc.Delete(context.Background(), "RM000001", "nope")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
