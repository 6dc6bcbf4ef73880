package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scan-attendance/internal/models"
)

var scanColumnNames = []string{"id", "school_id", "student_id", "direction", "scan_time", "device_id", "created_at"}

func TestScanRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	from := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	ts := time.Date(2024, time.March, 4, 7, 55, 0, 0, time.UTC)
	rows := sqlmock.NewRows(scanColumnNames).
		AddRow("scan-1", "sch-1", "stu-1", "IN", ts, nil, ts)
	mock.ExpectQuery(regexp.QuoteMeta("FROM attendance_scans WHERE school_id = $1 AND student_id = $2 AND direction = $3 AND scan_time >= $4 AND scan_time < $5")).
		WithArgs("sch-1", "stu-1", "IN", from, to).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM attendance_scans WHERE school_id = $1")).
		WithArgs("sch-1", "stu-1", "IN", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	result, total, err := repo.List(context.Background(), models.ScanFilter{
		SchoolID:  "sch-1",
		StudentID: "stu-1",
		Direction: "in",
		DateFrom:  &from,
		DateTo:    &to,
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, ts, result[0].ScanTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryListPagination(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY scan_time DESC, id ASC")).
		WithArgs("sch-1").
		WillReturnRows(sqlmock.NewRows(scanColumnNames))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("sch-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.ScanFilter{SchoolID: "sch-1", Page: 3, PageSize: 20, SortOrder: "desc"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	ts := time.Date(2024, time.March, 4, 15, 10, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE school_id = $1 ORDER BY scan_time ASC, id ASC")).
		WithArgs("sch-1").
		WillReturnRows(sqlmock.NewRows(scanColumnNames).AddRow("scan-2", "sch-1", "stu-1", "OUT", ts, "gate-2", ts))

	rows, err := repo.ListAll(context.Background(), models.ScanFilter{SchoolID: "sch-1", Page: 9})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].DeviceID)
	assert.Equal(t, "gate-2", *rows[0].DeviceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryBulkInsertCountsDuplicates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_scans")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_scans")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ts := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	scans := []models.ScanRecord{
		{SchoolID: "sch-1", StudentID: "stu-1", Direction: "IN", ScanTime: ts},
		{SchoolID: "sch-1", StudentID: "stu-1", Direction: "IN", ScanTime: ts},
	}
	inserted, duplicates, err := repo.BulkInsert(context.Background(), scans)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 1, duplicates)
	assert.NotEmpty(t, scans[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRepositoryBulkInsertRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScanRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO attendance_scans")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := repo.BulkInsert(context.Background(), []models.ScanRecord{{SchoolID: "sch-1", StudentID: "stu-1", Direction: "IN", ScanTime: time.Now()}})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	inserted, duplicates, err := repo.BulkInsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted+duplicates)
}
