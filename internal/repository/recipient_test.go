package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRecipientRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *RecipientRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := zap.NewNop()
	repo := NewRecipientRepository(db, logger)

	return db, mock, repo
}

func recipientRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"user_id", "display_name", "role", "active", "fcm_token", "created_at", "updated_at", "token_set_at",
	}).
		AddRow("user-a", "Alice", "helper", true, "t1", now, now, now).
		AddRow("user-b", "Bob", "helper", true, nil, now, now, nil).
		AddRow("user-c", nil, "admin", true, "t3", now, now, now)
}

func TestListRecipients_Success(t *testing.T) {
	db, mock, repo := setupRecipientRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnRows(recipientRows())

	recipients, err := repo.ListRecipients(context.Background())

	require.NoError(t, err)
	require.Len(t, recipients, 3)

	// 顺序稳定：按 user_id 排序
	assert.Equal(t, "user-a", recipients[0].UserID)
	assert.Equal(t, "user-b", recipients[1].UserID)
	assert.Equal(t, "user-c", recipients[2].UserID)

	assert.True(t, recipients[0].HasToken())
	assert.Equal(t, "t1", *recipients[0].FCMToken)
	assert.False(t, recipients[1].HasToken())

	// display_name 缺失时回退到 user_id
	assert.Equal(t, "Alice", recipients[0].Name())
	assert.Equal(t, "user-c", recipients[2].Name())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecipients_RegistryUnavailable(t *testing.T) {
	db, mock, repo := setupRecipientRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("connection refused"))

	recipients, err := repo.ListRecipients(context.Background())

	assert.Error(t, err)
	assert.Nil(t, recipients)
	assert.True(t, errors.Is(err, ErrRegistryUnavailable))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindIDsByToken_Success(t *testing.T) {
	db, mock, repo := setupRecipientRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"user_id"}).AddRow("user-c")

	mock.ExpectQuery(`SELECT user_id`).
		WithArgs("t3").
		WillReturnRows(rows)

	ids, err := repo.FindIDsByToken(context.Background(), "t3")

	require.NoError(t, err)
	assert.Equal(t, []string{"user-c"}, ids)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindIDsByToken_NoMatch(t *testing.T) {
	db, mock, repo := setupRecipientRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT user_id`).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	ids, err := repo.FindIDsByToken(context.Background(), "gone")

	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearTokens_AllInOneTransaction(t *testing.T) {
	db, mock, repo := setupRecipientRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE recipients`).
		WithArgs("user-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE recipients`).
		WithArgs("user-c").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ClearTokens(context.Background(), []string{"user-a", "user-c"})

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearTokens_RollbackOnFailure(t *testing.T) {
	db, mock, repo := setupRecipientRepo(t)
	defer db.Close()

	// 第二条更新失败时整个事务回滚：不会出现部分清除
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE recipients`).
		WithArgs("user-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE recipients`).
		WithArgs("user-c").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.ClearTokens(context.Background(), []string{"user-a", "user-c"})

	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrRegistryUnavailable))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearTokens_EmptyInput(t *testing.T) {
	db, mock, repo := setupRecipientRepo(t)
	defer db.Close()

	// 空输入不触碰数据库
	err := repo.ClearTokens(context.Background(), nil)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetToken_DetachesFromOtherRecords(t *testing.T) {
	db, mock, repo := setupRecipientRepo(t)
	defer db.Close()

	// 令牌唯一性：先从其他记录摘除，再写入目标记录
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE recipients`).
		WithArgs("new-token", "user-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE recipients`).
		WithArgs("new-token", "user-a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.SetToken(context.Background(), "user-a", "new-token")

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetToken_RecipientNotFound(t *testing.T) {
	db, mock, repo := setupRecipientRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE recipients`).
		WithArgs("new-token", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE recipients`).
		WithArgs("new-token", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SetToken(context.Background(), "ghost", "new-token")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "recipient not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetToken_EmptyToken(t *testing.T) {
	db, _, repo := setupRecipientRepo(t)
	defer db.Close()

	err := repo.SetToken(context.Background(), "user-a", "")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "token must not be empty")
}

func TestRemoveToken_Success(t *testing.T) {
	db, mock, repo := setupRecipientRepo(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE recipients`).
		WithArgs("user-a").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.RemoveToken(context.Background(), "user-a")

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
