package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/errkind"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

func timeNow() time.Time { return time.Now() }

func newTestStore(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	return NewPostgresWithQuerier(mockDB, nil, logger), mockDB
}

func TestPostgres_GetBandit_DefaultsToPriors(t *testing.T) {
	s, mockDB := newTestStore(t)
	defer mockDB.Close()

	itemID := uuid.New()
	mockDB.ExpectQuery("SELECT item_id, alpha, beta").
		WithArgs(itemID).
		WillReturnError(pgx.ErrNoRows)

	stat, err := s.GetBandit(context.Background(), itemID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, stat.Alpha)
	assert.Equal(t, 2.0, stat.Beta)
}

func TestPostgres_UpsertBandit_RetriesOnVersionConflict(t *testing.T) {
	s, mockDB := newTestStore(t)
	defer mockDB.Close()

	itemID := uuid.New()

	// First read: no row yet.
	mockDB.ExpectQuery("SELECT item_id, alpha, beta").
		WithArgs(itemID).
		WillReturnError(pgx.ErrNoRows)
	// First write loses the race: 0 rows affected.
	mockDB.ExpectExec("INSERT INTO bandit_stats").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	// Retry: another writer already created the row.
	rows := pgxmock.NewRows([]string{"item_id", "alpha", "beta", "total_clicks", "total_impressions", "version", "frozen", "last_updated"})
	mockDB.ExpectQuery("SELECT item_id, alpha, beta").
		WithArgs(itemID).
		WillReturnRows(rows.AddRow(itemID, 2.0, 2.0, int64(0), int64(1), int64(1), false, timeNow()))
	mockDB.ExpectExec("INSERT INTO bandit_stats").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	stat, err := s.UpsertBandit(context.Background(), itemID, func(b *models.BanditStat) error {
		b.Alpha += 5
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7.0, stat.Alpha)
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestPostgres_UpsertBandit_RefusesFrozenItem(t *testing.T) {
	s, mockDB := newTestStore(t)
	defer mockDB.Close()

	itemID := uuid.New()
	rows := pgxmock.NewRows([]string{"item_id", "alpha", "beta", "total_clicks", "total_impressions", "version", "frozen", "last_updated"}).
		AddRow(itemID, 2.0, 2.0, int64(0), int64(0), int64(1), true, timeNow())
	mockDB.ExpectQuery("SELECT item_id, alpha, beta").WithArgs(itemID).WillReturnRows(rows)

	_, err := s.UpsertBandit(context.Background(), itemID, func(b *models.BanditStat) error {
		b.Alpha += 1
		return nil
	})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.InvariantViolation))
}

func TestPostgres_ReadResults_ScansGroupAndBanditScore(t *testing.T) {
	s, mockDB := newTestStore(t)
	defer mockDB.Close()

	id := uuid.New()
	userID := uuid.New()
	itemID := uuid.New()
	now := timeNow()
	score := 0.87

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "item_id", "rank_position", "similarity", "bandit_score", "method", "ab_group", "created_at",
	}).AddRow(id, userID, itemID, 1, 0.92, &score, models.MethodRLExploit, ptr("treatment"), now)

	mockDB.ExpectQuery("SELECT id, user_id, item_id, rank_position, similarity, bandit_score, method, ab_group, created_at").
		WithArgs(now.Add(-time.Hour), now).
		WillReturnRows(rows)

	out, err := s.ReadResults(context.Background(), TimeWindow{From: now.Add(-time.Hour), To: now})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, models.GroupTreatment, *out[0].ABGroup)
	assert.Equal(t, score, *out[0].BanditScore)
}

func ptr(s string) *string { return &s }

func TestBucket_Deterministic(t *testing.T) {
	userID := uuid.New()
	first := Bucket(userID)
	second := Bucket(userID)
	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 100)
}
