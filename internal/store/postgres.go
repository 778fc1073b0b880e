package store

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/errkind"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// Querier is the subset of pgxpool.Pool this store needs, so unit tests
// can substitute pgxmock without standing up a real database.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const bandeUpdateRetries = 3

// Postgres is the Store implementation backed by a Postgres pool for
// durable state and a Redis client for the similarity/RL caches.
type Postgres struct {
	db     Querier
	redis  *redis.Client
	logger *logrus.Logger
}

func NewPostgres(pool *pgxpool.Pool, redisClient *redis.Client, logger *logrus.Logger) *Postgres {
	return &Postgres{db: pool, redis: redisClient, logger: logger}
}

// NewPostgresWithQuerier is used by tests to inject a pgxmock pool.
func NewPostgresWithQuerier(q Querier, redisClient *redis.Client, logger *logrus.Logger) *Postgres {
	return &Postgres{db: q, redis: redisClient, logger: logger}
}

func (p *Postgres) Close() error {
	if pool, ok := p.db.(*pgxpool.Pool); ok {
		pool.Close()
	}
	return nil
}

// ---- profiles / items ----

func (p *Postgres) LoadProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	row := p.db.QueryRow(ctx, `
		SELECT user_id, interest_tags, languages, frameworks, learning_goals, skill_level
		FROM user_profiles WHERE user_id = $1`, userID)

	var prof models.UserProfile
	var skillLevel *string
	if err := row.Scan(&prof.UserID, &prof.InterestTags, &prof.Languages, &prof.Frameworks,
		&prof.LearningGoals, &skillLevel); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errkind.Wrap(errkind.NotFound, "user profile not found", err)
		}
		return nil, errkind.Wrap(errkind.Transient, "failed to load profile", err)
	}
	if skillLevel != nil {
		prof.SkillLevel = models.ComplexityLevel(*skillLevel)
	}
	return &prof, nil
}

func (p *Postgres) LoadItems(ctx context.Context) ([]models.Item, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, title, description, domain_tag, complexity_level, embedding, created_at
		FROM items`)
	if err != nil {
		return nil, errkind.Wrap(errkind.Transient, "failed to query items", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Description, &it.DomainTag,
			&it.ComplexityLevel, &it.Embedding, &it.CreatedAt); err != nil {
			return nil, errkind.Wrap(errkind.Transient, "failed to scan item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, errkind.Wrap(errkind.Transient, "failed reading items", err)
	}
	return items, nil
}

func (p *Postgres) LoadItemEmbedding(ctx context.Context, itemID uuid.UUID) ([]float32, error) {
	row := p.db.QueryRow(ctx, `SELECT embedding FROM items WHERE id = $1`, itemID)
	var emb []float32
	if err := row.Scan(&emb); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errkind.Wrap(errkind.NotFound, "item not found", err)
		}
		return nil, errkind.Wrap(errkind.Transient, "failed to load embedding", err)
	}
	return emb, nil
}

// ---- cache ----

func cacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("recs:cache:%s", userID)
}

func (p *Postgres) GetCache(ctx context.Context, userID uuid.UUID) (*models.CachedRecs, error) {
	raw, err := p.redis.Get(ctx, cacheKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errkind.New(errkind.NotFound, "no cache entry")
		}
		return nil, errkind.Wrap(errkind.Transient, "redis get failed", err)
	}
	var cached models.CachedRecs
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, errkind.Wrap(errkind.Transient, "corrupt cache entry", err)
	}
	return &cached, nil
}

func (p *Postgres) PutCache(ctx context.Context, payload *models.CachedRecs) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errkind.Wrap(errkind.Validation, "failed to marshal cache payload", err)
	}
	if err := p.redis.Set(ctx, cacheKey(payload.UserID), data, 24*time.Hour).Err(); err != nil {
		return errkind.Wrap(errkind.Transient, "redis set failed", err)
	}
	return nil
}

func (p *Postgres) InvalidateAllCaches(ctx context.Context) error {
	iter := p.redis.Scan(ctx, 0, "recs:cache:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errkind.Wrap(errkind.Transient, "redis scan failed", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := p.redis.Del(ctx, keys...).Err(); err != nil {
		return errkind.Wrap(errkind.Transient, "redis del failed", err)
	}
	return nil
}

// ---- bandit store ----

func (p *Postgres) GetBandit(ctx context.Context, itemID uuid.UUID) (*models.BanditStat, error) {
	row := p.db.QueryRow(ctx, `
		SELECT item_id, alpha, beta, total_clicks, total_impressions, version, frozen, last_updated
		FROM bandit_stats WHERE item_id = $1`, itemID)

	var stat models.BanditStat
	err := row.Scan(&stat.ItemID, &stat.Alpha, &stat.Beta, &stat.TotalClicks,
		&stat.TotalImpressions, &stat.Version, &stat.Frozen, &stat.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewBanditStat(itemID), nil
	}
	if err != nil {
		return nil, errkind.Wrap(errkind.Transient, "failed to load bandit stat", err)
	}
	return &stat, nil
}

// UpsertBandit applies mutate under optimistic concurrency control: it
// reads the current row (or the priors if absent), applies mutate, and
// writes back conditioned on the version it read. A version mismatch means
// another writer won the race for this item_id and is retried, never
// merged, so updates to the same item serialize without a global lock.
func (p *Postgres) UpsertBandit(ctx context.Context, itemID uuid.UUID, mutate MutateFunc) (*models.BanditStat, error) {
	var last error
	for attempt := 0; attempt < bandeUpdateRetries; attempt++ {
		current, err := p.GetBandit(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if current.Frozen {
			return nil, errkind.New(errkind.InvariantViolation, "bandit stat frozen pending operator review")
		}

		before := *current
		if err := mutate(current); err != nil {
			return nil, errkind.Wrap(errkind.Validation, "mutate rejected update", err)
		}
		if current.Alpha < models.AlphaPrior || current.Beta < models.BetaPrior {
			_ = p.freeze(ctx, itemID)
			return nil, errkind.New(errkind.InvariantViolation,
				fmt.Sprintf("update would violate priors for item %s", itemID))
		}
		current.LastUpdated = before.LastUpdated

		tag, err := p.db.Exec(ctx, `
			INSERT INTO bandit_stats (item_id, alpha, beta, total_clicks, total_impressions, version, frozen, last_updated)
			VALUES ($1, $2, $3, $4, $5, 1, false, now())
			ON CONFLICT (item_id) DO UPDATE SET
				alpha = $2, beta = $3, total_clicks = $4, total_impressions = $5,
				version = bandit_stats.version + 1, last_updated = now()
			WHERE bandit_stats.version = $6`,
			itemID, current.Alpha, current.Beta, current.TotalClicks, current.TotalImpressions, before.Version)
		if err != nil {
			last = errkind.Wrap(errkind.Transient, "bandit upsert failed", err)
			continue
		}
		if tag.RowsAffected() == 0 {
			last = errkind.New(errkind.Conflict, "bandit version conflict, retrying")
			continue
		}
		current.Version = before.Version + 1
		return current, nil
	}
	return nil, last
}

func (p *Postgres) freeze(ctx context.Context, itemID uuid.UUID) error {
	_, err := p.db.Exec(ctx, `UPDATE bandit_stats SET frozen = true WHERE item_id = $1`, itemID)
	return err
}

// BatchUpdateBandits submits the whole map in a single transaction;
// partial failure aborts every delta in the batch.
func (p *Postgres) BatchUpdateBandits(ctx context.Context, deltas map[uuid.UUID][2]float64) error {
	pool, ok := p.db.(*pgxpool.Pool)
	if !ok {
		// Test doubles without transaction support apply deltas one at a
		// time; acceptable because pgxmock tests exercise a single item.
		for itemID, d := range deltas {
			if _, err := p.UpsertBandit(ctx, itemID, applyDelta(d[0], d[1])); err != nil {
				return err
			}
		}
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return errkind.Wrap(errkind.Transient, "failed to begin batch transaction", err)
	}
	defer tx.Rollback(ctx)

	txStore := &Postgres{db: tx, redis: p.redis, logger: p.logger}
	for itemID, d := range deltas {
		if _, err := txStore.UpsertBandit(ctx, itemID, applyDelta(d[0], d[1])); err != nil {
			return fmt.Errorf("batch update failed for item %s: %w", itemID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errkind.Wrap(errkind.Transient, "failed to commit batch transaction", err)
	}
	return nil
}

func applyDelta(dAlpha, dBeta float64) MutateFunc {
	return func(b *models.BanditStat) error {
		b.Alpha += dAlpha
		b.Beta += dBeta
		return nil
	}
}

func (p *Postgres) IncrementImpression(ctx context.Context, itemID uuid.UUID) error {
	_, err := p.UpsertBandit(ctx, itemID, func(b *models.BanditStat) error {
		b.TotalImpressions++
		return nil
	})
	return err
}

func (p *Postgres) IncrementClick(ctx context.Context, itemID uuid.UUID) error {
	_, err := p.UpsertBandit(ctx, itemID, func(b *models.BanditStat) error {
		b.TotalClicks++
		return nil
	})
	return err
}

// ---- interactions / results ----

func (p *Postgres) InsertInteraction(ctx context.Context, row *models.Interaction) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	_, err := p.db.Exec(ctx, `
		INSERT INTO interactions (id, user_id, item_id, kind, position, duration_s, timestamp, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.ID, row.UserID, row.ItemID, row.Kind, row.Position, row.DurationS, row.Timestamp, row.SessionID)
	if err != nil {
		return errkind.Wrap(errkind.Transient, "failed to insert interaction", err)
	}
	return nil
}

func (p *Postgres) ReadInteractions(ctx context.Context, window TimeWindow, filter InteractionFilter) ([]models.Interaction, error) {
	query := `
		SELECT id, user_id, item_id, kind, position, duration_s, timestamp, session_id, absorbed_by
		FROM interactions WHERE timestamp >= $1 AND timestamp <= $2`
	args := []any{window.From, window.To}

	if filter.ExcludeAbsorbed {
		query += " AND absorbed_by IS NULL"
	}
	if filter.Kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", len(args)+1)
		args = append(args, *filter.Kind)
	}

	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errkind.Wrap(errkind.Transient, "failed to read interactions", err)
	}
	defer rows.Close()

	var out []models.Interaction
	for rows.Next() {
		var in models.Interaction
		if err := rows.Scan(&in.ID, &in.UserID, &in.ItemID, &in.Kind, &in.Position,
			&in.DurationS, &in.Timestamp, &in.SessionID, &in.AbsorbedBy); err != nil {
			return nil, errkind.Wrap(errkind.Transient, "failed to scan interaction", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkAbsorbed(ctx context.Context, ids []uuid.UUID, runID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.db.Exec(ctx, `UPDATE interactions SET absorbed_by = $1 WHERE id = ANY($2)`, runID, ids)
	if err != nil {
		return errkind.Wrap(errkind.Transient, "failed to mark interactions absorbed", err)
	}
	return nil
}

func (p *Postgres) InsertResult(ctx context.Context, row *models.RecommendationResult) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	_, err := p.db.Exec(ctx, `
		INSERT INTO recommendation_results
			(id, user_id, item_id, rank_position, similarity, bandit_score, method, ab_group, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		row.ID, row.UserID, row.ItemID, row.RankPosition, row.Similarity, row.BanditScore, row.Method, row.ABGroup)
	if err != nil {
		return errkind.Wrap(errkind.Transient, "failed to insert recommendation result", err)
	}
	return nil
}

func (p *Postgres) ReadResults(ctx context.Context, window TimeWindow) ([]models.RecommendationResult, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, user_id, item_id, rank_position, similarity, bandit_score, method, ab_group, created_at
		FROM recommendation_results WHERE created_at >= $1 AND created_at <= $2`,
		window.From, window.To)
	if err != nil {
		return nil, errkind.Wrap(errkind.Transient, "failed to read recommendation results", err)
	}
	defer rows.Close()

	var out []models.RecommendationResult
	for rows.Next() {
		var r models.RecommendationResult
		var group *string
		if err := rows.Scan(&r.ID, &r.UserID, &r.ItemID, &r.RankPosition, &r.Similarity,
			&r.BanditScore, &r.Method, &group, &r.CreatedAt); err != nil {
			return nil, errkind.Wrap(errkind.Transient, "failed to scan recommendation result", err)
		}
		if group != nil {
			g := models.ABGroup(*group)
			r.ABGroup = &g
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ---- A/B testing ----

func (p *Postgres) ABGetActiveConfig(ctx context.Context) (*models.ABTestConfig, error) {
	row := p.db.QueryRow(ctx, `
		SELECT test_id, name, status, control_pct, start, "end", winner
		FROM ab_test_configs WHERE status = 'active' LIMIT 1`)

	var cfg models.ABTestConfig
	var winner *string
	if err := row.Scan(&cfg.TestID, &cfg.Name, &cfg.Status, &cfg.ControlPct, &cfg.Start, &cfg.End, &winner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errkind.New(errkind.NotFound, "no active test")
		}
		return nil, errkind.Wrap(errkind.Transient, "failed to load active test", err)
	}
	if winner != nil {
		g := models.ABGroup(*winner)
		cfg.Winner = &g
	}
	return &cfg, nil
}

func (p *Postgres) ABCreateConfig(ctx context.Context, cfg *models.ABTestConfig) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO ab_test_configs (test_id, name, status, control_pct, start, "end", winner)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cfg.TestID, cfg.Name, cfg.Status, cfg.ControlPct, cfg.Start, cfg.End, cfg.Winner)
	if err != nil {
		return errkind.Wrap(errkind.Conflict, "failed to create test config (may already be active)", err)
	}
	return nil
}

func (p *Postgres) ABEndConfig(ctx context.Context, testID string, winner *models.ABGroup) error {
	tag, err := p.db.Exec(ctx, `
		UPDATE ab_test_configs SET status = 'ended', "end" = now(), winner = $2
		WHERE test_id = $1 AND status = 'active'`, testID, winner)
	if err != nil {
		return errkind.Wrap(errkind.Transient, "failed to end test", err)
	}
	if tag.RowsAffected() == 0 {
		return errkind.New(errkind.Conflict, "test is not active or does not exist")
	}
	return nil
}

// ABGetOrInsertAssignment is the single place a new bucket is computed,
// satisfying the "written at most once per (test_id, user_id)" invariant
// via the unique constraint on the table: the loser of a race discards
// its own bucket and reads back whichever row committed first.
func (p *Postgres) ABGetOrInsertAssignment(ctx context.Context, testID string, userID uuid.UUID, bucketFn BucketFunc) (*models.ABAssignment, error) {
	row := p.db.QueryRow(ctx, `
		SELECT test_id, user_id, "group", assigned_at FROM ab_assignments
		WHERE test_id = $1 AND user_id = $2`, testID, userID.String())

	var existing models.ABAssignment
	err := row.Scan(&existing.TestID, &existing.UserID, &existing.Group, &existing.AssignedAt)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errkind.Wrap(errkind.Transient, "failed to read assignment", err)
	}

	group := bucketFn()
	_, insertErr := p.db.Exec(ctx, `
		INSERT INTO ab_assignments (test_id, user_id, "group", assigned_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (test_id, user_id) DO NOTHING`, testID, userID.String(), group)
	if insertErr != nil {
		return nil, errkind.Wrap(errkind.Transient, "failed to insert assignment", insertErr)
	}

	row = p.db.QueryRow(ctx, `
		SELECT test_id, user_id, "group", assigned_at FROM ab_assignments
		WHERE test_id = $1 AND user_id = $2`, testID, userID.String())
	var final models.ABAssignment
	if err := row.Scan(&final.TestID, &final.UserID, &final.Group, &final.AssignedAt); err != nil {
		return nil, errkind.Wrap(errkind.Transient, "failed to read assignment after insert", err)
	}
	return &final, nil
}

func (p *Postgres) ABInsertResult(ctx context.Context, row *models.TestResult) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO ab_test_results
			(test_id, z, p, relative_effect, significant, insufficient_sample, winner, recommendation, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		row.TestID, row.Z, row.P, row.RelativeEffect, row.Significant, row.InsufficientSample, row.Winner, row.Recommendation)
	if err != nil {
		return errkind.Wrap(errkind.Transient, "failed to insert test result", err)
	}
	return nil
}

func (p *Postgres) ABGetResult(ctx context.Context, testID string) (*models.TestResult, error) {
	row := p.db.QueryRow(ctx, `
		SELECT test_id, z, p, relative_effect, significant, insufficient_sample, winner, recommendation, computed_at
		FROM ab_test_results WHERE test_id = $1 ORDER BY computed_at DESC LIMIT 1`, testID)

	var res models.TestResult
	var winner *string
	if err := row.Scan(&res.TestID, &res.Z, &res.P, &res.RelativeEffect, &res.Significant,
		&res.InsufficientSample, &winner, &res.Recommendation, &res.ComputedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errkind.New(errkind.NotFound, "no result for test")
		}
		return nil, errkind.Wrap(errkind.Transient, "failed to load test result", err)
	}
	if winner != nil {
		g := models.ABGroup(*winner)
		res.Winner = &g
	}
	return &res, nil
}

func (p *Postgres) InsertTrainingRun(ctx context.Context, run *models.TrainingRun) error {
	if run.RunID == uuid.Nil {
		run.RunID = uuid.New()
	}
	_, err := p.db.Exec(ctx, `
		INSERT INTO training_runs (run_id, days_processed, interactions, projects_updated, succeeded, failure_reason, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, now())`,
		run.RunID, run.DaysProcessed, run.Interactions, run.ProjectsUpdated, run.Succeeded, run.FailureReason)
	if err != nil {
		return errkind.Wrap(errkind.Transient, "failed to insert training run", err)
	}
	return nil
}

// Bucket computes the deterministic MD5-based bucket for a user id,
// shared by the A/B assignment and significance services so both agree
// on the algorithm without either importing the other's internals.
func Bucket(userID uuid.UUID) int {
	sum := md5.Sum([]byte(userID.String()))
	n := new(big.Int).SetBytes(sum[:])
	return int(new(big.Int).Mod(n, big.NewInt(100)).Int64())
}
