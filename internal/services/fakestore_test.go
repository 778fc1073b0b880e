package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/errkind"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/store"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// fakeStore is an in-memory stand-in for store.Store, grounded on the
// teacher's hand-rolled MockDatabase pattern but backed by plain maps
// instead of testify/mock, since these tests assert on computed values
// rather than on call expectations.
type fakeStore struct {
	mu        sync.Mutex
	profiles  map[uuid.UUID]*models.UserProfile
	items     []models.Item
	bandits   map[uuid.UUID]*models.BanditStat
	cache     map[uuid.UUID]*models.CachedRecs
	results   []models.RecommendationResult
	interacts []models.Interaction
	abConfigs map[string]*models.ABTestConfig
	abAssign  map[string]*models.ABAssignment
	abResults map[string]*models.TestResult
	runs      []models.TrainingRun
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:  map[uuid.UUID]*models.UserProfile{},
		bandits:   map[uuid.UUID]*models.BanditStat{},
		cache:     map[uuid.UUID]*models.CachedRecs{},
		abConfigs: map[string]*models.ABTestConfig{},
		abAssign:  map[string]*models.ABAssignment{},
		abResults: map[string]*models.TestResult{},
	}
}

func (f *fakeStore) LoadProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, errNotFound
	}
	return p, nil
}
func (f *fakeStore) LoadItems(ctx context.Context) ([]models.Item, error) { return f.items, nil }
func (f *fakeStore) LoadItemEmbedding(ctx context.Context, itemID uuid.UUID) ([]float32, error) {
	for _, it := range f.items {
		if it.ID == itemID {
			return it.Embedding, nil
		}
	}
	return nil, errNotFound
}

func (f *fakeStore) GetCache(ctx context.Context, userID uuid.UUID) (*models.CachedRecs, error) {
	c, ok := f.cache[userID]
	if !ok {
		return nil, errNotFound
	}
	return c, nil
}
func (f *fakeStore) PutCache(ctx context.Context, payload *models.CachedRecs) error {
	f.cache[payload.UserID] = payload
	return nil
}
func (f *fakeStore) InvalidateAllCaches(ctx context.Context) error {
	f.cache = map[uuid.UUID]*models.CachedRecs{}
	return nil
}

func (f *fakeStore) GetBandit(ctx context.Context, itemID uuid.UUID) (*models.BanditStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.bandits[itemID]; ok {
		cp := *s
		return &cp, nil
	}
	return models.NewBanditStat(itemID), nil
}
func (f *fakeStore) UpsertBandit(ctx context.Context, itemID uuid.UUID, mutate store.MutateFunc) (*models.BanditStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.bandits[itemID]
	if !ok {
		fresh := models.NewBanditStat(itemID)
		cur = fresh
	}
	cp := *cur
	if err := mutate(&cp); err != nil {
		return nil, err
	}
	f.bandits[itemID] = &cp
	out := cp
	return &out, nil
}
func (f *fakeStore) BatchUpdateBandits(ctx context.Context, deltas map[uuid.UUID][2]float64) error {
	for itemID, d := range deltas {
		if _, err := f.UpsertBandit(ctx, itemID, func(b *models.BanditStat) error {
			b.Alpha += d[0]
			b.Beta += d[1]
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}
func (f *fakeStore) IncrementImpression(ctx context.Context, itemID uuid.UUID) error {
	_, err := f.UpsertBandit(ctx, itemID, func(b *models.BanditStat) error { b.TotalImpressions++; return nil })
	return err
}
func (f *fakeStore) IncrementClick(ctx context.Context, itemID uuid.UUID) error {
	_, err := f.UpsertBandit(ctx, itemID, func(b *models.BanditStat) error { b.TotalClicks++; return nil })
	return err
}

func (f *fakeStore) InsertInteraction(ctx context.Context, row *models.Interaction) error {
	f.interacts = append(f.interacts, *row)
	return nil
}
func (f *fakeStore) ReadInteractions(ctx context.Context, window store.TimeWindow, filter store.InteractionFilter) ([]models.Interaction, error) {
	var out []models.Interaction
	for _, in := range f.interacts {
		if in.Timestamp.Before(window.From) || in.Timestamp.After(window.To) {
			continue
		}
		if filter.ExcludeAbsorbed && in.AbsorbedBy != nil {
			continue
		}
		out = append(out, in)
	}
	return out, nil
}
func (f *fakeStore) MarkAbsorbed(ctx context.Context, ids []uuid.UUID, runID uuid.UUID) error {
	for i := range f.interacts {
		for _, id := range ids {
			if f.interacts[i].ID == id {
				f.interacts[i].AbsorbedBy = &runID
			}
		}
	}
	return nil
}
func (f *fakeStore) InsertResult(ctx context.Context, row *models.RecommendationResult) error {
	f.results = append(f.results, *row)
	return nil
}
func (f *fakeStore) ReadResults(ctx context.Context, window store.TimeWindow) ([]models.RecommendationResult, error) {
	var out []models.RecommendationResult
	for _, r := range f.results {
		if r.CreatedAt.Before(window.From) || r.CreatedAt.After(window.To) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) ABGetActiveConfig(ctx context.Context) (*models.ABTestConfig, error) {
	for _, c := range f.abConfigs {
		if c.Status == models.ABStatusActive {
			return c, nil
		}
	}
	return nil, errNotFound
}
func (f *fakeStore) ABCreateConfig(ctx context.Context, cfg *models.ABTestConfig) error {
	f.abConfigs[cfg.TestID] = cfg
	return nil
}
func (f *fakeStore) ABEndConfig(ctx context.Context, testID string, winner *models.ABGroup) error {
	c, ok := f.abConfigs[testID]
	if !ok {
		return errNotFound
	}
	c.Status = models.ABStatusEnded
	c.Winner = winner
	return nil
}
func (f *fakeStore) ABGetOrInsertAssignment(ctx context.Context, testID string, userID uuid.UUID, bucketFn store.BucketFunc) (*models.ABAssignment, error) {
	key := testID + "|" + userID.String()
	if a, ok := f.abAssign[key]; ok {
		return a, nil
	}
	a := &models.ABAssignment{TestID: testID, UserID: userID.String(), Group: bucketFn()}
	f.abAssign[key] = a
	return a, nil
}
func (f *fakeStore) ABInsertResult(ctx context.Context, row *models.TestResult) error {
	f.abResults[row.TestID] = row
	return nil
}
func (f *fakeStore) ABGetResult(ctx context.Context, testID string) (*models.TestResult, error) {
	r, ok := f.abResults[testID]
	if !ok {
		return nil, errNotFound
	}
	return r, nil
}
func (f *fakeStore) InsertTrainingRun(ctx context.Context, run *models.TrainingRun) error {
	f.runs = append(f.runs, *run)
	return nil
}
func (f *fakeStore) Close() error { return nil }

var errNotFound = errkind.New(errkind.NotFound, "not found")
