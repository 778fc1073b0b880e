package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/floats"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/encoder"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/errkind"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/store"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// SimilarityRetriever builds the deterministic query vector for a
// profile and ranks candidate items against it by cosine similarity.
type SimilarityRetriever struct {
	store   store.Store
	encoder encoder.Encoder
	logger  *logrus.Logger
}

func NewSimilarityRetriever(s store.Store, enc encoder.Encoder, logger *logrus.Logger) *SimilarityRetriever {
	return &SimilarityRetriever{store: s, encoder: enc, logger: logger}
}

// ProfileHash is a stable digest over the canonicalized profile fields,
// computed in the same fixed field order the query string composition
// uses but with each multi-valued field sorted first, so reordering an
// interest list never invalidates the cache.
func ProfileHash(profile *models.UserProfile) string {
	sorted := *profile
	for _, field := range []*[]string{&sorted.InterestTags, &sorted.Languages, &sorted.Frameworks} {
		values := append([]string(nil), (*field)...)
		sort.Strings(values)
		*field = values
	}
	canon := QueryString(&sorted)
	sum := sha256.Sum256([]byte(canon))
	return hex.EncodeToString(sum[:])
}

// QueryString composes the deterministic text fed to the encoder:
// fields in a fixed order, absent fields omitted, multi-valued fields
// joined by single spaces with underscores replaced by spaces, and the
// whole thing normalized to NFC so visually-identical but differently
// composed Unicode never forks the cache key.
func QueryString(profile *models.UserProfile) string {
	var parts []string
	parts = append(parts, joinField(profile.InterestTags)...)
	parts = append(parts, joinField(profile.Languages)...)
	parts = append(parts, joinField(profile.Frameworks)...)
	if profile.LearningGoals != "" {
		parts = append(parts, profile.LearningGoals)
	}
	if profile.SkillLevel != "" {
		parts = append(parts, string(profile.SkillLevel))
	}
	return norm.NFC.String(strings.Join(parts, " "))
}

func joinField(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ReplaceAll(v, "_", " "))
	}
	return out
}

// Candidates implements the C2 contract: build the query vector, score
// every item by cosine similarity, filter by skill level with the <k/2
// fallback, and return the top k ordered deterministically.
func (r *SimilarityRetriever) Candidates(ctx context.Context, profile *models.UserProfile, k int) ([]models.Candidate, error) {
	text := QueryString(profile)

	queryVec, err := r.encodeWithRetry(ctx, text)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", profile.UserID).Warn("encoder failed twice, degrading to empty candidate set")
		return nil, nil
	}

	items, err := r.store.LoadItems(ctx)
	if err != nil {
		return nil, errkind.Wrap(errkind.Transient, "failed to load items", err)
	}

	scored := make([]models.Candidate, 0, len(items))
	for _, item := range items {
		if len(item.Embedding) != len(queryVec) {
			continue
		}
		sim := cosineSimilarity(queryVec, item.Embedding)
		scored = append(scored, models.Candidate{ItemID: item.ID, Similarity: sim})
	}

	filtered := scored
	if profile.SkillLevel != "" {
		byLevel := filterByComplexity(items, scored, profile.SkillLevel)
		if len(byLevel) >= k/2 {
			filtered = byLevel
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Similarity != filtered[j].Similarity {
			return filtered[i].Similarity > filtered[j].Similarity
		}
		return filtered[i].ItemID.String() < filtered[j].ItemID.String()
	})

	if len(filtered) > k {
		filtered = filtered[:k]
	}
	return filtered, nil
}

func (r *SimilarityRetriever) encodeWithRetry(ctx context.Context, text string) ([]float32, error) {
	vec, err := r.encoder.Encode(ctx, text)
	if err == nil {
		return normalize(vec), nil
	}
	vec, err = r.encoder.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	return normalize(vec), nil
}

func filterByComplexity(items []models.Item, scored []models.Candidate, level models.ComplexityLevel) []models.Candidate {
	byID := make(map[uuid.UUID]models.ComplexityLevel, len(items))
	for _, it := range items {
		byID[it.ID] = it.ComplexityLevel
	}
	out := make([]models.Candidate, 0, len(scored))
	for _, c := range scored {
		if byID[c.ItemID] == level {
			out = append(out, c)
		}
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	af := toFloat64(a)
	bf := toFloat64(b)
	denom := floats.Norm(af, 2) * floats.Norm(bf, 2)
	if denom == 0 {
		return 0
	}
	return floats.Dot(af, bf) / denom
}

func normalize(vec []float32) []float32 {
	f := toFloat64(vec)
	n := floats.Norm(f, 2)
	if n == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / n)
	}
	return out
}

func toFloat64(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}
