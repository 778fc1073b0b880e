package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/errkind"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/store"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/pkg/models"
)

// ABAssignmentService implements the C7 contract: deterministic hashed
// bucketing plus the should_use_rl gate the pipeline consults before
// deciding whether to rerank at all.
type ABAssignmentService struct {
	store  store.Store
	logger *logrus.Logger
}

func NewABAssignmentService(s store.Store, logger *logrus.Logger) *ABAssignmentService {
	return &ABAssignmentService{store: s, logger: logger}
}

// Assign returns the user's group for the currently active test, or nil
// if there is none. It never reassigns an existing row: ControlPct
// changes on an already-active test only affect users assigned after
// the change.
func (a *ABAssignmentService) Assign(ctx context.Context, userID uuid.UUID) (*models.ABGroup, error) {
	cfg, err := a.store.ABGetActiveConfig(ctx)
	if err != nil {
		if errkind.Is(err, errkind.NotFound) {
			return nil, nil
		}
		return nil, err
	}

	assignment, err := a.store.ABGetOrInsertAssignment(ctx, cfg.TestID, userID, func() models.ABGroup {
		if store.Bucket(userID) < cfg.ControlPct {
			return models.GroupControl
		}
		return models.GroupTreatment
	})
	if err != nil {
		return nil, err
	}
	group := assignment.Group
	return &group, nil
}

// ShouldUseRL returns true iff there is no active test or the user was
// assigned to the treatment group.
func (a *ABAssignmentService) ShouldUseRL(ctx context.Context, userID uuid.UUID) (bool, *models.ABGroup, error) {
	group, err := a.Assign(ctx, userID)
	if err != nil {
		return false, nil, err
	}
	if group == nil {
		return true, nil, nil
	}
	return *group == models.GroupTreatment, group, nil
}
