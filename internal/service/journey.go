package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/target/engage-api/internal/core"
	"github.com/target/engage-api/internal/domain/conversion"
	"github.com/target/engage-api/internal/domain/model"
	apperrors "github.com/target/engage-api/internal/errors"
)

// JourneyServiceOptions groups dependencies for JourneyService.
type JourneyServiceOptions struct {
	Journeys    core.JourneyRepository
	Enrollments core.EnrollmentRepository
	// SettingsPath locates conversion tracking in new settings documents.
	SettingsPath string
	Now          func() time.Time
}

// JourneyService manages journeys and enrolls customers into them.
type JourneyService struct {
	journeys    core.JourneyRepository
	enrollments core.EnrollmentRepository
	extractor   *conversion.Extractor
	now         func() time.Time
}

// NewJourneyService constructs a new JourneyService.
func NewJourneyService(opts JourneyServiceOptions) (*JourneyService, error) {
	extractor, err := conversion.NewExtractor(opts.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("settings path: %w", err)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &JourneyService{
		journeys:    opts.Journeys,
		enrollments: opts.Enrollments,
		extractor:   extractor,
		now:         now,
	}, nil
}

// Create validates and creates a journey. Conversion tracking in the
// initial settings document is validated before anything is stored.
func (s *JourneyService) Create(ctx context.Context, req model.CreateJourneyRequest) (*model.Journey, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.extractor.Extract(req.Settings); err != nil {
		return nil, err
	}
	j, err := s.journeys.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create journey: %w", err)
	}
	return j, nil
}

// Get returns a journey by id.
func (s *JourneyService) Get(ctx context.Context, id string) (*model.Journey, error) {
	return s.journeys.GetByID(ctx, id)
}

// Enroll puts a customer into a journey. Enrolling twice keeps the original
// entry time.
func (s *JourneyService) Enroll(
	ctx context.Context,
	journeyID string,
	req model.EnrollRequest,
) (*model.Enrollment, error) {
	req.CustomerID = strings.TrimSpace(req.CustomerID)
	if req.CustomerID == "" {
		return nil, apperrors.ValidationField("customer_id", "customer_id is required and cannot be empty")
	}
	enteredAt := s.now().UTC()
	if req.EnteredAt != nil {
		enteredAt = req.EnteredAt.UTC()
	}

	e, err := s.enrollments.Enroll(ctx, journeyID, req.CustomerID, enteredAt)
	if err != nil {
		return nil, fmt.Errorf("enroll customer: %w", err)
	}
	return e, nil
}
