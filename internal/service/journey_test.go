package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/engage-api/internal/domain/model"
	apperrors "github.com/target/engage-api/internal/errors"
	"github.com/target/engage-api/internal/mocks"
)

func newJourneyService(t *testing.T) (*JourneyService, *mocks.MockJourneyRepository, *mocks.MockEnrollmentRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	journeys := mocks.NewMockJourneyRepository(ctrl)
	enrollments := mocks.NewMockEnrollmentRepository(ctrl)
	svc, err := NewJourneyService(JourneyServiceOptions{
		Journeys:    journeys,
		Enrollments: enrollments,
		Now:         func() time.Time { return entered },
	})
	require.NoError(t, err)
	return svc, journeys, enrollments
}

func TestJourneyService_Create(t *testing.T) {
	svc, journeys, _ := newJourneyService(t)

	_, err := svc.Create(context.Background(), model.CreateJourneyRequest{
		WorkspaceID: "ws",
		Name:        "welcome",
		Settings:    json.RawMessage(`{"conversionTracking":{"timeLimit":{"unit":"Years","value":1}}}`),
	})
	require.Error(t, err)
	assert.Equal(t, "timeLimit.unit", apperrors.GetField(err))

	journeys.EXPECT().
		Create(gomock.Any(), model.CreateJourneyRequest{WorkspaceID: "ws", Name: "welcome", Settings: json.RawMessage(`{}`)}).
		Return(&model.Journey{ID: "j1", WorkspaceID: "ws", Name: "welcome"}, nil)
	j, err := svc.Create(context.Background(), model.CreateJourneyRequest{WorkspaceID: "ws", Name: " welcome "})
	require.NoError(t, err)
	assert.Equal(t, "j1", j.ID)
}

func TestJourneyService_Enroll(t *testing.T) {
	svc, _, enrollments := newJourneyService(t)

	_, err := svc.Enroll(context.Background(), "j1", model.EnrollRequest{})
	assert.True(t, apperrors.IsValidation(err))

	enrollments.EXPECT().Enroll(gomock.Any(), "j1", "c1", entered).
		Return(&model.Enrollment{JourneyID: "j1", CustomerID: "c1", EnteredAt: entered}, nil)
	e, err := svc.Enroll(context.Background(), "j1", model.EnrollRequest{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, entered, e.EnteredAt)

	at := time.Date(2024, 2, 1, 9, 0, 0, 0, time.FixedZone("EST", -5*3600))
	enrollments.EXPECT().Enroll(gomock.Any(), "j1", "c2", at.UTC()).
		Return(nil, apperrors.NotFound("journey j1 or customer c2 not found in the same workspace"))
	_, err = svc.Enroll(context.Background(), "j1", model.EnrollRequest{CustomerID: "c2", EnteredAt: &at})
	assert.True(t, apperrors.IsNotFound(err))
}
