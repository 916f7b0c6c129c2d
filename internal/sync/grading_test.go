package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

type mockClassResolver struct {
	classes map[string]*models.Class
}

func (m *mockClassResolver) FindBySchoolAndExternal(_ context.Context, _, _, externalID string) (*models.Class, error) {
	return m.classes[externalID], nil
}

type mockScaleReader struct {
	scale   *models.GradeScale
	letters []models.GradeLetter
}

func (m *mockScaleReader) FindBySchool(_ context.Context, _ string) (*models.GradeScale, error) {
	return m.scale, nil
}

func (m *mockScaleReader) ListLetters(_ context.Context, _ string) ([]models.GradeLetter, error) {
	return m.letters, nil
}

func defaultLetters() []models.GradeLetter {
	return []models.GradeLetter{
		{ID: "gl-f", Letter: "F", MinScore: 0, MaxScore: 59.99},
		{ID: "gl-c", Letter: "C", MinScore: 60, MaxScore: 74.99},
		{ID: "gl-b", Letter: "B", MinScore: 75, MaxScore: 89.99},
		{ID: "gl-a", Letter: "A", MinScore: 90, MaxScore: 100},
	}
}

func TestGradingResolveLetterAndPass(t *testing.T) {
	classes := &mockClassResolver{classes: map[string]*models.Class{
		"ext-1": {ID: "class-1", Weight: 2},
	}}
	scales := &mockScaleReader{
		scale:   &models.GradeScale{ID: "scale-1", PassingGrade: 70},
		letters: defaultLetters(),
	}
	svc := NewGradingService(classes, scales)

	result, err := svc.Resolve(context.Background(), "school-1", "lms-1", "ext-1", 85)
	require.NoError(t, err)
	require.Equal(t, "class-1", result.ClassID)
	require.Equal(t, "B", result.GradeLetter)
	require.NotNil(t, result.GradeLetterID)
	require.Equal(t, "gl-b", *result.GradeLetterID)
	require.True(t, result.IsPass)
	require.Equal(t, 2.0, result.Weight)
}

func TestGradingResolveBelowPassingGrade(t *testing.T) {
	classes := &mockClassResolver{classes: map[string]*models.Class{
		"ext-1": {ID: "class-1"},
	}}
	scales := &mockScaleReader{
		scale:   &models.GradeScale{ID: "scale-1", PassingGrade: 70},
		letters: defaultLetters(),
	}
	svc := NewGradingService(classes, scales)

	result, err := svc.Resolve(context.Background(), "school-1", "lms-1", "ext-1", 65)
	require.NoError(t, err)
	require.Equal(t, "C", result.GradeLetter)
	require.False(t, result.IsPass)
}

func TestGradingResolveWithoutScale(t *testing.T) {
	classes := &mockClassResolver{classes: map[string]*models.Class{
		"ext-1": {ID: "class-1"},
	}}
	svc := NewGradingService(classes, &mockScaleReader{})

	result, err := svc.Resolve(context.Background(), "school-1", "lms-1", "ext-1", 42)
	require.NoError(t, err)
	require.Equal(t, "class-1", result.ClassID)
	require.Empty(t, result.GradeLetter)
	require.Nil(t, result.GradeLetterID)
	require.False(t, result.IsPass)
}

func TestGradingResolveUnknownClass(t *testing.T) {
	svc := NewGradingService(&mockClassResolver{}, &mockScaleReader{})

	result, err := svc.Resolve(context.Background(), "school-1", "lms-1", "missing", 90)
	require.NoError(t, err)
	require.Empty(t, result.ClassID)
}

func TestPercentageZeroDivisionGuard(t *testing.T) {
	require.Equal(t, 0.0, Percentage(42.5, 0))
	require.Equal(t, 85.0, Percentage(42.5, 50))
	require.Equal(t, 0.0, Percentage(0, 0))
}
