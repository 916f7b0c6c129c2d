package sync

import (
	"context"
	"fmt"

	"github.com/noah-isme/sis-sync-api/internal/models"
)

type classResolver interface {
	FindBySchoolAndExternal(ctx context.Context, schoolID, lmsID, externalID string) (*models.Class, error)
}

type gradeScaleReader interface {
	FindBySchool(ctx context.Context, schoolID string) (*models.GradeScale, error)
	ListLetters(ctx context.Context, scaleID string) ([]models.GradeLetter, error)
}

// GradingService resolves a raw percentage against a class's grade scale.
// It performs no writes, so the score and activity synchronizers can both
// call it without double-counting anything.
type GradingService struct {
	classes classResolver
	scales  gradeScaleReader
}

// NewGradingService builds a grading service.
func NewGradingService(classes classResolver, scales gradeScaleReader) *GradingService {
	return &GradingService{classes: classes, scales: scales}
}

// Resolve maps a raw percentage onto the owning class's grade scale. When
// the class cannot be resolved the result carries an empty ClassID and the
// caller is expected to skip its write.
func (s *GradingService) Resolve(ctx context.Context, schoolID, lmsID, classExternalID string, rawPercentage float64) (models.GradeResult, error) {
	class, err := s.classes.FindBySchoolAndExternal(ctx, schoolID, lmsID, classExternalID)
	if err != nil {
		return models.GradeResult{}, fmt.Errorf("resolve class %s: %w", classExternalID, err)
	}
	if class == nil {
		return models.GradeResult{}, nil
	}

	result := models.GradeResult{ClassID: class.ID, Weight: class.Weight}

	scale, err := s.scales.FindBySchool(ctx, schoolID)
	if err != nil {
		return models.GradeResult{}, fmt.Errorf("resolve grade scale for school %s: %w", schoolID, err)
	}
	if scale == nil {
		// No scale configured: keep the raw score, no letter, no pass mark.
		return result, nil
	}

	result.IsPass = rawPercentage >= scale.PassingGrade

	letters, err := s.scales.ListLetters(ctx, scale.ID)
	if err != nil {
		return models.GradeResult{}, fmt.Errorf("list grade letters: %w", err)
	}
	for i := range letters {
		if rawPercentage >= letters[i].MinScore && rawPercentage <= letters[i].MaxScore {
			result.GradeLetter = letters[i].Letter
			id := letters[i].ID
			result.GradeLetterID = &id
			break
		}
	}

	return result, nil
}

// Percentage computes raw/max*100 with an explicit zero-division guard: a
// zero max yields zero, never NaN.
func Percentage(raw, max float64) float64 {
	if max == 0 {
		return 0
	}
	return raw / max * 100
}
