package usecase

import (
	"errors"
	"slices"
	"time"

	"member-intake/internal/converter"
	"member-intake/internal/delivery/dto"
	"member-intake/internal/domain/entity"
	"member-intake/pkg/fieldcodec"
)

var ErrInvalidMonth = errors.New("month must be between 01 and 12")

type OptionsUsecase interface {
	GetFormOptions(year, month string) (*dto.FormOptionsResponse, error)
}

type optionsUsecase struct {
	now func() time.Time
}

func NewOptionsUsecase() OptionsUsecase {
	return &optionsUsecase{now: time.Now}
}

// GetFormOptions returns the select options of the form. The day list follows
// the given year and month when both are set.
func (u *optionsUsecase) GetFormOptions(year, month string) (*dto.FormOptionsResponse, error) {
	if month != "" && !slices.Contains(fieldcodec.MonthOptions(), month) {
		return nil, ErrInvalidMonth
	}

	return &dto.FormOptionsResponse{
		InsuranceTypes:      converter.LabelsToOptions(entity.Labels(entity.InsuranceTypes)),
		EmploymentStatuses:  converter.LabelsToOptions(entity.Labels(entity.EmploymentStatuses)),
		LivingStatuses:      converter.LabelsToOptions(entity.Labels(entity.LivingStatuses)),
		DisabilityHandbooks: converter.LabelsToOptions(entity.Labels(entity.DisabilityHandbooks)),
		MaritalStatuses:     converter.LabelsToOptions(entity.Labels(entity.MaritalStatuses)),
		BirthYears:          fieldcodec.BirthYearOptions(u.now()),
		BirthMonths:         fieldcodec.MonthOptions(),
		BirthDays:           fieldcodec.DayOptions(year, month),
	}, nil
}

