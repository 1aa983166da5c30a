package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"member-intake/internal/domain/entity"
	"member-intake/pkg/fieldcodec"

	"github.com/google/uuid"
)

// Request DTOs

// MemberFormPatch carries field edits. Nil fields are left unchanged; an empty
// string clears an optional field. Age is not accepted: it is derived from the
// birth date.
type MemberFormPatch struct {
	ID            *string `json:"id"`
	LastName      *string `json:"last_name"`
	FirstName     *string `json:"first_name"`
	LastNameKana  *string `json:"last_name_kana"`
	FirstNameKana *string `json:"first_name_kana"`

	BirthDate      *string                    `json:"birth_date"`
	BirthDateParts *fieldcodec.BirthDateParts `json:"birth_date_parts"`

	PhoneNumber *string    `json:"phone_number"`
	PhoneParts  *[3]string `json:"phone_parts"`
	PostalCode  *string    `json:"postal_code"`
	PostalParts *[2]string `json:"postal_parts"`
	Address1    *string    `json:"address_1"`
	Address2    *string    `json:"address_2"`

	InsuranceType      *string `json:"insurance_type"`
	EmploymentStatus   *string `json:"employment_status"`
	LivingStatus       *string `json:"living_status"`
	DisabilityHandbook *string `json:"disability_handbook"`
	MaritalStatus      *string `json:"marital_status"`

	HospitalVisitHistory *bool `json:"hospital_visit_history"`
	IsOnWelfare          *bool `json:"is_on_welfare"`
	PastWelfareUsage     *bool `json:"past_welfare_usage"`

	Symptoms     *string `json:"symptoms"`
	HospitalName *string `json:"hospital_name"`
	Occupation   *string `json:"occupation"`
	Workplace    *string `json:"workplace"`
	Background   *string `json:"background"`
	Involvement  *string `json:"involvement"`

	AnnualIncome *NumberText `json:"annual_income"`
}

// NumberText is numeric input as typed by the user. It accepts a JSON string or number.
type NumberText string

func (n *NumberText) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumberText(s)
		return nil
	}
	*n = NumberText(bytes.TrimSpace(data))
	return nil
}

type ConsentRequest struct {
	Agreed *bool `json:"agreed" validate:"required"`
}

// Response DTOs

type FormSessionResponse struct {
	ID                  uuid.UUID                 `json:"id"`
	State               entity.FormState          `json:"state"`
	Values              entity.MemberForm         `json:"values"`
	PhoneParts          [3]string                 `json:"phone_parts"`
	PostalParts         [2]string                 `json:"postal_parts"`
	BirthDateParts      fieldcodec.BirthDateParts `json:"birth_date_parts"`
	Consent             bool                      `json:"consent"`
	CanConfirm          bool                      `json:"can_confirm"`
	Loading             bool                      `json:"loading"`
	PostalSearchLoading bool                      `json:"postal_search_loading"`
	Summary             []entity.SummaryItem      `json:"summary,omitempty"`
	FieldErrors         map[string]string         `json:"field_errors,omitempty"`
	LastError           string                    `json:"last_error,omitempty"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

type StartFormResponse struct {
	Session   *FormSessionResponse `json:"session"`
	Token     string               `json:"token"`
	ExpiresIn int64                `json:"expires_in"`
}
