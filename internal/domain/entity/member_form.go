package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MemberForm is the value-bag edited on the intake form. Fields hold what the
// user entered; the validation tags describe the member schema.
type MemberForm struct {
	ID            *string `json:"id,omitempty" validate:"omitempty,uuid"`
	LastName      string  `json:"last_name" validate:"notblank"`
	FirstName     string  `json:"first_name" validate:"notblank"`
	LastNameKana  *string `json:"last_name_kana,omitempty"`
	FirstNameKana *string `json:"first_name_kana,omitempty"`

	BirthDate *string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Age       *int    `json:"age,omitempty" validate:"omitempty,gte=0"`

	PhoneNumber *string `json:"phone_number,omitempty"`
	PostalCode  *string `json:"postal_code,omitempty"`
	Address1    *string `json:"address_1,omitempty"`
	Address2    *string `json:"address_2,omitempty"`

	InsuranceType      *string `json:"insurance_type,omitempty" validate:"omitempty,insurance_type"`
	EmploymentStatus   *string `json:"employment_status,omitempty" validate:"omitempty,employment_status"`
	LivingStatus       *string `json:"living_status,omitempty" validate:"omitempty,living_status"`
	DisabilityHandbook *string `json:"disability_handbook,omitempty" validate:"omitempty,disability_handbook"`
	MaritalStatus      *string `json:"marital_status,omitempty" validate:"omitempty,marital_status"`

	HospitalVisitHistory *bool `json:"hospital_visit_history,omitempty"`
	IsOnWelfare          *bool `json:"is_on_welfare,omitempty"`
	PastWelfareUsage     *bool `json:"past_welfare_usage,omitempty"`

	Symptoms     *string `json:"symptoms,omitempty"`
	HospitalName *string `json:"hospital_name,omitempty"`
	Occupation   *string `json:"occupation,omitempty"`
	Workplace    *string `json:"workplace,omitempty"`
	Background   *string `json:"background,omitempty"`
	Involvement  *string `json:"involvement,omitempty"`
	RawData      *string `json:"raw_data,omitempty"`

	AnnualIncome *decimal.Decimal `json:"annual_income,omitempty" validate:"omitempty,gte=0"`
}

// Normalize returns a copy in which empty optional strings are absent.
// The receiver is left untouched.
func (f MemberForm) Normalize() MemberForm {
	for _, field := range f.optionalStrings() {
		*field = emptyToNil(*field)
	}
	return f
}

func (f *MemberForm) optionalStrings() []**string {
	return []**string{
		&f.ID, &f.LastNameKana, &f.FirstNameKana, &f.BirthDate,
		&f.PhoneNumber, &f.PostalCode, &f.Address1, &f.Address2,
		&f.InsuranceType, &f.EmploymentStatus, &f.LivingStatus, &f.DisabilityHandbook, &f.MaritalStatus,
		&f.Symptoms, &f.HospitalName, &f.Occupation, &f.Workplace, &f.Background, &f.Involvement, &f.RawData,
	}
}

// HasRequiredNames reports whether both name fields are non-empty after trimming.
func (f MemberForm) HasRequiredNames() bool {
	return strings.TrimSpace(f.LastName) != "" && strings.TrimSpace(f.FirstName) != ""
}

func emptyToNil(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	return value
}

// StringValue dereferences an optional string; absent reads as "".
func StringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
