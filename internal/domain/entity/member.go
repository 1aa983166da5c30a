package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Member is a validated member record, ready to be sent to the member endpoint.
// Optional fields are nil when absent.
type Member struct {
	ID            *uuid.UUID `json:"id,omitempty"`
	LastName      string     `json:"last_name"`
	FirstName     string     `json:"first_name"`
	LastNameKana  *string    `json:"last_name_kana,omitempty"`
	FirstNameKana *string    `json:"first_name_kana,omitempty"`

	BirthDate *string `json:"birth_date,omitempty"`
	Age       *int    `json:"age,omitempty"`

	PhoneNumber *string `json:"phone_number,omitempty"`
	PostalCode  *string `json:"postal_code,omitempty"`
	Address1    *string `json:"address_1,omitempty"`
	Address2    *string `json:"address_2,omitempty"`

	InsuranceType      *InsuranceType      `json:"insurance_type,omitempty"`
	EmploymentStatus   *EmploymentStatus   `json:"employment_status,omitempty"`
	LivingStatus       *LivingStatus       `json:"living_status,omitempty"`
	DisabilityHandbook *DisabilityHandbook `json:"disability_handbook,omitempty"`
	MaritalStatus      *MaritalStatus      `json:"marital_status,omitempty"`

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

	AnnualIncome *decimal.Decimal `json:"annual_income,omitempty"`
}

// InsuranceType is the kind of health insurance card held.
type InsuranceType string

const (
	InsuranceNational InsuranceType = "国保"
	InsuranceSocial   InsuranceType = "社保"
	InsuranceNone     InsuranceType = "なし"
)

// InsuranceTypes lists the accepted insurance labels in display order.
var InsuranceTypes = []InsuranceType{InsuranceNational, InsuranceSocial, InsuranceNone}

// EmploymentStatus is the member's form of employment.
type EmploymentStatus string

const (
	EmploymentFullTime     EmploymentStatus = "正社員"
	EmploymentSelfEmployed EmploymentStatus = "個人事業主"
	EmploymentFreelance    EmploymentStatus = "フリーター"
	EmploymentWelfare      EmploymentStatus = "生活保護等"
)

var EmploymentStatuses = []EmploymentStatus{EmploymentFullTime, EmploymentSelfEmployed, EmploymentFreelance, EmploymentWelfare}

// LivingStatus describes who the member lives with.
type LivingStatus string

const (
	LivingAlone       LivingStatus = "単身"
	LivingShareHouse  LivingStatus = "シェアハウス"
	LivingWithParents LivingStatus = "実家"
	LivingWithPartner LivingStatus = "同棲など"
)

var LivingStatuses = []LivingStatus{LivingAlone, LivingShareHouse, LivingWithParents, LivingWithPartner}

// DisabilityHandbook is the kind of disability certificate held.
type DisabilityHandbook string

const (
	DisabilityHandbookMental DisabilityHandbook = "精神"
	DisabilityHandbookNone   DisabilityHandbook = "なし"
)

var DisabilityHandbooks = []DisabilityHandbook{DisabilityHandbookMental, DisabilityHandbookNone}

// MaritalStatus is married or not.
type MaritalStatus string

const (
	MaritalMarried   MaritalStatus = "既婚"
	MaritalUnmarried MaritalStatus = "未婚"
)

var MaritalStatuses = []MaritalStatus{MaritalMarried, MaritalUnmarried}

// Flag labels used on the wire and in the confirmation summary.
const (
	FlagPresent = "あり"
	FlagAbsent  = "なし"
)

// FlagLabel renders a tri-state flag; absent reads as "なし".
func FlagLabel(value *bool) string {
	if value != nil && *value {
		return FlagPresent
	}
	return FlagAbsent
}

// IsLabel reports whether value is one of labels.
func IsLabel[T ~string](value string, labels []T) bool {
	for _, label := range labels {
		if string(label) == value {
			return true
		}
	}
	return false
}

// Labels returns the label set as plain strings.
func Labels[T ~string](labels []T) []string {
	values := make([]string, len(labels))
	for i, label := range labels {
		values[i] = string(label)
	}
	return values
}
