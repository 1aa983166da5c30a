package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// MemberPayload is the body sent to the member endpoint. Flags are rendered as
// "あり"/"なし" and age is recomputed at send time.
type MemberPayload struct {
	ID            string `json:"id,omitempty"`
	LastName      string `json:"last_name"`
	FirstName     string `json:"first_name"`
	LastNameKana  string `json:"last_name_kana,omitempty"`
	FirstNameKana string `json:"first_name_kana,omitempty"`

	BirthDate string `json:"birth_date,omitempty"`
	Age       *int   `json:"age,omitempty"`

	PhoneNumber string `json:"phone_number,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	Address1    string `json:"address_1,omitempty"`
	Address2    string `json:"address_2,omitempty"`

	InsuranceType      string `json:"insurance_type,omitempty"`
	EmploymentStatus   string `json:"employment_status,omitempty"`
	LivingStatus       string `json:"living_status,omitempty"`
	DisabilityHandbook string `json:"disability_handbook,omitempty"`
	MaritalStatus      string `json:"marital_status,omitempty"`

	HospitalVisitHistory string `json:"hospital_visit_history"`
	IsOnWelfare          string `json:"is_on_welfare"`
	PastWelfareUsage     string `json:"past_welfare_usage"`

	Symptoms     string `json:"symptoms,omitempty"`
	HospitalName string `json:"hospital_name,omitempty"`
	Occupation   string `json:"occupation,omitempty"`
	Workplace    string `json:"workplace,omitempty"`
	Background   string `json:"background,omitempty"`
	Involvement  string `json:"involvement,omitempty"`
	RawData      string `json:"raw_data"`

	AnnualIncome json.Number `json:"annual_income,omitempty"`
}

// PostalLookupResponse is the address search reply. Older deployments spell the
// address keys differently, so every known spelling is accepted.
type PostalLookupResponse struct {
	OK              Truthy  `json:"ok"`
	Address1        *string `json:"address_1"`
	Address2        *string `json:"address_2"`
	Address1Compact *string `json:"address1"`
	Address2Compact *string `json:"address2"`
	Address         *string `json:"address"`
	Error           string  `json:"error"`
}

// Truthy decodes any JSON value by its truthiness: false, null, 0 and "" are
// false, everything else is true.
type Truthy bool

func (t *Truthy) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		*t = false
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = s != ""
	case data[0] == '{' || data[0] == '[':
		*t = true
	case bytes.Equal(data, []byte("true")):
		*t = true
	case bytes.Equal(data, []byte("false")), bytes.Equal(data, []byte("null")):
		*t = false
	default:
		f, _ := strconv.ParseFloat(string(data), 64)
		*t = f != 0
	}
	return nil
}
