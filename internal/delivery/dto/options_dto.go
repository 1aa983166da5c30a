package dto

// Option is one selectable value of a select field.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type FormOptionsResponse struct {
	InsuranceTypes      []Option `json:"insurance_type"`
	EmploymentStatuses  []Option `json:"employment_status"`
	LivingStatuses      []Option `json:"living_status"`
	DisabilityHandbooks []Option `json:"disability_handbook"`
	MaritalStatuses     []Option `json:"marital_status"`
	BirthYears          []string `json:"birth_years"`
	BirthMonths         []string `json:"birth_months"`
	BirthDays           []string `json:"birth_days"`
}
