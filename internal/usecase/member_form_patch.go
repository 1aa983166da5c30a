package usecase

import (
	"time"

	"member-intake/internal/delivery/dto"
	"member-intake/internal/domain/entity"
	"member-intake/internal/schema"
	"member-intake/pkg/fieldcodec"
)

type textField struct {
	name   string
	value  *string
	target **string
}

type labelField struct {
	name   string
	value  *string
	target **string
	valid  func(string) bool
}

type flagField struct {
	name   string
	value  *bool
	target **bool
}

// applyFormPatch writes the edits of patch into the session value-bag. Errors of
// touched fields are cleared; categorical values outside their label set are
// stored as absent and flagged with a field error.
func applyFormPatch(session *entity.FormSession, patch *dto.MemberFormPatch, now time.Time) {
	values := &session.Values
	touched := make([]string, 0)
	rejected := make(map[string]string)

	if patch.LastName != nil {
		values.LastName = *patch.LastName
		touched = append(touched, "last_name")
	}
	if patch.FirstName != nil {
		values.FirstName = *patch.FirstName
		touched = append(touched, "first_name")
	}

	texts := []textField{
		{"id", patch.ID, &values.ID},
		{"last_name_kana", patch.LastNameKana, &values.LastNameKana},
		{"first_name_kana", patch.FirstNameKana, &values.FirstNameKana},
		{"address_1", patch.Address1, &values.Address1},
		{"address_2", patch.Address2, &values.Address2},
		{"symptoms", patch.Symptoms, &values.Symptoms},
		{"hospital_name", patch.HospitalName, &values.HospitalName},
		{"occupation", patch.Occupation, &values.Occupation},
		{"workplace", patch.Workplace, &values.Workplace},
		{"background", patch.Background, &values.Background},
		{"involvement", patch.Involvement, &values.Involvement},
	}
	for _, f := range texts {
		if f.value == nil {
			continue
		}
		*f.target = optional(*f.value)
		touched = append(touched, f.name)
	}

	labels := []labelField{
		{"insurance_type", patch.InsuranceType, &values.InsuranceType, labelCheck(entity.InsuranceTypes)},
		{"employment_status", patch.EmploymentStatus, &values.EmploymentStatus, labelCheck(entity.EmploymentStatuses)},
		{"living_status", patch.LivingStatus, &values.LivingStatus, labelCheck(entity.LivingStatuses)},
		{"disability_handbook", patch.DisabilityHandbook, &values.DisabilityHandbook, labelCheck(entity.DisabilityHandbooks)},
		{"marital_status", patch.MaritalStatus, &values.MaritalStatus, labelCheck(entity.MaritalStatuses)},
	}
	for _, f := range labels {
		if f.value == nil {
			continue
		}
		touched = append(touched, f.name)
		if *f.value != "" && !f.valid(*f.value) {
			*f.target = nil
			rejected[f.name] = schema.LabelMessage
			continue
		}
		*f.target = optional(*f.value)
	}

	flags := []flagField{
		{"hospital_visit_history", patch.HospitalVisitHistory, &values.HospitalVisitHistory},
		{"is_on_welfare", patch.IsOnWelfare, &values.IsOnWelfare},
		{"past_welfare_usage", patch.PastWelfareUsage, &values.PastWelfareUsage},
	}
	for _, f := range flags {
		if f.value == nil {
			continue
		}
		flag := *f.value
		*f.target = &flag
		touched = append(touched, f.name)
	}

	switch {
	case patch.BirthDateParts != nil:
		merged, parts := fieldcodec.MergeBirthDate(*patch.BirthDateParts)
		session.BirthDateParts = parts
		values.BirthDate = optional(merged)
		touched = append(touched, "birth_date", "age")
		deriveAge(values, now)
	case patch.BirthDate != nil:
		values.BirthDate = optional(*patch.BirthDate)
		session.BirthDateParts = fieldcodec.SplitBirthDate(*patch.BirthDate)
		touched = append(touched, "birth_date", "age")
		deriveAge(values, now)
	}

	switch {
	case patch.PhoneParts != nil:
		values.PhoneNumber = optional(fieldcodec.MergePhoneNumber(patch.PhoneParts[0], patch.PhoneParts[1], patch.PhoneParts[2]))
		touched = append(touched, "phone_number")
	case patch.PhoneNumber != nil:
		parts := fieldcodec.SplitPhoneNumber(*patch.PhoneNumber)
		values.PhoneNumber = optional(fieldcodec.MergePhoneNumber(parts[0], parts[1], parts[2]))
		touched = append(touched, "phone_number")
	}

	switch {
	case patch.PostalParts != nil:
		values.PostalCode = optional(fieldcodec.MergePostalCode(patch.PostalParts[0], patch.PostalParts[1]))
		touched = append(touched, "postal_code")
	case patch.PostalCode != nil:
		parts := fieldcodec.SplitPostalCode(*patch.PostalCode)
		values.PostalCode = optional(fieldcodec.MergePostalCode(parts[0], parts[1]))
		touched = append(touched, "postal_code")
	}

	if patch.AnnualIncome != nil {
		values.AnnualIncome = fieldcodec.ParseOptionalNumber(string(*patch.AnnualIncome))
		touched = append(touched, "annual_income")
	}

	for _, name := range touched {
		delete(session.FieldErrors, name)
	}
	for name, message := range rejected {
		if session.FieldErrors == nil {
			session.FieldErrors = make(map[string]string)
		}
		session.FieldErrors[name] = message
	}
	if len(session.FieldErrors) == 0 {
		session.FieldErrors = nil
	}
	session.UpdatedAt = now
}

// deriveAge recomputes age from the birth date; it is absent when not computable.
func deriveAge(values *entity.MemberForm, now time.Time) {
	age, ok := fieldcodec.CalculateAge(entity.StringValue(values.BirthDate), now)
	if !ok {
		values.Age = nil
		return
	}
	values.Age = &age
}

func labelCheck[T ~string](labels []T) func(string) bool {
	return func(value string) bool {
		return entity.IsLabel(value, labels)
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
