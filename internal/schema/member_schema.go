// Package schema holds the member validation rules: which fields are required,
// their formats and label sets, and the messages shown when a rule fails.
package schema

import (
	"reflect"

	"member-intake/internal/domain/entity"
	"member-intake/pkg/validator"

	playground "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LabelMessage is reported when a categorical value is not one of its labels.
const LabelMessage = "選択肢から選択してください"

// FieldErrors maps a JSON field name to the message of its first failing rule.
type FieldErrors map[string]string

type MemberSchema struct {
	validator *validator.CustomValidator
}

func NewMemberSchema(v *validator.CustomValidator) (*MemberSchema, error) {
	labelRules := map[string][]string{
		"insurance_type":      entity.Labels(entity.InsuranceTypes),
		"employment_status":   entity.Labels(entity.EmploymentStatuses),
		"living_status":       entity.Labels(entity.LivingStatuses),
		"disability_handbook": entity.Labels(entity.DisabilityHandbooks),
		"marital_status":      entity.Labels(entity.MaritalStatuses),
	}
	for tag, labels := range labelRules {
		if err := v.RegisterValidation(tag, labelRule(labels), LabelMessage); err != nil {
			return nil, err
		}
	}

	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	return &MemberSchema{validator: v}, nil
}

// Validate checks the whole form. Empty optional values are treated as absent
// before any rule runs. The form is not modified.
func (s *MemberSchema) Validate(form entity.MemberForm) (*entity.Member, FieldErrors) {
	normalized := form.Normalize()
	if err := s.validator.Validate(&normalized); err != nil {
		fieldErrors := s.validator.FormatValidationErrors(err)
		if len(fieldErrors) == 0 {
			fieldErrors = map[string]string{"form": err.Error()}
		}
		return nil, fieldErrors
	}
	return toMember(normalized), nil
}

func labelRule(labels []string) playground.Func {
	return func(fl playground.FieldLevel) bool {
		return entity.IsLabel(fl.Field().String(), labels)
	}
}

func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return nil
}

func toMember(form entity.MemberForm) *entity.Member {
	member := &entity.Member{
		LastName:             form.LastName,
		FirstName:            form.FirstName,
		LastNameKana:         form.LastNameKana,
		FirstNameKana:        form.FirstNameKana,
		BirthDate:            form.BirthDate,
		Age:                  form.Age,
		PhoneNumber:          form.PhoneNumber,
		PostalCode:           form.PostalCode,
		Address1:             form.Address1,
		Address2:             form.Address2,
		InsuranceType:        label[entity.InsuranceType](form.InsuranceType),
		EmploymentStatus:     label[entity.EmploymentStatus](form.EmploymentStatus),
		LivingStatus:         label[entity.LivingStatus](form.LivingStatus),
		DisabilityHandbook:   label[entity.DisabilityHandbook](form.DisabilityHandbook),
		MaritalStatus:        label[entity.MaritalStatus](form.MaritalStatus),
		HospitalVisitHistory: form.HospitalVisitHistory,
		IsOnWelfare:          form.IsOnWelfare,
		PastWelfareUsage:     form.PastWelfareUsage,
		Symptoms:             form.Symptoms,
		HospitalName:         form.HospitalName,
		Occupation:           form.Occupation,
		Workplace:            form.Workplace,
		Background:           form.Background,
		Involvement:          form.Involvement,
		RawData:              form.RawData,
		AnnualIncome:         form.AnnualIncome,
	}

	if form.ID != nil {
		// already checked by the uuid rule
		id := uuid.MustParse(*form.ID)
		member.ID = &id
	}

	return member
}

func label[T ~string](value *string) *T {
	if value == nil {
		return nil
	}
	v := T(*value)
	return &v
}
