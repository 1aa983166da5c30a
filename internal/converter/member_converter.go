package converter

import (
	"encoding/json"
	"strings"
	"time"

	"member-intake/internal/delivery/dto"
	"member-intake/internal/domain/entity"
	"member-intake/pkg/fieldcodec"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// RawDataMarker is attached to every submitted record.
const RawDataMarker = "{}"

var summaryPrinter = message.NewPrinter(language.Japanese)

// MemberToPayload converts a validated Member to the member endpoint payload.
// Age is recomputed from the birth date at now; a stored age is never sent.
func MemberToPayload(member *entity.Member, now time.Time) *dto.MemberPayload {
	if member == nil {
		return nil
	}

	payload := &dto.MemberPayload{
		LastName:             member.LastName,
		FirstName:            member.FirstName,
		LastNameKana:         entity.StringValue(member.LastNameKana),
		FirstNameKana:        entity.StringValue(member.FirstNameKana),
		BirthDate:            entity.StringValue(member.BirthDate),
		PhoneNumber:          entity.StringValue(member.PhoneNumber),
		PostalCode:           entity.StringValue(member.PostalCode),
		Address1:             entity.StringValue(member.Address1),
		Address2:             entity.StringValue(member.Address2),
		InsuranceType:        labelValue(member.InsuranceType),
		EmploymentStatus:     labelValue(member.EmploymentStatus),
		LivingStatus:         labelValue(member.LivingStatus),
		DisabilityHandbook:   labelValue(member.DisabilityHandbook),
		MaritalStatus:        labelValue(member.MaritalStatus),
		HospitalVisitHistory: entity.FlagLabel(member.HospitalVisitHistory),
		IsOnWelfare:          entity.FlagLabel(member.IsOnWelfare),
		PastWelfareUsage:     entity.FlagLabel(member.PastWelfareUsage),
		Symptoms:             entity.StringValue(member.Symptoms),
		HospitalName:         entity.StringValue(member.HospitalName),
		Occupation:           entity.StringValue(member.Occupation),
		Workplace:            entity.StringValue(member.Workplace),
		Background:           entity.StringValue(member.Background),
		Involvement:          entity.StringValue(member.Involvement),
		RawData:              RawDataMarker,
	}

	if member.ID != nil {
		payload.ID = member.ID.String()
	}
	if member.BirthDate != nil {
		if age, ok := fieldcodec.CalculateAge(*member.BirthDate, now); ok {
			payload.Age = &age
		}
	}
	if member.AnnualIncome != nil {
		payload.AnnualIncome = json.Number(member.AnnualIncome.String())
	}

	return payload
}

// MemberToSummary renders the read-only confirmation summary.
func MemberToSummary(member *entity.Member) []entity.SummaryItem {
	if member == nil {
		return nil
	}

	return []entity.SummaryItem{
		{Label: "氏名", Value: joinName(member.LastName, member.FirstName)},
		{Label: "ふりがな", Value: joinName(entity.StringValue(member.LastNameKana), entity.StringValue(member.FirstNameKana))},
		{Label: "生年月日", Value: entity.StringValue(member.BirthDate)},
		{Label: "電話番号", Value: entity.StringValue(member.PhoneNumber)},
		{Label: "郵便番号", Value: entity.StringValue(member.PostalCode)},
		{Label: "住所A", Value: entity.StringValue(member.Address1)},
		{Label: "住所B", Value: entity.StringValue(member.Address2)},
		{Label: "保険証", Value: labelValue(member.InsuranceType)},
		{Label: "雇用形態", Value: labelValue(member.EmploymentStatus)},
		{Label: "暮らし", Value: labelValue(member.LivingStatus)},
		{Label: "通院歴", Value: entity.FlagLabel(member.HospitalVisitHistory)},
		{Label: "障害者手帳", Value: labelValue(member.DisabilityHandbook)},
		{Label: "症状", Value: entity.StringValue(member.Symptoms)},
		{Label: "病院名", Value: entity.StringValue(member.HospitalName)},
		{Label: "職業", Value: entity.StringValue(member.Occupation)},
		{Label: "職場", Value: entity.StringValue(member.Workplace)},
		{Label: "既婚 / 未婚", Value: labelValue(member.MaritalStatus)},
		{Label: "昨年度年収", Value: formatAmount(member.AnnualIncome)},
		{Label: "生活保護", Value: entity.FlagLabel(member.IsOnWelfare)},
		{Label: "過去の福祉利用", Value: entity.FlagLabel(member.PastWelfareUsage)},
		{Label: "経緯", Value: entity.StringValue(member.Background)},
		{Label: "関わり", Value: entity.StringValue(member.Involvement)},
	}
}

// LabelsToOptions builds select options, led by the "未選択" (not selected) entry.
func LabelsToOptions(labels []string) []dto.Option {
	options := make([]dto.Option, 0, len(labels)+1)
	options = append(options, dto.Option{Label: "未選択", Value: ""})
	for _, label := range labels {
		options = append(options, dto.Option{Label: label, Value: label})
	}
	return options
}

func joinName(last, first string) string {
	return strings.TrimSpace(last + " " + first)
}

func labelValue[T ~string](value *T) string {
	if value == nil {
		return ""
	}
	return string(*value)
}

func formatAmount(value *decimal.Decimal) string {
	if value == nil {
		return ""
	}
	return summaryPrinter.Sprintf("%v", number.Decimal(value.InexactFloat64()))
}
