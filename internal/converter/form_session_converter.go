package converter

import (
	"member-intake/internal/delivery/dto"
	"member-intake/internal/domain/entity"
	"member-intake/pkg/fieldcodec"
)

// FormSessionToResponse converts a FormSession to the view returned to clients,
// including the split display segments of the composite fields.
func FormSessionToResponse(session *entity.FormSession) *dto.FormSessionResponse {
	if session == nil {
		return nil
	}

	return &dto.FormSessionResponse{
		ID:                  session.ID,
		State:               session.State,
		Values:              session.Values,
		PhoneParts:          fieldcodec.SplitPhoneNumber(entity.StringValue(session.Values.PhoneNumber)),
		PostalParts:         fieldcodec.SplitPostalCode(entity.StringValue(session.Values.PostalCode)),
		BirthDateParts:      session.BirthDateParts,
		Consent:             session.Consent,
		CanConfirm:          session.CanConfirm(),
		Loading:             session.Loading,
		PostalSearchLoading: session.PostalSearchLoading,
		Summary:             session.Summary,
		FieldErrors:         session.FieldErrors,
		LastError:           session.LastError,
		UpdatedAt:           session.UpdatedAt,
	}
}
