package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"member-intake/internal/delivery/dto"
	"member-intake/internal/domain/entity"
	"member-intake/internal/domain/gateway"
	"member-intake/internal/domain/repository"
	"member-intake/internal/usecase"
	"member-intake/pkg/response"
	"member-intake/pkg/validator"
)

type MemberFormHandler struct {
	memberFormUsecase usecase.MemberFormUsecase
	validator         *validator.CustomValidator
}

func NewMemberFormHandler(memberFormUsecase usecase.MemberFormUsecase, validator *validator.CustomValidator) *MemberFormHandler {
	return &MemberFormHandler{
		memberFormUsecase: memberFormUsecase,
		validator:         validator,
	}
}

// StartForm opens a new form session
// @Summary Start a form session
// @Tags Forms
// @Produce json
// @Success 201 {object} response.Response
// @Router /forms [post]
func (h *MemberFormHandler) StartForm(w http.ResponseWriter, r *http.Request) {
	started, err := h.memberFormUsecase.Start(r.Context())
	if err != nil {
		response.InternalServerError(w, "Failed to start form session")
		return
	}

	response.Success(w, http.StatusCreated, "Form session started", started)
}

// GetForm returns the current form session
// @Summary Get the current form session
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /forms/current [get]
func (h *MemberFormHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	view, err := h.memberFormUsecase.Get(r.Context())
	if err != nil {
		writeFormError(w, err, nil)
		return
	}

	response.Success(w, http.StatusOK, "Form session retrieved successfully", view)
}

// UpdateFields applies field edits
// @Summary Update form fields
// @Tags Forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.MemberFormPatch true "Field edits"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /forms/current/fields [patch]
func (h *MemberFormHandler) UpdateFields(w http.ResponseWriter, r *http.Request) {
	var req dto.MemberFormPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	view, err := h.memberFormUsecase.SetFields(r.Context(), &req)
	if err != nil {
		writeFormError(w, err, view)
		return
	}

	response.Success(w, http.StatusOK, "Form fields updated", view)
}

// SetConsent records the privacy consent
// @Summary Set privacy consent
// @Tags Forms
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.ConsentRequest true "Consent"
// @Success 200 {object} response.Response
// @Router /forms/current/consent [put]
func (h *MemberFormHandler) SetConsent(w http.ResponseWriter, r *http.Request) {
	var req dto.ConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	view, err := h.memberFormUsecase.SetConsent(r.Context(), *req.Agreed)
	if err != nil {
		writeFormError(w, err, view)
		return
	}

	response.Success(w, http.StatusOK, "Consent updated", view)
}

// SearchPostalCode fills the address from the entered postal code
// @Summary Look up the address of the postal code
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /forms/current/postal-search [post]
func (h *MemberFormHandler) SearchPostalCode(w http.ResponseWriter, r *http.Request) {
	view, err := h.memberFormUsecase.SearchPostalCode(r.Context())
	if err != nil {
		writeFormError(w, err, view)
		return
	}

	response.Success(w, http.StatusOK, "Address found", view)
}

// Confirm validates the form and moves to the confirmation step
// @Summary Confirm the form
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /forms/current/confirm [post]
func (h *MemberFormHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	view, err := h.memberFormUsecase.Confirm(r.Context())
	if err != nil {
		writeFormError(w, err, view)
		return
	}

	response.Success(w, http.StatusOK, "Form confirmed", view)
}

// GoBack returns to editing
// @Summary Return to editing
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /forms/current/back [post]
func (h *MemberFormHandler) GoBack(w http.ResponseWriter, r *http.Request) {
	view, err := h.memberFormUsecase.GoBack(r.Context())
	if err != nil {
		writeFormError(w, err, view)
		return
	}

	response.Success(w, http.StatusOK, "Returned to editing", view)
}

// Submit sends the confirmed form
// @Summary Submit the confirmed form
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 502 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /forms/current/submit [post]
func (h *MemberFormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	view, err := h.memberFormUsecase.Submit(r.Context())
	if err != nil {
		writeFormError(w, err, view)
		return
	}

	response.Success(w, http.StatusOK, "送信しました。", view)
}

// Abandon discards the input and starts over
// @Summary Abandon the form
// @Tags Forms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /forms/current [delete]
func (h *MemberFormHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	view, err := h.memberFormUsecase.Abandon(r.Context())
	if err != nil {
		writeFormError(w, err, view)
		return
	}

	response.Success(w, http.StatusOK, "Form reset", view)
}

// writeFormError maps a form operation error to a status code. The session
// view, when present, is returned alongside so clients can render it.
func writeFormError(w http.ResponseWriter, err error, view *dto.FormSessionResponse) {
	var validationErr *usecase.ValidationError
	if errors.As(err, &validationErr) {
		response.ErrorWithData(w, http.StatusUnprocessableEntity, validationErr.Error(), validationErr.FieldErrors, view)
		return
	}

	var lookupErr *gateway.LookupError
	if errors.As(err, &lookupErr) {
		response.ErrorWithData(w, http.StatusBadGateway, lookupErr.Message, nil, view)
		return
	}

	var status int
	switch {
	case errors.Is(err, usecase.ErrSessionRequired):
		response.Unauthorized(w, "Form session token is required")
		return
	case errors.Is(err, repository.ErrSessionNotFound):
		response.NotFound(w, "Form session not found")
		return
	case errors.Is(err, entity.ErrConsentRequired),
		errors.Is(err, entity.ErrRequiredNamesMissing),
		errors.Is(err, gateway.ErrInvalidPostalCode):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrOperationInProgress),
		errors.Is(err, entity.ErrFormLocked),
		errors.Is(err, entity.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, gateway.ErrAddressNotFound):
		status = http.StatusNotFound
	case errors.Is(err, gateway.ErrSubmissionFailed),
		errors.Is(err, gateway.ErrPostalLookupFailed):
		status = http.StatusBadGateway
	case errors.Is(err, gateway.ErrEndpointNotConfigured):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}

	response.ErrorWithData(w, status, usecase.UserMessage(err), nil, view)
}
