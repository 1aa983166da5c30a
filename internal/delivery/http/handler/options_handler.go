package handler

import (
	"errors"
	"net/http"

	"member-intake/internal/usecase"
	"member-intake/pkg/response"
)

type OptionsHandler struct {
	optionsUsecase usecase.OptionsUsecase
}

func NewOptionsHandler(optionsUsecase usecase.OptionsUsecase) *OptionsHandler {
	return &OptionsHandler{
		optionsUsecase: optionsUsecase,
	}
}

// GetOptions returns the select options of the form
// @Summary Get form options
// @Tags Options
// @Produce json
// @Param year query string false "Birth year, narrows the day list"
// @Param month query string false "Birth month (01-12), narrows the day list"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /options [get]
func (h *OptionsHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	options, err := h.optionsUsecase.GetFormOptions(query.Get("year"), query.Get("month"))
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidMonth) {
			response.Error(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		response.InternalServerError(w, "Failed to get options")
		return
	}

	response.Success(w, http.StatusOK, "Options retrieved successfully", options)
}
