package entity

import (
	"errors"
	"time"

	"member-intake/pkg/fieldcodec"

	"github.com/google/uuid"
)

// FormState is the step of the intake flow a session is in.
type FormState string

const (
	FormStateEditing    FormState = "editing"
	FormStateConfirming FormState = "confirming"
	FormStateSubmitting FormState = "submitting"
	FormStateCompleted  FormState = "completed"
)

var (
	ErrConsentRequired      = errors.New("個人情報の取り扱いに同意してください。")
	ErrRequiredNamesMissing = errors.New("姓と名を入力してください。")
	ErrOperationInProgress  = errors.New("処理中です。しばらくお待ちください。")
	ErrFormLocked           = errors.New("確認画面では入力内容を変更できません。")
	ErrInvalidTransition    = errors.New("この操作は現在の画面では実行できません。")
	ErrExchangeInterrupted  = errors.New("前回の処理が完了しませんでした。もう一度お試しください。")
)

// SummaryItem is one labelled line of the read-only confirmation summary.
type SummaryItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FormSession is the state of one user's pass through the intake form.
// Sessions are never shared; all transitions go through its methods.
type FormSession struct {
	ID             uuid.UUID                 `json:"id"`
	State          FormState                 `json:"state"`
	Values         MemberForm                `json:"values"`
	BirthDateParts fieldcodec.BirthDateParts `json:"birth_date_parts"`
	Consent        bool                      `json:"consent"`

	Loading             bool       `json:"loading"`
	PostalSearchLoading bool       `json:"postal_search_loading"`
	BusySince           *time.Time `json:"busy_since,omitempty"`

	Summary     []SummaryItem     `json:"summary,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	LastError   string            `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFormSession creates an empty session in the editing state.
func NewFormSession(id uuid.UUID, now time.Time) *FormSession {
	return &FormSession{
		ID:        id,
		State:     FormStateEditing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *FormSession) busy() bool {
	return s.Loading || s.PostalSearchLoading
}

// EnsureEditable returns ErrFormLocked unless field values may be changed.
func (s *FormSession) EnsureEditable() error {
	if s.State != FormStateEditing {
		return ErrFormLocked
	}
	return nil
}

// SetConsent records the privacy consent checkbox.
func (s *FormSession) SetConsent(agreed bool, now time.Time) error {
	if err := s.EnsureEditable(); err != nil {
		return err
	}
	s.Consent = agreed
	s.UpdatedAt = now
	return nil
}

// CheckConfirm reports why the session cannot move to the confirmation step, or nil.
func (s *FormSession) CheckConfirm() error {
	switch {
	case s.State != FormStateEditing:
		return ErrInvalidTransition
	case s.busy():
		return ErrOperationInProgress
	case !s.Consent:
		return ErrConsentRequired
	case !s.Values.HasRequiredNames():
		return ErrRequiredNamesMissing
	}
	return nil
}

// CanConfirm is CheckConfirm as a boolean, used to enable the confirm control.
func (s *FormSession) CanConfirm() bool {
	return s.CheckConfirm() == nil
}

// Confirm freezes the summary and moves to the confirmation step.
func (s *FormSession) Confirm(summary []SummaryItem, now time.Time) error {
	if err := s.CheckConfirm(); err != nil {
		return err
	}
	s.State = FormStateConfirming
	s.Summary = summary
	s.FieldErrors = nil
	s.LastError = ""
	s.UpdatedAt = now
	return nil
}

// RejectConfirm keeps the session editing and records the field errors found.
func (s *FormSession) RejectConfirm(fieldErrors map[string]string, now time.Time) {
	s.FieldErrors = fieldErrors
	s.UpdatedAt = now
}

// GoBack returns from the confirmation step to editing, keeping every value.
func (s *FormSession) GoBack(now time.Time) error {
	if s.State != FormStateConfirming {
		return ErrInvalidTransition
	}
	if s.Loading {
		return ErrOperationInProgress
	}
	s.State = FormStateEditing
	s.Summary = nil
	s.LastError = ""
	s.UpdatedAt = now
	return nil
}

// BeginSubmit marks the final confirmation as in flight.
func (s *FormSession) BeginSubmit(now time.Time) error {
	if s.State != FormStateConfirming {
		return ErrInvalidTransition
	}
	if s.Loading {
		return ErrOperationInProgress
	}
	s.State = FormStateSubmitting
	s.Loading = true
	s.BusySince = &now
	s.LastError = ""
	s.UpdatedAt = now
	return nil
}

// FailSubmit returns to the confirmation step with the error surfaced and input kept.
func (s *FormSession) FailSubmit(message string, fieldErrors map[string]string, now time.Time) {
	s.State = FormStateConfirming
	s.Loading = false
	s.BusySince = nil
	s.LastError = message
	s.FieldErrors = fieldErrors
	s.UpdatedAt = now
}

// CompleteSubmit clears the value-bag and consent after a successful submission.
func (s *FormSession) CompleteSubmit(now time.Time) {
	s.clear()
	s.State = FormStateCompleted
	s.UpdatedAt = now
}

// Reset discards all input and starts over in the editing state.
func (s *FormSession) Reset(now time.Time) error {
	if s.busy() {
		return ErrOperationInProgress
	}
	s.clear()
	s.State = FormStateEditing
	s.UpdatedAt = now
	return nil
}

func (s *FormSession) clear() {
	s.Values = MemberForm{}
	s.BirthDateParts = fieldcodec.BirthDateParts{}
	s.Consent = false
	s.Loading = false
	s.PostalSearchLoading = false
	s.BusySince = nil
	s.Summary = nil
	s.FieldErrors = nil
	s.LastError = ""
}

// BeginPostalSearch marks an address lookup as in flight.
func (s *FormSession) BeginPostalSearch(now time.Time) error {
	if err := s.EnsureEditable(); err != nil {
		return err
	}
	if s.busy() {
		return ErrOperationInProgress
	}
	s.PostalSearchLoading = true
	s.BusySince = &now
	s.LastError = ""
	s.UpdatedAt = now
	return nil
}

// EndPostalSearch clears the lookup flag. On success both address fields are
// replaced; on failure the message is surfaced and the address is unchanged.
func (s *FormSession) EndPostalSearch(address *Address, message string, now time.Time) {
	s.PostalSearchLoading = false
	s.BusySince = nil
	if address != nil {
		s.Values.Address1 = &address.Line1
		s.Values.Address2 = &address.Line2
		delete(s.FieldErrors, "address_1")
		delete(s.FieldErrors, "address_2")
	}
	s.LastError = message
	s.UpdatedAt = now
}

// RecoverStale settles an exchange that was marked in flight at least
// staleAfter ago and never finished, e.g. because the process stopped or the
// final save failed. An interrupted submission returns to the confirmation
// step and an interrupted lookup leaves the address unchanged. It reports
// whether the session changed.
func (s *FormSession) RecoverStale(now time.Time, staleAfter time.Duration) bool {
	if !s.busy() {
		return false
	}
	if s.BusySince != nil && now.Sub(*s.BusySince) < staleAfter {
		return false
	}

	if s.Loading || s.State == FormStateSubmitting {
		s.FailSubmit(ErrExchangeInterrupted.Error(), nil, now)
	}
	if s.PostalSearchLoading {
		s.EndPostalSearch(nil, ErrExchangeInterrupted.Error(), now)
	}
	return true
}

// Address is the result of a postal code lookup.
type Address struct {
	Line1 string `json:"address_1"`
	Line2 string `json:"address_2"`
}
