package usecase

import (
	"context"
	"errors"
	"time"

	"member-intake/internal/converter"
	"member-intake/internal/delivery/dto"
	"member-intake/internal/delivery/http/middleware"
	"member-intake/internal/domain/entity"
	"member-intake/internal/domain/gateway"
	"member-intake/internal/domain/repository"
	"member-intake/internal/schema"
	"member-intake/internal/service"
	"member-intake/pkg/fieldcodec"
	"member-intake/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrSessionRequired = errors.New("form session not found in context")
	ErrUnexpected      = errors.New("予期しないエラーが発生しました。")
)

// ValidationError carries the per-field messages of a rejected form.
type ValidationError struct {
	FieldErrors schema.FieldErrors
}

func (e *ValidationError) Error() string {
	return "入力内容に誤りがあります。"
}

type MemberFormUsecase interface {
	Start(ctx context.Context) (*dto.StartFormResponse, error)
	Get(ctx context.Context) (*dto.FormSessionResponse, error)
	SetFields(ctx context.Context, patch *dto.MemberFormPatch) (*dto.FormSessionResponse, error)
	SetConsent(ctx context.Context, agreed bool) (*dto.FormSessionResponse, error)
	SearchPostalCode(ctx context.Context) (*dto.FormSessionResponse, error)
	Confirm(ctx context.Context) (*dto.FormSessionResponse, error)
	GoBack(ctx context.Context) (*dto.FormSessionResponse, error)
	Submit(ctx context.Context) (*dto.FormSessionResponse, error)
	Abandon(ctx context.Context) (*dto.FormSessionResponse, error)
}

type memberFormUsecase struct {
	log          *logrus.Logger
	sessionRepo  repository.FormSessionRepository
	schema       *schema.MemberSchema
	endpoint     gateway.MemberEndpoint
	guard        *service.SessionGuard
	auditService service.AuditService
	jwtService   *jwt.JWTService
	staleAfter   time.Duration
	now          func() time.Time
}

func NewMemberFormUsecase(
	log *logrus.Logger,
	sessionRepo repository.FormSessionRepository,
	memberSchema *schema.MemberSchema,
	endpoint gateway.MemberEndpoint,
	guard *service.SessionGuard,
	auditService service.AuditService,
	jwtService *jwt.JWTService,
	staleAfter time.Duration,
) MemberFormUsecase {
	return &memberFormUsecase{
		log:          log,
		sessionRepo:  sessionRepo,
		schema:       memberSchema,
		endpoint:     endpoint,
		guard:        guard,
		auditService: auditService,
		jwtService:   jwtService,
		staleAfter:   staleAfter,
		now:          time.Now,
	}
}

// Start opens a new, empty form session and issues its token.
func (u *memberFormUsecase) Start(ctx context.Context) (*dto.StartFormResponse, error) {
	session := entity.NewFormSession(uuid.New(), u.now())

	if err := u.sessionRepo.Save(ctx, session); err != nil {
		u.log.Warnf("Failed to save form session: %+v", err)
		return nil, err
	}

	token, err := u.jwtService.GenerateSessionToken(session.ID)
	if err != nil {
		u.log.Warnf("Failed to generate session token: %+v", err)
		return nil, err
	}

	u.audit(ctx, session.ID, entity.AuditActionFormStart, nil)

	return &dto.StartFormResponse{
		Session:   converter.FormSessionToResponse(session),
		Token:     token,
		ExpiresIn: int64(u.jwtService.GetSessionExpiry().Seconds()),
	}, nil
}

func (u *memberFormUsecase) Get(ctx context.Context) (*dto.FormSessionResponse, error) {
	session, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	session.RecoverStale(u.now(), u.staleAfter)
	return converter.FormSessionToResponse(session), nil
}

// SetFields applies field edits while the form is editable.
func (u *memberFormUsecase) SetFields(ctx context.Context, patch *dto.MemberFormPatch) (*dto.FormSessionResponse, error) {
	return u.withSession(ctx, func(session *entity.FormSession) error {
		if err := session.EnsureEditable(); err != nil {
			return err
		}
		applyFormPatch(session, patch, u.now())
		return nil
	})
}

func (u *memberFormUsecase) SetConsent(ctx context.Context, agreed bool) (*dto.FormSessionResponse, error) {
	return u.withSession(ctx, func(session *entity.FormSession) error {
		return session.SetConsent(agreed, u.now())
	})
}

// Confirm checks the preconditions, validates the whole form and, when it
// passes, freezes the summary and moves to the confirmation step. Field errors
// stay on the session and the form remains editable.
func (u *memberFormUsecase) Confirm(ctx context.Context) (*dto.FormSessionResponse, error) {
	return u.withSession(ctx, func(session *entity.FormSession) error {
		if err := session.CheckConfirm(); err != nil {
			return err
		}

		member, fieldErrors := u.schema.Validate(session.Values)
		if fieldErrors != nil {
			session.RejectConfirm(fieldErrors, u.now())
			return &ValidationError{FieldErrors: fieldErrors}
		}

		return session.Confirm(converter.MemberToSummary(member), u.now())
	})
}

func (u *memberFormUsecase) GoBack(ctx context.Context) (*dto.FormSessionResponse, error) {
	return u.withSession(ctx, func(session *entity.FormSession) error {
		return session.GoBack(u.now())
	})
}

// Abandon discards all input and starts the session over.
func (u *memberFormUsecase) Abandon(ctx context.Context) (*dto.FormSessionResponse, error) {
	return u.withSession(ctx, func(session *entity.FormSession) error {
		if err := session.Reset(u.now()); err != nil {
			return err
		}
		u.audit(ctx, session.ID, entity.AuditActionFormAbandon, nil)
		return nil
	})
}

// Submit sends the confirmed form to the member endpoint.
//
// Flow:
// 1. Endpoint configured (otherwise the session is left as is)
// 2. Confirming -> Submitting
// 3. Validate, build the payload, send once
// 4. Success -> value-bag cleared, Completed; failure -> back to Confirming
func (u *memberFormUsecase) Submit(ctx context.Context) (*dto.FormSessionResponse, error) {
	return u.withSession(ctx, func(session *entity.FormSession) error {
		if !u.endpoint.Configured() {
			return gateway.ErrEndpointNotConfigured
		}

		if err := session.BeginSubmit(u.now()); err != nil {
			return err
		}
		if err := u.sessionRepo.Save(ctx, session); err != nil {
			u.log.Warnf("Failed to save form session %s: %+v", session.ID, err)
			session.FailSubmit(ErrUnexpected.Error(), nil, u.now())
			return err
		}

		member, fieldErrors := u.schema.Validate(session.Values)
		if fieldErrors != nil {
			validationErr := &ValidationError{FieldErrors: fieldErrors}
			session.FailSubmit(validationErr.Error(), fieldErrors, u.now())
			u.audit(ctx, session.ID, entity.AuditActionMemberSubmitFailed, entity.JSON{"reason": "validation"})
			return validationErr
		}

		now := u.now()
		if _, err := u.endpoint.SubmitMember(ctx, converter.MemberToPayload(member, now)); err != nil {
			u.sessionLog(ctx, session.ID).Warnf("Failed to submit member: %+v", err)
			session.FailSubmit(UserMessage(err), nil, u.now())
			u.audit(ctx, session.ID, entity.AuditActionMemberSubmitFailed, entity.JSON{"reason": UserMessage(err)})
			return err
		}

		session.CompleteSubmit(u.now())
		u.audit(ctx, session.ID, entity.AuditActionMemberSubmit, entity.JSON{
			"has_birth_date": member.BirthDate != nil,
			"has_address":    member.Address1 != nil,
			"has_income":     member.AnnualIncome != nil,
		})
		return nil
	})
}

// SearchPostalCode looks up the address of the entered postal code and fills
// both address lines on success.
func (u *memberFormUsecase) SearchPostalCode(ctx context.Context) (*dto.FormSessionResponse, error) {
	return u.withSession(ctx, func(session *entity.FormSession) error {
		if err := session.EnsureEditable(); err != nil {
			return err
		}

		postalCode := entity.StringValue(session.Values.PostalCode)
		if len(fieldcodec.ToDigits(postalCode)) != gateway.PostalCodeDigits {
			return gateway.ErrInvalidPostalCode
		}
		if !u.endpoint.Configured() {
			return gateway.ErrEndpointNotConfigured
		}

		if err := session.BeginPostalSearch(u.now()); err != nil {
			return err
		}
		if err := u.sessionRepo.Save(ctx, session); err != nil {
			u.log.Warnf("Failed to save form session %s: %+v", session.ID, err)
			session.EndPostalSearch(nil, ErrUnexpected.Error(), u.now())
			return err
		}

		address, err := u.endpoint.SearchPostalCode(ctx, postalCode)
		if err != nil {
			u.sessionLog(ctx, session.ID).Warnf("Postal code lookup failed: %+v", err)
			session.EndPostalSearch(nil, UserMessage(err), u.now())
			u.audit(ctx, session.ID, entity.AuditActionPostalSearchFailed, entity.JSON{"reason": UserMessage(err)})
			return err
		}

		session.EndPostalSearch(address, "", u.now())
		u.audit(ctx, session.ID, entity.AuditActionPostalSearch, nil)
		return nil
	})
}

// withSession runs op on the session of ctx while holding its guard and saves
// the session afterwards, whether op succeeded or not. Overlapping operations
// are refused.
func (u *memberFormUsecase) withSession(ctx context.Context, op func(session *entity.FormSession) error) (*dto.FormSessionResponse, error) {
	sessionID, ok := middleware.GetSessionIDFromContext(ctx)
	if !ok {
		return nil, ErrSessionRequired
	}

	release, ok := u.guard.TryAcquire(sessionID)
	if !ok {
		return nil, entity.ErrOperationInProgress
	}
	defer release()

	session, err := u.load(ctx)
	if err != nil {
		return nil, err
	}
	if session.RecoverStale(u.now(), u.staleAfter) {
		u.sessionLog(ctx, session.ID).Warn("Recovered an interrupted exchange")
	}

	opErr := op(session)

	// The exchange may outlive a cancelled request; its outcome is still stored.
	if err := u.sessionRepo.Save(context.WithoutCancel(ctx), session); err != nil {
		u.sessionLog(ctx, session.ID).Warnf("Failed to save form session: %+v", err)
		if opErr == nil {
			return nil, err
		}
	}

	return converter.FormSessionToResponse(session), opErr
}

func (u *memberFormUsecase) load(ctx context.Context) (*entity.FormSession, error) {
	sessionID, ok := middleware.GetSessionIDFromContext(ctx)
	if !ok {
		return nil, ErrSessionRequired
	}

	session, err := u.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			u.log.Warnf("Failed to find form session %s: %+v", sessionID, err)
		}
		return nil, err
	}
	return session, nil
}

// sessionLog tags log lines with the session and, when known, the token used.
func (u *memberFormUsecase) sessionLog(ctx context.Context, sessionID uuid.UUID) *logrus.Entry {
	entry := u.log.WithField("session_id", sessionID)
	if tokenID, ok := middleware.GetTokenIDFromContext(ctx); ok {
		entry = entry.WithField("token_id", tokenID)
	}
	return entry
}

func (u *memberFormUsecase) audit(ctx context.Context, sessionID uuid.UUID, action string, metadata entity.JSON) {
	// Failures are logged by the audit service and never fail the user action.
	_ = u.auditService.Record(context.WithoutCancel(ctx), sessionID, action, metadata)
}

// UserMessage returns the message shown to the user for err.
func UserMessage(err error) string {
	var lookupErr *gateway.LookupError
	if errors.As(err, &lookupErr) {
		return lookupErr.Message
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}

	known := []error{
		gateway.ErrEndpointNotConfigured,
		gateway.ErrSubmissionFailed,
		gateway.ErrInvalidPostalCode,
		gateway.ErrPostalLookupFailed,
		gateway.ErrAddressNotFound,
		entity.ErrConsentRequired,
		entity.ErrRequiredNamesMissing,
		entity.ErrOperationInProgress,
		entity.ErrFormLocked,
		entity.ErrInvalidTransition,
		entity.ErrExchangeInterrupted,
	}
	for _, target := range known {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return ErrUnexpected.Error()
}
