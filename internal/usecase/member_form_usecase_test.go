package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"member-intake/config"
	"member-intake/internal/delivery/dto"
	"member-intake/internal/delivery/http/middleware"
	"member-intake/internal/domain/entity"
	"member-intake/internal/domain/gateway"
	domainRepository "member-intake/internal/domain/repository"
	"member-intake/internal/repository"
	"member-intake/internal/schema"
	"member-intake/internal/service"
	"member-intake/pkg/fieldcodec"
	"member-intake/pkg/jwt"
	"member-intake/pkg/validator"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

const testStaleAfter = time.Minute

var errRedisDown = errors.New("redis: connection refused")

// flakySessionRepo fails the next save of a session in failOn once.
type flakySessionRepo struct {
	domainRepository.FormSessionRepository
	failOn entity.FormState
}

func (r *flakySessionRepo) Save(ctx context.Context, session *entity.FormSession) error {
	if r.failOn != "" && session.State == r.failOn {
		r.failOn = ""
		return errRedisDown
	}
	return r.FormSessionRepository.Save(ctx, session)
}

type fakeEndpoint struct {
	mu          sync.Mutex
	configured  bool
	submitErr   error
	address     *entity.Address
	lookupErr   error
	submitted   []*dto.MemberPayload
	lookups     []string
	submitEnter chan struct{}
	submitGate  chan struct{}
}

func (f *fakeEndpoint) Configured() bool {
	return f.configured
}

func (f *fakeEndpoint) SubmitMember(ctx context.Context, payload *dto.MemberPayload) (json.RawMessage, error) {
	if f.submitEnter != nil {
		f.submitEnter <- struct{}{}
		<-f.submitGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, payload)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return json.RawMessage(`{"ok":true}`), nil
}

func (f *fakeEndpoint) SearchPostalCode(ctx context.Context, postalCode string) (*entity.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, postalCode)
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.address, nil
}

type fakeAuditService struct {
	mu      sync.Mutex
	actions []string
	entries []entity.JSON
}

func (f *fakeAuditService) Record(ctx context.Context, sessionID uuid.UUID, action string, metadata entity.JSON) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	f.entries = append(f.entries, metadata)
	return nil
}

func (f *fakeAuditService) FindBySession(ctx context.Context, sessionID uuid.UUID) ([]entity.AuditLog, error) {
	return nil, nil
}

type testFixture struct {
	usecase  *memberFormUsecase
	repo     *flakySessionRepo
	endpoint *fakeEndpoint
	audit    *fakeAuditService
}

func setupUsecase(t *testing.T) *testFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	memberSchema, err := schema.NewMemberSchema(validator.NewValidator())
	require.NoError(t, err)

	guard := service.NewSessionGuard(log)
	t.Cleanup(guard.Stop)

	endpoint := &fakeEndpoint{configured: true}
	audit := &fakeAuditService{}
	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", SessionExpiry: time.Hour})

	repo := &flakySessionRepo{FormSessionRepository: repository.NewFormSessionRepository(redisClient, time.Hour)}

	uc := NewMemberFormUsecase(
		log,
		repo,
		memberSchema,
		endpoint,
		guard,
		audit,
		jwtService,
		testStaleAfter,
	).(*memberFormUsecase)
	uc.now = func() time.Time { return fixedNow }

	return &testFixture{usecase: uc, repo: repo, endpoint: endpoint, audit: audit}
}

func (f *testFixture) start(t *testing.T) context.Context {
	t.Helper()
	started, err := f.usecase.Start(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, started.Token)
	assert.Equal(t, entity.FormStateEditing, started.Session.State)
	return middleware.ContextWithSessionID(context.Background(), started.Session.ID)
}

// confirmed brings a session with valid names and consent to the confirmation step.
func (f *testFixture) confirmed(t *testing.T) context.Context {
	t.Helper()
	ctx := f.start(t)

	_, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{
		LastName:       ptr("山田"),
		FirstName:      ptr("太郎"),
		BirthDateParts: &fieldcodec.BirthDateParts{Year: "1990", Month: "06", Day: "02"},
		Symptoms:       ptr("不眠"),
	})
	require.NoError(t, err)
	_, err = f.usecase.SetConsent(ctx, true)
	require.NoError(t, err)

	view, err := f.usecase.Confirm(ctx)
	require.NoError(t, err)
	require.Equal(t, entity.FormStateConfirming, view.State)
	return ctx
}

func ptr[T any](v T) *T {
	return &v
}

func TestStart_RecordsAudit(t *testing.T) {
	f := setupUsecase(t)
	f.start(t)
	assert.Equal(t, []string{entity.AuditActionFormStart}, f.audit.actions)
}

func TestOperationsRequireSession(t *testing.T) {
	f := setupUsecase(t)

	_, err := f.usecase.Get(context.Background())
	assert.ErrorIs(t, err, ErrSessionRequired)

	_, err = f.usecase.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrSessionRequired)
}

func TestSetFields_CompositeInputs(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.start(t)

	income := dto.NumberText("3500000")
	view, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{
		BirthDateParts: &fieldcodec.BirthDateParts{Year: "1990", Month: "06", Day: "02"},
		PhoneParts:     &[3]string{"090", "1234", "56789"},
		PostalParts:    &[2]string{"100", "0001"},
		AnnualIncome:   &income,
	})
	require.NoError(t, err)

	assert.Equal(t, "1990-06-02", *view.Values.BirthDate)
	require.NotNil(t, view.Values.Age)
	assert.Equal(t, 34, *view.Values.Age)
	assert.Equal(t, "090-1234-5678", *view.Values.PhoneNumber)
	assert.Equal(t, [3]string{"090", "1234", "5678"}, view.PhoneParts)
	assert.Equal(t, "100-0001", *view.Values.PostalCode)
	assert.Equal(t, "3500000", view.Values.AnnualIncome.String())

	// stored, not just returned
	stored, err := f.usecase.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "090-1234-5678", *stored.Values.PhoneNumber)
}

func TestSetFields_DirectValuesAreCanonicalized(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.start(t)

	view, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{
		PhoneNumber: ptr("09012345678"),
		PostalCode:  ptr("1000001"),
		BirthDate:   ptr("2000-01-15"),
	})
	require.NoError(t, err)

	assert.Equal(t, "090-1234-5678", *view.Values.PhoneNumber)
	assert.Equal(t, "100-0001", *view.Values.PostalCode)
	assert.Equal(t, fieldcodec.BirthDateParts{Year: "2000", Month: "01", Day: "15"}, view.BirthDateParts)
	assert.Equal(t, 25, *view.Values.Age)
}

func TestSetFields_DayBeyondMonthIsDropped(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.start(t)

	view, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{
		BirthDateParts: &fieldcodec.BirthDateParts{Year: "2023", Month: "02", Day: "30"},
	})
	require.NoError(t, err)

	assert.Nil(t, view.Values.BirthDate)
	assert.Nil(t, view.Values.Age)
	assert.Equal(t, "", view.BirthDateParts.Day)
}

func TestSetFields_UnknownLabelIsRejected(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.start(t)

	view, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{
		InsuranceType: ptr("共済"),
		MaritalStatus: ptr("既婚"),
	})
	require.NoError(t, err)

	assert.Nil(t, view.Values.InsuranceType)
	assert.Equal(t, "既婚", *view.Values.MaritalStatus)
	assert.Equal(t, schema.LabelMessage, view.FieldErrors["insurance_type"])

	view, err = f.usecase.SetFields(ctx, &dto.MemberFormPatch{InsuranceType: ptr("国保")})
	require.NoError(t, err)
	assert.Equal(t, "国保", *view.Values.InsuranceType)
	assert.Empty(t, view.FieldErrors)
}

func TestSetFields_EmptyStringClearsOptional(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.start(t)

	_, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{Workplace: ptr("本社")})
	require.NoError(t, err)

	view, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{Workplace: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, view.Values.Workplace)
}

func TestSetFields_HugeExponentIncomeIsAbsent(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.start(t)

	income := dto.NumberText("1e2000000000")
	view, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{AnnualIncome: &income})
	require.NoError(t, err)
	assert.Nil(t, view.Values.AnnualIncome)

	view, err = f.usecase.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, view.Values.AnnualIncome)
}

func TestConfirm_Preconditions(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.start(t)

	_, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{LastName: ptr("山田"), FirstName: ptr("太郎")})
	require.NoError(t, err)

	view, err := f.usecase.Confirm(ctx)
	assert.ErrorIs(t, err, entity.ErrConsentRequired)
	assert.Equal(t, entity.FormStateEditing, view.State)
	assert.False(t, view.CanConfirm)

	_, err = f.usecase.SetConsent(ctx, true)
	require.NoError(t, err)
	_, err = f.usecase.SetFields(ctx, &dto.MemberFormPatch{FirstName: ptr(" ")})
	require.NoError(t, err)

	view, err = f.usecase.Confirm(ctx)
	assert.ErrorIs(t, err, entity.ErrRequiredNamesMissing)
	assert.Equal(t, entity.FormStateEditing, view.State)
}

func TestConfirm_ValidationErrorsStayOnSession(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.start(t)

	_, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{
		LastName:  ptr("山田"),
		FirstName: ptr("太郎"),
		BirthDate: ptr("1990/06/02"),
	})
	require.NoError(t, err)
	_, err = f.usecase.SetConsent(ctx, true)
	require.NoError(t, err)

	view, err := f.usecase.Confirm(ctx)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "YYYY-MM-DD形式で入力してください", validationErr.FieldErrors["birth_date"])
	assert.Equal(t, entity.FormStateEditing, view.State)
	assert.Equal(t, "YYYY-MM-DD形式で入力してください", view.FieldErrors["birth_date"])

	// fixing the field clears its error
	view, err = f.usecase.SetFields(ctx, &dto.MemberFormPatch{BirthDate: ptr("1990-06-02")})
	require.NoError(t, err)
	assert.NotContains(t, view.FieldErrors, "birth_date")
}

func TestConfirm_FreezesSummaryAndLocksForm(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.confirmed(t)

	view, err := f.usecase.Get(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, view.Summary)
	assert.Equal(t, "氏名", view.Summary[0].Label)
	assert.Contains(t, view.Summary[0].Value, "山田")

	_, err = f.usecase.SetFields(ctx, &dto.MemberFormPatch{LastName: ptr("佐藤")})
	assert.ErrorIs(t, err, entity.ErrFormLocked)

	_, err = f.usecase.SearchPostalCode(ctx)
	assert.ErrorIs(t, err, entity.ErrFormLocked)
}

func TestGoBack_KeepsValues(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.confirmed(t)

	view, err := f.usecase.GoBack(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FormStateEditing, view.State)
	assert.Equal(t, "山田", view.Values.LastName)
	assert.Equal(t, "不眠", *view.Values.Symptoms)
	assert.True(t, view.Consent)
	assert.Empty(t, view.Summary)
}

func TestSubmit_Success(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.confirmed(t)

	view, err := f.usecase.Submit(ctx)
	require.NoError(t, err)

	assert.Equal(t, entity.FormStateCompleted, view.State)
	assert.Equal(t, entity.MemberForm{}, view.Values)
	assert.False(t, view.Consent)
	assert.False(t, view.Loading)

	require.Len(t, f.endpoint.submitted, 1)
	payload := f.endpoint.submitted[0]
	assert.Equal(t, "山田", payload.LastName)
	require.NotNil(t, payload.Age)
	assert.Equal(t, 34, *payload.Age)
	assert.Equal(t, "なし", payload.HospitalVisitHistory)
	assert.Equal(t, "{}", payload.RawData)

	assert.Contains(t, f.audit.actions, entity.AuditActionMemberSubmit)
}

func TestSubmit_ServerErrorReturnsToConfirming(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.confirmed(t)
	f.endpoint.submitErr = fmt.Errorf("%w: status 500", gateway.ErrSubmissionFailed)

	view, err := f.usecase.Submit(ctx)
	assert.ErrorIs(t, err, gateway.ErrSubmissionFailed)

	assert.Equal(t, entity.FormStateConfirming, view.State)
	assert.False(t, view.Loading)
	assert.Equal(t, "送信に失敗しました。", view.LastError)
	assert.Equal(t, "山田", view.Values.LastName)
	assert.True(t, view.Consent)

	stored, err := f.usecase.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FormStateConfirming, stored.State)
	assert.False(t, stored.Loading)

	assert.Contains(t, f.audit.actions, entity.AuditActionMemberSubmitFailed)

	// the user may retry from the confirmation step
	f.endpoint.submitErr = nil
	view, err = f.usecase.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FormStateCompleted, view.State)
}

func TestSubmit_EndpointNotConfigured(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.confirmed(t)
	f.endpoint.configured = false

	view, err := f.usecase.Submit(ctx)
	assert.ErrorIs(t, err, gateway.ErrEndpointNotConfigured)
	assert.Equal(t, entity.FormStateConfirming, view.State)
	assert.False(t, view.Loading)
	assert.Empty(t, f.endpoint.submitted)
}

func TestSubmit_RequiresConfirmation(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.start(t)

	view, err := f.usecase.Submit(ctx)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	assert.Equal(t, entity.FormStateEditing, view.State)
	assert.Empty(t, f.endpoint.submitted)
}

func TestSubmit_OverlappingOperationIsRefused(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.confirmed(t)
	f.endpoint.submitEnter = make(chan struct{})
	f.endpoint.submitGate = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.usecase.Submit(ctx)
		done <- err
	}()

	<-f.endpoint.submitEnter

	_, err := f.usecase.Submit(ctx)
	assert.ErrorIs(t, err, entity.ErrOperationInProgress)
	_, err = f.usecase.GoBack(ctx)
	assert.ErrorIs(t, err, entity.ErrOperationInProgress)

	inFlight, err := f.usecase.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FormStateSubmitting, inFlight.State)
	assert.True(t, inFlight.Loading)

	close(f.endpoint.submitGate)
	require.NoError(t, <-done)

	assert.Len(t, f.endpoint.submitted, 1)
	view, err := f.usecase.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FormStateCompleted, view.State)
}

func TestSubmit_LostFinalSaveIsRecovered(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.confirmed(t)
	f.repo.failOn = entity.FormStateCompleted

	_, err := f.usecase.Submit(ctx)
	require.ErrorIs(t, err, errRedisDown)
	require.Len(t, f.endpoint.submitted, 1)

	view, err := f.usecase.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FormStateSubmitting, view.State)
	assert.True(t, view.Loading)

	_, err = f.usecase.Abandon(ctx)
	assert.ErrorIs(t, err, entity.ErrOperationInProgress)

	f.usecase.now = func() time.Time { return fixedNow.Add(testStaleAfter) }

	view, err = f.usecase.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FormStateConfirming, view.State)
	assert.False(t, view.Loading)
	assert.Equal(t, entity.ErrExchangeInterrupted.Error(), view.LastError)

	view, err = f.usecase.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FormStateCompleted, view.State)
	assert.Len(t, f.endpoint.submitted, 2)
}

func TestInterruptedSubmission_CanGoBackOrAbandon(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.confirmed(t)
	f.repo.failOn = entity.FormStateCompleted

	_, err := f.usecase.Submit(ctx)
	require.Error(t, err)

	f.usecase.now = func() time.Time { return fixedNow.Add(2 * testStaleAfter) }

	view, err := f.usecase.GoBack(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FormStateEditing, view.State)
	assert.Equal(t, "山田", view.Values.LastName)

	view, err = f.usecase.Abandon(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FormStateEditing, view.State)
	assert.Empty(t, view.Values.LastName)
}

func TestSearchPostalCode_RequiresSevenDigits(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.start(t)

	_, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{PostalParts: &[2]string{"100", "001"}})
	require.NoError(t, err)

	view, err := f.usecase.SearchPostalCode(ctx)
	assert.ErrorIs(t, err, gateway.ErrInvalidPostalCode)
	assert.False(t, view.PostalSearchLoading)
	assert.Empty(t, f.endpoint.lookups)
}

func TestSearchPostalCode_Success(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.start(t)
	f.endpoint.address = &entity.Address{Line1: "東京都千代田区", Line2: "千代田"}

	_, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{
		PostalCode: ptr("100-0001"),
		Address2:   ptr("旧住所"),
	})
	require.NoError(t, err)

	view, err := f.usecase.SearchPostalCode(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"100-0001"}, f.endpoint.lookups)
	assert.Equal(t, "東京都千代田区", *view.Values.Address1)
	assert.Equal(t, "千代田", *view.Values.Address2)
	assert.False(t, view.PostalSearchLoading)
	assert.Contains(t, f.audit.actions, entity.AuditActionPostalSearch)
}

func TestSearchPostalCode_FailureKeepsAddress(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.start(t)
	f.endpoint.lookupErr = &gateway.LookupError{Message: "郵便番号が存在しません"}

	_, err := f.usecase.SetFields(ctx, &dto.MemberFormPatch{
		PostalCode: ptr("9999999"),
		Address1:   ptr("大阪府"),
	})
	require.NoError(t, err)

	view, err := f.usecase.SearchPostalCode(ctx)
	require.Error(t, err)

	assert.Equal(t, "大阪府", *view.Values.Address1)
	assert.Nil(t, view.Values.Address2)
	assert.Equal(t, "郵便番号が存在しません", view.LastError)
	assert.False(t, view.PostalSearchLoading)
	assert.Contains(t, f.audit.actions, entity.AuditActionPostalSearchFailed)
}

func TestAbandon_StartsOver(t *testing.T) {
	f := setupUsecase(t)
	ctx := f.confirmed(t)

	_, err := f.usecase.Submit(ctx)
	require.NoError(t, err)

	view, err := f.usecase.Abandon(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FormStateEditing, view.State)
	assert.Equal(t, entity.MemberForm{}, view.Values)
	assert.Contains(t, f.audit.actions, entity.AuditActionFormAbandon)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "送信に失敗しました。", UserMessage(fmt.Errorf("%w: timeout", gateway.ErrSubmissionFailed)))
	assert.Equal(t, "backend says no", UserMessage(&gateway.LookupError{Message: "backend says no"}))
	assert.Equal(t, "入力内容に誤りがあります。", UserMessage(&ValidationError{}))
	assert.Equal(t, ErrUnexpected.Error(), UserMessage(fmt.Errorf("boom")))
}
