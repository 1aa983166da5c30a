package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"member-intake/internal/delivery/dto"
	"member-intake/internal/domain/entity"
)

// PostalCodeDigits is the number of digits a postal code lookup requires.
const PostalCodeDigits = 7

var (
	ErrEndpointNotConfigured = errors.New("GASエンドポイントが未設定です。")
	ErrSubmissionFailed      = errors.New("送信に失敗しました。")
	ErrInvalidPostalCode     = errors.New("郵便番号は7桁で入力してください。")
	ErrPostalLookupFailed    = errors.New("住所検索に失敗しました。")
	ErrAddressNotFound       = errors.New("該当する住所が見つかりません。")
)

// LookupError is a failure reported by the endpoint itself for an address search.
type LookupError struct {
	Message string
}

func (e *LookupError) Error() string {
	return e.Message
}

// MemberEndpoint is the remote service that stores member records and resolves
// postal codes.
type MemberEndpoint interface {
	Configured() bool
	SubmitMember(ctx context.Context, payload *dto.MemberPayload) (json.RawMessage, error)
	SearchPostalCode(ctx context.Context, postalCode string) (*entity.Address, error)
}
