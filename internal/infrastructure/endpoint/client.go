package endpoint

import (
	"context"
	"encoding/json"
	"fmt"

	"member-intake/config"
	"member-intake/internal/delivery/dto"
	"member-intake/internal/domain/entity"
	"member-intake/internal/domain/gateway"
	"member-intake/pkg/fieldcodec"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	actionSubmitMember     = "submitMember"
	actionSearchPostalCode = "searchPostalCode"
)

var _ gateway.MemberEndpoint = (*Client)(nil)

// Client talks to the remote member endpoint. Every exchange is attempted once;
// nothing is retried.
type Client struct {
	httpClient *resty.Client
	baseURL    string
	log        *logrus.Logger
}

func NewClient(cfg config.EndpointConfig, log *logrus.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetLogger(log).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.BaseURL,
		log:        log,
	}
}

// Configured reports whether an endpoint URL was supplied.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// SubmitMember sends a member record with the submitMember action. Any non-2xx
// status or transport failure is reported as gateway.ErrSubmissionFailed.
func (c *Client) SubmitMember(ctx context.Context, payload *dto.MemberPayload) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, gateway.ErrEndpointNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode member payload: %w", err)
	}

	// text/plain keeps Apps Script style endpoints from requiring a CORS preflight.
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("action", actionSubmitMember).
		SetHeader("Content-Type", "text/plain;charset=utf-8").
		SetBody(body).
		Post(c.baseURL)
	if err != nil {
		c.log.WithField("action", actionSubmitMember).Warnf("Member endpoint request failed: %+v", err)
		return nil, fmt.Errorf("%w: %v", gateway.ErrSubmissionFailed, err)
	}

	c.log.WithFields(logrus.Fields{
		"action": actionSubmitMember,
		"status": resp.StatusCode(),
	}).Info("Member endpoint responded")

	if !resp.IsSuccess() {
		return nil, gateway.ErrSubmissionFailed
	}

	return json.RawMessage(resp.Body()), nil
}

// SearchPostalCode looks up the address for a postal code. The code must hold
// exactly seven digits once separators are removed; otherwise no request is made.
func (c *Client) SearchPostalCode(ctx context.Context, postalCode string) (*entity.Address, error) {
	digits := fieldcodec.ToDigits(postalCode)
	if len(digits) != gateway.PostalCodeDigits {
		return nil, gateway.ErrInvalidPostalCode
	}
	if !c.Configured() {
		return nil, gateway.ErrEndpointNotConfigured
	}

	var result dto.PostalLookupResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"action":      actionSearchPostalCode,
			"postal_code": digits,
		}).
		Get(c.baseURL)
	if err != nil {
		c.log.WithField("action", actionSearchPostalCode).Warnf("Member endpoint request failed: %+v", err)
		return nil, fmt.Errorf("%w: %v", gateway.ErrPostalLookupFailed, err)
	}

	c.log.WithFields(logrus.Fields{
		"action": actionSearchPostalCode,
		"status": resp.StatusCode(),
	}).Info("Member endpoint responded")

	if !resp.IsSuccess() {
		return nil, gateway.ErrPostalLookupFailed
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		c.log.Warnf("Failed to decode postal lookup response: %+v", err)
		return nil, gateway.ErrPostalLookupFailed
	}

	return addressFromLookup(&result)
}

func addressFromLookup(result *dto.PostalLookupResponse) (*entity.Address, error) {
	if !result.OK {
		if result.Error != "" {
			return nil, &gateway.LookupError{Message: result.Error}
		}
		return nil, gateway.ErrAddressNotFound
	}

	line1 := firstPresent(result.Address1, result.Address1Compact, result.Address)
	line2 := firstPresent(result.Address2, result.Address2Compact)
	if line1 == "" {
		return nil, gateway.ErrAddressNotFound
	}

	return &entity.Address{Line1: line1, Line2: line2}, nil
}

// firstPresent returns the first key that was present in the reply, even when empty.
func firstPresent(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}
