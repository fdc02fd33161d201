// Package apiclient is a typed wrapper over the admin REST API.
// It issues login, list, create and delete calls and turns every
// non-success answer into a *models.APIError. Nothing is retried.
package apiclient

import (
	"context"
	"errors"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/patric-chuzhbe/adminconsole/internal/logger"
	"github.com/patric-chuzhbe/adminconsole/internal/models"
)

const (
	loginPath = "/api/login"
	usersPath = "/api/users"
	userPath  = "/api/users/{uuid}"

	requestIDHeader = "X-Request-ID"
)

const (
	msgLoginFailed  = "Failed to log in"
	msgListFailed   = "Failed to fetch users. You may not have permission."
	msgCreateFailed = "Failed to create user."
	msgDeleteFailed = "Failed to delete user."
)

// Client talks to one API base URL.
type Client struct {
	http     *resty.Client
	validate *validator.Validate
}

type InitOption func(*initOptions)

type initOptions struct {
	timeout    time.Duration
	httpClient *http.Client
}

// WithTimeout bounds every request. Zero keeps the transport default.
func WithTimeout(timeout time.Duration) InitOption {
	return func(options *initOptions) {
		options.timeout = timeout
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(httpClient *http.Client) InitOption {
	return func(options *initOptions) {
		options.httpClient = httpClient
	}
}

func New(baseURL string, optionsProto ...InitOption) *Client {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	var rc *resty.Client
	if options.httpClient != nil {
		rc = resty.NewWithClient(options.httpClient)
	} else {
		rc = resty.New()
	}

	rc.SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	if options.timeout > 0 {
		rc.SetTimeout(options.timeout)
	}

	return &Client{
		http:     logger.WithLoggingRestyMiddleware(rc),
		validate: validator.New(),
	}
}

func (c *Client) request(ctx context.Context, token string) *resty.Request {
	req := c.http.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, uuid.NewString()).
		SetError(&models.ErrorResponse{})
	if token != "" {
		req.SetAuthToken(token)
	}

	return req
}

// Login exchanges credentials for a token, a role and the caller's user id.
func (c *Client) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	result := &models.LoginResponse{}

	resp, err := c.request(ctx, "").
		SetBody(models.LoginRequest{Username: username, Password: password}).
		SetResult(result).
		Post(loginPath)
	if err := normalize(resp, err, msgLoginFailed); err != nil {
		return nil, err
	}

	if result.Token == "" {
		return nil, models.NewAPIError(models.ErrAuth, resp.StatusCode(), msgLoginFailed)
	}

	return result, nil
}

// ListUsers fetches the whole user collection in server order.
func (c *Client) ListUsers(ctx context.Context, token string) (models.Users, error) {
	var result models.Users

	resp, err := c.request(ctx, token).
		SetResult(&result).
		Get(usersPath)
	if err := normalize(resp, err, msgListFailed); err != nil {
		return nil, err
	}

	if result == nil {
		result = models.Users{}
	}

	return result, nil
}

// CreateUser creates an account and returns it as the server stored it.
// Input that can never succeed is rejected before any request is sent.
func (c *Client) CreateUser(
	ctx context.Context,
	token string,
	username string,
	password string,
	role models.Role,
) (*models.User, error) {
	body := models.CreateUserRequest{
		Username: username,
		Password: password,
		Role:     role,
	}
	if err := c.validate.Struct(body); err != nil {
		return nil, &models.APIError{
			Kind:    models.ErrValidation,
			Message: validationMessage(err),
			Cause:   err,
		}
	}

	result := &models.User{}

	resp, err := c.request(ctx, token).
		SetBody(body).
		SetResult(result).
		Post(usersPath)
	if err := normalize(resp, err, msgCreateFailed); err != nil {
		return nil, err
	}

	if result.ID == "" || !result.Role.Valid() {
		return nil, &models.APIError{
			Kind:    models.ErrNetwork,
			Status:  resp.StatusCode(),
			Message: msgCreateFailed,
		}
	}

	return result, nil
}

// DeleteUser removes the account with the given id.
func (c *Client) DeleteUser(ctx context.Context, token string, id string) error {
	resp, err := c.request(ctx, token).
		SetPathParam("uuid", id).
		Delete(userPath)

	return normalize(resp, err, msgDeleteFailed)
}

func normalize(resp *resty.Response, err error, fallback string) error {
	if err != nil {
		if resp != nil && resp.RawResponse != nil && resp.IsSuccess() {
			return &models.APIError{
				Kind:    models.ErrNetwork,
				Status:  resp.StatusCode(),
				Message: "malformed response: " + err.Error(),
				Cause:   err,
			}
		}

		return &models.APIError{
			Kind:    models.ErrNetwork,
			Message: err.Error(),
			Cause:   err,
		}
	}

	if resp.IsSuccess() {
		return nil
	}

	message := fallback
	if body, ok := resp.Error().(*models.ErrorResponse); ok && body.Message != "" {
		message = body.Message
	}

	return models.NewAPIError(models.KindByStatus(resp.StatusCode()), resp.StatusCode(), message)
}

func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return msgCreateFailed
	}

	fieldError := fieldErrors[0]
	switch fieldError.Tag() {
	case "required":
		return fieldError.Field() + " is required"
	case "oneof":
		return fieldError.Field() + " must be one of: " + fieldError.Param()
	}

	return fieldError.Error()
}
