package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AbdulWasayUl/country-explorer/internal/api"
	"github.com/AbdulWasayUl/country-explorer/internal/apperror"
	"github.com/AbdulWasayUl/country-explorer/internal/config"
	"github.com/AbdulWasayUl/country-explorer/models"
	"github.com/tidwall/gjson"
)

const (
	serviceName    = "auth"
	defaultBaseURL = "http://localhost:5001"

	signInPath = "/api/v1/auth/sign-in"
	signUpPath = "/api/v1/auth/sign-up"
	mePath     = "/api/v1/auth/me"
)

type Service struct {
	Config  *config.Config
	Client  *api.Client
	BaseURL string
}

func NewService(cfg *config.Config) *Service {
	rlSettings := models.RateLimitSettings{
		MaxRequests: 10,
		PerDuration: time.Second,
	}
	opts := []api.Option{api.WithService(serviceName)}
	baseURL := defaultBaseURL
	if cfg != nil {
		if cfg.AuthAPIBaseURL != "" {
			baseURL = cfg.AuthAPIBaseURL
		}
		if cfg.RequestTimeout > 0 {
			opts = append(opts, api.WithTimeout(cfg.RequestTimeout))
		}
	}

	return &Service{
		Config:  cfg,
		Client:  api.NewClient(rlSettings, opts...),
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *Service) SignIn(ctx context.Context, email, password string) (SignInResponse, error) {
	const op = "auth.sign_in"
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return SignInResponse{}, apperror.Validation(op, "email and password are required")
	}

	body, err := json.Marshal(SignInRequest{Email: email, Password: password})
	if err != nil {
		return SignInResponse{}, err
	}
	data, err := s.Client.Send(ctx, http.MethodPost, s.BaseURL+signInPath, nil, body)
	if err != nil {
		return SignInResponse{}, s.fail(op, "Login failed", err, true)
	}

	token := gjson.GetBytes(data, "token").String()
	if token == "" {
		return SignInResponse{}, apperror.Malformed(op, errors.New("response has no token"))
	}
	user, err := parseUser(data, "user")
	if err != nil {
		return SignInResponse{}, apperror.Malformed(op, err)
	}
	return SignInResponse{Token: token, User: user}, nil
}

func (s *Service) SignUp(ctx context.Context, name, email, password string) (SignUpResponse, error) {
	const op = "auth.sign_up"
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return SignUpResponse{}, apperror.Validation(op, "name, email and password are required")
	}

	body, err := json.Marshal(SignUpRequest{Name: name, Email: email, Password: password})
	if err != nil {
		return SignUpResponse{}, err
	}
	data, err := s.Client.Send(ctx, http.MethodPost, s.BaseURL+signUpPath, nil, body)
	if err != nil {
		return SignUpResponse{}, s.fail(op, "Registration failed", err, false)
	}

	resp := SignUpResponse{Message: gjson.GetBytes(data, "message").String()}
	if gjson.GetBytes(data, "user").IsObject() {
		if user, err := parseUser(data, "user"); err == nil {
			resp.User = &user
		}
	}
	return resp, nil
}

// Me fetches the user that owns token.
func (s *Service) Me(ctx context.Context, token string) (User, error) {
	const op = "auth.me"
	if token == "" {
		return User{}, apperror.Auth(op, "No token found")
	}

	headers := map[string]string{"Authorization": "Bearer " + token}
	data, err := s.Client.Do(ctx, s.BaseURL+mePath, headers)
	if err != nil {
		return User{}, s.fail(op, "Failed to get user", err, true)
	}

	// Some deployments wrap the user, others return it bare.
	path := ""
	if gjson.GetBytes(data, "user").IsObject() {
		path = "user"
	}
	user, err := parseUser(data, path)
	if err != nil {
		return User{}, apperror.Malformed(op, err)
	}
	return user, nil
}

// fail classifies err and replaces its message with the one the server sent,
// falling back to fallback. With credentials set, any 4xx is an auth failure.
func (s *Service) fail(op, fallback string, err error, credentials bool) error {
	classified := apperror.Classify(op, err)

	var appErr *apperror.AppError
	if !errors.As(classified, &appErr) {
		return classified
	}
	kind := appErr.Err
	msg := fallback
	var se *api.StatusError
	if errors.As(err, &se) {
		if credentials && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests {
			kind = apperror.ErrAuth
		}
		if m := gjson.GetBytes(se.Body, "message").String(); m != "" {
			msg = m
		}
	}
	return &apperror.AppError{Err: kind, Op: op, Message: msg, Cause: err}
}

func parseUser(data []byte, path string) (User, error) {
	node := gjson.ParseBytes(data)
	if path != "" {
		node = node.Get(path)
	}
	if !node.IsObject() {
		return User{}, errors.New("user is not an object")
	}

	id := node.Get("id").String()
	if id == "" {
		id = node.Get("_id").String()
	}
	user := User{
		ID:    id,
		Name:  node.Get("name").String(),
		Email: node.Get("email").String(),
	}
	if user.ID == "" && user.Email == "" {
		return User{}, errors.New("user has neither id nor email")
	}
	return user, nil
}
