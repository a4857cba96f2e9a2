package stoat

import (
	"context"
	"errors"
	"fmt"

	"stoat-client/events"
	"stoat-client/internal/validator"
	"stoat-client/models"
	"stoat-client/rest"
)

// MFAResponse answers a second factor challenge. Set the field matching the method used.
type MFAResponse struct {
	TOTPCode     string `json:"totp_code,omitempty"`
	RecoveryCode string `json:"recovery_code,omitempty"`
	Password     string `json:"password,omitempty"`
}

type loginRequest struct {
	Email        string       `json:"email,omitempty"`
	Password     string       `json:"password,omitempty"`
	FriendlyName string       `json:"friendly_name,omitempty"`
	MFATicket    string       `json:"mfa_ticket,omitempty"`
	MFAResponse  *MFAResponse `json:"mfa_response,omitempty"`
}

type loginResponse struct {
	Result         string   `json:"result"`
	Token          string   `json:"token"`
	UserID         string   `json:"user_id"`
	Ticket         string   `json:"ticket"`
	AllowedMethods []string `json:"allowed_methods"`
}

// LoginWithToken adopts an existing session token (or bot token, per Config.TokenType)
// and loads the self user. The token is dropped again if the platform rejects it.
func (c *Client) LoginWithToken(ctx context.Context, token string) error {
	if err := validator.NotEmpty("login", "token", token); err != nil {
		return err
	}
	return c.authenticate(ctx, token, c.cfg.TokenType)
}

func (c *Client) authenticate(ctx context.Context, token string, tokenType TokenType) error {
	c.rest.SetToken(token, tokenType)

	self := &models.SelfUser{}
	if err := c.rest.Get(ctx, "users/@me", self); err != nil {
		if errors.Is(err, rest.ErrUnauthorized) {
			c.rest.SetToken("", tokenType)
		}
		return fmt.Errorf("stoat: load self user: %w", err)
	}

	c.cache.SetSelf(self)
	c.log.Infof("Logged in as [%s]", self.Tag())
	c.bus.Publish(events.LoginComplete{Self: self.Clone()})
	return nil
}

// Login exchanges credentials for a session. Wrong credentials are reported as a Failed
// result rather than an error. On success the self user is loaded unless the account
// still has to pick a username, which is reported as OnboardingRequired.
func (c *Client) Login(ctx context.Context, email, password string) (models.LoginResult, error) {
	if err := validator.Email("login", email); err != nil {
		return models.LoginResult{}, err
	}
	if err := validator.NotEmpty("login", "password", password); err != nil {
		return models.LoginResult{}, err
	}

	return c.login(ctx, loginRequest{
		Email:        email,
		Password:     password,
		FriendlyName: c.cfg.UserAgent,
	})
}

// LoginMFA completes a login that returned MFARequired.
func (c *Client) LoginMFA(ctx context.Context, ticket string, response MFAResponse) (models.LoginResult, error) {
	if err := validator.NotEmpty("login", "ticket", ticket); err != nil {
		return models.LoginResult{}, err
	}
	if response == (MFAResponse{}) {
		return models.LoginResult{}, &rest.ArgumentError{Op: "login", Field: "mfa_response", Reason: "can't be empty"}
	}

	return c.login(ctx, loginRequest{
		FriendlyName: c.cfg.UserAgent,
		MFATicket:    ticket,
		MFAResponse:  &response,
	})
}

func (c *Client) login(ctx context.Context, request loginRequest) (models.LoginResult, error) {
	var response loginResponse
	err := c.rest.Post(ctx, "auth/session/login", request, &response, rest.WithoutAuth())
	if err != nil {
		if errors.Is(err, rest.ErrUnauthorized) || rest.IsErrorType(err, rest.ErrTypeInvalidCredentials) {
			c.log.Warnf("Login rejected: %v", err)
			return models.LoginResult{Kind: models.LoginFailed}, nil
		}
		return models.LoginResult{}, err
	}

	switch response.Result {
	case "Success":
	case "MFA":
		return models.LoginResult{
			Kind:           models.LoginMFARequired,
			Ticket:         response.Ticket,
			AllowedMethods: response.AllowedMethods,
		}, nil
	default:
		c.log.Warnf("Login refused with result [%s]", response.Result)
		return models.LoginResult{Kind: models.LoginFailed, UserID: response.UserID}, nil
	}

	result := models.LoginResult{Token: response.Token, UserID: response.UserID}
	c.rest.SetToken(response.Token, UserToken)

	var onboarding struct {
		Onboarding bool `json:"onboarding"`
	}
	if err := c.rest.Get(ctx, "onboard/hello", &onboarding); err != nil {
		return models.LoginResult{}, fmt.Errorf("stoat: check onboarding: %w", err)
	}
	if onboarding.Onboarding {
		result.Kind = models.LoginOnboardingRequired
		return result, nil
	}

	if err := c.authenticate(ctx, response.Token, UserToken); err != nil {
		return models.LoginResult{}, err
	}
	result.Kind = models.LoginSuccess
	return result, nil
}

// Logout ends the session on the platform, stops the client and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.rest.Post(ctx, "auth/session/logout", nil, nil); err != nil && !errors.Is(err, rest.ErrUnauthorized) {
		return err
	}
	if err := c.Stop(ctx); err != nil {
		return err
	}
	c.rest.SetToken("", c.cfg.TokenType)
	c.cache.SetSelf(nil)
	return nil
}
