package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// GoogleProvider drives the consent redirect and resolves a callback code
// to the Google account's email
type GoogleProvider interface {
	AuthCodeURL() string
	Email(ctx context.Context, code string) (string, error)
}

type Google struct {
	config *oauth2.Config
}

// NewGoogle configures the OAuth client. Google calls back to
// <baseURL>/auth/google-redirect.
func NewGoogle(clientID, clientSecret, baseURL string) *Google {
	return &Google{config: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  strings.TrimRight(baseURL, "/") + "/auth/google-redirect",
		Scopes:       []string{googleoauth2.UserinfoEmailScope, googleoauth2.UserinfoProfileScope},
		Endpoint:     google.Endpoint,
	}}
}

func (g *Google) AuthCodeURL() string {
	return g.config.AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (g *Google) Email(ctx context.Context, code string) (string, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	svc, err := googleoauth2.NewService(ctx, option.WithTokenSource(g.config.TokenSource(ctx, token)))
	if err != nil {
		return "", err
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if info.Email == "" {
		return "", errors.New("google account has no email")
	}
	return info.Email, nil
}
