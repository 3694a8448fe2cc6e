package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DirectoryUser is the subset of identity-provider attributes the name
// resolver consumes.
type DirectoryUser struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserDirectory looks up a user in the external identity provider. A nil
// user with a nil error means the user does not exist.
type UserDirectory interface {
	FindUser(ctx context.Context, id string) (*DirectoryUser, error)
}

type restDirectory struct {
	client *resty.Client
}

// NewRESTDirectory creates a directory client against the identity
// provider's user endpoint (Auth0/Cognito style management API).
func NewRESTDirectory(baseURL, token string) UserDirectory {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second).
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &restDirectory{client: client}
}

func (d *restDirectory) FindUser(ctx context.Context, id string) (*DirectoryUser, error) {
	var user DirectoryUser
	resp, err := d.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&user).
		Get("/users/{id}")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == 404 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("directory lookup for %s returned status %d", id, resp.StatusCode())
	}
	return &user, nil
}
