package wsadmin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Directory is the subset of the Admin SDK Directory API used by this tool.
type Directory interface {
	ListUsers(ctx context.Context, req ListUsersRequest) (*admin.Users, error)
	// GetUser fetches a single user with the "full" projection.
	GetUser(ctx context.Context, userKey string) (*admin.User, error)
	InsertUser(ctx context.Context, user *admin.User) (*admin.User, error)
	DeleteUser(ctx context.Context, userKey string) error
	ListOrgUnits(ctx context.Context, customerID string) ([]*admin.OrgUnit, error)
}

type ListUsersRequest struct {
	Customer  string
	Query     string
	OrderBy   string
	PageToken string
}

// GoogleDirectory implements Directory on top of the generated client.
type GoogleDirectory struct {
	Service *admin.Service
}

// NewGoogleDirectory builds the Admin SDK client on an already authorized
// http client.
func NewGoogleDirectory(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*GoogleDirectory, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	srv, err := admin.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("authenticate google: %w", err)
	}
	return &GoogleDirectory{Service: srv}, nil
}

func (d *GoogleDirectory) ListUsers(ctx context.Context, req ListUsersRequest) (*admin.Users, error) {
	call := d.Service.Users.List().
		// Customer ID: https://support.google.com/a/answer/10070793?hl=en
		Customer(req.Customer).
		Context(ctx).
		PageToken(req.PageToken)
	if req.OrderBy != "" {
		call = call.OrderBy(req.OrderBy)
	}
	if req.Query != "" {
		call = call.Query(req.Query)
	}
	return call.Do()
}

func (d *GoogleDirectory) GetUser(ctx context.Context, userKey string) (*admin.User, error) {
	return d.Service.Users.Get(userKey).Projection("full").Context(ctx).Do()
}

func (d *GoogleDirectory) InsertUser(ctx context.Context, user *admin.User) (*admin.User, error) {
	return d.Service.Users.Insert(user).Context(ctx).Do()
}

func (d *GoogleDirectory) DeleteUser(ctx context.Context, userKey string) error {
	return d.Service.Users.Delete(userKey).Context(ctx).Do()
}

func (d *GoogleDirectory) ListOrgUnits(ctx context.Context, customerID string) ([]*admin.OrgUnit, error) {
	resp, err := d.Service.Orgunits.List(customerID).Type("all").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.OrganizationUnits, nil
}

// GoogleUsers pages through every user matching query, ordered by email.
func GoogleUsers(ctx context.Context, dir Directory, customerID, query string) ([]*admin.User, error) {
	var allUsers []*admin.User
	var pageToken string

	// Call api until all users are read. Loop for pagination
	for {
		googleUsers, err := dir.ListUsers(ctx, ListUsersRequest{
			Customer:  customerID,
			Query:     query,
			OrderBy:   "email",
			PageToken: pageToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}

		allUsers = append(allUsers, googleUsers.Users...)
		if googleUsers.NextPageToken == "" {
			break
		}
		pageToken = googleUsers.NextPageToken
	}

	return allUsers, nil
}

// orgUnitQuery filters users.list to a single organizational unit. Paths
// with spaces must be quoted.
// https://developers.google.com/admin-sdk/directory/v1/guides/search-users
func orgUnitQuery(path string) string {
	if strings.ContainsAny(path, " \t") {
		return "orgUnitPath='" + strings.ReplaceAll(path, "'", "\\'") + "'"
	}
	return "orgUnitPath=" + path
}

// apiMessage returns the server's message for API errors, which reads better
// on a console than the full googleapi error dump.
func apiMessage(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return fmt.Sprintf("%s (HTTP %d)", gerr.Message, gerr.Code)
	}
	return err.Error()
}
