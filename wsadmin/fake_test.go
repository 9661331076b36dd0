package wsadmin

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	admin "google.golang.org/api/admin/directory/v1"
)

// fakeDirectory is an in-memory Directory. Users are returned in slice
// order, pageSize at a time.
type fakeDirectory struct {
	users    []*admin.User
	orgUnits []*admin.OrgUnit
	pageSize int

	listErr    error
	orgUnitErr error
	insertErr  map[string]error
	deleteErr  map[string]error

	listCalls   []ListUsersRequest
	getCalls    []string
	inserted    []*admin.User
	deleted     []string
	insertCalls int
	deleteCalls int
}

func (f *fakeDirectory) mutations() int {
	return f.insertCalls + f.deleteCalls
}

func (f *fakeDirectory) ListUsers(_ context.Context, req ListUsersRequest) (*admin.Users, error) {
	f.listCalls = append(f.listCalls, req)
	if f.listErr != nil {
		return nil, f.listErr
	}

	var matched []*admin.User
	for _, u := range f.users {
		if req.Query != "" && orgUnitQuery(u.OrgUnitPath) != req.Query {
			continue
		}
		// The list projection carries neither the admin flag nor the OU.
		matched = append(matched, &admin.User{Id: u.Id, PrimaryEmail: u.PrimaryEmail, Name: u.Name})
	}

	start := 0
	if req.PageToken != "" {
		n, err := strconv.Atoi(req.PageToken)
		if err != nil {
			return nil, fmt.Errorf("bad page token %q", req.PageToken)
		}
		start = n
	}
	size := f.pageSize
	if size <= 0 {
		size = len(matched)
	}
	end := min(start+size, len(matched))

	resp := &admin.Users{Users: matched[start:end]}
	if end < len(matched) {
		resp.NextPageToken = strconv.Itoa(end)
	}
	return resp, nil
}

func (f *fakeDirectory) GetUser(_ context.Context, userKey string) (*admin.User, error) {
	f.getCalls = append(f.getCalls, userKey)
	for _, u := range f.users {
		if u.Id == userKey || u.PrimaryEmail == userKey {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %s not found", userKey)
}

func (f *fakeDirectory) InsertUser(_ context.Context, user *admin.User) (*admin.User, error) {
	f.insertCalls++
	if err := f.insertErr[user.PrimaryEmail]; err != nil {
		return nil, err
	}
	f.inserted = append(f.inserted, user)
	f.users = append(f.users, user)
	return user, nil
}

func (f *fakeDirectory) DeleteUser(_ context.Context, userKey string) error {
	f.deleteCalls++
	if err := f.deleteErr[userKey]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, userKey)
	return nil
}

func (f *fakeDirectory) ListOrgUnits(_ context.Context, _ string) ([]*admin.OrgUnit, error) {
	if f.orgUnitErr != nil {
		return nil, f.orgUnitErr
	}
	return f.orgUnits, nil
}

func testUser(id, email, fullName, ou string, isAdmin bool) *admin.User {
	return &admin.User{
		Id:           id,
		PrimaryEmail: email,
		Name:         &admin.UserName{FullName: fullName},
		OrgUnitPath:  ou,
		IsAdmin:      isAdmin,
	}
}

func testOrgUnits() []*admin.OrgUnit {
	return []*admin.OrgUnit{
		{Name: "Staff", OrgUnitPath: "/Staff"},
		{Name: "Students", OrgUnitPath: "/Students"},
	}
}

// newTestManager wires a Manager to dir with input fed line by line.
func newTestManager(dir *fakeDirectory, lines ...string) (*Manager, *bytes.Buffer) {
	out := &bytes.Buffer{}
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	return &Manager{
		Directory:  dir,
		Console:    NewConsole(in, out),
		CustomerID: "my_customer",
		Emails:     EmailDomain{Domain: "223cos.net", StudentTag: "stu"},
	}, out
}
