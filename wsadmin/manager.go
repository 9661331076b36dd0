package wsadmin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	admin "google.golang.org/api/admin/directory/v1"
)

var (
	ErrInvalidSelection = errors.New("invalid organizational unit selection")
	ErrNoOrgUnits       = errors.New("no organizational units available")
	ErrFileNotFound     = errors.New("file does not exist")
	ErrCancelled        = errors.New("operation cancelled")
)

// Manager runs the interactive user administration workflows. Every public
// workflow reports its own errors on the console and also returns them.
type Manager struct {
	Directory Directory
	Console   *Console
	Logger    *slog.Logger

	CustomerID   string
	Emails       EmailDomain
	SkipExisting bool
}

// New authorizes against Google and builds a Manager from cfg.
func New(ctx context.Context, cfg *Config, creds CredentialProvider, console *Console, logger *slog.Logger) (*Manager, error) {
	client, err := creds.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with google: %w", err)
	}

	dir, err := NewGoogleDirectory(ctx, client)
	if err != nil {
		return nil, err
	}

	return &Manager{
		Directory:    dir,
		Console:      console,
		Logger:       logger,
		CustomerID:   cfg.CustomerID,
		Emails:       cfg.Emails(),
		SkipExisting: cfg.SkipExisting,
	}, nil
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m.Logger
}

// CreateUser prompts for one account and creates it.
func (m *Manager) CreateUser(ctx context.Context) error {
	if err := m.createUser(ctx); err != nil {
		return m.fail(err)
	}
	return nil
}

func (m *Manager) createUser(ctx context.Context) error {
	first, err := m.Console.PromptTrimmed("Enter first name: ")
	if err != nil {
		return err
	}
	last, err := m.Console.PromptTrimmed("Enter last name: ")
	if err != nil {
		return err
	}
	student, err := m.promptStudent()
	if err != nil {
		return err
	}
	email := m.Emails.Email(first, last, student)

	password, err := m.promptPassword("Enter password (12-100 characters, including numbers, uppercase and lowercase letters, and special characters): ")
	if err != nil {
		return err
	}

	var ou string
	if units := m.ListOrgUnits(ctx); len(units) > 0 {
		ou, err = m.chooseOrgUnit(units, "Select Organizational Unit by number (leave blank for default): ", true)
		if err != nil {
			return err
		}
	}
	if ou == "" {
		ou = "/"
	}

	if _, err := m.Directory.InsertUser(ctx, NewUserRequest(first, last, email, password, ou)); err != nil {
		return fmt.Errorf("failed to create user %s: %w", email, err)
	}
	m.logger().Info("created user", slog.String("email", email), slog.String("org_unit", ou))
	m.Console.Printf("User %s created successfully.\n", email)
	return nil
}

// DeleteUser prompts for an email and deletes that account.
func (m *Manager) DeleteUser(ctx context.Context) error {
	email, err := m.Console.PromptTrimmed("Enter email of user to delete: ")
	if err != nil {
		return m.fail(err)
	}
	if err := m.Directory.DeleteUser(ctx, email); err != nil {
		return m.fail(fmt.Errorf("failed to delete user %s: %w", email, err))
	}
	m.logger().Info("deleted user", slog.String("email", email))
	m.Console.Printf("User %s deleted successfully.\n", email)
	return nil
}

// promptStudent treats anything but "n" as a student.
func (m *Manager) promptStudent() (bool, error) {
	answer, err := m.Console.PromptTrimmed("Is this a student? (Y/n): ")
	if err != nil {
		return false, err
	}
	return strings.ToLower(answer) != "n", nil
}

// promptPassword asks until both entries match and pass ValidPassword. Only
// an input error ends the loop early.
func (m *Manager) promptPassword(label string) (string, error) {
	for {
		password, err := m.Console.PromptSecret(label)
		if err != nil {
			return "", err
		}
		confirm, err := m.Console.PromptSecret("Confirm password: ")
		if err != nil {
			return "", err
		}

		if password != confirm {
			m.Console.Println("Passwords do not match, please try again.")
			continue
		}
		if ValidPassword(password) {
			return password, nil
		}
		m.Console.Println("Invalid password, please try again.")
	}
}

// chooseOrgUnit maps a 1-based selection to an OU path. A blank answer
// returns "" when allowBlank is set.
func (m *Manager) chooseOrgUnit(units []*admin.OrgUnit, label string, allowBlank bool) (string, error) {
	choice, err := m.Console.PromptTrimmed(label)
	if err != nil {
		return "", err
	}
	if choice == "" && allowBlank {
		return "", nil
	}

	n, ok := parseSelection(choice, len(units))
	if !ok {
		return "", m.abort("Invalid Organizational Unit selection.", ErrInvalidSelection)
	}
	return units[n-1].OrgUnitPath, nil
}

// parseSelection accepts only plain digits in [1, count].
func parseSelection(s string, count int) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > count {
		return 0, false
	}
	return n, true
}

// reportedError has already been explained to the operator.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error { return e.error }

// abort prints msg and returns err marked as reported.
func (m *Manager) abort(msg string, err error) error {
	m.Console.Println(msg)
	return reportedError{err}
}

// fail prints err unless it was already reported and returns it.
func (m *Manager) fail(err error) error {
	var reported reportedError
	if !errors.As(err, &reported) {
		m.Console.Printf("An error occurred: %v\n", err)
	}
	m.logger().Debug("workflow failed", slog.Any("error", err))
	return err
}
