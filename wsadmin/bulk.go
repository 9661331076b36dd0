package wsadmin

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/coder/coder/v2/coderd/util/slice"
)

// BulkCreateUsers creates one account per CSV row, sharing a student flag,
// password and OU. Each row gets its own outcome in the returned report.
func (m *Manager) BulkCreateUsers(ctx context.Context) (*BatchReport, error) {
	report, err := m.bulkCreateUsers(ctx)
	if err != nil {
		return report, m.fail(err)
	}
	return report, nil
}

func (m *Manager) bulkCreateUsers(ctx context.Context) (*BatchReport, error) {
	path, err := m.Console.PromptTrimmed("Enter the path to the CSV file: ")
	if err != nil {
		return nil, err
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, m.abort("File does not exist.", ErrFileNotFound)
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return nil, m.abort("File does not exist.", ErrFileNotFound)
	}

	student, err := m.promptStudent()
	if err != nil {
		return nil, err
	}
	password, err := m.promptPassword("Enter password: ")
	if err != nil {
		return nil, err
	}

	// Unlike CreateUser, a blank selection leaves the OU empty here and the
	// API decides where the accounts land.
	var ou string
	if units := m.ListOrgUnits(ctx); len(units) > 0 {
		ou, err = m.chooseOrgUnit(units, "Select Organizational Unit by number (leave blank for default): ", true)
		if err != nil {
			return nil, err
		}
	}

	rows, err := readNameRows(path)
	if err != nil {
		return nil, err
	}

	report := NewBatchReport()
	logger := m.logger().With(slog.String("batch", report.ID.String()))

	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Err == nil {
			emails = append(emails, m.Emails.Email(row.First, row.Last, student))
		}
	}
	create := m.missingEmails(ctx, logger, emails)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if row.Err != nil {
			report.Add(fmt.Sprintf("line %d", row.Line), StatusFailed, row.Err)
			m.Console.Printf("Skipping line %d: %v\n", row.Line, row.Err)
			continue
		}

		email := m.Emails.Email(row.First, row.Last, student)
		if _, ok := create[email]; !ok {
			report.Add(email, StatusSkipped, nil)
			m.Console.Printf("User %s already exists, skipping.\n", email)
			continue
		}

		_, err := m.Directory.InsertUser(ctx, NewUserRequest(row.First, row.Last, email, password, ou))
		if err != nil {
			report.Add(email, StatusFailed, err)
			logger.Warn("failed to create user", slog.String("email", email), slog.Any("error", err))
			m.Console.Printf("Failed to create user %s: %s\n", email, apiMessage(err))
			continue
		}
		report.Add(email, StatusCreated, nil)
		m.Console.Printf("User %s created successfully.\n", email)
	}

	logger.Info("bulk create finished",
		slog.Int("created", report.Count(StatusCreated)),
		slog.Int("skipped", report.Count(StatusSkipped)),
		slog.Int("failed", report.Count(StatusFailed)))
	report.WriteSummary(m.Console.Out(), StatusCreated)
	return report, nil
}

// missingEmails returns the subset of emails that should be created. With
// SkipExisting set, addresses already present in the directory are left
// out. A failed lookup only costs the pre-check, the API still rejects
// duplicates.
func (m *Manager) missingEmails(ctx context.Context, logger *slog.Logger, emails []string) map[string]struct{} {
	create := emails
	if m.SkipExisting && len(emails) > 0 {
		users, err := GoogleUsers(ctx, m.Directory, m.CustomerID, "")
		if err != nil {
			logger.Warn("failed to list existing users, duplicates will not be skipped", slog.Any("error", err))
		} else {
			existing := make([]string, 0, len(users))
			for _, u := range users {
				existing = append(existing, strings.ToLower(u.PrimaryEmail))
			}
			// add holds the emails not yet in the directory.
			create, _ = slice.SymmetricDifference(existing, emails)
		}
	}

	set := make(map[string]struct{}, len(create))
	for _, email := range create {
		set[email] = struct{}{}
	}
	return set
}

// BulkDelete deletes every user of one organizational unit after an explicit
// confirmation.
func (m *Manager) BulkDelete(ctx context.Context) (*BatchReport, error) {
	report, err := m.bulkDelete(ctx)
	if err != nil {
		return report, m.fail(err)
	}
	return report, nil
}

func (m *Manager) bulkDelete(ctx context.Context) (*BatchReport, error) {
	units := m.ListOrgUnits(ctx)
	if len(units) == 0 {
		return nil, m.abort("No organizational units available.", ErrNoOrgUnits)
	}

	ou, err := m.chooseOrgUnit(units, "Select Organizational Unit by number: ", false)
	if err != nil {
		return nil, err
	}

	users, err := GoogleUsers(ctx, m.Directory, m.CustomerID, orgUnitQuery(ou))
	if err != nil {
		return nil, err
	}
	report := NewBatchReport()
	if len(users) == 0 {
		m.Console.Println("No users found in the selected OU.")
		return report, nil
	}

	for _, u := range users {
		m.Console.Println(u.PrimaryEmail)
	}

	confirm, err := m.Console.PromptTrimmed("Are you sure you want to delete all users in this OU? (y/N): ")
	if err != nil {
		return nil, err
	}
	if strings.ToLower(confirm) != "y" {
		return nil, m.abort("Operation cancelled.", ErrCancelled)
	}

	logger := m.logger().With(slog.String("batch", report.ID.String()), slog.String("org_unit", ou))
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		email := u.PrimaryEmail
		if err := m.Directory.DeleteUser(ctx, email); err != nil {
			report.Add(email, StatusFailed, err)
			logger.Warn("failed to delete user", slog.String("email", email), slog.Any("error", err))
			m.Console.Printf("Failed to delete user %s: %s\n", email, apiMessage(err))
			continue
		}
		report.Add(email, StatusDeleted, nil)
		m.Console.Printf("User %s deleted successfully.\n", email)
	}

	logger.Info("bulk delete finished",
		slog.Int("deleted", report.Count(StatusDeleted)),
		slog.Int("failed", report.Count(StatusFailed)))
	report.WriteSummary(m.Console.Out(), StatusDeleted)
	return report, nil
}

// nameRow is one data line of a bulk CSV: first name, last name.
type nameRow struct {
	Line  int
	First string
	Last  string
	Err   error
}

// readNameRows reads path, skipping the header row. Rows without exactly two
// fields carry an error instead of names.
func readNameRows(path string) ([]nameRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows []nameRow
	header := true
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		if header {
			header = false
			continue
		}

		line, _ := r.FieldPos(0)
		if len(record) != 2 {
			rows = append(rows, nameRow{
				Line: line,
				Err:  fmt.Errorf("expected 2 columns (first name, last name), got %d", len(record)),
			})
			continue
		}
		rows = append(rows, nameRow{
			Line:  line,
			First: strings.TrimSpace(record[0]),
			Last:  strings.TrimSpace(record[1]),
		})
	}
	return rows, nil
}
