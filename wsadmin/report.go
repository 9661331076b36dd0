package wsadmin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"
	admin "google.golang.org/api/admin/directory/v1"
)

// ListOrgUnits prints a numbered table of every organizational unit and
// returns them in the same order. It returns nil when there are none or the
// request failed, after telling the operator.
func (m *Manager) ListOrgUnits(ctx context.Context) []*admin.OrgUnit {
	units, err := m.Directory.ListOrgUnits(ctx, m.CustomerID)
	if err != nil {
		_ = m.fail(fmt.Errorf("failed to list organizational units: %w", err))
		return nil
	}
	if len(units) == 0 {
		m.Console.Println("No organizational units found.")
		return nil
	}

	m.Console.Println("Organizational Units:")
	WriteOrgUnitTable(m.Console.Out(), units)
	return units
}

// WriteOrgUnitTable renders units numbered from 1.
func WriteOrgUnitTable(w io.Writer, units []*admin.OrgUnit) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Number", "Name", "OrgUnitPath"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for i, ou := range units {
		table.Append([]string{strconv.Itoa(i + 1), ou.Name, ou.OrgUnitPath})
	}
	table.Render()
}

// ListAllUsers prints every user grouped by organizational unit.
func (m *Manager) ListAllUsers(ctx context.Context) error {
	if err := m.listAllUsers(ctx); err != nil {
		return m.fail(err)
	}
	return nil
}

func (m *Manager) listAllUsers(ctx context.Context) error {
	users, err := GoogleUsers(ctx, m.Directory, m.CustomerID, "")
	if err != nil {
		return err
	}
	if len(users) == 0 {
		m.Console.Println("No users found.")
		return nil
	}

	// The list projection has no admin flag or OU, so fetch each user in
	// full.
	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		key := u.Id
		if key == "" {
			key = u.PrimaryEmail
		}
		full, err := m.Directory.GetUser(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to get user %s: %w", u.PrimaryEmail, err)
		}
		rows = append(rows, NewUserRow(u, full))
	}
	m.logger().Debug("listed users", slog.Int("count", len(rows)))

	WriteUserTable(m.Console.Out(), rows)
	return nil
}

// UserRow is one line of the user report.
type UserRow struct {
	Email    string
	FullName string
	IsAdmin  bool
	OrgUnit  string
}

// NewUserRow takes the email and name from the listed user and the admin
// flag and OU from its full projection. An empty OU is the root.
func NewUserRow(listed, full *admin.User) UserRow {
	row := UserRow{
		Email:   listed.PrimaryEmail,
		OrgUnit: "/",
	}
	if listed.Name != nil {
		row.FullName = listed.Name.FullName
	}
	if full != nil {
		row.IsAdmin = full.IsAdmin
		if full.OrgUnitPath != "" {
			row.OrgUnit = full.OrgUnitPath
		}
	}
	return row
}

var userTableHeader = []string{"No.", "Email", "Full Name", "Admin", "Org Unit"}

// WriteUserTable sorts rows by OU (stable, so the email order from the API
// survives inside each OU) and prints them with numbering restarting at 1
// for every OU.
func WriteUserTable(w io.Writer, rows []UserRow) {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b UserRow) int {
		return strings.Compare(a.OrgUnit, b.OrgUnit)
	})
	groups := groupByOrgUnit(sorted)

	var cells [][]string
	for _, group := range groups {
		for i, row := range group {
			cells = append(cells, []string{
				strconv.Itoa(i + 1),
				row.Email,
				row.FullName,
				strconv.FormatBool(row.IsAdmin),
				row.OrgUnit,
			})
		}
	}

	widths := make([]int, len(userTableHeader))
	for i, h := range userTableHeader {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, line := range cells {
		for i, cell := range line {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	dashes := make([]string, len(widths))
	for i, n := range widths {
		dashes[i] = strings.Repeat("-", n)
	}

	writeRow(w, widths, userTableHeader)
	writeRow(w, widths, dashes)
	for _, line := range cells {
		writeRow(w, widths, line)
	}
}

func writeRow(w io.Writer, widths []int, cells []string) {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%-*s", widths[i], cell)
	}
	fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
}

// groupByOrgUnit splits rows into runs of equal OU. Rows must already be
// sorted by OU.
func groupByOrgUnit(rows []UserRow) [][]UserRow {
	var groups [][]UserRow
	for i, row := range rows {
		if i == 0 || row.OrgUnit != rows[i-1].OrgUnit {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], row)
	}
	return groups
}
