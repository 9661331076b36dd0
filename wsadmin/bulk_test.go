package wsadmin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	admin "google.golang.org/api/admin/directory/v1"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestBulkCreateUsers(t *testing.T) {
	ctx := context.Background()
	csvPath := writeCSV(t, "First,Last\nJane,Doe\nJohn,Smith\nBad\nAmy,Lee\n")

	t.Run("continues past failures and skips existing", func(t *testing.T) {
		dir := &fakeDirectory{
			orgUnits: testOrgUnits(),
			users: []*admin.User{
				testUser("1", "john.smith.stu@223cos.net", "John Smith", "/Students", false),
			},
			insertErr: map[string]error{
				"amy.lee.stu@223cos.net": errors.New("backend error"),
			},
		}
		m, out := newTestManager(dir, csvPath, "y", goodPassword, goodPassword, "")
		m.SkipExisting = true

		report, err := m.BulkCreateUsers(ctx)
		require.NoError(t, err)
		require.NotNil(t, report)

		require.Len(t, dir.inserted, 1)
		assert.Equal(t, "jane.doe.stu@223cos.net", dir.inserted[0].PrimaryEmail)
		// A blank selection leaves the OU empty for bulk creation.
		assert.Equal(t, "", dir.inserted[0].OrgUnitPath)
		assert.Equal(t, goodPassword, dir.inserted[0].Password)
		// Jane and Amy were attempted, John was skipped, the bad row never reached the API.
		assert.Equal(t, 2, dir.insertCalls)

		require.Len(t, report.Outcomes, 4)
		assert.Equal(t, Outcome{Email: "jane.doe.stu@223cos.net", Status: StatusCreated}, report.Outcomes[0])
		assert.Equal(t, Outcome{Email: "john.smith.stu@223cos.net", Status: StatusSkipped}, report.Outcomes[1])
		assert.Equal(t, "line 4", report.Outcomes[2].Email)
		assert.Equal(t, StatusFailed, report.Outcomes[2].Status)
		assert.Equal(t, "amy.lee.stu@223cos.net", report.Outcomes[3].Email)
		assert.Equal(t, StatusFailed, report.Outcomes[3].Status)

		assert.Contains(t, out.String(), "User jane.doe.stu@223cos.net created successfully.\n")
		assert.Contains(t, out.String(), "Created: 1, Skipped: 1, Failed: 2\n")
	})

	t.Run("staff in selected unit without pre-check", func(t *testing.T) {
		dir := &fakeDirectory{orgUnits: testOrgUnits()}
		m, _ := newTestManager(dir, csvPath, "n", goodPassword, goodPassword, "1")

		report, err := m.BulkCreateUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Count(StatusCreated))
		assert.Empty(t, dir.listCalls)

		var emails []string
		for _, u := range dir.inserted {
			emails = append(emails, u.PrimaryEmail)
			assert.Equal(t, "/Staff", u.OrgUnitPath)
		}
		assert.Equal(t, []string{"jane.doe@223cos.net", "john.smith@223cos.net", "amy.lee@223cos.net"}, emails)
	})

	t.Run("missing file", func(t *testing.T) {
		dir := &fakeDirectory{orgUnits: testOrgUnits()}
		m, out := newTestManager(dir, filepath.Join(t.TempDir(), "nope.csv"))

		_, err := m.BulkCreateUsers(ctx)
		require.ErrorIs(t, err, ErrFileNotFound)
		assert.Equal(t, "Enter the path to the CSV file: File does not exist.\n", out.String())
		assert.Zero(t, dir.mutations())
	})

	t.Run("invalid selection", func(t *testing.T) {
		dir := &fakeDirectory{orgUnits: testOrgUnits()}
		m, _ := newTestManager(dir, csvPath, "y", goodPassword, goodPassword, "x")

		_, err := m.BulkCreateUsers(ctx)
		require.ErrorIs(t, err, ErrInvalidSelection)
		assert.Zero(t, dir.mutations())
	})
}

func TestReadNameRows(t *testing.T) {
	path := writeCSV(t, "first,last\n Jane , Doe\n\"Mary, Ann\",Lee\nA,B,C\n")

	rows, err := readNameRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, nameRow{Line: 2, First: "Jane", Last: "Doe"}, rows[0])
	assert.Equal(t, "Mary, Ann", rows[1].First)
	assert.Equal(t, 4, rows[2].Line)
	assert.Error(t, rows[2].Err)

	rows, err = readNameRows(writeCSV(t, ""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func bulkDeleteDirectory() *fakeDirectory {
	return &fakeDirectory{
		orgUnits: testOrgUnits(),
		pageSize: 1,
		users: []*admin.User{
			testUser("1", "a@223cos.net", "A", "/Staff", false),
			testUser("2", "b@223cos.net", "B", "/Staff", false),
			testUser("3", "c@223cos.net", "C", "/Students", false),
		},
	}
}

func TestBulkDelete(t *testing.T) {
	ctx := context.Background()

	for _, answer := range []string{"y", "Y", " y "} {
		t.Run("confirmed "+answer, func(t *testing.T) {
			dir := bulkDeleteDirectory()
			m, out := newTestManager(dir, "1", answer)

			report, err := m.BulkDelete(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a@223cos.net", "b@223cos.net"}, dir.deleted)
			assert.Equal(t, 2, report.Count(StatusDeleted))
			assert.Contains(t, out.String(), "a@223cos.net\nb@223cos.net\n")
			assert.Contains(t, out.String(), "User b@223cos.net deleted successfully.\n")

			for _, call := range dir.listCalls {
				assert.Equal(t, "orgUnitPath=/Staff", call.Query)
				assert.Equal(t, "email", call.OrderBy)
			}
			// No full projection fetches for bulk delete.
			assert.Empty(t, dir.getCalls)
		})
	}

	for _, answer := range []string{"n", "", "yes", "no"} {
		t.Run("not confirmed "+answer, func(t *testing.T) {
			dir := bulkDeleteDirectory()
			m, out := newTestManager(dir, "1", answer)

			_, err := m.BulkDelete(ctx)
			require.ErrorIs(t, err, ErrCancelled)
			assert.Contains(t, out.String(), "Operation cancelled.\n")
			assert.Zero(t, dir.deleteCalls)
		})
	}

	t.Run("blank selection is invalid", func(t *testing.T) {
		dir := bulkDeleteDirectory()
		m, out := newTestManager(dir, "")

		_, err := m.BulkDelete(ctx)
		require.ErrorIs(t, err, ErrInvalidSelection)
		assert.Contains(t, out.String(), "Invalid Organizational Unit selection.\n")
		assert.Empty(t, dir.listCalls)
		assert.Zero(t, dir.mutations())
	})

	t.Run("no organizational units", func(t *testing.T) {
		m, out := newTestManager(&fakeDirectory{})

		_, err := m.BulkDelete(ctx)
		require.ErrorIs(t, err, ErrNoOrgUnits)
		assert.Contains(t, out.String(), "No organizational units available.\n")
	})

	t.Run("empty unit", func(t *testing.T) {
		dir := &fakeDirectory{orgUnits: testOrgUnits()}
		m, out := newTestManager(dir, "2")

		report, err := m.BulkDelete(ctx)
		require.NoError(t, err)
		assert.Empty(t, report.Outcomes)
		assert.Contains(t, out.String(), "No users found in the selected OU.\n")
		assert.Zero(t, dir.mutations())
	})

	t.Run("failure does not stop the batch", func(t *testing.T) {
		dir := bulkDeleteDirectory()
		dir.deleteErr = map[string]error{"a@223cos.net": errors.New("forbidden")}
		m, out := newTestManager(dir, "1", "y")

		report, err := m.BulkDelete(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, dir.deleteCalls)
		assert.Equal(t, []string{"b@223cos.net"}, dir.deleted)
		assert.Equal(t, 1, report.Count(StatusDeleted))
		assert.Equal(t, 1, report.Count(StatusFailed))
		assert.Contains(t, out.String(), "Failed to delete user a@223cos.net: forbidden\n")
		assert.Contains(t, out.String(), "Deleted: 1, Skipped: 0, Failed: 1\n")
	})
}
