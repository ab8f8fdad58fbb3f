package controller

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContactImport(t *testing.T) {
	csvData := "email,first_name,last_name,company,tags\n" +
		"jane@example.com,Jane,Doe,Acme,vip;trial\n" +
		"john@example.com,John,,,\n"

	rows, skipped, importErrors, err := parseContactImport(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, skipped)
	assert.Empty(t, importErrors)

	assert.Equal(t, "jane@example.com", rows[0].Email)
	assert.Equal(t, "Jane", rows[0].FirstName)
	assert.Equal(t, "Acme", rows[0].Company)
	assert.Equal(t, []string{"trial", "vip"}, rows[0].Tags)
	assert.Equal(t, 2, rows[0].Line)

	assert.Equal(t, "john@example.com", rows[1].Email)
	assert.Empty(t, rows[1].Tags)
}

func TestParseContactImportContinuesPastMalformedRows(t *testing.T) {
	// Rows 3 and 4 are ragged (too few / too many fields); row 5 is fine again
	csvData := "email,first_name,last_name\n" +
		"first@example.com,First,One\n" +
		"ragged@example.com,Only\n" +
		"extra@example.com,Too,Many,Fields\n" +
		"last@example.com,Last,Five\n"

	rows, skipped, importErrors, err := parseContactImport(strings.NewReader(csvData))
	require.NoError(t, err)

	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		emails = append(emails, row.Email)
	}
	assert.Equal(t, []string{"first@example.com", "last@example.com"}, emails,
		"rows after a malformed one must still import")

	assert.Equal(t, 2, skipped)
	require.Len(t, importErrors, 2)
	assert.Contains(t, importErrors[0], "line 3")
	assert.Contains(t, importErrors[1], "line 4")
}

func TestParseContactImportSkipsInvalidEmails(t *testing.T) {
	csvData := "email,first_name\n" +
		"not-an-email,Bad\n" +
		",Empty\n" +
		"ok@example.com,Good\n"

	rows, skipped, importErrors, err := parseContactImport(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ok@example.com", rows[0].Email)
	assert.Equal(t, 2, skipped)
	require.Len(t, importErrors, 1)
	assert.Contains(t, importErrors[0], "invalid email")
}

func TestParseContactImportNormalizesEmailCase(t *testing.T) {
	rows, _, _, err := parseContactImport(strings.NewReader("email\nJane@Example.COM\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "jane@example.com", rows[0].Email)
}

func TestParseContactImportHeaderErrors(t *testing.T) {
	_, _, _, err := parseContactImport(strings.NewReader(""))
	assert.Error(t, err)

	_, _, _, err = parseContactImport(strings.NewReader("first_name,last_name\nJane,Doe\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email column")
}
