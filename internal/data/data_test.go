// File: internal/data/data_test.go
package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

func TestDecodeSteps(t *testing.T) {
	const payload = `[
		{"event": "open", "value": "https://example.test/login"},
		{
			"event": "input",
			"label": "Username",
			"value": "admin",
			"path": "//*[@id='user']",
			"bundle": {"tag": "input", "id": "user", "name": "username", "dataAttrs": {"data-testid": "user-field"}}
		},
		{"event": "click", "bundle": {"tag": "button", "text": "Sign In"}}
	]`

	steps, err := DecodeSteps(strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, steps, 3)

	assert.Equal(t, schemas.EventOpen, steps[0].Event)
	assert.Equal(t, "https://example.test/login", steps[0].Value)

	assert.Equal(t, schemas.EventInput, steps[1].Event)
	assert.Equal(t, "Username", steps[1].Label)
	assert.Equal(t, "user", steps[1].Bundle.ID)
	assert.Equal(t, "user-field", steps[1].Bundle.DataAttrs["data-testid"])
	assert.Equal(t, "//*[@id='user']", steps[1].Path)

	assert.Equal(t, schemas.EventClick, steps[2].Event)
	assert.False(t, steps[2].Bundle.Empty())
}

func TestDecodeSteps_MalformedPayload(t *testing.T) {
	_, err := DecodeSteps(strings.NewReader(`{"event": "click"`))
	assert.Error(t, err)
}

func TestDecodeRows(t *testing.T) {
	const payload = "Username,Password,Note\nalice,s3cret,first\nbob,hunter2\n"

	rows, err := DecodeRows(strings.NewReader(payload))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, schemas.Row{"Username": "alice", "Password": "s3cret", "Note": "first"}, rows[0])

	// Short records leave trailing columns absent, not empty.
	assert.Equal(t, "bob", rows[1]["Username"])
	_, present := rows[1]["Note"]
	assert.False(t, present)
}

func TestDecodeRows_EmptyInput(t *testing.T) {
	rows, err := DecodeRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, rows)

	// A header alone yields no rows either.
	rows, err = DecodeRows(strings.NewReader("Username,Password\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoadRows_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.csv")
	require.NoError(t, os.WriteFile(path, []byte("Email\na@example.test\nb@example.test\n"), 0o600))

	rows, err := LoadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a@example.test", rows[0]["Email"])

	_, err = LoadRows(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLoadSteps_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"event":"open","value":"https://example.test"}]`), 0o600))

	steps, err := LoadSteps(path)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, schemas.EventOpen, steps[0].Event)
}

func TestLoadMappings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`mappings:
  user_col: Username
  pass_col: Password
`), 0o600))

	m, err := LoadMappings(path)
	require.NoError(t, err)
	assert.Equal(t, "Username", m["user_col"])
	assert.Equal(t, "Password", m["pass_col"])

	malformed := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(malformed, []byte("mappings: [not, a, map]\n"), 0o600))
	_, err = LoadMappings(malformed)
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("other: {}\n"), 0o600))
	m, err = LoadMappings(empty)
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = LoadMappings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadMappings_PreservesColumnCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`mappings:
  User_Col: Username
  EMAIL: Email
`), 0o600))

	m, err := LoadMappings(path)
	require.NoError(t, err)

	// CSV headers match verbatim, so the keys must come back exactly as
	// written in the file.
	assert.Equal(t, "Username", m["User_Col"])
	assert.Equal(t, "Email", m["EMAIL"])
	_, lowered := m["user_col"]
	assert.False(t, lowered)
}
