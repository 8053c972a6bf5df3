package helper

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	a, err := GenerateUUID()
	require.NoError(t, err)
	b, err := GenerateUUID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	_, err = uuid.Parse(a)
	assert.NoError(t, err)
}

func TestCreateFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	assert.False(t, FolderExists(dir))
	require.NoError(t, CreateFolder(dir))
	assert.True(t, FolderExists(dir))
	// second call is a no-op
	require.NoError(t, CreateFolder(dir))
}

func TestPrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	PrettyPrint(&buf, map[string]int{"chunks": 2})
	assert.Equal(t, "{\n  \"chunks\": 2\n}\n", buf.String())
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupLogger(&buf, "info"))
	assert.Error(t, SetupLogger(&buf, "loud"))
}

func TestAPIToken(t *testing.T) {
	assert.Equal(t, "sk-1", APIToken("Bearer sk-1"))
	assert.Equal(t, "sk-1", APIToken(" sk-1 "))
	assert.Equal(t, "none", APIToken(""))
}
