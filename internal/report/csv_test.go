package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVBytes(t *testing.T) {
	data, err := CSVBytes(testReport())
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(data, utf8BOM), "missing UTF-8 BOM")

	lines := strings.Split(strings.TrimSpace(string(bytes.TrimPrefix(data, utf8BOM))), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "문제 번호,오답률(%),틀린 학생 수", lines[0])
	assert.Equal(t, "m1-1,33.3,1", lines[1])
	assert.Equal(t, "m1-2,0.0,0", lines[2])
	assert.Equal(t, "m2-1,30.0,3", lines[3])
}

func TestSaveCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "통계.csv")
	require.NoError(t, SaveCSV(path, testReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
	assert.Contains(t, string(data), "m1-1,33.3,1")
}
