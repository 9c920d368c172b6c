package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLogToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.log")

	// before init nothing is written and nothing panics
	WriteLogToFile("success", "early", nil, nil)

	InitLogFile(path, FileOptions{MaxSizeMB: 1})
	errMsg := "boom"
	WriteLogToFile("failed", "Test.Source", map[string]any{"user_id": 7}, &errMsg)
	WriteLogToFile("success", "Test.Source", nil, nil)
	CloseLogFile()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []LogData
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var d LogData
		require.NoError(t, json.Unmarshal(sc.Bytes(), &d))
		lines = append(lines, d)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "failed", lines[0].Status)
	require.NotNil(t, lines[0].ErrorDetails)
	assert.Equal(t, "boom", *lines[0].ErrorDetails)
	assert.Nil(t, lines[1].ErrorDetails)
}

func TestSetLevel(t *testing.T) {
	prev := log.GetLevel()
	t.Cleanup(func() { log.SetLevel(prev) })

	SetLevel("WARN")
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
	SetLevel("chatty")
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
}
