package eventlog

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAppendAndReadAll(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent_progress.jsonl")

	w, err := OpenWriter(path)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Append(ProgressEntry{AgentID: "a1", Progress: i * 20, Message: "step"}))
	}

	r := NewReader(path)
	res, err := r.Read(ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Lines, 5)
	assert.Equal(t, 5, res.TotalLines)
}

func TestReaderTailReturnsLastN(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stream.jsonl")

	w, err := OpenWriter(path)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		require.NoError(t, w.AppendLine([]byte(`{"n":`+itoa(i)+`}`)))
	}
	require.NoError(t, w.Close())

	r := NewReader(path)
	res, err := r.Read(ReadOptions{Tail: 5})
	require.NoError(t, err)
	require.Len(t, res.Lines, 5)
	assert.Contains(t, res.Lines[len(res.Lines)-1], "49")
}

func TestReaderTailAcrossMultipleChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big_stream.jsonl")

	w, err := OpenWriter(path)
	require.NoError(t, err)

	// Each line is padded to ~300 bytes so readTailChunkSize (64 KiB) is
	// crossed well before the file ends, forcing readTail's reverse-seek
	// loop through several chunk iterations rather than resolving in one.
	const lineCount = 1000
	padding := make([]byte, 250)
	for i := range padding {
		padding[i] = 'x'
	}
	for i := 0; i < lineCount; i++ {
		line := `{"n":` + itoa(i) + `,"pad":"` + string(padding) + `"}`
		require.NoError(t, w.AppendLine([]byte(line)))
	}
	require.NoError(t, w.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(3*readTailChunkSize), "fixture must force multiple chunk iterations")

	r := NewReader(path)
	const n = 600
	res, err := r.Read(ReadOptions{Tail: n})
	require.NoError(t, err)
	require.Len(t, res.Lines, n)

	// The returned lines must be exactly the last n, in order, with no
	// off-by-one drop or duplication at the chunk boundary.
	for i, line := range res.Lines {
		wantN := lineCount - n + i
		assert.Contains(t, line, `"n":`+itoa(wantN)+",")
	}
	assert.Contains(t, res.Lines[len(res.Lines)-1], itoa(lineCount-1))
}

func TestReaderMissingFileIsEmpty(t *testing.T) {
	r := NewReader(filepath.Join(t.TempDir(), "missing.jsonl"))
	res, err := r.Read(ReadOptions{Tail: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Lines)
}

func TestReaderFilterMatchesRegex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "findings.jsonl")
	w, err := OpenWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.AppendLine([]byte(`{"category":"bug"}`)))
	require.NoError(t, w.AppendLine([]byte(`{"category":"insight"}`)))
	require.NoError(t, w.Close())

	r := NewReader(path)
	res, err := r.Read(ReadOptions{Filter: regexp.MustCompile("insight")})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	assert.Contains(t, res.Lines[0], "insight")
}

func TestTruncatePrefixShrinksToMaxBytes(t *testing.T) {
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = "line of moderate length used to pad this entry out a bit"
	}
	out, truncated := truncateResponse(lines, 500, TruncatePrefix, nil)
	assert.True(t, truncated)
	assert.Less(t, totalBytes(out), 600)
}

func TestTruncateSummaryKeepsSignalLines(t *testing.T) {
	lines := []string{"routine step one", "ERROR: disk full", "routine step two", "agent completed successfully"}
	out := truncateSummary(lines, 1000, nil)
	assert.Len(t, out, 2)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
