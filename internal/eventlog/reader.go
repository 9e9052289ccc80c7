package eventlog

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"regexp"
)

// TruncateMode selects how Read shrinks a response that exceeds
// MaxResponseBytes (spec §4.B).
type TruncateMode string

const (
	// TruncatePrefix preserves a leading prefix and appends a marker.
	TruncatePrefix TruncateMode = "prefix"
	// TruncateAggressive preserves a prefix, a marker, and samples from the
	// middle of the file in addition to the prefix.
	TruncateAggressive TruncateMode = "aggressive"
	// TruncateSummary keeps only lines matching the configured
	// error/status/key-finding signal set.
	TruncateSummary TruncateMode = "summary"
)

// DefaultSummarySignals is the built-in error/status/key-finding sampler
// (spec §4.B "summary mode"): lines containing one of these substrings
// (case-insensitive) are considered worth keeping on their own.
var DefaultSummarySignals = []string{
	"error", "fail", "exception", "panic",
	"completed", "blocked", "terminated",
	"insight", "blocker", "critical",
}

const truncationMarker = "\n...[truncated]\n"

// Reader provides bounded, format-aware reads over a single event log file.
type Reader struct {
	path string
}

// NewReader returns a Reader over path. The file need not exist yet; reads
// of a missing file return an empty result, not an error.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// ReadOptions configures a single Read call.
type ReadOptions struct {
	// Tail, if > 0, limits the result to the last Tail lines (reverse-seek,
	// does not load the whole file for large logs).
	Tail int

	// Filter, if non-nil, keeps only lines matching the regexp.
	Filter *regexp.Regexp

	// MaxLineBytes caps each individual line; 0 = unlimited.
	MaxLineBytes int

	// MaxResponseBytes caps the total serialized response; 0 = unlimited.
	MaxResponseBytes int

	// Mode selects the truncation strategy when MaxResponseBytes is
	// exceeded. Defaults to TruncatePrefix.
	Mode TruncateMode

	// SummarySignals overrides DefaultSummarySignals for TruncateSummary.
	SummarySignals []string

	// AggressiveTruncate additionally applies mid-file sampling even when
	// Mode is left as the zero value, mirroring response_format=="compact"
	// (spec §4.H): caller convenience over setting Mode explicitly.
	AggressiveTruncate bool
}

// ReadResult is the outcome of a Read call.
type ReadResult struct {
	Lines            []string
	TotalLines       int // lines read (the last Tail lines when Tail > 0) before Filter was applied
	Truncated        bool
	SkippedMalformed int
}

// Read applies Tail, then Filter, then the byte caps, in that order, the
// same pipeline spec §4.H composes for output reads.
func (r *Reader) Read(opts ReadOptions) (*ReadResult, error) {
	var lines []string
	var total int
	var err error

	if opts.Tail > 0 {
		lines, err = r.readTail(opts.Tail)
		total = len(lines)
	} else {
		lines, err = r.readAll()
		total = len(lines)
	}
	if err != nil {
		return nil, err
	}

	if opts.Filter != nil {
		filtered := lines[:0:0]
		for _, l := range lines {
			if opts.Filter.MatchString(l) {
				filtered = append(filtered, l)
			}
		}
		lines = filtered
	}

	res := &ReadResult{Lines: lines, TotalLines: total}

	if opts.MaxLineBytes > 0 {
		for i, l := range lines {
			if len(l) > opts.MaxLineBytes {
				lines[i] = l[:opts.MaxLineBytes] + "...[line truncated]"
			}
		}
	}

	mode := opts.Mode
	if mode == "" && opts.AggressiveTruncate {
		mode = TruncateAggressive
	}
	if mode == "" {
		mode = TruncatePrefix
	}

	if opts.MaxResponseBytes > 0 {
		lines, truncated := truncateResponse(lines, opts.MaxResponseBytes, mode, opts.SummarySignals)
		res.Lines = lines
		res.Truncated = truncated
	}

	return res, nil
}

// readAll streams the file line by line; it is the fallback path used when
// no Tail bound is given.
func (r *Reader) readAll() ([]string, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("scan %s: %w", r.path, err)
	}
	return lines, nil
}

// readTailChunkSize is the backward-read block size for readTail.
const readTailChunkSize = 64 * 1024

// readTail returns the last n lines of the file via reverse-seek-and-scan,
// never loading the whole file (spec §4.B, §8 boundary: a 1GiB file with
// n=100 must resolve in well under 100ms on local disk).
func (r *Reader) readTail(n int) ([]string, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", r.path, err)
	}
	size := info.Size()
	if size == 0 {
		return nil, nil
	}

	var (
		buf        []byte
		newlines   int
		pos        = size
		foundStart int64
	)

	chunk := make([]byte, readTailChunkSize)
	for pos > 0 && newlines <= n {
		readSize := int64(readTailChunkSize)
		if readSize > pos {
			readSize = pos
		}
		pos -= readSize

		if _, err := f.ReadAt(chunk[:readSize], pos); err != nil {
			return nil, fmt.Errorf("read %s at %d: %w", r.path, pos, err)
		}

		buf = append(append([]byte{}, chunk[:readSize]...), buf...)
		newlines = bytes.Count(buf, []byte{'\n'})
		foundStart = pos
	}
	_ = foundStart

	// Drop the final newline so it does not yield an empty last line.
	text := string(buf)
	if len(text) > 0 && text[len(text)-1] == '\n' {
		text = text[:len(text)-1]
	}
	allLines := splitLines(text)

	// Drop a possible truncated first line when we didn't read from BOF,
	// before keeping the last n.
	if pos > 0 && len(allLines) > 0 {
		allLines = allLines[1:]
	}
	if len(allLines) > n {
		allLines = allLines[len(allLines)-n:]
	}
	if pos > 0 && len(allLines) < n {
		// Fewer than n complete lines survived the trim; fall back to the
		// wider pass.
		if wider, err := r.readTailWide(n, size); err == nil {
			return wider, nil
		}
	}
	return allLines, nil
}

// readTailWide is the correction pass for readTail's boundary case: it
// re-reads with a chunk budget guaranteed to cover n lines even when lines
// are unusually long.
func (r *Reader) readTailWide(n int, size int64) ([]string, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	readSize := size
	if readSize > 8*1024*1024 {
		readSize = 8 * 1024 * 1024
	}
	buf := make([]byte, readSize)
	if _, err := f.ReadAt(buf, size-readSize); err != nil {
		return nil, err
	}
	text := string(buf)
	if idx := bytes.IndexByte(buf, '\n'); idx >= 0 && size-readSize > 0 {
		text = string(buf[idx+1:])
	}
	if len(text) > 0 && text[len(text)-1] == '\n' {
		text = text[:len(text)-1]
	}
	lines := splitLines(text)
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
