package playlistlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	headerPrefix = "----- Playlist Callback at "
	headerSuffix = " -----"
)

// Entry is one archived playlist callback.
type Entry struct {
	At      time.Time
	Payload string
}

// TailOptions selects which archive entries Tail returns.
//
// A negative Offset returns the last Limit entries of the archive. A
// non-negative Offset returns entries appended after that byte position. With
// Follow and a positive Wait, Tail polls until at least one entry arrives or
// Wait elapses.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries entries and the offset to resume from.
type TailResult struct {
	Entries []Entry
	Offset  int64
}

// Tail reads archive entries from path.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			if opts.Follow && opts.Wait > 0 {
				return waitForEntries(ctx, path, 0, opts.Wait)
			}
			return result, nil
		}
		return result, fmt.Errorf("stat playlist archive: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("playlist archive %q is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	if opts.Offset < 0 {
		entries, offset, err := readEntries(path, 0)
		if err != nil {
			return result, err
		}
		if opts.Limit > 0 && len(entries) > opts.Limit {
			entries = entries[len(entries)-opts.Limit:]
		}
		if opts.Limit <= 0 {
			entries = nil
		}
		result.Entries = entries
		result.Offset = offset
		if opts.Follow && opts.Wait > 0 && len(entries) == 0 {
			return waitForEntries(ctx, path, offset, opts.Wait)
		}
		return result, nil
	}

	offset := opts.Offset
	if offset > info.Size() {
		offset = info.Size()
	}
	entries, next, err := readEntries(path, offset)
	if err != nil {
		return result, err
	}
	result.Entries = entries
	result.Offset = next
	if opts.Follow && opts.Wait > 0 && len(entries) == 0 {
		return waitForEntries(ctx, path, next, opts.Wait)
	}
	return result, nil
}

func readEntries(path string, offset int64) ([]Entry, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open playlist archive: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek playlist archive: %w", err)
	}
	entries, err := ParseEntries(file)
	if err != nil {
		return nil, 0, err
	}
	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine archive offset: %w", err)
	}
	return entries, next, nil
}

// ParseEntries splits archive text into entries. Text before the first
// header is ignored.
func ParseEntries(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		entries []Entry
		current *Entry
		body    []string
	)
	flush := func() {
		if current == nil {
			return
		}
		for len(body) > 0 && body[len(body)-1] == "" {
			body = body[:len(body)-1]
		}
		current.Payload = strings.Join(body, "\n")
		entries = append(entries, *current)
		current, body = nil, nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if at, ok := parseHeader(line); ok {
			flush()
			current = &Entry{At: at}
			continue
		}
		if current != nil {
			body = append(body, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read playlist archive: %w", err)
	}
	flush()
	return entries, nil
}

func parseHeader(line string) (time.Time, bool) {
	if !strings.HasPrefix(line, headerPrefix) || !strings.HasSuffix(line, headerSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(line, headerPrefix), headerSuffix)
	at, err := time.ParseInLocation(TimestampLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

func waitForEntries(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		entries, next, err := readEntries(path, offset)
		if err != nil {
			return result, err
		}
		if len(entries) > 0 {
			result.Entries = entries
			result.Offset = next
			return result, nil
		}
		if next > 0 {
			result.Offset = next
		}
		if time.Now().After(deadline) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
