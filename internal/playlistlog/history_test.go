package playlistlog_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pulsebridge/internal/playlistlog"
)

func writeArchive(t *testing.T, payloads ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "playlist.json")
	w := playlistlog.New(path, nil, playlistlog.WithClock(fixedClock))
	for _, p := range payloads {
		if err := w.Append([]byte(p)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return path
}

func TestParseEntries(t *testing.T) {
	text := "stray line\n" +
		"----- Playlist Callback at 2024-12-24 18:30:05 -----\n{\"a\":1}\n\n" +
		"----- Playlist Callback at 2024-12-24 18:31:00 -----\nline one\nline two\n\n"
	entries, err := playlistlog.ParseEntries(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Payload != `{"a":1}` || !entries[0].At.Equal(fixedClock()) {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Payload != "line one\nline two" {
		t.Fatalf("unexpected multi-line payload %q", entries[1].Payload)
	}
}

func TestTailLastEntries(t *testing.T) {
	path := writeArchive(t, `{"n":1}`, `{"n":2}`, `{"n":3}`)

	result, err := playlistlog.Tail(context.Background(), path, playlistlog.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Entries) != 2 || result.Entries[0].Payload != `{"n":2}` || result.Entries[1].Payload != `{"n":3}` {
		t.Fatalf("unexpected entries %+v", result.Entries)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if result.Offset != info.Size() {
		t.Fatalf("offset = %d, want %d", result.Offset, info.Size())
	}
}

func TestTailMissingArchive(t *testing.T) {
	result, err := playlistlog.Tail(context.Background(), filepath.Join(t.TempDir(), "none.json"), playlistlog.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(result.Entries) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestTailRejectsDirectory(t *testing.T) {
	if _, err := playlistlog.Tail(context.Background(), t.TempDir(), playlistlog.TailOptions{Offset: -1, Limit: 1}); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestTailFollowWaitsForNewEntries(t *testing.T) {
	path := writeArchive(t, `{"n":1}`)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	first, err := playlistlog.Tail(ctx, path, playlistlog.TailOptions{Offset: -1, Limit: 1})
	if err != nil {
		t.Fatalf("initial Tail: %v", err)
	}

	done := make(chan playlistlog.TailResult, 1)
	go func() {
		res, err := playlistlog.Tail(ctx, path, playlistlog.TailOptions{Offset: first.Offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow Tail: %v", err)
		}
		done <- res
	}()

	time.Sleep(100 * time.Millisecond)
	w := playlistlog.New(path, nil, playlistlog.WithClock(fixedClock))
	if err := w.Append([]byte(`{"n":2}`)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	select {
	case res := <-done:
		if len(res.Entries) != 1 || res.Entries[0].Payload != `{"n":2}` {
			t.Fatalf("unexpected follow entries %+v", res.Entries)
		}
		if res.Offset <= first.Offset {
			t.Fatalf("offset did not advance: %d <= %d", res.Offset, first.Offset)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not return")
	}
}
