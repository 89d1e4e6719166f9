package telegram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNotifierPublishDigest(t *testing.T) {
	t.Parallel()

	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotChat = r.PostForm.Get("chat_id")
		gotText = r.PostForm.Get("text")
		_, _ = io.WriteString(w, `{"ok":true,"result":{}}`)
	}))
	defer srv.Close()

	n := NewNotifier("123:abc", "-100", WithAPIBase(srv.URL))
	if err := n.PublishDigest(context.Background(), "Repricer run\n- B1: increase 9.00 -> 9.50"); err != nil {
		t.Fatalf("PublishDigest returned error: %v", err)
	}

	if gotPath != "/bot123:abc/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotChat != "-100" || !strings.Contains(gotText, "B1: increase") {
		t.Fatalf("unexpected form chat=%q text=%q", gotChat, gotText)
	}
}

func TestNotifierAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"description":"Bad Request: chat not found"}`)
	}))
	defer srv.Close()

	err := NewNotifier("t", "c", WithAPIBase(srv.URL)).PublishDigest(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected chat not found error, got %v", err)
	}
}

func TestNotifierMisconfigured(t *testing.T) {
	t.Parallel()

	if err := NewNotifier("", "chat").PublishDigest(context.Background(), "x"); err == nil {
		t.Fatal("expected error without bot token")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("ä", maxMessageLen+10)
	got := truncate(long, maxMessageLen)
	if n := utf8.RuneCountInString(got); n != maxMessageLen {
		t.Fatalf("expected %d runes, got %d", maxMessageLen, n)
	}
	if truncate("short", maxMessageLen) != "short" {
		t.Fatal("short message must be unchanged")
	}
}
