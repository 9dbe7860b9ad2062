package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_CreateMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/channels/c1/messages" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bot tok" {
			t.Errorf("authorization = %q", got)
		}
		var body struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Content != "hello" {
			t.Errorf("content = %q", body.Content)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"created-1"}`))
	}))
	defer srv.Close()

	c := NewClient("tok", srv.URL, time.Second)
	id, err := c.CreateMessage(context.Background(), "c1", "hello")
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if id != "created-1" {
		t.Errorf("id = %q", id)
	}
}

func TestClient_CreateMessage_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"Missing Access"}`))
	}))
	defer srv.Close()

	c := NewClient("tok", srv.URL, time.Second)
	if _, err := c.CreateMessage(context.Background(), "c1", "x"); err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestClient_Me(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"bot-1","username":"bridge","bot":true}`))
	}))
	defer srv.Close()

	c := NewClient("tok", srv.URL, time.Second)
	user, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if user.ID != "bot-1" || user.Username != "bridge" || !user.Bot {
		t.Errorf("user = %+v", user)
	}
}

func TestClient_Me_BadToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad", srv.URL, time.Second)
	if _, err := c.Me(context.Background()); err == nil {
		t.Fatal("expected error for 401 response")
	}
}
