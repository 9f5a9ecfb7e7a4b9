package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fakeAudio(n int) []byte {
	return bytes.Repeat([]byte{0xAB}, n)
}

func TestSynthesize_SendsEnginePayload(t *testing.T) {
	var got speechPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != speechPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.Write(fakeAudio(MinAudioSize + 1))
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatal(err)
	}

	audio, err := client.Synthesize(context.Background(), Request{
		Text:   "Build complete",
		Voice:  "af_bella(2)+af_sky(1)",
		Speed:  1.25,
		Format: "mp3",
	})
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if len(audio) != MinAudioSize+1 {
		t.Errorf("expected %d audio bytes, got %d", MinAudioSize+1, len(audio))
	}

	if got.Model != "kokoro" {
		t.Errorf("model = %q", got.Model)
	}
	if got.Input != "Build complete" {
		t.Errorf("input = %q", got.Input)
	}
	if got.Voice != "af_bella(2)+af_sky(1)" {
		t.Errorf("voice = %q", got.Voice)
	}
	if got.Speed != 1.25 {
		t.Errorf("speed = %v", got.Speed)
	}
	if got.ResponseFormat != "mp3" {
		t.Errorf("response_format = %q", got.ResponseFormat)
	}
}

func TestSynthesize_TinyBodyIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"bad voice"}`))
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	_, err := client.Synthesize(context.Background(), Request{Text: "hi", Voice: "af_bella", Speed: 1, Format: "wav"})
	if err == nil {
		t.Fatal("tiny body should be rejected")
	}

	var se *Error
	if !errors.As(err, &se) || se.Type != "response" {
		t.Errorf("expected response error, got %v", err)
	}
	if !IsUnavailable(err) {
		t.Error("tiny body should count as unavailable")
	}
}

func TestSynthesize_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	_, err := client.Synthesize(context.Background(), Request{Text: "hi", Voice: "af_bella", Speed: 1, Format: "wav"})

	var se *Error
	if !errors.As(err, &se) || se.Type != "response" {
		t.Fatalf("expected response error, got %v", err)
	}
}

func TestSynthesize_ConnectionRefused(t *testing.T) {
	// Grab a port that nothing listens on.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	client, _ := NewClient(addr)
	_, err := client.Synthesize(context.Background(), Request{Text: "hi", Voice: "af_bella", Speed: 1, Format: "wav"})

	var se *Error
	if !errors.As(err, &se) || se.Type != "connection" {
		t.Fatalf("expected connection error, got %v", err)
	}
	if !IsUnavailable(err) {
		t.Error("connection failure should count as unavailable")
	}
}

func TestSynthesize_DeadlineExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write(fakeAudio(MinAudioSize + 1))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client, _ := NewClient(server.URL)
	_, err := client.Synthesize(ctx, Request{Text: "hi", Voice: "af_bella", Speed: 1, Format: "wav"})

	var se *Error
	if !errors.As(err, &se) || se.Type != "timeout" {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	client, _ := NewClient("http://localhost:8880")
	_, err := client.Synthesize(context.Background(), Request{Voice: "af_bella", Speed: 1, Format: "wav"})
	if err == nil {
		t.Fatal("empty text should be rejected before any network call")
	}
	if IsUnavailable(err) {
		t.Error("request error must not count as unavailable")
	}
}

func TestHealth(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != healthPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	if err := client.Health(context.Background()); err != nil {
		t.Errorf("healthy engine reported error: %v", err)
	}

	healthy = false
	if err := client.Health(context.Background()); err == nil {
		t.Error("unhealthy engine should report an error")
	}
}

func TestVoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != voicesPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string][]string{
			"voices": {"af_bella", "af_sky", "am_adam"},
		})
	}))
	defer server.Close()

	client, _ := NewClient(server.URL)
	voices, err := client.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if len(voices) != 3 || voices[0] != "af_bella" {
		t.Errorf("unexpected voice list: %v", voices)
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, bad := range []string{"", "not a url", "localhost:8880"} {
		if _, err := NewClient(bad); err == nil {
			t.Errorf("NewClient(%q) should fail", bad)
		}
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client, err := NewClient("http://localhost:8880/")
	if err != nil {
		t.Fatal(err)
	}
	if client.BaseURL() != "http://localhost:8880" {
		t.Errorf("trailing slash not trimmed: %s", client.BaseURL())
	}
}
