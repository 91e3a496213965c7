package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// scriptedTextClient returns canned responses in order and records prompts.
type scriptedTextClient struct {
	responses []string
	errAt     int // 1-based index of the call that fails; 0 means never
	prompts   []string
}

func (c *scriptedTextClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if c.errAt == len(c.prompts) {
		return "", fmt.Errorf("simulated generation failure")
	}
	return c.responses[len(c.prompts)-1], nil
}

func (c *scriptedTextClient) Name() string { return "scripted" }

func TestGenerateMetadata_ChainsDescriptionIntoCoverPrompt(t *testing.T) {
	text := &scriptedTextClient{responses: []string{"  A desert epic.  ", " Golden dunes under twin moons. "}}
	client := NewClient(text, nil, "", "https://img.example")

	meta, err := client.GenerateMetadata(context.Background(), "Dune", "Herbert")
	if err != nil {
		t.Fatalf("GenerateMetadata failed: %v", err)
	}

	if len(text.prompts) != 2 {
		t.Fatalf("expected two sequential generation calls, got %d", len(text.prompts))
	}
	if !strings.Contains(text.prompts[0], `"Dune"`) || !strings.Contains(text.prompts[0], "Herbert") {
		t.Errorf("description prompt missing title/author: %s", text.prompts[0])
	}
	// The second request must be seeded with the first result.
	if !strings.Contains(text.prompts[1], "A desert epic.") {
		t.Errorf("cover prompt not seeded with description: %s", text.prompts[1])
	}

	if meta.Description != "A desert epic." {
		t.Errorf("unexpected description: %q", meta.Description)
	}
	if meta.CoverPrompt != "Golden dunes under twin moons." {
		t.Errorf("unexpected cover prompt: %q", meta.CoverPrompt)
	}
}

func TestGenerateMetadata_FailsOnEitherCall(t *testing.T) {
	for errAt := 1; errAt <= 2; errAt++ {
		text := &scriptedTextClient{responses: []string{"desc", "prompt"}, errAt: errAt}
		client := NewClient(text, nil, "", "https://img.example")

		if _, err := client.GenerateMetadata(context.Background(), "Dune", "Herbert"); err == nil {
			t.Errorf("expected error when call %d fails", errAt)
		}
		if len(text.prompts) != errAt {
			t.Errorf("expected chain to stop at call %d, got %d calls", errAt, len(text.prompts))
		}
	}
}

func TestStageCoverImageURL_EncodesPrompt(t *testing.T) {
	client := NewClient(&scriptedTextClient{}, nil, "", "https://img.example/")

	staged := client.StageCoverImageURL("golden dunes & twin moons")
	if !strings.HasPrefix(staged, "https://img.example/prompt/") {
		t.Errorf("unexpected staged URL: %s", staged)
	}
	if !strings.Contains(staged, url.PathEscape("golden dunes & twin moons")) {
		t.Errorf("expected URL-encoded prompt in %s", staged)
	}
	if !strings.Contains(staged, "width=600") || !strings.Contains(staged, "height=800") {
		t.Errorf("expected fixed dimensions in %s", staged)
	}
}

func TestGenerateNarration_TruncatesTo200Chars(t *testing.T) {
	var received string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ttsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("invalid narration request body: %v", err)
		}
		received = req.Text
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mpeg-bytes"))
	}))
	defer ts.Close()

	client := NewClient(&scriptedTextClient{}, nil, ts.URL, "")

	long := strings.Repeat("a", 150) + strings.Repeat("b", 150)
	audio, err := client.GenerateNarration(context.Background(), long)
	if err != nil {
		t.Fatalf("GenerateNarration failed: %v", err)
	}

	if len(received) != MaxNarrationChars {
		t.Errorf("expected %d chars submitted, got %d", MaxNarrationChars, len(received))
	}
	if received != long[:MaxNarrationChars] {
		t.Error("expected exactly the first 200 characters to be submitted")
	}
	if string(audio) != "mpeg-bytes" {
		t.Errorf("unexpected audio payload: %q", audio)
	}
}

func TestGenerateNarration_ShortInputUnchanged(t *testing.T) {
	var received string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ttsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		received = req.Text
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	client := NewClient(&scriptedTextClient{}, nil, ts.URL, "")

	if _, err := client.GenerateNarration(context.Background(), "short text"); err != nil {
		t.Fatalf("GenerateNarration failed: %v", err)
	}
	if received != "short text" {
		t.Errorf("expected input passed through unchanged, got %q", received)
	}
}

func TestGenerateNarration_NonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client := NewClient(&scriptedTextClient{}, nil, ts.URL, "")

	if _, err := client.GenerateNarration(context.Background(), "text"); err == nil {
		t.Error("expected error for non-2xx narration response")
	}
}

func TestFetchRemoteImage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer ts.Close()

	client := NewClient(&scriptedTextClient{}, nil, "", "")

	data, contentType, err := client.FetchRemoteImage(context.Background(), ts.URL+"/img.jpg")
	if err != nil {
		t.Fatalf("FetchRemoteImage failed: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("unexpected bytes: %q", data)
	}
	if contentType != "image/jpeg" {
		t.Errorf("unexpected content type: %s", contentType)
	}
}

func TestFetchRemoteImage_Failure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient(&scriptedTextClient{}, nil, "", "")

	if _, _, err := client.FetchRemoteImage(context.Background(), ts.URL+"/missing.png"); err == nil {
		t.Error("expected error for failed image fetch")
	}
}
