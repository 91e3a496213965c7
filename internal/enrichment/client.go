package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
)

// MaxNarrationChars is the input cap of the narration endpoint. Longer text
// is truncated here, in exactly one place, before submission.
const MaxNarrationChars = 200

const (
	coverImageWidth  = 600
	coverImageHeight = 800
)

// TextClient serves as the abstraction for the underlying generative model.
type TextClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Metadata is the result of the two-step generation chain.
type Metadata struct {
	Description string
	CoverPrompt string
}

// Client bundles every third-party generation endpoint behind one boundary so
// the workflow never talks to them directly.
type Client struct {
	text       TextClient
	httpClient *http.Client
	ttsURL     string
	imageBase  string
}

func NewClient(text TextClient, httpClient *http.Client, ttsURL, imageBase string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		text:       text,
		httpClient: httpClient,
		ttsURL:     ttsURL,
		imageBase:  strings.TrimSuffix(imageBase, "/"),
	}
}

// GenerateMetadata runs two sequential generation requests: a short
// description first, then a cover prompt seeded with that description.
func (c *Client) GenerateMetadata(ctx context.Context, title, author string) (*Metadata, error) {
	descriptionPrompt := fmt.Sprintf(
		"Write a compelling, intuitive, and short description (max 100 words) for the book %q by %s. Focus on the themes and why a reader would love it.",
		title, author)

	description, err := c.text.Generate(ctx, descriptionPrompt)
	if err != nil {
		return nil, fmt.Errorf("description generation failed: %w", err)
	}
	description = strings.TrimSpace(description)

	coverPromptPrompt := fmt.Sprintf(
		"Create a vivid, artistic English text prompt for an AI image generator to create a book cover for %q by %s. The book is about: %s. Describe the visual elements, style, and mood. Keep it under 50 words.",
		title, author, description)

	coverPrompt, err := c.text.Generate(ctx, coverPromptPrompt)
	if err != nil {
		return nil, fmt.Errorf("cover prompt generation failed: %w", err)
	}

	log.Printf("[Enrichment] Generated metadata for %q via %s", title, c.text.Name())
	return &Metadata{
		Description: description,
		CoverPrompt: strings.TrimSpace(coverPrompt),
	}, nil
}

// StageCoverImageURL builds the image-generation URL for a cover prompt. The
// result is a third-party URL; the workflow fetches and re-hosts it.
func (c *Client) StageCoverImageURL(prompt string) string {
	return fmt.Sprintf("%s/prompt/%s?width=%d&height=%d",
		c.imageBase, url.PathEscape(prompt), coverImageWidth, coverImageHeight)
}

type ttsRequest struct {
	Text string `json:"text"`
}

// GenerateNarration synthesizes speech for text and returns the raw MPEG
// audio bytes. Input is truncated to MaxNarrationChars first.
func (c *Client) GenerateNarration(ctx context.Context, text string) ([]byte, error) {
	if runes := []rune(text); len(runes) > MaxNarrationChars {
		text = string(runes[:MaxNarrationChars])
	}

	reqBody, err := json.Marshal(ttsRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal narration request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.ttsURL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create narration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("narration request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("narration endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read narration audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("narration endpoint returned empty audio")
	}
	return audio, nil
}

// FetchRemoteImage pulls image bytes from an arbitrary URL server-side, so
// the caller never depends on browser cross-origin access to the image host.
func (c *Client) FetchRemoteImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("image fetch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image host returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image bytes: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return data, contentType, nil
}
