package piper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/voxlabs/interviewd/pkg/Logger"
)

// Client synthesizes speech through a rhasspy/wyoming-piper HTTP endpoint
// and writes the WAV under outDir. Callers get back the relative URL the
// HTTP layer serves the file at, never the bytes.
type Client struct {
	baseURL    string
	voice      string
	outDir     string
	httpClient *http.Client
	logger     *Logger.Logger
}

func New(baseURL, voice, outDir string, logger *Logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		voice:   voice,
		outDir:  outDir,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Synthesize renders text and returns "/responses/<session>_<turn>.wav".
func (c *Client) Synthesize(ctx context.Context, sessionID string, turn int, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("empty text")
	}

	// GET /api/text-to-speech?text=...&voice=... streams a WAV body
	u, err := url.Parse(c.baseURL + "/api/text-to-speech")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("text", text)
	if c.voice != "" {
		q.Set("voice", c.voice)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "audio/wav")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("tts http %d: %s", resp.StatusCode, string(b))
	}

	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create response dir: %w", err)
	}

	name := fmt.Sprintf("%s_%d.wav", sessionID, turn)
	path := filepath.Join(c.outDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create response file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write response audio: %w", err)
	}

	c.logger.Debugf("synthesized %d chars to %s", len(text), path)
	return "/responses/" + name, nil
}
