package notify

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

const alertColorRed = 0xff0000

// Discord delivers confirmed-detection alerts to a Discord webhook.
// Delivery is best-effort: callers fire it after their own state is
// already settled and only log the returned error. Nothing is retried.
type Discord struct {
	webhookURL string
	enabled    atomic.Bool
	client     *http.Client
}

func NewDiscord(webhookURL string, enabled bool) *Discord {
	d := &Discord{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	d.enabled.Store(enabled)
	return d
}

// SetEnabled flips the process-wide notification switch.
func (d *Discord) SetEnabled(v bool) {
	d.enabled.Store(v)
}

func (d *Discord) Enabled() bool {
	return d.enabled.Load()
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embedImage struct {
	URL string `json:"url"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Timestamp   string       `json:"timestamp"`
	Fields      []embedField `json:"fields"`
	Image       *embedImage  `json:"image,omitempty"`
}

type webhookMessage struct {
	Embeds []embed `json:"embeds"`
}

// SendPersonAlert posts a person-confirmed embed, attaching the latest
// cached frame when one is supplied. An empty frame sends a plain embed;
// a frame that fails to decode is dropped and the embed still goes out.
func (d *Discord) SendPersonAlert(userName string, initial, final time.Time, frame string) error {
	if !d.enabled.Load() {
		return nil
	}
	if d.webhookURL == "" {
		return nil
	}

	msg := webhookMessage{
		Embeds: []embed{{
			Title:       "Person Detected",
			Description: "Surveillance system has confirmed a person detection",
			Color:       alertColorRed,
			Timestamp:   final.UTC().Format(time.RFC3339),
			Fields: []embedField{
				{Name: "Detected by", Value: userName},
				{Name: "Initial Detection", Value: initial.Format(time.RFC1123), Inline: true},
				{Name: "Final Detection", Value: final.Format(time.RFC1123), Inline: true},
			},
		}},
	}

	image, ext, err := decodeFrame(frame)
	if err == nil && len(image) > 0 {
		msg.Embeds[0].Image = &embedImage{URL: "attachment://frame." + ext}
		return d.postMultipart(msg, image, "frame."+ext)
	}

	return d.postJSON(msg)
}

func (d *Discord) postJSON(msg webhookMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook rejected: %s", resp.Status)
	}
	return nil
}

func (d *Discord) postMultipart(msg webhookMessage, image []byte, filename string) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("payload_json", string(payload)); err != nil {
		return fmt.Errorf("write payload_json: %w", err)
	}
	part, err := w.CreateFormFile("files[0]", filename)
	if err != nil {
		return fmt.Errorf("create attachment part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, w.FormDataContentType(), &buf)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook rejected: %s", resp.Status)
	}
	return nil
}

// decodeFrame turns a base64 data URL (the wire format browsers send
// frames in) into raw image bytes and a file extension.
func decodeFrame(frame string) ([]byte, string, error) {
	if frame == "" {
		return nil, "", fmt.Errorf("no frame")
	}

	ext := "jpg"
	data := frame
	if strings.HasPrefix(frame, "data:") {
		comma := strings.IndexByte(frame, ',')
		if comma < 0 {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		header := frame[:comma]
		data = frame[comma+1:]
		if strings.Contains(header, "image/png") {
			ext = "png"
		} else if strings.Contains(header, "image/webp") {
			ext = "webp"
		}
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("decode frame: %w", err)
	}
	return raw, ext, nil
}
