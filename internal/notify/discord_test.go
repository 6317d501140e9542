package notify

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alertInitial = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	alertFinal   = alertInitial.Add(4 * time.Second)
)

func TestSendPersonAlertJSON(t *testing.T) {
	var (
		gotContentType string
		gotBody        []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, true)
	err := d.SendPersonAlert("alice", alertInitial, alertFinal, "")
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotContentType)

	var msg webhookMessage
	require.NoError(t, json.Unmarshal(gotBody, &msg))
	require.Len(t, msg.Embeds, 1)
	e := msg.Embeds[0]
	assert.Equal(t, "Person Detected", e.Title)
	assert.Equal(t, alertColorRed, e.Color)
	assert.Equal(t, alertFinal.Format(time.RFC3339), e.Timestamp)
	require.Len(t, e.Fields, 3)
	assert.Equal(t, "alice", e.Fields[0].Value)
	assert.Nil(t, e.Image)
}

func TestSendPersonAlertWithFrame(t *testing.T) {
	image := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}
	frame := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	var gotPayload string
	var gotFile []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotPayload = r.FormValue("payload_json")
		f, _, err := r.FormFile("files[0]")
		require.NoError(t, err)
		defer f.Close()
		gotFile, _ = io.ReadAll(f)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, true)
	require.NoError(t, d.SendPersonAlert("alice", alertInitial, alertFinal, frame))

	assert.Equal(t, image, gotFile)

	var msg webhookMessage
	require.NoError(t, json.Unmarshal([]byte(gotPayload), &msg))
	require.Len(t, msg.Embeds, 1)
	require.NotNil(t, msg.Embeds[0].Image)
	assert.Equal(t, "attachment://frame.jpg", msg.Embeds[0].Image.URL)
}

func TestSendPersonAlertBadFrameFallsBack(t *testing.T) {
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, true)
	// Not valid base64: alert still goes out, without an attachment.
	require.NoError(t, d.SendPersonAlert("alice", alertInitial, alertFinal, "data:image/jpeg;base64,!!!"))
	assert.Equal(t, "application/json", gotContentType)
}

func TestSendPersonAlertRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, true)
	err := d.SendPersonAlert("alice", alertInitial, alertFinal, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook rejected")
}

func TestSendPersonAlertDisabled(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	d := NewDiscord(srv.URL, true)
	d.SetEnabled(false)
	require.NoError(t, d.SendPersonAlert("alice", alertInitial, alertFinal, ""))
	assert.False(t, called, "disabled notifier still posted")
	assert.False(t, d.Enabled())

	d.SetEnabled(true)
	require.NoError(t, d.SendPersonAlert("alice", alertInitial, alertFinal, ""))
	assert.True(t, called)
}

func TestSendPersonAlertNoWebhookURL(t *testing.T) {
	d := NewDiscord("", true)
	require.NoError(t, d.SendPersonAlert("alice", alertInitial, alertFinal, ""))
}

func TestDecodeFrame(t *testing.T) {
	raw := []byte("pixels")
	b64 := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name    string
		frame   string
		wantExt string
		wantErr bool
	}{
		{"jpeg data URL", "data:image/jpeg;base64," + b64, "jpg", false},
		{"png data URL", "data:image/png;base64," + b64, "png", false},
		{"webp data URL", "data:image/webp;base64," + b64, "webp", false},
		{"bare base64", b64, "jpg", false},
		{"empty", "", "", true},
		{"no comma", "data:image/jpeg;base64", "", true},
		{"bad base64", "data:image/jpeg;base64,???", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ext, err := decodeFrame(tt.frame)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, raw, got)
			assert.Equal(t, tt.wantExt, ext)
		})
	}
}
