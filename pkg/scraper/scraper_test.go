package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/smartnotes/internal/models"
)

const watchPage = `<html>
<head>
<title>Intro to Go - YouTube</title>
<meta property="og:title" content="Intro to Go">
</head>
<body>
<script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"/api/timedtext?v=abc&lang=en","name":{"simpleText":"English"},"languageCode":"en"},{"baseUrl":"/api/timedtext?v=abc&lang=de&kind=asr","name":{"runs":[{"text":"German (auto-generated)"}]},"languageCode":"de","kind":"asr"}],"audioTracks":[]}}};</script>
</body>
</html>`

const legacyTrack = `<?xml version="1.0" encoding="utf-8" ?><transcript><text start="0.5" dur="1.5">Hello &amp;amp; welcome</text><text start="2" dur="2.25">it&amp;#39;s Go time</text></transcript>`

const format3Track = `<?xml version="1.0" encoding="utf-8" ?><timedtext format="3"><body><p t="1200" d="3400">first line</p><p t="4600" d="1000">second line</p></body></timedtext>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/watch":
			switch r.URL.Query().Get("v") {
			case "abc":
				w.Header().Set("Content-Type", "text/html")
				fmt.Fprint(w, watchPage)
			case "nocaps":
				fmt.Fprint(w, `<html><head><title>Silent - YouTube</title></head><body></body></html>`)
			default:
				http.NotFound(w, r)
			}
		case "/api/timedtext":
			if r.URL.Query().Get("lang") == "de" {
				fmt.Fprint(w, format3Track)
				return
			}
			fmt.Fprint(w, legacyTrack)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestScraperConfig(t *testing.T) {
	config := ScraperConfig{
		BaseURL:   "https://example.com",
		RateLimit: 1.0,
		Timeout:   10 * time.Second,
	}

	s, err := NewWithConfig(config)
	require.NoError(t, err)
	assert.Equal(t, config.BaseURL, s.config.BaseURL)
	assert.Equal(t, 10*time.Second, s.client.Timeout)

	s, err = NewWithConfig(ScraperConfig{})
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com", s.config.BaseURL)
	assert.Equal(t, 30*time.Second, s.client.Timeout)
}

func TestVideo(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	var visited []string
	s, err := NewWithConfig(ScraperConfig{
		BaseURL:    server.URL,
		RateLimit:  100,
		OnProgress: func(u string) { visited = append(visited, u) },
	})
	require.NoError(t, err)

	info, err := s.Video(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, "abc", info.ID)
	assert.Equal(t, "Intro to Go", info.Title)
	require.Len(t, info.Tracks, 2)
	assert.Equal(t, "en", info.Tracks[0].LanguageCode)
	assert.Equal(t, "English", info.Tracks[0].Name)
	assert.Equal(t, server.URL+"/api/timedtext?v=abc&lang=en", info.Tracks[0].BaseURL)
	assert.True(t, info.Tracks[1].AutoGenerated())
	assert.Equal(t, "German (auto-generated)", info.Tracks[1].Name)
	assert.Len(t, visited, 1)
}

func TestVideoWithoutCaptions(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	s := New(server.URL)
	info, err := s.Video(context.Background(), "nocaps")
	require.NoError(t, err)
	assert.Equal(t, "Silent", info.Title)
	assert.Empty(t, info.Tracks)
}

func TestVideoNotFound(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	s := New(server.URL)
	_, err := s.Video(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestCaptions(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	s := New(server.URL)

	segments, err := s.Captions(context.Background(), models.CaptionTrack{BaseURL: server.URL + "/api/timedtext?lang=en"})
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "Hello & welcome", segments[0].Text)
	assert.Equal(t, 0.5, segments[0].Start)
	assert.Equal(t, 1.5, segments[0].Duration)
	assert.Equal(t, "it's Go time", segments[1].Text)

	segments, err = s.Captions(context.Background(), models.CaptionTrack{BaseURL: server.URL + "/api/timedtext?lang=de"})
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "first line", segments[0].Text)
	assert.Equal(t, 1.2, segments[0].Start)
	assert.Equal(t, 3.4, segments[0].Duration)
}

func TestCaptionsRespectsContext(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	s := New(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Captions(ctx, models.CaptionTrack{BaseURL: server.URL + "/api/timedtext"})
	assert.Error(t, err)
}
