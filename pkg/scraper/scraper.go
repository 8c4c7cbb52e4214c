package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"
	"github.com/xhad/smartnotes/internal/models"
	"golang.org/x/time/rate"
)

// ErrVideoNotFound is returned when the watch page answers 404.
var ErrVideoNotFound = errors.New("video not found")

const captionTracksMarker = `"captionTracks":`

type ScraperConfig struct {
	BaseURL    string
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	UserAgent  string
	OnProgress func(url string)
}

// Scraper reads video pages and their caption tracks.
type Scraper struct {
	config  ScraperConfig
	client  *http.Client
	limiter *rate.Limiter
	base    *url.URL
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.BaseURL == "" {
		config.BaseURL = "https://www.youtube.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, err
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		base:    parsedURL,
	}, nil
}

func New(baseURL string) *Scraper {
	s, _ := NewWithConfig(ScraperConfig{
		BaseURL: baseURL,
	})
	return s
}

// Video fetches the watch page for videoID and returns its title and the
// caption tracks it advertises. A page without tracks is not an error.
func (s *Scraper) Video(ctx context.Context, videoID string) (*models.VideoInfo, error) {
	pageURL := s.base.ResolveReference(&url.URL{
		Path:     "/watch",
		RawQuery: url.Values{"v": {videoID}}.Encode(),
	})

	body, err := s.fetch(ctx, pageURL.String())
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse watch page: %w", err)
	}

	tracks, err := s.extractTracks(string(body))
	if err != nil {
		return nil, err
	}

	return &models.VideoInfo{
		ID:     videoID,
		Title:  extractTitle(doc),
		Tracks: tracks,
	}, nil
}

// Captions downloads a timed-text track and returns its segments in order.
func (s *Scraper) Captions(ctx context.Context, track models.CaptionTrack) ([]models.CaptionSegment, error) {
	body, err := s.fetch(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse caption track: %w", err)
	}

	var segments []models.CaptionSegment

	// Legacy format: <text start="1.2" dur="3.4">...</text>, seconds
	for _, node := range xmlquery.Find(doc, "//text") {
		segments = append(segments, models.CaptionSegment{
			Text:     html.UnescapeString(node.InnerText()),
			Start:    parseFloat(node.SelectAttr("start")),
			Duration: parseFloat(node.SelectAttr("dur")),
		})
	}
	if len(segments) > 0 {
		return segments, nil
	}

	// format=3: <p t="1200" d="3400">...</p>, milliseconds
	for _, node := range xmlquery.Find(doc, "//body/p") {
		segments = append(segments, models.CaptionSegment{
			Text:     html.UnescapeString(node.InnerText()),
			Start:    parseFloat(node.SelectAttr("t")) / 1000,
			Duration: parseFloat(node.SelectAttr("d")) / 1000,
		})
	}

	return segments, nil
}

func (s *Scraper) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if s.config.OnProgress != nil {
		s.config.OnProgress(rawURL)
	}

	// Apply rate limiting
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if s.config.UserAgent != "" {
		req.Header.Set("User-Agent", s.config.UserAgent)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrVideoNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, rawURL)
	}

	return io.ReadAll(resp.Body)
}

type rawTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
	Name         struct {
		SimpleText string `json:"simpleText"`
		Runs       []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"name"`
}

// extractTracks decodes the captionTracks array embedded in the player
// response of a watch page.
func (s *Scraper) extractTracks(page string) ([]models.CaptionTrack, error) {
	idx := strings.Index(page, captionTracksMarker)
	if idx < 0 {
		return nil, nil
	}

	var raw []rawTrack
	dec := json.NewDecoder(strings.NewReader(page[idx+len(captionTracksMarker):]))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode caption tracks: %w", err)
	}

	tracks := make([]models.CaptionTrack, 0, len(raw))
	for _, rt := range raw {
		if rt.BaseURL == "" {
			continue
		}
		trackURL, err := url.Parse(rt.BaseURL)
		if err != nil {
			continue
		}

		name := rt.Name.SimpleText
		if name == "" && len(rt.Name.Runs) > 0 {
			name = rt.Name.Runs[0].Text
		}

		tracks = append(tracks, models.CaptionTrack{
			BaseURL:      s.base.ResolveReference(trackURL).String(),
			LanguageCode: rt.LanguageCode,
			Name:         name,
			Kind:         rt.Kind,
		})
	}
	return tracks, nil
}

func extractTitle(doc *goquery.Document) string {
	if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	return strings.TrimSpace(strings.TrimSuffix(title, "- YouTube"))
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
