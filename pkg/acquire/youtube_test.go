package acquire

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/smartnotes/internal/apperr"
	"github.com/xhad/smartnotes/internal/models"
)

type fakeCaptions struct {
	info     *models.VideoInfo
	videoErr error
	segments map[string][]models.CaptionSegment
	errs     map[string]error
	fetched  []string
}

func (f *fakeCaptions) Video(ctx context.Context, videoID string) (*models.VideoInfo, error) {
	if f.videoErr != nil {
		return nil, f.videoErr
	}
	return f.info, nil
}

func (f *fakeCaptions) Captions(ctx context.Context, track models.CaptionTrack) ([]models.CaptionSegment, error) {
	f.fetched = append(f.fetched, track.LanguageCode)
	if err := f.errs[track.BaseURL]; err != nil {
		return nil, err
	}
	return f.segments[track.BaseURL], nil
}

func segs(texts ...string) []models.CaptionSegment {
	out := make([]models.CaptionSegment, len(texts))
	for i, t := range texts {
		out[i] = models.CaptionSegment{Text: t, Start: float64(i)}
	}
	return out
}

func TestExtractVideoID(t *testing.T) {
	const id = "dQw4w9WgXcQ"

	accepted := []string{
		"https://www.youtube.com/watch?v=" + id,
		"https://youtube.com/watch?v=" + id + "&t=42",
		"http://youtu.be/" + id,
		"https://youtu.be/" + id + "?si=abc",
		"https://www.youtube.com/embed/" + id,
		"https://www.youtube.com/watch?feature=share&v=" + id,
		"https://m.youtube.com/watch?v=" + id,
		"https://www.youtube.com/shorts/" + id,
		"  www.youtube.com/watch?v=" + id + "  ",
	}
	for _, u := range accepted {
		got, ok := ExtractVideoID(u)
		assert.True(t, ok, u)
		assert.Equal(t, id, got, u)
	}

	rejected := []string{
		"",
		"not a url",
		"https://vimeo.com/123456789",
		"https://www.youtube.com/watch?v=short",
		"https://www.youtube.com/watch?v=" + id + "X",
		"https://youtu.be/",
		"https://www.youtube.com/channel/UCabcdefghijk",
	}
	for _, u := range rejected {
		_, ok := ExtractVideoID(u)
		assert.False(t, ok, u)
	}
}

func TestYouTubeInvalidURL(t *testing.T) {
	y := NewYouTube(&fakeCaptions{}, nil)

	_, err := y.Acquire(context.Background(), "https://example.com/video")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidURL))
}

func TestYouTubePrefersEnglish(t *testing.T) {
	source := &fakeCaptions{
		info: &models.VideoInfo{
			ID:    "dQw4w9WgXcQ",
			Title: "Lecture 1",
			Tracks: []models.CaptionTrack{
				{BaseURL: "de", LanguageCode: "de", Kind: "asr"},
				{BaseURL: "en", LanguageCode: "en-GB"},
			},
		},
		segments: map[string][]models.CaptionSegment{
			"de": segs("hallo"),
			"en": segs("hello ", " world\n", "again"),
		},
	}
	y := NewYouTube(source, nil)

	acq, err := y.Acquire(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)

	assert.Equal(t, "hello world again", acq.Transcript)
	assert.Equal(t, models.SourceYouTube, acq.Source)
	assert.Equal(t, "dQw4w9WgXcQ", acq.Metadata["videoId"])
	assert.Equal(t, "Lecture 1", acq.Metadata["videoTitle"])
	assert.Equal(t, 0, acq.Metadata["audioSize"])
	assert.Equal(t, []string{"en-GB"}, source.fetched)
}

func TestYouTubeFallsBackToDefaultThenAny(t *testing.T) {
	source := &fakeCaptions{
		info: &models.VideoInfo{
			Tracks: []models.CaptionTrack{
				{BaseURL: "en", LanguageCode: "en"},
				{BaseURL: "fr-asr", LanguageCode: "fr", Kind: "asr"},
				{BaseURL: "es", LanguageCode: "es"},
			},
		},
		segments: map[string][]models.CaptionSegment{
			"en":     segs("  "),
			"fr-asr": nil,
			"es":     segs("hola", "mundo"),
		},
		errs: map[string]error{},
	}
	y := NewYouTube(source, nil)

	acq, err := y.Acquire(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)

	assert.Equal(t, "hola mundo", acq.Transcript)
	assert.Equal(t, "YouTube Video", acq.Metadata["videoTitle"])
	// each track is fetched at most once across attempts
	assert.Equal(t, []string{"en", "fr", "es"}, source.fetched)
}

func TestYouTubeTrackErrorsAreSkipped(t *testing.T) {
	source := &fakeCaptions{
		info: &models.VideoInfo{
			Tracks: []models.CaptionTrack{
				{BaseURL: "en", LanguageCode: "en"},
				{BaseURL: "it", LanguageCode: "it"},
			},
		},
		segments: map[string][]models.CaptionSegment{"it": segs("ciao")},
		errs:     map[string]error{"en": errors.New("403")},
	}
	y := NewYouTube(source, nil)

	acq, err := y.Acquire(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "ciao", acq.Transcript)
}

func TestYouTubeNoCaptions(t *testing.T) {
	tests := []struct {
		name   string
		source *fakeCaptions
	}{
		{
			name:   "no tracks",
			source: &fakeCaptions{info: &models.VideoInfo{}},
		},
		{
			name: "all tracks empty",
			source: &fakeCaptions{info: &models.VideoInfo{Tracks: []models.CaptionTrack{
				{BaseURL: "en", LanguageCode: "en"},
			}}},
		},
		{
			name:   "video page unavailable",
			source: &fakeCaptions{videoErr: errors.New("video not found")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := NewYouTube(tt.source, nil)

			acq, err := y.Acquire(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
			require.Error(t, err)
			assert.Nil(t, acq)
			assert.True(t, apperr.IsKind(err, apperr.KindNoCaptions))

			msg := apperr.Message(err)
			assert.Contains(t, msg, "File upload")
			assert.Contains(t, msg, "Live recording")
			assert.Contains(t, msg, "Manual entry")
		})
	}
}
