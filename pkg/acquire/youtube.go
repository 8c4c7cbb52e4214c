// Package acquire turns the three input paths (YouTube captions, uploaded
// files, live recordings) into a transcript.
package acquire

import (
	"context"
	"regexp"
	"strings"

	"github.com/xhad/smartnotes/internal/apperr"
	"github.com/xhad/smartnotes/internal/models"
	"github.com/xhad/smartnotes/internal/types"
	"github.com/xhad/smartnotes/pkg/processor"
	"go.uber.org/zap"
)

const defaultVideoTitle = "YouTube Video"

// NoCaptionsMessage is shown when no caption track produced any text.
const NoCaptionsMessage = `YouTube transcript not available

We could not extract a transcript from this video. Common reasons:

1. No captions - the video has neither uploaded nor auto-generated captions
2. Captions disabled - the creator turned captions off
3. Regional restrictions - the video is blocked in this region
4. Private or unlisted video - the video cannot be read without access

Other ways to get your notes:

1. File upload
   - Save the video's audio as MP3 or WAV (for example with yt-dlp)
   - Upload it with the "File Upload" option to transcribe it

2. Live recording
   - Play the video on your device
   - Capture the audio with the "Live Recording" option

3. Manual entry
   - Copy the captions from YouTube by hand
   - Paste them into the transcript editor and generate notes from there

Educational talks, news reports and documentaries usually carry captions.`

var videoIDPatterns = []*regexp.Regexp{
	// standard watch
	regexp.MustCompile(`youtube\.com/watch\?v=([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
	// short link
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
	// embed
	regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
	// watch with v= after other parameters
	regexp.MustCompile(`youtube\.com/watch\?(?:[^#]*&)?v=([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
	// mobile
	regexp.MustCompile(`m\.youtube\.com/watch\?v=([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
	// shorts
	regexp.MustCompile(`youtube\.com/shorts/([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
}

// ExtractVideoID returns the 11-character video identifier in rawURL.
func ExtractVideoID(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(rawURL); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// trackPicker chooses the next caption track to try among those not yet
// tried.
type trackPicker struct {
	name string
	pick func(tracks []models.CaptionTrack) []models.CaptionTrack
}

var trackPriority = []trackPicker{
	{name: "en", pick: englishTracks},
	{name: "default", pick: defaultTracks},
	{name: "any", pick: func(tracks []models.CaptionTrack) []models.CaptionTrack { return tracks }},
}

func englishTracks(tracks []models.CaptionTrack) []models.CaptionTrack {
	var out []models.CaptionTrack
	for _, t := range tracks {
		lang := strings.ToLower(t.LanguageCode)
		if lang == "en" || strings.HasPrefix(lang, "en-") {
			out = append(out, t)
		}
	}
	return out
}

// defaultTracks prefers the auto-generated track, which follows the video's
// spoken language, and otherwise the first listed track.
func defaultTracks(tracks []models.CaptionTrack) []models.CaptionTrack {
	for _, t := range tracks {
		if t.AutoGenerated() {
			return []models.CaptionTrack{t}
		}
	}
	if len(tracks) > 0 {
		return tracks[:1]
	}
	return nil
}

type YouTube struct {
	source    types.CaptionSource
	processor processor.Processor
	logger    *zap.Logger
}

func NewYouTube(source types.CaptionSource, logger *zap.Logger) *YouTube {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YouTube{
		source:    source,
		processor: processor.New(),
		logger:    logger,
	}
}

// Acquire resolves rawURL to a video and returns the first non-empty caption
// transcript in priority order: English, default, any language.
func (y *YouTube) Acquire(ctx context.Context, rawURL string) (*models.Acquisition, error) {
	videoID, ok := ExtractVideoID(rawURL)
	if !ok {
		return nil, apperr.New(apperr.KindInvalidURL, "Invalid YouTube URL format")
	}

	log := y.logger.With(zap.String("video_id", videoID))

	info, err := y.source.Video(ctx, videoID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("video page unavailable", zap.Error(err))
		return nil, apperr.New(apperr.KindNoCaptions, NoCaptionsMessage).WithCause(err)
	}

	tried := make(map[string]bool)
	for _, attempt := range trackPriority {
		for _, track := range attempt.pick(info.Tracks) {
			if tried[track.BaseURL] {
				continue
			}
			tried[track.BaseURL] = true

			segments, err := y.source.Captions(ctx, track)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				log.Warn("caption track failed",
					zap.String("attempt", attempt.name),
					zap.String("language", track.LanguageCode),
					zap.Error(err))
				continue
			}

			transcript := y.processor.JoinSegments(segments)
			if transcript == "" {
				continue
			}

			log.Info("transcript acquired",
				zap.String("attempt", attempt.name),
				zap.String("language", track.LanguageCode),
				zap.Int("segments", len(segments)),
				zap.Int("chars", len(transcript)))

			title := info.Title
			if title == "" {
				title = defaultVideoTitle
			}

			return &models.Acquisition{
				Transcript: transcript,
				Source:     models.SourceYouTube,
				Metadata: map[string]interface{}{
					"videoId":    videoID,
					"videoTitle": title,
					"audioSize":  0,
				},
			}, nil
		}
	}

	log.Info("no captions available", zap.Int("tracks", len(info.Tracks)))
	return nil, apperr.New(apperr.KindNoCaptions, NoCaptionsMessage)
}
