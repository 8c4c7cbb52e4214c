package acquire

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/smartnotes/internal/apperr"
	"github.com/xhad/smartnotes/internal/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRecordingTransitions(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	rec := newRecording(0, "audio/webm;codecs=opus", clock.now)
	assert.Equal(t, StateRecording, rec.State())

	_, err := rec.Write([]byte("abc"))
	require.NoError(t, err)
	clock.advance(2 * time.Second)

	require.NoError(t, rec.Pause())
	assert.Equal(t, StatePaused, rec.State())
	assert.ErrorIs(t, rec.Pause(), ErrInvalidTransition)

	_, err = rec.Write([]byte("dropped"))
	assert.ErrorIs(t, err, ErrNotRecording)
	clock.advance(10 * time.Second)

	require.NoError(t, rec.Resume())
	assert.ErrorIs(t, rec.Resume(), ErrInvalidTransition)
	_, err = rec.Write([]byte("def"))
	require.NoError(t, err)
	clock.advance(3 * time.Second)

	audio, err := rec.Stop()
	require.NoError(t, err)
	assert.Equal(t, StateStopped, rec.State())
	assert.Equal(t, []byte("abcdef"), audio.Data)
	assert.Equal(t, "recording.webm", audio.Name)
	assert.Equal(t, 5*time.Second, rec.Duration())

	_, err = rec.Stop()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, rec.Resume(), ErrInvalidTransition)
	_, err = rec.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestRecordingStopFromPaused(t *testing.T) {
	rec := NewRecording(0, "audio/ogg")
	require.NoError(t, rec.Pause())

	audio, err := rec.Stop()
	require.NoError(t, err)
	assert.Equal(t, "recording.ogg", audio.Name)
	assert.Empty(t, audio.Data)
}

func TestRecordingSizeLimit(t *testing.T) {
	rec := NewRecording(8, "")

	_, err := rec.Write([]byte("12345678"))
	require.NoError(t, err)

	_, err = rec.Write([]byte("9"))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindFileTooLarge))
	assert.Equal(t, int64(8), rec.Size())
}

func TestLiveFinishTranscribes(t *testing.T) {
	tr := &fakeTranscriber{available: true, text: "spoken words"}
	live := NewLive(0, tr, nil)

	rec := live.Start("audio/webm")
	_, err := rec.Write([]byte("frame"))
	require.NoError(t, err)

	results, err := live.Finish(context.Background(), rec)
	require.NoError(t, err)

	res := <-results
	assert.False(t, res.Placeholder)
	assert.Equal(t, "spoken words", res.Acquisition.Transcript)
	assert.Equal(t, models.SourceLiveAudio, res.Acquisition.Source)
	assert.Equal(t, int64(5), res.Acquisition.Metadata["audioSize"])

	_, ok := <-results
	assert.False(t, ok)
}

func TestLiveFinishPlaceholder(t *testing.T) {
	tests := []struct {
		name        string
		transcriber *fakeTranscriber
		frame       []byte
	}{
		{"no provider", nil, []byte("frame")},
		{"provider unavailable", &fakeTranscriber{available: false}, []byte("frame")},
		{"provider error", &fakeTranscriber{available: true, err: errors.New("boom")}, []byte("frame")},
		{"empty result", &fakeTranscriber{available: true, text: ""}, []byte("frame")},
		{"no audio", &fakeTranscriber{available: true, text: "never"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var live *Live
			if tt.transcriber == nil {
				live = NewLive(0, nil, nil)
			} else {
				live = NewLive(0, tt.transcriber, nil)
			}

			rec := live.Start("")
			if tt.frame != nil {
				_, err := rec.Write(tt.frame)
				require.NoError(t, err)
			}

			results, err := live.Finish(context.Background(), rec)
			require.NoError(t, err)

			res := <-results
			assert.True(t, res.Placeholder)
			assert.Equal(t, PlaceholderTranscript, res.Acquisition.Transcript)
		})
	}
}

func TestLiveFinishDoesNotWaitOnTranscription(t *testing.T) {
	tr := &fakeTranscriber{available: true, text: "late words", release: make(chan struct{})}
	live := NewLive(0, tr, nil)

	rec := live.Start("audio/webm")
	_, err := rec.Write([]byte("frame"))
	require.NoError(t, err)

	results, err := live.Finish(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, rec.State())

	select {
	case <-results:
		t.Fatal("result delivered before transcription finished")
	default:
	}

	close(tr.release)
	res := <-results
	assert.Equal(t, "late words", res.Acquisition.Transcript)
}

func TestLiveFinishTwice(t *testing.T) {
	live := NewLive(0, nil, nil)
	rec := live.Start("")

	_, err := live.Finish(context.Background(), rec)
	require.NoError(t, err)

	_, err = live.Finish(context.Background(), rec)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}
