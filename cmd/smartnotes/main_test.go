package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/smartnotes/internal/models"
	"github.com/xhad/smartnotes/pkg/auth"
	"github.com/xhad/smartnotes/pkg/pipeline"
	"github.com/xhad/smartnotes/pkg/store"
)

const testSecret = "cli-test-secret-0123456789"

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()

	for _, key := range []string{"OPENAI_API_KEY", "OLLAMA_BASE_URL", "DATABASE_URL", "SESSION_SECRET", "PORT", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	content := fmt.Sprintf(`auth:
  session_secret: %q
logging:
  level: error
database:
  driver: sqlite
  url: %q
`, testSecret, dbPath)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestTokenCommand(t *testing.T) {
	configPath := writeConfig(t, filepath.Join(t.TempDir(), "notes.db"))

	stdout, _, err := runCommand(t, "", "--config", configPath, "token", "--user", "alice", "--email", "alice@example.com")
	require.NoError(t, err)

	sessions, err := auth.NewSessions(auth.SessionConfig{Secret: testSecret, Issuer: "smartnotes"})
	require.NoError(t, err)

	claims, err := sessions.Validate(strings.TrimSpace(stdout))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestTokenCommandRequiresUser(t *testing.T) {
	configPath := writeConfig(t, filepath.Join(t.TempDir(), "notes.db"))

	_, _, err := runCommand(t, "", "--config", configPath, "token")
	assert.EqualError(t, err, "--user is required")
}

func TestProcessRequiresOneSource(t *testing.T) {
	configPath := writeConfig(t, filepath.Join(t.TempDir(), "notes.db"))

	_, _, err := runCommand(t, "", "--config", configPath, "process")
	assert.ErrorIs(t, err, errMissingSource)

	_, _, err = runCommand(t, "", "--config", configPath, "process", "--text", "a.txt", "--youtube", "https://youtu.be/dQw4w9WgXcQ")
	assert.ErrorIs(t, err, errMissingSource)
}

func TestProcessTextExportsAndSaves(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "notes.db")
	configPath := writeConfig(t, dbPath)
	outDir := t.TempDir()

	stdout, stderr, err := runCommand(t, "  graphs have   nodes\n\nand edges  ",
		"--config", configPath,
		"process",
		"--text", "-",
		"--output", outDir,
		"--export", "notes,mindmap",
		"--save", "--user", "alice", "--title", "Graphs",
	)
	require.NoError(t, err, stderr)

	// No provider is configured, so the default notes are printed.
	assert.Equal(t, pipeline.FallbackNotes+"\n", stdout)
	assert.Contains(t, stderr, "not_configured")

	for _, pattern := range []string{"smartnotes-notes-*.docx", "smartnotes-mindmap-*.docx"} {
		matches, err := filepath.Glob(filepath.Join(outDir, pattern))
		require.NoError(t, err)
		assert.Len(t, matches, 1, pattern)
	}
	transcripts, _ := filepath.Glob(filepath.Join(outDir, "smartnotes-transcript-*.docx"))
	assert.Empty(t, transcripts)

	notes, err := store.Open(context.Background(), store.StoreConfig{Driver: "sqlite", URL: dbPath})
	require.NoError(t, err)
	defer notes.Close()

	list, err := notes.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Graphs", list[0].Title)

	saved, err := notes.Get(context.Background(), list[0].ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "graphs have nodes\nand edges", saved.Transcript)
	require.NotNil(t, saved.MindmapData)
	assert.Contains(t, *saved.MindmapData, `"central":"Main Topic"`)
}

func TestProcessRejectsUnknownExport(t *testing.T) {
	configPath := writeConfig(t, filepath.Join(t.TempDir(), "notes.db"))

	_, _, err := runCommand(t, "text", "--config", configPath, "process", "--text", "-", "--export", "slides")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid export type")
}

func acquisitionFixture(source models.SourceKind) models.Acquisition {
	acq := models.Acquisition{Transcript: "text", Source: source, Metadata: map[string]interface{}{}}
	switch source {
	case models.SourceYouTube:
		acq.Metadata["videoId"] = "dQw4w9WgXcQ"
		acq.Metadata["videoTitle"] = "Graph Theory"
	case models.SourceFileUpload:
		acq.Metadata["fileName"] = "lecture.mp3"
	}
	return acq
}

func TestNoteFromAcquisitionTitles(t *testing.T) {
	note := noteFromAcquisition(acquisitionFixture(models.SourceYouTube), "")
	assert.Equal(t, "Graph Theory", note.Title)
	require.NotNil(t, note.SourceURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", *note.SourceURL)

	note = noteFromAcquisition(acquisitionFixture(models.SourceFileUpload), "")
	assert.Equal(t, "lecture", note.Title)
	require.NotNil(t, note.FileName)
	assert.Equal(t, "lecture.mp3", *note.FileName)

	tagged := acquisitionFixture(models.SourceFileUpload)
	tagged.Metadata["audioTitle"] = "Graph Lecture"
	note = noteFromAcquisition(tagged, "")
	assert.Equal(t, "Graph Lecture", note.Title)

	note = noteFromAcquisition(acquisitionFixture(models.SourceLiveAudio), "  Monday  ")
	assert.Equal(t, "Monday", note.Title)
}

func TestNotesCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "notes.db")
	configPath := writeConfig(t, dbPath)

	notes, err := store.Open(context.Background(), store.StoreConfig{Driver: "sqlite", URL: dbPath})
	require.NoError(t, err)
	fileName := "lecture.mp3"
	saved, err := notes.Create(context.Background(), &models.Note{
		Title:           "Graph Lecture",
		Transcript:      "graphs have nodes",
		StructuredNotes: "# Graphs",
		Source:          models.SourceFileUpload,
		FileName:        &fileName,
		UserID:          "alice",
	})
	require.NoError(t, err)
	notes.Close()

	stdout, _, err := runCommand(t, "", "--config", configPath, "notes", "list", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, stdout, saved.ID)
	assert.Contains(t, stdout, "Graph Lecture")
	assert.Contains(t, stdout, "lecture.mp3")

	stdout, _, err = runCommand(t, "", "--config", configPath, "notes", "list", "--user", "bob")
	require.NoError(t, err)
	assert.Equal(t, "No saved notes\n", stdout)

	stdout, _, err = runCommand(t, "", "--config", configPath, "notes", "show", saved.ID, "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Graphs")

	_, _, err = runCommand(t, "", "--config", configPath, "notes", "delete", saved.ID, "--user", "bob")
	assert.Error(t, err)

	_, _, err = runCommand(t, "", "--config", configPath, "notes", "delete", saved.ID, "--user", "alice")
	require.NoError(t, err)

	_, _, err = runCommand(t, "", "--config", configPath, "notes", "show", saved.ID, "--user", "alice")
	assert.Error(t, err)

	_, _, err = runCommand(t, "", "--config", configPath, "notes", "list")
	assert.EqualError(t, err, "--user is required")
}
