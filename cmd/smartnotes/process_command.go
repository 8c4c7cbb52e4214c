package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xhad/smartnotes/internal/models"
	"github.com/xhad/smartnotes/pkg/export"
	"github.com/xhad/smartnotes/pkg/pipeline"
	"github.com/xhad/smartnotes/pkg/processor"
	"go.uber.org/zap"
)

var errMissingSource = errors.New("exactly one of --youtube, --file or --text is required")

type processOptions struct {
	youtubeURL string
	filePath   string
	textPath   string
	edit       bool
	outputDir  string
	exports    []string
	print      bool
	save       bool
	userID     string
	title      string
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Acquire a transcript, generate notes and a mindmap, and export them",
		Example: `  smartnotes process --youtube https://youtu.be/dQw4w9WgXcQ
  smartnotes process --file lecture.mp3 --edit --export notes,mindmap
  smartnotes process --text transcript.txt --save --user alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.youtubeURL, "youtube", "", "YouTube video URL to read captions from")
	flags.StringVar(&opts.filePath, "file", "", "Audio or video file to transcribe")
	flags.StringVar(&opts.textPath, "text", "", "Plain-text transcript file (- for stdin)")
	flags.BoolVar(&opts.edit, "edit", false, "Review the transcript in $EDITOR before generating")
	flags.StringVarP(&opts.outputDir, "output", "o", ".", "Directory for exported documents")
	flags.StringSliceVar(&opts.exports, "export", []string{"transcript", "notes", "mindmap"}, "Documents to export (transcript, notes, mindmap)")
	flags.BoolVar(&opts.print, "print", true, "Print the structured notes")
	flags.BoolVar(&opts.save, "save", false, "Save the result to the note store")
	flags.StringVar(&opts.userID, "user", "", "Owner of the saved note")
	flags.StringVar(&opts.title, "title", "", "Title of the saved note")

	return cmd
}

func runProcess(cmd *cobra.Command, ctx *commandContext, opts processOptions) error {
	sources := 0
	for _, s := range []string{opts.youtubeURL, opts.filePath, opts.textPath} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		return errMissingSource
	}
	if opts.save && strings.TrimSpace(opts.userID) == "" {
		return errors.New("--user is required with --save")
	}

	contentTypes := make([]export.ContentType, 0, len(opts.exports))
	for _, name := range opts.exports {
		t, err := export.ParseContentType(name)
		if err != nil {
			return fmt.Errorf("--export %q: %w", name, err)
		}
		contentTypes = append(contentTypes, t)
	}

	skip := []string{"auth."}
	if !opts.save {
		skip = append(skip, "database.")
	}
	cfg, err := ctx.validConfig(skip...)
	if err != nil {
		return err
	}

	logger, err := ctx.logger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	stderr := cmd.ErrOrStderr()
	stdout := cmd.OutOrStdout()

	var fetched int32
	pipelineStages, err := buildStages(cfg, stageOptions{
		logger:  logger,
		onFetch: func(string) { atomic.AddInt32(&fetched, 1) },
	})
	if err != nil {
		return err
	}

	// Acquire
	spinner := getSpinner(stderr, "Acquiring transcript...")
	acq, err := acquireTranscript(cmd.Context(), pipelineStages, opts, cmd.InOrStdin())
	spinner.Finish()
	fmt.Fprintln(stderr)
	if err != nil {
		return err
	}
	if opts.youtubeURL != "" {
		color.New(color.FgGreen).Fprintf(stderr, "✓ Transcript acquired (%d requests)\n", atomic.LoadInt32(&fetched))
	} else {
		color.New(color.FgGreen).Fprintf(stderr, "✓ Transcript acquired\n")
	}

	// Review
	handoff := pipeline.NewHandoff()
	handoff.Put(*acq)
	if opts.edit {
		var editErr error
		handoff.Edit(func(transcript string) string {
			edited, err := editInEditor(transcript)
			if err != nil {
				editErr = err
				return transcript
			}
			return edited
		})
		if editErr != nil {
			return editErr
		}
	}

	reviewed, ok := handoff.Take()
	if !ok {
		return errors.New("no transcript to process")
	}
	normalizer := processor.NewWithConfig(processor.ProcessorConfig{PreserveLineBreaks: true})
	reviewed.Transcript = normalizer.Normalize(reviewed.Transcript)
	if reviewed.Transcript == "" {
		return errors.New("transcript is empty")
	}

	// Generate
	spinner = getSpinner(stderr, "Generating notes and mindmap...")
	result := pipelineStages.orchestrator.Generate(cmd.Context(), reviewed.Transcript)
	spinner.Finish()
	fmt.Fprintln(stderr)
	reportFallback(stderr, "notes", result.Notes.Fallback)
	reportFallback(stderr, "mindmap", result.Mindmap.Fallback)

	mindmapJSON := result.Mindmap.Mindmap.JSON()
	contents := map[export.ContentType]string{
		export.TypeTranscript: reviewed.Transcript,
		export.TypeNotes:      result.Notes.Notes,
		export.TypeMindmap:    mindmapJSON,
	}

	// Export
	if len(contentTypes) > 0 {
		if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		bar := getProgressBar(stderr, len(contentTypes), "Exporting documents...")
		for _, t := range contentTypes {
			payload, err := export.Export(contents[t], t, time.Now())
			if err != nil {
				return fmt.Errorf("export %s: %w", t, err)
			}
			path := filepath.Join(opts.outputDir, payload.Filename)
			if err := os.WriteFile(path, payload.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			logger.Debug("document written", zap.String("path", path), zap.Int("bytes", len(payload.Data)))
			_ = bar.Add(1)
		}
		fmt.Fprintln(stderr)
		color.New(color.FgGreen).Fprintf(stderr, "✓ Exported %d documents to %s\n", len(contentTypes), opts.outputDir)
	}

	// Save
	if opts.save {
		notes, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to open note store: %w", err)
		}
		defer notes.Close()

		note := noteFromAcquisition(reviewed, opts.title)
		note.StructuredNotes = result.Notes.Notes
		note.MindmapData = &mindmapJSON
		note.UserID = strings.TrimSpace(opts.userID)

		saved, err := notes.Create(cmd.Context(), note)
		if err != nil {
			return fmt.Errorf("save note: %w", err)
		}
		color.New(color.FgGreen).Fprintf(stderr, "✓ Saved note %s\n", saved.ID)
	}

	if opts.print {
		fmt.Fprintln(stdout, result.Notes.Notes)
	}
	return nil
}

func acquireTranscript(ctx context.Context, s *stages, opts processOptions, stdin io.Reader) (*models.Acquisition, error) {
	switch {
	case opts.youtubeURL != "":
		return s.youtube.Acquire(ctx, opts.youtubeURL)

	case opts.filePath != "":
		data, err := os.ReadFile(opts.filePath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", opts.filePath, err)
		}
		name := filepath.Base(opts.filePath)
		return s.upload.Acquire(ctx, models.AudioPayload{
			Name:     name,
			MimeType: mime.TypeByExtension(strings.ToLower(filepath.Ext(name))),
			Data:     data,
		})

	default:
		r := stdin
		name := "stdin"
		if opts.textPath != "-" {
			f, err := os.Open(opts.textPath)
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", opts.textPath, err)
			}
			defer f.Close()
			r = f
			name = filepath.Base(opts.textPath)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read transcript: %w", err)
		}
		// Pasted transcripts are filed as uploads.
		return &models.Acquisition{
			Transcript: string(data),
			Source:     models.SourceFileUpload,
			Metadata: map[string]interface{}{
				"fileName": name,
				"fileSize": int64(len(data)),
				"fileType": "text/plain",
			},
		}, nil
	}
}

func noteFromAcquisition(acq models.Acquisition, title string) *models.Note {
	note := &models.Note{
		Title:      strings.TrimSpace(title),
		Transcript: acq.Transcript,
		Source:     acq.Source,
	}

	switch acq.Source {
	case models.SourceYouTube:
		if id, ok := acq.Metadata["videoId"].(string); ok && id != "" {
			u := "https://www.youtube.com/watch?v=" + id
			note.SourceURL = &u
		}
		if note.Title == "" {
			note.Title, _ = acq.Metadata["videoTitle"].(string)
		}
	case models.SourceFileUpload:
		if name, ok := acq.Metadata["fileName"].(string); ok && name != "" {
			note.FileName = &name
			if note.Title == "" {
				note.Title, _ = acq.Metadata["audioTitle"].(string)
			}
			if note.Title == "" {
				note.Title = strings.TrimSuffix(name, filepath.Ext(name))
			}
		}
	}

	if note.Title == "" {
		note.Title = "Untitled notes"
	}
	return note
}

func reportFallback(w io.Writer, kind string, reason pipeline.FallbackReason) {
	if reason == pipeline.FallbackNone {
		color.New(color.FgGreen).Fprintf(w, "✓ Generated %s\n", kind)
		return
	}
	color.New(color.FgYellow).Fprintf(w, "! Using default %s (%s)\n", kind, reason)
}
