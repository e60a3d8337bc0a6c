// Command crucible edits analysis results and uploads source files from
// the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"crucible/api/internal/analysis"
	"crucible/api/internal/config"
	"crucible/api/internal/draft"
	"crucible/api/internal/resultsclient"
	"crucible/api/internal/upload"
)

const usage = `usage:
  crucible edit -job ID [-title TITLE] [-script edits.json]
  crucible upload -user ID FILE...
  crucible history -job ID [-limit N]`

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARNING: could not read .env: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, config.Load(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, cfg config.Config, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	var err error
	switch args[0] {
	case "edit":
		err = runEdit(ctx, cfg, args[1:], stdout)
	case "upload":
		err = runUpload(ctx, cfg, args[1:], stdout)
	case "history":
		err = runHistory(ctx, cfg, args[1:], stdout)
	default:
		fmt.Fprintln(stderr, usage)
		return 2
	}
	if errors.Is(err, flag.ErrHelp) {
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "crucible %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func newClient(cfg config.Config) (*resultsclient.Client, error) {
	return resultsclient.New(cfg.APIURL, 16, resultsclient.WithToken(cfg.APIToken))
}

// runEdit loads a job, enters edit mode, applies the edits and commits them
// in one bulk save. Nothing is kept locally when the save fails.
func runEdit(ctx context.Context, cfg config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(stdout)
	jobID := fs.String("job", "", "job id")
	title := fs.String("title", "", "new title")
	script := fs.String("script", "", "JSON file of edit ops, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*jobID) == "" {
		return errors.New("-job is required")
	}

	var mutations []analysis.Mutation
	if *title != "" {
		mutations = append(mutations, analysis.SetTitle(*title))
	}
	if *script != "" {
		scripted, err := readScript(*script)
		if err != nil {
			return err
		}
		mutations = append(mutations, scripted...)
	}
	if len(mutations) == 0 {
		return errors.New("nothing to edit: pass -title or -script")
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	session := draft.NewSession(*jobID, client, draft.WithObserver(func(event draft.Event) {
		if notice := event.Notice(); notice != "" {
			fmt.Fprintln(stdout, notice)
		}
	}))
	if err := session.Load(ctx, client); err != nil {
		return err
	}
	if err := session.EnterEdit(); err != nil {
		return err
	}
	if err := session.Apply(mutations...); err != nil {
		session.Cancel()
		return err
	}
	if err := session.Commit(ctx); err != nil {
		session.Cancel()
		return err
	}

	doc, err := session.ActiveDocument()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %q, %d sections\n", *jobID, doc.Title, len(doc.Results))
	return nil
}

func readScript(path string) ([]analysis.Mutation, error) {
	if path == "-" {
		return draft.ReadScript(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer f.Close()
	return draft.ReadScript(f)
}

func runUpload(ctx context.Context, cfg config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(stdout)
	userID := fs.String("user", "", "owner user id")
	concurrency := fs.Int("concurrency", cfg.UploadConcurrency, "files uploaded at once")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*userID) == "" {
		return errors.New("-user is required")
	}
	if strings.TrimSpace(cfg.S3Endpoint) == "" {
		return errors.New("S3_ENDPOINT is not set")
	}

	files, err := collectFiles(fs.Args())
	if err != nil {
		return err
	}

	objects, err := upload.NewMinioStore(upload.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		UseSSL:    cfg.S3UseSSL,
	})
	if err != nil {
		return err
	}

	var compressor upload.Compressor = upload.PassthroughCompressor{}
	if _, err := exec.LookPath("ffmpeg"); err == nil {
		compressor = upload.FFmpegCompressor{TempDir: os.TempDir()}
	} else {
		fmt.Fprintln(stdout, "ffmpeg not found, audio is uploaded uncompressed")
	}

	batch, err := upload.NewPipeline(compressor, objects, *concurrency).Start(ctx, *userID, files)
	if err != nil {
		return err
	}
	tracker := upload.NewTracker()
	for event := range batch.Events() {
		tracker.Observe(event)
		printEvent(stdout, event, tracker.Overall())
	}
	summary := batch.Wait()

	fmt.Fprintf(stdout, "uploaded %d of %d files\n", len(summary.Succeeded), len(files))
	if summary.AllSucceeded() {
		return nil
	}
	for name, failure := range summary.Failed {
		fmt.Fprintf(stdout, "  %s: %v\n", name, failure)
	}
	if summary.PartiallyFailed() {
		return fmt.Errorf("%d files failed", len(summary.Failed))
	}
	return errors.New("every file failed")
}

// printEvent keeps output readable by only printing phase changes and every
// 25%.
func printEvent(w io.Writer, event upload.Event, overall int) {
	switch event.Phase {
	case upload.PhaseFailed:
		fmt.Fprintf(w, "[%3d%%] %s failed: %v\n", overall, event.File, event.Err)
	case upload.PhaseDone:
		fmt.Fprintf(w, "[%3d%%] %s done\n", overall, event.File)
	default:
		if event.Percent%25 == 0 {
			fmt.Fprintf(w, "[%3d%%] %s %s %d%%\n", overall, event.File, event.Phase, event.Percent)
		}
	}
}

// The mime package only knows these when the host has a mime.types file.
var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

func collectFiles(paths []string) ([]upload.File, error) {
	if len(paths) == 0 {
		return nil, upload.ErrEmptyBatch
	}
	files := make([]upload.File, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", path)
		}
		ext := strings.ToLower(filepath.Ext(path))
		contentType, ok := audioTypes[ext]
		if !ok {
			contentType = mime.TypeByExtension(ext)
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		files = append(files, upload.File{
			Name:        filepath.Base(path),
			Path:        path,
			ContentType: contentType,
			Size:        info.Size(),
		})
	}
	return files, nil
}

func runHistory(ctx context.Context, cfg config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stdout)
	jobID := fs.String("job", "", "job id")
	limit := fs.Int("limit", 20, "versions to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*jobID) == "" {
		return errors.New("-job is required")
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	versions, err := client.History(ctx, *jobID, *limit)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(stdout, "no saved versions")
		return nil
	}
	for _, version := range versions {
		hash := version.Hash
		if len(hash) > 8 {
			hash = hash[:8]
		}
		fmt.Fprintf(stdout, "%s  %s  %-24s %s\n", hash, version.CreatedAt.Format("2006-01-02 15:04"), version.Author, version.Message)
	}
	return nil
}
