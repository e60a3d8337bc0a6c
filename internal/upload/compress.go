package upload

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrCompressorMissing means ffmpeg is not on PATH.
var ErrCompressorMissing = errors.New("upload compressor missing")

// File is one local file in a batch.
type File struct {
	Name        string
	Path        string
	ContentType string
	Size        int64
}

// IsAudio reports whether the file is worth compressing.
func (f File) IsAudio() bool {
	return strings.HasPrefix(strings.ToLower(f.ContentType), "audio/")
}

// Compressor turns a file into a smaller one. progress receives values in
// [0, 1].
type Compressor interface {
	Compress(ctx context.Context, in File, progress func(float64)) (File, error)
}

// PassthroughCompressor returns its input untouched.
type PassthroughCompressor struct{}

func (PassthroughCompressor) Compress(_ context.Context, in File, progress func(float64)) (File, error) {
	progress(1)
	return in, nil
}

// FFmpegCompressor re-encodes audio as mono 64 kbps mp3 into TempDir.
type FFmpegCompressor struct {
	TempDir string
}

func (c FFmpegCompressor) Compress(ctx context.Context, in File, progress func(float64)) (File, error) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return File{}, fmt.Errorf("%w: ffmpeg not installed", ErrCompressorMissing)
	}

	dir := c.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	base := strings.TrimSuffix(filepath.Base(in.Name), filepath.Ext(in.Name))
	out, err := os.CreateTemp(dir, "crucible-*-"+base+".mp3")
	if err != nil {
		return File{}, fmt.Errorf("create compressed file: %w", err)
	}
	outPath := out.Name()
	_ = out.Close()

	durationUS := probeDurationUS(ctx, in.Path)

	cmd := exec.CommandContext(ctx, ffmpeg,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", in.Path,
		"-vn", "-ac", "1", "-b:a", "64k",
		"-progress", "pipe:1", "-nostats",
		outPath,
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = os.Remove(outPath)
		return File{}, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		_ = os.Remove(outPath)
		return File{}, fmt.Errorf("start ffmpeg: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok || durationUS <= 0 {
			continue
		}
		if key == "out_time_us" || key == "out_time_ms" {
			// ffmpeg reports microseconds under both keys.
			if done, err := strconv.ParseInt(value, 10, 64); err == nil && done > 0 {
				progress(min(float64(done)/float64(durationUS), 1))
			}
		}
	}
	if err := cmd.Wait(); err != nil {
		_ = os.Remove(outPath)
		return File{}, fmt.Errorf("ffmpeg failed: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return File{}, fmt.Errorf("stat compressed file: %w", err)
	}
	progress(1)
	return File{
		Name:        base + ".mp3",
		Path:        outPath,
		ContentType: "audio/mpeg",
		Size:        info.Size(),
	}, nil
}

func probeDurationUS(ctx context.Context, path string) int64 {
	ffprobe, err := exec.LookPath("ffprobe")
	if err != nil {
		return 0
	}
	output, err := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0
	}
	return int64(seconds * 1e6)
}
