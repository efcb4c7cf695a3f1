package convert

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"convertly/internal/model"
)

// MediaStrategy transcodes audio and video containers by shelling out to
// ffmpeg. The output codec is inferred by ffmpeg from the target extension.
type MediaStrategy struct {
	FFmpegBin string
}

func NewMediaStrategy(ffmpegBin string) *MediaStrategy {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	return &MediaStrategy{FFmpegBin: ffmpegBin}
}

func (s *MediaStrategy) Name() string { return "media" }

func (s *MediaStrategy) Convert(ctx context.Context, inputPath string, settings model.ConversionSettings) (string, error) {
	outputPath := outputPathFor(inputPath, settings.OutputFormat)

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inputPath,
	}

	if audioFormats[settings.OutputFormat] {
		args = append(args, "-vn")
		args = append(args, audioArgs(settings)...)
	} else {
		args = append(args, videoArgs(settings)...)
	}

	args = append(args, outputPath)

	cmd := exec.CommandContext(ctx, s.FFmpegBin, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg transcode: %w: %s", err, strings.TrimSpace(string(output)))
	}

	return outputPath, nil
}

func audioArgs(settings model.ConversionSettings) []string {
	var args []string

	// WAV is PCM; a bitrate ceiling only makes sense for lossy targets.
	if settings.OutputFormat != "wav" {
		bitrate := map[string]string{
			model.QualityHigh:   "320k",
			model.QualityMedium: "192k",
			model.QualityLow:    "96k",
		}[settings.Quality]
		args = append(args, "-b:a", bitrate)
	}

	if filter := audioFilterChain(settings); filter != "" {
		args = append(args, "-af", filter)
	}
	return args
}

func videoArgs(settings model.ConversionSettings) []string {
	crf := map[string]string{
		model.QualityHigh:   "18",
		model.QualityMedium: "23",
		model.QualityLow:    "28",
	}[settings.Quality]

	args := []string{"-crf", crf}
	if settings.AutoCompression {
		args = append(args, "-preset", "slow")
	}
	if settings.NoiseReduction {
		args = append(args, "-af", "afftdn")
	}
	return args
}

func audioFilterChain(settings model.ConversionSettings) string {
	var filters []string
	if settings.NoiseReduction {
		filters = append(filters, "afftdn")
	}
	if settings.AutoCompression {
		filters = append(filters, "acompressor")
	}
	return strings.Join(filters, ",")
}
