package commands

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/thesyncim/avio"
)

// Version information set at build time via ldflags.
// Example: go build -ldflags "-X github.com/thesyncim/avio/internal/commands.Version=v1.0.0"
var (
	// Version is the semantic version of the CLI.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date when the binary was built.
	BuildDate = "unknown"
)

// ffmpegVersion is swapped out by tests.
var ffmpegVersion = avio.FFmpegVersion

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
	FFmpeg    string `json:"ffmpeg,omitempty"`
	AVFormat  string `json:"avformat,omitempty"`
	FFmpegErr string `json:"ffmpegError,omitempty"`
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print version information including the loaded FFmpeg libraries, if any.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:   Version,
				Commit:    Commit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			if v, avformat, err := ffmpegVersion(); err != nil {
				info.FFmpegErr = err.Error()
			} else {
				info.FFmpeg = v
				info.AVFormat = fmt.Sprintf("%d.%d.%d", avformat[0], avformat[1], avformat[2])
			}

			if a.jsonOutput {
				return json.NewEncoder(a.stdout).Encode(info)
			}

			fmt.Fprintf(a.stdout, "avioctl %s\n", info.Version)
			fmt.Fprintf(a.stdout, "  commit:     %s\n", info.Commit)
			fmt.Fprintf(a.stdout, "  built:      %s\n", info.BuildDate)
			fmt.Fprintf(a.stdout, "  go version: %s\n", info.GoVersion)
			fmt.Fprintf(a.stdout, "  platform:   %s\n", info.Platform)
			if info.FFmpegErr != "" {
				fmt.Fprintf(a.stdout, "  ffmpeg:     not available (%s)\n", info.FFmpegErr)
			} else {
				fmt.Fprintf(a.stdout, "  ffmpeg:     %s (libavformat %s)\n", info.FFmpeg, info.AVFormat)
			}
			return nil
		},
	}
}
