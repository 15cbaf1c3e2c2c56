package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/thesyncim/avio"
	"github.com/thesyncim/avio/internal/config"
)

func newTestApp(t *testing.T) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp(
		WithIO(&stdout, &stderr),
		WithConfigLoader(func(string) (*config.Config, error) { return config.Default(), nil }),
	)
	return app, &stdout, &stderr
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"positive", "1094995529", avio.CodeInvalidData, false},
		{"negative", "-541478725", avio.CodeEOF, false},
		{"tag", "INDA", avio.CodeInvalidData, false},
		{"tag with space", "EOF ", avio.CodeEOF, false},
		{"name", "HTTP_NOT_FOUND", avio.CodeHTTPNotFound, false},
		{"prefixed name", "averror_invaliddata", avio.CodeInvalidData, false},
		{"zero", "0", 0, true},
		{"garbage", "not-a-code", 0, true},
		{"unknown tag", "what", 0, true},
		{"unknown tag with space", "ab c", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseCode(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestDisplayTag(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{avio.CodeInvalidData, "INDA"},
		{avio.CodeDecoderNotFound, ".DEC"},
		{avio.CallbackErrorCode, "GoAV"},
		{2, "-"},
	}

	for _, tt := range tests {
		if got := displayTag(tt.code); got != tt.want {
			t.Errorf("displayTag(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestErrorsCommand(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	if err := app.Execute("errors"); err != nil {
		t.Fatalf("errors error = %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"NAME", "INVALIDDATA", "InvalidDataError", "library|value", "GoAV"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestErrorsCommandJSON(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	if err := app.Execute("errors", "--json", "--family", "lookup"); err != nil {
		t.Fatalf("errors error = %v", err)
	}

	var views []codeView
	if err := json.Unmarshal(stdout.Bytes(), &views); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(views) == 0 {
		t.Fatal("no lookup codes listed")
	}
	for _, v := range views {
		if !strings.Contains(v.Families, "lookup") {
			t.Errorf("%s listed with families %s", v.Name, v.Families)
		}
	}
}

func TestErrorsCommandBadFamily(t *testing.T) {
	app, _, _ := newTestApp(t)
	err := app.Execute("errors", "--family", "nope")

	var ee *ExitError
	if !errors.As(err, &ee) || ee.ExitCode() != 2 {
		t.Errorf("errors --family nope = %v, want exit code 2", err)
	}
}

func TestExplainCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want codeView
	}{
		{
			name: "tag",
			args: []string{"explain", "--json", "INDA"},
			want: codeView{
				Name: "INVALIDDATA", Code: avio.CodeInvalidData, Tag: "INDA",
				Kind: "InvalidDataError", Families: "library|value",
				Message: "Invalid data found when processing input",
				Error:   "[Errno 1094995529] Invalid data found when processing input",
			},
		},
		{
			name: "negative code",
			args: []string{"explain", "--json", "--", "-541478725"},
			want: codeView{
				Name: "EOF", Code: avio.CodeEOF, Tag: "EOF ",
				Kind: "EOFError", Families: "library|eof",
				Message: "End of file",
				Error:   "[Errno 541478725] End of file",
			},
		},
		{
			name: "callback",
			args: []string{"explain", "--json", "GoAV"},
			want: codeView{
				Name: "CALLBACK", Code: avio.CallbackErrorCode, Tag: "GoAV",
				Kind: "CallbackError", Families: "library|runtime",
				Message: "Error in Go avio callback",
				Error:   "[Errno 1447128903] Error in Go avio callback",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, stdout, _ := newTestApp(t)
			if err := app.Execute(tt.args...); err != nil {
				t.Fatalf("explain error = %v", err)
			}
			var got codeView
			if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
				t.Fatalf("output is not JSON: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("explain mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExplainCommandUnrecognized(t *testing.T) {
	app, stdout, _ := newTestApp(t)
	if err := app.Execute("explain", "12345678"); err != nil {
		t.Fatalf("explain error = %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "UnrecognizedError") || !strings.Contains(out, "Error number -12345678 occurred") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestExplainCommandUsage(t *testing.T) {
	app, _, stderr := newTestApp(t)
	err := app.Execute("explain", "what")

	var ee *ExitError
	if !errors.As(err, &ee) || ee.ExitCode() != 2 {
		t.Errorf("explain what = %v, want exit code 2", err)
	}
	if !strings.Contains(stderr.String(), "Error:") {
		t.Errorf("stderr = %q, want the error printed", stderr.String())
	}
}

func TestCopyCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.bin")
	dst := filepath.Join(dir, "out.bin")

	data := make([]byte, 100_000)
	for i := range data {
		data[i] = byte(i * 31)
	}
	if err := os.WriteFile(src, data, 0644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}

	app, stdout, _ := newTestApp(t)
	if err := app.Execute("copy", "--json", "--buffer-size", "4096", src, dst); err != nil {
		t.Fatalf("copy error = %v", err)
	}

	var res copyResult
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if res.Bytes != int64(len(data)) || res.BufferSize != 4096 {
		t.Errorf("result = %+v", res)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("destination differs: %d bytes, want %d", len(got), len(data))
	}
}

func TestCopyCommandErrors(t *testing.T) {
	dir := t.TempDir()

	app, _, _ := newTestApp(t)
	err := app.Execute("copy", filepath.Join(dir, "missing"), filepath.Join(dir, "out"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("copy of a missing file = %v, want ErrNotExist", err)
	}

	app, _, _ = newTestApp(t)
	err = app.Execute("copy", "--buffer-size=-1", "a", "b")
	var ee *ExitError
	if !errors.As(err, &ee) || ee.ExitCode() != 2 {
		t.Errorf("copy --buffer-size -1 = %v, want exit code 2", err)
	}
}

func TestVersionCommand(t *testing.T) {
	orig := ffmpegVersion
	t.Cleanup(func() { ffmpegVersion = orig })

	ffmpegVersion = func() (string, [3]int, error) {
		return "7.1", [3]int{61, 7, 100}, nil
	}
	app, stdout, _ := newTestApp(t)
	if err := app.Execute("version", "--json"); err != nil {
		t.Fatalf("version error = %v", err)
	}
	var info versionInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if info.Version != Version || info.FFmpeg != "7.1" || info.AVFormat != "61.7.100" {
		t.Errorf("version info = %+v", info)
	}

	ffmpegVersion = func() (string, [3]int, error) {
		return "", [3]int{}, errors.New("libavutil not found")
	}
	app, stdout, _ = newTestApp(t)
	if err := app.Execute("version"); err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.Contains(stdout.String(), "not available (libavutil not found)") {
		t.Errorf("unexpected output:\n%s", stdout.String())
	}
}

func TestConfigLoadError(t *testing.T) {
	loadErr := errors.New("bad config")
	app := NewApp(
		WithIO(&bytes.Buffer{}, &bytes.Buffer{}),
		WithConfigLoader(func(string) (*config.Config, error) { return nil, loadErr }),
	)
	if err := app.Execute("errors"); !errors.Is(err, loadErr) {
		t.Errorf("Execute() = %v, want the config error", err)
	}
}

func TestConfigLibraryPath(t *testing.T) {
	t.Setenv("AVIO_FFMPEG_LIB_PATH", "")
	app := NewApp(
		WithIO(&bytes.Buffer{}, &bytes.Buffer{}),
		WithConfigLoader(func(string) (*config.Config, error) {
			cfg := config.Default()
			cfg.LibraryPath = "/opt/ffmpeg/lib"
			return cfg, nil
		}),
	)
	if err := app.Execute("errors"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := os.Getenv("AVIO_FFMPEG_LIB_PATH"); got != "/opt/ffmpeg/lib" {
		t.Errorf("AVIO_FFMPEG_LIB_PATH = %q, want the configured path", got)
	}
}
