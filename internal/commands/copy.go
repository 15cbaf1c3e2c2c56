package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/thesyncim/avio"
)

// copyResult is the outcome of one copy.
type copyResult struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Bytes       int64  `json:"bytes"`
	BufferSize  int    `json:"bufferSize"`
}

func (a *App) newCopyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <src> <dst>",
		Short: "Copy a file through a read adapter and a write adapter",
		Long: `Copy src to dst, reading through an avio read adapter and writing
through an avio write adapter on the in-memory engine. Transfers happen in
buffer-size chunks, and every result code goes through the error check a
native caller would use.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			size := a.bufferSize
			if size == 0 && a.cfg != nil {
				size = a.cfg.BufferSize
			}
			if size <= 0 {
				return usageError("invalid buffer size %d", size)
			}

			res, err := copyFile(a.newScope(), args[0], args[1], size)
			if err != nil {
				return err
			}

			if a.jsonOutput {
				return json.NewEncoder(a.stdout).Encode(res)
			}
			fmt.Fprintf(a.stdout, "copied %d bytes from %s to %s\n", res.Bytes, res.Source, res.Destination)
			return nil
		},
	}
	cmd.Flags().IntVar(&a.bufferSize, "buffer-size", 0, "transfer buffer size (default from config)")
	return cmd
}

func copyFile(scope *avio.Scope, src, dst string, bufferSize int) (res copyResult, err error) {
	res = copyResult{Source: src, Destination: dst, BufferSize: bufferSize}

	in, err := os.Open(src)
	if err != nil {
		return res, err
	}
	out, err := os.Create(dst)
	if err != nil {
		in.Close()
		return res, err
	}

	backend := avio.NewMemoryBackend()
	r, err := avio.NewAdapter(in, avio.AdapterConfig{
		BufferSize:  bufferSize,
		Mode:        avio.ModeRead,
		Backend:     backend,
		Scope:       scope,
		CloseStream: true,
	})
	if err != nil {
		in.Close()
		out.Close()
		return res, err
	}
	w, err := avio.NewAdapter(out, avio.AdapterConfig{
		BufferSize:  bufferSize,
		Mode:        avio.ModeWrite,
		Backend:     backend,
		Scope:       scope,
		CloseStream: true,
	})
	if err != nil {
		r.Close()
		out.Close()
		return res, err
	}

	var result *multierror.Error
	res.Bytes, err = io.Copy(backend.Bind(w), backend.Bind(r))
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("copy %s: %w", src, err))
	}
	// The writer flushes on Close.
	if err := w.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := r.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return res, result.ErrorOrNil()
}
