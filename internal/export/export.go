// Package export writes a projected collection as JSONL to a local file or
// an S3 object.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// ContentType is the media type of exported payloads.
const ContentType = "application/x-ndjson"

// Sink receives one complete export payload.
type Sink interface {
	Put(ctx context.Context, payload []byte) error
	// Location names the destination for log and CLI output.
	Location() string
}

// Encode writes records to w, one JSON object per line.
func Encode(w io.Writer, records []types.Record) error {
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", rec.ID, err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// Write encodes records and hands the payload to sink. It returns the
// number of bytes written.
func Write(ctx context.Context, sink Sink, records []types.Record) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, records); err != nil {
		return 0, err
	}
	if err := sink.Put(ctx, buf.Bytes()); err != nil {
		return 0, fmt.Errorf("export to %s: %w", sink.Location(), err)
	}
	return buf.Len(), nil
}

// Open returns the sink for target: an S3Sink for s3://bucket/key, a
// FileSink otherwise. cfg supplies S3 connection settings.
func Open(ctx context.Context, target string, cfg S3Config) (Sink, error) {
	if rest, ok := strings.CutPrefix(target, "s3://"); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid s3 target %q: want s3://bucket/key", target)
		}
		cfg.Bucket, cfg.Key = bucket, key
		return NewS3Sink(ctx, cfg)
	}
	if target == "" {
		return nil, fmt.Errorf("export target must not be empty")
	}
	return &FileSink{Path: target}, nil
}

// FileSink writes the payload to a local file, replacing it atomically.
type FileSink struct {
	Path string
}

func (f *FileSink) Location() string { return f.Path }

func (f *FileSink) Put(_ context.Context, payload []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
