package http

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

const (
	// LocalFilePrefix marks a multipart value as a local file path
	LocalFilePrefix = "file:///"
	// RemotePrefix marks a multipart value as a URL to download first
	RemotePrefix = "url:///"
)

// FieldKind classifies a multipart field value.
type FieldKind int

const (
	FieldLiteral FieldKind = iota
	FieldLocalFile
	FieldRemote
)

func (k FieldKind) String() string {
	switch k {
	case FieldLocalFile:
		return "file"
	case FieldRemote:
		return "url"
	default:
		return "literal"
	}
}

// FieldValue is a classified multipart value. Ref holds the literal text,
// the absolute local path, or the remote URL.
type FieldValue struct {
	Kind FieldKind
	Ref  string
}

// ClassifyField inspects the value prefix only; nothing is read or fetched.
func ClassifyField(value string) FieldValue {
	switch {
	case strings.HasPrefix(value, LocalFilePrefix):
		ref := strings.TrimPrefix(value, LocalFilePrefix)
		if !filepath.IsAbs(ref) {
			ref = "/" + ref
		}
		return FieldValue{Kind: FieldLocalFile, Ref: ref}
	case strings.HasPrefix(value, RemotePrefix):
		return FieldValue{Kind: FieldRemote, Ref: strings.TrimPrefix(value, RemotePrefix)}
	default:
		return FieldValue{Kind: FieldLiteral, Ref: value}
	}
}

// Part is a multipart-ready field. File parts carry a Source that is read and
// closed exactly once by the form writer; literal parts carry Value.
type Part struct {
	Name        string
	Value       string
	Source      io.ReadCloser
	FileName    string
	ContentType string
}

// IsFile reports whether the part streams file content.
func (p Part) IsFile() bool {
	return p.Source != nil
}

func closeParts(parts []Part) {
	for _, p := range parts {
		if p.Source != nil {
			_ = p.Source.Close()
		}
	}
}

// fieldResolver turns flattened form fields into parts for one request.
type fieldResolver struct {
	fetcher   *Fetcher
	artifacts *artifacts
	limit     int
	logger    *slog.Logger
	observer  Observer
}

// resolve materializes all fields concurrently. Every task runs to completion;
// the first hard error fails the whole resolution and closes any part already
// opened. Rejected downloads only drop their field.
func (r *fieldResolver) resolve(ctx context.Context, fields []FormField) ([]Part, error) {
	slots := make([]*Part, len(fields))

	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i, field := range fields {
		g.Go(func() error {
			part, err := r.resolveField(ctx, field)
			if err != nil {
				return err
			}
			slots[i] = part
			return nil
		})
	}
	err := g.Wait()

	parts := make([]Part, 0, len(slots))
	for _, p := range slots {
		if p != nil {
			parts = append(parts, *p)
		}
	}
	if err != nil {
		closeParts(parts)
		return nil, err
	}
	return parts, nil
}

// resolveField returns a nil part when the field is dropped.
func (r *fieldResolver) resolveField(ctx context.Context, field FormField) (*Part, error) {
	value := ClassifyField(field.Value)

	switch value.Kind {
	case FieldLocalFile:
		file, err := os.Open(value.Ref)
		if err != nil {
			return nil, &ResolutionError{Field: field.Name, Err: err}
		}
		return &Part{
			Name:        field.Name,
			Source:      file,
			FileName:    filepath.Base(value.Ref),
			ContentType: inferContentType(value.Ref, filepath.Base(value.Ref)),
		}, nil

	case FieldRemote:
		result := r.fetcher.Fetch(ctx, value.Ref)
		r.observer.FetchFinished(result)
		if !result.OK() {
			r.logger.Debug("dropping multipart field", "field", field.Name, "url", value.Ref, "reason", result.Reason)
			return nil, nil
		}
		r.artifacts.add(result.Path)

		file, err := os.Open(result.Path)
		if err != nil {
			return nil, &ResolutionError{Field: field.Name, Err: err}
		}
		name := storedFileName(result.Path)
		return &Part{
			Name:        field.Name,
			Source:      file,
			FileName:    name,
			ContentType: inferContentType(result.Path, name),
		}, nil

	default:
		return &Part{Name: field.Name, Value: value.Ref}, nil
	}
}

// inferContentType maps the file name extension to a MIME type and falls
// back to sniffing the file content.
func inferContentType(path, name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	if m, err := mimetype.DetectFile(path); err == nil {
		return m.String()
	}
	return "application/octet-stream"
}
