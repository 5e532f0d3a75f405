package encoder

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/erajkarimi-webs/My-AI-Course-Tutors/pkg/tutor"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

// File is an opaque handle to an uploaded document.
type File interface {
	Name() string
	MIMEType() string
	Open() (io.ReadCloser, error)
}

// Encode reads the whole file and returns its base64 inline payload.
// Any open or read failure, including cancellation mid-read, is a FileReadError.
func Encode(ctx context.Context, f File) (tutor.EncodedFile, error) {
	name := f.Name()

	rc, err := f.Open()
	if err != nil {
		return tutor.EncodedFile{}, tutor.NewError(tutor.FileReadError, name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(&ctxReader{ctx: ctx, r: rc})
	if err != nil {
		return tutor.EncodedFile{}, tutor.NewError(tutor.FileReadError, name, err)
	}

	return tutor.EncodedFile{
		DisplayName: name,
		MimeType:    resolveMIME(f.MIMEType(), data),
		Payload:     base64.StdEncoding.EncodeToString(data),
	}, nil
}

// EncodeAll encodes a batch concurrently. Results keep the input order; the
// first failure cancels the remaining reads and is returned.
func EncodeAll(ctx context.Context, files []File) ([]tutor.EncodedFile, error) {
	out := make([]tutor.EncodedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			enc, err := Encode(gctx, f)
			if err != nil {
				return err
			}
			out[i] = enc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveMIME prefers the declared type and falls back to content sniffing,
// which itself ends at application/octet-stream.
func resolveMIME(declared string, data []byte) string {
	if mt := stripParams(declared); mt != "" {
		return mt
	}
	return stripParams(mimetype.Detect(data).String())
}

func stripParams(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(m); err == nil {
		return mt
	}
	if i := strings.IndexByte(m, ';'); i >= 0 {
		return strings.TrimSpace(m[:i])
	}
	return strings.ToLower(m)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, fmt.Errorf("read aborted: %w", err)
	}
	return c.r.Read(p)
}
