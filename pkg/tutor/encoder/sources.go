package encoder

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
)

type multipartFile struct {
	fh *multipart.FileHeader
}

// FromMultipart adapts an HTTP upload.
func FromMultipart(fh *multipart.FileHeader) File {
	return multipartFile{fh: fh}
}

func (m multipartFile) Name() string     { return m.fh.Filename }
func (m multipartFile) MIMEType() string { return m.fh.Header.Get("Content-Type") }

func (m multipartFile) Open() (io.ReadCloser, error) {
	return m.fh.Open()
}

type pathFile struct {
	path string
}

// FromPath adapts a local file; the declared type comes from the extension.
func FromPath(path string) File {
	return pathFile{path: path}
}

func (p pathFile) Name() string     { return filepath.Base(p.path) }
func (p pathFile) MIMEType() string { return mime.TypeByExtension(filepath.Ext(p.path)) }

func (p pathFile) Open() (io.ReadCloser, error) {
	return os.Open(p.path)
}

type memoryFile struct {
	name     string
	mimeType string
	data     []byte
}

// FromBytes wraps in-memory content.
func FromBytes(name, mimeType string, data []byte) File {
	return memoryFile{name: name, mimeType: mimeType, data: data}
}

func (m memoryFile) Name() string     { return m.name }
func (m memoryFile) MIMEType() string { return m.mimeType }

func (m memoryFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}
