package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
)

// Upload is a multipart form body with one file part
type Upload struct {
	FieldName string // defaults to "file"
	FileName  string
	Content   io.Reader
	Fields    map[string]string
}

// encode writes the form and returns it with its boundary content type
func (u *Upload) encode() (io.Reader, string, error) {
	if u.Content == nil {
		return nil, "", errors.New("upload has no content")
	}

	field := u.FieldName
	if field == "" {
		field = "file"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	// Stable field order keeps identical uploads byte-identical
	names := make([]string, 0, len(u.Fields))
	for name := range u.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if u.Fields[name] == "" {
			continue
		}
		if err := w.WriteField(name, u.Fields[name]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	part, err := w.CreateFormFile(field, u.FileName)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, u.Content); err != nil {
		return nil, "", fmt.Errorf("copy file: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
