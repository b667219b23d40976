package api

import (
	"context"
	"errors"
	"io"

	"github.com/ppiankov/newsintel/internal/cache"
	"github.com/ppiankov/newsintel/internal/model"
	"github.com/ppiankov/newsintel/internal/mutation"
	"github.com/ppiankov/newsintel/internal/transport"
)

// DefaultUploadSource is the source recorded for uploads without one
const DefaultUploadSource = "Manual Upload"

// Document is a file submitted for analysis (.txt, .pdf, .docx)
type Document struct {
	FileName string
	Content  io.Reader
	Title    string
	Source   string
}

// UploadDocument sends a document for sentiment and keyword extraction.
// Keyword articles, sentiment reads and keyword listings become stale.
func (c *Client) UploadDocument(ctx context.Context, doc Document) (model.DocumentUpload, error) {
	if doc.Content == nil || doc.FileName == "" {
		return model.DocumentUpload{}, errors.New("document needs a file name and content")
	}

	fields := map[string]string{}
	if doc.Title != "" {
		fields["title"] = doc.Title
	}
	source := doc.Source
	if source == "" {
		source = DefaultUploadSource
	}
	fields["source"] = source

	return mutate[model.DocumentUpload](ctx, c, mutation.Operation{
		Name: "upload-document",
		Path: EndpointUpload,
		Upload: &transport.Upload{
			FileName: doc.FileName,
			Content:  doc.Content,
			Fields:   fields,
		},
		Invalidates: []cache.Matcher{
			cache.MatchEndpoint(EndpointKeywordArticles, EndpointKeywords, EndpointKeyword),
			cache.MatchPrefix("/api/sentiment/"),
			cache.MatchPrefix("/api/search/"),
		},
	})
}
