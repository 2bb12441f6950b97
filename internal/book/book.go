// Package book opens EPUB containers and exposes the pieces the editor
// works with: spine documents as editable text and the NCX for outline
// extraction.
package book

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

// Document is one spine entry of an opened book.
type Document struct {
	ID        string
	Href      string
	MediaType string
}

// Book is an open EPUB container.
type Book struct {
	path string
	rc   *epub.ReadCloser
	root *epub.Rootfile
}

// Open reads an EPUB container from disk.
func Open(filename string) (*Book, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	if len(rc.Rootfiles) == 0 {
		rc.Close()
		return nil, fmt.Errorf("open epub: no rootfiles found")
	}
	return &Book{path: filename, rc: rc, root: rc.Rootfiles[0]}, nil
}

// Close releases the underlying archive.
func (b *Book) Close() error {
	b.rc.Close()
	return nil
}

// Documents lists the spine in reading order.
func (b *Book) Documents() []Document {
	var out []Document
	for _, ref := range b.root.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		out = append(out, Document{
			ID:        ref.Item.ID,
			Href:      ref.Item.HREF,
			MediaType: ref.Item.MediaType,
		})
	}
	return out
}

// Chapter returns the raw content of a manifest item by href. The href may be
// given with or without its directory prefix.
func (b *Book) Chapter(href string) (string, error) {
	for _, item := range b.root.Manifest.Items {
		if item.HREF != href && path.Base(item.HREF) != href {
			continue
		}
		r, err := item.Open()
		if err != nil {
			return "", fmt.Errorf("open chapter %s: %w", href, err)
		}
		defer r.Close()
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read chapter %s: %w", href, err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("chapter %s: not in manifest", href)
}

// NCX returns the raw navigation document content and its archive name. The
// manifest's declared NCX wins; a bare extension scan covers books whose
// manifest omits the media type.
func (b *Book) NCX() (content string, name string, err error) {
	zr, err := zip.OpenReader(b.path)
	if err != nil {
		return "", "", fmt.Errorf("open epub archive: %w", err)
	}
	defer zr.Close()

	var ncxPath string
	for _, item := range b.root.Manifest.Items {
		if item.MediaType == "application/x-dtbncx+xml" {
			ncxPath = item.HREF
			break
		}
	}
	if ncxPath == "" {
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".ncx") {
				ncxPath = f.Name
				break
			}
		}
	}
	if ncxPath == "" {
		return "", "", fmt.Errorf("no NCX document in %s", b.path)
	}

	for _, f := range zr.File {
		if f.Name == ncxPath || strings.HasSuffix(f.Name, "/"+ncxPath) || path.Base(f.Name) == path.Base(ncxPath) {
			rc, err := f.Open()
			if err != nil {
				return "", "", fmt.Errorf("open ncx: %w", err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return "", "", fmt.Errorf("read ncx: %w", err)
			}
			return string(data), path.Base(f.Name), nil
		}
	}
	return "", "", fmt.Errorf("ncx %s not found in archive", ncxPath)
}
