package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/arthur-debert/pipestore/storage"
)

// Write streams the archive as a zip file to w.
func Write(a *Archive, w io.Writer) (err error) {
	zipWriter := zip.NewWriter(w)
	defer func() {
		if closeErr := zipWriter.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close zip writer: %w", closeErr)
		}
	}()

	manifest, err := json.MarshalIndent(a.Manifest(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := addToZip(zipWriter, a, ManifestName, manifest); err != nil {
		return err
	}

	codec := storage.JSONCodec{Pretty: true}
	for _, c := range a.Collections {
		data, err := codec.Encode(c.Documents)
		if err != nil {
			return fmt.Errorf("failed to encode collection %s: %w", c.Name, err)
		}
		if err := addToZip(zipWriter, a, entryName(c.Name), data); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes the archive to path, replacing any existing file.
func WriteFile(a *Archive, path string) error {
	var buf bytes.Buffer
	if err := Write(a, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	return nil
}

func addToZip(zipWriter *zip.Writer, a *Archive, name string, data []byte) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: a.Created,
	}
	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create %s in zip: %w", name, err)
	}
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Read parses an archive produced by Write.
func Read(r io.ReaderAt, size int64) (*Archive, error) {
	reader, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	files := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		files[f.Name] = f
	}

	mf, ok := files[ManifestName]
	if !ok {
		return nil, fmt.Errorf("archive has no %s", ManifestName)
	}
	data, err := readZipFile(mf)
	if err != nil {
		return nil, err
	}
	manifest, err := decodeManifest(data)
	if err != nil {
		return nil, err
	}

	a := &Archive{Created: manifest.Created}
	codec := storage.JSONCodec{}
	for _, entry := range manifest.Collections {
		f, ok := files[entry.File]
		if !ok {
			return nil, fmt.Errorf("archive is missing %s for collection %s", entry.File, entry.Name)
		}
		data, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		docs, err := codec.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode collection %s: %w", entry.Name, err)
		}
		a.Collections = append(a.Collections, Collection{Name: entry.Name, Documents: docs})
	}
	return a, nil
}

// ReadFile opens and parses the archive at path.
func ReadFile(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return Read(bytes.NewReader(data), int64(len(data)))
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return data, nil
}
