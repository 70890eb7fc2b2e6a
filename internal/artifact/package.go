package artifact

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

// Layout selects the directory shape inside a packaged archive. The layout
// is preserved verbatim on extraction.
type Layout string

const (
	// LayoutFlat places every artifact at the archive root.
	LayoutFlat Layout = "flat"
	// LayoutPerJob places artifacts under one folder named after the job.
	LayoutPerJob Layout = "per-job"
	// LayoutPerFormat groups artifacts into one folder per format.
	LayoutPerFormat Layout = "per-format"
)

// ParseLayout validates a layout name.
func ParseLayout(name string) (Layout, error) {
	switch Layout(name) {
	case LayoutFlat, LayoutPerJob, LayoutPerFormat:
		return Layout(name), nil
	case "":
		return LayoutFlat, nil
	default:
		return "", fmt.Errorf("unknown archive layout %q", name)
	}
}

// Manifest is the machine-readable description packaged with every archive.
type Manifest struct {
	GeneratedAt    time.Time       `json:"generatedAt"`
	SourceFilename string          `json:"sourceFilename"`
	JobID          string          `json:"jobId"`
	Outputs        []ManifestEntry `json:"outputs"`
}

type ManifestEntry struct {
	Format    string `json:"format"`
	File      string `json:"file"`
	SizeBytes int    `json:"sizeBytes"`
}

// Package bundles a job's artifacts plus a manifest into one zip archive.
// Entry order and timestamps are derived from the inputs only, so identical
// inputs produce identical bytes.
func Package(jobID, sourceFilename string, artifacts map[Format][]byte, layout Layout, generatedAt time.Time) ([]byte, error) {
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("nothing to package")
	}

	base := strings.TrimSuffix(sourceFilename, path.Ext(sourceFilename))
	if base == "" {
		base = jobID
	}

	formats := make([]Format, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })

	manifest := Manifest{
		GeneratedAt:    generatedAt.UTC(),
		SourceFilename: sourceFilename,
		JobID:          jobID,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	writeEntry := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: generatedAt.UTC(),
		})
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	for _, f := range formats {
		name := entryName(layout, jobID, base, f)
		if err := writeEntry(name, artifacts[f]); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		manifest.Outputs = append(manifest.Outputs, ManifestEntry{
			Format:    string(f),
			File:      name,
			SizeBytes: len(artifacts[f]),
		})
	}

	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeEntry("manifest.json", manifestData); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func entryName(layout Layout, jobID, base string, f Format) string {
	file := base + "." + f.Extension()
	switch layout {
	case LayoutPerJob:
		return path.Join(jobID, file)
	case LayoutPerFormat:
		return path.Join(f.Extension(), file)
	default:
		return file
	}
}
