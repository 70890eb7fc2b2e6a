package artifact

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"testing"
	"time"
)

func testArtifacts() map[Format][]byte {
	return map[Format][]byte{
		FormatSRT: []byte("srt-data"),
		FormatVTT: []byte("vtt-data"),
	}
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	out := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		out[f.Name] = content
	}
	return out
}

func TestPackageLayouts(t *testing.T) {
	generatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		layout Layout
		want   []string
	}{
		{name: "flat", layout: LayoutFlat, want: []string{"clip.srt", "clip.vtt", "manifest.json"}},
		{name: "per job", layout: LayoutPerJob, want: []string{"job-1/clip.srt", "job-1/clip.vtt", "manifest.json"}},
		{name: "per format", layout: LayoutPerFormat, want: []string{"srt/clip.srt", "vtt/clip.vtt", "manifest.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Package("job-1", "clip.mp4", testArtifacts(), tt.layout, generatedAt)
			if err != nil {
				t.Fatalf("Package() error = %v", err)
			}
			entries := readArchive(t, data)
			for _, name := range tt.want {
				if _, ok := entries[name]; !ok {
					t.Errorf("archive missing entry %s, has %v", name, keys(entries))
				}
			}
			if len(entries) != len(tt.want) {
				t.Errorf("archive has %d entries, want %d", len(entries), len(tt.want))
			}
		})
	}
}

func TestPackageManifest(t *testing.T) {
	generatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := Package("job-1", "clip.mp4", testArtifacts(), LayoutFlat, generatedAt)
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}

	entries := readArchive(t, data)
	var m Manifest
	if err := json.Unmarshal(entries["manifest.json"], &m); err != nil {
		t.Fatalf("manifest unparseable: %v", err)
	}

	if m.JobID != "job-1" || m.SourceFilename != "clip.mp4" {
		t.Errorf("manifest identity = %s/%s", m.JobID, m.SourceFilename)
	}
	if !m.GeneratedAt.Equal(generatedAt) {
		t.Errorf("manifest generatedAt = %v, want %v", m.GeneratedAt, generatedAt)
	}
	if len(m.Outputs) != 2 {
		t.Fatalf("manifest outputs = %d, want 2", len(m.Outputs))
	}
	if m.Outputs[0].Format != "srt" || m.Outputs[0].SizeBytes != len("srt-data") {
		t.Errorf("manifest entry 0 = %+v", m.Outputs[0])
	}
}

func TestPackageDeterministic(t *testing.T) {
	generatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a, err := Package("job-1", "clip.mp4", testArtifacts(), LayoutFlat, generatedAt)
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}
	b, err := Package("job-1", "clip.mp4", testArtifacts(), LayoutFlat, generatedAt)
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical inputs must produce identical archives")
	}
}

func TestPackageEmpty(t *testing.T) {
	if _, err := Package("job-1", "clip.mp4", nil, LayoutFlat, time.Now()); err == nil {
		t.Error("Package() should reject empty artifact sets")
	}
}

func TestParseLayout(t *testing.T) {
	if l, err := ParseLayout(""); err != nil || l != LayoutFlat {
		t.Errorf("ParseLayout(\"\") = %v, %v", l, err)
	}
	if _, err := ParseLayout("sideways"); err == nil {
		t.Error("ParseLayout should reject unknown layouts")
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
