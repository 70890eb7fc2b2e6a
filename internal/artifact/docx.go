package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gomutex/godocx"

	"captionforge/internal/transcript"
)

const (
	docxFont     = "Times New Roman"
	docxFontSize = 13
)

// renderDOCX writes a styled transcript document: title, generation line,
// then one timestamped paragraph per segment. godocx only saves to a path,
// so the document round-trips through a temp file.
func renderDOCX(tr *transcript.Transcript, opts Options) ([]byte, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, err
	}

	title := doc.AddParagraph("")
	title.AddText("Transcript: "+opts.SourceName).Font(docxFont).Size(16).Color("000000").Bold(true)

	meta := doc.AddParagraph("")
	meta.AddText("Generated "+opts.GeneratedAt.UTC().Format(time.RFC3339)).
		Font(docxFont).Size(11).Color("666666")

	doc.AddParagraph("")

	for _, s := range tr.Segments {
		p := doc.AddParagraph("")
		p.AddText(fmt.Sprintf("[%s] ", formatTimestamp(s.Start, '.'))).
			Font(docxFont).Size(docxFontSize).Color("888888")
		p.AddText(s.Text).Font(docxFont).Size(docxFontSize).Color("000000")
	}

	tmpDir, err := os.MkdirTemp("", "captionforge-docx-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "transcript.docx")
	if err := doc.SaveTo(path); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}
