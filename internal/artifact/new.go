package artifact

import (
	"fmt"

	"captionforge/internal/transcript"
)

type implGenerator struct{}

// New creates the artifact Generator.
func New() Generator {
	return &implGenerator{}
}

func (g *implGenerator) Generate(tr *transcript.Transcript, formats []Format, opts Options) (map[Format][]byte, error) {
	style, err := lookupStyle(opts.Style)
	if err != nil {
		return nil, err
	}
	position, err := lookupPosition(opts.Position)
	if err != nil {
		return nil, err
	}

	out := make(map[Format][]byte, len(formats))
	for _, f := range formats {
		var (
			data []byte
			err  error
		)
		switch f {
		case FormatSRT:
			data = renderSRT(tr)
		case FormatVTT:
			data = renderVTT(tr)
		case FormatTXT:
			data = renderTXT(tr, opts)
		case FormatJSON:
			data, err = renderJSON(tr, opts)
		case FormatDOCX:
			data, err = renderDOCX(tr, opts)
		case FormatJSX:
			data = renderJSX(tr, style, position, opts)
		default:
			err = &UnknownFormatError{Name: string(f)}
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", f, err)
		}
		out[f] = data
	}

	return out, nil
}
