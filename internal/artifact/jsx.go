package artifact

import (
	"bytes"
	"fmt"
	"strings"

	"captionforge/internal/transcript"
)

const (
	compWidth  = 1920
	compHeight = 1080
	compFPS    = 30
)

// renderJSX writes an After Effects script that builds one styled text
// layer per caption. Cue durations are clamped and long lines wrapped
// before the script is emitted.
func renderJSX(tr *transcript.Transcript, style StylePreset, pos PositionPreset, opts Options) []byte {
	var buf bytes.Buffer

	compDuration := 60.0
	if n := len(tr.Segments); n > 0 {
		last := clampCue(tr.Segments[n-1])
		compDuration = last.End + 2
	}

	buf.WriteString("// Auto-generated After Effects caption script\n")
	fmt.Fprintf(&buf, "// Source: %s\n\n", opts.SourceName)
	fmt.Fprintf(&buf, "var comp = app.project.items.addComp(\"Captions\", %d, %d, 1, %.3f, %d);\n\n",
		compWidth, compHeight, compDuration, compFPS)

	fmt.Fprintf(&buf, "// Style preset: %s\n", style.Name)
	fmt.Fprintf(&buf, "var fontName = \"%s\";\n", style.Font)
	fmt.Fprintf(&buf, "var fontSize = %d;\n", style.FontSize)
	fmt.Fprintf(&buf, "var fillColor = [%s];\n", joinFloats(style.Fill[:]))
	fmt.Fprintf(&buf, "var strokeColor = [%s];\n", joinFloats(style.Stroke[:]))
	fmt.Fprintf(&buf, "var strokeWidth = %d;\n", style.StrokeWidth)
	fmt.Fprintf(&buf, "var shadowOpacity = %d;\n", style.ShadowOpacity)
	fmt.Fprintf(&buf, "var fadeIn = %.3f;\n", style.FadeInSec)
	fmt.Fprintf(&buf, "var fadeOut = %.3f;\n\n", style.FadeOutSec)

	fmt.Fprintf(&buf, "// Position preset: %s (anchor %s)\n", pos.Name, pos.Anchor)
	fmt.Fprintf(&buf, "var posX = comp.width * %.3f;\n", pos.X)
	fmt.Fprintf(&buf, "var posY = comp.height * %.3f;\n\n", pos.Y)

	buf.WriteString("var captions = [\n")
	for i, s := range tr.Segments {
		s = clampCue(s)
		text := strings.Join(wrapText(s.Text, opts.LineBudget), "\\r")
		fmt.Fprintf(&buf, "    {start: %.3f, end: %.3f, text: \"%s\"}", s.Start, s.End, escapeJSX(text))
		if i < len(tr.Segments)-1 {
			buf.WriteString(",")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("];\n\n")

	buf.WriteString(`for (var i = 0; i < captions.length; i++) {
    var entry = captions[i];

    var textLayer = comp.layers.addText(entry.text);
    textLayer.startTime = entry.start;
    textLayer.inPoint = entry.start;
    textLayer.outPoint = entry.end;

    var textProp = textLayer.property("Source Text");
    var textDocument = textProp.value;
    textDocument.fontSize = fontSize;
    textDocument.font = fontName;
    textDocument.fillColor = fillColor;
    if (strokeWidth > 0) {
        textDocument.applyStroke = true;
        textDocument.strokeColor = strokeColor;
        textDocument.strokeWidth = strokeWidth;
        textDocument.strokeOverFill = false;
    }
    textDocument.justification = ParagraphJustification.CENTER_JUSTIFY;
    textProp.setValue(textDocument);

    var position = textLayer.property("Transform").property("Position");
    position.setValue([posX, posY]);

    if (shadowOpacity > 0) {
        var dropShadow = textLayer.property("Effects").addProperty("Drop Shadow");
        dropShadow.property("Opacity").setValue(shadowOpacity);
        dropShadow.property("Direction").setValue(135);
        dropShadow.property("Distance").setValue(5);
        dropShadow.property("Softness").setValue(10);
    }

    if (fadeIn > 0 || fadeOut > 0) {
        var opacity = textLayer.property("Transform").property("Opacity");
        if (fadeIn > 0) {
            opacity.setValueAtTime(entry.start, 0);
            opacity.setValueAtTime(entry.start + fadeIn, 100);
        }
        if (fadeOut > 0) {
            opacity.setValueAtTime(entry.end - fadeOut, 100);
            opacity.setValueAtTime(entry.end, 0);
        }
    }
}

alert("Caption import complete! " + captions.length + " subtitles added to composition.");
`)

	return buf.Bytes()
}

func escapeJSX(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `"`, `\"`)
	// Wrapped line breaks arrive pre-escaped as \r; undo the double escape.
	text = strings.ReplaceAll(text, `\\r`, `\r`)
	return text
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprintf("%.2f", v)
	}
	return strings.Join(parts, ", ")
}
