package twee

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"twine-codec/story"
)

// passageMetadata è il JSON compatto che segue i tag nell'intestazione
type passageMetadata struct {
	Position string `json:"position"`
	Size     string `json:"size"`
}

// EncodePassage serializza un passaggio: intestazione, testo protetto e newline finale
func EncodePassage(p *story.Passage) string {
	var b strings.Builder
	b.WriteString(":: ")
	b.WriteString(EscapeHeader(p.Name))

	if len(p.Tags) > 0 {
		tags := make([]string, 0, len(p.Tags))
		for _, tag := range p.Tags {
			tags = append(tags, EscapeHeader(tag))
		}
		b.WriteString(" [" + strings.Join(tags, " ") + "]")
	}

	meta, _ := json.Marshal(passageMetadata{
		Position: story.FormatNumberPair(p.Left, p.Top),
		Size:     story.FormatNumberPair(p.Width, p.Height),
	})
	b.WriteString(" ")
	b.Write(meta)
	b.WriteString("\n")
	b.WriteString(EscapeBody(p.Text))
	b.WriteString("\n")
	return b.String()
}

// DecodePassage decodifica un singolo blocco (intestazione più testo).
// Fallisce solo se l'intestazione è illeggibile; i metadati errati producono warning.
func DecodePassage(src string, opts story.Options) (story.PartialPassage, []story.Warning, error) {
	opts = opts.Normalize()
	wl := story.NewWarningLog(opts.Logger)

	p, err := decodeBlock(normalizeNewlines(src), wl, opts)
	if err != nil {
		return story.PartialPassage{}, nil, err
	}
	return p, wl.Warnings(), nil
}

func decodeBlock(block string, wl *story.WarningLog, opts story.Options) (story.PartialPassage, error) {
	headerLine, body, _ := strings.Cut(block, "\n")

	h, err := ParseHeader(headerLine)
	if err != nil {
		return story.PartialPassage{}, fmt.Errorf("intestazione %q: %w", headerLine, err)
	}

	p := story.PartialPassage{
		ID:   story.Ptr(opts.NewID()),
		Name: story.Ptr(h.Name),
		Tags: h.Tags,
		Text: story.Ptr(strings.TrimSpace(UnescapeBody(body))),
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if h.HasMetadata {
		applyMetadata(&p, h.Metadata, wl)
	}
	return p, nil
}

// applyMetadata legge position e size; ogni problema lascia il campo al default
func applyMetadata(p *story.PartialPassage, raw string, wl *story.WarningLog) {
	name := *p.Name

	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		wl.Add(story.WarnMetadata, name, "metadati non validi: %v", err)
		return
	}

	if v, ok := meta["position"]; ok {
		if left, top, ok := pairField(v); ok {
			p.Left, p.Top = story.Ptr(left), story.Ptr(top)
		} else {
			wl.Add(story.WarnMetadata, name, "position non valida: %v", v)
		}
	}
	if v, ok := meta["size"]; ok {
		if width, height, ok := pairField(v); ok {
			p.Width, p.Height = story.Ptr(width), story.Ptr(height)
		} else {
			wl.Add(story.WarnMetadata, name, "size non valida: %v", v)
		}
	}
}

func pairField(v any) (float64, float64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, 0, false
	}
	return story.ParseNumberPair(strings.TrimSpace(s))
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
