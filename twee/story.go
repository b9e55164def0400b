package twee

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"twine-codec/story"
)

const (
	PassageStoryTitle = "StoryTitle"
	PassageStoryData  = "StoryData"

	TagScript     = "script"
	TagStylesheet = "stylesheet"

	scriptBaseName     = "StoryScript"
	stylesheetBaseName = "StoryStylesheet"
)

// griglia usata per le storie senza posizioni
const (
	gridColumns = 10
	gridPitch   = 125.0
	gridOffset  = 25.0
)

// ErrReservedPassageName un passaggio ordinario usa il nome di StoryTitle o StoryData
var ErrReservedPassageName = errors.New("nome di passaggio riservato")

// storyData è il contenuto JSON del passaggio StoryData
type storyData struct {
	IFID          string                 `json:"ifid"`
	Format        string                 `json:"format"`
	FormatVersion string                 `json:"format-version"`
	Start         string                 `json:"start,omitempty"`
	TagColors     map[string]story.Color `json:"tag-colors,omitempty"`
	Zoom          float64                `json:"zoom"`
}

// StoryResult risultato della decodifica di un documento Twee
type StoryResult struct {
	Story    story.Story     `json:"story"`
	Warnings []story.Warning `json:"warnings,omitempty"`
}

// EncodeStory serializza la storia in Twee: StoryTitle, StoryData, passaggi in ordine lessicale
// di nome, poi script e foglio di stile come passaggi con tag riservato
func EncodeStory(s *story.Story) (string, error) {
	for _, p := range s.Passages {
		if p.Name == PassageStoryTitle || p.Name == PassageStoryData {
			return "", fmt.Errorf("%w: %q", ErrReservedPassageName, p.Name)
		}
	}

	data := storyData{
		IFID:          s.IFID,
		Format:        s.StoryFormat,
		FormatVersion: s.StoryFormatVersion,
		Zoom:          s.Zoom,
	}
	if name, ok := s.StartPassageName(); ok {
		data.Start = name
	}
	if len(s.TagColors) > 0 {
		data.TagColors = s.TagColors
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return "", fmt.Errorf("errore serializzazione StoryData: %w", err)
	}

	blocks := []string{
		":: " + PassageStoryTitle + "\n" + EscapeBody(s.Name) + "\n",
		":: " + PassageStoryData + "\n" + strings.TrimRight(buf.String(), "\n") + "\n",
	}

	passages := slices.Clone(s.Passages)
	slices.SortStableFunc(passages, func(a, b story.Passage) int {
		return strings.Compare(a.Name, b.Name)
	})
	for i := range passages {
		blocks = append(blocks, EncodePassage(&passages[i]))
	}

	names := s.PassageNames()
	if s.Script != "" {
		p := story.PassageDefaults()
		p.Name = story.UnusedName(scriptBaseName, names)
		p.Tags = []string{TagScript}
		p.Text = s.Script
		names = append(names, p.Name)
		blocks = append(blocks, EncodePassage(&p))
	}
	if s.Stylesheet != "" {
		p := story.PassageDefaults()
		p.Name = story.UnusedName(stylesheetBaseName, names)
		p.Tags = []string{TagStylesheet}
		p.Text = s.Stylesheet
		blocks = append(blocks, EncodePassage(&p))
	}

	return strings.Join(blocks, "\n"), nil
}

// DecodeStory decodifica un documento Twee e applica i default
func DecodeStory(src string, opts story.Options) (*StoryResult, error) {
	opts = opts.Normalize()

	partial, warnings, err := DecodeStoryPartial(src, opts)
	if err != nil {
		return nil, err
	}
	return &StoryResult{
		Story:    story.ApplyStoryDefaults(partial, opts),
		Warnings: warnings,
	}, nil
}

// ReadFile legge e decodifica un file .twee
func ReadFile(path string, opts story.Options) (*StoryResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("errore apertura file: %w", err)
	}
	return DecodeStory(string(data), opts)
}

// DecodeStoryPartial decodifica senza applicare i default
func DecodeStoryPartial(src string, opts story.Options) (story.PartialStory, []story.Warning, error) {
	opts = opts.Normalize()
	wl := story.NewWarningLog(opts.Logger)

	passages, err := decodeBlocks(normalizeNewlines(src), wl, opts)
	if err != nil {
		return story.PartialStory{}, nil, err
	}

	ps := story.PartialStory{
		ID:         story.Ptr(opts.NewID()),
		LastUpdate: story.Ptr(opts.Now()),
	}

	title, passages := extractReserved(passages, PassageStoryTitle, wl)
	if title != nil {
		ps.Name = story.Ptr(*title.Text)
	} else {
		wl.Add(story.WarnStoryTitle, "", "passaggio %s assente", PassageStoryTitle)
	}

	data, passages := extractReserved(passages, PassageStoryData, wl)
	if data != nil {
		applyStoryData(&ps, *data.Text, passages, wl)
	} else {
		wl.Add(story.WarnStoryData, "", "passaggio %s assente", PassageStoryData)
	}

	passages = extractCode(&ps, passages)

	if ps.StartPassage != nil && !slices.ContainsFunc(passages, func(p story.PartialPassage) bool { return *p.ID == *ps.StartPassage }) {
		wl.Add(story.WarnStartPassage, "", "il passaggio iniziale è uno script o un foglio di stile")
		ps.StartPassage = nil
	}

	layoutLegacy(passages)
	ps.Passages = passages

	opts.Logger.Debug("storia decodificata da Twee",
		zap.Int("passages", len(passages)),
		zap.Int("warnings", len(wl.Warnings())))
	return ps, wl.Warnings(), nil
}

// decodeBlocks divide il sorgente sulle righe "::" e decodifica ogni blocco
func decodeBlocks(src string, wl *story.WarningLog, opts story.Options) ([]story.PartialPassage, error) {
	lines := strings.Split(src, "\n")
	passages := []story.PartialPassage{}

	start := -1
	flush := func(end int) error {
		if start < 0 {
			if strings.TrimSpace(strings.Join(lines[:end], "")) != "" {
				wl.Add(story.WarnStrayText, "", "testo prima del primo passaggio ignorato")
			}
			return nil
		}
		p, err := decodeBlock(strings.Join(lines[start:end], "\n"), wl, opts)
		if err != nil {
			return fmt.Errorf("riga %d: %w", start+1, err)
		}
		passages = append(passages, p)
		return nil
	}

	for i, line := range lines {
		if !strings.HasPrefix(line, "::") {
			continue
		}
		if err := flush(i); err != nil {
			return nil, err
		}
		start = i
	}
	if err := flush(len(lines)); err != nil {
		return nil, err
	}
	return passages, nil
}

// extractReserved toglie tutti i passaggi con il nome indicato e restituisce il primo
func extractReserved(passages []story.PartialPassage, name string, wl *story.WarningLog) (*story.PartialPassage, []story.PartialPassage) {
	var found *story.PartialPassage
	rest := passages[:0:0]
	for i := range passages {
		if *passages[i].Name != name {
			rest = append(rest, passages[i])
			continue
		}
		if found != nil {
			wl.Add(story.WarnDuplicate, name, "passaggio duplicato ignorato")
			continue
		}
		found = &passages[i]
	}
	return found, rest
}

// applyStoryData applica i campi di StoryData uno per uno, ignorando quelli malformati
func applyStoryData(ps *story.PartialStory, raw string, passages []story.PartialPassage, wl *story.WarningLog) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		wl.Add(story.WarnStoryData, PassageStoryData, "JSON non valido: %v", err)
		return
	}

	stringField := func(key string) *string {
		v, ok := data[key]
		if !ok {
			return nil
		}
		s, ok := v.(string)
		if !ok {
			wl.Add(story.WarnStoryData, key, "valore non stringa ignorato: %v", v)
			return nil
		}
		return story.Ptr(s)
	}

	if v := stringField("ifid"); v != nil {
		ps.IFID = v
	}
	if v := stringField("format"); v != nil {
		ps.StoryFormat = v
	}
	if v := stringField("format-version"); v != nil {
		ps.StoryFormatVersion = v
	}

	if v, ok := data["tag-colors"]; ok {
		colors, ok := v.(map[string]any)
		if !ok {
			wl.Add(story.WarnStoryData, "tag-colors", "atteso un oggetto, trovato: %v", v)
		} else {
			ps.TagColors = map[string]story.Color{}
			for tag, c := range colors {
				color, ok := c.(string)
				if !ok {
					wl.Add(story.WarnStoryData, "tag-colors", "colore non stringa per il tag %q ignorato", tag)
					continue
				}
				ps.TagColors[tag] = story.Color(color)
			}
		}
	}

	if v, ok := data["zoom"]; ok {
		zoom, ok := v.(float64)
		if ok {
			ps.Zoom = story.Ptr(zoom)
		} else {
			wl.Add(story.WarnStoryData, "zoom", "zoom non numerico ignorato: %v", v)
		}
	}

	if start := stringField("start"); start != nil {
		idx := slices.IndexFunc(passages, func(p story.PartialPassage) bool { return *p.Name == *start })
		if idx < 0 {
			wl.Add(story.WarnStartPassage, *start, "passaggio iniziale inesistente")
		} else {
			ps.StartPassage = story.Ptr(*passages[idx].ID)
		}
	}
}

// extractCode sposta i passaggi con tag script o stylesheet nei campi della storia.
// Un passaggio con entrambi i tag resta un passaggio normale: l'intento è ambiguo.
func extractCode(ps *story.PartialStory, passages []story.PartialPassage) []story.PartialPassage {
	var scripts, styles []string
	rest := passages[:0:0]

	for _, p := range passages {
		isScript := slices.Contains(p.Tags, TagScript)
		isStyle := slices.Contains(p.Tags, TagStylesheet)
		switch {
		case isScript && !isStyle:
			scripts = append(scripts, *p.Text)
		case isStyle && !isScript:
			styles = append(styles, *p.Text)
		default:
			rest = append(rest, p)
		}
	}

	if len(scripts) > 0 {
		ps.Script = story.Ptr(strings.TrimRight(strings.Join(scripts, "\n"), " \t\n"))
	}
	if len(styles) > 0 {
		ps.Stylesheet = story.Ptr(strings.TrimRight(strings.Join(styles, "\n"), " \t\n"))
	}
	return rest
}

// layoutLegacy dispone su griglia i passaggi quando nessuno ha una posizione diversa da (0,0)
func layoutLegacy(passages []story.PartialPassage) {
	if len(passages) == 0 {
		return
	}
	for _, p := range passages {
		if valueOrZero(p.Left) != 0 || valueOrZero(p.Top) != 0 {
			return
		}
	}
	for i := range passages {
		passages[i].Left = story.Ptr(gridOffset + gridPitch*float64(i%gridColumns))
		passages[i].Top = story.Ptr(gridOffset + gridPitch*float64(i/gridColumns))
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
