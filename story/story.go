package story

import "time"

// Color è uno dei colori ammessi per i tag
type Color string

const (
	ColorNone   Color = "none"
	ColorRed    Color = "red"
	ColorOrange Color = "orange"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorPurple Color = "purple"
)

// Valid verifica se il colore appartiene all'enumerazione nota
func (c Color) Valid() bool {
	switch c {
	case ColorNone, ColorRed, ColorOrange, ColorYellow, ColorGreen, ColorBlue, ColorPurple:
		return true
	}
	return false
}

// Passage rappresenta un singolo passaggio di una storia
type Passage struct {
	ID     string   `json:"id"`
	Story  string   `json:"story"`
	Name   string   `json:"name"`
	Text   string   `json:"text"`
	Tags   []string `json:"tags"`
	Left   float64  `json:"left"`
	Top    float64  `json:"top"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
}

// Story rappresenta l'intera storia
type Story struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	IFID               string           `json:"ifid"`
	StoryFormat        string           `json:"story_format"`
	StoryFormatVersion string           `json:"story_format_version"`
	Script             string           `json:"script"`
	Stylesheet         string           `json:"stylesheet"`
	Tags               []string         `json:"tags"`
	TagColors          map[string]Color `json:"tag_colors"`
	Zoom               float64          `json:"zoom"`
	StartPassage       string           `json:"start_passage"`
	LastUpdate         time.Time        `json:"last_update"`
	Passages           []Passage        `json:"passages"`
}

// AppInfo identifica l'applicazione che ha creato il documento
type AppInfo struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Version string `json:"version" yaml:"version" toml:"version"`
}

// PassageByID cerca un passaggio per id
func (s *Story) PassageByID(id string) (*Passage, bool) {
	if id == "" {
		return nil, false
	}
	for i := range s.Passages {
		if s.Passages[i].ID == id {
			return &s.Passages[i], true
		}
	}
	return nil, false
}

// PassageByName cerca il primo passaggio con il nome indicato
func (s *Story) PassageByName(name string) (*Passage, bool) {
	for i := range s.Passages {
		if s.Passages[i].Name == name {
			return &s.Passages[i], true
		}
	}
	return nil, false
}

// PassageNames restituisce i nomi dei passaggi nell'ordine dello slice
func (s *Story) PassageNames() []string {
	names := make([]string, 0, len(s.Passages))
	for _, p := range s.Passages {
		names = append(names, p.Name)
	}
	return names
}

// StartPassageName restituisce il nome del passaggio iniziale, se risolvibile
func (s *Story) StartPassageName() (string, bool) {
	p, ok := s.PassageByID(s.StartPassage)
	if !ok {
		return "", false
	}
	return p.Name, true
}
