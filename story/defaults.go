package story

const (
	DefaultStoryName   = "Untitled Story"
	DefaultPassageName = "Untitled Passage"
	DefaultZoom        = 1.0
	DefaultWidth       = 100.0
	DefaultHeight      = 100.0
)

// StoryDefaults restituisce una storia nuova con i valori di default.
// Ogni chiamata alloca slice e mappe proprie.
func StoryDefaults() Story {
	return Story{
		Name:      DefaultStoryName,
		Tags:      []string{},
		TagColors: map[string]Color{},
		Zoom:      DefaultZoom,
		Passages:  []Passage{},
	}
}

// PassageDefaults restituisce un passaggio nuovo con i valori di default
func PassageDefaults() Passage {
	return Passage{
		Name:   DefaultPassageName,
		Tags:   []string{},
		Width:  DefaultWidth,
		Height: DefaultHeight,
	}
}

// ApplyPassageDefaults completa un passaggio parziale campo per campo.
// I valori presenti, anche se zero ("" o 0), hanno la precedenza sui default.
func ApplyPassageDefaults(p PartialPassage, storyID string, opts Options) Passage {
	opts = opts.Normalize()
	out := PassageDefaults()
	out.Story = storyID

	if p.ID != nil {
		out.ID = *p.ID
	} else {
		out.ID = opts.NewID()
	}
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.Tags != nil {
		out.Tags = append([]string{}, p.Tags...)
	}
	if p.Left != nil {
		out.Left = *p.Left
	}
	if p.Top != nil {
		out.Top = *p.Top
	}
	if p.Width != nil {
		out.Width = *p.Width
	}
	if p.Height != nil {
		out.Height = *p.Height
	}
	return out
}

// ApplyStoryDefaults completa una storia parziale e tutti i suoi passaggi
func ApplyStoryDefaults(p PartialStory, opts Options) Story {
	opts = opts.Normalize()
	out := StoryDefaults()
	out.StoryFormat = opts.StoryFormat
	out.StoryFormatVersion = opts.StoryFormatVersion

	if p.ID != nil {
		out.ID = *p.ID
	} else {
		out.ID = opts.NewID()
	}
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.IFID != nil {
		out.IFID = *p.IFID
	} else {
		out.IFID = NewIFID(opts.NewID)
	}
	if p.StoryFormat != nil {
		out.StoryFormat = *p.StoryFormat
	}
	if p.StoryFormatVersion != nil {
		out.StoryFormatVersion = *p.StoryFormatVersion
	}
	if p.Script != nil {
		out.Script = *p.Script
	}
	if p.Stylesheet != nil {
		out.Stylesheet = *p.Stylesheet
	}
	if p.Tags != nil {
		out.Tags = append([]string{}, p.Tags...)
	}
	if p.TagColors != nil {
		for tag, color := range p.TagColors {
			out.TagColors[tag] = color
		}
	}
	if p.Zoom != nil {
		out.Zoom = *p.Zoom
	}
	if p.StartPassage != nil {
		out.StartPassage = *p.StartPassage
	}
	if p.LastUpdate != nil {
		out.LastUpdate = *p.LastUpdate
	} else {
		out.LastUpdate = opts.Now()
	}

	for _, pp := range p.Passages {
		out.Passages = append(out.Passages, ApplyPassageDefaults(pp, out.ID, opts))
	}
	return out
}
