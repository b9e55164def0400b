package story

import "time"

// PartialPassage è un passaggio appena decodificato: i campi nil non erano presenti
// nel documento sorgente e verranno riempiti dai default.
type PartialPassage struct {
	ID     *string
	Name   *string
	Text   *string
	Tags   []string
	Left   *float64
	Top    *float64
	Width  *float64
	Height *float64
}

// PartialStory è una storia appena decodificata, con la stessa convenzione di PartialPassage
type PartialStory struct {
	ID                 *string
	Name               *string
	IFID               *string
	StoryFormat        *string
	StoryFormatVersion *string
	Script             *string
	Stylesheet         *string
	Tags               []string
	TagColors          map[string]Color
	Zoom               *float64
	StartPassage       *string
	LastUpdate         *time.Time
	Passages           []PartialPassage
}

// Ptr restituisce un puntatore al valore
func Ptr[T any](v T) *T {
	return &v
}
