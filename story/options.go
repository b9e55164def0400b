package story

import (
	"time"

	"go.uber.org/zap"
)

// Options raccoglie le dipendenze iniettate in codec e defaulting.
// Nessuna di queste è globale: ogni chiamata riceve le proprie.
type Options struct {
	NewID  IDGenerator
	Now    func() time.Time
	Logger *zap.Logger

	// Formato assegnato alle storie decodificate che non ne dichiarano uno
	StoryFormat        string
	StoryFormatVersion string
}

// Normalize riempie i campi mancanti con i valori di produzione
func (o Options) Normalize() Options {
	if o.NewID == nil {
		o.NewID = UUIDGenerator
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
