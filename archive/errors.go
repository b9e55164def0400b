package archive

import "errors"

var (
	// ErrNoStartPassage la storia non ha un passaggio iniziale e non è marcata opzionale
	ErrNoStartPassage = errors.New("la storia non ha un passaggio iniziale")

	// ErrStartPassageNotFound il passaggio iniziale indicato non esiste nella storia
	ErrStartPassageNotFound = errors.New("il passaggio iniziale della storia non esiste")

	// ErrUnsafeRawText script o foglio di stile contengono il tag di chiusura del proprio elemento
	ErrUnsafeRawText = errors.New("script o foglio di stile contengono un tag di chiusura")

	// ErrEmptyTemplate il sorgente del formato è vuoto
	ErrEmptyTemplate = errors.New("il sorgente del formato è vuoto")
)
