package formats

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrNotFormatJS il file non ha la forma window.storyFormat({...})
var ErrNotFormatJS = errors.New("file format.js non riconosciuto")

// Format descrive un formato di storia: il motore che renderizza la storia pubblicata
type Format struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	Proofing    bool   `json:"proofing,omitempty"`
	Source      string `json:"source,omitempty"` // template con {{STORY_NAME}} e {{STORY_DATA}}
	Path        string `json:"path,omitempty"`   // file da cui è stato caricato
}

// ParseFormatJS estrae il formato da un file format.js (JSONP: window.storyFormat({...})).
// Se l'oggetto non è JSON valido (funzioni, chiavi senza virgolette) legge solo le proprietà di primo livello note.
func ParseFormatJS(data []byte) (*Format, error) {
	start := bytes.IndexByte(data, '(')
	end := bytes.LastIndexByte(data, ')')
	if start < 0 || end <= start {
		return nil, ErrNotFormatJS
	}
	obj := bytes.TrimSpace(data[start+1 : end])

	var f Format
	if err := json.Unmarshal(obj, &f); err != nil {
		fields := scanProperties(obj)
		if len(fields) == 0 {
			return nil, fmt.Errorf("%w: %v", ErrNotFormatJS, err)
		}
		buf, merr := json.Marshal(fields)
		if merr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotFormatJS, merr)
		}
		f = Format{}
		if uerr := json.Unmarshal(buf, &f); uerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotFormatJS, uerr)
		}
	}
	if f.Name == "" || f.Version == "" {
		return nil, fmt.Errorf("%w: name o version mancanti", ErrNotFormatJS)
	}
	return &f, nil
}

// proprietà di format.js che finiscono in Format
var formatKeys = map[string]bool{
	"name":        true,
	"version":     true,
	"description": true,
	"author":      true,
	"proofing":    true,
	"source":      true,
}

// scanProperties percorre un letterale oggetto JavaScript e raccoglie i valori JSON
// delle proprietà note di primo livello. Stringhe, commenti e annidamenti vengono saltati.
func scanProperties(obj []byte) map[string]json.RawMessage {
	fields := map[string]json.RawMessage{}
	depth, expectKey := 0, false

	for i := 0; i < len(obj); i++ {
		c := obj[i]
		switch {
		case c == '{' || c == '[' || c == '(':
			depth++
			expectKey = depth == 1 && c == '{'
		case c == '}' || c == ']' || c == ')':
			depth--
			expectKey = false
		case c == ',':
			expectKey = depth == 1
		case c == '/' && i+1 < len(obj) && (obj[i+1] == '/' || obj[i+1] == '*'):
			i = skipComment(obj, i)
		case c == '"' || c == '\'' || c == '`':
			end := skipString(obj, i)
			if expectKey {
				i = readProperty(obj, string(obj[i+1:end]), end+1, fields)
			} else {
				i = end
			}
			expectKey = false
		case expectKey && isIdent(c):
			j := i
			for j < len(obj) && isIdent(obj[j]) {
				j++
			}
			i = readProperty(obj, string(obj[i:j]), j, fields)
			expectKey = false
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		default:
			expectKey = false
		}
	}
	return fields
}

// readProperty legge il valore dopo "chiave:" se è una stringa JSON o un letterale semplice.
// Restituisce l'indice da cui il chiamante riprende la scansione, meno uno.
func readProperty(obj []byte, key string, from int, fields map[string]json.RawMessage) int {
	k := skipBlank(obj, from)
	if k >= len(obj) || obj[k] != ':' {
		return from - 1
	}
	k = skipBlank(obj, k+1)
	if k >= len(obj) {
		return k
	}

	var raw []byte
	next := k - 1
	switch {
	case obj[k] == '"':
		end := skipString(obj, k)
		next = end
		if end < len(obj) {
			raw = obj[k : end+1]
		}
	case isLiteral(obj[k]):
		j := k
		for j < len(obj) && isLiteral(obj[j]) {
			j++
		}
		raw, next = obj[k:j], j-1
	}

	if _, seen := fields[key]; formatKeys[key] && !seen && len(raw) > 0 && json.Valid(raw) {
		fields[key] = json.RawMessage(raw)
	}
	return next
}

// skipString restituisce l'indice della virgoletta di chiusura della stringa che inizia in i, o len(s)
func skipString(s []byte, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j
		}
	}
	return len(s)
}

func skipComment(s []byte, i int) int {
	if s[i+1] == '/' {
		if n := bytes.IndexByte(s[i:], '\n'); n >= 0 {
			return i + n
		}
		return len(s) - 1
	}
	if n := bytes.Index(s[i+2:], []byte("*/")); n >= 0 {
		return i + 2 + n + 1
	}
	return len(s) - 1
}

func skipBlank(s []byte, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}

func isIdent(c byte) bool {
	return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func isLiteral(c byte) bool {
	return isIdent(c) || c == '.' || c == '-' || c == '+'
}
