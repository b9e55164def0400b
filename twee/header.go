package twee

import (
	"errors"
	"strings"
)

var (
	// ErrNotHeader la riga non inizia con "::"
	ErrNotHeader = errors.New("la riga non è un'intestazione di passaggio")

	// ErrEmptyName il nome del passaggio è vuoto
	ErrEmptyName = errors.New("nome del passaggio vuoto")

	// ErrUnclosedTags la lista dei tag non è chiusa da "]"
	ErrUnclosedTags = errors.New("lista dei tag non chiusa")

	// ErrTrailingText testo inatteso dopo la lista dei tag
	ErrTrailingText = errors.New("testo inatteso nell'intestazione")
)

// Header è il risultato del parsing di una riga "::"
type Header struct {
	Name        string
	Tags        []string
	Metadata    string // JSON grezzo, da decodificare a parte
	HasMetadata bool
}

// ParseHeader analizza una riga di intestazione: nome, [tag] opzionali, {metadati} opzionali.
// Il nome termina al primo "[" o "{" non preceduto da backslash.
func ParseHeader(line string) (Header, error) {
	if !strings.HasPrefix(line, "::") {
		return Header{}, ErrNotHeader
	}
	rest := line[2:]
	var h Header

	i := skipSpace(rest, 0)
	start, end := i, i
	for i < len(rest) {
		c := rest[i]
		if c == '\\' {
			i = min(i+2, len(rest))
			end = i
			continue
		}
		if c == '[' || c == '{' {
			break
		}
		i++
		if !isSpace(c) {
			end = i
		}
	}

	h.Name = UnescapeHeader(rest[start:end])
	if h.Name == "" {
		return Header{}, ErrEmptyName
	}

	i = skipSpace(rest, i)
	if i < len(rest) && rest[i] == '[' {
		j := i + 1
		closed := false
		for j < len(rest) {
			if rest[j] == '\\' {
				j += 2
				continue
			}
			if rest[j] == ']' {
				closed = true
				break
			}
			j++
		}
		if !closed {
			return Header{}, ErrUnclosedTags
		}
		h.Tags = splitTags(rest[i+1 : j])
		i = skipSpace(rest, j+1)
	}

	if i < len(rest) && rest[i] == '{' {
		h.Metadata = strings.TrimRight(rest[i:], " \t")
		h.HasMetadata = true
		i = len(rest)
	}

	if i < len(rest) {
		return Header{}, ErrTrailingText
	}
	return h, nil
}

// splitTags divide sugli spazi non protetti e rimuove gli escape da ogni tag
func splitTags(s string) []string {
	tags := []string{}
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			if tag := UnescapeHeader(cur.String()); tag != "" {
				tags = append(tags, tag)
			}
			cur.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			cur.WriteByte(c)
			cur.WriteByte(s[i+1])
			i++
		case isSpace(c):
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return tags
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}
