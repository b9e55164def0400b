package twee

import (
	"strings"
)

// caratteri che nell'intestazione vanno preceduti da backslash
const headerSpecials = `\[]{}`

// EscapeHeader protegge nomi e tag per l'intestazione di un passaggio.
// Spazi e tabulazioni iniziali e finali ricevono un backslash così il nome non viene mai rifilato.
func EscapeHeader(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(headerSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	escaped := b.String()

	rest := strings.TrimLeft(escaped, edgeSpace)
	lead := escaped[:len(escaped)-len(rest)]
	core := strings.TrimRight(rest, edgeSpace)
	trail := rest[len(core):]

	return escapeEdge(lead) + core + escapeEdge(trail)
}

// spazi che ParseHeader rifila ai bordi del nome
const edgeSpace = " \t"

func escapeEdge(ws string) string {
	var b strings.Builder
	for i := 0; i < len(ws); i++ {
		b.WriteByte('\\')
		b.WriteByte(ws[i])
	}
	return b.String()
}

// UnescapeHeader è l'inverso di EscapeHeader, in un solo passaggio
func UnescapeHeader(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && (strings.IndexByte(edgeSpace, s[i+1]) >= 0 || strings.IndexByte(headerSpecials, s[i+1]) >= 0) {
			b.WriteByte(s[i+1])
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// EscapeBody evita che righe del testo vengano lette come intestazioni.
// Ogni riga che inizia con zero o più backslash seguiti da "::" riceve un backslash in più.
func EscapeBody(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if looksLikeHeader(line, 0) {
			lines[i] = `\` + line
		}
	}
	return strings.Join(lines, "\n")
}

// UnescapeBody toglie il backslash aggiunto da EscapeBody
func UnescapeBody(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if looksLikeHeader(line, 1) {
			lines[i] = line[1:]
		}
	}
	return strings.Join(lines, "\n")
}

// looksLikeHeader verifica se la riga è "\\...::" con almeno min backslash iniziali
func looksLikeHeader(line string, min int) bool {
	n := 0
	for n < len(line) && line[n] == '\\' {
		n++
	}
	return n >= min && strings.HasPrefix(line[n:], "::")
}
