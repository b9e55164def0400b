package archive

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"twine-codec/story"
)

// EncodeOptions opzioni per la pubblicazione di una storia
type EncodeOptions struct {
	StartID       string // sovrascrive story.StartPassage se non vuoto
	StartOptional bool   // consente storie senza passaggio iniziale
	FormatOptions string // passato così com'è nell'attributo options
}

// EncodeStory serializza la storia nell'elemento <tw-storydata>
func EncodeStory(s *story.Story, app story.AppInfo, opts EncodeOptions) (string, error) {
	startID := opts.StartID
	if startID == "" {
		startID = s.StartPassage
	}

	if !opts.StartOptional {
		if startID == "" {
			return "", fmt.Errorf("%w: %q", ErrNoStartPassage, s.Name)
		}
		if _, ok := s.PassageByID(startID); !ok {
			return "", fmt.Errorf("%w: %q (id %s)", ErrStartPassageNotFound, s.Name, startID)
		}
	}

	if hasClosingTag(s.Stylesheet, "style") {
		return "", fmt.Errorf("%w: </style> nel foglio di stile di %q", ErrUnsafeRawText, s.Name)
	}
	if hasClosingTag(s.Script, "script") {
		return "", fmt.Errorf("%w: </script> nello script di %q", ErrUnsafeRawText, s.Name)
	}

	startNode := ""
	for i, p := range s.Passages {
		if startID != "" && p.ID == startID {
			startNode = strconv.Itoa(i + 1)
			break
		}
	}

	var b strings.Builder
	b.WriteString(`<tw-storydata name="` + html.EscapeString(s.Name) + `"`)
	b.WriteString(` startnode="` + startNode + `"`)
	b.WriteString(` creator="` + html.EscapeString(app.Name) + `"`)
	b.WriteString(` creator-version="` + html.EscapeString(app.Version) + `"`)
	b.WriteString(` format="` + html.EscapeString(s.StoryFormat) + `"`)
	b.WriteString(` format-version="` + html.EscapeString(s.StoryFormatVersion) + `"`)
	b.WriteString(` ifid="` + html.EscapeString(s.IFID) + `"`)
	b.WriteString(` options="` + html.EscapeString(opts.FormatOptions) + `"`)
	b.WriteString(` tags="` + html.EscapeString(strings.Join(s.Tags, " ")) + `"`)
	b.WriteString(` zoom="` + story.FormatNumber(s.Zoom) + `" hidden>`)

	// style e script sono raw text per il parser HTML: il contenuto va scritto verbatim
	b.WriteString(`<style role="stylesheet" id="twine-user-stylesheet" type="text/twine-css">`)
	b.WriteString(s.Stylesheet)
	b.WriteString(`</style>`)
	b.WriteString(`<script role="script" id="twine-user-script" type="text/twine-javascript">`)
	b.WriteString(s.Script)
	b.WriteString(`</script>`)

	for _, tag := range sortedKeys(s.TagColors) {
		b.WriteString(`<tw-tag name="` + html.EscapeString(tag) + `"`)
		b.WriteString(` color="` + html.EscapeString(string(s.TagColors[tag])) + `"></tw-tag>`)
	}

	for i, p := range s.Passages {
		encodePassage(&b, &p, i+1)
	}

	b.WriteString(`</tw-storydata>`)
	return b.String(), nil
}

// hasClosingTag segnala se text chiuderebbe in anticipo l'elemento raw text tag
func hasClosingTag(text, tag string) bool {
	return strings.Contains(strings.ToLower(text), "</"+tag)
}

// encodePassage scrive un singolo <tw-passagedata> con pid locale
func encodePassage(b *strings.Builder, p *story.Passage, pid int) {
	b.WriteString(`<tw-passagedata pid="` + strconv.Itoa(pid) + `"`)
	b.WriteString(` name="` + html.EscapeString(p.Name) + `"`)
	b.WriteString(` tags="` + html.EscapeString(strings.Join(p.Tags, " ")) + `"`)
	b.WriteString(` position="` + story.FormatNumberPair(p.Left, p.Top) + `"`)
	b.WriteString(` size="` + story.FormatNumberPair(p.Width, p.Height) + `">`)
	b.WriteString(html.EscapeString(p.Text))
	b.WriteString(`</tw-passagedata>`)
}

// EncodeArchive concatena più storie in un archivio; il passaggio iniziale è sempre opzionale
func EncodeArchive(stories []story.Story, app story.AppInfo) (string, error) {
	var b strings.Builder
	for i := range stories {
		data, err := EncodeStory(&stories[i], app, EncodeOptions{StartOptional: true})
		if err != nil {
			return "", fmt.Errorf("errore archiviazione storia %q: %w", stories[i].Name, err)
		}
		b.WriteString(data)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}
