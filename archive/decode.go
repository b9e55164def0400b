package archive

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"twine-codec/story"
)

const (
	elemStoryData   = "tw-storydata"
	elemPassageData = "tw-passagedata"
	elemTag         = "tw-tag"

	typeScript     = "text/twine-javascript"
	typeStylesheet = "text/twine-css"
)

// DecodeResult risultato della decodifica di un documento HTML
type DecodeResult struct {
	Stories  []story.Story   `json:"stories"`
	Warnings []story.Warning `json:"warnings,omitempty"`
}

// DecodeStories estrae tutte le storie dal documento e applica i default.
// Un documento senza <tw-storydata> produce un risultato vuoto, non un errore.
func DecodeStories(src string, lastUpdate *time.Time, opts story.Options) (*DecodeResult, error) {
	opts = opts.Normalize()

	partials, warnings, err := DecodeStoriesPartial(src, lastUpdate, opts)
	if err != nil {
		return nil, err
	}

	result := &DecodeResult{
		Stories:  make([]story.Story, 0, len(partials)),
		Warnings: warnings,
	}
	for _, p := range partials {
		result.Stories = append(result.Stories, story.ApplyStoryDefaults(p, opts))
	}
	return result, nil
}

// DecodeStoriesPartial estrae le storie lasciando nil i campi assenti dal documento.
// Gli id (storia e passaggi) sono sempre nuovi; pid e startnode vengono risolti e scartati.
func DecodeStoriesPartial(src string, lastUpdate *time.Time, opts story.Options) ([]story.PartialStory, []story.Warning, error) {
	opts = opts.Normalize()

	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, nil, fmt.Errorf("errore parsing HTML: %w", err)
	}

	wl := story.NewWarningLog(opts.Logger)
	stories := []story.PartialStory{}

	for _, el := range findElements(doc, elemStoryData) {
		ps := decodeStoryElement(el, wl, opts)
		if lastUpdate != nil {
			ps.LastUpdate = story.Ptr(*lastUpdate)
		} else {
			ps.LastUpdate = story.Ptr(opts.Now())
		}
		stories = append(stories, ps)
	}

	opts.Logger.Debug("storie decodificate da HTML",
		zap.Int("stories", len(stories)),
		zap.Int("warnings", len(wl.Warnings())))
	return stories, wl.Warnings(), nil
}

// decodeStoryElement legge un singolo <tw-storydata>
func decodeStoryElement(el *html.Node, wl *story.WarningLog, opts story.Options) story.PartialStory {
	ps := story.PartialStory{ID: story.Ptr(opts.NewID())}

	name, ok := attr(el, "name")
	if ok {
		ps.Name = story.Ptr(name)
	} else {
		wl.Add(story.WarnAttribute, elemStoryData, "attributo name assente")
	}
	subject := name

	if v, ok := attr(el, "ifid"); ok {
		ps.IFID = story.Ptr(v)
	}
	if v, ok := attr(el, "format"); ok {
		ps.StoryFormat = story.Ptr(v)
	}
	if v, ok := attr(el, "format-version"); ok {
		ps.StoryFormatVersion = story.Ptr(v)
	}
	if v, ok := attr(el, "zoom"); ok {
		zoom, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			wl.Add(story.WarnAttribute, subject, "zoom non numerico: %q", v)
		} else {
			ps.Zoom = story.Ptr(zoom)
		}
	}
	if v, ok := attr(el, "tags"); ok {
		ps.Tags = strings.Fields(v)
	} else {
		ps.Tags = []string{}
	}

	var scripts, styles []string
	ps.TagColors = map[string]story.Color{}
	startNode, _ := attr(el, "startnode")
	startNode = strings.TrimSpace(startNode)

	for _, child := range descendants(el) {
		switch child.Data {
		case "script":
			if isUserScript(child) {
				scripts = append(scripts, textContent(child))
			}
		case "style":
			if isUserStylesheet(child) {
				styles = append(styles, textContent(child))
			}
		case elemTag:
			tagName, okName := attr(child, "name")
			color, okColor := attr(child, "color")
			if !okName || !okColor {
				wl.Add(story.WarnAttribute, subject, "tw-tag senza name o color ignorato")
				continue
			}
			ps.TagColors[tagName] = story.Color(color)
		case elemPassageData:
			pp, pid := decodePassageElement(child, wl, opts)
			if startNode != "" && pid == startNode && ps.StartPassage == nil {
				ps.StartPassage = story.Ptr(*pp.ID)
			}
			ps.Passages = append(ps.Passages, pp)
		}
	}

	if startNode != "" && ps.StartPassage == nil {
		wl.Add(story.WarnStartPassage, subject, "startnode %q non corrisponde a nessun passaggio", startNode)
	}

	ps.Script = story.Ptr(strings.Join(scripts, "\n"))
	ps.Stylesheet = story.Ptr(strings.Join(styles, "\n"))
	if ps.Passages == nil {
		ps.Passages = []story.PartialPassage{}
	}
	return ps
}

// decodePassageElement legge un <tw-passagedata>; restituisce anche il pid locale
func decodePassageElement(el *html.Node, wl *story.WarningLog, opts story.Options) (story.PartialPassage, string) {
	pp := story.PartialPassage{ID: story.Ptr(opts.NewID())}

	name, ok := attr(el, "name")
	if ok {
		pp.Name = story.Ptr(name)
	} else {
		wl.Add(story.WarnAttribute, elemPassageData, "attributo name assente")
	}

	if v, ok := attr(el, "tags"); ok {
		pp.Tags = strings.Fields(v)
	}

	if v, ok := attr(el, "position"); ok {
		if left, top, ok := story.ParseNumberPair(v); ok {
			pp.Left, pp.Top = story.Ptr(left), story.Ptr(top)
		} else {
			wl.Add(story.WarnPosition, name, "position non valida: %q", v)
		}
	}
	if v, ok := attr(el, "size"); ok {
		if width, height, ok := story.ParseNumberPair(v); ok {
			pp.Width, pp.Height = story.Ptr(width), story.Ptr(height)
		} else {
			wl.Add(story.WarnPosition, name, "size non valida: %q", v)
		}
	}

	pp.Text = story.Ptr(textContent(el))

	pid, _ := attr(el, "pid")
	return pp, strings.TrimSpace(pid)
}

func isUserScript(n *html.Node) bool {
	t, _ := attr(n, "type")
	role, _ := attr(n, "role")
	return strings.EqualFold(t, typeScript) || role == "script"
}

func isUserStylesheet(n *html.Node) bool {
	t, _ := attr(n, "type")
	role, _ := attr(n, "role")
	return strings.EqualFold(t, typeStylesheet) || role == "stylesheet"
}
