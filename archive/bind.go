package archive

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"twine-codec/story"
)

const (
	tokenStoryName = "{{STORY_NAME}}"
	tokenStoryData = "{{STORY_DATA}}"
)

// BindToFormat inserisce la storia nel template del formato.
// La sostituzione è letterale e in un solo passaggio: il testo inserito non viene mai
// reinterpretato, nemmeno se contiene a sua volta uno dei token.
func BindToFormat(s *story.Story, template string, app story.AppInfo, opts EncodeOptions) (string, error) {
	if template == "" {
		return "", ErrEmptyTemplate
	}

	data, err := EncodeStory(s, app, opts)
	if err != nil {
		return "", fmt.Errorf("errore pubblicazione storia: %w", err)
	}

	r := strings.NewReplacer(
		tokenStoryName, html.EscapeString(s.Name),
		tokenStoryData, data,
	)
	return r.Replace(template), nil
}

func sortedKeys(m map[string]story.Color) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
