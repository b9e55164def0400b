package roundtrip

import (
	"fmt"
	"maps"
	"slices"

	"twine-codec/story"
)

// compare elenca le differenze tra la storia di partenza e quella riletta.
// Confronta solo i campi che i due codec devono preservare; ID e date sono locali a ogni decodifica.
func compare(want, got *story.Story, checkPositions bool) []string {
	var diffs []string
	field := func(name string, a, b any) {
		if a != b {
			diffs = append(diffs, fmt.Sprintf("%s: %v != %v", name, a, b))
		}
	}

	field("name", want.Name, got.Name)
	field("ifid", want.IFID, got.IFID)
	field("story format", want.StoryFormat, got.StoryFormat)
	field("story format version", want.StoryFormatVersion, got.StoryFormatVersion)
	field("script", want.Script, got.Script)
	field("stylesheet", want.Stylesheet, got.Stylesheet)
	field("zoom", want.Zoom, got.Zoom)
	field("start passage", startName(want), startName(got))

	if !maps.Equal(want.TagColors, got.TagColors) {
		diffs = append(diffs, fmt.Sprintf("tag colors: %v != %v", want.TagColors, got.TagColors))
	}

	if len(want.Passages) != len(got.Passages) {
		diffs = append(diffs, fmt.Sprintf("passaggi: %d != %d", len(want.Passages), len(got.Passages)))
	}
	for _, wp := range want.Passages {
		gp, ok := got.PassageByName(wp.Name)
		if !ok {
			diffs = append(diffs, fmt.Sprintf("passaggio %q mancante", wp.Name))
			continue
		}
		prefix := fmt.Sprintf("passaggio %q ", wp.Name)
		if wp.Text != gp.Text {
			diffs = append(diffs, prefix+"text diverso")
		}
		if !slices.Equal(wp.Tags, gp.Tags) {
			diffs = append(diffs, fmt.Sprintf("%stags: %v != %v", prefix, wp.Tags, gp.Tags))
		}
		if wp.Width != gp.Width || wp.Height != gp.Height {
			diffs = append(diffs, fmt.Sprintf("%ssize: %v,%v != %v,%v", prefix, wp.Width, wp.Height, gp.Width, gp.Height))
		}
		if checkPositions && (wp.Left != gp.Left || wp.Top != gp.Top) {
			diffs = append(diffs, fmt.Sprintf("%sposition: %v,%v != %v,%v", prefix, wp.Left, wp.Top, gp.Left, gp.Top))
		}
	}
	return diffs
}

// allAtOrigin riconosce le storie che il decoder Twee dispone a griglia
func allAtOrigin(s *story.Story) bool {
	for _, p := range s.Passages {
		if p.Left != 0 || p.Top != 0 {
			return false
		}
	}
	return true
}

func startName(s *story.Story) string {
	name, _ := s.StartPassageName()
	return name
}
