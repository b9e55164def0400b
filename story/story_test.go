package story

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testOptions() Options {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return Options{
		NewID: SequentialIDs("id"),
		Now:   func() time.Time { return fixed },
	}
}

func TestDefaultsAreFreshValues(t *testing.T) {
	a := StoryDefaults()
	b := StoryDefaults()
	a.Tags = append(a.Tags, "x")
	a.TagColors["x"] = ColorRed

	assert.Empty(t, b.Tags)
	assert.Empty(t, b.TagColors)
	assert.Equal(t, DefaultStoryName, b.Name)
	assert.Equal(t, 1.0, b.Zoom)

	p := PassageDefaults()
	assert.Equal(t, 100.0, p.Width)
	assert.Equal(t, 100.0, p.Height)
	assert.Equal(t, DefaultPassageName, p.Name)
}

func TestApplyPassageDefaultsKeepsExplicitZeroValues(t *testing.T) {
	p := ApplyPassageDefaults(PartialPassage{
		Name:  Ptr(""),
		Width: Ptr(0.0),
		Left:  Ptr(12.5),
	}, "story-1", testOptions())

	assert.Equal(t, "", p.Name)
	assert.Equal(t, 0.0, p.Width)
	assert.Equal(t, 100.0, p.Height)
	assert.Equal(t, 12.5, p.Left)
	assert.Equal(t, "story-1", p.Story)
	assert.Equal(t, "id-1", p.ID)
	assert.NotNil(t, p.Tags)
}

func TestApplyStoryDefaultsFillsEveryPassage(t *testing.T) {
	opts := testOptions()
	opts.StoryFormat = "Harlowe"
	opts.StoryFormatVersion = "3.3.8"

	s := ApplyStoryDefaults(PartialStory{
		ID:       Ptr("s"),
		Zoom:     Ptr(0.0),
		Passages: []PartialPassage{{Name: Ptr("a")}, {ID: Ptr("p2")}},
	}, opts)

	require.Len(t, s.Passages, 2)
	assert.Equal(t, "s", s.ID)
	assert.Equal(t, 0.0, s.Zoom)
	assert.Equal(t, "Harlowe", s.StoryFormat)
	assert.Equal(t, "3.3.8", s.StoryFormatVersion)
	assert.Equal(t, "ID-1", s.IFID)
	assert.Equal(t, 2024, s.LastUpdate.Year())
	for _, p := range s.Passages {
		assert.Equal(t, "s", p.Story)
	}
	assert.Equal(t, "a", s.Passages[0].Name)
	assert.Equal(t, "p2", s.Passages[1].ID)
	assert.Equal(t, DefaultPassageName, s.Passages[1].Name)
}

func TestApplyStoryDefaultsCopiesCollections(t *testing.T) {
	tags := []string{"a"}
	colors := map[string]Color{"a": ColorBlue}
	s := ApplyStoryDefaults(PartialStory{Tags: tags, TagColors: colors}, testOptions())

	tags[0] = "changed"
	colors["b"] = ColorRed
	assert.Equal(t, []string{"a"}, s.Tags)
	assert.Len(t, s.TagColors, 1)
}

func TestUnusedName(t *testing.T) {
	assert.Equal(t, "a 1", UnusedName("a", []string{"a"}))
	assert.Equal(t, "a 2", UnusedName("a", []string{"a", "a 1"}))
	assert.Equal(t, "a", UnusedName("a", []string{"b"}))
	assert.Equal(t, "a", UnusedName("a", nil))

	existing := []string{"a", "a 1"}
	UnusedName("a", existing)
	assert.Equal(t, []string{"a", "a 1"}, existing)
}

func TestSequentialIDs(t *testing.T) {
	gen := SequentialIDs("p")
	assert.Equal(t, "p-1", gen())
	assert.Equal(t, "p-2", gen())
	assert.Equal(t, "P-3", NewIFID(gen))
}

func TestStoryLookups(t *testing.T) {
	s := Story{
		StartPassage: "2",
		Passages: []Passage{
			{ID: "1", Name: "Uno"},
			{ID: "2", Name: "Due"},
		},
	}

	name, ok := s.StartPassageName()
	require.True(t, ok)
	assert.Equal(t, "Due", name)

	_, ok = s.PassageByID("")
	assert.False(t, ok)

	p, ok := s.PassageByName("Uno")
	require.True(t, ok)
	assert.Equal(t, "1", p.ID)
	assert.Equal(t, []string{"Uno", "Due"}, s.PassageNames())
}

func TestColorValid(t *testing.T) {
	assert.True(t, ColorPurple.Valid())
	assert.False(t, Color("magenta").Valid())
}

func TestWarningLogRecordsAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	wl := NewWarningLog(zap.New(core))

	wl.Add(WarnPosition, "Start", "posizione non valida: %q", "a,b")

	require.Len(t, wl.Warnings(), 1)
	assert.Equal(t, WarnPosition, wl.Warnings()[0].Kind)
	assert.Equal(t, `position (Start): posizione non valida: "a,b"`, wl.Warnings()[0].String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Start", logs.All()[0].ContextMap()["subject"])
}

func TestNumberPairs(t *testing.T) {
	a, b, ok := ParseNumberPair("12.5,-3")
	require.True(t, ok)
	assert.Equal(t, 12.5, a)
	assert.Equal(t, -3.0, b)

	for _, bad := range []string{"", "1", "1,2,3", " 1,2", "a,b", "1;2"} {
		_, _, ok := ParseNumberPair(bad)
		assert.False(t, ok, bad)
	}

	assert.Equal(t, "100,0.25", FormatNumberPair(100, 0.25))
	assert.Equal(t, "1000000", FormatNumber(1e6))
}
