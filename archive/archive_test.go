package archive

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"twine-codec/story"
)

var testApp = story.AppInfo{Name: "Twine Codec", Version: "1.0.0"}

func testOptions() story.Options {
	return story.Options{
		NewID: story.SequentialIDs("dec"),
		Now:   func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

func sampleStory() story.Story {
	return story.Story{
		ID:                 "s1",
		Name:               `The "Great" <Escape> & Co`,
		IFID:               "D674C58C-DEFA-4F70-B7A2-27742230C0FC",
		StoryFormat:        "Harlowe",
		StoryFormatVersion: "3.3.8",
		Script:             "if (a < b && c) { run(); }",
		Stylesheet:         "body > p { color: red; }",
		Tags:               []string{"draft", "v2"},
		TagColors:          map[string]story.Color{"combat": story.ColorRed, "hub": story.ColorBlue},
		Zoom:               0.6,
		StartPassage:       "p2",
		Passages: []story.Passage{
			{ID: "p1", Story: "s1", Name: "Cave", Text: "It's dark.\n[[Start]]", Tags: []string{"combat"}, Left: 250, Top: 100.5, Width: 100, Height: 200},
			{ID: "p2", Story: "s1", Name: "Start", Text: "You wake up <b>somewhere</b> & \"quoted\".", Tags: []string{}, Left: 25, Top: 25, Width: 100, Height: 100},
		},
	}
}

func TestEncodeStoryLayout(t *testing.T) {
	s := sampleStory()
	out, err := EncodeStory(&s, testApp, EncodeOptions{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, `<tw-storydata name="The &#34;Great&#34; &lt;Escape&gt; &amp; Co" startnode="2" creator="Twine Codec" creator-version="1.0.0"`))
	assert.Contains(t, out, ` tags="draft v2" zoom="0.6" hidden>`)
	assert.Contains(t, out, `<style role="stylesheet" id="twine-user-stylesheet" type="text/twine-css">body > p { color: red; }</style>`)
	assert.Contains(t, out, `<script role="script" id="twine-user-script" type="text/twine-javascript">if (a < b && c) { run(); }</script>`)
	assert.Contains(t, out, `<tw-tag name="combat" color="red"></tw-tag><tw-tag name="hub" color="blue"></tw-tag>`)
	assert.Contains(t, out, `<tw-passagedata pid="1" name="Cave" tags="combat" position="250,100.5" size="100,200">It&#39;s dark.`+"\n"+`[[Start]]</tw-passagedata>`)
	assert.Contains(t, out, `<tw-passagedata pid="2" name="Start" tags="" position="25,25" size="100,100">`)
	assert.True(t, strings.HasSuffix(out, `</tw-storydata>`))
}

func TestEncodeStoryStartOverride(t *testing.T) {
	s := sampleStory()
	out, err := EncodeStory(&s, testApp, EncodeOptions{StartID: "p1"})
	require.NoError(t, err)
	assert.Contains(t, out, `startnode="1"`)
}

func TestEncodeStoryRequiresStart(t *testing.T) {
	s := sampleStory()
	s.StartPassage = ""

	_, err := EncodeStory(&s, testApp, EncodeOptions{})
	assert.ErrorIs(t, err, ErrNoStartPassage)

	out, err := EncodeStory(&s, testApp, EncodeOptions{StartOptional: true})
	require.NoError(t, err)
	assert.Contains(t, out, `startnode=""`)

	s.StartPassage = "missing"
	_, err = EncodeStory(&s, testApp, EncodeOptions{})
	assert.ErrorIs(t, err, ErrStartPassageNotFound)
	assert.NotErrorIs(t, err, ErrNoStartPassage)

	out, err = EncodeStory(&s, testApp, EncodeOptions{StartOptional: true})
	require.NoError(t, err)
	assert.Contains(t, out, `startnode=""`)
}

func TestEncodeStoryRejectsClosingTags(t *testing.T) {
	s := sampleStory()
	s.Script = `var x = "</script><p>oops</p>";`
	_, err := EncodeStory(&s, testApp, EncodeOptions{})
	assert.ErrorIs(t, err, ErrUnsafeRawText)

	s = sampleStory()
	s.Stylesheet = "body { color: red; } </STYLE >"
	_, err = EncodeStory(&s, testApp, EncodeOptions{})
	assert.ErrorIs(t, err, ErrUnsafeRawText)

	_, err = EncodeArchive([]story.Story{s}, testApp)
	assert.ErrorIs(t, err, ErrUnsafeRawText)

	// altri tag di chiusura dentro lo script restano validi
	s = sampleStory()
	s.Script = `if (a </b) {}`
	out, err := EncodeStory(&s, testApp, EncodeOptions{})
	require.NoError(t, err)
	res, err := DecodeStories(out, nil, testOptions())
	require.NoError(t, err)
	require.Len(t, res.Stories, 1)
	assert.Equal(t, s.Script, res.Stories[0].Script)
}

func TestRoundTrip(t *testing.T) {
	s := sampleStory()
	out, err := EncodeStory(&s, testApp, EncodeOptions{})
	require.NoError(t, err)

	res, err := DecodeStories(out, nil, testOptions())
	require.NoError(t, err)
	require.Len(t, res.Stories, 1)
	assert.Empty(t, res.Warnings)

	got := res.Stories[0]
	assert.Equal(t, s.Name, got.Name)
	assert.Equal(t, s.IFID, got.IFID)
	assert.Equal(t, s.StoryFormat, got.StoryFormat)
	assert.Equal(t, s.StoryFormatVersion, got.StoryFormatVersion)
	assert.Equal(t, s.Script, got.Script)
	assert.Equal(t, s.Stylesheet, got.Stylesheet)
	assert.Equal(t, s.TagColors, got.TagColors)
	assert.Equal(t, s.Tags, got.Tags)
	assert.Equal(t, s.Zoom, got.Zoom)

	require.Len(t, got.Passages, 2)
	for i, want := range s.Passages {
		p := got.Passages[i]
		assert.Equal(t, want.Name, p.Name)
		assert.Equal(t, want.Text, p.Text)
		assert.Equal(t, want.Tags, p.Tags)
		assert.Equal(t, want.Left, p.Left)
		assert.Equal(t, want.Top, p.Top)
		assert.Equal(t, want.Width, p.Width)
		assert.Equal(t, want.Height, p.Height)
		assert.Equal(t, got.ID, p.Story)
		assert.NotEqual(t, want.ID, p.ID)
	}

	start, ok := got.StartPassageName()
	require.True(t, ok)
	assert.Equal(t, "Start", start)
}

func TestEncodeIsIdempotent(t *testing.T) {
	s := sampleStory()
	first, err := EncodeStory(&s, testApp, EncodeOptions{})
	require.NoError(t, err)

	res, err := DecodeStories(first, nil, testOptions())
	require.NoError(t, err)
	second, err := EncodeStory(&res.Stories[0], testApp, EncodeOptions{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecodeEmptyStoryData(t *testing.T) {
	res, err := DecodeStories(`<tw-storydata></tw-storydata>`, nil, testOptions())
	require.NoError(t, err)
	require.Len(t, res.Stories, 1)

	s := res.Stories[0]
	assert.Empty(t, s.Passages)
	assert.NotNil(t, s.Passages)
	assert.Empty(t, s.TagColors)
	assert.NotNil(t, s.TagColors)
	assert.Equal(t, story.DefaultStoryName, s.Name)
	assert.Equal(t, 1.0, s.Zoom)
	assert.Equal(t, "", s.Script)
	assert.Equal(t, "", s.Stylesheet)
	assert.Equal(t, "", s.StartPassage)
	assert.NotEmpty(t, s.IFID)
}

func TestDecodeNoStories(t *testing.T) {
	res, err := DecodeStories(`<html><body><p>nothing here</p></body></html>`, nil, testOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Stories)
}

func TestDecodeMalformedAttributes(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	opts := testOptions()
	opts.Logger = zap.New(core)

	src := `<tw-storydata name="Broken" zoom="big" startnode="9">` +
		`<tw-passagedata pid="1" name="A" position="10;20" size="50,x">a</tw-passagedata>` +
		`<tw-passagedata pid="2" position="5,6">b</tw-passagedata>` +
		`<tw-tag name="orphan"></tw-tag>` +
		`</tw-storydata>`

	res, err := DecodeStories(src, nil, opts)
	require.NoError(t, err)
	require.Len(t, res.Stories, 1)

	s := res.Stories[0]
	assert.Equal(t, 1.0, s.Zoom)
	assert.Equal(t, "", s.StartPassage)
	assert.Empty(t, s.TagColors)
	require.Len(t, s.Passages, 2)
	assert.Equal(t, 0.0, s.Passages[0].Left)
	assert.Equal(t, 100.0, s.Passages[0].Width)
	assert.Equal(t, story.DefaultPassageName, s.Passages[1].Name)
	assert.Equal(t, 5.0, s.Passages[1].Left)

	kinds := map[story.WarningKind]int{}
	for _, w := range res.Warnings {
		kinds[w.Kind]++
	}
	assert.Equal(t, 3, kinds[story.WarnAttribute])
	assert.Equal(t, 2, kinds[story.WarnPosition])
	assert.Equal(t, 1, kinds[story.WarnStartPassage])
	assert.Equal(t, len(res.Warnings), logs.Len())
}

func TestDecodeMultipleScriptsAndStyles(t *testing.T) {
	src := `<tw-storydata name="S">` +
		`<script type="text/twine-javascript">one();</script>` +
		`<script role="script">two();</script>` +
		`<script type="text/javascript">ignored();</script>` +
		`<style type="text/twine-css">a{}</style>` +
		`<style role="stylesheet">b{}</style>` +
		`</tw-storydata>`

	res, err := DecodeStories(src, nil, testOptions())
	require.NoError(t, err)
	require.Len(t, res.Stories, 1)
	assert.Equal(t, "one();\ntwo();", res.Stories[0].Script)
	assert.Equal(t, "a{}\nb{}", res.Stories[0].Stylesheet)
}

func TestDecodeLastUpdateOverride(t *testing.T) {
	when := time.Date(2020, 5, 6, 7, 8, 9, 0, time.UTC)
	res, err := DecodeStories(`<tw-storydata name="x"></tw-storydata>`, &when, testOptions())
	require.NoError(t, err)
	assert.Equal(t, when, res.Stories[0].LastUpdate)

	res, err = DecodeStories(`<tw-storydata name="x"></tw-storydata>`, nil, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 2024, res.Stories[0].LastUpdate.Year())
}

func TestDecodePartialLeavesAbsentFieldsNil(t *testing.T) {
	partials, _, err := DecodeStoriesPartial(`<tw-storydata name="x"><tw-passagedata pid="1" name="a">t</tw-passagedata></tw-storydata>`, nil, testOptions())
	require.NoError(t, err)
	require.Len(t, partials, 1)

	p := partials[0]
	assert.Nil(t, p.IFID)
	assert.Nil(t, p.Zoom)
	require.Len(t, p.Passages, 1)
	assert.Nil(t, p.Passages[0].Left)
	assert.Nil(t, p.Passages[0].Width)
	assert.NotNil(t, p.Passages[0].ID)
}

func TestArchiveRoundTrip(t *testing.T) {
	a := sampleStory()
	b := sampleStory()
	b.Name = "Second"
	b.StartPassage = ""

	out, err := EncodeArchive([]story.Story{a, b}, testApp)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "</tw-storydata>\n\n"))

	res, err := DecodeStories(out, nil, testOptions())
	require.NoError(t, err)
	require.Len(t, res.Stories, 2)
	assert.Equal(t, a.Name, res.Stories[0].Name)
	assert.Equal(t, "Second", res.Stories[1].Name)
	assert.Equal(t, "", res.Stories[1].StartPassage)
	assert.NotEqual(t, res.Stories[0].ID, res.Stories[1].ID)
}

func TestBindToFormat(t *testing.T) {
	s := sampleStory()
	s.Name = "Cost $& {{STORY_DATA}}"
	s.Passages[1].Text = "price: $1 $& $$"

	template := "<title>{{STORY_NAME}}</title><body>{{STORY_DATA}}</body>"
	out, err := BindToFormat(&s, template, testApp, EncodeOptions{})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "<title>Cost $&amp; {{STORY_DATA}}</title><body><tw-storydata"))
	assert.Contains(t, out, "price: $1 $&amp; $$")
	assert.Equal(t, 1, strings.Count(out, "<tw-storydata"))
}

func TestBindToFormatErrors(t *testing.T) {
	s := sampleStory()
	_, err := BindToFormat(&s, "", testApp, EncodeOptions{})
	assert.ErrorIs(t, err, ErrEmptyTemplate)

	s.StartPassage = ""
	_, err = BindToFormat(&s, "{{STORY_DATA}}", testApp, EncodeOptions{})
	assert.ErrorIs(t, err, ErrNoStartPassage)
}
