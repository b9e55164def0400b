package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"twine-codec/archive"
	"twine-codec/story"
	"twine-codec/twee"
)

// Archive raccoglie più sorgenti in un unico archivio HTML (una tw-storydata per storia)
func (c *Compiler) Archive(inputs []string, output string) (*CompileResult, error) {
	result := &CompileResult{}
	if len(inputs) == 0 {
		return c.fail(result, fmt.Errorf("nessun file da archiviare"))
	}

	var stories []story.Story
	for _, input := range inputs {
		if err := validateInput(input); err != nil {
			return c.fail(result, err)
		}

		if isTwee(input) {
			res, err := twee.ReadFile(input, c.storyOpts)
			if err != nil {
				return c.fail(result, err)
			}
			stories = append(stories, res.Story)
			result.Warnings = append(result.Warnings, warningStrings(res.Warnings)...)
			continue
		}

		loaded, warnings, err := c.loadHTML(input)
		if err != nil {
			return c.fail(result, err)
		}
		stories = append(stories, loaded...)
		result.Warnings = append(result.Warnings, warningStrings(warnings)...)
	}

	html, err := archive.EncodeArchive(stories, c.app)
	if err != nil {
		return c.fail(result, err)
	}

	if output == "" {
		output = "archive.html"
	}
	outputPath := c.outputPath("", output, ".html")
	if err := writeOutput(outputPath, []byte(html)); err != nil {
		return c.fail(result, err)
	}

	for _, s := range stories {
		result.PassageCount += len(s.Passages)
	}
	result.Success = true
	result.OutputFile = outputPath
	c.logger.Info("archivio creato", zap.Int("stories", len(stories)), zap.String("output", outputPath))
	return result, nil
}

// Split esplode un archivio in un file .twee per storia e restituisce i file scritti
func (c *Compiler) Split(archivePath, dir string) ([]string, error) {
	if err := validateInput(archivePath); err != nil {
		return nil, err
	}
	if !isHTML(archivePath) {
		return nil, fmt.Errorf("l'archivio deve essere un file .html: %s", archivePath)
	}

	stories, _, err := c.loadHTML(archivePath)
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, fmt.Errorf("nessuna storia trovata in %s", filepath.Base(archivePath))
	}

	if dir == "" {
		dir = c.workDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("impossibile creare %s: %w", dir, err)
	}

	var (
		written []string
		used    []string
	)
	for i := range stories {
		base := slug.Make(stories[i].Name)
		if base == "" {
			base = "story"
		}
		// l'unicità va verificata sul nome finale del file: "a", "a-1", "a-2", ...
		name := base
		for n := 1; slices.Contains(used, name); n++ {
			name = base + "-" + strconv.Itoa(n)
		}
		used = append(used, name)

		source, err := twee.EncodeStory(&stories[i])
		if err != nil {
			return written, fmt.Errorf("errore esportazione %q: %w", stories[i].Name, err)
		}

		path := filepath.Join(dir, name+".twee")
		if err := writeOutput(path, []byte(source)); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	c.logger.Info("archivio suddiviso", zap.Int("stories", len(written)), zap.String("dir", dir))
	return written, nil
}
