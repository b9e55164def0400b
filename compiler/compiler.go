package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"twine-codec/archive"
	"twine-codec/formats"
	"twine-codec/story"
	"twine-codec/twee"
)

// Compiler pubblica le storie: decodifica il sorgente e lo inserisce nel template del formato
type Compiler struct {
	formats   *formats.Registry
	app       story.AppInfo
	workDir   string
	storyOpts story.Options
	logger    *zap.Logger
}

// Config configurazione del compiler
type Config struct {
	Formats              *formats.Registry
	AppInfo              story.AppInfo
	WorkDir              string // cartella per gli output con path relativo
	DefaultFormat        string
	DefaultFormatVersion string
	Logger               *zap.Logger
}

// CompileOptions opzioni per la compilazione
type CompileOptions struct {
	Format        string // Story format (es: "Harlowe"); vuoto = quello della storia
	FormatVersion string // Versione del formato; vuota = quella della storia
	Output        string // File output (default: <input>.html)
	StartNode     string // Nome del passaggio iniziale, sovrascrive quello della storia
	StoryName     string // Storia da usare se l'input è un archivio con più storie
	StrictMode    bool   // Modalità strict (warnings = errors)
}

// CompileResult risultato della compilazione
type CompileResult struct {
	Success      bool     `json:"success"`
	StoryName    string   `json:"story_name,omitempty"`
	Format       string   `json:"format,omitempty"`
	PassageCount int      `json:"passage_count"`
	ErrorMessage string   `json:"error,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	OutputFile   string   `json:"output_file,omitempty"`
}

// NewCompiler crea un nuovo compiler
func NewCompiler(cfg Config) (*Compiler, error) {
	if cfg.Formats == nil {
		return nil, fmt.Errorf("registry dei formati mancante")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	// Se workDir non esiste, crealo
	if cfg.WorkDir != "" {
		if err := os.MkdirAll(cfg.WorkDir, 0755); err != nil {
			return nil, fmt.Errorf("impossibile creare workDir: %w", err)
		}
	}

	return &Compiler{
		formats: cfg.Formats,
		app:     cfg.AppInfo,
		workDir: cfg.WorkDir,
		storyOpts: story.Options{
			Logger:             cfg.Logger,
			StoryFormat:        cfg.DefaultFormat,
			StoryFormatVersion: cfg.DefaultFormatVersion,
		},
		logger: cfg.Logger,
	}, nil
}

// Compile pubblica un file .twee o .html in un file HTML giocabile
func (c *Compiler) Compile(inputFile string, options *CompileOptions) (*CompileResult, error) {
	result := &CompileResult{}

	// Validazione pre-compilazione
	if err := validateInput(inputFile); err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}

	// Opzioni di default
	if options == nil {
		options = &CompileOptions{}
	}

	s, warnings, err := c.LoadStory(inputFile, options.StoryName)
	if err != nil {
		return c.fail(result, err)
	}
	result.StoryName = s.Name
	result.PassageCount = len(s.Passages)
	result.Warnings = warningStrings(warnings)

	if options.StrictMode && len(warnings) > 0 {
		return c.fail(result, fmt.Errorf("modalità strict: %d warning", len(warnings)))
	}

	encodeOpts := archive.EncodeOptions{}
	if options.StartNode != "" {
		p, ok := s.PassageByName(options.StartNode)
		if !ok {
			return c.fail(result, fmt.Errorf("passaggio iniziale %q non trovato", options.StartNode))
		}
		encodeOpts.StartID = p.ID
	}

	format, err := c.resolveFormat(s, options)
	if err != nil {
		return c.fail(result, err)
	}
	result.Format = format.Name + " " + format.Version

	// La storia pubblicata dichiara il formato effettivamente usato
	s.StoryFormat = format.Name
	s.StoryFormatVersion = format.Version

	html, err := archive.BindToFormat(s, format.Source, c.app, encodeOpts)
	if err != nil {
		return c.fail(result, err)
	}

	outputPath := c.outputPath(inputFile, options.Output, ".html")
	if err := writeOutput(outputPath, []byte(html)); err != nil {
		return c.fail(result, err)
	}

	result.Success = true
	result.OutputFile = outputPath
	c.logger.Info("storia compilata",
		zap.String("story", s.Name),
		zap.String("format", result.Format),
		zap.String("output", outputPath))
	return result, nil
}

// ExportTwee converte un file (HTML o Twee) nel formato Twee
func (c *Compiler) ExportTwee(inputFile string, options *CompileOptions) (*CompileResult, error) {
	result := &CompileResult{}
	if err := validateInput(inputFile); err != nil {
		result.ErrorMessage = err.Error()
		return result, err
	}
	if options == nil {
		options = &CompileOptions{}
	}

	s, warnings, err := c.LoadStory(inputFile, options.StoryName)
	if err != nil {
		return c.fail(result, err)
	}
	result.StoryName = s.Name
	result.PassageCount = len(s.Passages)
	result.Warnings = warningStrings(warnings)

	source, err := twee.EncodeStory(s)
	if err != nil {
		return c.fail(result, err)
	}

	outputPath := c.outputPath(inputFile, options.Output, ".twee")
	if err := writeOutput(outputPath, []byte(source)); err != nil {
		return c.fail(result, err)
	}

	result.Success = true
	result.OutputFile = outputPath
	return result, nil
}

// LoadStory decodifica un file; per gli HTML sceglie la storia indicata o la prima
func (c *Compiler) LoadStory(path, storyName string) (*story.Story, []story.Warning, error) {
	if isTwee(path) {
		res, err := twee.ReadFile(path, c.storyOpts)
		if err != nil {
			return nil, nil, err
		}
		return &res.Story, res.Warnings, nil
	}

	stories, warnings, err := c.loadHTML(path)
	if err != nil {
		return nil, nil, err
	}
	if len(stories) == 0 {
		return nil, nil, fmt.Errorf("nessuna storia trovata in %s", filepath.Base(path))
	}
	if storyName == "" {
		return &stories[0], warnings, nil
	}
	for i := range stories {
		if stories[i].Name == storyName {
			return &stories[i], warnings, nil
		}
	}
	return nil, nil, fmt.Errorf("storia %q non trovata in %s", storyName, filepath.Base(path))
}

func (c *Compiler) loadHTML(path string) ([]story.Story, []story.Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("errore apertura file: %w", err)
	}

	var lastUpdate *time.Time
	if info, err := os.Stat(path); err == nil {
		mod := info.ModTime()
		lastUpdate = &mod
	}
	res, err := archive.DecodeStories(string(data), lastUpdate, c.storyOpts)
	if err != nil {
		return nil, nil, err
	}
	return res.Stories, res.Warnings, nil
}

// resolveFormat sceglie il formato: opzioni, poi quello della storia, poi il default
func (c *Compiler) resolveFormat(s *story.Story, options *CompileOptions) (*formats.Format, error) {
	name, version := s.StoryFormat, s.StoryFormatVersion
	if options.Format != "" {
		name, version = options.Format, options.FormatVersion
	}
	if name == "" {
		name, version = c.storyOpts.StoryFormat, c.storyOpts.StoryFormatVersion
	}

	f, err := c.formats.Lookup(name, version)
	if err != nil {
		return nil, fmt.Errorf("impossibile risolvere il formato: %w", err)
	}
	if f.Version != version && version != "" {
		c.logger.Warn("versione del formato sostituita",
			zap.String("format", name),
			zap.String("requested", version),
			zap.String("used", f.Version))
	}
	return f, nil
}

// outputPath determina il file di output; i path relativi finiscono in workDir
func (c *Compiler) outputPath(inputFile, output, ext string) string {
	if output == "" {
		output = strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile)) + ext
	}
	if !filepath.IsAbs(output) && c.workDir != "" {
		output = filepath.Join(c.workDir, output)
	}
	return output
}

func (c *Compiler) fail(result *CompileResult, err error) (*CompileResult, error) {
	result.Success = false
	result.ErrorMessage = err.Error()
	c.logger.Error("compilazione fallita", zap.Error(err))
	return result, fmt.Errorf("compilazione fallita: %w", err)
}

// validateInput valida il file prima della compilazione
func validateInput(inputFile string) error {
	// 1. Verifica che il file esista
	fileInfo, err := os.Stat(inputFile)
	if os.IsNotExist(err) {
		return fmt.Errorf("file input non trovato: %s", inputFile)
	}
	if err != nil {
		return fmt.Errorf("impossibile leggere info file: %w", err)
	}

	// 2. Verifica che non sia vuoto
	if fileInfo.Size() == 0 {
		return fmt.Errorf("file input vuoto: %s", inputFile)
	}

	// 3. Verifica l'estensione
	if !isTwee(inputFile) && !isHTML(inputFile) {
		return fmt.Errorf("il file deve avere estensione .twee, .tw o .html")
	}
	return nil
}

// IsSource verifica se il path è un sorgente gestito dal compiler
func IsSource(path string) bool {
	return isTwee(path) || isHTML(path)
}

func isTwee(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".twee" || ext == ".tw"
}

func isHTML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}

func warningStrings(warnings []story.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}
	return out
}

// writeOutput scrive il file tenendo un lock accanto, così watcher e API non si sovrappongono
func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("impossibile creare la cartella di output: %w", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("impossibile acquisire il lock su %s: %w", path, err)
	}
	defer lock.Unlock()

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("errore scrittura %s: %w", path, err)
	}
	return nil
}
