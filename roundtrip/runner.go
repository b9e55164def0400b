package roundtrip

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/maruel/natural"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"twine-codec/archive"
	"twine-codec/story"
	"twine-codec/twee"
)

// Runner verifica che ogni sorgente di una cartella sopravviva alla conversione HTML e Twee
type Runner struct {
	outDir string
	app    story.AppInfo
	opts   story.Options
	logger *zap.Logger
}

// Config configurazione del runner
type Config struct {
	OutDir  string // dove scrivere i report; vuoto = accanto al sorgente
	App     story.AppInfo
	Options story.Options
	Logger  *zap.Logger
}

// Trip esito di un singolo giro encode/decode
type Trip struct {
	OK          bool     `json:"ok"`
	Error       string   `json:"error,omitempty"`
	Differences []string `json:"differences,omitempty"`
}

// StoryReport esito per una storia
type StoryReport struct {
	Name     string   `json:"name"`
	Passages int      `json:"passages"`
	Warnings []string `json:"warnings,omitempty"`
	HTML     Trip     `json:"html"`
	Twee     Trip     `json:"twee"`
}

// FileReport rappresenta il report salvato per ogni file
type FileReport struct {
	Filename  string        `json:"filename"`
	CheckedAt string        `json:"checked_at"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Stories   []StoryReport `json:"stories,omitempty"`
}

// Summary riassunto dell'esecuzione
type Summary struct {
	TotalFiles int           `json:"total_files"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Duration   string        `json:"duration"`
	Reports    []*FileReport `json:"reports"`
}

// NewRunner crea un nuovo runner
func NewRunner(cfg Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	// I warning dei codec finiscono nei report: sul logger bastano i riassunti
	cfg.Options.Logger = zap.NewNop()

	return &Runner{
		outDir: cfg.OutDir,
		app:    cfg.App,
		opts:   cfg.Options.Normalize(),
		logger: cfg.Logger.Named("roundtrip"),
	}
}

// Run controlla tutti i sorgenti sotto dir. Gli errori dei singoli file sono aggregati;
// il riassunto viene restituito comunque.
func (r *Runner) Run(dir string) (*Summary, error) {
	startTime := time.Now()

	files, err := findSources(dir)
	if err != nil {
		return nil, fmt.Errorf("impossibile leggere cartella %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("nessun file .twee, .tw o .html trovato in %s", dir)
	}

	summary := &Summary{TotalFiles: len(files)}
	r.logger.Info("file trovati", zap.Int("count", len(files)), zap.String("dir", dir))

	var errs error
	for _, path := range files {
		report, err := r.CheckFile(path)
		errs = multierr.Append(errs, err)

		if report.Success {
			summary.Passed++
			r.logger.Info("round trip OK", zap.String("file", report.Filename), zap.Int("stories", len(report.Stories)))
		} else {
			summary.Failed++
			r.logger.Warn("round trip fallito", zap.String("file", report.Filename), zap.String("error", report.Error))
		}
		summary.Reports = append(summary.Reports, report)

		// Salva JSON
		if err := r.saveJSON(r.reportPath(path), report); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("errore salvataggio report %s: %w", report.Filename, err))
		}
	}

	summary.Duration = time.Since(startTime).String()
	return summary, errs
}

// CheckFile esegue i due giri su ogni storia del file
func (r *Runner) CheckFile(path string) (*FileReport, error) {
	report := &FileReport{
		Filename:  filepath.Base(path),
		CheckedAt: time.Now().Format(time.RFC3339),
	}

	stories, warnings, err := r.load(path)
	if err != nil {
		report.Error = err.Error()
		return report, fmt.Errorf("%s: %w", report.Filename, err)
	}

	report.Success = true
	for i := range stories {
		s := &stories[i]
		sr := StoryReport{
			Name:     s.Name,
			Passages: len(s.Passages),
			HTML:     r.htmlTrip(s),
			Twee:     r.tweeTrip(s),
		}
		if i == 0 {
			for _, w := range warnings {
				sr.Warnings = append(sr.Warnings, w.String())
			}
		}
		if !sr.HTML.OK || !sr.Twee.OK {
			report.Success = false
		}
		report.Stories = append(report.Stories, sr)
	}
	if !report.Success {
		report.Error = "differenze dopo il round trip"
	}
	return report, nil
}

func (r *Runner) load(path string) ([]story.Story, []story.Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("errore apertura file: %w", err)
	}

	if isTwee(path) {
		res, err := twee.DecodeStory(string(data), r.opts)
		if err != nil {
			return nil, nil, err
		}
		return []story.Story{res.Story}, res.Warnings, nil
	}

	res, err := archive.DecodeStories(string(data), nil, r.opts)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Stories) == 0 {
		return nil, nil, fmt.Errorf("nessuna storia trovata")
	}
	return res.Stories, res.Warnings, nil
}

func (r *Runner) htmlTrip(s *story.Story) Trip {
	out, err := archive.EncodeStory(s, r.app, archive.EncodeOptions{StartOptional: true})
	if err != nil {
		return Trip{Error: err.Error()}
	}
	res, err := archive.DecodeStories(out, nil, r.opts)
	if err != nil {
		return Trip{Error: err.Error()}
	}
	if len(res.Stories) != 1 {
		return Trip{Error: fmt.Sprintf("attesa una storia, trovate %d", len(res.Stories))}
	}

	diffs := compare(s, &res.Stories[0], true)
	return Trip{OK: len(diffs) == 0, Differences: diffs}
}

func (r *Runner) tweeTrip(s *story.Story) Trip {
	out, err := twee.EncodeStory(s)
	if err != nil {
		return Trip{Error: err.Error()}
	}
	res, err := twee.DecodeStory(out, r.opts)
	if err != nil {
		return Trip{Error: err.Error()}
	}

	// Senza posizioni il decoder Twee ridispone i passaggi a griglia
	diffs := compare(s, &res.Story, !allAtOrigin(s))
	return Trip{OK: len(diffs) == 0, Differences: diffs}
}

// reportPath genera il path per il report di un file
func (r *Runner) reportPath(inputPath string) string {
	baseName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	dir := r.outDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	return filepath.Join(dir, baseName+"_roundtrip.json")
}

// saveJSON salva un oggetto come JSON
func (r *Runner) saveJSON(path string, data any) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, jsonData, 0644)
}

// findSources trova tutti i sorgenti nella cartella in ordine naturale (chapter2 prima di chapter10)
func findSources(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !d.IsDir() && (isTwee(path) || isHTML(path)) {
			files = append(files, path)
		}
		return nil
	})
	sort.SliceStable(files, func(i, j int) bool {
		return natural.Less(files[i], files[j])
	})
	return files, err
}

func isTwee(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".twee" || ext == ".tw"
}

func isHTML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}
