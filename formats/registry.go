package formats

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

// ErrFormatNotFound nessun formato registrato corrisponde alla richiesta
var ErrFormatNotFound = errors.New("formato non registrato")

// Registry mantiene i formati disponibili, indicizzati per nome (case-insensitive) e versione
type Registry struct {
	mu      sync.RWMutex
	formats map[string]map[string]*Format
	logger  *zap.Logger
}

// NewRegistry crea un registry vuoto
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		formats: make(map[string]map[string]*Format),
		logger:  logger,
	}
}

// Register registra un formato; una versione già presente viene sostituita
func (r *Registry) Register(f *Format) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(f.Name)
	if r.formats[key] == nil {
		r.formats[key] = make(map[string]*Format)
	}
	r.formats[key][f.Version] = f
	r.logger.Debug("formato registrato", zap.String("name", f.Name), zap.String("version", f.Version))
}

// Lookup restituisce la versione esatta se registrata, altrimenti la più recente con la stessa
// major. Con version vuota restituisce la più recente in assoluto.
func (r *Registry) Lookup(name, version string) (*Format, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.formats[strings.ToLower(name)]
	if !ok || len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFormatNotFound, name)
	}
	if f, ok := versions[version]; ok {
		return f, nil
	}

	major := ""
	if version != "" {
		major = semver.Major(canonical(version))
		if major == "" {
			return nil, fmt.Errorf("%w: %s %s (versione non valida)", ErrFormatNotFound, name, version)
		}
	}

	var best *Format
	for v, f := range versions {
		cv := canonical(v)
		if !semver.IsValid(cv) {
			continue
		}
		if major != "" && semver.Major(cv) != major {
			continue
		}
		if best == nil || semver.Compare(cv, canonical(best.Version)) > 0 {
			best = f
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: %s %s", ErrFormatNotFound, name, version)
	}
	return best, nil
}

// Available restituisce tutti i formati registrati ordinati per nome e versione
func (r *Registry) Available() []*Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := []*Format{}
	for _, versions := range r.formats {
		for _, f := range versions {
			list = append(list, f)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !strings.EqualFold(list[i].Name, list[j].Name) {
			return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
		}
		return semver.Compare(canonical(list[i].Version), canonical(list[j].Version)) < 0
	})
	return list
}

// IsRegistered verifica se esiste almeno una versione del formato
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.formats[strings.ToLower(name)]) > 0
}

// LoadDir registra ogni <dir>/*/format.js. Gli errori dei singoli file vengono aggregati
// ma non impediscono di caricare gli altri.
func (r *Registry) LoadDir(dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*", "format.js"))
	if err != nil {
		return 0, fmt.Errorf("errore ricerca formati: %w", err)
	}

	loaded := 0
	var errs error
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("errore lettura %s: %w", path, err))
			continue
		}
		f, err := ParseFormatJS(data)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		f.Path = path
		r.Register(f)
		loaded++
	}

	r.logger.Info("formati caricati", zap.String("dir", dir), zap.Int("count", loaded))
	return loaded, errs
}

// canonical porta una versione nella forma richiesta da x/mod/semver
func canonical(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}
