package watcher

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"twine-codec/compiler"
)

// Tipi di evento emessi dal watcher
const (
	EventCreated         = "created"
	EventModified        = "modified"
	EventDeleted         = "deleted"
	EventRenamed         = "renamed"
	EventValidationError = "validation_error"
	EventCompileError    = "compile_error"
	EventCompileSuccess  = "compile_success"
)

// FileWatcher monitora i sorgenti Twee e li ricompila quando cambiano
type FileWatcher struct {
	mu           sync.Mutex
	watcher      *fsnotify.Watcher
	watchedPaths []string
	compiler     *compiler.Compiler
	compileOpts  *compiler.CompileOptions
	autoCompile  bool
	debounceTime time.Duration
	onEvent      func(WatchEvent)
	logger       *zap.Logger
	timers       map[string]*time.Timer
	inflight     sync.WaitGroup
	eventChan    chan WatchEvent
	stopChan     chan struct{}
	done         chan struct{}
	isRunning    bool
	closed       bool
}

// WatchEvent rappresenta un evento del watcher
type WatchEvent struct {
	Type      string    `json:"type"`              // vedi le costanti Event*
	Path      string    `json:"path"`              // Path del file
	Message   string    `json:"message,omitempty"` // dettaglio per gli errori
	Timestamp time.Time `json:"timestamp"`
}

// WatcherConfig configurazione per il watcher
type WatcherConfig struct {
	Paths        []string                 // Path da monitorare
	Compiler     *compiler.Compiler       // Compiler da usare
	CompileOpts  *compiler.CompileOptions // Opzioni compilazione
	DebounceTime time.Duration            // Tempo di debounce (default: 500ms)
	OnEvent      func(WatchEvent)         // Callback per eventi
	AutoCompile  bool                     // Ricompila dopo creazione o modifica
	Logger       *zap.Logger
}

// Status stato corrente del watcher
type Status struct {
	Running bool     `json:"running"`
	Paths   []string `json:"paths"`
}

// NewFileWatcher crea un nuovo file watcher
func NewFileWatcher(config WatcherConfig) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("errore creazione watcher: %w", err)
	}

	// Default debounce time
	if config.DebounceTime == 0 {
		config.DebounceTime = 500 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.CompileOpts == nil {
		config.CompileOpts = &compiler.CompileOptions{}
	}

	fw := &FileWatcher{
		watcher:      watcher,
		compiler:     config.Compiler,
		compileOpts:  config.CompileOpts,
		autoCompile:  config.AutoCompile,
		debounceTime: config.DebounceTime,
		onEvent:      config.OnEvent,
		logger:       config.Logger.Named("watcher"),
		timers:       make(map[string]*time.Timer),
		eventChan:    make(chan WatchEvent, 100),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}

	// Aggiungi i path da monitorare
	for _, path := range config.Paths {
		if err := fw.AddPath(path); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return fw, nil
}

// Start avvia il file watcher
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return fmt.Errorf("watcher già chiuso")
	}
	if fw.isRunning {
		return fmt.Errorf("watcher già in esecuzione")
	}

	fw.isRunning = true
	fw.logger.Info("file watcher avviato", zap.Strings("paths", fw.watchedPaths))

	go fw.loop()
	return nil
}

func (fw *FileWatcher) loop() {
	defer close(fw.done)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handle(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("errore watcher", zap.Error(err))

		case <-fw.stopChan:
			fw.logger.Info("file watcher fermato")
			return
		}
	}
}

func (fw *FileWatcher) handle(event fsnotify.Event) {
	// Solo i sorgenti Twee: gli HTML prodotti finiscono spesso nella stessa cartella
	if !isTweeSource(event.Name) {
		return
	}

	// Determina tipo evento
	var eventType string
	switch {
	case event.Has(fsnotify.Create):
		eventType = EventCreated
	case event.Has(fsnotify.Write):
		eventType = EventModified
	case event.Has(fsnotify.Remove):
		eventType = EventDeleted
	case event.Has(fsnotify.Rename):
		eventType = EventRenamed
	default:
		return
	}

	fw.logger.Debug("file cambiato", zap.String("type", eventType), zap.String("file", filepath.Base(event.Name)))
	fw.emit(WatchEvent{Type: eventType, Path: event.Name, Timestamp: time.Now()})

	if eventType != EventCreated && eventType != EventModified {
		return
	}

	// Debounce per ricompilazione: gli editor scrivono spesso in più passi
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if timer, exists := fw.timers[event.Name]; exists {
		timer.Stop()
	}
	path := event.Name
	fw.timers[path] = time.AfterFunc(fw.debounceTime, func() {
		fw.mu.Lock()
		delete(fw.timers, path)
		if !fw.isRunning || !fw.autoCompile || fw.compiler == nil {
			fw.mu.Unlock()
			return
		}
		fw.inflight.Add(1)
		fw.mu.Unlock()

		defer fw.inflight.Done()
		fw.recompile(path)
	})
}

// Stop ferma il file watcher e chiude il canale degli eventi
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if !fw.isRunning {
		fw.mu.Unlock()
		return fmt.Errorf("watcher non in esecuzione")
	}
	fw.isRunning = false
	for path, timer := range fw.timers {
		timer.Stop()
		delete(fw.timers, path)
	}
	fw.mu.Unlock()

	close(fw.stopChan)
	<-fw.done
	fw.inflight.Wait()

	err := fw.watcher.Close()

	fw.mu.Lock()
	fw.closed = true
	close(fw.eventChan)
	fw.mu.Unlock()

	if err != nil {
		return fmt.Errorf("errore chiusura watcher: %w", err)
	}
	return nil
}

// Events restituisce il canale degli eventi
func (fw *FileWatcher) Events() <-chan WatchEvent {
	return fw.eventChan
}

// IsRunning verifica se il watcher è attivo
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.isRunning
}

// Status restituisce lo stato e una copia dei path monitorati
func (fw *FileWatcher) Status() Status {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return Status{Running: fw.isRunning, Paths: slices.Clone(fw.watchedPaths)}
}

// AddPath aggiunge un path da monitorare
func (fw *FileWatcher) AddPath(path string) error {
	if err := fw.watcher.Add(path); err != nil {
		return fmt.Errorf("errore aggiunta path %s: %w", path, err)
	}

	fw.mu.Lock()
	fw.watchedPaths = append(fw.watchedPaths, path)
	fw.mu.Unlock()

	fw.logger.Info("path monitorato", zap.String("path", path))
	return nil
}

// RemovePath rimuove un path dal monitoraggio
func (fw *FileWatcher) RemovePath(path string) error {
	if err := fw.watcher.Remove(path); err != nil {
		return fmt.Errorf("errore rimozione path: %w", err)
	}

	fw.mu.Lock()
	fw.watchedPaths = slices.DeleteFunc(fw.watchedPaths, func(p string) bool { return p == path })
	fw.mu.Unlock()

	fw.logger.Info("path non più monitorato", zap.String("path", path))
	return nil
}

// recompile valida e ricompila il file modificato
func (fw *FileWatcher) recompile(filePath string) {
	name := filepath.Base(filePath)
	fw.logger.Info("ricompilazione", zap.String("file", name))

	// Un errore di decodifica non blocca il watcher: diventa un evento
	_, warnings, err := fw.compiler.LoadStory(filePath, "")
	if err != nil {
		fw.logger.Warn("validazione fallita", zap.String("file", name), zap.Error(err))
		fw.emit(WatchEvent{Type: EventValidationError, Path: filePath, Message: err.Error(), Timestamp: time.Now()})
		return
	}
	for _, w := range warnings {
		fw.logger.Debug("warning", zap.String("file", name), zap.Stringer("warning", w))
	}

	start := time.Now()
	result, err := fw.compiler.Compile(filePath, fw.compileOpts)
	elapsed := time.Since(start)

	if err != nil {
		fw.logger.Error("compilazione fallita", zap.String("file", name), zap.Duration("elapsed", elapsed), zap.Error(err))
		fw.emit(WatchEvent{Type: EventCompileError, Path: filePath, Message: err.Error(), Timestamp: time.Now()})
		return
	}

	fw.logger.Info("compilato con successo",
		zap.String("file", name),
		zap.String("output", result.OutputFile),
		zap.Duration("elapsed", elapsed),
		zap.Int("warnings", len(result.Warnings)))
	fw.emit(WatchEvent{Type: EventCompileSuccess, Path: filePath, Message: result.OutputFile, Timestamp: time.Now()})
}

// emit notifica la callback e accoda l'evento senza mai bloccare
func (fw *FileWatcher) emit(ev WatchEvent) {
	if fw.onEvent != nil {
		fw.onEvent(ev)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.closed {
		return
	}
	select {
	case fw.eventChan <- ev:
	default:
		fw.logger.Warn("coda eventi piena, evento scartato", zap.String("type", ev.Type), zap.String("path", ev.Path))
	}
}

func isTweeSource(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".twee" || ext == ".tw"
}
