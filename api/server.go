package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"twine-codec/compiler"
	"twine-codec/formats"
	"twine-codec/story"
	"twine-codec/watcher"
)

// Server rappresenta il server API
type Server struct {
	router        *gin.Engine
	compiler      *compiler.Compiler
	formats       *formats.Registry
	app           story.AppInfo
	storyOpts     story.Options
	logger        *zap.Logger
	watchDebounce time.Duration
	watcher       *watcher.FileWatcher
	watcherMutex  sync.Mutex
	wsClients     map[*websocket.Conn]struct{}
	wsMutex       sync.Mutex
	wsUpgrader    websocket.Upgrader
	port          int
}

// ServerConfig configurazione del server
type ServerConfig struct {
	Port          int
	Compiler      *compiler.Compiler
	Formats       *formats.Registry
	App           story.AppInfo
	StoryOptions  story.Options
	WatchDebounce time.Duration
	EnableCORS    bool
	Debug         bool
	Logger        *zap.Logger
}

// NewServer crea un nuovo server API
func NewServer(config ServerConfig) *Server {
	// Imposta modalità Gin
	if !config.Debug && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Formats == nil {
		config.Formats = formats.NewRegistry(config.Logger)
	}
	config.StoryOptions.Logger = config.Logger
	config.StoryOptions = config.StoryOptions.Normalize()

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(config.Logger))

	// CORS se abilitato
	if config.EnableCORS {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length"},
		}))
	}

	server := &Server{
		router:        router,
		compiler:      config.Compiler,
		formats:       config.Formats,
		app:           config.App,
		storyOpts:     config.StoryOptions,
		logger:        config.Logger.Named("api"),
		watchDebounce: config.WatchDebounce,
		wsClients:     make(map[*websocket.Conn]struct{}),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
		port: config.Port,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configura tutti gli endpoint
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		// Health check
		api.GET("/health", s.healthCheck)

		// Codec Twee
		api.POST("/twee/decode", s.decodeTwee)
		api.POST("/twee/encode", s.encodeTwee)

		// Codec HTML
		api.POST("/html/decode", s.decodeHTML)
		api.POST("/html/encode", s.encodeHTML)
		api.POST("/archive", s.encodeArchive)
		api.POST("/publish", s.publishStory)

		// Story su file
		api.POST("/story/compile", s.compileStory)

		// Watcher endpoints
		api.POST("/watch/start", s.startWatcher)
		api.POST("/watch/stop", s.stopWatcher)
		api.GET("/watch/status", s.getWatcherStatus)

		// Utils endpoints
		api.GET("/formats", s.getFormats)
		api.GET("/version", s.getVersion)
	}

	// WebSocket endpoint
	s.router.GET("/ws", s.handleWebSocket)
}

// Handler espone il router, utile per i test e per montare il server altrove
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start avvia il server e lo ferma in modo ordinato quando ctx viene cancellato
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server avviato",
			zap.String("api", "http://localhost"+addr+"/api"),
			zap.String("websocket", "ws://localhost"+addr+"/ws"))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.shutdownWatcher()
	s.closeClients()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("errore arresto server: %w", err)
	}
	s.logger.Info("server fermato")
	return nil
}

// requestLogger registra ogni richiesta sul logger zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Le connessioni WebSocket hanno i loro log di connessione e disconnessione
		if c.IsWebsocket() {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		logger.Debug("richiesta",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// ============================================
// Handlers
// ============================================

// healthCheck verifica lo stato del server
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.app.Version,
	})
}

// getVersion restituisce nome e versione dell'applicazione
func (s *Server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"name":    s.app.Name,
		"version": s.app.Version,
	})
}

// getFormats ottiene i formati disponibili (senza il sorgente del template)
func (s *Server) getFormats(c *gin.Context) {
	available := s.formats.Available()
	list := make([]gin.H, 0, len(available))
	for _, f := range available {
		list = append(list, gin.H{
			"name":        f.Name,
			"version":     f.Version,
			"description": f.Description,
			"author":      f.Author,
			"proofing":    f.Proofing,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"formats": list,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}

// unprocessable è la risposta per gli errori dei codec: richiesta valida, contenuto no
func unprocessable(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": err.Error()})
}
