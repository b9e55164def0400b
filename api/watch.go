package api

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"twine-codec/compiler"
	"twine-codec/watcher"
)

// StartWatcherRequest richiesta avvio watcher
type StartWatcherRequest struct {
	Paths         []string `json:"paths" binding:"required,min=1"`
	Format        string   `json:"format"`
	FormatVersion string   `json:"format_version"`
	Output        string   `json:"output"`
	AutoCompile   bool     `json:"auto_compile"`
}

// startWatcher avvia il file watcher
func (s *Server) startWatcher(c *gin.Context) {
	var req StartWatcherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	if s.watcher != nil && s.watcher.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "watcher già in esecuzione"})
		return
	}
	if req.AutoCompile && s.compiler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "compiler non configurato"})
		return
	}

	fw, err := watcher.NewFileWatcher(watcher.WatcherConfig{
		Paths:    req.Paths,
		Compiler: s.compiler,
		CompileOpts: &compiler.CompileOptions{
			Format:        req.Format,
			FormatVersion: req.FormatVersion,
			Output:        req.Output,
		},
		DebounceTime: s.watchDebounce,
		AutoCompile:  req.AutoCompile,
		Logger:       s.logger,
	})
	if err != nil {
		badRequest(c, err)
		return
	}

	if err := fw.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	s.watcher = fw

	// Invia eventi ai client WebSocket
	go s.broadcastWatcherEvents(fw)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Watcher avviato",
		"paths":   req.Paths,
	})
}

// stopWatcher ferma il file watcher
func (s *Server) stopWatcher(c *gin.Context) {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	if s.watcher == nil || !s.watcher.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "watcher non in esecuzione"})
		return
	}

	if err := s.watcher.Stop(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	s.watcher = nil

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Watcher fermato",
	})
}

// getWatcherStatus ottiene lo stato del watcher
func (s *Server) getWatcherStatus(c *gin.Context) {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	status := watcher.Status{Paths: []string{}}
	if s.watcher != nil {
		status = s.watcher.Status()
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) shutdownWatcher() {
	s.watcherMutex.Lock()
	defer s.watcherMutex.Unlock()

	if s.watcher != nil && s.watcher.IsRunning() {
		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn("errore arresto watcher", zap.Error(err))
		}
	}
	s.watcher = nil
}

// ============================================
// WebSocket
// ============================================

// handleWebSocket gestisce connessioni WebSocket
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("errore upgrade WebSocket", zap.Error(err))
		return
	}

	s.wsMutex.Lock()
	s.wsClients[conn] = struct{}{}
	total := len(s.wsClients)
	s.wsMutex.Unlock()
	s.logger.Info("client WebSocket connesso", zap.Int("total", total))

	// Mantieni la connessione aperta finché il client non chiude
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.wsMutex.Lock()
	delete(s.wsClients, conn)
	s.logger.Info("client WebSocket disconnesso", zap.Int("total", len(s.wsClients)))
	s.wsMutex.Unlock()
	conn.Close()
}

// broadcastWatcherEvents invia gli eventi del watcher ai client WebSocket finché il canale resta aperto
func (s *Server) broadcastWatcherEvents(fw *watcher.FileWatcher) {
	for event := range fw.Events() {
		s.broadcast(gin.H{
			"type":      event.Type,
			"path":      filepath.Base(event.Path),
			"full_path": event.Path,
			"message":   event.Message,
			"timestamp": event.Timestamp,
		})
	}
}

func (s *Server) broadcast(message any) {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	for client := range s.wsClients {
		client.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := client.WriteJSON(message); err != nil {
			s.logger.Warn("errore invio WebSocket", zap.Error(err))
			client.Close()
			delete(s.wsClients, client)
		}
	}
}

func (s *Server) closeClients() {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()

	for client := range s.wsClients {
		client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server in arresto"),
			time.Now().Add(time.Second))
		client.Close()
		delete(s.wsClients, client)
	}
}
