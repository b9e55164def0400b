package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"twine-codec/archive"
	"twine-codec/compiler"
	"twine-codec/formats"
	"twine-codec/story"
	"twine-codec/twee"
)

const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"
)

// decodeTwee decodifica un sorgente Twee passato come corpo della richiesta
func (s *Server) decodeTwee(c *gin.Context) {
	src, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}

	res, err := twee.DecodeStory(string(src), s.storyOpts)
	if err != nil {
		unprocessable(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"story":    res.Story,
		"warnings": warningsOrEmpty(res.Warnings),
	})
}

// encodeTwee serializza una storia JSON in Twee
func (s *Server) encodeTwee(c *gin.Context) {
	var st story.Story
	if err := c.ShouldBindJSON(&st); err != nil {
		badRequest(c, err)
		return
	}

	out, err := twee.EncodeStory(&st)
	if err != nil {
		unprocessable(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypeText, []byte(out))
}

// decodeHTML decodifica tutte le storie contenute nel corpo HTML
func (s *Server) decodeHTML(c *gin.Context) {
	src, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}

	res, err := archive.DecodeStories(string(src), nil, s.storyOpts)
	if err != nil {
		unprocessable(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"stories":  res.Stories,
		"count":    len(res.Stories),
		"warnings": warningsOrEmpty(res.Warnings),
	})
}

// encodeHTML serializza una storia JSON in un elemento tw-storydata
func (s *Server) encodeHTML(c *gin.Context) {
	var st story.Story
	if err := c.ShouldBindJSON(&st); err != nil {
		badRequest(c, err)
		return
	}

	opts := archive.EncodeOptions{}
	if v := c.Query("start_optional"); v != "" {
		optional, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, err)
			return
		}
		opts.StartOptional = optional
	}

	out, err := archive.EncodeStory(&st, s.app, opts)
	if err != nil {
		unprocessable(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, []byte(out))
}

// encodeArchive serializza una lista di storie in un archivio
func (s *Server) encodeArchive(c *gin.Context) {
	var stories []story.Story
	if err := c.ShouldBindJSON(&stories); err != nil {
		badRequest(c, err)
		return
	}

	out, err := archive.EncodeArchive(stories, s.app)
	if err != nil {
		unprocessable(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, []byte(out))
}

// PublishRequest richiesta di pubblicazione con un formato registrato
type PublishRequest struct {
	Story         *story.Story `json:"story" binding:"required"`
	Format        string       `json:"format"`
	FormatVersion string       `json:"format_version"`
	StartOptional bool         `json:"start_optional"`
}

// publishStory inserisce la storia nel template del formato richiesto
func (s *Server) publishStory(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	name, version := req.Format, req.FormatVersion
	if name == "" {
		name, version = req.Story.StoryFormat, req.Story.StoryFormatVersion
	}
	if name == "" {
		name, version = s.storyOpts.StoryFormat, s.storyOpts.StoryFormatVersion
	}

	format, err := s.formats.Lookup(name, version)
	if err != nil {
		if errors.Is(err, formats.ErrFormatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
			return
		}
		unprocessable(c, err)
		return
	}

	req.Story.StoryFormat = format.Name
	req.Story.StoryFormatVersion = format.Version
	out, err := archive.BindToFormat(req.Story, format.Source, s.app, archive.EncodeOptions{StartOptional: req.StartOptional})
	if err != nil {
		unprocessable(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, []byte(out))
}

// CompileStoryRequest richiesta di compilazione
type CompileStoryRequest struct {
	FilePath      string `json:"file_path" binding:"required"`
	Format        string `json:"format"`
	FormatVersion string `json:"format_version"`
	Output        string `json:"output"`
	StartNode     string `json:"start_node"`
	Story         string `json:"story"`
	StrictMode    bool   `json:"strict_mode"`
}

// compileStory compila un file .twee o .html
func (s *Server) compileStory(c *gin.Context) {
	var req CompileStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if s.compiler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "compiler non configurato"})
		return
	}

	result, err := s.compiler.Compile(req.FilePath, &compiler.CompileOptions{
		Format:        req.Format,
		FormatVersion: req.FormatVersion,
		Output:        req.Output,
		StartNode:     req.StartNode,
		StoryName:     req.Story,
		StrictMode:    req.StrictMode,
	})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

func warningsOrEmpty(w []story.Warning) []story.Warning {
	if w == nil {
		return []story.Warning{}
	}
	return w
}
