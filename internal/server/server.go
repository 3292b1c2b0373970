// Package server exposes face detection and character reading over HTTP.
package server

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"charvision/internal/capture"
	"charvision/internal/face"
	cvimage "charvision/internal/image"
	"charvision/internal/matcher"
	"charvision/internal/version"
	"charvision/pkg/geometry"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gocv.io/x/gocv"
)

// FaceDetector is satisfied by *face.Detector.
type FaceDetector interface {
	Detect(frame gocv.Mat) []face.Face
}

// CharReader is satisfied by *matcher.Matcher.
type CharReader interface {
	Read(frame gocv.Mat, display capture.Display) (matcher.Reading, error)
}

// ImageInput is the request body of the image endpoints.
type ImageInput struct {
	Payload string `json:"payload" binding:"required"`
}

// CharOutput is one recognised character.
type CharOutput struct {
	Char     string           `json:"char"`
	Rect     geometry.RectInt `json:"rect"`
	Distance float64          `json:"distance"`
}

// Server serialises access to the detectors; gocv classifiers are not
// goroutine-safe.
type Server struct {
	mu     sync.Mutex
	faces  FaceDetector
	chars  CharReader
	engine *gin.Engine
}

// New builds the router. Either component may be nil, in which case its
// endpoint answers 503.
func New(faces FaceDetector, chars CharReader) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{faces: faces, chars: chars, engine: gin.New()}

	s.engine.Use(gin.Logger(), gin.Recovery())
	s.engine.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "HEAD"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Content-Length", "X-Requested-With"},
		AllowCredentials: false,
		AllowAllOrigins:  true,
		MaxAge:           12 * time.Hour,
	}))

	s.engine.GET("/api/health", s.health)
	s.engine.POST("/api/detectFaces", s.detectFaces)
	s.engine.POST("/api/recognizeChars", s.recognizeChars)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Version,
		"faces":   s.faces != nil,
		"chars":   s.chars != nil,
	})
}

func (s *Server) detectFaces(c *gin.Context) {
	if s.faces == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "face detection is not configured"})
		return
	}
	frame, ok := decodeInput(c)
	if !ok {
		return
	}
	defer frame.Close()

	s.mu.Lock()
	faces := s.faces.Detect(frame)
	s.mu.Unlock()

	if faces == nil {
		faces = []face.Face{}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":         len(faces),
		"detectedFaces": faces,
	})
}

func (s *Server) recognizeChars(c *gin.Context) {
	if s.chars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "character reading is not configured"})
		return
	}
	frame, ok := decodeInput(c)
	if !ok {
		return
	}
	defer frame.Close()

	s.mu.Lock()
	r, err := s.chars.Read(frame, nil)
	s.mu.Unlock()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	chars := make([]CharOutput, 0, len(r.Chars))
	for _, ch := range r.Chars {
		chars = append(chars, CharOutput{Char: string(ch.Rune), Rect: geometry.FromImageRect(ch.Bounds), Distance: ch.Distance})
	}
	c.JSON(http.StatusOK, gin.H{
		"text":  r.Text,
		"chars": chars,
	})
}

// decodeInput binds the JSON body and decodes its image. On failure it
// writes the error response and returns false.
func decodeInput(c *gin.Context) (gocv.Mat, bool) {
	input := ImageInput{}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return gocv.Mat{}, false
	}
	data, err := base64.StdEncoding.DecodeString(input.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 payload: " + err.Error()})
		return gocv.Mat{}, false
	}
	frame, err := cvimage.DecodeMat(data)
	if err != nil {
		frame.Close()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return gocv.Mat{}, false
	}
	return frame, true
}
