package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/litelog/internal/decoder"
	"github.com/danmuck/litelog/internal/entry"
	"github.com/danmuck/litelog/internal/header"
	"github.com/danmuck/litelog/internal/observability"
	"github.com/danmuck/litelog/internal/protocol/schema"
	"github.com/danmuck/litelog/internal/source"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// MaxBodyBytes caps a posted log stream.
const MaxBodyBytes = 64 << 20

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"service": nodeName,
			"schemas": s.defs.Schemas.Len(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/schema", func(c *gin.Context) {
		c.JSON(http.StatusOK, describe(s.defs))
	})

	if s.guard != nil {
		s.router.POST("/decode", s.guard, s.handleDecode)
	} else {
		s.router.POST("/decode", s.handleDecode)
	}
}

type decodeResponse struct {
	Count   int           `json:"count"`
	Entries []entry.Entry `json:"entries"`
	Abort   *abortInfo    `json:"abort,omitempty"`
}

type abortInfo struct {
	Reason string `json:"reason"`
	Offset int64  `json:"offset"`
	Error  string `json:"error"`
}

// handleDecode answers with whatever decoded before an abort; a truncated
// stream is still a 200.
func (s *Server) handleDecode(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	in, err := source.Wrap(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer in.Close()

	entries, err := decoder.DecodeAll(in, s.defs, s.opts)
	resp := decodeResponse{Count: len(entries), Entries: entries}
	if resp.Entries == nil {
		resp.Entries = []entry.Entry{}
	}
	c.Set(observability.CtxEntries, len(entries))

	var abort *decoder.AbortError
	switch {
	case err == nil:
	case errors.As(err, &abort):
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		resp.Abort = &abortInfo{Reason: abort.Reason(), Offset: abort.Offset, Error: abort.Err.Error()}
		c.Set(observability.CtxAbort, abort.Reason())
	default:
		log.Error().Err(err).Msg("server: decode failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type schemaDoc struct {
	Levels      map[int]string `json:"levels"`
	Types       map[int]string `json:"types"`
	Records     []recordDoc    `json:"records"`
	Diagnostics []string       `json:"diagnostics"`
}

type recordDoc struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Size     int        `json:"size"`
	Layout   string     `json:"layout"`
	Explicit bool       `json:"explicit"`
	Fields   []fieldDoc `json:"fields"`
}

type fieldDoc struct {
	Name     string `json:"name"`
	Encoding string `json:"encoding"`
	Len      int    `json:"len,omitempty"`
}

func describe(defs *header.Definitions) schemaDoc {
	doc := schemaDoc{
		Levels:      map[int]string(defs.Levels),
		Types:       map[int]string(defs.Types),
		Records:     []recordDoc{},
		Diagnostics: make([]string, 0, len(defs.Diagnostics)),
	}
	if doc.Levels == nil {
		doc.Levels = map[int]string{}
	}
	if doc.Types == nil {
		doc.Types = map[int]string{}
	}
	for _, r := range defs.Schemas.Records() {
		doc.Records = append(doc.Records, recordDocFor(r))
	}
	for _, d := range defs.Diagnostics {
		doc.Diagnostics = append(doc.Diagnostics, d.String())
	}
	return doc
}

func recordDocFor(r schema.Record) recordDoc {
	out := recordDoc{
		ID:       r.ID,
		Name:     r.Name,
		Size:     r.Size(),
		Layout:   r.Layout(),
		Explicit: r.Explicit,
		Fields:   make([]fieldDoc, 0, len(r.Fields)),
	}
	for _, f := range r.Fields {
		out.Fields = append(out.Fields, fieldDoc{Name: f.Name, Encoding: f.Encoding.String(), Len: f.Len})
	}
	return out
}
