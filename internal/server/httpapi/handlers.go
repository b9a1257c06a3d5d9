package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/dmitrijs2005/dropzone/internal/server/query"
	"github.com/dmitrijs2005/dropzone/internal/server/services"
	"github.com/gin-gonic/gin"
)

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.ready != nil {
		if err := s.ready(c.Request.Context()); err != nil {
			s.logger.Warn(c.Request.Context(), "not ready", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "BadRequest", "malformed token request")
		return
	}

	token, ttl, err := s.auth.IssueToken(c.Request.Context(), req.ClientID, []byte(req.ClientSecret))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(ttl.Seconds()),
	})
}

func (s *Server) resource(c *gin.Context) (query.Resource, bool) {
	res, err := query.ParsePath(c.Param("path"))
	if err != nil {
		s.fail(c, err)
		return query.Resource{}, false
	}
	return res, true
}

func (s *Server) handleGet(c *gin.Context) {
	res, ok := s.resource(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	switch {
	case res.IsDefinition():
		def, err := s.metadata.Definition(ctx, res.Definition)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, def)

	case res.Key == "":
		opts, err := query.Parse(c.Request.URL.Query())
		if err != nil {
			s.fail(c, err)
			return
		}
		rows, err := s.data.List(ctx, res.Set, opts)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"value": rows})

	case res.Attribute == "":
		opts, err := query.Parse(c.Request.URL.Query())
		if err != nil {
			s.fail(c, err)
			return
		}
		row, err := s.data.Get(ctx, res.Set, res.Key, opts.Select)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, row)

	default:
		meta, content, err := s.data.Download(ctx, res.Set, res.Key, res.Attribute)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.FileName))
		c.Header(common.FileNameHeaderName, meta.FileName)
		c.Data(http.StatusOK, meta.ContentType, content)
	}
}

func (s *Server) handleCreate(c *gin.Context) {
	res, ok := s.resource(c)
	if !ok {
		return
	}
	if res.IsDefinition() || res.Key != "" {
		abortWithError(c, http.StatusMethodNotAllowed, "MethodNotAllowed", "records are created on the entity set")
		return
	}

	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		abortWithError(c, http.StatusBadRequest, "BadRequest", "malformed record payload")
		return
	}

	id, err := s.data.Create(c.Request.Context(), res.Set, body)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("OData-EntityId", fmt.Sprintf("/api/data/%s(%s)", res.Set, id))
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handlePatch(c *gin.Context) {
	res, ok := s.resource(c)
	if !ok {
		return
	}
	if res.IsDefinition() || res.Attribute == "" {
		abortWithError(c, http.StatusMethodNotAllowed, "MethodNotAllowed", "only file attributes can be patched")
		return
	}

	body := c.Request.Body
	if s.maxUploadSize > 0 {
		if c.Request.ContentLength > s.maxUploadSize {
			abortWithError(c, http.StatusRequestEntityTooLarge, "PayloadTooLarge",
				"content length "+strconv.FormatInt(c.Request.ContentLength, 10)+" exceeds limit")
			return
		}
		body = http.MaxBytesReader(c.Writer, body, s.maxUploadSize)
	}
	content, err := io.ReadAll(body)
	if err != nil {
		s.fail(c, err)
		return
	}

	contentType := strings.TrimSpace(strings.Split(c.GetHeader("Content-Type"), ";")[0])
	up := services.Upload{
		FileName:    c.GetHeader(common.FileNameHeaderName),
		ContentType: contentType,
		Content:     content,
	}
	if err := s.data.UploadFile(c.Request.Context(), res.Set, res.Key, res.Attribute, up); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDelete(c *gin.Context) {
	res, ok := s.resource(c)
	if !ok {
		return
	}
	if res.IsDefinition() || res.Key == "" || res.Attribute != "" {
		abortWithError(c, http.StatusMethodNotAllowed, "MethodNotAllowed", "delete addresses a single record")
		return
	}

	if err := s.data.Delete(c.Request.Context(), res.Set, res.Key); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
