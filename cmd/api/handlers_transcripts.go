package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/therealutkarshpriyadarshi/vidsum/internal/export"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/middleware"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/summary"
	"github.com/therealutkarshpriyadarshi/vidsum/internal/transcription"
	"github.com/therealutkarshpriyadarshi/vidsum/pkg/models"
)

type videoRequest struct {
	VideoURL string `json:"video_url"`
}

// videoURL reads video_url from the query string or a JSON body
func videoURL(c *gin.Context) (string, bool) {
	if v := c.Query("video_url"); v != "" {
		return v, true
	}

	var req videoRequest
	if !bindOptionalJSON(c, &req) {
		return "", false
	}
	if req.VideoURL == "" {
		missingFields(c)
		return "", false
	}
	return req.VideoURL, true
}

func (api *API) availability(c *gin.Context) (*models.Availability, bool) {
	url, ok := videoURL(c)
	if !ok {
		return nil, false
	}

	avail, err := api.transcripts.ListAvailability(c.Request.Context(), url, api.languages)
	if errors.Is(err, transcription.ErrInvalidVideoURL) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video URL"})
		return nil, false
	}
	if err != nil {
		api.log(c).WithError(err).Error("Failed to list transcripts")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Caption service failed"})
		return nil, false
	}
	return avail, true
}

// listTranscripts reports which languages can be transcribed
func (api *API) listTranscripts(c *gin.Context) {
	if avail, ok := api.availability(c); ok {
		c.JSON(http.StatusOK, avail.Available())
	}
}

// transcriptSources reports how each language would be sourced
func (api *API) transcriptSources(c *gin.Context) {
	if avail, ok := api.availability(c); ok {
		c.JSON(http.StatusOK, avail)
	}
}

type transcribeRequest struct {
	VideoURL string `json:"video_url"`
	Language string `json:"language"`
}

func (api *API) transcribe(c *gin.Context) {
	var req transcribeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.VideoURL == "" {
		missingFields(c)
		return
	}

	result, err := api.transcripts.Transcribe(c.Request.Context(), req.VideoURL, req.Language)
	switch {
	case errors.Is(err, transcription.ErrInvalidVideoURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video URL"})
	case errors.Is(err, transcription.ErrNoSpeechFallback):
		c.JSON(http.StatusNotFound, gin.H{"error": "No transcript available", "code": "no_transcript"})
	case err != nil:
		api.log(c).WithError(err).Error("Transcription failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Transcription failed"})
	default:
		c.JSON(http.StatusOK, result)
	}
}

type summaryRequest struct {
	VideoURL     string   `json:"video_url"`
	Languages    []string `json:"languages"`
	NumSentences int      `json:"num_sentences"`
}

func (api *API) summaryEnglish(c *gin.Context) {
	var req summaryRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	req.Languages = []string{"en"}
	api.summarize(c, req)
}

func (api *API) summaryAll(c *gin.Context) {
	var req summaryRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	if _, authed := middleware.GetUserID(c); !authed {
		if len(req.Languages) == 0 {
			req.Languages = []string{"en"}
		}
		for _, lang := range req.Languages {
			if lang != "en" {
				c.JSON(http.StatusUnauthorized, gin.H{
					"error": "Log in to summarize in languages other than English",
					"code":  "login_required",
				})
				return
			}
		}
	}

	api.summarize(c, req)
}

func (api *API) summarize(c *gin.Context, req summaryRequest) {
	if req.VideoURL == "" {
		missingFields(c)
		return
	}
	if req.NumSentences < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "num_sentences must be positive"})
		return
	}

	set, err := api.summaries.Summarize(c.Request.Context(), summary.Request{
		VideoURL:     req.VideoURL,
		Languages:    req.Languages,
		NumSentences: req.NumSentences,
	})
	switch {
	case errors.Is(err, transcription.ErrInvalidVideoURL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid video URL"})
	case errors.Is(err, summary.ErrLengthExceeded):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Video too long", "code": "length_exceeded"})
	case errors.Is(err, summary.ErrVideoLookup):
		api.log(c).WithError(err).Warn("Video lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not read video", "code": "video_lookup_failed"})
	case errors.Is(err, summary.ErrCatalogFault):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Caption service failed", "code": "caption_service_failed"})
	case err != nil:
		api.log(c).WithError(err).Error("Summary failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, set)
	}
}

type exportRequest struct {
	models.ExportDocument
	Format string `json:"format"`
}

func (api *API) exportSummary(c *gin.Context) {
	var req exportRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	format := models.ExportFormat(req.Format)
	if !format.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported format. Use docx, txt or html"})
		return
	}
	if req.Transcript == "" && req.Extractive == "" && req.Abstractive == "" {
		missingFields(c)
		return
	}
	if api.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Export is not available"})
		return
	}

	userID, _ := middleware.GetUserID(c)
	result, err := api.exporter.Export(c.Request.Context(), userID, req.ExportDocument, format)
	if err != nil {
		api.log(c).WithError(err).Error("Export failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Export failed"})
		return
	}

	if err := api.accounts.AddDownload(c.Request.Context(), userID, result.Filename); err != nil {
		api.log(c).WithError(err).Warn("Failed to record export in download history")
	}

	c.JSON(http.StatusOK, result)
}

func (api *API) listExports(c *gin.Context) {
	if api.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Export is not available"})
		return
	}

	userID, _ := middleware.GetUserID(c)
	exports, err := api.exporter.List(c.Request.Context(), userID)
	if err != nil {
		api.log(c).WithError(err).Error("Failed to list exports")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list exports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exports": exports})
}

func (api *API) deleteExport(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		missingFields(c)
		return
	}
	if api.exporter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Export is not available"})
		return
	}

	userID, _ := middleware.GetUserID(c)
	err := api.exporter.Delete(c.Request.Context(), userID, key)
	if errors.Is(err, export.ErrExportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Export not found"})
		return
	}
	if err != nil {
		api.log(c).WithError(err).Error("Failed to delete export")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to delete export"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Export deleted"})
}
