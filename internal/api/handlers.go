package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-pgx-server/internal/domain"
	"github.com/pharmaguard-pgx-server/internal/history"
	"github.com/pharmaguard-pgx-server/internal/service"
)

// maxVCFBytes bounds the accepted VCF payload size
const maxVCFBytes = 10 << 20

// analyzeRequest is the POST /api/v1/analyze payload
type analyzeRequest struct {
	PatientID string   `json:"patient_id"`
	VCFText   string   `json:"vcf_text" binding:"required"`
	Drugs     []string `json:"drugs" binding:"required"`
}

// handleListDrugs returns the supported drug panel
func (s *Server) handleListDrugs(c *gin.Context) {
	drugs := service.SupportedDrugs()
	panel := make([]gin.H, 0, len(drugs))
	for _, drug := range drugs {
		panel = append(panel, gin.H{
			"drug":         drug,
			"primary_gene": service.PrimaryGene(drug),
		})
	}
	c.JSON(http.StatusOK, gin.H{"drugs": panel, "count": len(panel)})
}

// handleListGenes returns the target pharmacogene panel
func (s *Server) handleListGenes(c *gin.Context) {
	genes := make([]string, 0, len(service.TargetGenes))
	for gene := range service.TargetGenes {
		genes = append(genes, gene)
	}
	sort.Strings(genes)
	c.JSON(http.StatusOK, gin.H{"genes": genes, "count": len(genes)})
}

// handleSampleVCF serves the bundled demonstration VCF
func (s *Server) handleSampleVCF(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(service.SampleVCF()))
}

// handleAnalyze runs one complete analysis and persists it
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrValidation,
			"Invalid request body", err.Error())
		return
	}

	if strings.TrimSpace(req.VCFText) == "" {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrValidation,
			"vcf_text must not be empty", "")
		return
	}
	if len(req.VCFText) > maxVCFBytes {
		s.abortWithError(c, http.StatusRequestEntityTooLarge, domain.ErrInvalidInput,
			"VCF payload too large", "maximum size is 10MB")
		return
	}
	if len(req.Drugs) == 0 {
		s.abortWithError(c, http.StatusBadRequest, domain.ErrValidation,
			"at least one drug is required", "")
		return
	}

	result := s.analyzer.Analyze(c.Request.Context(), &domain.AnalysisRequest{
		PatientID: req.PatientID,
		VCFText:   req.VCFText,
		Drugs:     req.Drugs,
	})

	if err := s.store.Save(c.Request.Context(), result); err != nil {
		// Persistence failure must not lose the computed result.
		s.logger.WithFields(logrus.Fields{
			"analysis_id": result.ID,
			"error":       err.Error(),
		}).Error("Failed to persist analysis")
	}

	c.JSON(http.StatusOK, result)
}

// handleGetAnalysis retrieves one stored analysis by ID
func (s *Server) handleGetAnalysis(c *gin.Context) {
	id := c.Param("id")

	record, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrDatabaseError,
			"Failed to load analysis", err.Error())
		return
	}
	if record == nil {
		s.abortWithError(c, http.StatusNotFound, domain.ErrNotFound,
			"Analysis not found", id)
		return
	}

	c.JSON(http.StatusOK, record)
}

// handleListAnalyses lists stored analyses, optionally filtered by patient
func (s *Server) handleListAnalyses(c *gin.Context) {
	limit := parseIntParam(c, "limit", 20)
	offset := parseIntParam(c, "offset", 0)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var (
		records []*history.Record
		err     error
	)
	if patientID := c.Query("patient_id"); patientID != "" {
		records, err = s.store.ListByPatient(c.Request.Context(), patientID, limit, offset)
	} else {
		records, err = s.store.List(c.Request.Context(), limit, offset)
	}
	if err != nil {
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrDatabaseError,
			"Failed to list analyses", err.Error())
		return
	}

	if records == nil {
		records = []*history.Record{}
	}
	c.JSON(http.StatusOK, gin.H{
		"analyses": records,
		"count":    len(records),
		"limit":    limit,
		"offset":   offset,
	})
}

// handleDeleteAnalysis removes a stored analysis
func (s *Server) handleDeleteAnalysis(c *gin.Context) {
	id := c.Param("id")

	record, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrDatabaseError,
			"Failed to load analysis", err.Error())
		return
	}
	if record == nil {
		s.abortWithError(c, http.StatusNotFound, domain.ErrNotFound,
			"Analysis not found", id)
		return
	}

	if err := s.store.Delete(c.Request.Context(), id); err != nil {
		s.abortWithError(c, http.StatusInternalServerError, domain.ErrDatabaseError,
			"Failed to delete analysis", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// parseIntParam reads an integer query parameter with a default
func parseIntParam(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
