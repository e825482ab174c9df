package ui

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"time"

	"kpijoin/adapters/excel"
	domainKPI "kpijoin/domain/kpi"
	"kpijoin/internal/dataset"
	"kpijoin/internal/errors"
	"kpijoin/internal/report"
	"kpijoin/models"
	"kpijoin/ui/middleware"

	"github.com/gin-gonic/gin"
)

const recordTimeout = 3 * time.Second

// joinForm is the body of POST /process_join
type joinForm struct {
	Columns  []string `form:"join_columns[]"`
	JoinType string   `form:"join_type"`
}

// analyzeForm is the body of POST /analyze_kpi
type analyzeForm struct {
	Dataset string `form:"dataset"`
}

// handleIndex serves the wizard page
func (s *Server) handleIndex(c *gin.Context) {
	s.renderTemplate(c, "index.html", gin.H{
		"MaxUploadMB": s.maxUpload >> 20,
		"PreviewRows": s.previewRows,
	})
}

// handleUploadDatasets parses file1 and file2 into the session's dataset pair
func (s *Server) handleUploadDatasets(c *gin.Context) {
	ws := middleware.Workspace(c)

	if c.Request.ContentLength > s.maxUpload {
		s.rejectOversized(c, s.maxUpload)
		return
	}

	headerA, errA := c.FormFile("file1")
	headerB, errB := c.FormFile("file2")
	if err := firstError(errA, errB); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.rejectOversized(c, tooLarge.Limit)
			return
		}
		s.respondError(c, "handleUploadDatasets", errors.MissingFiles())
		return
	}

	fileA, err := headerA.Open()
	if err != nil {
		s.respondError(c, "handleUploadDatasets", errors.Wrapf(err, "Could not open %s", headerA.Filename))
		return
	}
	defer fileA.Close()

	fileB, err := headerB.Open()
	if err != nil {
		s.respondError(c, "handleUploadDatasets", errors.Wrapf(err, "Could not open %s", headerB.Filename))
		return
	}
	defer fileB.Close()

	a, b, err := s.loader.LoadPair(c.Request.Context(),
		upload(headerA, fileA),
		upload(headerB, fileB))
	if err != nil {
		s.respondError(c, "handleUploadDatasets", err)
		return
	}

	ws.SetDatasets(a, b, headerA.Filename, headerB.Filename)
	log.Printf("[handleUploadDatasets] session %s: %s (%dx%d), %s (%dx%d)", ws.ID().Tag(),
		headerA.Filename, a.Len(), a.Width(), headerB.Filename, b.Len(), b.Width())

	c.JSON(http.StatusOK, dataset.Describe(a, b))
}

// handleProcessJoin joins the uploaded pair and returns the first preview rows
func (s *Server) handleProcessJoin(c *gin.Context) {
	ws := middleware.Workspace(c)

	var form joinForm
	if err := c.ShouldBind(&form); err != nil {
		s.respondError(c, "handleProcessJoin", errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "Invalid join request")))
		return
	}
	if len(form.Columns) == 0 {
		s.respondError(c, "handleProcessJoin", errors.NoJoinKeys())
		return
	}

	joinType := dataset.InnerJoin
	if form.JoinType != "" {
		parsed, err := dataset.ParseJoinType(form.JoinType)
		if err != nil {
			s.respondError(c, "handleProcessJoin", err)
			return
		}
		joinType = parsed
	}

	a, b, ok := ws.Datasets()
	if !ok {
		s.respondError(c, "handleProcessJoin", errors.DatasetNotSelected())
		return
	}

	joined, err := dataset.Join(a, b, form.Columns, joinType)
	if err != nil {
		s.respondError(c, "handleProcessJoin", err)
		return
	}
	ws.SetJoined(joined, form.Columns, string(joinType))

	c.JSON(http.StatusOK, gin.H{"joined_data": joined.Preview(s.previewRows)})
}

// handleAnalyzeKPI analyzes the selected table and remembers the result for export
func (s *Server) handleAnalyzeKPI(c *gin.Context) {
	ws := middleware.Workspace(c)

	var form analyzeForm
	if err := c.ShouldBind(&form); err != nil {
		s.respondError(c, "handleAnalyzeKPI", errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "Invalid analysis request")))
		return
	}

	source := domainKPI.Source(form.Dataset)
	t, err := ws.Resolve(source)
	if err != nil {
		s.respondError(c, "handleAnalyzeKPI", err)
		return
	}

	result, err := s.engine.Analyze(t)
	if err != nil {
		s.respondError(c, "handleAnalyzeKPI", err)
		return
	}
	result.Source = source
	ws.SetAnalysis(result)

	s.recordRun(c.Request.Context(), ws.ID().Tag(), result)

	c.JSON(http.StatusOK, gin.H{
		"kpis":       result.KPIs,
		"chart_data": result.ChartData(),
		"category":   result.Category(),
		"tips":       result.Tips,
	})
}

// handleExport streams the most recent analysis as an xlsx workbook
func (s *Server) handleExport(c *gin.Context) {
	ws := middleware.Workspace(c)

	last, ok := ws.LastAnalysis()
	if !ok {
		s.respondError(c, "handleExport", errors.NothingToExport())
		return
	}

	data, err := excel.ExportAnalysis(last)
	if err != nil {
		s.respondError(c, "handleExport", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.exportName))
	c.Data(http.StatusOK, excel.ContentType, data)
}

// handleReport renders the most recent analysis as an HTML page
func (s *Server) handleReport(c *gin.Context) {
	ws := middleware.Workspace(c)

	last, ok := ws.LastAnalysis()
	if !ok {
		s.respondError(c, "handleReport", errors.NothingToExport())
		return
	}

	page, err := report.HTML(last)
	if err != nil {
		s.respondError(c, "handleReport", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// handleSession describes the caller's workspace
func (s *Server) handleSession(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.Workspace(c).Summary())
}

// handleDatasetProfile returns column profiles of dataset1, dataset2 or joined
func (s *Server) handleDatasetProfile(c *gin.Context) {
	ws := middleware.Workspace(c)

	source := domainKPI.Source(c.Param("name"))
	if !source.Valid() {
		s.respondError(c, "handleDatasetProfile", errors.NotFound(fmt.Sprintf("dataset '%s'", source)))
		return
	}
	t, err := ws.Resolve(source)
	if err != nil {
		s.respondError(c, "handleDatasetProfile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"dataset": source,
		"rows":    t.Len(),
		"columns": s.profiler.ProfileTable(t),
	})
}

// recordRun appends the analysis to the run ledger. Failures are only logged.
func (s *Server) recordRun(ctx context.Context, sessionTag string, result *domainKPI.Result) {
	if s.runs == nil {
		return
	}
	run, err := models.NewAnalysisRun(sessionTag, result)
	if err != nil {
		log.Printf("[recordRun] FAILED - %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()
	if err := s.runs.Record(ctx, run); err != nil {
		log.Printf("[recordRun] FAILED - session %s: %v", sessionTag, err)
	}
}

// respondError logs err and answers with its public message and status
func (s *Server) respondError(c *gin.Context, op string, err error) {
	status := errors.HTTPStatus(err)
	log.Printf("[%s] FAILED - %d %s: %v", op, status, errors.GetCode(err), err)
	c.JSON(status, gin.H{"error": errors.PublicMessage(err)})
}

func (s *Server) rejectOversized(c *gin.Context, limit int64) {
	log.Printf("[handleUploadDatasets] FAILED - body exceeds %d bytes", limit)
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": fmt.Sprintf("Upload exceeds the %d MB limit", limit>>20),
	})
}

func upload(header *multipart.FileHeader, file multipart.File) dataset.Upload {
	return dataset.Upload{Filename: header.Filename, Reader: file}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
