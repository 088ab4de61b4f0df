package apihttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"vonfrey/internal/logger"
	"vonfrey/internal/report"
	"vonfrey/internal/service"
	"vonfrey/internal/store"
	"vonfrey/internal/threshold"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const maxListLimit = 500

// Router 暴露计算与报告查询接口。
type Router struct {
	calc      *service.Calculator
	export    report.Options
	listLimit int
	estimate  *jsonschema.Schema
}

// NewRouter 构造 /api 路由。export 为导出时的默认格式、语言与 BOM。
func NewRouter(calc *service.Calculator, export report.Options, listLimit int) (*Router, error) {
	schema, err := compileSchema("estimate.json", estimateSchema)
	if err != nil {
		return nil, fmt.Errorf("compile estimate schema: %w", err)
	}
	return &Router{calc: calc, export: export, listLimit: listLimit, estimate: schema}, nil
}

// Register 将路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/fibers", r.handleFibers)
	group.POST("/estimate", r.handleEstimate)
	group.GET("/reports", r.handleListReports)
	group.GET("/reports/:id", r.handleReportByID)
	group.GET("/reports/:id/export", r.handleExportReport)
}

func (r *Router) handleFibers(c *gin.Context) {
	c.JSON(http.StatusOK, r.calc.Fibers())
}

// handleEstimate 计算一批序列。带 format 参数时直接返回导出文件。
func (r *Router) handleEstimate(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := validateBody(r.estimate, raw); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var req EstimateRequest
	if err := binding.JSON.BindBody(raw, &req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	lines := append(threshold.SplitLines(req.Sequences), req.Lines...)
	if len(lines) == 0 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "no sequences provided"})
		return
	}
	opts, ok := r.exportOptions(c)
	if !ok {
		return
	}
	rep, err := r.calc.Calculate(c.Request.Context(), service.Request{
		MinWeight:    req.MinWeight,
		MaxWeight:    req.MaxWeight,
		Sequences:    lines,
		DeltaMode:    req.DeltaMode,
		TerminalMode: req.TerminalMode,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	saved := false
	if req.Save {
		if err := r.calc.Save(c.Request.Context(), rep); err != nil {
			writeError(c, err)
			return
		}
		saved = true
	}
	if c.Query("format") != "" {
		r.writeExport(c, rep, opts)
		return
	}
	c.JSON(http.StatusOK, EstimateResponse{Report: rep, Saved: saved})
}

func (r *Router) handleListReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if limit <= 0 {
		limit = r.listLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	list, err := r.calc.Reports(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": list, "limit": limit})
}

func (r *Router) handleReportByID(c *gin.Context) {
	rep, ok := r.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (r *Router) handleExportReport(c *gin.Context) {
	opts, ok := r.exportOptions(c)
	if !ok {
		return
	}
	rep, ok := r.lookup(c)
	if !ok {
		return
	}
	r.writeExport(c, rep, opts)
}

func (r *Router) lookup(c *gin.Context) (*report.Report, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "missing report id"})
		return nil, false
	}
	rep, err := r.calc.Report(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return rep, true
}

// exportOptions 合并查询参数与默认导出配置。bom=0 可关闭 BOM。
func (r *Router) exportOptions(c *gin.Context) (report.Options, bool) {
	opts := r.export
	if raw := c.Query("format"); raw != "" {
		f, err := report.ParseFormat(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return opts, false
		}
		opts.Format = f
	}
	if raw := c.Query("lang"); raw != "" {
		opts.Language = report.ParseLanguage(raw)
	}
	if raw := c.Query("bom"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			opts.BOM = v
		}
	}
	return opts, true
}

func (r *Router) writeExport(c *gin.Context, rep *report.Report, opts report.Options) {
	var buf bytes.Buffer
	if err := report.Encode(&buf, rep, opts); err != nil {
		logger.Errorf("导出报告 %s 失败: %v", rep.ID, err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	format := opts.Format
	if format == "" {
		format = report.FormatCSV
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{
		"filename": report.Filename(opts.Language, format),
	})
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case threshold.IsRangeError(err):
		c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Kind: string(threshold.KindOf(err))})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrStoreDisabled):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "报告存储未启用"})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, errorResponse{Error: err.Error()})
	default:
		logger.Errorf("请求处理失败: %v", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
