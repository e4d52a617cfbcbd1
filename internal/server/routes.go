package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docsheet/constants"
	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/workspace"
)

type API struct {
	ws     *workspace.Service
	cfg    common.ServerConfig
	logger *slog.Logger
}

func NewAPI(ws *workspace.Service, cfg common.ServerConfig, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{ws: ws, cfg: cfg, logger: logger}
}

func registerRoutes(r *gin.Engine, api *API) {
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)

		apiGroup.GET("/results", api.handleListResults)
		apiGroup.POST("/results", api.handleUpload)
		apiGroup.GET("/results/:id", api.handleGetResult)
		apiGroup.GET("/results/:id/image", api.handleGetImage)
		apiGroup.PATCH("/results/:id", api.handleRenameResult)
		apiGroup.POST("/results/:id/select", api.handleSelectResult)
		apiGroup.DELETE("/results/:id", api.handleCloseResult)

		apiGroup.PUT("/results/:id/data", api.handleReplaceData)
		apiGroup.POST("/results/:id/fields", api.handleAddField)
		apiGroup.PUT("/results/:id/fields/:idx", api.handleSetField)
		apiGroup.DELETE("/results/:id/fields/:idx", api.handleRemoveField)
		apiGroup.POST("/results/:id/tables", api.handleAddTable)
		apiGroup.POST("/results/:id/tables/:t/rows", api.handleAddRow)
		apiGroup.PUT("/results/:id/tables/:t/rows/:r/cells/:c", api.handleSetCell)
		apiGroup.DELETE("/results/:id/tables/:t/rows/:r", api.handleRemoveRow)

		apiGroup.GET("/results/:id/export.csv", api.handleExportCSV)
		apiGroup.GET("/results/:id/export.txt", api.handleExportText)
		apiGroup.GET("/results/:id/export.xlsx", api.handleExportXLSX)
		apiGroup.GET("/results/:id/export.pdf", api.handleExportPDF)
		apiGroup.POST("/results/:id/sync", api.handleSync)

		apiGroup.GET("/settings", api.handleGetSettings)
		apiGroup.PUT("/settings", api.handleUpdateSettings)

		apiGroup.GET("/auth/start", api.handleAuthStart)
		apiGroup.GET("/auth/callback", api.handleAuthCallback)
		apiGroup.GET("/auth/status", api.handleAuthStatus)
		apiGroup.DELETE("/auth", api.handleSignOut)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleListResults(c *gin.Context) {
	results, active := a.ws.List()
	c.JSON(http.StatusOK, gin.H{"results": results, "active_id": active})
}

func (a *API) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "missing image file")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondMessage(c, http.StatusBadRequest, "unable to read upload")
		return
	}
	defer f.Close()

	image, err := io.ReadAll(f)
	if err != nil {
		respondMessage(c, http.StatusRequestEntityTooLarge, "image too large")
		return
	}

	mimeType := detectMIME(fileHeader.Header.Get("Content-Type"), fileHeader.Filename, image)
	id, err := a.ws.Upload(c.Request.Context(), image, mimeType, fileHeader.Filename)
	if err != nil && id == "" {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id})
}

// detectMIME prefers the declared type, then the file extension, then
// content sniffing.
func detectMIME(declared, filename string, image []byte) string {
	if constants.IsSupportedImage(declared) {
		return declared
	}
	if m := constants.MIMEForExt(filepath.Ext(filename)); m != "" {
		return m
	}
	return http.DetectContentType(image)
}

func (a *API) handleGetResult(c *gin.Context) {
	r, err := a.ws.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (a *API) handleGetImage(c *gin.Context) {
	r, err := a.ws.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, r.MIMEType, r.Image)
}

func (a *API) handleRenameResult(c *gin.Context) {
	var payload struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	r, err := a.ws.Rename(c.Param("id"), payload.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (a *API) handleSelectResult(c *gin.Context) {
	if err := a.ws.Select(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleCloseResult(c *gin.Context) {
	if err := a.ws.Close(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleExportCSV(c *gin.Context) {
	r, err := a.ws.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	body, err := a.ws.CSV(r.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, r.Name, "csv")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(body))
}

func (a *API) handleExportText(c *gin.Context) {
	body, err := a.ws.ClipboardText(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(body))
}

func (a *API) handleExportXLSX(c *gin.Context) {
	r, err := a.ws.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	body, err := a.ws.XLSX(r.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, r.Name, "xlsx")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", body)
}

func (a *API) handleExportPDF(c *gin.Context) {
	r, err := a.ws.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	body, err := a.ws.PDF(r.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, r.Name, "pdf")
	c.Data(http.StatusOK, "application/pdf", body)
}

func (a *API) handleSync(c *gin.Context) {
	var payload struct {
		SheetName string `json:"sheetName"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			respondMessage(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	report, err := a.ws.Export(c.Request.Context(), c.Param("id"), payload.SheetName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *API) handleGetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, a.ws.Settings())
}

func (a *API) handleUpdateSettings(c *gin.Context) {
	var payload workspace.SheetConfig
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := a.ws.UpdateSettings(payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func attachment(c *gin.Context, name, ext string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", safeFilename(name)+"."+ext))
}

func safeFilename(name string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, name)
	if out == "" {
		return "extraction"
	}
	return out
}
