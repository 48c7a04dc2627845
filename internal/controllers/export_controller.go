package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fareroute/internal/service"
)

// fareFileType marks downloads as CP866 text; the bytes are never UTF-8.
const fareFileType = "text/plain; charset=cp866"

type ExportController struct {
	exporter *service.Exporter
}

func NewExportController(exporter *service.Exporter) *ExportController {
	return &ExportController{exporter: exporter}
}

func (ec *ExportController) ExportRoute(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := routeID(c)
	if !ok {
		return
	}
	date, ok := exportDate(c, c.Query("date"))
	if !ok {
		return
	}

	file, err := ec.exporter.ExportRoute(c.Request.Context(), userID, id, date)
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, file)
}

type bulkExportInput struct {
	RouteIDs []uint                 `json:"route_ids" binding:"required,min=1"`
	Date     string                 `json:"date"`
	Header   service.HeaderOverride `json:"header"`
}

func (ec *ExportController) ExportBulk(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input bulkExportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, ok := exportDate(c, input.Date)
	if !ok {
		return
	}

	file, err := ec.exporter.ExportBatch(c.Request.Context(), userID, input.RouteIDs, date, input.Header)
	if err != nil {
		respondError(c, err)
		return
	}
	sendFile(c, file)
}

// exportDate parses an optional YYMMDD date; empty means today.
func exportDate(c *gin.Context, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	date, err := time.Parse("060102", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYMMDD"})
		return time.Time{}, false
	}
	return date, true
}

func sendFile(c *gin.Context, file service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, fareFileType, file.Content)
}
