package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailsync/interfaces"
	"github.com/customeros/mailsync/internal/tracing"
)

// LatestReport returns the last stored diagnostic report of a user.
func LatestReport(diagnosticsService interfaces.DiagnosticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "DiagnosticsHandler.LatestReport")
		defer span.Finish()
		tracing.TagComponentRest(span)

		report, err := diagnosticsService.LatestReport(ctx, c.Param("userId"))
		if err != nil {
			tracing.TraceErr(span, err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// AccountHealth evaluates the sync health of a user's folders.
func AccountHealth(diagnosticsService interfaces.DiagnosticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "DiagnosticsHandler.AccountHealth")
		defer span.Finish()
		tracing.TagComponentRest(span)

		health, err := diagnosticsService.AccountHealth(ctx, c.Param("userId"))
		if err != nil {
			tracing.TraceErr(span, err)
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, health)
	}
}
