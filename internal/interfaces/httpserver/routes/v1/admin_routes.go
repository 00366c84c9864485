package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/handlers"
	adminreq "github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/requests/admin"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/responses"
	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

// RegisterAdminRoutes registers operator routes. Everything except login
// goes through requireAdmin.
func RegisterAdminRoutes(router gin.IRouter, handler *handlers.AdminHandler, requireAdmin gin.HandlerFunc) {
	router.POST("/admin/login", login(handler))

	protected := router.Group("/admin")
	if requireAdmin != nil {
		protected.Use(requireAdmin)
	}
	protected.GET("/video-jobs", listVideoJobs(handler))
	protected.POST("/faces", uploadFaces(handler))
}

// login godoc
// @Summary      Operator login
// @Description  Exchanges operator credentials for an expiring bearer token
// @Tags         Admin API
// @Accept       json
// @Produce      json
// @Param        request body adminreq.LoginRequest true "Credentials"
// @Success      200 {object} auth.Token
// @Failure      400 {object} responses.ErrorResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      403 {object} responses.ErrorResponse
// @Router       /v1/admin/login [post]
func login(handler *handlers.AdminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req adminreq.LoginRequest
		if !bindJSON(c, &req) {
			return
		}
		token, err := handler.Login(&req)
		if err != nil {
			responses.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, token)
	}
}

// listVideoJobs godoc
// @Summary      List video jobs
// @Description  Pages through video generation jobs with optional status, stage, user and date filters
// @Tags         Admin API
// @Produce      json
// @Param        status query string false "Job status"
// @Param        failed_stage query string false "Failed stage"
// @Param        user_id query string false "User ID"
// @Param        start_date query string false "Start date (YYYY-MM-DD)"
// @Param        end_date query string false "End date (YYYY-MM-DD)"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size (10, 20, 50 or 100)"
// @Success      200 {object} jobs.Page
// @Failure      400 {object} responses.ErrorResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      502 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/admin/video-jobs [get]
func listVideoJobs(handler *handlers.AdminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q adminreq.ListJobsQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
			return
		}
		page, err := handler.ListJobs(c.Request.Context(), &q)
		if err != nil {
			responses.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// uploadFaces godoc
// @Summary      Upload a faces archive
// @Description  Streams a ZIP of face images to the recognition backend for indexing
// @Tags         Admin API
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "ZIP archive"
// @Success      200 {object} faces.Result
// @Failure      400 {object} responses.ErrorResponse
// @Failure      401 {object} responses.ErrorResponse
// @Failure      413 {object} responses.ErrorResponse
// @Failure      502 {object} responses.ErrorResponse
// @Security     BearerAuth
// @Router       /v1/admin/faces [post]
func uploadFaces(handler *handlers.AdminHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := handler.UploadFaces(c.Request.Context(), c.Request)
		if err != nil {
			responses.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
