package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/handlers"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/responses"
)

// RegisterVideoRoutes registers the public video lookup route.
func RegisterVideoRoutes(router gin.IRoutes, handler *handlers.VideoHandler) {
	router.GET("/videos/:id", getVideo(handler))
}

// getVideo godoc
// @Summary      Look up a personalised video
// @Description  Resolves an ADA number or a 10-digit mobile number to the video URL
// @Tags         Video API
// @Produce      json
// @Param        id path string true "ADA number or mobile number"
// @Success      200 {object} videos.Video
// @Failure      400 {object} responses.ErrorResponse
// @Failure      404 {object} responses.ErrorResponse
// @Failure      503 {object} responses.ErrorResponse
// @Router       /v1/videos/{id} [get]
func getVideo(handler *handlers.VideoHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		video, err := handler.Lookup(c.Request.Context(), c.Param("id"))
		if err != nil {
			responses.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, video)
	}
}
