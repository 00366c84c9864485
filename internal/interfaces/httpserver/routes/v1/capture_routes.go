package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hivoco/lens-kiosk/internal/domain/capture"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/handlers"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/middlewares"
	capturereq "github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/requests/capture"
	"github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/responses"
	captureres "github.com/hivoco/lens-kiosk/internal/interfaces/httpserver/responses/capture"
	"github.com/hivoco/lens-kiosk/internal/utils/platformerrors"
)

// RegisterCaptureRoutes registers the capture session routes.
func RegisterCaptureRoutes(router gin.IRoutes, handler *handlers.CaptureHandler) {
	router.GET("/capture/profiles", listProfiles(handler))

	router.POST("/capture/sessions", createSession(handler))
	router.GET("/capture/sessions", listSessions(handler))
	router.GET("/capture/sessions/:id", getSession(handler))
	router.DELETE("/capture/sessions/:id", deleteSession(handler))

	// Acquisition
	router.POST("/capture/sessions/:id/file", chooseFile(handler))
	router.POST("/capture/sessions/:id/camera", openCamera(handler))
	router.POST("/capture/sessions/:id/camera/capture", captureFrame(handler))
	router.DELETE("/capture/sessions/:id/camera", cancelCamera(handler))
	router.POST("/capture/sessions/:id/retake", retake(handler))
	router.GET("/capture/sessions/:id/preview", preview(handler))

	// Submission
	router.PUT("/capture/sessions/:id/fields", setFields(handler))
	router.POST("/capture/sessions/:id/submit", submit(handler))
	router.DELETE("/capture/sessions/:id/submit", cancelSubmission(handler))
	router.POST("/capture/sessions/:id/reset", reset(handler))

	// OTP challenge
	router.POST("/capture/sessions/:id/otp/digits", enterDigit(handler))
	router.POST("/capture/sessions/:id/otp/paste", pasteCode(handler))
	router.POST("/capture/sessions/:id/otp/backspace", backspace(handler))
	router.POST("/capture/sessions/:id/otp/verify", verifyCode(handler))
	router.POST("/capture/sessions/:id/otp/resend", resendCode(handler))
	router.DELETE("/capture/sessions/:id/otp", abandonChallenge(handler))
}

// respondView writes the session, or the error together with the session
// state it left behind.
func respondView(c *gin.Context, status int, view *capture.View, err error) {
	if err != nil {
		responses.HandleSessionError(c, view, err)
		return
	}
	c.JSON(status, view)
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation, err.Error())
		return false
	}
	return true
}

// listProfiles godoc
// @Summary      List capture profiles
// @Description  Lists the configured capture profiles with their validation limits and required fields
// @Tags         Capture API
// @Produce      json
// @Success      200 {object} captureres.ListProfilesResponse
// @Router       /v1/capture/profiles [get]
func listProfiles(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, captureres.NewListProfilesResponse(handler.Profiles()))
	}
}

// createSession godoc
// @Summary      Create a capture session
// @Description  Starts a new photo attempt using the named profile
// @Tags         Capture API
// @Accept       json
// @Produce      json
// @Param        request body capturereq.CreateSessionRequest true "Profile selection"
// @Success      201 {object} capture.View
// @Failure      400 {object} responses.ErrorResponse
// @Router       /v1/capture/sessions [post]
func createSession(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req capturereq.CreateSessionRequest
		if !bindJSON(c, &req) {
			return
		}
		view, err := handler.Create(c.Request.Context(), &req)
		if err != nil {
			responses.HandleError(c, err)
			return
		}
		c.JSON(http.StatusCreated, view)
	}
}

// listSessions godoc
// @Summary      List capture sessions
// @Tags         Capture API
// @Produce      json
// @Success      200 {object} captureres.ListSessionsResponse
// @Router       /v1/capture/sessions [get]
func listSessions(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		views, err := handler.List(c.Request.Context())
		if err != nil {
			responses.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, captureres.NewListSessionsResponse(views))
	}
}

// getSession godoc
// @Summary      Get a capture session
// @Tags         Capture API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} capture.View
// @Failure      404 {object} responses.ErrorResponse
// @Router       /v1/capture/sessions/{id} [get]
func getSession(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := handler.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			responses.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	}
}

// deleteSession godoc
// @Summary      Delete a capture session
// @Description  Releases the camera, cancels any in-flight submission and forgets the session
// @Tags         Capture API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} captureres.DeleteSessionResponse
// @Failure      404 {object} responses.ErrorResponse
// @Router       /v1/capture/sessions/{id} [delete]
func deleteSession(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := handler.Delete(c.Request.Context(), id); err != nil {
			responses.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, captureres.NewDeleteSessionResponse(id))
	}
}

// chooseFile godoc
// @Summary      Choose a photo file
// @Description  Validates the uploaded image against the session profile and prepares the preview
// @Tags         Capture API
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        file formData file true "Image file"
// @Success      200 {object} capture.View
// @Failure      400 {object} responses.SessionErrorResponse
// @Failure      413 {object} responses.SessionErrorResponse
// @Failure      415 {object} responses.SessionErrorResponse
// @Failure      409 {object} responses.SessionErrorResponse
// @Router       /v1/capture/sessions/{id}/file [post]
func chooseFile(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, handlers.MaxImageUpload+1<<20)
		fh, err := c.FormFile("file")
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			size := c.Request.ContentLength
			if size <= tooBig.Limit {
				size = tooBig.Limit + 1
			}
			view, rerr := handler.RejectOversized(c.Request.Context(), c.Param("id"), size)
			respondView(c, http.StatusOK, view, rerr)
			return
		}
		if err != nil {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation, "Please select an image file")
			return
		}
		view, err := handler.ChooseFile(c.Request.Context(), c.Param("id"), fh)
		respondView(c, http.StatusOK, view, err)
	}
}

// openCamera godoc
// @Summary      Open the camera
// @Description  Opens the capture device. Requires a secure page context.
// @Tags         Capture API
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body capturereq.OpenCameraRequest false "Camera preference"
// @Success      200 {object} capture.View
// @Failure      403 {object} responses.SessionErrorResponse
// @Failure      409 {object} responses.SessionErrorResponse
// @Failure      503 {object} responses.SessionErrorResponse
// @Router       /v1/capture/sessions/{id}/camera [post]
func openCamera(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req capturereq.OpenCameraRequest
		if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
			return
		}
		view, err := handler.OpenCamera(c.Request.Context(), c.Param("id"), &req, middlewares.IsSecureContext(c))
		respondView(c, http.StatusOK, view, err)
	}
}

// captureFrame godoc
// @Summary      Capture a frame
// @Description  Grabs a still from the open camera, releases the device and validates the frame
// @Tags         Capture API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} capture.View
// @Failure      409 {object} responses.SessionErrorResponse
// @Router       /v1/capture/sessions/{id}/camera/capture [post]
func captureFrame(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := handler.Capture(c.Request.Context(), c.Param("id"))
		respondView(c, http.StatusOK, view, err)
	}
}

// cancelCamera godoc
// @Summary      Close the camera
// @Tags         Capture API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} capture.View
// @Failure      409 {object} responses.SessionErrorResponse
// @Router       /v1/capture/sessions/{id}/camera [delete]
func cancelCamera(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := handler.CancelCamera(c.Request.Context(), c.Param("id"))
		respondView(c, http.StatusOK, view, err)
	}
}

// retake godoc
// @Summary      Retake the photo
// @Description  Discards the current photo and reopens the camera
// @Tags         Capture API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} capture.View
// @Failure      409 {object} responses.SessionErrorResponse
// @Router       /v1/capture/sessions/{id}/retake [post]
func retake(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := handler.Retake(c.Request.Context(), c.Param("id"))
		respondView(c, http.StatusOK, view, err)
	}
}

// preview godoc
// @Summary      Get the preview image
// @Tags         Capture API
// @Produce      image/jpeg,image/png,image/webp
// @Param        id path string true "Session ID"
// @Success      200 {file} binary
// @Failure      404 {object} responses.ErrorResponse
// @Router       /v1/capture/sessions/{id}/preview [get]
func preview(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, mimeType, err := handler.Preview(c.Request.Context(), c.Param("id"))
		if err != nil {
			responses.HandleError(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, mimeType, data)
	}
}

// setFields godoc
// @Summary      Set companion fields
// @Description  Stores the form fields submitted alongside the photo
// @Tags         Capture API
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body capturereq.SetFieldsRequest true "Fields"
// @Success      200 {object} capture.View
// @Failure      400 {object} responses.SessionErrorResponse
// @Router       /v1/capture/sessions/{id}/fields [put]
func setFields(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req capturereq.SetFieldsRequest
		if !bindJSON(c, &req) {
			return
		}
		view, err := handler.SetFields(c.Request.Context(), c.Param("id"), &req)
		respondView(c, http.StatusOK, view, err)
	}
}

// submit godoc
// @Summary      Submit the photo
// @Description  Sends the photo to the profile backend. Returns 202 immediately unless wait=true.
// @Tags         Capture API
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        wait query bool false "Block until the submission settles"
// @Success      200 {object} capture.View
// @Success      202 {object} capture.View
// @Failure      400 {object} responses.SessionErrorResponse
// @Failure      409 {object} responses.SessionErrorResponse
// @Router       /v1/capture/sessions/{id}/submit [post]
func submit(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		wait, _ := strconv.ParseBool(c.Query("wait"))
		view, err := handler.Submit(c.Request.Context(), c.Param("id"), wait)
		status := http.StatusAccepted
		if wait {
			status = http.StatusOK
		}
		respondView(c, status, view, err)
	}
}

// cancelSubmission godoc
// @Summary      Cancel the submission
// @Description  Aborts the in-flight request and returns to the preview
// @Tags         Capture API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} capture.View
// @Failure      409 {object} responses.SessionErrorResponse
// @Router       /v1/capture/sessions/{id}/submit [delete]
func cancelSubmission(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := handler.CancelSubmission(c.Request.Context(), c.Param("id"))
		respondView(c, http.StatusOK, view, err)
	}
}

// reset godoc
// @Summary      Reset the session
// @Description  Clears the photo, outcome and challenge and returns to idle
// @Tags         Capture API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} capture.View
// @Router       /v1/capture/sessions/{id}/reset [post]
func reset(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := handler.Reset(c.Request.Context(), c.Param("id"))
		respondView(c, http.StatusOK, view, err)
	}
}

// enterDigit godoc
// @Summary      Enter an OTP digit
// @Tags         Capture API
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body capturereq.DigitRequest true "Slot and digit"
// @Success      200 {object} capture.View
// @Failure      400 {object} responses.SessionErrorResponse
// @Router       /v1/capture/sessions/{id}/otp/digits [post]
func enterDigit(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req capturereq.DigitRequest
		if !bindJSON(c, &req) {
			return
		}
		view, err := handler.EnterDigit(c.Request.Context(), c.Param("id"), &req)
		respondView(c, http.StatusOK, view, err)
	}
}

// pasteCode godoc
// @Summary      Paste an OTP
// @Tags         Capture API
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body capturereq.PasteRequest true "Pasted code"
// @Success      200 {object} capture.View
// @Failure      400 {object} responses.SessionErrorResponse
// @Router       /v1/capture/sessions/{id}/otp/paste [post]
func pasteCode(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req capturereq.PasteRequest
		if !bindJSON(c, &req) {
			return
		}
		view, err := handler.Paste(c.Request.Context(), c.Param("id"), &req)
		respondView(c, http.StatusOK, view, err)
	}
}

// backspace godoc
// @Summary      Delete an OTP digit
// @Tags         Capture API
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body capturereq.BackspaceRequest true "Focused slot"
// @Success      200 {object} capture.View
// @Router       /v1/capture/sessions/{id}/otp/backspace [post]
func backspace(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req capturereq.BackspaceRequest
		if !bindJSON(c, &req) {
			return
		}
		view, err := handler.Backspace(c.Request.Context(), c.Param("id"), &req)
		respondView(c, http.StatusOK, view, err)
	}
}

// verifyCode godoc
// @Summary      Verify the OTP
// @Description  Submits the six entered digits. A wrong code clears the inputs.
// @Tags         Capture API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} capture.View
// @Failure      400 {object} responses.SessionErrorResponse
// @Failure      409 {object} responses.SessionErrorResponse
// @Failure      502 {object} responses.SessionErrorResponse
// @Router       /v1/capture/sessions/{id}/otp/verify [post]
func verifyCode(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := handler.Verify(c.Request.Context(), c.Param("id"))
		respondView(c, http.StatusOK, view, err)
	}
}

// resendCode godoc
// @Summary      Resend the OTP
// @Tags         Capture API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} capture.View
// @Failure      502 {object} responses.SessionErrorResponse
// @Router       /v1/capture/sessions/{id}/otp/resend [post]
func resendCode(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := handler.Resend(c.Request.Context(), c.Param("id"))
		respondView(c, http.StatusOK, view, err)
	}
}

// abandonChallenge godoc
// @Summary      Abandon the OTP challenge
// @Tags         Capture API
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} capture.View
// @Router       /v1/capture/sessions/{id}/otp [delete]
func abandonChallenge(handler *handlers.CaptureHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := handler.AbandonChallenge(c.Request.Context(), c.Param("id"))
		respondView(c, http.StatusOK, view, err)
	}
}
