// Package admin contains HTTP request DTOs for operator endpoints.
package admin

// LoginRequest carries operator credentials.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ListJobsQuery filters the video job listing.
type ListJobsQuery struct {
	Status      string `form:"status"`
	FailedStage string `form:"failed_stage"`
	UserID      string `form:"user_id"`
	StartDate   string `form:"start_date"`
	EndDate     string `form:"end_date"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}
