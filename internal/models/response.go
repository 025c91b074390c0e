package models

import "time"

type SubmitResponse struct {
	Success   bool   `json:"success"`
	RequestID string `json:"requestId"`
	Message   string `json:"message,omitempty"`
}

type StatusResponse struct {
	Status      string    `json:"status"`
	ResultImage *string   `json:"resultImage"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type AnalyticsResponse struct {
	TotalRequests     int64          `json:"total_requests"`
	CompletedRequests int64          `json:"completed_requests"`
	FailedRequests    int64          `json:"failed_requests"`
	SuccessRate       float64        `json:"success_rate"`
	RecentRequests    []TryOnRequest `json:"recent_requests"`
	TopProducts       []ProductCount `json:"top_products"`
}

type ProductCount struct {
	ProductID    string `json:"product_id"`
	ProductTitle string `json:"product_title"`
	Count        int64  `json:"count"`
}
