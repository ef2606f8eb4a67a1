package dto

// ErrorResponse is the body of every 4xx/5xx response.
type ErrorResponse struct {
	Message string `json:"message"`
}
