// Package dto defines data transfer objects for the account feature's HTTP transport layer.
package dto

import openapi_types "github.com/oapi-codegen/runtime/types"

// RegisterReq represents the request body for the /users/register endpoint.
// It uses Gin's binding tags for validation (required, email format, minimum lengths).
type RegisterReq struct {
	Name     string              `json:"name" binding:"required,min=2"`
	Email    openapi_types.Email `json:"email" binding:"required,email"`
	Password string              `json:"password" binding:"required,min=6"`
}
