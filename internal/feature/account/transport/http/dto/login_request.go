package dto

import openapi_types "github.com/oapi-codegen/runtime/types"

// LoginReq represents the request body for the /users/login endpoint.
// Password length is not checked here; a short password simply fails verification.
type LoginReq struct {
	Email    openapi_types.Email `json:"email" binding:"required,email"`
	Password string              `json:"password" binding:"required"`
}
