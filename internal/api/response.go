package api

import (
	"devoverflow/internal/utils"
)

// Response is the uniform result envelope returned by every endpoint.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

type ErrorBody struct {
	Message string            `json:"message"`
	Kind    string            `json:"kind"`
	Details map[string]string `json:"details,omitempty"`
}

func OK(data interface{}) *Response {
	return &Response{Success: true, Data: data}
}

// Fail converts any error into the failure envelope and its HTTP status.
func Fail(err error) (*Response, int) {
	appErr := utils.AsAppError(err)
	message := appErr.Message
	if appErr.Code == utils.ErrInternal {
		// Origin may leak storage details.
		message = "internal error"
	}
	return &Response{
		Success: false,
		Error: &ErrorBody{
			Message: message,
			Kind:    appErr.Code,
			Details: appErr.Details,
		},
	}, utils.AppErrorToHTTPStatus(appErr.Code)
}

// LoginResponse is the payload of a successful sign-in.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
