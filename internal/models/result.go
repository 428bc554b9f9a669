package models

import "errors"

// ActionResult is the uniform outcome of every mutation.
type ActionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// Active is set by toggle operations to report the relation state after the call.
	Active *bool `json:"active,omitempty"`
}

// Succeeded returns a successful ActionResult.
func Succeeded() ActionResult {
	return ActionResult{Success: true}
}

// Toggled returns a successful ActionResult carrying the relation state.
func Toggled(active bool) ActionResult {
	return ActionResult{Success: true, Active: &active}
}

// ResultFromError flattens err into an ActionResult. A nil error is a success.
func ResultFromError(err error) ActionResult {
	if err == nil {
		return Succeeded()
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ActionResult{Error: appErr.Message}
	}
	return ActionResult{Error: "Something went wrong"}
}
