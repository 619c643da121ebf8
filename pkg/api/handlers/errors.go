package handlers

import (
	"net/http"

	"pulsechat/pkg/logger"
	"pulsechat/pkg/messaging"
	"pulsechat/pkg/utils"
)

// writeServiceError maps messaging core errors onto HTTP statuses.
// Persistence details are logged, never leaked to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case messaging.IsValidation(err):
		utils.JSONError(w, http.StatusBadRequest, err.Error())
	case messaging.IsNotFound(err):
		utils.JSONError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error("request_failed", "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
	}
}
