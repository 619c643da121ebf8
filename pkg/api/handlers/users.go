package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"pulsechat/pkg/auth"
	"pulsechat/pkg/logger"
	"pulsechat/pkg/store"
	"pulsechat/pkg/utils"
	"pulsechat/pkg/validation"
)

// Users serves profile reads/updates and contact lookup.
type Users struct{}

// Profile returns the caller's own account record.
func (h *Users) Profile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	u, err := store.GetUser(userID)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "user not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u)
}

type updateProfileRequest struct {
	Name           *string `json:"name"`
	ProfilePicture *string `json:"profile_picture"`
}

// UpdateProfile patches the caller's display name and picture. Email,
// phone and password are immutable here.
func (h *Users) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, err := store.GetUser(userID)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "user not found")
		return
	}
	if req.Name != nil {
		if err := validation.ValidateName(*req.Name); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.ProfilePicture != nil {
		u.ProfilePicture = *req.ProfilePicture
	}
	if err := store.SaveUser(u); err != nil {
		logger.Error("profile_update_failed", "user", userID, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	logger.Info("profile_updated", "user", userID)
	_ = utils.JSONWrite(w, http.StatusOK, u)
}

// SearchByPhone looks a user up by exact phone number and returns the
// public projection only.
func (h *Users) SearchByPhone(w http.ResponseWriter, r *http.Request) {
	phone := mux.Vars(r)["phone"]
	if strings.TrimSpace(phone) == "" {
		utils.JSONError(w, http.StatusBadRequest, "phone required")
		return
	}
	u, err := store.FindUserByPhone(phone)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, "user not found")
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, u.Public())
}
