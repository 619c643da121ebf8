package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pulsechat/pkg/auth"
	"pulsechat/pkg/logger"
	"pulsechat/pkg/models"
	"pulsechat/pkg/store"
	"pulsechat/pkg/utils"
	"pulsechat/pkg/validation"
)

// Auth serves registration and login. Both mint a bearer token scoped
// to the account.
type Auth struct {
	TokenTTL time.Duration
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	// Identifier is an email address or phone number.
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates an account and returns a fresh token.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validation.ValidateName(req.Name); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		utils.JSONError(w, http.StatusBadRequest, "valid email required")
		return
	}
	if req.Phone == "" {
		utils.JSONError(w, http.StatusBadRequest, "phone required")
		return
	}
	if len(req.Password) < 8 {
		utils.JSONError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	u := models.User{
		ID:           utils.GenUserID(),
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		CreatedTS:    time.Now().UTC().UnixNano(),
	}
	if err := store.CreateUser(u); err != nil {
		if err == store.ErrUserExists {
			utils.JSONError(w, http.StatusConflict, "email or phone already registered")
			return
		}
		logger.Error("register_failed", "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	token, err := auth.MintToken(u.ID, h.TokenTTL)
	if err != nil {
		logger.Error("mint_token_failed", "user", u.ID, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	logger.Info("user_registered", "user", u.ID)
	_ = utils.JSONWrite(w, http.StatusCreated, authResponse{Token: token, User: u})
}

// Login verifies credentials against an email or phone identifier.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, err := store.FindUserByIdentifier(strings.TrimSpace(req.Identifier))
	if err != nil {
		// same response as a bad password so identifiers cannot be probed
		utils.JSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		logger.Warn("login_failed", "user", u.ID)
		utils.JSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := auth.MintToken(u.ID, h.TokenTTL)
	if err != nil {
		logger.Error("mint_token_failed", "user", u.ID, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	logger.Info("user_logged_in", "user", u.ID)
	_ = utils.JSONWrite(w, http.StatusOK, authResponse{Token: token, User: u})
}
