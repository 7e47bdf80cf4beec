package controllers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/RealZimboGuy/workflowrest/internal/people"
	"github.com/RealZimboGuy/workflowrest/internal/rest"
	"github.com/RealZimboGuy/workflowrest/internal/util"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"
)

type UsersController struct {
	AuthController
	Authorities Authorities
	Accounts    Accounts
}

func NewUsersController(userRepo UserRepo, authorities Authorities, accounts Accounts) *UsersController {
	return &UsersController{
		AuthController: AuthController{UserRepo: userRepo},
		Authorities:    authorities,
		Accounts:       accounts,
	}
}

type createUserRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// requireAdmin lets only members of the administrators group through.
func (c *UsersController) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := core.Username(r.Context())
		admin, err := c.Authorities.IsAdminAuthority(r.Context(), username)
		if err != nil {
			slog.Error("Failed to check admin authority", "error", err)
			rest.WriteError(w, err)
			return
		}
		if !admin {
			rest.WriteError(w, rest.NewScriptError(http.StatusForbidden, "User %s is not an administrator", username))
			return
		}
		next(w, r)
	}
}

func (c *UsersController) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.UserRepo.FindAll(r.Context())
	if err != nil {
		slog.Error("Failed to get users", "error", err)
		rest.WriteError(w, err)
		return
	}
	for i := range users {
		users[i].Password = ""
	}
	rest.WriteData(w, users)
}

// handleCreateUser creates the API user together with the person taking part in workflows.
func (c *UsersController) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	req, err := util.DecodeJSONBody[createUserRequest](r)
	if err != nil {
		slog.Error("Failed to decode user", "error", err)
		rest.WriteError(w, rest.NewScriptError(http.StatusBadRequest, "Invalid user data"))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		rest.WriteError(w, rest.NewScriptError(http.StatusBadRequest, "username and password are required"))
		return
	}
	existing, err := c.UserRepo.FindByUsername(r.Context(), req.Username)
	if err != nil {
		slog.Error("Failed to look up user", "error", err)
		rest.WriteError(w, err)
		return
	}
	if existing != nil {
		rest.WriteError(w, rest.NewScriptError(http.StatusBadRequest, "User %s already exists", req.Username))
		return
	}
	_, user, err := c.Accounts.EnsureAccount(r.Context(), people.PersonDetails{
		UserName:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}, req.Password)
	if err != nil {
		slog.Error("Failed to create user", "error", err)
		rest.WriteError(w, err)
		return
	}
	user.Password = ""
	util.WriteJSONResponse(w, http.StatusCreated, map[string]any{"data": user})
}

func parseUserID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, rest.NewScriptError(http.StatusBadRequest, "Invalid user ID")
	}
	return id, nil
}

func (c *UsersController) handleGetUserById(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	user, err := c.UserRepo.FindById(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get user", "error", err)
		rest.WriteError(w, err)
		return
	}
	if user == nil {
		rest.WriteError(w, rest.NewScriptError(http.StatusNotFound, "User not found"))
		return
	}
	user.Password = ""
	rest.WriteData(w, user)
}

func (c *UsersController) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if err := c.UserRepo.DeleteById(r.Context(), id); err != nil {
		slog.Error("Failed to delete user", "error", err)
		rest.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
