package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/labledger/core"
	"github.com/layer-3/labledger/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// Nonce issues a challenge for an address
func (h *AuthHandlers) Nonce(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `Field "address" is required`})
		return
	}

	nonce, err := h.authService.CreateChallenge(c.Request.Context(), req.Address)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

// Verify exchanges a signed challenge for a session token
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		Address   string `json:"address" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `Fields "address" and "signature" are required`})
		return
	}

	result, err := h.authService.Verify(c.Request.Context(), req.Address, req.Signature)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegistryHandlers serves registry reads and session-bound writes
type RegistryHandlers struct {
	registry *service.RegistryService
}

func NewRegistryHandlers(registry *service.RegistryService) *RegistryHandlers {
	return &RegistryHandlers{registry: registry}
}

// Contracts reports the deployed contract addresses
func (h *RegistryHandlers) Contracts(c *gin.Context) {
	d, err := h.registry.Deployment(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Identities lists every identity, or looks one up with ?matricula=
func (h *RegistryHandlers) Identities(c *gin.Context) {
	if matricula, ok := c.GetQuery("matricula"); ok {
		identity, err := h.registry.IdentityByMatricula(c.Request.Context(), matricula)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, identity)
		return
	}

	identities, err := h.registry.Identities(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(identities))
}

// Identity answers 404 for anything that is not a registered account,
// malformed addresses included.
func (h *RegistryHandlers) Identity(c *gin.Context) {
	identity, err := h.registry.Identity(c.Request.Context(), c.Param("address"))
	if errors.Is(err, core.ErrInvalidAddress) {
		err = core.ErrIdentityNotFound
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

func (h *RegistryHandlers) Events(c *gin.Context) {
	events, err := h.registry.Events(c.Request.Context(), c.Query("owner"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(events))
}

func (h *RegistryHandlers) Event(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event id"})
		return
	}

	event, exists, err := h.registry.Event(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}
	c.JSON(http.StatusOK, event)
}

// RegisterIdentity registers an identity for the session's address
func (h *RegistryHandlers) RegisterIdentity(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		Matricula string `json:"matricula" binding:"required"`
		Curso     string `json:"curso" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	identity, err := h.registry.RegisterIdentity(c.Request.Context(), sessionFrom(c).Address, service.IdentityInput{
		Name:      req.Name,
		Matricula: req.Matricula,
		Curso:     req.Curso,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, identity)
}

// UpdateIdentity changes name and curso of the session's identity
func (h *RegistryHandlers) UpdateIdentity(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Curso string `json:"curso" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	identity, err := h.registry.UpdateIdentity(c.Request.Context(), sessionFrom(c).Address, service.IdentityInput{
		Name:  req.Name,
		Curso: req.Curso,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, identity)
}

// CreateEvent records an event owned by the session's address
func (h *RegistryHandlers) CreateEvent(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		EventDate   uint64 `json:"eventDate"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	event, err := h.registry.CreateEvent(c.Request.Context(), sessionFrom(c).Address, service.EventInput{
		Title:       req.Title,
		Description: req.Description,
		EventDate:   req.EventDate,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// Me returns information about the authenticated user
func (h *RegistryHandlers) Me(c *gin.Context) {
	profile, err := h.registry.Profile(c.Request.Context(), sessionFrom(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *RegistryHandlers) AdminSummary(c *gin.Context) {
	summary, err := h.registry.Summary(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T core.Identity | core.Event](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
