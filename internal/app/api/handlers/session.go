package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hardhatapps/gatekeeper/internal/app/api/middleware"
	"github.com/hardhatapps/gatekeeper/internal/app/service/navigation"
	"github.com/hardhatapps/gatekeeper/pkg/response"
	"github.com/hardhatapps/gatekeeper/pkg/types"
)

type CreateSessionRequest struct {
	Projects []types.ProjectRef `json:"projects"`
}

type NavigateRequest struct {
	Screen    types.ScreenID     `json:"screen"`
	Params    types.ScreenParams `json:"params"`
	ProjectID *string            `json:"project_id"`
}

type SelectProjectRequest struct {
	ProjectID string `json:"project_id"`
}

type GoHomeRequest struct {
	ProjectID *string `json:"project_id"`
}

type DeepLinkRequest struct {
	ProjectID *string            `json:"project_id"`
	Screen    types.ScreenID     `json:"screen"`
	Params    types.ScreenParams `json:"params"`
}

// @Summary      Create Session
// @Description  Registers a navigation session for the authenticated user and routes it to the role's landing screen.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        request body CreateSessionRequest true "Project summaries available to this session"
// @Success      200  {object}  handlers.RespSnapshot
// @Router       /api/v1/session [post]
func ApiCreateSession(svc *navigation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.IdentityFromGin(c)
		if !ok {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing identity"))
			return
		}
		var req CreateSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(svc.CreateSession(identity, req.Projects)))
	}
}

// @Summary      Drop Session
// @Description  Removes a navigation session. Unknown ids are a no-op.
// @Tags         Session
// @Produce      json
// @Param        id path string true "Session id"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/session/{id} [delete]
func ApiDropSession(svc *navigation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.DropSession(c.Param("id"))
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Get Navigation State
// @Description  Returns the session's current navigation snapshot.
// @Tags         Session
// @Produce      json
// @Param        id path string true "Session id"
// @Success      200  {object}  handlers.RespSnapshot
// @Router       /api/v1/session/{id}/stack [get]
func ApiCurrentStack(svc *navigation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svc.Current(c.Param("id"))
		if err != nil {
			respondNavError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(snap))
	}
}

// @Summary      Navigate
// @Description  Pushes a screen onto the session's navigation stack.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        id path string true "Session id"
// @Param        request body NavigateRequest true "Target screen"
// @Success      200  {object}  handlers.RespSnapshot
// @Router       /api/v1/session/{id}/navigate [post]
func ApiNavigateTo(svc *navigation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NavigateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		snap, err := svc.NavigateTo(c.Param("id"), req.Screen, req.Params, req.ProjectID)
		if err != nil {
			respondNavError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(snap))
	}
}

// @Summary      Switch Module
// @Description  Replaces the whole stack with the target module's screen.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        id path string true "Session id"
// @Param        request body NavigateRequest true "Target screen"
// @Success      200  {object}  handlers.RespSnapshot
// @Router       /api/v1/session/{id}/navigate_module [post]
func ApiNavigateToModule(svc *navigation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NavigateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		snap, err := svc.NavigateToModule(c.Param("id"), req.Screen, req.Params)
		if err != nil {
			respondNavError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(snap))
	}
}

// @Summary      Go Back
// @Description  Pops the current screen; a single-frame stack stays put.
// @Tags         Session
// @Produce      json
// @Param        id path string true "Session id"
// @Success      200  {object}  handlers.RespSnapshot
// @Router       /api/v1/session/{id}/back [post]
func ApiGoBack(svc *navigation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svc.GoBack(c.Param("id"))
		if err != nil {
			respondNavError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(snap))
	}
}

// @Summary      Go Home
// @Description  Resets navigation, keeping project context when one is bound.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        id path string true "Session id"
// @Param        request body GoHomeRequest false "Current project context"
// @Success      200  {object}  handlers.RespSnapshot
// @Router       /api/v1/session/{id}/home [post]
func ApiGoHome(svc *navigation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GoHomeRequest
		_ = c.ShouldBindJSON(&req)
		snap, err := svc.GoHome(c.Param("id"), req.ProjectID)
		if err != nil {
			respondNavError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(snap))
	}
}

// @Summary      Select Project
// @Description  Replaces the stack with the chosen project's home screen.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        id path string true "Session id"
// @Param        request body SelectProjectRequest true "Project id"
// @Success      200  {object}  handlers.RespSnapshot
// @Router       /api/v1/session/{id}/select_project [post]
func ApiSelectProject(svc *navigation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SelectProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.ProjectID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing project_id"))
			return
		}
		snap, err := svc.SelectProject(c.Param("id"), req.ProjectID)
		if err != nil {
			respondNavError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(snap))
	}
}

// @Summary      Resolve Deep Link
// @Description  Establishes project context before showing the target screen. Unknown projects leave the stack untouched.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        id path string true "Session id"
// @Param        request body DeepLinkRequest true "Deep link target"
// @Success      200  {object}  handlers.RespSnapshot
// @Router       /api/v1/session/{id}/deeplink [post]
func ApiDeepLink(svc *navigation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DeepLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		snap, err := svc.DeepLink(c.Param("id"), req.ProjectID, req.Screen, req.Params)
		if err != nil {
			respondNavError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(snap))
	}
}

func respondNavError(c *gin.Context, err error) {
	if errors.Is(err, navigation.ErrSessionNotFound) {
		c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
}

func RegisterSessionRoutes(r gin.IRouter, svc *navigation.Service) {
	r.POST("/session", ApiCreateSession(svc))
	r.DELETE("/session/:id", ApiDropSession(svc))
	r.GET("/session/:id/stack", ApiCurrentStack(svc))
	r.POST("/session/:id/navigate", ApiNavigateTo(svc))
	r.POST("/session/:id/navigate_module", ApiNavigateToModule(svc))
	r.POST("/session/:id/back", ApiGoBack(svc))
	r.POST("/session/:id/home", ApiGoHome(svc))
	r.POST("/session/:id/select_project", ApiSelectProject(svc))
	r.POST("/session/:id/deeplink", ApiDeepLink(svc))
}
