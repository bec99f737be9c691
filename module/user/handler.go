package user

import (
	"net/http"
	"time"

	"PShare/global"
	"PShare/logger"
	"PShare/middleware"
	"PShare/tools/errs"
	"PShare/tools/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OnlineChecker answers whether a user currently holds a live connection.
type OnlineChecker interface {
	IsConnected(userID string) bool
}

type Handler struct {
	svc          *Service
	online       OnlineChecker
	secureCookie bool
}

func NewHandler(svc *Service, online OnlineChecker, secureCookie bool) *Handler {
	return &Handler{svc: svc, online: online, secureCookie: secureCookie}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	middleware.POST(r, "/api/auth/register", h.Register, middleware.RouteOpt{})
	middleware.POST(r, "/api/auth/login", h.Login, middleware.RouteOpt{})
	middleware.GET(r, "/api/auth/profile", h.Profile, middleware.RouteOpt{IsAuth: true})
	middleware.POST(r, "/api/auth/logout", h.Logout, middleware.RouteOpt{IsAuth: true})
	middleware.GET(r, "/api/users", h.List, middleware.RouteOpt{IsAuth: true})
}

func (h *Handler) setToken(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(security.CookieName, token, maxAge, "/", "", h.secureCookie, true)
}

func (h *Handler) Register(c *gin.Context) {
	var in RegisterParams
	if err := c.ShouldBindJSON(&in); err != nil {
		global.Fail(c, errs.ErrBadRequest.WrapMsg(err.Error()))
		return
	}
	u, err := h.svc.Register(c.Request.Context(), in)
	if err != nil {
		global.Fail(c, err)
		return
	}
	logger.Info("[user] registered", zap.String("user", u.GetUserID()), zap.String("username", u.Username))
	global.OK(c, http.StatusCreated, gin.H{"message": "User registered successfully"})
}

func (h *Handler) Login(c *gin.Context) {
	var in LoginParams
	if err := c.ShouldBindJSON(&in); err != nil {
		global.Fail(c, errs.ErrBadRequest.WrapMsg(err.Error()))
		return
	}
	in.IP = c.ClientIP()
	in.UserAgent = c.Request.UserAgent()

	res, err := h.svc.Login(c.Request.Context(), in)
	if err != nil {
		global.Fail(c, err)
		return
	}
	h.setToken(c, res.Token, int(time.Until(res.ExpireAt).Seconds()))
	global.OK(c, http.StatusOK, gin.H{
		"message": "Login successful",
		"user": gin.H{
			"id":       res.User.GetUserID(),
			"username": res.User.Username,
			"email":    res.User.Email,
		},
	})
}

func (h *Handler) Profile(c *gin.Context) {
	sess, _ := global.SessionFrom(c)
	u, err := h.svc.Profile(c.Request.Context(), sess.UserID)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, http.StatusOK, gin.H{"user": u})
}

func (h *Handler) Logout(c *gin.Context) {
	sess, _ := global.SessionFrom(c)
	if err := h.svc.Logout(c.Request.Context(), sess.UserID); err != nil {
		logger.Warn("[user] close sessions failed", zap.String("user", sess.UserID), zap.Error(err))
	}
	h.setToken(c, "", -1)
	global.OK(c, http.StatusOK, gin.H{"message": "User logged out successfully"})
}

// userView is a user as listed to other users.
type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Online   bool   `json:"online"`
}

// List returns every other user with an online flag from the connection registry.
func (h *Handler) List(c *gin.Context) {
	sess, _ := global.SessionFrom(c)
	users, err := h.svc.List(c.Request.Context(), sess.UserID)
	if err != nil {
		global.Fail(c, err)
		return
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		v := userView{ID: u.GetUserID(), Username: u.Username, Email: u.Email}
		if h.online != nil {
			v.Online = h.online.IsConnected(v.ID)
		}
		out = append(out, v)
	}
	global.OK(c, http.StatusOK, out)
}
