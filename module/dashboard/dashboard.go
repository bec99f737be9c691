package dashboard

import (
	"context"
	"net/http"
	"time"

	"PShare/global"
	"PShare/logger"
	"PShare/middleware"
	filemod "PShare/module/file"
	filemodel "PShare/module/file/model"
	usermodel "PShare/module/user/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const recentLimit = 5

// Presence lists connected users from the local registry.
type Presence interface {
	ListConnectedUsers() []string
}

// SharedPresence is the optional cross-process view kept in Redis.
type SharedPresence interface {
	ListOnline(ctx context.Context) ([]string, error)
}

// UserLookup resolves ids for the recent transfer list.
type UserLookup interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*usermodel.User, error)
	Count(ctx context.Context) (int64, error)
}

type Handler struct {
	files    filemod.Store
	users    UserLookup
	presence Presence
	shared   SharedPresence
}

func NewHandler(files filemod.Store, users UserLookup, presence Presence, shared SharedPresence) *Handler {
	return &Handler{files: files, users: users, presence: presence, shared: shared}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	middleware.GET(r, "/api/dashboard/stats", h.Stats, middleware.RouteOpt{})
}

type party struct {
	ID       string `json:"_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type transfer struct {
	ID           string    `json:"_id"`
	OriginalName string    `json:"originalname"`
	Size         int64     `json:"size"`
	Sender       party     `json:"sender"`
	Receiver     party     `json:"receiver"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

type Stats struct {
	filemod.Stats
	TotalUsers      int64      `json:"totalUsers"`
	ActiveUsers     int        `json:"activeUsers"`
	OnlineUsers     []string   `json:"onlineUsers"`
	RecentTransfers []transfer `json:"recentTransfers"`
}

func (h *Handler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	counts, err := h.files.Stats(ctx)
	if err != nil {
		global.Fail(c, err)
		return
	}
	recent, err := h.files.Recent(ctx, recentLimit)
	if err != nil {
		global.Fail(c, err)
		return
	}
	totalUsers, err := h.users.Count(ctx)
	if err != nil {
		global.Fail(c, err)
		return
	}
	online := h.online(ctx)

	global.OK(c, http.StatusOK, Stats{
		Stats:           counts,
		TotalUsers:      totalUsers,
		ActiveUsers:     len(online),
		OnlineUsers:     online,
		RecentTransfers: h.describe(ctx, recent),
	})
}

// online prefers the shared view and falls back to this process's registry.
func (h *Handler) online(ctx context.Context) []string {
	if h.shared != nil {
		users, err := h.shared.ListOnline(ctx)
		if err == nil {
			return users
		}
		logger.Warn("[dashboard] shared presence unavailable, using local registry", zap.Error(err))
	}
	if h.presence == nil {
		return []string{}
	}
	return h.presence.ListConnectedUsers()
}

func (h *Handler) describe(ctx context.Context, files []*filemodel.File) []transfer {
	ids := make([]string, 0, len(files)*2)
	for _, f := range files {
		ids = append(ids, f.Sender, f.Receiver)
	}
	users, err := h.users.FindByIDs(ctx, ids)
	if err != nil {
		logger.Warn("[dashboard] user lookup failed", zap.Error(err))
		users = nil
	}
	who := func(id string) party {
		p := party{ID: id}
		if u, ok := users[id]; ok {
			p.Username, p.Email = u.Username, u.Email
		}
		return p
	}
	out := make([]transfer, 0, len(files))
	for _, f := range files {
		out = append(out, transfer{
			ID:           f.ID.Hex(),
			OriginalName: f.OriginalName,
			Size:         f.Size,
			Sender:       who(f.Sender),
			Receiver:     who(f.Receiver),
			UploadedAt:   f.UploadedAt,
		})
	}
	return out
}
