package file

import (
	"net/http"
	"strings"

	"PShare/global"
	"PShare/logger"
	"PShare/middleware"
	"PShare/module/file/model"
	"PShare/service/gateway"
	"PShare/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadNotifier pushes a file_received notification to a connected receiver.
type UploadNotifier interface {
	NotifyUpload(meta gateway.FileMeta) bool
}

type Handler struct {
	store    Store
	blobs    *BlobStore
	notifier UploadNotifier
	maxBytes int64
}

func NewHandler(store Store, blobs *BlobStore, notifier UploadNotifier, maxUploadMB int) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 100
	}
	return &Handler{store: store, blobs: blobs, notifier: notifier, maxBytes: int64(maxUploadMB) << 20}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	middleware.POST(r, "/api/files/upload", h.Upload, middleware.RouteOpt{IsAuth: true})
	middleware.GET(r, "/api/files/history", h.History, middleware.RouteOpt{IsAuth: true})
	middleware.GET(r, "/api/files/download/:fileId", h.Download, middleware.RouteOpt{IsAuth: true})
}

func toMeta(f *model.File) *gateway.FileMeta {
	return &gateway.FileMeta{
		ID:           f.ID.Hex(),
		OriginalName: f.OriginalName,
		SenderID:     f.Sender,
		ReceiverID:   f.Receiver,
	}
}

// Upload stores a multipart `file` addressed to form field `receiverId`.
func (h *Handler) Upload(c *gin.Context) {
	sess, _ := global.SessionFrom(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	receiverID := strings.TrimSpace(c.PostForm("receiverId"))
	fh, err := c.FormFile("file")
	if err != nil {
		global.Fail(c, errs.ErrBadRequest.WrapMsg("No file uploaded"))
		return
	}
	if receiverID == "" {
		global.Fail(c, errs.ErrBadRequest.WrapMsg("receiverId is required"))
		return
	}

	src, err := fh.Open()
	if err != nil {
		global.Fail(c, errs.ErrBadRequest.WrapMsg("unreadable upload"))
		return
	}
	defer src.Close()

	stored, size, err := h.blobs.Save(fh.Filename, src)
	if err != nil {
		global.Fail(c, err)
		return
	}
	rec := &model.File{
		Filename:     stored,
		OriginalName: fh.Filename,
		Sender:       sess.UserID,
		Receiver:     receiverID,
		Size:         size,
		ContentType:  fh.Header.Get("Content-Type"),
	}
	if err := h.store.Create(c.Request.Context(), rec); err != nil {
		if rerr := h.blobs.Remove(stored); rerr != nil {
			logger.Warn("[file] orphan blob left behind", zap.String("name", stored), zap.Error(rerr))
		}
		global.Fail(c, err)
		return
	}

	delivered := false
	if h.notifier != nil {
		delivered = h.notifier.NotifyUpload(*toMeta(rec))
	}
	logger.Info("[file] uploaded", zap.String("file", rec.ID.Hex()), zap.String("sender", rec.Sender),
		zap.String("receiver", rec.Receiver), zap.Int64("size", size), zap.Bool("notified", delivered))
	global.OK(c, http.StatusCreated, gin.H{"message": "File uploaded", "file": rec, "notified": delivered})
}

// History lists what the caller sent and received, newest first.
func (h *Handler) History(c *gin.Context) {
	sess, _ := global.SessionFrom(c)
	ctx := c.Request.Context()

	sent, err := h.store.ListBySender(ctx, sess.UserID)
	if err != nil {
		global.Fail(c, err)
		return
	}
	received, err := h.store.ListByReceiver(ctx, sess.UserID)
	if err != nil {
		global.Fail(c, err)
		return
	}
	global.OK(c, http.StatusOK, gin.H{"sent": sent, "received": received})
}

// Download streams the blob to its sender or receiver.
func (h *Handler) Download(c *gin.Context) {
	sess, _ := global.SessionFrom(c)
	ctx := c.Request.Context()

	rec, err := h.store.Get(ctx, c.Param("fileId"))
	if err != nil {
		global.Fail(c, err)
		return
	}
	if !rec.IsParticipant(sess.UserID) {
		global.Fail(c, errs.ErrForbidden.Wrap())
		return
	}
	path, err := h.blobs.Path(rec.Filename)
	if err != nil {
		global.Fail(c, err)
		return
	}
	if err := h.store.MarkDownloaded(ctx, rec.ID.Hex()); err != nil {
		logger.Warn("[file] mark downloaded failed", zap.String("file", rec.ID.Hex()), zap.Error(err))
	}
	c.FileAttachment(path, rec.OriginalName)
}
