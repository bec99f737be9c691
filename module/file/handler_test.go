package file

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"PShare/middleware"
	midsec "PShare/middleware/security"
	"PShare/module/file/model"
	"PShare/service/gateway"
	"PShare/tools/errs"
	"PShare/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var secret = []byte("file-test-secret")

type memStore struct {
	mu    sync.Mutex
	files map[string]*model.File
	fail  error
}

func newMemStore() *memStore { return &memStore{files: map[string]*model.File{}} }

func (m *memStore) Create(_ context.Context, f *model.File) error {
	if m.fail != nil {
		return m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now()
	}
	cp := *f
	m.files[f.ID.Hex()] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*model.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return nil, errs.ErrFileNotFound.WrapMsg("no such file", "id", id)
	}
	cp := *f
	return &cp, nil
}

func (m *memStore) list(keep func(*model.File) bool) []*model.File {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.File, 0)
	for _, f := range m.files {
		if keep(f) {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out
}

func (m *memStore) ListBySender(_ context.Context, u string) ([]*model.File, error) {
	return m.list(func(f *model.File) bool { return f.Sender == u }), nil
}

func (m *memStore) ListByReceiver(_ context.Context, u string) ([]*model.File, error) {
	return m.list(func(f *model.File) bool { return f.Receiver == u }), nil
}

func (m *memStore) MarkDownloaded(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[id]; ok {
		f.Downloads++
	}
	return nil
}

func (m *memStore) Recent(_ context.Context, limit int) ([]*model.File, error) {
	all := m.list(func(*model.File) bool { return true })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memStore) Stats(context.Context) (Stats, error) { return Stats{}, nil }

type recordingNotifier struct {
	mu   sync.Mutex
	got  []gateway.FileMeta
	resp bool
}

func (n *recordingNotifier) NotifyUpload(meta gateway.FileMeta) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, meta)
	return n.resp
}

type fixture struct {
	r        *gin.Engine
	store    *memStore
	dir      string
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.Manager().Clear()
	t.Cleanup(middleware.Manager().Clear)
	middleware.Config(midsec.Middleware(midsec.DefaultOptions(secret)))

	dir := t.TempDir()
	blobs, err := NewBlobStore(dir)
	require.NoError(t, err)
	st := newMemStore()
	n := &recordingNotifier{resp: true}

	r := gin.New()
	NewHandler(st, blobs, n, 1).RegisterRoutes(r)
	return &fixture{r: r, store: st, dir: dir, notifier: n}
}

func authed(t *testing.T, req *http.Request, userID string) *http.Request {
	t.Helper()
	tok, _, err := security.Generate(security.DefaultOptions(secret), userID)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: security.CookieName, Value: tok})
	return req
}

func uploadRequest(t *testing.T, receiverID, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if receiverID != "" {
		require.NoError(t, w.WriteField("receiverId", receiverID))
	}
	if name != "" {
		fw, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func (f *fixture) upload(t *testing.T, sender, receiver string) string {
	t.Helper()
	w := f.do(authed(t, uploadRequest(t, receiver, "report.pdf", []byte("%PDF-1.4 hello")), sender))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		File model.File `json:"file"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.File.ID.Hex()
}

func TestUploadStoresBlobAndNotifies(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "alice", "bob")

	rec, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", rec.OriginalName)
	assert.Equal(t, "alice", rec.Sender)
	assert.Equal(t, "bob", rec.Receiver)
	assert.Equal(t, int64(len("%PDF-1.4 hello")), rec.Size)
	assert.Equal(t, ".pdf", filepath.Ext(rec.Filename))

	data, err := os.ReadFile(filepath.Join(f.dir, rec.Filename))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 hello", string(data))

	require.Len(t, f.notifier.got, 1)
	assert.Equal(t, gateway.FileMeta{ID: id, OriginalName: "report.pdf", SenderID: "alice", ReceiverID: "bob"}, f.notifier.got[0])
}

func TestUploadRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	w := f.do(uploadRequest(t, "bob", "a.txt", []byte("x")))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(authed(t, uploadRequest(t, "bob", "", nil), "alice"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(authed(t, uploadRequest(t, "", "a.txt", []byte("x")), "alice"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	big := bytes.Repeat([]byte("z"), 2<<20)
	w = f.do(authed(t, uploadRequest(t, "bob", "big.bin", big), "alice"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, f.store.files)
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadStoreFailureRemovesBlob(t *testing.T) {
	f := newFixture(t)
	f.store.fail = errs.New("mongo down")

	w := f.do(authed(t, uploadRequest(t, "bob", "a.txt", []byte("x")), "alice"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "alice", "bob")
	f.upload(t, "bob", "alice")
	f.upload(t, "carol", "bob")

	w := f.do(authed(t, httptest.NewRequest(http.MethodGet, "/api/files/history", nil), "alice"))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Sent     []model.File `json:"sent"`
		Received []model.File `json:"received"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Sent, 1)
	require.Len(t, resp.Received, 1)
	assert.Equal(t, "bob", resp.Sent[0].Receiver)
	assert.Equal(t, "bob", resp.Received[0].Sender)
}

func TestDownload(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "alice", "bob")

	w := f.do(authed(t, httptest.NewRequest(http.MethodGet, "/api/files/download/"+id, nil), "bob"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4 hello", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report.pdf")
	rec, _ := f.store.Get(context.Background(), id)
	assert.Equal(t, int64(1), rec.Downloads)

	w = f.do(authed(t, httptest.NewRequest(http.MethodGet, "/api/files/download/"+id, nil), "mallory"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(authed(t, httptest.NewRequest(http.MethodGet, "/api/files/download/"+primitive.NewObjectID().Hex(), nil), "bob"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadMissingBlob(t *testing.T) {
	f := newFixture(t)
	id := f.upload(t, "alice", "bob")
	rec, _ := f.store.Get(context.Background(), id)
	require.NoError(t, os.Remove(filepath.Join(f.dir, rec.Filename)))

	w := f.do(authed(t, httptest.NewRequest(http.MethodGet, "/api/files/download/"+id, nil), "alice"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFinderMapsRecord(t *testing.T) {
	st := newMemStore()
	rec := &model.File{OriginalName: "a.txt", Sender: "alice", Receiver: "bob", Filename: "x.txt"}
	require.NoError(t, st.Create(context.Background(), rec))

	meta, err := Finder{Store: st}.FindFileByID(context.Background(), rec.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "a.txt", meta.OriginalName)

	_, err = Finder{Store: st}.FindFileByID(context.Background(), "nope")
	assert.True(t, errs.Is(err, errs.ErrFileNotFound))
}

func TestBlobPathRefusesTraversal(t *testing.T) {
	b, err := NewBlobStore(t.TempDir())
	require.NoError(t, err)
	for _, name := range []string{"", "..", "../etc/passwd", "a/b"} {
		_, err := b.Path(name)
		assert.Error(t, err, name)
	}
	assert.Equal(t, "", filepath.Ext(storedName("noext")))
	assert.Equal(t, ".gz", filepath.Ext(storedName("archive.tar.GZ")))
}
