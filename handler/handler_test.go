package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"course-media/apperr"
	"course-media/entities"
	"course-media/pkg/auth"
	"course-media/pkg/chunkstore"
	"course-media/pkg/storage"
	"course-media/repository"
	"course-media/service"
)

type memRepo struct {
	mu      sync.Mutex
	courses map[uuid.UUID]*entities.Course
	videos  map[uuid.UUID]*entities.Video
}

var _ repository.CourseRepository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{
		courses: make(map[uuid.UUID]*entities.Course),
		videos:  make(map[uuid.UUID]*entities.Video),
	}
}

func (r *memRepo) addCourse(title string) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	r.courses[id] = &entities.Course{ID: id, Title: title}
	return id
}

func (r *memRepo) GetDB() *gorm.DB { return nil }

func (r *memRepo) FindCourseByID(ctx context.Context, id uuid.UUID) (*entities.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	course, ok := r.courses[id]
	if !ok {
		return nil, apperr.NotFound("course")
	}
	return course, nil
}

func (r *memRepo) FindVideoByID(ctx context.Context, id uuid.UUID) (*entities.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	video, ok := r.videos[id]
	if !ok {
		return nil, apperr.NotFound("video")
	}
	copied := *video
	return &copied, nil
}

func (r *memRepo) ListVideosByCourseID(ctx context.Context, courseID uuid.UUID) ([]*entities.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Video
	for _, v := range r.videos {
		if v.CourseID == courseID {
			copied := *v
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *memRepo) AppendVideo(ctx context.Context, courseID uuid.UUID, video *entities.Video) (*entities.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.courses[courseID]; !ok {
		return nil, apperr.NotFound("course")
	}

	maxOrder := 0
	for _, v := range r.videos {
		if v.CourseID == courseID && v.SortOrder > maxOrder {
			maxOrder = v.SortOrder
		}
	}

	if video.ID == uuid.Nil {
		video.ID = uuid.New()
	}
	video.CourseID = courseID
	video.SortOrder = maxOrder + 1

	copied := *video
	r.videos[video.ID] = &copied
	return video, nil
}

type fixture struct {
	router  *gin.Engine
	repo    *memRepo
	backend storage.Backend
	tokens  *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := newMemRepo()
	backend := storage.NewFilesystem(t.TempDir())
	chunks := chunkstore.New(time.Minute)
	gate := service.NewAccessGate()
	tokens := auth.NewTokenManager("test-secret", "course-media", time.Hour)

	uploadService := service.NewUploadService(chunks, backend, repo, gate, nil)
	streamService := service.NewStreamService(backend, repo, gate, 1<<20)
	h := New(uploadService, streamService, repo)

	router := gin.New()
	api := router.Group("/api/v1", ResolveIdentity(tokens))
	api.POST("/uploads/chunk", h.UploadChunk)
	api.GET("/videos/:id/stream", h.StreamVideo)
	api.GET("/courses/:id/videos", h.ListCourseVideos)

	return &fixture{router: router, repo: repo, backend: backend, tokens: tokens}
}

func (f *fixture) adminToken(t *testing.T) string {
	t.Helper()
	token, err := f.tokens.Issue(uuid.New(), auth.RoleAdmin)
	require.NoError(t, err)
	return token
}

func (f *fixture) userToken(t *testing.T) string {
	t.Helper()
	token, err := f.tokens.Issue(uuid.New(), auth.RoleUser)
	require.NoError(t, err)
	return token
}

type chunkForm struct {
	uploadID    string
	chunkIndex  int
	totalChunks int
	payload     []byte
	metadata    map[string]string
}

func chunkBody(t *testing.T, form chunkForm) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	require.NoError(t, writer.WriteField("uploadId", form.uploadID))
	require.NoError(t, writer.WriteField("chunkIndex", strconv.Itoa(form.chunkIndex)))
	require.NoError(t, writer.WriteField("totalChunks", strconv.Itoa(form.totalChunks)))
	require.NoError(t, writer.WriteField("fileName", "lesson.mp4"))
	require.NoError(t, writer.WriteField("fileType", "video/mp4"))
	for key, value := range form.metadata {
		require.NoError(t, writer.WriteField(key, value))
	}

	part, err := writer.CreateFormFile("chunk", "lesson.mp4")
	require.NoError(t, err)
	_, err = part.Write(form.payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func (f *fixture) postChunk(t *testing.T, token string, form chunkForm) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := chunkBody(t, form)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/chunk", body)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func metadataFields(courseID uuid.UUID) map[string]string {
	return map[string]string{
		"courseId":      courseID.String(),
		"title":         "Lesson 1",
		"description":   "Intro",
		"durationLabel": "08:20",
	}
}

func TestUploadChunkRequiresAdminToken(t *testing.T) {
	f := newFixture(t)
	courseID := f.repo.addCourse("Go Basics")

	form := chunkForm{uploadID: uuid.NewString(), chunkIndex: 0, totalChunks: 1, payload: []byte("x"), metadata: metadataFields(courseID)}

	rec := f.postChunk(t, "", form)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.postChunk(t, f.userToken(t), form)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "unauthorized", body["error"]["code"])
}

func TestUploadChunkProgressAndCompletion(t *testing.T) {
	f := newFixture(t)
	courseID := f.repo.addCourse("Go Basics")
	token := f.adminToken(t)
	uploadID := uuid.NewString()

	rec := f.postChunk(t, token, chunkForm{uploadID: uploadID, chunkIndex: 0, totalChunks: 3, payload: []byte("aaa"), metadata: metadataFields(courseID)})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var ack struct {
		ReceivedIndex   int     `json:"receivedIndex"`
		TotalChunks     int     `json:"totalChunks"`
		PercentComplete float64 `json:"percentComplete"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	require.Equal(t, 0, ack.ReceivedIndex)
	require.Equal(t, 3, ack.TotalChunks)
	require.InDelta(t, 33.333, ack.PercentComplete, 0.01)

	rec = f.postChunk(t, token, chunkForm{uploadID: uploadID, chunkIndex: 1, totalChunks: 3, payload: []byte("bbb")})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.postChunk(t, token, chunkForm{uploadID: uploadID, chunkIndex: 2, totalChunks: 3, payload: []byte("cc")})
	require.Equal(t, http.StatusCreated, rec.Code)

	var video struct {
		ID            string `json:"id"`
		CourseID      string `json:"courseId"`
		Title         string `json:"title"`
		SortOrder     int    `json:"sortOrder"`
		SourceKind    string `json:"sourceKind"`
		ByteSize      int64  `json:"byteSize"`
		DurationLabel string `json:"durationLabel"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &video))
	require.Equal(t, courseID.String(), video.CourseID)
	require.Equal(t, "Lesson 1", video.Title)
	require.Equal(t, 1, video.SortOrder)
	require.Equal(t, "STORED", video.SourceKind)
	require.Equal(t, int64(8), video.ByteSize)
}

func TestUploadChunkValidationFailures(t *testing.T) {
	f := newFixture(t)
	courseID := f.repo.addCourse("Go Basics")
	token := f.adminToken(t)

	// metadata missing on chunk 0
	rec := f.postChunk(t, token, chunkForm{uploadID: uuid.NewString(), chunkIndex: 0, totalChunks: 2, payload: []byte("x")})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// upload id missing
	rec = f.postChunk(t, token, chunkForm{chunkIndex: 0, totalChunks: 2, payload: []byte("x"), metadata: metadataFields(courseID)})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// file part missing
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("uploadId", uuid.NewString()))
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads/chunk", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec2 := httptest.NewRecorder()
	f.router.ServeHTTP(rec2, req)
	require.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestUploadChunkUnknownCourse(t *testing.T) {
	f := newFixture(t)
	token := f.adminToken(t)

	rec := f.postChunk(t, token, chunkForm{uploadID: uuid.NewString(), chunkIndex: 0, totalChunks: 1, payload: []byte("x"), metadata: metadataFields(uuid.New())})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadChunkMissingIndexReported(t *testing.T) {
	f := newFixture(t)
	courseID := f.repo.addCourse("Go Basics")
	token := f.adminToken(t)
	uploadID := uuid.NewString()

	rec := f.postChunk(t, token, chunkForm{uploadID: uploadID, chunkIndex: 0, totalChunks: 3, payload: []byte("a"), metadata: metadataFields(courseID)})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.postChunk(t, token, chunkForm{uploadID: uploadID, chunkIndex: 2, totalChunks: 3, payload: []byte("c")})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "upload_incomplete", body["error"]["code"])
	require.Contains(t, body["error"]["message"], "chunk 1")
}

func (f *fixture) seedVideo(t *testing.T, courseID uuid.UUID, data []byte) *entities.Video {
	t.Helper()
	asset, err := f.backend.Persist(context.Background(), data, "video/mp4", "seed.mp4")
	require.NoError(t, err)
	source, err := entities.NewStoredSource(asset)
	require.NoError(t, err)

	video := &entities.Video{Title: "Seed", DurationLabel: "03:00"}
	video.SetSource(source)
	created, err := f.repo.AppendVideo(context.Background(), courseID, video)
	require.NoError(t, err)
	return created
}

func (f *fixture) getStream(t *testing.T, token, videoID, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/"+videoID+"/stream", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestStreamRequiresAuthentication(t *testing.T) {
	f := newFixture(t)
	courseID := f.repo.addCourse("Go Basics")
	video := f.seedVideo(t, courseID, []byte("payload"))

	rec := f.getStream(t, "", video.ID.String(), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.getStream(t, "", video.ID.String(), "bytes=0-")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStreamSessionCookieAccepted(t *testing.T) {
	f := newFixture(t)
	courseID := f.repo.addCourse("Go Basics")
	video := f.seedVideo(t, courseID, []byte("payload"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/"+video.ID.String()+"/stream", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: f.userToken(t)})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []byte("payload"), rec.Body.Bytes())
}

func TestStreamFullAndRanged(t *testing.T) {
	f := newFixture(t)
	courseID := f.repo.addCourse("Go Basics")

	data := make([]byte, 5000)
	for i := range data {
		data[i] = byte(i % 97)
	}
	video := f.seedVideo(t, courseID, data)
	token := f.userToken(t)

	rec := f.getStream(t, token, video.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	require.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	require.Equal(t, data, rec.Body.Bytes())

	rec = f.getStream(t, token, video.ID.String(), "bytes=100-199")
	require.Equal(t, http.StatusPartialContent, rec.Code)
	require.Equal(t, "bytes 100-199/5000", rec.Header().Get("Content-Range"))
	require.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	require.Equal(t, "true", rec.Header().Get("X-Video-Protected"))
	require.Equal(t, data[100:200], rec.Body.Bytes())
}

func TestStreamRangeNotSatisfiable(t *testing.T) {
	f := newFixture(t)
	courseID := f.repo.addCourse("Go Basics")
	video := f.seedVideo(t, courseID, make([]byte, 100))

	rec := f.getStream(t, f.userToken(t), video.ID.String(), "bytes=999999999-")
	require.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
	require.Equal(t, "bytes */100", rec.Header().Get("Content-Range"))
}

func TestStreamUnknownVideo(t *testing.T) {
	f := newFixture(t)
	rec := f.getStream(t, f.userToken(t), uuid.NewString(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.getStream(t, f.userToken(t), "not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCourseVideos(t *testing.T) {
	f := newFixture(t)
	courseID := f.repo.addCourse("Go Basics")
	f.seedVideo(t, courseID, []byte("one"))
	f.seedVideo(t, courseID, []byte("two"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/"+courseID.String()+"/videos", nil)
	req.Header.Set("Authorization", "Bearer "+f.userToken(t))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Videos []struct {
			SortOrder int `json:"sortOrder"`
		} `json:"videos"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Videos, 2)
	require.Equal(t, 1, body.Videos[0].SortOrder)
	require.Equal(t, 2, body.Videos[1].SortOrder)

	// unauthenticated
	req = httptest.NewRequest(http.MethodGet, "/api/v1/courses/"+courseID.String()+"/videos", nil)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// unknown course
	req = httptest.NewRequest(http.MethodGet, "/api/v1/courses/"+uuid.NewString()+"/videos", nil)
	req.Header.Set("Authorization", "Bearer "+f.userToken(t))
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
