package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"tuslite/internal/capability"
	"tuslite/internal/info"
	"tuslite/internal/service"
	"tuslite/internal/storage"

	"github.com/go-chi/chi/v5"
)

// UploadHandler 提供可续传上传相关的 HTTP 端点。
type UploadHandler struct {
	service      *service.UploadService
	extensions   []capability.Extension
	maxChunkSize int64
}

// NewUploadHandler 构建上传处理器。extensions 应是按后端能力收窄后的集合。
func NewUploadHandler(s *service.UploadService, extensions []capability.Extension, maxChunkSize int64) *UploadHandler {
	return &UploadHandler{service: s, extensions: extensions, maxChunkSize: maxChunkSize}
}

func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Route("/uploads", func(r chi.Router) {
		r.Options("/", h.ServerInfo)
		r.Post("/", h.CreateUpload)
		r.Get("/{id}", h.GetUpload)
		r.Patch("/{id}", h.AppendChunk)
		r.Get("/{id}/download", h.DownloadUpload)
		r.Delete("/{id}", h.TerminateUpload)
	})
}

type envelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// 客户端声明的块摘要与服务端计算不一致时的状态码（沿用 tus 惯例）。
const statusChecksumMismatch = 460

func (h *UploadHandler) enabled(ext capability.Extension) bool {
	return capability.Contains(h.extensions, ext)
}

// ServerInfo 公布当前启用的协议能力，供客户端协商。
func (h *UploadHandler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Tus-Extension", capability.Render(h.extensions))
	if h.enabled(capability.Checksum) {
		w.Header().Set("Tus-Checksum-Algorithm", capability.ChecksumAlgorithms)
	}
	w.WriteHeader(http.StatusNoContent)
}

type createUploadRequest struct {
	Filename string            `json:"filename"`
	Length   *int64            `json:"length"`
	Metadata map[string]string `json:"metadata"`
	Partial  bool              `json:"partial"`
	Final    bool              `json:"final"`
	Parts    []string          `json:"parts"`
}

// CreateUpload 创建一次新上传；body 带 final=true 时按 parts 顺序拼装最终上传。
func (h *UploadHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		writeError(w, http.StatusInternalServerError, "handler not initialized")
		return
	}
	if !h.enabled(capability.Creation) {
		writeError(w, http.StatusForbidden, "creation extension is disabled")
		return
	}

	var req createUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if req.Final {
		if !h.enabled(capability.Concatenation) {
			writeError(w, http.StatusForbidden, "concatenation extension is disabled")
			return
		}
		final, err := h.service.ConcatUploads(r.Context(), service.ConcatInput{
			Filename: req.Filename,
			PartIDs:  req.Parts,
			Metadata: req.Metadata,
		})
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, envelope{Data: final})
		return
	}

	length := info.LengthDeferred
	if req.Length != nil {
		if *req.Length < 0 {
			writeError(w, http.StatusBadRequest, "length must not be negative")
			return
		}
		length = *req.Length
	} else if !h.enabled(capability.CreationDeferLength) {
		writeError(w, http.StatusBadRequest, "length is required")
		return
	}

	upload, err := h.service.CreateUpload(r.Context(), service.CreateUploadInput{
		Filename:       req.Filename,
		DeclaredLength: length,
		Metadata:       req.Metadata,
		IsPartial:      req.Partial,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	uploadsStarted.Inc()
	writeJSON(w, http.StatusCreated, envelope{Data: upload})
}

// AppendChunk 向上传追加请求体携带的字节块。
func (h *UploadHandler) AppendChunk(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		writeError(w, http.StatusInternalServerError, "handler not initialized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "upload id is required")
		return
	}
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is empty")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxChunkSize)
	defer r.Body.Close()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "chunk exceeds size limit")
		return
	}

	var checksumHeader string
	if h.enabled(capability.Checksum) {
		checksumHeader = r.Header.Get("Upload-Checksum")
	}

	upload, err := h.service.AppendChunk(r.Context(), id, data, checksumHeader)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if upload.DeclaredLength >= 0 && upload.Offset >= upload.DeclaredLength {
		uploadsFinished.Inc()
	}
	writeJSON(w, http.StatusOK, envelope{Data: upload})
}

// GetUpload 返回单个上传的元数据。
func (h *UploadHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "upload id is required")
		return
	}

	upload, err := h.service.GetUpload(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: upload})
}

// DownloadUpload 返回上传内容。丢弃型后端会返回空响应体，
// 但 Content-Disposition 依旧按逻辑文件名生成。
func (h *UploadHandler) DownloadUpload(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(capability.Getting) {
		writeError(w, http.StatusForbidden, "getting extension is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "upload id is required")
		return
	}

	_, delivery, err := h.service.Download(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer delivery.Close()

	w.Header().Set("Content-Type", delivery.ContentType)
	w.Header().Set("Content-Disposition", delivery.Disposition())
	w.Header().Set("Content-Length", strconv.FormatInt(delivery.Size, 10))

	if delivery.Body == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	if _, err := io.Copy(w, delivery.Body); err != nil {
		// 客户端可能已断开，无法再写入错误响应
		return
	}
}

// TerminateUpload 删除上传及其元数据。
func (h *UploadHandler) TerminateUpload(w http.ResponseWriter, r *http.Request) {
	if !h.enabled(capability.Termination) {
		writeError(w, http.StatusForbidden, "termination extension is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "upload id is required")
		return
	}

	if err := h.service.Terminate(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}

	uploadsTerminated.Inc()
	writeJSON(w, http.StatusOK, envelope{Data: map[string]any{"id": id, "terminated": true}})
}

// writeServiceError 把存储层错误分类映射为 HTTP 状态码，
// 让协议层能区分调用方误用、簿记不一致与存储故障。
func (h *UploadHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, info.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrNotCreated):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, storage.ErrUnsupported):
		writeError(w, http.StatusNotImplemented, err.Error())
	case errors.Is(err, service.ErrChecksumMismatch):
		writeError(w, statusChecksumMismatch, err.Error())
	case errors.Is(err, service.ErrUnknownAlgorithm), errors.Is(err, service.ErrPartNotPartial):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrLengthExceeded):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{Error: message})
}
