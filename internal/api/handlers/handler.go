// handler.go — основной обработчик API Media Module.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/bookstore/media-module/internal/api/errors"
	"github.com/bigkaa/bookstore/media-module/internal/domain/model"
	"github.com/bigkaa/bookstore/media-module/internal/i18n"
	"github.com/bigkaa/bookstore/media-module/internal/service"
)

// APIHandler — основной обработчик API Media Module.
type APIHandler struct {
	health        *HealthHandler
	uploader      *service.Uploader
	batch         *service.BatchUploader
	media         *service.MediaService
	bundle        *i18n.Bundle
	publicBaseURL string
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// publicBaseURL — базовый URL, по которому файлы доступны снаружи
// (подставляется в поле url ответов).
func NewAPIHandler(
	health *HealthHandler,
	uploader *service.Uploader,
	batch *service.BatchUploader,
	media *service.MediaService,
	bundle *i18n.Bundle,
	publicBaseURL string,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:        health,
		uploader:      uploader,
		batch:         batch,
		media:         media,
		bundle:        bundle,
		publicBaseURL: publicBaseURL,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// --- Формат ответов ---

// mediaFileResponse — публичная проекция записи файла.
// StoragePath наружу не отдаётся: клиенты получают готовый URL.
type mediaFileResponse struct {
	ID         string  `json:"id"`
	StoredName string  `json:"stored_name"`
	URL        string  `json:"url"`
	Category   string  `json:"category"`
	Format     string  `json:"format"`
	Size       int64   `json:"size"`
	Checksum   string  `json:"checksum"`
	TitleEn    *string `json:"title_en,omitempty"`
	TitleRu    *string `json:"title_ru,omitempty"`
	Chapter    int     `json:"chapter,omitempty"`
	Duration   int     `json:"duration,omitempty"`
	Lang       *string `json:"lang,omitempty"`
	IsActive   bool    `json:"is_active"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

// messageResponse — ответ с переведённым сообщением и данными.
type messageResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// mapMediaFile конвертирует domain model в API-проекцию.
func (h *APIHandler) mapMediaFile(f *model.MediaFile) mediaFileResponse {
	resp := mediaFileResponse{
		ID:         f.ID,
		StoredName: f.StoredName,
		URL:        h.publicBaseURL + "/" + f.StoragePath,
		Category:   string(f.Category),
		Format:     string(f.Format),
		Size:       f.Size,
		Checksum:   f.Checksum,
		TitleEn:    f.TitleEn,
		TitleRu:    f.TitleRu,
		Chapter:    f.Chapter,
		Duration:   f.Duration,
		Lang:       f.Lang,
		IsActive:   f.IsActive,
	}

	if !f.CreatedAt.IsZero() {
		resp.CreatedAt = f.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !f.UpdatedAt.IsZero() {
		resp.UpdatedAt = f.UpdatedAt.UTC().Format(time.RFC3339)
	}

	return resp
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError записывает ошибку сервисного слоя в стандартном формате.
// Клиенту уходит перевод i18n-ключа на язык запроса, диагностика остаётся в логах.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, svcErr *service.Error) {
	apierrors.WriteError(w, svcErr.StatusCode, svcErr.Code, h.bundle.T(r.Context(), svcErr.Key))
}

// paginationDefaults нормализует параметры пагинации.
// Возвращает корректные limit и offset.
func paginationDefaults(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
