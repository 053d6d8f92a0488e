// media.go — обработчики /api/v1/media endpoints.
// Загрузка (одиночная и пакетная), список, получение, скачивание, удаление.
package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/bigkaa/bookstore/media-module/internal/api/errors"
	"github.com/bigkaa/bookstore/media-module/internal/domain/model"
	"github.com/bigkaa/bookstore/media-module/internal/domain/upload"
	"github.com/bigkaa/bookstore/media-module/internal/repository"
	"github.com/bigkaa/bookstore/media-module/internal/service"
)

// maxMultipartMemory — буфер парсинга multipart form в памяти,
// остальное net/http сбрасывает во временные файлы.
const maxMultipartMemory = 32 << 20 // 32 MB

// UploadFile обрабатывает POST /api/v1/media.
// Multipart form: file (обязательно), category, format (обязательно),
// title_en, title_ru, chapter, duration, lang, is_active (опционально).
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, h.bundle.T(r.Context(), "upload.file_required"))
		return
	}
	defer file.Close()

	params, perr := h.formParams(r, header)
	if perr != nil {
		apierrors.ValidationError(w, perr.Error())
		return
	}

	result, svcErr := h.uploader.Upload(r.Context(), service.UploadInput{
		Params: params,
		Reader: file,
	})
	if svcErr != nil {
		h.writeServiceError(w, r, svcErr)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{
		Message: h.bundle.T(r.Context(), "upload.success"),
		Data:    h.mapMediaFile(result),
	})
}

// batchFailureItem — сбой одного файла в ответе пакетной загрузки.
type batchFailureItem struct {
	Filename string `json:"filename"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// batchResponse — ответ пакетной загрузки.
type batchResponse struct {
	Message   string              `json:"message"`
	Uploaded  []mediaFileResponse `json:"uploaded"`
	Failed    []batchFailureItem  `json:"failed"`
	TotalSize int64               `json:"total_size"`
	ElapsedMs int64               `json:"elapsed_ms"`
}

// UploadBatch обрабатывает POST /api/v1/media/batch.
// Multipart form: files (обязательно, несколько частей), остальные поля
// формы общие для всех файлов пакета. Сбой одного файла не прерывает
// пакет: ответ перечисляет загруженные и отклонённые файлы раздельно.
func (h *APIHandler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		apierrors.ValidationError(w, h.bundle.T(r.Context(), "upload.files_required"))
		return
	}
	headers := r.MultipartForm.File["files"]

	inputs := make([]service.UploadInput, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			apierrors.ValidationError(w, fmt.Sprintf("Ошибка открытия части %q: %s", header.Filename, err.Error()))
			return
		}
		defer f.Close()

		params, perr := h.formParams(r, header)
		if perr != nil {
			apierrors.ValidationError(w, perr.Error())
			return
		}

		inputs = append(inputs, service.UploadInput{
			Params: params,
			Reader: f,
		})
	}

	result, svcErr := h.batch.UploadBatch(r.Context(), inputs)
	if svcErr != nil {
		h.writeServiceError(w, r, svcErr)
		return
	}

	resp := batchResponse{
		Message:   h.bundle.T(r.Context(), "upload.batch_success"),
		Uploaded:  make([]mediaFileResponse, 0, len(result.Uploaded)),
		Failed:    make([]batchFailureItem, 0, len(result.Failed)),
		TotalSize: result.TotalSize,
		ElapsedMs: result.Elapsed.Milliseconds(),
	}
	for _, f := range result.Uploaded {
		resp.Uploaded = append(resp.Uploaded, h.mapMediaFile(f))
	}
	for _, failure := range result.Failed {
		resp.Failed = append(resp.Failed, batchFailureItem{
			Filename: failure.Filename,
			Code:     failure.Err.Code,
			Message:  h.bundle.T(r.Context(), failure.Err.Key),
		})
	}

	status := http.StatusCreated
	if len(resp.Failed) > 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// mediaListResponse — страница списка файлов.
type mediaListResponse struct {
	Items   []mediaFileResponse `json:"items"`
	Total   int                 `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
	HasMore bool                `json:"has_more"`
}

// ListFiles обрабатывает GET /api/v1/media.
// Пагинация: limit, offset. Фильтры: category, is_active.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	limit, lerr := queryInt(r, "limit", 100)
	if lerr != nil {
		apierrors.ValidationError(w, lerr.Error())
		return
	}
	offset, oerr := queryInt(r, "offset", 0)
	if oerr != nil {
		apierrors.ValidationError(w, oerr.Error())
		return
	}
	limit, offset = paginationDefaults(limit, offset)

	filters := repository.MediaFilters{}
	if raw := r.URL.Query().Get("category"); raw != "" {
		category := model.Category(raw)
		if _, ok := model.ConfigFor(category); !ok {
			apierrors.ValidationError(w, fmt.Sprintf("Недопустимая категория: %s", raw))
			return
		}
		filters.Category = &category
	}
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			apierrors.ValidationError(w, fmt.Sprintf("Параметр is_active должен быть булевым: %s", raw))
			return
		}
		filters.IsActive = &active
	}

	files, total, svcErr := h.media.List(r.Context(), filters, limit, offset)
	if svcErr != nil {
		h.writeServiceError(w, r, svcErr)
		return
	}

	items := make([]mediaFileResponse, 0, len(files))
	for _, f := range files {
		items = append(items, h.mapMediaFile(f))
	}

	writeJSON(w, http.StatusOK, mediaListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// GetFile обрабатывает GET /api/v1/media/{file_id}.
// Возвращает метаданные файла.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fileIDParam(w, r)
	if !ok {
		return
	}

	file, svcErr := h.media.Get(r.Context(), id)
	if svcErr != nil {
		h.writeServiceError(w, r, svcErr)
		return
	}

	writeJSON(w, http.StatusOK, h.mapMediaFile(file))
}

// DownloadFile обрабатывает GET /api/v1/media/{file_id}/download.
// Отдаёт содержимое файла. http.ServeContent добавляет поддержку
// Range requests и условных заголовков.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fileIDParam(w, r)
	if !ok {
		return
	}

	file, f, svcErr := h.media.Download(r.Context(), id)
	if svcErr != nil {
		h.writeServiceError(w, r, svcErr)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.StoredName))
	http.ServeContent(w, r, file.StoredName, file.UpdatedAt, f)
}

// DeleteFile обрабатывает DELETE /api/v1/media/{file_id}.
// Строка реестра удаляется первой, физический файл — best-effort.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.fileIDParam(w, r)
	if !ok {
		return
	}

	if svcErr := h.media.Delete(r.Context(), id); svcErr != nil {
		h.writeServiceError(w, r, svcErr)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: h.bundle.T(r.Context(), "media.deleted"),
	})
}

// --- Вспомогательные функции ---

// fileIDParam извлекает и валидирует UUID файла из пути.
func (h *APIHandler) fileIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "file_id")
	id, err := uuid.Parse(raw)
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Некорректный идентификатор файла: %s", raw))
		return "", false
	}
	return id.String(), true
}

// formParams собирает сырые поля формы в upload.Params.
// Семантическая валидация выполняется конструктором upload.NewRequest,
// здесь проверяется только синтаксис числовых и булевых полей.
func (h *APIHandler) formParams(r *http.Request, header *multipart.FileHeader) (upload.Params, error) {
	chapter, err := formInt(r, "chapter")
	if err != nil {
		return upload.Params{}, err
	}
	duration, err := formInt(r, "duration")
	if err != nil {
		return upload.Params{}, err
	}

	isActive := true
	if raw := r.FormValue("is_active"); raw != "" {
		isActive, err = strconv.ParseBool(raw)
		if err != nil {
			return upload.Params{}, fmt.Errorf("поле is_active должно быть булевым, получено %q", raw)
		}
	}

	return upload.Params{
		Category:     r.FormValue("category"),
		Format:       r.FormValue("format"),
		Filename:     header.Filename,
		Mimetype:     header.Header.Get("Content-Type"),
		DeclaredSize: header.Size,
		Encoding:     header.Header.Get("Content-Transfer-Encoding"),
		TitleEn:      r.FormValue("title_en"),
		TitleRu:      r.FormValue("title_ru"),
		Chapter:      chapter,
		Duration:     duration,
		Lang:         r.FormValue("lang"),
		IsActive:     isActive,
	}, nil
}

// formInt парсит целочисленное поле формы. Пустое поле — ноль.
func formInt(r *http.Request, name string) (int, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return 0, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("поле %s должно быть целым числом, получено %q", name, raw)
	}
	return val, nil
}

// queryInt парсит целочисленный query-параметр. Пустой параметр — значение по умолчанию.
func queryInt(r *http.Request, name string, defaultVal int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("параметр %s должен быть целым числом, получено %q", name, raw)
	}
	return val, nil
}
