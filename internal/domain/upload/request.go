// Пакет upload — value object запроса загрузки файла.
// Request валидируется при конструировании и после этого неизменяем:
// любое нарушение инвариантов обнаруживается до какого-либо I/O.
package upload

import (
	"fmt"
	"strings"

	"github.com/bigkaa/bookstore/media-module/internal/domain/model"
)

// Ограничения скалярных полей формы.
const (
	// MaxChapter — максимальный номер главы
	MaxChapter = 9999
	// LangLength — длина кода языка (ISO 639-2)
	LangLength = 3
)

// FieldError — ошибка валидации конкретного поля запроса.
// Key — ключ i18n для клиентского сообщения, Message — диагностика для логов.
type FieldError struct {
	Field   string
	Key     string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("поле %s: %s", e.Field, e.Message)
}

// Params — сырые поля multipart-запроса до валидации.
type Params struct {
	// Category — категория файла (строка из формы)
	Category string
	// Format — формат файла (строка из формы)
	Format string
	// Filename — оригинальное имя файла из multipart part
	Filename string
	// Mimetype — Content-Type из multipart part
	Mimetype string
	// DeclaredSize — размер, заявленный клиентом (Content-Length части)
	DeclaredSize int64
	// Encoding — Content-Transfer-Encoding части (опционально)
	Encoding string
	// TitleEn, TitleRu — локализованные названия (опционально)
	TitleEn string
	TitleRu string
	// Chapter — номер главы (0 — не глава)
	Chapter int
	// Duration — длительность в секундах
	Duration int
	// Lang — трёхбуквенный код языка (опционально)
	Lang string
	// IsActive — признак активности (по умолчанию true)
	IsActive bool
}

// Request — валидированный неизменяемый дескриптор загрузки.
type Request struct {
	Category     model.Category
	Format       model.Format
	Filename     string
	Mimetype     string
	DeclaredSize int64
	Encoding     string
	TitleEn      string
	TitleRu      string
	Chapter      int
	Duration     int
	Lang         string
	IsActive     bool
}

// NewRequest валидирует сырые поля и возвращает Request.
// Проверки выполняются по порядку, возвращается первая нарушенная:
// категория → формат → имя файла → mimetype → размер → глава → длительность → язык.
func NewRequest(p Params) (*Request, error) {
	category := model.Category(strings.ToLower(strings.TrimSpace(p.Category)))
	if category == "" {
		return nil, &FieldError{
			Field:   "category",
			Key:     "upload.category_required",
			Message: "категория не указана",
		}
	}
	if _, ok := model.ConfigFor(category); !ok {
		return nil, &FieldError{
			Field:   "category",
			Key:     "upload.category_unknown",
			Message: fmt.Sprintf("неизвестная категория %q", p.Category),
		}
	}

	format := model.Format(strings.ToLower(strings.TrimSpace(p.Format)))
	if format == "" {
		return nil, &FieldError{
			Field:   "format",
			Key:     "upload.format_required",
			Message: "формат не указан",
		}
	}
	if !model.KnownFormat(format) {
		return nil, &FieldError{
			Field:   "format",
			Key:     "upload.format_unknown",
			Message: fmt.Sprintf("неизвестный формат %q", p.Format),
		}
	}

	if strings.TrimSpace(p.Filename) == "" {
		return nil, &FieldError{
			Field:   "filename",
			Key:     "upload.filename_required",
			Message: "имя файла пустое",
		}
	}

	mimetype := normalizeMimetype(p.Mimetype)
	if mimetype == "" {
		return nil, &FieldError{
			Field:   "mimetype",
			Key:     "upload.mimetype_required",
			Message: "MIME-тип не указан",
		}
	}

	if p.DeclaredSize <= 0 {
		return nil, &FieldError{
			Field:   "size",
			Key:     "upload.size_invalid",
			Message: fmt.Sprintf("размер должен быть положительным, получено %d", p.DeclaredSize),
		}
	}

	if p.Chapter < 0 || p.Chapter > MaxChapter {
		return nil, &FieldError{
			Field:   "chapter",
			Key:     "upload.chapter_invalid",
			Message: fmt.Sprintf("глава должна быть в диапазоне 0..%d, получено %d", MaxChapter, p.Chapter),
		}
	}

	if p.Duration < 0 {
		return nil, &FieldError{
			Field:   "duration",
			Key:     "upload.duration_invalid",
			Message: fmt.Sprintf("длительность не может быть отрицательной, получено %d", p.Duration),
		}
	}

	lang := strings.ToLower(strings.TrimSpace(p.Lang))
	if lang != "" && len(lang) != LangLength {
		return nil, &FieldError{
			Field:   "lang",
			Key:     "upload.lang_invalid",
			Message: fmt.Sprintf("код языка должен состоять из %d символов, получено %q", LangLength, p.Lang),
		}
	}

	return &Request{
		Category:     category,
		Format:       format,
		Filename:     p.Filename,
		Mimetype:     mimetype,
		DeclaredSize: p.DeclaredSize,
		Encoding:     p.Encoding,
		TitleEn:      strings.TrimSpace(p.TitleEn),
		TitleRu:      strings.TrimSpace(p.TitleRu),
		Chapter:      p.Chapter,
		Duration:     p.Duration,
		Lang:         lang,
		IsActive:     p.IsActive,
	}, nil
}

// SubPath возвращает поддиректорию хранения для пары категория/формат.
// Конструктор гарантирует, что категория поддерживается, поэтому функция тотальна.
func (r *Request) SubPath() string {
	subPath, _ := model.SubPath(r.Category, r.Format)
	return subPath
}

// Ext возвращает расширение имени файла (lower-case, с точкой).
// Пустая строка — расширения нет.
func (r *Request) Ext() string {
	idx := strings.LastIndex(r.Filename, ".")
	if idx < 0 || idx == len(r.Filename)-1 {
		return ""
	}
	return strings.ToLower(r.Filename[idx:])
}

// normalizeMimetype убирает параметры MIME-типа (charset и т.д.).
func normalizeMimetype(mimetype string) string {
	if idx := strings.Index(mimetype, ";"); idx != -1 {
		mimetype = mimetype[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimetype))
}
