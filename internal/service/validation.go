// validation.go — сервис валидации загружаемых файлов.
//
// Проверки выполняются по порядку, падение на первой нарушенной:
//  1. MIME-тип входит в допустимые для категории
//  2. 0 < размер <= максимум категории
//  3. расширение входит в допустимые для категории
//  4. расширение согласовано с заявленным форматом (с алиасингом .jpg/.jpeg)
//
// Дополнительная проверка содержимого (magic bytes) — независимая защита
// от файлов с подменённым MIME/расширением.
package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/bigkaa/bookstore/media-module/internal/domain/model"
)

// ContentHeadSize — сколько байт начала файла нужно проверке содержимого.
const ContentHeadSize = 512

// Validator — сервис валидации файлов по правилам категорий.
type Validator struct{}

// NewValidator создаёт сервис валидации.
func NewValidator() *Validator {
	return &Validator{}
}

// Rules возвращает правила категории.
// false — категория не поддерживается. Единственный авторитет
// поддержки категории (та же таблица, что и у маршрутизации путей).
func (v *Validator) Rules(category model.Category) (model.CategoryConfig, bool) {
	return model.ConfigFor(category)
}

// ValidateFile проверяет метаданные файла против правил категории.
// Возвращает nil при успехе или параметризованную ошибку
// (допустимое против полученного) для локализованного сообщения клиенту.
func (v *Validator) ValidateFile(mime string, size int64, filename string, category model.Category, format model.Format) *Error {
	rules, ok := v.Rules(category)
	if !ok {
		return validationErr("upload.category_unknown", "неизвестная категория %q", category)
	}

	// 1. MIME-тип
	if !rules.AllowedMIME[mime] {
		return validationErr("validation.mime_not_allowed",
			"MIME-тип %q недопустим для категории %s, допустимые: %s",
			mime, category, joinSet(rules.AllowedMIME))
	}

	// 2. Размер
	if size <= 0 {
		return validationErr("validation.size_invalid",
			"размер должен быть положительным, получено %d", size)
	}
	if size > rules.MaxSize {
		return &Error{
			StatusCode: 413,
			Code:       CodeFileTooLarge,
			Key:        "validation.file_too_large",
			Message:    fmt.Sprintf("размер %d байт превышает максимум %d байт для категории %s",
				size, rules.MaxSize, category),
		}
	}

	// 3. Расширение
	ext := extOf(filename)
	if !rules.AllowedExt[ext] {
		return validationErr("validation.ext_not_allowed",
			"расширение %q недопустимо для категории %s, допустимые: %s",
			ext, category, joinSet(rules.AllowedExt))
	}

	// 4. Согласованность формат/расширение
	if !model.FormatAllowsExt(format, ext) {
		return validationErr("validation.format_ext_mismatch",
			"расширение %q не соответствует формату %s, допустимые: %s",
			ext, format, strings.Join(sorted(model.FormatExtensions(format)), ", "))
	}

	return nil
}

// ValidateContent проверяет magic bytes начала файла против заявленного формата.
// head — первые байты файла (достаточно ContentHeadSize).
// Проверка независима от MIME/расширения: JPEG SOI, PNG signature,
// PDF header, MP3 ID3/sync и контейнеры EPUB/FB2 распознаются по содержимому.
func (v *Validator) ValidateContent(head []byte, format model.Format) *Error {
	if len(head) == 0 {
		return &Error{
			StatusCode: 400,
			Code:       CodeContentMismatch,
			Key:        "validation.content_empty",
			Message:    "файл пуст",
		}
	}

	detected := mimetype.Detect(head)
	if contentMatches(detected, format) {
		return nil
	}

	return &Error{
		StatusCode: 400,
		Code:       CodeContentMismatch,
		Key:        "validation.content_mismatch",
		Message:    fmt.Sprintf("содержимое файла (%s) не соответствует заявленному формату %s",
			detected.String(), format),
	}
}

// contentMatches сопоставляет результат детекции magic bytes с форматом.
func contentMatches(detected *mimetype.MIME, format model.Format) bool {
	switch format {
	case model.FormatPDF:
		return detected.Is("application/pdf")
	case model.FormatEPUB:
		// EPUB — zip-контейнер; без центрального каталога детектор видит zip
		return detected.Is("application/epub+zip") || detected.Is("application/zip")
	case model.FormatFB2:
		return detected.Is("text/xml") || detected.Is("application/xml")
	case model.FormatPNG:
		return detected.Is("image/png")
	case model.FormatJPG, model.FormatJPEG:
		return detected.Is("image/jpeg")
	case model.FormatMP3:
		return detected.Is("audio/mpeg")
	default:
		return false
	}
}

// extOf возвращает расширение имени файла: lower-case суффикс после
// последней точки, с точкой. Пустая строка — расширения нет.
func extOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx:])
}

// joinSet возвращает отсортированный список ключей множества для сообщений об ошибках.
func joinSet(set map[string]bool) string {
	items := make([]string, 0, len(set))
	for k := range set {
		items = append(items, k)
	}
	return strings.Join(sorted(items), ", ")
}

func sorted(items []string) []string {
	sort.Strings(items)
	return items
}
