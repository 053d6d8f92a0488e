// rules.go — единая таблица конфигурации категорий.
// Правила валидации и маппинг в поддиректорию хранения живут в одной
// структуре CategoryConfig, чтобы они не могли разойтись: категория,
// неизвестная валидации, неизвестна и маршрутизации путей.
package model

import "path"

// Размерные константы для лимитов.
const (
	KB int64 = 1 << 10
	MB int64 = 1 << 20
)

// CategoryConfig — конфигурация одной категории: допустимые MIME-типы,
// максимальный размер, допустимые расширения и префикс пути хранения.
type CategoryConfig struct {
	// AllowedMIME — множество допустимых MIME-типов
	AllowedMIME map[string]bool
	// MaxSize — максимальный размер файла в байтах
	MaxSize int64
	// AllowedExt — множество допустимых расширений (с точкой, lower-case)
	AllowedExt map[string]bool
	// PathPrefix — корневая поддиректория категории в data dir
	PathPrefix string
}

// MIME-типы, сгруппированные по классам содержимого.
var (
	imageMIME = map[string]bool{
		"image/png":  true,
		"image/jpeg": true,
	}
	imageExt = map[string]bool{
		".png":  true,
		".jpg":  true,
		".jpeg": true,
	}
)

// categories — единственный источник истины о поддерживаемых категориях.
var categories = map[Category]CategoryConfig{
	CategoryEbook: {
		AllowedMIME: map[string]bool{
			"application/pdf":               true,
			"application/epub+zip":          true,
			"application/x-fictionbook+xml": true,
			"application/octet-stream":      true,
			"text/xml":                      true,
		},
		MaxSize:    50 * MB,
		AllowedExt: map[string]bool{".pdf": true, ".epub": true, ".fb2": true},
		PathPrefix: "books",
	},
	CategoryAudiobook: {
		AllowedMIME: map[string]bool{
			"audio/mpeg": true,
			"audio/mp3":  true,
		},
		MaxSize:    200 * MB,
		AllowedExt: map[string]bool{".mp3": true},
		PathPrefix: "books",
	},
	CategoryCover: {
		AllowedMIME: imageMIME,
		MaxSize:     10 * MB,
		AllowedExt:  imageExt,
		PathPrefix:  "books",
	},
	CategoryAuthorCover: {
		AllowedMIME: imageMIME,
		MaxSize:     10 * MB,
		AllowedExt:  imageExt,
		PathPrefix:  "authors",
	},
	CategoryGenreCover: {
		AllowedMIME: imageMIME,
		MaxSize:     10 * MB,
		AllowedExt:  imageExt,
		PathPrefix:  "genres",
	},
	CategoryNewsImage: {
		AllowedMIME: imageMIME,
		MaxSize:     10 * MB,
		AllowedExt:  imageExt,
		PathPrefix:  "news",
	},
	CategoryLanguageIcon: {
		AllowedMIME: imageMIME,
		MaxSize:     1 * MB,
		AllowedExt:  imageExt,
		PathPrefix:  "languages",
	},
}

// formatExtensions — соответствие формат → допустимые расширения.
// Допускает алиасинг: формат JPEG принимает и .jpg, и .jpeg.
var formatExtensions = map[Format]map[string]bool{
	FormatPDF:  {".pdf": true},
	FormatEPUB: {".epub": true},
	FormatFB2:  {".fb2": true},
	FormatPNG:  {".png": true},
	FormatJPG:  {".jpg": true, ".jpeg": true},
	FormatJPEG: {".jpg": true, ".jpeg": true},
	FormatMP3:  {".mp3": true},
}

// imageFormats — форматы, относящиеся к изображениям.
// Изображения хранятся в поддиректории cover, остальные форматы — в files.
var imageFormats = map[Format]bool{
	FormatPNG:  true,
	FormatJPG:  true,
	FormatJPEG: true,
}

// ConfigFor возвращает конфигурацию категории.
// false — категория не поддерживается. Это единственный источник истины
// о поддержке категории: и для валидации, и для маршрутизации путей.
func ConfigFor(c Category) (CategoryConfig, bool) {
	cfg, ok := categories[c]
	return cfg, ok
}

// KnownFormat сообщает, поддерживается ли формат.
func KnownFormat(f Format) bool {
	_, ok := formatExtensions[f]
	return ok
}

// FormatAllowsExt проверяет согласованность формата и расширения файла.
// ext — расширение с точкой, lower-case.
func FormatAllowsExt(f Format, ext string) bool {
	exts, ok := formatExtensions[f]
	if !ok {
		return false
	}
	return exts[ext]
}

// FormatExtensions возвращает список расширений формата (для сообщений об ошибках).
func FormatExtensions(f Format) []string {
	exts := formatExtensions[f]
	result := make([]string, 0, len(exts))
	for e := range exts {
		result = append(result, e)
	}
	return result
}

// IsImageFormat сообщает, является ли формат изображением.
func IsImageFormat(f Format) bool {
	return imageFormats[f]
}

// SubPath возвращает поддиректорию хранения для пары категория/формат.
// Тотальна над поддерживаемыми категориями: изображения попадают в
// <prefix>/cover, остальные форматы — в <prefix>/files.
// false — категория не поддерживается (fallback на сырую строку категории
// из исходной системы намеренно убран).
func SubPath(c Category, f Format) (string, bool) {
	cfg, ok := categories[c]
	if !ok {
		return "", false
	}
	if IsImageFormat(f) {
		return path.Join(cfg.PathPrefix, "cover"), true
	}
	return path.Join(cfg.PathPrefix, "files"), true
}
