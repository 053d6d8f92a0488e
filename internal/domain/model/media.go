// Пакет model — доменные модели Media Module.
package model

import "time"

// Category — категория загружаемого файла.
// Определяет правила валидации и место хранения на диске.
type Category string

// Категории файлов книжного магазина.
const (
	CategoryEbook        Category = "ebook"
	CategoryAudiobook    Category = "audiobook"
	CategoryCover        Category = "cover"
	CategoryAuthorCover  Category = "author-cover"
	CategoryGenreCover   Category = "genre-cover"
	CategoryNewsImage    Category = "news-image"
	CategoryLanguageIcon Category = "language-icon"
)

// Format — конкретный формат (кодировка) файла.
type Format string

// Поддерживаемые форматы файлов.
const (
	FormatPDF  Format = "pdf"
	FormatEPUB Format = "epub"
	FormatFB2  Format = "fb2"
	FormatPNG  Format = "png"
	FormatJPG  Format = "jpg"
	FormatJPEG Format = "jpeg"
	FormatMP3  Format = "mp3"
)

// MediaFile — запись файла в реестре.
// Хранится в таблице media_files. Единственная durable-сущность,
// связывающая логическую пару категория/формат с физическим файлом на диске.
type MediaFile struct {
	// ID — UUID файла (генерируется при загрузке)
	ID string
	// StoredName — сгенерированное имя файла на диске (uuid.ext)
	StoredName string
	// StoragePath — относительный путь файла в data dir
	StoragePath string
	// Category — категория файла
	Category Category
	// Format — формат файла
	Format Format
	// Size — измеренный размер в байтах (реально записанные байты,
	// а не заявленный клиентом размер)
	Size int64
	// Checksum — SHA-256 контрольная сумма содержимого
	Checksum string
	// TitleEn — название на английском (опционально)
	TitleEn *string
	// TitleRu — название на русском (опционально)
	TitleRu *string
	// Chapter — номер главы (0 — не глава)
	Chapter int
	// Duration — длительность в секундах (для аудио, 0 — неприменимо)
	Duration int
	// Lang — трёхбуквенный код языка (опционально)
	Lang *string
	// IsActive — признак активности записи
	IsActive bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
