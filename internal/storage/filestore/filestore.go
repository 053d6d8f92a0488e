// Пакет filestore — операции с физическими файлами на диске.
// Обеспечивает streaming-запись с подсчётом размера и SHA-256 на лету,
// удаление и получение информации о файлах. Файлы никогда не
// материализуются в памяти целиком.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore — управление физическими файлами на диске.
type FileStore struct {
	// dataDir — корневая директория хранения файлов (MM_DATA_DIR)
	dataDir string
}

// StoreResult — результат сохранения файла на диск.
type StoreResult struct {
	// RelPath — относительный путь файла в dataDir (включая поддиректорию)
	RelPath string
	// StoredName — сгенерированное имя файла (uuid.ext)
	StoredName string
	// FullPath — абсолютный путь файла на диске
	FullPath string
	// Size — количество реально записанных байт.
	// Авторитетно: заявленный клиентом размер никогда не используется.
	Size int64
	// Checksum — SHA-256 хэш содержимого файла
	Checksum string
}

// New создаёт новый FileStore. Проверяет и создаёт корневую директорию,
// если она не существует.
func New(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}

	return &FileStore{dataDir: dataDir}, nil
}

// StoreFile записывает данные из reader на диск одним проходом,
// одновременно считая размер и SHA-256. Имя файла — сгенерированный
// UUID с расширением оригинального имени: клиентское имя никогда не
// попадает в путь (traversal, коллизии).
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При любой ошибке, включая отмену ctx посреди потока, частично
// записанный temp файл удаляется до возврата ошибки.
func (fs *FileStore) StoreFile(ctx context.Context, reader io.Reader, originalFilename, subPath string) (*StoreResult, error) {
	// Директория назначения (рекурсивно, идемпотентно)
	dir := filepath.Join(fs.dataDir, filepath.FromSlash(subPath))
	if err := fs.EnsureDir(dir); err != nil {
		return nil, err
	}

	storedName := generateStoredName(originalFilename)
	relPath := filepath.ToSlash(filepath.Join(filepath.FromSlash(subPath), storedName))
	fullPath := filepath.Join(dir, storedName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	// Streaming запись с одновременным подсчётом SHA-256.
	// Отмена контекста прерывает чтение между блоками.
	hasher := sha256.New()
	tee := io.TeeReader(&contextReader{ctx: ctx, r: reader}, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &StoreResult{
		RelPath:    relPath,
		StoredName: storedName,
		FullPath:   fullPath,
		Size:       size,
		Checksum:   hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// OpenFile открывает файл для чтения и возвращает *os.File.
// relPath — относительный путь файла в dataDir.
// Вызывающий код обязан закрыть файл.
func (fs *FileStore) OpenFile(relPath string) (*os.File, error) {
	f, err := os.Open(fs.FullPath(relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("файл не найден: %s", relPath)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", relPath, err)
	}

	return f, nil
}

// FullPath возвращает абсолютный путь к файлу на диске.
func (fs *FileStore) FullPath(relPath string) string {
	return filepath.Join(fs.dataDir, filepath.FromSlash(relPath))
}

// Delete удаляет файл с диска. Идемпотентен: отсутствие файла — успех,
// любая другая ошибка ОС пробрасывается.
func (fs *FileStore) Delete(relPath string) error {
	err := os.Remove(fs.FullPath(relPath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", relPath, err)
	}
	return nil
}

// Exists проверяет существование файла на диске.
func (fs *FileStore) Exists(relPath string) bool {
	_, err := os.Stat(fs.FullPath(relPath))
	return err == nil
}

// FileSize возвращает размер файла на диске.
func (fs *FileStore) FileSize(relPath string) (int64, error) {
	info, err := os.Stat(fs.FullPath(relPath))
	if err != nil {
		return 0, fmt.Errorf("ошибка получения информации о файле %s: %w", relPath, err)
	}
	return info.Size(), nil
}

// EnsureDir создаёт директорию рекурсивно. Идемпотентна.
func (fs *FileStore) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}
	return nil
}

// DataDir возвращает путь к корневой директории данных.
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

// contextReader прерывает чтение при отмене контекста.
// Гарантирует, что обрыв клиентского соединения проходит через
// обычный путь обработки ошибок записи (с удалением temp файла).
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}

// generateStoredName генерирует имя файла для хранения: {uuid}.{ext}.
// Расширение берётся из оригинального имени (lower-case), само имя — нет.
func generateStoredName(originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	return uuid.New().String() + ext
}
