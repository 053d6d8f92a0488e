// media.go — операции над реестром файлов: получение, список,
// скачивание и удаление.
//
// Удаление не атомарно между БД и диском: строка БД удаляется в
// транзакции первой, физический файл — вторым, best-effort. Сбой
// удаления файла после коммита логируется, операция остаётся успешной
// (политика «БД авторитетна, диск best-effort»).
package service

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/bigkaa/bookstore/media-module/internal/domain/model"
	"github.com/bigkaa/bookstore/media-module/internal/repository"
)

// MediaStorage — хранилище с доступом на чтение для скачивания.
type MediaStorage interface {
	Storage
	OpenFile(relPath string) (*os.File, error)
}

// MediaService — операции над существующими записями файлов.
type MediaService struct {
	db     TxBeginner
	reader repository.DBTX
	repo   repository.MediaRepository
	store  MediaStorage
	cache  *CacheService
	logger *slog.Logger
}

// NewMediaService создаёт сервис операций над файлами.
// reader — соединение для читающих запросов (пул), db — для транзакций.
func NewMediaService(
	db TxBeginner,
	reader repository.DBTX,
	repo repository.MediaRepository,
	store MediaStorage,
	cache *CacheService,
	logger *slog.Logger,
) *MediaService {
	return &MediaService{
		db:     db,
		reader: reader,
		repo:   repo,
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "media_service")),
	}
}

// Get возвращает метаданные файла: сначала кэш, при промахе — БД.
func (s *MediaService) Get(ctx context.Context, id string) (*model.MediaFile, *Error) {
	if file, ok := s.cache.Get(id); ok {
		return file, nil
	}

	file, err := s.repo.GetByID(ctx, s.reader, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundErr(id)
		}
		s.logger.Error("Ошибка получения файла", slog.String("file_id", id), slog.String("error", err.Error()))
		return nil, internalErr(CodeInternalError, "media.get_failed", "ошибка получения файла %s: %v", id, err)
	}

	s.cache.Set(id, file)
	return file, nil
}

// List возвращает страницу файлов и общее количество.
func (s *MediaService) List(ctx context.Context, filters repository.MediaFilters, limit, offset int) ([]*model.MediaFile, int, *Error) {
	files, err := s.repo.List(ctx, s.reader, filters, limit, offset)
	if err != nil {
		s.logger.Error("Ошибка получения списка файлов", slog.String("error", err.Error()))
		return nil, 0, internalErr(CodeInternalError, "media.list_failed", "ошибка получения списка: %v", err)
	}

	total, err := s.repo.Count(ctx, s.reader, filters)
	if err != nil {
		s.logger.Error("Ошибка подсчёта файлов", slog.String("error", err.Error()))
		return nil, 0, internalErr(CodeInternalError, "media.list_failed", "ошибка подсчёта: %v", err)
	}

	return files, total, nil
}

// Download открывает файл для скачивания и возвращает метаданные и дескриптор.
// Вызывающий код обязан закрыть файл.
func (s *MediaService) Download(ctx context.Context, id string) (*model.MediaFile, *os.File, *Error) {
	file, svcErr := s.Get(ctx, id)
	if svcErr != nil {
		return nil, nil, svcErr
	}

	f, err := s.store.OpenFile(file.StoragePath)
	if err != nil {
		// Запись есть, файла нет — рассинхронизация реестра и диска
		s.logger.Error("Файл реестра отсутствует на диске",
			slog.String("file_id", id),
			slog.String("storage_path", file.StoragePath),
			slog.String("error", err.Error()),
		)
		return nil, nil, notFoundErr(id)
	}

	return file, f, nil
}

// Delete удаляет файл: строка БД в транзакции, затем физический файл.
// Сбой физического удаления после коммита только логируется — клиенту
// операция отчитывается успешной.
func (s *MediaService) Delete(ctx context.Context, id string) *Error {
	file, svcErr := s.Get(ctx, id)
	if svcErr != nil {
		return svcErr
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		s.logger.Error("Ошибка начала транзакции", slog.String("error", err.Error()))
		return internalErr(CodeInternalError, "media.delete_failed", "ошибка начала транзакции: %v", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := s.repo.Delete(ctx, tx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFoundErr(id)
		}
		s.logger.Error("Ошибка удаления записи файла", slog.String("file_id", id), slog.String("error", err.Error()))
		return internalErr(CodeInternalError, "media.delete_failed", "ошибка удаления записи %s: %v", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		s.logger.Error("Ошибка коммита удаления", slog.String("file_id", id), slog.String("error", err.Error()))
		return internalErr(CodeInternalError, "media.delete_failed", "ошибка коммита удаления %s: %v", id, err)
	}

	s.cache.Delete(id)

	// Физическое удаление — best-effort после коммита
	if err := s.store.Delete(file.StoragePath); err != nil {
		s.logger.Error("Запись удалена, но физический файл удалить не удалось",
			slog.String("file_id", id),
			slog.String("storage_path", file.StoragePath),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("Файл удалён",
		slog.String("file_id", id),
		slog.String("storage_path", file.StoragePath),
	)
	return nil
}

// notFoundErr — ошибка «файл не найден» (404).
func notFoundErr(id string) *Error {
	return &Error{
		StatusCode: 404,
		Code:       CodeNotFound,
		Key:        "media.not_found",
		Message:    "файл " + id + " не найден",
	}
}
