// Пакет service — бизнес-логика Media Module.
// upload.go — use case загрузки файла: валидация → запись на диск →
// регистрация в БД внутри транзакции → commit, с компенсацией при сбое.
package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/bookstore/media-module/internal/domain/model"
	"github.com/bigkaa/bookstore/media-module/internal/domain/upload"
	"github.com/bigkaa/bookstore/media-module/internal/repository"
	"github.com/bigkaa/bookstore/media-module/internal/storage/filestore"
)

// Prometheus метрики загрузки
var (
	// uploadsTotal — количество загрузок по результату.
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_uploads_total",
			Help: "Общее количество загрузок файлов",
		},
		[]string{"result"},
	)

	// uploadBytesTotal — объём успешно загруженных данных.
	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mm_upload_bytes_total",
		Help: "Общий объём успешно загруженных данных в байтах",
	})

	// uploadDuration — длительность одиночной загрузки.
	uploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mm_upload_duration_seconds",
		Help:    "Длительность одиночной загрузки в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// Storage — абстракция файлового хранилища.
// Производственная реализация — *filestore.FileStore.
type Storage interface {
	StoreFile(ctx context.Context, reader io.Reader, originalFilename, subPath string) (*filestore.StoreResult, error)
	Delete(relPath string) error
}

// Проверка на этапе компиляции
var _ Storage = (*filestore.FileStore)(nil)

// UploadInput — один загружаемый файл: сырые поля формы и поток данных.
type UploadInput struct {
	Params upload.Params
	Reader io.Reader
}

// Uploader — use case загрузки файлов.
type Uploader struct {
	validator *Validator
	store     Storage
	db        TxBeginner
	repo      repository.MediaRepository
	logger    *slog.Logger
}

// NewUploader создаёт use case загрузки файлов.
func NewUploader(
	validator *Validator,
	store Storage,
	db TxBeginner,
	repo repository.MediaRepository,
	logger *slog.Logger,
) *Uploader {
	return &Uploader{
		validator: validator,
		store:     store,
		db:        db,
		repo:      repo,
		logger:    logger.With(slog.String("component", "uploader")),
	}
}

// Upload выполняет полный цикл загрузки одного файла.
//
// Порядок:
//  1. Построение upload.Request — любое нарушение инвариантов до I/O
//  2. Чтение заголовка потока (валидации нужны первые байты, хранилищу —
//     весь поток; оба видят одни и те же байты через io.MultiReader)
//  3. Валидация правил категории и magic bytes — отказ здесь ничего не пишет
//  4. Begin транзакции БД
//  5. StoreFile — при ошибке откат (ещё пустой) транзакции
//  6. INSERT записи с ИЗМЕРЕННЫМИ размером и checksum внутри транзакции
//  7. Commit
//
// Компенсация при сбое после записи на диск: сначала откат транзакции,
// затем удаление записанного файла. Ошибки самой компенсации логируются,
// но никогда не подменяют исходную ошибку.
//
// Хранение выполняется ДО записи в БД: осиротевший файл компенсируется
// удалением, тогда как строка БД, указывающая на несуществующий файл,
// вводила бы в заблуждение всех её читателей.
func (u *Uploader) Upload(ctx context.Context, in UploadInput) (*model.MediaFile, *Error) {
	start := time.Now()

	// 1. Value object: fail fast до какого-либо I/O
	req, err := upload.NewRequest(in.Params)
	if err != nil {
		var fieldErr *upload.FieldError
		if errors.As(err, &fieldErr) {
			uploadsTotal.WithLabelValues("rejected").Inc()
			return nil, &Error{
				StatusCode: 400,
				Code:       CodeValidationError,
				Key:        fieldErr.Key,
				Message:    fieldErr.Error(),
			}
		}
		uploadsTotal.WithLabelValues("rejected").Inc()
		return nil, validationErr("upload.invalid", "некорректный запрос: %v", err)
	}

	u.logger.Info("Загрузка начата",
		slog.String("filename", req.Filename),
		slog.String("category", string(req.Category)),
		slog.String("format", string(req.Format)),
		slog.Int64("declared_size", req.DeclaredSize),
	)

	// 2. Заголовок потока для проверки содержимого.
	// MultiReader гарантирует, что хранилище увидит те же байты.
	head := make([]byte, ContentHeadSize)
	n, readErr := io.ReadFull(in.Reader, head)
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, internalErr(CodeUploadFailed, "upload.failed",
			"ошибка чтения потока %s: %v", req.Filename, readErr)
	}
	head = head[:n]
	stream := io.MultiReader(bytes.NewReader(head), in.Reader)

	// 3. Валидация: отказ здесь — ничего не записано ни на диск, ни в БД
	if vErr := u.validator.ValidateFile(req.Mimetype, req.DeclaredSize, req.Filename, req.Category, req.Format); vErr != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		u.logger.Warn("Файл отклонён валидацией",
			slog.String("filename", req.Filename),
			slog.String("reason", vErr.Message),
		)
		return nil, vErr
	}
	if vErr := u.validator.ValidateContent(head, req.Format); vErr != nil {
		uploadsTotal.WithLabelValues("rejected").Inc()
		u.logger.Warn("Содержимое файла отклонено",
			slog.String("filename", req.Filename),
			slog.String("reason", vErr.Message),
		)
		return nil, vErr
	}

	// 4. Транзакция БД
	tx, txErr := u.db.Begin(ctx)
	if txErr != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		u.logger.Error("Ошибка начала транзакции", slog.String("error", txErr.Error()))
		return nil, internalErr(CodeUploadFailed, "upload.failed",
			"ошибка начала транзакции: %v", txErr)
	}
	// Финализация транзакции на любом пути выхода: после Commit откат — no-op
	defer tx.Rollback(ctx) //nolint:errcheck

	// 5. Запись на диск: при ошибке откатываем (ещё пустую) транзакцию
	stored, storeErr := u.store.StoreFile(ctx, stream, req.Filename, req.SubPath())
	if storeErr != nil {
		u.rollback(ctx, tx, nil)
		uploadsTotal.WithLabelValues("error").Inc()
		u.logger.Error("Ошибка сохранения файла",
			slog.String("filename", req.Filename),
			slog.String("error", storeErr.Error()),
		)
		return nil, internalErr(CodeUploadFailed, "upload.failed",
			"ошибка сохранения файла на диск: %v", storeErr)
	}

	// 6. Запись в реестр: размер и checksum — только измеренные хранилищем
	file := &model.MediaFile{
		ID:          uuid.New().String(),
		StoredName:  stored.StoredName,
		StoragePath: stored.RelPath,
		Category:    req.Category,
		Format:      req.Format,
		Size:        stored.Size,
		Checksum:    stored.Checksum,
		TitleEn:     optional(req.TitleEn),
		TitleRu:     optional(req.TitleRu),
		Chapter:     req.Chapter,
		Duration:    req.Duration,
		Lang:        optional(req.Lang),
		IsActive:    req.IsActive,
	}

	if dbErr := u.repo.Create(ctx, tx, file); dbErr != nil {
		u.rollback(ctx, tx, stored)
		uploadsTotal.WithLabelValues("error").Inc()
		u.logger.Error("Ошибка регистрации файла в БД",
			slog.String("file_id", file.ID),
			slog.String("storage_path", stored.RelPath),
			slog.String("error", dbErr.Error()),
		)
		return nil, internalErr(CodeUploadFailed, "upload.failed",
			"ошибка регистрации файла: %v", dbErr)
	}

	// 7. Commit
	if commitErr := tx.Commit(ctx); commitErr != nil {
		u.rollback(ctx, tx, stored)
		uploadsTotal.WithLabelValues("error").Inc()
		u.logger.Error("Ошибка коммита транзакции",
			slog.String("file_id", file.ID),
			slog.String("error", commitErr.Error()),
		)
		return nil, internalErr(CodeUploadFailed, "upload.failed",
			"ошибка коммита транзакции: %v", commitErr)
	}

	elapsed := time.Since(start)
	uploadsTotal.WithLabelValues("success").Inc()
	uploadBytesTotal.Add(float64(stored.Size))
	uploadDuration.Observe(elapsed.Seconds())

	u.logger.Info("Файл загружен",
		slog.String("file_id", file.ID),
		slog.String("filename", req.Filename),
		slog.String("storage_path", stored.RelPath),
		slog.Int64("size", stored.Size),
		slog.String("checksum", stored.Checksum),
		slog.Duration("elapsed", elapsed),
	)

	return file, nil
}

// rollback — компенсация неудачной загрузки: откат транзакции, затем
// удаление записанного файла (если был). Ошибки компенсации логируются
// и не подменяют исходную ошибку вызывающего кода.
func (u *Uploader) rollback(ctx context.Context, tx Tx, stored *filestore.StoreResult) {
	if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, context.Canceled) {
		u.logger.Error("Ошибка отката транзакции", slog.String("error", rbErr.Error()))
	}
	if stored != nil {
		if delErr := u.store.Delete(stored.RelPath); delErr != nil {
			u.logger.Error("Ошибка удаления файла при компенсации",
				slog.String("storage_path", stored.RelPath),
				slog.String("error", delErr.Error()),
			)
		}
	}
}

// optional превращает пустую строку в nil-указатель для nullable-колонок.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
