// batch.go — пакетная загрузка файлов с ограниченным параллелизмом.
//
// Каждый файл проходит собственный полный цикл Upload; сбой одного
// файла не прерывает пакет. Параллелизм ограничен семафором на
// buffered-канале: одновременно в полёте не больше BatchConcurrency
// операций записи на диск и транзакций БД.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/bookstore/media-module/internal/domain/model"
)

// Prometheus метрики batch-загрузки
var (
	// batchFilesTotal — количество файлов batch-загрузок по результату.
	batchFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mm_batch_files_total",
			Help: "Общее количество файлов batch-загрузок",
		},
		[]string{"result"},
	)

	// batchDuration — длительность batch-загрузки целиком.
	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mm_batch_duration_seconds",
		Help:    "Длительность batch-загрузки в секундах",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
	})
)

// BatchFailure — сбой одного файла пакета.
type BatchFailure struct {
	// Filename — оригинальное имя файла
	Filename string
	// Err — ошибка загрузки (ключ i18n + диагностика)
	Err *Error
}

// BatchResult — итог пакетной загрузки.
type BatchResult struct {
	// Uploaded — успешно загруженные файлы
	Uploaded []*model.MediaFile
	// Failed — сбои по файлам
	Failed []BatchFailure
	// TotalSize — суммарный измеренный размер успешных загрузок
	TotalSize int64
	// Elapsed — wall-clock время пакета
	Elapsed time.Duration
}

// BatchUploader — оркестратор пакетной загрузки.
type BatchUploader struct {
	uploader    *Uploader
	maxFiles    int
	concurrency int
	logger      *slog.Logger
}

// NewBatchUploader создаёт оркестратор пакетной загрузки.
// maxFiles — лимит файлов в пакете, concurrency — ширина параллелизма.
func NewBatchUploader(uploader *Uploader, maxFiles, concurrency int, logger *slog.Logger) *BatchUploader {
	return &BatchUploader{
		uploader:    uploader,
		maxFiles:    maxFiles,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "batch_uploader")),
	}
}

// UploadBatch загружает пакет файлов.
// Пакет больше лимита отклоняется до начала какой-либо обработки.
// Результаты пишутся в заранее выделенные слоты по индексу файла,
// поэтому горутины не конкурируют за общие ячейки.
func (b *BatchUploader) UploadBatch(ctx context.Context, inputs []UploadInput) (*BatchResult, *Error) {
	if len(inputs) == 0 {
		return nil, validationErr("batch.empty", "пакет не содержит файлов")
	}
	if len(inputs) > b.maxFiles {
		return nil, &Error{
			StatusCode: 400,
			Code:       CodeBatchTooLarge,
			Key:        "batch.too_large",
			Message:    fmt.Sprintf("количество файлов %d превышает лимит %d", len(inputs), b.maxFiles),
		}
	}

	start := time.Now()
	b.logger.Info("Batch-загрузка начата",
		slog.Int("files", len(inputs)),
		slog.Int("concurrency", b.concurrency),
	)

	type slot struct {
		file *model.MediaFile
		err  *Error
	}
	slots := make([]slot, len(inputs))

	// Семафор ограничивает число одновременных загрузок
	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			file, err := b.uploader.Upload(ctx, inputs[i])
			slots[i] = slot{file: file, err: err}
		}(i)
	}
	wg.Wait()

	result := &BatchResult{}
	for i, s := range slots {
		if s.err != nil {
			result.Failed = append(result.Failed, BatchFailure{
				Filename: inputs[i].Params.Filename,
				Err:      s.err,
			})
			batchFilesTotal.WithLabelValues("failure").Inc()
			continue
		}
		result.Uploaded = append(result.Uploaded, s.file)
		result.TotalSize += s.file.Size
		batchFilesTotal.WithLabelValues("success").Inc()
	}
	result.Elapsed = time.Since(start)
	batchDuration.Observe(result.Elapsed.Seconds())

	b.logger.Info("Batch-загрузка завершена",
		slog.Int("uploaded", len(result.Uploaded)),
		slog.Int("failed", len(result.Failed)),
		slog.Int64("total_size", result.TotalSize),
		slog.Duration("elapsed", result.Elapsed),
	)

	return result, nil
}
