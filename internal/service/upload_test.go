package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/bookstore/media-module/internal/domain/model"
	"github.com/bigkaa/bookstore/media-module/internal/domain/upload"
	"github.com/bigkaa/bookstore/media-module/internal/repository"
	"github.com/bigkaa/bookstore/media-module/internal/storage/filestore"
)

// --- Стабы зависимостей ---

// fakeStorage — in-memory хранилище: измеряет поток так же, как
// настоящее (реально прочитанные байты, SHA-256 содержимого).
type fakeStorage struct {
	mu       sync.Mutex
	stored   []string
	deleted  []string
	storeErr error
}

func (s *fakeStorage) StoreFile(ctx context.Context, reader io.Reader, originalFilename, subPath string) (*filestore.StoreResult, error) {
	if s.storeErr != nil {
		return nil, s.storeErr
	}

	hasher := sha256.New()
	size, err := io.Copy(hasher, reader)
	if err != nil {
		return nil, err
	}

	storedName := uuid.New().String()
	relPath := subPath + "/" + storedName

	s.mu.Lock()
	s.stored = append(s.stored, relPath)
	s.mu.Unlock()

	return &filestore.StoreResult{
		RelPath:    relPath,
		StoredName: storedName,
		Size:       size,
		Checksum:   hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (s *fakeStorage) Delete(relPath string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, relPath)
	s.mu.Unlock()
	return nil
}

// fakeTx — транзакция-заглушка, фиксирующая commit/rollback.
type fakeTx struct {
	mu         sync.Mutex
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.mu.Lock()
	t.committed = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	t.rolledBack = true
	t.mu.Unlock()
	return nil
}

// fakeBeginner — TxBeginner, выдающий заготовленные транзакции.
type fakeBeginner struct {
	mu       sync.Mutex
	txs      []*fakeTx
	beginErr error
	// commitErr передаётся каждой новой транзакции
	commitErr error
}

func (b *fakeBeginner) Begin(ctx context.Context) (Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	tx := &fakeTx{commitErr: b.commitErr}
	b.mu.Lock()
	b.txs = append(b.txs, tx)
	b.mu.Unlock()
	return tx, nil
}

func (b *fakeBeginner) lastTx(t *testing.T) *fakeTx {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.txs) == 0 {
		t.Fatal("транзакция не начиналась")
	}
	return b.txs[len(b.txs)-1]
}

// fakeRepo — репозиторий-заглушка, фиксирующий созданные записи.
type fakeRepo struct {
	mu        sync.Mutex
	created   []*model.MediaFile
	createErr error
}

func (r *fakeRepo) Create(ctx context.Context, db repository.DBTX, f *model.MediaFile) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	r.created = append(r.created, f)
	r.mu.Unlock()
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, db repository.DBTX, id string) (*model.MediaFile, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeRepo) List(ctx context.Context, db repository.DBTX, filters repository.MediaFilters, limit, offset int) ([]*model.MediaFile, error) {
	return nil, nil
}

func (r *fakeRepo) Count(ctx context.Context, db repository.DBTX, filters repository.MediaFilters) (int, error) {
	return 0, nil
}

func (r *fakeRepo) Delete(ctx context.Context, db repository.DBTX, id string) error {
	return nil
}

// testLogger — slog без вывода.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestUploader собирает Uploader на стабах.
func newTestUploader(store Storage, db *fakeBeginner, repo *fakeRepo) *Uploader {
	return NewUploader(NewValidator(), store, db, repo, testLogger())
}

// pdfInput — корректный вход загрузки PDF.
func pdfInput(content []byte) UploadInput {
	return UploadInput{
		Params: upload.Params{
			Category:     "ebook",
			Format:       "pdf",
			Filename:     "book.pdf",
			Mimetype:     "application/pdf",
			DeclaredSize: int64(len(content)),
			TitleEn:      "Test Book",
			IsActive:     true,
		},
		Reader: bytes.NewReader(content),
	}
}

// --- Тесты ---

// TestUpload_Success проверяет полный успешный цикл загрузки.
func TestUpload_Success(t *testing.T) {
	store := &fakeStorage{}
	db := &fakeBeginner{}
	repo := &fakeRepo{}
	u := newTestUploader(store, db, repo)

	file, err := u.Upload(context.Background(), pdfInput(pdfHead))
	if err != nil {
		t.Fatalf("ошибка загрузки: %s", err.Message)
	}

	if file.ID == "" {
		t.Error("ID файла должен быть сгенерирован")
	}
	if file.Category != model.CategoryEbook || file.Format != model.FormatPDF {
		t.Errorf("категория/формат: получено %s/%s", file.Category, file.Format)
	}
	if len(store.stored) != 1 {
		t.Fatalf("ожидалась одна запись на диск, получено %d", len(store.stored))
	}
	if file.StoragePath != store.stored[0] {
		t.Errorf("StoragePath должен совпадать с путём хранилища: %s != %s", file.StoragePath, store.stored[0])
	}
	if !db.lastTx(t).committed {
		t.Error("транзакция должна быть закоммичена")
	}
	if len(store.deleted) != 0 {
		t.Errorf("при успехе ничего не удаляется, удалено %d", len(store.deleted))
	}
	if len(repo.created) != 1 {
		t.Fatalf("ожидалась одна запись в БД, получено %d", len(repo.created))
	}
}

// TestUpload_MeasuredSizeAuthoritative проверяет, что в реестр попадают
// измеренные размер и checksum, а не заявленные клиентом.
func TestUpload_MeasuredSizeAuthoritative(t *testing.T) {
	store := &fakeStorage{}
	db := &fakeBeginner{}
	repo := &fakeRepo{}
	u := newTestUploader(store, db, repo)

	in := pdfInput(pdfHead)
	in.Params.DeclaredSize = 999999 // клиент врёт о размере

	file, err := u.Upload(context.Background(), in)
	if err != nil {
		t.Fatalf("ошибка загрузки: %s", err.Message)
	}

	if file.Size != int64(len(pdfHead)) {
		t.Errorf("размер: ожидалось измеренное %d, получено %d", len(pdfHead), file.Size)
	}

	expectedHash := sha256.Sum256(pdfHead)
	if file.Checksum != hex.EncodeToString(expectedHash[:]) {
		t.Errorf("checksum должен считаться от реального содержимого: %s", file.Checksum)
	}
}

// TestUpload_ValidationRejected_NoSideEffects проверяет, что отказ валидации
// не оставляет следов ни на диске, ни в БД.
func TestUpload_ValidationRejected_NoSideEffects(t *testing.T) {
	store := &fakeStorage{}
	db := &fakeBeginner{}
	repo := &fakeRepo{}
	u := newTestUploader(store, db, repo)

	in := pdfInput(pdfHead)
	in.Params.Category = "video"

	_, err := u.Upload(context.Background(), in)
	if err == nil {
		t.Fatal("ожидался отказ валидации")
	}
	if err.StatusCode != 400 {
		t.Errorf("статус: ожидалось 400, получено %d", err.StatusCode)
	}
	if len(store.stored) != 0 {
		t.Error("при отказе валидации на диск ничего не пишется")
	}
	if len(db.txs) != 0 {
		t.Error("при отказе валидации транзакция не начинается")
	}
	if len(repo.created) != 0 {
		t.Error("при отказе валидации в БД ничего не пишется")
	}
}

// TestUpload_ContentMismatch_NoSideEffects проверяет отказ по magic bytes.
func TestUpload_ContentMismatch_NoSideEffects(t *testing.T) {
	store := &fakeStorage{}
	db := &fakeBeginner{}
	repo := &fakeRepo{}
	u := newTestUploader(store, db, repo)

	// PNG-содержимое под видом PDF
	in := pdfInput(pngHead)

	_, err := u.Upload(context.Background(), in)
	if err == nil {
		t.Fatal("ожидался отказ по содержимому")
	}
	if err.Code != CodeContentMismatch {
		t.Errorf("код: ожидалось %s, получено %s", CodeContentMismatch, err.Code)
	}
	if len(store.stored) != 0 || len(db.txs) != 0 {
		t.Error("отказ по содержимому не должен оставлять следов")
	}
}

// TestUpload_StoreFails проверяет откат транзакции при сбое записи на диск.
func TestUpload_StoreFails(t *testing.T) {
	store := &fakeStorage{storeErr: errors.New("диск переполнен")}
	db := &fakeBeginner{}
	repo := &fakeRepo{}
	u := newTestUploader(store, db, repo)

	_, err := u.Upload(context.Background(), pdfInput(pdfHead))
	if err == nil {
		t.Fatal("ожидалась ошибка записи")
	}
	if err.Code != CodeUploadFailed {
		t.Errorf("код: ожидалось %s, получено %s", CodeUploadFailed, err.Code)
	}

	tx := db.lastTx(t)
	if !tx.rolledBack {
		t.Error("транзакция должна быть откачена")
	}
	if tx.committed {
		t.Error("транзакция не должна быть закоммичена")
	}
	if len(store.deleted) != 0 {
		t.Error("нечего удалять: запись на диск не состоялась")
	}
}

// TestUpload_DBCreateFails_Compensation проверяет компенсацию:
// при сбое INSERT записанный файл удаляется с диска.
func TestUpload_DBCreateFails_Compensation(t *testing.T) {
	store := &fakeStorage{}
	db := &fakeBeginner{}
	repo := &fakeRepo{createErr: errors.New("нарушение ограничения")}
	u := newTestUploader(store, db, repo)

	_, err := u.Upload(context.Background(), pdfInput(pdfHead))
	if err == nil {
		t.Fatal("ожидалась ошибка регистрации")
	}
	if err.StatusCode != 500 {
		t.Errorf("статус: ожидалось 500, получено %d", err.StatusCode)
	}

	if !db.lastTx(t).rolledBack {
		t.Error("транзакция должна быть откачена")
	}
	if len(store.stored) != 1 {
		t.Fatalf("файл должен был быть записан до сбоя, записано %d", len(store.stored))
	}
	if len(store.deleted) != 1 || store.deleted[0] != store.stored[0] {
		t.Errorf("записанный файл должен быть удалён компенсацией: удалено %v", store.deleted)
	}
}

// TestUpload_CommitFails_Compensation проверяет компенсацию при сбое коммита.
func TestUpload_CommitFails_Compensation(t *testing.T) {
	store := &fakeStorage{}
	db := &fakeBeginner{commitErr: errors.New("соединение разорвано")}
	repo := &fakeRepo{}
	u := newTestUploader(store, db, repo)

	_, err := u.Upload(context.Background(), pdfInput(pdfHead))
	if err == nil {
		t.Fatal("ожидалась ошибка коммита")
	}

	if !db.lastTx(t).rolledBack {
		t.Error("транзакция должна быть откачена")
	}
	if len(store.deleted) != 1 {
		t.Errorf("записанный файл должен быть удалён компенсацией: удалено %v", store.deleted)
	}
}

// TestUpload_BeginFails проверяет ошибку начала транзакции до записи на диск.
func TestUpload_BeginFails(t *testing.T) {
	store := &fakeStorage{}
	db := &fakeBeginner{beginErr: errors.New("пул исчерпан")}
	repo := &fakeRepo{}
	u := newTestUploader(store, db, repo)

	_, err := u.Upload(context.Background(), pdfInput(pdfHead))
	if err == nil {
		t.Fatal("ожидалась ошибка начала транзакции")
	}
	if len(store.stored) != 0 {
		t.Error("при ошибке Begin на диск ничего не пишется")
	}
}
