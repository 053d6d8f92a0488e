package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/bookstore/media-module/internal/domain/model"
	"github.com/bigkaa/bookstore/media-module/internal/repository"
)

// fakeMediaRepo — репозиторий с данными в памяти.
type fakeMediaRepo struct {
	fakeRepo
	mu        sync.Mutex
	files     map[string]*model.MediaFile
	getErr    error
	deleteErr error
}

func newFakeMediaRepo(files ...*model.MediaFile) *fakeMediaRepo {
	r := &fakeMediaRepo{files: make(map[string]*model.MediaFile)}
	for _, f := range files {
		r.files[f.ID] = f
	}
	return r
}

func (r *fakeMediaRepo) GetByID(ctx context.Context, db repository.DBTX, id string) (*model.MediaFile, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return f, nil
}

func (r *fakeMediaRepo) List(ctx context.Context, db repository.DBTX, filters repository.MediaFilters, limit, offset int) ([]*model.MediaFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*model.MediaFile, 0, len(r.files))
	for _, f := range r.files {
		result = append(result, f)
	}
	return result, nil
}

func (r *fakeMediaRepo) Count(ctx context.Context, db repository.DBTX, filters repository.MediaFilters) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files), nil
}

func (r *fakeMediaRepo) Delete(ctx context.Context, db repository.DBTX, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.files[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.files, id)
	return nil
}

// fakeMediaStore — хранилище с реальными файлами во временной директории.
type fakeMediaStore struct {
	fakeStorage
	dir       string
	deleteErr error
}

func (s *fakeMediaStore) Delete(relPath string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.fakeStorage.Delete(relPath)
}

func (s *fakeMediaStore) OpenFile(relPath string) (*os.File, error) {
	return os.Open(filepath.Join(s.dir, filepath.FromSlash(relPath)))
}

// newTestMediaService собирает MediaService на стабах.
func newTestMediaService(repo *fakeMediaRepo, store *fakeMediaStore, db *fakeBeginner) (*MediaService, *CacheService) {
	cache := NewCacheService(16, time.Minute)
	svc := NewMediaService(db, nil, repo, store, cache, testLogger())
	return svc, cache
}

// testFile — запись файла для тестов.
func testFile(id string) *model.MediaFile {
	return &model.MediaFile{
		ID:          id,
		StoredName:  id + ".pdf",
		StoragePath: "books/files/" + id + ".pdf",
		Category:    model.CategoryEbook,
		Format:      model.FormatPDF,
		Size:        42,
		Checksum:    "abc",
		IsActive:    true,
	}
}

// TestMediaGet проверяет получение файла из БД и кэширование.
func TestMediaGet(t *testing.T) {
	file := testFile("id-1")
	repo := newFakeMediaRepo(file)
	svc, _ := newTestMediaService(repo, &fakeMediaStore{}, &fakeBeginner{})

	got, err := svc.Get(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("ошибка получения: %s", err.Message)
	}
	if got.ID != "id-1" {
		t.Errorf("ID: ожидалось id-1, получено %s", got.ID)
	}

	// Повторный запрос обслуживается кэшем: убираем запись из репозитория
	repo.mu.Lock()
	delete(repo.files, "id-1")
	repo.mu.Unlock()

	if _, err := svc.Get(context.Background(), "id-1"); err != nil {
		t.Errorf("повторный запрос должен обслуживаться кэшем: %s", err.Message)
	}
}

// TestMediaGet_NotFound проверяет 404 для несуществующего файла.
func TestMediaGet_NotFound(t *testing.T) {
	svc, _ := newTestMediaService(newFakeMediaRepo(), &fakeMediaStore{}, &fakeBeginner{})

	_, err := svc.Get(context.Background(), "missing")
	if err == nil {
		t.Fatal("ожидалась ошибка not found")
	}
	if err.StatusCode != 404 || err.Code != CodeNotFound {
		t.Errorf("ожидалось 404 %s, получено %d %s", CodeNotFound, err.StatusCode, err.Code)
	}
}

// TestMediaList проверяет список с общим количеством.
func TestMediaList(t *testing.T) {
	repo := newFakeMediaRepo(testFile("id-1"), testFile("id-2"))
	svc, _ := newTestMediaService(repo, &fakeMediaStore{}, &fakeBeginner{})

	files, total, err := svc.List(context.Background(), repository.MediaFilters{}, 100, 0)
	if err != nil {
		t.Fatalf("ошибка списка: %s", err.Message)
	}
	if len(files) != 2 || total != 2 {
		t.Errorf("ожидалось 2 файла, получено %d (total %d)", len(files), total)
	}
}

// TestMediaDownload проверяет открытие файла для скачивания.
func TestMediaDownload(t *testing.T) {
	dir := t.TempDir()
	file := testFile("id-1")

	// Кладём файл на диск по пути записи
	fullPath := filepath.Join(dir, filepath.FromSlash(file.StoragePath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		t.Fatalf("ошибка подготовки: %v", err)
	}
	if err := os.WriteFile(fullPath, []byte("content"), 0o640); err != nil {
		t.Fatalf("ошибка подготовки: %v", err)
	}

	repo := newFakeMediaRepo(file)
	svc, _ := newTestMediaService(repo, &fakeMediaStore{dir: dir}, &fakeBeginner{})

	meta, f, err := svc.Download(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("ошибка скачивания: %s", err.Message)
	}
	defer f.Close()

	if meta.ID != "id-1" {
		t.Errorf("метаданные: ожидалось id-1, получено %s", meta.ID)
	}
}

// TestMediaDownload_RegistryDesync проверяет 404 при рассинхронизации:
// запись в БД есть, файла на диске нет.
func TestMediaDownload_RegistryDesync(t *testing.T) {
	repo := newFakeMediaRepo(testFile("id-1"))
	svc, _ := newTestMediaService(repo, &fakeMediaStore{dir: t.TempDir()}, &fakeBeginner{})

	_, _, err := svc.Download(context.Background(), "id-1")
	if err == nil {
		t.Fatal("ожидалась ошибка для отсутствующего на диске файла")
	}
	if err.StatusCode != 404 {
		t.Errorf("статус: ожидалось 404, получено %d", err.StatusCode)
	}
}

// TestMediaDelete проверяет порядок удаления: строка БД в транзакции,
// затем физический файл.
func TestMediaDelete(t *testing.T) {
	file := testFile("id-1")
	repo := newFakeMediaRepo(file)
	store := &fakeMediaStore{}
	db := &fakeBeginner{}
	svc, cache := newTestMediaService(repo, store, db)

	// Прогреваем кэш
	if _, err := svc.Get(context.Background(), "id-1"); err != nil {
		t.Fatalf("ошибка получения: %s", err.Message)
	}

	if err := svc.Delete(context.Background(), "id-1"); err != nil {
		t.Fatalf("ошибка удаления: %s", err.Message)
	}

	if !db.lastTx(t).committed {
		t.Error("удаление строки должно быть закоммичено")
	}
	if len(store.deleted) != 1 || store.deleted[0] != file.StoragePath {
		t.Errorf("физический файл должен быть удалён: %v", store.deleted)
	}
	if _, ok := cache.Get("id-1"); ok {
		t.Error("кэш должен быть инвалидирован")
	}
	if _, err := repo.GetByID(context.Background(), nil, "id-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Error("строка должна быть удалена из БД")
	}
}

// TestMediaDelete_FileFailureIsBestEffort проверяет политику
// «БД авторитетна, диск best-effort»: сбой физического удаления
// после коммита не делает операцию ошибочной.
func TestMediaDelete_FileFailureIsBestEffort(t *testing.T) {
	file := testFile("id-1")
	repo := newFakeMediaRepo(file)
	store := &fakeMediaStore{deleteErr: errors.New("диск недоступен")}
	db := &fakeBeginner{}
	svc, _ := newTestMediaService(repo, store, db)

	if err := svc.Delete(context.Background(), "id-1"); err != nil {
		t.Fatalf("сбой физического удаления не должен быть ошибкой операции: %s", err.Message)
	}

	if _, err := repo.GetByID(context.Background(), nil, "id-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Error("строка должна быть удалена несмотря на сбой диска")
	}
}

// TestMediaDelete_NotFound проверяет 404 для несуществующего файла.
func TestMediaDelete_NotFound(t *testing.T) {
	svc, _ := newTestMediaService(newFakeMediaRepo(), &fakeMediaStore{}, &fakeBeginner{})

	err := svc.Delete(context.Background(), "missing")
	if err == nil {
		t.Fatal("ожидалась ошибка not found")
	}
	if err.StatusCode != 404 {
		t.Errorf("статус: ожидалось 404, получено %d", err.StatusCode)
	}
}

// TestMediaDelete_DBFailure_KeepsFile проверяет, что при сбое удаления
// строки физический файл остаётся на месте.
func TestMediaDelete_DBFailure_KeepsFile(t *testing.T) {
	file := testFile("id-1")
	repo := newFakeMediaRepo(file)
	repo.deleteErr = errors.New("ошибка БД")
	store := &fakeMediaStore{}
	svc, _ := newTestMediaService(repo, store, &fakeBeginner{})

	if err := svc.Delete(context.Background(), "id-1"); err == nil {
		t.Fatal("ожидалась ошибка удаления")
	}
	if len(store.deleted) != 0 {
		t.Error("при сбое БД физический файл не должен удаляться")
	}
}
