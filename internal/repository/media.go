package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/bookstore/media-module/internal/domain/model"
)

// MediaRepository — интерфейс доступа к таблице media_files.
// Реализация принимает DBTX, поэтому один и тот же репозиторий работает
// и с пулом, и внутри транзакции загрузки.
type MediaRepository interface {
	// Create создаёт новую запись файла.
	Create(ctx context.Context, db DBTX, f *model.MediaFile) error
	// GetByID возвращает файл по UUID.
	GetByID(ctx context.Context, db DBTX, id string) (*model.MediaFile, error)
	// List возвращает список файлов с фильтрацией и пагинацией.
	List(ctx context.Context, db DBTX, filters MediaFilters, limit, offset int) ([]*model.MediaFile, error)
	// Count возвращает количество файлов с фильтрацией.
	Count(ctx context.Context, db DBTX, filters MediaFilters) (int, error)
	// Delete удаляет запись файла. Возвращает ErrNotFound, если записи нет.
	Delete(ctx context.Context, db DBTX, id string) error
}

// MediaFilters — фильтры для списка файлов.
type MediaFilters struct {
	Category *model.Category
	IsActive *bool
}

// mediaRepo — реализация MediaRepository.
type mediaRepo struct{}

// NewMediaRepository создаёт репозиторий файлового реестра.
func NewMediaRepository() MediaRepository {
	return &mediaRepo{}
}

// mediaColumns — список колонок media_files в порядке сканирования.
const mediaColumns = `id, stored_name, storage_path, category, format, size, checksum,
	title_en, title_ru, chapter, duration, lang, is_active, created_at, updated_at`

func (r *mediaRepo) Create(ctx context.Context, db DBTX, f *model.MediaFile) error {
	query := `
		INSERT INTO media_files (id, stored_name, storage_path, category, format, size,
			checksum, title_en, title_ru, chapter, duration, lang, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	err := db.QueryRow(ctx, query,
		f.ID, f.StoredName, f.StoragePath, f.Category, f.Format, f.Size,
		f.Checksum, f.TitleEn, f.TitleRu, f.Chapter, f.Duration, f.Lang, f.IsActive,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: файл с таким ID или путём уже зарегистрирован", ErrConflict)
		}
		return fmt.Errorf("ошибка регистрации файла: %w", err)
	}
	return nil
}

func (r *mediaRepo) GetByID(ctx context.Context, db DBTX, id string) (*model.MediaFile, error) {
	query := `SELECT ` + mediaColumns + ` FROM media_files WHERE id = $1`

	f := &model.MediaFile{}
	err := db.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.StoredName, &f.StoragePath, &f.Category, &f.Format, &f.Size, &f.Checksum,
		&f.TitleEn, &f.TitleRu, &f.Chapter, &f.Duration, &f.Lang, &f.IsActive,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// buildMediaWhere строит WHERE-условие и аргументы для фильтрации файлов.
func buildMediaWhere(filters MediaFilters, startArg int) (string, []any) {
	var conditions []string
	var args []any
	argNum := startArg

	if filters.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argNum))
		args = append(args, *filters.Category)
		argNum++
	}
	if filters.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argNum))
		args = append(args, *filters.IsActive)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

func (r *mediaRepo) List(ctx context.Context, db DBTX, filters MediaFilters, limit, offset int) ([]*model.MediaFile, error) {
	where, args := buildMediaWhere(filters, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(
		`SELECT %s FROM media_files %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		mediaColumns, where, argNum, argNum+1,
	)
	args = append(args, limit, offset)

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.MediaFile
	for rows.Next() {
		f := &model.MediaFile{}
		if err := rows.Scan(
			&f.ID, &f.StoredName, &f.StoragePath, &f.Category, &f.Format, &f.Size, &f.Checksum,
			&f.TitleEn, &f.TitleRu, &f.Chapter, &f.Duration, &f.Lang, &f.IsActive,
			&f.CreatedAt, &f.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *mediaRepo) Count(ctx context.Context, db DBTX, filters MediaFilters) (int, error) {
	where, args := buildMediaWhere(filters, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM media_files %s`, where)

	var count int
	if err := db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}
	return count, nil
}

func (r *mediaRepo) Delete(ctx context.Context, db DBTX, id string) error {
	tag, err := db.Exec(ctx, `DELETE FROM media_files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
