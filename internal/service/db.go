// db.go — узкие интерфейсы транзакций для сервисного слоя.
// Позволяют подменять PostgreSQL в тестах компенсационной логики,
// не поднимая контейнер.
package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/bookstore/media-module/internal/repository"
)

// Tx — транзакция с возможностью выполнения запросов.
// Удовлетворяется pgx.Tx.
type Tx interface {
	repository.DBTX
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxBeginner открывает транзакции.
type TxBeginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// PoolBeginner — производственная реализация TxBeginner поверх pgxpool.
type PoolBeginner struct {
	Pool *pgxpool.Pool
}

// Begin открывает транзакцию в пуле.
func (p PoolBeginner) Begin(ctx context.Context) (Tx, error) {
	return p.Pool.Begin(ctx)
}
