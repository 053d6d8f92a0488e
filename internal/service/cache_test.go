package service

import (
	"testing"
	"time"

	"github.com/bigkaa/bookstore/media-module/internal/domain/model"
)

// TestCache_SetGet проверяет запись и чтение из кэша.
func TestCache_SetGet(t *testing.T) {
	c := NewCacheService(10, time.Minute)

	file := &model.MediaFile{ID: "id-1", StoredName: "a.pdf"}
	c.Set(file.ID, file)

	got, ok := c.Get(file.ID)
	if !ok {
		t.Fatal("ожидался hit")
	}
	if got.StoredName != "a.pdf" {
		t.Errorf("ожидалось a.pdf, получено %s", got.StoredName)
	}
}

// TestCache_Miss проверяет промах для незнакомого ключа.
func TestCache_Miss(t *testing.T) {
	c := NewCacheService(10, time.Minute)

	if _, ok := c.Get("unknown"); ok {
		t.Error("ожидался miss")
	}
}

// TestCache_Delete проверяет инвалидацию.
func TestCache_Delete(t *testing.T) {
	c := NewCacheService(10, time.Minute)

	file := &model.MediaFile{ID: "id-2"}
	c.Set(file.ID, file)
	c.Delete(file.ID)

	if _, ok := c.Get(file.ID); ok {
		t.Error("запись должна быть удалена из кэша")
	}
}

// TestCache_TTL проверяет истечение записей по TTL.
func TestCache_TTL(t *testing.T) {
	c := NewCacheService(10, 50*time.Millisecond)

	c.Set("id-3", &model.MediaFile{ID: "id-3"})
	time.Sleep(120 * time.Millisecond)

	if _, ok := c.Get("id-3"); ok {
		t.Error("запись должна истечь по TTL")
	}
}

// TestCache_Eviction проверяет вытеснение при переполнении.
func TestCache_Eviction(t *testing.T) {
	c := NewCacheService(2, time.Minute)

	c.Set("id-1", &model.MediaFile{ID: "id-1"})
	c.Set("id-2", &model.MediaFile{ID: "id-2"})
	c.Set("id-3", &model.MediaFile{ID: "id-3"})

	// Самая старая запись вытеснена
	if _, ok := c.Get("id-1"); ok {
		t.Error("id-1 должен быть вытеснен")
	}
	if _, ok := c.Get("id-3"); !ok {
		t.Error("id-3 должен остаться в кэше")
	}
}
