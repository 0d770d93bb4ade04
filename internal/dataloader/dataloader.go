package dataloader

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/UkralStul/social-articles-service/internal/domain"
)

type contextKey string

const key = contextKey("dataloaders")

// UserSource - батчевый источник пользователей.
type UserSource interface {
	GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]*domain.User, error)
}

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	UserByID *dataloader.Loader
}

// NewLoaders создает лоадеры поверх источника.
func NewLoaders(store UserSource) *Loaders {
	// Создаем батч-функцию для лоадера
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]uint, len(keys))
		for i, k := range keys {
			id, _ := strconv.ParseUint(k.String(), 10, 64)
			ids[i] = uint(id)
		}

		// Вызываем метод хранилища, который делает ОДИН запрос к БД
		users, err := store.GetUsersByIDs(ctx, ids)
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			results[i] = &dataloader.Result{Data: users[id]}
		}
		return results
	}

	return &Loaders{
		UserByID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond)),
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store UserSource, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), key, NewLoaders(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// For извлекает лоадеры из контекста, nil вне HTTP-запроса.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// Nicknames возвращает ники пользователей по id. Использует лоадеры запроса,
// а без них обращается к хранилищу напрямую одним вызовом.
func Nicknames(ctx context.Context, store UserSource, ids []uint) (map[uint]string, error) {
	result := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	loaders := For(ctx)
	if loaders == nil {
		users, err := store.GetUsersByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for id, u := range users {
			result[id] = u.Nickname
		}
		return result, nil
	}

	// Сначала ставим все ключи в очередь, чтобы они попали в один батч
	thunks := make([]dataloader.Thunk, len(ids))
	for i, id := range ids {
		thunks[i] = loaders.UserByID.Load(ctx, dataloader.StringKey(strconv.FormatUint(uint64(id), 10)))
	}
	for i, thunk := range thunks {
		data, err := thunk()
		if err != nil {
			return nil, err
		}
		if u, ok := data.(*domain.User); ok && u != nil {
			result[ids[i]] = u.Nickname
		}
	}
	return result, nil
}
