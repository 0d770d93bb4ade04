package feed

import (
	"sync"

	"github.com/google/uuid"
)

// Event - новый комментарий, отправляемый подписчикам статьи.
type Event struct {
	ID        uint   `json:"id"`
	ArticleID uint   `json:"articleId"`
	Author    string `json:"author,omitempty"`
	Anonymous bool   `json:"anonymous"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

// Observer хранит каналы подписчиков на комментарии статей.
type Observer struct {
	mu sync.RWMutex
	//          map[articleID] map[subscriberID] channel
	subs map[uint]map[string]chan Event
}

// NewObserver - конструктор наблюдателя.
func NewObserver() *Observer {
	return &Observer{
		subs: make(map[uint]map[string]chan Event),
	}
}

// Subscribe регистрирует подписчика. Вызывающий обязан вызвать cancel.
func (o *Observer) Subscribe(articleID uint, buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[articleID] == nil {
		o.subs[articleID] = make(map[string]chan Event)
	}
	o.subs[articleID][subID] = ch
	o.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if articleSubs, ok := o.subs[articleID]; ok {
				delete(articleSubs, subID)
				if len(articleSubs) == 0 {
					delete(o.subs, articleID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish рассылает событие без блокировки: медленный подписчик теряет событие.
func (o *Observer) Publish(e Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	for _, ch := range o.subs[e.ArticleID] {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers - число подписчиков статьи.
func (o *Observer) Subscribers(articleID uint) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[articleID])
}
