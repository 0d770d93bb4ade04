package domain

import "fmt"

// Topic - рубрика статьи.
type Topic string

const (
	TopicAll     Topic = "all"
	TopicGame    Topic = "game"
	TopicMovie   Topic = "movie"
	TopicBook    Topic = "book"
	TopicMusic   Topic = "music"
	TopicPicture Topic = "picture"
)

var topicLabels = map[Topic]string{
	TopicAll:     "----",
	TopicGame:    "게임",
	TopicMovie:   "영화",
	TopicBook:    "책",
	TopicMusic:   "음악",
	TopicPicture: "그림",
}

// Topics возвращает все рубрики в порядке отображения.
func Topics() []Topic {
	return []Topic{TopicAll, TopicGame, TopicMovie, TopicBook, TopicMusic, TopicPicture}
}

// ParseTopic проверяет, что значение входит в фиксированный список рубрик.
func ParseTopic(s string) (Topic, error) {
	t := Topic(s)
	if _, ok := topicLabels[t]; !ok {
		return "", NewValidationError("topic", fmt.Sprintf("%q is not a valid choice", s))
	}
	return t, nil
}

// Label - подпись рубрики для отображения.
func (t Topic) Label() string {
	return topicLabels[t]
}
