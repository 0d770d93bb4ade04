package domain

// EdgeKind - тип бинарного отношения между двумя сущностями.
type EdgeKind int

const (
	// EdgeFollow: From - подписчик (follower), To - на кого подписаны (followee).
	EdgeFollow EdgeKind = iota + 1
	// EdgeLike: From - пользователь, To - статья.
	EdgeLike
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeFollow:
		return "follow"
	case EdgeLike:
		return "like"
	default:
		return "unknown"
	}
}

// Edge - ребро отношения. Пара (From, To) уникальна в пределах типа.
type Edge struct {
	Kind EdgeKind
	From uint
	To   uint
}

// FollowEdge - follower подписан на followee.
func FollowEdge(followerID, followeeID uint) Edge {
	return Edge{Kind: EdgeFollow, From: followerID, To: followeeID}
}

// LikeEdge - userID лайкнул статью articleID.
func LikeEdge(userID, articleID uint) Edge {
	return Edge{Kind: EdgeLike, From: userID, To: articleID}
}

// SelfReferential сообщает, что ребро подписки указывает само на себя.
func (e Edge) SelfReferential() bool {
	return e.Kind == EdgeFollow && e.From == e.To
}
