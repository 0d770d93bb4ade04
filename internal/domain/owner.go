package domain

// Owner - владелец комментария: либо пользователь, либо аноним с паролем.
// Нулевое значение невалидно, создавать только через конструкторы.
type Owner struct {
	userID uint
	secret string
}

// AuthoredBy - комментарий, написанный пользователем.
func AuthoredBy(userID uint) Owner {
	return Owner{userID: userID}
}

// AnonymousWithSecret - анонимный комментарий, защищенный хешем пароля.
func AnonymousWithSecret(passwordHash string) Owner {
	return Owner{secret: passwordHash}
}

// Author возвращает id автора, если комментарий не анонимный.
func (o Owner) Author() (uint, bool) {
	return o.userID, o.userID != 0
}

// Secret возвращает хеш пароля анонимного комментария.
func (o Owner) Secret() (string, bool) {
	return o.secret, o.userID == 0 && o.secret != ""
}

func (o Owner) IsAnonymous() bool {
	return o.userID == 0
}

// Valid проверяет, что задан ровно один вариант.
func (o Owner) Valid() bool {
	return (o.userID != 0) != (o.secret != "")
}
