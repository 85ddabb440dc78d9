package web

import "github.com/EgorLis/my-books/internal/domain"

type Repos struct {
	Users   domain.UsersRepo
	History domain.HistoryRepo
}

type AuthDeps struct {
	Hasher    domain.PasswordHasher
	Tokens    domain.TokenManager
	Blacklist domain.TokenBlacklist
}
