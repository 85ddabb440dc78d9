package password

import (
	"errors"

	"github.com/alexedwards/argon2id"
)

// Параметры подобраны под маленький хост (1 vCPU / 1GB RAM): память
// вдвое ниже библиотечного дефолта, взамен две итерации. Хеш считается
// за десятки миллисекунд — логин не тормозит, перебор всё ещё дорогой.
var serviceParams = &argon2id.Params{
	Memory:      32 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

type Hasher struct {
	params *argon2id.Params
}

func NewDefault() *Hasher { return &Hasher{params: serviceParams} }

func New(p *argon2id.Params) *Hasher { return &Hasher{params: p} }

// Hash кодирует пароль в строку $argon2id$v=19$m=... — соль и параметры
// внутри, в базе лежит как есть.
func (h *Hasher) Hash(plain string) (string, error) {
	if h == nil || h.params == nil {
		return "", errors.New("argon2id params not set")
	}
	return argon2id.CreateHash(plain, h.params)
}

func (h *Hasher) Verify(plain, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(plain, encodedHash)
}
