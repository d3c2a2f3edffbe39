package service

import (
	"crypto/rand"
	"math/big"
	"sync"
)

const (
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenLength   = 7
)

// NewToken случайный токен попытки из [A-Z0-9]. Токен из одних цифр
// неотличим от user_id, поэтому такие варианты отбрасываются
func NewToken() (string, error) {
	limit := big.NewInt(int64(len(tokenAlphabet)))
	b := make([]byte, tokenLength)
	for {
		for i := range b {
			n, err := rand.Int(rand.Reader, limit)
			if err != nil {
				return "", err
			}
			b[i] = tokenAlphabet[n.Int64()]
		}
		if !isDigits(string(b)) {
			return string(b), nil
		}
	}
}

// keyedMutex сериализует операции над одним токеном
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
