package cache

import (
	"strings"
	"sync"
	"time"
)

// TTL guarda payloads JSON já serializados por um prazo fixo. Usado para os
// relatórios de produtividade; escritas de agenda invalidam por prefixo.
type TTL struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// New cria o cache e dispara o coletor de entradas vencidas.
func New(ttl time.Duration) *TTL {
	c := &TTL{entries: make(map[string]entry), ttl: ttl}
	go c.sweep()
	return c
}

func (c *TTL) sweep() {
	interval := c.ttl
	if interval < time.Second {
		interval = time.Second
	}
	for range time.Tick(interval) {
		now := time.Now()
		c.mu.Lock()
		for k, e := range c.entries {
			if e.expiresAt.Before(now) {
				delete(c.entries, k)
			}
		}
		c.mu.Unlock()
	}
}

// Get retorna o payload se presente e ainda válido; nil caso contrário.
func (c *TTL) Get(key string) []byte {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || e.expiresAt.Before(time.Now()) {
		return nil
	}
	return e.data
}

func (c *TTL) Set(key string, value []byte) {
	c.mu.Lock()
	c.entries[key] = entry{data: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *TTL) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// DeletePrefix remove todas as chaves com o prefixo (ex.: "report:" após
// qualquer escrita na agenda).
func (c *TTL) DeletePrefix(prefix string) {
	c.mu.Lock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
