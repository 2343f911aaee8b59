// SPDX-FileCopyrightText: 2026 Aizu Analytics, Inc.
// SPDX-License-Identifier: Apache-2.0

package inmem

import (
	"sync"

	"github.com/AizuGit/cdn/store"
)

type InMem struct {
	data map[string]string
	lock sync.Mutex
}

func NewInMem() store.KV {
	return &InMem{
		data: map[string]string{},
	}
}

func (i *InMem) Get(key string) (string, error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	value, ok := i.data[key]
	if !ok {
		return "", store.ErrKeyNotFound
	}
	return value, nil
}

func (i *InMem) Set(key, value string) error {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.data[key] = value
	return nil
}

func (i *InMem) Remove(key string) error {
	i.lock.Lock()
	defer i.lock.Unlock()
	delete(i.data, key)
	return nil
}
