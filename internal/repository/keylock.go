package repository

import "sync"

// keyLock 进度键级别的互斥：同一 (user, course, level, ordinal) 的
// 读-改-写串行执行，防止双击/重试导致的计数器双增。
// 锁对象按键惰性创建，进程内常驻（活跃键数量有限）。
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*sync.Mutex)}
}

func (k *keyLock) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

// Do 持有 key 对应的锁执行 fn
func (k *keyLock) Do(key string, fn func() error) error {
	l := k.get(key)
	l.Lock()
	defer l.Unlock()
	return fn()
}
