//go:build wasm

package registry

import "sync"

// wasm runs a single goroutine at a time, a global stack is enough
var (
	mu     sync.Mutex
	scopes []*App
)

func push(a *App) {
	mu.Lock()
	defer mu.Unlock()

	scopes = append(scopes, a)
}

func pop() {
	mu.Lock()
	defer mu.Unlock()

	if len(scopes) == 0 {
		return
	}

	scopes[len(scopes)-1] = nil
	scopes = scopes[:len(scopes)-1]
}

func top() *App {
	mu.Lock()
	defer mu.Unlock()

	if len(scopes) == 0 {
		return nil
	}

	return scopes[len(scopes)-1]
}
