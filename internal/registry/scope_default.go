//go:build !wasm

package registry

import (
	"sync"

	"github.com/petermattis/goid"
)

// app stacks keyed by goroutine id; each stack is only touched by its own goroutine
var scopes sync.Map

func push(a *App) {
	gid := getGID()

	stack, _ := scopes.Load(gid)
	apps, _ := stack.([]*App)
	scopes.Store(gid, append(apps, a))
}

func pop() {
	gid := getGID()

	stack, ok := scopes.Load(gid)
	if !ok {
		return
	}

	apps := stack.([]*App)
	if len(apps) <= 1 {
		scopes.Delete(gid)
		return
	}

	apps[len(apps)-1] = nil
	scopes.Store(gid, apps[:len(apps)-1])
}

func top() *App {
	stack, ok := scopes.Load(getGID())
	if !ok {
		return nil
	}

	apps := stack.([]*App)
	return apps[len(apps)-1]
}

func getGID() int64 {
	return goid.Get()
}
