// Package environment tracks the deployment stage the process runs in so
// any package can branch on it.
package environment

import "sync"

const (
	Dev     = "dev"
	Prod    = "prod"
	Test    = "test"
	Staging = "staging"
)

var (
	current = Test
	once    sync.Once
)

// SetCurrent should be called once at startup to set the current environment.
func SetCurrent(env string) {
	once.Do(func() {
		switch env {
		case Dev, Test, Staging, Prod:
			current = env
		default:
			panic("unexpected environment: " + env)
		}
	})
}

// GetCurrent returns the current environment.
func GetCurrent() string {
	return current
}

func IsTest() bool {
	return current == Test
}

func IsDev() bool {
	return current == Dev
}

func IsProd() bool {
	return current == Prod
}
