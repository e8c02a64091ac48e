package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SCHOLARIS_TEST_MODE") == "" {
			_ = os.Setenv("SCHOLARIS_TEST_MODE", "1")
		}
	})
}
