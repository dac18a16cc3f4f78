package engine

import (
	"crypto/sha1"
	"fmt"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters fixed by IEEE 802.11i.
const (
	pbkdf2Iterations = 4096
	pmkLength        = 32
)

// cpuBackend computes each PBKDF2 independently across a worker pool. Results
// are written by index, so output order always matches input order regardless
// of which worker finishes first.
type cpuBackend struct {
	workers int
}

func newCPUBackend(workers int) *cpuBackend {
	return &cpuBackend{workers: workers}
}

func (c *cpuBackend) init() error { return nil }

func (c *cpuBackend) name() string {
	return fmt.Sprintf("CPU (%d cores)", c.workers)
}

func (c *cpuBackend) release() {}

func (c *cpuBackend) derive(passwords []string, ssid string) ([][]byte, error) {
	pmks := make([][]byte, len(passwords))
	salt := []byte(ssid)

	indexCh := make(chan int, len(passwords))
	for i := range passwords {
		indexCh <- i
	}
	close(indexCh)

	var wg sync.WaitGroup
	workers := c.workers
	if workers > len(passwords) {
		workers = len(passwords)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				pmks[i] = pbkdf2.Key([]byte(passwords[i]), salt, pbkdf2Iterations, pmkLength, sha1.New)
			}
		}()
	}
	wg.Wait()

	return pmks, nil
}
