package clipboard

import (
	"errors"
	"log"
	"sync"

	"golang.design/x/clipboard"
)

var ErrUnavailable = errors.New("clipboard not initialized")

var (
	writeMu sync.Mutex
	ready   bool
)

// Init prepares the system clipboard. Write fails until Init succeeds.
func Init() error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if err := clipboard.Init(); err != nil {
		log.Printf("Clipboard: init failed: %v", err)
		return err
	}
	ready = true
	return nil
}

// Write performs a mutex-guarded clipboard write of text.
func Write(text string) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if !ready {
		return ErrUnavailable
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
