//go:build !windows

package main

import (
	"log"

	"screen-translate/src/screenshot"
)

func enableDPIAwareness() {}

func logMonitorConfiguration() {
	b, err := screenshot.VirtualBounds()
	if err != nil {
		log.Printf("MONITOR: %v", err)
		return
	}
	log.Printf("MONITOR: virtual screen x:%d y:%d w:%d h:%d", b.Min.X, b.Min.Y, b.Dx(), b.Dy())
}
