package singleinstance

import (
	"log"
	"os"
	"strconv"
)

const (
	PortEnvVar  = "SINGLEINSTANCE_PORT"
	DefaultPort = 49560
)

// getPort returns the loopback port claimed by the resident. Values outside
// [1024, 65535] fall back to DefaultPort.
func getPort() int {
	v := os.Getenv(PortEnvVar)
	if v == "" {
		return DefaultPort
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1024 || n > 65535 {
		log.Printf("singleinstance: ignoring %s=%q", PortEnvVar, v)
		return DefaultPort
	}
	return n
}
