//go:build linux

package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// SetMaxResources raises the open file limit to its hard maximum, since
// badger keeps many value log and table files open.
func SetMaxResources(logger *slog.Logger) error {
	const threadLimit = 10000
	rLimit := unix.Rlimit{}

	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return fmt.Errorf("unable to get rlimit: %w", err)
	}
	rLimit.Cur = rLimit.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		return fmt.Errorf("unable to set open file limit: %w", err)
	}

	threads, err := readLinuxMaxThreads()
	if err != nil {
		logger.Debug("thread limit left unchanged", slog.String("error", err.Error()))
	} else if maxThreads := (int(threads) * 90) / 100; maxThreads > threadLimit {
		debug.SetMaxThreads(maxThreads)
	}

	logger.Debug("resource limits adjusted", slog.Uint64("nofile", rLimit.Cur))
	return nil
}

func readLinuxMaxThreads() (uint32, error) {
	data, err := os.ReadFile("/proc/sys/kernel/threads-max")
	if err != nil {
		return 0, err
	}
	threads, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unable to parse max threads value: %w", err)
	}
	return uint32(threads), nil
}
