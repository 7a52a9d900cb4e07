// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dotandev/dlcache/internal/cmd"
	"github.com/dotandev/dlcache/internal/telemetry"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		_ = telemetry.Shutdown(context.Background())
		os.Exit(1)
	}
	_ = telemetry.Shutdown(context.Background())
}
