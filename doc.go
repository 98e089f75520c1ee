/*
Package pacfetch is a tool for locating, downloading, and verifying pacman packages.

pacfetch reads an existing pacman database tree and a small TOML configuration,
resolves package targets against the configured repositories, and fetches the
matching package archives into a cache, with features including:
  - Target resolution with version constraints and provider lookup
  - Detached PGP signature verification with pacman-style trust levels
  - Optional sync database refresh with modification-time caching
  - Concurrent downloads with checksum validation and progress bars

The main packages are:

	github.com/pacfetch/pacfetch/internal/alpm   - Package database and archive handling
	github.com/pacfetch/pacfetch/internal/fetch  - Session setup, resolution, and orchestration
	github.com/pacfetch/pacfetch/cmd/pacfetch    - Command-line interface
*/
package pacfetch
