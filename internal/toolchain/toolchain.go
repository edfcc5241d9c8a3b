// Package toolchain resolves runtime channels (lts, current, edge, bun,
// deno, or a pinned version) to concrete build images. The resolved channel
// identifier participates in content hashes so a channel change invalidates
// the cache.
package toolchain

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/example/monobuild/internal/domain"
)

// Family identifies the runtime family of a toolchain.
type Family string

const (
	FamilyNode Family = "node"
	FamilyEdge Family = "edge"
	FamilyBun  Family = "bun"
	FamilyDeno Family = "deno"
)

// Toolchain is a resolved build toolchain.
type Toolchain struct {
	// Channel is the normalized channel identifier the toolchain was
	// resolved from. It is a cache hash input.
	Channel string
	// Image is the build image reference, e.g. "node:24-alpine".
	Image string
	// Version is the runtime version, e.g. "24".
	Version string
	Family  Family
}

// Default versions for each channel. Pinned channels assume Node.
const (
	nodeLTSVersion     = "24"
	nodeLTSImage       = "node:24-alpine"
	nodeCurrentVersion = "24"
	nodeCurrentImage   = "node:24-alpine"
	edgeVersion        = "2025.01"
	edgeImage          = "denoland/deno:alpine"
	bunVersion         = "1.1"
	bunImage           = "oven/bun:1.1-alpine"
	denoVersion        = "2.0"
	denoImage          = "denoland/deno:alpine"
)

// Resolve resolves a channel string to a concrete toolchain. Valid channels
// are lts, current, edge, bun, deno, or a version number (starts with a
// digit); anything else is ErrUnknownChannel.
func Resolve(channel string) (Toolchain, error) {
	normalized := strings.ToLower(strings.TrimSpace(channel))

	switch normalized {
	case "lts":
		return Toolchain{Channel: normalized, Image: nodeLTSImage, Version: nodeLTSVersion, Family: FamilyNode}, nil
	case "current":
		return Toolchain{Channel: normalized, Image: nodeCurrentImage, Version: nodeCurrentVersion, Family: FamilyNode}, nil
	case "edge":
		return Toolchain{Channel: normalized, Image: edgeImage, Version: edgeVersion, Family: FamilyEdge}, nil
	case "bun":
		return Toolchain{Channel: normalized, Image: bunImage, Version: bunVersion, Family: FamilyBun}, nil
	case "deno":
		return Toolchain{Channel: normalized, Image: denoImage, Version: denoVersion, Family: FamilyDeno}, nil
	}

	// A pinned version like "22.12.0" maps to the matching Node image.
	if normalized != "" && unicode.IsDigit(rune(normalized[0])) {
		return Toolchain{
			Channel: normalized,
			Image:   fmt.Sprintf("node:%s-alpine", normalized),
			Version: normalized,
			Family:  FamilyNode,
		}, nil
	}

	return Toolchain{}, fmt.Errorf("%w: %q (valid: lts, current, edge, bun, deno, or a version number)",
		domain.ErrUnknownChannel, channel)
}
