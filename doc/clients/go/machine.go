// sample implementation, do not build or test
//go:build ignore

package main

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// hardwareSecret must match the server's HARDWARE_SECRET. Ship it obfuscated
// in the real client build.
const hardwareSecret = "change-me"

type HardwareInfo struct {
	OS         string `json:"os"`
	Hostname   string `json:"hostname"`
	Arch       string `json:"arch"`
	Platform   string `json:"platform"`
	HardwareID string `json:"hardwareId"`
	CPUs       string `json:"cpus,omitempty"`
	Memory     string `json:"memory,omitempty"`
}

// CollectHardwareInfo gathers the attributes the server verifies. The
// hardware ID hashes only os, hostname, arch and platform; cpus and memory
// are informational.
func CollectHardwareInfo() HardwareInfo {
	hostname, _ := os.Hostname()

	info := HardwareInfo{
		OS:       osVersion(),
		Hostname: hostname,
		Arch:     runtime.GOARCH,
		Platform: runtime.GOOS,
	}
	info.HardwareID = computeHardwareID(info)
	return info
}

func computeHardwareID(info HardwareInfo) string {
	fields := map[string]string{
		"arch":     info.Arch,
		"hostname": info.Hostname,
		"os":       info.OS,
		"platform": info.Platform,
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(fields[k])
	}
	b.WriteString(hardwareSecret)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// GetDeviceID returns a stable per-install identifier. Generated once and
// persisted next to the registration file.
func GetDeviceID() string {
	path, err := deviceIDPath()
	if err == nil {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	id := uuid.NewString()
	if path != "" {
		os.WriteFile(path, []byte(id), 0644)
	}
	return id
}
