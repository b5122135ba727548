package device

import (
	"fmt"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// Kind names a compute target.
type Kind string

const (
	CPU  Kind = "cpu"
	CUDA Kind = "cuda"
	Auto Kind = "auto"
)

// Parse normalizes a user supplied device name. Empty means Auto.
func Parse(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	if k == "" {
		return Auto, nil
	}
	switch k {
	case CPU, CUDA, Auto:
		return k, nil
	default:
		return "", fmt.Errorf("unknown device %q (expected auto, cpu, or cuda)", name)
	}
}

// Has reports whether this build can place tensors on k.
func Has(k Kind) bool {
	return k == CPU
}

// Available returns a comma-separated list of usable devices.
func Available() string {
	entries := []string{string(CPU)}
	if Has(CUDA) {
		entries = append(entries, string(CUDA))
	}
	return strings.Join(entries, ",")
}

// Resolve turns k into a concrete device. Auto prefers the accelerator.
func Resolve(k Kind) (Kind, error) {
	switch k {
	case Auto, "":
		if Has(CUDA) {
			return CUDA, nil
		}
		return CPU, nil
	case CPU, CUDA:
		if !Has(k) {
			return "", fmt.Errorf("device %s is not available in this build (available: %s)", k, Available())
		}
		return k, nil
	default:
		return "", fmt.Errorf("unknown device %q", k)
	}
}

// Info describes the host processor backing the cpu device.
type Info struct {
	Kind          Kind     `json:"kind"`
	Brand         string   `json:"brand"`
	Vendor        string   `json:"vendor"`
	PhysicalCores int      `json:"physical_cores"`
	LogicalCores  int      `json:"logical_cores"`
	SIMD          []string `json:"simd"`
}

// Describe reports host details for k.
func Describe(k Kind) Info {
	info := Info{
		Kind:          k,
		Brand:         cpuid.CPU.BrandName,
		Vendor:        cpuid.CPU.VendorString,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
	}
	for _, f := range []struct {
		name string
		id   cpuid.FeatureID
	}{
		{"sse4.2", cpuid.SSE42},
		{"avx", cpuid.AVX},
		{"avx2", cpuid.AVX2},
		{"fma3", cpuid.FMA3},
		{"avx512f", cpuid.AVX512F},
		{"asimd", cpuid.ASIMD},
	} {
		if cpuid.CPU.Supports(f.id) {
			info.SIMD = append(info.SIMD, f.name)
		}
	}
	return info
}
