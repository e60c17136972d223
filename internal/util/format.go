package util

import "github.com/dustin/go-humanize"

// FormatBytes renders a byte count in IEC units (e.g. "1.5 MiB")
func FormatBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// FormatCount renders an integer with thousands separators
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}
