package arm64

import "strconv"

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func hex(v uint64) string { return "#" + strconv.FormatUint(v, 16) }

func hexSigned(v int64) string {
	if v < 0 {
		return "-#" + strconv.FormatUint(uint64(-v), 16)
	}
	return hex(uint64(v))
}
