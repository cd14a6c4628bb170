// SPDX-License-Identifier: MIT
/*
Package bitint holds the power-of-two helpers used to size FFT workspaces and
spectral frames. A spectral frame always has fft_size/2 bins, so both the FFT
size and the bin count must be powers of two.

All functions are allocation free and constant time.

	size := bitint.NextPowerOfTwo(1000) // 1024
	ok := bitint.IsPowerOfTwo(2048)     // true

NextPowerOfTwo subtracts one before taking the bit length so that inputs which
are already powers of two are returned unchanged (8-1 = 0b0111, Len = 3,
1<<3 = 8) instead of being doubled.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Zero and
// negative sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
