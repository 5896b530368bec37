package hybrid

import "runtime"

// Zero overwrites every byte of buf with zero. The runtime.KeepAlive call
// prevents the compiler from eliding the write as dead code when buf is
// about to go out of scope.
func Zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	runtime.KeepAlive(buf)
}

// ZeroSecretKey zeroizes all four secret components of sk in place.
func ZeroSecretKey(sk *SecretKey) {
	if sk == nil {
		return
	}
	Zero(sk.ECDHSecret)
	Zero(sk.LatticeKEMSec)
	Zero(sk.ECSigSecret)
	Zero(sk.LatticeSigSec)
}

// IsZeroed reports whether every byte of buf is zero. Used by tests that
// verify secret material was actually overwritten on destruction.
func IsZeroed(buf []byte) bool {
	var acc byte
	for _, b := range buf {
		acc |= b
	}
	return acc == 0
}
