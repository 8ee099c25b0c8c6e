// Package schnorr implements the verifier half of the ZKBLE Schnorr
// identification scheme.
//
// The prover holds a secret scalar d with public point Qd = d*G. For each
// session it picks a nonce k, commits to R = k*G and sends the response
//
//	s = k + H*d (mod n), H = SHA-256(Gx || Qx || Rx)
//
// where the three inputs are hex strings concatenated without separators.
// The verifier accepts when s*G - H*Qd equals R.
package schnorr
