// Package service ties discovery, transport and the authentication
// schemes into a verifier that can be pointed at a device by name or
// address.
//
// # Verifier
//
// Verifier runs one authentication per call. It handles:
//   - Locating the device's bridge over mDNS by (part of) its name
//   - Dialing the bridge and chunking writes to the link's MTU
//   - Running the selected scheme (Schnorr handshake, AES or HMAC)
//   - Emitting events for each stage
//
// Example usage:
//
//	config := service.DefaultConfig()
//	config.DeviceName = "ZKBLE-Prover"
//
//	v, err := service.NewVerifier(config)
//	report := v.AuthenticateByName(ctx, config.DeviceName)
//	if report.Authenticated() {
//		// device holds the private key for its advertised public key
//	}
package service
