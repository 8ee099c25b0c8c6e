// Package discovery finds prover bridges over mDNS/DNS-SD.
//
// A bridge exposes one prover (a BLE UART module, or the simulator) as a
// TCP stream and advertises it as _zkble._tcp. The instance name is the
// prover's advertised device name, which is what a verifier searches for,
// the same way a BLE scan matches devices by (part of) their name.
//
// TXT records:
//   - name: device name as advertised over the air
//   - id: device identifier sent with the init command (optional)
//   - proto: protocol revision (optional)
package discovery
