package handshake

import "strconv"

// Command codes written to the prover.
const (
	CmdRegister      byte = 'R'
	CmdInit          byte = 'I'
	CmdKeyExchange   byte = 'K'
	CmdRequestDigest byte = 'D'
)

// EncodeRegister returns the register command.
func EncodeRegister() []byte {
	return []byte{CmdRegister}
}

// EncodeInit returns the init command carrying deviceID as ASCII decimal.
func EncodeInit(deviceID uint8) []byte {
	return strconv.AppendUint([]byte{CmdInit}, uint64(deviceID), 10)
}

// EncodeKeyExchange returns the key-exchange command followed by the raw
// 64-byte X||Y public key.
func EncodeKeyExchange(publicKey []byte) []byte {
	out := make([]byte, 0, 1+len(publicKey))
	out = append(out, CmdKeyExchange)
	return append(out, publicKey...)
}

// EncodeRequestDigest returns the proof request command.
func EncodeRequestDigest() []byte {
	return []byte{CmdRequestDigest}
}
