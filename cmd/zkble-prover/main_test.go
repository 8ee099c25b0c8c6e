package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkble-protocol/zkble-go/pkg/prover"
)

func TestParseFaults(t *testing.T) {
	f, err := parseFaults("")
	require.NoError(t, err)
	assert.Equal(t, prover.Faults{}, f)

	f, err = parseFaults("silent-acks, tamper-response,partial-proof=40")
	require.NoError(t, err)
	assert.True(t, f.SilentAcks)
	assert.True(t, f.TamperResponse)
	assert.Equal(t, 40, f.PartialProof)

	f, err = parseFaults("truncate-proof=2,corrupt-proof-hex,silent-proof,silent-public-key,tamper-commitment")
	require.NoError(t, err)
	assert.Equal(t, 2, f.TruncateProof)
	assert.True(t, f.CorruptProofHex)
	assert.True(t, f.SilentProof)
	assert.True(t, f.SilentPublicKey)
	assert.True(t, f.TamperCommitment)

	for _, bad := range []string{"explode", "partial-proof", "partial-proof=x", "truncate-proof=0"} {
		_, err := parseFaults(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadKey(t *testing.T) {
	kp, err := loadKey("0x01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), kp.Private().Int64())

	kp, err = loadKey("")
	require.NoError(t, err)
	assert.NotNil(t, kp)

	_, err = loadKey("xyz")
	assert.Error(t, err)
}
