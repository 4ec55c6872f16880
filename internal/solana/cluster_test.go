package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCluster(t *testing.T) {
	tests := []struct {
		in   string
		want Cluster
	}{
		{"", Devnet},
		{"devnet", Devnet},
		{"Testnet", Testnet},
		{"mainnet", MainnetBeta},
		{" mainnet-beta ", MainnetBeta},
	}
	for _, tt := range tests {
		got, err := ParseCluster(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseCluster("localnet-x")
	assert.Error(t, err)
}

func TestCluster_Endpoints(t *testing.T) {
	assert.Equal(t, "https://api.devnet.solana.com", Devnet.RPCEndpoint())
	assert.Equal(t, "wss://api.mainnet-beta.solana.com", MainnetBeta.WSEndpoint())
	assert.True(t, Devnet.AirdropAllowed())
	assert.True(t, Testnet.AirdropAllowed())
	assert.False(t, MainnetBeta.AirdropAllowed())
}

func TestWSFromHTTP(t *testing.T) {
	assert.Equal(t, "wss://rpc.example.com/x", WSFromHTTP("https://rpc.example.com/x"))
	assert.Equal(t, "ws://127.0.0.1:8899", WSFromHTTP("http://127.0.0.1:8899"))
	assert.Equal(t, "", WSFromHTTP("ftp://nope"))
}
