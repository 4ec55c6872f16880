package solana

import (
	"fmt"
	"strings"
)

// Cluster names a public Solana network.
type Cluster string

// Supported clusters.
const (
	Devnet      Cluster = "devnet"
	Testnet     Cluster = "testnet"
	MainnetBeta Cluster = "mainnet-beta"
)

// Clusters lists every supported cluster in display order.
var Clusters = []Cluster{Devnet, Testnet, MainnetBeta}

// ParseCluster resolves a cluster name. "mainnet" is accepted as an alias.
func ParseCluster(name string) (Cluster, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "devnet", "":
		return Devnet, nil
	case "testnet":
		return Testnet, nil
	case "mainnet-beta", "mainnet":
		return MainnetBeta, nil
	default:
		return "", fmt.Errorf("unknown cluster %q", name)
	}
}

// RPCEndpoint returns the public HTTP endpoint for the cluster.
func (c Cluster) RPCEndpoint() string {
	return "https://api." + string(c) + ".solana.com"
}

// WSEndpoint returns the public WebSocket endpoint for the cluster.
func (c Cluster) WSEndpoint() string {
	return "wss://api." + string(c) + ".solana.com"
}

// AirdropAllowed reports whether the cluster runs a faucet.
func (c Cluster) AirdropAllowed() bool {
	return c != MainnetBeta
}

// WSFromHTTP derives a WebSocket endpoint from an HTTP endpoint.
func WSFromHTTP(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	default:
		return ""
	}
}
