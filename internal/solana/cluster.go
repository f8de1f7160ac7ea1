// Package solana is splairdrop's boundary to the Solana network. It wraps
// github.com/gagliardetto/solana-go to derive token accounts, build and sign
// transfer transactions, submit them and wait for confirmation, and read
// token balances and mint layouts.
package solana

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rshade/splairdrop/internal/config"
)

// ErrUnknownCluster is returned for a cluster name with no known endpoint.
var ErrUnknownCluster = errors.New("unknown cluster")

// ClusterURL returns override when set, otherwise the public RPC endpoint of cluster.
func ClusterURL(cluster, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	switch cluster {
	case config.ClusterDevnet:
		return rpc.DevNet_RPC, nil
	case config.ClusterTestnet:
		return rpc.TestNet_RPC, nil
	case config.ClusterMainnet:
		return rpc.MainNetBeta_RPC, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCluster, cluster)
	}
}

// ExplorerTxURL links a transaction signature on solscan.
func ExplorerTxURL(signature, cluster string) string {
	url := "https://solscan.io/tx/" + signature
	if cluster != "" && cluster != config.ClusterMainnet {
		url += "?cluster=" + cluster
	}
	return url
}

// DefaultKeypairPath is where the Solana CLI keeps its default keypair.
func DefaultKeypairPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "solana", "id.json")
	}
	return filepath.Join(home, ".config", "solana", "id.json")
}

// LoadKeypair reads a solana-keygen JSON keypair file. A leading "~/" is
// expanded to the home directory; an empty path uses DefaultKeypairPath.
func LoadKeypair(path string) (solana.PrivateKey, error) {
	if path == "" {
		path = DefaultKeypairPath()
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", path, err)
		}
		path = filepath.Join(home, path[2:])
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading keypair %s: %w", path, err)
	}
	return key, nil
}
