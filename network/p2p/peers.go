package p2p

import (
	"fmt"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// ParsePeers parses full peer multiaddresses, e.g.
// /ip4/127.0.0.1/udp/7000/quic-v1/p2p/12D3KooW..., merging addresses of the same peer.
func ParsePeers(addrs []string) ([]peer.AddrInfo, error) {
	infos := make([]peer.AddrInfo, 0, len(addrs))
	index := make(map[peer.ID]int, len(addrs))
	for _, addr := range addrs {
		ma, err := multiaddr.NewMultiaddr(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid peer address %q: %w", addr, err)
		}
		info, err := peer.AddrInfoFromP2pAddr(ma)
		if err != nil {
			return nil, fmt.Errorf("peer address %q does not name a peer: %w", addr, err)
		}
		if i, ok := index[info.ID]; ok {
			infos[i].Addrs = append(infos[i].Addrs, info.Addrs...)
			continue
		}
		index[info.ID] = len(infos)
		infos = append(infos, *info)
	}
	return infos, nil
}

// FullAddrs returns the addresses of a peer with its identity appended, in the form
// accepted by ParsePeers.
func FullAddrs(info peer.AddrInfo) ([]string, error) {
	addrs, err := peer.AddrInfoToP2pAddrs(&info)
	if err != nil {
		return nil, fmt.Errorf("could not build peer addresses: %w", err)
	}
	full := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		full = append(full, addr.String())
	}
	return full, nil
}
