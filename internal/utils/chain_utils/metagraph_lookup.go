package chainutils

import (
	"github.com/0xxfu/prompting/internal/dendrite"
	"github.com/0xxfu/prompting/internal/kami"
)

// MinerPeers lists the uids that serve an axon and pass the stake filter,
// skipping selfHotkey.
func MinerPeers(metagraph *kami.SubnetMetagraph, environment, selfHotkey string) []dendrite.Peer {
	peers := make([]dendrite.Peer, 0, len(metagraph.Hotkeys))
	for uid, hotkey := range metagraph.Hotkeys {
		if hotkey == selfHotkey || uid >= len(metagraph.Axons) {
			continue
		}
		axon := metagraph.Axons[uid]
		host := AxonHost(axon.IP)
		if host == "" || axon.Port <= 0 {
			continue
		}
		if !CheckIfMiner(valueAt(metagraph.AlphaStake, uid), valueAt(metagraph.TaoStake, uid), environment) {
			continue
		}
		peers = append(peers, dendrite.Peer{UID: uid, Hotkey: hotkey, IP: host, Port: axon.Port})
	}
	return peers
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
