package kami

import "context"

func FindAxonByHotkey(metagraph *SubnetMetagraph, hotkey string) *AxonInfo {
	for i, currHotkey := range metagraph.Hotkeys {
		if currHotkey == hotkey && i < len(metagraph.Axons) {
			axon := metagraph.Axons[i]
			return &axon
		}
	}
	return nil
}

func GetHotkey(ctx context.Context, k KamiInterface) (string, error) {
	keyringPair, err := k.GetKeyringPair(ctx)
	if err != nil {
		return "", err
	}
	return keyringPair.Data.KeyringPair.Address, nil
}
