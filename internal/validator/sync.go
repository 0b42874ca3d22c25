package validator

import (
	"context"

	"github.com/rs/zerolog/log"

	chainutils "github.com/0xxfu/prompting/internal/utils/chain_utils"
)

func (v *Validator) syncMetagraph(ctx context.Context) error {
	netuid := v.Chain.GetNetuid()
	log.Info().Msgf("syncing metagraph data for subnet: %d", netuid)

	resp, err := v.Kami.GetMetagraph(ctx, netuid)
	if err != nil {
		log.Error().Err(err).Msg("failed to get metagraph")
		return err
	}
	v.Chain.SetMetagraph(resp.Data)

	miners := chainutils.MinerPeers(&resp.Data, v.ValidatorConfig.Environment, v.ValidatorHotkey)
	log.Info().Msgf("Metagraph synced. Found %d serving miners out of %d uids", len(miners), len(resp.Data.Hotkeys))
	return nil
}

func (v *Validator) syncBlock(ctx context.Context) {
	log.Debug().Msgf("syncing latest block. current block : %d", v.Chain.GetBlock())
	resp, err := v.Kami.GetLatestBlock(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to get latest block")
		return
	}
	if v.Chain.SetBlock(resp.Data.BlockNumber) {
		v.Scheduler.OnBlock(resp.Data.BlockNumber)
	}
}

func (v *Validator) saveScores() {
	if err := v.Board.Save(); err != nil {
		log.Error().Err(err).Msg("failed to save scores")
		return
	}
	log.Debug().Int("step", v.Board.Scores().Step).Msg("scores saved")
}
