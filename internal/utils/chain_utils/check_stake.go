// Package chainutils contains metagraph helpers used to pick miners.
package chainutils

import "strings"

const (
	rootStakeWeight = 0.18

	devStakeFilter  = 1000
	prodStakeFilter = 10000
)

// CheckIfMiner reports whether a neuron's effective stake is below the
// validator threshold for environment.
func CheckIfMiner(alphaStake, rootStake float64, environment string) bool {
	effectiveStake := alphaStake + rootStake*rootStakeWeight

	stakeFilter := float64(devStakeFilter)
	if strings.ToLower(environment) == "prod" {
		stakeFilter = prodStakeFilter
	}
	return effectiveStake < stakeFilter
}
