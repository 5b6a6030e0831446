package chain

import (
	"strconv"

	"github.com/GoPolymarket/polydesk/internal/config"
	"github.com/GoPolymarket/polydesk/internal/pkg/apperrors"
	"github.com/ethereum/go-ethereum/common"
)

// Deployment holds the contract addresses the desk needs on one chain.
type Deployment struct {
	CollateralToken common.Address
	Exchange        common.Address
	CTFExchange     common.Address
	Vault           common.Address
}

// Known deployments. Config can override or extend these.
var defaultDeployments = map[int64]Deployment{
	// Polygon mainnet
	137: {
		CollateralToken: common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
		Exchange:        common.HexToAddress("0x6A3796C21e733a3016Bc0bA41edF763016247e72"),
		CTFExchange:     common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"),
		Vault:           common.HexToAddress("0x91f8A702B91B966A184D7a4b04e2dC9d57a3Ed51"),
	},
	// Polygon Amoy testnet
	80002: {
		CollateralToken: common.HexToAddress("0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582"),
		Exchange:        common.HexToAddress("0x87d1A0DdB4C63a6301916F02090A51a7241571e4"),
		CTFExchange:     common.HexToAddress("0xdFE02Eb6733538f8Ea35D585af8DE5958AD99E40"),
		Vault:           common.HexToAddress("0xC5d563A36AE78145C45a50134d48A1215220f80a"),
	},
}

// Networks resolves contract addresses for the active chain.
type Networks struct {
	deployments map[int64]Deployment
}

func NewNetworks(overrides map[string]config.DeploymentConfig) *Networks {
	deployments := make(map[int64]Deployment, len(defaultDeployments))
	for id, d := range defaultDeployments {
		deployments[id] = d
	}
	for key, o := range overrides {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		d := deployments[id]
		if o.CollateralToken != "" {
			d.CollateralToken = common.HexToAddress(o.CollateralToken)
		}
		if o.Exchange != "" {
			d.Exchange = common.HexToAddress(o.Exchange)
		}
		if o.CTFExchange != "" {
			d.CTFExchange = common.HexToAddress(o.CTFExchange)
		}
		if o.Vault != "" {
			d.Vault = common.HexToAddress(o.Vault)
		}
		deployments[id] = d
	}
	return &Networks{deployments: deployments}
}

func (n *Networks) deployment(chainID int64) (Deployment, error) {
	d, ok := n.deployments[chainID]
	if !ok {
		return Deployment{}, apperrors.NewUnsupportedNetwork(chainID)
	}
	return d, nil
}

func (n *Networks) CollateralToken(chainID int64) (common.Address, error) {
	d, err := n.deployment(chainID)
	if err != nil {
		return common.Address{}, err
	}
	if d.CollateralToken == (common.Address{}) {
		return common.Address{}, apperrors.NewConfigurationMissing("collateral token", chainID)
	}
	return d.CollateralToken, nil
}

func (n *Networks) Exchange(chainID int64) (common.Address, error) {
	d, err := n.deployment(chainID)
	if err != nil {
		return common.Address{}, err
	}
	if d.Exchange == (common.Address{}) {
		return common.Address{}, apperrors.NewConfigurationMissing("exchange", chainID)
	}
	return d.Exchange, nil
}

func (n *Networks) CTFExchange(chainID int64) (common.Address, error) {
	d, err := n.deployment(chainID)
	if err != nil {
		return common.Address{}, err
	}
	if d.CTFExchange == (common.Address{}) {
		return common.Address{}, apperrors.NewConfigurationMissing("ctf exchange", chainID)
	}
	return d.CTFExchange, nil
}

func (n *Networks) Vault(chainID int64) (common.Address, error) {
	d, err := n.deployment(chainID)
	if err != nil {
		return common.Address{}, err
	}
	if d.Vault == (common.Address{}) {
		return common.Address{}, apperrors.NewConfigurationMissing("vault", chainID)
	}
	return d.Vault, nil
}
