package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/harvester/internal/core/domain"
)

// Platform contracts on the testnet.
var (
	swapRouter      = common.HexToAddress("0x1A4dE519154Ae51200b0Ad7c90F7faC75547888a")
	usdcToken       = common.HexToAddress("0x72df0bcd7276f2dFbAc900D1CE63c272C4BCcCED")
	bridgeRouter    = common.HexToAddress("0x36C02dA8a0983159322a80FFE9F24b1acfF8B570")
	multisigFactory = common.HexToAddress("0x4e59b44847b379578588920cA78FbF26c0B4956C")
	faucetContract  = common.HexToAddress("0x8e83A35b746cFbfBca59D3BbF6de1a12FCF7b9c0")
	stakePool       = common.HexToAddress("0x1c85638e118b37167e9298c2268758e058DdfDA0")
)

// Method selectors for the platform contracts.
var (
	selSwapExactIn = common.FromHex("0x04e45aaf") // exactInputSingle((address,address,uint24,address,uint256,uint256,uint160))
	selBridgeOut   = common.FromHex("0x8b9e4f93") // bridgeOut(address,uint256,uint256)
	selCreateSafe  = common.FromHex("0x1688f0b9") // createProxyWithNonce(address,bytes,uint256)
	selWithdraw    = common.FromHex("0x2e1a7d4d") // withdraw(uint256)
	selStake       = common.FromHex("0xa694fc3a") // stake(uint256)
	selDrip        = common.FromHex("0x6bdbb8f8") // drip(address)
)

func packArgs(selector []byte, words ...[]byte) []byte {
	data := make([]byte, 0, 4+32*len(words))
	data = append(data, selector...)
	for _, w := range words {
		data = append(data, common.LeftPadBytes(w, 32)...)
	}
	return data
}

// Swap trades percent% of the wallet's native balance for USDC through the
// platform router.
func (c *Client) Swap(ctx context.Context, wallet *domain.Wallet, percent int) (common.Hash, error) {
	amount, err := c.portion(ctx, wallet, percent)
	if err != nil {
		return common.Hash{}, err
	}

	data := packArgs(selSwapExactIn,
		usdcToken.Bytes(),
		common.HexToAddress(wallet.Address).Bytes(),
		amount.Bytes(),
	)
	return c.sendTx(ctx, wallet, swapRouter, amount, data)
}

// Bridge moves a small portion of the balance through the canonical bridge.
func (c *Client) Bridge(ctx context.Context, wallet *domain.Wallet, percent int) (common.Hash, error) {
	amount, err := c.portion(ctx, wallet, percent)
	if err != nil {
		return common.Hash{}, err
	}

	data := packArgs(selBridgeOut,
		common.HexToAddress(wallet.Address).Bytes(),
		amount.Bytes(),
	)
	return c.sendTx(ctx, wallet, bridgeRouter, amount, data)
}

// MultisigCreate deploys a safe owned by the wallet through the factory.
func (c *Client) MultisigCreate(ctx context.Context, wallet *domain.Wallet) (common.Hash, error) {
	data := packArgs(selCreateSafe,
		common.HexToAddress(wallet.Address).Bytes(),
	)
	return c.sendTx(ctx, wallet, multisigFactory, big.NewInt(0), data)
}

// MultisigDeposit funds the wallet's safe with percent% of the balance.
func (c *Client) MultisigDeposit(
	ctx context.Context,
	wallet *domain.Wallet,
	safe string,
	percent int,
) (common.Hash, error) {
	amount, err := c.portion(ctx, wallet, percent)
	if err != nil {
		return common.Hash{}, err
	}
	return c.sendTx(ctx, wallet, common.HexToAddress(safe), amount, nil)
}

// MultisigWithdraw pulls the deposited funds back out of the safe.
func (c *Client) MultisigWithdraw(
	ctx context.Context,
	wallet *domain.Wallet,
	safe string,
) (common.Hash, error) {
	bal, err := c.eth.BalanceAt(ctx, common.HexToAddress(safe), nil)
	if err != nil {
		return common.Hash{}, &domain.TransportError{Op: "safe balance", Err: err}
	}
	data := packArgs(selWithdraw, bal.Bytes())
	return c.sendTx(ctx, wallet, common.HexToAddress(safe), big.NewInt(0), data)
}

// Stake locks percent% of the balance in the staking pool.
func (c *Client) Stake(ctx context.Context, wallet *domain.Wallet, percent int) (common.Hash, error) {
	amount, err := c.portion(ctx, wallet, percent)
	if err != nil {
		return common.Hash{}, err
	}
	data := packArgs(selStake, amount.Bytes())
	return c.sendTx(ctx, wallet, stakePool, amount, data)
}

// Drip requests funds from the on-chain faucet contract.
func (c *Client) Drip(ctx context.Context, wallet *domain.Wallet) (common.Hash, error) {
	data := packArgs(selDrip,
		common.HexToAddress(wallet.Address).Bytes(),
	)
	return c.sendTx(ctx, wallet, faucetContract, big.NewInt(0), data)
}
