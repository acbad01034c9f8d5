package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/vietddude/harvester/internal/core/config"
	"github.com/vietddude/harvester/internal/core/domain"
)

// Client wraps an ethclient connection to the testnet.
type Client struct {
	eth     *ethclient.Client
	chainID *big.Int
}

// NewClient dials the configured RPC endpoint.
func NewClient(ctx context.Context, cfg config.ChainConfig) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc: %w", err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = eth.ChainID(ctx)
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("failed to fetch chain id: %w", err)
		}
	}

	return &Client{eth: eth, chainID: chainID}, nil
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Balance returns the native balance of a wallet.
func (c *Client) Balance(ctx context.Context, wallet *domain.Wallet) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, common.HexToAddress(wallet.Address), nil)
	if err != nil {
		return nil, &domain.TransportError{Op: "balance", Err: err}
	}
	return bal, nil
}

// sendTx builds, signs and broadcasts an EIP-1559 transaction.
func (c *Client) sendTx(
	ctx context.Context,
	wallet *domain.Wallet,
	to common.Address,
	value *big.Int,
	data []byte,
) (common.Hash, error) {
	key, err := parseKey(wallet.PrivateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to parse key: %w", err)
	}

	from := common.HexToAddress(wallet.Address)
	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, &domain.TransportError{Op: "nonce", Err: err}
	}

	tip, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, &domain.TransportError{Op: "gas tip", Err: err}
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, &domain.TransportError{Op: "header", Err: err}
	}
	feeCap := new(big.Int).Add(
		tip,
		new(big.Int).Mul(head.BaseFee, big.NewInt(2)),
	)

	gasLimit := uint64(21_000)
	if len(data) > 0 {
		gasLimit = 400_000
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		Gas:       gasLimit,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign tx: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, &domain.TransportError{Op: "send tx", Err: err}
	}
	return signed.Hash(), nil
}

// portion returns percent% of the wallet balance, capped to leave gas headroom.
func (c *Client) portion(ctx context.Context, wallet *domain.Wallet, percent int) (*big.Int, error) {
	bal, err := c.Balance(ctx, wallet)
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Mul(bal, big.NewInt(int64(percent)))
	amount.Div(amount, big.NewInt(100))
	return amount, nil
}
