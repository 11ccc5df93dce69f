package signer

import "context"

// Service signs with a wallet's private key.
type Service interface {
	// SignTransaction signs an EVM transaction (EIP-1559)
	SignTransaction(ctx context.Context, req *SignEVMRequest, privateKey string) (*SignEVMResponse, error)

	// SignMessage signs an EIP-191 personal message and returns the 65-byte
	// signature as 0x hex with v in {27, 28}.
	SignMessage(ctx context.Context, message []byte, privateKey string) (string, error)
}

// SignEVMRequest represents a request to sign an EVM transaction
type SignEVMRequest struct {
	ChainID              int64  `json:"chainId"`              // Chain ID (1 for Ethereum mainnet, 137 for Polygon, etc.)
	To                   string `json:"to"`                   // Recipient address (hex string with 0x prefix)
	Value                string `json:"value"`                // Amount in wei (as string to avoid precision loss)
	GasLimit             uint64 `json:"gasLimit"`             // Gas limit
	MaxFeePerGas         string `json:"maxFeePerGas"`         // Max fee per gas (EIP-1559, in wei, as string)
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"` // Max priority fee per gas (EIP-1559, in wei, as string)
	Nonce                uint64 `json:"nonce"`                // Transaction nonce
	Data                 []byte `json:"data,omitempty"`       // Transaction data (for contract calls)
	FromAddress          string `json:"from"`                 // Address to sign from (hex string with 0x prefix)
}

// SignEVMResponse represents a signed EVM transaction
type SignEVMResponse struct {
	RawTransaction []byte `json:"rawTransaction"` // Encoded signed transaction
	TxHash         string `json:"txHash"`         // Transaction hash (hex string with 0x prefix)
}
