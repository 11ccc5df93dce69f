package wallet_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-keyring/internal/api"
	"github/chapool/go-keyring/internal/api/httperrors"
	handlers "github/chapool/go-keyring/internal/api/handlers/wallet"
	"github/chapool/go-keyring/internal/test"
	"github/chapool/go-keyring/internal/wallet"
	"github/chapool/go-keyring/internal/wallet/signer"
)

func TestCreateListGetDeleteWallet(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "POST", "/api/v1/wallets", nil, nil)
		require.Equal(t, http.StatusCreated, res.Result().StatusCode)

		var first wallet.Wallet
		test.ParseResponseAndValidate(t, res, &first)
		require.NotNil(t, first.Index)
		assert.Equal(t, 0, *first.Index)
		assert.Empty(t, first.PrivateKey)

		res = test.PerformRequest(t, s, "POST", "/api/v1/wallets", map[string]any{"name": "second"}, nil)
		require.Equal(t, http.StatusCreated, res.Result().StatusCode)

		res = test.PerformRequest(t, s, "GET", "/api/v1/wallets", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		var list handlers.GetWalletListResponse
		test.ParseResponseAndValidate(t, res, &list)
		require.Len(t, list.Wallets, 2)
		assert.Equal(t, "second", list.Wallets[1].Name)

		res = test.PerformRequest(t, s, "GET", "/api/v1/wallets/"+strings.ToLower(first.Address), nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		var got wallet.Wallet
		test.ParseResponseAndValidate(t, res, &got)
		assert.Equal(t, first.Address, got.Address)

		res = test.PerformRequest(t, s, "DELETE", "/api/v1/wallets/"+first.Address, nil, nil)
		require.Equal(t, http.StatusNoContent, res.Result().StatusCode)

		res = test.PerformRequest(t, s, "GET", "/api/v1/wallets/"+first.Address, nil, nil)
		require.Equal(t, http.StatusNotFound, res.Result().StatusCode)
		var problem httperrors.HTTPError
		test.ParseResponseAndValidate(t, res, &problem)
		assert.Equal(t, "wallet_not_found", problem.Type)
	})
}

func TestCreateWalletValidationErrors(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "POST", "/api/v1/wallets", map[string]any{"index": -1}, nil)
		require.Equal(t, http.StatusBadRequest, res.Result().StatusCode)

		var problem httperrors.HTTPError
		test.ParseResponseAndValidate(t, res, &problem)
		assert.Equal(t, "invalid_index", problem.Type)

		res = test.PerformRequest(t, s, "GET", "/api/v1/wallets/0xnothex", nil, nil)
		require.Equal(t, http.StatusBadRequest, res.Result().StatusCode)
	})
}

func TestLockedIdentityIsUnauthorized(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		s.Session.Logout()

		res := test.PerformRequest(t, s, "GET", "/api/v1/wallets", nil, nil)
		require.Equal(t, http.StatusUnauthorized, res.Result().StatusCode)
	})
}

func TestSignMessageAndTransaction(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		res := test.PerformRequest(t, s, "GET", "/api/v1/wallets/main", nil, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		var main wallet.Wallet
		test.ParseResponseAndValidate(t, res, &main)

		res = test.PerformRequest(t, s, "POST", "/api/v1/wallets/"+main.Address+"/sign", map[string]any{"message": "hello"}, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		var signed handlers.PostSignResponse
		test.ParseResponseAndValidate(t, res, &signed)
		assert.True(t, signer.SameSigner([]byte("hello"), signed.Signature, main.Address))

		tx := map[string]any{
			"chainId":              1,
			"to":                   "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
			"value":                "1",
			"gasLimit":             21000,
			"maxFeePerGas":         "2000000000",
			"maxPriorityFeePerGas": "1000000000",
			"nonce":                0,
		}
		res = test.PerformRequest(t, s, "POST", "/api/v1/wallets/"+main.Address+"/sign", map[string]any{"transaction": tx}, nil)
		require.Equal(t, http.StatusOK, res.Result().StatusCode)
		test.ParseResponseAndValidate(t, res, &signed)
		assert.True(t, strings.HasPrefix(signed.RawTransaction, "0x02"))
		assert.Len(t, signed.TxHash, 66)

		res = test.PerformRequest(t, s, "POST", "/api/v1/wallets/"+main.Address+"/sign", map[string]any{}, nil)
		require.Equal(t, http.StatusBadRequest, res.Result().StatusCode)
	})
}
