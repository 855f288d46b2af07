package rpc

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"corepay/core"
	"corepay/crypto"
	"corepay/native/payments"
	"corepay/storage"
)

const (
	testChainID   = 1991
	testToken     = "CORE"
	testAuthToken = "local-secret"
)

func testService() [20]byte {
	var addr [20]byte
	addr[19] = 0xEE
	return addr
}

func newTestServer(t *testing.T) (*httptest.Server, *core.Node) {
	t.Helper()
	node := core.NewNode(storage.NewMemDB(), testChainID, testService(), "CRWD", nil)
	require.NoError(t, node.RegisterToken(testToken, "Core Token", 18))
	server := NewServer(node, testAuthToken, nil)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts, node
}

func call(t *testing.T, url, bearer string, method string, params interface{}) rpcResponse {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []json.RawMessage{raw},
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func bech32Addr(raw [20]byte) string {
	return crypto.MustNewAddress(crypto.CorePrefix, raw[:]).String()
}

// signedPayParams builds wire params for core_pay signed over the sender's
// current sequential counter.
func signedPayParams(t *testing.T, key *crypto.PrivateKey, executor, recipient [20]byte, amount, fee int64, seqNonce uint64) payParams {
	t.Helper()
	sender := key.PubKey().Address().Raw()
	opHash := payments.PayOperationHash(payments.RecipientRef{Address: recipient}, testToken, big.NewInt(amount), big.NewInt(fee))
	canonical := payments.CanonicalAuthorization(testChainID, testService(), opHash, [20]byte{}, fmt.Sprintf("%d", seqNonce), payments.NonceModeSequential)
	sig, err := payments.SignAuthorization(key, canonical)
	require.NoError(t, err)

	return payParams{
		Executor: bech32Addr(executor),
		payItem: payItem{
			Sender:    bech32Addr(sender),
			To:        bech32Addr(recipient),
			Token:     testToken,
			Amount:    fmt.Sprintf("%d", amount),
			Fee:       fmt.Sprintf("%d", fee),
			Mode:      "sequential",
			Signature: "0x" + hex.EncodeToString(sig),
		},
	}
}

func TestPayOverRPC(t *testing.T) {
	ts, node := newTestServer(t)

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	sender := key.PubKey().Address().Raw()
	var recipient, executor [20]byte
	recipient[0] = 0x02
	executor[0] = 0x03
	require.NoError(t, node.Mint(sender, testToken, big.NewInt(100)))

	resp := call(t, ts.URL, testAuthToken, "core_pay", signedPayParams(t, key, executor, recipient, 30, 0, 0))
	require.Nil(t, resp.Error)

	balResp := call(t, ts.URL, "", "core_getBalance", balanceParams{Address: bech32Addr(recipient), Token: testToken})
	require.Nil(t, balResp.Error)
	result, ok := balResp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "30", result["amount"])

	nonceResp := call(t, ts.URL, "", "core_getSequentialNonce", addressParams{Address: bech32Addr(sender)})
	require.Nil(t, nonceResp.Error)
	nonceBody, ok := nonceResp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(1), nonceBody["nonce"])
}

func TestMutatingMethodRequiresBearerToken(t *testing.T) {
	ts, node := newTestServer(t)

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	sender := key.PubKey().Address().Raw()
	var recipient, executor [20]byte
	recipient[0] = 0x02
	executor[0] = 0x03
	require.NoError(t, node.Mint(sender, testToken, big.NewInt(100)))

	params := signedPayParams(t, key, executor, recipient, 10, 0, 0)

	resp := call(t, ts.URL, "", "core_pay", params)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	resp = call(t, ts.URL, "wrong-token", "core_pay", params)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	// Queries stay open.
	balResp := call(t, ts.URL, "", "core_getBalance", balanceParams{Address: bech32Addr(sender), Token: testToken})
	require.Nil(t, balResp.Error)
}

func TestEngineFailuresMapToDistinctCodes(t *testing.T) {
	ts, node := newTestServer(t)

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	sender := key.PubKey().Address().Raw()
	var recipient, executor [20]byte
	recipient[0] = 0x02
	executor[0] = 0x03
	require.NoError(t, node.Mint(sender, testToken, big.NewInt(5)))

	// Insufficient balance: amount exceeds the minted funds.
	broke := signedPayParams(t, key, executor, recipient, 10, 0, 0)
	resp := call(t, ts.URL, testAuthToken, "core_pay", broke)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInsufficientBalance, resp.Error.Code)

	// Corrupted signature recovers a different signer.
	tampered := signedPayParams(t, key, executor, recipient, 1, 0, 0)
	sig, err := hex.DecodeString(tampered.Signature[2:])
	require.NoError(t, err)
	sig[10] ^= 0x01
	tampered.Signature = "0x" + hex.EncodeToString(sig)
	resp = call(t, ts.URL, testAuthToken, "core_pay", tampered)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidSignature, resp.Error.Code)

	// Replay of a settled request reports a consumed nonce.
	settled := signedPayParams(t, key, executor, recipient, 1, 0, 0)
	resp = call(t, ts.URL, testAuthToken, "core_pay", settled)
	require.Nil(t, resp.Error)
	resp = call(t, ts.URL, testAuthToken, "core_pay", settled)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeNonceUsed, resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := call(t, ts.URL, "", "core_unknown", addressParams{})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestInvalidParamsRejected(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := call(t, ts.URL, "", "core_getBalance", balanceParams{Address: "not-bech32", Token: testToken})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	resp = call(t, ts.URL, "", "core_isFreeNonceUsed", freeNonceParams{Address: bech32Addr([20]byte{0x01}), Value: "0x1234"})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestFreeNonceQuery(t *testing.T) {
	ts, _ := newTestServer(t)
	value := "0x" + hex.EncodeToString(make([]byte, 32))
	resp := call(t, ts.URL, "", "core_isFreeNonceUsed", freeNonceParams{Address: bech32Addr([20]byte{0x01}), Value: value})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, false, result["used"])
}

func TestParseMode(t *testing.T) {
	mode, err := parseMode("sequential")
	require.NoError(t, err)
	require.Equal(t, payments.NonceModeSequential, mode)

	mode, err = parseMode("sync")
	require.NoError(t, err)
	require.Equal(t, payments.NonceModeSequential, mode)

	mode, err = parseMode("free")
	require.NoError(t, err)
	require.Equal(t, payments.NonceModeFree, mode)

	mode, err = parseMode("async")
	require.NoError(t, err)
	require.Equal(t, payments.NonceModeFree, mode)

	_, err = parseMode("bogus")
	require.Error(t, err)
}
