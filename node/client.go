package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/gorilla/websocket"

	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/provider"
	"github.com/govm-net/counter/types"
)

var _ provider.Backend = (*JSONRPCClient)(nil)

// JSONRPCClient is a provider.Backend talking to a remote node
type JSONRPCClient struct {
	uri  string
	http *http.Client
}

// NewJSONRPCClient takes the node base URL, e.g. http://127.0.0.1:8545
func NewJSONRPCClient(uri string) *JSONRPCClient {
	uri = strings.TrimSuffix(uri, "/")
	return &JSONRPCClient{uri: uri + RPCEndpoint, http: http.DefaultClient}
}

func (cli *JSONRPCClient) send(ctx context.Context, method string, args, reply any) error {
	body, err := json2.EncodeClientRequest(ServiceName+"."+method, args)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cli.uri, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cli.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s request failed with status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
		return fromRPCError(err)
	}
	return nil
}

// fromRPCError rebuilds the local error a server error code stands for
func fromRPCError(err error) error {
	var rpcErr *json2.Error
	if !errors.As(err, &rpcErr) {
		return err
	}
	switch rpcErr.Code {
	case RevertErrorCode:
		reason, _ := rpcErr.Data.(string)
		return &core.RevertError{Reason: reason, Kind: core.ErrInvalidOperation}
	case ReceiptNotFoundCode:
		return provider.ErrReceiptNotFound
	}
	return errors.New(rpcErr.Message)
}

func (cli *JSONRPCClient) CallContract(ctx context.Context, msg types.CallMsg) (json.RawMessage, error) {
	resp := new(CallReply)
	if err := cli.send(ctx, "Call", &msg, resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (cli *JSONRPCClient) PendingNonce(ctx context.Context, addr core.Address) (uint64, error) {
	resp := new(NonceReply)
	err := cli.send(ctx, "Nonce", &AddressArgs{Address: addr}, resp)
	return resp.Nonce, err
}

func (cli *JSONRPCClient) SendTransaction(ctx context.Context, tx *types.Transaction) (core.Hash, error) {
	resp := new(SendTransactionReply)
	err := cli.send(ctx, "SendTransaction", &SendTransactionArgs{Tx: tx}, resp)
	return resp.TxHash, err
}

func (cli *JSONRPCClient) TransactionReceipt(ctx context.Context, hash core.Hash) (*types.Receipt, error) {
	resp := new(ReceiptReply)
	if err := cli.send(ctx, "Receipt", &ReceiptArgs{TxHash: hash}, resp); err != nil {
		return nil, err
	}
	return resp.Receipt, nil
}

// Descriptor fetches the interface descriptor of the contract at addr
func (cli *JSONRPCClient) Descriptor(ctx context.Context, addr core.Address) ([]byte, error) {
	resp := new(DescriptorReply)
	if err := cli.send(ctx, "Descriptor", &AddressArgs{Address: addr}, resp); err != nil {
		return nil, err
	}
	return resp.Descriptor, nil
}

// EventStream reads events pushed by a node's websocket feed
type EventStream struct {
	conn *websocket.Conn
}

// DialEvents subscribes to the feed of the node at uri. A zero contract or
// an empty name matches every event.
func DialEvents(ctx context.Context, uri string, contract core.Address, name string) (*EventStream, error) {
	u, err := url.Parse(strings.TrimSuffix(uri, "/") + EventsEndpoint)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	q := u.Query()
	if contract != core.ZeroAddress {
		q.Set("contract", contract.Hex())
	}
	if name != "" {
		q.Set("name", name)
	}
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", u.Redacted(), err)
	}
	// not using resp
	resp.Body.Close()
	return &EventStream{conn: conn}, nil
}

// Next blocks until the next event arrives or the connection fails
func (s *EventStream) Next() (types.Event, error) {
	var ev types.Event
	err := s.conn.ReadJSON(&ev)
	return ev, err
}

func (s *EventStream) Close() error {
	return s.conn.Close()
}
