package node

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/rpc/v2/json2"

	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/types"
	"github.com/govm-net/counter/vm"
)

// ServiceName is the JSON-RPC service prefix, e.g. "Ledger.Call"
const ServiceName = "Ledger"

// Error codes beyond the JSON-RPC 2.0 reserved range
const (
	// RevertErrorCode marks a contract rejection; Data holds the reason
	RevertErrorCode     json2.ErrorCode = 3
	ReceiptNotFoundCode json2.ErrorCode = -32004
)

type CallReply struct {
	Result json.RawMessage `json:"result"`
}

type SendTransactionArgs struct {
	Tx *types.Transaction `json:"tx"`
}

type SendTransactionReply struct {
	TxHash core.Hash `json:"txHash"`
}

type ReceiptArgs struct {
	TxHash core.Hash `json:"txHash"`
}

type ReceiptReply struct {
	Receipt *types.Receipt `json:"receipt"`
}

type AddressArgs struct {
	Address core.Address `json:"address"`
}

type NonceReply struct {
	Nonce uint64 `json:"nonce"`
}

type DescriptorReply struct {
	Descriptor json.RawMessage `json:"descriptor"`
}

// LedgerService exposes the engine over JSON-RPC
type LedgerService struct {
	engine  *vm.Engine
	metrics *metrics
}

func (s *LedgerService) Call(req *http.Request, args *types.CallMsg, reply *CallReply) error {
	s.metrics.calls.Inc()
	result, err := s.engine.Call(req.Context(), *args)
	if err != nil {
		return toRPCError(err)
	}
	reply.Result = result
	return nil
}

func (s *LedgerService) SendTransaction(req *http.Request, args *SendTransactionArgs, reply *SendTransactionReply) error {
	if args.Tx == nil {
		return &json2.Error{Code: json2.E_INVALID_REQ, Message: "missing transaction"}
	}
	receipt, err := s.engine.ApplyTransaction(req.Context(), args.Tx)
	if err != nil {
		s.metrics.rejected.Inc()
		return toRPCError(err)
	}
	s.metrics.observe(receipt)
	reply.TxHash = receipt.TxHash
	return nil
}

func (s *LedgerService) Receipt(req *http.Request, args *ReceiptArgs, reply *ReceiptReply) error {
	receipt, err := s.engine.Receipt(args.TxHash)
	if err != nil {
		return toRPCError(err)
	}
	reply.Receipt = receipt
	return nil
}

func (s *LedgerService) Nonce(req *http.Request, args *AddressArgs, reply *NonceReply) error {
	reply.Nonce = s.engine.Nonce(args.Address)
	return nil
}

func (s *LedgerService) Descriptor(req *http.Request, args *AddressArgs, reply *DescriptorReply) error {
	descriptor, err := s.engine.Descriptor(args.Address)
	if err != nil {
		return toRPCError(err)
	}
	reply.Descriptor = descriptor
	return nil
}

func toRPCError(err error) error {
	if reason, ok := core.ReasonOf(err); ok {
		return &json2.Error{Code: RevertErrorCode, Message: err.Error(), Data: reason}
	}
	if errors.Is(err, types.ErrReceiptNotFound) {
		return &json2.Error{Code: ReceiptNotFoundCode, Message: err.Error()}
	}
	return &json2.Error{Code: json2.E_SERVER, Message: err.Error()}
}
