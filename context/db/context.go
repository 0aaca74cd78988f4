package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/govm-net/counter/context"
	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultDBPath = "./sqlite.db"
)

type DBBlock struct {
	gorm.Model
	Height uint64 `gorm:"column:height;not null;unique;index"`
	Time   int64  `gorm:"column:block_time;not null"`
	Hash   string `gorm:"column:block_hash;not null;unique;index;size:66"`
}

func (DBBlock) TableName() string {
	return "blocks"
}

type DBTransaction struct {
	gorm.Model
	Hash        string `gorm:"column:tx_hash;not null;unique;index;size:66"`
	BlockHeight uint64 `gorm:"column:block_height;not null;index"`
	FromAddress string `gorm:"column:from_address;not null;index;size:42"`
	ToAddress   string `gorm:"column:to_address;not null;index;size:42"`
	Nonce       uint64 `gorm:"column:nonce;not null"`
	Function    string `gorm:"column:function;size:255"`
	Data        []byte `gorm:"column:tx_data;type:blob"` // JSON encoded transaction
}

func (DBTransaction) TableName() string {
	return "transactions"
}

// DBReceipt stores the outcome of a transaction
type DBReceipt struct {
	gorm.Model
	TxHash string `gorm:"column:tx_hash;not null;unique;index;size:66"`
	Status uint8  `gorm:"column:status;not null"`
	Data   []byte `gorm:"column:receipt_data;type:blob;not null"` // JSON encoded receipt
}

func (DBReceipt) TableName() string {
	return "receipts"
}

// DBObject represents the object in database
type DBObject struct {
	gorm.Model
	ObjectID string `gorm:"column:object_id;not null;index;size:66"`
	Owner    string `gorm:"column:owner_address;not null;index;size:42"`
	Contract string `gorm:"column:contract_address;not null;index;size:42"`
}

// TableName specifies the table name for DBObject
func (DBObject) TableName() string {
	return "objects"
}

// DBObjectField represents a field of an object
type DBObjectField struct {
	gorm.Model
	ObjectID string `gorm:"column:object_id;not null;index;size:66"`
	Contract string `gorm:"column:contract_address;not null;index;size:42"`
	Key      string `gorm:"column:field_key;not null;index;size:255"`
	Value    []byte `gorm:"column:field_value;type:blob;not null"`
}

// TableName specifies the table name for DBObjectField
func (DBObjectField) TableName() string {
	return "object_fields"
}

// DBEvent represents an event in the database
type DBEvent struct {
	gorm.Model
	BlockHeight uint64 `gorm:"column:block_height;not null;index"`
	TxHash      string `gorm:"column:tx_hash;not null;index;size:66"`
	Contract    string `gorm:"column:contract_address;not null;index;size:42"`
	EventName   string `gorm:"column:event_name;not null;index;size:255"`
	KeyValues   []byte `gorm:"column:key_values;type:blob;not null"` // JSON encoded fields
}

// TableName specifies the table name for DBEvent
func (DBEvent) TableName() string {
	return "events"
}

// Context implements the BlockchainContext interface using SQLite with GORM
type Context struct {
	db *gorm.DB

	// Runtime state
	sender       core.Address
	contract     core.Address
	txHash       core.Hash
	currentBlock *DBBlock
}

func init() {
	context.Register(context.DBContextType, NewContext)
}

// NewContext opens (or creates) the SQLite database named by params["db_path"]
func NewContext(params map[string]any) (types.BlockchainContext, error) {
	dbPath := defaultDBPath
	if path, ok := params["db_path"].(string); ok && path != "" {
		dbPath = path
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx := &Context{db: db}
	if err := ctx.initDB(); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (c *Context) initDB() error {
	// Auto migrate the schemas with indexes
	err := c.db.AutoMigrate(
		&DBBlock{},
		&DBTransaction{},
		&DBReceipt{},
		&DBObject{},
		&DBObjectField{},
		&DBEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SetBlockInfo sets the block the next transaction is sealed into. The block
// row is written together with the receipt.
func (c *Context) SetBlockInfo(height uint64, time int64, hash core.Hash) error {
	c.currentBlock = &DBBlock{Height: height, Time: time, Hash: hash.Hex()}
	return nil
}

// SetTransactionInfo sets the current transaction context
func (c *Context) SetTransactionInfo(hash core.Hash, from core.Address, to core.Address) error {
	c.txHash = hash
	c.sender = from
	c.contract = to
	return nil
}

// BlockHeight implements types.BlockchainContext
func (c *Context) BlockHeight() uint64 {
	if c.currentBlock != nil {
		return c.currentBlock.Height
	}
	var height uint64
	c.db.Model(&DBBlock{}).Select("COALESCE(MAX(height), 0)").Scan(&height)
	return height
}

// BlockTime implements types.BlockchainContext
func (c *Context) BlockTime() int64 {
	if c.currentBlock != nil {
		return c.currentBlock.Time
	}
	return 0
}

// ContractAddress implements types.BlockchainContext
func (c *Context) ContractAddress() core.Address {
	return c.contract
}

// TransactionHash implements types.BlockchainContext
func (c *Context) TransactionHash() core.Hash {
	return c.txHash
}

// Sender implements types.BlockchainContext
func (c *Context) Sender() core.Address {
	return c.sender
}

// CreateObjectWithID implements types.BlockchainContext
func (c *Context) CreateObjectWithID(contract core.Address, id core.ObjectID) (types.VMObject, error) {
	var count int64
	if err := c.db.Model(&DBObject{}).
		Where("object_id = ? AND contract_address = ?", id.String(), contract.String()).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check object: %w", err)
	}
	if count > 0 {
		return nil, fmt.Errorf("object %s already exists", id)
	}

	dbObj := &DBObject{
		Owner:    contract.String(),
		Contract: contract.String(),
		ObjectID: id.String(),
	}
	if err := c.db.Create(dbObj).Error; err != nil {
		return nil, fmt.Errorf("failed to create object: %w", err)
	}

	return &Object{
		ctx:      c,
		id:       id,
		owner:    contract,
		contract: contract,
	}, nil
}

// GetObject implements types.BlockchainContext
func (c *Context) GetObject(contract core.Address, id core.ObjectID) (types.VMObject, error) {
	var dbObj DBObject
	result := c.db.Where("object_id = ? AND contract_address = ?", id.String(), contract.String()).First(&dbObj)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, core.ErrObjectNotFound
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get object: %w", result.Error)
	}

	return &Object{
		ctx:      c,
		id:       id,
		owner:    core.AddressFromString(dbObj.Owner),
		contract: contract,
	}, nil
}

// Log implements types.BlockchainContext; events are persisted with their
// receipt, so this only writes the structured log line
func (c *Context) Log(contract core.Address, eventName string, keyValues ...any) {
	params := []any{
		"block", c.BlockHeight(),
		"tx", c.txHash,
		"contract", contract,
		"event", eventName,
	}
	params = append(params, keyValues...)
	slog.Info("Contract event", params...)
}

// Nonce counts the transactions accepted from addr
func (c *Context) Nonce(addr core.Address) uint64 {
	var count int64
	if err := c.db.Model(&DBTransaction{}).Where("from_address = ?", addr.String()).Count(&count).Error; err != nil {
		slog.Error("Failed to count transactions", "address", addr, "error", err)
		return 0
	}
	return uint64(count)
}

// SaveReceipt writes the block, the transaction, its receipt and its events
// in one database transaction
func (c *Context) SaveReceipt(tx *types.Transaction, receipt *types.Receipt) error {
	txData, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	receiptData, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	return c.db.Transaction(func(db *gorm.DB) error {
		if c.currentBlock != nil && c.currentBlock.Height == receipt.BlockHeight {
			block := *c.currentBlock
			if err := db.Where(DBBlock{Height: block.Height}).FirstOrCreate(&block).Error; err != nil {
				return fmt.Errorf("failed to save block: %w", err)
			}
		}

		if err := db.Create(&DBTransaction{
			Hash:        receipt.TxHash.Hex(),
			BlockHeight: receipt.BlockHeight,
			FromAddress: tx.From.String(),
			ToAddress:   tx.To.String(),
			Nonce:       tx.Nonce,
			Function:    tx.Function,
			Data:        txData,
		}).Error; err != nil {
			return fmt.Errorf("failed to save transaction: %w", err)
		}

		if err := db.Create(&DBReceipt{
			TxHash: receipt.TxHash.Hex(),
			Status: receipt.Status,
			Data:   receiptData,
		}).Error; err != nil {
			return fmt.Errorf("failed to save receipt: %w", err)
		}

		for _, ev := range receipt.Events {
			fields, err := json.Marshal(ev.Fields)
			if err != nil {
				return fmt.Errorf("failed to marshal event data: %w", err)
			}
			if err := db.Create(&DBEvent{
				BlockHeight: receipt.BlockHeight,
				TxHash:      receipt.TxHash.Hex(),
				Contract:    ev.Contract.String(),
				EventName:   ev.Name,
				KeyValues:   fields,
			}).Error; err != nil {
				return fmt.Errorf("failed to save event: %w", err)
			}
		}
		return nil
	})
}

// Receipt implements types.BlockchainContext
func (c *Context) Receipt(hash core.Hash) (*types.Receipt, error) {
	var row DBReceipt
	result := c.db.Where("tx_hash = ?", hash.Hex()).First(&row)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, types.ErrReceiptNotFound
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", result.Error)
	}
	var receipt types.Receipt
	if err := json.Unmarshal(row.Data, &receipt); err != nil {
		return nil, fmt.Errorf("failed to decode receipt: %w", err)
	}
	return &receipt, nil
}

// Events returns the events a contract emitted with the given name, oldest
// first
func (c *Context) Events(contract core.Address, name string) ([]types.Event, error) {
	var rows []DBEvent
	if err := c.db.Where("contract_address = ? AND event_name = ?", contract.String(), name).
		Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	events := make([]types.Event, 0, len(rows))
	for _, row := range rows {
		ev := types.Event{
			Contract:    core.AddressFromString(row.Contract),
			Name:        row.EventName,
			BlockHeight: row.BlockHeight,
			TxHash:      core.HashFromString(row.TxHash),
		}
		if err := json.Unmarshal(row.KeyValues, &ev.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode event %d: %w", row.ID, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Close releases the underlying database handle
func (c *Context) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Object implements the VMObject interface
type Object struct {
	ctx      *Context
	id       core.ObjectID
	owner    core.Address
	contract core.Address
}

func (o *Object) ID() core.ObjectID {
	return o.id
}

func (o *Object) Owner() core.Address {
	return o.owner
}

func (o *Object) Contract() core.Address {
	return o.contract
}

func (o *Object) Get(contract core.Address, field string) ([]byte, error) {
	if contract != o.contract {
		return nil, fmt.Errorf("invalid contract")
	}

	var dbField DBObjectField
	result := o.ctx.db.Where("object_id = ? AND contract_address = ? AND field_key = ?",
		o.id.String(), o.contract.String(), field).First(&dbField)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, types.ErrFieldNotFound
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get field: %w", result.Error)
	}

	return dbField.Value, nil
}

func (o *Object) Set(contract, sender core.Address, field string, value []byte) error {
	if contract != o.contract {
		return fmt.Errorf("invalid contract")
	}
	if sender != o.owner && contract != o.owner {
		return fmt.Errorf("not owner")
	}

	// Update or create field
	result := o.ctx.db.Where("object_id = ? AND contract_address = ? AND field_key = ?",
		o.id.String(), o.contract.String(), field).
		Assign(DBObjectField{Value: value}).
		FirstOrCreate(&DBObjectField{
			ObjectID: o.id.String(),
			Contract: o.contract.String(),
			Key:      field,
			Value:    value,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update field: %w", result.Error)
	}
	return nil
}
