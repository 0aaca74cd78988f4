package vm

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/govm-net/counter/core"
	"github.com/govm-net/counter/types"
)

// overlay is the core.Context a contract runs against. Reads fall through
// to the state context; writes and events stay in the overlay until commit,
// so a reverted call leaves state untouched.
type overlay struct {
	state    types.BlockchainContext
	contract core.Address
	sender   core.Address
	meter    *GasMeter

	objects map[core.ObjectID]*overlayObject
	order   []core.ObjectID
	events  []types.Event
}

func newOverlay(state types.BlockchainContext, contract, sender core.Address, meter *GasMeter) *overlay {
	return &overlay{
		state:    state,
		contract: contract,
		sender:   sender,
		meter:    meter,
		objects:  make(map[core.ObjectID]*overlayObject),
	}
}

// defaultObjectID maps the zero ObjectID onto the contract's own object
func defaultObjectID(contract core.Address) core.ObjectID {
	var id core.ObjectID
	copy(id[:], contract[:])
	return id
}

// run calls h and turns a contract panic into an error
func (o *overlay) run(h Handler, params []byte) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	core.Assert(o.meter.Consume(GasCall + int64(len(params))*GasPerByte))
	return h(o, params)
}

func panicError(r any) error {
	switch v := r.(type) {
	case *core.RevertError:
		return v
	case error:
		return fmt.Errorf("contract aborted: %w", v)
	default:
		return fmt.Errorf("contract aborted: %v", v)
	}
}

func (o *overlay) BlockHeight() uint64 {
	return o.state.BlockHeight()
}

func (o *overlay) BlockTime() int64 {
	return o.state.BlockTime()
}

func (o *overlay) ContractAddress() core.Address {
	return o.contract
}

func (o *overlay) Sender() core.Address {
	return o.sender
}

func (o *overlay) GetObject(id core.ObjectID) (core.Object, error) {
	if err := o.meter.Consume(GasGetObject); err != nil {
		return nil, err
	}
	isDefault := id == core.ZeroObjectID
	if isDefault {
		id = defaultObjectID(o.contract)
	}
	if obj, ok := o.objects[id]; ok {
		return obj, nil
	}

	base, err := o.state.GetObject(o.contract, id)
	switch {
	case err == nil:
	case errors.Is(err, core.ErrObjectNotFound) && isDefault:
		// created on first commit
		base = nil
	default:
		return nil, err
	}

	obj := &overlayObject{
		ov:     o,
		id:     id,
		owner:  o.contract,
		base:   base,
		writes: make(map[string][]byte),
	}
	if base != nil {
		obj.owner = base.Owner()
	}
	o.objects[id] = obj
	o.order = append(o.order, id)
	return obj, nil
}

func (o *overlay) Log(eventName string, keyValues ...any) {
	core.Assert(o.meter.Consume(GasLog))
	ev, err := types.NewEvent(o.contract, eventName, keyValues...)
	core.Assert(err)
	o.events = append(o.events, ev)
}

// commit writes the buffered fields to state and forwards the events to
// the state context's log
func (o *overlay) commit() error {
	for _, id := range o.order {
		obj := o.objects[id]
		if len(obj.fields) == 0 {
			continue
		}
		target := obj.base
		if target == nil {
			created, err := o.state.CreateObjectWithID(o.contract, id)
			if err != nil {
				return fmt.Errorf("create object %s: %w", id, err)
			}
			target = created
		}
		for _, field := range obj.fields {
			if err := target.Set(o.contract, o.sender, field, obj.writes[field]); err != nil {
				return fmt.Errorf("set %s.%s: %w", id, field, err)
			}
		}
	}
	for _, ev := range o.events {
		o.state.Log(ev.Contract, ev.Name, ev.KeyValues()...)
	}
	return nil
}

// overlayObject buffers the writes to one object
type overlayObject struct {
	ov     *overlay
	id     core.ObjectID
	owner  core.Address
	base   types.VMObject // nil until the object exists in state
	writes map[string][]byte
	fields []string // write order
}

func (obj *overlayObject) ID() core.ObjectID {
	return obj.id
}

func (obj *overlayObject) Owner() core.Address {
	return obj.owner
}

func (obj *overlayObject) Contract() core.Address {
	return obj.ov.contract
}

func (obj *overlayObject) raw(field string) ([]byte, error) {
	if v, ok := obj.writes[field]; ok {
		return v, nil
	}
	if obj.base == nil {
		return nil, types.ErrFieldNotFound
	}
	return obj.base.Get(obj.ov.contract, field)
}

func (obj *overlayObject) Get(field string, value any) error {
	if err := obj.ov.meter.Consume(GasGetField); err != nil {
		return err
	}
	data, err := obj.raw(field)
	if err != nil {
		return fmt.Errorf("get %s: %w", field, err)
	}
	return json.Unmarshal(data, value)
}

func (obj *overlayObject) Set(field string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", field, err)
	}
	if err := obj.ov.meter.Consume(GasSetField + int64(len(data))*GasPerByte); err != nil {
		return err
	}
	if _, ok := obj.writes[field]; !ok {
		obj.fields = append(obj.fields, field)
	}
	obj.writes[field] = data
	return nil
}

func (obj *overlayObject) Has(field string) bool {
	_, err := obj.raw(field)
	return err == nil
}
