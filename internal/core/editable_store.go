package core

import (
	"sync"

	"github.com/shopspring/decimal"
)

// StoreEventKind names the command that changed the store.
type StoreEventKind string

const (
	EventLoaded          StoreEventKind = "loaded"
	EventEditMode        StoreEventKind = "edit_mode"
	EventHeaderUpdated   StoreEventKind = "header_updated"
	EventItemUpdated     StoreEventKind = "item_updated"
	EventItemAdded       StoreEventKind = "item_added"
	EventItemRemoved     StoreEventKind = "item_removed"
	EventDeliveryAdded   StoreEventKind = "delivery_added"
	EventDeliveryRemoved StoreEventKind = "delivery_removed"
	EventDeliveryUpdated StoreEventKind = "delivery_updated"
)

// StoreEvent is delivered to subscribers after every successful command.
// ItemIndex and LotIndex are -1 when not applicable.
type StoreEvent struct {
	Kind      StoreEventKind
	ItemIndex int
	LotIndex  int
	Field     string
}

// EditableDocumentStore owns the in-session mutable copy of one document tree.
// Every mutation goes through a command so aggregates and validation stay in one
// place; queries return copies and never expose internal slices.
type EditableDocumentStore interface {
	// LoadDocument replaces the whole tree with snapshot and clears edit mode.
	LoadDocument(snapshot Document)

	// SetEditMode toggles whether editable controls are shown. It does not gate commands.
	SetEditMode(editing bool)
	EditMode() bool

	UpdateHeader(field HeaderField, value string) error
	UpdateItem(itemIndex int, field ItemField, value string) error

	// AddItem appends an empty item numbered one past the highest number seen this session.
	AddItem()

	// RemoveItem deletes the item and all of its delivery lots. Remaining items keep
	// their numbers.
	RemoveItem(itemIndex int) error

	// AddDelivery appends a zeroed lot to the item.
	AddDelivery(itemIndex int) error

	// RemoveDelivery deletes one lot without renumbering its siblings.
	RemoveDelivery(itemIndex, lotIndex int) error

	UpdateDelivery(itemIndex, lotIndex int, field LotField, value string) error

	Header() DocumentHeader
	ItemCount() int
	Item(itemIndex int) (LineItem, error)
	Items() []LineItem

	// Snapshot returns a deep copy of the current tree for saving.
	Snapshot() Document

	TotalOrdered(itemIndex int) (decimal.Decimal, error)
	TotalDelivered(itemIndex int) (decimal.Decimal, error)
	TotalReceived(itemIndex int) (decimal.Decimal, error)
	TotalBalance(itemIndex int) (decimal.Decimal, error)
	ItemTotals(itemIndex int) (ItemTotals, error)

	// DocumentTotals sums the per-item aggregates. Balance is the sum of the
	// per-item floored balances.
	DocumentTotals() ItemTotals

	// Subscribe registers fn for change notifications and returns its cancel func.
	Subscribe(fn func(StoreEvent)) (unsubscribe func())
}

type editableDocumentStore struct {
	mu       sync.RWMutex
	doc      Document
	editing  bool
	highItem int // highest item number issued since the last load

	subMu  sync.Mutex
	subs   map[int]func(StoreEvent)
	nextID int
}

// NewEditableDocumentStore returns an empty store in view mode.
func NewEditableDocumentStore() EditableDocumentStore {
	return &editableDocumentStore{subs: make(map[int]func(StoreEvent))}
}

func (s *editableDocumentStore) LoadDocument(snapshot Document) {
	s.mu.Lock()
	s.doc = snapshot.clone()
	s.editing = false
	s.highItem = 0
	s.mu.Unlock()
	s.notify(StoreEvent{Kind: EventLoaded, ItemIndex: -1, LotIndex: -1})
}

func (s *editableDocumentStore) SetEditMode(editing bool) {
	s.mu.Lock()
	s.editing = editing
	s.mu.Unlock()
	s.notify(StoreEvent{Kind: EventEditMode, ItemIndex: -1, LotIndex: -1})
}

func (s *editableDocumentStore) EditMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editing
}

func (s *editableDocumentStore) UpdateHeader(field HeaderField, value string) error {
	s.mu.Lock()
	h := &s.doc.Header
	switch field {
	case HeaderDocumentNumber:
		if h.DocumentNumber != "" && h.DocumentNumber != value {
			s.mu.Unlock()
			return ErrReadOnlyField
		}
		h.DocumentNumber = value
	case HeaderDocumentDate:
		if d := CoerceDate(value); d != nil {
			h.DocumentDate = *d
		} else {
			h.DocumentDate = ""
		}
	case HeaderPartyName:
		h.PartyName = value
	case HeaderPartyGSTIN:
		h.PartyGSTIN = value
	case HeaderReference:
		h.Reference = value
	case HeaderRemarks:
		h.Remarks = value
	case HeaderTotalValue:
		h.TotalValue = CoerceDecimal(value)
	case HeaderTaxAmount:
		h.TaxAmount = CoerceDecimal(value)
	case HeaderGrandTotal:
		h.GrandTotal = CoerceDecimal(value)
	default:
		s.mu.Unlock()
		return &InvalidFieldError{Entity: "header", Field: field.String()}
	}
	s.mu.Unlock()
	s.notify(StoreEvent{Kind: EventHeaderUpdated, ItemIndex: -1, LotIndex: -1, Field: field.String()})
	return nil
}

func (s *editableDocumentStore) UpdateItem(itemIndex int, field ItemField, value string) error {
	s.mu.Lock()
	it, err := s.itemLocked(itemIndex)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	switch field {
	case ItemMaterialCode:
		it.MaterialCode = value
	case ItemDescription:
		it.Description = value
	case ItemDrawingNumber:
		it.DrawingNumber = value
	case ItemUnit:
		it.Unit = value
	case ItemRate:
		it.Rate = CoerceDecimal(value)
	default:
		s.mu.Unlock()
		return &InvalidFieldError{Entity: "item", Field: field.String()}
	}
	s.mu.Unlock()
	s.notify(StoreEvent{Kind: EventItemUpdated, ItemIndex: itemIndex, LotIndex: -1, Field: field.String()})
	return nil
}

func (s *editableDocumentStore) AddItem() {
	s.mu.Lock()
	next := s.highItem
	for _, it := range s.doc.Items {
		if it.ItemNumber > next {
			next = it.ItemNumber
		}
	}
	next++
	s.highItem = next
	s.doc.Items = append(s.doc.Items, LineItem{ItemNumber: next, Deliveries: []DeliveryLot{}})
	idx := len(s.doc.Items) - 1
	s.mu.Unlock()
	s.notify(StoreEvent{Kind: EventItemAdded, ItemIndex: idx, LotIndex: -1})
}

func (s *editableDocumentStore) RemoveItem(itemIndex int) error {
	s.mu.Lock()
	if _, err := s.itemLocked(itemIndex); err != nil {
		s.mu.Unlock()
		return err
	}
	// Removed numbers must not be handed out again before the next load.
	if n := s.doc.Items[itemIndex].ItemNumber; n > s.highItem {
		s.highItem = n
	}
	items := make([]LineItem, 0, len(s.doc.Items)-1)
	items = append(items, s.doc.Items[:itemIndex]...)
	s.doc.Items = append(items, s.doc.Items[itemIndex+1:]...)
	s.mu.Unlock()
	s.notify(StoreEvent{Kind: EventItemRemoved, ItemIndex: itemIndex, LotIndex: -1})
	return nil
}

func (s *editableDocumentStore) AddDelivery(itemIndex int) error {
	s.mu.Lock()
	it, err := s.itemLocked(itemIndex)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	next := len(it.Deliveries)
	for _, d := range it.Deliveries {
		if d.LotNumber > next {
			next = d.LotNumber
		}
	}
	it.Deliveries = append(it.Deliveries, DeliveryLot{
		LotNumber:         next + 1,
		OrderedQuantity:   decimal.Zero,
		DeliveredQuantity: decimal.Zero,
		ReceivedQuantity:  decimal.Zero,
	})
	lot := len(it.Deliveries) - 1
	s.mu.Unlock()
	s.notify(StoreEvent{Kind: EventDeliveryAdded, ItemIndex: itemIndex, LotIndex: lot})
	return nil
}

func (s *editableDocumentStore) RemoveDelivery(itemIndex, lotIndex int) error {
	s.mu.Lock()
	it, _, err := s.lotLocked(itemIndex, lotIndex)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	lots := make([]DeliveryLot, 0, len(it.Deliveries)-1)
	lots = append(lots, it.Deliveries[:lotIndex]...)
	it.Deliveries = append(lots, it.Deliveries[lotIndex+1:]...)
	s.mu.Unlock()
	s.notify(StoreEvent{Kind: EventDeliveryRemoved, ItemIndex: itemIndex, LotIndex: lotIndex})
	return nil
}

func (s *editableDocumentStore) UpdateDelivery(itemIndex, lotIndex int, field LotField, value string) error {
	s.mu.Lock()
	_, lot, err := s.lotLocked(itemIndex, lotIndex)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	switch field {
	case LotOrderedQuantity:
		lot.OrderedQuantity = CoerceDecimal(value)
	case LotDeliveredQuantity:
		lot.DeliveredQuantity = CoerceDecimal(value)
	case LotReceivedQuantity:
		lot.ReceivedQuantity = CoerceDecimal(value)
	case LotDeliveryDate:
		lot.DeliveryDate = CoerceDate(value)
	default:
		s.mu.Unlock()
		return &InvalidFieldError{Entity: "lot", Field: field.String()}
	}
	s.mu.Unlock()
	s.notify(StoreEvent{Kind: EventDeliveryUpdated, ItemIndex: itemIndex, LotIndex: lotIndex, Field: field.String()})
	return nil
}

func (s *editableDocumentStore) Header() DocumentHeader {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Header
}

func (s *editableDocumentStore) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doc.Items)
}

func (s *editableDocumentStore) Item(itemIndex int) (LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, err := s.itemLocked(itemIndex)
	if err != nil {
		return LineItem{}, err
	}
	return it.clone(), nil
}

func (s *editableDocumentStore) Items() []LineItem {
	return s.Snapshot().Items
}

func (s *editableDocumentStore) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.clone()
}

func (s *editableDocumentStore) ItemTotals(itemIndex int) (ItemTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, err := s.itemLocked(itemIndex)
	if err != nil {
		return ItemTotals{}, err
	}
	return it.Totals(), nil
}

func (s *editableDocumentStore) TotalOrdered(itemIndex int) (decimal.Decimal, error) {
	t, err := s.ItemTotals(itemIndex)
	return t.Ordered, err
}

func (s *editableDocumentStore) TotalDelivered(itemIndex int) (decimal.Decimal, error) {
	t, err := s.ItemTotals(itemIndex)
	return t.Delivered, err
}

func (s *editableDocumentStore) TotalReceived(itemIndex int) (decimal.Decimal, error) {
	t, err := s.ItemTotals(itemIndex)
	return t.Received, err
}

func (s *editableDocumentStore) TotalBalance(itemIndex int) (decimal.Decimal, error) {
	t, err := s.ItemTotals(itemIndex)
	return t.Balance, err
}

func (s *editableDocumentStore) DocumentTotals() ItemTotals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return DocumentTotals(s.doc)
}

func (s *editableDocumentStore) Subscribe(fn func(StoreEvent)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// notify runs outside s.mu so subscribers may query the store.
func (s *editableDocumentStore) notify(ev StoreEvent) {
	s.subMu.Lock()
	fns := make([]func(StoreEvent), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (s *editableDocumentStore) itemLocked(itemIndex int) (*LineItem, error) {
	if itemIndex < 0 || itemIndex >= len(s.doc.Items) {
		return nil, &IndexOutOfRangeError{Kind: "item", Index: itemIndex, Len: len(s.doc.Items)}
	}
	return &s.doc.Items[itemIndex], nil
}

func (s *editableDocumentStore) lotLocked(itemIndex, lotIndex int) (*LineItem, *DeliveryLot, error) {
	it, err := s.itemLocked(itemIndex)
	if err != nil {
		return nil, nil, err
	}
	if lotIndex < 0 || lotIndex >= len(it.Deliveries) {
		return nil, nil, &IndexOutOfRangeError{Kind: "lot", Index: lotIndex, Len: len(it.Deliveries)}
	}
	return it, &it.Deliveries[lotIndex], nil
}

// DocumentTotals rolls the per-item aggregates up to document level.
func DocumentTotals(doc Document) ItemTotals {
	var t ItemTotals
	for _, it := range doc.Items {
		tt := it.Totals()
		t.Ordered = t.Ordered.Add(tt.Ordered)
		t.Delivered = t.Delivered.Add(tt.Delivered)
		t.Received = t.Received.Add(tt.Received)
		t.Balance = t.Balance.Add(tt.Balance)
	}
	return t
}
