package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-gudang/internal/catalog"
	"github.com/noah-isme/backend-gudang/internal/counter"
	"github.com/noah-isme/backend-gudang/internal/crm"
	"github.com/noah-isme/backend-gudang/internal/pricing"
	"github.com/noah-isme/backend-gudang/internal/summary"
)

// Sentinel errors classifying rejected operations. The session is unchanged
// whenever one of these is returned without Result.Mutated set.
var (
	// ErrInvalidInput rejects a payload before any state mutation.
	ErrInvalidInput = errors.New("scan: invalid input")
	// ErrNoDealBound rejects SKU operations before a tracking scan.
	ErrNoDealBound = errors.New("scan: no deal bound")
	// ErrPendingOpen rejects ordinary scans while a sub-workflow is open.
	ErrPendingOpen = errors.New("scan: pending request open")
	// ErrNoPending rejects sub-workflow submissions with nothing pending.
	ErrNoPending = errors.New("scan: no pending request")
	// ErrEmptySession rejects undo and finish on a session with no entries.
	ErrEmptySession = errors.New("scan: session empty")
	// ErrCollaborator marks an external dependency failure. When paired with
	// Result.Mutated the in-memory mutation is kept and must be persisted.
	ErrCollaborator = errors.New("scan: collaborator failure")
)

// Outcome tags an operation result.
type Outcome string

// Operation outcomes.
const (
	OutcomeDealBound        Outcome = "deal_bound"
	OutcomeSuperseded       Outcome = "superseded"
	OutcomeAdded            Outcome = "added"
	OutcomeNeedsManualRef   Outcome = "needs_manual_reference"
	OutcomeNeedsNewProduct  Outcome = "needs_new_product"
	OutcomePendingCancelled Outcome = "pending_cancelled"
	OutcomeEntryRemoved     Outcome = "entry_removed"
	OutcomeFinished         Outcome = "finished"
)

// Result is the tagged outcome of one session operation. Mutated reports
// whether the session snapshot changed and must be saved, including on the
// kept-entry collaborator-failure path.
type Result struct {
	Outcome   Outcome       `json:"outcome"`
	DealID    string        `json:"dealId,omitempty"`
	Entry     *Entry        `json:"entry,omitempty"`
	Pending   *Pending      `json:"pending,omitempty"`
	Cancelled PendingKind   `json:"cancelled,omitempty"`
	Note      string        `json:"note,omitempty"`
	Total     pricing.Money `json:"total"`
	Mutated   bool          `json:"-"`
}

// RuleSource supplies the ordered fallback price table.
type RuleSource interface {
	ListRules(ctx context.Context) ([]catalog.PriceRule, error)
}

// Service drives the scan-session state machine. All collaborators are
// injected; the service holds no session state of its own.
type Service struct {
	Resolver            catalog.Resolver
	Catalog             catalog.Store
	Rules               RuleSource
	Counters            counter.Sink
	Machines            counter.MachineLog
	Notes               crm.NoteSink
	Deals               crm.DealLocator
	PrimaryManufacturer string
	Now                 func() time.Time
	Logger              *zerolog.Logger
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SupplyInput is the payload for a supply SKU scan.
type SupplyInput struct {
	Code         string
	Flaw         pricing.Flaw
	SerialNumber string
	Quantity     int
}

// MachineInput is the payload for a machine scan. Machines bypass catalog
// lookup and are priced by keyword.
type MachineInput struct {
	Name         string
	Code         string
	Flaw         pricing.Flaw
	SerialNumber string
	Quantity     int
}

// NewProductInput registers a product missing from both catalogs.
type NewProductInput struct {
	Description  string
	Size         string
	Manufacturer string
	Price        *pricing.Money
	ManualRef    string
	Quantity     int
}

// BindDeal resolves a tracking number to a deal and binds the session to it.
// A populated session being replaced is finalized first: its summary note is
// appended to the old deal before the reset.
func (s *Service) BindDeal(ctx context.Context, sess *Session, tracking string) (Result, error) {
	tracking = strings.TrimSpace(tracking)
	if tracking == "" {
		return Result{}, fmt.Errorf("tracking number is required: %w", ErrInvalidInput)
	}
	if s.Deals == nil {
		return Result{}, errors.New("scan: deal locator not configured")
	}
	dealID, err := s.Deals.FindDealByTracking(ctx, tracking)
	if err != nil {
		if errors.Is(err, crm.ErrDealNotFound) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: locate deal: %w", ErrCollaborator, err)
	}

	if sess.DealID != "" && len(sess.Entries) > 0 {
		note := summary.Summarize(summaryEntries(sess.Entries))
		if err := s.Notes.AppendNote(ctx, sess.DealID, note); err != nil {
			return Result{}, fmt.Errorf("%w: supersession note: %w", ErrCollaborator, err)
		}
		oldDeal := sess.DealID
		sess.reset(dealID)
		s.log().Info().Str("old_deal", oldDeal).Str("deal", dealID).Msg("session superseded")
		return Result{Outcome: OutcomeSuperseded, DealID: dealID, Note: note, Mutated: true}, nil
	}

	sess.reset(dealID)
	return Result{Outcome: OutcomeDealBound, DealID: dealID, Mutated: true}, nil
}

// AddSupplyEntry resolves a scanned supply code, prices it, and appends an
// entry. A catalog miss opens the manual-reference sub-workflow instead.
func (s *Service) AddSupplyEntry(ctx context.Context, sess *Session, in SupplyInput) (Result, error) {
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" {
		return Result{}, fmt.Errorf("code is required: %w", ErrInvalidInput)
	}
	if in.Quantity < 1 {
		return Result{}, fmt.Errorf("quantity must be at least 1: %w", ErrInvalidInput)
	}
	if in.Flaw == "" {
		in.Flaw = pricing.FlawNone
	}
	if !in.Flaw.Valid() {
		return Result{}, fmt.Errorf("unknown flaw code %q: %w", in.Flaw, ErrInvalidInput)
	}
	if sess.DealID == "" {
		return Result{}, ErrNoDealBound
	}
	if sess.Pending != nil {
		return Result{}, ErrPendingOpen
	}

	res, err := s.Resolver.ByCode(ctx, in.Code)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	if !res.Matched {
		sess.Pending = &Pending{
			Kind:         PendingManualReference,
			ScannedCode:  in.Code,
			Flaw:         in.Flaw,
			SerialNumber: in.SerialNumber,
			Quantity:     in.Quantity,
		}
		return Result{Outcome: OutcomeNeedsManualRef, Pending: sess.Pending, Mutated: true}, nil
	}

	price, err := s.price(ctx, res.Product.Description(), in.Flaw, res.Product.BasePrice)
	if err != nil {
		return Result{}, err
	}
	entry := Entry{
		Description:  res.Product.Description(),
		Size:         res.Product.Size,
		Flaw:         in.Flaw,
		SerialNumber: in.SerialNumber,
		UnitPrice:    price,
		Quantity:     in.Quantity,
		CatalogKey:   &catalog.Key{Catalog: res.Product.Catalog, Code: in.Code},
	}
	sess.Entries = append(sess.Entries, entry)
	result := Result{Outcome: OutcomeAdded, Entry: &entry, Total: sess.Total(), Mutated: true}

	// Flawed supply stock is not counted; the entry alone records it.
	if in.Flaw == pricing.FlawNone {
		key := counter.Key{
			Ref:          in.Code,
			Style:        res.Product.Style,
			Size:         res.Product.Size,
			Manufacturer: res.Product.Manufacturer,
		}
		if err := s.Counters.IncrementOrCreate(ctx, key, in.Quantity, price); err != nil {
			s.log().Error().Err(err).Str("code", in.Code).Msg("counter increment failed")
			return result, fmt.Errorf("%w: counter increment: %w", ErrCollaborator, err)
		}
	}
	return result, nil
}

// AddMachineEntry records a machine by name, bypassing catalog lookup.
// Machines are logged even when flawed.
func (s *Service) AddMachineEntry(ctx context.Context, sess *Session, in MachineInput) (Result, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Result{}, fmt.Errorf("machine name is required: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(in.SerialNumber) == "" {
		return Result{}, fmt.Errorf("serial number is required for machines: %w", ErrInvalidInput)
	}
	if in.Quantity < 1 {
		return Result{}, fmt.Errorf("quantity must be at least 1: %w", ErrInvalidInput)
	}
	if in.Flaw == "" {
		in.Flaw = pricing.FlawNone
	}
	if !in.Flaw.Valid() {
		return Result{}, fmt.Errorf("unknown flaw code %q: %w", in.Flaw, ErrInvalidInput)
	}
	if sess.DealID == "" {
		return Result{}, ErrNoDealBound
	}
	if sess.Pending != nil {
		return Result{}, ErrPendingOpen
	}

	price, err := s.price(ctx, in.Name, in.Flaw, nil)
	if err != nil {
		return Result{}, err
	}
	entry := Entry{
		Description:  in.Name,
		Flaw:         in.Flaw,
		SerialNumber: in.SerialNumber,
		UnitPrice:    price,
		Quantity:     in.Quantity,
		IsMachine:    true,
	}
	sess.Entries = append(sess.Entries, entry)
	result := Result{Outcome: OutcomeAdded, Entry: &entry, Total: sess.Total(), Mutated: true}

	event := counter.MachineEvent{
		Name:         in.Name,
		Code:         in.Code,
		SerialNumber: in.SerialNumber,
		Quantity:     in.Quantity,
		ScannedAt:    s.now(),
	}
	if err := s.Machines.Record(ctx, event); err != nil {
		s.log().Error().Err(err).Str("serial", in.SerialNumber).Msg("machine log failed")
		return result, fmt.Errorf("%w: machine log: %w", ErrCollaborator, err)
	}
	return result, nil
}

// SubmitManualReference resolves the open manual-reference request. A hit
// appends the entry and backfills the scanned code onto the catalog record;
// a miss escalates the pending request to new-product registration.
func (s *Service) SubmitManualReference(ctx context.Context, sess *Session, ref string) (Result, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Result{}, fmt.Errorf("manual reference is required: %w", ErrInvalidInput)
	}
	if sess.Pending == nil || sess.Pending.Kind != PendingManualReference {
		return Result{}, ErrNoPending
	}

	res, err := s.Resolver.ByManualRef(ctx, ref)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrCollaborator, err)
	}
	if !res.Matched {
		sess.Pending.Kind = PendingNewProduct
		sess.Pending.ManualRef = ref
		return Result{Outcome: OutcomeNeedsNewProduct, Pending: sess.Pending, Mutated: true}, nil
	}

	pending := *sess.Pending
	price, err := s.price(ctx, res.Product.Description(), pending.Flaw, res.Product.BasePrice)
	if err != nil {
		return Result{}, err
	}
	entry := Entry{
		Description:  res.Product.Description(),
		Size:         res.Product.Size,
		Flaw:         pending.Flaw,
		SerialNumber: pending.SerialNumber,
		UnitPrice:    price,
		Quantity:     pending.Quantity,
		CatalogKey:   &catalog.Key{Catalog: res.Product.Catalog, Code: pending.ScannedCode},
	}
	sess.Pending = nil
	sess.Entries = append(sess.Entries, entry)
	result := Result{Outcome: OutcomeAdded, Entry: &entry, Total: sess.Total(), Mutated: true}

	// Manual-reference resolution does not increment counters: the stock was
	// counted when the record was first established. Only the code backfill
	// closes the loop for future scans.
	if err := s.Catalog.BackfillCode(ctx, res.Product.ID, pending.ScannedCode); err != nil {
		s.log().Error().Err(err).Str("ref", ref).Msg("code backfill failed")
		return result, fmt.Errorf("%w: code backfill: %w", ErrCollaborator, err)
	}
	return result, nil
}

// RegisterNewProduct creates a catalog record for an unknown item and appends
// the corresponding entry. The manufacturer routes the record to the primary
// or overstock catalog.
func (s *Service) RegisterNewProduct(ctx context.Context, sess *Session, in NewProductInput) (Result, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.Manufacturer = strings.TrimSpace(in.Manufacturer)
	if in.Description == "" {
		return Result{}, fmt.Errorf("description is required: %w", ErrInvalidInput)
	}
	if in.Manufacturer == "" {
		return Result{}, fmt.Errorf("manufacturer is required: %w", ErrInvalidInput)
	}
	if sess.DealID == "" {
		return Result{}, ErrNoDealBound
	}
	if sess.Pending != nil && sess.Pending.Kind != PendingNewProduct {
		return Result{}, ErrPendingOpen
	}

	flaw := pricing.FlawNone
	serial := ""
	quantity := in.Quantity
	code := ""
	manualRef := strings.TrimSpace(in.ManualRef)
	if sess.Pending != nil {
		flaw = sess.Pending.Flaw
		serial = sess.Pending.SerialNumber
		quantity = sess.Pending.Quantity
		code = sess.Pending.ScannedCode
		if manualRef == "" {
			manualRef = sess.Pending.ManualRef
		}
	}
	if quantity < 1 {
		quantity = 1
	}

	name := catalog.Overstock
	if s.PrimaryManufacturer != "" && strings.EqualFold(in.Manufacturer, s.PrimaryManufacturer) {
		name = catalog.Primary
	}
	product := catalog.Product{
		Catalog:      name,
		Code:         code,
		ManualRef:    manualRef,
		Manufacturer: in.Manufacturer,
		Style:        in.Description,
		Size:         strings.TrimSpace(in.Size),
		BasePrice:    in.Price,
	}

	var price pricing.Money
	if in.Price != nil {
		price = *in.Price
	} else {
		computed, err := s.price(ctx, product.Description(), flaw, nil)
		if err != nil {
			return Result{}, err
		}
		price = computed
	}

	if _, err := s.Catalog.Insert(ctx, product); err != nil {
		return Result{}, fmt.Errorf("%w: create catalog record: %w", ErrCollaborator, err)
	}

	entry := Entry{
		Description:  product.Description(),
		Size:         product.Size,
		Flaw:         flaw,
		SerialNumber: serial,
		UnitPrice:    price,
		Quantity:     quantity,
		IsManual:     true,
	}
	sess.Pending = nil
	sess.Entries = append(sess.Entries, entry)
	return Result{Outcome: OutcomeAdded, Entry: &entry, Total: sess.Total(), Mutated: true}, nil
}

// Undo cancels the open pending request when one exists, otherwise it pops
// the most recent entry.
func (s *Service) Undo(_ context.Context, sess *Session) (Result, error) {
	if sess.Pending != nil {
		kind := sess.Pending.Kind
		sess.Pending = nil
		return Result{Outcome: OutcomePendingCancelled, Cancelled: kind, Total: sess.Total(), Mutated: true}, nil
	}
	if len(sess.Entries) == 0 {
		return Result{}, ErrEmptySession
	}
	last := sess.Entries[len(sess.Entries)-1]
	sess.Entries = sess.Entries[:len(sess.Entries)-1]
	return Result{Outcome: OutcomeEntryRemoved, Entry: &last, Total: sess.Total(), Mutated: true}, nil
}

// Finish aggregates the batch into one note on the bound deal, then resets
// the session. Counters are not touched: increments happened at scan time.
func (s *Service) Finish(ctx context.Context, sess *Session) (Result, error) {
	if sess.DealID == "" {
		return Result{}, ErrNoDealBound
	}
	if len(sess.Entries) == 0 {
		return Result{}, ErrEmptySession
	}
	dealID := sess.DealID
	note := summary.Summarize(summaryEntries(sess.Entries))
	if err := s.Notes.AppendNote(ctx, dealID, note); err != nil {
		return Result{}, fmt.Errorf("%w: finish note: %w", ErrCollaborator, err)
	}
	sess.reset("")
	s.log().Info().Str("deal", dealID).Msg("session finished")
	return Result{Outcome: OutcomeFinished, DealID: dealID, Note: note, Mutated: true}, nil
}

func (s *Service) price(ctx context.Context, name string, flaw pricing.Flaw, stored *pricing.Money) (pricing.Money, error) {
	var rules []pricing.Rule
	if stored == nil {
		if s.Rules == nil {
			return 0, errors.New("scan: rule source not configured")
		}
		rows, err := s.Rules.ListRules(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: load price rules: %w", ErrCollaborator, err)
		}
		rules = catalog.Rules(rows)
	}
	return pricing.Price(name, flaw, stored, rules), nil
}

var nopLogger = zerolog.Nop()

func (s *Service) log() *zerolog.Logger {
	if s != nil && s.Logger != nil {
		return s.Logger
	}
	return &nopLogger
}
